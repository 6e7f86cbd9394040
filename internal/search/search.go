// Package search finds tours by text. Meilisearch ranks results when it is
// reachable; otherwise a substring match runs over the cached tour list.
package search

// TourRecord is the data indexed for a tour.
type TourRecord struct {
	ID          string `json:"id"`
	Titulo      string `json:"titulo"`
	Descripcion string `json:"descripcion"`
	Ubicacion   string `json:"ubicacion"`
	Fecha       string `json:"fecha"`
}

// Engine is a full-text index of tours.
type Engine interface {
	Healthy() bool
	SearchIDs(text string, limit int) ([]string, error)
	IndexTours(tours []TourRecord) error
	DeleteTour(id string) error
}

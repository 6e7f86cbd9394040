package store

import "time"

// Gemelo is a virtual tour ("gemelo digital").
type Gemelo struct {
	ID           string    `json:"id"`
	Titulo       string    `json:"titulo"`
	Descripcion  string    `json:"descripcion"`
	Iframe       string    `json:"iframe"`
	Ubicacion    string    `json:"ubicacion,omitempty"`
	Fecha        string    `json:"fecha"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty"`
	CreatedAt    time.Time `json:"-"`
}

func (g Gemelo) RecordID() string { return g.ID }

// Marca is a partner brand shown in the logo carousel.
type Marca struct {
	ID        string    `json:"id"`
	Nombre    string    `json:"nombre"`
	LogoURL   string    `json:"logoUrl"`
	URL       string    `json:"url,omitempty"`
	Orden     int       `json:"orden"`
	Fecha     string    `json:"fecha"`
	CreatedAt time.Time `json:"-"`
}

func (m Marca) RecordID() string { return m.ID }

// Record is satisfied by every catalog entity.
type Record interface {
	Gemelo | Marca
	RecordID() string
}

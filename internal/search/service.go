package search

import (
	"strings"

	"go.uber.org/zap"

	"tresde/api/internal/store"
)

// DefaultLimit caps the number of results returned.
const DefaultLimit = 20

// Service is the facade that tries the engine first and falls back to a
// substring match over the tours it is given.
type Service struct {
	engine Engine
	logger *zap.Logger
}

// NewService creates a search service. engine may be nil.
func NewService(engine Engine, logger *zap.Logger) *Service {
	return &Service{engine: engine, logger: logger}
}

func (s *Service) engineReady() bool {
	return s.engine != nil && s.engine.Healthy()
}

// Search filters tours by text. Ids returned by the engine are resolved
// against tours, so results never include records the store no longer has.
func (s *Service) Search(text string, tours []store.Gemelo) []store.Gemelo {
	text = strings.TrimSpace(text)
	if text == "" {
		return limit(tours)
	}

	if s.engineReady() {
		ids, err := s.engine.SearchIDs(text, DefaultLimit)
		if err == nil {
			return resolve(ids, tours)
		}
		s.logger.Warn("search engine error, falling back to substring match", zap.Error(err))
	}
	return Substring(text, tours)
}

// Substring matches text case-insensitively against title, location and
// description, keeping the input order.
func Substring(text string, tours []store.Gemelo) []store.Gemelo {
	needle := strings.ToLower(strings.TrimSpace(text))
	out := make([]store.Gemelo, 0)
	for _, tour := range tours {
		if strings.Contains(strings.ToLower(tour.Titulo), needle) ||
			strings.Contains(strings.ToLower(tour.Ubicacion), needle) ||
			strings.Contains(strings.ToLower(tour.Descripcion), needle) {
			out = append(out, tour)
			if len(out) == DefaultLimit {
				break
			}
		}
	}
	return out
}

func resolve(ids []string, tours []store.Gemelo) []store.Gemelo {
	byID := make(map[string]store.Gemelo, len(tours))
	for _, tour := range tours {
		byID[tour.ID] = tour
	}
	out := make([]store.Gemelo, 0, len(ids))
	for _, id := range ids {
		if tour, ok := byID[id]; ok {
			out = append(out, tour)
		}
	}
	return out
}

func limit(tours []store.Gemelo) []store.Gemelo {
	if len(tours) > DefaultLimit {
		return tours[:DefaultLimit]
	}
	return tours
}

// Index pushes a tour to the engine (fire-and-forget).
func (s *Service) Index(tour store.Gemelo) {
	if !s.engineReady() {
		return
	}
	go func() {
		if err := s.engine.IndexTours([]TourRecord{Record(tour)}); err != nil {
			s.logger.Warn("index tour", zap.String("id", tour.ID), zap.Error(err))
		}
	}()
}

// Remove deletes a tour from the engine (fire-and-forget).
func (s *Service) Remove(id string) {
	if !s.engineReady() {
		return
	}
	go func() {
		if err := s.engine.DeleteTour(id); err != nil {
			s.logger.Warn("remove tour from index", zap.String("id", id), zap.Error(err))
		}
	}()
}

// Reindex pushes every tour synchronously. Called once at startup.
func (s *Service) Reindex(tours []store.Gemelo) {
	if !s.engineReady() || len(tours) == 0 {
		return
	}
	records := make([]TourRecord, len(tours))
	for i, tour := range tours {
		records[i] = Record(tour)
	}
	if err := s.engine.IndexTours(records); err != nil {
		s.logger.Warn("reindex tours", zap.Error(err))
		return
	}
	s.logger.Info("reindexed tours", zap.Int("count", len(records)))
}

func Record(tour store.Gemelo) TourRecord {
	return TourRecord{
		ID:          tour.ID,
		Titulo:      tour.Titulo,
		Descripcion: tour.Descripcion,
		Ubicacion:   tour.Ubicacion,
		Fecha:       tour.Fecha,
	}
}

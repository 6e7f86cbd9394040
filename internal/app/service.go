package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"tresde/api/internal/assets"
	"tresde/api/internal/auth"
	"tresde/api/internal/authpw"
	"tresde/api/internal/cache"
	"tresde/api/internal/email"
	"tresde/api/internal/search"
	"tresde/api/internal/store"
	"tresde/api/internal/util"
)

// Service is the catalog use-case layer: validation, id and date
// assignment, cache reads and invalidation on every write.
type Service struct {
	catalog *store.Catalog
	gemelos *cache.Collection[store.Gemelo]
	marcas  *cache.Collection[store.Marca]

	auth    *authpw.Service
	uploads *assets.Deduplicator
	search  *search.Service
	mailer  *email.Service
	logger  *zap.Logger
	now     func() time.Time
}

// Options wires the optional collaborators. Nil Search and Mailer disable
// those features; Uploads and Auth are required for the admin surface.
type Options struct {
	GemelosTTL time.Duration
	MarcasTTL  time.Duration
	Auth       *authpw.Service
	Uploads    *assets.Deduplicator
	Search     *search.Service
	Mailer     *email.Service
	Logger     *zap.Logger
	Now        func() time.Time
}

func NewService(catalog *store.Catalog, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	searchSvc := opts.Search
	if searchSvc == nil {
		searchSvc = search.NewService(nil, logger)
	}
	return &Service{
		catalog: catalog,
		gemelos: cache.New(string(store.KindGemelos), opts.GemelosTTL, catalog.Gemelos.List, now),
		marcas:  cache.New(string(store.KindMarcas), opts.MarcasTTL, catalog.Marcas.List, now),
		auth:    opts.Auth,
		uploads: opts.Uploads,
		search:  searchSvc,
		mailer:  opts.Mailer,
		logger:  logger,
		now:     now,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.catalog.Ping(ctx)
}

func (s *Service) Backend() string {
	return s.catalog.Backend
}

// GemeloInput is the body of a tour create request.
type GemeloInput struct {
	Titulo       string `json:"titulo"`
	Descripcion  string `json:"descripcion"`
	Iframe       string `json:"iframe"`
	Ubicacion    string `json:"ubicacion"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

// GemeloPatch is the body of a tour update request; nil fields are kept.
type GemeloPatch struct {
	Titulo       *string `json:"titulo"`
	Descripcion  *string `json:"descripcion"`
	Iframe       *string `json:"iframe"`
	Ubicacion    *string `json:"ubicacion"`
	ThumbnailURL *string `json:"thumbnailUrl"`
}

// MarcaInput is the body of a brand create request.
type MarcaInput struct {
	Nombre  string `json:"nombre"`
	LogoURL string `json:"logoUrl"`
	URL     string `json:"url"`
	Orden   int    `json:"orden"`
}

// MarcaPatch is the body of a brand update request; nil fields are kept.
type MarcaPatch struct {
	Nombre  *string `json:"nombre"`
	LogoURL *string `json:"logoUrl"`
	URL     *string `json:"url"`
	Orden   *int    `json:"orden"`
}

func (s *Service) ListGemelos(ctx context.Context) ([]store.Gemelo, error) {
	snap, err := s.gemelos.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("list gemelos: %w", err)
	}
	return snap.Items, nil
}

// GetGemelo answers from the snapshot when it holds the id and falls back to
// the store for tours created since the snapshot was taken.
func (s *Service) GetGemelo(ctx context.Context, id string) (store.Gemelo, error) {
	items, err := s.ListGemelos(ctx)
	if err != nil {
		return store.Gemelo{}, err
	}
	for _, item := range items {
		if item.ID == id {
			return item, nil
		}
	}
	g, err := s.catalog.Gemelos.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return store.Gemelo{}, notFound("Gemelo no encontrado")
	}
	return g, err
}

func (s *Service) SearchGemelos(ctx context.Context, query string) ([]store.Gemelo, error) {
	items, err := s.ListGemelos(ctx)
	if err != nil {
		return nil, err
	}
	return s.search.Search(query, items), nil
}

func (s *Service) CreateGemelo(ctx context.Context, input GemeloInput) (store.Gemelo, error) {
	now := s.now()
	g := store.Gemelo{
		ID:           util.NewTimeID(now),
		Titulo:       strings.TrimSpace(input.Titulo),
		Descripcion:  strings.TrimSpace(input.Descripcion),
		Iframe:       strings.TrimSpace(input.Iframe),
		Ubicacion:    strings.TrimSpace(input.Ubicacion),
		ThumbnailURL: strings.TrimSpace(input.ThumbnailURL),
		Fecha:        util.Today(now),
		CreatedAt:    now,
	}
	if err := ValidateGemelo(g); err != nil {
		return store.Gemelo{}, err
	}
	if err := s.catalog.Gemelos.Create(ctx, g); err != nil {
		return store.Gemelo{}, fmt.Errorf("create gemelo: %w", err)
	}
	s.gemelos.Invalidate()
	s.search.Index(g)
	s.logger.Info("gemelo created", zap.String("id", g.ID))
	return g, nil
}

func (s *Service) UpdateGemelo(ctx context.Context, id string, patch GemeloPatch) (store.Gemelo, error) {
	g, err := s.catalog.Gemelos.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return store.Gemelo{}, notFound("Gemelo no encontrado")
	}
	if err != nil {
		return store.Gemelo{}, fmt.Errorf("load gemelo: %w", err)
	}

	mergeString(&g.Titulo, patch.Titulo)
	mergeString(&g.Descripcion, patch.Descripcion)
	mergeString(&g.Iframe, patch.Iframe)
	mergeString(&g.Ubicacion, patch.Ubicacion)
	mergeString(&g.ThumbnailURL, patch.ThumbnailURL)
	if err := ValidateGemelo(g); err != nil {
		return store.Gemelo{}, err
	}

	err = s.catalog.Gemelos.Update(ctx, g)
	if errors.Is(err, store.ErrNotFound) {
		return store.Gemelo{}, notFound("Gemelo no encontrado")
	}
	if err != nil {
		return store.Gemelo{}, fmt.Errorf("update gemelo: %w", err)
	}
	s.gemelos.Invalidate()
	s.search.Index(g)
	s.logger.Info("gemelo updated", zap.String("id", g.ID))
	return g, nil
}

func (s *Service) DeleteGemelo(ctx context.Context, id string) error {
	err := s.catalog.Gemelos.Delete(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return notFound("Gemelo no encontrado")
	}
	if err != nil {
		return fmt.Errorf("delete gemelo: %w", err)
	}
	s.gemelos.Invalidate()
	s.search.Remove(id)
	s.logger.Info("gemelo deleted", zap.String("id", id))
	return nil
}

func (s *Service) ListMarcas(ctx context.Context) ([]store.Marca, error) {
	snap, err := s.marcas.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("list marcas: %w", err)
	}
	return snap.Items, nil
}

func (s *Service) CreateMarca(ctx context.Context, input MarcaInput) (store.Marca, error) {
	now := s.now()
	m := store.Marca{
		ID:        util.NewTimeID(now),
		Nombre:    strings.TrimSpace(input.Nombre),
		LogoURL:   strings.TrimSpace(input.LogoURL),
		URL:       strings.TrimSpace(input.URL),
		Orden:     input.Orden,
		Fecha:     util.Today(now),
		CreatedAt: now,
	}
	if err := ValidateMarca(m); err != nil {
		return store.Marca{}, err
	}
	if err := s.catalog.Marcas.Create(ctx, m); err != nil {
		return store.Marca{}, fmt.Errorf("create marca: %w", err)
	}
	s.marcas.Invalidate()
	s.logger.Info("marca created", zap.String("id", m.ID))
	return m, nil
}

func (s *Service) UpdateMarca(ctx context.Context, id string, patch MarcaPatch) (store.Marca, error) {
	m, err := s.catalog.Marcas.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return store.Marca{}, notFound("Marca no encontrada")
	}
	if err != nil {
		return store.Marca{}, fmt.Errorf("load marca: %w", err)
	}

	mergeString(&m.Nombre, patch.Nombre)
	mergeString(&m.LogoURL, patch.LogoURL)
	mergeString(&m.URL, patch.URL)
	if patch.Orden != nil {
		m.Orden = *patch.Orden
	}
	if err := ValidateMarca(m); err != nil {
		return store.Marca{}, err
	}

	err = s.catalog.Marcas.Update(ctx, m)
	if errors.Is(err, store.ErrNotFound) {
		return store.Marca{}, notFound("Marca no encontrada")
	}
	if err != nil {
		return store.Marca{}, fmt.Errorf("update marca: %w", err)
	}
	s.marcas.Invalidate()
	s.logger.Info("marca updated", zap.String("id", m.ID))
	return m, nil
}

func (s *Service) DeleteMarca(ctx context.Context, id string) error {
	err := s.catalog.Marcas.Delete(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return notFound("Marca no encontrada")
	}
	if err != nil {
		return fmt.Errorf("delete marca: %w", err)
	}
	s.marcas.Invalidate()
	s.logger.Info("marca deleted", zap.String("id", id))
	return nil
}

// ReindexSearch pushes the current tour list to the search engine.
func (s *Service) ReindexSearch(ctx context.Context) {
	items, err := s.ListGemelos(ctx)
	if err != nil {
		s.logger.Warn("reindex skipped", zap.Error(err))
		return
	}
	s.search.Reindex(items)
}

func mergeString(target *string, value *string) {
	if value != nil {
		*target = strings.TrimSpace(*value)
	}
}

// Login checks the admin secret and returns a signed session marker.
func (s *Service) Login(ctx context.Context, password string) (string, error) {
	token, _, err := s.auth.SignIn(ctx, password)
	switch {
	case errors.Is(err, authpw.ErrNotConfigured):
		s.logger.Error("admin login attempted but no admin secret is configured")
		return "", errMisconfigured
	case errors.Is(err, authpw.ErrWrongSecret):
		return "", errWrongPassword
	case err != nil:
		return "", err
	}
	return token, nil
}

// Authenticated reports whether token is a live session marker.
func (s *Service) Authenticated(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}
	_, err := s.auth.Verify(ctx, token)
	if err != nil && !errors.Is(err, auth.ErrInvalidToken) && !errors.Is(err, auth.ErrExpiredToken) && !errors.Is(err, authpw.ErrRevoked) {
		s.logger.Warn("session check failed", zap.Error(err))
	}
	return err == nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.auth.SignOut(ctx, token)
}

func (s *Service) SessionTTL() time.Duration {
	return s.auth.TTL()
}

// UploadLogo stores a brand logo, reusing an identical earlier upload.
func (s *Service) UploadLogo(ctx context.Context, fileName, contentType string, payload []byte) (assets.Result, error) {
	res, err := s.uploads.Store(ctx, fileName, contentType, payload)
	if err != nil {
		if mapped := uploadError(err); mapped != nil {
			return assets.Result{}, mapped
		}
		s.logger.Error("logo upload failed", zap.String("target", s.uploads.Target()), zap.Error(err))
		return assets.Result{}, domainError(500, "UPLOAD_FAILED", "Error al subir el archivo", nil)
	}
	return res, nil
}

// uploadError maps upload validation failures; nil means err is a storage
// failure.
func uploadError(err error) *DomainError {
	switch {
	case errors.Is(err, assets.ErrUnsupportedType):
		return domainError(415, "UNSUPPORTED_MEDIA_TYPE", "Tipo de archivo no permitido. Solo se permiten: JPEG, PNG, WebP, SVG", nil)
	case errors.Is(err, assets.ErrTooLarge):
		return domainError(413, "PAYLOAD_TOO_LARGE", "El archivo es demasiado grande. Tamaño máximo: 5MB", nil)
	case errors.Is(err, assets.ErrEmpty):
		return domainError(400, "VALIDATION_ERROR", "No se proporcionó ningún archivo", nil)
	}
	return nil
}

// SendInquiry forwards a contact form submission by email.
func (s *Service) SendInquiry(_ context.Context, inquiry email.Inquiry) error {
	if s.mailer == nil || !s.mailer.IsConfigured() {
		return domainError(503, "CONTACT_UNAVAILABLE", "El formulario de contacto no está disponible", nil)
	}
	if problems := inquiry.Validate(); len(problems) > 0 {
		return validationError(problems)
	}
	if err := s.mailer.SendInquiry(inquiry); err != nil {
		return fmt.Errorf("send inquiry: %w", err)
	}
	return nil
}

package app

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"tresde/api/internal/assets"
	"tresde/api/internal/auth"
	"tresde/api/internal/email"
	"tresde/api/internal/store"
)

const sessionCookie = "admin-auth"

// HTTPOptions carries the deployment settings the handlers need.
type HTTPOptions struct {
	CORSOrigin        string
	SecureCookies     bool
	UploadRequireAuth bool
	SiteURL           string
	// StaticDir holds the built admin pages; empty serves a placeholder.
	StaticDir string
	// UploadDir is served under /marcas/ for the local upload target.
	UploadDir string
}

type HTTPServer struct {
	service *Service
	logger  *zap.Logger
	opts    HTTPOptions
}

func NewHTTPServer(service *Service, logger *zap.Logger, opts HTTPOptions) *HTTPServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.CORSOrigin == "" {
		opts.CORSOrigin = "*"
	}
	return &HTTPServer{service: service, logger: logger, opts: opts}
}

func (s *HTTPServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.withRequestLog)
	r.Use(middleware.Recoverer)
	r.Use(observeRequests)

	r.Options("/*", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/ready", s.handleReady)

		r.Route("/gemelos", func(r chi.Router) {
			r.Get("/", s.handleListGemelos)
			r.Get("/search", s.handleSearchGemelos)
			r.Get("/{id}", s.handleGetGemelo)
			r.Group(func(r chi.Router) {
				r.Use(s.requireAdmin)
				r.Post("/", s.handleCreateGemelo)
				r.Put("/{id}", s.handleUpdateGemelo)
				r.Delete("/{id}", s.handleDeleteGemelo)
			})
		})

		r.Route("/marcas", func(r chi.Router) {
			r.Get("/", s.handleListMarcas)
			r.Group(func(r chi.Router) {
				r.Use(s.requireAdmin)
				r.Post("/", s.handleCreateMarca)
				r.Put("/{id}", s.handleUpdateMarca)
				r.Delete("/{id}", s.handleDeleteMarca)
			})
		})

		if s.opts.UploadRequireAuth {
			r.With(s.requireAdmin).Post("/upload/marca", s.handleUploadMarca)
		} else {
			r.Post("/upload/marca", s.handleUploadMarca)
		}

		r.Post("/auth/login", s.handleLogin)
		r.Get("/auth/check", s.handleCheck)
		r.Post("/auth/logout", s.handleLogout)

		r.Post("/contacto", s.handleContacto)

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/sitemap.xml", s.handleSitemap)
	r.Get("/robots.txt", s.handleRobots)

	r.Get("/admin", s.handleAdmin)
	r.Get("/admin/*", s.handleAdmin)

	if s.opts.UploadDir != "" {
		r.Handle("/marcas/*", http.StripPrefix("/marcas/", http.FileServer(http.Dir(s.opts.UploadDir))))
	}
	return r
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	statusCode := http.StatusOK
	check := map[string]any{"status": "ok", "backend": s.service.Backend()}
	if err := s.service.Ping(ctx); err != nil {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
		check["status"] = "error"
		s.logger.Warn("readiness check failed", zap.String("backend", s.service.Backend()), zap.Error(err))
	}
	writeJSON(w, statusCode, map[string]any{
		"status": status,
		"checks": map[string]any{"store": check},
	})
}

func (s *HTTPServer) handleListGemelos(w http.ResponseWriter, r *http.Request) {
	items, err := s.service.ListGemelos(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"gemelos": items})
}

func (s *HTTPServer) handleSearchGemelos(w http.ResponseWriter, r *http.Request) {
	items, err := s.service.SearchGemelos(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"gemelos": items})
}

func (s *HTTPServer) handleGetGemelo(w http.ResponseWriter, r *http.Request) {
	g, err := s.service.GetGemelo(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"gemelo": g})
}

func (s *HTTPServer) handleCreateGemelo(w http.ResponseWriter, r *http.Request) {
	var body GemeloInput
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	g, err := s.service.CreateGemelo(r.Context(), body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "gemelo": g})
}

func (s *HTTPServer) handleUpdateGemelo(w http.ResponseWriter, r *http.Request) {
	var body GemeloPatch
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	g, err := s.service.UpdateGemelo(r.Context(), chi.URLParam(r, "id"), body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "gemelo": g})
}

func (s *HTTPServer) handleDeleteGemelo(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteGemelo(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *HTTPServer) handleListMarcas(w http.ResponseWriter, r *http.Request) {
	items, err := s.service.ListMarcas(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"marcas": items})
}

func (s *HTTPServer) handleCreateMarca(w http.ResponseWriter, r *http.Request) {
	var body MarcaInput
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	m, err := s.service.CreateMarca(r.Context(), body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "marca": m})
}

func (s *HTTPServer) handleUpdateMarca(w http.ResponseWriter, r *http.Request) {
	var body MarcaPatch
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	m, err := s.service.UpdateMarca(r.Context(), chi.URLParam(r, "id"), body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "marca": m})
}

func (s *HTTPServer) handleDeleteMarca(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteMarca(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *HTTPServer) handleUploadMarca(w http.ResponseWriter, r *http.Request) {
	// Leave room for the multipart envelope around a maximum-size file.
	r.Body = http.MaxBytesReader(w, r.Body, assets.MaxSize+64<<10)
	if err := r.ParseMultipartForm(assets.MaxSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "El archivo es demasiado grande. Tamaño máximo: 5MB", nil)
			return
		}
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid multipart body", nil)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "No se proporcionó ningún archivo", nil)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if err := assets.Validate(contentType, header.Size); err != nil {
		s.fail(w, r, uploadError(err))
		return
	}
	payload, err := io.ReadAll(file)
	if err != nil {
		s.fail(w, r, fmt.Errorf("read upload: %w", err))
		return
	}

	res, err := s.service.UploadLogo(r.Context(), header.Filename, contentType, payload)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	response := map[string]any{
		"success":  true,
		"url":      res.URL,
		"fileName": res.FileName,
	}
	if res.Duplicate {
		response["isDuplicate"] = true
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	token, err := s.service.Login(r.Context(), body.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.setSessionCookie(w, token, int(s.service.SessionTTL().Seconds()))
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *HTTPServer) handleCheck(w http.ResponseWriter, r *http.Request) {
	if s.authenticated(r) {
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": true})
		return
	}
	writeJSON(w, http.StatusUnauthorized, map[string]any{"authenticated": false})
}

func (s *HTTPServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Logout(r.Context(), sessionToken(r)); err != nil {
		s.logger.Warn("session revocation failed", zap.Error(err))
	}
	s.setSessionCookie(w, "", -1)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *HTTPServer) handleContacto(w http.ResponseWriter, r *http.Request) {
	var body email.Inquiry
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if err := s.service.SendInquiry(r.Context(), body); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *HTTPServer) handleAdmin(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSuffix(r.URL.Path, "/")
	loggedIn := s.authenticated(r)
	if path == "/admin/login" {
		if loggedIn {
			http.Redirect(w, r, "/admin", http.StatusFound)
			return
		}
	} else if !loggedIn {
		http.Redirect(w, r, "/admin/login", http.StatusFound)
		return
	}
	s.serveAdminPage(w, r, path)
}

// serveAdminPage resolves /admin/x to StaticDir/admin/x/index.html or
// StaticDir/admin/x.html.
func (s *HTTPServer) serveAdminPage(w http.ResponseWriter, r *http.Request, path string) {
	w.Header().Set("Cache-Control", "no-store")
	if s.opts.StaticDir != "" {
		rel := filepath.FromSlash(strings.TrimPrefix(filepath.Clean("/"+path), "/"))
		for _, candidate := range []string{
			filepath.Join(s.opts.StaticDir, rel, "index.html"),
			filepath.Join(s.opts.StaticDir, rel+".html"),
			filepath.Join(s.opts.StaticDir, rel),
		} {
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				http.ServeFile(w, r, candidate)
				return
			}
		}
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "<!DOCTYPE html><html><head><title>TresDe admin</title></head><body></body></html>")
}

type sitemapURL struct {
	Loc        string  `xml:"loc"`
	LastMod    string  `xml:"lastmod,omitempty"`
	ChangeFreq string  `xml:"changefreq"`
	Priority   float64 `xml:"priority"`
}

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

func (s *HTTPServer) handleSitemap(w http.ResponseWriter, r *http.Request) {
	today := s.service.now().Format("2006-01-02")
	set := sitemapURLSet{Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	for _, route := range []string{"", "/portfolio"} {
		priority := 0.8
		if route == "" {
			priority = 1
		}
		set.URLs = append(set.URLs, sitemapURL{Loc: s.opts.SiteURL + route, LastMod: today, ChangeFreq: "monthly", Priority: priority})
	}

	items, err := s.service.ListGemelos(r.Context())
	if err != nil {
		s.logger.Warn("sitemap without tours", zap.Error(err))
	}
	for _, g := range items {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        s.opts.SiteURL + "/gemelo/" + g.ID,
			LastMod:    g.Fecha,
			ChangeFreq: "weekly",
			Priority:   0.6,
		})
	}

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, xml.Header)
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(set); err != nil {
		s.logger.Warn("sitemap encode failed", zap.Error(err))
	}
}

func (s *HTTPServer) handleRobots(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "User-Agent: *\nAllow: /\nDisallow: /admin/\nDisallow: /api/\n\nSitemap: %s/sitemap.xml\n", s.opts.SiteURL)
}

func (s *HTTPServer) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticated(r) {
			writeError(w, errUnauthorized.Status, errUnauthorized.Code, errUnauthorized.Message, nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *HTTPServer) authenticated(r *http.Request) bool {
	return s.service.Authenticated(r.Context(), sessionToken(r))
}

func (s *HTTPServer) setSessionCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

// sessionToken reads the marker from the cookie, falling back to a bearer
// header for scripted clients.
func sessionToken(r *http.Request) string {
	if cookie, err := r.Cookie(sessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return bearerToken(r)
}

func (s *HTTPServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("request_id", requestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeError(w, status, code, message, details)
}

func (s *HTTPServer) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id))

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.opts.CORSOrigin)
		writer.Header().Set("X-Request-ID", id)

		next.ServeHTTP(writer, r)

		s.logger.Info("request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", writer.status),
			zap.Int64("duration_ms", time.Since(started).Milliseconds()),
		)
	})
}

type requestIDKey struct{}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, store.ErrNotFound) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	if errors.Is(err, store.ErrUnavailable) {
		return http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Servicio no disponible", nil
	}
	if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrExpiredToken) {
		return errUnauthorized.Status, errUnauthorized.Code, errUnauthorized.Message, nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}

func statusLabel(status int) string {
	return strconv.Itoa(status)
}

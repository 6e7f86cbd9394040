package main

import (
	"context"
	"crypto/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"tresde/api/internal/app"
	"tresde/api/internal/assets"
	"tresde/api/internal/authpw"
	"tresde/api/internal/config"
	"tresde/api/internal/email"
	"tresde/api/internal/logging"
	"tresde/api/internal/search"
	"tresde/api/internal/session"
	"tresde/api/internal/store"
)

func main() {
	_ = godotenv.Overload("../.env")
	_ = godotenv.Overload(".env")

	cfg := config.Load()
	logger := logging.Must(cfg.Env)
	defer logger.Sync()
	ctx := context.Background()

	catalog, err := store.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("store init failed", zap.String("backend", cfg.StoreBackend), zap.Error(err))
	}
	defer catalog.Close()

	var revoker session.Revoker = session.NewMemoryStore()
	if strings.TrimSpace(cfg.RedisURL) != "" {
		redisStore, err := session.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal("redis connection failed", zap.Error(err))
		}
		defer redisStore.Close()
		revoker = redisStore
		logger.Info("using redis for session revocation")
	}

	signingSecret := []byte(cfg.SessionSecret)
	if len(signingSecret) == 0 {
		signingSecret = make([]byte, 32)
		if _, err := rand.Read(signingSecret); err != nil {
			logger.Fatal("session secret generation failed", zap.Error(err))
		}
		logger.Warn("SESSION_SECRET not set; sessions will not survive a restart")
	}
	authService := authpw.NewService(authpw.Options{
		Password:      cfg.AdminPassword,
		PasswordHash:  cfg.AdminPasswordHash,
		SigningSecret: signingSecret,
		TTL:           cfg.SessionTTL,
		Revoker:       revoker,
	})
	if !authService.Configured() {
		logger.Warn("ADMIN_PASSWORD not set; admin login is disabled")
	}

	var target assets.Target
	uploadDir := ""
	if cfg.ObjectStore.Configured() {
		objectStore, err := assets.NewObjectStore(cfg.ObjectStore)
		if err != nil {
			logger.Fatal("object store init failed", zap.Error(err))
		}
		target = objectStore
		logger.Info("uploading logos to object store", zap.String("bucket", cfg.ObjectStore.Bucket))
	} else {
		target = assets.NewLocalDir(cfg.UploadDir, "/marcas")
		uploadDir = cfg.UploadDir
	}

	var engine search.Engine
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient := search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger)
		defer meiliClient.Close()
		engine = meiliClient
	}

	service := app.NewService(catalog, app.Options{
		GemelosTTL: cfg.GemelosCacheTTL,
		MarcasTTL:  cfg.MarcasCacheTTL,
		Auth:       authService,
		Uploads:    assets.NewDeduplicator(target, logger),
		Search:     search.NewService(engine, logger),
		Mailer: email.NewService(email.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
			To:       cfg.ContactTo,
		}),
		Logger: logger,
	})
	if engine != nil {
		go service.ReindexSearch(ctx)
	}

	httpServer := app.NewHTTPServer(service, logger, app.HTTPOptions{
		CORSOrigin:        cfg.CORSOrigin,
		SecureCookies:     cfg.Production(),
		UploadRequireAuth: cfg.UploadRequireAuth,
		SiteURL:           cfg.SiteURL,
		StaticDir:         cfg.StaticDir,
		UploadDir:         uploadDir,
	})
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("tresde API listening", zap.String("addr", cfg.Addr), zap.String("store", catalog.Backend))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}

package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"tresde/api/internal/config"
)

// Open builds the catalog for cfg.StoreBackend. A backend whose credentials
// are missing yields an Unavailable catalog rather than an error so public
// pages can still render their empty states; connection failures on a
// configured backend are returned.
func Open(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Catalog, error) {
	switch cfg.StoreBackend {
	case "memory":
		logger.Warn("using in-memory store; records are lost on restart")
		return NewMemoryCatalog(), nil

	case "sheets":
		if !cfg.Sheets.Configured() {
			return unconfigured(logger, "sheets", "GOOGLE_SHEETS_ID, GOOGLE_SERVICE_ACCOUNT_EMAIL and GOOGLE_PRIVATE_KEY are required"), nil
		}
		api, err := newGoogleSheets(ctx, cfg.Sheets)
		if err != nil {
			return nil, err
		}
		return &Catalog{
			Backend: "sheets",
			Gemelos: newSheetsRepository(api, cfg.Sheets.GemelosSheet, gemeloCodec),
			Marcas:  newSheetsRepository(api, cfg.Sheets.MarcasSheet, marcaCodec),
			ping:    api.ping,
		}, nil

	case "postgres":
		if cfg.DatabaseURL == "" {
			return unconfigured(logger, "postgres", "DATABASE_URL is required"), nil
		}
		db, err := OpenDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		migrations, err := Migrations(cfg.MigrationsDir)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		if err := ApplyMigrations(ctx, db, migrations, logger); err != nil {
			_ = db.Close()
			return nil, err
		}
		return NewPostgresCatalog(db), nil

	case "firestore", "":
		if !cfg.Firebase.Configured() {
			return unconfigured(logger, "firestore", "FIREBASE_PROJECT_ID and service account credentials are required"), nil
		}
		return openFirestore(ctx, cfg.Firebase)

	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
}

func unconfigured(logger *zap.Logger, backend, reason string) *Catalog {
	logger.Warn("store backend not configured", zap.String("backend", backend), zap.String("reason", reason))
	return Unavailable(backend, reason)
}

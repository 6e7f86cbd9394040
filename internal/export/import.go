package export

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"tresde/api/internal/store"
	"tresde/api/internal/util"
)

// ImportOptions configures Import. Validators may be nil to accept every
// record as is.
type ImportOptions struct {
	ValidateGemelo func(store.Gemelo) error
	ValidateMarca  func(store.Marca) error
	// Replace overwrites records whose id already exists instead of skipping them.
	Replace bool
	Now     func() time.Time
	Logger  *zap.Logger
}

// ImportResult counts what Import did per collection.
type ImportResult struct {
	GemelosCreated int
	GemelosUpdated int
	GemelosSkipped int
	MarcasCreated  int
	MarcasUpdated  int
	MarcasSkipped  int
}

// Import writes a snapshot into the catalog. Tours are given newest first:
// they are written oldest first with creation times one second apart, so the
// same order comes back out of every backend.
func Import(ctx context.Context, catalog *store.Catalog, snap Snapshot, opts ImportOptions) (ImportResult, error) {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var res ImportResult
	started := now()
	for i := len(snap.Gemelos) - 1; i >= 0; i-- {
		g := snap.Gemelos[i]
		created := started.Add(-time.Duration(i) * time.Second)
		if strings.TrimSpace(g.ID) == "" {
			g.ID = util.NewTimeID(created)
		}
		if g.Fecha == "" {
			g.Fecha = util.Today(created)
		}
		g.CreatedAt = created
		if opts.ValidateGemelo != nil {
			if err := opts.ValidateGemelo(g); err != nil {
				return res, fmt.Errorf("gemelo %s: %w", g.ID, err)
			}
		}
		outcome, err := put(ctx, catalog.Gemelos, g, opts.Replace)
		if err != nil {
			return res, fmt.Errorf("gemelo %s: %w", g.ID, err)
		}
		tally(outcome, &res.GemelosCreated, &res.GemelosUpdated, &res.GemelosSkipped)
	}

	for i, m := range snap.Marcas {
		created := started.Add(time.Duration(i) * time.Millisecond)
		if strings.TrimSpace(m.ID) == "" {
			m.ID = util.NewTimeID(created)
		}
		if m.Fecha == "" {
			m.Fecha = util.Today(created)
		}
		m.CreatedAt = created
		if opts.ValidateMarca != nil {
			if err := opts.ValidateMarca(m); err != nil {
				return res, fmt.Errorf("marca %s: %w", m.ID, err)
			}
		}
		outcome, err := put(ctx, catalog.Marcas, m, opts.Replace)
		if err != nil {
			return res, fmt.Errorf("marca %s: %w", m.ID, err)
		}
		tally(outcome, &res.MarcasCreated, &res.MarcasUpdated, &res.MarcasSkipped)
	}

	logger.Info("catalog imported",
		zap.String("backend", catalog.Backend),
		zap.Int("gemelos_created", res.GemelosCreated),
		zap.Int("gemelos_updated", res.GemelosUpdated),
		zap.Int("gemelos_skipped", res.GemelosSkipped),
		zap.Int("marcas_created", res.MarcasCreated),
		zap.Int("marcas_updated", res.MarcasUpdated),
		zap.Int("marcas_skipped", res.MarcasSkipped),
	)
	return res, nil
}

type outcome int

const (
	outcomeCreated outcome = iota
	outcomeUpdated
	outcomeSkipped
)

func put[T store.Record](ctx context.Context, repo store.Repository[T], record T, replace bool) (outcome, error) {
	_, err := repo.Get(ctx, record.RecordID())
	switch {
	case errors.Is(err, store.ErrNotFound):
		if err := repo.Create(ctx, record); err != nil {
			return 0, err
		}
		return outcomeCreated, nil
	case err != nil:
		return 0, err
	case !replace:
		return outcomeSkipped, nil
	}
	if err := repo.Update(ctx, record); err != nil {
		return 0, err
	}
	return outcomeUpdated, nil
}

func tally(o outcome, created, updated, skipped *int) {
	switch o {
	case outcomeCreated:
		*created++
	case outcomeUpdated:
		*updated++
	case outcomeSkipped:
		*skipped++
	}
}

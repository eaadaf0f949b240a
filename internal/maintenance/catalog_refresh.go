package maintenance

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/brametal/chapas-backend/internal/catalog"
	"github.com/brametal/chapas-backend/pkg/logger"
)

const CatalogRefreshJobName = "catalog_refresh"

type catalogReloader interface {
	ReloadCatalog(ctx context.Context) (catalog.LoadReport, error)
}

type catalogState interface {
	Available() bool
}

// CatalogRefreshJob reloads the catalog when the ERP export on disk changes,
// or retries the load while no catalog is available.
type CatalogRefreshJob struct {
	path     string
	reloader catalogReloader
	state    catalogState
	logg     *logger.Logger
	stat     func(string) (os.FileInfo, error)

	mu      sync.Mutex
	lastMod time.Time
}

func NewCatalogRefreshJob(path string, reloader catalogReloader, state catalogState, logg *logger.Logger) *CatalogRefreshJob {
	return &CatalogRefreshJob{
		path:     path,
		reloader: reloader,
		state:    state,
		logg:     logg,
		stat:     os.Stat,
	}
}

func (j *CatalogRefreshJob) Name() string { return CatalogRefreshJobName }

func (j *CatalogRefreshJob) Run(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	info, err := j.stat(j.path)
	if err != nil {
		return fmt.Errorf("stat catalog workbook %q: %w", j.path, err)
	}
	mod := info.ModTime()
	available := j.state.Available()

	if available {
		if j.lastMod.IsZero() {
			// Loaded at startup; remember the version we are serving.
			j.lastMod = mod
			return nil
		}
		if !mod.After(j.lastMod) {
			return nil
		}
	}

	report, err := j.reloader.ReloadCatalog(ctx)
	if err != nil {
		return fmt.Errorf("reload catalog: %w", err)
	}
	j.lastMod = mod
	if j.logg != nil {
		j.logg.Info(j.logg.WithFields(ctx, map[string]any{
			"path":     j.path,
			"products": report.Products,
			"skipped":  report.Skipped,
		}), "catalog refreshed from workbook")
	}
	return nil
}

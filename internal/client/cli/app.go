package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/nestwatch/internal/client/blobstore"
	"github.com/dmitrijs2005/nestwatch/internal/client/client"
	"github.com/dmitrijs2005/nestwatch/internal/client/config"
	"github.com/dmitrijs2005/nestwatch/internal/client/localstore"
	"github.com/dmitrijs2005/nestwatch/internal/client/services"
	"github.com/dmitrijs2005/nestwatch/internal/filex"
	"github.com/dmitrijs2005/nestwatch/internal/logging"
)

// App holds everything a command needs. It is built once per invocation.
type App struct {
	config *config.Config
	logger logging.Logger
	store  *localstore.Store
	blobs  *blobstore.FS
	remote client.Client
	sites  services.SiteService
	out    io.Writer
}

func NewApp(ctx context.Context, cfg *config.Config, logger logging.Logger, out io.Writer) (*App, error) {
	if err := filex.EnsureDir(cfg.DataDir); err != nil {
		return nil, fmt.Errorf("error creating data directory: %w", err)
	}

	store, err := localstore.Open(ctx, cfg.Backend, cfg.DatabasePath(), logger)
	if err != nil {
		return nil, fmt.Errorf("error opening local store: %w", err)
	}

	blobs, err := blobstore.NewFS(cfg.BlobDir())
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("error opening blob store: %w", err)
	}

	remote, err := client.NewHTTPClient(cfg.ServerURL, cfg.Token, cfg.RequestTimeout)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &App{
		config: cfg,
		logger: logger,
		store:  store,
		blobs:  blobs,
		remote: remote,
		sites:  services.NewSiteService(store, blobs, logger),
		out:    out,
	}, nil
}

func (a *App) Close() error {
	_ = logging.Flush(a.logger)
	return a.store.Close()
}

// region returns the explicit region or the stored selection.
func (a *App) region(ctx context.Context, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	r, err := a.store.SelectedRegion(ctx)
	if err != nil {
		return "", err
	}
	if r == "" {
		return "", services.ErrNoRegion
	}
	return r, nil
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

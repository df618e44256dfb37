// Package server wires the sync server: configuration, PostgreSQL with
// migrations, the services, S3 photo storage and the HTTP API, and runs it
// until a termination signal arrives.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/nestwatch/internal/logging"
	"github.com/dmitrijs2005/nestwatch/internal/server/config"
	"github.com/dmitrijs2005/nestwatch/internal/server/httpapi"
	"github.com/dmitrijs2005/nestwatch/internal/server/metrics"
	"github.com/dmitrijs2005/nestwatch/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/nestwatch/internal/server/services"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	handler http.Handler
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(logging.Options{
		Level:  c.LogLevel,
		JSON:   true,
		File:   c.LogFile,
		Output: os.Stdout,
	})

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	ss := services.NewSyncService(db, rm, c, logger, m)
	rs := services.NewRegionService(db, rm, logger)
	bs := services.NewS3BlobStorage(c, m)

	h := httpapi.NewHandler(ss, rs, bs, db, logger, m, reg, c.SecretKey)

	return &App{config: c, logger: logger, db: db, handler: h.Routes()}, nil
}

// waitForSignal cancels the app on SIGINT, SIGTERM or SIGQUIT and returns
// when ctx ends.
func (app *App) waitForSignal(ctx context.Context, cancelFunc context.CancelFunc) error {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(sigs)

	select {
	case s := <-sigs:
		app.logger.Info(ctx, "signal received", "signal", s.String())
		cancelFunc()
	case <-ctx.Done():
	}
	return nil
}

func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return app.waitForSignal(gctx, cancelFunc)
	})

	g.Go(func() error {
		defer cancelFunc()
		s := httpapi.NewServer(app.config.HTTPAddr, app.handler, app.config.ReadTimeout, app.config.WriteTimeout, app.logger)
		return s.Run(gctx)
	})

	err := g.Wait()
	app.logger.Info(ctx, "App stopped")
	// stdout may refuse fsync; only the rotated file matters here
	_ = logging.Flush(app.logger)
	return errors.Join(err, app.db.Close())
}

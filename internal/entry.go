// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/smark/internal/api"
	"github.com/starford/smark/internal/index"
	"github.com/starford/smark/internal/lang"
	"github.com/starford/smark/internal/ledger"
	"github.com/starford/smark/internal/postservice"
	"github.com/starford/smark/internal/sse"
	"github.com/starford/smark/internal/storage"
)

var errConfigRequired = errors.New("config is required")

// Run starts the HTTP server. With watching enabled it also syncs the vault
// on start and keeps the index current while serving.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("index_path", cfg.Index.Path),
		slog.String("ledger_path", cfg.Ledger.Path),
		slog.Bool("watch", cfg.Watch),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Without watching another process owns the index, so reads take a
	// short-lived handle per query instead of holding the lock.
	var (
		reader index.Reader
		syncer *index.Syncer
	)
	if !cfg.Watch {
		reader, err = app.openSnapshots()
		if err != nil {
			return err
		}
	} else {
		engine, err := app.openEngine(false)
		if err != nil {
			return err
		}
		defer engine.Close()
		reader = engine

		var closeLedger func()
		syncer, closeLedger, err = app.openSyncer(engine, cfg.Vault.Path)
		if err != nil {
			return err
		}
		defer closeLedger()

		if _, err := syncer.Sync(); err != nil {
			logger.Warn("initial sync failed", slog.String("error", err.Error()))
		}
	}

	svc := postservice.NewService(reader)

	if err := svc.RefreshFacets(); err != nil {
		logger.Warn("facets: initial load failed", slog.String("error", err.Error()))
	}

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()
	if f, err := svc.Facets(ctx); err == nil {
		broker.SeedFacets(f.Tags, f.Categories)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Mount("/", api.NewRouter(svc, api.RouterConfig{
		CORSOrigin: cfg.App.HTTP.CORSOrigin,
		StaticDir:  cfg.Static.Path,
		Events:     broker,
	}))

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	if syncer != nil {
		g.Go(func() error {
			return syncer.Watch(gCtx, func(ev index.Event) {
				if err := svc.RefreshFacets(); err != nil {
					logger.Warn("facets: refresh failed", slog.String("error", err.Error()))
				}
				f, err := svc.Facets(gCtx)
				if err != nil {
					logger.Warn("facets: read failed", slog.String("error", err.Error()))
				}
				broker.PublishChange(ev.Kind, ev.Path, ev.UUID, f.Tags, f.Categories)
			})
		})
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// openEngine opens the configured index. A writable open creates it.
func (app *application) openEngine(readOnly bool, extra ...index.Option) (*index.Engine, error) {
	var opts []index.Option
	if l := app.config.Index.Lang; l != "" {
		opts = append(opts, index.WithProseLang(lang.Lang(l)))
	}
	if readOnly {
		opts = append(opts, index.ReadOnly())
	}
	opts = append(opts, extra...)

	engine, err := index.Open(app.config.Index.Path, opts...)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}
	return engine, nil
}

// openSnapshots opens the configured index for per-query reads.
func (app *application) openSnapshots() (*index.Snapshots, error) {
	var opts []index.Option
	if l := app.config.Index.Lang; l != "" {
		opts = append(opts, index.WithProseLang(lang.Lang(l)))
	}
	snaps, err := index.OpenSnapshots(app.config.Index.Path, opts...)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}
	return snaps, nil
}

// openSyncer prepares a syncer over dir with the configured ledger. The
// returned func closes the ledger.
func (app *application) openSyncer(engine *index.Engine, dir string) (*index.Syncer, func(), error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create vault dir: %w", err)
	}
	store, err := storage.NewFS(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("init storage: %w", err)
	}
	db, err := ledger.Open(app.config.Ledger.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init ledger: %w", err)
	}
	closeLedger := func() {
		if err := db.Close(); err != nil {
			app.logger.Warn("ledger: close failed", slog.String("error", err.Error()))
		}
	}
	return index.NewSyncer(engine, store, db.Vault(store.Root()), app.logger), closeLedger, nil
}

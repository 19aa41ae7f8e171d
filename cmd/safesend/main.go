// Package main provides the safesend binary entry point. It loads
// configuration from the environment, opens the SQLite metadata database and
// filesystem blob root, and serves the one-time encrypted file-drop API with
// a background janitor reclaiming expired and consumed files.
//
// The application flow:
//  1. Load and validate configuration.
//  2. Ensure the data and blob directories exist.
//  3. Open SQLite (metadata + metrics schemas).
//  4. Wire the lifecycle service, janitor, and HTTP handler.
//  5. Serve until SIGINT/SIGTERM, then shut down gracefully.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/safesend/safesend/internal/app"
	"github.com/safesend/safesend/internal/config"
	"github.com/safesend/safesend/internal/httpx"
	"github.com/safesend/safesend/internal/janitor"
	"github.com/safesend/safesend/internal/metrics"
	"github.com/safesend/safesend/internal/store/filesystem"
	"github.com/safesend/safesend/internal/store/sqlite"
	"github.com/safesend/safesend/web"
)

// realClock implements app.Clock using time.Now.
type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration error", "err", err)
		os.Exit(2)
	}
	return cfg
}

func ensureDirs(cfg *config.Config) {
	if st, err := os.Stat(cfg.DataDir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if mkErr := os.MkdirAll(cfg.DataDir, 0o700); mkErr != nil {
				slog.Error("create data directory", "dir", cfg.DataDir, "err", mkErr)
				os.Exit(3)
			}
		} else {
			slog.Error("stat data directory", "dir", cfg.DataDir, "err", err)
			os.Exit(3)
		}
	} else if !st.IsDir() {
		slog.Error("data path not directory", "dir", cfg.DataDir)
		os.Exit(3)
	}
	if err := os.MkdirAll(cfg.BlobDir(), 0o700); err != nil {
		slog.Error("create blobs dir", "err", err)
		os.Exit(3)
	}
}

func openDatabase(cfg *config.Config) (*sql.DB, *sqlite.Store) {
	db, err := sql.Open("sqlite3", cfg.SQLiteDSN())
	if err != nil {
		slog.Error("open sqlite driver", "err", err)
		os.Exit(4)
	}
	meta, err := sqlite.New(db)
	if err != nil {
		slog.Error("init sqlite schema", "err", err)
		os.Exit(4)
	}
	return db, meta
}

func newBlobStore(dir string) *filesystem.Store {
	blobs, err := filesystem.New(dir)
	if err != nil {
		slog.Error("init blob store", "err", err)
		os.Exit(5)
	}
	return blobs
}

func buildService(cfg *config.Config, meta *sqlite.Store, blobs *filesystem.Store, clock app.Clock) *app.Service {
	return &app.Service{
		Meta:     meta,
		Blobs:    blobs,
		Clock:    clock,
		MaxBytes: cfg.MaxBytes,
		TTL:      cfg.TTL,
		Logger:   slog.Default(),
	}
}

func buildHandler(cfg *config.Config, svc *app.Service, db *sql.DB, mgr *metrics.Manager) http.Handler {
	readiness := func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		if _, err := os.ReadDir(cfg.BlobDir()); err != nil {
			return err
		}
		return nil
	}
	h := httpx.New(svc, cfg.MaxBytes, readiness)
	h.Assets = web.Assets()
	h.Metrics = mgr

	mux := http.NewServeMux()
	mux.Handle("/", h.Router())
	mux.Handle("/metrics", metrics.Handler(mgr, cfg.MetricsToken))
	return mux
}

func newServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := loadConfig()
	ensureDirs(cfg)
	db, meta := openDatabase(cfg)
	defer db.Close()
	blobs := newBlobStore(cfg.BlobDir())
	clock := realClock{}
	svc := buildService(cfg, meta, blobs, clock)

	mgr := metrics.New(db, metrics.Config{FlushInterval: 10 * time.Second})
	if err := mgr.InitSchema(ctx); err != nil {
		return err
	}
	mgr.Start(ctx)

	jan := janitor.New(svc, janitor.Config{Interval: cfg.SweepInterval, Recorder: mgr})
	if err := jan.Start(ctx); err != nil {
		return err
	}

	srv := newServer(cfg, buildHandler(cfg, svc, db, mgr))
	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", cfg.Addr, "pid", os.Getpid())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		jan.Stop()
		mgr.Stop(context.Background())
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "err", err)
	}
	jan.Stop()
	mgr.Stop(shutdownCtx)
	return <-errCh
}

func main() {
	if err := run(); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
}

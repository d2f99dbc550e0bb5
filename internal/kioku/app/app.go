// Package app wires the memory core into a runnable process: storage,
// stores, facade, session registry, background sweeps, and the optional
// health server.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bdobrica/Kioku/internal/kioku/memory"
	"github.com/bdobrica/Kioku/internal/kioku/session"
	"github.com/bdobrica/Kioku/internal/kioku/store"
)

// App is the assembled Kioku process.
type App struct {
	config       Config
	store        *store.Store
	stm          memory.ShortTermStore
	ltm          memory.LongTermStore
	facade       *memory.Facade
	sessions     *session.Registry
	healthServer *HealthServer
	logger       *slog.Logger
}

// New creates a Kioku application from the given configuration.
func New(cfg Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("opening database", "path", cfg.DatabasePath)
	st, err := store.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("app: open store: %w", err)
	}

	var embedder memory.Embedder
	switch cfg.EmbeddingProvider {
	case "", "lexical":
		embedder = memory.NewLexicalEmbedder(0)
		logger.Info("embedder backend: lexical")
	case "openai":
		embedder = memory.NewOpenAIEmbedder(memory.OpenAIEmbedderConfig{
			APIKey:  cfg.EmbeddingAPIKey,
			BaseURL: cfg.EmbeddingEndpoint,
			Model:   cfg.EmbeddingModel,
		})
		logger.Info("embedder backend: openai")
	default:
		st.Close()
		return nil, fmt.Errorf("app: unknown embedding provider %q", cfg.EmbeddingProvider)
	}

	var ltm memory.LongTermStore
	switch cfg.LTMBackend {
	case "", "sqlite":
		ltm = memory.NewSQLiteLTM(st.DB(), embedder, logger)
		logger.Info("ltm backend: sqlite")
	case "chromem":
		ltm, err = memory.NewChromemLTM(embedder, logger)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("app: init chromem backend: %w", err)
		}
		logger.Info("ltm backend: chromem (in-process, not durable)")
	default:
		st.Close()
		return nil, fmt.Errorf("app: unknown ltm backend %q", cfg.LTMBackend)
	}

	stm := memory.NewSQLiteSTM(st.DB(), memory.STMConfig{
		WindowSize: cfg.STMWindowSize,
		TTL:        cfg.STMTTL,
	}, logger)

	facade := memory.NewFacade(stm, ltm, logger)
	sessions := session.NewRegistry(cfg.SessionTimeout, logger)

	app := &App{
		config:   cfg,
		store:    st,
		stm:      stm,
		ltm:      ltm,
		facade:   facade,
		sessions: sessions,
		logger:   logger,
	}

	if cfg.HTTPAddr != "" {
		app.healthServer = NewHealthServer(cfg.HTTPAddr, app)
		logger.Info("health server configured", "addr", cfg.HTTPAddr)
	}

	return app, nil
}

// Memory returns the unified memory facade.
func (a *App) Memory() *memory.Facade { return a.facade }

// Sessions returns the session registry.
func (a *App) Sessions() *session.Registry { return a.sessions }

// MemoryCount reports the number of live long-term items, for /status.
func (a *App) MemoryCount(ctx context.Context) (int, error) {
	return a.ltm.Count(ctx, "")
}

// ActiveSessions reports the number of tracked sessions, for /status.
func (a *App) ActiveSessions() int {
	return a.sessions.ActiveCount()
}

// Run starts the background loops and blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a.healthServer != nil {
		if err := a.healthServer.Start(ctx); err != nil {
			a.logger.Warn("health server failed to start; continuing without it", "err", err)
		}
	}

	interval := a.config.SweepInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	a.logger.Info("kioku is running", "sweep_interval", interval)
	for {
		select {
		case <-ctx.Done():
			a.logger.Info("shutting down")
			return nil
		case <-ticker.C:
			a.sweep(ctx)
		}
	}
}

// sweep runs one round of the periodic maintenance: expired short-term
// messages are deleted and stale sessions dropped.
func (a *App) sweep(ctx context.Context) {
	if n, err := a.stm.SweepExpired(ctx); err != nil {
		a.logger.Warn("sweep: expired messages", "err", err)
	} else if n > 0 {
		a.logger.Info("sweep: removed expired messages", "removed", n)
	}

	if n := a.sessions.CleanupExpired(); n > 0 {
		a.logger.Info("sweep: removed expired sessions", "removed", n)
	}
}

// Stop releases the application's resources.
func (a *App) Stop() {
	if a.healthServer != nil {
		a.logger.Info("stopping health server")
		a.healthServer.Stop()
	}
	a.logger.Info("closing database")
	if err := a.store.Close(); err != nil {
		a.logger.Warn("close database", "err", err)
	}
}

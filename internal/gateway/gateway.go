// ABOUTME: Gateway orchestrator wiring config, sessions, tools, and transports.
// ABOUTME: Manages the HTTP server lifecycle including graceful shutdown.

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/loreweave/lore-gateway/internal/archive"
	"github.com/loreweave/lore-gateway/internal/auth"
	"github.com/loreweave/lore-gateway/internal/config"
	"github.com/loreweave/lore-gateway/internal/dispatch"
	"github.com/loreweave/lore-gateway/internal/session"
	"github.com/loreweave/lore-gateway/internal/store"
	"github.com/loreweave/lore-gateway/internal/tools"
	"github.com/loreweave/lore-gateway/internal/transport"
)

// Gateway orchestrates the lore-gateway server components.
type Gateway struct {
	config     *config.Config
	sessions   *session.Manager
	ledger     store.Ledger
	httpServer *http.Server
	logger     *slog.Logger
	version    string
}

// Options carries build metadata into the gateway.
type Options struct {
	Version string
}

// initLedger opens the invocation ledger when a database path is
// configured. LORE_DB_PATH overrides the config value.
func initLedger(cfg *config.Config) (store.Ledger, error) {
	dbPath := cfg.Database.Path
	if envPath := os.Getenv("LORE_DB_PATH"); envPath != "" {
		dbPath = envPath
	}
	if dbPath == "" {
		return nil, nil
	}

	ledger, err := store.NewSQLiteLedger(dbPath)
	if err != nil {
		return nil, fmt.Errorf("initializing ledger: %w", err)
	}
	return ledger, nil
}

// ledgerRecorder adapts the store.Ledger to the dispatcher's Recorder.
type ledgerRecorder struct {
	ledger store.Ledger
}

func (r *ledgerRecorder) RecordInvocation(ctx context.Context, rec *dispatch.InvocationRecord) error {
	return r.ledger.RecordInvocation(ctx, &store.Invocation{
		ID:        rec.ID,
		SessionID: rec.SessionID,
		Tool:      rec.Tool,
		Duration:  rec.Duration,
		IsError:   rec.IsError,
		Error:     rec.Error,
		CreatedAt: rec.CreatedAt,
	})
}

// New creates a new Gateway instance with the given configuration.
func New(cfg *config.Config, logger *slog.Logger, opts Options) (*Gateway, error) {
	version := opts.Version
	if version == "" {
		version = "dev"
	}

	ledger, err := initLedger(cfg)
	if err != nil {
		return nil, err
	}

	sessions := session.NewManager(session.Config{
		Logger:  logger,
		IdleTTL: cfg.Sessions.IdleTTL,
	})

	archiveClient, err := archive.NewClient(archive.Config{
		BaseURL: cfg.Upstream.BaseURL,
		Tokens:  archive.StaticToken(cfg.Upstream.Token),
		Timeout: cfg.Upstream.Timeout,
	})
	if err != nil {
		sessions.Close()
		return nil, fmt.Errorf("creating archive client: %w", err)
	}

	registry := tools.NewRegistry(logger)
	if err := registry.RegisterAll(tools.CardTools(archiveClient)); err != nil {
		sessions.Close()
		return nil, fmt.Errorf("registering tools: %w", err)
	}

	var recorder dispatch.Recorder
	if ledger != nil {
		recorder = &ledgerRecorder{ledger: ledger}
	}

	dispatcher, err := dispatch.New(dispatch.Config{
		Registry:      registry,
		Logger:        logger,
		Recorder:      recorder,
		ServerName:    "lore-gateway",
		ServerVersion: version,
		CallTimeout:   cfg.Dispatch.CallTimeout,
	})
	if err != nil {
		sessions.Close()
		return nil, fmt.Errorf("creating dispatcher: %w", err)
	}

	var authority auth.Authority
	if cfg.Auth.JWTSecret != "" {
		authority = auth.NewJWTAuthority([]byte(cfg.Auth.JWTSecret), 0)
		logger.Info("token endpoint will issue signed JWTs")
	} else {
		logger.Warn("no jwt_secret configured, token endpoint will issue opaque tokens")
	}

	server, err := transport.NewServer(transport.Config{
		Sessions:   sessions,
		Dispatcher: dispatcher,
		Logger:     logger,
		Version:    version,
		Authority:  authority,
		Ledger:     ledger,
	})
	if err != nil {
		sessions.Close()
		return nil, fmt.Errorf("creating transport server: %w", err)
	}

	mux := http.NewServeMux()
	server.RegisterRoutes(mux)

	return &Gateway{
		config:   cfg,
		sessions: sessions,
		ledger:   ledger,
		logger:   logger.With("component", "gateway"),
		version:  version,
		httpServer: &http.Server{
			Addr:              cfg.Server.HTTPAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
// Returns nil on graceful shutdown, or an error if the server fails.
func (g *Gateway) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on HTTP address: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := g.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		g.logger.Error("server error", "error", serverErr)
	}

	shutdownErr := g.gracefulShutdown()
	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// Uses context.Background() intentionally since the original context is already canceled.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.Shutdown(ctx)
}

// Shutdown gracefully stops the HTTP server and releases resources.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway")

	var errs []error
	if err := g.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("HTTP shutdown: %w", err))
	}

	g.sessions.Close()

	if g.ledger != nil {
		if err := g.ledger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("ledger close: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}

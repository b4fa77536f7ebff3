// Command ledgerd runs the incentivized data-collection ledger server.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	app "github.com/R3E-Network/data_ledger/internal/app"
	"github.com/R3E-Network/data_ledger/internal/app/httpapi"
	"github.com/R3E-Network/data_ledger/internal/app/metrics"
	"github.com/R3E-Network/data_ledger/internal/app/storage"
	"github.com/R3E-Network/data_ledger/internal/app/storage/postgres"
	"github.com/R3E-Network/data_ledger/internal/config"
	"github.com/R3E-Network/data_ledger/internal/middleware"
	"github.com/R3E-Network/data_ledger/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ledgerd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.LoadOrDefault()

	log := logger.New("ledgerd", logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	store, closeStore, err := buildStore(cfg, log)
	if err != nil {
		return fmt.Errorf("configure store: %w", err)
	}
	if closeStore != nil {
		defer closeStore()
	}

	application := app.New(app.Options{
		Owner:  cfg.Owner,
		Store:  store,
		Logger: log,
	})

	var secret []byte
	if cfg.Auth.Enabled {
		secret = []byte(cfg.Auth.Secret)
	} else {
		log.Warn("auth disabled; trusting X-User-ID header for caller identity")
	}
	identity := middleware.NewIdentity(secret, log.WithField("component", "identity"), []string{"/health", "/metrics"})

	root := http.NewServeMux()
	root.Handle("/metrics", metrics.Handler())
	root.Handle("/", httpapi.NewHandler(application))

	var handler http.Handler = root
	if rl := cfg.Server.RateLimit; rl.RequestsPerSecond > 0 {
		burst := rl.Burst
		if burst <= 0 {
			burst = rl.RequestsPerSecond
		}
		handler = middleware.NewRateLimiter(rl.RequestsPerSecond, burst, log.WithField("component", "ratelimit")).Handler(handler)
	}
	handler = identity.Handler(handler)
	if len(cfg.Server.AllowedOrigins) > 0 {
		handler = middleware.NewCORS(cfg.Server.AllowedOrigins).Handler(handler)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           metrics.InstrumentHandler(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Infof("HTTP server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildStore selects the persistence backend. An empty DSN runs the ledger
// fully in memory.
func buildStore(cfg *config.Config, log *logger.Logger) (storage.LedgerStore, func(), error) {
	if cfg.Database.DSN == "" {
		log.Warn("no database configured; ledger state is in-memory only")
		return nil, nil, nil
	}

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, err
	}

	store := postgres.New(db)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := store.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}

	log.Info("using postgres store")
	return store, func() { db.Close() }, nil
}

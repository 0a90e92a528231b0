package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backend-urbexqueens/internal/config"
	"backend-urbexqueens/internal/db"
	"backend-urbexqueens/internal/server"

	"cloud.google.com/go/firestore"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
)

var mainDepsProvider = defaultDeps
var mainRunner = realMain

func main() {
	mainRunner(mainDepsProvider())
}

type mainDeps struct {
	loadConfig       func() config.Config
	initTracer       func(context.Context, config.Config) (func(context.Context) error, error)
	connectPostgres  func(config.Config) (*pgxpool.Pool, error)
	ensureSchema     func(context.Context, db.Querier) error
	connectRedis     func(config.Config) *redis.Client
	connectNats      func(config.Config) (*nats.Conn, error)
	connectFirestore func(context.Context, config.Config) (*firestore.Client, error)
	notify           func(chan<- os.Signal, ...os.Signal)
	run              func(context.Context, config.Config, server.Backends, <-chan os.Signal, ListenFunc) error
}

func defaultDeps() mainDeps {
	return mainDeps{
		loadConfig:       config.Load,
		initTracer:       initTracer,
		connectPostgres:  db.ConnectPostgres,
		ensureSchema:     db.EnsureSchema,
		connectRedis:     db.ConnectRedis,
		connectNats:      db.ConnectNats,
		connectFirestore: db.ConnectFirestore,
		notify:           signal.Notify,
		run:              Run,
	}
}

func realMain(deps mainDeps) {
	cfg := deps.loadConfig()
	initLogger(cfg)
	ctx := context.Background()

	if cfg.OtelEndpoint != "" {
		shutdownTracer, err := deps.initTracer(ctx, cfg)
		if err != nil {
			slog.Error("tracer init failed", "error", err)
		} else {
			defer func() {
				if err := shutdownTracer(context.Background()); err != nil {
					slog.Error("tracer shutdown failed", "error", err)
				}
			}()
		}
	}

	var backends server.Backends

	pg, err := deps.connectPostgres(cfg)
	if err != nil {
		slog.Error("postgres connection failed", "error", err)
	} else {
		backends.DB = pg
		if err := deps.ensureSchema(ctx, pg); err != nil {
			slog.Error("schema setup failed", "error", err)
		}
	}

	backends.Redis = deps.connectRedis(cfg)

	if backends.Nats, err = deps.connectNats(cfg); err != nil {
		slog.Warn("nats unavailable, applying follow events in-process", "error", err)
		backends.Nats = nil
	}

	if cfg.PlacesBackend == config.BackendFirestore {
		if backends.Firestore, err = deps.connectFirestore(ctx, cfg); err != nil {
			slog.Error("firestore connection failed, falling back to postgres", "error", err)
			backends.Firestore = nil
		}
	}

	signals := make(chan os.Signal, 1)
	deps.notify(signals, syscall.SIGINT, syscall.SIGTERM)

	if err := deps.run(ctx, cfg, backends, signals, nil); err != nil {
		slog.Error("server exited with error", "error", err)
	}
}

type ListenFunc func(app *fiber.App, addr string) error

var defaultListen ListenFunc = func(app *fiber.App, addr string) error {
	return app.Listen(addr)
}

var shutdownFn = func(app *fiber.App, ctx context.Context) error {
	return app.ShutdownWithContext(ctx)
}

// Run starts the HTTP server and background workers and waits for
// termination signals. Backends are closed on the way out.
func Run(ctx context.Context, cfg config.Config, backends server.Backends, signals <-chan os.Signal, listen ListenFunc) error {
	srv := server.NewServer(cfg, backends)
	defer closeBackends(backends)

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()
	if err := srv.Start(workerCtx); err != nil {
		srv.Stop()
		return err
	}
	defer srv.Stop()

	if listen == nil {
		listen = defaultListen
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- listen(srv.App, cfg.ServerPort)
	}()

	select {
	case <-signals:
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return shutdownFn(srv.App, shutdownCtx)
}

func closeBackends(b server.Backends) {
	if b.Nats != nil {
		if err := b.Nats.Drain(); err != nil {
			b.Nats.Close()
		}
	}
	if b.Firestore != nil {
		_ = b.Firestore.Close()
	}
	if b.Redis != nil {
		_ = b.Redis.Close()
	}
	if b.DB != nil {
		b.DB.Close()
	}
}

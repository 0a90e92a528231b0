package server

import (
	"context"
	"log/slog"

	"backend-urbexqueens/internal/achievement"
	"backend-urbexqueens/internal/auth"
	"backend-urbexqueens/internal/config"
	"backend-urbexqueens/internal/counters"
	"backend-urbexqueens/internal/feed"
	"backend-urbexqueens/internal/places"
	"backend-urbexqueens/internal/profile"
	"backend-urbexqueens/internal/reaction"
	"backend-urbexqueens/internal/shared/writeguard"
	"backend-urbexqueens/internal/social"
	"backend-urbexqueens/internal/stream"

	"cloud.google.com/go/firestore"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
)

const achievementBuffer = 256

// Backends are the connections the server was able to open. Only DB is
// required; the rest degrade to in-process alternatives when nil.
type Backends struct {
	DB        *pgxpool.Pool
	Redis     *redis.Client
	Nats      *nats.Conn
	Firestore *firestore.Client
}

type Server struct {
	App          *fiber.App
	Cfg          config.Config
	Backends     Backends
	Stream       *stream.Hub
	Guard        writeguard.Guard
	Achievements *achievement.Queue

	counters *counters.Consumer
}

func NewServer(cfg config.Config, backends Backends) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		App:      app,
		Cfg:      cfg,
		Backends: backends,
		Stream:   stream.NewHub(backends.Redis),
		Guard:    writeguard.FromConfig(cfg),
	}
	if backends.DB == nil {
		s.Guard = writeguard.Closed("postgres unavailable")
	}

	registerRoutes(s)
	return s
}

func (s *Server) placeStore() places.Store {
	if s.Cfg.PlacesBackend == config.BackendFirestore && s.Backends.Firestore != nil {
		return places.NewFirestoreStore(s.Backends.Firestore)
	}
	return places.NewPostgresStore(s.Backends.DB, s.Stream)
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "writes": s.Guard.Check() == nil})
	})

	pg := s.Backends.DB
	profileSvc := profile.NewService(pg, s.Guard)

	var hooks []auth.AuthenticatedHook
	if pg != nil {
		hooks = append(hooks, profileSvc.EnsureHook)
	}
	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret, hooks...)

	store := s.placeStore()
	evaluator := achievement.NewEvaluator(pg, store)
	s.Achievements = achievement.NewQueue(evaluator.Evaluate, s.Cfg.AchievementWorkers, achievementBuffer)

	sync := counters.NewSync(pg)
	var events social.EdgePublisher = sync
	// without postgres there is nothing to apply counter events to
	if s.Backends.Nats != nil && pg != nil {
		events = social.NewNatsPublisher(s.Backends.Nats)
		s.counters = counters.NewConsumer(sync)
	}

	placeSvc := places.NewService(store, places.NewCatalog(pg), s.Guard, s.Achievements)
	reactionSvc := reaction.NewService(pg, s.Guard)

	profile.RegisterRoutes(s.App, profileSvc, jwtMiddleware)
	places.RegisterRoutes(s.App, placeSvc, jwtMiddleware)
	social.RegisterRoutes(s.App.Group("/social"), social.NewService(pg, s.Stream, s.Guard, events), jwtMiddleware)
	reaction.RegisterRoutes(s.App, reactionSvc, jwtMiddleware)
	feed.RegisterRoutes(s.App, feed.NewService(pg, s.Guard), jwtMiddleware)
	achievement.RegisterRoutes(s.App, evaluator, jwtMiddleware)
}

// Start launches the background workers: achievement evaluation and, when a
// bus is configured, the follow counter consumer.
func (s *Server) Start(ctx context.Context) error {
	s.Achievements.Start(ctx)
	if s.counters != nil {
		if err := s.counters.Start(s.Backends.Nats); err != nil {
			return err
		}
		slog.Info("follow counter consumer started")
	}
	if err := s.Guard.Check(); err != nil {
		slog.Warn("writes are disabled", "reason", err)
	}
	return nil
}

// Stop halts background work and releases the hub. Connections stay open;
// their owner closes them.
func (s *Server) Stop() {
	if s.counters != nil {
		s.counters.Stop()
	}
	s.Achievements.Stop()
	s.Stream.Close()
}

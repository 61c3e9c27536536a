package server

import (
	"io"
	"log"
	"time"

	"github.com/EJ-pro/Walky/internal/auth"
	"github.com/EJ-pro/Walky/internal/config"
	"github.com/EJ-pro/Walky/internal/db"
	"github.com/EJ-pro/Walky/internal/dogs"
	"github.com/EJ-pro/Walky/internal/health"
	"github.com/EJ-pro/Walky/internal/profile"
	"github.com/EJ-pro/Walky/internal/rank"
	"github.com/EJ-pro/Walky/internal/records"
	"github.com/EJ-pro/Walky/internal/storage"
	"github.com/EJ-pro/Walky/internal/stream"
	"github.com/EJ-pro/Walky/internal/tracking"
	"github.com/EJ-pro/Walky/internal/weather"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const displayTick = time.Second

type Server struct {
	App      *fiber.App
	Cfg      config.Config
	DB       *pgxpool.Pool
	Redis    *redis.Client
	Stream   *stream.Hub
	Records  records.Store
	Poller   *health.Poller
	Tracking *tracking.Service
}

func NewServer(cfg config.Config, pool *pgxpool.Pool, redisClient *redis.Client) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		App:    app,
		Cfg:    cfg,
		DB:     pool,
		Redis:  redisClient,
		Stream: stream.NewHub(redisClient),
	}

	registerRoutes(s)
	return s
}

// querier avoids handing services a typed nil pool.
func (s *Server) querier() db.Querier {
	if s.DB == nil {
		return nil
	}
	return s.DB
}

func (s *Server) recordStore() records.Store {
	store, err := records.NewByEngine(s.Cfg.StoreEngine, s.querier(), s.Cfg.SQLitePath)
	if err != nil {
		log.Printf("record store %q unavailable, keeping walks in memory: %v", s.Cfg.StoreEngine, err)
		return records.NewMemoryStore()
	}
	return store
}

func (s *Server) stepTotals() health.Totals {
	if s.Redis == nil {
		return health.NewMemoryTotals()
	}
	return health.NewRedisTotals(s.Redis)
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	loc := s.Cfg.Location()
	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	s.Records = s.recordStore()
	healthSvc := health.NewService(s.stepTotals(), loc)
	s.Poller = health.NewPoller(healthSvc, s.Cfg.HealthPollInterval)
	rankSvc := rank.NewService(s.Records, s.Redis, loc, s.Cfg.RankCacheTTL, s.Cfg.StreakLookbackDays)
	s.Tracking = tracking.NewService(tracking.Options{
		Recorder:  s.Records,
		Publisher: s.Stream,
		Rank:      rankSvc,
		Poller:    s.Poller,
		Location:  loc,
		Tick:      displayTick,
	})

	auth.RegisterRoutes(s.App.Group("/auth"), auth.NewService(s.Cfg.JWTSecret, s.Cfg.ProviderSecret, s.querier()))
	tracking.RegisterRoutes(s.App.Group("/tracking"), s.Tracking, jwtMiddleware)
	records.RegisterRoutes(s.App.Group("/walks"), records.NewService(s.Records, loc), jwtMiddleware)
	rank.RegisterRoutes(s.App.Group("/rank"), rankSvc, jwtMiddleware)
	health.RegisterRoutes(s.App.Group("/health"), healthSvc, jwtMiddleware)
	weather.RegisterRoutes(s.App.Group("/weather"), weather.NewClient(s.Cfg.WeatherAPIURL, s.Cfg.WeatherAPIKey, 0), jwtMiddleware)
	dogs.RegisterRoutes(s.App.Group("/dogs"), dogs.NewService(s.querier()), jwtMiddleware)
	uploads := storage.NewService(s.querier(), s.Cfg.StorageBaseURL)
	storage.RegisterRoutes(s.App.Group("/storage"), uploads, jwtMiddleware)
	profile.RegisterRoutes(s.App.Group("/me"), profile.NewService(s.querier(), uploads), jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream, jwtMiddleware)
}

// Close stops live sessions and background work. Connections stay open; the caller owns them.
func (s *Server) Close() {
	s.Tracking.Close()
	s.Poller.StopAll()
	s.Stream.Close()
	if c, ok := s.Records.(io.Closer); ok {
		if err := c.Close(); err != nil {
			log.Printf("record store close error: %v", err)
		}
	}
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/trellis/config"
	mappingrepo "github.com/Ramsey-B/trellis/internal/repositories/mapping"
	schemarepo "github.com/Ramsey-B/trellis/internal/repositories/schema"
	mappingsvc "github.com/Ramsey-B/trellis/internal/services/mapping"
	schemasvc "github.com/Ramsey-B/trellis/internal/services/schema"
	"github.com/Ramsey-B/trellis/pkg/cache"
	"github.com/Ramsey-B/trellis/pkg/container"
	"github.com/Ramsey-B/trellis/pkg/database"
	"github.com/Ramsey-B/trellis/pkg/health"
	"github.com/Ramsey-B/trellis/pkg/kafka"
	"github.com/Ramsey-B/trellis/pkg/mapping"
	"github.com/Ramsey-B/trellis/pkg/middleware"
	"github.com/Ramsey-B/trellis/pkg/processor"
	filterroutes "github.com/Ramsey-B/trellis/pkg/routes/filter"
	mappingroutes "github.com/Ramsey-B/trellis/pkg/routes/mapping"
	schemaroutes "github.com/Ramsey-B/trellis/pkg/routes/schema"
	tenantroutes "github.com/Ramsey-B/trellis/pkg/routes/tenant"
	transformationroutes "github.com/Ramsey-B/trellis/pkg/routes/transformation"
	"github.com/Ramsey-B/trellis/pkg/startup"
	"github.com/Ramsey-B/trellis/pkg/transform"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
)

// server owns everything serve starts. Fields past health are filled in by
// the startup dependencies, so handlers only touch them once the health
// checker reports ready.
type server struct {
	cfg        config.Config
	logger     ectologger.Logger
	echo       *echo.Echo
	http       *http.Server
	health     *health.Checker
	httpErrors chan error

	verifier     *oidc.IDTokenVerifier
	db           database.DB
	redis        *redis.Client
	shared       processor.DocumentCache
	executor     *mapping.Executor
	mappingCache *processor.MappingCache
	sweeper      *processor.Sweeper
	consumer     *kafka.Consumer
	producer     *kafka.Producer
}

func newServer(cfg config.Config, logger ectologger.Logger) *server {
	s := &server{
		cfg:        cfg,
		logger:     logger,
		health:     health.NewChecker(cfg.Version),
		httpErrors: make(chan error, 1),
	}
	s.echo = s.routes()
	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.echo,
		ReadTimeout:       time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second,
		IdleTimeout:       time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}
	return s
}

func (s *server) routes() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(s.logger)

	e.Use(echomiddleware.Recover())
	e.Use(otelecho.Middleware(s.cfg.AppName))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: s.cfg.AllowOrigins,
		AllowMethods: s.cfg.AllowMethods,
	}))
	e.Use(echomiddleware.BodyLimit(s.cfg.BodyLimit))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(s.logger))

	s.health.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	auth := middleware.TestAuth()
	if s.cfg.AuthEnabled {
		auth = middleware.Authentication(s.logger, s)
	} else {
		s.logger.Warn("authentication is disabled, tenants are read from request headers")
		tenantroutes.Register(e.Group("/test", s.health.RequireReady()))
	}

	api := e.Group("", s.health.RequireReady(), auth, middleware.RequireTenant())
	schemaroutes.Register(api.Group("/schemas"))
	mappingroutes.Register(api.Group("/mappings"))
	transformationroutes.Register(api.Group("/transformations"))
	filterroutes.Register(api.Group("/filters"))

	return e
}

// Verify delegates to the OIDC verifier discovered during startup.
func (s *server) Verify(ctx context.Context, rawIDToken string) (*oidc.IDToken, error) {
	if s.verifier == nil {
		return nil, errors.New("token verifier is not initialized")
	}
	return s.verifier.Verify(ctx, rawIDToken)
}

// listen serves HTTP in the background so probes answer during startup.
func (s *server) listen() {
	go func() {
		s.logger.Infof("http server listening on %s", s.http.Addr)
		if err := s.echo.StartServer(s.http); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.httpErrors <- err
		}
	}()
}

func (s *server) shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *server) dependencies() []startup.Dependency {
	dependencies := []startup.Dependency{
		{Name: "database", StartFunc: s.startDatabase, StopFunc: s.stopDatabase},
	}
	servicesRequire := []string{"database"}

	if s.cfg.RedisHost != "" {
		dependencies = append(dependencies, startup.Dependency{Name: "redis", StartFunc: s.startRedis, StopFunc: s.stopRedis})
		servicesRequire = append(servicesRequire, "redis")
	}
	if s.cfg.AuthEnabled {
		dependencies = append(dependencies, startup.Dependency{Name: "auth", StartFunc: s.startAuth})
		servicesRequire = append(servicesRequire, "auth")
	}

	dependencies = append(dependencies, startup.Dependency{
		Name:      "services",
		Requires:  servicesRequire,
		StartFunc: s.startServices,
		StopFunc:  s.stopServices,
	})

	if s.cfg.KafkaConsumerEnabled {
		dependencies = append(dependencies, startup.Dependency{
			Name:      "worker",
			Requires:  []string{"services"},
			StartFunc: s.startWorker,
			StopFunc:  s.stopWorker,
		})
	}

	return dependencies
}

func (s *server) startDatabase(ctx context.Context) error {
	db, err := database.Connect(ctx, s.logger, s.cfg.Database())
	if err != nil {
		return err
	}
	if err := migrateDatabase(s.cfg, db, s.logger); err != nil {
		_ = db.Close()
		return err
	}
	s.db = db
	s.health.AddCheck("database", health.DatabaseCheck(db))
	return nil
}

func (s *server) stopDatabase(context.Context) error {
	return s.db.Close()
}

func (s *server) startRedis(ctx context.Context) error {
	client, err := cache.NewClient(ctx, s.cfg.Redis(), s.logger)
	if err != nil {
		return err
	}
	s.redis = client
	s.shared = cache.NewDocumentCache(client, s.logger, time.Duration(s.cfg.RedisTTLSeconds)*time.Second)
	s.health.AddCheck("redis", health.RedisCheck(client))
	return nil
}

func (s *server) stopRedis(context.Context) error {
	return s.redis.Close()
}

func (s *server) startAuth(ctx context.Context) error {
	verifier, err := middleware.NewOIDCVerifier(ctx, s.cfg.AuthIssuerURL, s.cfg.AuthClientID)
	if err != nil {
		return err
	}
	s.verifier = verifier
	return nil
}

// startServices builds repositories and services and registers them for the
// HTTP handlers.
func (s *server) startServices(context.Context) error {
	evaluator := transform.NewEvaluator(s.logger)
	s.executor = mapping.NewExecutor(s.logger, evaluator)

	mappings := mappingrepo.NewRepository(s.db, s.logger)
	schemas := schemarepo.NewRepository(s.db, s.logger)

	s.mappingCache = processor.NewMappingCache(mappings, s.shared, s.cfg.MappingCache(), s.logger)
	sweeper, err := processor.NewSweeper(s.mappingCache, s.cfg.MappingCacheSweepCron, s.logger)
	if err != nil {
		return err
	}
	s.sweeper = sweeper

	err = container.Register(container.Services{
		Logger:    s.logger,
		DB:        s.db,
		Mappings:  mappingsvc.NewService(s.logger, mappings, s.executor, s.mappingCache),
		Schemas:   schemasvc.NewService(s.logger, schemas),
		Evaluator: evaluator,
	})
	if err != nil {
		return err
	}

	s.sweeper.Start()
	return nil
}

func (s *server) stopServices(context.Context) error {
	s.sweeper.Stop()
	return nil
}

func (s *server) startWorker(ctx context.Context) error {
	producer, err := kafka.NewProducer(s.cfg.Producer(), s.logger)
	if err != nil {
		return err
	}
	consumer, err := kafka.NewConsumer(s.cfg.Consumer(), s.logger)
	if err != nil {
		_ = producer.Close()
		return err
	}

	p := processor.NewProcessor(s.cfg.Processor(), s.mappingCache, s.executor, producer, s.logger)
	if err := consumer.Start(ctx, p.MessageHandler()); err != nil {
		_ = consumer.Stop()
		_ = producer.Close()
		return err
	}

	s.producer = producer
	s.consumer = consumer
	return nil
}

// stopWorker drains the consumer before closing the producer it publishes to.
func (s *server) stopWorker(context.Context) error {
	if err := s.consumer.Stop(); err != nil {
		s.logger.WithError(err).Error("failed to stop kafka consumer")
	}
	return s.producer.Close()
}

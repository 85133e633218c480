package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	appAuth "github.com/biograph/insights/internal/app/auth"
	appControllers "github.com/biograph/insights/internal/app/controllers"
	appMigrations "github.com/biograph/insights/internal/app/migrations"
	appRepos "github.com/biograph/insights/internal/app/repositories"
	appRoutes "github.com/biograph/insights/internal/app/routes"
	appServices "github.com/biograph/insights/internal/app/services"
	"github.com/biograph/insights/internal/config"
	"github.com/biograph/insights/internal/curriculum"
	"github.com/biograph/insights/internal/db"
	appMiddleware "github.com/biograph/insights/internal/middleware"
	"github.com/biograph/insights/internal/pkg/academicapi"
	pkgAuth "github.com/biograph/insights/internal/pkg/auth"
	"github.com/biograph/insights/internal/pkg/cache"
	"github.com/biograph/insights/internal/pkg/graphstore"
	"github.com/biograph/insights/internal/pkg/helpers"
	"github.com/biograph/insights/internal/pkg/logger"
	"github.com/biograph/insights/internal/pkg/metrics"
	"github.com/biograph/insights/internal/pkg/tracing"
)

// DefaultConfigPath is used when BIOGRAPH_CONFIG is not set
var DefaultConfigPath = filepath.Join("configs", "config.yaml")

// Infrastructure holds the external connections. Every field except Upstream
// may be nil when the matching section is not configured.
type Infrastructure struct {
	DB       *db.PostgresDB
	Cache    *cache.SnapshotCache
	Graph    *graphstore.Client
	Upstream *academicapi.Client

	shutdownTracing tracing.ShutdownFunc
}

// Dependencies holds all the application dependencies
type Dependencies struct {
	Config         *config.Config
	Infra          *Infrastructure
	Repos          *appRepos.Repositories
	JWTService     *pkgAuth.JWTService
	AuthzService   *appAuth.AuthorizationService
	Services       appServices.Services
	Controllers    appRoutes.Controllers
	AuthMiddleware *appMiddleware.AuthMiddleware
	Logger         zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger
// writing to output.
func LoadConfigAndSetupLogger(output io.Writer) (*config.Config, zerolog.Logger, error) {
	configPath := DefaultConfigPath
	if p := os.Getenv("BIOGRAPH_CONFIG"); p != "" {
		configPath = p
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Str("path", configPath).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.ParseLevel(cfg.Logging.Level)
	logger.Configure(logger.Config{
		Level:   logLevel,
		Pretty:  cfg.Logging.Format == "text",
		Output:  output,
		Service: cfg.Tracing.ServiceName,
	})

	lgr := logger.Get()
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupInfrastructure connects to every configured backend. Postgres is
// required when enabled; Redis and Neo4j failures only disable the feature.
func SetupInfrastructure(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*Infrastructure, error) {
	infra := &Infrastructure{}

	shutdown, err := tracing.Init(ctx, tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		ServiceName: cfg.Tracing.ServiceName,
		Environment: cfg.Server.Mode,
	}, lgr)
	if err != nil {
		return nil, fmt.Errorf("failed to setup tracing: %w", err)
	}
	infra.shutdownTracing = shutdown

	infra.DB, err = SetupDatabase(ctx, cfg, lgr)
	if err != nil {
		_ = infra.Close(ctx, lgr)
		return nil, err
	}

	if cfg.Redis.Addr != "" {
		infra.Cache, err = cache.New(ctx, cache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
			TTL:      helpers.ParseDuration(cfg.Redis.TTL, 10*time.Minute),
		})
		if err != nil {
			lgr.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unavailable, snapshot cache disabled")
			infra.Cache = nil
		} else {
			lgr.Info().Str("addr", cfg.Redis.Addr).Msg("Snapshot cache connected")
		}
	}

	infra.Graph, err = graphstore.New(ctx, graphstore.Config{
		URI:      cfg.Neo4j.URI,
		User:     cfg.Neo4j.User,
		Password: cfg.Neo4j.Password,
		Database: cfg.Neo4j.Database,
	}, lgr)
	if err != nil {
		lgr.Warn().Err(err).Str("uri", cfg.Neo4j.URI).Msg("Neo4j unavailable, graph mirror disabled")
		infra.Graph = nil
	}

	infra.Upstream = academicapi.NewClient(academicapi.Config{
		BaseURL:    cfg.Upstream.BaseURL,
		Token:      cfg.Upstream.Token,
		Timeout:    helpers.ParseDuration(cfg.Upstream.Timeout, 15*time.Second),
		MaxRetries: cfg.Upstream.MaxRetries,
		RateLimit:  cfg.Upstream.RateLimit,
		Burst:      cfg.Upstream.Burst,
		PageSize:   cfg.Upstream.PageSize,
	}, lgr)

	return infra, nil
}

// SetupDatabase establishes the database connection and runs migrations.
// It returns nil when the database is disabled.
func SetupDatabase(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*db.PostgresDB, error) {
	if !cfg.Database.Enabled {
		lgr.Info().Msg("Database disabled, status history will not be recorded")
		return nil, nil
	}

	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(ctx, cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	lgr.Info().Msg("Database connection successfully established.")

	migrationsDir := cfg.Database.MigrationsDir
	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		database.Close()
		return nil, fmt.Errorf("migrations directory not found at %s: %w", migrationsDir, err)
	}

	lgr.Info().Str("dir", migrationsDir).Msg("Running database migrations...")
	migrator := appMigrations.NewMigrator(database.Pool, lgr)
	if err := migrator.MigrateFromDirectory(ctx, migrationsDir); err != nil {
		database.Close()
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Msg("Database migrations successfully applied.")

	return database, nil
}

// Close releases every connection held by the infrastructure.
func (i *Infrastructure) Close(ctx context.Context, lgr zerolog.Logger) error {
	var errs []error

	if i.Graph != nil {
		if err := i.Graph.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close neo4j: %w", err))
		}
	}
	if i.Cache != nil {
		if err := i.Cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if i.DB != nil {
		lgr.Info().Msg("Closing database connection pool...")
		i.DB.Close()
	}
	if i.shutdownTracing != nil {
		if err := i.shutdownTracing(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracing: %w", err))
		}
	}

	return errors.Join(errs...)
}

// BuildDependencies initializes application repositories, services, and controllers.
func BuildDependencies(cfg *config.Config, infra *Infrastructure, lgr zerolog.Logger) *Dependencies {
	deps := &Dependencies{Config: cfg, Infra: infra, Logger: lgr}

	// Optional backends are handed to the services as nil interfaces when absent
	var snapshotCache appServices.SnapshotCache
	if infra.Cache != nil {
		snapshotCache = infra.Cache
	}
	var mirror appServices.GraphMirror
	if infra.Graph != nil {
		mirror = infra.Graph
	}
	var audits appServices.StatusAuditStore
	if infra.DB != nil {
		deps.Repos = appRepos.NewRepositories(infra.DB.Pool)
		audits = deps.Repos.StatusAuditRepository
	}

	deps.AuthzService = appAuth.NewAuthorizationService()

	snapshots := appServices.NewSnapshotService(
		curriculum.NewStore(),
		infra.Upstream,
		snapshotCache,
		mirror,
		helpers.ParseDuration(cfg.Snapshot.TTL, appServices.DefaultSnapshotTTL),
		lgr,
	)
	deps.Services = appServices.Services{
		Snapshot:   snapshots,
		Insights:   appServices.NewInsightsService(snapshots, deps.AuthzService, lgr),
		Status:     appServices.NewStatusService(snapshots, infra.Upstream, audits, deps.AuthzService, lgr),
		Curriculum: appServices.NewCurriculumService(snapshots, infra.Upstream, deps.AuthzService, lgr),
	}

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:   cfg.JWT.Secret,
		TokenIssuer: cfg.JWT.Issuer,
	})
	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService)

	deps.Controllers = appRoutes.Controllers{
		Insights:   appControllers.NewInsightsController(deps.Services.Insights),
		Status:     appControllers.NewStatusController(deps.Services.Status),
		Curriculum: appControllers.NewCurriculumController(deps.Services.Curriculum),
		Snapshot:   appControllers.NewSnapshotController(deps.Services.Snapshot),
	}

	return deps
}

// WarmSnapshot loads the first snapshot in the background so the first
// request does not pay for the upstream fetch.
func WarmSnapshot(ctx context.Context, deps *Dependencies) {
	go func() {
		ctx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		if _, err := deps.Services.Snapshot.Current(ctx); err != nil {
			deps.Logger.Warn().Err(err).Msg("Initial snapshot load failed, will retry on demand")
		}
	}()
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Tracing.Enabled {
		router.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	}
	router.Use(appMiddleware.RequestID(), appMiddleware.RequestLogger(logger.Component("http")))

	if cfg.Metrics.Enabled {
		router.Use(appMiddleware.Metrics())
		router.GET(cfg.Metrics.Path, gin.WrapH(metrics.Handler()))
	}

	appRoutes.SetupRouter(router, deps.Controllers, deps.AuthMiddleware)

	return router
}

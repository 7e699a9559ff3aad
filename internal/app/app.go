package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/openshelf/bibliograph-backend/internal/data/db"
	"github.com/openshelf/bibliograph-backend/internal/observability"
	"github.com/openshelf/bibliograph-backend/internal/platform/envutil"
	"github.com/openshelf/bibliograph-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	DB       *gorm.DB
	Router   *gin.Engine
	Clients  Clients
	Repos    Repos
	Services Services

	metrics      *observability.Metrics
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New() (*App, error) {
	logMode := envutil.String("LOG_MODE", "development")
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	metrics := observability.Init(log)

	pg, err := db.NewFromEnv(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("database migrate: %w", err)
	}
	theDB := pg.DB()

	clients, err := wireClients(log)
	if err != nil {
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(theDB, log)
	serviceset := wireServices(theDB, log, reposet, clients)
	handlerset := wireHandlers(log, serviceset)
	router := wireRouter(log, handlerset)

	return &App{
		Log:      log,
		Cfg:      cfg,
		DB:       theDB,
		Router:   router,
		Clients:  clients,
		Repos:    reposet,
		Services: serviceset,
		metrics:  metrics,
	}, nil
}

// Start launches the background pieces: the tracer, the metrics endpoint
// and its collectors. Call once; Close stops them.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.otelShutdown = observability.InitOTel(ctx, a.Log, observability.OtelConfig{
		ServiceName: "bibliograph-backend",
		Environment: a.Cfg.Environment,
		Version:     a.Cfg.Version,
	})

	if a.metrics != nil {
		a.metrics.StartServer(ctx, a.Log, a.Cfg.MetricsAddr)
		a.metrics.StartPostgresCollector(ctx, a.Log, a.DB)
		a.metrics.StartRedisCollector(ctx, a.Log, a.Cfg.RedisAddr)
		a.metrics.StartHypothesisBacklogCollector(ctx, a.Log, a.DB)
		a.metrics.StartSLOEvaluator(ctx, a.Log)
	}
}

func (a *App) Run(addr string) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Router.Run(addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.otelShutdown(ctx)
		cancel()
		a.otelShutdown = nil
	}
	a.Clients.Close()
	if a.Log != nil {
		a.Log.Sync()
	}
}

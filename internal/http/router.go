package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/openshelf/bibliograph-backend/internal/http/handlers"
	httpMW "github.com/openshelf/bibliograph-backend/internal/http/middleware"
	"github.com/openshelf/bibliograph-backend/internal/observability"
	"github.com/openshelf/bibliograph-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log     *logger.Logger
	Metrics *observability.Metrics

	GraphHandler     *httpH.GraphHandler
	DiscoveryHandler *httpH.DiscoveryHandler
	HealthHandler    *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("bibliograph"))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS())

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		if cfg.GraphHandler != nil {
			graph := api.Group("/graph")
			graph.GET("/overview", cfg.GraphHandler.GetOverview)
			graph.GET("/stats", cfg.GraphHandler.GetStats)
			graph.GET("/resources/:id/neighbors", cfg.GraphHandler.GetNeighbors)
			graph.GET("/resources/:id/multihop", cfg.GraphHandler.GetMultihop)
		}

		if cfg.DiscoveryHandler != nil {
			discovery := api.Group("/discovery")
			discovery.POST("/open", cfg.DiscoveryHandler.DiscoverOpen)
			discovery.POST("/closed", cfg.DiscoveryHandler.DiscoverClosed)
			discovery.GET("/hypotheses", cfg.DiscoveryHandler.ListHypotheses)
			discovery.POST("/hypotheses/:id/validate", cfg.DiscoveryHandler.ValidateHypothesis)
		}
	}

	return r
}

package app

import (
	"github.com/gin-gonic/gin"

	"github.com/openshelf/bibliograph-backend/internal/http"
	httpH "github.com/openshelf/bibliograph-backend/internal/http/handlers"
	"github.com/openshelf/bibliograph-backend/internal/observability"
	"github.com/openshelf/bibliograph-backend/internal/platform/logger"
)

type Handlers struct {
	Health    *httpH.HealthHandler
	Graph     *httpH.GraphHandler
	Discovery *httpH.DiscoveryHandler
}

func wireHandlers(log *logger.Logger, serviceset Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:    httpH.NewHealthHandler(),
		Graph:     httpH.NewGraphHandler(log, serviceset.Graph, serviceset.Traversal),
		Discovery: httpH.NewDiscoveryHandler(log, serviceset.Discovery),
	}
}

func wireRouter(log *logger.Logger, handlerset Handlers) *gin.Engine {
	return http.NewRouter(http.RouterConfig{
		Log:              log,
		Metrics:          observability.Current(),
		HealthHandler:    handlerset.Health,
		GraphHandler:     handlerset.Graph,
		DiscoveryHandler: handlerset.Discovery,
	})
}

package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/openshelf/bibliograph-backend/internal/http/response"
	"github.com/openshelf/bibliograph-backend/internal/platform/logger"
	"github.com/openshelf/bibliograph-backend/internal/services"
)

type GraphHandler struct {
	log       *logger.Logger
	graph     services.GraphService
	traversal services.TraversalService
}

func NewGraphHandler(log *logger.Logger, graph services.GraphService, traversal services.TraversalService) *GraphHandler {
	return &GraphHandler{
		log:       log.With("handler", "GraphHandler"),
		graph:     graph,
		traversal: traversal,
	}
}

// intQuery reads an optional integer query parameter. ok is false only
// when the parameter is present but not a number.
func intQuery(c *gin.Context, name string, def int) (int, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

func floatQuery(c *gin.Context, name string, def float64) (float64, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def, true
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// GET /api/graph/resources/:id/neighbors
func (h *GraphHandler) GetNeighbors(c *gin.Context) {
	resourceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_resource_id", err)
		return
	}
	limit, ok := intQuery(c, "limit", 10)
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_limit", nil)
		return
	}

	graph, err := h.graph.Neighbors(c.Request.Context(), resourceID, limit)
	if err != nil {
		response.RespondServiceError(c, "neighbors_failed", err)
		return
	}
	response.RespondOK(c, graph)
}

// GET /api/graph/overview
func (h *GraphHandler) GetOverview(c *gin.Context) {
	edgeLimit, ok := intQuery(c, "edge_limit", 100)
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_edge_limit", nil)
		return
	}
	threshold, ok := floatQuery(c, "vector_threshold", 0)
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_vector_threshold", nil)
		return
	}

	graph, err := h.graph.Overview(c.Request.Context(), edgeLimit, threshold)
	if err != nil {
		response.RespondServiceError(c, "overview_failed", err)
		return
	}
	response.RespondOK(c, graph)
}

// GET /api/graph/resources/:id/multihop
func (h *GraphHandler) GetMultihop(c *gin.Context) {
	resourceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_resource_id", err)
		return
	}
	hops, ok := intQuery(c, "hops", 1)
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_hops", nil)
		return
	}
	minWeight, ok := floatQuery(c, "min_weight", 0)
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_min_weight", nil)
		return
	}
	limit, ok := intQuery(c, "limit", 20)
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_limit", nil)
		return
	}
	var edgeTypes []string
	if raw := strings.TrimSpace(c.Query("edge_types")); raw != "" {
		for _, et := range strings.Split(raw, ",") {
			if et = strings.TrimSpace(et); et != "" {
				edgeTypes = append(edgeTypes, et)
			}
		}
	}

	neighbors, err := h.traversal.Multihop(c.Request.Context(), resourceID, hops, edgeTypes, minWeight, limit)
	if err != nil {
		response.RespondServiceError(c, "multihop_failed", err)
		return
	}
	response.RespondOK(c, gin.H{
		"resource_id": resourceID,
		"hops":        hops,
		"neighbors":   neighbors,
	})
}

// GET /api/graph/stats
func (h *GraphHandler) GetStats(c *gin.Context) {
	stats, err := h.graph.Stats(c.Request.Context())
	if err != nil {
		response.RespondServiceError(c, "graph_stats_failed", err)
		return
	}
	response.RespondOK(c, stats)
}

package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/openshelf/bibliograph-backend/internal/data/repos"
	"github.com/openshelf/bibliograph-backend/internal/http/response"
	"github.com/openshelf/bibliograph-backend/internal/platform/logger"
	"github.com/openshelf/bibliograph-backend/internal/services"
)

type DiscoveryHandler struct {
	log       *logger.Logger
	discovery services.DiscoveryService
}

func NewDiscoveryHandler(log *logger.Logger, discovery services.DiscoveryService) *DiscoveryHandler {
	return &DiscoveryHandler{
		log:       log.With("handler", "DiscoveryHandler"),
		discovery: discovery,
	}
}

type discoverOpenRequest struct {
	AResourceID     uuid.UUID `json:"a_resource_id"`
	MinPlausibility *float64  `json:"min_plausibility"`
	Limit           int       `json:"limit"`
}

// POST /api/discovery/open
func (h *DiscoveryHandler) DiscoverOpen(c *gin.Context) {
	var req discoverOpenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if req.AResourceID == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_resource_id", nil)
		return
	}
	minPlausibility := 0.3
	if req.MinPlausibility != nil {
		minPlausibility = *req.MinPlausibility
	}

	hypotheses, err := h.discovery.DiscoverOpen(c.Request.Context(), req.AResourceID, minPlausibility, req.Limit)
	if err != nil {
		response.RespondServiceError(c, "open_discovery_failed", err)
		return
	}
	response.RespondOK(c, gin.H{
		"a_resource_id": req.AResourceID,
		"hypotheses":    hypotheses,
	})
}

type discoverClosedRequest struct {
	AResourceID uuid.UUID `json:"a_resource_id"`
	CResourceID uuid.UUID `json:"c_resource_id"`
	MaxHops     int       `json:"max_hops"`
}

// POST /api/discovery/closed
func (h *DiscoveryHandler) DiscoverClosed(c *gin.Context) {
	var req discoverClosedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if req.AResourceID == uuid.Nil || req.CResourceID == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_resource_id", nil)
		return
	}
	maxHops := req.MaxHops
	if maxHops == 0 {
		maxHops = 2
	}

	paths, err := h.discovery.DiscoverClosed(c.Request.Context(), req.AResourceID, req.CResourceID, maxHops)
	if err != nil {
		response.RespondServiceError(c, "closed_discovery_failed", err)
		return
	}
	response.RespondOK(c, gin.H{
		"a_resource_id": req.AResourceID,
		"c_resource_id": req.CResourceID,
		"paths":         paths,
	})
}

// GET /api/discovery/hypotheses
func (h *DiscoveryHandler) ListHypotheses(c *gin.Context) {
	filter := repos.HypothesisFilter{
		HypothesisType: strings.TrimSpace(c.Query("hypothesis_type")),
		Validated:      strings.TrimSpace(c.Query("validated")),
	}
	if raw := strings.TrimSpace(c.Query("a_resource_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_resource_id", err)
			return
		}
		filter.AResourceID = id
	}
	minPlausibility, ok := floatQuery(c, "min_plausibility", 0)
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_min_plausibility", nil)
		return
	}
	filter.MinPlausibility = minPlausibility
	limit, ok := intQuery(c, "limit", 0)
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_limit", nil)
		return
	}
	filter.Limit = limit
	offset, ok := intQuery(c, "offset", 0)
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_offset", nil)
		return
	}
	filter.Offset = offset

	hypotheses, err := h.discovery.ListHypotheses(c.Request.Context(), filter)
	if err != nil {
		response.RespondServiceError(c, "list_hypotheses_failed", err)
		return
	}
	response.RespondOK(c, gin.H{
		"hypotheses": hypotheses,
		"count":      len(hypotheses),
		"offset":     filter.Offset,
	})
}

type validateHypothesisRequest struct {
	IsValid *bool  `json:"is_valid"`
	Notes   string `json:"notes"`
}

// POST /api/discovery/hypotheses/:id/validate
func (h *DiscoveryHandler) ValidateHypothesis(c *gin.Context) {
	hypothesisID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_hypothesis_id", err)
		return
	}
	var req validateHypothesisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if req.IsValid == nil {
		response.RespondError(c, http.StatusBadRequest, "missing_is_valid", nil)
		return
	}

	hypothesis, reinforced, err := h.discovery.ValidateHypothesis(c.Request.Context(), hypothesisID, *req.IsValid, strings.TrimSpace(req.Notes))
	if err != nil {
		response.RespondServiceError(c, "validate_hypothesis_failed", err)
		return
	}
	response.RespondOK(c, gin.H{
		"accepted":         *req.IsValid,
		"edges_reinforced": reinforced,
		"hypothesis":       hypothesis,
	})
}

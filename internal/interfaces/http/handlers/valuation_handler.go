package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/motorintel/comparables/internal/application/valuation"
	"github.com/motorintel/comparables/internal/infrastructure/monitoring/logging"
	"github.com/motorintel/comparables/pkg/errors"
)

// ValuationHandler serves the evaluation, comparison and batch endpoints.
type ValuationHandler struct {
	service      valuation.Service
	maxBatchSize int
	logger       logging.Logger
}

// NewValuationHandler builds the handler.  maxBatchSize caps one batch
// request; non-positive disables the cap.
func NewValuationHandler(service valuation.Service, maxBatchSize int, logger logging.Logger) *ValuationHandler {
	return &ValuationHandler{
		service:      service,
		maxBatchSize: maxBatchSize,
		logger:       logger.Named("handler.valuation"),
	}
}

// Evaluate handles GET /api/v1/listings/:id/valuation.
func (h *ValuationHandler) Evaluate(c *gin.Context) {
	limit, err := limitQuery(c)
	if err != nil {
		renderError(c, err)
		return
	}

	result, err := h.service.Evaluate(c.Request.Context(), &valuation.EvaluateInput{
		ListingID: c.Param("id"),
		Limit:     limit,
	})
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Compare handles GET /api/v1/listings/:id/comparison.
func (h *ValuationHandler) Compare(c *gin.Context) {
	limit, err := limitQuery(c)
	if err != nil {
		renderError(c, err)
		return
	}

	report, err := h.service.Compare(c.Request.Context(), &valuation.CompareInput{
		ListingID: c.Param("id"),
		Limit:     limit,
	})
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// batchRequest is the body of POST /api/v1/valuations/batch.
type batchRequest struct {
	ListingIDs []string `json:"listing_ids"`
	Limit      int      `json:"limit"`
}

// EvaluateBatch handles POST /api/v1/valuations/batch.
func (h *ValuationHandler) EvaluateBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, errors.InvalidParam("request body must be valid JSON").WithCause(err))
		return
	}
	if len(req.ListingIDs) == 0 {
		renderError(c, errors.InvalidParam("listing_ids must not be empty"))
		return
	}
	if h.maxBatchSize > 0 && len(req.ListingIDs) > h.maxBatchSize {
		renderError(c, errors.InvalidParam("batch exceeds the maximum size").
			WithDetail(strconv.Itoa(h.maxBatchSize)))
		return
	}

	result, err := h.service.EvaluateBatch(c.Request.Context(), &valuation.BatchInput{
		ListingIDs: req.ListingIDs,
		Limit:      req.Limit,
	})
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// limitQuery parses the optional ?limit= parameter.  Absent means 0, which
// the service resolves to the retriever default.
func limitQuery(c *gin.Context) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, errors.InvalidParam("limit must be a non-negative integer").WithDetail(raw)
	}
	return limit, nil
}

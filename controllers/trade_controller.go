package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"trade_sentinel_backend/models"
	"trade_sentinel_backend/services"
	"trade_sentinel_backend/services/lifecycle"
	"trade_sentinel_backend/services/signals"
)

// Manual status targets allowed through the API. ALERTED and EXPIRED are
// system-owned transitions.
var manualStatuses = map[models.TradeStatus]bool{
	models.TradeStatusTaken:       true,
	models.TradeStatusInvalidated: true,
	models.TradeStatusCancelled:   true,
}

// TradeController exposes identified-trade queries, manual lifecycle
// transitions, statistics, and the synchronous trigger.
type TradeController struct {
	trades    *services.TradeStore
	lifecycle *lifecycle.TradeLifecycleManager
	pipeline  *signals.TradeSignalPipeline
}

// NewTradeController creates the controller.
func NewTradeController(trades *services.TradeStore, lm *lifecycle.TradeLifecycleManager, pipeline *signals.TradeSignalPipeline) *TradeController {
	return &TradeController{trades: trades, lifecycle: lm, pipeline: pipeline}
}

// GetTrades queries trades by symbol, status, and time window.
// GET /api/v1/trades
func (tc *TradeController) GetTrades(c *gin.Context) {
	query := services.TradeQuery{
		Symbol: c.Query("symbol"),
		Status: models.TradeStatus(c.Query("status")),
	}
	if from := c.Query("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from timestamp"})
			return
		}
		query.From = t
	}
	if to := c.Query("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to timestamp"})
			return
		}
		query.To = t
	}
	if limit := c.Query("limit"); limit != "" {
		n, err := strconv.ParseInt(limit, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		query.Limit = n
	}

	trades, err := tc.trades.Query(c.Request.Context(), query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query trades"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": trades, "count": len(trades)})
}

// GetTrade returns one trade.
// GET /api/v1/trades/:id
func (tc *TradeController) GetTrade(c *gin.Context) {
	trade, err := tc.trades.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "trade not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch trade"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": trade})
}

// UpdateTradeStatus applies a manual lifecycle transition.
// PATCH /api/v1/trades/:id/status
func (tc *TradeController) UpdateTradeStatus(c *gin.Context) {
	var request struct {
		Status models.TradeStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !manualStatuses[request.Status] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be TAKEN, INVALIDATED or CANCELLED"})
		return
	}

	trade, err := tc.trades.UpdateStatus(c.Request.Context(), c.Param("id"), request.Status)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "trade not found"})
		case errors.Is(err, models.ErrInvalidTransition):
			c.JSON(http.StatusConflict, gin.H{"error": "trade is already in a terminal status"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update trade"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": trade})
}

// GetStatistics returns the trailing-window aggregate.
// GET /api/v1/trades/statistics
func (tc *TradeController) GetStatistics(c *gin.Context) {
	windowHours := 24
	if raw := c.Query("window_hours"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid window_hours"})
			return
		}
		windowHours = n
	}

	stats, err := tc.lifecycle.ReportStatistics(c.Request.Context(), windowHours)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to aggregate statistics"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": stats})
}

// Trigger runs the pipeline synchronously for one symbol or all configured
// symbols and returns per-symbol summaries.
// POST /api/v1/signals/trigger
func (tc *TradeController) Trigger(c *gin.Context) {
	var request struct {
		Symbol string `json:"symbol"`
		All    bool   `json:"all"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if request.Symbol == "" && !request.All {
		c.JSON(http.StatusBadRequest, gin.H{"error": "provide symbol or all=true"})
		return
	}

	started := time.Now()
	var summaries []signals.RunSummary
	if request.All {
		summaries = tc.pipeline.RunAll(c.Request.Context())
	} else {
		summary, err := tc.pipeline.Run(c.Request.Context(), request.Symbol)
		if err != nil {
			summary.Error = err.Error()
		}
		summaries = []signals.RunSummary{*summary}
	}

	c.JSON(http.StatusOK, gin.H{
		"duration_ms": time.Since(started).Milliseconds(),
		"results":     summaries,
	})
}

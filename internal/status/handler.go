package status

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/camera6912/orb-trader/internal/domain"
	"github.com/camera6912/orb-trader/internal/storage"
	"github.com/gin-gonic/gin"
)

// Health handles GET /health.
func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "OK",
		"version":   s.version,
		"uptime":    time.Since(s.started).Round(time.Second).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Status handles GET /status with the current session snapshot.
func (s *Server) Status(c *gin.Context) {
	st, ok := s.state.Snapshot()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no session yet"})
		return
	}
	c.JSON(http.StatusOK, st)
}

// Feed handles GET /feed.
func (s *Server) Feed(c *gin.Context) {
	if s.feed == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no tick stream configured"})
		return
	}
	c.JSON(http.StatusOK, s.feed.Health())
}

// reportView is a stored report plus its audit verdict, if one was recorded.
type reportView struct {
	*domain.SessionReport
	Audit string `json:"audit,omitempty"`
}

// ListReports handles GET /reports.
func (s *Server) ListReports(c *gin.Context) {
	if s.reports == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "reports are not persisted"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultTimeout)
	defer cancel()

	reports, err := s.reports.ListReports(ctx)
	if err != nil {
		s.handleError(c, err, http.StatusInternalServerError, "Internal server error")
		return
	}
	c.JSON(http.StatusOK, reports)
}

// GetReport handles GET /reports/:date.
func (s *Server) GetReport(c *gin.Context) {
	date := c.Param("date")
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		s.handleError(c, err, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	if s.reports == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "reports are not persisted"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultTimeout)
	defer cancel()

	r, err := s.reports.GetReport(ctx, date)
	if err != nil {
		s.handleError(c, err, http.StatusInternalServerError, "Internal server error")
		return
	}
	if r == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no report for " + date})
		return
	}

	verdict, err := s.reports.GetMetadata(ctx, storage.AuditKey(date))
	if err != nil {
		s.logger.Warn("Failed to read audit verdict", slog.String("date", date), slog.Any("error", err))
	}
	c.JSON(http.StatusOK, reportView{SessionReport: r, Audit: verdict})
}

func (s *Server) handleError(c *gin.Context, err error, statusCode int, userMessage string) {
	requestID := c.GetString(RequestIDContextKey)
	s.logger.Error("API error",
		slog.String("request_id", requestID),
		slog.String("path", c.Request.URL.Path),
		slog.String("error", err.Error()),
		slog.Int("status_code", statusCode),
	)
	c.JSON(statusCode, gin.H{
		"error":      userMessage,
		"request_id": requestID,
	})
}

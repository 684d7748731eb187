package status

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/camera6912/orb-trader/internal/domain"
	"github.com/camera6912/orb-trader/internal/infra"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	DefaultTimeout      = 5 * time.Second
	RequestIDContextKey = "request_id"
	RequestIDHeaderKey  = "X-Request-ID"
)

// StateSource serves the latest published session snapshot.
type StateSource interface {
	Snapshot() (domain.SessionState, bool)
}

// ReportSource serves persisted session reports and their audit verdicts.
type ReportSource interface {
	ListReports(ctx context.Context) ([]domain.SessionReport, error)
	GetReport(ctx context.Context, session string) (*domain.SessionReport, error)
	GetMetadata(ctx context.Context, key string) (string, error)
}

// FeedSource reports the health of the tick stream.
type FeedSource interface {
	Health() infra.StreamHealth
}

// Server is the read-only HTTP surface of the process. It never touches the
// session directly; everything it returns is a copy.
type Server struct {
	state    StateSource
	reports  ReportSource
	feed     FeedSource
	gatherer prometheus.Gatherer
	version  string
	started  time.Time
	logger   *slog.Logger

	httpServer *http.Server
}

// NewServer creates a status server. reports and gatherer may be nil.
func NewServer(state StateSource, reports ReportSource, gatherer prometheus.Gatherer, version string) *Server {
	return &Server{
		state:    state,
		reports:  reports,
		gatherer: gatherer,
		version:  version,
		started:  time.Now(),
		logger:   slog.Default().With("component", "status"),
	}
}

// SetFeed attaches the tick stream for GET /feed.
func (s *Server) SetFeed(f FeedSource) {
	s.feed = f
}

// SetupRoutes configures all routes.
func (s *Server) SetupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(requestIDMiddleware())
	router.Use(slogMiddleware(s.logger))
	router.Use(gin.Recovery())

	router.GET("/health", s.Health)
	router.GET("/status", s.Status)
	router.GET("/feed", s.Feed)
	router.GET("/reports", s.ListReports)
	router.GET("/reports/:date", s.GetReport)
	if s.gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}
	return router
}

// Start serves on addr in the background.
func (s *Server) Start(addr string) {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.SetupRoutes(),
		ReadHeaderTimeout: DefaultTimeout,
	}
	go func() {
		s.logger.Info("Status server listening", slog.String("addr", addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Status server failed", slog.Any("error", err))
		}
	}()
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

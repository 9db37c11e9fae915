// Package stations exposes the fleet engine over HTTP using gin.
package stations

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kilianp07/stationrisk/core/eventlog"
	"github.com/kilianp07/stationrisk/core/fleet"
	"github.com/kilianp07/stationrisk/core/healing"
	"github.com/kilianp07/stationrisk/core/model"
	"github.com/kilianp07/stationrisk/core/riskmodel"
	"github.com/kilianp07/stationrisk/infra/logger"
)

// Engine is the subset of fleet.Manager served by the API.
type Engine interface {
	Loaded() bool
	Snapshot(q fleet.Query) (fleet.SnapshotResult, error)
	Tick(target time.Time) (fleet.TickResult, error)
	Heal(id string) (healing.Result, error)
	Stress(id string) (model.StationState, error)
	Logs() []model.EventLogEntry
}

// Reloader reloads the risk models from their artifact.
type Reloader interface {
	Reload() error
}

// JournalReader queries the persisted event journal.
type JournalReader interface {
	Query(ctx context.Context, q eventlog.JournalQuery) ([]model.EventLogEntry, error)
}

// Option configures a Server.
type Option func(*Server)

// WithReloader enables POST /api/models/reload.
func WithReloader(r Reloader) Option { return func(s *Server) { s.reloader = r } }

// WithJournal enables GET /api/logs/history.
func WithJournal(j JournalReader) Option { return func(s *Server) { s.journal = j } }

// WithMetricsHandler serves h on GET /metrics instead of the default
// Prometheus handler.
func WithMetricsHandler(h http.Handler) Option { return func(s *Server) { s.metrics = h } }

// WithClock replaces time.Now for ticks without a usable timestamp.
func WithClock(now func() time.Time) Option { return func(s *Server) { s.now = now } }

// Server bundles the router and its dependencies.
type Server struct {
	addr     string
	engine   Engine
	reloader Reloader
	journal  JournalReader
	metrics  http.Handler
	now      func() time.Time
	log      logger.Logger
	router   *gin.Engine
}

// New constructs a server with routes and middleware.
func New(addr string, engine Engine, opts ...Option) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		addr:    addr,
		engine:  engine,
		metrics: promhttp.Handler(),
		now:     time.Now,
		log:     logger.New("api"),
	}
	for _, o := range opts {
		o(s)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(s.log))
	r.Use(corsMiddleware())
	s.router = r
	s.registerRoutes()
	return s
}

// Handler exposes the router (for tests).
func (s *Server) Handler() http.Handler { return s.router }

// Run serves HTTP until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.log.Infof("API listening on %s", s.addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.router.GET("/healthz", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(s.metrics))

	api := s.router.Group("/api")
	api.GET("/stations", s.handleStations)
	api.POST("/simulate/:station_id", s.handleStress)
	api.POST("/heal/:station_id", s.handleHeal)
	api.POST("/simulation/tick", s.handleTick)
	api.GET("/logs", s.handleLogs)
	api.GET("/logs/history", s.handleLogHistory)
	api.POST("/models/reload", s.handleReload)
}

func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debugw("http request", map[string]any{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		})
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// writeError maps engine errors to HTTP statuses.
func (s *Server) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case model.IsNotFound(err):
		status = http.StatusNotFound
	case errors.Is(err, fleet.ErrNotLoaded):
		status = http.StatusServiceUnavailable
	case errors.Is(err, riskmodel.ErrNoPath):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		s.log.Errorf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

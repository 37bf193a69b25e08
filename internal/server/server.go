// Package server exposes a plan runner over HTTP: token login, job
// submission, stored job history, a websocket event stream and prometheus
// metrics. It is an API front-end for one configured plan, not a
// scheduler.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/reeveops/reeve/internal/config"
	"github.com/reeveops/reeve/internal/events"
	"github.com/reeveops/reeve/internal/history"
	"github.com/reeveops/reeve/internal/logger"
	"github.com/reeveops/reeve/internal/metrics"
)

// JobRunner launches one run of the served plan and returns its jid. The
// context covers launch admission only; the run itself proceeds on the
// runner's own context.
type JobRunner interface {
	Launch(ctx context.Context, dryRun bool) (string, error)
}

// Options wires the server's collaborators.
type Options struct {
	Addr    string
	Plan    *config.Plan
	Runner  JobRunner
	History *history.Store
	Events  *events.Bus
	Metrics *metrics.Metrics
	Auth    *Authenticator
	Logger  *logger.Logger
}

// Server hosts the REST and websocket surface of serve mode.
type Server struct {
	opts   Options
	log    *logger.Logger
	router *gin.Engine
}

// New validates the wiring and builds the router.
func New(opts Options) (*Server, error) {
	switch {
	case opts.Runner == nil:
		return nil, fmt.Errorf("server requires a job runner")
	case opts.History == nil:
		return nil, fmt.Errorf("server requires a history store")
	case opts.Events == nil:
		return nil, fmt.Errorf("server requires an event bus")
	case opts.Metrics == nil:
		return nil, fmt.Errorf("server requires metrics")
	case opts.Auth == nil:
		return nil, fmt.Errorf("server requires an authenticator")
	}

	s := &Server{opts: opts, log: opts.Logger.WithComponent("server")}
	s.router = s.buildRouter()
	return s, nil
}

func (s *Server) buildRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("reeve"))
	router.Use(requestID())

	router.GET("/healthz", s.handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.opts.Metrics.Registry(), promhttp.HandlerOpts{})))
	router.POST("/login", s.handleLogin)

	jobs := router.Group("/jobs")
	jobs.Use(s.requireAuth())
	{
		jobs.POST("", s.handleSubmitJob)
		jobs.GET("", s.handleListJobs)
		jobs.GET("/:jid", s.handleGetJob)
	}

	router.GET("/events", s.requireAuth(), s.handleEvents)

	return router
}

// Router exposes the handler for tests and embedding.
func (s *Server) Router() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then drains in-flight requests with
// a short grace period.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.log.WithFields(map[string]any{"addr": s.opts.Addr, "plan": s.planName()}).Info("serving")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) planName() string {
	if s.opts.Plan == nil {
		return ""
	}
	return s.opts.Plan.Name
}

// requestID tags every request with a uuid, echoed in the response for
// log correlation.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

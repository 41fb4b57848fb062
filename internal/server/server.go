package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cuprum-acid/o11y-kit/internal/items"
	"github.com/cuprum-acid/o11y-kit/internal/loadtest"
	"github.com/cuprum-acid/o11y-kit/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	DefaultHeartbeatInterval = time.Second
	DefaultWriteTimeout      = 5 * time.Second
	defaultReadHeaderTimeout = 10 * time.Second
)

// Options tune the HTTP surface
type Options struct {
	Address string

	// Every SlowEvery-th item listing is delayed by SlowDelay (0 disables)
	SlowEvery int
	SlowDelay time.Duration

	// HeartbeatInterval is the period of unconditional pushes to stream clients
	HeartbeatInterval time.Duration
	// WriteTimeout bounds a single write to a stream client
	WriteTimeout time.Duration
}

// Server exposes the items API, the load test controls and the stats stream
type Server struct {
	opts       Options
	store      *items.Store
	controller *loadtest.Controller
	logger     log.Logger

	engine *gin.Engine

	mu         sync.Mutex
	httpServer *http.Server

	listCalls atomic.Uint64

	// closing is closed on Shutdown so hijacked stream connections end too
	closing   chan struct{}
	closeOnce sync.Once
	streams   sync.WaitGroup
}

// New wires the routes. The caller owns store and controller.
func New(opts Options, store *items.Store, controller *loadtest.Controller, logger log.Logger) *Server {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}

	s := &Server{
		opts:       opts,
		store:      store,
		controller: controller,
		logger:     log.With(logger, "component", "http"),
		closing:    make(chan struct{}),
	}

	s.engine = s.routes()

	return s
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(s.logger), metrics.PrometheusMiddleware())

	router.GET("/health", s.health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/items", s.createItem)
	router.GET("/items", s.listItems)
	router.GET("/items/:id", s.getItem)
	router.DELETE("/items/:id", s.deleteItem)

	router.GET("/start-loadtest", s.startLoadTest)
	router.GET("/stop-loadtest", s.stopLoadTest)
	router.GET("/loadtest/status", s.loadTestStatus)
	router.GET("/loadtest-ws", s.loadTestStream)
	router.GET("/loadtest", s.loadTestPage)

	return router
}

// Handler returns the routed HTTP handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves until Shutdown is called. It returns nil after a
// graceful shutdown.
func (s *Server) ListenAndServe() error {
	listener, err := net.Listen("tcp", s.opts.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.opts.Address, err)
	}

	return s.Serve(listener)
}

// Serve accepts connections on listener until Shutdown is called
func (s *Server) Serve(listener net.Listener) error {
	s.mu.Lock()
	select {
	case <-s.closing:
		s.mu.Unlock()
		listener.Close()
		return nil
	default:
	}

	httpServer := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
	}
	s.httpServer = httpServer
	s.mu.Unlock()

	level.Info(s.logger).Log("msg", "HTTP server listening", "address", listener.Addr().String())

	if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

// Shutdown stops accepting requests, ends open streams and waits for
// in-flight handlers until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closeOnce.Do(func() { close(s.closing) })
	httpServer := s.httpServer
	s.mu.Unlock()

	var err error
	if httpServer != nil {
		err = httpServer.Shutdown(ctx)
	}

	done := make(chan struct{})
	go func() {
		s.streams.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}

	level.Info(s.logger).Log("msg", "HTTP server stopped")

	return err
}

// trackStream registers an open stream unless shutdown has begun
func (s *Server) trackStream() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.closing:
		return false
	default:
	}

	s.streams.Add(1)
	return true
}

func (s *Server) health(ctx *gin.Context) {
	if err := s.store.Ping(ctx.Request.Context()); err != nil {
		level.Warn(s.logger).Log("msg", "Health check failed", "error", err)
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

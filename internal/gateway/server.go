// Package gateway is the thin HTTP/websocket glue around the core
// matching engine: request parsing, JSON encoding, and market-data
// fan-out to remote subscribers. None of this package's concerns alter
// the core's in-process contract; internal/engine never imports it.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"matchengine/internal/book"
	"matchengine/internal/engine"
)

// Server wraps the gin router, the websocket Hub, and the underlying
// http.Server, all supervised by one tomb.Tomb so either failing tears
// the other down.
type Server struct {
	addr            string
	eng             *engine.MatchingEngine
	hub             *Hub
	reg             *prometheus.Registry
	shutdownTimeout time.Duration

	httpSrv *http.Server
}

// New builds a Server that will listen on addr, front eng, and fan out
// eng's bus to websocket subscribers via hub. shutdownTimeout bounds
// how long Run waits for in-flight requests once told to stop.
func New(addr string, eng *engine.MatchingEngine, hub *Hub, reg *prometheus.Registry, shutdownTimeout time.Duration) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(recoverOrDie(), requestLogger())

	h := NewHandlers(eng)
	v1 := router.Group("/v1")
	{
		v1.POST("/orders", h.HandleSubmit)
		v1.DELETE("/orders/:symbol/:id", h.HandleCancel)
		v1.GET("/books/:symbol", h.HandleSnapshot)
		v1.GET("/books/:symbol/bbo", h.HandleBBO)
		v1.GET("/stream", hub.HandleStream)
	}
	router.GET("/healthz", h.HandleHealth)
	if reg != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}

	return &Server{
		addr:            addr,
		eng:             eng,
		hub:             hub,
		reg:             reg,
		shutdownTimeout: shutdownTimeout,
		httpSrv: &http.Server{
			Addr:    addr,
			Handler: router,
		},
	}
}

// recoverOrDie converts handler panics into 500s, except matcher
// invariant violations. Those mean the book may be corrupt, and a
// corrupt book must never keep serving, so the process aborts instead.
func recoverOrDie() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		if err, ok := recovered.(error); ok && errors.Is(err, book.ErrInvariantViolation) {
			log.Fatal().Err(err).Msg("gateway: matcher invariant violated, aborting")
		}
		c.AbortWithStatus(http.StatusInternalServerError)
	})
}

// requestLogger is a minimal zerolog-backed access log middleware.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request handled")
	}
}

// Run starts the HTTP listener and the websocket fan-out loop and
// blocks until ctx is cancelled, then tears both down cleanly.
func (s *Server) Run(ctx context.Context) error {
	var cancel context.CancelFunc
	ctx, cancel = context.WithCancel(ctx)
	defer cancel()
	t, ctx := tomb.WithContext(ctx)

	hubStop := make(chan struct{})
	t.Go(func() error {
		s.hub.Run(hubStop)
		return nil
	})

	t.Go(func() error {
		log.Info().Str("addr", s.addr).Msg("gateway: listening")
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("gateway: listen: %w", err)
		}
		return nil
	})

	t.Go(func() error {
		<-t.Dying()
		close(hubStop)
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer shutdownCancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	})

	<-ctx.Done()
	t.Kill(nil)
	return t.Wait()
}

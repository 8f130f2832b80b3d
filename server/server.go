// Package server exposes stamping, capture and field sequencing over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pari-ranasaria28/Document-Signature-App/capture"
	"github.com/pari-ranasaria28/Document-Signature-App/config"
	"github.com/pari-ranasaria28/Document-Signature-App/orchestrator"
	"github.com/pari-ranasaria28/Document-Signature-App/stamp"
)

// Server holds the HTTP engine and the services behind it.
type Server struct {
	cfg          *config.ServerConfig
	engine       *gin.Engine
	stamper      *stamp.Stamper
	orchestrator *orchestrator.Orchestrator
	capture      capture.Options
	logger       *slog.Logger
}

// New builds a Server from application config. orch may be nil, in which
// case fields are kept in memory.
func New(cfg *config.AppConfig, orch *orchestrator.Orchestrator, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	stampOpts, err := stamp.OptionsFromConfig(cfg.Stamp, logger)
	if err != nil {
		return nil, err
	}
	captureOpts, err := capture.OptionsFromConfig(cfg.Capture)
	if err != nil {
		return nil, err
	}
	stamper := stamp.New(stampOpts)
	if orch == nil {
		orch = orchestrator.New(orchestrator.NewMemoryStore(), &orchestrator.Options{
			Stamper: stamper,
			Logger:  logger,
		})
	}

	gin.SetMode(cfg.Server.Mode)
	s := &Server{
		cfg:          cfg.Server,
		engine:       gin.New(),
		stamper:      stamper,
		orchestrator: orch,
		capture:      captureOpts,
		logger:       logger.With("component", "server"),
	}
	s.engine.Use(gin.Recovery(), s.requestLogger(), s.limitBody())
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.engine.GET("/healthz", s.health)

	v1 := s.engine.Group("/v1")
	v1.POST("/documents/:documentId/stamp", s.stampDocument)
	v1.POST("/documents/:documentId/fields", s.placeField)
	v1.GET("/documents/:documentId/next", s.nextPending)
	v1.GET("/documents/:documentId/progress", s.progress)
	v1.POST("/documents/:documentId/links", s.issueLink)
	v1.POST("/documents/:documentId/finalize", s.finalize)
	v1.PATCH("/fields/:fieldId", s.moveField)
	v1.DELETE("/fields/:fieldId", s.removeField)
	v1.POST("/fields/:fieldId/sign", s.signField)
	v1.POST("/fields/:fieldId/reject", s.rejectField)
	v1.POST("/signatures/typed", s.typedSignature)
	v1.POST("/geometry/capture", s.captureFraction)
	v1.POST("/geometry/display", s.displayPoint)
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		s.logger.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"route", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func (s *Server) limitBody() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.cfg.MaxBodyBytes > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxBodyBytes)
		}
		c.Next()
	}
}

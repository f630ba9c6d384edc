// Package server exposes the lab pipeline as a JSON API for a dashboard front end.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/helmcode/labs-ai/pkg/chart"
	"github.com/helmcode/labs-ai/pkg/formatter"
	"github.com/helmcode/labs-ai/pkg/labs"
	"github.com/helmcode/labs-ai/pkg/merger"
	"github.com/helmcode/labs-ai/pkg/model"
	"github.com/helmcode/labs-ai/pkg/store"
	"github.com/sirupsen/logrus"
)

type Options struct {
	Addr   string
	Store  store.Reader
	Ranges labs.Ranges
	// Merger may be nil, in which case the analysis endpoints answer 503.
	Merger *merger.Merger
	Export labs.ExportOptions
	Logger *logrus.Logger
}

// Server represents the HTTP server
type Server struct {
	opts        Options
	categorizer *labs.Categorizer
	router      *gin.Engine
	server      *http.Server
	baseCtx     context.Context
}

func New(opts Options) *Server {
	if opts.Logger.IsLevelEnabled(logrus.DebugLevel) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(requestIDMiddleware())
	router.Use(loggingMiddleware(opts.Logger))

	s := &Server{
		opts:        opts,
		categorizer: labs.NewCategorizer(opts.Ranges),
		router:      router,
		baseCtx:     context.Background(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.baseCtx = ctx
	s.server = &http.Server{
		Addr:         s.opts.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.opts.Logger.WithField("addr", s.opts.Addr).Info("HTTP server listening")

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api/labs")
	{
		api.GET("/latest", s.handleLatest)
		api.GET("/series", s.handleSeries)
		api.GET("/chart", s.handleChart)
		api.GET("/export", s.handleExport)
		api.GET("/analysis", s.handleGetAnalysis)
		api.POST("/analysis", s.handleRequestAnalysis)
		api.DELETE("/analysis/error", s.handleDismissError)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleLatest(c *gin.Context) {
	history, ok := s.history(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, formatter.NewLatestView(history, s.categorizer))
}

func (s *Server) seriesView(c *gin.Context) (formatter.SeriesView, bool) {
	analyte := c.Query("analyte")
	if analyte == "" {
		abort(c, http.StatusBadRequest, errors.New("analyte query parameter is required"))
		return formatter.SeriesView{}, false
	}
	window, err := labs.ParseWindow(c.DefaultQuery("window", "all"))
	if err != nil {
		abort(c, http.StatusBadRequest, err)
		return formatter.SeriesView{}, false
	}
	history, ok := s.history(c)
	if !ok {
		return formatter.SeriesView{}, false
	}
	return formatter.NewSeriesView(history, window, analyte, s.opts.Ranges), true
}

func (s *Server) handleSeries(c *gin.Context) {
	view, ok := s.seriesView(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleChart(c *gin.Context) {
	view, ok := s.seriesView(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := chart.Render(&buf, chart.Series{Title: view.Label, Unit: view.Unit, Points: view.Points}); err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func (s *Server) handleExport(c *gin.Context) {
	opts := s.opts.Export
	if union := c.Query("union"); union != "" {
		v, err := strconv.ParseBool(union)
		if err != nil {
			abort(c, http.StatusBadRequest, fmt.Errorf("invalid union value %q", union))
			return
		}
		opts.UnionColumns = v
	}

	history, ok := s.history(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := labs.NewExporter(opts).Write(&buf, history); err != nil {
		switch {
		case errors.Is(err, labs.ErrEmptyExport):
			abort(c, http.StatusNotFound, err)
		case errors.Is(err, labs.ErrSchemaMismatch):
			abort(c, http.StatusConflict, err)
		default:
			abort(c, http.StatusInternalServerError, err)
		}
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", labs.DefaultExportFilename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (s *Server) handleGetAnalysis(c *gin.Context) {
	if !s.requireMerger(c) {
		return
	}
	c.JSON(http.StatusOK, s.opts.Merger.Snapshot())
}

// handleRequestAnalysis starts an analysis of the latest panel and returns
// at once; clients poll GET /api/labs/analysis for the merged state.
func (s *Server) handleRequestAnalysis(c *gin.Context) {
	if !s.requireMerger(c) {
		return
	}
	history, ok := s.history(c)
	if !ok {
		return
	}
	latest, found := history.Latest()
	if !found {
		abort(c, http.StatusNotFound, errors.New("no lab results recorded"))
		return
	}

	s.opts.Merger.Request(s.baseCtx, latest)
	snap := s.opts.Merger.Snapshot()
	c.JSON(http.StatusAccepted, gin.H{
		"seq":     snap.Seq,
		"pending": snap.Pending,
	})
}

func (s *Server) handleDismissError(c *gin.Context) {
	if !s.requireMerger(c) {
		return
	}
	s.opts.Merger.DismissError()
	c.Status(http.StatusNoContent)
}

func (s *Server) requireMerger(c *gin.Context) bool {
	if s.opts.Merger == nil {
		abort(c, http.StatusServiceUnavailable, errors.New("analysis backend not configured"))
		return false
	}
	return true
}

func (s *Server) history(c *gin.Context) (model.History, bool) {
	history, err := s.opts.Store.PanelHistory(c.Request.Context())
	if err != nil {
		s.opts.Logger.WithError(err).Error("Failed to load panel history")
		abort(c, http.StatusInternalServerError, errors.New("failed to load lab history"))
		return nil, false
	}
	return history, true
}

func abort(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, X-Request-ID")
		c.Header("Access-Control-Expose-Headers", "Content-Disposition, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Header("X-Request-ID", requestID)
		c.Set("request_id", requestID)
		c.Next()
	}
}

func loggingMiddleware(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"duration":   time.Since(start).String(),
			"request_id": c.GetString("request_id"),
		}).Debug("HTTP request")
	}
}

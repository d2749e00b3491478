package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	confidencescoredomain "github.com/smallbiznis/homescore/internal/confidencescore/domain"
	"github.com/smallbiznis/homescore/internal/config"
	"github.com/smallbiznis/homescore/internal/observability"
	obsmiddleware "github.com/smallbiznis/homescore/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/homescore/internal/observability/metrics"
	obstracing "github.com/smallbiznis/homescore/internal/observability/tracing"
	propertydomain "github.com/smallbiznis/homescore/internal/property/domain"
	"github.com/smallbiznis/homescore/internal/providers/pdf"
	"github.com/smallbiznis/homescore/internal/scheduler"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	pdf.Module,
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http.server.failed", zap.Error(err))
				}
			}()
			log.Info("http.server.started", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	log        *zap.Logger
	scores     confidencescoredomain.Service
	ledger     confidencescoredomain.RunLedger
	properties propertydomain.PropertyRepository
	reports    pdf.Provider
	metrics    *obsmetrics.Metrics

	scheduler *scheduler.Scheduler
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	Log        *zap.Logger
	Scores     confidencescoredomain.Service
	Ledger     confidencescoredomain.RunLedger
	Properties propertydomain.PropertyRepository
	Reports    pdf.Provider
	ObsMetrics *obsmetrics.Metrics `optional:"true"`

	Scheduler *scheduler.Scheduler `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		log:        p.Log,
		scores:     p.Scores,
		ledger:     p.Ledger,
		properties: p.Properties,
		reports:    p.Reports,
		metrics:    p.ObsMetrics,
		scheduler:  p.Scheduler,
	}
	if svc.log == nil {
		svc.log = zap.NewNop()
	}

	svc.registerAPIRoutes()
	svc.registerAdminRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	properties := s.engine.Group("/properties/:id")

	properties.GET("/confidence-score", s.GetConfidenceScore)
	properties.POST("/confidence-score", s.RecalculateConfidenceScore)
	properties.GET("/confidence-score/history", s.ListConfidenceScoreHistory)
	properties.GET("/confidence-score/report.pdf", s.DownloadConfidenceScoreReport)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin")

	admin.GET("/confidence-score-runs", s.ListScoreRuns)
	admin.POST("/confidence-score-runs", s.TriggerScoreRun)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}

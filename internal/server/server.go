package server

import (
	"context"
	"net/http"
	"time"

	"github.com/estatelane/estatelane/internal/access"
	accessdomain "github.com/estatelane/estatelane/internal/access/domain"
	"github.com/estatelane/estatelane/internal/config"
	"github.com/estatelane/estatelane/internal/directory"
	directorydomain "github.com/estatelane/estatelane/internal/directory/domain"
	"github.com/estatelane/estatelane/internal/entitlement"
	entitlementdomain "github.com/estatelane/estatelane/internal/entitlement/domain"
	"github.com/estatelane/estatelane/internal/hierarchy"
	"github.com/estatelane/estatelane/internal/plan"
	plandomain "github.com/estatelane/estatelane/internal/plan/domain"
	"github.com/estatelane/estatelane/internal/ratelimit"
	"github.com/estatelane/estatelane/internal/usage"
	usagedomain "github.com/estatelane/estatelane/internal/usage/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	directory.Module,
	hierarchy.Module,
	access.Module,
	plan.Module,
	usage.Module,
	entitlement.Module,
	ratelimit.Module,
	fx.Provide(NewEngine),
	fx.Provide(NewTokenVerifier),
	fx.Provide(NewServer),
	fx.Invoke(registerRoutes),
	fx.Invoke(run),
)

func NewEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(CorrelationMiddleware())
	r.Use(MetricsMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server starting", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
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
	engine         *gin.Engine
	cfg            config.Config
	db             *gorm.DB
	log            *zap.Logger
	verifier       TokenVerifier
	limiter        *ratelimit.APILimiter
	features       *config.FeaturesConfigHolder
	directorySvc   directorydomain.Service
	accessSvc      accessdomain.Service
	planSvc        plandomain.Service
	usageSvc       usagedomain.Service
	entitlementSvc entitlementdomain.Service
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	DB             *gorm.DB
	Log            *zap.Logger
	Verifier       TokenVerifier
	Limiter        *ratelimit.APILimiter
	Features       *config.FeaturesConfigHolder
	DirectorySvc   directorydomain.Service
	AccessSvc      accessdomain.Service
	PlanSvc        plandomain.Service
	UsageSvc       usagedomain.Service
	EntitlementSvc entitlementdomain.Service
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		db:             p.DB,
		log:            p.Log.Named("http.server"),
		verifier:       p.Verifier,
		limiter:        p.Limiter,
		features:       p.Features,
		directorySvc:   p.DirectorySvc,
		accessSvc:      p.AccessSvc,
		planSvc:        p.PlanSvc,
		usageSvc:       p.UsageSvc,
		entitlementSvc: p.EntitlementSvc,
	}
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func registerRoutes(s *Server) {
	s.RegisterAPIRoutes()
}

func (s *Server) RegisterAPIRoutes() {
	v1 := s.engine.Group("/v1")

	v1.Use(s.AuthRequired())
	v1.Use(s.RateLimited())

	// -------- Access decisions --------
	v1.GET("/access/read", s.CheckRead)
	v1.GET("/access/modify", s.CheckModify)

	// -------- Entitlements --------
	v1.GET("/limits", s.GetAllLimits)
	v1.GET("/limits/:feature", s.CheckFeatureLimit)

	// -------- Plans & subscriptions --------
	v1.GET("/plans", s.ListPlans)
	v1.POST("/plans", s.CreatePlan)
	v1.GET("/subscriptions/me", s.GetMySubscription)
	v1.POST("/subscriptions", s.Subscribe)
	v1.POST("/subscriptions/change-plan", s.ChangePlan)

	// -------- Directory --------
	v1.GET("/users", s.ListUsers)
	v1.GET("/users/:id", s.GetUser)
	v1.POST("/agencies", s.CreateAgency)
	v1.POST("/agents", s.CreateAgent)

	// -------- Resources --------
	v1.POST("/resources", s.CreateResource)
	v1.GET("/resources/:id", s.GetResource)
	v1.DELETE("/resources/:id", s.DeleteResource)

	// -------- Exports --------
	v1.POST("/exports", s.CreateExport)
}

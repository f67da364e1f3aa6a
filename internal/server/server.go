package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/dealerdesk/platform/internal/config"
	governancedomain "github.com/dealerdesk/platform/internal/governance/domain"
	identitydomain "github.com/dealerdesk/platform/internal/identity/domain"
	"github.com/dealerdesk/platform/internal/policy"
	"github.com/dealerdesk/platform/internal/principal"
	reconciliationdomain "github.com/dealerdesk/platform/internal/reconciliation/domain"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger) *gin.Engine {
	return NewEngine(log)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
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
	engine        *gin.Engine
	cfg           config.Config
	log           *zap.Logger
	identitySvc   identitydomain.Service
	paymentSvc    reconciliationdomain.Service
	governanceSvc governancedomain.Service
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	Log           *zap.Logger
	IdentitySvc   identitydomain.Service
	PaymentSvc    reconciliationdomain.Service
	GovernanceSvc governancedomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		log:           p.Log.Named("http.server"),
		identitySvc:   p.IdentitySvc,
		paymentSvc:    p.PaymentSvc,
		governanceSvc: p.GovernanceSvc,
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.GET("/me", s.AuthRequired(), s.Me)

	// Token exchange for local development and tests. Credential
	// verification lives outside this service in production.
	if s.cfg.Environment != "production" {
		auth.POST("/token", s.IssueToken)
	}
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(s.AuthRequired())

	anyRole := policy.Policy{}
	managerUp := policy.Policy{Roles: []principal.Role{principal.RoleManager}}

	// -------- Payments --------
	api.GET("/payments", s.Authorize(anyRole), s.ListPayments)
	api.POST("/payments", s.Authorize(anyRole), s.CreatePayment)
	api.GET("/payments/:id", s.Authorize(anyRole), s.GetPaymentByID)
	api.PATCH("/payments/:id", s.Authorize(anyRole), s.UpdatePayment)
	api.DELETE("/payments/:id", s.Authorize(anyRole), s.DeletePayment)
	api.POST("/payments/:id/reconcile", s.Authorize(managerUp), s.ReconcilePayment)

	// -------- Users --------
	api.PATCH("/users/:id", s.Authorize(managerUp), s.UpdateUser)
	api.DELETE("/users/:id", s.Authorize(managerUp), s.RemoveUser)

	// -------- Audit logs --------
	api.GET("/audit-logs", s.Authorize(managerUp), s.ListAuditLogs)
}

package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smallbiznis/staydesk/internal/apikey"
	apikeydomain "github.com/smallbiznis/staydesk/internal/apikey/domain"
	"github.com/smallbiznis/staydesk/internal/assistant"
	assistantdomain "github.com/smallbiznis/staydesk/internal/assistant/domain"
	"github.com/smallbiznis/staydesk/internal/audit"
	auditdomain "github.com/smallbiznis/staydesk/internal/audit/domain"
	"github.com/smallbiznis/staydesk/internal/config"
	"github.com/smallbiznis/staydesk/internal/credential"
	"github.com/smallbiznis/staydesk/internal/entitlement"
	"github.com/smallbiznis/staydesk/internal/gate"
	"github.com/smallbiznis/staydesk/internal/integration"
	"github.com/smallbiznis/staydesk/internal/lifecycle"
	lifecycledomain "github.com/smallbiznis/staydesk/internal/lifecycle/domain"
	"github.com/smallbiznis/staydesk/internal/messaging"
	messagingdomain "github.com/smallbiznis/staydesk/internal/messaging/domain"
	"github.com/smallbiznis/staydesk/internal/observability"
	obsmiddleware "github.com/smallbiznis/staydesk/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/staydesk/internal/observability/metrics"
	obstracing "github.com/smallbiznis/staydesk/internal/observability/tracing"
	"github.com/smallbiznis/staydesk/internal/payment"
	paymentdomain "github.com/smallbiznis/staydesk/internal/payment/domain"
	"github.com/smallbiznis/staydesk/internal/room"
	roomdomain "github.com/smallbiznis/staydesk/internal/room/domain"
	"github.com/smallbiznis/staydesk/internal/staff"
	staffdomain "github.com/smallbiznis/staydesk/internal/staff/domain"
	"github.com/smallbiznis/staydesk/internal/tenant"
	tenantdomain "github.com/smallbiznis/staydesk/internal/tenant/domain"
	"github.com/smallbiznis/staydesk/internal/usage"
	"github.com/smallbiznis/staydesk/pkg/tenantctx"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	audit.Module,
	usage.Module,
	apikey.Module,
	tenant.Module,
	credential.Module,
	gate.Module,
	integration.Module,
	lifecycle.Module,
	room.Module,
	staff.Module,
	assistant.Module,
	messaging.Module,
	payment.Module,
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
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	addr := strings.TrimSpace(cfg.HTTPAddr)
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", addr))
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
	engine       *gin.Engine
	log          *zap.Logger
	tenantSvc    tenantdomain.Service
	keySvc       apikeydomain.Service
	gate         *gate.Gate
	auditSvc     auditdomain.Service
	roomSvc      roomdomain.Service
	staffSvc     staffdomain.Service
	assistantSvc assistantdomain.Service
	messagingSvc messagingdomain.Service
	paymentSvc   paymentdomain.Service
	lifecycleSvc lifecycledomain.Service
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Log          *zap.Logger
	TenantSvc    tenantdomain.Service
	KeySvc       apikeydomain.Service
	Gate         *gate.Gate
	AuditSvc     auditdomain.Service
	RoomSvc      roomdomain.Service
	StaffSvc     staffdomain.Service
	AssistantSvc assistantdomain.Service
	MessagingSvc messagingdomain.Service
	PaymentSvc   paymentdomain.Service
	LifecycleSvc lifecycledomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		log:          p.Log.Named("http.server"),
		tenantSvc:    p.TenantSvc,
		keySvc:       p.KeySvc,
		gate:         p.Gate,
		auditSvc:     p.AuditSvc,
		roomSvc:      p.RoomSvc,
		staffSvc:     p.StaffSvc,
		assistantSvc: p.AssistantSvc,
		messagingSvc: p.MessagingSvc,
		paymentSvc:   p.PaymentSvc,
		lifecycleSvc: p.LifecycleSvc,
	}

	svc.registerAPIRoutes()
	svc.registerWebhookRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/v1")

	api.GET("/plans", s.ListPlans)

	// -------- Tenants --------
	api.POST("/tenants", s.Signup)

	t := api.Group("/tenants/:id", s.TenantScope(), s.APIKeyRequired())
	{
		t.GET("", s.GetTenant)
		t.GET("/entitlements", s.GetEntitlements)
		t.GET("/events", s.ListEvents)

		t.GET("/analytics/usage",
			s.gate.RequireFeature(s.resolveTenant, gate.Feature(entitlement.AdvancedAnalytics)),
			s.GetUsageAnalytics,
		)

		// -------- Rooms --------
		t.GET("/rooms", s.ListRooms)
		t.POST("/rooms", s.CreateRoom)
		t.DELETE("/rooms/:roomId", s.DeleteRoom)

		// -------- Staff --------
		t.GET("/staff", s.ListStaff)
		t.POST("/staff", s.InviteStaff)
		t.DELETE("/staff/:userId", s.RemoveStaff)

		// -------- Guest communication --------
		t.POST("/assistant/replies", s.CreateAssistantReply)
		t.POST("/messages", s.SendMessage)
		t.POST("/payments/checkout", s.CreateCheckout)
	}

	owner := t.Group("", s.RequireOwnerKey())
	{
		owner.PUT("/subscription", s.UpdateSubscription)
		owner.PUT("/payment-account", s.LinkPaymentAccount)
		owner.PUT("/credentials/messaging", s.SetMessagingCredentials)

		// -------- API keys --------
		owner.GET("/api-keys", s.ListAPIKeys)
		owner.POST("/api-keys", s.CreateAPIKey)
		owner.POST("/api-keys/:keyId/rotate", s.RotateAPIKey)
		owner.DELETE("/api-keys/:keyId", s.RevokeAPIKey)
	}
}

func (s *Server) registerWebhookRoutes() {
	s.engine.POST("/v1/webhooks/stripe", s.HandleStripeWebhook)
}

// TenantScope parses :id and stores it on the request context.
func (s *Server) TenantScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
		if err != nil || id == 0 {
			AbortWithError(c, newValidationError("id", "invalid_id", "invalid tenant id"))
			return
		}
		c.Request = c.Request.WithContext(tenantctx.WithTenantID(c.Request.Context(), id))
		c.Next()
	}
}

func tenantIDFrom(c *gin.Context) snowflake.ID {
	id, _ := tenantctx.TenantID(c.Request.Context())
	return id
}

func (s *Server) resolveTenant(c *gin.Context) (*tenantdomain.Tenant, error) {
	return s.tenantSvc.Get(c.Request.Context(), tenantIDFrom(c))
}

func parsePathID(c *gin.Context, name string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param(name)))
	if err != nil || id == 0 {
		return 0, newValidationError(name, "invalid_"+strings.ToLower(name), "invalid "+name)
	}
	return id, nil
}

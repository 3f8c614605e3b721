package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/imaginearsclub/backstage/internal/application"
	appdomain "github.com/imaginearsclub/backstage/internal/application/domain"
	"github.com/imaginearsclub/backstage/internal/audit"
	auditdomain "github.com/imaginearsclub/backstage/internal/audit/domain"
	"github.com/imaginearsclub/backstage/internal/auth"
	authdomain "github.com/imaginearsclub/backstage/internal/auth/domain"
	"github.com/imaginearsclub/backstage/internal/auth/session"
	"github.com/imaginearsclub/backstage/internal/authorization"
	"github.com/imaginearsclub/backstage/internal/bulkops"
	bulkdomain "github.com/imaginearsclub/backstage/internal/bulkops/domain"
	"github.com/imaginearsclub/backstage/internal/config"
	"github.com/imaginearsclub/backstage/internal/idempotency"
	"github.com/imaginearsclub/backstage/internal/luckperms"
	luckdomain "github.com/imaginearsclub/backstage/internal/luckperms/domain"
	"github.com/imaginearsclub/backstage/internal/observability"
	obsmiddleware "github.com/imaginearsclub/backstage/internal/observability/logger"
	obsmetrics "github.com/imaginearsclub/backstage/internal/observability/metrics"
	obstracing "github.com/imaginearsclub/backstage/internal/observability/tracing"
	"github.com/imaginearsclub/backstage/internal/providers/email"
	"github.com/imaginearsclub/backstage/internal/ratelimit"
	"github.com/imaginearsclub/backstage/internal/redisconn"
	"github.com/imaginearsclub/backstage/internal/reference"
	"github.com/imaginearsclub/backstage/internal/sessionpolicy"
	policydomain "github.com/imaginearsclub/backstage/internal/sessionpolicy/domain"
	"github.com/imaginearsclub/backstage/internal/staff"
	staffdomain "github.com/imaginearsclub/backstage/internal/staff/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	audit.Module,
	auth.Module,
	staff.Module,
	application.Module,
	sessionpolicy.Module,
	bulkops.Module,
	luckperms.Module,
	reference.Module,
	email.Module,
	redisconn.Module,
	ratelimit.Module,
	idempotency.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, m *obsmetrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(m))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, m *obsmetrics.Metrics) *gin.Engine {
	return NewEngine(obsCfg, m)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
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
	engine   *gin.Engine
	cfg      config.Config
	log      *zap.Logger
	security *config.SecurityHolder

	authsvc   authdomain.Service
	sessions  *session.Manager
	authzSvc  authorization.Service
	auditSvc  auditdomain.Service
	staffSvc  staffdomain.Service
	bulkSvc   bulkdomain.Service
	appSvc    appdomain.Service
	policySvc policydomain.Service
	luckSvc   luckdomain.Service
	refSvc    reference.Service

	bulkLimiter *ratelimit.SlidingWindow
	obsMetrics  *obsmetrics.Metrics

	applicationLimiter *rateLimiter
}

type ServerParams struct {
	fx.In

	Gin      *gin.Engine
	Cfg      config.Config
	Log      *zap.Logger
	Security *config.SecurityHolder

	Authsvc   authdomain.Service
	Sessions  *session.Manager
	AuthzSvc  authorization.Service
	AuditSvc  auditdomain.Service
	StaffSvc  staffdomain.Service
	BulkSvc   bulkdomain.Service
	AppSvc    appdomain.Service
	PolicySvc policydomain.Service
	LuckSvc   luckdomain.Service
	RefSvc    reference.Service

	BulkLimiter *ratelimit.SlidingWindow `optional:"true"`
	ObsMetrics  *obsmetrics.Metrics      `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:             p.Gin,
		cfg:                p.Cfg,
		log:                p.Log.Named("http.server"),
		security:           p.Security,
		authsvc:            p.Authsvc,
		sessions:           p.Sessions,
		authzSvc:           p.AuthzSvc,
		auditSvc:           p.AuditSvc,
		staffSvc:           p.StaffSvc,
		bulkSvc:            p.BulkSvc,
		appSvc:             p.AppSvc,
		policySvc:          p.PolicySvc,
		luckSvc:            p.LuckSvc,
		refSvc:             p.RefSvc,
		bulkLimiter:        p.BulkLimiter,
		obsMetrics:         p.ObsMetrics,
		applicationLimiter: newRateLimiter(5, time.Hour),
	}

	svc.registerAuthRoutes()
	svc.registerPublicRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/login", s.Login)
	auth.POST("/logout", s.Logout)
	auth.GET("/me", s.AuthRequired(), s.Me)
	auth.POST("/change-password", s.AuthRequired(), s.ChangePassword)
	auth.POST("/forgot", s.Forgot)
	auth.POST("/reset", s.ResetPassword)
}

func (s *Server) registerPublicRoutes() {
	api := s.engine.Group("/api")

	api.GET("/countries", s.ListCountries)
	api.POST("/applications", s.SubmitApplication)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/api/admin")
	admin.Use(s.AuthRequired())

	// -------- Staff --------
	admin.GET("/staff", s.RequirePermission(authorization.ObjectStaff, authorization.ActionStaffView), s.ListStaff)
	admin.POST("/staff", s.RequirePermission(authorization.ObjectStaff, authorization.ActionStaffCreate), s.CreateStaff)
	admin.GET("/staff/:id", s.RequirePermission(authorization.ObjectStaff, authorization.ActionStaffView), s.GetStaff)
	admin.PATCH("/staff/:id", s.RequirePermission(authorization.ObjectStaff, authorization.ActionStaffUpdate), s.UpdateStaff)
	admin.DELETE("/staff/:id", s.RequirePermission(authorization.ObjectStaff, authorization.ActionStaffDelete), s.DeleteStaff)
	admin.POST("/staff/:id/suspend", s.RequirePermission(authorization.ObjectStaff, authorization.ActionStaffSuspend), s.SuspendStaff)
	admin.POST("/staff/:id/activate", s.RequirePermission(authorization.ObjectStaff, authorization.ActionStaffActivate), s.ActivateStaff)
	admin.POST("/staff/:id/role", s.RequirePermission(authorization.ObjectStaff, authorization.ActionStaffChangeRole), s.ChangeStaffRole)

	// Bulk operations authorize per operation kind inside the service;
	// the route only gates on a live session and the rate limit.
	admin.POST("/staff/bulk", s.BulkRateLimit(), s.BulkStaffOperation)

	// -------- Roles --------
	admin.GET("/roles", s.RequirePermission(authorization.ObjectRole, authorization.ActionRoleView), s.ListRoles)
	admin.GET("/roles/:role/permissions", s.RequirePermission(authorization.ObjectRole, authorization.ActionRoleView), s.GetRolePermissions)
	admin.POST("/roles/:role/permissions", s.RequirePermission(authorization.ObjectRole, authorization.ActionRoleManage), s.GrantRolePermission)
	admin.DELETE("/roles/:role/permissions", s.RequirePermission(authorization.ObjectRole, authorization.ActionRoleManage), s.RevokeRolePermission)

	// -------- Session policy --------
	admin.GET("/session-policy", s.RequirePermission(authorization.ObjectSessionPolicy, authorization.ActionSessionPolicyView), s.GetSessionPolicy)
	admin.PUT("/session-policy", s.RequirePermission(authorization.ObjectSessionPolicy, authorization.ActionSessionPolicyUpdate), s.UpdateSessionPolicy)

	// -------- Applications --------
	admin.GET("/applications", s.RequirePermission(authorization.ObjectApplication, authorization.ActionApplicationView), s.ListApplications)
	admin.GET("/applications/:id", s.RequirePermission(authorization.ObjectApplication, authorization.ActionApplicationView), s.GetApplication)
	admin.POST("/applications/:id/review", s.RequirePermission(authorization.ObjectApplication, authorization.ActionApplicationReview), s.ReviewApplication)

	// -------- Audit logs --------
	admin.GET("/audit-logs", s.RequirePermission(authorization.ObjectAuditLog, authorization.ActionAuditLogView), s.ListAuditLogs)

	// -------- LuckPerms --------
	admin.GET("/luckperms/groups", s.RequirePermission(authorization.ObjectLuckPerms, authorization.ActionLuckPermsView), s.ListLuckPermsGroups)
	admin.GET("/luckperms/players/:uuid", s.RequirePermission(authorization.ObjectLuckPerms, authorization.ActionLuckPermsView), s.GetLuckPermsPlayer)
	admin.POST("/luckperms/sync", s.RequirePermission(authorization.ObjectLuckPerms, authorization.ActionLuckPermsSync), s.SyncLuckPermsRole)
}

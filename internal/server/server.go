package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/assesshub/backoffice/internal/audit"
	auditdomain "github.com/assesshub/backoffice/internal/audit/domain"
	"github.com/assesshub/backoffice/internal/authorization"
	"github.com/assesshub/backoffice/internal/company"
	companydomain "github.com/assesshub/backoffice/internal/company/domain"
	"github.com/assesshub/backoffice/internal/config"
	"github.com/assesshub/backoffice/internal/identity"
	"github.com/assesshub/backoffice/internal/invitation"
	invitationdomain "github.com/assesshub/backoffice/internal/invitation/domain"
	"github.com/assesshub/backoffice/internal/observability"
	obsmiddleware "github.com/assesshub/backoffice/internal/observability/logger"
	obsmetrics "github.com/assesshub/backoffice/internal/observability/metrics"
	obstracing "github.com/assesshub/backoffice/internal/observability/tracing"
	"github.com/assesshub/backoffice/internal/providers/email"
	"github.com/assesshub/backoffice/internal/ratelimit"
	"github.com/assesshub/backoffice/internal/user"
	userdomain "github.com/assesshub/backoffice/internal/user/domain"
)

var Module = fx.Module("http.server",
	config.Module,
	fx.Provide(registerGin),
	authorization.Module,
	audit.Module,
	company.Module,
	user.Module,
	invitation.Module,
	email.Module,
	identity.Module,
	ratelimit.Module,
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
	engine        *gin.Engine
	cfg           config.Config
	db            *gorm.DB
	genID         *snowflake.Node
	identity      identity.Provider
	authzSvc      authorization.Service
	auditSvc      auditdomain.Service
	companySvc    companydomain.Service
	userSvc       userdomain.Service
	invitationSvc invitationdomain.Service
	inviteLimiter *ratelimit.InviteLimiter
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	DB            *gorm.DB
	GenID         *snowflake.Node
	Identity      identity.Provider
	AuthzSvc      authorization.Service
	AuditSvc      auditdomain.Service
	CompanySvc    companydomain.Service
	UserSvc       userdomain.Service
	InvitationSvc invitationdomain.Service
	InviteLimiter *ratelimit.InviteLimiter
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		db:            p.DB,
		genID:         p.GenID,
		identity:      p.Identity,
		authzSvc:      p.AuthzSvc,
		auditSvc:      p.AuditSvc,
		companySvc:    p.CompanySvc,
		userSvc:       p.UserSvc,
		invitationSvc: p.InvitationSvc,
		inviteLimiter: p.InviteLimiter,
	}

	svc.registerPublicRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerPublicRoutes exposes the invitee-facing endpoints. They carry no
// session; the invitation token is the only credential, so lookups are rate
// limited per client address.
func (s *Server) registerPublicRoutes() {
	invites := s.engine.Group("/api/invite", s.InviteTokenRateLimit())

	invites.GET("/validate", s.ValidateInvitation)
	invites.GET("/verify", s.VerifyInvitation)
	invites.POST("/accept", s.AcceptInvitation)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin")

	admin.Use(s.AuthRequired())

	admin.GET("/me", s.Me)

	// -------- Companies --------
	admin.GET("/companies", s.authorizeAction(authorization.ObjectCompany, authorization.ActionView), s.ListCompanies)
	admin.POST("/companies", s.authorizeAction(authorization.ObjectCompany, authorization.ActionCreate), s.CreateCompany)
	admin.GET("/companies/deleted", s.authorizeAction(authorization.ObjectCompany, authorization.ActionManage), s.ListDeletedCompanies)
	admin.GET("/companies/slug/:slug", s.authorizeAction(authorization.ObjectCompany, authorization.ActionView), s.GetCompanyBySlug)
	admin.GET("/companies/:id", s.authorizeAction(authorization.ObjectCompany, authorization.ActionView), s.GetCompanyByID)
	admin.PATCH("/companies/:id", s.authorizeAction(authorization.ObjectCompany, authorization.ActionUpdate), s.UpdateCompany)
	admin.DELETE("/companies/:id", s.authorizeAction(authorization.ObjectCompany, authorization.ActionDelete), s.DeleteCompany)
	admin.POST("/companies/:id/recover", s.authorizeAction(authorization.ObjectCompany, authorization.ActionManage), s.RecoverCompany)
	admin.DELETE("/companies/:id/purge", s.authorizeAction(authorization.ObjectCompany, authorization.ActionManage), s.PurgeCompany)
	admin.POST("/companies/:id/trainees", s.authorizeAction(authorization.ObjectUser, authorization.ActionManage), s.AssignTrainees)

	// -------- Users --------
	admin.GET("/users", s.authorizeAction(authorization.ObjectUser, authorization.ActionView), s.ListUsers)
	admin.POST("/users", s.authorizeAction(authorization.ObjectUser, authorization.ActionCreate), s.CreateUser)
	admin.GET("/users/deleted", s.authorizeAction(authorization.ObjectUser, authorization.ActionManage), s.ListDeletedUsers)
	admin.GET("/users/:id", s.GetUserByID)
	admin.PATCH("/users/:id", s.authorizeAction(authorization.ObjectUser, authorization.ActionUpdate), s.UpdateUser)
	admin.DELETE("/users/:id", s.authorizeAction(authorization.ObjectUser, authorization.ActionDelete), s.DeleteUser)
	admin.POST("/users/:id/recover", s.authorizeAction(authorization.ObjectUser, authorization.ActionManage), s.RecoverUser)
	admin.DELETE("/users/:id/purge", s.authorizeAction(authorization.ObjectUser, authorization.ActionManage), s.PurgeUser)

	// -------- Invitations --------
	admin.GET("/invitations", s.authorizeAction(authorization.ObjectInvitation, authorization.ActionView), s.ListInvitations)
	admin.POST("/invitations", s.authorizeAction(authorization.ObjectInvitation, authorization.ActionCreate), s.CreateInvitation)
	admin.GET("/invitations/:id", s.authorizeAction(authorization.ObjectInvitation, authorization.ActionView), s.GetInvitationByID)
	admin.POST("/invitations/:id/resend", s.authorizeAction(authorization.ObjectInvitation, authorization.ActionUpdate), s.ResendInvitation)
	admin.POST("/invitations/:id/cancel", s.authorizeAction(authorization.ObjectInvitation, authorization.ActionUpdate), s.CancelInvitation)
	admin.DELETE("/invitations/:id", s.authorizeAction(authorization.ObjectInvitation, authorization.ActionDelete), s.DeleteInvitation)

	admin.GET("/audit-logs", s.authorizeAction(authorization.ObjectAuditLog, authorization.ActionView), s.ListAuditLogs)
}

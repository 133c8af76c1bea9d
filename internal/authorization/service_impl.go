package authorization

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/assesshub/backoffice/internal/rbac"
)

//go:embed model.conf
var modelText string

const (
	ObjectUser       = "user"
	ObjectCompany    = "company"
	ObjectInvitation = "invitation"
	ObjectAuditLog   = "audit_log"
)

const (
	ActionView   = "view"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionManage = "manage" // lifecycle: recover, purge, role/active changes
)

var (
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
	ErrForbidden     = errors.New("forbidden")
)

type Service interface {
	Authorize(ctx context.Context, actor rbac.Actor, object string, action string) error
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor rbac.Actor, object string, action string) error {
	_ = ctx

	if actor.ID == 0 {
		return ErrInvalidActor
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	role, ok := rbac.ParseRole(string(actor.Role))
	if !ok {
		return ErrForbidden
	}

	allowed, err := s.enforcer.Enforce(roleSubject(role), object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Debug("authorization denied",
			zap.String("role", string(role)),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func roleSubject(role rbac.Role) string {
	return fmt.Sprintf("role:%s", role)
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Company admin permissions, scoped to their own company by the
		// workflow layer's CanManage check.
		{"role:company_admin", ObjectUser, ActionView},
		{"role:company_admin", ObjectUser, ActionCreate},
		{"role:company_admin", ObjectUser, ActionUpdate},
		{"role:company_admin", ObjectUser, ActionDelete},
		{"role:company_admin", ObjectUser, ActionManage},
		{"role:company_admin", ObjectInvitation, ActionView},
		{"role:company_admin", ObjectInvitation, ActionCreate},
		{"role:company_admin", ObjectInvitation, ActionUpdate},
		{"role:company_admin", ObjectInvitation, ActionDelete},
		{"role:company_admin", ObjectCompany, ActionView},

		// Site admin permissions
		{"role:site_admin", ObjectCompany, ActionCreate},
		{"role:site_admin", ObjectCompany, ActionUpdate},
		{"role:site_admin", ObjectCompany, ActionDelete},
		{"role:site_admin", ObjectCompany, ActionManage},
		{"role:site_admin", ObjectAuditLog, ActionView},
	}

	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy[0], policy[1], policy[2]); err != nil {
			return err
		}
	}

	// The hierarchy is a total order: every site_admin capability set
	// includes the company_admin set.
	groupings := [][]string{
		{"role:site_admin", "role:company_admin"},
		{"role:company_admin", "role:trainee"},
	}
	for _, grouping := range groupings {
		if _, err := enforcer.AddGroupingPolicy(grouping[0], grouping[1]); err != nil {
			return err
		}
	}

	return nil
}

var Module = fx.Module("authorization",
	fx.Provide(NewEnforcer),
	fx.Provide(NewService),
)

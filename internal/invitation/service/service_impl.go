package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/assesshub/backoffice/internal/clock"
	companydomain "github.com/assesshub/backoffice/internal/company/domain"
	"github.com/assesshub/backoffice/internal/config"
	"github.com/assesshub/backoffice/internal/invitation/domain"
	"github.com/assesshub/backoffice/internal/providers/email"
	"github.com/assesshub/backoffice/internal/rbac"
	userdomain "github.com/assesshub/backoffice/internal/user/domain"
	"github.com/assesshub/backoffice/pkg/db"
	"github.com/assesshub/backoffice/pkg/db/pagination"
)

const tokenBytes = 32

type service struct {
	db          *gorm.DB
	log         *zap.Logger
	repo        domain.Repository
	userRepo    userdomain.Repository
	companyRepo companydomain.Repository
	genID       *snowflake.Node
	clock       clock.Clock
	policy      *config.PolicyConfigHolder
	email       email.Provider
	inviteURL   string
}

func NewService(
	dbConn *gorm.DB,
	log *zap.Logger,
	repo domain.Repository,
	userRepo userdomain.Repository,
	companyRepo companydomain.Repository,
	genID *snowflake.Node,
	clk clock.Clock,
	policy *config.PolicyConfigHolder,
	mailer email.Provider,
	cfg config.Config,
) domain.Service {
	return &service{
		db:          dbConn,
		log:         log.Named("invitation.service"),
		repo:        repo,
		userRepo:    userRepo,
		companyRepo: companyRepo,
		genID:       genID,
		clock:       clk,
		policy:      policy,
		email:       mailer,
		inviteURL:   cfg.InviteURL,
	}
}

func (s *service) Create(ctx context.Context, actor rbac.Actor, req domain.CreateRequest) (*domain.Response, error) {
	if !rbac.Authorize(actor.Role, rbac.RoleCompanyAdmin) {
		return nil, domain.ErrForbidden
	}

	emailAddr := strings.ToLower(strings.TrimSpace(req.Email))
	if emailAddr == "" || !strings.Contains(emailAddr, "@") {
		return nil, domain.ErrInvalidEmail
	}

	role, ok := rbac.ParseRole(req.Role)
	if !ok {
		return nil, domain.ErrInvalidRole
	}
	if role == rbac.RoleSiteAdmin && actor.Role != rbac.RoleSiteAdmin {
		return nil, domain.ErrForbidden
	}

	var companyID *snowflake.ID
	if strings.TrimSpace(req.CompanyID) != "" {
		id, err := snowflake.ParseString(strings.TrimSpace(req.CompanyID))
		if err != nil {
			return nil, domain.ErrInvalidCompany
		}
		companyID = &id
	}
	if role == rbac.RoleTrainee && companyID == nil {
		return nil, domain.ErrInvalidCompany
	}
	if !rbac.CanManage(actor, companyID) {
		return nil, domain.ErrForbidden
	}

	var companyName string
	if companyID != nil {
		company, err := s.companyRepo.GetByID(ctx, *companyID)
		if err != nil {
			return nil, err
		}
		if company == nil || company.Deleted() {
			return nil, domain.ErrInvalidCompany
		}
		companyName = company.Name
	}

	token, err := newInviteToken()
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	invitation := domain.Invitation{
		ID:        s.genID.Generate(),
		Email:     emailAddr,
		Role:      role,
		CompanyID: companyID,
		InvitedBy: actor.ID,
		Token:     token,
		Status:    domain.StatusPending,
		ExpiresAt: now.Add(s.policy.Current().InvitationTTL()),
		UserData:  req.UserData,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, &invitation); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrConflict
		}
		return nil, err
	}

	s.sendInviteEmail(ctx, &invitation, companyName)

	s.log.Info("invitation created",
		zap.String("invitation_id", invitation.ID.String()),
		zap.String("role", string(invitation.Role)),
		zap.String("actor_id", actor.ID.String()),
	)

	return toResponse(&invitation, s.clock.Now()), nil
}

func (s *service) GetByID(ctx context.Context, actor rbac.Actor, id string) (*domain.Response, error) {
	invitation, err := s.managedByID(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return toResponse(invitation, s.clock.Now()), nil
}

func (s *service) List(ctx context.Context, actor rbac.Actor, req domain.ListRequest) (domain.ListResponse, error) {
	if !rbac.Authorize(actor.Role, rbac.RoleCompanyAdmin) {
		return domain.ListResponse{}, domain.ErrForbidden
	}

	filter := domain.ListFilter{
		Email: strings.ToLower(strings.TrimSpace(req.Email)),
		Now:   s.clock.Now(),
	}
	if raw := strings.TrimSpace(req.Status); raw != "" {
		status, ok := domain.ParseStatus(raw)
		if !ok {
			return domain.ListResponse{}, domain.ErrInvalidStatus
		}
		filter.Status = status
	}
	if strings.TrimSpace(req.CompanyID) != "" {
		id, err := snowflake.ParseString(strings.TrimSpace(req.CompanyID))
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidCompany
		}
		filter.CompanyID = &id
	}

	if actor.Role != rbac.RoleSiteAdmin {
		if actor.CompanyID == nil {
			return domain.ListResponse{}, domain.ErrForbidden
		}
		if filter.CompanyID != nil && *filter.CompanyID != *actor.CompanyID {
			return domain.ListResponse{}, domain.ErrForbidden
		}
		filter.CompanyID = actor.CompanyID
	}

	page := pagination.Pagination{PageToken: req.PageToken, PageSize: int(req.PageSize)}
	invitations, err := s.repo.List(ctx, filter, page)
	if err != nil {
		return domain.ListResponse{}, err
	}

	limit := req.PageSize
	if limit <= 0 {
		limit = 10
	}

	pageInfo := pagination.BuildCursorPageInfo(invitations, limit, func(inv *domain.Invitation) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        inv.ID.String(),
			CreatedAt: inv.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})

	if len(invitations) > int(limit) {
		invitations = invitations[:limit]
	}

	now := s.clock.Now()
	items := make([]domain.Response, 0, len(invitations))
	for _, inv := range invitations {
		items = append(items, *toResponse(inv, now))
	}

	resp := domain.ListResponse{Invitations: items}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
		if !pageInfo.HasMore {
			resp.PageInfo.NextPageToken = ""
		}
	}
	return resp, nil
}

// Validate is the strict invitee-facing lookup: pending only, and expiry is
// re-derived from the clock rather than trusted from the stored status.
func (s *service) Validate(ctx context.Context, token string) (*domain.View, error) {
	invitation, err := s.lookupByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if invitation.Status != domain.StatusPending {
		return nil, domain.ErrNotFound
	}
	if invitation.ExpiredAt(s.clock.Now()) {
		return nil, domain.ErrExpired
	}
	return toView(invitation, s.clock.Now()), nil
}

// Verify additionally permits accepted invitations so flows can re-display
// an invitation after signup completed.
func (s *service) Verify(ctx context.Context, token string) (*domain.View, error) {
	invitation, err := s.lookupByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if invitation.Status != domain.StatusPending && invitation.Status != domain.StatusAccepted {
		return nil, domain.ErrNotFound
	}
	if invitation.Status == domain.StatusPending && invitation.ExpiredAt(s.clock.Now()) {
		return nil, domain.ErrExpired
	}
	return toView(invitation, s.clock.Now()), nil
}

func (s *service) Resend(ctx context.Context, actor rbac.Actor, id string) (*domain.Response, error) {
	invitation, err := s.managedByID(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if invitation.Status != domain.StatusPending {
		return nil, domain.ErrInvalidState
	}
	now := s.clock.Now()
	if invitation.ExpiredAt(now) {
		// An expired invitation must be re-created, not revived.
		return nil, domain.ErrExpired
	}

	token, err := newInviteToken()
	if err != nil {
		return nil, err
	}
	invitation.Token = token
	invitation.ExpiresAt = now.Add(s.policy.Current().InvitationTTL())
	invitation.UpdatedAt = now

	if err := s.repo.Update(ctx, invitation); err != nil {
		return nil, err
	}

	var companyName string
	if invitation.CompanyID != nil {
		if company, err := s.companyRepo.GetByID(ctx, *invitation.CompanyID); err == nil && company != nil {
			companyName = company.Name
		}
	}
	s.sendInviteEmail(ctx, invitation, companyName)

	s.log.Info("invitation resent",
		zap.String("invitation_id", invitation.ID.String()),
		zap.String("actor_id", actor.ID.String()),
	)

	return toResponse(invitation, now), nil
}

func (s *service) Cancel(ctx context.Context, actor rbac.Actor, id string) error {
	invitation, err := s.managedByID(ctx, actor, id)
	if err != nil {
		return err
	}

	if invitation.Status != domain.StatusPending {
		return domain.ErrInvalidState
	}

	now := s.clock.Now()
	invitation.Status = domain.StatusCancelled
	invitation.UpdatedAt = now

	if err := s.repo.Update(ctx, invitation); err != nil {
		return err
	}

	s.log.Info("invitation cancelled",
		zap.String("invitation_id", invitation.ID.String()),
		zap.String("actor_id", actor.ID.String()),
	)
	return nil
}

func (s *service) Delete(ctx context.Context, actor rbac.Actor, id string) error {
	invitation, err := s.managedByID(ctx, actor, id)
	if err != nil {
		return err
	}

	// Accepted invitations are part of the audit trail.
	if invitation.Status == domain.StatusAccepted {
		return domain.ErrConflict
	}

	return s.repo.Delete(ctx, invitation.ID)
}

func (s *service) Accept(ctx context.Context, req domain.AcceptRequest) (*userdomain.Response, error) {
	invitation, err := s.lookupByToken(ctx, req.Token)
	if err != nil {
		return nil, err
	}
	if invitation.Status != domain.StatusPending {
		return nil, domain.ErrInvalidState
	}
	now := s.clock.Now()
	if invitation.ExpiredAt(now) {
		return nil, domain.ErrExpired
	}

	externalID := strings.TrimSpace(req.ExternalID)
	if externalID == "" {
		return nil, domain.ErrInvalidSubject
	}

	existing, err := s.userRepo.GetByEmail(ctx, invitation.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrConflict
	}

	if invitation.Role == rbac.RoleTrainee && invitation.CompanyID != nil {
		company, err := s.companyRepo.GetByID(ctx, *invitation.CompanyID)
		if err != nil {
			return nil, err
		}
		if company == nil || company.Deleted() {
			return nil, domain.ErrInvalidCompany
		}
		current, err := s.userRepo.CountActiveTrainees(ctx, *invitation.CompanyID)
		if err != nil {
			return nil, err
		}
		if current+1 > int64(company.MaxTrainees) {
			return nil, domain.ErrCapacityExceeded
		}
	}

	user := userdomain.User{
		ID:         s.genID.Generate(),
		ExternalID: externalID,
		Email:      invitation.Email,
		Role:       invitation.Role,
		CompanyID:  invitation.CompanyID,
		Active:     true,
		FirstName:  firstNonEmpty(strings.TrimSpace(req.FirstName), stringField(invitation.UserData, "first_name")),
		LastName:   firstNonEmpty(strings.TrimSpace(req.LastName), stringField(invitation.UserData, "last_name")),
		Phone:      firstNonEmpty(strings.TrimSpace(req.Phone), stringField(invitation.UserData, "phone")),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.userRepo.WithTx(tx).Insert(ctx, &user); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrConflict
			}
			return err
		}

		accepted := now
		invitation.Status = domain.StatusAccepted
		invitation.AcceptedAt = &accepted
		invitation.UpdatedAt = now
		return s.repo.WithTx(tx).Update(ctx, invitation)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("invitation accepted",
		zap.String("invitation_id", invitation.ID.String()),
		zap.String("user_id", user.ID.String()),
	)

	resp := &userdomain.Response{
		ID:        user.ID.String(),
		Email:     user.Email,
		Role:      string(user.Role),
		Active:    user.Active,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Phone:     user.Phone,
		CreatedAt: user.CreatedAt,
	}
	if user.CompanyID != nil {
		companyID := user.CompanyID.String()
		resp.CompanyID = &companyID
	}
	return resp, nil
}

func (s *service) managedByID(ctx context.Context, actor rbac.Actor, id string) (*domain.Invitation, error) {
	invitationID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	if !rbac.Authorize(actor.Role, rbac.RoleCompanyAdmin) {
		return nil, domain.ErrForbidden
	}

	invitation, err := s.repo.GetByID(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	if invitation == nil {
		return nil, domain.ErrNotFound
	}
	if !rbac.CanManage(actor, invitation.CompanyID) {
		return nil, domain.ErrForbidden
	}
	return invitation, nil
}

func (s *service) lookupByToken(ctx context.Context, token string) (*domain.Invitation, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil, domain.ErrNotFound
	}
	invitation, err := s.repo.GetByToken(ctx, trimmed)
	if err != nil {
		return nil, err
	}
	if invitation == nil {
		return nil, domain.ErrNotFound
	}
	return invitation, nil
}

func (s *service) sendInviteEmail(ctx context.Context, invitation *domain.Invitation, companyName string) {
	if s.email == nil {
		return
	}

	data := map[string]interface{}{
		"company_name": companyName,
		"role":         string(invitation.Role),
		"invite_url":   fmt.Sprintf("%s?token=%s", s.inviteURL, invitation.Token),
		"expires_at":   invitation.ExpiresAt.Format("Jan 2, 2006 15:04 MST"),
	}

	// Delivery is best-effort: a fresh token and expiry already exist, so a
	// failed send can be retried via resend.
	if err := s.email.SendTemplate(ctx, []string{invitation.Email}, "invitation", data); err != nil {
		s.log.Warn("invitation email delivery failed",
			zap.String("invitation_id", invitation.ID.String()),
			zap.Error(err),
		)
	}
}

func newInviteToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func parseID(raw string) (snowflake.ID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, domain.ErrInvalidID
	}
	id, err := snowflake.ParseString(trimmed)
	if err != nil {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func toResponse(invitation *domain.Invitation, now time.Time) *domain.Response {
	resp := &domain.Response{
		ID:         invitation.ID.String(),
		Email:      invitation.Email,
		Role:       string(invitation.Role),
		InvitedBy:  invitation.InvitedBy.String(),
		Status:     string(invitation.EffectiveStatus(now)),
		ExpiresAt:  invitation.ExpiresAt,
		AcceptedAt: invitation.AcceptedAt,
		UserData:   invitation.UserData,
		CreatedAt:  invitation.CreatedAt,
	}
	if invitation.CompanyID != nil {
		companyID := invitation.CompanyID.String()
		resp.CompanyID = &companyID
	}
	return resp
}

func toView(invitation *domain.Invitation, now time.Time) *domain.View {
	view := &domain.View{
		Email:     invitation.Email,
		Role:      string(invitation.Role),
		Status:    string(invitation.EffectiveStatus(now)),
		ExpiresAt: invitation.ExpiresAt,
		UserData:  invitation.UserData,
	}
	if invitation.CompanyID != nil {
		companyID := invitation.CompanyID.String()
		view.CompanyID = &companyID
	}
	return view
}

func stringField(data map[string]interface{}, key string) string {
	if data == nil {
		return ""
	}
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

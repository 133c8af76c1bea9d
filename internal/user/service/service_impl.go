package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/assesshub/backoffice/internal/clock"
	companydomain "github.com/assesshub/backoffice/internal/company/domain"
	"github.com/assesshub/backoffice/internal/config"
	"github.com/assesshub/backoffice/internal/rbac"
	"github.com/assesshub/backoffice/internal/retention"
	"github.com/assesshub/backoffice/internal/user/domain"
	"github.com/assesshub/backoffice/pkg/db"
	"github.com/assesshub/backoffice/pkg/db/pagination"
)

type service struct {
	db          *gorm.DB
	log         *zap.Logger
	repo        domain.Repository
	companyRepo companydomain.Repository
	genID       *snowflake.Node
	clock       clock.Clock
	policy      *config.PolicyConfigHolder
}

func NewService(
	dbConn *gorm.DB,
	log *zap.Logger,
	repo domain.Repository,
	companyRepo companydomain.Repository,
	genID *snowflake.Node,
	clk clock.Clock,
	policy *config.PolicyConfigHolder,
) domain.Service {
	return &service{
		db:          dbConn,
		log:         log.Named("user.service"),
		repo:        repo,
		companyRepo: companyRepo,
		genID:       genID,
		clock:       clk,
		policy:      policy,
	}
}

func (s *service) Create(ctx context.Context, actor rbac.Actor, req domain.CreateRequest) (*domain.Response, error) {
	if !rbac.Authorize(actor.Role, rbac.RoleCompanyAdmin) {
		return nil, domain.ErrForbidden
	}

	externalID := strings.TrimSpace(req.ExternalID)
	if externalID == "" {
		return nil, domain.ErrInvalidSubject
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
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

	if companyID != nil {
		company, err := s.companyRepo.GetByID(ctx, *companyID)
		if err != nil {
			return nil, err
		}
		if company == nil || company.Deleted() {
			return nil, domain.ErrInvalidCompany
		}
		if role == rbac.RoleTrainee {
			current, err := s.repo.CountActiveTrainees(ctx, *companyID)
			if err != nil {
				return nil, err
			}
			if current+1 > int64(company.MaxTrainees) {
				return nil, domain.ErrCapacityExceeded
			}
		}
	}

	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrEmailConflict
	}

	now := s.clock.Now()
	user := domain.User{
		ID:         s.genID.Generate(),
		ExternalID: externalID,
		Email:      email,
		Role:       role,
		CompanyID:  companyID,
		Active:     true,
		FirstName:  strings.TrimSpace(req.FirstName),
		LastName:   strings.TrimSpace(req.LastName),
		Phone:      strings.TrimSpace(req.Phone),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.repo.Insert(ctx, &user); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrEmailConflict
		}
		return nil, err
	}

	s.log.Info("user created",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)),
		zap.String("actor_id", actor.ID.String()),
	)

	return toResponse(&user), nil
}

func (s *service) GetByID(ctx context.Context, actor rbac.Actor, id string) (*domain.Response, error) {
	userID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	if !rbac.Authorize(actor.Role, rbac.RoleCompanyAdmin) && actor.ID != userID {
		return nil, domain.ErrForbidden
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Deleted() {
		return nil, domain.ErrNotFound
	}

	if actor.ID != userID && !rbac.CanManage(actor, user.CompanyID) {
		return nil, domain.ErrForbidden
	}

	return toResponse(user), nil
}

func (s *service) GetByExternalID(ctx context.Context, externalID string) (*domain.User, error) {
	trimmed := strings.TrimSpace(externalID)
	if trimmed == "" {
		return nil, domain.ErrInvalidSubject
	}

	user, err := s.repo.GetByExternalID(ctx, trimmed)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Deleted() {
		return nil, domain.ErrNotFound
	}
	return user, nil
}

func (s *service) List(ctx context.Context, actor rbac.Actor, req domain.ListRequest) (domain.ListResponse, error) {
	if !rbac.Authorize(actor.Role, rbac.RoleCompanyAdmin) {
		return domain.ListResponse{}, domain.ErrForbidden
	}

	filter := domain.ListFilter{Email: req.Email, Active: req.Active}
	if req.Role != "" {
		role, ok := rbac.ParseRole(req.Role)
		if !ok {
			return domain.ListResponse{}, domain.ErrInvalidRole
		}
		filter.Role = role
	}
	if strings.TrimSpace(req.CompanyID) != "" {
		id, err := snowflake.ParseString(strings.TrimSpace(req.CompanyID))
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidCompany
		}
		filter.CompanyID = &id
	}

	// Company admins only ever see their own tenant.
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
	users, err := s.repo.List(ctx, filter, page)
	if err != nil {
		return domain.ListResponse{}, err
	}

	return buildListResponse(users, req.PageSize), nil
}

func (s *service) ListDeleted(ctx context.Context, actor rbac.Actor, req domain.ListRequest) (domain.ListResponse, error) {
	if !rbac.Authorize(actor.Role, rbac.RoleSiteAdmin) {
		return domain.ListResponse{}, domain.ErrForbidden
	}

	size := req.PageSize
	if size <= 0 {
		size = int32(s.policy.Current().DeletedListPageSize)
	}

	page := pagination.Pagination{PageToken: req.PageToken, PageSize: int(size)}
	users, err := s.repo.ListDeleted(ctx, page)
	if err != nil {
		return domain.ListResponse{}, err
	}

	return buildListResponse(users, size), nil
}

func (s *service) Update(ctx context.Context, actor rbac.Actor, req domain.UpdateRequest) (*domain.Response, error) {
	userID, err := parseID(req.ID)
	if err != nil {
		return nil, err
	}

	if !rbac.Authorize(actor.Role, rbac.RoleCompanyAdmin) {
		return nil, domain.ErrForbidden
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Deleted() {
		return nil, domain.ErrNotFound
	}
	if !rbac.CanManage(actor, user.CompanyID) {
		return nil, domain.ErrForbidden
	}

	if req.Role != nil {
		role, ok := rbac.ParseRole(*req.Role)
		if !ok {
			return nil, domain.ErrInvalidRole
		}
		if role == rbac.RoleSiteAdmin && actor.Role != rbac.RoleSiteAdmin {
			return nil, domain.ErrForbidden
		}
		if actor.ID == user.ID && rbac.Level(role) < rbac.Level(user.Role) {
			return nil, domain.ErrSelfAction
		}
		if role == rbac.RoleTrainee && user.CompanyID == nil {
			return nil, domain.ErrInvalidCompany
		}
		user.Role = role
	}
	if req.Active != nil {
		if actor.ID == user.ID && !*req.Active {
			return nil, domain.ErrSelfAction
		}
		user.Active = *req.Active
	}
	if req.FirstName != nil {
		user.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		user.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Phone != nil {
		user.Phone = strings.TrimSpace(*req.Phone)
	}

	user.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	return toResponse(user), nil
}

func (s *service) SoftDelete(ctx context.Context, actor rbac.Actor, req domain.SoftDeleteRequest) error {
	userID, err := parseID(req.ID)
	if err != nil {
		return err
	}

	if actor.ID == userID {
		return domain.ErrSelfAction
	}
	if !rbac.Authorize(actor.Role, rbac.RoleCompanyAdmin) {
		return domain.ErrForbidden
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil || user.Deleted() {
		return domain.ErrNotFound
	}
	if !rbac.CanManage(actor, user.CompanyID) {
		return domain.ErrForbidden
	}

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "deleted by administrator"
	}

	now := s.clock.Now()
	actorID := actor.ID
	user.DeletedAt = &now
	user.DeletedBy = &actorID
	user.DeletedReason = reason
	user.UpdatedAt = now

	if err := s.repo.MarkDeleted(ctx, user); err != nil {
		return err
	}

	s.log.Info("user soft-deleted",
		zap.String("user_id", user.ID.String()),
		zap.String("actor_id", actor.ID.String()),
		zap.String("reason", reason),
	)

	return nil
}

func (s *service) Recover(ctx context.Context, actor rbac.Actor, id string) error {
	userID, err := parseID(id)
	if err != nil {
		return err
	}

	if !rbac.Authorize(actor.Role, rbac.RoleCompanyAdmin) {
		return domain.ErrForbidden
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil || !user.Deleted() {
		return domain.ErrNotFound
	}
	if !rbac.CanManage(actor, user.CompanyID) {
		return domain.ErrForbidden
	}

	window := s.policy.Current().RecoveryWindow()
	if !retention.Recoverable(*user.DeletedAt, s.clock.Now(), window) {
		return domain.ErrWindowExpired
	}

	if err := s.repo.ClearDeleted(ctx, userID); err != nil {
		return err
	}

	s.log.Info("user recovered",
		zap.String("user_id", userID.String()),
		zap.String("actor_id", actor.ID.String()),
	)

	return nil
}

func (s *service) Purge(ctx context.Context, actor rbac.Actor, id string) error {
	userID, err := parseID(id)
	if err != nil {
		return err
	}

	if !rbac.Authorize(actor.Role, rbac.RoleSiteAdmin) {
		return domain.ErrForbidden
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil || !user.Deleted() {
		return domain.ErrNotFound
	}

	window := s.policy.Current().RecoveryWindow()
	if !retention.Purgeable(*user.DeletedAt, s.clock.Now(), window) {
		return domain.ErrWindowOpen
	}

	if err := s.repo.HardDelete(ctx, userID); err != nil {
		return err
	}

	s.log.Info("user purged",
		zap.String("user_id", userID.String()),
		zap.String("actor_id", actor.ID.String()),
	)

	return nil
}

func (s *service) AssignCompany(ctx context.Context, actor rbac.Actor, req domain.AssignCompanyRequest) error {
	companyID, err := snowflake.ParseString(strings.TrimSpace(req.CompanyID))
	if err != nil {
		return domain.ErrInvalidCompany
	}
	if len(req.UserIDs) == 0 {
		return domain.ErrInvalidID
	}

	if !rbac.Authorize(actor.Role, rbac.RoleCompanyAdmin) {
		return domain.ErrForbidden
	}
	if !rbac.CanManage(actor, &companyID) {
		return domain.ErrForbidden
	}

	userIDs := make([]snowflake.ID, 0, len(req.UserIDs))
	for _, raw := range req.UserIDs {
		id, err := parseID(raw)
		if err != nil {
			return err
		}
		userIDs = append(userIDs, id)
	}

	company, err := s.companyRepo.GetByID(ctx, companyID)
	if err != nil {
		return err
	}
	if company == nil || company.Deleted() {
		return domain.ErrNotFound
	}

	// All-or-nothing: the batch either fits under max_trainees or nothing moves.
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		current, err := repo.CountActiveTrainees(ctx, companyID)
		if err != nil {
			return err
		}

		// Only trainee newcomers consume capacity, and members already in
		// the target company don't count twice.
		var newcomers int64
		for _, id := range userIDs {
			user, err := repo.GetByID(ctx, id)
			if err != nil {
				return err
			}
			if user == nil || user.Deleted() {
				return domain.ErrNotFound
			}
			// Assigned targets belong to a tenant; moving them needs
			// management rights over that tenant, not just the destination.
			if user.CompanyID != nil && !rbac.CanManage(actor, user.CompanyID) {
				return domain.ErrForbidden
			}
			if user.Role == rbac.RoleTrainee && (user.CompanyID == nil || *user.CompanyID != companyID) {
				newcomers++
			}
		}
		if current+newcomers > int64(company.MaxTrainees) {
			return domain.ErrCapacityExceeded
		}

		return repo.AssignCompany(ctx, userIDs, companyID, s.clock.Now())
	})
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

func toResponse(user *domain.User) *domain.Response {
	resp := &domain.Response{
		ID:        user.ID.String(),
		Email:     user.Email,
		Role:      string(user.Role),
		Active:    user.Active,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Phone:     user.Phone,
		DeletedAt: user.DeletedAt,
		CreatedAt: user.CreatedAt,
	}
	if user.CompanyID != nil {
		companyID := user.CompanyID.String()
		resp.CompanyID = &companyID
	}
	return resp
}

func buildListResponse(users []*domain.User, limit int32) domain.ListResponse {
	if limit <= 0 {
		limit = 10
	}

	pageInfo := pagination.BuildCursorPageInfo(users, limit, func(u *domain.User) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        u.ID.String(),
			CreatedAt: u.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})

	if len(users) > int(limit) {
		users = users[:limit]
	}

	items := make([]domain.Response, 0, len(users))
	for _, u := range users {
		items = append(items, *toResponse(u))
	}

	resp := domain.ListResponse{Users: items}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
		if !pageInfo.HasMore {
			resp.PageInfo.NextPageToken = ""
		}
	}
	return resp
}

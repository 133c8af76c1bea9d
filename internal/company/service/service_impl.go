package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/assesshub/backoffice/internal/clock"
	"github.com/assesshub/backoffice/internal/company/domain"
	"github.com/assesshub/backoffice/internal/config"
	"github.com/assesshub/backoffice/internal/rbac"
	"github.com/assesshub/backoffice/internal/retention"
	"github.com/assesshub/backoffice/pkg/db"
	"github.com/assesshub/backoffice/pkg/db/pagination"
)

type service struct {
	db     *gorm.DB
	log    *zap.Logger
	repo   domain.Repository
	genID  *snowflake.Node
	clock  clock.Clock
	policy *config.PolicyConfigHolder
}

func NewService(
	dbConn *gorm.DB,
	log *zap.Logger,
	repo domain.Repository,
	genID *snowflake.Node,
	clk clock.Clock,
	policy *config.PolicyConfigHolder,
) domain.Service {
	return &service{
		db:     dbConn,
		log:    log.Named("company.service"),
		repo:   repo,
		genID:  genID,
		clock:  clk,
		policy: policy,
	}
}

func (s *service) Create(ctx context.Context, actor rbac.Actor, req domain.CreateRequest) (*domain.Response, error) {
	if !rbac.Authorize(actor.Role, rbac.RoleSiteAdmin) {
		return nil, domain.ErrForbidden
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if req.MaxTrainees < 0 {
		return nil, domain.ErrInvalidCapacity
	}

	maxTrainees := req.MaxTrainees
	if maxTrainees == 0 {
		maxTrainees = s.policy.Current().DefaultMaxTrainees
	}

	companySlug := domain.Slugify(name)
	if companySlug != "" {
		existing, err := s.repo.GetBySlug(ctx, companySlug)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, domain.ErrSlugConflict
		}
	}

	now := s.clock.Now()
	company := domain.Company{
		ID:          s.genID.Generate(),
		Name:        name,
		Slug:        companySlug,
		Description: strings.TrimSpace(req.Description),
		MaxTrainees: maxTrainees,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Insert(ctx, &company); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrSlugConflict
		}
		return nil, err
	}

	s.log.Info("company created",
		zap.String("company_id", company.ID.String()),
		zap.String("slug", company.Slug),
		zap.String("actor_id", actor.ID.String()),
	)

	return toResponse(&company), nil
}

func (s *service) GetByID(ctx context.Context, actor rbac.Actor, id string) (*domain.Response, error) {
	companyID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	if !rbac.CanManage(actor, &companyID) {
		return nil, domain.ErrForbidden
	}

	company, err := s.repo.GetByID(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if company == nil || company.Deleted() {
		return nil, domain.ErrNotFound
	}

	return toResponse(company), nil
}

func (s *service) GetBySlug(ctx context.Context, actor rbac.Actor, rawSlug string) (*domain.Response, error) {
	companySlug := strings.TrimSpace(rawSlug)
	if companySlug == "" {
		return nil, domain.ErrInvalidID
	}

	company, err := s.repo.GetBySlug(ctx, companySlug)
	if err != nil {
		return nil, err
	}
	if company == nil || company.Deleted() {
		return nil, domain.ErrNotFound
	}

	if !rbac.CanManage(actor, &company.ID) {
		return nil, domain.ErrForbidden
	}

	return toResponse(company), nil
}

func (s *service) List(ctx context.Context, actor rbac.Actor, req domain.ListRequest) (domain.ListResponse, error) {
	if !rbac.Authorize(actor.Role, rbac.RoleSiteAdmin) {
		return domain.ListResponse{}, domain.ErrForbidden
	}

	page := pagination.Pagination{PageToken: req.PageToken, PageSize: int(req.PageSize)}
	companies, err := s.repo.List(ctx, domain.ListFilter{Name: req.Name, Active: req.Active}, page)
	if err != nil {
		return domain.ListResponse{}, err
	}

	return buildListResponse(companies, req.PageSize), nil
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
	companies, err := s.repo.ListDeleted(ctx, page)
	if err != nil {
		return domain.ListResponse{}, err
	}

	return buildListResponse(companies, size), nil
}

func (s *service) Update(ctx context.Context, actor rbac.Actor, req domain.UpdateRequest) (*domain.Response, error) {
	companyID, err := parseID(req.ID)
	if err != nil {
		return nil, err
	}

	if !rbac.Authorize(actor.Role, rbac.RoleSiteAdmin) {
		return nil, domain.ErrForbidden
	}

	company, err := s.repo.GetByID(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if company == nil || company.Deleted() {
		return nil, domain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		if name != company.Name {
			newSlug := domain.Slugify(name)
			if newSlug != company.Slug && newSlug != "" {
				existing, err := s.repo.GetBySlug(ctx, newSlug)
				if err != nil {
					return nil, err
				}
				if existing != nil && existing.ID != company.ID {
					return nil, domain.ErrSlugConflict
				}
			}
			company.Name = name
			company.Slug = newSlug
		}
	}
	if req.Description != nil {
		company.Description = strings.TrimSpace(*req.Description)
	}
	if req.MaxTrainees != nil {
		if *req.MaxTrainees <= 0 {
			return nil, domain.ErrInvalidCapacity
		}
		company.MaxTrainees = *req.MaxTrainees
	}
	if req.Active != nil {
		company.Active = *req.Active
	}

	company.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, company); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrSlugConflict
		}
		return nil, err
	}

	return toResponse(company), nil
}

func (s *service) SoftDelete(ctx context.Context, actor rbac.Actor, req domain.SoftDeleteRequest) error {
	companyID, err := parseID(req.ID)
	if err != nil {
		return err
	}

	if !rbac.Authorize(actor.Role, rbac.RoleSiteAdmin) {
		return domain.ErrForbidden
	}

	company, err := s.repo.GetByID(ctx, companyID)
	if err != nil {
		return err
	}
	if company == nil || company.Deleted() {
		return domain.ErrNotFound
	}

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "deleted by administrator"
	}

	now := s.clock.Now()
	actorID := actor.ID
	company.DeletedAt = &now
	company.DeletedBy = &actorID
	company.DeletedReason = reason
	company.UpdatedAt = now

	if err := s.repo.MarkDeleted(ctx, company); err != nil {
		return err
	}

	s.log.Info("company soft-deleted",
		zap.String("company_id", company.ID.String()),
		zap.String("actor_id", actor.ID.String()),
		zap.String("reason", reason),
	)

	return nil
}

func (s *service) Recover(ctx context.Context, actor rbac.Actor, id string) error {
	companyID, err := parseID(id)
	if err != nil {
		return err
	}

	if !rbac.Authorize(actor.Role, rbac.RoleSiteAdmin) {
		return domain.ErrForbidden
	}

	company, err := s.repo.GetByID(ctx, companyID)
	if err != nil {
		return err
	}
	if company == nil || !company.Deleted() {
		return domain.ErrNotFound
	}

	window := s.policy.Current().RecoveryWindow()
	if !retention.Recoverable(*company.DeletedAt, s.clock.Now(), window) {
		return domain.ErrWindowExpired
	}

	if err := s.repo.ClearDeleted(ctx, companyID); err != nil {
		return err
	}

	s.log.Info("company recovered",
		zap.String("company_id", companyID.String()),
		zap.String("actor_id", actor.ID.String()),
	)

	return nil
}

func (s *service) Purge(ctx context.Context, actor rbac.Actor, id string) error {
	companyID, err := parseID(id)
	if err != nil {
		return err
	}

	if !rbac.Authorize(actor.Role, rbac.RoleSiteAdmin) {
		return domain.ErrForbidden
	}

	company, err := s.repo.GetByID(ctx, companyID)
	if err != nil {
		return err
	}
	if company == nil || !company.Deleted() {
		return domain.ErrNotFound
	}

	window := s.policy.Current().RecoveryWindow()
	if !retention.Purgeable(*company.DeletedAt, s.clock.Now(), window) {
		return domain.ErrWindowOpen
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.HardDeleteUsersByCompany(ctx, companyID); err != nil {
			return err
		}
		return repo.HardDelete(ctx, companyID)
	})
	if err != nil {
		return err
	}

	s.log.Info("company purged",
		zap.String("company_id", companyID.String()),
		zap.String("actor_id", actor.ID.String()),
	)

	return nil
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

func toResponse(company *domain.Company) *domain.Response {
	return &domain.Response{
		ID:          company.ID.String(),
		Name:        company.Name,
		Slug:        company.Slug,
		Description: company.Description,
		MaxTrainees: company.MaxTrainees,
		Active:      company.Active,
		DeletedAt:   company.DeletedAt,
		CreatedAt:   company.CreatedAt,
	}
}

func buildListResponse(companies []*domain.Company, limit int32) domain.ListResponse {
	if limit <= 0 {
		limit = 10
	}

	pageInfo := pagination.BuildCursorPageInfo(companies, limit, func(c *domain.Company) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        c.ID.String(),
			CreatedAt: c.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})

	if len(companies) > int(limit) {
		companies = companies[:limit]
	}

	items := make([]domain.Response, 0, len(companies))
	for _, c := range companies {
		items = append(items, *toResponse(c))
	}

	resp := domain.ListResponse{Companies: items}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
		if !pageInfo.HasMore {
			resp.PageInfo.NextPageToken = ""
		}
	}
	return resp
}

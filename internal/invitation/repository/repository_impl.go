package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/assesshub/backoffice/internal/invitation/domain"
	"github.com/assesshub/backoffice/pkg/db/pagination"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	return &repository{db: tx}
}

func (r *repository) Insert(ctx context.Context, invitation *domain.Invitation) error {
	return r.db.WithContext(ctx).Create(invitation).Error
}

func (r *repository) GetByID(ctx context.Context, id snowflake.ID) (*domain.Invitation, error) {
	var invitation domain.Invitation
	err := r.db.WithContext(ctx).Raw(
		`SELECT * FROM invitations WHERE id = ?`, id,
	).Scan(&invitation).Error
	if err != nil {
		return nil, err
	}
	if invitation.ID == 0 {
		return nil, nil
	}
	return &invitation, nil
}

func (r *repository) GetByToken(ctx context.Context, token string) (*domain.Invitation, error) {
	var invitation domain.Invitation
	err := r.db.WithContext(ctx).Raw(
		`SELECT * FROM invitations WHERE token = ?`, token,
	).Scan(&invitation).Error
	if err != nil {
		return nil, err
	}
	if invitation.ID == 0 {
		return nil, nil
	}
	return &invitation, nil
}

func (r *repository) List(ctx context.Context, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Invitation, error) {
	stmt := r.db.WithContext(ctx).Model(&domain.Invitation{})
	if filter.CompanyID != nil {
		stmt = stmt.Where("company_id = ?", *filter.CompanyID)
	}
	// "expired" is never stored; it is the pending rows past their expiry.
	// The pending filter excludes those same rows so the two don't overlap.
	switch filter.Status {
	case "":
	case domain.StatusExpired:
		stmt = stmt.Where("status = ? AND expires_at < ?", domain.StatusPending, filter.Now)
	case domain.StatusPending:
		stmt = stmt.Where("status = ? AND expires_at >= ?", domain.StatusPending, filter.Now)
	default:
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.Email != "" {
		stmt = stmt.Where("email LIKE ?", "%"+filter.Email+"%")
	}

	stmt, err := pagination.Apply(stmt, page)
	if err != nil {
		return nil, err
	}

	var invitations []*domain.Invitation
	if err := stmt.Order("created_at desc, id desc").Find(&invitations).Error; err != nil {
		return nil, err
	}
	return invitations, nil
}

func (r *repository) Update(ctx context.Context, invitation *domain.Invitation) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE invitations
		 SET token = ?, status = ?, expires_at = ?, accepted_at = ?, updated_at = ?
		 WHERE id = ?`,
		invitation.Token,
		invitation.Status,
		invitation.ExpiresAt,
		invitation.AcceptedAt,
		invitation.UpdatedAt,
		invitation.ID,
	).Error
}

func (r *repository) Delete(ctx context.Context, id snowflake.ID) error {
	return r.db.WithContext(ctx).Exec(
		`DELETE FROM invitations WHERE id = ?`, id,
	).Error
}

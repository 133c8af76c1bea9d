package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/assesshub/backoffice/internal/rbac"
	"github.com/assesshub/backoffice/internal/user/domain"
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

func (r *repository) Insert(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *repository) GetByID(ctx context.Context, id snowflake.ID) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Raw(
		`SELECT * FROM users WHERE id = ?`, id,
	).Scan(&user).Error
	if err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, nil
	}
	return &user, nil
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Raw(
		`SELECT * FROM users WHERE email = ?`, email,
	).Scan(&user).Error
	if err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, nil
	}
	return &user, nil
}

func (r *repository) GetByExternalID(ctx context.Context, externalID string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Raw(
		`SELECT * FROM users WHERE external_id = ?`, externalID,
	).Scan(&user).Error
	if err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, nil
	}
	return &user, nil
}

func (r *repository) List(ctx context.Context, filter domain.ListFilter, page pagination.Pagination) ([]*domain.User, error) {
	stmt := r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("deleted_at IS NULL")
	if filter.CompanyID != nil {
		stmt = stmt.Where("company_id = ?", *filter.CompanyID)
	}
	if filter.Role != "" {
		stmt = stmt.Where("role = ?", filter.Role)
	}
	if filter.Email != "" {
		stmt = stmt.Where("email LIKE ?", "%"+filter.Email+"%")
	}
	if filter.Active != nil {
		stmt = stmt.Where("active = ?", *filter.Active)
	}

	stmt, err := pagination.Apply(stmt, page)
	if err != nil {
		return nil, err
	}

	var users []*domain.User
	if err := stmt.Order("created_at desc, id desc").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *repository) ListDeleted(ctx context.Context, page pagination.Pagination) ([]*domain.User, error) {
	stmt := r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("deleted_at IS NOT NULL")

	stmt, err := pagination.Apply(stmt, page)
	if err != nil {
		return nil, err
	}

	var users []*domain.User
	if err := stmt.Order("created_at desc, id desc").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *repository) Update(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE users
		 SET email = ?, role = ?, company_id = ?, active = ?, first_name = ?, last_name = ?, phone = ?, updated_at = ?
		 WHERE id = ?`,
		user.Email,
		user.Role,
		user.CompanyID,
		user.Active,
		user.FirstName,
		user.LastName,
		user.Phone,
		user.UpdatedAt,
		user.ID,
	).Error
}

func (r *repository) MarkDeleted(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE users
		 SET deleted_at = ?, deleted_by = ?, deleted_reason = ?, updated_at = ?
		 WHERE id = ? AND deleted_at IS NULL`,
		user.DeletedAt,
		user.DeletedBy,
		user.DeletedReason,
		user.UpdatedAt,
		user.ID,
	).Error
}

func (r *repository) ClearDeleted(ctx context.Context, id snowflake.ID) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE users
		 SET deleted_at = NULL, deleted_by = NULL, deleted_reason = ''
		 WHERE id = ?`,
		id,
	).Error
}

func (r *repository) HardDelete(ctx context.Context, id snowflake.ID) error {
	return r.db.WithContext(ctx).Exec(
		`DELETE FROM users WHERE id = ?`, id,
	).Error
}

func (r *repository) CountActiveTrainees(ctx context.Context, companyID snowflake.ID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM users
		 WHERE company_id = ? AND role = ? AND active = ? AND deleted_at IS NULL`,
		companyID, rbac.RoleTrainee, true,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) AssignCompany(ctx context.Context, userIDs []snowflake.ID, companyID snowflake.ID, now time.Time) error {
	if len(userIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Exec(
		`UPDATE users SET company_id = ?, updated_at = ? WHERE id IN ?`,
		companyID, now, userIDs,
	).Error
}

package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/assesshub/backoffice/internal/company/domain"
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

func (r *repository) Insert(ctx context.Context, company *domain.Company) error {
	return r.db.WithContext(ctx).Create(company).Error
}

func (r *repository) GetByID(ctx context.Context, id snowflake.ID) (*domain.Company, error) {
	var company domain.Company
	err := r.db.WithContext(ctx).Raw(
		`SELECT * FROM companies WHERE id = ?`, id,
	).Scan(&company).Error
	if err != nil {
		return nil, err
	}
	if company.ID == 0 {
		return nil, nil
	}
	return &company, nil
}

func (r *repository) GetBySlug(ctx context.Context, slug string) (*domain.Company, error) {
	var company domain.Company
	err := r.db.WithContext(ctx).Raw(
		`SELECT * FROM companies WHERE slug = ?`, slug,
	).Scan(&company).Error
	if err != nil {
		return nil, err
	}
	if company.ID == 0 {
		return nil, nil
	}
	return &company, nil
}

func (r *repository) List(ctx context.Context, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Company, error) {
	stmt := r.db.WithContext(ctx).
		Model(&domain.Company{}).
		Where("deleted_at IS NULL")
	if filter.Name != "" {
		stmt = stmt.Where("name LIKE ?", "%"+filter.Name+"%")
	}
	if filter.Active != nil {
		stmt = stmt.Where("active = ?", *filter.Active)
	}

	stmt, err := pagination.Apply(stmt, page)
	if err != nil {
		return nil, err
	}

	var companies []*domain.Company
	if err := stmt.Order("created_at desc, id desc").Find(&companies).Error; err != nil {
		return nil, err
	}
	return companies, nil
}

func (r *repository) ListDeleted(ctx context.Context, page pagination.Pagination) ([]*domain.Company, error) {
	stmt := r.db.WithContext(ctx).
		Model(&domain.Company{}).
		Where("deleted_at IS NOT NULL")

	stmt, err := pagination.Apply(stmt, page)
	if err != nil {
		return nil, err
	}

	var companies []*domain.Company
	if err := stmt.Order("created_at desc, id desc").Find(&companies).Error; err != nil {
		return nil, err
	}
	return companies, nil
}

func (r *repository) Update(ctx context.Context, company *domain.Company) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE companies
		 SET name = ?, slug = ?, description = ?, max_trainees = ?, active = ?, updated_at = ?
		 WHERE id = ?`,
		company.Name,
		company.Slug,
		company.Description,
		company.MaxTrainees,
		company.Active,
		company.UpdatedAt,
		company.ID,
	).Error
}

func (r *repository) MarkDeleted(ctx context.Context, company *domain.Company) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE companies
		 SET deleted_at = ?, deleted_by = ?, deleted_reason = ?, updated_at = ?
		 WHERE id = ? AND deleted_at IS NULL`,
		company.DeletedAt,
		company.DeletedBy,
		company.DeletedReason,
		company.UpdatedAt,
		company.ID,
	).Error
}

func (r *repository) ClearDeleted(ctx context.Context, id snowflake.ID) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE companies
		 SET deleted_at = NULL, deleted_by = NULL, deleted_reason = ''
		 WHERE id = ?`,
		id,
	).Error
}

func (r *repository) HardDelete(ctx context.Context, id snowflake.ID) error {
	return r.db.WithContext(ctx).Exec(
		`DELETE FROM companies WHERE id = ?`, id,
	).Error
}

func (r *repository) HardDeleteUsersByCompany(ctx context.Context, id snowflake.ID) error {
	return r.db.WithContext(ctx).Exec(
		`DELETE FROM users WHERE company_id = ?`, id,
	).Error
}

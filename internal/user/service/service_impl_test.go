package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/assesshub/backoffice/internal/clock"
	companydomain "github.com/assesshub/backoffice/internal/company/domain"
	companyrepository "github.com/assesshub/backoffice/internal/company/repository"
	"github.com/assesshub/backoffice/internal/rbac"
	"github.com/assesshub/backoffice/internal/user/domain"
	"github.com/assesshub/backoffice/internal/user/repository"
)

type fixture struct {
	svc   domain.Service
	db    *gorm.DB
	node  *snowflake.Node
	clock *clock.FakeClock
}

func setupUserService(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:usersvc_%s?mode=memory&cache=shared&_loc=auto", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := conn.AutoMigrate(&domain.User{}, &companydomain.Company{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(2)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	clk := clock.NewFakeClock(time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC))

	svc := NewService(
		conn,
		zap.NewNop(),
		repository.NewRepository(conn),
		companyrepository.NewRepository(conn),
		node,
		clk,
		nil,
	)
	return &fixture{svc: svc, db: conn, node: node, clock: clk}
}

func (f *fixture) seedCompany(t *testing.T, name string, maxTrainees int) snowflake.ID {
	t.Helper()
	id := f.node.Generate()
	err := f.db.Create(&companydomain.Company{
		ID:          id,
		Name:        name,
		Slug:        companydomain.Slugify(name),
		MaxTrainees: maxTrainees,
		Active:      true,
		CreatedAt:   f.clock.Now(),
		UpdatedAt:   f.clock.Now(),
	}).Error
	if err != nil {
		t.Fatalf("seed company: %v", err)
	}
	return id
}

func (f *fixture) seedUser(t *testing.T, role rbac.Role, companyID *snowflake.ID) *domain.User {
	t.Helper()
	id := f.node.Generate()
	user := &domain.User{
		ID:         id,
		ExternalID: "ext-" + id.String(),
		Email:      id.String() + "@example.test",
		Role:       role,
		CompanyID:  companyID,
		Active:     true,
		CreatedAt:  f.clock.Now(),
		UpdatedAt:  f.clock.Now(),
	}
	if err := f.db.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func TestCreateTraineeRequiresCompany(t *testing.T) {
	f := setupUserService(t)
	admin := rbac.Actor{ID: f.node.Generate(), Role: rbac.RoleSiteAdmin}

	_, err := f.svc.Create(context.Background(), admin, domain.CreateRequest{
		ExternalID: "ext-1",
		Email:      "trainee@example.test",
		Role:       "trainee",
	})
	if !errors.Is(err, domain.ErrInvalidCompany) {
		t.Fatalf("expected invalid_company, got %v", err)
	}
}

func TestCreateEmailConflict(t *testing.T) {
	f := setupUserService(t)
	admin := rbac.Actor{ID: f.node.Generate(), Role: rbac.RoleSiteAdmin}
	companyID := f.seedCompany(t, "Acme Corp", 10)

	req := domain.CreateRequest{
		ExternalID: "ext-1",
		Email:      "dup@example.test",
		Role:       "trainee",
		CompanyID:  companyID.String(),
	}
	if _, err := f.svc.Create(context.Background(), admin, req); err != nil {
		t.Fatalf("create first: %v", err)
	}

	req.ExternalID = "ext-2"
	if _, err := f.svc.Create(context.Background(), admin, req); !errors.Is(err, domain.ErrEmailConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestCompanyAdminCannotCreateOutsideOwnCompany(t *testing.T) {
	f := setupUserService(t)
	own := f.seedCompany(t, "Own Co", 10)
	other := f.seedCompany(t, "Other Co", 10)
	actor := rbac.Actor{ID: f.node.Generate(), Role: rbac.RoleCompanyAdmin, CompanyID: &own}

	_, err := f.svc.Create(context.Background(), actor, domain.CreateRequest{
		ExternalID: "ext-1",
		Email:      "t@example.test",
		Role:       "trainee",
		CompanyID:  other.String(),
	})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestSelfSoftDeleteRejected(t *testing.T) {
	f := setupUserService(t)
	admin := f.seedUser(t, rbac.RoleSiteAdmin, nil)
	actor := rbac.Actor{ID: admin.ID, Role: rbac.RoleSiteAdmin}

	err := f.svc.SoftDelete(context.Background(), actor, domain.SoftDeleteRequest{ID: admin.ID.String()})
	if !errors.Is(err, domain.ErrSelfAction) {
		t.Fatalf("expected self_action, got %v", err)
	}
}

func TestSelfDeactivateRejected(t *testing.T) {
	f := setupUserService(t)
	admin := f.seedUser(t, rbac.RoleSiteAdmin, nil)
	actor := rbac.Actor{ID: admin.ID, Role: rbac.RoleSiteAdmin}

	active := false
	_, err := f.svc.Update(context.Background(), actor, domain.UpdateRequest{ID: admin.ID.String(), Active: &active})
	if !errors.Is(err, domain.ErrSelfAction) {
		t.Fatalf("expected self_action, got %v", err)
	}
}

func TestSelfDowngradeRejected(t *testing.T) {
	f := setupUserService(t)
	companyID := f.seedCompany(t, "Acme Corp", 10)
	admin := f.seedUser(t, rbac.RoleSiteAdmin, &companyID)
	actor := rbac.Actor{ID: admin.ID, Role: rbac.RoleSiteAdmin}

	role := "company_admin"
	_, err := f.svc.Update(context.Background(), actor, domain.UpdateRequest{ID: admin.ID.String(), Role: &role})
	if !errors.Is(err, domain.ErrSelfAction) {
		t.Fatalf("expected self_action, got %v", err)
	}
}

func TestAssignCompanyCapacityExceeded(t *testing.T) {
	f := setupUserService(t)
	companyID := f.seedCompany(t, "Acme Corp", 10)
	admin := rbac.Actor{ID: f.node.Generate(), Role: rbac.RoleSiteAdmin}

	for i := 0; i < 6; i++ {
		f.seedUser(t, rbac.RoleTrainee, &companyID)
	}

	unassigned := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		u := f.seedUser(t, rbac.RoleTrainee, &companyID)
		// Re-home them elsewhere so they count as incoming, not current.
		if err := f.db.Exec(`UPDATE users SET company_id = NULL WHERE id = ?`, u.ID).Error; err != nil {
			t.Fatalf("unassign: %v", err)
		}
		unassigned = append(unassigned, u.ID.String())
	}

	err := f.svc.AssignCompany(context.Background(), admin, domain.AssignCompanyRequest{
		CompanyID: companyID.String(),
		UserIDs:   unassigned,
	})
	if !errors.Is(err, domain.ErrCapacityExceeded) {
		t.Fatalf("expected capacity_exceeded, got %v", err)
	}

	var assigned int64
	if err := f.db.Raw(`SELECT COUNT(*) FROM users WHERE company_id = ?`, companyID).Scan(&assigned).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if assigned != 6 {
		t.Fatalf("expected no partial assignment, got %d assigned", assigned)
	}
}

func TestAssignCompanyBoundarySucceeds(t *testing.T) {
	f := setupUserService(t)
	companyID := f.seedCompany(t, "Acme Corp", 10)
	admin := rbac.Actor{ID: f.node.Generate(), Role: rbac.RoleSiteAdmin}

	for i := 0; i < 6; i++ {
		f.seedUser(t, rbac.RoleTrainee, &companyID)
	}

	incoming := make([]string, 0, 4)
	for i := 0; i < 4; i++ {
		u := f.seedUser(t, rbac.RoleTrainee, &companyID)
		if err := f.db.Exec(`UPDATE users SET company_id = NULL WHERE id = ?`, u.ID).Error; err != nil {
			t.Fatalf("unassign: %v", err)
		}
		incoming = append(incoming, u.ID.String())
	}

	err := f.svc.AssignCompany(context.Background(), admin, domain.AssignCompanyRequest{
		CompanyID: companyID.String(),
		UserIDs:   incoming,
	})
	if err != nil {
		t.Fatalf("expected boundary assignment to succeed, got %v", err)
	}

	var assigned int64
	if err := f.db.Raw(`SELECT COUNT(*) FROM users WHERE company_id = ?`, companyID).Scan(&assigned).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if assigned != 10 {
		t.Fatalf("expected 10 assigned, got %d", assigned)
	}
}

func TestAssignCompanyExistingMembersDoNotDoubleCount(t *testing.T) {
	f := setupUserService(t)
	companyID := f.seedCompany(t, "Acme Corp", 6)
	admin := rbac.Actor{ID: f.node.Generate(), Role: rbac.RoleSiteAdmin}

	members := make([]string, 0, 6)
	for i := 0; i < 6; i++ {
		u := f.seedUser(t, rbac.RoleTrainee, &companyID)
		members = append(members, u.ID.String())
	}

	// Re-assigning members the company already holds must not trip the
	// capacity check.
	err := f.svc.AssignCompany(context.Background(), admin, domain.AssignCompanyRequest{
		CompanyID: companyID.String(),
		UserIDs:   members[:2],
	})
	if err != nil {
		t.Fatalf("expected re-assignment to succeed, got %v", err)
	}
}

func TestAssignCompanyCrossTenantForbidden(t *testing.T) {
	f := setupUserService(t)
	ownCompanyID := f.seedCompany(t, "Own Co", 10)
	otherCompanyID := f.seedCompany(t, "Other Co", 10)
	admin := rbac.Actor{ID: f.node.Generate(), Role: rbac.RoleCompanyAdmin, CompanyID: &ownCompanyID}

	victim := f.seedUser(t, rbac.RoleTrainee, &otherCompanyID)

	err := f.svc.AssignCompany(context.Background(), admin, domain.AssignCompanyRequest{
		CompanyID: ownCompanyID.String(),
		UserIDs:   []string{victim.ID.String()},
	})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden for another tenant's user, got %v", err)
	}

	var got int64
	if err := f.db.Raw(`SELECT company_id FROM users WHERE id = ?`, victim.ID).Scan(&got).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got != int64(otherCompanyID) {
		t.Fatalf("expected victim to stay in %d, got %d", int64(otherCompanyID), got)
	}

	// Unassigned users are fair game for any admin who manages the target
	// company.
	free := f.seedUser(t, rbac.RoleTrainee, nil)
	err = f.svc.AssignCompany(context.Background(), admin, domain.AssignCompanyRequest{
		CompanyID: ownCompanyID.String(),
		UserIDs:   []string{free.ID.String()},
	})
	if err != nil {
		t.Fatalf("expected unassigned user to be assignable, got %v", err)
	}
}

func TestAssignCompanyOnlyTraineesConsumeCapacity(t *testing.T) {
	f := setupUserService(t)
	companyID := f.seedCompany(t, "Acme Corp", 6)
	admin := rbac.Actor{ID: f.node.Generate(), Role: rbac.RoleSiteAdmin}

	for i := 0; i < 6; i++ {
		f.seedUser(t, rbac.RoleTrainee, &companyID)
	}

	// The company is at trainee capacity, but a company_admin joining it
	// doesn't occupy a trainee seat.
	manager := f.seedUser(t, rbac.RoleCompanyAdmin, nil)
	err := f.svc.AssignCompany(context.Background(), admin, domain.AssignCompanyRequest{
		CompanyID: companyID.String(),
		UserIDs:   []string{manager.ID.String()},
	})
	if err != nil {
		t.Fatalf("expected admin assignment to bypass trainee capacity, got %v", err)
	}

	// A trainee still can't squeeze in.
	trainee := f.seedUser(t, rbac.RoleTrainee, nil)
	err = f.svc.AssignCompany(context.Background(), admin, domain.AssignCompanyRequest{
		CompanyID: companyID.String(),
		UserIDs:   []string{trainee.ID.String()},
	})
	if !errors.Is(err, domain.ErrCapacityExceeded) {
		t.Fatalf("expected capacity_exceeded, got %v", err)
	}
}

func TestRecoverAndPurgeWindows(t *testing.T) {
	f := setupUserService(t)
	companyID := f.seedCompany(t, "Acme Corp", 10)
	target := f.seedUser(t, rbac.RoleTrainee, &companyID)
	admin := rbac.Actor{ID: f.node.Generate(), Role: rbac.RoleSiteAdmin}

	if err := f.svc.SoftDelete(context.Background(), admin, domain.SoftDeleteRequest{ID: target.ID.String(), Reason: "left program"}); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	f.clock.Advance(29 * 24 * time.Hour)
	if err := f.svc.Purge(context.Background(), admin, target.ID.String()); !errors.Is(err, domain.ErrWindowOpen) {
		t.Fatalf("expected window_open, got %v", err)
	}
	if err := f.svc.Recover(context.Background(), admin, target.ID.String()); err != nil {
		t.Fatalf("recover within window: %v", err)
	}

	if err := f.svc.SoftDelete(context.Background(), admin, domain.SoftDeleteRequest{ID: target.ID.String()}); err != nil {
		t.Fatalf("soft delete again: %v", err)
	}
	f.clock.Advance(31 * 24 * time.Hour)
	if err := f.svc.Recover(context.Background(), admin, target.ID.String()); !errors.Is(err, domain.ErrWindowExpired) {
		t.Fatalf("expected window_expired, got %v", err)
	}
	if err := f.svc.Purge(context.Background(), admin, target.ID.String()); err != nil {
		t.Fatalf("purge after window: %v", err)
	}

	var count int64
	if err := f.db.Raw(`SELECT COUNT(*) FROM users WHERE id = ?`, target.ID).Scan(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected row removed, found %d", count)
	}
}

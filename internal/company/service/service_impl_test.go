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
	"github.com/assesshub/backoffice/internal/company/domain"
	"github.com/assesshub/backoffice/internal/company/repository"
	"github.com/assesshub/backoffice/internal/rbac"
)

func mustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return node
}

func setupCompanyService(t *testing.T, clk clock.Clock) (domain.Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:companysvc_%s?mode=memory&cache=shared&_loc=auto", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := conn.AutoMigrate(&domain.Company{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// The purge path cascades into the users table.
	if err := conn.Exec(`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY,
		company_id INTEGER,
		email TEXT
	)`).Error; err != nil {
		t.Fatalf("create users table: %v", err)
	}

	node := mustNode(t)
	repo := repository.NewRepository(conn)
	svc := NewService(conn, zap.NewNop(), repo, node, clk, nil)
	return svc, conn
}

func siteAdmin(node *snowflake.Node) rbac.Actor {
	return rbac.Actor{ID: node.Generate(), Role: rbac.RoleSiteAdmin}
}

func TestCreateDerivesSlug(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	svc, _ := setupCompanyService(t, clk)
	admin := siteAdmin(mustNode(t))

	resp, err := svc.Create(context.Background(), admin, domain.CreateRequest{Name: "Acme_Training  Corp"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if resp.Slug != "acme-training-corp" {
		t.Fatalf("expected slug acme-training-corp, got %q", resp.Slug)
	}
	if resp.MaxTrainees != 50 {
		t.Fatalf("expected default max_trainees 50, got %d", resp.MaxTrainees)
	}
}

func TestCreateForbiddenForCompanyAdmin(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	svc, _ := setupCompanyService(t, clk)
	node := mustNode(t)
	companyID := node.Generate()
	actor := rbac.Actor{ID: node.Generate(), Role: rbac.RoleCompanyAdmin, CompanyID: &companyID}

	_, err := svc.Create(context.Background(), actor, domain.CreateRequest{Name: "Acme"})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestCreateSlugConflict(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	svc, _ := setupCompanyService(t, clk)
	admin := siteAdmin(mustNode(t))

	if _, err := svc.Create(context.Background(), admin, domain.CreateRequest{Name: "Acme Corp"}); err != nil {
		t.Fatalf("create first: %v", err)
	}
	_, err := svc.Create(context.Background(), admin, domain.CreateRequest{Name: "ACME!!! Corp"})
	if !errors.Is(err, domain.ErrSlugConflict) {
		t.Fatalf("expected slug conflict, got %v", err)
	}
}

func TestUpdateNameRederivesSlug(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	svc, _ := setupCompanyService(t, clk)
	admin := siteAdmin(mustNode(t))

	created, err := svc.Create(context.Background(), admin, domain.CreateRequest{Name: "Acme Corp"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	name := "Beta Labs"
	updated, err := svc.Update(context.Background(), admin, domain.UpdateRequest{ID: created.ID, Name: &name})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Slug != "beta-labs" {
		t.Fatalf("expected slug beta-labs, got %q", updated.Slug)
	}
}

func TestSoftDeleteThenRecover(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	svc, _ := setupCompanyService(t, clk)
	admin := siteAdmin(mustNode(t))

	created, err := svc.Create(context.Background(), admin, domain.CreateRequest{Name: "Acme Corp"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.SoftDelete(context.Background(), admin, domain.SoftDeleteRequest{ID: created.ID, Reason: "offboarding"}); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	if _, err := svc.GetByID(context.Background(), admin, created.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not_found after soft delete, got %v", err)
	}

	clk.Advance(29 * 24 * time.Hour)
	if err := svc.Recover(context.Background(), admin, created.ID); err != nil {
		t.Fatalf("recover within window: %v", err)
	}

	resp, err := svc.GetByID(context.Background(), admin, created.ID)
	if err != nil {
		t.Fatalf("get after recover: %v", err)
	}
	if resp.DeletedAt != nil {
		t.Fatalf("expected deleted_at to be cleared")
	}
}

func TestRecoverAfterWindowExpired(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	svc, _ := setupCompanyService(t, clk)
	admin := siteAdmin(mustNode(t))

	created, err := svc.Create(context.Background(), admin, domain.CreateRequest{Name: "Acme Corp"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.SoftDelete(context.Background(), admin, domain.SoftDeleteRequest{ID: created.ID}); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	clk.Advance(31 * 24 * time.Hour)
	if err := svc.Recover(context.Background(), admin, created.ID); !errors.Is(err, domain.ErrWindowExpired) {
		t.Fatalf("expected window_expired, got %v", err)
	}
}

func TestPurgeWhileWindowOpen(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	svc, _ := setupCompanyService(t, clk)
	admin := siteAdmin(mustNode(t))

	created, err := svc.Create(context.Background(), admin, domain.CreateRequest{Name: "Acme Corp"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.SoftDelete(context.Background(), admin, domain.SoftDeleteRequest{ID: created.ID}); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	clk.Advance(29 * 24 * time.Hour)
	if err := svc.Purge(context.Background(), admin, created.ID); !errors.Is(err, domain.ErrWindowOpen) {
		t.Fatalf("expected window_open, got %v", err)
	}

	// At the boundary the row is still recoverable, never purgeable.
	clk.Advance(24 * time.Hour)
	if err := svc.Purge(context.Background(), admin, created.ID); !errors.Is(err, domain.ErrWindowOpen) {
		t.Fatalf("expected window_open at boundary, got %v", err)
	}
}

func TestPurgeCascadesToUsers(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	svc, conn := setupCompanyService(t, clk)
	admin := siteAdmin(mustNode(t))

	created, err := svc.Create(context.Background(), admin, domain.CreateRequest{Name: "Acme Corp"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := conn.Exec(`INSERT INTO users (id, company_id, email) VALUES (1, ?, 'a@acme.test'), (2, ?, 'b@acme.test')`, created.ID, created.ID).Error; err != nil {
		t.Fatalf("seed users: %v", err)
	}

	if err := svc.SoftDelete(context.Background(), admin, domain.SoftDeleteRequest{ID: created.ID}); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	clk.Advance(31 * 24 * time.Hour)

	if err := svc.Purge(context.Background(), admin, created.ID); err != nil {
		t.Fatalf("purge: %v", err)
	}

	var companies int64
	if err := conn.Raw(`SELECT COUNT(*) FROM companies WHERE id = ?`, created.ID).Scan(&companies).Error; err != nil {
		t.Fatalf("count companies: %v", err)
	}
	if companies != 0 {
		t.Fatalf("expected company row removed, found %d", companies)
	}

	var users int64
	if err := conn.Raw(`SELECT COUNT(*) FROM users WHERE company_id = ?`, created.ID).Scan(&users).Error; err != nil {
		t.Fatalf("count users: %v", err)
	}
	if users != 0 {
		t.Fatalf("expected user rows removed, found %d", users)
	}
}

func TestListExcludesDeleted(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	svc, _ := setupCompanyService(t, clk)
	admin := siteAdmin(mustNode(t))

	kept, err := svc.Create(context.Background(), admin, domain.CreateRequest{Name: "Kept Co"})
	if err != nil {
		t.Fatalf("create kept: %v", err)
	}
	gone, err := svc.Create(context.Background(), admin, domain.CreateRequest{Name: "Gone Co"})
	if err != nil {
		t.Fatalf("create gone: %v", err)
	}
	if err := svc.SoftDelete(context.Background(), admin, domain.SoftDeleteRequest{ID: gone.ID}); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	list, err := svc.List(context.Background(), admin, domain.ListRequest{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list.Companies) != 1 || list.Companies[0].ID != kept.ID {
		t.Fatalf("expected only kept company, got %+v", list.Companies)
	}

	deleted, err := svc.ListDeleted(context.Background(), admin, domain.ListRequest{})
	if err != nil {
		t.Fatalf("list deleted: %v", err)
	}
	if len(deleted.Companies) != 1 || deleted.Companies[0].ID != gone.ID {
		t.Fatalf("expected only gone company in deleted list, got %+v", deleted.Companies)
	}
}

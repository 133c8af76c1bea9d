package rbac

import (
	"testing"

	"github.com/bwmarrin/snowflake"
)

func TestAuthorizeReflexive(t *testing.T) {
	for _, role := range []Role{RoleTrainee, RoleCompanyAdmin, RoleSiteAdmin} {
		if !Authorize(role, role) {
			t.Fatalf("expected %s to authorize itself", role)
		}
	}
}

func TestAuthorizeSiteAdminPassesEverywhere(t *testing.T) {
	for _, required := range []Role{RoleTrainee, RoleCompanyAdmin, RoleSiteAdmin} {
		if !Authorize(RoleSiteAdmin, required) {
			t.Fatalf("expected site_admin to satisfy %s", required)
		}
	}
}

func TestAuthorizeMonotonic(t *testing.T) {
	if Authorize(RoleTrainee, RoleCompanyAdmin) {
		t.Fatal("trainee must not satisfy company_admin")
	}
	if Authorize(RoleTrainee, RoleSiteAdmin) {
		t.Fatal("trainee must not satisfy site_admin")
	}
	if Authorize(RoleCompanyAdmin, RoleSiteAdmin) {
		t.Fatal("company_admin must not satisfy site_admin")
	}
	if !Authorize(RoleCompanyAdmin, RoleTrainee) {
		t.Fatal("company_admin must satisfy trainee")
	}
}

func TestAuthorizeFailsClosedOnUnknownRole(t *testing.T) {
	if Authorize(Role(""), RoleTrainee) {
		t.Fatal("empty role must be denied")
	}
	if Authorize(Role("superuser"), RoleTrainee) {
		t.Fatal("unknown role must be denied")
	}
}

func TestParseRole(t *testing.T) {
	role, ok := ParseRole("  Site_Admin ")
	if !ok || role != RoleSiteAdmin {
		t.Fatalf("expected site_admin, got %q ok=%v", role, ok)
	}
	if _, ok := ParseRole("owner"); ok {
		t.Fatal("expected unknown role to fail")
	}
}

func TestCanManage(t *testing.T) {
	companyA := snowflake.ID(100)
	companyB := snowflake.ID(200)

	siteAdmin := Actor{ID: 1, Role: RoleSiteAdmin}
	if !CanManage(siteAdmin, &companyA) || !CanManage(siteAdmin, nil) {
		t.Fatal("site_admin manages any target")
	}

	companyAdmin := Actor{ID: 2, Role: RoleCompanyAdmin, CompanyID: &companyA}
	if !CanManage(companyAdmin, &companyA) {
		t.Fatal("company_admin manages own company targets")
	}
	if CanManage(companyAdmin, &companyB) {
		t.Fatal("company_admin must not manage other companies")
	}
	if CanManage(companyAdmin, nil) {
		t.Fatal("company_admin must not manage unaffiliated targets")
	}

	trainee := Actor{ID: 3, Role: RoleTrainee, CompanyID: &companyA}
	if CanManage(trainee, &companyA) {
		t.Fatal("trainee manages no one")
	}
}

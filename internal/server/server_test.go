package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	"github.com/assesshub/backoffice/internal/identity"
	invitationdomain "github.com/assesshub/backoffice/internal/invitation/domain"
	"github.com/assesshub/backoffice/internal/rbac"
	userdomain "github.com/assesshub/backoffice/internal/user/domain"
)

type fakeIdentityProvider struct {
	subject string
	err     error
}

func (f *fakeIdentityProvider) Verify(ctx context.Context, rawToken string) (*identity.Identity, error) {
	_ = ctx
	_ = rawToken
	if f.err != nil {
		return nil, f.err
	}
	return &identity.Identity{Subject: f.subject, Email: "admin@example.com"}, nil
}

type fakeUserService struct {
	user       *userdomain.User
	getByIDErr error
}

func (f *fakeUserService) Create(ctx context.Context, actor rbac.Actor, req userdomain.CreateRequest) (*userdomain.Response, error) {
	return nil, userdomain.ErrForbidden
}

func (f *fakeUserService) GetByID(ctx context.Context, actor rbac.Actor, id string) (*userdomain.Response, error) {
	if f.getByIDErr != nil {
		return nil, f.getByIDErr
	}
	return &userdomain.Response{ID: id, Email: "admin@example.com", Role: string(rbac.RoleSiteAdmin), Active: true}, nil
}

func (f *fakeUserService) GetByExternalID(ctx context.Context, externalID string) (*userdomain.User, error) {
	_ = ctx
	if f.user == nil || f.user.ExternalID != externalID {
		return nil, userdomain.ErrNotFound
	}
	return f.user, nil
}

func (f *fakeUserService) List(ctx context.Context, actor rbac.Actor, req userdomain.ListRequest) (userdomain.ListResponse, error) {
	return userdomain.ListResponse{}, nil
}

func (f *fakeUserService) ListDeleted(ctx context.Context, actor rbac.Actor, req userdomain.ListRequest) (userdomain.ListResponse, error) {
	return userdomain.ListResponse{}, nil
}

func (f *fakeUserService) Update(ctx context.Context, actor rbac.Actor, req userdomain.UpdateRequest) (*userdomain.Response, error) {
	return nil, userdomain.ErrSelfAction
}

func (f *fakeUserService) SoftDelete(ctx context.Context, actor rbac.Actor, req userdomain.SoftDeleteRequest) error {
	return userdomain.ErrSelfAction
}

func (f *fakeUserService) Recover(ctx context.Context, actor rbac.Actor, id string) error {
	return userdomain.ErrWindowExpired
}

func (f *fakeUserService) Purge(ctx context.Context, actor rbac.Actor, id string) error {
	return userdomain.ErrWindowOpen
}

func (f *fakeUserService) AssignCompany(ctx context.Context, actor rbac.Actor, req userdomain.AssignCompanyRequest) error {
	return userdomain.ErrCapacityExceeded
}

type fakeInvitationService struct {
	view      *invitationdomain.View
	validate  error
	accept    error
	accepted  *userdomain.Response
	lastToken string
}

func (f *fakeInvitationService) Create(ctx context.Context, actor rbac.Actor, req invitationdomain.CreateRequest) (*invitationdomain.Response, error) {
	return nil, invitationdomain.ErrForbidden
}

func (f *fakeInvitationService) GetByID(ctx context.Context, actor rbac.Actor, id string) (*invitationdomain.Response, error) {
	return nil, invitationdomain.ErrNotFound
}

func (f *fakeInvitationService) List(ctx context.Context, actor rbac.Actor, req invitationdomain.ListRequest) (invitationdomain.ListResponse, error) {
	return invitationdomain.ListResponse{}, nil
}

func (f *fakeInvitationService) Validate(ctx context.Context, token string) (*invitationdomain.View, error) {
	_ = ctx
	f.lastToken = token
	if f.validate != nil {
		return nil, f.validate
	}
	return f.view, nil
}

func (f *fakeInvitationService) Verify(ctx context.Context, token string) (*invitationdomain.View, error) {
	return f.Validate(ctx, token)
}

func (f *fakeInvitationService) Resend(ctx context.Context, actor rbac.Actor, id string) (*invitationdomain.Response, error) {
	return nil, invitationdomain.ErrInvalidState
}

func (f *fakeInvitationService) Cancel(ctx context.Context, actor rbac.Actor, id string) error {
	return invitationdomain.ErrInvalidState
}

func (f *fakeInvitationService) Delete(ctx context.Context, actor rbac.Actor, id string) error {
	return invitationdomain.ErrConflict
}

func (f *fakeInvitationService) Accept(ctx context.Context, req invitationdomain.AcceptRequest) (*userdomain.Response, error) {
	_ = ctx
	if f.accept != nil {
		return nil, f.accept
	}
	return f.accepted, nil
}

func newTestRouter(srv *Server) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	return router
}

func TestValidateInvitationMissingToken(t *testing.T) {
	srv := &Server{invitationSvc: &fakeInvitationService{}}
	router := newTestRouter(srv)
	router.GET("/api/invite/validate", srv.ValidateInvitation)

	req := httptest.NewRequest(http.MethodGet, "/api/invite/validate", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestValidateInvitationExpiredMapsTo400(t *testing.T) {
	invSvc := &fakeInvitationService{validate: invitationdomain.ErrExpired}
	srv := &Server{invitationSvc: invSvc}
	router := newTestRouter(srv)
	router.GET("/api/invite/validate", srv.ValidateInvitation)

	req := httptest.NewRequest(http.MethodGet, "/api/invite/validate?token=tok-123", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
	if invSvc.lastToken != "tok-123" {
		t.Fatalf("expected token to reach the service, got %q", invSvc.lastToken)
	}
}

func TestValidateInvitationUnknownTokenMapsTo404(t *testing.T) {
	srv := &Server{invitationSvc: &fakeInvitationService{validate: invitationdomain.ErrNotFound}}
	router := newTestRouter(srv)
	router.GET("/api/invite/validate", srv.ValidateInvitation)

	req := httptest.NewRequest(http.MethodGet, "/api/invite/validate?token=nope", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", resp.Code)
	}
}

func TestAcceptInvitationConflictMapsTo409(t *testing.T) {
	srv := &Server{invitationSvc: &fakeInvitationService{accept: invitationdomain.ErrConflict}}
	router := newTestRouter(srv)
	router.POST("/api/invite/accept", srv.AcceptInvitation)

	body := bytes.NewBufferString(`{"token":"tok-123","external_id":"auth0|abc"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/invite/accept", body)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", resp.Code)
	}
}

func TestAcceptInvitationCapacityMapsTo400(t *testing.T) {
	srv := &Server{invitationSvc: &fakeInvitationService{accept: invitationdomain.ErrCapacityExceeded}}
	router := newTestRouter(srv)
	router.POST("/api/invite/accept", srv.AcceptInvitation)

	body := bytes.NewBufferString(`{"token":"tok-123","external_id":"auth0|abc"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/invite/accept", body)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestAuthRequiredMissingToken(t *testing.T) {
	srv := &Server{
		identity: &fakeIdentityProvider{subject: "auth0|admin"},
		userSvc:  &fakeUserService{},
	}
	router := newTestRouter(srv)
	router.GET("/admin/me", srv.AuthRequired(), srv.Me)

	req := httptest.NewRequest(http.MethodGet, "/admin/me", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", resp.Code)
	}
}

func TestAuthRequiredInvalidToken(t *testing.T) {
	srv := &Server{
		identity: &fakeIdentityProvider{err: identity.ErrInvalidToken},
		userSvc:  &fakeUserService{},
	}
	router := newTestRouter(srv)
	router.GET("/admin/me", srv.AuthRequired(), srv.Me)

	req := httptest.NewRequest(http.MethodGet, "/admin/me", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", resp.Code)
	}
}

func TestAuthRequiredUnprovisionedSubject(t *testing.T) {
	srv := &Server{
		identity: &fakeIdentityProvider{subject: "auth0|stranger"},
		userSvc:  &fakeUserService{},
	}
	router := newTestRouter(srv)
	router.GET("/admin/me", srv.AuthRequired(), srv.Me)

	req := httptest.NewRequest(http.MethodGet, "/admin/me", nil)
	req.Header.Set("Authorization", "Bearer valid")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", resp.Code)
	}
}

func TestAuthRequiredInactiveUser(t *testing.T) {
	srv := &Server{
		identity: &fakeIdentityProvider{subject: "auth0|admin"},
		userSvc: &fakeUserService{
			user: &userdomain.User{
				ID:         snowflake.ID(42),
				ExternalID: "auth0|admin",
				Role:       rbac.RoleSiteAdmin,
				Active:     false,
			},
		},
	}
	router := newTestRouter(srv)
	router.GET("/admin/me", srv.AuthRequired(), srv.Me)

	req := httptest.NewRequest(http.MethodGet, "/admin/me", nil)
	req.Header.Set("Authorization", "Bearer valid")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", resp.Code)
	}
}

func TestAuthRequiredResolvesActor(t *testing.T) {
	srv := &Server{
		identity: &fakeIdentityProvider{subject: "auth0|admin"},
		userSvc: &fakeUserService{
			user: &userdomain.User{
				ID:         snowflake.ID(42),
				ExternalID: "auth0|admin",
				Role:       rbac.RoleSiteAdmin,
				Active:     true,
			},
		},
	}
	router := newTestRouter(srv)

	var gotActor rbac.Actor
	router.GET("/admin/me", srv.AuthRequired(), func(c *gin.Context) {
		actor, ok := currentActor(c)
		if !ok {
			t.Fatal("expected actor on context")
		}
		gotActor = actor
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	req := httptest.NewRequest(http.MethodGet, "/admin/me", nil)
	req.Header.Set("Authorization", "Bearer valid")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	if gotActor.ID != snowflake.ID(42) || gotActor.Role != rbac.RoleSiteAdmin {
		t.Fatalf("unexpected actor: %+v", gotActor)
	}
}

func TestSelfActionMapsTo400(t *testing.T) {
	srv := &Server{userSvc: &fakeUserService{}}
	router := newTestRouter(srv)
	router.DELETE("/admin/users/:id", func(c *gin.Context) {
		c.Set(actorContextKey, rbac.Actor{ID: snowflake.ID(42), Role: rbac.RoleSiteAdmin})
		srv.DeleteUser(c)
	})

	req := httptest.NewRequest(http.MethodDelete, "/admin/users/42", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestRecoverWindowExpiredMapsTo400(t *testing.T) {
	srv := &Server{userSvc: &fakeUserService{}}
	router := newTestRouter(srv)
	router.POST("/admin/users/:id/recover", func(c *gin.Context) {
		c.Set(actorContextKey, rbac.Actor{ID: snowflake.ID(1), Role: rbac.RoleSiteAdmin})
		srv.RecoverUser(c)
	})

	req := httptest.NewRequest(http.MethodPost, "/admin/users/99/recover", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestInviteTokenRateLimitDisabledPassesThrough(t *testing.T) {
	srv := &Server{invitationSvc: &fakeInvitationService{view: &invitationdomain.View{Email: "a@example.com"}}}
	router := newTestRouter(srv)
	router.GET("/api/invite/validate", srv.InviteTokenRateLimit(), srv.ValidateInvitation)

	req := httptest.NewRequest(http.MethodGet, "/api/invite/validate?token=tok", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
}

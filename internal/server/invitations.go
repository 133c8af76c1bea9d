package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	invitationdomain "github.com/assesshub/backoffice/internal/invitation/domain"
)

type createInvitationRequest struct {
	Email     string                 `json:"email"`
	Role      string                 `json:"role"`
	CompanyID string                 `json:"company_id"`
	UserData  map[string]interface{} `json:"user_data"`
}

type acceptInvitationRequest struct {
	Token      string `json:"token"`
	ExternalID string `json:"external_id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Phone      string `json:"phone"`
}

type listInvitationsQuery struct {
	PageToken string `form:"page_token"`
	PageSize  int32  `form:"page_size"`
	CompanyID string `form:"company_id"`
	Status    string `form:"status"`
	Email     string `form:"email"`
}

func (s *Server) CreateInvitation(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invitationSvc.Create(c.Request.Context(), actor, invitationdomain.CreateRequest{
		Email:     strings.TrimSpace(req.Email),
		Role:      strings.TrimSpace(req.Role),
		CompanyID: strings.TrimSpace(req.CompanyID),
		UserData:  req.UserData,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, stringOrEmpty(resp.CompanyID), "invitation.create", "invitation", resp.ID, map[string]any{
		"email": resp.Email,
		"role":  resp.Role,
	})

	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetInvitationByID(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	resp, err := s.invitationSvc.GetByID(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) ListInvitations(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var query listInvitationsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invitationSvc.List(c.Request.Context(), actor, invitationdomain.ListRequest{
		PageToken: strings.TrimSpace(query.PageToken),
		PageSize:  query.PageSize,
		CompanyID: strings.TrimSpace(query.CompanyID),
		Status:    strings.TrimSpace(query.Status),
		Email:     strings.TrimSpace(query.Email),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Invitations, "page_info": resp.PageInfo})
}

func (s *Server) ResendInvitation(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	resp, err := s.invitationSvc.Resend(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, stringOrEmpty(resp.CompanyID), "invitation.resend", "invitation", resp.ID, nil)

	c.JSON(http.StatusOK, resp)
}

func (s *Server) CancelInvitation(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	id := c.Param("id")
	if err := s.invitationSvc.Cancel(c.Request.Context(), actor, id); err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, "", "invitation.cancel", "invitation", id, nil)

	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

func (s *Server) DeleteInvitation(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	id := c.Param("id")
	if err := s.invitationSvc.Delete(c.Request.Context(), actor, id); err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, "", "invitation.delete", "invitation", id, nil)

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// ValidateInvitation answers the signup form's "is this link still usable"
// question. Only a pending, unexpired invitation passes.
func (s *Server) ValidateInvitation(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		AbortWithError(c, newValidationError("token", "invalid_token", "missing token"))
		return
	}

	resp, err := s.invitationSvc.Validate(c.Request.Context(), token)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// VerifyInvitation also resolves invitations that were already accepted, so
// a completed signup can still render its confirmation screen.
func (s *Server) VerifyInvitation(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		AbortWithError(c, newValidationError("token", "invalid_token", "missing token"))
		return
	}

	resp, err := s.invitationSvc.Verify(c.Request.Context(), token)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) AcceptInvitation(c *gin.Context) {
	var req acceptInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invitationSvc.Accept(c.Request.Context(), invitationdomain.AcceptRequest{
		Token:      strings.TrimSpace(req.Token),
		ExternalID: strings.TrimSpace(req.ExternalID),
		FirstName:  strings.TrimSpace(req.FirstName),
		LastName:   strings.TrimSpace(req.LastName),
		Phone:      strings.TrimSpace(req.Phone),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, stringOrEmpty(resp.CompanyID), "invitation.accept", "user", resp.ID, map[string]any{
		"role": resp.Role,
	})

	c.JSON(http.StatusOK, resp)
}

package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	userdomain "github.com/assesshub/backoffice/internal/user/domain"
)

type createUserRequest struct {
	ExternalID string `json:"external_id"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	CompanyID  string `json:"company_id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Phone      string `json:"phone"`
}

type updateUserRequest struct {
	Role      *string `json:"role"`
	Active    *bool   `json:"active"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
}

type deleteUserRequest struct {
	Reason string `json:"reason"`
}

type listUsersQuery struct {
	PageToken string `form:"page_token"`
	PageSize  int32  `form:"page_size"`
	CompanyID string `form:"company_id"`
	Role      string `form:"role"`
	Email     string `form:"email"`
	Active    string `form:"active"`
}

// Me returns the caller's own profile. Every provisioned user may call it,
// including trainees, who can read nothing else.
func (s *Server) Me(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	resp, err := s.userSvc.GetByID(c.Request.Context(), actor, actor.ID.String())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) CreateUser(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.userSvc.Create(c.Request.Context(), actor, userdomain.CreateRequest{
		ExternalID: strings.TrimSpace(req.ExternalID),
		Email:      strings.TrimSpace(req.Email),
		Role:       strings.TrimSpace(req.Role),
		CompanyID:  strings.TrimSpace(req.CompanyID),
		FirstName:  strings.TrimSpace(req.FirstName),
		LastName:   strings.TrimSpace(req.LastName),
		Phone:      strings.TrimSpace(req.Phone),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, stringOrEmpty(resp.CompanyID), "user.create", "user", resp.ID, map[string]any{
		"role": resp.Role,
	})

	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetUserByID(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	resp, err := s.userSvc.GetByID(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) ListUsers(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var query listUsersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	active, err := parseOptionalBool(query.Active)
	if err != nil {
		AbortWithError(c, newValidationError("active", "invalid_active", "invalid active"))
		return
	}

	resp, err := s.userSvc.List(c.Request.Context(), actor, userdomain.ListRequest{
		PageToken: strings.TrimSpace(query.PageToken),
		PageSize:  query.PageSize,
		CompanyID: strings.TrimSpace(query.CompanyID),
		Role:      strings.TrimSpace(query.Role),
		Email:     strings.TrimSpace(query.Email),
		Active:    active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Users, "page_info": resp.PageInfo})
}

func (s *Server) ListDeletedUsers(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var query listUsersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.userSvc.ListDeleted(c.Request.Context(), actor, userdomain.ListRequest{
		PageToken: strings.TrimSpace(query.PageToken),
		PageSize:  query.PageSize,
		CompanyID: strings.TrimSpace(query.CompanyID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Users, "page_info": resp.PageInfo})
}

func (s *Server) UpdateUser(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.userSvc.Update(c.Request.Context(), actor, userdomain.UpdateRequest{
		ID:        c.Param("id"),
		Role:      req.Role,
		Active:    req.Active,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, stringOrEmpty(resp.CompanyID), "user.update", "user", resp.ID, nil)

	c.JSON(http.StatusOK, resp)
}

func (s *Server) DeleteUser(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req deleteUserRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	id := c.Param("id")
	if err := s.userSvc.SoftDelete(c.Request.Context(), actor, userdomain.SoftDeleteRequest{
		ID:     id,
		Reason: strings.TrimSpace(req.Reason),
	}); err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, "", "user.delete", "user", id, map[string]any{
		"reason": strings.TrimSpace(req.Reason),
	})

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) RecoverUser(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	id := c.Param("id")
	if err := s.userSvc.Recover(c.Request.Context(), actor, id); err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, "", "user.recover", "user", id, nil)

	c.JSON(http.StatusOK, gin.H{"status": "recovered"})
}

func (s *Server) PurgeUser(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	id := c.Param("id")
	if err := s.userSvc.Purge(c.Request.Context(), actor, id); err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, "", "user.purge", "user", id, nil)

	c.JSON(http.StatusOK, gin.H{"status": "purged"})
}

func stringOrEmpty(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

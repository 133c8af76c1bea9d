package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	companydomain "github.com/assesshub/backoffice/internal/company/domain"
	userdomain "github.com/assesshub/backoffice/internal/user/domain"
)

type createCompanyRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	MaxTrainees int    `json:"max_trainees"`
}

type updateCompanyRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	MaxTrainees *int    `json:"max_trainees"`
	Active      *bool   `json:"active"`
}

type deleteCompanyRequest struct {
	Reason string `json:"reason"`
}

type assignTraineesRequest struct {
	UserIDs []string `json:"user_ids"`
}

type listCompaniesQuery struct {
	PageToken string `form:"page_token"`
	PageSize  int32  `form:"page_size"`
	Name      string `form:"name"`
	Active    string `form:"active"`
}

func (s *Server) CreateCompany(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.companySvc.Create(c.Request.Context(), actor, companydomain.CreateRequest{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		MaxTrainees: req.MaxTrainees,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, resp.ID, "company.create", "company", resp.ID, map[string]any{
		"name": resp.Name,
		"slug": resp.Slug,
	})

	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetCompanyByID(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	resp, err := s.companySvc.GetByID(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetCompanyBySlug(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	resp, err := s.companySvc.GetBySlug(c.Request.Context(), actor, c.Param("slug"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) ListCompanies(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var query listCompaniesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	active, err := parseOptionalBool(query.Active)
	if err != nil {
		AbortWithError(c, newValidationError("active", "invalid_active", "invalid active"))
		return
	}

	resp, err := s.companySvc.List(c.Request.Context(), actor, companydomain.ListRequest{
		PageToken: strings.TrimSpace(query.PageToken),
		PageSize:  query.PageSize,
		Name:      strings.TrimSpace(query.Name),
		Active:    active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Companies, "page_info": resp.PageInfo})
}

func (s *Server) ListDeletedCompanies(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var query listCompaniesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.companySvc.ListDeleted(c.Request.Context(), actor, companydomain.ListRequest{
		PageToken: strings.TrimSpace(query.PageToken),
		PageSize:  query.PageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Companies, "page_info": resp.PageInfo})
}

func (s *Server) UpdateCompany(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req updateCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.companySvc.Update(c.Request.Context(), actor, companydomain.UpdateRequest{
		ID:          c.Param("id"),
		Name:        req.Name,
		Description: req.Description,
		MaxTrainees: req.MaxTrainees,
		Active:      req.Active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, resp.ID, "company.update", "company", resp.ID, nil)

	c.JSON(http.StatusOK, resp)
}

func (s *Server) DeleteCompany(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req deleteCompanyRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	id := c.Param("id")
	if err := s.companySvc.SoftDelete(c.Request.Context(), actor, companydomain.SoftDeleteRequest{
		ID:     id,
		Reason: strings.TrimSpace(req.Reason),
	}); err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, id, "company.delete", "company", id, map[string]any{
		"reason": strings.TrimSpace(req.Reason),
	})

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) RecoverCompany(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	id := c.Param("id")
	if err := s.companySvc.Recover(c.Request.Context(), actor, id); err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, id, "company.recover", "company", id, nil)

	c.JSON(http.StatusOK, gin.H{"status": "recovered"})
}

func (s *Server) PurgeCompany(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	id := c.Param("id")
	if err := s.companySvc.Purge(c.Request.Context(), actor, id); err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, "", "company.purge", "company", id, nil)

	c.JSON(http.StatusOK, gin.H{"status": "purged"})
}

func (s *Server) AssignTrainees(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req assignTraineesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	companyID := c.Param("id")
	if err := s.userSvc.AssignCompany(c.Request.Context(), actor, userdomain.AssignCompanyRequest{
		CompanyID: companyID,
		UserIDs:   req.UserIDs,
	}); err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, companyID, "company.assign_trainees", "company", companyID, map[string]any{
		"user_count": len(req.UserIDs),
	})

	c.JSON(http.StatusOK, gin.H{"status": "assigned"})
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/deskhub/backend/internal/models"
)

func (h *Handler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, profileFrom(c))
}

type UpdateProfileRequest struct {
	FullName    string `json:"full_name" validate:"required,max=120"`
	CompanyName string `json:"company_name" validate:"max=120"`
	Role        string `json:"role"`
}

// MeUpdate maintains the caller's own profile. A role change resets the
// matching approval flag; an administrator has to approve it again.
func (h *Handler) MeUpdate(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	p := profileFrom(c)
	p.FullName = req.FullName
	p.CompanyName = req.CompanyName
	if req.Role != "" {
		role := models.ParseRole(req.Role)
		if role == models.RoleUnknown || role == models.RoleAdministrator {
			writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Role must be customer or employee", req.Role)
			return
		}
		if role != p.Role {
			p.Role = role
			p.EmployeeApproved = false
			p.CustomerApproved = false
		}
	}

	if err := h.Store.UpsertProfile(c.Request.Context(), p); err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to save profile", err.Error())
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) AgentsList(c *gin.Context) {
	agents, err := h.Store.ListAgents(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list agents", err.Error())
		return
	}
	if agents == nil {
		agents = []models.Profile{}
	}
	c.JSON(http.StatusOK, gin.H{"items": agents})
}

func (h *Handler) PendingProfiles(c *gin.Context) {
	profiles, err := h.Store.ListPendingProfiles(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list pending profiles", err.Error())
		return
	}
	if profiles == nil {
		profiles = []models.Profile{}
	}
	c.JSON(http.StatusOK, gin.H{"items": profiles})
}

type ApprovalRequest struct {
	Role     string `json:"role" validate:"required"`
	Approved *bool  `json:"approved" validate:"required"`
}

func (h *Handler) SetApproval(c *gin.Context) {
	var req ApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}
	role := models.ParseRole(req.Role)
	if role != models.RoleEmployee && role != models.RoleCustomer {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Role must be customer or employee", req.Role)
		return
	}

	if err := h.Store.SetProfileApproval(c.Request.Context(), c.Param("id"), role, *req.Approved); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Profile not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to set approval", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type CreateTeamRequest struct {
	Name             string `json:"name" validate:"required,max=120"`
	FocusArea        string `json:"focus_area" validate:"required,max=60"`
	CoverageStartUTC int    `json:"coverage_start_utc" validate:"min=0,max=23"`
	CoverageEndUTC   int    `json:"coverage_end_utc" validate:"min=0,max=23"`
}

func (h *Handler) TeamCreate(c *gin.Context) {
	var req CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	id, err := h.Store.CreateTeam(c.Request.Context(), models.Team{
		Name:             req.Name,
		FocusArea:        req.FocusArea,
		CoverageStartUTC: req.CoverageStartUTC,
		CoverageEndUTC:   req.CoverageEndUTC,
	})
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to create team", err.Error())
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *Handler) TeamsList(c *gin.Context) {
	teams, err := h.Store.ListTeams(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list teams", err.Error())
		return
	}
	if teams == nil {
		teams = []models.Team{}
	}
	c.JSON(http.StatusOK, gin.H{"items": teams})
}

func (h *Handler) TeamDelete(c *gin.Context) {
	if err := h.Store.DeleteTeam(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Team not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to delete team", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) TeamMembersList(c *gin.Context) {
	members, err := h.Store.ListTeamMembers(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list members", err.Error())
		return
	}
	if members == nil {
		members = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"items": members})
}

type TeamMemberRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

func (h *Handler) TeamMemberAdd(c *gin.Context) {
	var req TeamMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	if err := h.Store.AddTeamMember(c.Request.Context(), c.Param("id"), req.UserID); err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to add member", err.Error())
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "ok"})
}

func (h *Handler) TeamMemberRemove(c *gin.Context) {
	err := h.Store.RemoveTeamMember(c.Request.Context(), c.Param("id"), c.Param("user_id"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Membership not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to remove member", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type CreateSkillRequest struct {
	Name string `json:"name" validate:"required,max=60"`
}

func (h *Handler) SkillCreate(c *gin.Context) {
	var req CreateSkillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	id, err := h.Store.CreateSkill(c.Request.Context(), req.Name)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to create skill", err.Error())
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *Handler) SkillsList(c *gin.Context) {
	skills, err := h.Store.ListSkills(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list skills", err.Error())
		return
	}
	if skills == nil {
		skills = []models.Skill{}
	}
	c.JSON(http.StatusOK, gin.H{"items": skills})
}

func (h *Handler) SkillDelete(c *gin.Context) {
	if err := h.Store.DeleteSkill(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Skill not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to delete skill", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type EmployeeSkillRequest struct {
	SkillID string `json:"skill_id" validate:"required"`
}

func (h *Handler) EmployeeSkillGrant(c *gin.Context) {
	var req EmployeeSkillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	if err := h.Store.GrantEmployeeSkill(c.Request.Context(), c.Param("id"), req.SkillID); err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to grant skill", err.Error())
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "ok"})
}

func (h *Handler) EmployeeSkillRevoke(c *gin.Context) {
	err := h.Store.RevokeEmployeeSkill(c.Request.Context(), c.Param("id"), c.Param("skill_id"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Skill grant not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to revoke skill", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

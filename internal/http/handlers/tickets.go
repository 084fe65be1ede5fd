package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/deskhub/backend/internal/db"
	"github.com/deskhub/backend/internal/models"
)

type CreateTicketRequest struct {
	Title       string   `json:"title" validate:"required,min=3,max=200"`
	Description string   `json:"description" validate:"required,min=5"`
	Priority    string   `json:"priority"`
	Tags        []string `json:"tags"`
}

// approvedSubmitter rejects profiles still waiting for approval.
func approvedSubmitter(p models.Profile) bool {
	switch p.Role {
	case models.RoleAdministrator:
		return true
	case models.RoleEmployee:
		return p.EmployeeApproved
	case models.RoleCustomer:
		return p.CustomerApproved
	default:
		return false
	}
}

// @Summary Create ticket
// @Description Opens a ticket and immediately tries to route it to an agent
// @Tags tickets
// @Accept json
// @Produce json
// @Success 201 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Router /api/tickets [post]
func (h *Handler) TicketCreate(c *gin.Context) {
	var req CreateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	p := profileFrom(c)
	if !approvedSubmitter(p) {
		writeError(c, http.StatusForbidden, "FORBIDDEN", "Account pending approval", nil)
		return
	}
	priority := models.ParsePriority(req.Priority)
	if priority == models.PriorityUnset {
		// Let the assistant guess; it falls back to normal on any trouble.
		guessed, err := h.Assistant.ClassifyPriority(c.Request.Context(), req.Title+"\n"+req.Description)
		if err != nil {
			h.Logger.Warn().Err(err).Msg("priority classification failed")
			guessed = models.PriorityNormal
		}
		priority = guessed
	}

	id, err := h.Store.CreateTicket(c.Request.Context(), models.Ticket{
		UserID:      p.ID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    priority,
		Tags:        req.Tags,
	})
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to create ticket", err.Error())
		return
	}

	// Routing failures never fail creation: the ticket exists either way and
	// can be routed again or claimed manually.
	outcome, err := h.Router.RouteTicket(c.Request.Context(), id)
	if err != nil {
		h.Logger.Error().Err(err).Str("ticket_id", id).Msg("auto-routing failed")
		outcome.Reason = "routing_error"
	}

	c.JSON(http.StatusCreated, gin.H{"id": id, "priority": priority, "routing": outcome})
}

func (h *Handler) TicketsList(c *gin.Context) {
	p := profileFrom(c)
	scope, err := h.visibleUserIDs(c.Request.Context(), p)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to resolve visibility", err.Error())
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	filter := db.TicketFilter{
		Status:     models.ParseTicketStatus(c.Query("status")),
		Priority:   models.ParsePriority(c.Query("priority")),
		AssignedTo: c.Query("assigned_to"),
		UserIDs:    scope,
		Search:     c.Query("q"),
		Limit:      limit,
		Offset:     offset,
	}

	items, err := h.Store.ListTickets(c.Request.Context(), filter)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list tickets", err.Error())
		return
	}
	if items == nil {
		items = []models.Ticket{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "limit": limit, "offset": offset})
}

func (h *Handler) TicketDetails(c *gin.Context) {
	p := profileFrom(c)
	ticket, err := h.Store.GetTicket(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Ticket not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to get ticket", err.Error())
		return
	}
	if !h.canSeeTicket(c.Request.Context(), p, ticket) {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Ticket not found", nil)
		return
	}

	replies, err := h.Store.ListReplies(c.Request.Context(), ticket.ID, p.Agent())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load replies", err.Error())
		return
	}
	if replies == nil {
		replies = []models.TicketReply{}
	}
	c.JSON(http.StatusOK, gin.H{"ticket": ticket, "replies": replies})
}

type UpdateTicketRequest struct {
	Status     string   `json:"status"`
	Priority   string   `json:"priority"`
	Tags       []string `json:"tags"`
	AssignedTo *string  `json:"assigned_to"`
}

func (h *Handler) TicketUpdate(c *gin.Context) {
	var req UpdateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}

	var update db.TicketUpdate
	if req.Status != "" {
		status := models.ParseTicketStatus(req.Status)
		if status == models.StatusUnknown {
			writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Unknown status", req.Status)
			return
		}
		update.Status = &status
	}
	if req.Priority != "" {
		priority := models.ParsePriority(req.Priority)
		if priority == models.PriorityUnset {
			writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Unknown priority", req.Priority)
			return
		}
		update.Priority = &priority
	}
	update.Tags = req.Tags
	update.AssignedTo = req.AssignedTo

	if err := h.Store.UpdateTicket(c.Request.Context(), c.Param("id"), update); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Ticket not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to update ticket", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// TicketClaim lets an agent take an unassigned ticket. The write is
// conditional, so losing a race returns a conflict rather than stealing it.
func (h *Handler) TicketClaim(c *gin.Context) {
	p := profileFrom(c)
	err := h.Store.ClaimTicket(c.Request.Context(), c.Param("id"), p.ID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			writeError(c, http.StatusConflict, "ALREADY_ASSIGNED", "Ticket is already assigned or does not exist", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to claim ticket", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "assigned_to": p.ID})
}

// @Summary Route ticket
// @Description Re-runs auto-assignment for an unassigned ticket
// @Tags tickets
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/tickets/{id}/route [post]
func (h *Handler) TicketRoute(c *gin.Context) {
	outcome, err := h.Router.RouteTicket(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, http.StatusInternalServerError, "ROUTING_ERROR", "Routing failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, outcome)
}

type CreateReplyRequest struct {
	ReplyText  string `json:"reply_text" validate:"required"`
	IsInternal bool   `json:"is_internal"`
}

func (h *Handler) ReplyCreate(c *gin.Context) {
	var req CreateReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	p := profileFrom(c)
	if req.IsInternal && !p.Agent() {
		writeError(c, http.StatusForbidden, "FORBIDDEN", "Internal notes are agent-only", nil)
		return
	}

	ticket, err := h.Store.GetTicket(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Ticket not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to get ticket", err.Error())
		return
	}
	if !h.canSeeTicket(c.Request.Context(), p, ticket) {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Ticket not found", nil)
		return
	}

	id, err := h.Store.InsertReply(c.Request.Context(), models.TicketReply{
		TicketID:   ticket.ID,
		UserID:     p.ID,
		ReplyText:  req.ReplyText,
		IsInternal: req.IsInternal,
	})
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to create reply", err.Error())
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

type CreateFeedbackRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment"`
}

// FeedbackCreate records the ticket owner's rating after the ticket closes.
func (h *Handler) FeedbackCreate(c *gin.Context) {
	var req CreateFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	p := profileFrom(c)
	ticket, err := h.Store.GetTicket(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Ticket not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to get ticket", err.Error())
		return
	}
	if ticket.UserID != p.ID {
		writeError(c, http.StatusForbidden, "FORBIDDEN", "Only the ticket owner can leave feedback", nil)
		return
	}
	if ticket.Status != models.StatusClosed {
		writeError(c, http.StatusConflict, "TICKET_OPEN", "Feedback is accepted after the ticket is closed", nil)
		return
	}

	id, err := h.Store.InsertFeedback(c.Request.Context(), models.TicketFeedback{
		TicketID: ticket.ID,
		UserID:   p.ID,
		Rating:   req.Rating,
		Comment:  req.Comment,
	})
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to save feedback", err.Error())
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *Handler) DashboardStats(c *gin.Context) {
	p := profileFrom(c)
	stats, err := h.Dashboard.AgentStats(c.Request.Context(), p.ID, timeNowUTC())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load dashboard", err.Error())
		return
	}
	c.JSON(http.StatusOK, stats)
}

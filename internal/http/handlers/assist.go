package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/deskhub/backend/internal/ai"
	"github.com/deskhub/backend/internal/models"
)

// loadConversation fetches the ticket with its full thread, internal notes
// included; these endpoints are agent-only.
func (h *Handler) loadConversation(c *gin.Context) (models.Ticket, string, bool) {
	ticket, err := h.Store.GetTicket(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Ticket not found", nil)
			return models.Ticket{}, "", false
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to get ticket", err.Error())
		return models.Ticket{}, "", false
	}
	replies, err := h.Store.ListReplies(c.Request.Context(), ticket.ID, true)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load replies", err.Error())
		return models.Ticket{}, "", false
	}
	return ticket, conversationText(ticket, replies), true
}

func writeAssistantError(c *gin.Context, err error) {
	// RateLimitError travels by value, so match the value type.
	var rate ai.RateLimitError
	if errors.As(err, &rate) {
		c.Header("Retry-After", strconv.Itoa(int(rate.RetryAfter.Seconds())))
		writeError(c, http.StatusTooManyRequests, "RATE_LIMITED", "Assistant is rate limited", nil)
		return
	}
	writeError(c, http.StatusBadGateway, "ASSISTANT_ERROR", "Assistant request failed", err.Error())
}

// @Summary Draft a reply
// @Description Generates a suggested agent reply for the ticket thread
// @Tags assist
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/tickets/{id}/draft [post]
func (h *Handler) DraftReply(c *gin.Context) {
	ticket, conversation, ok := h.loadConversation(c)
	if !ok {
		return
	}

	draft, err := h.Assistant.DraftReply(c.Request.Context(), conversation)
	if err != nil {
		writeAssistantError(c, err)
		return
	}

	p := profileFrom(c)
	id, err := h.Store.InsertResponseDraft(c.Request.Context(), models.ResponseDraft{
		TicketID:  ticket.ID,
		Content:   draft,
		CreatedBy: p.ID,
	})
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to save draft", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "content": draft})
}

type GradeDraftRequest struct {
	Draft string `json:"draft" validate:"required"`
}

func (h *Handler) GradeDraft(c *gin.Context) {
	var req GradeDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	ticket, conversation, ok := h.loadConversation(c)
	if !ok {
		return
	}

	grade, err := h.Assistant.GradeReply(c.Request.Context(), conversation, ticket.Description, req.Draft)
	if err != nil {
		writeAssistantError(c, err)
		return
	}
	c.JSON(http.StatusOK, grade)
}

func (h *Handler) SummarizeTicket(c *gin.Context) {
	_, conversation, ok := h.loadConversation(c)
	if !ok {
		return
	}

	summary, err := h.Assistant.Summarize(c.Request.Context(), conversation)
	if err != nil {
		writeAssistantError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

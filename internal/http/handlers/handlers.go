package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/deskhub/backend/internal/ai"
	"github.com/deskhub/backend/internal/db"
	"github.com/deskhub/backend/internal/http/middleware"
	"github.com/deskhub/backend/internal/models"
	"github.com/deskhub/backend/internal/routing"
	"github.com/deskhub/backend/internal/service"
)

type Handler struct {
	Store     *db.Store
	Assistant ai.Assistant
	Router    *routing.Engine
	Dashboard *service.DashboardService
	Validator *validator.Validate
	Logger    zerolog.Logger
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

// visibleUserIDs returns the ticket-owner scope for the caller, or nil when
// the caller may see every ticket.
func (h *Handler) visibleUserIDs(ctx context.Context, p models.Profile) ([]string, error) {
	if p.Role == models.RoleAdministrator {
		return nil, nil
	}
	if p.Role == models.RoleEmployee && p.EmployeeApproved {
		return nil, nil
	}
	if p.CompanyName != "" {
		ids, err := h.Store.CompanyUserIDs(ctx, p.CompanyName)
		if err != nil {
			return nil, err
		}
		if len(ids) > 0 {
			return ids, nil
		}
	}
	return []string{p.ID}, nil
}

func (h *Handler) canSeeTicket(ctx context.Context, p models.Profile, t models.Ticket) bool {
	scope, err := h.visibleUserIDs(ctx, p)
	if err != nil {
		h.Logger.Error().Err(err).Str("user_id", p.ID).Msg("visibility scope lookup failed")
		return t.UserID == p.ID
	}
	if scope == nil {
		return true
	}
	for _, id := range scope {
		if id == t.UserID {
			return true
		}
	}
	return false
}

// conversationText flattens a ticket and its replies into the plain-text
// transcript the assistant prompts expect.
func conversationText(t models.Ticket, replies []models.TicketReply) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Ticket: %s\n", t.Title)
	if t.Description != "" {
		fmt.Fprintf(&b, "Customer: %s\n", t.Description)
	}
	for _, r := range replies {
		speaker := "Customer"
		if r.UserID != t.UserID {
			speaker = "Agent"
		}
		fmt.Fprintf(&b, "%s: %s\n", speaker, r.ReplyText)
	}
	return b.String()
}

func profileFrom(c *gin.Context) models.Profile {
	return middleware.ProfileFrom(c)
}

func timeNowUTC() time.Time { return time.Now().UTC() }

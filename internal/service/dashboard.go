package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/deskhub/backend/internal/models"
)

// TicketQueries is the slice of the store the dashboard needs.
type TicketQueries interface {
	RepliedTicketIDs(ctx context.Context, userID string, since *time.Time, limit int) ([]string, error)
	CountTicketsInStatus(ctx context.Context, ids []string, statuses []models.TicketStatus) (int, error)
	GetTicketsByIDs(ctx context.Context, ids []string) ([]models.Ticket, error)
}

type DashboardStats struct {
	ActiveTicketsCount        int             `json:"active_tickets_count"`
	TicketsResolvedTodayCount int             `json:"tickets_resolved_today_count"`
	RecentTickets             []models.Ticket `json:"recent_tickets"`
}

type DashboardService struct {
	Store  TicketQueries
	Logger zerolog.Logger
}

const recentTicketLimit = 5

// AgentStats aggregates the agent's working set: open/in-progress tickets
// they have replied to, tickets closed today they touched, and their five
// most recently touched tickets.
func (s *DashboardService) AgentStats(ctx context.Context, userID string, now time.Time) (DashboardStats, error) {
	stats := DashboardStats{RecentTickets: []models.Ticket{}}

	repliedIDs, err := s.Store.RepliedTicketIDs(ctx, userID, nil, 0)
	if err != nil {
		return stats, err
	}

	active, err := s.Store.CountTicketsInStatus(ctx, repliedIDs, []models.TicketStatus{models.StatusOpen, models.StatusInProgress})
	if err != nil {
		return stats, err
	}
	stats.ActiveTicketsCount = active

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	todayIDs, err := s.Store.RepliedTicketIDs(ctx, userID, &midnight, 0)
	if err != nil {
		return stats, err
	}
	resolved, err := s.Store.CountTicketsInStatus(ctx, todayIDs, []models.TicketStatus{models.StatusClosed})
	if err != nil {
		return stats, err
	}
	stats.TicketsResolvedTodayCount = resolved

	recentIDs, err := s.Store.RepliedTicketIDs(ctx, userID, nil, recentTicketLimit)
	if err != nil {
		return stats, err
	}
	tickets, err := s.Store.GetTicketsByIDs(ctx, recentIDs)
	if err != nil {
		return stats, err
	}

	// Preserve recency order; the id lookup does not guarantee it.
	byID := make(map[string]models.Ticket, len(tickets))
	for _, t := range tickets {
		byID[t.ID] = t
	}
	for _, id := range recentIDs {
		if t, ok := byID[id]; ok {
			stats.RecentTickets = append(stats.RecentTickets, t)
		}
	}
	return stats, nil
}

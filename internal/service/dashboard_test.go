package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/deskhub/backend/internal/models"
)

type fakeTicketQueries struct {
	replied      []string
	repliedToday []string
	tickets      map[string]models.Ticket
}

func (f *fakeTicketQueries) RepliedTicketIDs(_ context.Context, _ string, since *time.Time, limit int) ([]string, error) {
	ids := f.replied
	if since != nil {
		ids = f.repliedToday
	}
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (f *fakeTicketQueries) CountTicketsInStatus(_ context.Context, ids []string, statuses []models.TicketStatus) (int, error) {
	want := map[models.TicketStatus]bool{}
	for _, s := range statuses {
		want[s] = true
	}
	count := 0
	for _, id := range ids {
		if t, ok := f.tickets[id]; ok && want[t.Status] {
			count++
		}
	}
	return count, nil
}

func (f *fakeTicketQueries) GetTicketsByIDs(_ context.Context, ids []string) ([]models.Ticket, error) {
	var out []models.Ticket
	// Deliberately reversed to prove the service restores recency order.
	for i := len(ids) - 1; i >= 0; i-- {
		if t, ok := f.tickets[ids[i]]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func TestAgentStats(t *testing.T) {
	store := &fakeTicketQueries{
		replied:      []string{"t1", "t2", "t3", "t4", "t5", "t6", "t7"},
		repliedToday: []string{"t1", "t3"},
		tickets: map[string]models.Ticket{
			"t1": {ID: "t1", Status: models.StatusOpen},
			"t2": {ID: "t2", Status: models.StatusInProgress},
			"t3": {ID: "t3", Status: models.StatusClosed},
			"t4": {ID: "t4", Status: models.StatusClosed},
			"t5": {ID: "t5", Status: models.StatusOpen},
			"t6": {ID: "t6", Status: models.StatusOpen},
			"t7": {ID: "t7", Status: models.StatusOpen},
		},
	}
	svc := &DashboardService{Store: store, Logger: zerolog.Nop()}

	stats, err := svc.AgentStats(context.Background(), "u1", time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.ActiveTicketsCount != 5 {
		t.Fatalf("expected 5 active tickets, got %d", stats.ActiveTicketsCount)
	}
	if stats.TicketsResolvedTodayCount != 1 {
		t.Fatalf("expected 1 resolved today, got %d", stats.TicketsResolvedTodayCount)
	}
	if len(stats.RecentTickets) != 5 {
		t.Fatalf("expected 5 recent tickets, got %d", len(stats.RecentTickets))
	}
	if stats.RecentTickets[0].ID != "t1" || stats.RecentTickets[4].ID != "t5" {
		t.Fatalf("recent tickets out of order: %+v", stats.RecentTickets)
	}
}

func TestAgentStatsEmpty(t *testing.T) {
	svc := &DashboardService{Store: &fakeTicketQueries{tickets: map[string]models.Ticket{}}, Logger: zerolog.Nop()}
	stats, err := svc.AgentStats(context.Background(), "u1", time.Now().UTC())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.ActiveTicketsCount != 0 || stats.TicketsResolvedTodayCount != 0 || len(stats.RecentTickets) != 0 {
		t.Fatalf("expected zero stats, got %+v", stats)
	}
}

package routing

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/deskhub/backend/internal/models"
)

type fakeTicketStore struct {
	tickets    map[string]models.Ticket
	counts     map[string]int
	countErrs  map[string]error
	getErr     error
	updateErr  error
	assignedTo map[string]string
	countCalls int
}

func (f *fakeTicketStore) GetTicket(_ context.Context, id string) (models.Ticket, error) {
	if f.getErr != nil {
		return models.Ticket{}, f.getErr
	}
	t, ok := f.tickets[id]
	if !ok {
		return models.Ticket{}, ErrNotFound
	}
	return t, nil
}

func (f *fakeTicketStore) UpdateTicketAssignee(_ context.Context, id string, agentID string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if f.assignedTo == nil {
		f.assignedTo = map[string]string{}
	}
	f.assignedTo[id] = agentID
	t := f.tickets[id]
	t.AssignedTo = &agentID
	f.tickets[id] = t
	return nil
}

func (f *fakeTicketStore) CountOpenTickets(_ context.Context, agentID string) (int, error) {
	f.countCalls++
	if err, ok := f.countErrs[agentID]; ok {
		return 0, err
	}
	return f.counts[agentID], nil
}

type fakeDirectory struct {
	teams       map[string]models.Team // keyed by focus area
	teamErr     error
	skills      map[string]models.Skill // keyed by lowercase name
	skillErr    error
	members     map[string][]string // team id -> user ids
	membersErr  error
	skilled     map[string][]string // skill id -> user ids holding it
	skilledErr  error
	coverage    map[string][2]int
	coverageErr error
}

func (f *fakeDirectory) FindTeamByFocusArea(_ context.Context, focusArea string) (models.Team, error) {
	if f.teamErr != nil {
		return models.Team{}, f.teamErr
	}
	t, ok := f.teams[focusArea]
	if !ok {
		return models.Team{}, ErrNotFound
	}
	return t, nil
}

func (f *fakeDirectory) FindSkillByName(_ context.Context, name string) (models.Skill, error) {
	if f.skillErr != nil {
		return models.Skill{}, f.skillErr
	}
	s, ok := f.skills[name]
	if !ok {
		return models.Skill{}, ErrNotFound
	}
	return s, nil
}

func (f *fakeDirectory) ListTeamMembers(_ context.Context, teamID string) ([]string, error) {
	if f.membersErr != nil {
		return nil, f.membersErr
	}
	return f.members[teamID], nil
}

func (f *fakeDirectory) ListSkilledUsers(_ context.Context, skillID string, candidates []string) ([]string, error) {
	if f.skilledErr != nil {
		return nil, f.skilledErr
	}
	holders := map[string]bool{}
	for _, u := range f.skilled[skillID] {
		holders[u] = true
	}
	var out []string
	for _, c := range candidates {
		if holders[c] {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeDirectory) GetTeamCoverage(_ context.Context, teamID string) (int, int, error) {
	if f.coverageErr != nil {
		return 0, 0, f.coverageErr
	}
	if c, ok := f.coverage[teamID]; ok {
		return c[0], c[1], nil
	}
	return 0, 23, nil
}

type fixedClock struct{ hour int }

func (c fixedClock) CurrentUTCHour() int { return c.hour }

func newEngine(ts *fakeTicketStore, dir *fakeDirectory, hour int) *Engine {
	return &Engine{
		Tickets:   ts,
		Directory: dir,
		Clock:     fixedClock{hour: hour},
		Logger:    zerolog.Nop(),
	}
}

func ticket(id string, priority models.Priority, tags []string) models.Ticket {
	return models.Ticket{
		ID:       id,
		Status:   models.StatusOpen,
		Priority: priority,
		Tags:     tags,
	}
}

func TestRouteTicket_HighPriorityBeatsBillingTag(t *testing.T) {
	ts := &fakeTicketStore{
		tickets: map[string]models.Ticket{
			"t1": ticket("t1", models.PriorityHigh, []string{"billing"}),
		},
		counts: map[string]int{"u1": 0},
	}
	dir := &fakeDirectory{
		teams: map[string]models.Team{
			"priority": {ID: "team-p", FocusArea: "priority"},
			"billing":  {ID: "team-b", FocusArea: "billing"},
			"general":  {ID: "team-g", FocusArea: "general"},
		},
		members: map[string][]string{"team-p": {"u1"}, "team-b": {"u2"}},
		skilled: map[string][]string{"sk-billing": {"u1", "u2"}},
		skills:  map[string]models.Skill{"billing": {ID: "sk-billing", Name: "billing"}},
	}

	out, err := newEngine(ts, dir, 12).RouteTicket(context.Background(), "t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.TeamID != "team-p" {
		t.Fatalf("expected priority team, got %s", out.TeamID)
	}
	if out.AgentID != "u1" {
		t.Fatalf("expected u1, got %s", out.AgentID)
	}
}

func TestRouteTicket_BillingTagRoutesToBillingTeam(t *testing.T) {
	ts := &fakeTicketStore{
		tickets: map[string]models.Ticket{
			"t1": ticket("t1", models.PriorityNormal, []string{"billing"}),
		},
		counts: map[string]int{"u2": 1},
	}
	dir := &fakeDirectory{
		teams: map[string]models.Team{
			"billing": {ID: "team-b", FocusArea: "billing"},
			"general": {ID: "team-g", FocusArea: "general"},
		},
		members: map[string][]string{"team-b": {"u2"}},
		skills:  map[string]models.Skill{"billing": {ID: "sk-billing", Name: "billing"}},
		skilled: map[string][]string{"sk-billing": {"u2"}},
	}

	out, err := newEngine(ts, dir, 12).RouteTicket(context.Background(), "t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.TeamID != "team-b" || out.AgentID != "u2" {
		t.Fatalf("expected billing team and u2, got %+v", out)
	}
}

func TestRouteTicket_FallsBackToGeneral(t *testing.T) {
	ts := &fakeTicketStore{
		tickets: map[string]models.Ticket{
			"t1": ticket("t1", models.PriorityNormal, nil),
		},
		counts: map[string]int{"u3": 0},
	}
	dir := &fakeDirectory{
		teams:   map[string]models.Team{"general": {ID: "team-g", FocusArea: "general"}},
		members: map[string][]string{"team-g": {"u3"}},
	}

	out, err := newEngine(ts, dir, 12).RouteTicket(context.Background(), "t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.TeamID != "team-g" || out.AgentID != "u3" {
		t.Fatalf("expected general team and u3, got %+v", out)
	}
}

func TestRouteTicket_NoGeneralTeamLeavesUnassigned(t *testing.T) {
	ts := &fakeTicketStore{
		tickets: map[string]models.Ticket{
			"t1": ticket("t1", models.PriorityNormal, nil),
		},
	}
	dir := &fakeDirectory{teams: map[string]models.Team{}}

	out, err := newEngine(ts, dir, 12).RouteTicket(context.Background(), "t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Reason != ReasonNoTeam {
		t.Fatalf("expected no_team, got %s", out.Reason)
	}
	if len(ts.assignedTo) != 0 {
		t.Fatalf("ticket should stay unassigned")
	}
}

func TestRouteTicket_HighPriorityWithoutPriorityTeamSkipsBilling(t *testing.T) {
	// Rule order is else-if: a high priority ticket never consults the
	// billing rule, even when it carries the billing tag.
	ts := &fakeTicketStore{
		tickets: map[string]models.Ticket{
			"t1": ticket("t1", models.PriorityHigh, []string{"billing"}),
		},
		counts: map[string]int{"u9": 0},
	}
	dir := &fakeDirectory{
		teams: map[string]models.Team{
			"billing": {ID: "team-b", FocusArea: "billing"},
			"general": {ID: "team-g", FocusArea: "general"},
		},
		members: map[string][]string{"team-g": {"u9"}, "team-b": {"u2"}},
		skills:  map[string]models.Skill{"billing": {ID: "sk-billing", Name: "billing"}},
		skilled: map[string][]string{"sk-billing": {"u9", "u2"}},
	}

	out, err := newEngine(ts, dir, 12).RouteTicket(context.Background(), "t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.TeamID != "team-g" {
		t.Fatalf("expected fallback to general, got %s", out.TeamID)
	}
}

func TestRouteTicket_SkillGateHasNoFallback(t *testing.T) {
	ts := &fakeTicketStore{
		tickets: map[string]models.Ticket{
			"t1": ticket("t1", models.PriorityNormal, []string{"java"}),
		},
		counts: map[string]int{"u1": 0, "u2": 0},
	}
	dir := &fakeDirectory{
		teams:   map[string]models.Team{"general": {ID: "team-g", FocusArea: "general"}},
		members: map[string][]string{"team-g": {"u1", "u2"}},
		skills:  map[string]models.Skill{"java": {ID: "sk-java", Name: "java"}},
		skilled: map[string][]string{"sk-java": {}},
	}

	out, err := newEngine(ts, dir, 12).RouteTicket(context.Background(), "t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Reason != ReasonNoSkilledCandidates {
		t.Fatalf("expected no_skilled_candidates, got %s", out.Reason)
	}
	if len(ts.assignedTo) != 0 {
		t.Fatalf("unskilled members must not receive the ticket")
	}
}

func TestRouteTicket_UnknownFirstTagSkipsSkillGate(t *testing.T) {
	// Only the first tag is consulted; a tag with no matching skill means
	// no gate at all, not a fallback to later tags.
	ts := &fakeTicketStore{
		tickets: map[string]models.Ticket{
			"t1": ticket("t1", models.PriorityNormal, []string{"nonsense", "java"}),
		},
		counts: map[string]int{"u1": 0},
	}
	dir := &fakeDirectory{
		teams:   map[string]models.Team{"general": {ID: "team-g", FocusArea: "general"}},
		members: map[string][]string{"team-g": {"u1"}},
		skills:  map[string]models.Skill{"java": {ID: "sk-java", Name: "java"}},
		skilled: map[string][]string{"sk-java": {}},
	}

	out, err := newEngine(ts, dir, 12).RouteTicket(context.Background(), "t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Assigned() || out.AgentID != "u1" {
		t.Fatalf("expected assignment without skill gate, got %+v", out)
	}
}

func TestRouteTicket_LoadBalancePicksLeastLoaded(t *testing.T) {
	ts := &fakeTicketStore{
		tickets: map[string]models.Ticket{
			"t1": ticket("t1", models.PriorityNormal, nil),
		},
		counts: map[string]int{"u1": 5, "u2": 2, "u3": 2},
	}
	dir := &fakeDirectory{
		teams:   map[string]models.Team{"general": {ID: "team-g", FocusArea: "general"}},
		members: map[string][]string{"team-g": {"u1", "u2", "u3"}},
	}

	out, err := newEngine(ts, dir, 12).RouteTicket(context.Background(), "t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// u2 and u3 tie at 2; the first-encountered candidate wins.
	if out.AgentID != "u2" {
		t.Fatalf("expected u2 on tie, got %s", out.AgentID)
	}
}

func TestRouteTicket_Idempotent(t *testing.T) {
	ts := &fakeTicketStore{
		tickets: map[string]models.Ticket{
			"t1": ticket("t1", models.PriorityNormal, nil),
		},
		counts: map[string]int{"u1": 0},
	}
	dir := &fakeDirectory{
		teams:   map[string]models.Team{"general": {ID: "team-g", FocusArea: "general"}},
		members: map[string][]string{"team-g": {"u1"}},
	}
	e := newEngine(ts, dir, 12)

	first, err := e.RouteTicket(context.Background(), "t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := e.RouteTicket(context.Background(), "t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Reason != ReasonAlreadyAssigned {
		t.Fatalf("expected already_assigned, got %s", second.Reason)
	}
	if second.AgentID != first.AgentID {
		t.Fatalf("second call changed the assignee: %s vs %s", second.AgentID, first.AgentID)
	}
}

func TestRouteTicket_NeverReassigns(t *testing.T) {
	existing := "u-existing"
	ts := &fakeTicketStore{
		tickets: map[string]models.Ticket{
			"t1": {ID: "t1", Status: models.StatusOpen, Priority: models.PriorityHigh, AssignedTo: &existing},
		},
	}
	dir := &fakeDirectory{
		teams:   map[string]models.Team{"priority": {ID: "team-p", FocusArea: "priority"}},
		members: map[string][]string{"team-p": {"u-better"}},
	}

	out, err := newEngine(ts, dir, 12).RouteTicket(context.Background(), "t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Reason != ReasonAlreadyAssigned || out.AgentID != existing {
		t.Fatalf("expected no-op on assigned ticket, got %+v", out)
	}
	if ts.countCalls != 0 {
		t.Fatalf("assigned ticket should not trigger workload lookups")
	}
}

func TestRouteTicket_CoverageHoursDoNotBlock(t *testing.T) {
	ts := &fakeTicketStore{
		tickets: map[string]models.Ticket{
			"t1": ticket("t1", models.PriorityNormal, nil),
		},
		counts: map[string]int{"u1": 0},
	}
	dir := &fakeDirectory{
		teams:    map[string]models.Team{"general": {ID: "team-g", FocusArea: "general"}},
		members:  map[string][]string{"team-g": {"u1"}},
		coverage: map[string][2]int{"team-g": {9, 17}},
	}

	// 03:00 UTC, well outside [9,17).
	out, err := newEngine(ts, dir, 3).RouteTicket(context.Background(), "t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Assigned() || out.AgentID != "u1" {
		t.Fatalf("coverage window must not block assignment, got %+v", out)
	}
}

func TestRouteTicket_ConcreteHighPriorityScenario(t *testing.T) {
	ts := &fakeTicketStore{
		tickets: map[string]models.Ticket{
			"t1": ticket("t1", models.PriorityHigh, nil),
		},
		counts: map[string]int{"u1": 3, "u2": 1},
	}
	dir := &fakeDirectory{
		teams:   map[string]models.Team{"priority": {ID: "team-a", FocusArea: "priority"}},
		members: map[string][]string{"team-a": {"u1", "u2"}},
	}

	out, err := newEngine(ts, dir, 12).RouteTicket(context.Background(), "t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.AgentID != "u2" {
		t.Fatalf("expected least-loaded u2, got %s", out.AgentID)
	}
	if got := ts.assignedTo["t1"]; got != "u2" {
		t.Fatalf("assignment not persisted, got %q", got)
	}
}

func TestRouteTicket_TicketNotFoundIsNoOp(t *testing.T) {
	ts := &fakeTicketStore{tickets: map[string]models.Ticket{}}
	dir := &fakeDirectory{}

	out, err := newEngine(ts, dir, 12).RouteTicket(context.Background(), "missing")
	if err != nil {
		t.Fatalf("not-found must not be an error: %v", err)
	}
	if out.Reason != ReasonTicketNotFound {
		t.Fatalf("expected ticket_not_found, got %s", out.Reason)
	}
}

func TestRouteTicket_FetchFailurePropagates(t *testing.T) {
	boom := errors.New("connection refused")
	ts := &fakeTicketStore{getErr: boom}
	dir := &fakeDirectory{}

	_, err := newEngine(ts, dir, 12).RouteTicket(context.Background(), "t1")
	if !errors.Is(err, boom) {
		t.Fatalf("expected fetch error to propagate, got %v", err)
	}
}

func TestRouteTicket_WriteFailurePropagates(t *testing.T) {
	boom := errors.New("connection reset")
	ts := &fakeTicketStore{
		tickets: map[string]models.Ticket{
			"t1": ticket("t1", models.PriorityNormal, nil),
		},
		updateErr: boom,
	}
	dir := &fakeDirectory{
		teams:   map[string]models.Team{"general": {ID: "team-g", FocusArea: "general"}},
		members: map[string][]string{"team-g": {"u1"}},
	}

	_, err := newEngine(ts, dir, 12).RouteTicket(context.Background(), "t1")
	if !errors.Is(err, boom) {
		t.Fatalf("expected write error to propagate, got %v", err)
	}
}

func TestRouteTicket_AuxiliaryFailuresFallOpen(t *testing.T) {
	boom := errors.New("store down")

	t.Run("team lookup", func(t *testing.T) {
		ts := &fakeTicketStore{tickets: map[string]models.Ticket{
			"t1": ticket("t1", models.PriorityNormal, nil),
		}}
		dir := &fakeDirectory{teamErr: boom}
		out, err := newEngine(ts, dir, 12).RouteTicket(context.Background(), "t1")
		if err != nil {
			t.Fatalf("auxiliary failure must not propagate: %v", err)
		}
		if out.Reason != ReasonNoTeam {
			t.Fatalf("expected no_team, got %s", out.Reason)
		}
	})

	t.Run("member lookup", func(t *testing.T) {
		ts := &fakeTicketStore{tickets: map[string]models.Ticket{
			"t1": ticket("t1", models.PriorityNormal, nil),
		}}
		dir := &fakeDirectory{
			teams:      map[string]models.Team{"general": {ID: "team-g", FocusArea: "general"}},
			membersErr: boom,
		}
		out, err := newEngine(ts, dir, 12).RouteTicket(context.Background(), "t1")
		if err != nil {
			t.Fatalf("auxiliary failure must not propagate: %v", err)
		}
		if out.Reason != ReasonNoCandidates {
			t.Fatalf("expected no_candidates, got %s", out.Reason)
		}
	})

	t.Run("workload count skips broken candidate", func(t *testing.T) {
		ts := &fakeTicketStore{
			tickets: map[string]models.Ticket{
				"t1": ticket("t1", models.PriorityNormal, nil),
			},
			counts:    map[string]int{"u2": 7},
			countErrs: map[string]error{"u1": boom},
		}
		dir := &fakeDirectory{
			teams:   map[string]models.Team{"general": {ID: "team-g", FocusArea: "general"}},
			members: map[string][]string{"team-g": {"u1", "u2"}},
		}
		out, err := newEngine(ts, dir, 12).RouteTicket(context.Background(), "t1")
		if err != nil {
			t.Fatalf("auxiliary failure must not propagate: %v", err)
		}
		if out.AgentID != "u2" {
			t.Fatalf("expected surviving candidate u2, got %+v", out)
		}
	})
}

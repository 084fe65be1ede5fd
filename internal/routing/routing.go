package routing

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/deskhub/backend/internal/models"
)

// ErrNotFound is returned by stores when a lookup matches no row. The engine
// treats it as a normal negative result, distinct from a transport failure.
var ErrNotFound = models.ErrNotFound

// TicketStore is the slice of ticket persistence the engine needs.
type TicketStore interface {
	GetTicket(ctx context.Context, id string) (models.Ticket, error)
	UpdateTicketAssignee(ctx context.Context, id string, agentID string) error
	// CountOpenTickets counts tickets assigned to the agent with status
	// open or in_progress.
	CountOpenTickets(ctx context.Context, agentID string) (int, error)
}

// DirectoryStore resolves teams, memberships and skills.
type DirectoryStore interface {
	// FindTeamByFocusArea matches focus area case-insensitively and returns
	// the first team in creation order when several share one.
	FindTeamByFocusArea(ctx context.Context, focusArea string) (models.Team, error)
	FindSkillByName(ctx context.Context, name string) (models.Skill, error)
	// ListTeamMembers returns member user ids ordered by user id.
	ListTeamMembers(ctx context.Context, teamID string) ([]string, error)
	// ListSkilledUsers narrows candidates to those holding the skill.
	ListSkilledUsers(ctx context.Context, skillID string, candidates []string) ([]string, error)
	GetTeamCoverage(ctx context.Context, teamID string) (startHour, endHour int, err error)
}

// Clock supplies the current UTC hour for the coverage window check.
type Clock interface {
	CurrentUTCHour() int
}

type Reason string

const (
	ReasonAssigned            Reason = "assigned"
	ReasonTicketNotFound      Reason = "ticket_not_found"
	ReasonAlreadyAssigned     Reason = "already_assigned"
	ReasonNoTeam              Reason = "no_team"
	ReasonNoCandidates        Reason = "no_candidates"
	ReasonNoSkilledCandidates Reason = "no_skilled_candidates"
)

// Outcome reports what routing did with a ticket. An unassigned outcome is a
// valid end state, not an error; the ticket stays visible for manual claim.
type Outcome struct {
	Reason  Reason `json:"reason"`
	AgentID string `json:"agent_id,omitempty"`
	TeamID  string `json:"team_id,omitempty"`
}

func (o Outcome) Assigned() bool { return o.Reason == ReasonAssigned }

const (
	focusPriority = "priority"
	focusBilling  = "billing"
	focusGeneral  = "general"

	tagBilling = "billing"
)

// Engine picks the best agent for an unassigned ticket. It is stateless
// across calls; every invocation reads fresh rows. There is no transaction
// around the workload read and the assignment write, so two concurrent
// routes can land on the same least-loaded agent.
type Engine struct {
	Tickets   TicketStore
	Directory DirectoryStore
	Clock     Clock
	Logger    zerolog.Logger
}

// RouteTicket assigns an agent to the ticket, or does nothing when no
// suitable agent exists. Calling it again on an assigned ticket is a no-op,
// so callers may retry freely after a returned error.
//
// Only the initial ticket fetch and the final assignee write surface errors.
// Team, skill, membership and workload lookups fail open: a broken lookup
// is logged and degrades to "no match", leaving the ticket unassigned.
func (e *Engine) RouteTicket(ctx context.Context, ticketID string) (Outcome, error) {
	ticket, err := e.Tickets.GetTicket(ctx, ticketID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			e.Logger.Warn().Str("ticket_id", ticketID).Msg("routing: no such ticket")
			return Outcome{Reason: ReasonTicketNotFound}, nil
		}
		return Outcome{}, err
	}
	if ticket.AssignedTo != nil && *ticket.AssignedTo != "" {
		return Outcome{Reason: ReasonAlreadyAssigned, AgentID: *ticket.AssignedTo}, nil
	}

	team, ok := e.selectTeam(ctx, ticket)
	if !ok {
		e.Logger.Info().Str("ticket_id", ticketID).Msg("routing: no team matched, ticket left unassigned")
		return Outcome{Reason: ReasonNoTeam}, nil
	}

	requiredSkill := e.requiredSkill(ctx, ticket)

	agentID, reason := e.pickAgent(ctx, team, requiredSkill)
	if reason != ReasonAssigned {
		e.Logger.Info().
			Str("ticket_id", ticketID).
			Str("team_id", team.ID).
			Str("reason", string(reason)).
			Msg("routing: no available agent")
		return Outcome{Reason: reason, TeamID: team.ID}, nil
	}

	if err := e.Tickets.UpdateTicketAssignee(ctx, ticketID, agentID); err != nil {
		return Outcome{}, err
	}

	e.Logger.Info().
		Str("ticket_id", ticketID).
		Str("team_id", team.ID).
		Str("agent_id", agentID).
		Msg("routing: ticket assigned")
	return Outcome{Reason: ReasonAssigned, AgentID: agentID, TeamID: team.ID}, nil
}

// selectTeam applies the routing rules in fixed order: high priority wins
// over a billing tag, and anything unmatched falls back to the general team.
func (e *Engine) selectTeam(ctx context.Context, ticket models.Ticket) (models.Team, bool) {
	if ticket.Priority == models.PriorityHigh {
		if team, ok := e.findTeam(ctx, focusPriority); ok {
			return team, true
		}
	} else if containsTag(ticket.Tags, tagBilling) {
		if team, ok := e.findTeam(ctx, focusBilling); ok {
			return team, true
		}
	}
	return e.findTeam(ctx, focusGeneral)
}

func (e *Engine) findTeam(ctx context.Context, focusArea string) (models.Team, bool) {
	team, err := e.Directory.FindTeamByFocusArea(ctx, focusArea)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			e.Logger.Error().Err(err).Str("focus_area", focusArea).Msg("routing: team lookup failed")
		}
		return models.Team{}, false
	}
	return team, true
}

// requiredSkill infers a skill from the first tag only. No skill with that
// name means no skill gate; the remaining tags are not consulted.
func (e *Engine) requiredSkill(ctx context.Context, ticket models.Ticket) *models.Skill {
	if len(ticket.Tags) == 0 {
		return nil
	}
	skill, err := e.Directory.FindSkillByName(ctx, ticket.Tags[0])
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			e.Logger.Error().Err(err).Str("tag", ticket.Tags[0]).Msg("routing: skill lookup failed")
		}
		return nil
	}
	return &skill
}

func (e *Engine) pickAgent(ctx context.Context, team models.Team, requiredSkill *models.Skill) (string, Reason) {
	candidates, err := e.Directory.ListTeamMembers(ctx, team.ID)
	if err != nil {
		e.Logger.Error().Err(err).Str("team_id", team.ID).Msg("routing: member lookup failed")
		return "", ReasonNoCandidates
	}
	if len(candidates) == 0 {
		return "", ReasonNoCandidates
	}

	if requiredSkill != nil {
		skilled, err := e.Directory.ListSkilledUsers(ctx, requiredSkill.ID, candidates)
		if err != nil {
			e.Logger.Error().Err(err).Str("skill_id", requiredSkill.ID).Msg("routing: skill filter failed")
			return "", ReasonNoSkilledCandidates
		}
		if len(skilled) == 0 {
			return "", ReasonNoSkilledCandidates
		}
		candidates = skilled
	}

	e.checkCoverage(ctx, team)

	// Least loaded wins; ties go to the earlier candidate in member order.
	bestAgent := ""
	bestCount := 0
	for _, id := range candidates {
		count, err := e.Tickets.CountOpenTickets(ctx, id)
		if err != nil {
			e.Logger.Error().Err(err).Str("agent_id", id).Msg("routing: workload count failed, skipping candidate")
			continue
		}
		if bestAgent == "" || count < bestCount {
			bestAgent = id
			bestCount = count
		}
	}
	if bestAgent == "" {
		return "", ReasonNoCandidates
	}
	return bestAgent, ReasonAssigned
}

// checkCoverage evaluates the team's coverage window against the current UTC
// hour. Out-of-coverage does not exclude the team: assignment proceeds and
// the miss is only logged.
// TODO: enforce the window once product decides what out-of-hours tickets
// should do instead.
func (e *Engine) checkCoverage(ctx context.Context, team models.Team) {
	start, end, err := e.Directory.GetTeamCoverage(ctx, team.ID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			e.Logger.Error().Err(err).Str("team_id", team.ID).Msg("routing: coverage lookup failed")
		}
		return
	}
	hour := e.Clock.CurrentUTCHour()
	if hour < start || hour >= end {
		e.Logger.Info().
			Str("team_id", team.ID).
			Int("hour", hour).
			Int("coverage_start", start).
			Int("coverage_end", end).
			Msg("routing: assigning outside team coverage hours")
	}
}

// containsTag is an exact, case-sensitive membership test. Team focus areas
// match case-insensitively but tag matching mirrors the tag as stored.
func containsTag(tags []string, target string) bool {
	for _, t := range tags {
		if t == target {
			return true
		}
	}
	return false
}

// UTCClock reads the wall clock.
type UTCClock struct{}

func (UTCClock) CurrentUTCHour() int {
	return time.Now().UTC().Hour()
}

package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/deskhub/backend/internal/models"
)

const ticketColumns = `id, user_id, title, description, status, priority, tags, assigned_to, created_at`

func scanTicket(row pgx.Row) (models.Ticket, error) {
	var (
		t        models.Ticket
		status   string
		priority *string
		tags     []string
	)
	if err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &status, &priority, &tags, &t.AssignedTo, &t.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Ticket{}, models.ErrNotFound
		}
		return models.Ticket{}, err
	}
	t.Status = models.ParseTicketStatus(status)
	if priority != nil {
		t.Priority = models.ParsePriority(*priority)
	}
	t.Tags = tags
	return t, nil
}

func (s *Store) CreateTicket(ctx context.Context, t models.Ticket) (string, error) {
	id := uuid.NewString()
	var priority *string
	if p := t.Priority.String(); p != "" {
		priority = &p
	}
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO tickets (id, user_id, title, description, status, priority, tags, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, id, t.UserID, t.Title, t.Description, models.StatusOpen.String(), priority, t.Tags, time.Now().UTC())
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) GetTicket(ctx context.Context, id string) (models.Ticket, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = $1`, id)
	return scanTicket(row)
}

type TicketFilter struct {
	Status     models.TicketStatus
	Priority   models.Priority
	AssignedTo string
	// UserIDs scopes results to tickets owned by these users; empty means
	// no owner restriction (administrator view).
	UserIDs []string
	Search  string
	Limit   int
	Offset  int
}

func (s *Store) ListTickets(ctx context.Context, f TicketFilter) ([]models.Ticket, error) {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	query := `SELECT ` + ticketColumns + ` FROM tickets`
	var args []any
	var wheres []string
	if f.Status != models.StatusUnknown {
		args = append(args, f.Status.String())
		wheres = append(wheres, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Priority != models.PriorityUnset {
		args = append(args, f.Priority.String())
		wheres = append(wheres, fmt.Sprintf("priority = $%d", len(args)))
	}
	if f.AssignedTo != "" {
		args = append(args, f.AssignedTo)
		wheres = append(wheres, fmt.Sprintf("assigned_to = $%d", len(args)))
	}
	if len(f.UserIDs) > 0 {
		args = append(args, f.UserIDs)
		wheres = append(wheres, fmt.Sprintf("user_id = ANY($%d)", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		wheres = append(wheres, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}
	if len(wheres) > 0 {
		query += " WHERE " + strings.Join(wheres, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, f.Limit, f.Offset)

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) UpdateTicketAssignee(ctx context.Context, id string, agentID string) error {
	_, err := s.Pool.Exec(ctx, `UPDATE tickets SET assigned_to = $1 WHERE id = $2`, agentID, id)
	return err
}

type TicketUpdate struct {
	Status     *models.TicketStatus
	Priority   *models.Priority
	Tags       []string
	AssignedTo *string
}

func (s *Store) UpdateTicket(ctx context.Context, id string, u TicketUpdate) error {
	var sets []string
	var args []any
	if u.Status != nil {
		args = append(args, u.Status.String())
		sets = append(sets, fmt.Sprintf("status = $%d", len(args)))
	}
	if u.Priority != nil {
		args = append(args, u.Priority.String())
		sets = append(sets, fmt.Sprintf("priority = $%d", len(args)))
	}
	if u.Tags != nil {
		args = append(args, u.Tags)
		sets = append(sets, fmt.Sprintf("tags = $%d", len(args)))
	}
	if u.AssignedTo != nil {
		args = append(args, *u.AssignedTo)
		sets = append(sets, fmt.Sprintf("assigned_to = $%d", len(args)))
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	query := fmt.Sprintf("UPDATE tickets SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	tag, err := s.Pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ClaimTicket assigns the ticket to the agent and moves it to in_progress in
// one conditional write, so two agents cannot both claim it.
func (s *Store) ClaimTicket(ctx context.Context, id string, agentID string) error {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE tickets SET assigned_to = $1, status = $2
		WHERE id = $3 AND assigned_to IS NULL
	`, agentID, models.StatusInProgress.String(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *Store) CountOpenTickets(ctx context.Context, agentID string) (int, error) {
	var count int
	err := s.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM tickets
		WHERE assigned_to = $1 AND status = ANY($2)
	`, agentID, []string{models.StatusOpen.String(), models.StatusInProgress.String()}).Scan(&count)
	return count, err
}

func (s *Store) InsertReply(ctx context.Context, r models.TicketReply) (string, error) {
	id := uuid.NewString()
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO ticket_replies (id, ticket_id, user_id, reply_text, is_internal, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, id, r.TicketID, r.UserID, r.ReplyText, r.IsInternal, time.Now().UTC())
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) ListReplies(ctx context.Context, ticketID string, includeInternal bool) ([]models.TicketReply, error) {
	query := `
		SELECT id, ticket_id, user_id, reply_text, is_internal, created_at
		FROM ticket_replies WHERE ticket_id = $1`
	if !includeInternal {
		query += ` AND is_internal = FALSE`
	}
	query += ` ORDER BY created_at ASC`

	rows, err := s.Pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TicketReply
	for rows.Next() {
		var r models.TicketReply
		if err := rows.Scan(&r.ID, &r.TicketID, &r.UserID, &r.ReplyText, &r.IsInternal, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) InsertFeedback(ctx context.Context, f models.TicketFeedback) (string, error) {
	id := uuid.NewString()
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO ticket_feedback (id, ticket_id, user_id, rating, comment, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, id, f.TicketID, f.UserID, f.Rating, f.Comment, time.Now().UTC())
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) InsertResponseDraft(ctx context.Context, d models.ResponseDraft) (string, error) {
	id := uuid.NewString()
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO response_drafts (id, ticket_id, content, created_by, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, id, d.TicketID, d.Content, d.CreatedBy, time.Now().UTC())
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) GetResponseDraft(ctx context.Context, id string) (models.ResponseDraft, error) {
	var d models.ResponseDraft
	err := s.Pool.QueryRow(ctx, `
		SELECT id, ticket_id, content, created_by, created_at
		FROM response_drafts WHERE id = $1
	`, id).Scan(&d.ID, &d.TicketID, &d.Content, &d.CreatedBy, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ResponseDraft{}, models.ErrNotFound
		}
		return models.ResponseDraft{}, err
	}
	return d, nil
}

// RepliedTicketIDs returns distinct ticket ids the user has replied to,
// newest reply first, optionally restricted to replies at or after since.
func (s *Store) RepliedTicketIDs(ctx context.Context, userID string, since *time.Time, limit int) ([]string, error) {
	query := `
		SELECT ticket_id, MAX(created_at) AS last_reply
		FROM ticket_replies WHERE user_id = $1`
	args := []any{userID}
	if since != nil {
		args = append(args, *since)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	query += ` GROUP BY ticket_id ORDER BY last_reply DESC`
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		var last time.Time
		if err := rows.Scan(&id, &last); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *Store) CountTicketsInStatus(ctx context.Context, ids []string, statuses []models.TicketStatus) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	names := make([]string, 0, len(statuses))
	for _, st := range statuses {
		names = append(names, st.String())
	}
	var count int
	err := s.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM tickets WHERE id = ANY($1) AND status = ANY($2)
	`, ids, names).Scan(&count)
	return count, err
}

func (s *Store) GetTicketsByIDs(ctx context.Context, ids []string) ([]models.Ticket, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.Pool.Query(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

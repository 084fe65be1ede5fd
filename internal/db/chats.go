package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/deskhub/backend/internal/models"
)

func (s *Store) CreateLiveChat(ctx context.Context, userID string) (string, error) {
	id := uuid.NewString()
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO live_chats (id, user_id, is_connected_to_agent, created_at)
		VALUES ($1,$2,FALSE,$3)
	`, id, userID, time.Now().UTC())
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) GetLiveChat(ctx context.Context, id string) (models.LiveChat, error) {
	var c models.LiveChat
	err := s.Pool.QueryRow(ctx, `
		SELECT id, user_id, agent_id, is_connected_to_agent, created_at, closed_at
		FROM live_chats WHERE id = $1
	`, id).Scan(&c.ID, &c.UserID, &c.AgentID, &c.IsConnectedToAgent, &c.CreatedAt, &c.ClosedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.LiveChat{}, models.ErrNotFound
		}
		return models.LiveChat{}, err
	}
	return c, nil
}

// ListLiveChats returns open chats; userID narrows to one customer's chats.
func (s *Store) ListLiveChats(ctx context.Context, userID string) ([]models.LiveChat, error) {
	query := `
		SELECT id, user_id, agent_id, is_connected_to_agent, created_at, closed_at
		FROM live_chats WHERE closed_at IS NULL`
	var args []any
	if userID != "" {
		args = append(args, userID)
		query += ` AND user_id = $1`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.LiveChat
	for rows.Next() {
		var c models.LiveChat
		if err := rows.Scan(&c.ID, &c.UserID, &c.AgentID, &c.IsConnectedToAgent, &c.CreatedAt, &c.ClosedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ConnectAgent joins an agent to the chat; once connected the assistant stops
// answering. Conditional on no agent being connected yet.
func (s *Store) ConnectAgent(ctx context.Context, chatID, agentID string) error {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE live_chats SET agent_id = $1, is_connected_to_agent = TRUE
		WHERE id = $2 AND is_connected_to_agent = FALSE AND closed_at IS NULL
	`, agentID, chatID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *Store) CloseLiveChat(ctx context.Context, chatID string) error {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE live_chats SET closed_at = NOW() WHERE id = $1 AND closed_at IS NULL
	`, chatID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *Store) InsertChatMessage(ctx context.Context, m models.LiveChatMessage) (string, error) {
	id := uuid.NewString()
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO live_chat_messages (id, live_chat_id, user_id, role, message_text, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, id, m.LiveChatID, m.UserID, string(m.Role), m.MessageText, time.Now().UTC())
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) ListChatMessages(ctx context.Context, chatID string) ([]models.LiveChatMessage, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, live_chat_id, user_id, role, message_text, created_at
		FROM live_chat_messages WHERE live_chat_id = $1
		ORDER BY created_at ASC
	`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.LiveChatMessage
	for rows.Next() {
		var m models.LiveChatMessage
		var role string
		if err := rows.Scan(&m.ID, &m.LiveChatID, &m.UserID, &role, &m.MessageText, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Role = models.ChatRole(role)
		out = append(out, m)
	}
	return out, rows.Err()
}

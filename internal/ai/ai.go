package ai

import (
	"context"

	"github.com/deskhub/backend/internal/models"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Assistant is the LLM surface the CRM uses: live chat replies, draft
// responses for agents, draft grading, thread summaries, and priority
// classification of incoming messages.
type Assistant interface {
	Chat(ctx context.Context, history []ChatMessage) (string, error)
	DraftReply(ctx context.Context, conversation string) (string, error)
	GradeReply(ctx context.Context, contextText, userMessage, draftReply string) (models.ResponseGrade, error)
	Summarize(ctx context.Context, conversation string) (string, error)
	ClassifyPriority(ctx context.Context, content string) (models.Priority, error)
}

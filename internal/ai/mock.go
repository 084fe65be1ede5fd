package ai

import (
	"context"
	"fmt"

	"github.com/deskhub/backend/internal/models"
	"github.com/deskhub/backend/internal/utils"
)

// MockAssistant produces deterministic canned output for local development
// and tests, keyed off a hash of the input so repeated calls agree.
type MockAssistant struct {
	ModelVersion string
}

func (m MockAssistant) Chat(ctx context.Context, history []ChatMessage) (string, error) {
	if len(history) == 0 {
		return "Hello! How can I help you today?", nil
	}
	last := history[len(history)-1]
	return fmt.Sprintf("Thanks for reaching out. I understand your message: %q. An agent will follow up if I could not resolve this.", truncate(last.Content, 80)), nil
}

func (m MockAssistant) DraftReply(ctx context.Context, conversation string) (string, error) {
	return "Hello,\n\nThank you for contacting support. We are looking into your request and will follow up with next steps shortly.\n\nBest regards,\nSupport Team", nil
}

func (m MockAssistant) GradeReply(ctx context.Context, contextText, userMessage, draftReply string) (models.ResponseGrade, error) {
	h := utils.HashStringToUint64(draftReply)
	return models.ResponseGrade{
		QualityScore:  int(h%3) + 3,
		AccuracyScore: int(h/7%3) + 3,
		Summary:       fmt.Sprintf("Mock grade (%s)", m.ModelVersion),
		Concerns:      []string{},
	}, nil
}

func (m MockAssistant) Summarize(ctx context.Context, conversation string) (string, error) {
	return fmt.Sprintf("**Main Issue/Request**\nAuto-summary of %d characters of conversation.", len(conversation)), nil
}

func (m MockAssistant) ClassifyPriority(ctx context.Context, content string) (models.Priority, error) {
	priorities := []models.Priority{models.PriorityLow, models.PriorityNormal, models.PriorityHigh, models.PriorityUrgent}
	// Reduce in uint64 space; converting the full-range hash to int first
	// can go negative and blow up the index.
	h := utils.HashStringToUint64(content)
	return priorities[h%uint64(len(priorities))], nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

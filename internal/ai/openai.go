package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/deskhub/backend/internal/models"
)

type RateLimitError struct {
	RetryAfter time.Duration
}

func (r RateLimitError) Error() string {
	if r.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry after %s", r.RetryAfter)
	}
	return "rate limited"
}

// OpenAIAssistant talks to an OpenAI-compatible chat completion endpoint.
type OpenAIAssistant struct {
	client    *openai.Client
	model     string
	maxTokens int

	cacheMu    sync.Mutex
	cacheStore map[string]cacheEntry
}

type cacheEntry struct {
	value string
	exp   time.Time
}

const cacheTTL = 60 * time.Second

func NewOpenAIAssistant(apiKey, baseURL, model string, maxTokens int) *OpenAIAssistant {
	client := openai.NewClient(apiKey)
	if baseURL != "" {
		cfg := openai.DefaultConfig(apiKey)
		cfg.BaseURL = baseURL
		client = openai.NewClientWithConfig(cfg)
	}
	if model == "" {
		model = openai.GPT4o
	}
	return &OpenAIAssistant{
		client:     client,
		model:      model,
		maxTokens:  maxTokens,
		cacheStore: map[string]cacheEntry{},
	}
}

func (a *OpenAIAssistant) Chat(ctx context.Context, history []ChatMessage) (string, error) {
	messages := []openai.ChatCompletionMessage{{
		Role:    openai.ChatMessageRoleSystem,
		Content: chatSystemPrompt,
	}}
	for _, m := range history {
		role := openai.ChatMessageRoleUser
		if m.Role == string(models.ChatRoleAssistant) || m.Role == string(models.ChatRoleAgent) {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return a.complete(ctx, messages, 0.7)
}

func (a *OpenAIAssistant) DraftReply(ctx context.Context, conversation string) (string, error) {
	return a.prompt(ctx, fmt.Sprintf(responderPrompt, conversation), 0.7)
}

func (a *OpenAIAssistant) GradeReply(ctx context.Context, contextText, userMessage, draftReply string) (models.ResponseGrade, error) {
	raw, err := a.prompt(ctx, fmt.Sprintf(graderPrompt, contextText, userMessage, draftReply), 0.2)
	if err != nil {
		return models.ResponseGrade{}, err
	}
	return parseGrade(raw), nil
}

func (a *OpenAIAssistant) Summarize(ctx context.Context, conversation string) (string, error) {
	return a.prompt(ctx, fmt.Sprintf(summaryPrompt, conversation), 0.3)
}

func (a *OpenAIAssistant) ClassifyPriority(ctx context.Context, content string) (models.Priority, error) {
	raw, err := a.prompt(ctx, fmt.Sprintf(priorityPrompt, content), 0)
	if err != nil {
		return models.PriorityUnset, err
	}
	return classifyPriorityAnswer(raw), nil
}

func (a *OpenAIAssistant) prompt(ctx context.Context, prompt string, temperature float32) (string, error) {
	if v, ok := a.cacheGet(prompt); ok {
		return v, nil
	}
	answer, err := a.complete(ctx, []openai.ChatCompletionMessage{{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	}}, temperature)
	if err != nil {
		return "", err
	}
	a.cacheSet(prompt, answer)
	return answer, nil
}

func (a *OpenAIAssistant) complete(ctx context.Context, messages []openai.ChatCompletionMessage, temperature float32) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       a.model,
		Messages:    messages,
		Temperature: temperature,
	}
	if a.maxTokens > 0 {
		req.MaxTokens = a.maxTokens
	}
	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == 429 {
			return "", RateLimitError{}
		}
		return "", fmt.Errorf("assistant request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty assistant response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// parseGrade decodes the grader's JSON verdict, falling back to a neutral
// 3/3 grade when the model returned malformed or out-of-range output.
func parseGrade(raw string) models.ResponseGrade {
	neutral := models.ResponseGrade{
		QualityScore:  3,
		AccuracyScore: 3,
		Summary:       "Parsing error, fallback to 3/3",
		Concerns:      []string{},
	}

	raw = strings.TrimSpace(raw)
	// Models sometimes wrap JSON in a code fence.
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var grade models.ResponseGrade
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &grade); err != nil {
		return neutral
	}
	if grade.QualityScore < 1 || grade.QualityScore > 5 || grade.AccuracyScore < 1 || grade.AccuracyScore > 5 {
		neutral.Summary = "Invalid schema, fallback to 3/3"
		return neutral
	}
	if grade.Concerns == nil {
		grade.Concerns = []string{}
	}
	return grade
}

// classifyPriorityAnswer accepts only the four known words; anything else
// falls back to normal.
func classifyPriorityAnswer(raw string) models.Priority {
	p := models.ParsePriority(raw)
	if p == models.PriorityUnset {
		return models.PriorityNormal
	}
	return p
}

func (a *OpenAIAssistant) cacheGet(key string) (string, bool) {
	a.cacheMu.Lock()
	defer a.cacheMu.Unlock()
	if e, ok := a.cacheStore[key]; ok {
		if time.Now().Before(e.exp) {
			return e.value, true
		}
		delete(a.cacheStore, key)
	}
	return "", false
}

func (a *OpenAIAssistant) cacheSet(key, value string) {
	a.cacheMu.Lock()
	defer a.cacheMu.Unlock()
	a.cacheStore[key] = cacheEntry{
		value: value,
		exp:   time.Now().Add(cacheTTL),
	}
}

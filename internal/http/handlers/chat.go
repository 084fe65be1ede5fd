package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/deskhub/backend/internal/ai"
	"github.com/deskhub/backend/internal/models"
)

func (h *Handler) ChatCreate(c *gin.Context) {
	p := profileFrom(c)
	id, err := h.Store.CreateLiveChat(c.Request.Context(), p.ID)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to open chat", err.Error())
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *Handler) ChatsList(c *gin.Context) {
	p := profileFrom(c)
	userID := p.ID
	if p.Agent() {
		// Agents see the whole open-chat queue.
		userID = ""
	}
	chats, err := h.Store.ListLiveChats(c.Request.Context(), userID)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list chats", err.Error())
		return
	}
	if chats == nil {
		chats = []models.LiveChat{}
	}
	c.JSON(http.StatusOK, gin.H{"items": chats})
}

func (h *Handler) chatForCaller(c *gin.Context) (models.LiveChat, bool) {
	chat, err := h.Store.GetLiveChat(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Chat not found", nil)
			return models.LiveChat{}, false
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to get chat", err.Error())
		return models.LiveChat{}, false
	}
	p := profileFrom(c)
	if chat.UserID != p.ID && !p.Agent() {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Chat not found", nil)
		return models.LiveChat{}, false
	}
	return chat, true
}

func (h *Handler) ChatDetails(c *gin.Context) {
	chat, ok := h.chatForCaller(c)
	if !ok {
		return
	}
	messages, err := h.Store.ListChatMessages(c.Request.Context(), chat.ID)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load messages", err.Error())
		return
	}
	if messages == nil {
		messages = []models.LiveChatMessage{}
	}
	c.JSON(http.StatusOK, gin.H{"chat": chat, "messages": messages})
}

type ChatMessageRequest struct {
	Message string `json:"message" validate:"required"`
}

// ChatMessage appends a message to the chat. Until an agent connects, the
// assistant answers customer messages; once connected it stays silent.
func (h *Handler) ChatMessage(c *gin.Context) {
	var req ChatMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	chat, ok := h.chatForCaller(c)
	if !ok {
		return
	}
	if chat.ClosedAt != nil {
		writeError(c, http.StatusConflict, "CHAT_CLOSED", "Chat is closed", nil)
		return
	}

	p := profileFrom(c)
	role := models.ChatRoleCustomer
	if p.ID != chat.UserID {
		role = models.ChatRoleAgent
	}

	id, err := h.Store.InsertChatMessage(c.Request.Context(), models.LiveChatMessage{
		LiveChatID:  chat.ID,
		UserID:      p.ID,
		Role:        role,
		MessageText: req.Message,
	})
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to save message", err.Error())
		return
	}

	resp := gin.H{"id": id}
	if role == models.ChatRoleCustomer && !chat.IsConnectedToAgent {
		if reply, ok := h.assistantReply(c, chat.ID); ok {
			resp["assistant_reply"] = reply
		}
	}
	c.JSON(http.StatusCreated, resp)
}

// assistantReply generates and stores the assistant's answer. Failures are
// logged and swallowed; the customer's message is already saved.
func (h *Handler) assistantReply(c *gin.Context, chatID string) (string, bool) {
	messages, err := h.Store.ListChatMessages(c.Request.Context(), chatID)
	if err != nil {
		h.Logger.Error().Err(err).Str("chat_id", chatID).Msg("chat history load failed")
		return "", false
	}

	history := make([]ai.ChatMessage, 0, len(messages))
	for _, m := range messages {
		history = append(history, ai.ChatMessage{Role: string(m.Role), Content: m.MessageText})
	}

	reply, err := h.Assistant.Chat(c.Request.Context(), history)
	if err != nil {
		h.Logger.Error().Err(err).Str("chat_id", chatID).Msg("assistant chat failed")
		return "", false
	}

	if _, err := h.Store.InsertChatMessage(c.Request.Context(), models.LiveChatMessage{
		LiveChatID:  chatID,
		UserID:      "",
		Role:        models.ChatRoleAssistant,
		MessageText: reply,
	}); err != nil {
		h.Logger.Error().Err(err).Str("chat_id", chatID).Msg("assistant message save failed")
		return "", false
	}
	return reply, true
}

func (h *Handler) ChatConnect(c *gin.Context) {
	p := profileFrom(c)
	err := h.Store.ConnectAgent(c.Request.Context(), c.Param("id"), p.ID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			writeError(c, http.StatusConflict, "ALREADY_CONNECTED", "Chat already has an agent or is closed", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to join chat", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) ChatClose(c *gin.Context) {
	chat, ok := h.chatForCaller(c)
	if !ok {
		return
	}
	if err := h.Store.CloseLiveChat(c.Request.Context(), chat.ID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			writeError(c, http.StatusConflict, "CHAT_CLOSED", "Chat is already closed", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to close chat", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

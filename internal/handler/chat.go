package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/PDPyeh/AeroCatalog-103-C/internal/model"
	"github.com/PDPyeh/AeroCatalog-103-C/internal/service"
)

// ChatHandler serves the API-key protected chatbot endpoints.
type ChatHandler struct {
	chat   *service.ChatService
	logger *slog.Logger
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chat *service.ChatService, logger *slog.Logger) *ChatHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatHandler{chat: chat, logger: logger}
}

type sessionList struct {
	Success bool `json:"success"`
	*model.SessionList
}

// messageView is the history projection of a stored message.
type messageView struct {
	ID        int64      `json:"id"`
	Role      model.Role `json:"role"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"createdAt"`
}

// CreateSession opens a new chat session for the key's owner.
// POST /api/chat/sessions
func (h *ChatHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req model.CreateSessionRequest
	if err := readOptionalJSON(r, &req); err != nil {
		writeBodyError(w, err)
		return
	}

	session, err := h.chat.CreateSession(r.Context(), identity(r).ID, req.Title)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Chat session")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"session": session,
	})
}

// ListSessions returns the owner's sessions with the quota figures.
// GET /api/chat/sessions
func (h *ChatHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	list, err := h.chat.ListSessions(r.Context(), identity(r).ID)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Chat session")
		return
	}
	writeJSON(w, http.StatusOK, sessionList{Success: true, SessionList: list})
}

// Messages returns a session's history in creation order.
// GET /api/chat/sessions/{sessionId}/messages
func (h *ChatHandler) Messages(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathID(r, "sessionId")
	if !ok {
		writeError(w, http.StatusNotFound, "Chat session not found")
		return
	}

	msgs, err := h.chat.GetMessages(r.Context(), identity(r).ID, sessionID)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Chat session")
		return
	}

	out := make([]messageView, len(msgs))
	for i, m := range msgs {
		out[i] = messageView{ID: m.ID, Role: m.Role, Content: m.Content, CreatedAt: m.CreatedAt}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"messages": out,
	})
}

// Send runs one conversation turn.
// POST /api/chat
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req model.ChatRequest
	if err := readJSON(r, &req); err != nil {
		writeBodyError(w, err)
		return
	}

	turn, err := h.chat.SendMessage(r.Context(), identity(r).ID, req.SessionID, req.Message)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Chat session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":          true,
		"userMessage":      turn.UserMessage,
		"assistantMessage": turn.AssistantMessage,
	})
}

// DeleteSession removes a session and its messages.
// DELETE /api/chat/sessions/{sessionId}
func (h *ChatHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathID(r, "sessionId")
	if !ok {
		writeError(w, http.StatusNotFound, "Chat session not found")
		return
	}
	if err := h.chat.DeleteSession(r.Context(), identity(r).ID, sessionID); err != nil {
		writeServiceError(w, r, h.logger, err, "Chat session")
		return
	}
	writeMessage(w, "Chat session deleted")
}

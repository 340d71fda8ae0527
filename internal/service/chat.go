package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PDPyeh/AeroCatalog-103-C/internal/inference"
	"github.com/PDPyeh/AeroCatalog-103-C/internal/model"
	"github.com/PDPyeh/AeroCatalog-103-C/internal/store"
)

// ChatService manages chat sessions and runs conversation turns against the
// inference endpoint.
type ChatService struct {
	store       *store.Store
	completer   inference.Completer
	maxSessions int
	titleLength int
	logger      *slog.Logger
}

func NewChatService(st *store.Store, completer inference.Completer, maxSessions, titleLength int, logger *slog.Logger) *ChatService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatService{
		store:       st,
		completer:   completer,
		maxSessions: maxSessions,
		titleLength: titleLength,
		logger:      logger,
	}
}

// MaxSessions returns the per-developer session limit.
func (s *ChatService) MaxSessions() int {
	return s.maxSessions
}

// CreateSession opens a new session for ownerID. Every existing session
// counts toward the limit.
func (s *ChatService) CreateSession(ctx context.Context, ownerID int64, title string) (*model.ChatSession, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = model.DefaultSessionTitle
	}

	session := &model.ChatSession{DeveloperID: ownerID, Title: title}
	if err := s.store.CreateChatSessionWithinLimit(ctx, session, s.maxSessions); err != nil {
		var limitErr *store.LimitError
		switch {
		case errors.As(err, &limitErr):
			return nil, &QuotaError{Resource: "chat_sessions", Current: limitErr.Current, Limit: limitErr.Limit}
		case errors.Is(err, store.ErrNotFound):
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("create chat session: %w", err)
	}
	s.logger.Info("chat session created", "user_id", ownerID, "session_id", session.ID)
	return session, nil
}

// ListSessions returns ownerID's sessions, newest first.
func (s *ChatService) ListSessions(ctx context.Context, ownerID int64) (*model.SessionList, error) {
	sessions, err := s.store.ListChatSessions(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return &model.SessionList{
		Sessions:     sessions,
		SessionCount: len(sessions),
		MaxSessions:  s.maxSessions,
	}, nil
}

// GetMessages returns the messages of one of ownerID's sessions in creation
// order.
func (s *ChatService) GetMessages(ctx context.Context, ownerID, sessionID int64) ([]model.ChatMessage, error) {
	if _, err := s.ownedSession(ctx, ownerID, sessionID); err != nil {
		return nil, err
	}
	return s.store.ListChatMessages(ctx, sessionID)
}

// DeleteSession removes one of ownerID's sessions and all of its messages.
func (s *ChatService) DeleteSession(ctx context.Context, ownerID, sessionID int64) error {
	if err := s.store.DeleteChatSession(ctx, ownerID, sessionID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete chat session: %w", err)
	}
	s.logger.Info("chat session deleted", "user_id", ownerID, "session_id", sessionID)
	return nil
}

// SendMessage runs one conversation turn. The user message and the reply are
// stored together only after the endpoint has answered; if it fails nothing
// is stored. The first turn of a session also renames it after the opening
// user text.
func (s *ChatService) SendMessage(ctx context.Context, ownerID, sessionID int64, text string) (*model.ChatTurn, error) {
	if sessionID <= 0 || strings.TrimSpace(text) == "" {
		return nil, invalid("message", "Session ID and message are required")
	}

	if _, err := s.ownedSession(ctx, ownerID, sessionID); err != nil {
		return nil, err
	}

	prior, err := s.store.ListChatMessages(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	// A client disconnect must not abandon a turn half way; the completer
	// applies its own timeout.
	completion, err := s.completer.Complete(context.WithoutCancel(ctx), inference.BuildPrompt(prior, text))
	if err != nil {
		s.logger.Warn("chat turn failed", "user_id", ownerID, "session_id", sessionID, "error", err)
		return nil, ErrUpstreamUnavailable
	}

	turn := &model.ChatTurn{
		UserMessage: model.ChatMessage{
			SessionID: sessionID,
			Role:      model.RoleUser,
			Content:   text,
		},
		AssistantMessage: model.ChatMessage{
			SessionID: sessionID,
			Role:      model.RoleAssistant,
			Content:   completion.Content,
			Tokens:    completion.Tokens,
		},
	}

	// The store applies the title only if this turn is the session's first.
	title := truncateRunes(text, s.titleLength)
	if err := s.store.SaveTurn(context.WithoutCancel(ctx), turn, title); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("save chat turn: %w", err)
	}
	return turn, nil
}

func (s *ChatService) ownedSession(ctx context.Context, ownerID, sessionID int64) (*model.ChatSession, error) {
	session, err := s.store.GetChatSession(ctx, ownerID, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	return session, err
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

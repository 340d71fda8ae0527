package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/PDPyeh/AeroCatalog-103-C/internal/model"
)

const (
	sessionColumns = `id, developer_id, title, is_active, created_at, updated_at`
	messageColumns = `id, session_id, role, content, tokens, created_at`
)

// CreateChatSessionWithinLimit inserts session unless its developer already
// owns limit sessions. Every session counts, active or not.
func (s *Store) CreateChatSessionWithinLimit(ctx context.Context, session *model.ChatSession, limit int) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.lockDeveloper(ctx, tx, session.DeveloperID); err != nil {
			return err
		}

		var count int
		if err := tx.GetContext(ctx, &count,
			tx.Rebind(`SELECT COUNT(*) FROM chat_sessions WHERE developer_id = ?`),
			session.DeveloperID,
		); err != nil {
			return fmt.Errorf("count chat sessions: %w", err)
		}
		if count >= limit {
			return &LimitError{Current: count, Limit: limit}
		}

		ts := now()
		session.CreatedAt, session.UpdatedAt = ts, ts
		session.IsActive = true
		id, err := s.insert(ctx, tx,
			`INSERT INTO chat_sessions (developer_id, title, is_active, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?)`,
			session.DeveloperID, session.Title, true, ts, ts,
		)
		if err != nil {
			return fmt.Errorf("insert chat session: %w", err)
		}
		session.ID = id
		return nil
	})
}

// ListChatSessions returns the developer's sessions, newest first.
func (s *Store) ListChatSessions(ctx context.Context, developerID int64) ([]model.ChatSession, error) {
	sessions := []model.ChatSession{}
	err := s.db.SelectContext(ctx, &sessions,
		s.db.Rebind(`SELECT `+sessionColumns+` FROM chat_sessions WHERE developer_id = ? ORDER BY created_at DESC, id DESC`),
		developerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list chat sessions: %w", err)
	}
	return sessions, nil
}

// GetChatSession returns a session owned by developerID. Sessions owned by
// anyone else are reported as ErrNotFound.
func (s *Store) GetChatSession(ctx context.Context, developerID, sessionID int64) (*model.ChatSession, error) {
	var cs model.ChatSession
	err := s.db.GetContext(ctx, &cs,
		s.db.Rebind(`SELECT `+sessionColumns+` FROM chat_sessions WHERE id = ? AND developer_id = ?`),
		sessionID, developerID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get chat session: %w", err)
	}
	return &cs, nil
}

// ListChatMessages returns a session's messages in chronological order.
// Ownership must be checked by the caller.
func (s *Store) ListChatMessages(ctx context.Context, sessionID int64) ([]model.ChatMessage, error) {
	msgs := []model.ChatMessage{}
	err := s.db.SelectContext(ctx, &msgs,
		s.db.Rebind(`SELECT `+messageColumns+` FROM chat_messages WHERE session_id = ? ORDER BY created_at ASC, id ASC`),
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	return msgs, nil
}

// CountChatSessions returns how many sessions the developer owns.
func (s *Store) CountChatSessions(ctx context.Context, developerID int64) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		s.db.Rebind(`SELECT COUNT(*) FROM chat_sessions WHERE developer_id = ?`),
		developerID,
	)
	if err != nil {
		return 0, fmt.Errorf("count chat sessions: %w", err)
	}
	return n, nil
}

// SaveTurn persists a user message and the assistant reply to it as one
// unit. firstTitle renames the session, but only when the session holds no
// messages yet; the check runs under the session row lock, so of two
// concurrent opening turns only the first to commit names the session. The
// session's updated_at is always bumped.
func (s *Store) SaveTurn(ctx context.Context, turn *model.ChatTurn, firstTitle string) error {
	sessionID := turn.UserMessage.SessionID
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		var id int64
		err := tx.GetContext(ctx, &id,
			tx.Rebind(`SELECT id FROM chat_sessions WHERE id = ?`+s.dialect.lock),
			sessionID,
		)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock chat session: %w", err)
		}

		if firstTitle != "" {
			var prior int
			if err := tx.GetContext(ctx, &prior,
				tx.Rebind(`SELECT COUNT(*) FROM chat_messages WHERE session_id = ?`),
				sessionID,
			); err != nil {
				return fmt.Errorf("count chat messages: %w", err)
			}
			if prior > 0 {
				firstTitle = ""
			}
		}

		ts := now()
		for _, msg := range []*model.ChatMessage{&turn.UserMessage, &turn.AssistantMessage} {
			if !msg.Role.Valid() {
				return fmt.Errorf("invalid message role %q", msg.Role)
			}
			msg.CreatedAt = ts
			id, err := s.insert(ctx, tx,
				`INSERT INTO chat_messages (session_id, role, content, tokens, created_at)
				 VALUES (?, ?, ?, ?, ?)`,
				msg.SessionID, string(msg.Role), msg.Content, msg.Tokens, ts,
			)
			if err != nil {
				if isForeignKeyViolation(err) {
					return ErrNotFound
				}
				return fmt.Errorf("insert chat message: %w", err)
			}
			msg.ID = id
		}

		q := `UPDATE chat_sessions SET updated_at = ? WHERE id = ?`
		args := []interface{}{ts, sessionID}
		if firstTitle != "" {
			q = `UPDATE chat_sessions SET title = ?, updated_at = ? WHERE id = ?`
			args = []interface{}{firstTitle, ts, sessionID}
		}
		return s.execAffecting(ctx, tx, q, args...)
	})
}

// DeleteChatSession removes a session owned by developerID together with
// all of its messages. Either everything is removed or nothing is.
func (s *Store) DeleteChatSession(ctx context.Context, developerID, sessionID int64) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		var id int64
		err := tx.GetContext(ctx, &id,
			tx.Rebind(`SELECT id FROM chat_sessions WHERE id = ? AND developer_id = ?`+s.dialect.lock),
			sessionID, developerID,
		)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get chat session: %w", err)
		}

		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM chat_messages WHERE session_id = ?`), sessionID); err != nil {
			return fmt.Errorf("delete chat messages: %w", err)
		}
		return s.execAffecting(ctx, tx, `DELETE FROM chat_sessions WHERE id = ?`, sessionID)
	})
}

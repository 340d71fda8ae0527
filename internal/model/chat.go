package model

import "time"

// Role is the author of a chat message. Only user and assistant messages are
// ever persisted; system instructions exist only in outbound prompts.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r may be stored.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// DefaultSessionTitle is the title given to sessions created without one.
const DefaultSessionTitle = "New Chat"

// ChatSession is a conversation container owned by one developer.
type ChatSession struct {
	ID          int64     `json:"id" db:"id"`
	DeveloperID int64     `json:"userId" db:"developer_id"`
	Title       string    `json:"title" db:"title"`
	IsActive    bool      `json:"isActive" db:"is_active"` // informational only
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// ChatMessage is an immutable utterance within a session.
type ChatMessage struct {
	ID        int64     `json:"id" db:"id"`
	SessionID int64     `json:"sessionId" db:"session_id"`
	Role      Role      `json:"role" db:"role"`
	Content   string    `json:"content" db:"content"`
	Tokens    int       `json:"tokens" db:"tokens"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// ChatTurn is one persisted user message plus the assistant reply to it.
type ChatTurn struct {
	UserMessage      ChatMessage `json:"userMessage"`
	AssistantMessage ChatMessage `json:"assistantMessage"`
}

// SessionList is a developer's sessions with quota information.
type SessionList struct {
	Sessions     []ChatSession `json:"sessions"`
	SessionCount int           `json:"sessionCount"`
	MaxSessions  int           `json:"maxSessions"`
}

package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidKey          = errors.New("invalid api key")
	ErrNotFound            = errors.New("not found")
	ErrDuplicateEmail      = errors.New("email already registered")
	ErrUpstreamUnavailable = errors.New("chatbot unavailable")
	ErrConflict            = errors.New("already exists")
	ErrInUse               = errors.New("still referenced by aircraft")
)

// ValidationError reports a missing or malformed input field. Its message is
// safe to return to the client.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// QuotaError is returned when an owner already holds the maximum number of a
// resource.
type QuotaError struct {
	Resource string // "api_keys" or "chat_sessions"
	Current  int
	Limit    int
}

func (e *QuotaError) Error() string {
	switch e.Resource {
	case "api_keys":
		return fmt.Sprintf("Maximum %d active API keys allowed. Please revoke an existing key first.", e.Limit)
	case "chat_sessions":
		return fmt.Sprintf("Maximum %d chat sessions allowed. Please delete an existing session first.", e.Limit)
	}
	return fmt.Sprintf("%s limit of %d reached", e.Resource, e.Limit)
}

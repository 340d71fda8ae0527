package model

// LoginRequest is the body of both login endpoints.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the developer self-registration body.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Company  string `json:"company"`
	Website  string `json:"website"`
}

// CreateKeyRequest names a new API key. The name is optional.
type CreateKeyRequest struct {
	Name string `json:"name"`
}

// CreateSessionRequest titles a new chat session. The title is optional.
type CreateSessionRequest struct {
	Title string `json:"title"`
}

// ChatRequest is one user message sent to a session.
type ChatRequest struct {
	SessionID int64  `json:"sessionId"`
	Message   string `json:"message"`
}

package model

import "time"

// Developer is a self-registered third-party API consumer. Developers own API
// keys and chat sessions.
type Developer struct {
	ID           int64     `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"` // bcrypt hash, never expose
	Company      string    `json:"company" db:"company"`
	Website      string    `json:"website" db:"website"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// DeveloperProfile holds the self-service editable fields of a Developer.
type DeveloperProfile struct {
	Name    string `json:"name"`
	Company string `json:"company"`
	Website string `json:"website"`
}

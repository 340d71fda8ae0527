package model

import "time"

// APIKey is the stored form of a developer API key. The plaintext secret is
// never persisted: only its SHA-256 hash and a short display prefix are kept,
// so no read path can return it.
type APIKey struct {
	ID          int64      `json:"id" db:"id"`
	DeveloperID int64      `json:"userId" db:"developer_id"`
	KeyHash     string     `json:"-" db:"key_hash"`           // SHA-256 hash, never expose
	KeyPrefix   string     `json:"keyPrefix" db:"key_prefix"` // for identification only
	Label       string     `json:"name" db:"label"`
	LastUsed    *time.Time `json:"lastUsed,omitempty" db:"last_used"`
	IsActive    bool       `json:"isActive" db:"is_active"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
}

// IssuedAPIKey is returned exactly once, by the issuance operation. It is the
// only type in the codebase that carries the plaintext secret.
type IssuedAPIKey struct {
	ID        int64     `json:"id"`
	Label     string    `json:"name"`
	Key       string    `json:"key"`
	KeyPrefix string    `json:"keyPrefix"`
	CreatedAt time.Time `json:"createdAt"`
}

// APIKeyList is the redacted listing of a developer's keys.
type APIKeyList struct {
	Keys        []APIKey `json:"data"`
	Count       int      `json:"count"`
	ActiveCount int      `json:"activeCount"`
	MaxLimit    int      `json:"maxLimit"`
}

package model

// IdentityKind distinguishes the two disjoint principal spaces.
type IdentityKind string

const (
	KindAdmin     IdentityKind = "admin"
	KindDeveloper IdentityKind = "user"
)

// Valid reports whether k is one of the known identity kinds.
func (k IdentityKind) Valid() bool {
	return k == KindAdmin || k == KindDeveloper
}

// Identity is a resolved principal attached to a request after successful
// authentication. ID is only meaningful together with Kind: an admin ID and a
// developer ID with the same value refer to different accounts.
type Identity struct {
	ID     int64        `json:"id"`
	Kind   IdentityKind `json:"kind"`
	Method string       `json:"method"` // "token" or "api_key"
	KeyID  int64        `json:"keyId,omitempty"`
}

// IsAdmin reports whether the identity is an administrator.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Kind == KindAdmin
}

// IsDeveloper reports whether the identity is a developer.
func (i *Identity) IsDeveloper() bool {
	return i != nil && i.Kind == KindDeveloper
}

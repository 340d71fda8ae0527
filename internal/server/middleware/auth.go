package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/PDPyeh/AeroCatalog-103-C/internal/model"
)

type contextKeyAuth string

// IdentityKey is the context key for the authenticated identity.
const IdentityKey contextKeyAuth = "auth_identity"

const holderKey contextKeyAuth = "auth_identity_holder"

// identityHolder lets middleware running before the gate see who was
// authorized once the handler returns.
type identityHolder struct {
	id *model.Identity
}

func withIdentityHolder(ctx context.Context, h *identityHolder) context.Context {
	return context.WithValue(ctx, holderKey, h)
}

// GateState is the progress of one request through the authorization gate.
type GateState int

const (
	Unauthenticated GateState = iota
	Resolving
	Authorized
	Denied
)

func (s GateState) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Resolving:
		return "resolving"
	case Authorized:
		return "authorized"
	case Denied:
		return "denied"
	}
	return "unknown"
}

// Authorize returns a middleware that admits a request only when chain
// resolves an identity for it. The identity is attached to the request
// context. Every denial gets the same generic 401 body; the reason is only
// logged.
func Authorize(chain Chain, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			state := Unauthenticated
			transition := func(to GateState, attrs ...any) {
				logger.Debug("auth gate",
					append([]any{"from", state.String(), "to", to.String(), "path", r.URL.Path,
						"request_id", GetRequestID(r.Context())}, attrs...)...)
				state = to
			}

			transition(Resolving)
			id, err := chain.Resolve(r.Context(), r)
			if err != nil {
				if !errors.Is(err, ErrRejected) {
					logger.Error("credential lookup failed", "error", err, "request_id", GetRequestID(r.Context()))
					writeAuthError(w, http.StatusInternalServerError, "Internal server error")
					return
				}
				transition(Denied, "reason", err.Error())
				w.Header().Set("WWW-Authenticate", `Bearer realm="aerocatalog"`)
				writeAuthError(w, http.StatusUnauthorized, "Not authorized to access this route")
				return
			}

			transition(Authorized, "kind", string(id.Kind), "method", id.Method)
			if h, ok := r.Context().Value(holderKey).(*identityHolder); ok {
				h.id = id
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireKind returns a middleware that enforces the identity kind. It must
// be used after Authorize in the middleware chain.
func RequireKind(kind model.IdentityKind) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := GetIdentity(r.Context())
			if id == nil || id.Kind != kind {
				writeAuthError(w, http.StatusForbidden, "Access denied for this account type")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetIdentity extracts the authenticated identity from the context.
// Returns nil if no identity is present (i.e., unauthenticated request).
func GetIdentity(ctx context.Context) *model.Identity {
	if id, ok := ctx.Value(IdentityKey).(*model.Identity); ok {
		return id
	}
	return nil
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *model.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, id)
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(model.ErrorResponse{
		Error: model.ErrorDetail{Code: status, Message: message},
	})
}

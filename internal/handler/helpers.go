package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/PDPyeh/AeroCatalog-103-C/internal/model"
	"github.com/PDPyeh/AeroCatalog-103-C/internal/server/middleware"
	"github.com/PDPyeh/AeroCatalog-103-C/internal/service"
)

// writeJSON serializes v as JSON and writes it to the response with the given
// HTTP status code. The Content-Type header is set to application/json.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a structured error response using the standard error
// envelope. The optional ctx map provides additional context fields.
func writeError(w http.ResponseWriter, code int, message string, ctx ...map[string]interface{}) {
	var ctxMap map[string]interface{}
	if len(ctx) > 0 {
		ctxMap = ctx[0]
	}
	writeJSON(w, code, model.ErrorResponse{
		Error: model.ErrorDetail{
			Code:    code,
			Message: message,
			Context: ctxMap,
		},
	})
}

// writeMessage writes {"success": true, "message": msg}.
func writeMessage(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": msg,
	})
}

// readJSON decodes the request body as JSON into v. The body is closed after
// decoding regardless of success or failure.
func readJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// readOptionalJSON is readJSON for endpoints whose body may be omitted. An
// empty body, chunked or not, leaves v untouched.
func readOptionalJSON(r *http.Request, v interface{}) error {
	if err := readJSON(r, v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// writeBodyError reports a body that could not be decoded.
func writeBodyError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return
	}
	writeError(w, http.StatusBadRequest, "Invalid request body")
}

// pathID parses a positive integer URL parameter.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// queryInt64 extracts an integer query parameter, returning 0 if the
// parameter is missing or cannot be parsed.
func queryInt64(r *http.Request, key string) int64 {
	n, err := strconv.ParseInt(r.URL.Query().Get(key), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// writeServiceError maps a service error onto the HTTP error envelope.
// resource names the entity in 404 and 409 messages. Anything unrecognised is
// logged with the request id and reported as a bare 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, resource string) {
	var verr *service.ValidationError
	var qerr *service.QuotaError

	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Message)
	case errors.As(err, &qerr):
		writeError(w, http.StatusBadRequest, qerr.Error(), map[string]interface{}{
			"currentCount": qerr.Current,
			"maxLimit":     qerr.Limit,
		})
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, service.ErrInvalidKey):
		writeError(w, http.StatusUnauthorized, "Invalid API key")
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, resource+" not found")
	case errors.Is(err, service.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, "User already exists with this email")
	case errors.Is(err, service.ErrConflict):
		writeError(w, http.StatusConflict, resource+" already exists")
	case errors.Is(err, service.ErrInUse):
		writeError(w, http.StatusConflict, resource+" is still referenced by aircraft")
	case errors.Is(err, service.ErrUpstreamUnavailable):
		writeError(w, http.StatusInternalServerError, "Chatbot unavailable, please try again later")
	default:
		logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// identity returns the caller resolved by the authorization gate. Routes that
// call it are always mounted behind the gate.
func identity(r *http.Request) *model.Identity {
	return middleware.GetIdentity(r.Context())
}

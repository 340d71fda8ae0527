package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tmc/langchaingo/llms"

	"github.com/PDPyeh/AeroCatalog-103-C/internal/inference"
	"github.com/PDPyeh/AeroCatalog-103-C/internal/model"
	"github.com/PDPyeh/AeroCatalog-103-C/internal/openapi"
	"github.com/PDPyeh/AeroCatalog-103-C/internal/server/middleware"
	"github.com/PDPyeh/AeroCatalog-103-C/internal/service"
	"github.com/PDPyeh/AeroCatalog-103-C/internal/store"
)

const (
	testJWTSecret = "test-secret-for-handler-tests"
	testPassword  = "supersecretpassword"

	// Test routes read the caller from these headers instead of running the
	// real gate.
	hdrUser  = "X-Test-User"
	hdrAdmin = "X-Test-Admin"
)

// fakeCompleter answers every prompt with reply, or fails with err.
type fakeCompleter struct {
	mu    sync.Mutex
	calls int
	reply string
	err   error
}

func (f *fakeCompleter) Complete(ctx context.Context, msgs []llms.MessageContent) (*inference.Completion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &inference.Completion{Content: f.reply, Tokens: 42}, nil
}

// testEnv holds shared state for handler integration tests.
type testEnv struct {
	store     *store.Store
	authSvc   *service.AuthService
	completer *fakeCompleter
	router    chi.Router
}

// withTestIdentity attaches the identity named by the test headers.
func withTestIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if v := r.Header.Get(hdrUser); v != "" {
			id, _ := strconv.ParseInt(v, 10, 64)
			r = r.WithContext(middleware.WithIdentity(r.Context(),
				&model.Identity{ID: id, Kind: model.KindDeveloper, Method: "api_key"}))
		}
		if v := r.Header.Get(hdrAdmin); v != "" {
			id, _ := strconv.ParseInt(v, 10, 64)
			r = r.WithContext(middleware.WithIdentity(r.Context(),
				&model.Identity{ID: id, Kind: model.KindAdmin, Method: "token"}))
		}
		next.ServeHTTP(w, r)
	})
}

// newTestEnv creates a fresh environment with an in-memory store and a Chi
// router with every handler mounted (no auth gate).
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := store.NewMemory()
	if err != nil {
		t.Fatalf("store.NewMemory: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	fc := &fakeCompleter{reply: "The Boeing 737-800 has a range of about 5,400 km."}

	authSvc := service.NewAuthService(st, testJWTSecret, time.Hour, logger)
	keySvc := service.NewAPIKeyService(st, 10, "aircraft_", logger)
	chatSvc := service.NewChatService(st, fc, 5, 50, logger)
	catalogSvc := service.NewCatalogService(st, logger)

	doc, err := openapi.Generate(openapi.Options{ServerURL: "/api"})
	if err != nil {
		t.Fatalf("openapi.Generate: %v", err)
	}
	sys, err := NewSystemHandler(st, doc, "test", logger)
	if err != nil {
		t.Fatalf("NewSystemHandler: %v", err)
	}

	auth := NewAuthHandler(authSvc, keySvc, logger)
	keys := NewAPIKeyHandler(keySvc, logger)
	chat := NewChatHandler(chatSvc, logger)
	catalog := NewCatalogHandler(catalogSvc, logger)

	r := chi.NewRouter()
	r.Use(withTestIdentity)
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", sys.Health)
		r.Get("/openapi.json", sys.OpenAPI)

		r.Post("/auth/login", auth.AdminLogin)
		r.Get("/auth/me", auth.AdminMe)
		r.Post("/users/register", auth.Register)
		r.Post("/users/login", auth.UserLogin)
		r.Get("/users/me", auth.UserMe)
		r.Put("/users/profile", auth.UpdateProfile)

		r.Post("/api-keys/generate", keys.Generate)
		r.Get("/api-keys", keys.List)
		r.Delete("/api-keys/{keyId}", keys.Revoke)

		r.Post("/chat/sessions", chat.CreateSession)
		r.Get("/chat/sessions", chat.ListSessions)
		r.Get("/chat/sessions/{sessionId}/messages", chat.Messages)
		r.Delete("/chat/sessions/{sessionId}", chat.DeleteSession)
		r.Post("/chat", chat.Send)

		r.Get("/manufacturers", catalog.ListManufacturers)
		r.Post("/manufacturers", catalog.CreateManufacturer)
		r.Get("/manufacturers/{id}", catalog.GetManufacturer)
		r.Put("/manufacturers/{id}", catalog.UpdateManufacturer)
		r.Delete("/manufacturers/{id}", catalog.DeleteManufacturer)

		r.Get("/categories", catalog.ListCategories)
		r.Post("/categories", catalog.CreateCategory)
		r.Get("/categories/{id}", catalog.GetCategory)
		r.Put("/categories/{id}", catalog.UpdateCategory)
		r.Delete("/categories/{id}", catalog.DeleteCategory)

		r.Get("/aircraft", catalog.ListAircraft)
		r.Post("/aircraft", catalog.CreateAircraft)
		r.Get("/aircraft/{id}", catalog.GetAircraft)
		r.Put("/aircraft/{id}", catalog.UpdateAircraft)
		r.Delete("/aircraft/{id}", catalog.DeleteAircraft)
	})

	return &testEnv{store: st, authSvc: authSvc, completer: fc, router: r}
}

// seedAdmin creates an active admin account and returns it.
func (e *testEnv) seedAdmin(t *testing.T) *model.Admin {
	t.Helper()
	hash, err := service.HashPassword(testPassword)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	admin := &model.Admin{
		Email:        "admin@example.com",
		PasswordHash: hash,
		Name:         "Test Admin",
		IsActive:     true,
	}
	if err := e.store.CreateAdmin(context.Background(), admin); err != nil {
		t.Fatalf("seedAdmin: %v", err)
	}
	return admin
}

// seedDeveloper registers a developer and returns its id.
func (e *testEnv) seedDeveloper(t *testing.T, email string) int64 {
	t.Helper()
	dev := &model.Developer{Name: "Dev " + email, Email: email}
	if _, err := e.authSvc.RegisterDeveloper(context.Background(), dev, testPassword); err != nil {
		t.Fatalf("seedDeveloper: %v", err)
	}
	return dev.ID
}

// do executes an HTTP request against the test router and returns the recorder.
func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

// asUser returns header arguments for do that act as developer id.
func asUser(id int64) []string {
	return []string{hdrUser, strconv.FormatInt(id, 10)}
}

func toJSON(t *testing.T, v interface{}) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(v); err != nil {
		t.Fatalf("toJSON: %v", err)
	}
	return buf
}

func assertStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Errorf("status = %d, want %d; body = %s", rr.Code, want, rr.Body.String())
	}
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decodeJSON: %v; body = %s", err, rr.Body.String())
	}
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) model.ErrorDetail {
	t.Helper()
	var resp model.ErrorResponse
	decodeJSON(t, rr, &resp)
	return resp.Error
}

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PDPyeh/AeroCatalog-103-C/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewMemory()
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestDeveloper(t *testing.T, s *Store, email string) *model.Developer {
	t.Helper()
	dev := &model.Developer{Name: "Dev", Email: email, PasswordHash: "x"}
	if err := s.CreateDeveloper(context.Background(), dev); err != nil {
		t.Fatalf("CreateDeveloper: %v", err)
	}
	return dev
}

func newTestKey(developerID int64, n int) *model.APIKey {
	plain := fmt.Sprintf("aircraft_test_%d_%d", developerID, n)
	return &model.APIKey{
		DeveloperID: developerID,
		KeyHash:     HashAPIKey(plain),
		KeyPrefix:   plain[:12],
		Label:       fmt.Sprintf("key %d", n),
	}
}

func TestDialectFor(t *testing.T) {
	tests := []struct {
		driver string
		want   string
	}{
		{"", DriverSQLite},
		{"sqlite", DriverSQLite},
		{"MySQL", DriverMySQL},
		{"mariadb", DriverMySQL},
		{"postgres", DriverPostgres},
		{"pgx", DriverPostgres},
	}
	for _, tt := range tests {
		d, err := dialectFor(tt.driver)
		if err != nil {
			t.Fatalf("dialectFor(%q): %v", tt.driver, err)
		}
		if d.name != tt.want {
			t.Errorf("dialectFor(%q) = %q, want %q", tt.driver, d.name, tt.want)
		}
	}
	if _, err := dialectFor("oracle"); err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestMySQLDSNForcesParseTime(t *testing.T) {
	d, _ := dialectFor(DriverMySQL)
	dsn, err := d.normalizeDSN("user:pass@tcp(localhost:3306)/aerocatalog")
	if err != nil {
		t.Fatalf("normalizeDSN: %v", err)
	}
	if !strings.Contains(dsn, "parseTime=true") {
		t.Errorf("dsn %q missing parseTime=true", dsn)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestAdminCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	admin := &model.Admin{Email: " Admin@Example.com ", PasswordHash: "hashed", Name: "Admin"}
	if err := s.CreateAdmin(ctx, admin); err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}
	if admin.ID == 0 {
		t.Fatal("expected non-zero ID")
	}

	got, err := s.GetAdminByEmail(ctx, "admin@example.com")
	if err != nil {
		t.Fatalf("GetAdminByEmail: %v", err)
	}
	if got.ID != admin.ID || !got.IsActive {
		t.Errorf("got %+v", got)
	}

	if err := s.CreateAdmin(ctx, &model.Admin{Email: "admin@example.com", PasswordHash: "x"}); !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate admin: got %v, want ErrDuplicate", err)
	}

	if err := s.SetAdminActive(ctx, "admin@example.com", false); err != nil {
		t.Fatalf("SetAdminActive: %v", err)
	}
	got, _ = s.GetAdmin(ctx, admin.ID)
	if got.IsActive {
		t.Error("expected admin to be inactive")
	}

	if err := s.UpdateAdminLastLogin(ctx, admin.ID); err != nil {
		t.Fatalf("UpdateAdminLastLogin: %v", err)
	}
	got, _ = s.GetAdmin(ctx, admin.ID)
	if got.LastLoginAt == nil {
		t.Error("expected last_login_at to be set")
	}

	list, err := s.ListAdmins(ctx)
	if err != nil {
		t.Fatalf("ListAdmins: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("got %d admins, want 1", len(list))
	}

	if err := s.SetAdminActive(ctx, "nobody@example.com", true); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestDeveloperCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	dev := newTestDeveloper(t, s, "dev@example.com")

	if err := s.CreateDeveloper(ctx, &model.Developer{Name: "Other", Email: "DEV@example.com", PasswordHash: "x"}); !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate email: got %v, want ErrDuplicate", err)
	}

	err := s.UpdateDeveloperProfile(ctx, dev.ID, model.DeveloperProfile{Name: "Renamed", Company: "Acme", Website: "https://acme.test"})
	if err != nil {
		t.Fatalf("UpdateDeveloperProfile: %v", err)
	}
	got, err := s.GetDeveloper(ctx, dev.ID)
	if err != nil {
		t.Fatalf("GetDeveloper: %v", err)
	}
	if got.Name != "Renamed" || got.Company != "Acme" {
		t.Errorf("profile not updated: %+v", got)
	}

	if _, err := s.GetDeveloperByEmail(ctx, "missing@example.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestAPIKeyLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	dev := newTestDeveloper(t, s, "dev@example.com")

	key := newTestKey(dev.ID, 1)
	if err := s.CreateAPIKeyWithinLimit(ctx, key, 10); err != nil {
		t.Fatalf("CreateAPIKeyWithinLimit: %v", err)
	}

	got, err := s.GetActiveAPIKeyByHash(ctx, key.KeyHash)
	if err != nil {
		t.Fatalf("GetActiveAPIKeyByHash: %v", err)
	}
	if got.ID != key.ID || got.DeveloperID != dev.ID {
		t.Errorf("got %+v", got)
	}
	if got.LastUsed != nil {
		t.Error("new key should have no last_used")
	}

	used := time.Now()
	if err := s.UpdateAPIKeyLastUsed(ctx, key.ID, used); err != nil {
		t.Fatalf("UpdateAPIKeyLastUsed: %v", err)
	}
	got, _ = s.GetActiveAPIKeyByHash(ctx, key.KeyHash)
	if got.LastUsed == nil || got.LastUsed.Unix() != used.Unix() {
		t.Errorf("last_used = %v, want %v", got.LastUsed, used)
	}

	if _, err := s.GetActiveAPIKeyByHash(ctx, HashAPIKey("aircraft_unknown")); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown key: got %v, want ErrNotFound", err)
	}

	if err := s.DeleteAPIKey(ctx, dev.ID, key.ID); err != nil {
		t.Fatalf("DeleteAPIKey: %v", err)
	}
	if _, err := s.GetActiveAPIKeyByHash(ctx, key.KeyHash); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted key still resolves: %v", err)
	}
}

func TestDeleteAPIKeyIsOwnerScoped(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := newTestDeveloper(t, s, "alice@example.com")
	bob := newTestDeveloper(t, s, "bob@example.com")

	key := newTestKey(alice.ID, 1)
	if err := s.CreateAPIKeyWithinLimit(ctx, key, 10); err != nil {
		t.Fatalf("CreateAPIKeyWithinLimit: %v", err)
	}

	if err := s.DeleteAPIKey(ctx, bob.ID, key.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-owner delete: got %v, want ErrNotFound", err)
	}
	if _, err := s.GetActiveAPIKeyByHash(ctx, key.KeyHash); err != nil {
		t.Errorf("key should survive foreign delete: %v", err)
	}
}

func TestAPIKeyLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	dev := newTestDeveloper(t, s, "dev@example.com")

	for i := 0; i < 10; i++ {
		if err := s.CreateAPIKeyWithinLimit(ctx, newTestKey(dev.ID, i), 10); err != nil {
			t.Fatalf("key %d: %v", i, err)
		}
	}

	err := s.CreateAPIKeyWithinLimit(ctx, newTestKey(dev.ID, 10), 10)
	var limitErr *LimitError
	if !errors.As(err, &limitErr) {
		t.Fatalf("11th key: got %v, want *LimitError", err)
	}
	if limitErr.Current != 10 || limitErr.Limit != 10 {
		t.Errorf("got %+v", limitErr)
	}

	keys, err := s.ListAPIKeysByDeveloper(ctx, dev.ID)
	if err != nil {
		t.Fatalf("ListAPIKeysByDeveloper: %v", err)
	}
	if len(keys) != 10 {
		t.Errorf("got %d keys, want 10", len(keys))
	}
	if keys[0].ID < keys[len(keys)-1].ID {
		t.Error("keys should be listed newest first")
	}
}

func TestAPIKeyLimitUnderConcurrency(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	dev := newTestDeveloper(t, s, "dev@example.com")

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if err := s.CreateAPIKeyWithinLimit(ctx, newTestKey(dev.ID, n), 10); err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if created != 10 {
		t.Errorf("created %d keys, want exactly 10", created)
	}
	n, err := s.CountActiveAPIKeys(ctx, dev.ID)
	if err != nil {
		t.Fatalf("CountActiveAPIKeys: %v", err)
	}
	if n != 10 {
		t.Errorf("stored %d active keys, want 10", n)
	}
}

func TestChatSessionLimitCountsAllSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	dev := newTestDeveloper(t, s, "dev@example.com")

	for i := 0; i < 5; i++ {
		cs := &model.ChatSession{DeveloperID: dev.ID, Title: model.DefaultSessionTitle}
		if err := s.CreateChatSessionWithinLimit(ctx, cs, 5); err != nil {
			t.Fatalf("session %d: %v", i, err)
		}
	}

	err := s.CreateChatSessionWithinLimit(ctx, &model.ChatSession{DeveloperID: dev.ID, Title: "sixth"}, 5)
	var limitErr *LimitError
	if !errors.As(err, &limitErr) || limitErr.Current != 5 {
		t.Fatalf("sixth session: got %v, want *LimitError{Current: 5}", err)
	}
}

func TestSaveTurnAndOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	dev := newTestDeveloper(t, s, "dev@example.com")

	cs := &model.ChatSession{DeveloperID: dev.ID, Title: model.DefaultSessionTitle}
	if err := s.CreateChatSessionWithinLimit(ctx, cs, 5); err != nil {
		t.Fatalf("CreateChatSessionWithinLimit: %v", err)
	}

	turn := &model.ChatTurn{
		UserMessage:      model.ChatMessage{SessionID: cs.ID, Role: model.RoleUser, Content: "hello"},
		AssistantMessage: model.ChatMessage{SessionID: cs.ID, Role: model.RoleAssistant, Content: "hi", Tokens: 3},
	}
	if err := s.SaveTurn(ctx, turn, "hello"); err != nil {
		t.Fatalf("SaveTurn: %v", err)
	}
	if turn.UserMessage.ID == 0 || turn.AssistantMessage.ID <= turn.UserMessage.ID {
		t.Errorf("unexpected ids: user=%d assistant=%d", turn.UserMessage.ID, turn.AssistantMessage.ID)
	}

	msgs, err := s.ListChatMessages(ctx, cs.ID)
	if err != nil {
		t.Fatalf("ListChatMessages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].Role != model.RoleUser || msgs[1].Role != model.RoleAssistant {
		t.Errorf("messages out of order: %+v", msgs)
	}
	if msgs[1].Tokens != 3 {
		t.Errorf("tokens = %d, want 3", msgs[1].Tokens)
	}

	got, _ := s.GetChatSession(ctx, dev.ID, cs.ID)
	if got.Title != "hello" {
		t.Errorf("title = %q, want %q", got.Title, "hello")
	}

	// An empty title leaves the session title untouched.
	turn2 := &model.ChatTurn{
		UserMessage:      model.ChatMessage{SessionID: cs.ID, Role: model.RoleUser, Content: "again"},
		AssistantMessage: model.ChatMessage{SessionID: cs.ID, Role: model.RoleAssistant, Content: "ok"},
	}
	if err := s.SaveTurn(ctx, turn2, ""); err != nil {
		t.Fatalf("SaveTurn: %v", err)
	}
	got, _ = s.GetChatSession(ctx, dev.ID, cs.ID)
	if got.Title != "hello" {
		t.Errorf("title changed to %q", got.Title)
	}
}

func TestSaveTurnTitlesOnlyTheFirstTurn(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	dev := newTestDeveloper(t, s, "dev@example.com")

	cs := &model.ChatSession{DeveloperID: dev.ID, Title: model.DefaultSessionTitle}
	if err := s.CreateChatSessionWithinLimit(ctx, cs, 5); err != nil {
		t.Fatalf("CreateChatSessionWithinLimit: %v", err)
	}

	// Two opening turns race; each saw an empty history and proposes a title.
	var wg sync.WaitGroup
	for _, text := range []string{"first question", "second question"} {
		wg.Add(1)
		go func(text string) {
			defer wg.Done()
			turn := &model.ChatTurn{
				UserMessage:      model.ChatMessage{SessionID: cs.ID, Role: model.RoleUser, Content: text},
				AssistantMessage: model.ChatMessage{SessionID: cs.ID, Role: model.RoleAssistant, Content: "answer"},
			}
			if err := s.SaveTurn(ctx, turn, text); err != nil {
				t.Errorf("SaveTurn(%q): %v", text, err)
			}
		}(text)
	}
	wg.Wait()

	msgs, err := s.ListChatMessages(ctx, cs.ID)
	if err != nil {
		t.Fatalf("ListChatMessages: %v", err)
	}
	if len(msgs) != 4 {
		t.Fatalf("got %d messages, want 4", len(msgs))
	}
	got, _ := s.GetChatSession(ctx, dev.ID, cs.ID)
	if got.Title != msgs[0].Content {
		t.Errorf("title = %q, want the opening message %q", got.Title, msgs[0].Content)
	}
}

func TestListChatSessionsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	dev := newTestDeveloper(t, s, "dev@example.com")

	older := &model.ChatSession{DeveloperID: dev.ID, Title: "older"}
	newer := &model.ChatSession{DeveloperID: dev.ID, Title: "newer"}
	for _, cs := range []*model.ChatSession{older, newer} {
		if err := s.CreateChatSessionWithinLimit(ctx, cs, 5); err != nil {
			t.Fatalf("CreateChatSessionWithinLimit: %v", err)
		}
	}

	// Activity on the older session must not reorder the list.
	turn := &model.ChatTurn{
		UserMessage:      model.ChatMessage{SessionID: older.ID, Role: model.RoleUser, Content: "q"},
		AssistantMessage: model.ChatMessage{SessionID: older.ID, Role: model.RoleAssistant, Content: "a"},
	}
	if err := s.SaveTurn(ctx, turn, ""); err != nil {
		t.Fatalf("SaveTurn: %v", err)
	}

	sessions, err := s.ListChatSessions(ctx, dev.ID)
	if err != nil {
		t.Fatalf("ListChatSessions: %v", err)
	}
	if len(sessions) != 2 || sessions[0].ID != newer.ID || sessions[1].ID != older.ID {
		t.Errorf("order = %+v, want newer then older", sessions)
	}
}

func TestSaveTurnRejectsUnknownSession(t *testing.T) {
	s := newTestStore(t)
	turn := &model.ChatTurn{
		UserMessage:      model.ChatMessage{SessionID: 999, Role: model.RoleUser, Content: "x"},
		AssistantMessage: model.ChatMessage{SessionID: 999, Role: model.RoleAssistant, Content: "y"},
	}
	if err := s.SaveTurn(context.Background(), turn, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestDeleteChatSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := newTestDeveloper(t, s, "alice@example.com")
	bob := newTestDeveloper(t, s, "bob@example.com")

	cs := &model.ChatSession{DeveloperID: alice.ID, Title: model.DefaultSessionTitle}
	if err := s.CreateChatSessionWithinLimit(ctx, cs, 5); err != nil {
		t.Fatalf("CreateChatSessionWithinLimit: %v", err)
	}
	turn := &model.ChatTurn{
		UserMessage:      model.ChatMessage{SessionID: cs.ID, Role: model.RoleUser, Content: "q"},
		AssistantMessage: model.ChatMessage{SessionID: cs.ID, Role: model.RoleAssistant, Content: "a"},
	}
	if err := s.SaveTurn(ctx, turn, ""); err != nil {
		t.Fatalf("SaveTurn: %v", err)
	}

	if _, err := s.GetChatSession(ctx, bob.ID, cs.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-owner get: got %v, want ErrNotFound", err)
	}
	if err := s.DeleteChatSession(ctx, bob.ID, cs.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-owner delete: got %v, want ErrNotFound", err)
	}

	if err := s.DeleteChatSession(ctx, alice.ID, cs.ID); err != nil {
		t.Fatalf("DeleteChatSession: %v", err)
	}
	msgs, _ := s.ListChatMessages(ctx, cs.ID)
	if len(msgs) != 0 {
		t.Errorf("got %d orphaned messages", len(msgs))
	}
	n, _ := s.CountChatSessions(ctx, alice.ID)
	if n != 0 {
		t.Errorf("got %d sessions, want 0", n)
	}
}

func TestCatalogCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	founded := 1916
	boeing := &model.Manufacturer{Name: "Boeing", Country: "USA", FoundedYear: &founded, IsActive: true}
	if err := s.CreateManufacturer(ctx, boeing); err != nil {
		t.Fatalf("CreateManufacturer: %v", err)
	}
	if err := s.CreateManufacturer(ctx, &model.Manufacturer{Name: "Boeing", IsActive: true}); !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate manufacturer: got %v", err)
	}

	narrow := &model.Category{Name: "Narrow-body", IsActive: true}
	if err := s.CreateCategory(ctx, narrow); err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}

	pax := 189
	b738 := &model.Aircraft{
		ManufacturerID: boeing.ID,
		CategoryID:     narrow.ID,
		ModelName:      "737-800",
		Description:    "Short to medium range twinjet",
		MaxPassengers:  &pax,
		IsActive:       true,
	}
	if err := s.CreateAircraft(ctx, b738); err != nil {
		t.Fatalf("CreateAircraft: %v", err)
	}

	list, err := s.ListAircraft(ctx, model.AircraftFilter{Search: "737"})
	if err != nil {
		t.Fatalf("ListAircraft: %v", err)
	}
	if len(list) != 1 || list[0].MaxPassengers == nil || *list[0].MaxPassengers != 189 {
		t.Errorf("got %+v", list)
	}

	list, _ = s.ListAircraft(ctx, model.AircraftFilter{CategoryID: narrow.ID + 1})
	if len(list) != 0 {
		t.Errorf("category filter returned %d rows", len(list))
	}

	if err := s.CreateAircraft(ctx, &model.Aircraft{ManufacturerID: 999, CategoryID: narrow.ID, ModelName: "X", IsActive: true}); !errors.Is(err, ErrInUse) {
		t.Errorf("dangling manufacturer: got %v, want ErrInUse", err)
	}

	if err := s.DeleteManufacturer(ctx, boeing.ID); !errors.Is(err, ErrInUse) {
		t.Errorf("delete referenced manufacturer: got %v, want ErrInUse", err)
	}

	b738.ModelName = "737-800 NG"
	if err := s.UpdateAircraft(ctx, b738); err != nil {
		t.Fatalf("UpdateAircraft: %v", err)
	}
	got, _ := s.GetAircraft(ctx, b738.ID)
	if got.ModelName != "737-800 NG" {
		t.Errorf("model name = %q", got.ModelName)
	}

	if err := s.DeleteAircraft(ctx, b738.ID); err != nil {
		t.Fatalf("DeleteAircraft: %v", err)
	}
	if err := s.DeleteManufacturer(ctx, boeing.ID); err != nil {
		t.Fatalf("DeleteManufacturer: %v", err)
	}
	if err := s.DeleteCategory(ctx, narrow.ID); err != nil {
		t.Fatalf("DeleteCategory: %v", err)
	}
	if _, err := s.GetCategory(ctx, narrow.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestHashAPIKey(t *testing.T) {
	h1 := HashAPIKey("aircraft_abc")
	h2 := HashAPIKey("aircraft_abc")
	if h1 != h2 {
		t.Error("hash should be deterministic")
	}
	if len(h1) != 64 {
		t.Errorf("hash length = %d, want 64", len(h1))
	}
	if h1 == HashAPIKey("aircraft_abd") {
		t.Error("different keys should hash differently")
	}
}

package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/tmc/langchaingo/llms"

	"github.com/PDPyeh/AeroCatalog-103-C/internal/inference"
	"github.com/PDPyeh/AeroCatalog-103-C/internal/model"
)

// fakeCompleter records prompts and replies with a canned completion.
type fakeCompleter struct {
	mu      sync.Mutex
	prompts [][]llms.MessageContent
	reply   string
	tokens  int
	err     error
}

func (f *fakeCompleter) Complete(ctx context.Context, msgs []llms.MessageContent) (*inference.Completion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, msgs)
	if f.err != nil {
		return nil, f.err
	}
	return &inference.Completion{Content: f.reply, Tokens: f.tokens}, nil
}

func newTestChat(t *testing.T, fc *fakeCompleter) (*ChatService, *model.Developer, *model.Developer) {
	t.Helper()
	st := newTestStore(t)
	alice := registerDeveloper(t, st, "alice@example.com")
	bob := registerDeveloper(t, st, "bob@example.com")
	return NewChatService(st, fc, 5, 50, nil), alice, bob
}

func TestCreateSessionDefaultsAndQuota(t *testing.T) {
	svc, alice, _ := newTestChat(t, &fakeCompleter{})
	ctx := context.Background()

	s, err := svc.CreateSession(ctx, alice.ID, "")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if s.Title != model.DefaultSessionTitle {
		t.Errorf("title = %q, want %q", s.Title, model.DefaultSessionTitle)
	}

	for i := 0; i < 4; i++ {
		if _, err := svc.CreateSession(ctx, alice.ID, "Trip"); err != nil {
			t.Fatalf("session %d: %v", i+2, err)
		}
	}

	_, err = svc.CreateSession(ctx, alice.ID, "sixth")
	var qe *QuotaError
	if !errors.As(err, &qe) || qe.Resource != "chat_sessions" || qe.Current != 5 || qe.Limit != 5 {
		t.Fatalf("got %v, want chat_sessions QuotaError 5/5", err)
	}

	list, err := svc.ListSessions(ctx, alice.ID)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if list.SessionCount != 5 || list.MaxSessions != 5 {
		t.Errorf("got count=%d max=%d", list.SessionCount, list.MaxSessions)
	}
}

func TestSendMessageFirstTurnSetsTitle(t *testing.T) {
	fc := &fakeCompleter{reply: "The 737-800 seats up to 189 passengers.", tokens: 11}
	svc, alice, _ := newTestChat(t, fc)
	ctx := context.Background()

	s, _ := svc.CreateSession(ctx, alice.ID, "")
	question := "How many passengers can a Boeing 737-800 carry in a two-class layout?"
	turn, err := svc.SendMessage(ctx, alice.ID, s.ID, question)
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if turn.UserMessage.Content != question || turn.AssistantMessage.Content != fc.reply {
		t.Errorf("unexpected turn: %+v", turn)
	}
	if turn.AssistantMessage.Tokens != 11 {
		t.Errorf("tokens = %d, want 11", turn.AssistantMessage.Tokens)
	}

	msgs, err := svc.GetMessages(ctx, alice.ID, s.ID)
	if err != nil {
		t.Fatalf("GetMessages: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Role != model.RoleUser || msgs[1].Role != model.RoleAssistant {
		t.Fatalf("got %+v", msgs)
	}

	list, _ := svc.ListSessions(ctx, alice.ID)
	wantTitle := string([]rune(question)[:50])
	if list.Sessions[0].Title != wantTitle {
		t.Errorf("title = %q, want %q", list.Sessions[0].Title, wantTitle)
	}

	// Later turns keep the title and see the history.
	if _, err := svc.SendMessage(ctx, alice.ID, s.ID, "And its range?"); err != nil {
		t.Fatalf("second SendMessage: %v", err)
	}
	list, _ = svc.ListSessions(ctx, alice.ID)
	if list.Sessions[0].Title != wantTitle {
		t.Errorf("title changed to %q", list.Sessions[0].Title)
	}
	if got := len(fc.prompts[1]); got != 4 {
		t.Errorf("second prompt has %d messages, want system+2 prior+user = 4", got)
	}
	msgs, _ = svc.GetMessages(ctx, alice.ID, s.ID)
	if len(msgs) != 4 {
		t.Errorf("got %d messages, want 4", len(msgs))
	}
}

func TestListSessionsIgnoresActivity(t *testing.T) {
	svc, alice, _ := newTestChat(t, &fakeCompleter{reply: "Cruise is about Mach 0.78."})
	ctx := context.Background()

	older, _ := svc.CreateSession(ctx, alice.ID, "older")
	newer, _ := svc.CreateSession(ctx, alice.ID, "newer")
	if _, err := svc.SendMessage(ctx, alice.ID, older.ID, "hi"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	list, err := svc.ListSessions(ctx, alice.ID)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(list.Sessions) != 2 {
		t.Fatalf("got %d sessions, want 2", len(list.Sessions))
	}
	if list.Sessions[0].ID != newer.ID || list.Sessions[1].ID != older.ID {
		t.Errorf("order = [%d %d], want [%d %d]",
			list.Sessions[0].ID, list.Sessions[1].ID, newer.ID, older.ID)
	}
}

func TestSendMessageTitleCountsRunes(t *testing.T) {
	svc, alice, _ := newTestChat(t, &fakeCompleter{reply: "ok"})
	ctx := context.Background()

	s, _ := svc.CreateSession(ctx, alice.ID, "")
	text := strings.Repeat("✈", 60)
	if _, err := svc.SendMessage(ctx, alice.ID, s.ID, text); err != nil {
		t.Fatal(err)
	}
	list, _ := svc.ListSessions(ctx, alice.ID)
	if n := len([]rune(list.Sessions[0].Title)); n != 50 {
		t.Errorf("title has %d runes, want 50", n)
	}
}

func TestSendMessageUpstreamFailurePersistsNothing(t *testing.T) {
	fc := &fakeCompleter{err: inference.ErrUnavailable}
	svc, alice, _ := newTestChat(t, fc)
	ctx := context.Background()

	s, _ := svc.CreateSession(ctx, alice.ID, "")
	_, err := svc.SendMessage(ctx, alice.ID, s.ID, "hello")
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("got %v, want ErrUpstreamUnavailable", err)
	}

	msgs, _ := svc.GetMessages(ctx, alice.ID, s.ID)
	if len(msgs) != 0 {
		t.Errorf("got %d messages after failed turn, want 0", len(msgs))
	}
	list, _ := svc.ListSessions(ctx, alice.ID)
	if list.Sessions[0].Title != model.DefaultSessionTitle {
		t.Errorf("title changed to %q after failed turn", list.Sessions[0].Title)
	}
}

func TestSendMessageValidation(t *testing.T) {
	fc := &fakeCompleter{reply: "ok"}
	svc, alice, _ := newTestChat(t, fc)
	ctx := context.Background()
	s, _ := svc.CreateSession(ctx, alice.ID, "")

	var verr *ValidationError
	if _, err := svc.SendMessage(ctx, alice.ID, s.ID, "   "); !errors.As(err, &verr) {
		t.Errorf("blank message: got %v, want ValidationError", err)
	}
	if _, err := svc.SendMessage(ctx, alice.ID, 0, "hi"); !errors.As(err, &verr) {
		t.Errorf("missing session: got %v, want ValidationError", err)
	}
	if len(fc.prompts) != 0 {
		t.Error("completer called for invalid input")
	}
}

func TestChatIsOwnerScoped(t *testing.T) {
	fc := &fakeCompleter{reply: "ok"}
	svc, alice, bob := newTestChat(t, fc)
	ctx := context.Background()

	s, _ := svc.CreateSession(ctx, alice.ID, "")

	if _, err := svc.GetMessages(ctx, bob.ID, s.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetMessages: got %v, want ErrNotFound", err)
	}
	if _, err := svc.SendMessage(ctx, bob.ID, s.ID, "hi"); !errors.Is(err, ErrNotFound) {
		t.Errorf("SendMessage: got %v, want ErrNotFound", err)
	}
	if err := svc.DeleteSession(ctx, bob.ID, s.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteSession: got %v, want ErrNotFound", err)
	}
	if len(fc.prompts) != 0 {
		t.Error("completer called for a foreign session")
	}

	list, _ := svc.ListSessions(ctx, bob.ID)
	if list.SessionCount != 0 {
		t.Errorf("bob sees %d sessions", list.SessionCount)
	}
}

func TestDeleteSessionRemovesMessages(t *testing.T) {
	svc, alice, _ := newTestChat(t, &fakeCompleter{reply: "ok"})
	ctx := context.Background()

	s, _ := svc.CreateSession(ctx, alice.ID, "")
	if _, err := svc.SendMessage(ctx, alice.ID, s.ID, "hi"); err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteSession(ctx, alice.ID, s.ID); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if _, err := svc.GetMessages(ctx, alice.ID, s.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetMessages after delete: got %v, want ErrNotFound", err)
	}
	if err := svc.DeleteSession(ctx, alice.ID, s.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: got %v, want ErrNotFound", err)
	}
}

package inference

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tmc/langchaingo/llms"

	"github.com/PDPyeh/AeroCatalog-103-C/internal/model"
)

func TestBuildPromptOrder(t *testing.T) {
	prior := []model.ChatMessage{
		{Role: model.RoleUser, Content: "What is a 737?"},
		{Role: model.RoleAssistant, Content: "A Boeing narrow-body."},
	}
	msgs := BuildPrompt(prior, "How many seats?")

	if len(msgs) != 4 {
		t.Fatalf("got %d messages, want 4", len(msgs))
	}
	wantRoles := []llms.ChatMessageType{
		llms.ChatMessageTypeSystem,
		llms.ChatMessageTypeHuman,
		llms.ChatMessageTypeAI,
		llms.ChatMessageTypeHuman,
	}
	for i, want := range wantRoles {
		if msgs[i].Role != want {
			t.Errorf("message %d role = %q, want %q", i, msgs[i].Role, want)
		}
	}
	if got := textOf(msgs[3]); got != "How many seats?" {
		t.Errorf("last message = %q", got)
	}
	if got := textOf(msgs[0]); !strings.Contains(got, RefusalMessage) {
		t.Error("system instruction should carry the refusal sentence")
	}
}

func TestBuildPromptWithoutHistory(t *testing.T) {
	msgs := BuildPrompt(nil, "hello")
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].Role != llms.ChatMessageTypeSystem || msgs[1].Role != llms.ChatMessageTypeHuman {
		t.Errorf("unexpected roles: %q, %q", msgs[0].Role, msgs[1].Role)
	}
}

func textOf(m llms.MessageContent) string {
	var sb strings.Builder
	for _, p := range m.Parts {
		if tc, ok := p.(llms.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	return sb.String()
}

// fakeEndpoint serves an OpenAI-compatible chat completion.
func fakeEndpoint(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func completionJSON(content string, completionTokens int) string {
	body, _ := json.Marshal(map[string]interface{}{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "local-model",
		"choices": []map[string]interface{}{{
			"index":         0,
			"message":       map[string]string{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
		"usage": map[string]int{
			"prompt_tokens":     12,
			"completion_tokens": completionTokens,
			"total_tokens":      12 + completionTokens,
		},
	})
	return string(body)
}

func newTestClient(t *testing.T, baseURL string, timeout time.Duration) *Client {
	t.Helper()
	c, err := NewClient(Options{
		BaseURL:     baseURL,
		Model:       "local-model",
		Temperature: 0.7,
		MaxTokens:   1024,
		Timeout:     timeout,
	}, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestCompleteSuccess(t *testing.T) {
	var gotPath string
	var gotBody map[string]interface{}
	srv := fakeEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionJSON("The 737-800 seats up to 189 passengers.", 42)))
	})

	c := newTestClient(t, srv.URL+"/v1", 5*time.Second)
	out, err := c.Complete(context.Background(), BuildPrompt(nil, "How many seats on a 737-800?"))
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out.Content != "The 737-800 seats up to 189 passengers." {
		t.Errorf("content = %q", out.Content)
	}
	if out.Tokens != 42 {
		t.Errorf("tokens = %d, want 42", out.Tokens)
	}
	if gotPath != "/v1/chat/completions" {
		t.Errorf("path = %q, want /v1/chat/completions", gotPath)
	}
	if gotBody["model"] != "local-model" {
		t.Errorf("model = %v, want local-model", gotBody["model"])
	}
	msgs, _ := gotBody["messages"].([]interface{})
	if len(msgs) != 2 {
		t.Fatalf("sent %d messages, want 2", len(msgs))
	}
	first, _ := msgs[0].(map[string]interface{})
	if first["role"] != "system" {
		t.Errorf("first role = %v, want system", first["role"])
	}
}

func TestCompleteServerError(t *testing.T) {
	srv := fakeEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"model not loaded"}}`, http.StatusInternalServerError)
	})

	c := newTestClient(t, srv.URL+"/v1", 5*time.Second)
	_, err := c.Complete(context.Background(), BuildPrompt(nil, "hi"))
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("got %v, want ErrUnavailable", err)
	}
}

func TestCompleteMalformedBody(t *testing.T) {
	srv := fakeEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":`))
	})

	c := newTestClient(t, srv.URL+"/v1", 5*time.Second)
	if _, err := c.Complete(context.Background(), BuildPrompt(nil, "hi")); !errors.Is(err, ErrUnavailable) {
		t.Errorf("got %v, want ErrUnavailable", err)
	}
}

func TestCompleteTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := fakeEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	c := newTestClient(t, srv.URL+"/v1", 50*time.Millisecond)
	start := time.Now()
	_, err := c.Complete(context.Background(), BuildPrompt(nil, "hi"))
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("got %v, want ErrUnavailable", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("timeout was not applied")
	}
}

func TestCompleteUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := newTestClient(t, url+"/v1", time.Second)
	if _, err := c.Complete(context.Background(), BuildPrompt(nil, "hi")); !errors.Is(err, ErrUnavailable) {
		t.Errorf("got %v, want ErrUnavailable", err)
	}
}

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"love-coach-go/internal/config"
)

type twoFields struct {
	First  string `json:"first" jsonschema:"description=first field"`
	Second string `json:"second" jsonschema:"description=second field"`
}

func (t *twoFields) Validate() error {
	if strings.TrimSpace(t.First) == "" || strings.TrimSpace(t.Second) == "" {
		return errors.New("empty field")
	}
	return nil
}

func completionBody(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-4o",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
	return string(b)
}

// fakeServer 记录最后一次请求体，并以固定内容应答。
func fakeServer(t *testing.T, status int, body string, lastReq *map[string]any, calls *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			atomic.AddInt32(calls, 1)
		}
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("path=%s, want /chat/completions", r.URL.Path)
		}
		raw, _ := io.ReadAll(r.Body)
		if lastReq != nil {
			m := map[string]any{}
			_ = json.Unmarshal(raw, &m)
			*lastReq = m
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(srvURL string, store bool) Client {
	temperature := 0.7
	return newTestClientWith(srvURL, store, config.LLMGenerationConfig{Temperature: &temperature})
}

func newTestClientWith(srvURL string, store bool, gen config.LLMGenerationConfig) Client {
	return NewClient(config.LLMConfig{
		APIKey:     "sk-test",
		BaseURL:    srvURL + "/",
		Model:      "gpt-4o",
		Store:      store,
		Generation: gen,
	})
}

func TestComplete_ReturnsFirstChoiceAndSendsConfig(t *testing.T) {
	t.Parallel()

	var req map[string]any
	srv := fakeServer(t, http.StatusOK, completionBody("an analysis"), &req, nil)
	c := newTestClient(srv.URL, true)

	got, err := c.Complete(context.Background(), []Message{
		{Role: RoleSystem, Content: "system prompt"},
		{Role: RoleUser, Content: "Output in English"},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "an analysis" {
		t.Fatalf("got=%q, want %q", got, "an analysis")
	}

	if req["model"] != "gpt-4o" {
		t.Fatalf("model=%v, want gpt-4o", req["model"])
	}
	if req["store"] != true {
		t.Fatalf("store=%v, want true", req["store"])
	}
	if req["temperature"] != 0.7 {
		t.Fatalf("temperature=%v, want 0.7", req["temperature"])
	}
	msgs, _ := req["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("messages=%v, want 2", msgs)
	}
	first, _ := msgs[0].(map[string]any)
	if first["role"] != "system" || first["content"] != "system prompt" {
		t.Fatalf("first message=%v", first)
	}
	if _, ok := req["response_format"]; ok {
		t.Fatalf("free-text completion must not send response_format")
	}
}

func TestComplete_GenerationParams(t *testing.T) {
	t.Parallel()

	zero := 0.0
	maxTokens := 256
	tests := []struct {
		name string
		gen  config.LLMGenerationConfig
		want map[string]any
		omit []string
	}{
		{
			name: "unset params are omitted",
			gen:  config.LLMGenerationConfig{},
			omit: []string{"temperature", "top_p", "max_completion_tokens"},
		},
		{
			name: "explicit zero is sent",
			gen:  config.LLMGenerationConfig{Temperature: &zero, TopP: &zero, MaxTokens: &maxTokens},
			want: map[string]any{"temperature": 0.0, "top_p": 0.0, "max_completion_tokens": 256.0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var req map[string]any
			srv := fakeServer(t, http.StatusOK, completionBody("ok"), &req, nil)
			c := newTestClientWith(srv.URL, false, tt.gen)

			if _, err := c.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}); err != nil {
				t.Fatalf("Complete: %v", err)
			}
			for key, want := range tt.want {
				got, ok := req[key]
				if !ok || got != want {
					t.Fatalf("%s=%v (present=%v), want %v", key, got, ok, want)
				}
			}
			for _, key := range tt.omit {
				if _, ok := req[key]; ok {
					t.Fatalf("%s should be omitted, request=%v", key, req)
				}
			}
		})
	}
}

func TestComplete_NoRetryOnServerError(t *testing.T) {
	t.Parallel()

	var calls int32
	srv := fakeServer(t, http.StatusInternalServerError, `{"error":{"message":"boom","type":"server_error"}}`, nil, &calls)
	c := newTestClient(srv.URL, false)

	if _, err := c.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}); err == nil {
		t.Fatalf("expected error")
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("calls=%d, want exactly 1 attempt", n)
	}
}

func TestComplete_EmptyChoices(t *testing.T) {
	t.Parallel()

	body := `{"id":"x","object":"chat.completion","created":1,"model":"gpt-4o","choices":[]}`
	srv := fakeServer(t, http.StatusOK, body, nil, nil)
	c := newTestClient(srv.URL, false)

	_, err := c.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("err=%v, want ErrEmptyResponse", err)
	}
}

func TestCompleteStructured_DecodesAndSendsSchema(t *testing.T) {
	t.Parallel()

	var req map[string]any
	srv := fakeServer(t, http.StatusOK, completionBody(`{"first":"a","second":"b"}`), &req, nil)
	c := newTestClient(srv.URL, false)

	var out twoFields
	err := c.CompleteStructured(context.Background(),
		[]Message{{Role: RoleUser, Content: "go"}},
		FormatFor[twoFields]("TwoFields", "two fields"),
		&out,
	)
	if err != nil {
		t.Fatalf("CompleteStructured: %v", err)
	}
	if out.First != "a" || out.Second != "b" {
		t.Fatalf("out=%+v", out)
	}

	rf, _ := req["response_format"].(map[string]any)
	if rf["type"] != "json_schema" {
		t.Fatalf("response_format.type=%v, want json_schema", rf["type"])
	}
	js, _ := rf["json_schema"].(map[string]any)
	if js["name"] != "TwoFields" || js["strict"] != true {
		t.Fatalf("json_schema=%v", js)
	}
}

func TestCompleteStructured_ValidationFailure(t *testing.T) {
	t.Parallel()

	srv := fakeServer(t, http.StatusOK, completionBody(`{"first":"a","second":"  "}`), nil, nil)
	c := newTestClient(srv.URL, false)

	var out twoFields
	err := c.CompleteStructured(context.Background(),
		[]Message{{Role: RoleUser, Content: "go"}},
		FormatFor[twoFields]("TwoFields", "two fields"),
		&out,
	)
	if err == nil || !strings.Contains(err.Error(), "invalid TwoFields response") {
		t.Fatalf("err=%v, want validation error", err)
	}
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"plain", `{"first":"x","second":"y"}`, "x", false},
		{"wrapped in prose", "Here you go:\n{\"first\":\"x\",\"second\":\"y\"}\nThanks", "x", false},
		{"empty", "   ", "", true},
		{"no object", "nothing here", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out twoFields
			err := DecodeJSON(tt.in, &out)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeJSON: %v", err)
			}
			if out.First != tt.want {
				t.Fatalf("First=%q, want %q", out.First, tt.want)
			}
		})
	}
}

func TestGenerateSchema_StrictObject(t *testing.T) {
	t.Parallel()

	schema := GenerateSchema[twoFields]()
	if schema["type"] != "object" {
		t.Fatalf("type=%v, want object", schema["type"])
	}
	if schema["additionalProperties"] != false {
		t.Fatalf("additionalProperties=%v, want false", schema["additionalProperties"])
	}
	required, _ := schema["required"].([]string)
	if len(required) != 2 {
		t.Fatalf("required=%v, want 2 fields", schema["required"])
	}
}

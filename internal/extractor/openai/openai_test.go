package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheoremOne-Talent/skills-extractor/internal/logger"
)

func newTestExtractor(t *testing.T, url string) (*Extractor, *bytes.Buffer) {
	t.Helper()
	t.Setenv("TEST_CHAT_KEY", "secret")
	var errOut bytes.Buffer
	e, err := NewExtractor(Config{BaseURL: url, APIKeyEnv: "TEST_CHAT_KEY", Model: "m"},
		logger.NewWithWriters("info", &bytes.Buffer{}, &errOut))
	require.NoError(t, err)
	return e, &errOut
}

func TestExtract_ToolCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		var req chatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "m", req.Model)
		assert.Equal(t, functionName, req.ToolChoice.Function.Name)
		if assert.Len(t, req.Messages, 1) {
			assert.Equal(t, "I know python and java", req.Messages[0].Content)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"tool_calls":[{"id":"1","type":"function",
			"function":{"name":"skills_to_json_list","arguments":"{\"skills\":[\"Python\",\" \",\"Java \"]}"}}]}}]}`))
	}))
	defer srv.Close()

	e, _ := newTestExtractor(t, srv.URL)
	assert.Equal(t, []string{"Python", "Java"}, e.Extract(context.Background(), "I know python and java"))
}

func TestExtract_LegacyFunctionCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"function_call":
			{"name":"skills_to_json_list","arguments":"{\"skills\":[\"Go\"]}"}}}]}`))
	}))
	defer srv.Close()

	e, _ := newTestExtractor(t, srv.URL)
	assert.Equal(t, []string{"Go"}, e.Extract(context.Background(), "gopher"))
}

func TestExtract_FailuresYieldNothing(t *testing.T) {
	tests := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		},
		"plain content": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Python, Java"}}]}`))
		},
		"bad arguments": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"choices":[{"message":{"function_call":{"name":"skills_to_json_list","arguments":"not json"}}}]}`))
		},
		"no choices": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"choices":[]}`))
		},
	}
	for name, h := range tests {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()

			e, errOut := newTestExtractor(t, srv.URL)
			assert.Nil(t, e.Extract(context.Background(), "anything"))
			assert.Contains(t, errOut.String(), "skill extraction failed")
		})
	}
}

func TestExtract_BlankTextSkipsRequest(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	defer srv.Close()

	e, _ := newTestExtractor(t, srv.URL)
	assert.Nil(t, e.Extract(context.Background(), "  "))
	assert.False(t, called)
}

func TestNewExtractor_MissingKey(t *testing.T) {
	t.Setenv("NO_SUCH_CHAT_KEY", "")
	_, err := NewExtractor(Config{APIKeyEnv: "NO_SUCH_CHAT_KEY"}, nil)
	assert.Error(t, err)
}

// Package openai extracts skill lists from free text with an
// OpenAI-compatible chat-completions endpoint, forcing a single function
// call whose arguments carry the skills.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/TheoremOne-Talent/skills-extractor/internal/logger"
)

const functionName = "skills_to_json_list"

var ErrNoFunctionCall = errors.New("response carries no skills_to_json_list call")

// Config configures the chat-completions extractor.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
}

// Extractor implements domain.Extractor.
type Extractor struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	log        *logger.Logger
}

// NewExtractor reads the API key from the configured environment variable.
func NewExtractor(cfg Config, log *logger.Logger) (*Extractor, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-3.5-turbo"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if log == nil {
		log = logger.NewDiscard()
	}
	return &Extractor{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     key,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log,
	}, nil
}

// Extract never fails: transport, status and decoding errors are logged and
// yield no skills.
func (e *Extractor) Extract(ctx context.Context, text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	skills, err := e.extract(ctx, text)
	if err != nil {
		e.log.Error("skill extraction failed: %v", err)
		return nil
	}
	return skills
}

func (e *Extractor) extract(ctx context.Context, text string) ([]string, error) {
	body, err := json.Marshal(e.request(text))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+e.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       string(raw),
		}
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	e.log.Debug("LLM usage - prompt_tokens: %d, completion_tokens: %d, total_tokens: %d",
		parsed.Usage.PromptTokens, parsed.Usage.CompletionTokens, parsed.Usage.TotalTokens)

	args, err := arguments(parsed)
	if err != nil {
		return nil, err
	}
	var decoded skillsArguments
	if err := json.Unmarshal([]byte(args), &decoded); err != nil {
		return nil, fmt.Errorf("invalid function arguments: %w", err)
	}
	out := make([]string, 0, len(decoded.Skills))
	for _, s := range decoded.Skills {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

func (e *Extractor) request(text string) chatRequest {
	var choice toolChoice
	choice.Type = "function"
	choice.Function.Name = functionName
	return chatRequest{
		Model:    e.model,
		Messages: []chatMessage{{Role: "user", Content: text}},
		Tools: []tool{{
			Type: "function",
			Function: functionSpec{
				Name:        functionName,
				Description: "Convert a variable number of skills into a JSON-encoded list.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"skills": map[string]any{
							"type":        "array",
							"description": "A variable number of skill strings.",
							"items":       map[string]any{"type": "string"},
						},
					},
					"required": []string{"skills"},
				},
			},
		}},
		ToolChoice: choice,
	}
}

// arguments accepts both tool calls and the legacy function_call field.
func arguments(resp chatResponse) (string, error) {
	if len(resp.Choices) == 0 {
		return "", errors.New("empty response from LLM")
	}
	msg := resp.Choices[0].Message
	for _, tc := range msg.ToolCalls {
		if tc.Function.Name == functionName {
			return tc.Function.Arguments, nil
		}
	}
	if msg.FunctionCall != nil && msg.FunctionCall.Name == functionName {
		return msg.FunctionCall.Arguments, nil
	}
	return "", ErrNoFunctionCall
}

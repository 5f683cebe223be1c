// Package extractor turns free-form evidence into structured JSON by
// prompting a chat-completions language model.
package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"quickfi/internal/screening/sources"
)

const sourceName = "extractor"

const systemPrompt = "You are a due diligence analyst. Answer only with a single JSON object matching the requested fields. Do not add commentary."

// ParseError reports model output that is not the JSON the caller asked
// for. It is recoverable: checks decide whether it fails open or closed.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse extractor output: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsParseError reports whether err carries a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// Decode unmarshals raw into T, reporting failures as *ParseError.
func Decode[T any](raw json.RawMessage) (T, error) {
	var out T
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&out); err != nil {
		return out, &ParseError{Raw: string(raw), Err: err}
	}
	return out, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Client calls an OpenAI-compatible /chat/completions endpoint.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	client  sources.HTTPDoer
	logger  *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(c sources.HTTPDoer) Option {
	return func(cl *Client) { cl.client = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

func New(baseURL, apiKey, model string, timeout time.Duration, opts ...Option) *Client {
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: timeout},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Analyze sends prompt and returns the model's JSON object. Transport and
// status failures are *sources.SourceError; non-JSON content is *ParseError.
func (c *Client) Analyze(ctx context.Context, prompt string) (json.RawMessage, error) {
	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, sources.NewSourceError(sources.ErrorInternal, sourceName, "failed to marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, sources.NewSourceError(sources.ErrorInternal, sourceName, "failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, sources.TransportError(ctx, sourceName, err)
	}
	defer resp.Body.Close()

	if se := sources.StatusError(sourceName, resp.StatusCode); se != nil {
		return nil, se
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, sources.NewSourceError(sources.ErrorBadData, sourceName, "failed to read response", err)
	}
	var cr chatResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return nil, sources.NewSourceError(sources.ErrorBadData, sourceName, "failed to decode response", err)
	}
	if len(cr.Choices) == 0 {
		return nil, sources.NewSourceError(sources.ErrorContractMismatch, sourceName, "response has no choices", nil)
	}

	content := stripFences(cr.Choices[0].Message.Content)
	if !json.Valid([]byte(content)) {
		c.logger.DebugContext(ctx, "extractor returned non-JSON content", "length", len(content))
		return nil, &ParseError{Raw: content, Err: errors.New("content is not valid JSON")}
	}
	return json.RawMessage(content), nil
}

// stripFences removes a surrounding markdown code fence, which some models
// emit even when asked for bare JSON.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// Package openrouter implements llm.Client against an OpenAI-compatible
// gateway (OpenRouter by default) using the go-openai SDK.
package openrouter

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sakif/codeagentix/internal/llm"
)

// DefaultBaseURL is OpenRouter's OpenAI-compatible API root.
const DefaultBaseURL = "https://openrouter.ai/api/v1"

// Config holds gateway credentials and attribution headers.
type Config struct {
	APIKey  string
	BaseURL string
	// Referer and Title are sent as HTTP-Referer and X-Title, which OpenRouter
	// uses to attribute traffic to an application.
	Referer string
	Title   string
	// Timeout bounds one HTTP exchange. Zero leaves streams bounded only by the request context.
	Timeout time.Duration
}

// Client is a go-openai client bound to the gateway.
type Client struct {
	api *openai.Client
}

var _ llm.Client = (*Client)(nil)

// New builds a client. An empty API key is rejected because every call would fail with 401.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("openrouter: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	oc.HTTPClient = &http.Client{
		Timeout: cfg.Timeout,
		Transport: &headerTransport{
			base:    otelhttp.NewTransport(http.DefaultTransport),
			referer: cfg.Referer,
			title:   cfg.Title,
		},
	}

	return &Client{api: openai.NewClientWithConfig(oc)}, nil
}

// headerTransport adds the attribution headers to every request.
type headerTransport struct {
	base    http.RoundTripper
	referer string
	title   string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if t.referer != "" {
		req.Header.Set("HTTP-Referer", t.referer)
	}
	if t.title != "" {
		req.Header.Set("X-Title", t.title)
	}
	return t.base.RoundTrip(req)
}

// go-openai drops a zero temperature (omitempty), which would leave the
// provider default in place. The smallest positive float32 serialises as a
// value every provider treats as greedy decoding.
var zeroTemperature = float32(math.SmallestNonzeroFloat32)

func request(model, prompt string, stream bool) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model:       model,
		Temperature: zeroTemperature,
		Stream:      stream,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
}

// Complete runs a non-streaming chat completion.
func (c *Client) Complete(ctx context.Context, model, prompt string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, request(model, prompt, false))
	if err != nil {
		return "", fmt.Errorf("openrouter: %s: %w", model, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openrouter: %s: empty response", model)
	}
	return resp.Choices[0].Message.Content, nil
}

// Stream opens a server-sent-events chat completion.
func (c *Client) Stream(ctx context.Context, model, prompt string) (llm.Stream, error) {
	s, err := c.api.CreateChatCompletionStream(ctx, request(model, prompt, true))
	if err != nil {
		return nil, fmt.Errorf("openrouter: %s: %w", model, err)
	}
	return &stream{s: s, model: model}, nil
}

type stream struct {
	s     *openai.ChatCompletionStream
	model string
}

func (s *stream) Recv() (string, error) {
	resp, err := s.s.Recv()
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Delta.Content, nil
}

func (s *stream) Close() error {
	return s.s.Close()
}

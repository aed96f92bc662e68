package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Role identifies the author of a message in a request.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
	RoleModel  Role = "model"
)

// Message is one turn of a request.
type Message struct {
	Role    Role
	Content string
}

// Request is a single generation call: messages in, text out.
type Request struct {
	Messages        []Message
	Temperature     float32
	MaxOutputTokens int32
	Tier            ModelTier
	// JSON asks the provider for a JSON response body when it supports it.
	JSON bool
}

var (
	// ErrUnavailable is returned when no generative capability is configured.
	ErrUnavailable = errors.New("generative capability unavailable")
	// ErrEmptyResponse is returned when the provider answers without text.
	ErrEmptyResponse = errors.New("empty response from model")
	// ErrInvalidRequest is returned for requests that cannot be sent.
	ErrInvalidRequest = errors.New("invalid generation request")
)

// Client is an abstraction over LLM providers
type Client interface {
	// Generate sends the request and returns the raw model text.
	Generate(ctx context.Context, req *Request) (string, error)
	// Model returns the provider model used for a tier.
	Model(tier ModelTier) string
	// Close releases any resources held by the client
	Close() error
}

// NewClient creates a new LLM client based on configuration. Without an API
// key it returns an Unavailable client so callers can degrade instead of
// failing at startup.
func NewClient(ctx context.Context, config *Config, apiKey string) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if apiKey == "" {
		return Unavailable{Reason: "no API key configured"}, nil
	}

	switch config.Provider {
	case ProviderGemini:
		return NewGeminiClient(ctx, config, apiKey)
	default:
		return nil, fmt.Errorf("unsupported provider %q", config.Provider)
	}
}

// GeminiClient implements Client for Google Gemini
type GeminiClient struct {
	client *genai.Client
	config *Config
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(ctx context.Context, config *Config, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client: client,
		config: config,
	}, nil
}

// Generate runs the request as a chat: system messages become the system
// instruction, earlier turns become history and the final user turn is sent.
func (c *GeminiClient) Generate(ctx context.Context, req *Request) (string, error) {
	if req == nil {
		return "", fmt.Errorf("%w: nil request", ErrInvalidRequest)
	}
	modelName := c.config.GetModel(req.Tier)
	if modelName == "" {
		return "", fmt.Errorf("no model configured for tier %s", req.Tier)
	}

	system, history, last, err := splitMessages(req.Messages)
	if err != nil {
		return "", err
	}

	model := c.client.GenerativeModel(modelName)
	model.SetTemperature(req.Temperature)
	if req.MaxOutputTokens > 0 {
		model.SetMaxOutputTokens(req.MaxOutputTokens)
	}
	if req.JSON {
		model.ResponseMIMEType = "application/json"
	}
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	session := model.StartChat()
	session.History = history

	resp, err := session.SendMessage(ctx, genai.Text(last))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	return extractTextFromResponse(resp)
}

// Model returns the model name for a tier
func (c *GeminiClient) Model(tier ModelTier) string {
	return c.config.GetModel(tier)
}

// Close releases resources held by the client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// splitMessages converts messages into a system instruction, chat history
// and the final user message.
func splitMessages(msgs []Message) (string, []*genai.Content, string, error) {
	var system []string
	var turns []Message
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleUser, RoleModel:
			turns = append(turns, m)
		default:
			return "", nil, "", fmt.Errorf("%w: unknown role %q", ErrInvalidRequest, m.Role)
		}
	}
	if len(turns) == 0 || turns[len(turns)-1].Role != RoleUser {
		return "", nil, "", fmt.Errorf("%w: last message must be from the user", ErrInvalidRequest)
	}

	history := make([]*genai.Content, 0, len(turns)-1)
	for _, m := range turns[:len(turns)-1] {
		history = append(history, &genai.Content{
			Role:  string(m.Role),
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}
	return strings.Join(system, "\n\n"), history, turns[len(turns)-1].Content, nil
}

// extractTextFromResponse extracts text from Gemini API response
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates", ErrEmptyResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("%w: no content", ErrEmptyResponse)
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("%w: no text parts", ErrEmptyResponse)
	}

	return strings.Join(parts, ""), nil
}

// Unavailable is a Client that always fails with ErrUnavailable.
type Unavailable struct {
	Reason string
}

// Generate implements Client.
func (u Unavailable) Generate(context.Context, *Request) (string, error) {
	if u.Reason == "" {
		return "", ErrUnavailable
	}
	return "", fmt.Errorf("%w: %s", ErrUnavailable, u.Reason)
}

// Model implements Client.
func (Unavailable) Model(ModelTier) string { return "" }

// Close implements Client.
func (Unavailable) Close() error { return nil }

// ClientFunc adapts a function to the Client interface.
type ClientFunc func(ctx context.Context, req *Request) (string, error)

// Generate implements Client.
func (f ClientFunc) Generate(ctx context.Context, req *Request) (string, error) {
	return f(ctx, req)
}

// Model implements Client.
func (ClientFunc) Model(ModelTier) string { return "func" }

// Close implements Client.
func (ClientFunc) Close() error { return nil }

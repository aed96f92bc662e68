package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_NoAPIKeyIsUnavailable(t *testing.T) {
	client, err := NewClient(context.Background(), nil, "")
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), &Request{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.Contains(t, err.Error(), "no API key")
	assert.NoError(t, client.Close())
}

func TestNewClient_UnsupportedProvider(t *testing.T) {
	_, err := NewClient(context.Background(), &Config{Provider: "other"}, "key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported provider")
}

func TestUnavailable_WithoutReason(t *testing.T) {
	_, err := Unavailable{}.Generate(context.Background(), nil)
	assert.Equal(t, ErrUnavailable, err)
}

func TestClientFunc(t *testing.T) {
	var got *Request
	client := ClientFunc(func(_ context.Context, req *Request) (string, error) {
		got = req
		return `{"ok": true}`, nil
	})

	out, err := client.Generate(context.Background(), &Request{Tier: TierLite})
	require.NoError(t, err)
	assert.Equal(t, `{"ok": true}`, out)
	assert.Equal(t, TierLite, got.Tier)
}

func TestSplitMessages(t *testing.T) {
	system, history, last, err := splitMessages([]Message{
		{Role: RoleSystem, Content: "be precise"},
		{Role: RoleSystem, Content: "json only"},
		{Role: RoleUser, Content: "example page"},
		{Role: RoleModel, Content: `{"title": "x"}`},
		{Role: RoleUser, Content: "real page"},
	})
	require.NoError(t, err)

	assert.Equal(t, "be precise\n\njson only", system)
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, genai.Text("example page"), history[0].Parts[0])
	assert.Equal(t, "model", history[1].Role)
	assert.Equal(t, "real page", last)
}

func TestSplitMessages_Invalid(t *testing.T) {
	tests := []struct {
		name string
		msgs []Message
	}{
		{"empty", nil},
		{"system only", []Message{{Role: RoleSystem, Content: "x"}}},
		{"ends with model", []Message{{Role: RoleUser, Content: "a"}, {Role: RoleModel, Content: "b"}}},
		{"unknown role", []Message{{Role: "tool", Content: "a"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := splitMessages(tt.msgs)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidRequest))
		})
	}
}

func TestExtractTextFromResponse(t *testing.T) {
	_, err := extractTextFromResponse(&genai.GenerateContentResponse{})
	assert.True(t, errors.Is(err, ErrEmptyResponse))

	text, err := extractTextFromResponse(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text(`{"a":`), genai.Text(`1}`)}},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, text)
}

func TestBuildInstruction_JobFields(t *testing.T) {
	instruction := BuildInstruction(JobFieldsSchema())

	assert.Contains(t, instruction, "expert job posting parser")
	assert.Contains(t, instruction, `"title": "string" (required)`)
	assert.Contains(t, instruction, `"remote": boolean (required)`)
	assert.Contains(t, instruction, `"extraction_notes": "string" //`)
	assert.Contains(t, instruction, "Return ONLY the JSON object")
}

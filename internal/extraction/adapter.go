// Package extraction adapts the generative engine into a job field
// extractor: it builds the platform-aware request, decodes and validates the
// JSON answer and applies heuristic quality rules.
package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/jonathan/job-validator/internal/llm"
	"github.com/jonathan/job-validator/internal/prompts"
	"github.com/jonathan/job-validator/internal/schemas"
	"github.com/jonathan/job-validator/internal/types"
)

// Config configures an Adapter.
type Config struct {
	Temperature     float32
	MaxOutputTokens int32
	Tier            llm.ModelTier
	// MinConfidence is the overall confidence below which a result is rejected.
	MinConfidence float64
	// MaxContentChars truncates page text sent to the engine.
	MaxContentChars int
	Timeout         time.Duration
}

// DefaultConfig returns the standard adapter settings.
func DefaultConfig() Config {
	return Config{
		Temperature:     0.1,
		MaxOutputTokens: 1024,
		Tier:            llm.TierLite,
		MinConfidence:   0.3,
		MaxContentChars: 12000,
		Timeout:         30 * time.Second,
	}
}

// Result is a successful extraction.
type Result struct {
	Fields   *types.ExtractedJobFields
	Warnings []types.ValidationWarning
	Model    string
}

// Adapter turns page content into ExtractedJobFields.
type Adapter struct {
	client   llm.Client
	cfg      Config
	validate *validator.Validate
	logger   *zap.Logger
}

// New creates an Adapter. A nil client behaves as llm.Unavailable.
func New(client llm.Client, cfg Config, logger *zap.Logger) *Adapter {
	if client == nil {
		client = llm.Unavailable{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := DefaultConfig()
	if cfg.Tier == "" {
		cfg.Tier = d.Tier
	}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = d.MaxOutputTokens
	}
	if cfg.MaxContentChars <= 0 {
		cfg.MaxContentChars = d.MaxContentChars
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = d.Timeout
	}
	return &Adapter{
		client:   client,
		cfg:      cfg,
		validate: validator.New(),
		logger:   logger.Named("extraction"),
	}
}

// Extract sends one request for page and returns the decoded fields. Every
// failure is an *Error.
func (a *Adapter) Extract(ctx context.Context, page *types.PageContent) (*Result, error) {
	if page == nil || page.Text == "" {
		return nil, newError(KindMalformed, "no page content", nil)
	}

	req, err := a.BuildRequest(page)
	if err != nil {
		return nil, newError(KindMalformed, "failed to build request", err)
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	start := time.Now()
	raw, err := a.client.Generate(ctx, req)
	if err != nil {
		return nil, classifyClientError(ctx, err)
	}
	a.logger.Debug("engine responded",
		zap.String("url", page.URL),
		zap.String("platform", page.Platform),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("response_chars", len(raw)))

	fields, err := a.Decode(raw)
	if err != nil {
		return nil, err
	}

	warnings := ApplyRules(fields, page.Platform)

	if fields.Confidence.Overall < a.cfg.MinConfidence {
		return nil, newError(KindLowConfidence,
			fmt.Sprintf("overall confidence %.2f below %.2f", fields.Confidence.Overall, a.cfg.MinConfidence), nil)
	}

	return &Result{Fields: fields, Warnings: warnings, Model: a.client.Model(a.cfg.Tier)}, nil
}

// BuildRequest assembles the instruction, few-shot examples and content.
func (a *Adapter) BuildRequest(page *types.PageContent) (*llm.Request, error) {
	platform := page.Platform
	if platform == "" {
		platform = prompts.GenericPlatform
	}

	instruction := llm.BuildInstruction(llm.JobFieldsSchema()) + "\n" + prompts.Guidance(platform)
	msgs := []llm.Message{{Role: llm.RoleSystem, Content: instruction}}

	examples, err := prompts.Examples(platform)
	if err != nil {
		return nil, err
	}
	for _, ex := range examples {
		msgs = append(msgs,
			llm.Message{Role: llm.RoleUser, Content: a.renderContent(platform, "", "", ex.Page)},
			llm.Message{Role: llm.RoleModel, Content: string(ex.Output)},
		)
	}

	msgs = append(msgs, llm.Message{
		Role:    llm.RoleUser,
		Content: a.renderContent(platform, page.FinalURL, page.Title, page.Text),
	})

	return &llm.Request{
		Messages:        msgs,
		Temperature:     a.cfg.Temperature,
		MaxOutputTokens: a.cfg.MaxOutputTokens,
		Tier:            a.cfg.Tier,
		JSON:            true,
	}, nil
}

func (a *Adapter) renderContent(platform, pageURL, title, text string) string {
	return prompts.Format(prompts.MustGet(prompts.ExtractionFile, "content"), map[string]string{
		"Platform": platform,
		"URL":      pageURL,
		"Title":    title,
		"Content":  truncate(text, a.cfg.MaxContentChars),
	})
}

// wireFields mirrors the engine's JSON; location and notes may be null.
type wireFields struct {
	Title           string                `json:"title"`
	Company         string                `json:"company"`
	Location        *string               `json:"location"`
	Remote          bool                  `json:"remote"`
	Confidence      types.FieldConfidence `json:"confidence"`
	ExtractionNotes *string               `json:"extraction_notes"`
}

// Decode parses raw engine output into fields. Code fences and surrounding
// prose are tolerated; confidences are clamped into [0,1].
func (a *Adapter) Decode(raw string) (*types.ExtractedJobFields, error) {
	doc := llm.ExtractJSON(raw)
	if doc == "" {
		return nil, newError(KindMalformed, "no JSON object in response", nil)
	}

	if err := schemas.ValidateDocument(schemas.ExtractedJobFields, []byte(doc)); err != nil {
		var loadErr *schemas.SchemaLoadError
		if errors.As(err, &loadErr) {
			return nil, newError(KindMalformed, "response is not valid JSON", err)
		}
		return nil, newError(KindSchema, "response does not match schema", err)
	}

	var w wireFields
	if err := json.Unmarshal([]byte(doc), &w); err != nil {
		return nil, newError(KindMalformed, "failed to decode response", err)
	}

	fields := &types.ExtractedJobFields{
		Title:      collapseSpace(w.Title),
		Company:    collapseSpace(w.Company),
		Remote:     w.Remote,
		Confidence: w.Confidence,
	}
	if w.Location != nil {
		fields.Location = collapseSpace(*w.Location)
	}
	if w.ExtractionNotes != nil {
		fields.ExtractionNotes = *w.ExtractionNotes
	}
	fields.Confidence.Title = clamp01(fields.Confidence.Title)
	fields.Confidence.Company = clamp01(fields.Confidence.Company)
	fields.Confidence.Location = clamp01(fields.Confidence.Location)
	fields.Confidence.Overall = clamp01(fields.Confidence.Overall)

	if err := a.validate.Struct(fields); err != nil {
		return nil, newError(KindSchema, "decoded fields failed validation", err)
	}
	return fields, nil
}

func classifyClientError(ctx context.Context, err error) *Error {
	switch {
	case errors.Is(err, llm.ErrUnavailable):
		return newError(KindUnavailable, "engine unavailable", err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return newError(KindTimeout, "engine timed out", err)
	case errors.Is(err, llm.ErrEmptyResponse):
		return newError(KindMalformed, "engine returned no text", err)
	case errors.Is(err, llm.ErrInvalidRequest):
		return newError(KindMalformed, "request rejected", err)
	default:
		return newError(KindTransport, "engine call failed", err)
	}
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

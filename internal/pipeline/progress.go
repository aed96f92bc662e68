package pipeline

import (
	"context"

	"github.com/jonathan/job-validator/internal/types"
)

// ProgressEvent reports the completion of one tier.
type ProgressEvent struct {
	ID         string     `json:"id"`
	URL        string     `json:"url"`
	Step       string     `json:"step"`
	Tier       types.Tier `json:"tier"`
	Passed     bool       `json:"passed"`
	Confidence float64    `json:"confidence"`
	Message    string     `json:"message"`
	// Content is the tier result.
	Content any `json:"content,omitempty"`
}

// ProgressCallback receives progress events. It is called synchronously from
// the validating goroutine.
type ProgressCallback func(event ProgressEvent)

type progressKey struct{}

// WithProgress returns a context whose validations also report to cb.
func WithProgress(ctx context.Context, cb ProgressCallback) context.Context {
	return context.WithValue(ctx, progressKey{}, cb)
}

// ProgressFrom returns the callback installed by WithProgress, or nil.
func ProgressFrom(ctx context.Context) ProgressCallback {
	cb, _ := ctx.Value(progressKey{}).(ProgressCallback)
	return cb
}

func (o *Orchestrator) emit(ctx context.Context, res *types.UnifiedValidationResult, step string, passed bool, content any) {
	scoped := ProgressFrom(ctx)
	if o.onProgress == nil && scoped == nil {
		return
	}
	ev := ProgressEvent{
		ID:      res.ID.String(),
		URL:     res.URL,
		Step:    step,
		Tier:    res.HighestTierReached,
		Passed:  passed,
		Content: content,
	}
	switch r := content.(type) {
	case *types.TierResult[types.URLAnalysis]:
		ev.Confidence, ev.Message = r.Confidence, stepMessage(step, passed, r.FirstBlocking())
	case *types.TierResult[types.ContentClassification]:
		ev.Confidence, ev.Message = r.Confidence, stepMessage(step, passed, r.FirstBlocking())
	case *types.TierResult[types.ExtractedJobFields]:
		ev.Confidence, ev.Message = r.Confidence, stepMessage(step, passed, firstError(r.Errors))
	}
	if o.onProgress != nil {
		o.onProgress(ev)
	}
	if scoped != nil {
		scoped(ev)
	}
}

func stepMessage(step string, passed bool, e *types.ValidationError) string {
	switch {
	case passed && e == nil:
		return step + " passed"
	case e != nil:
		return step + " failed: " + e.Code
	default:
		return step + " failed"
	}
}

func firstError(errs []types.ValidationError) *types.ValidationError {
	if len(errs) == 0 {
		return nil
	}
	return &errs[0]
}

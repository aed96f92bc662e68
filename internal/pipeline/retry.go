package pipeline

import (
	"context"
	"time"

	"github.com/jonathan/job-validator/internal/breaker"
	"github.com/jonathan/job-validator/internal/types"
)

// transientCodes are the tier errors worth another attempt in-process.
var transientCodes = map[string]bool{
	types.CodeURLTimeout:         true,
	types.CodeURLUnreachable:     true,
	types.CodeURLServerError:     true,
	types.CodeURLRateLimited:     true,
	types.CodeContentFetchFailed: true,
}

// networkCodes count against a domain's fetch breaker.
var networkCodes = map[string]bool{
	types.CodeURLTimeout:         true,
	types.CodeURLUnreachable:     true,
	types.CodeURLServerError:     true,
	types.CodeContentFetchFailed: true,
}

// shouldRetry reports whether errs contain a transient code and nothing that
// makes another attempt pointless.
func shouldRetry(errs []types.ValidationError) bool {
	transient := false
	for _, e := range errs {
		if e.IsBlocking() && !e.Retryable {
			return false
		}
		if transientCodes[e.Code] {
			transient = true
		}
	}
	return transient
}

// fetchHealth turns a tier's errors into a fetch breaker outcome. Only
// network-level failures count; a 404 says nothing about the host's health.
func fetchHealth(errs []types.ValidationError, fetched bool) breaker.Outcome {
	for _, e := range errs {
		if networkCodes[e.Code] {
			return breaker.Failure
		}
	}
	if fetched {
		return breaker.Success
	}
	return breaker.Ignore
}

// backoff returns the delay before retry number attempt (1-based).
func (o *Orchestrator) backoff(attempt int) time.Duration {
	d := o.cfg.BaseBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= o.cfg.MaxBackoff {
			return o.cfg.MaxBackoff
		}
	}
	return d
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

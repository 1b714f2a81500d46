package model

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"

	"github.com/chainguard-dev/clog"
)

// RetryConfig controls backoff behavior for Generate calls.
type RetryConfig struct {
	MaxRetries  int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	MaxJitter   time.Duration
}

// DefaultRetryConfig returns sensible defaults for provider calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:  5,
		BaseBackoff: 1 * time.Second,
		MaxBackoff:  60 * time.Second,
		MaxJitter:   500 * time.Millisecond,
	}
}

// GenerateWithRetry calls p.Generate, retrying retryable failures with
// exponential backoff and jitter. Non-retryable errors return immediately.
func GenerateWithRetry(ctx context.Context, p Provider, req Request, cfg RetryConfig) (*Response, error) {
	log := clog.FromContext(ctx).With("provider", p.Name(), "model", req.Model)

	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := cfg.BaseBackoff << (attempt - 1)
			if backoff > cfg.MaxBackoff {
				backoff = cfg.MaxBackoff
			}
			backoff += randomJitter(cfg.MaxJitter)

			log.With("attempt", attempt, "backoff", backoff).Warn("retrying model call")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := p.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		if !IsRetryable(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func randomJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return max / 2
	}
	return time.Duration(n.Int64())
}

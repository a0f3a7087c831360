// File: internal/infra/adapters/ai/dispatcher.go
package ai

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"video-cm-analysis/internal/domain"
	"video-cm-analysis/internal/domain/ports/adapter"
	"video-cm-analysis/internal/domain/ports/repository"
	"video-cm-analysis/internal/infra/logging"
	"video-cm-analysis/internal/infra/metrics"
)

// ExhaustedError is returned when every credential in the pool was rate
// limited within a single dispatch. It wraps the last underlying cause.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all %d api keys rate limited: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// Dispatcher routes generation requests across the stored credential pool
// with bounded retry. The pool and model id are re-read from settings on
// every call so administrative changes take effect immediately.
type Dispatcher struct {
	settings repository.SettingRepository
	gen      adapter.TextGenerator
	timeout  time.Duration
	cursor   atomic.Uint64
	log      *zerolog.Logger
}

func NewDispatcher(settings repository.SettingRepository, gen adapter.TextGenerator, timeout time.Duration, logger *zerolog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	l := logger.With().Str("component", "Dispatcher").Logger()
	return &Dispatcher{settings: settings, gen: gen, timeout: timeout, log: &l}
}

// Dispatch sends the prompt, rotating credentials on rate-limit errors.
// It makes at most len(pool) attempts; non-rate-limit failures return
// immediately. The shared cursor means concurrent calls interleave rotation
// positions; the attempt bound holds regardless.
func (d *Dispatcher) Dispatch(ctx context.Context, prompt string) (string, string, error) {
	keys, err := d.settings.GetAPIKeys(ctx)
	if err != nil {
		return "", "", fmt.Errorf("load api keys: %w", err)
	}
	if len(keys) == 0 {
		return "", "", domain.ErrNoAPIKeys
	}
	modelID, err := d.settings.GetModelID(ctx)
	if err != nil {
		return "", "", fmt.Errorf("load model id: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < len(keys); attempt++ {
		key := d.nextKey(keys)

		cctx, cancel := context.WithTimeout(ctx, d.timeout)
		start := time.Now()
		text, err := d.gen.Generate(cctx, key, modelID, prompt)
		cancel()
		latencyMs := int(time.Since(start) / time.Millisecond)

		if err == nil {
			metrics.IncDispatchAttempt(modelID, "ok")
			metrics.ObserveDispatchLatency(modelID, latencyMs, true)
			return text, modelID, nil
		}
		metrics.ObserveDispatchLatency(modelID, latencyMs, false)

		lastErr = err
		var ce *adapter.CallError
		if errors.As(err, &ce) && ce.Kind == adapter.CallErrorRateLimited {
			metrics.IncDispatchAttempt(modelID, "rate_limited")
			d.log.Warn().
				Int("attempt", attempt+1).
				Int("pool_size", len(keys)).
				Str("key", logging.Redact(key, false)).
				Msg("api key rate limited, trying next key")
			continue
		}
		metrics.IncDispatchAttempt(modelID, "fatal")
		return "", "", err
	}

	return "", "", &ExhaustedError{Attempts: len(keys), Last: lastErr}
}

// nextKey advances the shared round-robin cursor atomically and returns the
// selected credential.
func (d *Dispatcher) nextKey(keys []string) string {
	idx := d.cursor.Add(1) - 1
	return keys[idx%uint64(len(keys))]
}

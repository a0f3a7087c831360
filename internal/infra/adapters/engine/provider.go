package engine

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"video-cm-analysis/internal/domain/ports/adapter"
)

// Provider lazily constructs the heavy speech engine exactly once.
// Concurrent first-use callers (warm-up plus the first real job) block on the
// same construction and observe the same instance. A failed construction is
// not cached: the next caller retries.
type Provider struct {
	mu    sync.Mutex
	build func(ctx context.Context) (adapter.SpeechEngine, error)

	engine  adapter.SpeechEngine
	loaded  atomic.Bool
	loading atomic.Bool

	log *zerolog.Logger
}

func NewProvider(build func(ctx context.Context) (adapter.SpeechEngine, error), logger *zerolog.Logger) *Provider {
	l := logger.With().Str("component", "EngineProvider").Logger()
	return &Provider{build: build, log: &l}
}

func (p *Provider) Get(ctx context.Context) (adapter.SpeechEngine, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.engine != nil {
		return p.engine, nil
	}

	p.loading.Store(true)
	defer p.loading.Store(false)

	p.log.Info().Msg("loading speech engine")
	eng, err := p.build(ctx)
	if err != nil {
		p.log.Error().Err(err).Msg("speech engine load failed")
		return nil, err
	}
	p.engine = eng
	p.loaded.Store(true)
	p.log.Info().Str("model", eng.ModelName()).Msg("speech engine ready")
	return eng, nil
}

// Loaded and Loading feed the queue snapshot; both are safe for concurrent
// readers while a load is in progress.
func (p *Provider) Loaded() bool  { return p.loaded.Load() }
func (p *Provider) Loading() bool { return p.loading.Load() }

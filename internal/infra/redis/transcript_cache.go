package redis

import (
	"context"
	"encoding/json"
	"time"

	"video-cm-analysis/internal/domain/model"
	"video-cm-analysis/internal/domain/ports/repository"
	"video-cm-analysis/internal/infra/metrics"
)

var _ repository.TranscriptionRepository = (*transcriptionRepoCache)(nil)

// transcriptionRepoCache decorates a TranscriptionRepository with a Redis
// read-through cache keyed by video id. Analysis runs re-read full
// transcripts for every request; caching them avoids repeated large reads.
type transcriptionRepoCache struct {
	inner repository.TranscriptionRepository
	cli   RedisClient
	ttl   time.Duration
}

func NewTranscriptionRepoCache(inner repository.TranscriptionRepository, cli RedisClient, ttl time.Duration) *transcriptionRepoCache {
	return &transcriptionRepoCache{inner: inner, cli: cli, ttl: ttl}
}

func transcriptKey(videoID string) string { return "transcript:" + videoID }

func (c *transcriptionRepoCache) SaveWithSegments(ctx context.Context, tx repository.Tx, t *model.Transcription) error {
	if err := c.inner.SaveWithSegments(ctx, tx, t); err != nil {
		return err
	}
	// Write-invalidate: the next read repopulates from Postgres after the
	// surrounding transaction commits.
	_ = c.cli.Del(ctx, transcriptKey(t.VideoID))
	return nil
}

func (c *transcriptionRepoCache) FindByVideoID(ctx context.Context, tx repository.Tx, videoID string) (*model.Transcription, error) {
	// Inside a transaction the cache could serve stale data; go straight down.
	if tx == nil {
		raw, err := c.cli.Get(ctx, transcriptKey(videoID))
		if err == nil {
			var t model.Transcription
			if jerr := json.Unmarshal([]byte(raw), &t); jerr == nil {
				metrics.IncCache("transcript", "hit")
				return &t, nil
			}
		} else if !IsNil(err) {
			metrics.IncCache("transcript", "error")
		}
	}

	t, err := c.inner.FindByVideoID(ctx, tx, videoID)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		metrics.IncCache("transcript", "miss")
		if b, jerr := json.Marshal(t); jerr == nil {
			_ = c.cli.Set(ctx, transcriptKey(videoID), string(b), c.ttl)
		}
	}
	return t, nil
}

func (c *transcriptionRepoCache) DeleteByVideoID(ctx context.Context, tx repository.Tx, videoID string) error {
	if err := c.inner.DeleteByVideoID(ctx, tx, videoID); err != nil {
		return err
	}
	_ = c.cli.Del(ctx, transcriptKey(videoID))
	return nil
}

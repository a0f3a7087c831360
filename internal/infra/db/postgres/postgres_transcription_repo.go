package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"video-cm-analysis/internal/domain"
	"video-cm-analysis/internal/domain/model"
	"video-cm-analysis/internal/domain/ports/repository"
)

var _ repository.TranscriptionRepository = (*transcriptionRepo)(nil)

type transcriptionRepo struct {
	pool *pgxpool.Pool
}

func NewTranscriptionRepo(pool *pgxpool.Pool) *transcriptionRepo {
	return &transcriptionRepo{pool: pool}
}

// SaveWithSegments writes the transcription row and all segment rows using
// the caller's transaction, so a partially written transcript is never
// visible.
func (r *transcriptionRepo) SaveWithSegments(ctx context.Context, tx repository.Tx, t *model.Transcription) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}

	// On re-transcription the existing row keeps its id; RETURNING feeds it
	// back so the segment rows below reference the row that actually exists.
	const q = `
INSERT INTO transcriptions (id, video_id, full_text, language, model_used, processing_time_seconds, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (video_id) DO UPDATE SET
  full_text = EXCLUDED.full_text,
  language = EXCLUDED.language,
  model_used = EXCLUDED.model_used,
  processing_time_seconds = EXCLUDED.processing_time_seconds
RETURNING id;`

	row, err := pickRow(ctx, r.pool, tx, q,
		t.ID, t.VideoID, t.FullText, t.Language, t.ModelUsed, t.ProcessingTimeSeconds, t.CreatedAt)
	if err != nil {
		return err
	}
	if err := row.Scan(&t.ID); err != nil {
		return domain.ErrReadDatabaseRow
	}

	// Replace segments wholesale on re-transcription.
	if _, err := execSQL(ctx, r.pool, tx,
		`DELETE FROM transcription_segments WHERE transcription_id = $1`, t.ID); err != nil {
		return err
	}
	const sq = `
INSERT INTO transcription_segments (id, transcription_id, start_time, end_time, text)
VALUES ($1, $2, $3, $4, $5);`
	for i := range t.Segments {
		s := &t.Segments[i]
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		s.TranscriptionID = t.ID
		if _, err := execSQL(ctx, r.pool, tx, sq, s.ID, s.TranscriptionID, s.StartTime, s.EndTime, s.Text); err != nil {
			return err
		}
	}
	return nil
}

func (r *transcriptionRepo) FindByVideoID(ctx context.Context, tx repository.Tx, videoID string) (*model.Transcription, error) {
	row, err := pickRow(ctx, r.pool, tx, `
SELECT id, video_id, full_text, language, model_used, processing_time_seconds, created_at
FROM transcriptions WHERE video_id = $1`, videoID)
	if err != nil {
		return nil, err
	}

	var t model.Transcription
	if err := row.Scan(&t.ID, &t.VideoID, &t.FullText, &t.Language, &t.ModelUsed, &t.ProcessingTimeSeconds, &t.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}

	rows, err := pickRows(ctx, r.pool, tx, `
SELECT id, transcription_id, start_time, end_time, text
FROM transcription_segments WHERE transcription_id = $1 ORDER BY start_time`, t.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var s model.Segment
		if err := rows.Scan(&s.ID, &s.TranscriptionID, &s.StartTime, &s.EndTime, &s.Text); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		t.Segments = append(t.Segments, s)
	}
	return &t, rows.Err()
}

func (r *transcriptionRepo) DeleteByVideoID(ctx context.Context, tx repository.Tx, videoID string) error {
	if _, err := execSQL(ctx, r.pool, tx, `
DELETE FROM transcription_segments
WHERE transcription_id IN (SELECT id FROM transcriptions WHERE video_id = $1)`, videoID); err != nil {
		return err
	}
	_, err := execSQL(ctx, r.pool, tx, `DELETE FROM transcriptions WHERE video_id = $1`, videoID)
	return err
}

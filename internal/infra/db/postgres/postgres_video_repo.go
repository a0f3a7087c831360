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

var _ repository.VideoRepository = (*videoRepo)(nil)

type videoRepo struct {
	pool *pgxpool.Pool
}

func NewVideoRepo(pool *pgxpool.Pool) *videoRepo {
	return &videoRepo{pool: pool}
}

const videoColumns = `id, filename, filepath, file_size, duration_seconds, status, error_message, ranking, ranking_notes, created_at, updated_at`

func (r *videoRepo) Save(ctx context.Context, tx repository.Tx, v *model.Video) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	v.UpdatedAt = time.Now()

	const q = `
INSERT INTO videos (id, filename, filepath, file_size, duration_seconds, status, error_message, ranking, ranking_notes, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (id) DO UPDATE SET
  filename = EXCLUDED.filename,
  status = EXCLUDED.status,
  error_message = EXCLUDED.error_message,
  ranking = EXCLUDED.ranking,
  ranking_notes = EXCLUDED.ranking_notes,
  updated_at = EXCLUDED.updated_at;`

	_, err := execSQL(ctx, r.pool, tx, q,
		v.ID, v.Filename, v.Filepath, v.FileSize, v.DurationSeconds,
		string(v.Status), v.ErrorMessage, v.Ranking, v.RankingNotes, v.CreatedAt, v.UpdatedAt)
	return err
}

func (r *videoRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Video, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+videoColumns+` FROM videos WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return scanVideo(row)
}

func (r *videoRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Video, error) {
	rows, err := pickRows(ctx, r.pool, tx, `SELECT `+videoColumns+` FROM videos ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanVideos(rows)
}

func (r *videoRepo) ListByStatus(ctx context.Context, tx repository.Tx, statuses ...model.VideoStatus) ([]*model.Video, error) {
	if len(statuses) == 0 {
		return nil, domain.ErrInvalidArgument
	}
	args := make([]string, 0, len(statuses))
	for _, s := range statuses {
		args = append(args, string(s))
	}
	rows, err := pickRows(ctx, r.pool, tx,
		`SELECT `+videoColumns+` FROM videos WHERE status = ANY($1) ORDER BY created_at`, args)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanVideos(rows)
}

func (r *videoRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.VideoStatus, errorMessage string) error {
	tag, err := execSQL(ctx, r.pool, tx,
		`UPDATE videos SET status = $2, error_message = $3, updated_at = $4 WHERE id = $1`,
		id, string(status), errorMessage, time.Now())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *videoRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	tag, err := execSQL(ctx, r.pool, tx, `DELETE FROM videos WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanVideo(row pgx.Row) (*model.Video, error) {
	var v model.Video
	var statusStr string
	err := row.Scan(
		&v.ID, &v.Filename, &v.Filepath, &v.FileSize, &v.DurationSeconds,
		&statusStr, &v.ErrorMessage, &v.Ranking, &v.RankingNotes, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	v.Status = model.VideoStatus(statusStr)
	return &v, nil
}

func scanVideos(rows pgx.Rows) ([]*model.Video, error) {
	var out []*model.Video
	for rows.Next() {
		var v model.Video
		var statusStr string
		if err := rows.Scan(
			&v.ID, &v.Filename, &v.Filepath, &v.FileSize, &v.DurationSeconds,
			&statusStr, &v.ErrorMessage, &v.Ranking, &v.RankingNotes, &v.CreatedAt, &v.UpdatedAt,
		); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		v.Status = model.VideoStatus(statusStr)
		out = append(out, &v)
	}
	return out, rows.Err()
}

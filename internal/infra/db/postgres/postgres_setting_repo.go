package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"video-cm-analysis/internal/domain"
	"video-cm-analysis/internal/domain/ports/repository"
)

const (
	// Setting keys. API keys are stored as a JSON array so ordering is
	// preserved for the round-robin rotation.
	SettingGeminiAPIKeys = "gemini_api_keys"
	SettingGeminiModel   = "gemini_model"
)

var _ repository.SettingRepository = (*settingRepo)(nil)

type settingRepo struct {
	pool         *pgxpool.Pool
	defaultModel string
}

func NewSettingRepo(pool *pgxpool.Pool, defaultModel string) *settingRepo {
	return &settingRepo{pool: pool, defaultModel: defaultModel}
}

func (r *settingRepo) Get(ctx context.Context, tx repository.Tx, key string) (string, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT value FROM app_settings WHERE key = $1`, key)
	if err != nil {
		return "", err
	}
	var value string
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", domain.ErrReadDatabaseRow
	}
	return value, nil
}

func (r *settingRepo) Set(ctx context.Context, tx repository.Tx, key, value string) error {
	const q = `
INSERT INTO app_settings (key, value, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at;`
	_, err := execSQL(ctx, r.pool, tx, q, key, value, time.Now())
	return err
}

func (r *settingRepo) GetAPIKeys(ctx context.Context) ([]string, error) {
	raw, err := r.Get(ctx, nil, SettingGeminiAPIKeys)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var keys []string
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		// A corrupted value behaves like an empty pool rather than
		// breaking every dispatch.
		return nil, nil
	}
	out := keys[:0]
	for _, k := range keys {
		if k != "" {
			out = append(out, k)
		}
	}
	return out, nil
}

func (r *settingRepo) SetAPIKeys(ctx context.Context, keys []string) error {
	b, err := json.Marshal(keys)
	if err != nil {
		return err
	}
	return r.Set(ctx, nil, SettingGeminiAPIKeys, string(b))
}

func (r *settingRepo) GetModelID(ctx context.Context) (string, error) {
	val, err := r.Get(ctx, nil, SettingGeminiModel)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return r.defaultModel, nil
		}
		return "", err
	}
	if val == "" {
		return r.defaultModel, nil
	}
	return val, nil
}

func (r *settingRepo) SetModelID(ctx context.Context, modelID string) error {
	return r.Set(ctx, nil, SettingGeminiModel, modelID)
}

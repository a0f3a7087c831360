package repository

import "context"

// SettingRepository is a key/value store for runtime-mutable configuration.
// API keys and the selected model live here so administrative changes take
// effect without a restart; dispatch reads them fresh on every call.
type SettingRepository interface {
	Get(ctx context.Context, tx Tx, key string) (string, error)
	Set(ctx context.Context, tx Tx, key, value string) error

	// GetAPIKeys returns the ordered credential pool (may be empty).
	GetAPIKeys(ctx context.Context) ([]string, error)
	SetAPIKeys(ctx context.Context, keys []string) error
	// GetModelID returns the selected generative model identifier.
	GetModelID(ctx context.Context) (string, error)
	SetModelID(ctx context.Context, modelID string) error
}

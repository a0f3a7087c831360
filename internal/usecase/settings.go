// File: internal/usecase/settings.go
package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"video-cm-analysis/internal/domain"
	"video-cm-analysis/internal/domain/ports/repository"
)

// MaskedKey is the admin-facing view of one stored credential. The full key
// never leaves the server after it has been stored.
type MaskedKey struct {
	Index  int    `json:"index"`
	Masked string `json:"masked"`
}

// SettingsUseCase manages the runtime-mutable credential pool and model
// selection used by the analysis dispatcher.
type SettingsUseCase struct {
	settings repository.SettingRepository
	log      *zerolog.Logger
}

func NewSettingsUseCase(settings repository.SettingRepository, logger *zerolog.Logger) *SettingsUseCase {
	l := logger.With().Str("component", "SettingsUC").Logger()
	return &SettingsUseCase{settings: settings, log: &l}
}

// SeedKeys stores the configured keys when the pool is empty. Existing
// stored keys always win over configuration.
func (uc *SettingsUseCase) SeedKeys(ctx context.Context, keys []string) error {
	stored, err := uc.settings.GetAPIKeys(ctx)
	if err != nil {
		return err
	}
	if len(stored) > 0 || len(keys) == 0 {
		return nil
	}
	if err := uc.settings.SetAPIKeys(ctx, keys); err != nil {
		return err
	}
	uc.log.Info().Int("count", len(keys)).Msg("api key pool seeded from configuration")
	return nil
}

func (uc *SettingsUseCase) ListKeys(ctx context.Context) ([]MaskedKey, error) {
	keys, err := uc.settings.GetAPIKeys(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]MaskedKey, len(keys))
	for i, k := range keys {
		out[i] = MaskedKey{Index: i, Masked: maskKey(k)}
	}
	return out, nil
}

func (uc *SettingsUseCase) AddKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("%w: empty api key", domain.ErrInvalidArgument)
	}
	keys, err := uc.settings.GetAPIKeys(ctx)
	if err != nil {
		return err
	}
	for _, existing := range keys {
		if existing == key {
			return fmt.Errorf("%w: api key already stored", domain.ErrAlreadyExists)
		}
	}
	if err := uc.settings.SetAPIKeys(ctx, append(keys, key)); err != nil {
		return err
	}
	uc.log.Info().Int("pool_size", len(keys)+1).Msg("api key added")
	return nil
}

func (uc *SettingsUseCase) RemoveKey(ctx context.Context, index int) error {
	keys, err := uc.settings.GetAPIKeys(ctx)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(keys) {
		return fmt.Errorf("%w: key index %d out of range", domain.ErrInvalidArgument, index)
	}
	keys = append(keys[:index], keys[index+1:]...)
	if err := uc.settings.SetAPIKeys(ctx, keys); err != nil {
		return err
	}
	uc.log.Info().Int("pool_size", len(keys)).Msg("api key removed")
	return nil
}

func (uc *SettingsUseCase) GetModel(ctx context.Context) (string, error) {
	return uc.settings.GetModelID(ctx)
}

func (uc *SettingsUseCase) SetModel(ctx context.Context, modelID string) error {
	modelID = strings.TrimSpace(modelID)
	if modelID == "" {
		return fmt.Errorf("%w: empty model id", domain.ErrInvalidArgument)
	}
	if !strings.HasPrefix(modelID, "gemini-") {
		return fmt.Errorf("%w: unsupported model %q", domain.ErrInvalidArgument, modelID)
	}
	if err := uc.settings.SetModelID(ctx, modelID); err != nil {
		return err
	}
	uc.log.Info().Str("model", modelID).Msg("analysis model changed")
	return nil
}

func maskKey(k string) string {
	if len(k) <= 8 {
		return "****"
	}
	return k[:4] + strings.Repeat("*", len(k)-8) + k[len(k)-4:]
}

package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-grader/internal/dto"
	"github.com/noah-isme/gema-grader/internal/models"
	"github.com/noah-isme/gema-grader/internal/repository"
)

func strPtr(value string) *string { return &value }

func TestSettingsServiceDefaultsAndUpdate(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryKeyValueRepository()
	svc := NewSettingsService(store, validator.New(), "", testLogger())

	settings, err := svc.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, models.DefaultGradingSettings(), settings)

	_, err = svc.Credential(ctx)
	require.ErrorIs(t, err, ErrCredentialMissing)

	response, err := svc.Update(ctx, dto.SettingsUpdateRequest{
		APIKey:             strPtr("  secret  "),
		Strictness:         strPtr(models.StrictnessStrict),
		Language:           strPtr("es"),
		CustomInstructions: strPtr("<script>alert(1)</script>Show working"),
	})
	require.NoError(t, err)
	require.True(t, response.APIKeyConfigured)
	require.Equal(t, models.StrictnessStrict, response.Strictness)
	require.Equal(t, "es", response.Language)
	require.Equal(t, "Show working", response.CustomInstructions)
	require.Equal(t, models.SensitivityMedium, response.PlagiarismSensitivity)

	key, err := svc.Credential(ctx)
	require.NoError(t, err)
	require.Equal(t, "secret", key)

	raw, found, err := store.Get(ctx, SettingsKey)
	require.NoError(t, err)
	require.True(t, found)
	require.Contains(t, raw, "secret")
}

func TestSettingsServiceRejectsInvalidValues(t *testing.T) {
	svc := NewSettingsService(repository.NewMemoryKeyValueRepository(), validator.New(), "", testLogger())

	_, err := svc.Update(context.Background(), dto.SettingsUpdateRequest{Strictness: strPtr("brutal")})
	require.Error(t, err)

	_, err = svc.Update(context.Background(), dto.SettingsUpdateRequest{Language: strPtr("fr")})
	require.Error(t, err)
}

func TestSettingsServiceFallsBackToConfiguredKey(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryKeyValueRepository()
	require.NoError(t, store.Set(ctx, SettingsKey, "corrupt"))
	svc := NewSettingsService(store, validator.New(), "config-key", testLogger())

	settings, err := svc.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, models.DefaultGradingSettings(), settings)

	key, err := svc.Credential(ctx)
	require.NoError(t, err)
	require.Equal(t, "config-key", key)

	described, err := svc.Describe(ctx)
	require.NoError(t, err)
	require.True(t, described.APIKeyConfigured)
}

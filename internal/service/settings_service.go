package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grader/internal/dto"
	"github.com/noah-isme/gema-grader/internal/models"
	"github.com/noah-isme/gema-grader/internal/repository"
	"github.com/noah-isme/gema-grader/pkg/ai"
)

// SettingsKey is the key value store entry holding the grading settings.
const SettingsKey = "grader_settings"

// SettingsService reads and updates the persisted grading preferences.
type SettingsService interface {
	Get(ctx context.Context) (models.GradingSettings, error)
	Update(ctx context.Context, payload dto.SettingsUpdateRequest) (dto.SettingsResponse, error)
	Describe(ctx context.Context) (dto.SettingsResponse, error)
	CredentialProvider
}

// CredentialProvider resolves the API key used for the grading provider.
type CredentialProvider interface {
	Credential(ctx context.Context) (string, error)
}

type settingsService struct {
	store       repository.KeyValueRepository
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	fallbackKey string
	logger      zerolog.Logger
}

// NewSettingsService constructs the settings service. fallbackKey is the provider key
// from the process configuration, used when the user has not stored one.
func NewSettingsService(store repository.KeyValueRepository, validate *validator.Validate, fallbackKey string, logger zerolog.Logger) SettingsService {
	return &settingsService{
		store:       store,
		validator:   validate,
		sanitizer:   bluemonday.StrictPolicy(),
		fallbackKey: strings.TrimSpace(fallbackKey),
		logger:      logger.With().Str("component", "settings_service").Logger(),
	}
}

func (s *settingsService) Get(ctx context.Context) (models.GradingSettings, error) {
	raw, found, err := s.store.Get(ctx, SettingsKey)
	if err != nil {
		return models.GradingSettings{}, fmt.Errorf("read settings: %w", err)
	}
	settings := models.DefaultGradingSettings()
	if !found || strings.TrimSpace(raw) == "" {
		return settings, nil
	}
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		s.logger.Warn().Err(err).Msg("stored settings are corrupt, using defaults")
		return models.DefaultGradingSettings(), nil
	}
	return settings, nil
}

func (s *settingsService) Describe(ctx context.Context) (dto.SettingsResponse, error) {
	settings, err := s.Get(ctx)
	if err != nil {
		return dto.SettingsResponse{}, err
	}
	return dto.NewSettingsResponse(settings, s.credentialFrom(settings) != ""), nil
}

func (s *settingsService) Update(ctx context.Context, payload dto.SettingsUpdateRequest) (dto.SettingsResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SettingsResponse{}, err
	}

	settings, err := s.Get(ctx)
	if err != nil {
		return dto.SettingsResponse{}, err
	}

	if payload.APIKey != nil {
		settings.APIKey = strings.TrimSpace(*payload.APIKey)
	}
	if payload.Strictness != nil {
		settings.Strictness = *payload.Strictness
	}
	if payload.PlagiarismSensitivity != nil {
		settings.PlagiarismSensitivity = *payload.PlagiarismSensitivity
	}
	if payload.Language != nil {
		settings.Language = ai.NormalizeLanguage(*payload.Language)
	}
	if payload.CustomInstructions != nil {
		settings.CustomInstructions = strings.TrimSpace(s.sanitizer.Sanitize(*payload.CustomInstructions))
	}
	if payload.AutoArchive != nil {
		settings.AutoArchive = *payload.AutoArchive
	}

	encoded, err := json.Marshal(settings)
	if err != nil {
		return dto.SettingsResponse{}, fmt.Errorf("encode settings: %w", err)
	}
	if err := s.store.Set(ctx, SettingsKey, string(encoded)); err != nil {
		return dto.SettingsResponse{}, fmt.Errorf("persist settings: %w", err)
	}

	return dto.NewSettingsResponse(settings, s.credentialFrom(settings) != ""), nil
}

// Credential returns the stored key, then the configured key, or ErrCredentialMissing.
func (s *settingsService) Credential(ctx context.Context) (string, error) {
	settings, err := s.Get(ctx)
	if err != nil {
		return "", err
	}
	if key := s.credentialFrom(settings); key != "" {
		return key, nil
	}
	return "", ErrCredentialMissing
}

func (s *settingsService) credentialFrom(settings models.GradingSettings) string {
	if key := strings.TrimSpace(settings.APIKey); key != "" {
		return key
	}
	return s.fallbackKey
}

package dto

import "github.com/noah-isme/gema-grader/internal/models"

// SettingsUpdateRequest carries a partial update of the grading settings. Nil fields
// are left unchanged; an empty api_key clears the stored key.
type SettingsUpdateRequest struct {
	APIKey                *string `json:"api_key" validate:"omitempty,max=512"`
	Strictness            *string `json:"strictness" validate:"omitempty,oneof=lenient moderate strict"`
	PlagiarismSensitivity *string `json:"plagiarism_sensitivity" validate:"omitempty,oneof=low medium high"`
	Language              *string `json:"language" validate:"omitempty,oneof=en id es"`
	CustomInstructions    *string `json:"custom_instructions" validate:"omitempty,max=4000"`
	AutoArchive           *bool   `json:"auto_archive"`
}

// SettingsResponse exposes the settings without revealing the API key.
type SettingsResponse struct {
	APIKeyConfigured      bool   `json:"api_key_configured"`
	Strictness            string `json:"strictness"`
	PlagiarismSensitivity string `json:"plagiarism_sensitivity"`
	Language              string `json:"language"`
	CustomInstructions    string `json:"custom_instructions"`
	AutoArchive           bool   `json:"auto_archive"`
}

// NewSettingsResponse converts persisted settings into the API payload.
func NewSettingsResponse(settings models.GradingSettings, credentialConfigured bool) SettingsResponse {
	return SettingsResponse{
		APIKeyConfigured:      credentialConfigured,
		Strictness:            settings.Strictness,
		PlagiarismSensitivity: settings.PlagiarismSensitivity,
		Language:              settings.Language,
		CustomInstructions:    settings.CustomInstructions,
		AutoArchive:           settings.AutoArchive,
	}
}

package models

// Strictness levels accepted by the grading prompt.
const (
	StrictnessLenient  = "lenient"
	StrictnessModerate = "moderate"
	StrictnessStrict   = "strict"
)

// Plagiarism sensitivity levels accepted by the grading prompt.
const (
	SensitivityLow    = "low"
	SensitivityMedium = "medium"
	SensitivityHigh   = "high"
)

// GradingSettings are the user-level preferences persisted in the key value store.
type GradingSettings struct {
	APIKey                string `json:"api_key,omitempty"`
	Strictness            string `json:"strictness"`
	PlagiarismSensitivity string `json:"plagiarism_sensitivity"`
	Language              string `json:"language"`
	CustomInstructions    string `json:"custom_instructions"`
	AutoArchive           bool   `json:"auto_archive"`
}

// DefaultGradingSettings returns the settings used before the user saves any.
func DefaultGradingSettings() GradingSettings {
	return GradingSettings{
		Strictness:            StrictnessModerate,
		PlagiarismSensitivity: SensitivityMedium,
		Language:              "en",
		AutoArchive:           true,
	}
}

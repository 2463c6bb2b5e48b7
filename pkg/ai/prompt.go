package ai

import (
	"fmt"
	"strconv"
	"strings"
)

// Supported prompt languages.
const (
	LanguageEnglish    = "en"
	LanguageIndonesian = "id"
	LanguageSpanish    = "es"
)

// PromptOptions are the inputs of the grading instruction document.
type PromptOptions struct {
	StudentID             string
	Group                 string
	TotalMarks            float64
	Strictness            string
	PlagiarismSensitivity string
	CustomInstructions    string
	// MatchingStudentID names another student in the same group whose submission
	// has identical content. Empty when no duplicate was found.
	MatchingStudentID string
	HasReference      bool
	ReferenceText     string
	Language          string
}

// NormalizeLanguage maps a language code onto a supported prompt language.
func NormalizeLanguage(language string) string {
	code := strings.ToLower(strings.TrimSpace(language))
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	if _, ok := promptLocales[code]; ok {
		return code
	}
	return LanguageEnglish
}

// SupportedLanguage reports whether the code names one of the prompt languages.
func SupportedLanguage(language string) bool {
	_, ok := promptLocales[strings.ToLower(strings.TrimSpace(language))]
	return ok
}

// DuplicateReasoning is the fixed integrity reasoning demanded from the grading
// service when the submission matches the work of matchingStudentID.
func DuplicateReasoning(language, matchingStudentID string) string {
	return fmt.Sprintf(localeFor(language).duplicateReasoning, strings.TrimSpace(matchingStudentID))
}

// PenaltyReasoning is written onto an archived result when currentStudentID later
// hands in an identical submission.
func PenaltyReasoning(language, currentStudentID string) string {
	return fmt.Sprintf(localeFor(language).penaltyReasoning, strings.TrimSpace(currentStudentID))
}

// BuildPrompt renders the instruction document. Output is a pure function of opts.
func BuildPrompt(opts PromptOptions) string {
	locale := localeFor(opts.Language)
	total := formatMarks(opts.TotalMarks)

	var b strings.Builder
	b.WriteString(fmt.Sprintf(locale.intro, strings.TrimSpace(opts.StudentID), strings.TrimSpace(opts.Group)))
	b.WriteString("\n")
	b.WriteString(locale.outputLanguage)
	b.WriteString("\n\n")

	b.WriteString("## ")
	b.WriteString(locale.markingHeader)
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf(locale.totalMarks, total))
	b.WriteString("\n")
	for _, rule := range locale.allocationRules {
		b.WriteString("- ")
		b.WriteString(strings.ReplaceAll(rule, "{total}", total))
		b.WriteString("\n")
	}
	b.WriteString("- ")
	b.WriteString(locale.strictness[normalizeStrictness(opts.Strictness)])
	b.WriteString("\n\n")

	b.WriteString("## ")
	b.WriteString(locale.referenceHeader)
	b.WriteString("\n")
	switch {
	case opts.HasReference && strings.TrimSpace(opts.ReferenceText) != "":
		b.WriteString(locale.referenceText)
		b.WriteString("\n\"\"\"\n")
		b.WriteString(strings.TrimSpace(opts.ReferenceText))
		b.WriteString("\n\"\"\"\n")
	case opts.HasReference:
		b.WriteString(locale.referenceFiles)
		b.WriteString("\n")
	default:
		b.WriteString(locale.noReference)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if custom := strings.TrimSpace(opts.CustomInstructions); custom != "" {
		b.WriteString("## ")
		b.WriteString(locale.customHeader)
		b.WriteString("\n")
		b.WriteString(custom)
		b.WriteString("\n\n")
	}

	b.WriteString("## ")
	b.WriteString(locale.integrityHeader)
	b.WriteString("\n")
	if matching := strings.TrimSpace(opts.MatchingStudentID); matching != "" {
		reasoning := DuplicateReasoning(opts.Language, matching)
		for _, line := range locale.duplicateClause {
			b.WriteString("- ")
			b.WriteString(strings.NewReplacer("{student}", matching, "{reasoning}", reasoning).Replace(line))
			b.WriteString("\n")
		}
	} else {
		for _, line := range locale.independentClause {
			b.WriteString("- ")
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("- ")
		b.WriteString(locale.sensitivity[normalizeSensitivity(opts.PlagiarismSensitivity)])
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString("## ")
	b.WriteString(locale.outputHeader)
	b.WriteString("\n")
	b.WriteString(locale.schemaIntro)
	b.WriteString("\n")
	b.WriteString(ResponseSchema)
	b.WriteString("\n")
	for _, rule := range locale.outputRules {
		b.WriteString("- ")
		b.WriteString(strings.ReplaceAll(rule, "{total}", total))
		b.WriteString("\n")
	}

	return b.String()
}

func localeFor(language string) promptLocale {
	return promptLocales[NormalizeLanguage(language)]
}

func normalizeStrictness(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "lenient":
		return "lenient"
	case "strict":
		return "strict"
	default:
		return "moderate"
	}
}

func normalizeSensitivity(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "low":
		return "low"
	case "high":
		return "high"
	default:
		return "medium"
	}
}

func formatMarks(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

const fencedJSONMarker = "```json"

// GradingPayload is the structured object the grading service is asked to return.
type GradingPayload struct {
	StudentName       string            `json:"studentName"`
	StudentID         string            `json:"studentId"`
	Score             float64           `json:"score"`
	TotalMarks        *float64          `json:"totalMarks,omitempty"`
	IntegrityAnalysis IntegrityPayload  `json:"integrityAnalysis"`
	Strengths         []string          `json:"strengths"`
	Weaknesses        []string          `json:"weaknesses"`
	DetailedFeedback  []FeedbackPayload `json:"detailedFeedback"`
}

// IntegrityPayload mirrors the integrityAnalysis object of the response schema.
type IntegrityPayload struct {
	Detected          bool                `json:"detected"`
	AIGenerated       bool                `json:"aiGenerated"`
	Reasoning         string              `json:"reasoning"`
	PlagiarismSources []PlagiarismPayload `json:"plagiarismSources,omitempty"`
}

// PlagiarismPayload is one web source the student text was matched against.
type PlagiarismPayload struct {
	SourceURL    string `json:"sourceUrl"`
	OriginalText string `json:"originalText"`
	StudentText  string `json:"studentText"`
}

// FeedbackPayload is the per-question evaluation.
type FeedbackPayload struct {
	Question      string  `json:"question"`
	StudentAnswer string  `json:"studentAnswer"`
	IdealAnswer   string  `json:"idealAnswer"`
	Evaluation    string  `json:"evaluation"`
	MarksAwarded  float64 `json:"marksAwarded"`
	MaxMarks      float64 `json:"maxMarks"`
}

// ParseGradingResponse extracts the embedded grading object from free text and
// validates it against ResponseSchema. Every failure wraps ErrResponseParse.
func ParseGradingResponse(content string) (GradingPayload, error) {
	candidates := extractJSONCandidates(content)
	if len(candidates) == 0 {
		return GradingPayload{}, fmt.Errorf("%w: no json object found", ErrResponseParse)
	}

	schema, err := responseSchema()
	if err != nil {
		return GradingPayload{}, err
	}

	var lastErr error
	for _, candidate := range candidates {
		var document interface{}
		if err := json.Unmarshal([]byte(candidate), &document); err != nil {
			lastErr = fmt.Errorf("decode json: %w", err)
			continue
		}
		if _, ok := document.(map[string]interface{}); !ok {
			lastErr = fmt.Errorf("json value is not an object")
			continue
		}
		if err := schema.Validate(document); err != nil {
			lastErr = fmt.Errorf("schema validation: %w", err)
			continue
		}

		var payload GradingPayload
		if err := json.Unmarshal([]byte(candidate), &payload); err != nil {
			lastErr = fmt.Errorf("decode payload: %w", err)
			continue
		}
		return payload, nil
	}

	return GradingPayload{}, fmt.Errorf("%w: %v", ErrResponseParse, lastErr)
}

// extractJSONCandidates returns the fenced block body first, then the outermost
// balanced brace span, skipping duplicates.
func extractJSONCandidates(content string) []string {
	var candidates []string
	if block := extractFencedBlock(content); block != "" {
		candidates = append(candidates, block)
	}
	if object := extractBalancedObject(content); object != "" {
		if len(candidates) == 0 || candidates[0] != object {
			candidates = append(candidates, object)
		}
	}
	return candidates
}

func extractFencedBlock(content string) string {
	start := strings.Index(content, fencedJSONMarker)
	if start == -1 {
		return ""
	}
	body := content[start+len(fencedJSONMarker):]
	end := strings.Index(body, "```")
	if end == -1 {
		return ""
	}
	return strings.TrimSpace(body[:end])
}

func extractBalancedObject(content string) string {
	start := strings.IndexByte(content, '{')
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(content); i++ {
		ch := content[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return content[start : i+1]
			}
		}
	}
	return ""
}

package models

import (
	"strings"
	"time"
)

// GradingResult is a finalized grading outcome for one student submission.
type GradingResult struct {
	ID               string            `json:"id"`
	StudentID        string            `json:"student_id"`
	StudentName      string            `json:"student_name,omitempty"`
	Group            string            `json:"group"`
	Score            float64           `json:"score"`
	TotalMarks       float64           `json:"total_marks"`
	Integrity        IntegrityAnalysis `json:"integrity_analysis"`
	Strengths        []string          `json:"strengths"`
	Weaknesses       []string          `json:"weaknesses"`
	DetailedFeedback []FeedbackItem    `json:"detailed_feedback"`
	Fingerprint      string            `json:"fingerprint"`
	Language         string            `json:"language"`
	CreatedAt        time.Time         `json:"created_at"`
	SubmittedAt      time.Time         `json:"submitted_at"`
}

// IntegrityAnalysis is the verdict on plagiarism and AI generation for a submission.
type IntegrityAnalysis struct {
	Detected          bool               `json:"detected"`
	AIGenerated       bool               `json:"ai_generated"`
	Reasoning         string             `json:"reasoning"`
	PlagiarismSources []PlagiarismSource `json:"plagiarism_sources,omitempty"`
}

// PlagiarismSource pairs a web source with the text the student copied from it.
type PlagiarismSource struct {
	SourceURL    string `json:"source_url"`
	OriginalText string `json:"original_text"`
	StudentText  string `json:"student_text"`
}

// FeedbackItem is the evaluation of a single question.
type FeedbackItem struct {
	Question      string  `json:"question"`
	StudentAnswer string  `json:"student_answer"`
	IdealAnswer   string  `json:"ideal_answer"`
	Evaluation    string  `json:"evaluation"`
	MarksAwarded  float64 `json:"marks_awarded"`
	MaxMarks      float64 `json:"max_marks"`
}

// AwardedTotal sums the marks awarded across all feedback items.
func (r GradingResult) AwardedTotal() float64 {
	var total float64
	for _, item := range r.DetailedFeedback {
		total += item.MarksAwarded
	}
	return total
}

// Percentage returns the score relative to the total marks, in the 0-100 range.
func (r GradingResult) Percentage() float64 {
	if r.TotalMarks <= 0 {
		return 0
	}
	return r.Score / r.TotalMarks * 100
}

// BelongsTo reports whether the result was graded for the given student and group.
// Comparison is case-insensitive and ignores surrounding whitespace.
func (r GradingResult) BelongsTo(studentID, group string) bool {
	return strings.EqualFold(strings.TrimSpace(r.StudentID), strings.TrimSpace(studentID)) &&
		strings.EqualFold(strings.TrimSpace(r.Group), strings.TrimSpace(group))
}

// Clone returns a deep copy so archived entries can be mutated without aliasing.
func (r GradingResult) Clone() GradingResult {
	clone := r
	clone.Strengths = cloneSlice(r.Strengths)
	clone.Weaknesses = cloneSlice(r.Weaknesses)
	clone.DetailedFeedback = cloneSlice(r.DetailedFeedback)
	clone.Integrity.PlagiarismSources = cloneSlice(r.Integrity.PlagiarismSources)
	return clone
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}

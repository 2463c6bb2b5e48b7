package dto

import (
	"time"

	"github.com/noah-isme/gema-grader/internal/models"
)

// GradeSubmissionRequest carries the text fields of a multipart grading request.
type GradeSubmissionRequest struct {
	StudentID             string  `form:"student_id" validate:"required,max=128"`
	Group                 string  `form:"group" validate:"required,max=128"`
	TotalMarks            float64 `form:"total_marks" validate:"required,gt=0,lte=10000"`
	Language              string  `form:"language" validate:"omitempty,oneof=en id es"`
	Strictness            string  `form:"strictness" validate:"omitempty,oneof=lenient moderate strict"`
	PlagiarismSensitivity string  `form:"plagiarism_sensitivity" validate:"omitempty,oneof=low medium high"`
	CustomInstructions    string  `form:"custom_instructions" validate:"omitempty,max=4000"`
	ReferenceText         string  `form:"reference_text" validate:"omitempty,max=20000"`
	SubmittedAt           string  `form:"submitted_at" validate:"omitempty"`
}

// RegradeRequest carries the optional overrides of a regrade. Empty fields reuse
// the archived result.
type RegradeRequest struct {
	TotalMarks            float64 `form:"total_marks" validate:"omitempty,gt=0,lte=10000"`
	Language              string  `form:"language" validate:"omitempty,oneof=en id es"`
	Strictness            string  `form:"strictness" validate:"omitempty,oneof=lenient moderate strict"`
	PlagiarismSensitivity string  `form:"plagiarism_sensitivity" validate:"omitempty,oneof=low medium high"`
	CustomInstructions    string  `form:"custom_instructions" validate:"omitempty,max=4000"`
	ReferenceText         string  `form:"reference_text" validate:"omitempty,max=20000"`
	SubmittedAt           string  `form:"submitted_at" validate:"omitempty"`
}

// PenaltyResponse describes a reversible duplicate penalty.
type PenaltyResponse struct {
	Original  models.GradingResult `json:"original"`
	Penalized models.GradingResult `json:"penalized"`
	CreatedAt time.Time            `json:"created_at"`
}

// GradingResponse is returned by a successful grading request.
type GradingResponse struct {
	Result           models.GradingResult  `json:"result"`
	Archived         bool                  `json:"archived"`
	Percentage       float64               `json:"percentage"`
	MatchedStudentID string                `json:"matched_student_id,omitempty"`
	Penalty          *PenaltyResponse      `json:"penalty,omitempty"`
	PreviousResult   *models.GradingResult `json:"previous_result,omitempty"`
}

// ArchiveListResponse wraps archived results.
type ArchiveListResponse struct {
	Items []models.GradingResult `json:"items"`
	Total int                    `json:"total"`
}


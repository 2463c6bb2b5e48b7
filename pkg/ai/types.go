package ai

import (
	"context"
	"errors"
)

var (
	// ErrRateLimited indicates the provider throttled the request.
	ErrRateLimited = errors.New("grading provider rate limited")
	// ErrInvalidCredential indicates the provider rejected the API key.
	ErrInvalidCredential = errors.New("grading provider rejected credential")
	// ErrContentRejected indicates the provider refused the content on safety grounds.
	ErrContentRejected = errors.New("grading provider rejected content")
	// ErrPayloadTooLarge indicates the attachments exceeded the provider request limit.
	ErrPayloadTooLarge = errors.New("grading payload too large")
	// ErrResponseParse indicates the provider answer did not contain a valid grading object.
	ErrResponseParse = errors.New("grading response could not be parsed")
	// ErrUnsupportedAttachment indicates the provider cannot accept an attachment type.
	ErrUnsupportedAttachment = errors.New("unsupported attachment type")
)

// Attachment is one binary file sent alongside the grading instructions.
type Attachment struct {
	Name     string
	MimeType string
	Data     []byte
}

// GradingRequest is a single call to the external grading service.
type GradingRequest struct {
	APIKey      string
	Instruction string
	Attachments []Attachment
}

// AttachmentChecker is implemented by graders that accept only some attachment
// types. Graders without it take images and PDFs.
type AttachmentChecker interface {
	SupportsAttachment(mimeType string) bool
}

// Grader sends a grading request to a hosted model and returns its free-form answer.
type Grader interface {
	Grade(ctx context.Context, req GradingRequest) (string, error)
	Name() string
}

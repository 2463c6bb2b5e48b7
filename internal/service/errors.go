package service

import (
	"errors"
	"fmt"

	"github.com/noah-isme/gema-grader/pkg/ai"
)

// GradingErrorKind classifies why a grading cycle failed.
type GradingErrorKind string

// Grading error kinds surfaced to callers.
const (
	KindCredentialMissing  GradingErrorKind = "credential_missing"
	KindRateLimited        GradingErrorKind = "rate_limited"
	KindInvalidCredential  GradingErrorKind = "invalid_credential"
	KindContentRejected    GradingErrorKind = "content_rejected"
	KindPayloadTooLarge    GradingErrorKind = "payload_too_large"
	KindResponseParseError GradingErrorKind = "response_parse_error"
	KindUnexpectedFailure  GradingErrorKind = "unexpected_failure"
)

var (
	// ErrCredentialMissing indicates no grading API key is configured.
	ErrCredentialMissing = errors.New("grading credential is not configured")
	// ErrRateLimited indicates the grading provider kept throttling after every retry.
	ErrRateLimited = errors.New("grading provider rate limit exceeded")
	// ErrInvalidCredential indicates the configured API key was rejected.
	ErrInvalidCredential = errors.New("grading credential rejected")
	// ErrContentRejected indicates the provider refused the submission on safety grounds.
	ErrContentRejected = errors.New("submission rejected by content safety")
	// ErrPayloadTooLarge indicates the submission exceeded the provider size limit.
	ErrPayloadTooLarge = errors.New("submission too large for grading provider")
	// ErrResponseParse indicates the provider answer could not be decoded.
	ErrResponseParse = errors.New("grading response could not be parsed")
	// ErrUnexpectedFailure is the catch-all grading failure.
	ErrUnexpectedFailure = errors.New("grading failed unexpectedly")

	// ErrResultNotFound indicates no archived result carries the requested id.
	ErrResultNotFound = errors.New("grading result not found")
	// ErrDuplicateResultID indicates an archived result already uses the id.
	ErrDuplicateResultID = errors.New("grading result id already archived")
	// ErrNoPendingPenalty indicates there is no penalty to restore.
	ErrNoPendingPenalty = errors.New("no pending penalty to restore")
	// ErrNoSubmissionFiles indicates the submission carried no files.
	ErrNoSubmissionFiles = errors.New("at least one submission file is required")
	// ErrUnsupportedFileType indicates a file is neither an image nor a PDF, or is a
	// type the configured grader cannot accept.
	ErrUnsupportedFileType = errors.New("unsupported file type for grading")
	// ErrFileTooLarge indicates a file exceeded the configured upload limit.
	ErrFileTooLarge = errors.New("file exceeds maximum allowed size")
)

var kindSentinels = map[GradingErrorKind]error{
	KindCredentialMissing:  ErrCredentialMissing,
	KindRateLimited:        ErrRateLimited,
	KindInvalidCredential:  ErrInvalidCredential,
	KindContentRejected:    ErrContentRejected,
	KindPayloadTooLarge:    ErrPayloadTooLarge,
	KindResponseParseError: ErrResponseParse,
	KindUnexpectedFailure:  ErrUnexpectedFailure,
}

// GradingError is returned by every failed grading cycle.
type GradingError struct {
	Kind GradingErrorKind
	Err  error
}

func (e *GradingError) Error() string {
	if e.Err == nil {
		return kindSentinels[e.Kind].Error()
	}
	return fmt.Sprintf("%s: %v", kindSentinels[e.Kind], e.Err)
}

func (e *GradingError) Unwrap() error { return e.Err }

// Is matches the sentinel of the error kind, so errors.Is(err, ErrRateLimited) works.
func (e *GradingError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// ErrorKind extracts the grading error kind, or an empty kind for other errors.
func ErrorKind(err error) GradingErrorKind {
	var gradingErr *GradingError
	if errors.As(err, &gradingErr) {
		return gradingErr.Kind
	}
	return ""
}

func newGradingError(kind GradingErrorKind, err error) *GradingError {
	return &GradingError{Kind: kind, Err: err}
}

// classifyProviderError translates provider failures into grading error kinds.
func classifyProviderError(err error) *GradingError {
	var gradingErr *GradingError
	if errors.As(err, &gradingErr) {
		return gradingErr
	}

	switch {
	case errors.Is(err, ai.ErrRateLimited):
		return newGradingError(KindRateLimited, err)
	case errors.Is(err, ai.ErrInvalidCredential):
		return newGradingError(KindInvalidCredential, err)
	case errors.Is(err, ai.ErrContentRejected):
		return newGradingError(KindContentRejected, err)
	case errors.Is(err, ai.ErrPayloadTooLarge):
		return newGradingError(KindPayloadTooLarge, err)
	case errors.Is(err, ai.ErrResponseParse):
		return newGradingError(KindResponseParseError, err)
	default:
		return newGradingError(KindUnexpectedFailure, err)
	}
}

package handler

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grader/internal/middleware"
	"github.com/noah-isme/gema-grader/internal/service"
)

// uploadedFile adapts a multipart file header to a submission file.
type uploadedFile struct {
	header *multipart.FileHeader
}

func (f uploadedFile) Name() string { return f.header.Filename }

func (f uploadedFile) Open() (io.ReadCloser, error) { return f.header.Open() }

func submissionFiles(headers []*multipart.FileHeader) []service.SubmissionFile {
	files := make([]service.SubmissionFile, 0, len(headers))
	for _, header := range headers {
		if header == nil {
			continue
		}
		files = append(files, uploadedFile{header: header})
	}
	return files
}

func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		ctx := base.With()
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			ctx = ctx.Str("correlation_id", correlation)
		}
		if userID := middleware.UserID(c); userID != "" {
			ctx = ctx.Str("user_id", userID)
		}
		logger = ctx.Logger()
	}
	return &logger
}

func validationDetails(err error) map[string]string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}
	details := make(map[string]string, len(validationErrors))
	for _, fieldErr := range validationErrors {
		details[toSnakeCase(fieldErr.Field())] = fieldErr.Tag()
	}
	return details
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

func toSnakeCase(field string) string {
	var b strings.Builder
	for i, r := range field {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && !(field[i-1] >= 'A' && field[i-1] <= 'Z') {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

package service

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/noah-isme/gema-grader/pkg/ai"
)

// SubmissionFile supplies the raw bytes of one uploaded file. Open is called once.
type SubmissionFile interface {
	Name() string
	Open() (io.ReadCloser, error)
}

// BytesFile is a SubmissionFile backed by an in-memory buffer.
type BytesFile struct {
	FileName string
	Data     []byte
}

// Name returns the original file name.
func (f BytesFile) Name() string { return f.FileName }

// Open returns a reader over the buffered content.
func (f BytesFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.Data)), nil
}

// Fingerprint derives the content digest of a submission. Files are ordered by name
// (then content, for equal names) before their bytes are hashed, so the order of
// the input slice never changes the result. Renaming a file does.
func Fingerprint(files []ai.Attachment) string {
	ordered := make([]ai.Attachment, len(files))
	copy(ordered, files)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Name != ordered[j].Name {
			return ordered[i].Name < ordered[j].Name
		}
		return bytes.Compare(ordered[i].Data, ordered[j].Data) < 0
	})

	hash := sha256.New()
	for _, file := range ordered {
		hash.Write(file.Data)
	}
	return hex.EncodeToString(hash.Sum(nil))
}

// loadAttachments reads every file once, enforcing the size limit and the allowed
// content types (images and PDF).
func loadAttachments(files []SubmissionFile, maxBytes int64) ([]ai.Attachment, error) {
	attachments := make([]ai.Attachment, 0, len(files))
	for _, file := range files {
		data, err := readFile(file, maxBytes)
		if err != nil {
			return nil, err
		}

		detected := mimetype.Detect(data)
		mime := strings.ToLower(detected.String())
		if i := strings.IndexByte(mime, ';'); i >= 0 {
			mime = strings.TrimSpace(mime[:i])
		}
		if !strings.HasPrefix(mime, "image/") && mime != "application/pdf" {
			return nil, fmt.Errorf("%s (%s): %w", file.Name(), mime, ErrUnsupportedFileType)
		}

		attachments = append(attachments, ai.Attachment{
			Name:     file.Name(),
			MimeType: mime,
			Data:     data,
		})
	}
	return attachments, nil
}

func readFile(file SubmissionFile, maxBytes int64) ([]byte, error) {
	handle, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", file.Name(), err)
	}
	defer handle.Close()

	reader := io.Reader(handle)
	if maxBytes > 0 {
		reader = io.LimitReader(handle, maxBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", file.Name(), err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%s: %w", file.Name(), ErrFileTooLarge)
	}
	return data, nil
}

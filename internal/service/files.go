package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultMaxUploadBytes caps attachments when no limit is configured.
const DefaultMaxUploadBytes int64 = 10 << 20

var allowedAttachmentTypes = []string{
	"application/pdf",
	"application/zip",
	"text/plain",
	"image/png",
	"image/jpeg",
}

// FileUploader abstracts uploading binary data and returning a URL.
type FileUploader interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// uploadAttachment checks size and content type before handing the file to
// the uploader. The type is sniffed from the content, never the extension.
func uploadAttachment(ctx context.Context, uploader FileUploader, file *multipart.FileHeader, maxBytes int64) (string, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	if file.Size > maxBytes {
		return "", ErrFileTooLarge
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer src.Close()

	var buf bytes.Buffer
	written, err := io.Copy(&buf, io.LimitReader(src, maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	if written > maxBytes {
		return "", ErrFileTooLarge
	}

	detected := mimetype.Detect(buf.Bytes())
	if !isAllowedAttachment(detected) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFileType, detected.String())
	}

	url, err := uploader.Upload(ctx, file.Filename, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}
	return url, nil
}

func isAllowedAttachment(detected *mimetype.MIME) bool {
	for _, allowed := range allowedAttachmentTypes {
		if detected.Is(allowed) {
			return true
		}
	}
	return false
}

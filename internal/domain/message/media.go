package message

import (
	"strings"

	portal_errors "agency-portal/pkg/errors"
)

// Attachment kinds. The persistence row always carries a validated kind
// rather than a loosely-typed media blob.
const (
	KindImage    = "image"
	KindVideo    = "video"
	KindDocument = "document"
	KindOther    = "other"
)

var documentMimeTypes = map[string]struct{}{
	"application/pdf":    {},
	"application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
	"application/vnd.ms-excel": {},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": {},
	"text/plain": {},
	"text/csv":   {},
}

// KindForMime maps a MIME type onto the attachment kind variant.
func KindForMime(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return KindImage
	case strings.HasPrefix(mimeType, "video/"):
		return KindVideo
	default:
		if _, ok := documentMimeTypes[mimeType]; ok {
			return KindDocument
		}
		return KindOther
	}
}

// ValidateAttachment checks an attachment at the boundary before it is
// persisted or placed into a pending list.
func ValidateAttachment(a Attachment) error {
	if a.FileName == "" || a.FilePath == "" {
		return portal_errors.ErrInvalidInput
	}
	if a.FileSize <= 0 {
		return portal_errors.ErrInvalidInput
	}
	switch a.Kind {
	case KindImage, KindVideo, KindDocument, KindOther:
	default:
		return portal_errors.ErrUnsupportedMedia
	}
	return nil
}

package intake

import (
	"mime"
	"strings"

	"github.com/wolfman30/lead-intake/internal/files"
)

// MaxAttachmentSize is the largest accepted attachment, 10 MiB.
const MaxAttachmentSize = 10 << 20

const (
	ReasonAttachmentTooLarge = "El archivo no puede superar 10MB"
	ReasonAttachmentType     = "Solo se permiten archivos JPG, PNG, WebP o PDF"
)

var allowedMediaTypes = map[string]struct{}{
	"image/jpeg":      {},
	"image/jpg":       {},
	"image/png":       {},
	"image/webp":      {},
	"application/pdf": {},
}

// CheckAttachment applies the size ceiling and media type allow-list. The
// declared type is trusted; content is not sniffed. A nil attachment is
// accepted.
func CheckAttachment(att *files.Attachment) []string {
	if att == nil {
		return nil
	}
	var reasons []string
	if att.Size > MaxAttachmentSize {
		reasons = append(reasons, ReasonAttachmentTooLarge)
	}
	if !allowedMediaType(att.ContentType) {
		reasons = append(reasons, ReasonAttachmentType)
	}
	return reasons
}

func allowedMediaType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType, _, _ = strings.Cut(contentType, ";")
	}
	_, ok := allowedMediaTypes[strings.ToLower(strings.TrimSpace(mediaType))]
	return ok
}

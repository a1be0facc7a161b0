package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
)

// ErrUpload wraps every failure to store an attachment.
var ErrUpload = errors.New("files: upload failed")

// Attachment is a submitted file as received from the transport.
type Attachment struct {
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// StoredFile references an attachment after it has been stored.
type StoredFile struct {
	ID          string
	URL         string
	DisplayName string
}

// Store saves attachments. The hint correlates the file with a submission
// before a lead ID exists.
type Store interface {
	Upload(ctx context.Context, att Attachment, hint string) (StoredFile, error)
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ObjectName builds "<hint>_<filename>" with path components stripped.
func ObjectName(hint, filename string) string {
	base := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	if base == "." || base == "/" || base == "" {
		base = "archivo"
	}
	base = unsafeName.ReplaceAllString(base, "_")
	if hint == "" {
		return base
	}
	return hint + "_" + base
}

// DisabledStore is used when no file backend is configured. Every upload
// fails so the submission records why the attachment is missing.
type DisabledStore struct{}

var _ Store = DisabledStore{}

func (DisabledStore) Upload(context.Context, Attachment, string) (StoredFile, error) {
	return StoredFile{}, fmt.Errorf("%w: file storage not configured", ErrUpload)
}

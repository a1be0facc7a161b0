package files

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// S3API is the subset of the S3 client used by S3Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store writes attachments under leads/<hint>/ in a bucket.
type S3Store struct {
	client        S3API
	bucket        string
	publicBaseURL string
	newKeyID      func() string
}

// NewS3Store builds a store. publicBaseURL, when set, prefixes the object key
// in the returned URL (CDN or website endpoint); otherwise an s3:// URI is returned.
func NewS3Store(client S3API, bucket, publicBaseURL string) *S3Store {
	if client == nil {
		panic("files: s3 client cannot be nil")
	}
	if bucket == "" {
		panic("files: bucket cannot be empty")
	}
	return &S3Store{
		client:        client,
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		newKeyID:      func() string { return uuid.NewString() },
	}
}

var _ Store = (*S3Store)(nil)

func (s *S3Store) Upload(ctx context.Context, att Attachment, hint string) (StoredFile, error) {
	if att.Content == nil {
		return StoredFile{}, fmt.Errorf("%w: empty attachment", ErrUpload)
	}
	name := ObjectName(hint, att.Filename)
	prefix := hint
	if prefix == "" {
		prefix = s.newKeyID()
	}
	key := fmt.Sprintf("leads/%s/%s", prefix, name)

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   att.Content,
	}
	if att.ContentType != "" {
		input.ContentType = aws.String(att.ContentType)
	}
	if att.Size > 0 {
		input.ContentLength = aws.Int64(att.Size)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return StoredFile{}, fmt.Errorf("%w: s3 put %s: %v", ErrUpload, key, err)
	}

	return StoredFile{ID: key, URL: s.objectURL(key), DisplayName: name}, nil
}

func (s *S3Store) objectURL(key string) string {
	if s.publicBaseURL == "" {
		return "s3://" + s.bucket + "/" + key
	}
	escaped := make([]string, 0, 3)
	for _, part := range strings.Split(key, "/") {
		escaped = append(escaped, url.PathEscape(part))
	}
	return s.publicBaseURL + "/" + strings.Join(escaped, "/")
}

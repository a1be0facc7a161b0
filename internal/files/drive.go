package files

import (
	"context"
	"fmt"
	"io"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// driveAPI is the subset of Drive v3 calls the store makes.
type driveAPI interface {
	Create(ctx context.Context, name, folderID, mimeType string, body io.Reader) (id string, err error)
	ShareWithAnyone(ctx context.Context, fileID string) error
	ViewLink(ctx context.Context, fileID string) (string, error)
}

// DriveStore uploads attachments into a shared Drive folder and makes them
// readable by anyone holding the link.
type DriveStore struct {
	api      driveAPI
	folderID string
}

// NewDriveStore authenticates with a service account JSON.
func NewDriveStore(ctx context.Context, credentialsJSON, folderID string) (*DriveStore, error) {
	if credentialsJSON == "" {
		return nil, fmt.Errorf("files: google service account credentials required")
	}
	if folderID == "" {
		return nil, fmt.Errorf("files: drive folder id required")
	}
	svc, err := drive.NewService(ctx,
		option.WithCredentialsJSON([]byte(credentialsJSON)),
		option.WithScopes(drive.DriveFileScope),
	)
	if err != nil {
		return nil, fmt.Errorf("files: drive client: %w", err)
	}
	return newDriveStore(&googleDrive{svc: svc}, folderID), nil
}

func newDriveStore(api driveAPI, folderID string) *DriveStore {
	return &DriveStore{api: api, folderID: folderID}
}

var _ Store = (*DriveStore)(nil)

// Upload creates the file, grants public read access and returns its view link.
func (s *DriveStore) Upload(ctx context.Context, att Attachment, hint string) (StoredFile, error) {
	if att.Content == nil {
		return StoredFile{}, fmt.Errorf("%w: empty attachment", ErrUpload)
	}
	name := ObjectName(hint, att.Filename)

	id, err := s.api.Create(ctx, name, s.folderID, att.ContentType, att.Content)
	if err != nil {
		return StoredFile{}, fmt.Errorf("%w: drive create: %v", ErrUpload, err)
	}
	if err := s.api.ShareWithAnyone(ctx, id); err != nil {
		return StoredFile{}, fmt.Errorf("%w: drive permission: %v", ErrUpload, err)
	}
	link, err := s.api.ViewLink(ctx, id)
	if err != nil {
		return StoredFile{}, fmt.Errorf("%w: drive link: %v", ErrUpload, err)
	}
	return StoredFile{ID: id, URL: link, DisplayName: name}, nil
}

// googleDrive adapts *drive.Service to driveAPI.
type googleDrive struct {
	svc *drive.Service
}

func (g *googleDrive) Create(ctx context.Context, name, folderID, mimeType string, body io.Reader) (string, error) {
	meta := &drive.File{Name: name, Parents: []string{folderID}, MimeType: mimeType}
	f, err := g.svc.Files.Create(meta).
		Media(body, googleapi.ContentType(mimeType)).
		Fields("id, name, webViewLink").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", err
	}
	return f.Id, nil
}

func (g *googleDrive) ShareWithAnyone(ctx context.Context, fileID string) error {
	_, err := g.svc.Permissions.Create(fileID, &drive.Permission{Role: "reader", Type: "anyone"}).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	return err
}

func (g *googleDrive) ViewLink(ctx context.Context, fileID string) (string, error) {
	f, err := g.svc.Files.Get(fileID).
		Fields("webViewLink, webContentLink").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", err
	}
	return f.WebViewLink, nil
}

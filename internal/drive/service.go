package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const listFields googleapi.Field = "nextPageToken, files(id, name, mimeType)"

type service struct {
	driveService *drive.Service
}

// NewGoogleDriveClient builds a read-only Drive client from an authorized-user or
// service-account credentials JSON document.
func NewGoogleDriveClient(ctx context.Context, credentialsJSON []byte) (Client, error) {
	if len(strings.TrimSpace(string(credentialsJSON))) == 0 {
		return nil, errors.New("drive credentials are empty")
	}

	creds, err := google.CredentialsFromJSON(ctx, credentialsJSON, drive.DriveReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse drive credentials: %w", err)
	}

	driveService, err := drive.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	return &service{driveService: driveService}, nil
}

func (c *service) ListFiles(ctx context.Context, folderID string, pageToken string) (Page, error) {
	q := fmt.Sprintf("'%s' in parents and trashed = false", strings.ReplaceAll(folderID, "'", `\'`))

	call := c.driveService.Files.List().
		Q(q).
		Spaces("drive").
		Fields(listFields).
		Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	fileList, err := call.Do()
	if err != nil {
		return Page{}, err
	}

	page := Page{NextPageToken: fileList.NextPageToken}
	for _, f := range fileList.Files {
		page.Files = append(page.Files, File{ID: f.Id, Name: f.Name, MimeType: f.MimeType})
	}
	return page, nil
}

func (c *service) Download(ctx context.Context, fileID string) (io.ReadCloser, error) {
	resp, err := c.driveService.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *service) Export(ctx context.Context, fileID string, mimeType string) (io.ReadCloser, error) {
	resp, err := c.driveService.Files.Export(fileID, mimeType).Context(ctx).Download()
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

package drive

import (
	"context"
	"io"
)

// File is the listing metadata of one remote item.
type File struct {
	ID       string
	Name     string
	MimeType string
}

// Page is one page of a folder listing.
type Page struct {
	Files         []File
	NextPageToken string
}

// Client lists and downloads files from a remote drive folder.
type Client interface {
	ListFiles(ctx context.Context, folderID string, pageToken string) (Page, error)
	Download(ctx context.Context, fileID string) (io.ReadCloser, error)
	Export(ctx context.Context, fileID string, mimeType string) (io.ReadCloser, error)
}

package drive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/rpattn/salesingest/internal/domain"
)

const (
	googleAppsPrefix = "application/vnd.google-apps."
	folderMimeType   = "application/vnd.google-apps.folder"
	shortcutMimeType = "application/vnd.google-apps.shortcut"

	pdfMimeType  = "application/pdf"
	xlsxMimeType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Fetcher mirrors one remote folder into a local directory.
type Fetcher struct {
	client   Client
	folderID string
	logger   *slog.Logger
}

// NewFetcher binds a client to the folder it downloads.
func NewFetcher(client Client, folderID string, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{client: client, folderID: folderID, logger: logger}
}

// Fetch downloads every file of the folder into dir, following pagination. Native
// spreadsheets are exported as XLSX and other native documents as PDF. Any error
// aborts the fetch and wraps domain.ErrFetchFailure.
func (f *Fetcher) Fetch(ctx context.Context, dir string) ([]string, error) {
	if strings.TrimSpace(f.folderID) == "" {
		return nil, fmt.Errorf("%w: folder id is empty", domain.ErrFetchFailure)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: failed to create %s: %v", domain.ErrFetchFailure, dir, err)
	}

	var written []string
	pageToken := ""
	for {
		page, err := f.client.ListFiles(ctx, f.folderID, pageToken)
		if err != nil {
			return written, fmt.Errorf("%w: failed to list folder %s: %v", domain.ErrFetchFailure, f.folderID, err)
		}

		for _, file := range page.Files {
			name, err := f.fetchFile(ctx, file, dir)
			if err != nil {
				return written, fmt.Errorf("%w: %s: %v", domain.ErrFetchFailure, file.Name, err)
			}
			if name != "" {
				written = append(written, name)
			}
		}

		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	return written, nil
}

// fetchFile stores one remote item and returns the local name, or "" when the item is
// not downloadable.
func (f *Fetcher) fetchFile(ctx context.Context, file File, dir string) (string, error) {
	name, err := localName(file.Name)
	if err != nil {
		return "", err
	}

	var body io.ReadCloser
	switch {
	case file.MimeType == folderMimeType || file.MimeType == shortcutMimeType:
		f.logger.Debug("skipping drive item", "name", file.Name, "mime_type", file.MimeType)
		return "", nil
	case strings.HasPrefix(file.MimeType, googleAppsPrefix+"spreadsheet"):
		name += ".xlsx"
		body, err = f.client.Export(ctx, file.ID, xlsxMimeType)
	case strings.HasPrefix(file.MimeType, googleAppsPrefix):
		name += ".pdf"
		body, err = f.client.Export(ctx, file.ID, pdfMimeType)
	default:
		body, err = f.client.Download(ctx, file.ID)
	}
	if err != nil {
		return "", err
	}
	defer body.Close()

	if err := writeFileAtomic(filepath.Join(dir, name), body); err != nil {
		return "", err
	}
	f.logger.Info("downloaded drive file", "name", name, "mime_type", file.MimeType)
	return name, nil
}

func localName(remote string) (string, error) {
	name := filepath.Base(strings.ReplaceAll(remote, "\\", "/"))
	if name == "" || name == "." || name == ".." || name == "/" {
		return "", fmt.Errorf("invalid file name %q", remote)
	}
	return name, nil
}

func writeFileAtomic(path string, r io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".download-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}

// Package drive pulls marketplace report files from a Google Drive folder.
package drive

import (
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const (
	folderMimeType      = "application/vnd.google-apps.folder"
	spreadsheetMimeType = "application/vnd.google-apps.spreadsheet"
	xlsxMimeType        = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type Service struct {
	srv *drive.Service
}

// NewService authenticates with a service account key.
func NewService(ctx context.Context, credentialsJSON []byte) (*Service, error) {
	config, err := google.JWTConfigFromJSON(credentialsJSON, drive.DriveReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse service account credentials: %w", err)
	}

	srv, err := drive.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Drive client: %w", err)
	}

	return &Service{srv: srv}, nil
}

type File struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MimeType     string `json:"mimeType"`
	ModifiedTime string `json:"modifiedTime,omitempty"`
	Size         int64  `json:"size,string,omitempty"`
}

// ListFiles returns every non-trashed file directly inside folderID, following
// pagination.
func (s *Service) ListFiles(ctx context.Context, folderID string) ([]*File, error) {
	if folderID == "" {
		folderID = "root"
	}

	var files []*File
	err := s.srv.Files.List().
		Q(fmt.Sprintf("'%s' in parents and trashed=false", escapeQuery(folderID))).
		Fields("nextPageToken, files(id, name, mimeType, modifiedTime, size)").
		PageSize(200).
		Pages(ctx, func(page *drive.FileList) error {
			for _, f := range page.Files {
				files = append(files, &File{
					ID:           f.Id,
					Name:         f.Name,
					MimeType:     f.MimeType,
					ModifiedTime: f.ModifiedTime,
					Size:         f.Size,
				})
			}
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve files: %w", err)
	}
	return files, nil
}

// Download returns the content of f. Google Sheets are exported as XLSX.
func (s *Service) Download(ctx context.Context, f *File) ([]byte, error) {
	var body io.ReadCloser
	if f.MimeType == spreadsheetMimeType {
		resp, err := s.srv.Files.Export(f.ID, xlsxMimeType).Context(ctx).Download()
		if err != nil {
			return nil, fmt.Errorf("unable to export %s: %w", f.Name, err)
		}
		body = resp.Body
	} else {
		resp, err := s.srv.Files.Get(f.ID).Context(ctx).Download()
		if err != nil {
			return nil, fmt.Errorf("unable to download %s: %w", f.Name, err)
		}
		body = resp.Body
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", f.Name, err)
	}
	return data, nil
}

// FindFolderByPath walks a slash separated folder path from My Drive root.
func (s *Service) FindFolderByPath(ctx context.Context, path string) (string, error) {
	currentID := "root"
	for _, folder := range strings.Split(path, "/") {
		if folder == "" {
			continue
		}

		result, err := s.srv.Files.List().
			Q(fmt.Sprintf("'%s' in parents and name='%s' and mimeType='%s' and trashed=false",
				currentID, escapeQuery(folder), folderMimeType)).
			Fields("files(id, name)").
			Context(ctx).
			Do()
		if err != nil {
			return "", fmt.Errorf("error finding folder %s: %w", folder, err)
		}
		if len(result.Files) == 0 {
			return "", fmt.Errorf("folder not found: %s", folder)
		}

		currentID = result.Files[0].Id
	}
	return currentID, nil
}

func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}

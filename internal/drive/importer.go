package drive

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

// Source is the part of Service the importer needs.
type Source interface {
	ListFiles(ctx context.Context, folderID string) ([]*File, error)
	Download(ctx context.Context, f *File) ([]byte, error)
	FindFolderByPath(ctx context.Context, path string) (string, error)
}

// Importer hands every report file of a folder to a callback, oldest first,
// so that later exports win when uploads overlap.
type Importer struct {
	source Source
}

func NewImporter(source Source) *Importer {
	return &Importer{source: source}
}

// IsReportFile reports whether f looks like an uploadable report.
func IsReportFile(f *File) bool {
	if f.MimeType == spreadsheetMimeType {
		return true
	}
	switch strings.ToLower(filepath.Ext(f.Name)) {
	case ".csv", ".xlsx", ".xlsm":
		return true
	}
	return false
}

// Import resolves folder (an id, or a path when it contains a slash), then
// downloads each report file and calls fn with its name and content. It stops
// at the first error.
func (im *Importer) Import(ctx context.Context, folder string, fn func(ctx context.Context, name string, data []byte) error) (int, error) {
	folderID := folder
	if strings.Contains(folder, "/") {
		id, err := im.source.FindFolderByPath(ctx, folder)
		if err != nil {
			return 0, err
		}
		folderID = id
	}

	files, err := im.source.ListFiles(ctx, folderID)
	if err != nil {
		return 0, err
	}

	reports := make([]*File, 0, len(files))
	for _, f := range files {
		if IsReportFile(f) {
			reports = append(reports, f)
		}
	}
	// RFC 3339 timestamps sort lexically
	sort.SliceStable(reports, func(i, j int) bool {
		if reports[i].ModifiedTime != reports[j].ModifiedTime {
			return reports[i].ModifiedTime < reports[j].ModifiedTime
		}
		return reports[i].Name < reports[j].Name
	})

	imported := 0
	for _, f := range reports {
		if err := ctx.Err(); err != nil {
			return imported, err
		}

		data, err := im.source.Download(ctx, f)
		if err != nil {
			return imported, err
		}

		name := f.Name
		if f.MimeType == spreadsheetMimeType && filepath.Ext(name) == "" {
			name += ".xlsx"
		}
		log.Info().Str("file", name).Int("bytes", len(data)).Msg("importing drive file")

		if err := fn(ctx, name, data); err != nil {
			return imported, fmt.Errorf("import %s: %w", name, err)
		}
		imported++
	}
	return imported, nil
}

package drive

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSource struct {
	mock.Mock
}

func (m *mockSource) ListFiles(ctx context.Context, folderID string) ([]*File, error) {
	args := m.Called(ctx, folderID)
	files, _ := args.Get(0).([]*File)
	return files, args.Error(1)
}

func (m *mockSource) Download(ctx context.Context, f *File) ([]byte, error) {
	args := m.Called(ctx, f)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *mockSource) FindFolderByPath(ctx context.Context, path string) (string, error) {
	args := m.Called(ctx, path)
	return args.String(0), args.Error(1)
}

func TestImportOrdersByModifiedTimeAndSkipsOtherFiles(t *testing.T) {
	ctx := context.Background()
	newer := &File{ID: "2", Name: "returns.csv", ModifiedTime: "2025-03-02T10:00:00Z"}
	older := &File{ID: "1", Name: "sales.xlsx", ModifiedTime: "2025-03-01T10:00:00Z"}
	sheet := &File{ID: "3", Name: "traffic", MimeType: spreadsheetMimeType, ModifiedTime: "2025-03-03T10:00:00Z"}
	notes := &File{ID: "4", Name: "notes.pdf", ModifiedTime: "2025-03-01T00:00:00Z"}

	src := new(mockSource)
	src.On("FindFolderByPath", ctx, "reports/march").Return("folder-1", nil)
	src.On("ListFiles", ctx, "folder-1").Return([]*File{newer, notes, sheet, older}, nil)
	src.On("Download", ctx, older).Return([]byte("a"), nil)
	src.On("Download", ctx, newer).Return([]byte("b"), nil)
	src.On("Download", ctx, sheet).Return([]byte("c"), nil)

	var names []string
	n, err := NewImporter(src).Import(ctx, "reports/march", func(ctx context.Context, name string, data []byte) error {
		names = append(names, name)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"sales.xlsx", "returns.csv", "traffic.xlsx"}, names)
	src.AssertNotCalled(t, "Download", ctx, notes)
	src.AssertExpectations(t)
}

func TestImportStopsOnCallbackError(t *testing.T) {
	ctx := context.Background()
	a := &File{ID: "1", Name: "a.csv", ModifiedTime: "2025-01-01T00:00:00Z"}
	b := &File{ID: "2", Name: "b.csv", ModifiedTime: "2025-01-02T00:00:00Z"}

	src := new(mockSource)
	src.On("ListFiles", ctx, "folder-id").Return([]*File{a, b}, nil)
	src.On("Download", ctx, a).Return([]byte("x"), nil)

	n, err := NewImporter(src).Import(ctx, "folder-id", func(ctx context.Context, name string, data []byte) error {
		return errors.New("bad header")
	})
	assert.Equal(t, 0, n)
	assert.ErrorContains(t, err, "import a.csv: bad header")
	src.AssertNotCalled(t, "Download", ctx, b)
}

func TestEscapeQuery(t *testing.T) {
	assert.Equal(t, `Seller\'s Reports`, escapeQuery("Seller's Reports"))
}

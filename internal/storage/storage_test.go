package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/marketlens/backend-go/internal/config"
)

func TestArchiveKey(t *testing.T) {
	at := time.Date(2025, 3, 4, 5, 6, 7, 0, time.FixedZone("IST", 19800))

	assert.Equal(t, "uploads/shop1/sales/20250303T233607Z_Sales_March.csv",
		ArchiveKey("/uploads/", "shop1", "sales", "Sales March.csv", at))
	assert.Equal(t, "uploads/shop1/returns/20250303T233607Z_r.xlsx",
		ArchiveKey("uploads", "shop1", "returns", `C:\exports\r.xlsx`, at))
	assert.Equal(t, "uploads/shop1/stock/20250303T233607Z_upload",
		ArchiveKey("uploads", "shop1", "stock", "", at))
}

func TestDisabledStorage(t *testing.T) {
	s, err := New(context.Background(), config.StorageConfig{Enabled: false})
	require.NoError(t, err)
	assert.False(t, s.Enabled())
	assert.NoError(t, s.UploadObject(context.Background(), "k", []byte("x"), ""))

	_, err = s.GetObject(context.Background(), "k")
	assert.Error(t, err)
}

func TestMinioClientRequiresSettings(t *testing.T) {
	_, err := NewMinioClient(context.Background(), config.StorageConfig{Enabled: true})
	assert.ErrorContains(t, err, "endpoint")

	_, err = NewMinioClient(context.Background(), config.StorageConfig{Enabled: true, Endpoint: "s3.local"})
	assert.ErrorContains(t, err, "credentials")

	_, err = NewMinioClient(context.Background(), config.StorageConfig{
		Enabled: true, Endpoint: "s3.local", AccessKey: "a", SecretKey: "b",
	})
	assert.ErrorContains(t, err, "bucket")
}

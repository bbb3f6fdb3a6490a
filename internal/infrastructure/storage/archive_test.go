package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/invoicing/backend/internal/application/document"
	"github.com/invoicing/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var testDoc = &document.RenderedDocument{
	Content:     []byte("%PDF-1.7 test"),
	ContentType: document.ContentTypePDF,
	Extension:   "pdf",
}

func TestNewS3Archive_Validation(t *testing.T) {
	ctx := context.Background()

	t.Run("nil config returns error", func(t *testing.T) {
		_, err := NewS3Archive(ctx, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration is required")
	})

	t.Run("missing bucket returns error", func(t *testing.T) {
		_, err := NewS3Archive(ctx, &config.StorageConfig{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket is required")
	})

	t.Run("half configured keys return error", func(t *testing.T) {
		_, err := NewS3Archive(ctx, &config.StorageConfig{Bucket: "docs", AccessKeyID: "key"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be set together")
	})

	t.Run("valid config creates archive", func(t *testing.T) {
		archive, err := NewS3Archive(ctx, &config.StorageConfig{
			Bucket:          "docs",
			AccessKeyID:     "key",
			SecretAccessKey: "secret",
			Endpoint:        "localhost:9000",
			UsePathStyle:    true,
			KeyPrefix:       "/invoices/",
		}, WithLogger(zaptest.NewLogger(t)))
		require.NoError(t, err)
		assert.Equal(t, "docs", archive.Bucket())
		assert.Equal(t, "invoices", archive.prefix)
	})
}

func TestS3Archive_ObjectKey(t *testing.T) {
	archive, err := NewS3Archive(context.Background(), &config.StorageConfig{
		Bucket:          "docs",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		KeyPrefix:       "invoices",
	})
	require.NoError(t, err)

	key, err := archive.objectKey("2026/abc/invoice-1.pdf")
	require.NoError(t, err)
	assert.Equal(t, "invoices/2026/abc/invoice-1.pdf", key)

	_, err = archive.objectKey("")
	assert.Error(t, err)

	_, err = archive.objectKey("2026/../../secret")
	assert.Error(t, err)
}

func TestS3Archive_StoreValidation(t *testing.T) {
	archive, err := NewS3Archive(context.Background(), &config.StorageConfig{
		Bucket:          "docs",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
	})
	require.NoError(t, err)

	_, err = archive.Store(context.Background(), "", testDoc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage key is required")

	_, err = archive.Store(context.Background(), "2026/x.pdf", &document.RenderedDocument{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "content is empty")
}

func TestS3Archive_Integration(t *testing.T) {
	endpoint := os.Getenv("INVOICING_TEST_S3_ENDPOINT")
	if endpoint == "" {
		t.Skip("Skipping S3 integration test. Set INVOICING_TEST_S3_ENDPOINT to a MinIO/RustFS endpoint.")
	}

	ctx := context.Background()
	archive, err := NewS3Archive(ctx, &config.StorageConfig{
		Endpoint:        endpoint,
		Bucket:          "invoicing-test",
		AccessKeyID:     os.Getenv("INVOICING_TEST_S3_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("INVOICING_TEST_S3_SECRET_ACCESS_KEY"),
		UsePathStyle:    true,
		KeyPrefix:       "invoices",
	})
	require.NoError(t, err)
	require.NoError(t, archive.EnsureBucket(ctx))
	require.NoError(t, archive.EnsureBucket(ctx))

	location, err := archive.Store(ctx, "2026/test/invoice-INV-1.pdf", testDoc)
	require.NoError(t, err)
	assert.Equal(t, "s3://invoicing-test/invoices/2026/test/invoice-INV-1.pdf", location)
}

func TestFileSystemArchive(t *testing.T) {
	ctx := context.Background()

	t.Run("requires base path", func(t *testing.T) {
		_, err := NewFileSystemArchive("", nil)
		assert.Error(t, err)
	})

	t.Run("stores and opens documents", func(t *testing.T) {
		base := t.TempDir()
		archive, err := NewFileSystemArchive(base, zaptest.NewLogger(t))
		require.NoError(t, err)

		location, err := archive.Store(ctx, "2026/abc/invoice-INV-1.pdf", testDoc)
		require.NoError(t, err)
		absBase, _ := filepath.Abs(base)
		assert.Equal(t, filepath.Join(absBase, "2026", "abc", "invoice-INV-1.pdf"), location)

		rc, err := archive.Open(ctx, "2026/abc/invoice-INV-1.pdf")
		require.NoError(t, err)
		defer rc.Close()
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, testDoc.Content, content)

		entries, err := os.ReadDir(filepath.Join(base, "2026", "abc"))
		require.NoError(t, err)
		assert.Len(t, entries, 1, "temp files are cleaned up")
	})

	t.Run("overwrites existing document", func(t *testing.T) {
		archive, err := NewFileSystemArchive(t.TempDir(), nil)
		require.NoError(t, err)

		_, err = archive.Store(ctx, "a.pdf", testDoc)
		require.NoError(t, err)
		updated := &document.RenderedDocument{Content: []byte("v2"), ContentType: document.ContentTypePDF}
		path, err := archive.Store(ctx, "a.pdf", updated)
		require.NoError(t, err)

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "v2", string(content))
	})

	t.Run("rejects keys escaping the base path", func(t *testing.T) {
		archive, err := NewFileSystemArchive(t.TempDir(), nil)
		require.NoError(t, err)

		for _, key := range []string{"", "../outside.pdf", "a/../../b.pdf", "/etc/passwd"} {
			_, err := archive.Store(ctx, key, testDoc)
			assert.ErrorIs(t, err, ErrInvalidKey, key)
		}
	})

	t.Run("rejects empty content", func(t *testing.T) {
		archive, err := NewFileSystemArchive(t.TempDir(), nil)
		require.NoError(t, err)

		_, err = archive.Store(ctx, "a.pdf", &document.RenderedDocument{})
		assert.Error(t, err)
	})

	t.Run("honours cancelled context", func(t *testing.T) {
		archive, err := NewFileSystemArchive(t.TempDir(), nil)
		require.NoError(t, err)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err = archive.Store(cancelled, "a.pdf", testDoc)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestContainsDotDot(t *testing.T) {
	assert.True(t, containsDotDot("../a"))
	assert.True(t, containsDotDot("a/../b"))
	assert.True(t, containsDotDot(`a\..\b`))
	assert.False(t, containsDotDot("a/b..c/d"))
	assert.False(t, containsDotDot("2026/abc/invoice.pdf"))
}

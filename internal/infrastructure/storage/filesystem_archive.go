package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/invoicing/backend/internal/application/document"
	"go.uber.org/zap"
)

var _ document.Archive = (*FileSystemArchive)(nil)

// ErrInvalidKey is returned for keys that are absolute or escape the archive root
var ErrInvalidKey = errors.New("invalid archive key")

// FileSystemArchive stores documents below a local directory. It is the
// archive used when no S3 bucket is configured.
type FileSystemArchive struct {
	basePath string
	logger   *zap.Logger
}

// NewFileSystemArchive creates the base directory if needed
func NewFileSystemArchive(basePath string, logger *zap.Logger) (*FileSystemArchive, error) {
	if basePath == "" {
		return nil, errors.New("archive base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory %s: %w", basePath, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileSystemArchive{basePath: basePath, logger: logger}, nil
}

// Store writes the document to {base}/{key} and returns the file path
func (s *FileSystemArchive) Store(ctx context.Context, key string, doc *document.RenderedDocument) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if doc == nil || len(doc.Content) == 0 {
		return "", errors.New("document content is empty")
	}

	fullPath, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	// Write to a temp file first so readers never see a partial document
	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".archive-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(doc.Content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write document: %w", err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to move document into place: %w", err)
	}

	s.logger.Debug("Document archived",
		zap.String("path", fullPath),
		zap.Int("size", len(doc.Content)))
	return fullPath, nil
}

// Open returns a reader for an archived document
func (s *FileSystemArchive) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fullPath, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archived document: %w", err)
	}
	return f, nil
}

// resolve maps a key to a path below basePath
func (s *FileSystemArchive) resolve(key string) (string, error) {
	if key == "" || filepath.IsAbs(key) || containsDotDot(key) {
		s.logger.Warn("blocked archive key", zap.String("key", key))
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	absBase, err := filepath.Abs(s.basePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base path: %w", err)
	}
	absPath, err := filepath.Abs(filepath.Join(absBase, filepath.FromSlash(key)))
	if err != nil {
		return "", fmt.Errorf("failed to resolve file path: %w", err)
	}
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		s.logger.Warn("archive path escape blocked",
			zap.String("key", key),
			zap.String("absPath", absPath))
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return absPath, nil
}

// containsDotDot checks the raw key for ".." components before any cleaning
func containsDotDot(key string) bool {
	parts := strings.FieldsFunc(key, func(r rune) bool {
		return r == '/' || r == '\\' || r == filepath.Separator
	})
	return slices.Contains(parts, "..")
}

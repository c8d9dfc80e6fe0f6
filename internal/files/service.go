package files

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	pkgerrors "github.com/cocotrade/ops-backend/pkg/errors"
	"github.com/cocotrade/ops-backend/pkg/filestore"
)

type store interface {
	List(ctx context.Context, dir string) ([]filestore.Entry, error)
	Upload(ctx context.Context, dir, filename string, content io.Reader) error
	Download(ctx context.Context, filePath string) (io.ReadCloser, string, error)
	Preview(ctx context.Context, filePath string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, filePath string) error
	Rename(ctx context.Context, from, to string) error
	Mkdir(ctx context.Context, dir string) error
}

// Service fronts the document store for report exports and shipment papers.
type Service interface {
	List(ctx context.Context, dir string) ([]filestore.Entry, error)
	Upload(ctx context.Context, dir, filename string, content io.Reader) error
	Download(ctx context.Context, filePath string) (io.ReadCloser, string, error)
	Preview(ctx context.Context, filePath string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, filePath string) error
	Rename(ctx context.Context, from, to string) error
	Mkdir(ctx context.Context, dir string) error
}

type service struct {
	store store
}

// NewService constructs a files service instance.
func NewService(fileStore store) (Service, error) {
	if fileStore == nil {
		return nil, fmt.Errorf("file store required")
	}
	return &service{store: fileStore}, nil
}

func (s *service) List(ctx context.Context, dir string) ([]filestore.Entry, error) {
	return s.store.List(ctx, cleanPath(dir))
}

func (s *service) Upload(ctx context.Context, dir, filename string, content io.Reader) error {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "filename required")
	}
	if !filestore.AllowedExtension(filename) {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("file type %s is not allowed", path.Ext(filename)))
	}
	if content == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "file content required")
	}
	return s.store.Upload(ctx, cleanPath(dir), filename, content)
}

func (s *service) Download(ctx context.Context, filePath string) (io.ReadCloser, string, error) {
	filePath = cleanPath(filePath)
	if filePath == "" {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "file path required")
	}
	return s.store.Download(ctx, filePath)
}

func (s *service) Preview(ctx context.Context, filePath string) (io.ReadCloser, string, error) {
	filePath = cleanPath(filePath)
	if filePath == "" {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "file path required")
	}
	return s.store.Preview(ctx, filePath)
}

func (s *service) Delete(ctx context.Context, filePath string) error {
	filePath = cleanPath(filePath)
	if filePath == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "file path required")
	}
	return s.store.Delete(ctx, filePath)
}

func (s *service) Rename(ctx context.Context, from, to string) error {
	from, to = cleanPath(from), cleanPath(to)
	if from == "" || to == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "both paths required")
	}
	if !filestore.AllowedExtension(to) {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("file type %s is not allowed", path.Ext(to)))
	}
	return s.store.Rename(ctx, from, to)
}

func (s *service) Mkdir(ctx context.Context, dir string) error {
	dir = cleanPath(dir)
	if dir == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "directory path required")
	}
	return s.store.Mkdir(ctx, dir)
}

// cleanPath normalizes slashes and strips traversal segments before the path
// reaches the store.
func cleanPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	cleaned := path.Clean("/" + strings.ReplaceAll(p, "\\", "/"))
	return strings.TrimPrefix(cleaned, "/")
}

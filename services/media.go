package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"rms-be/models"
)

// MaxImageBytes bounds a single uploaded image.
const MaxImageBytes = 5 << 20

// MediaStore accepts an uploaded image and returns a durable URL for it.
type MediaStore interface {
	Save(ctx context.Context, r io.Reader) (string, error)
}

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// LocalMediaStore keeps images on local disk and serves them under /uploads.
type LocalMediaStore struct {
	dir     string
	baseURL string
}

// NewLocalMediaStore creates the upload directory if needed.
func NewLocalMediaStore(dir, publicURL string) (*LocalMediaStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalMediaStore{dir: dir, baseURL: strings.TrimRight(publicURL, "/")}, nil
}

// Save validates the image and writes it under a random name.
func (s *LocalMediaStore) Save(ctx context.Context, r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageBytes+1))
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	if len(data) == 0 {
		return "", models.NewValidationError("image", "Image file is required")
	}
	if len(data) > MaxImageBytes {
		return "", models.NewValidationError("image", "Image must not exceed 5MB")
	}

	mt := mimetype.Detect(data)
	if !allowedImageTypes[mt.String()] {
		return "", models.NewValidationError("image", "Only jpg, jpeg, png and webp images are allowed")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := uuid.NewString() + mt.Extension()
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("%w: write image: %v", models.ErrDependency, err)
	}
	return s.baseURL + "/uploads/" + name, nil
}

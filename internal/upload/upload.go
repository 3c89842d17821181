// Package upload stores multipart files on local disk.
package upload

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

var ImageExtensions = []string{".jpg", ".jpeg", ".png", ".webp"}

var (
	ErrMissingFile  = errors.New("file is required")
	ErrTooLarge     = errors.New("file is too large")
	ErrBadExtension = errors.New("file type not allowed")
)

// Save validates the multipart field and writes it under dir/<sub>/<uuid><ext>.
// The returned path is relative to dir, using forward slashes.
func Save(c *fiber.Ctx, field, dir, sub string, maxBytes int64, allowedExt []string) (string, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return "", ErrMissingFile
	}
	if maxBytes > 0 && fh.Size > maxBytes {
		return "", fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, maxBytes)
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !allowed(ext, allowedExt) {
		return "", fmt.Errorf("%w: %s", ErrBadExtension, ext)
	}

	target := filepath.Join(dir, sub)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	name := uuid.NewString() + ext
	if err := c.SaveFile(fh, filepath.Join(target, name)); err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}
	return filepath.ToSlash(filepath.Join(sub, name)), nil
}

// HTTPError maps upload validation errors to 400 and leaves the rest as is.
func HTTPError(err error) error {
	if errors.Is(err, ErrMissingFile) || errors.Is(err, ErrTooLarge) || errors.Is(err, ErrBadExtension) {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return err
}

// Remove deletes a previously saved file; missing files are ignored.
func Remove(dir, rel string) error {
	if rel == "" {
		return nil
	}
	err := os.Remove(filepath.Join(dir, filepath.FromSlash(rel)))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func allowed(ext string, list []string) bool {
	if len(list) == 0 {
		return true
	}
	for _, a := range list {
		if ext == a {
			return true
		}
	}
	return false
}

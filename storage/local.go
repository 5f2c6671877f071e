package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hayeon-dev/ai-gallery/utils"
)

// LocalStorage stores blobs as flat files under a base directory.
type LocalStorage struct {
	absBasePath string
}

// NewLocalStorage creates the base directory if needed and returns the
// provider.
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for '%s': %w", basePath, err)
	}

	if err := os.MkdirAll(absPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create local storage directory '%s': %w", absPath, err)
	}

	return &LocalStorage{
		absBasePath: absPath + string(os.PathSeparator),
	}, nil
}

func (s *LocalStorage) resolve(identifier string) (string, error) {
	if !utils.IsValidIdentifier(identifier) {
		return "", fmt.Errorf("invalid file identifier: %s", identifier)
	}

	fullPath := filepath.Join(s.absBasePath, identifier)

	// The final path must stay inside the base directory.
	if !strings.HasPrefix(fullPath, s.absBasePath) {
		return "", fmt.Errorf("invalid file path, potential directory traversal: %s", identifier)
	}

	return fullPath, nil
}

func (s *LocalStorage) SaveWithContext(ctx context.Context, identifier string, file io.Reader) error {
	dstPath, err := s.resolve(identifier)
	if err != nil {
		return err
	}

	dst, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("failed to create destination file '%s': %w", dstPath, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		_ = os.Remove(dstPath)
		return fmt.Errorf("failed to copy file content to '%s': %w", dstPath, err)
	}

	return nil
}

func (s *LocalStorage) GetWithContext(ctx context.Context, identifier string) (io.ReadSeeker, error) {
	fullPath, err := s.resolve(identifier)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", identifier)
		}
		return nil, fmt.Errorf("failed to open file '%s': %w", identifier, err)
	}

	return file, nil
}

func (s *LocalStorage) DeleteWithContext(ctx context.Context, identifier string) error {
	fullPath, err := s.resolve(identifier)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file to delete not found: %s", identifier)
		}
		return fmt.Errorf("failed to delete local file '%s': %w", fullPath, err)
	}

	return nil
}

func (s *LocalStorage) Exists(ctx context.Context, identifier string) (bool, error) {
	fullPath, err := s.resolve(identifier)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat file '%s': %w", identifier, err)
	}

	return true, nil
}

func (s *LocalStorage) Health(ctx context.Context) error {
	info, err := os.Stat(s.absBasePath)
	if err != nil {
		return fmt.Errorf("local storage base path is not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("local storage base path is not a directory: %s", s.absBasePath)
	}
	return nil
}

func (s *LocalStorage) Name() string {
	return "local"
}

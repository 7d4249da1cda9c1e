// Package storage persists generated documents (repayment receipts)
// on the local filesystem so they are rendered once and served from
// disk afterwards.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// LocalStorage handles file storage on the local filesystem
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new local storage instance
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	// Ensure the base directory exists
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

// Write saves data under the given relative path, creating
// intermediate directories as needed
func (s *LocalStorage) Write(relativePath string, data []byte) error {
	filePath := filepath.Join(s.basePath, relativePath)
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// Read returns the contents of a stored file
func (s *LocalStorage) Read(relativePath string) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.basePath, relativePath))
}

// Exists checks if a file exists
func (s *LocalStorage) Exists(relativePath string) bool {
	_, err := os.Stat(filepath.Join(s.basePath, relativePath))
	return err == nil
}

// Delete removes a stored file
func (s *LocalStorage) Delete(relativePath string) error {
	return os.Remove(filepath.Join(s.basePath, relativePath))
}

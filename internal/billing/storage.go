package billing

import (
	"fmt"
	"os"
	"path/filepath"
)

// Storage defines the interface for storing rendered invoice images. Images
// are keyed by invoice ID; there is exactly one image per invoice and
// re-rendering overwrites it.
type Storage interface {
	// Save stores the PNG image for an invoice and returns its path
	Save(invoiceID string, data []byte) (string, error)

	// Get retrieves the image for an invoice
	Get(invoiceID string) ([]byte, error)

	// Delete removes the image for an invoice
	Delete(invoiceID string) error
}

// LocalStorage implements the Storage interface using the local filesystem
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new LocalStorage instance
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	return &LocalStorage{
		basePath: basePath,
	}, nil
}

func (l *LocalStorage) imagePath(invoiceID string) string {
	return filepath.Join(l.basePath, invoiceID+".png")
}

// Save stores an invoice image on disk
func (l *LocalStorage) Save(invoiceID string, data []byte) (string, error) {
	path := l.imagePath(invoiceID)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing image: %w", err)
	}
	return path, nil
}

// Get retrieves an invoice image from disk
func (l *LocalStorage) Get(invoiceID string) ([]byte, error) {
	data, err := os.ReadFile(l.imagePath(invoiceID))
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	return data, nil
}

// Delete removes an invoice image from disk
func (l *LocalStorage) Delete(invoiceID string) error {
	if err := os.Remove(l.imagePath(invoiceID)); err != nil {
		return fmt.Errorf("deleting image: %w", err)
	}
	return nil
}

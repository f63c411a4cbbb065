package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/terrawatt/terrawatt/internal/domain/services"
)

// StorageService is the filesystem-backed payload store adapter.
type StorageService struct {
	basePath string
}

func NewStorageService(basePath string) *StorageService {
	return &StorageService{
		basePath: basePath,
	}
}

func (s *StorageService) Store(ctx context.Context, params services.StorageParams) (string, error) {
	landDir := filepath.Join(s.basePath, params.LandID.String())
	if err := os.MkdirAll(landDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create land directory: %w", err)
	}

	fileExt := filepath.Ext(params.Filename)
	fileName := fmt.Sprintf("%s%s", uuid.New().String(), fileExt)
	filePath := filepath.Join(landDir, fileName)

	file, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, params.FileReader); err != nil {
		return "", fmt.Errorf("failed to write file content: %w", err)
	}

	return filepath.Join(params.LandID.String(), fileName), nil
}

func (s *StorageService) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	fullPath := filepath.Join(s.basePath, path)

	file, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return file, nil
}

func (s *StorageService) Delete(ctx context.Context, path string) error {
	fullPath := filepath.Join(s.basePath, path)

	if err := os.Remove(fullPath); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}

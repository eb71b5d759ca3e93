package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a key has no stored artifact.
	ErrNotFound = errors.New("storage: artifact not found")
	// ErrInvalidOwner is returned for user ids that are not a single path segment.
	ErrInvalidOwner = errors.New("storage: invalid artifact owner")
)

// FileStore keeps conversion artifacts on the local filesystem under
// per-user prefixes.
type FileStore struct {
	basePath string
}

// NewFileStore initializes a FileStore rooted at basePath.
func NewFileStore(basePath string) (*FileStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure base path: %w", err)
	}
	return &FileStore{basePath: basePath}, nil
}

// ValidateOwner checks that userID is a single path segment, so it can name
// its own artifact prefix.
func ValidateOwner(userID string) error {
	switch {
	case strings.TrimSpace(userID) == "", userID == ".", userID == "..":
		return ErrInvalidOwner
	case strings.ContainsAny(userID, "/\\\x00"):
		return ErrInvalidOwner
	}
	return nil
}

// ArtifactKey builds a fresh key for an artifact owned by userID. The file
// name is reduced to its base so it cannot introduce path segments.
func ArtifactKey(userID, filename string) (string, error) {
	if err := ValidateOwner(userID); err != nil {
		return "", err
	}
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "artifact"
	}
	return path.Join("artifacts", userID, uuid.NewString(), name), nil
}

// OwnedBy reports whether key sits under userID's artifact prefix.
func OwnedBy(key, userID string) bool {
	if ValidateOwner(userID) != nil {
		return false
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return false
	}
	return strings.HasPrefix(cleanKey, path.Join("artifacts", userID)+"/")
}

// Write persists data at key and returns the canonical key.
func (s *FileStore) Write(ctx context.Context, key string, data []byte) (string, error) {
	if s == nil {
		return "", errors.New("storage: no store configured")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	fullPath := s.fullPath(cleanKey)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("storage: ensure directory: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: write file: %w", err)
	}
	return cleanKey, nil
}

// Read loads the bytes stored at key.
func (s *FileStore) Read(ctx context.Context, key string) ([]byte, error) {
	if s == nil {
		return nil, errors.New("storage: no store configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.fullPath(cleanKey))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read file: %w", err)
	}
	return data, nil
}

func (s *FileStore) fullPath(cleanKey string) string {
	return filepath.Join(s.basePath, filepath.FromSlash(cleanKey))
}

// sanitizeKey normalizes a key and prevents escaping the storage root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("storage: key is required")
	}
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimLeft(key, "/")
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", errors.New("storage: invalid key")
	}
	return cleaned, nil
}

// Package filestore persists record attachments on disk. Contents are
// encrypted by the injected vault before they are written; the plaintext of
// an upload never touches the filesystem.
package filestore

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medvault/medvault/internal/platform/vault"
)

var (
	ErrUnsupportedType = errors.New("file type is not allowed")
	ErrTooLarge        = errors.New("file exceeds maximum allowed size")
	ErrNotFound        = errors.New("file not found")
)

// MaxFileSize is the maximum allowed upload size in bytes (10 MiB).
const MaxFileSize = 10 * 1024 * 1024

// AllowedContentTypes is the upload MIME allow-list.
var AllowedContentTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"application/pdf": true,
}

// Store writes and reads encrypted attachment blobs under a root directory,
// namespaced by owner user and owning record.
type Store struct {
	root   string
	vault  *vault.Vault
	logger zerolog.Logger
}

// New creates a Store rooted at dir.
func New(dir string, v *vault.Vault, logger zerolog.Logger) *Store {
	return &Store{root: dir, vault: v, logger: logger}
}

// Validate checks the declared MIME type against the allow-list and reads the
// full payload, rejecting anything over MaxFileSize. The type check runs
// before any bytes are read so disallowed uploads cost nothing.
func (s *Store) Validate(contentType string, r io.Reader) ([]byte, error) {
	if !AllowedContentTypes[contentType] {
		return nil, ErrUnsupportedType
	}

	content, err := io.ReadAll(io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(content) > MaxFileSize {
		return nil, ErrTooLarge
	}

	return content, nil
}

// Save encrypts content and writes it under <root>/<userID>/<recordID>/ with
// a collision-resistant name derived from the record, the upload time, and a
// fresh file id. Returns the stored name and the full path.
func (s *Store) Save(content []byte, recordID, userID, fileID uuid.UUID, originalName string) (string, string, error) {
	ext := filepath.Ext(originalName)
	stamp := time.Now().Format("02012006_150405")
	secureName := fmt.Sprintf("%s_%s_%s%s", recordID, stamp, fileID, ext)

	dir := filepath.Join(s.root, userID.String(), recordID.String())
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", "", fmt.Errorf("create upload directory: %w", err)
	}

	encrypted, err := s.vault.Encrypt(content)
	if err != nil {
		return "", "", err
	}

	path := filepath.Join(dir, secureName)
	if err := os.WriteFile(path, encrypted, 0o640); err != nil {
		return "", "", fmt.Errorf("write encrypted file: %w", err)
	}

	return secureName, path, nil
}

// Open reads the stored ciphertext at path, decrypts it, and returns the
// plaintext as a single-chunk reader for streaming to the transport layer.
func (s *Store) Open(path string) (io.ReadCloser, error) {
	encrypted, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read stored file: %w", err)
	}

	plaintext, err := s.vault.Decrypt(encrypted)
	if err != nil {
		return nil, err
	}

	return io.NopCloser(bytes.NewReader(plaintext)), nil
}

// RemoveUserDir deletes a user's entire upload tree. Used on account
// deletion after the owning rows are gone; failures are logged, not fatal.
func (s *Store) RemoveUserDir(userID uuid.UUID) {
	dir := filepath.Join(s.root, userID.String())
	if err := os.RemoveAll(dir); err != nil {
		s.logger.Warn().Err(err).Str("dir", dir).Msg("failed to remove user upload directory")
	}
}

// Remove deletes the stored file and best-effort removes its now-empty record
// directory. Cleanup failures are logged, never fatal: the row delete that
// triggered the removal must not roll back over a leftover directory.
func (s *Store) Remove(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn().Err(err).Str("path", path).Msg("failed to remove stored file")
		return
	}

	if err := os.Remove(filepath.Dir(path)); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Debug().Err(err).Str("dir", filepath.Dir(path)).Msg("record directory not removed")
	}
}

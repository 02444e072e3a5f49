package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FileStore persists uploaded deposition files on local disk. Files are
// stored flat, prefixed with the deposition id so that filenames from
// different depositions never collide.
type FileStore struct {
	dir string
}

// NewFileStore creates the storage directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the storage root.
func (s *FileStore) Dir() string { return s.dir }

// Save writes the payload under "<depositionID>_<name>" and returns the
// absolute path and byte count. An existing file with the same name is
// overwritten, which gives re-uploads last-wins semantics.
func (s *FileStore) Save(depositionID int, name string, payload io.Reader) (string, int64, error) {
	path := filepath.Join(s.dir, fmt.Sprintf("%d_%s", depositionID, name))
	f, err := os.Create(path)
	if err != nil {
		return "", 0, fmt.Errorf("create %s: %w", path, err)
	}
	size, err := io.Copy(f, payload)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return "", 0, fmt.Errorf("write %s: %w", path, err)
	}
	return path, size, nil
}

// Open opens a previously saved file.
func (s *FileStore) Open(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// Remove deletes a stored file. Missing files are not an error.
func (s *FileStore) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// sanitizeFilename strips any directory component from a client-declared
// filename so uploads cannot escape the storage directory.
func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	base := filepath.Base(name)
	if base == "." || base == "/" {
		return "unnamed"
	}
	return base
}

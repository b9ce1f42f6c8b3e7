package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileStorage provides methods to manage downloaded files in the
// operator-selected output directory.
type FileStorage struct {
	dir string
}

// NewFileStorage creates a new FileStorage instance with the given directory.
func NewFileStorage(dir string) *FileStorage {
	return &FileStorage{dir: dir}
}

// Dir returns the storage directory.
func (s *FileStorage) Dir() string {
	return s.dir
}

// CreateFile creates (or truncates) a file with the given filename in
// the storage directory.
func (s *FileStorage) CreateFile(filename string) (*os.File, error) {
	return os.Create(filepath.Join(s.dir, filename))
}

// FileExists checks whether a file exists in the storage directory.
func (s *FileStorage) FileExists(filename string) bool {
	_, err := os.Stat(filepath.Join(s.dir, filename))
	return err == nil
}

// GetFileSize returns the size of the file in bytes.
func (s *FileStorage) GetFileSize(filename string) (int64, error) {
	info, err := os.Stat(filepath.Join(s.dir, filename))
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Remove deletes a file from the storage directory.
func (s *FileStorage) Remove(filename string) error {
	return os.Remove(filepath.Join(s.dir, filename))
}

// CopyFile copies data from the provided reader into a freshly created
// file. Returns the number of bytes written.
func (s *FileStorage) CopyFile(src io.Reader, dstFilename string) (int64, error) {
	dst, err := s.CreateFile(dstFilename)
	if err != nil {
		return 0, fmt.Errorf("create file: %w", err)
	}
	defer dst.Close()

	return io.Copy(dst, src)
}

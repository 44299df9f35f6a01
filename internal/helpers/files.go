package helpers

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// FileCleanup is a resource manager for temporary files
type FileCleanup struct {
	files []string
}

// NewFileCleanup creates a new FileCleanup manager
func NewFileCleanup() *FileCleanup {
	return &FileCleanup{
		files: make([]string, 0),
	}
}

// Add registers a file for cleanup
func (fc *FileCleanup) Add(path string) {
	fc.files = append(fc.files, path)
}

// Cleanup removes all registered files and reports the first failure
func (fc *FileCleanup) Cleanup() error {
	var firstErr error
	for _, f := range fc.files {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = err
			DebugLog("Failed to remove temp file %s: %v", f, err)
		}
	}
	fc.files = fc.files[:0]
	return firstErr
}

// SaveStream copies r into a new temporary file named prefix<uuid>ext and
// registers it with cleanup. The caller removes it via cleanup.Cleanup().
func SaveStream(r io.Reader, prefix, ext string, cleanup *FileCleanup) (string, error) {
	tempFileName := filepath.Join(os.TempDir(), fmt.Sprintf("%s%s%s", prefix, uuid.New().String(), ext))

	tempFile, err := os.Create(tempFileName)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	cleanup.Add(tempFileName)

	if _, err := io.Copy(tempFile, r); err != nil {
		_ = tempFile.Close()
		return "", fmt.Errorf("failed to copy stream: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	return tempFileName, nil
}

// AtomicWrite writes a file through write into a sibling temp file and renames it
// over path once write succeeds, so a failed conversion never leaves a partial output.
func AtomicWrite(path string, write func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// VerifyFileNotEmpty checks that a file exists and has content
func VerifyFileNotEmpty(path string) error {
	fileInfo, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}

	if fileInfo.Size() == 0 {
		return fmt.Errorf("file %s is empty", path)
	}

	return nil
}

// GetFileSize returns the size of a file, or -1 if it doesn't exist
func GetFileSize(path string) int64 {
	fileInfo, err := os.Stat(path)
	if err != nil {
		return -1
	}
	return fileInfo.Size()
}

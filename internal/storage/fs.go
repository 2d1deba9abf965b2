package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// FileStore keeps image payload files under a root directory. File names
// are derived from the image natural key, so the same SOPInstanceUID always
// maps to the same file.
type FileStore struct {
	rootPath string
}

func NewFileStore(rootPath string) (*FileStore, error) {
	p := filepath.Clean(rootPath)
	if err := os.MkdirAll(p, 0755); err != nil {
		return nil, fmt.Errorf("failed to create root storage directory %s: %w", p, err)
	}

	return &FileStore{rootPath: p}, nil
}

// PathFor returns the relative reference of the payload file for an image.
func (s *FileStore) PathFor(sopInstanceUID string) string {
	sum := sha256.Sum256([]byte(sopInstanceUID))
	name := hex.EncodeToString(sum[:])
	return filepath.ToSlash(filepath.Join(name[:2], name[2:4], name))
}

// Write replaces the file at ref with data. The bytes are written to a
// temporary file first and renamed into place.
func (s *FileStore) Write(ref string, data []byte) error {
	staged, err := s.Stage(ref, data)
	if err != nil {
		return err
	}
	return s.Promote(staged, ref)
}

// Stage writes data to a hidden file next to ref and returns its reference.
// The file under ref is left untouched until Promote is called. Hidden files
// are never reported by Walk.
func (s *FileStore) Stage(ref string, data []byte) (string, error) {
	fullPath := s.fullPath(ref)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create subdirectories: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write file data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to close file: %w", err)
	}

	rel, err := filepath.Rel(s.rootPath, tmp.Name())
	if err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to resolve temporary file: %w", err)
	}
	return filepath.ToSlash(rel), nil
}

// Promote moves a staged file over ref.
func (s *FileStore) Promote(staged, ref string) error {
	if err := os.Rename(s.fullPath(staged), s.fullPath(ref)); err != nil {
		os.Remove(s.fullPath(staged))
		return fmt.Errorf("failed to move file into place: %w", err)
	}
	return nil
}

// Discard drops a staged file that will not be promoted.
func (s *FileStore) Discard(staged string) error {
	return s.Delete(staged)
}

func (s *FileStore) Read(ref string) ([]byte, error) {
	data, err := os.ReadFile(s.fullPath(ref))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

func (s *FileStore) Exists(ref string) bool {
	_, err := os.Stat(s.fullPath(ref))
	return err == nil
}

// Delete removes the file at ref. A missing file is not an error.
func (s *FileStore) Delete(ref string) error {
	err := os.Remove(s.fullPath(ref))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// Walk lists every stored file reference older than minAge.
func (s *FileStore) Walk(minAge time.Duration) ([]string, error) {
	cutoff := time.Now().Add(-minAge)
	refs := make([]string, 0)

	err := filepath.WalkDir(s.rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Base(path)[0] == '.' {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(cutoff) {
			return nil
		}

		rel, err := filepath.Rel(s.rootPath, path)
		if err != nil {
			return err
		}
		refs = append(refs, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk storage directory: %w", err)
	}

	return refs, nil
}

func (s *FileStore) fullPath(ref string) string {
	return filepath.Join(s.rootPath, filepath.FromSlash(filepath.Clean("/"+ref)))
}

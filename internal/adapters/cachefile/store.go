// Package cachefile persists serialized shader cache images on disk,
// one file per compatibility tag.
package cachefile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/shade/internal/core/domain"
	"go.trai.ch/shade/internal/core/ports"
	"go.trai.ch/zerr"
)

// Extension is the suffix of persisted image files.
const Extension = ".shadercache"

var _ ports.ImageStore = (*Store)(nil)

// Store implements ports.ImageStore on a directory, with one image file per
// compatibility tag. Filenames are derived by hashing the tag so arbitrary
// tag content never reaches the filesystem.
type Store struct {
	root string
}

// NewStore creates a store rooted at the given directory. The directory is
// created lazily on the first Save.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// Load returns the persisted image for the tag, or nil, nil when no image
// exists.
func (s *Store) Load(tag string) ([]byte, error) {
	path := s.filename(tag)
	data, err := os.ReadFile(path) //nolint:gosec // Path is the configured cache dir plus a hashed filename
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.With(zerr.Wrap(err, domain.ErrImageReadFailed.Error()), "path", path)
	}
	return data, nil
}

// Save persists the image for the tag, replacing any previous one.
func (s *Store) Save(tag string, image []byte) error {
	path := s.filename(tag)
	if err := os.MkdirAll(s.root, domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrImageDirCreateFailed.Error()), "dir", s.root)
	}
	//nolint:gosec // Path is the configured cache dir plus a hashed filename
	if err := os.WriteFile(path, image, domain.FilePerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrImageWriteFailed.Error()), "path", path)
	}
	return nil
}

// Clean removes every persisted image under the store root.
func (s *Store) Clean() error {
	matches, err := filepath.Glob(filepath.Join(s.root, "*"+Extension))
	if err != nil {
		return zerr.Wrap(err, domain.ErrImageCleanFailed.Error())
	}
	for _, path := range matches {
		if err := os.Remove(path); err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrImageCleanFailed.Error()), "path", path)
		}
	}
	return nil
}

func (s *Store) filename(tag string) string {
	return filepath.Join(s.root, fmt.Sprintf("%016x%s", xxhash.Sum64String(tag), Extension))
}

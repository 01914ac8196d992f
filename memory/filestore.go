package memory

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// partialSuffix marks a write in progress; List never reports such files.
const partialSuffix = ".partial"

// FileStore keeps each fact in its own file under Root. Key segments map to
// directories, so one session's facts share a directory that disappears
// when its last fact is deleted.
type FileStore struct {
	Root string
}

// NewFileStore creates a FileStore rooted at root. The directory is created
// on the first Save.
func NewFileStore(root string) *FileStore {
	return &FileStore{Root: root}
}

func (s *FileStore) file(key string) (string, error) {
	clean := path.Clean(key)
	if key == "" || clean != key || path.IsAbs(key) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(s.Root, filepath.FromSlash(clean)), nil
}

func (s *FileStore) List(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	walk := func(p string, d fs.DirEntry, err error) error {
		switch {
		case errors.Is(err, fs.ErrNotExist) && p == s.Root:
			return fs.SkipAll
		case err != nil:
			return err
		case d.IsDir() && p != s.Root && strings.HasPrefix(d.Name(), "."):
			return filepath.SkipDir
		case d.IsDir(), strings.HasPrefix(d.Name(), "."), strings.HasSuffix(d.Name(), partialSuffix):
			return nil
		}

		rel, err := filepath.Rel(s.Root, p)
		if err != nil {
			return err
		}
		if key := filepath.ToSlash(rel); strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	}

	if err := filepath.WalkDir(s.Root, walk); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReadFailed, err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *FileStore) Load(_ context.Context, keys ...string) ([]Entry, error) {
	entries := make([]Entry, 0, len(keys))
	for _, key := range keys {
		name, err := s.file(key)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(name)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("%w: %s", ErrFactNotFound, key)
		case err != nil:
			return nil, fmt.Errorf("%w: %s: %v", ErrReadFailed, key, err)
		}
		entries = append(entries, Entry{Key: key, Value: data})
	}
	return entries, nil
}

func (s *FileStore) Save(_ context.Context, entries ...Entry) error {
	for _, e := range entries {
		name, err := s.file(e.Key)
		if err != nil {
			return err
		}
		if err := replaceFile(name, e.Value); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrWriteFailed, e.Key, err)
		}
	}
	return nil
}

// replaceFile writes data beside name and renames it into place.
func replaceFile(name string, data []byte) (err error) {
	dir := filepath.Dir(name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(name)+"-*"+partialSuffix)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), name)
}

func (s *FileStore) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		name, err := s.file(key)
		if err != nil {
			return err
		}
		if err := os.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s: %v", ErrWriteFailed, key, err)
		}
		s.prune(filepath.Dir(name))
	}
	return nil
}

// prune removes empty directories from dir up to, but excluding, Root.
func (s *FileStore) prune(dir string) {
	root := filepath.Clean(s.Root)
	for dir != root && strings.HasPrefix(dir, root) {
		if os.Remove(dir) != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

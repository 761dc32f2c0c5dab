package storefs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goliatone/go-pagecache/pagecache"
)

var _ pagecache.ArtifactStore = (*Store)(nil)

// Store manages a flat directory of rendered artifacts.
type Store struct {
	Root string
	Now  func() time.Time
}

// NewStore creates a filesystem-backed artifact store.
func NewStore(root string) *Store {
	return &Store{Root: root, Now: time.Now}
}

// EnsureDir creates the root directory if it does not exist.
func (s *Store) EnsureDir(ctx context.Context) error {
	_ = ctx
	root, err := s.root()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return pagecache.NewError(pagecache.KindStorage, "create artifact directory", err)
	}
	return nil
}

// Put writes an artifact fully to a temp file, then renames it into place.
func (s *Store) Put(ctx context.Context, name string, r io.Reader) (pagecache.Artifact, error) {
	_ = ctx
	pathOnDisk, err := s.Path(name)
	if err != nil {
		return pagecache.Artifact{}, err
	}

	dir := filepath.Dir(pathOnDisk)
	tmp, err := os.CreateTemp(dir, ".artifact-*")
	if err != nil {
		return pagecache.Artifact{}, pagecache.NewError(pagecache.KindStorage, "create artifact", err)
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	size, err := io.Copy(tmp, r)
	if err != nil {
		return pagecache.Artifact{}, pagecache.NewError(pagecache.KindStorage, "write artifact", err)
	}
	if err := tmp.Sync(); err != nil {
		return pagecache.Artifact{}, pagecache.NewError(pagecache.KindStorage, "sync artifact", err)
	}
	if err := tmp.Close(); err != nil {
		return pagecache.Artifact{}, pagecache.NewError(pagecache.KindStorage, "close artifact", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return pagecache.Artifact{}, pagecache.NewError(pagecache.KindStorage, "chmod artifact", err)
	}
	if err := os.Rename(tmp.Name(), pathOnDisk); err != nil {
		return pagecache.Artifact{}, pagecache.NewError(pagecache.KindStorage, "commit artifact", err)
	}

	return pagecache.Artifact{
		Name:      name,
		Path:      pathOnDisk,
		Size:      size,
		CreatedAt: s.now(),
	}, nil
}

// Delete removes a single artifact. Missing artifacts are ignored.
func (s *Store) Delete(ctx context.Context, name string) error {
	_ = ctx
	pathOnDisk, err := s.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(pathOnDisk); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return pagecache.NewError(pagecache.KindStorage, fmt.Sprintf("delete artifact %q", name), err)
	}
	return nil
}

// Purge deletes every regular file directly inside the root.
func (s *Store) Purge(ctx context.Context) (int, error) {
	root, err := s.root()
	if err != nil {
		return 0, err
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, pagecache.NewError(pagecache.KindStorage, "list artifact directory", err)
	}

	removed := 0
	for _, entry := range entries {
		if ctx != nil && ctx.Err() != nil {
			return removed, ctx.Err()
		}
		if entry.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(root, entry.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, pagecache.NewError(pagecache.KindStorage, fmt.Sprintf("delete artifact %q", entry.Name()), err)
		}
		removed++
	}
	return removed, nil
}

// Path resolves an artifact name to its location on disk.
func (s *Store) Path(name string) (string, error) {
	if name == "" {
		return "", pagecache.NewError(pagecache.KindValidation, "artifact name is required", nil)
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", pagecache.NewError(pagecache.KindValidation, "artifact name escapes root", nil)
	}
	root, err := s.root()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, name), nil
}

func (s *Store) root() (string, error) {
	if s == nil {
		return "", pagecache.NewError(pagecache.KindInternal, "store is nil", nil)
	}
	if s.Root == "" {
		return "", pagecache.NewError(pagecache.KindValidation, "store root is required", nil)
	}
	root, err := filepath.Abs(s.Root)
	if err != nil {
		return "", pagecache.NewError(pagecache.KindStorage, "resolve store root", err)
	}
	return root, nil
}

func (s *Store) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

package storefs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-snapshot/export"
)

const maxNameAttempts = 1000

// Store saves artifacts into a local directory, the way a browser saves downloads.
// Existing files are kept: a numeric suffix is added unless Overwrite is set.
type Store struct {
	Root      string
	Overwrite bool
	// Sidecar writes <file>.meta.json next to each artifact.
	Sidecar bool
	Now     func() time.Time

	mu sync.Mutex
}

// NewStore creates a filesystem-backed artifact store with metadata sidecars.
func NewStore(root string) *Store {
	return &Store{Root: root, Sidecar: true, Now: time.Now}
}

// Put writes the artifact atomically and returns the key it was saved under.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, meta export.ArtifactMeta) (export.ArtifactRef, error) {
	if err := s.check(key); err != nil {
		return export.ArtifactRef{}, err
	}
	if err := ctx.Err(); err != nil {
		return export.ArtifactRef{}, err
	}

	pathOnDisk, err := s.resolvePath(key)
	if err != nil {
		return export.ArtifactRef{}, err
	}

	dir := filepath.Dir(pathOnDisk)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return export.ArtifactRef{}, export.NewError(export.KindInternal, "create output directory failed", err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return export.ArtifactRef{}, export.NewError(export.KindInternal, "create temp file failed", err)
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	size, err := io.Copy(tmp, r)
	if err != nil {
		return export.ArtifactRef{}, err
	}
	if err := tmp.Sync(); err != nil {
		return export.ArtifactRef{}, err
	}
	if err := tmp.Close(); err != nil {
		return export.ArtifactRef{}, err
	}

	s.mu.Lock()
	target, err := s.availablePath(pathOnDisk)
	if err == nil {
		err = os.Rename(tmp.Name(), target)
	}
	s.mu.Unlock()
	if err != nil {
		return export.ArtifactRef{}, export.NewError(export.KindInternal, "save artifact failed", err)
	}

	finalKey, err := s.keyFor(target)
	if err != nil {
		return export.ArtifactRef{}, err
	}

	meta.Size = size
	meta.Filename = filepath.Base(target)
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = s.now()
	}
	if meta.ContentType == "" {
		meta.ContentType = mime.TypeByExtension(filepath.Ext(target))
	}

	if s.Sidecar {
		if err := s.writeMeta(target, meta); err != nil {
			return export.ArtifactRef{}, err
		}
	}

	return export.ArtifactRef{Key: finalKey, Meta: meta}, nil
}

// Open reads an artifact from disk.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, export.ArtifactMeta, error) {
	_ = ctx
	if err := s.check(key); err != nil {
		return nil, export.ArtifactMeta{}, err
	}

	pathOnDisk, err := s.resolvePath(key)
	if err != nil {
		return nil, export.ArtifactMeta{}, err
	}

	file, err := os.Open(pathOnDisk)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, export.ArtifactMeta{}, export.NewError(export.KindNotFound, fmt.Sprintf("artifact %q not found", key), err)
		}
		return nil, export.ArtifactMeta{}, err
	}

	meta := s.readMeta(pathOnDisk)
	if meta.Filename == "" {
		meta.Filename = filepath.Base(pathOnDisk)
	}
	if meta.ContentType == "" {
		meta.ContentType = mime.TypeByExtension(filepath.Ext(pathOnDisk))
	}
	if meta.Size == 0 {
		if info, err := file.Stat(); err == nil {
			meta.Size = info.Size()
			if meta.CreatedAt.IsZero() {
				meta.CreatedAt = info.ModTime()
			}
		}
	}

	return file, meta, nil
}

// Delete removes an artifact and its sidecar.
func (s *Store) Delete(ctx context.Context, key string) error {
	_ = ctx
	if err := s.check(key); err != nil {
		return err
	}

	pathOnDisk, err := s.resolvePath(key)
	if err != nil {
		return err
	}
	_ = os.Remove(pathOnDisk)
	_ = os.Remove(metaPath(pathOnDisk))
	return nil
}

func (s *Store) check(key string) error {
	if s == nil {
		return export.NewError(export.KindInternal, "store is nil", nil)
	}
	if s.Root == "" {
		return export.NewError(export.KindValidation, "store root is required", nil)
	}
	if key == "" {
		return export.NewError(export.KindValidation, "artifact key is required", nil)
	}
	return nil
}

// availablePath returns pathOnDisk or the first free name_N variant of it.
func (s *Store) availablePath(pathOnDisk string) (string, error) {
	if s.Overwrite || !exists(pathOnDisk) {
		return pathOnDisk, nil
	}
	ext := filepath.Ext(pathOnDisk)
	base := strings.TrimSuffix(pathOnDisk, ext)
	for i := 1; i <= maxNameAttempts; i++ {
		candidate := fmt.Sprintf("%s_%d%s", base, i, ext)
		if !exists(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free filename for %s", filepath.Base(pathOnDisk))
}

func (s *Store) resolvePath(key string) (string, error) {
	clean := path.Clean("/" + key)
	rel := strings.TrimPrefix(clean, "/")
	if rel == "" || rel == "." {
		return "", export.NewError(export.KindValidation, "invalid artifact key", nil)
	}

	root, err := filepath.Abs(s.Root)
	if err != nil {
		return "", err
	}
	target := filepath.Join(root, filepath.FromSlash(rel))
	if !strings.HasPrefix(target, root+string(os.PathSeparator)) && target != root {
		return "", export.NewError(export.KindValidation, "artifact key escapes root", nil)
	}
	return target, nil
}

func (s *Store) keyFor(pathOnDisk string) (string, error) {
	root, err := filepath.Abs(s.Root)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(root, pathOnDisk)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

func (s *Store) writeMeta(pathOnDisk string, meta export.ArtifactMeta) error {
	payload, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(pathOnDisk), ".meta-*")
	if err != nil {
		return err
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()
	if _, err := tmp.Write(payload); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), metaPath(pathOnDisk))
}

func (s *Store) readMeta(pathOnDisk string) export.ArtifactMeta {
	data, err := os.ReadFile(metaPath(pathOnDisk))
	if err != nil {
		return export.ArtifactMeta{}
	}
	var meta export.ArtifactMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return export.ArtifactMeta{}
	}
	return meta
}

func (s *Store) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func exists(pathOnDisk string) bool {
	_, err := os.Lstat(pathOnDisk)
	return err == nil
}

func metaPath(pathOnDisk string) string {
	return pathOnDisk + ".meta.json"
}

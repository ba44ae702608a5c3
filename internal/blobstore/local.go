package blobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"photo-gallery/internal/filesystem"
	"photo-gallery/internal/logging"
)

const metaSuffix = ".meta"

// LocalStore stores blob bytes in a local content-addressed tree.
type LocalStore struct {
	root  string
	retry filesystem.RetryConfig
}

type sidecar struct {
	ContentType string `json:"contentType"`
	Filename    string `json:"filename"`
	ByteSize    int64  `json:"byteSize"`
}

// NewLocalStore creates a store rooted at root, creating the directory
// and its tmp/ staging area if needed.
func NewLocalStore(root string) (*LocalStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("blob store root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(abs, "tmp"), 0o755); err != nil {
		return nil, err
	}
	return &LocalStore{root: abs, retry: filesystem.DefaultRetryConfig()}, nil
}

// Root returns the absolute directory the store writes under.
func (s *LocalStore) Root() string {
	return s.root
}

// Backend implements Store.
func (s *LocalStore) Backend() string {
	return "local"
}

// Store implements Store. The blob is fsynced and renamed into place
// before Store returns.
func (s *LocalStore) Store(ctx context.Context, data []byte, filename, contentType string) (StoredBlob, error) {
	if err := ctx.Err(); err != nil {
		return StoredBlob{}, storageError("store", err)
	}

	digest := Digest(data)
	blob := StoredBlob{
		Key:         KeyFromDigest(digest),
		ByteSize:    int64(len(data)),
		ContentType: contentType,
		Filename:    filename,
		Checksum:    digest,
	}
	dst := s.pathFor(blob.Key)

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return StoredBlob{}, storageError("store", err)
	}

	if _, err := os.Stat(dst); err == nil {
		logging.Debug("blobstore: %s already stored, skipping write", blob.Key)
		return blob, nil
	}

	if err := s.writeAtomic(dst, data); err != nil {
		return StoredBlob{}, storageError("store", err)
	}

	meta, err := json.Marshal(sidecar{ContentType: contentType, Filename: filename, ByteSize: blob.ByteSize})
	if err != nil {
		return StoredBlob{}, storageError("store", err)
	}
	if err := s.writeAtomic(dst+metaSuffix, meta); err != nil {
		// The bytes are durable; Exists falls back to a stat without the sidecar.
		logging.Warn("blobstore: failed to write metadata for %s: %v", blob.Key, err)
	}

	return blob, nil
}

// writeAtomic writes data to a temp file, fsyncs it and renames it to dst.
// A concurrent writer of the same content may win the rename; that is fine
// because both files hold identical bytes.
func (s *LocalStore) writeAtomic(dst string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Join(s.root, "tmp"), "put-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	if dir, err := os.Open(filepath.Dir(dst)); err == nil {
		_ = dir.Sync()
		_ = dir.Close()
	}
	return nil
}

// Retrieve implements Store.
func (s *LocalStore) Retrieve(ctx context.Context, key string) ([]byte, error) {
	if _, err := DigestFromKey(key); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, storageError("retrieve", err)
	}

	data, err := filesystem.ReadFileWithRetry(s.pathFor(key), s.retry)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, storageError("retrieve", err)
	}
	return data, nil
}

// Exists implements Store.
func (s *LocalStore) Exists(ctx context.Context, key string) (StoredBlob, error) {
	digest, err := DigestFromKey(key)
	if err != nil {
		return StoredBlob{}, err
	}
	if err := ctx.Err(); err != nil {
		return StoredBlob{}, storageError("stat", err)
	}

	path := s.pathFor(key)
	info, err := filesystem.StatWithRetry(path, s.retry)
	if errors.Is(err, os.ErrNotExist) {
		return StoredBlob{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return StoredBlob{}, storageError("stat", err)
	}

	blob := StoredBlob{Key: key, ByteSize: info.Size(), Checksum: digest}
	if raw, err := filesystem.ReadFileWithRetry(path+metaSuffix, s.retry); err == nil {
		var meta sidecar
		if err := json.Unmarshal(raw, &meta); err == nil {
			blob.ContentType = meta.ContentType
			blob.Filename = meta.Filename
		}
	}
	return blob, nil
}

func (s *LocalStore) pathFor(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

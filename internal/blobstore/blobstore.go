package blobstore

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

const keyPrefix = "b2"

var (
	// ErrNotFound is returned for keys that do not name a stored blob.
	ErrNotFound = errors.New("blob not found")

	// ErrStorage wraps I/O failures of the underlying backend.
	ErrStorage = errors.New("blob storage failure")
)

// StoredBlob describes one immutable stored byte sequence.
type StoredBlob struct {
	Key         string `json:"key"`
	ByteSize    int64  `json:"byteSize"`
	ContentType string `json:"contentType"`
	Filename    string `json:"filename,omitempty"`
	Checksum    string `json:"checksum"`
}

// Store is the byte-storage abstraction used by ingestion and renditions.
type Store interface {
	// Store durably writes data and returns its descriptor. The content type
	// is recorded as given; the bytes are not inspected.
	Store(ctx context.Context, data []byte, filename, contentType string) (StoredBlob, error)

	// Retrieve returns the exact bytes stored under key.
	Retrieve(ctx context.Context, key string) ([]byte, error)

	// Exists returns the descriptor of a stored blob without reading it.
	Exists(ctx context.Context, key string) (StoredBlob, error)

	// Backend names the implementation for logs and metric labels.
	Backend() string
}

// Digest returns the hex BLAKE2b-256 digest of data.
func Digest(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// KeyFromDigest builds the blob key for a hex digest.
func KeyFromDigest(digest string) string {
	return fmt.Sprintf("%s/%s/%s/%s", keyPrefix, digest[0:2], digest[2:4], digest)
}

// DigestFromKey validates key and returns the digest it names.
func DigestFromKey(key string) (string, error) {
	parts := strings.Split(strings.TrimSpace(key), "/")
	if len(parts) != 4 || parts[0] != keyPrefix {
		return "", fmt.Errorf("%w: malformed key %q", ErrNotFound, key)
	}

	digest := parts[3]
	if len(digest) != 2*blake2b.Size256 || parts[1] != digest[0:2] || parts[2] != digest[2:4] {
		return "", fmt.Errorf("%w: malformed key %q", ErrNotFound, key)
	}
	if _, err := hex.DecodeString(digest); err != nil || strings.ToLower(digest) != digest {
		return "", fmt.Errorf("%w: malformed key %q", ErrNotFound, key)
	}
	return digest, nil
}

func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorage, op, err)
}

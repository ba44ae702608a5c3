package ingest

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyBatch rejects a submission with no items.
	ErrEmptyBatch = errors.New("images must be selected")

	// ErrAlbumNotFound rejects a submission for an unknown album.
	ErrAlbumNotFound = errors.New("album not found")
)

// Kind classifies why an item or rendition failed.
type Kind int

const (
	KindNoContent Kind = iota + 1
	KindStorageFailure
	KindValidationFailure
	KindRenditionFailure
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindNoContent:
		return "no_content"
	case KindStorageFailure:
		return "storage_failure"
	case KindValidationFailure:
		return "validation_failure"
	case KindRenditionFailure:
		return "rendition_failure"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind as its snake_case name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (k *Kind) UnmarshalText(text []byte) error {
	for c := KindNoContent; c <= KindNotFound; c++ {
		if c.String() == string(text) {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("unknown failure kind %q", text)
}

// Error is a classified ingestion failure.
type Error struct {
	Kind    Kind
	Reasons []string
	Err     error
}

func (e *Error) Error() string {
	if len(e.Reasons) > 0 {
		return e.Kind.String() + ": " + strings.Join(e.Reasons, ", ")
	}
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, err error, reasons ...string) *Error {
	if len(reasons) == 0 && err != nil {
		reasons = []string{err.Error()}
	}
	return &Error{Kind: kind, Reasons: reasons, Err: err}
}

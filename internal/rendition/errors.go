package rendition

import (
	"errors"
	"fmt"
)

// ErrRendition is matched by every *ProfileError.
var ErrRendition = errors.New("rendition failure")

// ProfileError records why one profile of one photo could not be generated.
type ProfileError struct {
	Profile string
	Err     error
}

func (e *ProfileError) Error() string {
	return fmt.Sprintf("rendition %s: %v", e.Profile, e.Err)
}

func (e *ProfileError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrRendition) true for any ProfileError.
func (e *ProfileError) Is(target error) bool {
	return target == ErrRendition
}

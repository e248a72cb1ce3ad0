package mapmodel

import (
	"errors"
	"fmt"
)

// ErrBadMagic indicates a cache stream that does not start with the expected
// signature. The load fails closed; no partial model is exposed.
var ErrBadMagic = errors.New("map cache: invalid magic signature")

// ErrTruncated indicates the cache stream ended inside the named section.
type ErrTruncated struct {
	Section string
	Err     error
}

func (e *ErrTruncated) Error() string {
	return fmt.Sprintf("map cache: truncated %s section: %v", e.Section, e.Err)
}

func (e *ErrTruncated) Unwrap() error {
	return e.Err
}

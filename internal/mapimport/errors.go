package mapimport

import (
	"errors"
	"fmt"
)

// ErrCanceled indicates the progress callback requested an abort. Partial
// state is discarded.
var ErrCanceled = errors.New("map import: canceled by progress callback")

// ErrPBFUnavailable indicates binary extract support is disabled in this
// build configuration. The call fails deterministically rather than
// silently degrading.
var ErrPBFUnavailable = errors.New("map import: PBF support unavailable")

// ErrNoMatchingFile indicates a directory import found no file whose
// declared bounding box contains the requested area.
var ErrNoMatchingFile = errors.New("map import: no file covers the requested bounding box")

// ErrUnsupportedFormat indicates a file extension outside the accepted
// vector-map formats.
type ErrUnsupportedFormat struct {
	Path string
}

func (e *ErrUnsupportedFormat) Error() string {
	return fmt.Sprintf("map import: unsupported format: %s", e.Path)
}

// ErrBoundsNotContained indicates the file's declared bounding box does not
// contain the requested area. Directory imports treat this as "try the next
// file".
type ErrBoundsNotContained struct {
	Path string
}

func (e *ErrBoundsNotContained) Error() string {
	return fmt.Sprintf("map import: %s does not cover the requested bounding box", e.Path)
}

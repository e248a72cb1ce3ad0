package mapimport

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"

	"github.com/beetlebugorg/trackmap/internal/geomath"
	"github.com/beetlebugorg/trackmap/internal/mapmodel"
)

// PBFReader opens binary map extracts. The importer only depends on this
// interface, so it stays testable without real PBF data and can be compiled
// with PBF support disabled.
type PBFReader interface {
	// Open returns a scanner over the file's objects.
	Open(ctx context.Context, r io.Reader) (osm.Scanner, error)

	// Bounds returns the bounding box declared in the file header, in
	// radians. ok is false when the header declares none.
	Bounds(path string) (bounds mapmodel.Bounds, ok bool, err error)
}

// NewPBFReader returns the default reader backed by the osmpbf decoder.
func NewPBFReader() PBFReader {
	return &pbfReader{}
}

// DisabledPBF is a PBFReader that fails closed. Builds without binary
// extract support install it so the rest of the importer keeps working.
var DisabledPBF PBFReader = disabledPBF{}

type pbfReader struct{}

func (pbfReader) Open(ctx context.Context, r io.Reader) (osm.Scanner, error) {
	procs := runtime.NumCPU()
	if procs > 4 {
		procs = 4
	}
	return osmpbf.New(ctx, r, procs), nil
}

func (pbfReader) Bounds(path string) (mapmodel.Bounds, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return mapmodel.Bounds{}, false, err
	}
	defer f.Close()

	scanner := osmpbf.New(context.Background(), f, 1)
	defer scanner.Close()

	header, err := scanner.Header()
	if err != nil {
		return mapmodel.Bounds{}, false, fmt.Errorf("reading PBF header of %s: %w", path, err)
	}
	if header.Bounds == nil {
		return mapmodel.Bounds{}, false, nil
	}
	return mapmodel.Bounds{
		MinLon: geomath.DegToRad(header.Bounds.MinLon),
		MaxLon: geomath.DegToRad(header.Bounds.MaxLon),
		MinLat: geomath.DegToRad(header.Bounds.MinLat),
		MaxLat: geomath.DegToRad(header.Bounds.MaxLat),
	}, true, nil
}

type disabledPBF struct{}

func (disabledPBF) Open(context.Context, io.Reader) (osm.Scanner, error) {
	return nil, ErrPBFUnavailable
}

func (disabledPBF) Bounds(string) (mapmodel.Bounds, bool, error) {
	return mapmodel.Bounds{}, false, ErrPBFUnavailable
}

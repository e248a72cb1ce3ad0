package track

import (
	"fmt"
	"path/filepath"

	"github.com/tkrajina/gpxgo/gpx"

	"github.com/beetlebugorg/trackmap/internal/geomath"
)

// ImportGPX parses a GPX recording into an ordered, aggregate-annotated
// track. Points lacking a timestamp are assigned index*assumedDT seconds
// from the first point's synthesized origin; real timestamps, when present,
// are used as-is. assumedDT is in seconds.
func ImportGPX(path string, assumedDT float64, settings Settings) (t *Track, err error) {
	defer func() {
		if r := recover(); r != nil {
			t = nil
			err = fmt.Errorf("gpx import: %s: %v", path, r)
		}
	}()

	gpxFile, err := gpx.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("gpx import: %s: %w", path, err)
	}

	t = &Track{
		Filename: filepath.Base(path),
		Version:  gpxFile.Version,
		Creator:  gpxFile.Creator,
	}

	for _, trk := range gpxFile.Tracks {
		for _, segment := range trk.Segments {
			for _, p := range segment.Points {
				point := Point{
					Lat: geomath.DegToRad(p.Latitude),
					Lon: geomath.DegToRad(p.Longitude),
				}
				if p.Elevation.NotNull() {
					point.Elevation = p.Elevation.Value()
				}
				if !p.Timestamp.IsZero() {
					point.HasTime = true
					point.Time = p.Timestamp
				} else if len(t.Points) > 0 {
					// No timestamp: a fixed delta from the
					// synthesized origin, by position in the
					// file. Deliberately not interpolated
					// from neighboring real timestamps.
					point.Elapsed = assumedDT
				}
				t.Points = append(t.Points, point)
			}
		}
	}

	t.Calculate(settings)
	return t, nil
}

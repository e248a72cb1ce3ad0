package trackmap

import (
	"io"
	"os"

	"github.com/beetlebugorg/trackmap/internal/mapimport"
	"github.com/beetlebugorg/trackmap/internal/mapmodel"
)

// Map is a loaded vector map model.
//
// Obtain one with ImportMap or LoadMap; persist it with Save and render it
// with ExportSVG. A Map is single-owner per import/render session and is not
// safe for concurrent mutation.
type Map struct {
	m *mapmodel.Map
}

// ImportMap imports a vector-map file or directory.
//
// A single file (.osm or .pbf) is imported unconditionally. For a directory,
// the first file whose declared bounding box contains opts.Bounds is
// imported. The progress callback, when set, is invoked during the parse and
// may abort it by returning false (the import then fails with ErrCanceled).
func ImportMap(path string, opts ImportOptions) (*Map, error) {
	m, err := mapimport.ImportDir(path, opts.internal())
	if err != nil {
		return nil, err
	}
	return &Map{m: m}, nil
}

// LoadMap reads a binary map cache previously written by Save.
func LoadMap(path string) (*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadMap(f)
}

// ReadMap reads a binary map cache from a stream.
func ReadMap(r io.Reader) (*Map, error) {
	m, err := mapmodel.LoadCache(r)
	if err != nil {
		return nil, err
	}
	return &Map{m: m}, nil
}

// Save writes the binary map cache to path.
func (m *Map) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return m.Write(f)
}

// Write writes the binary map cache to a stream.
func (m *Map) Write(w io.Writer) error {
	return m.m.SaveCache(w)
}

// ExportSVG renders the map, including any overlay track, to w. scale is
// pixels per radian; clip optionally restricts output to a sub-rectangle.
func (m *Map) ExportSVG(w io.Writer, scale float64, clip *Bounds) error {
	var internalClip *mapmodel.Bounds
	if clip != nil {
		b := clip.internal()
		internalClip = &b
	}
	return m.m.ExportSVG(w, scale, internalClip)
}

// SetOverlay installs a track to be drawn on top of all map layers. A nil
// track clears the overlay.
func (m *Map) SetOverlay(t *Track) {
	if t == nil {
		m.m.SetTrack(nil)
		return
	}
	overlay := make([]mapmodel.TrackVertex, len(t.t.Points))
	for i, p := range t.t.Points {
		overlay[i] = mapmodel.TrackVertex{Lon: p.Lon, Lat: p.Lat}
	}
	m.m.SetTrack(overlay)
}

// Bounds returns the map's bounding box in radians.
func (m *Map) Bounds() Bounds {
	return Bounds(m.m.Bounds)
}

// VertexCount returns the number of vertices across all partitions.
func (m *Map) VertexCount() int { return m.m.VertexCount() }

// SegmentCount returns the number of segments across all partitions.
func (m *Map) SegmentCount() int { return m.m.SegmentCount() }

// MultiSegmentCount returns the number of multi-segment relations.
func (m *Map) MultiSegmentCount() int { return m.m.MultiSegmentCount() }

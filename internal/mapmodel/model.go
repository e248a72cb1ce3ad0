// Package mapmodel holds the in-memory vector map model: vertex, segment and
// multi-segment registries partitioned for rendering, the static style
// lookup tables, the versioned binary cache codec and the SVG exporter.
//
// All coordinates are radians. Ids are dense integers assigned during import
// and unique per category (vertex, segment, multi-segment) within one Map.
package mapmodel

// Tags is a tag dictionary. Insertion order is irrelevant; style lookups
// consult keys in a fixed priority order.
type Tags map[string]string

// Bounds is an axis-aligned min/max longitude-latitude rectangle in radians.
type Bounds struct {
	MinLon, MaxLon float64
	MinLat, MaxLat float64
}

// Contains reports whether o lies entirely within b.
func (b Bounds) Contains(o Bounds) bool {
	return o.MinLon >= b.MinLon && o.MaxLon <= b.MaxLon &&
		o.MinLat >= b.MinLat && o.MaxLat <= b.MaxLat
}

// ContainsPoint reports whether the point lies within b.
func (b Bounds) ContainsPoint(lon, lat float64) bool {
	return lon >= b.MinLon && lon <= b.MaxLon &&
		lat >= b.MinLat && lat <= b.MaxLat
}

// Vertex is a single map node.
type Vertex struct {
	ID       int
	Lon, Lat float64
	Tags     Tags

	// Referenced is set when the vertex is retained by a kept segment or
	// relation. Unreferenced vertices are removed by the prune pass.
	Referenced bool
}

// Segment is an ordered sequence of vertex ids (an OSM way).
type Segment struct {
	ID        int
	VertexIDs []int

	// IsArea is true iff the segment is a closed ring (first and last
	// vertex ids equal) and not classified as a road.
	IsArea bool

	Tags       Tags
	Referenced bool
}

// Closed reports whether the segment forms a closed ring.
func (s *Segment) Closed() bool {
	return len(s.VertexIDs) >= 3 && s.VertexIDs[0] == s.VertexIDs[len(s.VertexIDs)-1]
}

// MultiSegment is a compound area built from member segments (an OSM
// relation), e.g. a lake with islands.
type MultiSegment struct {
	ID         int
	VertexIDs  []int
	InnerIDs   []int
	OuterIDs   []int
	Tags       Tags
	Referenced bool
}

// TrackVertex is a lightweight overlay point with no tags.
type TrackVertex struct {
	Lon, Lat float64
}

// Map is the complete vector map model. Entities are partitioned by their
// render role; each partition is keyed by dense id.
type Map struct {
	Bounds Bounds

	SkipBuildings bool
	SkipLabels    bool

	Vertices           map[int]*Vertex
	LabelVertices      map[int]*Vertex
	Segments           map[int]*Segment
	BackgroundSegments map[int]*Segment
	ForegroundSegments map[int]*Segment
	MultiSegments      map[int]*MultiSegment

	// Track is an optional overlay drawn on top of all map layers.
	Track []TrackVertex
}

// New creates an empty map with the given bounds and options.
func New(bounds Bounds, skipBuildings, skipLabels bool) *Map {
	return &Map{
		Bounds:             bounds,
		SkipBuildings:      skipBuildings,
		SkipLabels:         skipLabels,
		Vertices:           make(map[int]*Vertex),
		LabelVertices:      make(map[int]*Vertex),
		Segments:           make(map[int]*Segment),
		BackgroundSegments: make(map[int]*Segment),
		ForegroundSegments: make(map[int]*Segment),
		MultiSegments:      make(map[int]*MultiSegment),
	}
}

// Vertex returns the vertex with the given id from either vertex partition.
func (m *Map) Vertex(id int) (*Vertex, bool) {
	if v, ok := m.Vertices[id]; ok {
		return v, true
	}
	v, ok := m.LabelVertices[id]
	return v, ok
}

// Segment returns the segment with the given id from any segment partition.
func (m *Map) Segment(id int) (*Segment, bool) {
	if s, ok := m.Segments[id]; ok {
		return s, true
	}
	if s, ok := m.BackgroundSegments[id]; ok {
		return s, true
	}
	s, ok := m.ForegroundSegments[id]
	return s, ok
}

// VertexCount returns the number of vertices across both partitions.
func (m *Map) VertexCount() int {
	return len(m.Vertices) + len(m.LabelVertices)
}

// SegmentCount returns the number of segments across all three partitions.
func (m *Map) SegmentCount() int {
	return len(m.Segments) + len(m.BackgroundSegments) + len(m.ForegroundSegments)
}

// MultiSegmentCount returns the number of multi-segments.
func (m *Map) MultiSegmentCount() int {
	return len(m.MultiSegments)
}

// SetTrack installs the overlay track.
func (m *Map) SetTrack(track []TrackVertex) {
	m.Track = track
}

// markSegmentVertices flags every vertex of s as referenced.
func (m *Map) markSegmentVertices(s *Segment) {
	for _, id := range s.VertexIDs {
		if v, ok := m.Vertex(id); ok {
			v.Referenced = true
		}
	}
}

// Prune removes unreferenced vertices and removes segments and
// multi-segments that are both unreferenced and untagged. It runs exactly
// once, at the end of an import pass. Objects referenced by a relation or
// carrying renderable tags are retained.
func (m *Map) Prune() (vertices, segments int) {
	for _, segs := range []map[int]*Segment{m.Segments, m.BackgroundSegments, m.ForegroundSegments} {
		for id, s := range segs {
			if !s.Referenced && len(s.Tags) == 0 {
				delete(segs, id)
				segments++
				continue
			}
			m.markSegmentVertices(s)
		}
	}
	for id, ms := range m.MultiSegments {
		if !ms.Referenced && len(ms.Tags) == 0 {
			delete(m.MultiSegments, id)
			continue
		}
		for _, vid := range ms.VertexIDs {
			if v, ok := m.Vertex(vid); ok {
				v.Referenced = true
			}
		}
	}
	for _, verts := range []map[int]*Vertex{m.Vertices, m.LabelVertices} {
		for id, v := range verts {
			if !v.Referenced {
				delete(verts, id)
				vertices++
			}
		}
	}
	return vertices, segments
}

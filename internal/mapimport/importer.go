// Package mapimport builds a mapmodel.Map from OSM vector extracts, either
// the XML format (.osm) or the binary extract format (.pbf). Both formats
// stream through the same scanner loop; classification, identifier
// remapping and the final prune pass are shared.
package mapimport

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmxml"

	"github.com/beetlebugorg/trackmap/internal/geomath"
	"github.com/beetlebugorg/trackmap/internal/mapmodel"
)

// ProgressFunc receives the consumed input fraction in [0,1] during a long
// import. Returning false aborts the parse; partial state is discarded.
type ProgressFunc func(fraction float64) bool

// Options configures an import pass.
type Options struct {
	// Bounds is the requested area in radians. Directory imports select
	// the first file whose declared header box contains it. When set it
	// also becomes the imported map's bounding box; nil means no area
	// was requested.
	Bounds *mapmodel.Bounds

	SkipBuildings       bool
	SkipLabels          bool
	SkipUnnecessaryTags bool

	// CheckBounds makes binary imports fail when the file header declares
	// a bounding box that does not contain Bounds.
	CheckBounds bool

	Progress ProgressFunc

	// PBF opens binary extracts. Defaults to the osmpbf-backed reader;
	// install DisabledPBF for builds without binary support.
	PBF PBFReader
}

// DefaultOptions returns options with binary extract support enabled and no
// filtering.
func DefaultOptions() Options {
	return Options{PBF: NewPBFReader()}
}

func (o *Options) pbf() PBFReader {
	if o.PBF == nil {
		return NewPBFReader()
	}
	return o.PBF
}

// Accepted vector-map extensions.
const (
	extXML = ".osm"
	extPBF = ".pbf"
)

// ImportFile imports a single vector-map file, dispatching on its
// extension. The file is imported unconditionally (no bounding-box
// containment check unless Options.CheckBounds is set for binary extracts).
func ImportFile(path string, opts Options) (m *mapmodel.Map, err error) {
	// Decoder libraries may panic on malformed input; convert to a
	// failure result at the module boundary.
	defer func() {
		if r := recover(); r != nil {
			m = nil
			err = fmt.Errorf("map import: %s: %v", path, r)
		}
	}()

	switch strings.ToLower(filepath.Ext(path)) {
	case extXML:
		return ImportXML(path, opts)
	case extPBF:
		return ImportPBF(path, opts)
	}
	return nil, &ErrUnsupportedFormat{Path: path}
}

// ImportXML streaming-parses the XML vector format.
func ImportXML(path string, opts Options) (*mapmodel.Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	cr := &countingReader{r: f}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scanner := osmxml.New(ctx, cr)
	defer scanner.Close()

	m, err := runImport(scanner, cr, info.Size(), opts)
	if err != nil {
		return nil, err
	}
	return finishImport(m, path, opts)
}

// ImportPBF parses the binary extract format through the configured
// PBFReader. When the reader is disabled the call fails deterministically
// with ErrPBFUnavailable.
func ImportPBF(path string, opts Options) (*mapmodel.Map, error) {
	reader := opts.pbf()

	if opts.CheckBounds && opts.Bounds != nil {
		declared, ok, err := reader.Bounds(path)
		if err != nil {
			return nil, err
		}
		if ok && !declared.Contains(*opts.Bounds) {
			return nil, &ErrBoundsNotContained{Path: path}
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	cr := &countingReader{r: f}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scanner, err := reader.Open(ctx, cr)
	if err != nil {
		return nil, err
	}
	defer scanner.Close()

	m, err := runImport(scanner, cr, info.Size(), opts)
	if err != nil {
		return nil, err
	}
	return finishImport(m, path, opts)
}

// ImportDir imports from a file or a directory. A single file is imported
// unconditionally. For a directory, entries with accepted extensions are
// tried in name order and the first file whose declared header bounding box
// contains opts.Bounds is imported; non-containment or an unreadable header
// means "try the next file", not an error. With nil bounds the first
// accepted file wins.
func ImportDir(path string, opts Options) (*mapmodel.Map, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return ImportFile(path, opts)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case extXML, extPBF:
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		candidate := filepath.Join(path, name)
		if opts.Bounds != nil {
			declared, ok, err := fileBounds(candidate, opts)
			if err != nil || !ok {
				continue
			}
			if !declared.Contains(*opts.Bounds) {
				continue
			}
		}
		return ImportFile(candidate, opts)
	}
	return nil, ErrNoMatchingFile
}

// fileBounds reads only the declared header bounding box of a vector-map
// file, in radians.
func fileBounds(path string, opts Options) (mapmodel.Bounds, bool, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case extXML:
		return xmlBounds(path)
	case extPBF:
		return opts.pbf().Bounds(path)
	}
	return mapmodel.Bounds{}, false, &ErrUnsupportedFormat{Path: path}
}

// progressEvery is the object interval between progress callbacks.
const progressEvery = 4096

// runImport drives the shared scanner loop: classify each object, remap
// identifiers, and report progress.
func runImport(scanner osm.Scanner, cr *countingReader, size int64, opts Options) (*mapmodel.Map, error) {
	var bounds mapmodel.Bounds
	if opts.Bounds != nil {
		bounds = *opts.Bounds
	}
	imp := &importer{
		opts: opts,
		m:    mapmodel.New(bounds, opts.SkipBuildings, opts.SkipLabels),

		nodeIDs: make(map[osm.NodeID]int),
		wayIDs:  make(map[osm.WayID]int),
		relIDs:  make(map[osm.RelationID]int),
	}

	objects := 0
	for scanner.Scan() {
		switch o := scanner.Object().(type) {
		case *osm.Node:
			imp.addNode(o)
		case *osm.Way:
			imp.addWay(o)
		case *osm.Relation:
			imp.addRelation(o)
		}

		objects++
		if opts.Progress != nil && objects%progressEvery == 0 {
			if !opts.Progress(cr.fraction(size)) {
				return nil, ErrCanceled
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("map import: %w", err)
	}
	if opts.Progress != nil && !opts.Progress(1) {
		return nil, ErrCanceled
	}
	return imp.m, nil
}

// finishImport runs the one-shot prune pass and resolves the map bounds:
// explicitly requested bounds win (even degenerate ones), then the file's
// declared header box, then a box computed from the retained vertices.
func finishImport(m *mapmodel.Map, path string, opts Options) (*mapmodel.Map, error) {
	m.Prune()

	if opts.Bounds == nil {
		if declared, ok, err := fileBounds(path, opts); err == nil && ok {
			m.Bounds = declared
		} else {
			m.Bounds = computedBounds(m)
		}
	}
	return m, nil
}

// computedBounds derives a bounding box from the retained vertices.
func computedBounds(m *mapmodel.Map) mapmodel.Bounds {
	var b mapmodel.Bounds
	first := true
	for _, verts := range []map[int]*mapmodel.Vertex{m.Vertices, m.LabelVertices} {
		for _, v := range verts {
			if first {
				b = mapmodel.Bounds{MinLon: v.Lon, MaxLon: v.Lon, MinLat: v.Lat, MaxLat: v.Lat}
				first = false
				continue
			}
			if v.Lon < b.MinLon {
				b.MinLon = v.Lon
			}
			if v.Lon > b.MaxLon {
				b.MaxLon = v.Lon
			}
			if v.Lat < b.MinLat {
				b.MinLat = v.Lat
			}
			if v.Lat > b.MaxLat {
				b.MaxLat = v.Lat
			}
		}
	}
	return b
}

// importer carries the per-pass state: the model under construction and the
// three independent identifier remap tables (first seen wins).
type importer struct {
	opts Options
	m    *mapmodel.Map

	nodeIDs map[osm.NodeID]int
	wayIDs  map[osm.WayID]int
	relIDs  map[osm.RelationID]int
}

func (imp *importer) denseNode(id osm.NodeID) int {
	if dense, ok := imp.nodeIDs[id]; ok {
		return dense
	}
	dense := len(imp.nodeIDs)
	imp.nodeIDs[id] = dense
	return dense
}

func (imp *importer) denseWay(id osm.WayID) int {
	if dense, ok := imp.wayIDs[id]; ok {
		return dense
	}
	dense := len(imp.wayIDs)
	imp.wayIDs[id] = dense
	return dense
}

func (imp *importer) denseRelation(id osm.RelationID) int {
	if dense, ok := imp.relIDs[id]; ok {
		return dense
	}
	dense := len(imp.relIDs)
	imp.relIDs[id] = dense
	return dense
}

// filterTags converts and optionally strips tags down to the keys that
// participate in a style or label decision, to bound memory.
func (imp *importer) filterTags(tags osm.Tags) mapmodel.Tags {
	if len(tags) == 0 {
		return nil
	}
	out := make(mapmodel.Tags, len(tags))
	for _, t := range tags {
		if imp.opts.SkipUnnecessaryTags && !mapmodel.KeepTag(t.Key) {
			continue
		}
		out[t.Key] = t.Value
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (imp *importer) addNode(n *osm.Node) {
	v := &mapmodel.Vertex{
		ID:   imp.denseNode(n.ID),
		Lon:  geomath.DegToRad(n.Lon),
		Lat:  geomath.DegToRad(n.Lat),
		Tags: imp.filterTags(n.Tags),
	}
	if mapmodel.IsLabelNode(v.Tags) && !imp.opts.SkipLabels {
		// Label vertices are retained by the label decision itself,
		// not by way membership.
		v.Referenced = true
		imp.m.LabelVertices[v.ID] = v
		return
	}
	imp.m.Vertices[v.ID] = v
}

func (imp *importer) addWay(w *osm.Way) {
	tags := imp.filterTags(w.Tags)
	if imp.opts.SkipBuildings && mapmodel.IsBuilding(tags) {
		return
	}

	s := &mapmodel.Segment{
		ID:   imp.denseWay(w.ID),
		Tags: tags,
	}
	s.VertexIDs = make([]int, 0, len(w.Nodes))
	for _, wn := range w.Nodes {
		s.VertexIDs = append(s.VertexIDs, imp.denseNode(wn.ID))
	}

	// Roads render as lines even when closed.
	s.IsArea = s.Closed() && !mapmodel.IsRoad(tags)

	switch {
	case mapmodel.IsForeground(tags):
		imp.m.ForegroundSegments[s.ID] = s
	case mapmodel.IsBackground(tags):
		imp.m.BackgroundSegments[s.ID] = s
	default:
		imp.m.Segments[s.ID] = s
	}
}

func (imp *importer) addRelation(rel *osm.Relation) {
	tags := imp.filterTags(rel.Tags)
	if imp.opts.SkipBuildings && mapmodel.IsBuilding(tags) {
		return
	}

	ms := &mapmodel.MultiSegment{
		ID:   imp.denseRelation(rel.ID),
		Tags: tags,
	}
	for _, member := range rel.Members {
		switch member.Type {
		case osm.TypeNode:
			ms.VertexIDs = append(ms.VertexIDs, imp.denseNode(osm.NodeID(member.Ref)))
		case osm.TypeWay:
			dense := imp.denseWay(osm.WayID(member.Ref))
			if member.Role == "inner" {
				ms.InnerIDs = append(ms.InnerIDs, dense)
			} else {
				ms.OuterIDs = append(ms.OuterIDs, dense)
			}
			// Member segments survive the prune pass even when
			// untagged.
			if s, ok := imp.m.Segment(dense); ok {
				s.Referenced = true
			}
		}
	}
	imp.m.MultiSegments[ms.ID] = ms
}

// countingReader tracks consumed bytes for progress reporting.
type countingReader struct {
	r io.Reader
	n atomic.Int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	return n, err
}

func (c *countingReader) fraction(size int64) float64 {
	if size <= 0 {
		return 0
	}
	f := float64(c.n.Load()) / float64(size)
	if f > 1 {
		f = 1
	}
	return f
}

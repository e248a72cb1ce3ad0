package mapimport

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/beetlebugorg/trackmap/internal/geomath"
	"github.com/beetlebugorg/trackmap/internal/mapmodel"
)

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture %s: %v", name, err)
	}
	return path
}

const fixtureHeader = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6" generator="trackmap-test">
 <bounds minlat="48.00" minlon="11.00" maxlat="48.10" maxlon="11.10"/>
`

// TestImportXMLSkipBuildings verifies a 3-node closed way tagged
// building=yes vanishes entirely, vertices included, when buildings are
// skipped.
func TestImportXMLSkipBuildings(t *testing.T) {
	path := writeFixture(t, t.TempDir(), "buildings.osm", fixtureHeader+`
 <node id="101" lat="48.01" lon="11.01"/>
 <node id="102" lat="48.02" lon="11.01"/>
 <node id="103" lat="48.02" lon="11.02"/>
 <way id="201">
  <nd ref="101"/>
  <nd ref="102"/>
  <nd ref="103"/>
  <nd ref="101"/>
  <tag k="building" v="yes"/>
 </way>
</osm>`)

	opts := DefaultOptions()
	opts.SkipBuildings = true
	m, err := ImportFile(path, opts)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if m.SegmentCount() != 0 {
		t.Errorf("expected zero segments, got %d", m.SegmentCount())
	}
	if m.VertexCount() != 0 {
		t.Errorf("expected zero vertices, got %d", m.VertexCount())
	}

	// Without the option the building is kept as a filled area.
	m, err = ImportFile(path, DefaultOptions())
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if m.SegmentCount() != 1 {
		t.Fatalf("expected one segment, got %d", m.SegmentCount())
	}
	if m.VertexCount() != 3 {
		t.Errorf("expected three vertices, got %d", m.VertexCount())
	}
	for _, s := range m.Segments {
		if !s.IsArea {
			t.Errorf("closed building way should be an area")
		}
	}
}

// TestImportXMLClassification verifies partition assignment, road area
// override, label vertices and pruning of unreferenced nodes.
func TestImportXMLClassification(t *testing.T) {
	path := writeFixture(t, t.TempDir(), "classify.osm", fixtureHeader+`
 <node id="1" lat="48.01" lon="11.01"/>
 <node id="2" lat="48.02" lon="11.02"/>
 <node id="3" lat="48.03" lon="11.03"/>
 <node id="4" lat="48.04" lon="11.04">
  <tag k="place" v="village"/>
  <tag k="name" v="Greendale"/>
 </node>
 <node id="5" lat="48.05" lon="11.05"/>
 <way id="10">
  <nd ref="1"/>
  <nd ref="2"/>
  <nd ref="3"/>
  <nd ref="1"/>
  <tag k="highway" v="residential"/>
 </way>
 <way id="11">
  <nd ref="1"/>
  <nd ref="2"/>
  <nd ref="3"/>
  <nd ref="1"/>
  <tag k="landuse" v="forest"/>
 </way>
 <way id="12">
  <nd ref="1"/>
  <nd ref="2"/>
  <nd ref="3"/>
  <nd ref="1"/>
  <tag k="natural" v="water"/>
 </way>
</osm>`)

	m, err := ImportFile(path, DefaultOptions())
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}

	if len(m.Segments) != 1 {
		t.Fatalf("expected 1 plain segment, got %d", len(m.Segments))
	}
	if len(m.BackgroundSegments) != 1 {
		t.Fatalf("expected 1 background segment, got %d", len(m.BackgroundSegments))
	}
	if len(m.ForegroundSegments) != 1 {
		t.Fatalf("expected 1 foreground segment, got %d", len(m.ForegroundSegments))
	}

	// The closed residential way is a road: rendered as a line even
	// though the ring is closed.
	for _, s := range m.Segments {
		if s.IsArea {
			t.Errorf("road segment must not be an area")
		}
	}
	for _, s := range m.BackgroundSegments {
		if !s.IsArea {
			t.Errorf("closed landuse way should be an area")
		}
	}

	if len(m.LabelVertices) != 1 {
		t.Fatalf("expected 1 label vertex, got %d", len(m.LabelVertices))
	}
	for _, v := range m.LabelVertices {
		if v.Tags["name"] != "Greendale" {
			t.Errorf("label vertex lost its name: %v", v.Tags)
		}
	}

	// Node 5 is referenced by nothing and must be pruned; nodes 1-3 are
	// retained by the kept ways.
	if len(m.Vertices) != 3 {
		t.Errorf("expected 3 plain vertices after pruning, got %d", len(m.Vertices))
	}
	for _, v := range m.Vertices {
		if !v.Referenced {
			t.Errorf("retained vertex not marked referenced")
		}
	}

	// Declared header bounds become the map bounds when none were given.
	wantMinLat := geomath.DegToRad(48.0)
	if m.Bounds.MinLat != wantMinLat {
		t.Errorf("map bounds not taken from file header: %f", m.Bounds.MinLat)
	}
}

// TestImportXMLRoadKeyPresence verifies that a road key with a value outside
// the width table still classifies the way as a road: a closed
// highway=construction ring renders as a line, not a filled area.
func TestImportXMLRoadKeyPresence(t *testing.T) {
	path := writeFixture(t, t.TempDir(), "construction.osm", fixtureHeader+`
 <node id="1" lat="48.01" lon="11.01"/>
 <node id="2" lat="48.02" lon="11.02"/>
 <node id="3" lat="48.03" lon="11.03"/>
 <way id="10">
  <nd ref="1"/>
  <nd ref="2"/>
  <nd ref="3"/>
  <nd ref="1"/>
  <tag k="highway" v="construction"/>
 </way>
</osm>`)

	m, err := ImportFile(path, DefaultOptions())
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if len(m.Segments) != 1 {
		t.Fatalf("expected 1 plain segment, got %d", len(m.Segments))
	}
	for _, s := range m.Segments {
		if s.IsArea {
			t.Errorf("closed way with highway key classified as area")
		}
	}
}

// TestImportXMLRelations verifies multi-segment assembly and that untagged
// member ways survive pruning.
func TestImportXMLRelations(t *testing.T) {
	path := writeFixture(t, t.TempDir(), "relation.osm", fixtureHeader+`
 <node id="1" lat="48.01" lon="11.01"/>
 <node id="2" lat="48.02" lon="11.02"/>
 <node id="3" lat="48.03" lon="11.03"/>
 <node id="4" lat="48.015" lon="11.015"/>
 <node id="5" lat="48.016" lon="11.016"/>
 <node id="6" lat="48.017" lon="11.017"/>
 <way id="10">
  <nd ref="1"/>
  <nd ref="2"/>
  <nd ref="3"/>
  <nd ref="1"/>
 </way>
 <way id="11">
  <nd ref="4"/>
  <nd ref="5"/>
  <nd ref="6"/>
  <nd ref="4"/>
 </way>
 <relation id="30">
  <member type="way" ref="10" role="outer"/>
  <member type="way" ref="11" role="inner"/>
  <tag k="natural" v="water"/>
  <tag k="name" v="Lake"/>
 </relation>
</osm>`)

	m, err := ImportFile(path, DefaultOptions())
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}

	if m.MultiSegmentCount() != 1 {
		t.Fatalf("expected 1 multi-segment, got %d", m.MultiSegmentCount())
	}
	var ms *mapmodel.MultiSegment
	for _, v := range m.MultiSegments {
		ms = v
	}
	if len(ms.OuterIDs) != 1 || len(ms.InnerIDs) != 1 {
		t.Errorf("member ids wrong: outer=%v inner=%v", ms.OuterIDs, ms.InnerIDs)
	}

	// Both member ways are untagged but relation-referenced: kept.
	if m.SegmentCount() != 2 {
		t.Errorf("expected both member ways kept, got %d", m.SegmentCount())
	}
	if m.VertexCount() != 6 {
		t.Errorf("expected all 6 member vertices kept, got %d", m.VertexCount())
	}
}

// TestImportXMLIdentifierRemap verifies wide external ids become dense
// per-category ids, first seen wins.
func TestImportXMLIdentifierRemap(t *testing.T) {
	path := writeFixture(t, t.TempDir(), "remap.osm", fixtureHeader+`
 <node id="9000000001" lat="48.01" lon="11.01"/>
 <node id="7000000002" lat="48.02" lon="11.02"/>
 <way id="8000000001">
  <nd ref="9000000001"/>
  <nd ref="7000000002"/>
  <tag k="highway" v="path"/>
 </way>
</osm>`)

	m, err := ImportFile(path, DefaultOptions())
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if _, ok := m.Vertices[0]; !ok {
		t.Errorf("first node should remap to dense id 0")
	}
	if _, ok := m.Vertices[1]; !ok {
		t.Errorf("second node should remap to dense id 1")
	}
	s, ok := m.Segments[0]
	if !ok {
		t.Fatalf("way should remap to dense id 0")
	}
	if len(s.VertexIDs) != 2 || s.VertexIDs[0] != 0 || s.VertexIDs[1] != 1 {
		t.Errorf("way vertex ids not remapped: %v", s.VertexIDs)
	}
}

// TestImportXMLSkipUnnecessaryTags verifies only style and label keys
// survive.
func TestImportXMLSkipUnnecessaryTags(t *testing.T) {
	path := writeFixture(t, t.TempDir(), "tags.osm", fixtureHeader+`
 <node id="1" lat="48.01" lon="11.01"/>
 <node id="2" lat="48.02" lon="11.02"/>
 <way id="10">
  <nd ref="1"/>
  <nd ref="2"/>
  <tag k="highway" v="path"/>
  <tag k="name" v="Hollow Way"/>
  <tag k="source" v="survey"/>
  <tag k="created_by" v="editor"/>
 </way>
</osm>`)

	opts := DefaultOptions()
	opts.SkipUnnecessaryTags = true
	m, err := ImportFile(path, opts)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	for _, s := range m.Segments {
		if len(s.Tags) != 2 {
			t.Errorf("expected 2 surviving tags, got %v", s.Tags)
		}
		if _, ok := s.Tags["source"]; ok {
			t.Errorf("non-style tag survived: %v", s.Tags)
		}
	}
}

// TestImportXMLProgressCancel verifies a false progress return aborts the
// import without exposing partial state.
func TestImportXMLProgressCancel(t *testing.T) {
	path := writeFixture(t, t.TempDir(), "cancel.osm", fixtureHeader+`
 <node id="1" lat="48.01" lon="11.01"/>
</osm>`)

	opts := DefaultOptions()
	opts.Progress = func(float64) bool { return false }
	m, err := ImportFile(path, opts)
	if !errors.Is(err, ErrCanceled) {
		t.Errorf("expected ErrCanceled, got %v", err)
	}
	if m != nil {
		t.Errorf("partial model exposed after cancellation")
	}
}

// TestImportXMLProgressReported verifies the callback sees a final fraction
// of 1.
func TestImportXMLProgressReported(t *testing.T) {
	path := writeFixture(t, t.TempDir(), "progress.osm", fixtureHeader+`
 <node id="1" lat="48.01" lon="11.01"/>
</osm>`)

	var last float64 = -1
	opts := DefaultOptions()
	opts.Progress = func(f float64) bool {
		last = f
		return true
	}
	if _, err := ImportFile(path, opts); err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if last != 1 {
		t.Errorf("expected final progress 1, got %f", last)
	}
}

// TestImportDir verifies directory imports pick the first file whose
// declared bounds contain the requested box, treating non-containment as
// "try the next file".
func TestImportDir(t *testing.T) {
	dir := t.TempDir()

	// Bounds far away from the requested box.
	writeFixture(t, dir, "a-elsewhere.osm", `<?xml version="1.0"?>
<osm version="0.6">
 <bounds minlat="50.00" minlon="20.00" maxlat="50.10" maxlon="20.10"/>
 <node id="1" lat="50.05" lon="20.05"/>
</osm>`)

	// Containing bounds; should be the one imported.
	writeFixture(t, dir, "b-match.osm", fixtureHeader+`
 <node id="1" lat="48.01" lon="11.01"/>
 <node id="2" lat="48.02" lon="11.02"/>
 <way id="10">
  <nd ref="1"/>
  <nd ref="2"/>
  <tag k="highway" v="path"/>
 </way>
</osm>`)

	opts := DefaultOptions()
	opts.Bounds = &mapmodel.Bounds{
		MinLon: geomath.DegToRad(11.02),
		MaxLon: geomath.DegToRad(11.08),
		MinLat: geomath.DegToRad(48.02),
		MaxLat: geomath.DegToRad(48.08),
	}
	m, err := ImportDir(dir, opts)
	if err != nil {
		t.Fatalf("directory import failed: %v", err)
	}
	if m.SegmentCount() != 1 {
		t.Errorf("wrong file imported: %d segments", m.SegmentCount())
	}
}

// TestImportExplicitDegenerateBounds verifies an explicitly requested
// bounding box is honored even when it is the zero-area box at the origin,
// instead of being mistaken for "no bounds given" and replaced by the file
// header.
func TestImportExplicitDegenerateBounds(t *testing.T) {
	path := writeFixture(t, t.TempDir(), "origin.osm", fixtureHeader+`
 <node id="1" lat="48.01" lon="11.01"/>
 <node id="2" lat="48.02" lon="11.02"/>
 <way id="10">
  <nd ref="1"/>
  <nd ref="2"/>
  <tag k="highway" v="path"/>
 </way>
</osm>`)

	opts := DefaultOptions()
	opts.Bounds = &mapmodel.Bounds{}
	m, err := ImportFile(path, opts)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if m.Bounds != (mapmodel.Bounds{}) {
		t.Errorf("explicit degenerate bounds replaced: %+v", m.Bounds)
	}
}

// TestImportDirNilBounds verifies that with no requested bounds the first
// accepted file in name order is imported.
func TestImportDirNilBounds(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "a.osm", fixtureHeader+`
 <node id="1" lat="48.01" lon="11.01"/>
 <node id="2" lat="48.02" lon="11.02"/>
 <way id="10">
  <nd ref="1"/>
  <nd ref="2"/>
  <tag k="highway" v="path"/>
 </way>
</osm>`)
	writeFixture(t, dir, "b.osm", fixtureHeader+`
</osm>`)

	m, err := ImportDir(dir, DefaultOptions())
	if err != nil {
		t.Fatalf("directory import failed: %v", err)
	}
	if m.SegmentCount() != 1 {
		t.Errorf("expected first file's segment, got %d segments", m.SegmentCount())
	}
}

// TestImportDirNoMatch verifies an exhausted directory yields
// ErrNoMatchingFile.
func TestImportDirNoMatch(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "far.osm", `<?xml version="1.0"?>
<osm version="0.6">
 <bounds minlat="50.00" minlon="20.00" maxlat="50.10" maxlon="20.10"/>
</osm>`)

	opts := DefaultOptions()
	opts.Bounds = &mapmodel.Bounds{
		MinLon: geomath.DegToRad(11.0),
		MaxLon: geomath.DegToRad(11.1),
		MinLat: geomath.DegToRad(48.0),
		MaxLat: geomath.DegToRad(48.1),
	}
	if _, err := ImportDir(dir, opts); !errors.Is(err, ErrNoMatchingFile) {
		t.Errorf("expected ErrNoMatchingFile, got %v", err)
	}
}

// TestImportDirSingleFile verifies a direct file path imports
// unconditionally, with no containment check.
func TestImportDirSingleFile(t *testing.T) {
	path := writeFixture(t, t.TempDir(), "direct.osm", fixtureHeader+`
 <node id="1" lat="48.01" lon="11.01"/>
 <node id="2" lat="48.02" lon="11.02"/>
 <way id="10">
  <nd ref="1"/>
  <nd ref="2"/>
  <tag k="highway" v="path"/>
 </way>
</osm>`)

	opts := DefaultOptions()
	// A box the file's bounds do not contain.
	opts.Bounds = &mapmodel.Bounds{
		MinLon: geomath.DegToRad(30.0),
		MaxLon: geomath.DegToRad(31.0),
		MinLat: geomath.DegToRad(10.0),
		MaxLat: geomath.DegToRad(11.0),
	}
	m, err := ImportDir(path, opts)
	if err != nil {
		t.Fatalf("single file import failed: %v", err)
	}
	if m.SegmentCount() != 1 {
		t.Errorf("expected 1 segment, got %d", m.SegmentCount())
	}
}

// TestImportUnsupportedFormat verifies unknown extensions fail.
func TestImportUnsupportedFormat(t *testing.T) {
	path := writeFixture(t, t.TempDir(), "map.txt", "not a map")
	var unsupported *ErrUnsupportedFormat
	if _, err := ImportFile(path, DefaultOptions()); !errors.As(err, &unsupported) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

// TestDisabledPBF verifies the disabled reader fails closed rather than
// silently degrading.
func TestDisabledPBF(t *testing.T) {
	path := writeFixture(t, t.TempDir(), "extract.pbf", "\x00\x00")
	opts := DefaultOptions()
	opts.PBF = DisabledPBF
	if _, err := ImportFile(path, opts); !errors.Is(err, ErrPBFUnavailable) {
		t.Errorf("expected ErrPBFUnavailable, got %v", err)
	}
}

// TestImportMissingFile verifies a nonexistent path is a failure result.
func TestImportMissingFile(t *testing.T) {
	if _, err := ImportFile(filepath.Join(t.TempDir(), "nope.osm"), DefaultOptions()); err == nil {
		t.Errorf("expected error for missing file")
	}
}

package track

import (
	"bytes"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/beetlebugorg/trackmap/internal/geomath"
)

// makeTrack builds a synthetic n-point track starting at start, one point
// per minute, stepping north, and runs the aggregate pass.
func makeTrack(name string, start time.Time, n int) *Track {
	t := &Track{Filename: name, Version: "1.1", Creator: "trackmap-test"}
	for i := 0; i < n; i++ {
		t.Points = append(t.Points, Point{
			Lat:       geomath.DegToRad(48.0 + 0.001*float64(i)),
			Lon:       geomath.DegToRad(11.0),
			Elevation: 500 + 5*float64(i),
			HasTime:   true,
			Time:      start.Add(time.Duration(i) * time.Minute),
		})
	}
	t.Calculate(DefaultSettings())
	return t
}

// TestTrackRoundTrip verifies write/read reproduces point sequences and
// aggregate scalars exactly.
func TestTrackRoundTrip(t *testing.T) {
	orig := makeTrack("ride.gpx", time.Date(2024, time.March, 10, 9, 0, 0, 0, time.UTC), 5)

	var buf bytes.Buffer
	if err := orig.Write(&buf); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	if len(got.Points) != len(orig.Points) {
		t.Fatalf("point count %d, want %d", len(got.Points), len(orig.Points))
	}
	for i := range orig.Points {
		a, b := orig.Points[i], got.Points[i]
		if a.Lat != b.Lat || a.Lon != b.Lon || a.Elevation != b.Elevation {
			t.Errorf("point %d coordinates corrupted", i)
		}
		if a.Elapsed != b.Elapsed || a.ElapsedTotal != b.ElapsedTotal {
			t.Errorf("point %d elapsed fields corrupted", i)
		}
		if a.DistancePlanarTotal != b.DistancePlanarTotal || a.DistanceFullTotal != b.DistanceFullTotal {
			t.Errorf("point %d cumulative distances corrupted", i)
		}
		if a.HasTime != b.HasTime || a.Time.Unix() != b.Time.Unix() {
			t.Errorf("point %d timestamp corrupted", i)
		}
	}

	if got.TotalTime != orig.TotalTime ||
		got.TotalDistancePlanar != orig.TotalDistancePlanar ||
		got.TotalDistanceFull != orig.TotalDistanceFull {
		t.Errorf("aggregate scalars corrupted")
	}
	if got.MinElevation != orig.MinElevation || got.MaxElevation != orig.MaxElevation {
		t.Errorf("elevation range corrupted")
	}
	if got.Ascent != orig.Ascent || got.Descent != orig.Descent {
		t.Errorf("ascent/descent corrupted")
	}
	if got.Filename != "ride.gpx" || got.Version != "1.1" || got.Creator != "trackmap-test" {
		t.Errorf("trailer strings corrupted: %q %q %q", got.Filename, got.Version, got.Creator)
	}
}

// TestTrackRoundTripUntimed verifies the optional-timestamp flag.
func TestTrackRoundTripUntimed(t *testing.T) {
	orig := &Track{Filename: "raw.gpx"}
	orig.Points = []Point{
		{Lat: 0.8, Lon: 0.2, Elevation: 100, Elapsed: 0},
		{Lat: 0.801, Lon: 0.2, Elevation: 110, Elapsed: 5},
	}
	orig.Calculate(DefaultSettings())

	var buf bytes.Buffer
	if err := orig.Write(&buf); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	for i, p := range got.Points {
		if p.HasTime {
			t.Errorf("point %d gained a timestamp", i)
		}
	}
	if got.Points[1].Elapsed != 5 {
		t.Errorf("assigned elapsed delta lost: %f", got.Points[1].Elapsed)
	}
}

// TestTrackRawLoadThenCalculate verifies a raw read followed by Calculate
// reproduces the persisted aggregates (the pass is the single source of
// truth).
func TestTrackRawLoadThenCalculate(t *testing.T) {
	orig := makeTrack("calc.gpx", time.Date(2024, time.June, 1, 8, 0, 0, 0, time.UTC), 4)

	var buf bytes.Buffer
	if err := orig.Write(&buf); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	got.Calculate(DefaultSettings())

	if math.Abs(got.TotalDistanceFull-orig.TotalDistanceFull) > 1e-9 {
		t.Errorf("recalculated full distance %f, want %f", got.TotalDistanceFull, orig.TotalDistanceFull)
	}
	if got.TotalTime != orig.TotalTime {
		t.Errorf("recalculated total time %f, want %f", got.TotalTime, orig.TotalTime)
	}
}

// TestTrackReadTruncated verifies short streams fail without partial state.
func TestTrackReadTruncated(t *testing.T) {
	orig := makeTrack("short.gpx", time.Date(2024, time.March, 10, 9, 0, 0, 0, time.UTC), 3)
	var buf bytes.Buffer
	if err := orig.Write(&buf); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	data := buf.Bytes()

	for _, cut := range []int{0, 2, 10, len(data) / 2, len(data) - 1} {
		got, err := Read(bytes.NewReader(data[:cut]))
		if err == nil {
			t.Errorf("read of %d-byte prefix succeeded", cut)
		}
		if got != nil {
			t.Errorf("partial track exposed for %d-byte prefix", cut)
		}
	}
}

// TestTrackReadCorruptCount verifies a count prefix far larger than the
// stream fails as a truncation error instead of sizing an allocation.
func TestTrackReadCorruptCount(t *testing.T) {
	data := []byte{0xFF, 0xFF, 0xFF, 0xFF}
	got, err := Read(bytes.NewReader(data))
	if err == nil {
		t.Fatal("read with corrupt point count succeeded")
	}
	var truncated *ErrTruncated
	if !errors.As(err, &truncated) {
		t.Errorf("expected truncation error, got %v", err)
	}
	if got != nil {
		t.Errorf("partial track exposed for corrupt count")
	}
}

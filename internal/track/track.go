// Package track parses GPS track recordings, computes their geodesic
// aggregates, and persists single tracks and whole track databases in a
// compact random-access binary format.
package track

import (
	"runtime"
	"time"

	"github.com/beetlebugorg/trackmap/internal/geomath"
)

// Point is a single track point. Coordinates are radians, elevation and
// distances meters, elapsed times seconds. The cumulative fields are
// non-decreasing prefix sums over the per-point deltas.
type Point struct {
	Lat, Lon  float64
	Elevation float64

	// HasTime marks points that carried a real timestamp. Points without
	// one keep the elapsed delta assigned at parse time.
	HasTime bool
	Time    time.Time

	Elapsed      float64
	ElapsedTotal float64

	DistancePlanar      float64
	DistancePlanarTotal float64
	DistanceFull        float64
	DistanceFullTotal   float64
}

// Track is an ordered point sequence with cached aggregates. Calculate is
// the single source of truth for every derived field.
type Track struct {
	Points   []Point
	Filename string
	Version  string
	Creator  string

	TotalTime           float64
	TotalDistancePlanar float64
	TotalDistanceFull   float64

	MinLat, MaxLat             float64
	MinLon, MaxLon             float64
	MinElevation, MaxElevation float64

	Ascent, Descent float64
}

// Settings are shared across a track database: the geodesic strategy,
// the elevation epsilon for ascent detection, the smoothing radius applied
// to elevations before ascent detection, and the worker pool size.
type Settings struct {
	Strategy        geomath.Strategy
	AscentEpsilon   float64
	SmoothingRadius int
	Workers         int
}

// DefaultSettings returns the shared defaults: haversine distances, a 3 m
// ascent epsilon, a smoothing radius of 2 points, and half the available
// hardware parallelism (minimum 1) as workers.
func DefaultSettings() Settings {
	return Settings{
		Strategy:        geomath.StrategyHaversine,
		AscentEpsilon:   3.0,
		SmoothingRadius: 2,
		Workers:         defaultWorkers(),
	}
}

func defaultWorkers() int {
	n := runtime.NumCPU() / 2
	if n < 1 {
		n = 1
	}
	return n
}

func (s Settings) workers() int {
	if s.Workers < 1 {
		return 1
	}
	return s.Workers
}

// StartTime returns the first point's timestamp, or the zero time when the
// track has no timestamped start.
func (t *Track) StartTime() time.Time {
	if len(t.Points) == 0 || !t.Points[0].HasTime {
		return time.Time{}
	}
	return t.Points[0].Time
}

// Calculate threads "previous point" state through a single left-to-right
// pass: per-point elapsed time and planar/full distance, then the cumulative
// sums and the track-level aggregates. It is idempotent and safe to re-run
// after a raw cache load that skipped derivation.
func (t *Track) Calculate(settings Settings) {
	t.TotalTime = 0
	t.TotalDistancePlanar = 0
	t.TotalDistanceFull = 0
	t.Ascent = 0
	t.Descent = 0

	if len(t.Points) == 0 {
		t.MinLat, t.MaxLat = 0, 0
		t.MinLon, t.MaxLon = 0, 0
		t.MinElevation, t.MaxElevation = 0, 0
		return
	}

	first := &t.Points[0]
	first.Elapsed = 0
	first.ElapsedTotal = 0
	first.DistancePlanar = 0
	first.DistancePlanarTotal = 0
	first.DistanceFull = 0
	first.DistanceFullTotal = 0

	t.MinLat, t.MaxLat = first.Lat, first.Lat
	t.MinLon, t.MaxLon = first.Lon, first.Lon
	t.MinElevation, t.MaxElevation = first.Elevation, first.Elevation

	for i := 1; i < len(t.Points); i++ {
		prev := &t.Points[i-1]
		p := &t.Points[i]

		// Real timestamps win; otherwise the delta assigned at parse
		// time stands.
		if p.HasTime && prev.HasTime {
			p.Elapsed = p.Time.Sub(prev.Time).Seconds()
		}
		p.ElapsedTotal = prev.ElapsedTotal + p.Elapsed

		planar, full := geomath.Distance(settings.Strategy,
			prev.Lat, p.Lat, prev.Lon, p.Lon, prev.Elevation, p.Elevation)
		p.DistancePlanar = planar
		p.DistancePlanarTotal = prev.DistancePlanarTotal + planar
		p.DistanceFull = full
		p.DistanceFullTotal = prev.DistanceFullTotal + full

		if p.Lat < t.MinLat {
			t.MinLat = p.Lat
		}
		if p.Lat > t.MaxLat {
			t.MaxLat = p.Lat
		}
		if p.Lon < t.MinLon {
			t.MinLon = p.Lon
		}
		if p.Lon > t.MaxLon {
			t.MaxLon = p.Lon
		}
		if p.Elevation < t.MinElevation {
			t.MinElevation = p.Elevation
		}
		if p.Elevation > t.MaxElevation {
			t.MaxElevation = p.Elevation
		}
	}

	last := &t.Points[len(t.Points)-1]
	t.TotalTime = last.ElapsedTotal
	t.TotalDistancePlanar = last.DistancePlanarTotal
	t.TotalDistanceFull = last.DistanceFullTotal

	t.Ascent, t.Descent = elevationGain(t.Points, settings)
}

// elevationGain accumulates total ascent and descent over a smoothed copy of
// the elevation profile. Changes smaller than the epsilon are treated as
// sensor noise.
func elevationGain(points []Point, settings Settings) (ascent, descent float64) {
	if len(points) < 2 {
		return 0, 0
	}
	smoothed := smoothElevations(points, settings.SmoothingRadius)

	ref := smoothed[0]
	for _, e := range smoothed[1:] {
		diff := e - ref
		if diff >= settings.AscentEpsilon {
			ascent += diff
			ref = e
		} else if -diff >= settings.AscentEpsilon {
			descent += -diff
			ref = e
		}
	}
	return ascent, descent
}

// smoothElevations applies a centered moving average of the given radius.
func smoothElevations(points []Point, radius int) []float64 {
	out := make([]float64, len(points))
	if radius < 1 {
		for i := range points {
			out[i] = points[i].Elevation
		}
		return out
	}
	for i := range points {
		lo := i - radius
		if lo < 0 {
			lo = 0
		}
		hi := i + radius
		if hi > len(points)-1 {
			hi = len(points) - 1
		}
		sum := 0.0
		for j := lo; j <= hi; j++ {
			sum += points[j].Elevation
		}
		out[i] = sum / float64(hi-lo+1)
	}
	return out
}

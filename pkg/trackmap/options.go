package trackmap

import (
	"github.com/beetlebugorg/trackmap/internal/geomath"
	"github.com/beetlebugorg/trackmap/internal/mapimport"
	"github.com/beetlebugorg/trackmap/internal/mapmodel"
	"github.com/beetlebugorg/trackmap/internal/track"
)

// Bounds is an axis-aligned min/max longitude-latitude rectangle in radians.
type Bounds struct {
	MinLon, MaxLon float64
	MinLat, MaxLat float64
}

// BoundsFromDegrees builds a Bounds from degrees.
func BoundsFromDegrees(minLon, maxLon, minLat, maxLat float64) Bounds {
	return Bounds{
		MinLon: geomath.DegToRad(minLon),
		MaxLon: geomath.DegToRad(maxLon),
		MinLat: geomath.DegToRad(minLat),
		MaxLat: geomath.DegToRad(maxLat),
	}
}

func (b Bounds) internal() mapmodel.Bounds {
	return mapmodel.Bounds(b)
}

// ProgressFunc receives the consumed input fraction in [0,1] during a long
// import. Returning false aborts the operation.
type ProgressFunc func(fraction float64) bool

// ImportOptions configures a map import.
type ImportOptions struct {
	// Bounds selects the file during directory imports and becomes the
	// imported map's bounding box. Nil means no area was requested.
	Bounds *Bounds

	// SkipBuildings drops ways and relations tagged as buildings or
	// swimming pools.
	SkipBuildings bool

	// SkipLabels drops place-label vertices.
	SkipLabels bool

	// SkipUnnecessaryTags retains only tags that participate in a style
	// or label decision, to bound memory on large extracts.
	SkipUnnecessaryTags bool

	// CheckBounds makes binary imports fail when the file's declared
	// bounding box does not contain Bounds.
	CheckBounds bool

	// DisablePBF turns off binary extract support; .pbf imports then
	// fail deterministically with ErrPBFUnavailable.
	DisablePBF bool

	Progress ProgressFunc
}

// DefaultImportOptions returns options with binary support enabled and no
// filtering.
func DefaultImportOptions() ImportOptions {
	return ImportOptions{}
}

func (o ImportOptions) internal() mapimport.Options {
	opts := mapimport.Options{
		SkipBuildings:       o.SkipBuildings,
		SkipLabels:          o.SkipLabels,
		SkipUnnecessaryTags: o.SkipUnnecessaryTags,
		CheckBounds:         o.CheckBounds,
		PBF:                 mapimport.NewPBFReader(),
	}
	if o.Bounds != nil {
		b := o.Bounds.internal()
		opts.Bounds = &b
	}
	if o.DisablePBF {
		opts.PBF = mapimport.DisabledPBF
	}
	if o.Progress != nil {
		opts.Progress = mapimport.ProgressFunc(o.Progress)
	}
	return opts
}

// GeodesicStrategy selects the distance algorithm shared by a database.
type GeodesicStrategy int

const (
	// GeodesicHaversine uses the haversine central angle on an
	// oblate-interpolated Earth radius. Default.
	GeodesicHaversine = GeodesicStrategy(geomath.StrategyHaversine)
	// GeodesicSpherical uses the s2 spherical angle on the mean radius.
	GeodesicSpherical = GeodesicStrategy(geomath.StrategySpherical)
	// GeodesicVincenty solves the inverse problem on the WGS-84
	// ellipsoid.
	GeodesicVincenty = GeodesicStrategy(geomath.StrategyVincenty)
)

// DatabaseOptions are the settings shared by all tracks of a database.
type DatabaseOptions struct {
	Strategy        GeodesicStrategy
	AscentEpsilon   float64 // meters; elevation noise floor for ascent detection
	SmoothingRadius int     // points; elevation moving-average radius
	Workers         int     // worker pool size; 0 means half the CPUs, minimum 1
}

// DefaultDatabaseOptions returns the shared defaults.
func DefaultDatabaseOptions() DatabaseOptions {
	s := track.DefaultSettings()
	return DatabaseOptions{
		Strategy:        GeodesicStrategy(s.Strategy),
		AscentEpsilon:   s.AscentEpsilon,
		SmoothingRadius: s.SmoothingRadius,
		Workers:         s.Workers,
	}
}

func (o DatabaseOptions) internal() track.Settings {
	workers := o.Workers
	if workers < 1 {
		workers = track.DefaultSettings().Workers
	}
	return track.Settings{
		Strategy:        geomath.Strategy(o.Strategy),
		AscentEpsilon:   o.AscentEpsilon,
		SmoothingRadius: o.SmoothingRadius,
		Workers:         workers,
	}
}

// Sentinel errors surfaced to collaborators.
var (
	// ErrCanceled reports a progress callback that returned false.
	ErrCanceled = mapimport.ErrCanceled
	// ErrPBFUnavailable reports a binary import with PBF support
	// disabled.
	ErrPBFUnavailable = mapimport.ErrPBFUnavailable
	// ErrNoMatchingFile reports a directory import with no file covering
	// the requested bounding box.
	ErrNoMatchingFile = mapimport.ErrNoMatchingFile
)

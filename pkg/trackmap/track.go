package trackmap

import (
	"time"

	"github.com/beetlebugorg/trackmap/internal/track"
)

// Track is an ordered GPS point sequence with cached aggregates.
type Track struct {
	t *track.Track
}

// ImportTrack parses a GPX recording with the default database settings.
// assumedDT (seconds) is the per-point spacing assigned to points without a
// timestamp, measured from the first point's synthesized origin.
func ImportTrack(path string, assumedDT float64) (*Track, error) {
	t, err := track.ImportGPX(path, assumedDT, track.DefaultSettings())
	if err != nil {
		return nil, err
	}
	return &Track{t: t}, nil
}

// Filename returns the base name of the imported file.
func (t *Track) Filename() string { return t.t.Filename }

// Creator returns the creator string of the source recording.
func (t *Track) Creator() string { return t.t.Creator }

// PointCount returns the number of track points.
func (t *Track) PointCount() int { return len(t.t.Points) }

// StartTime returns the first point's timestamp, or the zero time when the
// recording carried no timestamps.
func (t *Track) StartTime() time.Time { return t.t.StartTime() }

// TotalTime returns the elapsed time over the whole track.
func (t *Track) TotalTime() time.Duration {
	return time.Duration(t.t.TotalTime * float64(time.Second))
}

// TotalDistance returns the track's total distance in meters, planar
// (surface only) or full (elevation-aware).
func (t *Track) TotalDistance(planar bool) float64 {
	if planar {
		return t.t.TotalDistancePlanar
	}
	return t.t.TotalDistanceFull
}

// Ascent returns the total climb in meters.
func (t *Track) Ascent() float64 { return t.t.Ascent }

// Descent returns the total drop in meters.
func (t *Track) Descent() float64 { return t.t.Descent }

// ElevationRange returns the minimum and maximum elevation in meters.
func (t *Track) ElevationRange() (min, max float64) {
	return t.t.MinElevation, t.t.MaxElevation
}

// Database owns a collection of tracks and the settings shared by batch
// operations. Aggregate queries and load/save run on a bounded worker pool
// sized by the options.
type Database struct {
	db *track.Database
}

// NewDatabase creates an empty database.
func NewDatabase(opts DatabaseOptions) *Database {
	return &Database{db: track.NewDatabase(opts.internal())}
}

// Add appends a track to the database.
func (d *Database) Add(t *Track) {
	d.db.Add(t.t)
}

// ImportTrack parses a GPX recording with the database's settings and
// appends it.
func (d *Database) ImportTrack(path string, assumedDT float64) (*Track, error) {
	t, err := track.ImportGPX(path, assumedDT, d.db.Settings)
	if err != nil {
		return nil, err
	}
	d.db.Add(t)
	return &Track{t: t}, nil
}

// Len returns the number of tracks.
func (d *Database) Len() int { return len(d.db.Tracks) }

// Track returns the i-th track.
func (d *Database) Track(i int) *Track {
	return &Track{t: d.db.Tracks[i]}
}

// Save writes the database to a single random-access file.
func (d *Database) Save(path string) error {
	return d.db.Save(path)
}

// Load replaces the database contents from a file written by Save. Tracks
// are deserialized concurrently, then ordered by descending start time. On
// failure the database is left unmodified.
func (d *Database) Load(path string) error {
	return d.db.Load(path)
}

// Recalculate re-runs the aggregate pass on every track with the database's
// settings.
func (d *Database) Recalculate() {
	d.db.Recalculate()
}

// TotalDistance returns the summed distance of all tracks in meters.
func (d *Database) TotalDistance(planar bool) float64 {
	return d.db.TotalDistance(planar)
}

// PeriodStat aggregates the tracks whose start time falls into one civil
// month or year.
type PeriodStat struct {
	Period   time.Time
	Distance float64       // meters
	Duration time.Duration // summed track time
	Count    int           // number of tracks
}

// DistancePerPeriod buckets all tracks by the civil month (or year, when
// yearly is set) of their start time, in ascending period order.
func (d *Database) DistancePerPeriod(planar, yearly bool) []PeriodStat {
	internal := d.db.DistancePerPeriod(planar, yearly)
	stats := make([]PeriodStat, len(internal))
	for i, s := range internal {
		stats[i] = PeriodStat{
			Period:   s.Period,
			Distance: s.Distance,
			Duration: time.Duration(s.Duration * float64(time.Second)),
			Count:    s.Count,
		}
	}
	return stats
}

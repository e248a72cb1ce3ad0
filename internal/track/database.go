package track

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/beetlebugorg/trackmap/internal/timeutil"
)

// DatabaseMagic is the signature prefixing a serialized track database.
const DatabaseMagic = "TRACKDB"

// Database owns an ordered collection of tracks plus the settings shared by
// batch operations. Load and Save define the complete on-disk lifecycle;
// aggregate queries run one task per track on a bounded worker pool.
type Database struct {
	Tracks   []*Track
	Settings Settings
}

// NewDatabase creates an empty database with the given settings.
func NewDatabase(settings Settings) *Database {
	return &Database{Settings: settings}
}

// Add appends a track.
func (db *Database) Add(t *Track) {
	db.Tracks = append(db.Tracks, t)
}

// Save writes the database: magic signature, track count, a reserved index
// table of per-track byte offsets, then the concatenated track records. The
// index table is written first as zeros and each slot is patched by seeking
// back after its track has been appended.
func (db *Database) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteString(DatabaseMagic); err != nil {
		return err
	}
	if err := binary.Write(f, binary.LittleEndian, uint32(len(db.Tracks))); err != nil {
		return err
	}

	indexStart := int64(len(DatabaseMagic)) + 4
	placeholder := make([]byte, 8*len(db.Tracks))
	if _, err := f.Write(placeholder); err != nil {
		return err
	}

	for i, t := range db.Tracks {
		offset, err := f.Seek(0, io.SeekEnd)
		if err != nil {
			return err
		}
		if err := t.Write(f); err != nil {
			return err
		}
		// Patch this track's slot in the index table.
		if _, err := f.Seek(indexStart+int64(i)*8, io.SeekStart); err != nil {
			return err
		}
		if err := binary.Write(f, binary.LittleEndian, offset); err != nil {
			return err
		}
	}
	return f.Sync()
}

// Load reads a database written by Save. One task per track is submitted to
// the worker pool; each opens its own read handle and seeks via its index
// entry, so there is no contention on a shared stream position. Results are
// collected in submission order, then the set is stably sorted by
// descending start time. On any failure the database is left unmodified.
func (db *Database) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}

	magic := make([]byte, len(DatabaseMagic))
	if _, err := io.ReadFull(f, magic); err != nil {
		f.Close()
		return &ErrTruncated{Section: "magic", Err: err}
	}
	if string(magic) != DatabaseMagic {
		f.Close()
		return ErrBadMagic
	}

	var count uint32
	if err := binary.Read(f, binary.LittleEndian, &count); err != nil {
		f.Close()
		return &ErrTruncated{Section: "track count", Err: err}
	}
	// Grow the index as entries are read: a corrupt count must surface
	// as a truncation error, not an allocation sized by the prefix.
	offsets := make([]int64, 0, prealloc(count))
	for n := uint32(0); n < count; n++ {
		var offset int64
		if err := binary.Read(f, binary.LittleEndian, &offset); err != nil {
			f.Close()
			return &ErrTruncated{Section: "offset index", Err: err}
		}
		offsets = append(offsets, offset)
	}
	f.Close()

	tracks := make([]*Track, count)
	errs := make([]error, count)

	db.forEach(int(count), func(i int) {
		tracks[i], errs[i] = loadTrackAt(path, offsets[i])
	})

	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	sort.SliceStable(tracks, func(i, j int) bool {
		return tracks[i].StartTime().After(tracks[j].StartTime())
	})
	db.Tracks = tracks
	return nil
}

// loadTrackAt opens an independent handle, seeks to the track's offset and
// deserializes it.
func loadTrackAt(path string, offset int64) (*Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}
	return Read(bufio.NewReader(f))
}

// TotalDistance sums the total distance of every track, planar or full.
// Per-track reads run concurrently; the reduction happens after the join.
func (db *Database) TotalDistance(planar bool) float64 {
	sums := make([]float64, len(db.Tracks))
	db.forEach(len(db.Tracks), func(i int) {
		if planar {
			sums[i] = db.Tracks[i].TotalDistancePlanar
		} else {
			sums[i] = db.Tracks[i].TotalDistanceFull
		}
	})

	total := 0.0
	for _, s := range sums {
		total += s
	}
	return total
}

// PeriodStat aggregates the tracks whose start time rounds to one civil
// month or year.
type PeriodStat struct {
	Period   time.Time
	Distance float64
	Duration float64
	Count    int
}

// DistancePerPeriod folds every track into per-month (or per-year) buckets
// keyed by the civil rounding of its start time. Each task performs a
// guarded read-modify-insert into one shared map; the mutex is held only
// for the duration of a single bucket update. Buckets are returned in
// ascending period order.
func (db *Database) DistancePerPeriod(planar, yearly bool) []PeriodStat {
	buckets := make(map[time.Time]*PeriodStat)
	var mu sync.Mutex

	db.forEach(len(db.Tracks), func(i int) {
		t := db.Tracks[i]
		period := timeutil.Round(t.StartTime(), yearly)
		distance := t.TotalDistanceFull
		if planar {
			distance = t.TotalDistancePlanar
		}

		mu.Lock()
		bucket, ok := buckets[period]
		if !ok {
			bucket = &PeriodStat{Period: period}
			buckets[period] = bucket
		}
		bucket.Distance += distance
		bucket.Duration += t.TotalTime
		bucket.Count++
		mu.Unlock()
	})

	stats := make([]PeriodStat, 0, len(buckets))
	for _, b := range buckets {
		stats = append(stats, *b)
	}
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Period.Before(stats[j].Period)
	})
	return stats
}

// Recalculate re-runs the aggregate pass on every track. Tracks are
// independent, so the batch is embarrassingly parallel.
func (db *Database) Recalculate() {
	settings := db.Settings
	db.forEach(len(db.Tracks), func(i int) {
		db.Tracks[i].Calculate(settings)
	})
}

// forEach runs fn(0..n-1) on the database's bounded worker pool. Indices
// are submitted in order; fn writes only to its own index, so ordering is
// preserved regardless of completion order.
func (db *Database) forEach(n int, fn func(i int)) {
	workers := db.Settings.workers()
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				fn(i)
			}
		}()
	}
	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
}

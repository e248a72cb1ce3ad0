// Command trackmap imports OpenStreetMap extracts and GPX recordings into
// binary caches and renders them as SVG.
//
// Usage:
//
//	trackmap import -in region.osm.pbf -out map.cache [-bbox minLon,minLat,maxLon,maxLat]
//	trackmap render -in map.cache -out map.svg [-track ride.gpx] [-scale 100000]
//	trackmap db -in gpxdir/ -out tracks.db [-workers 4] [-strategy haversine]
//	trackmap stats -in tracks.db [-yearly]
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/beetlebugorg/trackmap/pkg/trackmap"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "trackmap: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Sugar()

	switch os.Args[1] {
	case "import":
		err = runImport(log, os.Args[2:])
	case "render":
		err = runRender(log, os.Args[2:])
	case "db":
		err = runDB(log, os.Args[2:])
	case "stats":
		err = runStats(log, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Errorw("command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: trackmap <import|render|db|stats> [flags]")
}

func runImport(log *zap.SugaredLogger, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	in := fs.String("in", "", "OSM file (.osm, .pbf) or directory of extracts")
	out := fs.String("out", "map.cache", "output map cache")
	bbox := fs.String("bbox", "", "bounding box as minLon,minLat,maxLon,maxLat in degrees")
	skipBuildings := fs.Bool("skip-buildings", false, "drop buildings and swimming pools")
	skipLabels := fs.Bool("skip-labels", false, "drop place labels")
	skipTags := fs.Bool("skip-tags", false, "keep only tags used for styling and labels")
	checkBounds := fs.Bool("check-bounds", false, "fail when the extract does not cover the bounding box")
	noPBF := fs.Bool("no-pbf", false, "disable binary extract support")
	fs.Parse(args)
	if *in == "" {
		return fmt.Errorf("import: -in is required")
	}

	opts := trackmap.DefaultImportOptions()
	opts.SkipBuildings = *skipBuildings
	opts.SkipLabels = *skipLabels
	opts.SkipUnnecessaryTags = *skipTags
	opts.CheckBounds = *checkBounds
	opts.DisablePBF = *noPBF
	if *bbox != "" {
		b, err := parseBBox(*bbox)
		if err != nil {
			return err
		}
		opts.Bounds = &b
	}

	bar := progressbar.Default(progressScale, "importing")
	opts.Progress = func(fraction float64) bool {
		bar.Set(int(fraction * progressScale))
		return true
	}

	m, err := trackmap.ImportMap(*in, opts)
	if err != nil {
		return err
	}
	bar.Finish()
	log.Infow("map imported",
		"path", *in,
		"vertices", m.VertexCount(),
		"segments", m.SegmentCount(),
		"multisegments", m.MultiSegmentCount(),
	)

	if err := m.Save(*out); err != nil {
		return err
	}
	log.Infow("map cache written", "path", *out)
	return nil
}

// progressScale converts the [0,1] progress fraction to bar steps.
const progressScale = 1000

func runRender(log *zap.SugaredLogger, args []string) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	in := fs.String("in", "map.cache", "input map cache")
	out := fs.String("out", "map.svg", "output SVG")
	trackPath := fs.String("track", "", "GPX recording to draw on top of the map")
	scale := fs.Float64("scale", 100000, "pixels per radian")
	clip := fs.String("clip", "", "clip rectangle as minLon,minLat,maxLon,maxLat in degrees")
	assumedDT := fs.Float64("assumed-dt", 1, "seconds between points without timestamps")
	fs.Parse(args)

	m, err := trackmap.LoadMap(*in)
	if err != nil {
		return err
	}
	if *trackPath != "" {
		t, err := trackmap.ImportTrack(*trackPath, *assumedDT)
		if err != nil {
			return err
		}
		m.SetOverlay(t)
		log.Infow("overlay loaded",
			"track", t.Filename(),
			"points", t.PointCount(),
			"distance_km", t.TotalDistance(false)/1000,
		)
	}

	var clipBounds *trackmap.Bounds
	if *clip != "" {
		b, err := parseBBox(*clip)
		if err != nil {
			return err
		}
		clipBounds = &b
	}

	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := m.ExportSVG(f, *scale, clipBounds); err != nil {
		return err
	}
	log.Infow("map rendered", "path", *out)
	return nil
}

func runDB(log *zap.SugaredLogger, args []string) error {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	in := fs.String("in", "", "directory of GPX recordings")
	out := fs.String("out", "tracks.db", "output track database")
	assumedDT := fs.Float64("assumed-dt", 1, "seconds between points without timestamps")
	workers := fs.Int("workers", 0, "worker pool size, 0 for half the CPUs")
	strategy := fs.String("strategy", "haversine", "distance algorithm: haversine, spherical, vincenty")
	fs.Parse(args)
	if *in == "" {
		return fmt.Errorf("db: -in is required")
	}

	opts := trackmap.DefaultDatabaseOptions()
	opts.Workers = *workers
	switch *strategy {
	case "haversine":
		opts.Strategy = trackmap.GeodesicHaversine
	case "spherical":
		opts.Strategy = trackmap.GeodesicSpherical
	case "vincenty":
		opts.Strategy = trackmap.GeodesicVincenty
	default:
		return fmt.Errorf("db: unknown strategy %q", *strategy)
	}

	paths, err := gpxPaths(*in)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("db: no .gpx files under %s", *in)
	}

	db := trackmap.NewDatabase(opts)
	bar := progressbar.Default(int64(len(paths)), "parsing")
	for _, path := range paths {
		t, err := db.ImportTrack(path, *assumedDT)
		if err != nil {
			log.Warnw("skipping recording", "path", path, "error", err)
			bar.Add(1)
			continue
		}
		log.Debugw("recording parsed",
			"track", t.Filename(),
			"points", t.PointCount(),
			"distance_km", t.TotalDistance(false)/1000,
		)
		bar.Add(1)
	}
	bar.Finish()
	if db.Len() == 0 {
		return fmt.Errorf("db: no recording could be parsed")
	}

	if err := db.Save(*out); err != nil {
		return err
	}
	log.Infow("track database written",
		"path", *out,
		"tracks", db.Len(),
		"distance_km", db.TotalDistance(false)/1000,
	)
	printPeriods(db, false, false)
	return nil
}

func runStats(log *zap.SugaredLogger, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	in := fs.String("in", "tracks.db", "input track database")
	yearly := fs.Bool("yearly", false, "bucket by year instead of month")
	planar := fs.Bool("planar", false, "report surface distance instead of elevation-aware")
	workers := fs.Int("workers", 0, "worker pool size, 0 for half the CPUs")
	fs.Parse(args)

	opts := trackmap.DefaultDatabaseOptions()
	opts.Workers = *workers
	db := trackmap.NewDatabase(opts)
	if err := db.Load(*in); err != nil {
		return err
	}
	log.Infow("track database loaded", "path", *in, "tracks", db.Len())

	fmt.Printf("tracks: %d\n", db.Len())
	fmt.Printf("total:  %.1f km\n", db.TotalDistance(*planar)/1000)
	printPeriods(db, *planar, *yearly)
	return nil
}

func printPeriods(db *trackmap.Database, planar, yearly bool) {
	layout := "2006-01"
	if yearly {
		layout = "2006"
	}
	for _, s := range db.DistancePerPeriod(planar, yearly) {
		fmt.Printf("%s  %8.1f km  %10s  %3d tracks\n",
			s.Period.Format(layout), s.Distance/1000, s.Duration, s.Count)
	}
}

func parseBBox(s string) (trackmap.Bounds, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return trackmap.Bounds{}, fmt.Errorf("bbox %q: want minLon,minLat,maxLon,maxLat", s)
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return trackmap.Bounds{}, fmt.Errorf("bbox %q: %w", s, err)
		}
		vals[i] = v
	}
	return trackmap.BoundsFromDegrees(vals[0], vals[2], vals[1], vals[3]), nil
}

func gpxPaths(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".gpx") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// Package trackmap is the public API for building spatial models from OSM
// vector extracts and GPS track recordings, computing geodesic aggregates,
// persisting compact binary caches, and rendering filtered subsets to SVG.
//
// The package wraps the internal importer, model and track packages behind
// opaque handles:
//
//	m, err := trackmap.ImportMap("extracts/", opts)     // file or directory
//	t, err := trackmap.ImportTrack("ride.gpx", 1)       // GPX recording
//	m.SetOverlay(t)
//	err = m.ExportSVG(w, 400000, nil)                   // render with overlay
//
// Track collections live in a Database, which persists to a single
// random-access file and answers aggregate queries concurrently:
//
//	db := trackmap.NewDatabase(trackmap.DefaultDatabaseOptions())
//	db.Add(t)
//	err = db.Save("tracks.db")
//	totals := db.DistancePerPeriod(false, false)        // per civil month
//
// All coordinates crossing this API are radians unless a FromDegrees helper
// says otherwise. All operations return errors rather than panicking, and
// failed loads never expose partially-read state.
package trackmap

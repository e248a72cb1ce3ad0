package main

import (
	"fmt"
	"log"

	"github.com/beetlebugorg/trackmap/pkg/trackmap"
)

func main() {
	// A database shares one set of calculation settings across tracks
	opts := trackmap.DefaultDatabaseOptions()
	opts.Strategy = trackmap.GeodesicVincenty
	db := trackmap.NewDatabase(opts)

	for _, path := range []string{"ride1.gpx", "ride2.gpx", "ride3.gpx"} {
		if _, err := db.ImportTrack(path, 1); err != nil {
			log.Fatal(err)
		}
	}

	// Persist all tracks to one random-access file
	if err := db.Save("tracks.db"); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Tracks: %d\n", db.Len())
	fmt.Printf("Total: %.1f km\n", db.TotalDistance(false)/1000)

	// Monthly distance summary, oldest first
	for _, s := range db.DistancePerPeriod(false, false) {
		fmt.Printf("%s  %.1f km over %d tracks\n",
			s.Period.Format("2006-01"), s.Distance/1000, s.Count)
	}
}

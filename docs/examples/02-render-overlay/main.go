package main

import (
	"log"
	"os"

	"github.com/beetlebugorg/trackmap/pkg/trackmap"
)

func main() {
	// Reload a previously imported map from its binary cache
	m, err := trackmap.LoadMap("region.cache")
	if err != nil {
		log.Fatal(err)
	}

	// Parse a GPX recording and draw it on top of the map
	track, err := trackmap.ImportTrack("ride.gpx", 1)
	if err != nil {
		log.Fatal(err)
	}
	m.SetOverlay(track)

	f, err := os.Create("ride.svg")
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	// 100000 pixels per radian; nil clip renders the whole map
	if err := m.ExportSVG(f, 100000, nil); err != nil {
		log.Fatal(err)
	}
}

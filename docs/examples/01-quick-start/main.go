package main

import (
	"fmt"
	"log"

	"github.com/beetlebugorg/trackmap/pkg/trackmap"
)

func main() {
	// Import an OpenStreetMap extract
	m, err := trackmap.ImportMap("region.osm.pbf", trackmap.DefaultImportOptions())
	if err != nil {
		log.Fatal(err)
	}

	// Print map info
	fmt.Printf("Vertices: %d\n", m.VertexCount())
	fmt.Printf("Segments: %d\n", m.SegmentCount())
	fmt.Printf("Relations: %d\n", m.MultiSegmentCount())

	// Get map bounds (radians)
	bounds := m.Bounds()
	fmt.Printf("Bounds: [%.4f,%.4f] to [%.4f,%.4f]\n",
		bounds.MinLon, bounds.MinLat,
		bounds.MaxLon, bounds.MaxLat)

	// Save the binary cache for fast reloads
	if err := m.Save("region.cache"); err != nil {
		log.Fatal(err)
	}
}

package mapimport

import (
	"encoding/xml"
	"io"
	"os"
	"strconv"

	"github.com/beetlebugorg/trackmap/internal/geomath"
	"github.com/beetlebugorg/trackmap/internal/mapmodel"
)

// xmlBounds reads only the <bounds> header element of an XML extract,
// stopping as soon as the first map object begins. ok is false when the
// file declares no bounds.
func xmlBounds(path string) (mapmodel.Bounds, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return mapmodel.Bounds{}, false, err
	}
	defer f.Close()

	decoder := xml.NewDecoder(f)
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			return mapmodel.Bounds{}, false, nil
		}
		if err != nil {
			return mapmodel.Bounds{}, false, err
		}

		start, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "bounds":
			b, err := boundsFromAttrs(start.Attr)
			if err != nil {
				return mapmodel.Bounds{}, false, err
			}
			return b, true, nil
		case "node", "way", "relation":
			// Past the header; no bounds declared.
			return mapmodel.Bounds{}, false, nil
		}
	}
}

func boundsFromAttrs(attrs []xml.Attr) (mapmodel.Bounds, error) {
	var b mapmodel.Bounds
	for _, attr := range attrs {
		switch attr.Name.Local {
		case "minlon", "maxlon", "minlat", "maxlat":
		default:
			continue
		}
		value, err := strconv.ParseFloat(attr.Value, 64)
		if err != nil {
			return mapmodel.Bounds{}, err
		}
		switch attr.Name.Local {
		case "minlon":
			b.MinLon = geomath.DegToRad(value)
		case "maxlon":
			b.MaxLon = geomath.DegToRad(value)
		case "minlat":
			b.MinLat = geomath.DegToRad(value)
		case "maxlat":
			b.MaxLat = geomath.DegToRad(value)
		}
	}
	return b, nil
}

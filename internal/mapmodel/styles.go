package mapmodel

// Static style lookup tables. Built once as package-level literals and never
// mutated after initialization; callers treat them as read-only.

// Render fallbacks for ways that match no table entry.
const (
	BuildingColour    = "#d9d0c9"
	DefaultLineColour = "#888888"
	DefaultRoadWidth  = 2.0
)

// roadWidthKeys is the fixed lookup order for road-width styling. Presence
// of any of these keys classifies a way as a road; the first key whose value
// is in the table decides the width.
var roadWidthKeys = []string{"highway", "railway", "cycleway"}

// roadWidths maps tag key -> value -> rendered line width in pixels at
// scale 1.
var roadWidths = map[string]map[string]float64{
	"highway": {
		"motorway":       6.0,
		"motorway_link":  4.5,
		"trunk":          5.5,
		"trunk_link":     4.0,
		"primary":        5.0,
		"primary_link":   3.5,
		"secondary":      4.5,
		"tertiary":       4.0,
		"residential":    3.0,
		"unclassified":   3.0,
		"living_street":  2.5,
		"service":        2.0,
		"pedestrian":     2.0,
		"track":          1.5,
		"cycleway":       1.2,
		"path":           1.0,
		"footway":        1.0,
		"bridleway":      1.0,
		"steps":          1.0,
	},
	"railway": {
		"rail":       2.0,
		"light_rail": 1.5,
		"subway":     1.5,
		"tram":       1.5,
		"narrow_gauge": 1.5,
	},
	"cycleway": {
		"lane":  1.0,
		"track": 1.2,
	},
}

// lineColourKeys is the fixed lookup order for colour classification.
var lineColourKeys = []string{"natural", "landuse", "leisure", "amenity", "surface"}

// lineColours maps tag key -> value -> fill/stroke colour. The same table
// styles filled areas and road lines.
var lineColours = map[string]map[string]string{
	"natural": {
		"water":     "#9fc4e1",
		"bay":       "#9fc4e1",
		"wetland":   "#b3d0c2",
		"wood":      "#9dca8a",
		"scrub":     "#c8d7ab",
		"heath":     "#d6d99f",
		"grassland": "#cfe5b4",
		"sand":      "#f5e9c6",
		"beach":     "#f5e9c6",
		"bare_rock": "#cdc9c3",
		"scree":     "#dcd6d1",
	},
	"landuse": {
		"forest":           "#9dca8a",
		"meadow":           "#cfe5b4",
		"grass":            "#b5d29c",
		"farmland":         "#eef0d5",
		"farmyard":         "#f0d9b7",
		"orchard":          "#aedfa3",
		"vineyard":         "#aedfa3",
		"residential":      "#e0dfdf",
		"industrial":       "#ebdbe8",
		"commercial":       "#f2dad9",
		"retail":           "#ffd6d1",
		"cemetery":         "#aacbaf",
		"allotments":       "#c9e1bf",
		"recreation_ground": "#cfe5b4",
		"basin":            "#9fc4e1",
		"reservoir":        "#9fc4e1",
	},
	"leisure": {
		"park":          "#c8facc",
		"garden":        "#c8facc",
		"pitch":         "#88e0be",
		"sports_centre": "#dffce2",
		"playground":    "#dffce2",
		"golf_course":   "#b5e3b5",
		"swimming_pool": "#9fc4e1",
		"nature_reserve": "#c8facc",
	},
	"amenity": {
		"parking":      "#eeeeee",
		"school":       "#ffffe5",
		"university":   "#ffffe5",
		"kindergarten": "#ffffe5",
		"hospital":     "#ffffe5",
		"grave_yard":   "#aacbaf",
	},
	"surface": {
		"asphalt":     "#555555",
		"paved":       "#666666",
		"concrete":    "#9c9c9c",
		"paving_stones": "#9c9c9c",
		"sett":        "#9c9c9c",
		"cobblestone": "#9c9c9c",
		"gravel":      "#bbaa88",
		"fine_gravel": "#bbaa88",
		"compacted":   "#bbaa88",
		"dirt":        "#ab7d5e",
		"ground":      "#ab7d5e",
		"grass":       "#7aa755",
		"sand":        "#e3cd9e",
	},
}

// styleTagKeys is the set of tag keys that participate in a style or label
// decision. With SkipUnnecessaryTags only these keys survive import.
var styleTagKeys = map[string]bool{
	"highway":  true,
	"railway":  true,
	"cycleway": true,
	"natural":  true,
	"landuse":  true,
	"leisure":  true,
	"amenity":  true,
	"surface":  true,
	"building": true,
	"place":    true,
	"name":     true,
}

// KeepTag reports whether key participates in a style or label decision.
func KeepTag(key string) bool {
	return styleTagKeys[key]
}

// RoadWidth returns the rendered line width for the tag set, consulting the
// road-width table keys in fixed order. Road-keyed ways whose value is not
// in the table fall back to DefaultRoadWidth.
func RoadWidth(tags Tags) (float64, bool) {
	road := false
	for _, key := range roadWidthKeys {
		if value, ok := tags[key]; ok {
			road = true
			if width, ok := roadWidths[key][value]; ok {
				return width, true
			}
		}
	}
	if road {
		return DefaultRoadWidth, true
	}
	return 0, false
}

// IsRoad reports whether any road-width table key is present, whatever its
// value. Roads are rendered as lines even when closed, so this overrides
// area detection.
func IsRoad(tags Tags) bool {
	for _, key := range roadWidthKeys {
		if _, ok := tags[key]; ok {
			return true
		}
	}
	return false
}

// LineColour returns the fill or stroke colour for the tag set, consulting
// the colour table keys in fixed order. Buildings fall back to the fixed
// building colour.
func LineColour(tags Tags) (string, bool) {
	for _, key := range lineColourKeys {
		if value, ok := tags[key]; ok {
			if colour, ok := lineColours[key][value]; ok {
				return colour, true
			}
		}
	}
	if _, ok := tags["building"]; ok {
		return BuildingColour, true
	}
	return "", false
}

// IsForeground reports whether the tag set places a way in the foreground
// partition (water bodies drawn above the background fills).
func IsForeground(tags Tags) bool {
	return tags["natural"] == "water"
}

// IsBackground reports whether the tag set places a way in the background
// partition.
func IsBackground(tags Tags) bool {
	if _, ok := tags["landuse"]; ok {
		return true
	}
	_, ok := tags["natural"]
	return ok
}

// IsBuilding reports whether the tag set is dropped entirely when buildings
// are skipped.
func IsBuilding(tags Tags) bool {
	if _, ok := tags["building"]; ok {
		return true
	}
	return tags["leisure"] == "swimming_pool"
}

// IsLabelNode reports whether a node carries both a place classification and
// a name, making it a label vertex.
func IsLabelNode(tags Tags) bool {
	if _, ok := tags["place"]; !ok {
		return false
	}
	_, ok := tags["name"]
	return ok
}

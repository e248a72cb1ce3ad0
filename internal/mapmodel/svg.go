package mapmodel

import (
	"fmt"
	"io"
	"strings"
)

// Overlay track styling: a wide dark casing under a narrow bright fill, with
// distinct start and end markers.
const (
	trackCasingColour = "#30343a"
	trackCasingWidth  = 5.0
	trackFillColour   = "#ff4f00"
	trackFillWidth    = 2.2
	trackMarkerRadius = 4.0
	startMarkerColour = "#2e9e44"
	endMarkerColour   = "#c93838"

	labelColour   = "#222222"
	labelFontSize = 11.0
	frameColour   = "#333333"
)

// ExportSVG writes the map as an SVG document. scale is pixels per radian;
// clip optionally restricts output to a sub-rectangle of the map bounds.
// Layers are emitted in fixed z-order: background areas, multi-segment
// relations (outer then inner rings), plain filled areas, foreground areas,
// road and path lines, the overlay track, and finally place labels. The
// output is well-formed even for an empty model.
func (m *Map) ExportSVG(w io.Writer, scale float64, clip *Bounds) error {
	bounds := m.Bounds
	if clip != nil {
		bounds = *clip
	}

	r := &svgRenderer{w: w, bounds: bounds, scale: scale, m: m}
	r.header()

	r.areaLayer(m.BackgroundSegments)
	r.multiSegmentLayer()
	r.plainAreaLayer()
	r.areaLayer(m.ForegroundSegments)
	r.lineLayer()
	r.trackLayer()
	if !m.SkipLabels {
		r.labelLayer()
	}

	r.printf("</svg>\n")
	return r.err
}

type svgRenderer struct {
	w      io.Writer
	m      *Map
	bounds Bounds
	scale  float64
	err    error
}

func (r *svgRenderer) printf(format string, args ...interface{}) {
	if r.err != nil {
		return
	}
	_, r.err = fmt.Fprintf(r.w, format, args...)
}

func (r *svgRenderer) width() float64 {
	return (r.bounds.MaxLon - r.bounds.MinLon) * r.scale
}

func (r *svgRenderer) height() float64 {
	return (r.bounds.MaxLat - r.bounds.MinLat) * r.scale
}

func (r *svgRenderer) x(lon float64) float64 {
	return (lon - r.bounds.MinLon) * r.scale
}

func (r *svgRenderer) y(lat float64) float64 {
	return (r.bounds.MaxLat - lat) * r.scale
}

func (r *svgRenderer) header() {
	r.printf(`<?xml version="1.0" encoding="UTF-8"?>`+"\n"+
		`<svg xmlns="http://www.w3.org/2000/svg" width="%.1f" height="%.1f" viewBox="0 0 %.1f %.1f">`+"\n",
		r.width(), r.height(), r.width(), r.height())
	// Frame and paper background.
	r.printf(`<rect x="0" y="0" width="%.1f" height="%.1f" fill="#ffffff" stroke="%s" stroke-width="1"/>`+"\n",
		r.width(), r.height(), frameColour)
}

// visible reports whether any vertex of the id list falls inside the render
// bounds. Elements fully outside a clip rectangle are skipped.
func (r *svgRenderer) visible(vertexIDs []int) bool {
	for _, id := range vertexIDs {
		if v, ok := r.m.Vertex(id); ok && r.bounds.ContainsPoint(v.Lon, v.Lat) {
			return true
		}
	}
	return false
}

// points renders a vertex id list as an SVG points attribute, skipping
// dangling references. Returns false when fewer than two points resolve.
func (r *svgRenderer) points(vertexIDs []int) (string, bool) {
	var sb strings.Builder
	n := 0
	for _, id := range vertexIDs {
		v, ok := r.m.Vertex(id)
		if !ok {
			continue
		}
		if n > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%.2f,%.2f", r.x(v.Lon), r.y(v.Lat))
		n++
	}
	return sb.String(), n >= 2
}

// ringPath renders a vertex id list as a closed path subcommand.
func (r *svgRenderer) ringPath(sb *strings.Builder, vertexIDs []int) bool {
	n := 0
	for _, id := range vertexIDs {
		v, ok := r.m.Vertex(id)
		if !ok {
			continue
		}
		if n == 0 {
			fmt.Fprintf(sb, "M%.2f %.2f", r.x(v.Lon), r.y(v.Lat))
		} else {
			fmt.Fprintf(sb, " L%.2f %.2f", r.x(v.Lon), r.y(v.Lat))
		}
		n++
	}
	if n < 3 {
		return false
	}
	sb.WriteString(" Z")
	return true
}

func (r *svgRenderer) fillColour(tags Tags) string {
	if colour, ok := LineColour(tags); ok {
		return colour
	}
	return DefaultLineColour
}

// areaLayer draws one segment partition: closed ways as filled polygons,
// open ways as stroked polylines.
func (r *svgRenderer) areaLayer(segments map[int]*Segment) {
	for _, id := range sortedKeys(segments) {
		s := segments[id]
		if !r.visible(s.VertexIDs) {
			continue
		}
		pts, ok := r.points(s.VertexIDs)
		if !ok {
			continue
		}
		if s.IsArea {
			r.printf(`<polygon points="%s" fill="%s" stroke="none"/>`+"\n", pts, r.fillColour(s.Tags))
		} else {
			r.printf(`<polyline points="%s" fill="none" stroke="%s" stroke-width="1"/>`+"\n",
				pts, r.fillColour(s.Tags))
		}
	}
}

// multiSegmentLayer draws compound areas as even-odd paths so inner rings
// become holes, outer rings first.
func (r *svgRenderer) multiSegmentLayer() {
	for _, id := range sortedKeys(r.m.MultiSegments) {
		ms := r.m.MultiSegments[id]

		var sb strings.Builder
		rings := 0
		inBounds := false
		for _, lists := range [][]int{ms.OuterIDs, ms.InnerIDs} {
			for _, sid := range lists {
				s, ok := r.m.Segment(sid)
				if !ok {
					continue
				}
				if r.visible(s.VertexIDs) {
					inBounds = true
				}
				if rings > 0 {
					sb.WriteByte(' ')
				}
				if r.ringPath(&sb, s.VertexIDs) {
					rings++
				}
			}
		}
		if rings == 0 || !inBounds {
			continue
		}
		r.printf(`<path d="%s" fill="%s" fill-rule="evenodd" stroke="none"/>`+"\n",
			sb.String(), r.fillColour(ms.Tags))
	}
}

// plainAreaLayer draws closed non-road ways of the plain partition as filled
// polygons (buildings and other tagged areas).
func (r *svgRenderer) plainAreaLayer() {
	for _, id := range sortedKeys(r.m.Segments) {
		s := r.m.Segments[id]
		if !s.IsArea || !r.visible(s.VertexIDs) {
			continue
		}
		pts, ok := r.points(s.VertexIDs)
		if !ok {
			continue
		}
		r.printf(`<polygon points="%s" fill="%s" stroke="none"/>`+"\n", pts, r.fillColour(s.Tags))
	}
}

// lineLayer draws open ways of the plain partition (roads, paths, rails) as
// stroked polylines styled by the width and colour tables.
func (r *svgRenderer) lineLayer() {
	for _, id := range sortedKeys(r.m.Segments) {
		s := r.m.Segments[id]
		if s.IsArea || !r.visible(s.VertexIDs) {
			continue
		}
		pts, ok := r.points(s.VertexIDs)
		if !ok {
			continue
		}
		width := DefaultRoadWidth
		if w, ok := RoadWidth(s.Tags); ok {
			width = w
		}
		colour := DefaultLineColour
		if c, ok := LineColour(s.Tags); ok {
			colour = c
		}
		r.printf(`<polyline points="%s" fill="none" stroke="%s" stroke-width="%.1f" stroke-linecap="round" stroke-linejoin="round"/>`+"\n",
			pts, colour, width)
	}
}

// trackLayer draws the overlay track as a double-stroked polyline with start
// and end markers.
func (r *svgRenderer) trackLayer() {
	if len(r.m.Track) == 0 {
		return
	}
	var sb strings.Builder
	for i, p := range r.m.Track {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%.2f,%.2f", r.x(p.Lon), r.y(p.Lat))
	}
	pts := sb.String()

	if len(r.m.Track) >= 2 {
		r.printf(`<polyline points="%s" fill="none" stroke="%s" stroke-width="%.1f" stroke-linecap="round" stroke-linejoin="round"/>`+"\n",
			pts, trackCasingColour, trackCasingWidth)
		r.printf(`<polyline points="%s" fill="none" stroke="%s" stroke-width="%.1f" stroke-linecap="round" stroke-linejoin="round"/>`+"\n",
			pts, trackFillColour, trackFillWidth)
	}

	first := r.m.Track[0]
	last := r.m.Track[len(r.m.Track)-1]
	r.printf(`<circle cx="%.2f" cy="%.2f" r="%.1f" fill="%s" stroke="#ffffff" stroke-width="1"/>`+"\n",
		r.x(first.Lon), r.y(first.Lat), trackMarkerRadius, startMarkerColour)
	r.printf(`<circle cx="%.2f" cy="%.2f" r="%.1f" fill="%s" stroke="#ffffff" stroke-width="1"/>`+"\n",
		r.x(last.Lon), r.y(last.Lat), trackMarkerRadius, endMarkerColour)
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

// labelLayer draws place names at label-vertex coordinates.
func (r *svgRenderer) labelLayer() {
	for _, id := range sortedKeys(r.m.LabelVertices) {
		v := r.m.LabelVertices[id]
		name := v.Tags["name"]
		if name == "" || !r.bounds.ContainsPoint(v.Lon, v.Lat) {
			continue
		}
		r.printf(`<text x="%.2f" y="%.2f" font-size="%.1f" fill="%s" text-anchor="middle">%s</text>`+"\n",
			r.x(v.Lon), r.y(v.Lat), labelFontSize, labelColour, xmlEscaper.Replace(name))
	}
}

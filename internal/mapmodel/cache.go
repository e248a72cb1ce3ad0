package mapmodel

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"sort"
)

// MapMagic is the signature prefixing a serialized map cache.
const MapMagic = "TRACKMAP"

// Option flag bits in the cache header.
const (
	flagSkipBuildings = 1 << 0
	flagSkipLabels    = 1 << 1
)

// SaveCache writes the map in the versioned binary cache format: magic
// signature, bounding box, option flags, then the six partitions in fixed
// order (plain vertices, label vertices, plain segments, background
// segments, foreground segments, multi-segments), each as a count followed
// by per-entry records. Entries are written in ascending id order so equal
// models produce identical bytes.
func (m *Map) SaveCache(w io.Writer) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.WriteString(MapMagic); err != nil {
		return err
	}
	for _, v := range []float64{m.Bounds.MinLon, m.Bounds.MaxLon, m.Bounds.MinLat, m.Bounds.MaxLat} {
		if err := binary.Write(bw, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	var flags byte
	if m.SkipBuildings {
		flags |= flagSkipBuildings
	}
	if m.SkipLabels {
		flags |= flagSkipLabels
	}
	if err := bw.WriteByte(flags); err != nil {
		return err
	}

	if err := writeVertices(bw, m.Vertices); err != nil {
		return err
	}
	if err := writeVertices(bw, m.LabelVertices); err != nil {
		return err
	}
	if err := writeSegments(bw, m.Segments); err != nil {
		return err
	}
	if err := writeSegments(bw, m.BackgroundSegments); err != nil {
		return err
	}
	if err := writeSegments(bw, m.ForegroundSegments); err != nil {
		return err
	}
	if err := writeMultiSegments(bw, m.MultiSegments); err != nil {
		return err
	}
	return bw.Flush()
}

// LoadCache reads a map cache written by SaveCache. An invalid magic
// signature fails with ErrBadMagic; no partial state is returned on any
// failure. Every deserialized vertex and segment is marked referenced, since
// a cache is assumed already pruned.
func LoadCache(r io.Reader) (*Map, error) {
	br := bufio.NewReader(r)

	magic := make([]byte, len(MapMagic))
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, &ErrTruncated{Section: "magic", Err: err}
	}
	if string(magic) != MapMagic {
		return nil, ErrBadMagic
	}

	var bounds Bounds
	for _, p := range []*float64{&bounds.MinLon, &bounds.MaxLon, &bounds.MinLat, &bounds.MaxLat} {
		if err := binary.Read(br, binary.LittleEndian, p); err != nil {
			return nil, &ErrTruncated{Section: "bounds", Err: err}
		}
	}
	flags, err := br.ReadByte()
	if err != nil {
		return nil, &ErrTruncated{Section: "flags", Err: err}
	}

	m := New(bounds, flags&flagSkipBuildings != 0, flags&flagSkipLabels != 0)

	if m.Vertices, err = readVertices(br, "vertices"); err != nil {
		return nil, err
	}
	if m.LabelVertices, err = readVertices(br, "label vertices"); err != nil {
		return nil, err
	}
	if m.Segments, err = readSegments(br, "segments"); err != nil {
		return nil, err
	}
	if m.BackgroundSegments, err = readSegments(br, "background segments"); err != nil {
		return nil, err
	}
	if m.ForegroundSegments, err = readSegments(br, "foreground segments"); err != nil {
		return nil, err
	}
	if m.MultiSegments, err = readMultiSegments(br, "multi-segments"); err != nil {
		return nil, err
	}
	return m, nil
}

func writeVertices(w io.Writer, vertices map[int]*Vertex) error {
	ids := sortedKeys(vertices)
	if err := binary.Write(w, binary.LittleEndian, uint32(len(ids))); err != nil {
		return err
	}
	for _, id := range ids {
		v := vertices[id]
		if err := binary.Write(w, binary.LittleEndian, uint32(v.ID)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, v.Lon); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, v.Lat); err != nil {
			return err
		}
		if err := writeTags(w, v.Tags); err != nil {
			return err
		}
	}
	return nil
}

func readVertices(r io.Reader, section string) (map[int]*Vertex, error) {
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, &ErrTruncated{Section: section, Err: err}
	}
	vertices := make(map[int]*Vertex, prealloc(count))
	for i := uint32(0); i < count; i++ {
		var id uint32
		v := &Vertex{Referenced: true}
		if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
			return nil, &ErrTruncated{Section: section, Err: err}
		}
		if err := binary.Read(r, binary.LittleEndian, &v.Lon); err != nil {
			return nil, &ErrTruncated{Section: section, Err: err}
		}
		if err := binary.Read(r, binary.LittleEndian, &v.Lat); err != nil {
			return nil, &ErrTruncated{Section: section, Err: err}
		}
		tags, err := readTags(r, section)
		if err != nil {
			return nil, err
		}
		v.ID = int(id)
		v.Tags = tags
		vertices[v.ID] = v
	}
	return vertices, nil
}

func writeSegments(w io.Writer, segments map[int]*Segment) error {
	ids := sortedKeys(segments)
	if err := binary.Write(w, binary.LittleEndian, uint32(len(ids))); err != nil {
		return err
	}
	for _, id := range ids {
		s := segments[id]
		if err := binary.Write(w, binary.LittleEndian, uint32(s.ID)); err != nil {
			return err
		}
		var area byte
		if s.IsArea {
			area = 1
		}
		if err := binary.Write(w, binary.LittleEndian, area); err != nil {
			return err
		}
		if err := writeIDList(w, s.VertexIDs); err != nil {
			return err
		}
		if err := writeTags(w, s.Tags); err != nil {
			return err
		}
	}
	return nil
}

func readSegments(r io.Reader, section string) (map[int]*Segment, error) {
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, &ErrTruncated{Section: section, Err: err}
	}
	segments := make(map[int]*Segment, prealloc(count))
	for i := uint32(0); i < count; i++ {
		var id uint32
		var area byte
		if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
			return nil, &ErrTruncated{Section: section, Err: err}
		}
		if err := binary.Read(r, binary.LittleEndian, &area); err != nil {
			return nil, &ErrTruncated{Section: section, Err: err}
		}
		vertexIDs, err := readIDList(r, section)
		if err != nil {
			return nil, err
		}
		tags, err := readTags(r, section)
		if err != nil {
			return nil, err
		}
		s := &Segment{
			ID:         int(id),
			IsArea:     area != 0,
			VertexIDs:  vertexIDs,
			Tags:       tags,
			Referenced: true,
		}
		segments[s.ID] = s
	}
	return segments, nil
}

func writeMultiSegments(w io.Writer, multis map[int]*MultiSegment) error {
	ids := sortedKeys(multis)
	if err := binary.Write(w, binary.LittleEndian, uint32(len(ids))); err != nil {
		return err
	}
	for _, id := range ids {
		ms := multis[id]
		if err := binary.Write(w, binary.LittleEndian, uint32(ms.ID)); err != nil {
			return err
		}
		for _, list := range [][]int{ms.VertexIDs, ms.InnerIDs, ms.OuterIDs} {
			if err := writeIDList(w, list); err != nil {
				return err
			}
		}
		if err := writeTags(w, ms.Tags); err != nil {
			return err
		}
	}
	return nil
}

func readMultiSegments(r io.Reader, section string) (map[int]*MultiSegment, error) {
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, &ErrTruncated{Section: section, Err: err}
	}
	multis := make(map[int]*MultiSegment, prealloc(count))
	for i := uint32(0); i < count; i++ {
		var id uint32
		if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
			return nil, &ErrTruncated{Section: section, Err: err}
		}
		ms := &MultiSegment{ID: int(id), Referenced: true}
		var err error
		if ms.VertexIDs, err = readIDList(r, section); err != nil {
			return nil, err
		}
		if ms.InnerIDs, err = readIDList(r, section); err != nil {
			return nil, err
		}
		if ms.OuterIDs, err = readIDList(r, section); err != nil {
			return nil, err
		}
		if ms.Tags, err = readTags(r, section); err != nil {
			return nil, err
		}
		multis[ms.ID] = ms
	}
	return multis, nil
}

func writeIDList(w io.Writer, ids []int) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(ids))); err != nil {
		return err
	}
	for _, id := range ids {
		if err := binary.Write(w, binary.LittleEndian, uint32(id)); err != nil {
			return err
		}
	}
	return nil
}

func readIDList(r io.Reader, section string) ([]int, error) {
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, &ErrTruncated{Section: section, Err: err}
	}
	// Grow as data arrives so a corrupt count surfaces as a truncation
	// error instead of a huge allocation.
	ids := make([]int, 0, prealloc(count))
	for n := uint32(0); n < count; n++ {
		var id uint32
		if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
			return nil, &ErrTruncated{Section: section, Err: err}
		}
		ids = append(ids, int(id))
	}
	return ids, nil
}

// writeTags writes a tag dictionary as a count of length-prefixed key/value
// pairs, ordered by key.
func writeTags(w io.Writer, tags Tags) error {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if err := binary.Write(w, binary.LittleEndian, uint32(len(keys))); err != nil {
		return err
	}
	for _, k := range keys {
		if err := writeString(w, k); err != nil {
			return err
		}
		if err := writeString(w, tags[k]); err != nil {
			return err
		}
	}
	return nil
}

func readTags(r io.Reader, section string) (Tags, error) {
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, &ErrTruncated{Section: section, Err: err}
	}
	if count == 0 {
		return nil, nil
	}
	tags := make(Tags, prealloc(count))
	for i := uint32(0); i < count; i++ {
		key, err := readString(r, section)
		if err != nil {
			return nil, err
		}
		value, err := readString(r, section)
		if err != nil {
			return nil, err
		}
		tags[key] = value
	}
	return tags, nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := w.Write([]byte(s))
	return err
}

func readString(r io.Reader, section string) (string, error) {
	var length uint32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return "", &ErrTruncated{Section: section, Err: err}
	}
	if length > maxStringLen {
		return "", fmt.Errorf("string length %d exceeds limit in %s", length, section)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", &ErrTruncated{Section: section, Err: err}
	}
	return string(buf), nil
}

// maxStringLen guards against corrupt length prefixes allocating huge
// buffers.
const maxStringLen = 1 << 20

// maxPrealloc bounds the size hint handed to make() for an untrusted count
// prefix. Larger collections still load; they just grow incrementally.
const maxPrealloc = 1 << 16

func prealloc(count uint32) int {
	if count > maxPrealloc {
		return maxPrealloc
	}
	return int(count)
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

package track

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"
)

// ErrBadMagic indicates a track database stream that does not start with
// the expected signature.
var ErrBadMagic = errors.New("track cache: invalid magic signature")

// ErrTruncated indicates the stream ended inside the named section.
type ErrTruncated struct {
	Section string
	Err     error
}

func (e *ErrTruncated) Error() string {
	return fmt.Sprintf("track cache: truncated %s section: %v", e.Section, e.Err)
}

func (e *ErrTruncated) Unwrap() error {
	return e.Err
}

// Write serializes the track: point count; per point all scalar fields in
// fixed order plus a one-byte "has timestamp" flag and the timestamp when
// present; then a trailer with the track-level aggregates, coordinate and
// elevation ranges, and the length-prefixed filename, version and creator
// strings. The record is embeddable standalone or inside a database file.
func (t *Track) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)

	if err := binary.Write(bw, binary.LittleEndian, uint32(len(t.Points))); err != nil {
		return err
	}
	for i := range t.Points {
		p := &t.Points[i]
		scalars := []float64{
			p.Lat, p.Lon, p.Elevation,
			p.Elapsed, p.ElapsedTotal,
			p.DistancePlanar, p.DistancePlanarTotal,
			p.DistanceFull, p.DistanceFullTotal,
		}
		for _, v := range scalars {
			if err := binary.Write(bw, binary.LittleEndian, v); err != nil {
				return err
			}
		}
		var hasTime byte
		if p.HasTime {
			hasTime = 1
		}
		if err := bw.WriteByte(hasTime); err != nil {
			return err
		}
		if p.HasTime {
			if err := binary.Write(bw, binary.LittleEndian, p.Time.Unix()); err != nil {
				return err
			}
		}
	}

	trailer := []float64{
		t.TotalTime, t.TotalDistancePlanar, t.TotalDistanceFull,
		t.MinLat, t.MaxLat, t.MinLon, t.MaxLon,
		t.MinElevation, t.MaxElevation,
		t.Ascent, t.Descent,
	}
	for _, v := range trailer {
		if err := binary.Write(bw, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	for _, s := range []string{t.Filename, t.Version, t.Creator} {
		if err := writeString(bw, s); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Read deserializes a track written by Write. The derived fields are read
// back verbatim; callers wanting a raw load may re-run Calculate afterwards.
func Read(r io.Reader) (*Track, error) {
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, &ErrTruncated{Section: "point count", Err: err}
	}

	// The count prefix is untrusted until the points actually arrive:
	// grow the slice as data is read so a corrupt count surfaces as a
	// truncation error instead of a huge allocation.
	t := &Track{Points: make([]Point, 0, prealloc(count))}
	for n := uint32(0); n < count; n++ {
		t.Points = append(t.Points, Point{})
		p := &t.Points[len(t.Points)-1]
		scalars := []*float64{
			&p.Lat, &p.Lon, &p.Elevation,
			&p.Elapsed, &p.ElapsedTotal,
			&p.DistancePlanar, &p.DistancePlanarTotal,
			&p.DistanceFull, &p.DistanceFullTotal,
		}
		for _, v := range scalars {
			if err := binary.Read(r, binary.LittleEndian, v); err != nil {
				return nil, &ErrTruncated{Section: "points", Err: err}
			}
		}
		var hasTime byte
		if err := binary.Read(r, binary.LittleEndian, &hasTime); err != nil {
			return nil, &ErrTruncated{Section: "points", Err: err}
		}
		if hasTime != 0 {
			var unix int64
			if err := binary.Read(r, binary.LittleEndian, &unix); err != nil {
				return nil, &ErrTruncated{Section: "points", Err: err}
			}
			p.HasTime = true
			p.Time = time.Unix(unix, 0)
		}
	}

	trailer := []*float64{
		&t.TotalTime, &t.TotalDistancePlanar, &t.TotalDistanceFull,
		&t.MinLat, &t.MaxLat, &t.MinLon, &t.MaxLon,
		&t.MinElevation, &t.MaxElevation,
		&t.Ascent, &t.Descent,
	}
	for _, v := range trailer {
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return nil, &ErrTruncated{Section: "trailer", Err: err}
		}
	}

	var err error
	if t.Filename, err = readString(r, "filename"); err != nil {
		return nil, err
	}
	if t.Version, err = readString(r, "version"); err != nil {
		return nil, err
	}
	if t.Creator, err = readString(r, "creator"); err != nil {
		return nil, err
	}
	return t, nil
}

// maxStringLen guards against corrupt length prefixes.
const maxStringLen = 1 << 20

// maxPrealloc bounds the capacity handed to make() for an untrusted count
// prefix.
const maxPrealloc = 1 << 16

func prealloc(count uint32) int {
	if count > maxPrealloc {
		return maxPrealloc
	}
	return int(count)
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
		return "", fmt.Errorf("track cache: string length %d exceeds limit in %s", length, section)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", &ErrTruncated{Section: section, Err: err}
	}
	return string(buf), nil
}

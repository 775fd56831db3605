package tiffutil

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/google/tiff"
	_ "github.com/google/tiff/bigtiff" // registers BigTIFF support with tiff.Parse
)

// Baseline tag numbers read from the first image file directory.
const (
	tagImageWidth  = 256
	tagImageLength = 257
	tagXResolution = 282
	tagYResolution = 283
	tagXPosition   = 286
	tagYPosition   = 287
)

var tagNames = map[uint16]string{
	tagImageWidth:  "ImageWidth",
	tagImageLength: "ImageLength",
	tagXResolution: "XResolution",
	tagYResolution: "YResolution",
	tagXPosition:   "XPosition",
	tagYPosition:   "YPosition",
}

// positionScale relates the position tags (physical units, scaled up) to
// the resolution tags (pixels per physical unit, scaled down). The two
// factors cancel so that position times resolution is a pixel coordinate
// without consulting ResolutionUnit. Scanners that store the tags in a
// different unit relationship will be placed wrongly; that assumption is
// inherited from the scanner workflows this feeds.
const positionScale = 10000

// ErrNotTIFF is returned by ParseRegion for files whose signature does
// not identify a TIFF.
var ErrNotTIFF = errors.New("tiffutil: not a TIFF file")

// MissingTagError reports a required placement tag absent from the first
// directory of an otherwise valid TIFF file.
type MissingTagError struct {
	Path string
	Tag  string
}

func (e *MissingTagError) Error() string {
	return fmt.Sprintf("tiffutil: %s: missing required tag %s", e.Path, e.Tag)
}

// MalformedTagError reports a placement tag that is present but cannot be
// interpreted.
type MalformedTagError struct {
	Path   string
	Tag    string
	Reason string
}

func (e *MalformedTagError) Error() string {
	return fmt.Sprintf("tiffutil: %s: tag %s: %s", e.Path, e.Tag, e.Reason)
}

// Rational is a TIFF RATIONAL value.
type Rational struct {
	Num uint32
	Den uint32
}

// Float returns the rational as a float64. The denominator is checked to
// be nonzero when the value is read from a file.
func (r Rational) Float() float64 {
	return float64(r.Num) / float64(r.Den)
}

// Region is the pixel-space placement of one tile within the assembled
// composite: integer origin, size, and the z and t plane indices. Tiles
// are single-plane, single-timepoint, so Z and T are always zero.
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
	Z      int
	T      int
}

// ParseRegion derives the placement Region for the tile at path from the
// tags on its first directory. Files that are not TIFFs yield ErrNotTIFF,
// files without one of the six required tags a *MissingTagError, and tags
// that cannot be interpreted a *MalformedTagError. Callers assembling a
// batch are expected to log such errors and move on to the next tile.
func ParseRegion(path string) (*Region, error) {
	sig, err := ReadSignature(path)
	if err != nil {
		return nil, err
	}
	if !sig.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrNotTIFF, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := tiff.Parse(f, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("tiffutil: parsing %s: %w", path, err)
	}

	ifds := t.IFDs()
	if len(ifds) == 0 {
		return nil, fmt.Errorf("tiffutil: %s: no image file directories", path)
	}
	page := ifds[0]

	xpos, err := rationalField(page, path, tagXPosition)
	if err != nil {
		return nil, err
	}
	ypos, err := rationalField(page, path, tagYPosition)
	if err != nil {
		return nil, err
	}
	xres, err := rationalField(page, path, tagXResolution)
	if err != nil {
		return nil, err
	}
	yres, err := rationalField(page, path, tagYResolution)
	if err != nil {
		return nil, err
	}
	width, err := uintField(page, path, tagImageWidth)
	if err != nil {
		return nil, err
	}
	height, err := uintField(page, path, tagImageLength)
	if err != nil {
		return nil, err
	}

	x := positionScale * xpos.Float() * (xres.Float() / positionScale)
	y := positionScale * ypos.Float() * (yres.Float() / positionScale)

	return &Region{
		X:      int(math.Round(x)),
		Y:      int(math.Round(y)),
		Width:  width,
		Height: height,
	}, nil
}

func rationalField(ifd tiff.IFD, path string, tag uint16) (Rational, error) {
	if !ifd.HasField(tag) {
		return Rational{}, &MissingTagError{Path: path, Tag: tagNames[tag]}
	}

	fv := ifd.GetField(tag).Value()
	b := fv.Bytes()
	if len(b) < 8 {
		return Rational{}, &MalformedTagError{Path: path, Tag: tagNames[tag], Reason: "truncated rational"}
	}

	r := Rational{
		Num: fv.Order().Uint32(b[:4]),
		Den: fv.Order().Uint32(b[4:8]),
	}
	if r.Den == 0 {
		return Rational{}, &MalformedTagError{Path: path, Tag: tagNames[tag], Reason: "zero denominator"}
	}
	return r, nil
}

func uintField(ifd tiff.IFD, path string, tag uint16) (int, error) {
	if !ifd.HasField(tag) {
		return 0, &MissingTagError{Path: path, Tag: tagNames[tag]}
	}

	f := ifd.GetField(tag)
	fv := f.Value()
	b := fv.Bytes()

	switch f.Type().Size() {
	case 2:
		return int(fv.Order().Uint16(b)), nil
	case 4:
		return int(fv.Order().Uint32(b)), nil
	case 8:
		return int(fv.Order().Uint64(b)), nil
	}

	return 0, &MalformedTagError{Path: path, Tag: tagNames[tag], Reason: "unexpected field type"}
}

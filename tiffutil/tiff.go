/*
Package tiffutil reads the small amount of TIFF metadata needed to place a
scanned tile within a larger composite image.

Each tile is expected to carry XPosition/YPosition tags giving its physical
offset on the specimen and XResolution/YResolution tags giving its pixel
density. Multiplying position by resolution yields the tile's origin in
pixel space, which is all the downstream stitching step needs.
*/
package tiffutil

import (
	"errors"
	"fmt"
	"io"
	"os"
)

const (
	littleEndianMarker = 0x4949 // "II"
	bigEndianMarker    = 0x4d4d // "MM"

	versionClassic = 42
	versionBig     = 43
)

// ErrIndeterminate is returned when the file header could not be read at
// all. It is distinct from a header that was read but does not carry a
// TIFF byte-order marker; the latter is not an error.
var ErrIndeterminate = errors.New("tiffutil: indeterminate signature")

// Signature is the decoded 4-byte TIFF file header.
type Signature struct {
	// Marker is the byte-order marker, 0x4949 ("II") for little-endian
	// or 0x4D4D ("MM") for big-endian files. Zero for non-TIFF files.
	Marker uint16
	// Version is 42 for classic TIFF or 43 for BigTIFF.
	Version uint16
}

// Valid reports whether the signature identifies a TIFF file.
func (s Signature) Valid() bool {
	return s.Version == versionClassic || s.Version == versionBig
}

// BigTIFF reports whether the signature identifies a BigTIFF file.
func (s Signature) BigTIFF() bool {
	return s.Version == versionBig
}

// LittleEndian reports whether the file declares little-endian byte order.
func (s Signature) LittleEndian() bool {
	return s.Marker == littleEndianMarker
}

func toShort(b1, b2 byte) uint16 {
	return uint16(b1)<<8 + uint16(b2)
}

// ReadSignature reads the first four bytes of the file at path and decodes
// them. A file whose leading bytes are not a TIFF byte-order marker yields
// a zero Signature and no error. A missing file yields an error satisfying
// errors.Is(err, fs.ErrNotExist), an unreadable one the underlying I/O
// error, and a file shorter than four bytes an error wrapping
// ErrIndeterminate.
func ReadSignature(path string) (Signature, error) {
	f, err := os.Open(path)
	if err != nil {
		return Signature{}, err
	}
	defer f.Close()

	var b [4]byte
	if _, err := io.ReadFull(f, b[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return Signature{}, fmt.Errorf("%w: %s", ErrIndeterminate, path)
		}
		return Signature{}, err
	}

	switch marker := toShort(b[0], b[1]); marker {
	case littleEndianMarker:
		// The version bytes follow the declared byte order.
		return Signature{Marker: marker, Version: toShort(b[3], b[2])}, nil
	case bigEndianMarker:
		return Signature{Marker: marker, Version: toShort(b[2], b[3])}, nil
	}

	return Signature{}, nil
}

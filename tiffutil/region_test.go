package tiffutil

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"
)

const (
	typeLong     = 4
	typeRational = 5
)

type ifdEntry struct {
	tag   uint16
	typ   uint16
	value []byte
}

func longValue(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func rationalValue(num, den uint32) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint32(b, num)
	binary.LittleEndian.PutUint32(b[4:], den)
	return b
}

// writeTile assembles a minimal little-endian TIFF whose first directory
// holds the given entries, which must be in ascending tag order.
func writeTile(t *testing.T, path string, entries []ifdEntry) {
	t.Helper()

	var buf bytes.Buffer
	buf.Write([]byte{'I', 'I', 42, 0})
	binary.Write(&buf, binary.LittleEndian, uint32(8)) // first IFD offset

	binary.Write(&buf, binary.LittleEndian, uint16(len(entries)))

	// Values wider than four bytes are appended after the directory.
	overflowStart := uint32(8 + 2 + 12*len(entries) + 4)
	var overflow []byte
	for _, e := range entries {
		binary.Write(&buf, binary.LittleEndian, e.tag)
		binary.Write(&buf, binary.LittleEndian, e.typ)
		binary.Write(&buf, binary.LittleEndian, uint32(1))
		if len(e.value) <= 4 {
			v := make([]byte, 4)
			copy(v, e.value)
			buf.Write(v)
		} else {
			binary.Write(&buf, binary.LittleEndian, overflowStart+uint32(len(overflow)))
			overflow = append(overflow, e.value...)
		}
	}
	binary.Write(&buf, binary.LittleEndian, uint32(0)) // no next IFD
	buf.Write(overflow)

	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func placedTileEntries(xpos, ypos, xres, yres [2]uint32, width, height uint32) []ifdEntry {
	return []ifdEntry{
		{tagImageWidth, typeLong, longValue(width)},
		{tagImageLength, typeLong, longValue(height)},
		{tagXResolution, typeRational, rationalValue(xres[0], xres[1])},
		{tagYResolution, typeRational, rationalValue(yres[0], yres[1])},
		{tagXPosition, typeRational, rationalValue(xpos[0], xpos[1])},
		{tagYPosition, typeRational, rationalValue(ypos[0], ypos[1])},
	}
}

func TestParseRegionOrigin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tile.tif")
	writeTile(t, path, placedTileEntries([2]uint32{0, 1}, [2]uint32{0, 1}, [2]uint32{1, 1}, [2]uint32{1, 1}, 100, 100))

	region, err := ParseRegion(path)
	require.NoError(t, err)
	assert.Equal(t, &Region{X: 0, Y: 0, Width: 100, Height: 100}, region)
}

func TestParseRegionPlacement(t *testing.T) {
	// Position 5 units at 2 pixels per scaled unit: x = 10000*5 * 2/10000.
	path := filepath.Join(t.TempDir(), "tile.tif")
	writeTile(t, path, placedTileEntries([2]uint32{5, 1}, [2]uint32{7, 2}, [2]uint32{2, 1}, [2]uint32{4, 1}, 1392, 1040))

	region, err := ParseRegion(path)
	require.NoError(t, err)
	assert.Equal(t, 10, region.X)
	assert.Equal(t, 14, region.Y)
	assert.Equal(t, 1392, region.Width)
	assert.Equal(t, 1040, region.Height)
	assert.Equal(t, 0, region.Z)
	assert.Equal(t, 0, region.T)
}

func TestParseRegionRounding(t *testing.T) {
	// x = 10000*(3/2) * 1/10000 = 1.5, rounded to 2.
	path := filepath.Join(t.TempDir(), "tile.tif")
	writeTile(t, path, placedTileEntries([2]uint32{3, 2}, [2]uint32{0, 1}, [2]uint32{1, 1}, [2]uint32{1, 1}, 10, 10))

	region, err := ParseRegion(path)
	require.NoError(t, err)
	assert.Equal(t, 2, region.X)
	assert.Equal(t, 0, region.Y)
}

func TestParseRegionMissingTag(t *testing.T) {
	entries := placedTileEntries([2]uint32{0, 1}, [2]uint32{0, 1}, [2]uint32{1, 1}, [2]uint32{1, 1}, 100, 100)

	for i, omitted := range entries {
		t.Run(tagNames[omitted.tag], func(t *testing.T) {
			remaining := make([]ifdEntry, 0, len(entries)-1)
			remaining = append(remaining, entries[:i]...)
			remaining = append(remaining, entries[i+1:]...)

			path := filepath.Join(t.TempDir(), "tile.tif")
			writeTile(t, path, remaining)

			region, err := ParseRegion(path)
			assert.Nil(t, region)

			var missing *MissingTagError
			require.True(t, errors.As(err, &missing))
			assert.Equal(t, tagNames[omitted.tag], missing.Tag)
			assert.Equal(t, path, missing.Path)
		})
	}
}

func TestParseRegionZeroDenominator(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tile.tif")
	writeTile(t, path, placedTileEntries([2]uint32{0, 0}, [2]uint32{0, 1}, [2]uint32{1, 1}, [2]uint32{1, 1}, 100, 100))

	_, err := ParseRegion(path)

	var malformed *MalformedTagError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, "XPosition", malformed.Tag)
}

func TestParseRegionNotTIFF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.tif")
	require.NoError(t, os.WriteFile(path, []byte("Not a TIFF file"), 0o644))

	_, err := ParseRegion(path)
	assert.True(t, errors.Is(err, ErrNotTIFF))
}

func TestParseRegionNotFound(t *testing.T) {
	_, err := ParseRegion(filepath.Join(t.TempDir(), "nonexistent.tif"))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestParseRegionEncodedFileWithoutPosition(t *testing.T) {
	// x/image's encoder emits resolution tags but no position tags, so a
	// plain encoded image is a valid TIFF that cannot be placed.
	path := filepath.Join(t.TempDir(), "encoded.tif")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, tiff.Encode(f, image.NewGray(image.Rect(0, 0, 8, 8)), nil))
	require.NoError(t, f.Close())

	_, err = ParseRegion(path)

	var missing *MissingTagError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "XPosition", missing.Tag)
}

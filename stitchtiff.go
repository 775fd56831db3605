/*
Package stitchtiff stitches individually scanned TIFF tiles into a single
pyramidal OME-TIFF image by driving the QuPath toolkit.

Each input tile carries TIFF position and resolution tags describing where
it sits on the scanned specimen. The library derives a pixel-space region
for every tile, hands the placed tiles to QuPath's sparse image server and
writes the assembled image as a tiled, pyramidal OME-TIFF.
*/
package stitchtiff

import (
	"context"
	"log"

	"github.com/sreekarreddydfci/stitchtiff/qupath"
)

// PyramidWriter is the part of the QuPath runtime the stitcher drives. It
// is satisfied by *qupath.Runtime.
type PyramidWriter interface {
	WritePyramid(ctx context.Context, sources []qupath.TileSource, outfile string, opts qupath.WriterOptions) error
}

// Stitcher assembles scanned TIFF tiles into one OME-TIFF.
type Stitcher struct {
	writer PyramidWriter
	opts   qupath.WriterOptions
	logger *log.Logger
}

func New(writer PyramidWriter, opts qupath.WriterOptions, logger *log.Logger) *Stitcher {
	return &Stitcher{
		writer: writer,
		opts:   opts,
		logger: logger,
	}
}

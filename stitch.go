package stitchtiff

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sreekarreddydfci/stitchtiff/qupath"
	"github.com/sreekarreddydfci/stitchtiff/tiffutil"
)

const outputSuffix = ".ome.tif"

var (
	errNoInput   = errors.New("stitchtiff: no .tif files to stitch")
	errNoRegions = errors.New("stitchtiff: no tiles produced a usable region")
)

// OutputPath appends the OME-TIFF suffix to name unless it already
// carries it.
func OutputPath(name string) string {
	if strings.HasSuffix(name, outputSuffix) {
		return name
	}
	return name + outputSuffix
}

// CollectTIFFFiles walks dir recursively and returns every regular *.tif
// file found below it.
func CollectTIFFFiles(dir string) ([]string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("stitchtiff: %s is not a directory", dir)
	}

	var files []string
	if err := filepath.Walk(dir, func(file string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		// Ignore any hidden files or directories, otherwise we end up fighting with things like Spotlight, etc.
		if info.Name()[0] == '.' {
			if info.Mode().IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if !info.Mode().IsRegular() {
			return nil
		}

		if filepath.Ext(file) != ".tif" {
			return nil
		}

		files = append(files, file)
		return nil
	}); err != nil {
		return nil, err
	}

	return files, nil
}

// FilterTIFFFiles returns the entries of files ending in .tif.
func FilterTIFFFiles(files []string) []string {
	var out []string
	for _, file := range files {
		if strings.HasSuffix(file, ".tif") {
			out = append(out, file)
		}
	}
	return out
}

// Report summarizes a stitching run.
type Report struct {
	// Stitched is the number of tiles that contributed a region.
	Stitched int
	// Skipped is the number of tiles excluded because their metadata
	// could not be read.
	Skipped int
	// Output is the normalized path the image was written to.
	Output string
}

// StitchDirectory stitches every *.tif below dir into outfile.
func (s *Stitcher) StitchDirectory(ctx context.Context, dir, outfile string) (*Report, error) {
	files, err := CollectTIFFFiles(dir)
	if err != nil {
		return nil, err
	}
	return s.Stitch(ctx, files, outfile)
}

// Stitch derives a placement region for each file and writes the
// assembled pyramidal OME-TIFF to outfile, normalized with OutputPath.
// Tiles whose metadata cannot be read are logged and left out; they do
// not fail the batch. The batch fails only when no input files remain, no
// tile yields a region, or the toolkit cannot write the pyramid.
func (s *Stitcher) Stitch(ctx context.Context, files []string, outfile string) (*Report, error) {
	files = FilterTIFFFiles(files)
	if len(files) == 0 {
		return nil, errNoInput
	}

	report := &Report{Output: OutputPath(outfile)}

	sources := make([]qupath.TileSource, 0, len(files))
	for _, file := range files {
		region, err := tiffutil.ParseRegion(file)
		if err != nil {
			s.logger.Printf("skipping %s: %v\n", file, err)
			report.Skipped++
			continue
		}
		sources = append(sources, qupath.TileSource{
			Region:     *region,
			Downsample: 1.0,
			Path:       file,
		})
	}
	if len(sources) == 0 {
		return nil, errNoRegions
	}
	report.Stitched = len(sources)

	if err := s.writer.WritePyramid(ctx, sources, report.Output, s.opts); err != nil {
		return report, err
	}
	return report, nil
}

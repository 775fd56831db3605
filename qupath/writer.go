package qupath

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/sreekarreddydfci/stitchtiff/tiffutil"
)

// Compression selects the OME-TIFF compression family.
type Compression int

const (
	// Lossless compresses tiles without degrading pixel data.
	Lossless Compression = iota
	// Lossy trades pixel fidelity for smaller output.
	Lossy
)

func (c Compression) String() string {
	switch c {
	case Lossless:
		return "lossless"
	case Lossy:
		return "lossy"
	}
	return fmt.Sprintf("Compression(%d)", int(c))
}

// builderMethod is the OMEPyramidWriter.Builder call selecting this
// compression.
func (c Compression) builderMethod() string {
	if c == Lossy {
		return "lossyCompression"
	}
	return "losslessCompression"
}

// WriterOptions configures the pyramid writer.
type WriterOptions struct {
	// Downsamples are the pyramid levels to write, ascending, full
	// resolution (1) first.
	Downsamples []float64
	// TileSize is the width and height of the output tiles in pixels.
	TileSize int
	// ChannelsInterleaved stores channel data interleaved rather than
	// planar.
	ChannelsInterleaved bool
	// Parallelize lets QuPath write tiles on multiple threads.
	Parallelize bool
	Compression Compression
}

// DefaultWriterOptions returns the configuration used by the scanner
// workflows this tool was built for: a full-resolution level plus a 32x
// overview, 512 pixel tiles, interleaved, parallel, lossless.
func DefaultWriterOptions() WriterOptions {
	return WriterOptions{
		Downsamples:         []float64{1, 32},
		TileSize:            512,
		ChannelsInterleaved: true,
		Parallelize:         true,
		Compression:         Lossless,
	}
}

// Validate reports whether the options describe a writable pyramid.
func (o WriterOptions) Validate() error {
	if len(o.Downsamples) == 0 {
		return errors.New("qupath: at least one downsample level is required")
	}
	prev := 0.0
	for _, d := range o.Downsamples {
		if d <= 0 {
			return fmt.Errorf("qupath: downsample %v is not positive", d)
		}
		if d <= prev {
			return errors.New("qupath: downsamples must be ascending")
		}
		prev = d
	}
	if o.TileSize <= 0 {
		return fmt.Errorf("qupath: tile size %d is not positive", o.TileSize)
	}
	return nil
}

// TileSource pairs a tile file with its placement in the composite.
type TileSource struct {
	Region     tiffutil.Region
	Downsample float64
	Path       string
}

// WritePyramid assembles the sources into a sparse composite image,
// pyramidalizes it and writes the result to outfile. The java process is
// killed if ctx is cancelled.
func (r *Runtime) WritePyramid(ctx context.Context, sources []TileSource, outfile string, opts WriterOptions) error {
	if r.closed {
		return errors.New("qupath: runtime is closed")
	}
	if len(sources) == 0 {
		return errors.New("qupath: no tile sources")
	}
	if err := opts.Validate(); err != nil {
		return err
	}

	manifestPath := filepath.Join(r.workDir, "regions.json")
	scriptPath := filepath.Join(r.workDir, "stitch.groovy")

	b, err := renderManifest(sources, outfile)
	if err != nil {
		return err
	}
	if err := os.WriteFile(manifestPath, b, 0o644); err != nil {
		return err
	}

	b, err = renderScript(manifestPath, opts)
	if err != nil {
		return err
	}
	if err := os.WriteFile(scriptPath, b, 0o644); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, r.java,
		"-Xmx"+r.maxHeap,
		"-cp", r.classpath,
		"groovy.ui.GroovyMain",
		scriptPath,
	)
	cmd.Stdout = r.logger.Writer()
	cmd.Stderr = r.logger.Writer()

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("qupath: stitching failed: %w", err)
	}
	return nil
}

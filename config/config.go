// Package config loads stitching configuration from YAML files and
// supplies the built-in defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/sreekarreddydfci/stitchtiff/qupath"
)

// Config is the on-disk configuration. Fields omitted from the file keep
// their default values.
type Config struct {
	QuPath struct {
		// JavaPath is the java binary used to run QuPath. Empty means
		// whatever "java" resolves to on PATH.
		JavaPath string `yaml:"javaPath"`

		// ClasspathGlob matches the QuPath jars, for example
		// "/opt/qupath/lib/app/*.jar".
		ClasspathGlob string `yaml:"classpathGlob"`

		// Memory is the JVM heap limit, for example "40g".
		Memory string `yaml:"memory"`
	} `yaml:"qupath"`

	Writer struct {
		// Downsamples are the pyramid levels to write, ascending.
		Downsamples []float64 `yaml:"downsamples"`

		// TileSize is the output tile edge length in pixels.
		TileSize int `yaml:"tileSize"`

		// Interleaved stores channels interleaved rather than planar.
		Interleaved bool `yaml:"interleaved"`

		// Parallel lets the writer use multiple threads.
		Parallel bool `yaml:"parallel"`

		// Compression is "lossless" or "lossy".
		Compression string `yaml:"compression"`
	} `yaml:"writer"`
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.QuPath.Memory = "40g"

	opts := qupath.DefaultWriterOptions()
	cfg.Writer.Downsamples = opts.Downsamples
	cfg.Writer.TileSize = opts.TileSize
	cfg.Writer.Interleaved = opts.ChannelsInterleaved
	cfg.Writer.Parallel = opts.Parallelize
	cfg.Writer.Compression = opts.Compression.String()

	return cfg
}

// Load reads the YAML file at path and overlays it on the defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// RuntimeConfig expands the classpath glob and assembles the toolkit
// launch configuration.
func (c *Config) RuntimeConfig() (qupath.Config, error) {
	jars, err := filepath.Glob(c.QuPath.ClasspathGlob)
	if err != nil {
		return qupath.Config{}, fmt.Errorf("config: bad classpath glob %q: %w", c.QuPath.ClasspathGlob, err)
	}
	return qupath.Config{
		JavaPath:  c.QuPath.JavaPath,
		Classpath: jars,
		MaxHeap:   c.QuPath.Memory,
	}, nil
}

// WriterOptions converts the writer section into validated pyramid writer
// options.
func (c *Config) WriterOptions() (qupath.WriterOptions, error) {
	opts := qupath.WriterOptions{
		Downsamples:         c.Writer.Downsamples,
		TileSize:            c.Writer.TileSize,
		ChannelsInterleaved: c.Writer.Interleaved,
		Parallelize:         c.Writer.Parallel,
	}

	switch c.Writer.Compression {
	case "", "lossless":
		opts.Compression = qupath.Lossless
	case "lossy":
		opts.Compression = qupath.Lossy
	default:
		return qupath.WriterOptions{}, fmt.Errorf("config: unknown compression %q", c.Writer.Compression)
	}

	if err := opts.Validate(); err != nil {
		return qupath.WriterOptions{}, err
	}
	return opts, nil
}

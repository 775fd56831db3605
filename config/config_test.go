package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sreekarreddydfci/stitchtiff/qupath"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stitchtiff.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "40g", cfg.QuPath.Memory)
	assert.Equal(t, []float64{1, 32}, cfg.Writer.Downsamples)
	assert.Equal(t, 512, cfg.Writer.TileSize)
	assert.True(t, cfg.Writer.Interleaved)
	assert.True(t, cfg.Writer.Parallel)
	assert.Equal(t, "lossless", cfg.Writer.Compression)

	opts, err := cfg.WriterOptions()
	require.NoError(t, err)
	assert.Equal(t, qupath.DefaultWriterOptions(), opts)
}

func TestLoadOverlay(t *testing.T) {
	path := writeConfig(t, `
qupath:
  javaPath: /usr/lib/jvm/jdk-17/bin/java
  memory: 10g
writer:
  tileSize: 1024
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/usr/lib/jvm/jdk-17/bin/java", cfg.QuPath.JavaPath)
	assert.Equal(t, "10g", cfg.QuPath.Memory)
	assert.Equal(t, 1024, cfg.Writer.TileSize)

	// Untouched values keep their defaults.
	assert.Equal(t, []float64{1, 32}, cfg.Writer.Downsamples)
	assert.True(t, cfg.Writer.Parallel)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	assert.Error(t, err)
}

func TestLoadBadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "writer: [not a mapping"))
	assert.Error(t, err)
}

func TestWriterOptionsCompression(t *testing.T) {
	cfg := Default()
	cfg.Writer.Compression = "lossy"

	opts, err := cfg.WriterOptions()
	require.NoError(t, err)
	assert.Equal(t, qupath.Lossy, opts.Compression)

	cfg.Writer.Compression = "zstd"
	_, err = cfg.WriterOptions()
	assert.Error(t, err)
}

func TestWriterOptionsValidated(t *testing.T) {
	cfg := Default()
	cfg.Writer.TileSize = 0

	_, err := cfg.WriterOptions()
	assert.Error(t, err)
}

func TestRuntimeConfig(t *testing.T) {
	dir := t.TempDir()
	for _, jar := range []string{"qupath-app.jar", "qupath-core.jar"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, jar), nil, 0o644))
	}

	cfg := Default()
	cfg.QuPath.ClasspathGlob = filepath.Join(dir, "*.jar")
	cfg.QuPath.Memory = "8g"

	rcfg, err := cfg.RuntimeConfig()
	require.NoError(t, err)
	assert.Len(t, rcfg.Classpath, 2)
	assert.Equal(t, "8g", rcfg.MaxHeap)
}

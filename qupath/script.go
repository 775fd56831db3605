package qupath

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"text/template"
)

type manifestRegion struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
	Z      int `json:"z"`
	T      int `json:"t"`
}

type manifestSource struct {
	Region     manifestRegion `json:"region"`
	Downsample float64        `json:"downsample"`
	Path       string         `json:"path"`
}

type manifest struct {
	Output  string           `json:"output"`
	Sources []manifestSource `json:"sources"`
}

// renderManifest serializes the tile sources and output path into the
// JSON document read by the stitching script.
func renderManifest(sources []TileSource, outfile string) ([]byte, error) {
	m := manifest{Output: outfile}
	for _, src := range sources {
		m.Sources = append(m.Sources, manifestSource{
			Region: manifestRegion{
				X:      src.Region.X,
				Y:      src.Region.Y,
				Width:  src.Region.Width,
				Height: src.Region.Height,
				Z:      src.Region.Z,
				T:      src.Region.T,
			},
			Downsample: src.Downsample,
			Path:       src.Path,
		})
	}
	return json.MarshalIndent(m, "", "  ")
}

const stitchScript = `import qupath.lib.images.servers.ImageServerProvider
import qupath.lib.images.servers.ImageServers
import qupath.lib.images.servers.SparseImageServer
import qupath.lib.images.writers.ome.OMEPyramidWriter
import qupath.lib.regions.ImageRegion
import java.awt.image.BufferedImage
import groovy.json.JsonSlurper

def manifest = new JsonSlurper().parse(new File('{{groovyString .Manifest}}'))

def builder = new SparseImageServer.Builder()
for (src in manifest.sources) {
    def r = src.region
    def region = ImageRegion.createInstance(r.x, r.y, r.width, r.height, r.z, r.t)
    def support = ImageServerProvider.getPreferredUriImageSupport(BufferedImage.class, src.path)
    builder.jsonRegion(region, (double) src.downsample, support.getBuilders().get(0))
}

def server = ImageServers.pyramidalize(builder.build())
try {
    new OMEPyramidWriter.Builder(server)
            .downsamples([{{.Downsamples}}] as double[])
            .tileSize({{.TileSize}})
{{- if .ChannelsInterleaved}}
            .channelsInterleaved()
{{- end}}
{{- if .Parallelize}}
            .parallelize()
{{- end}}
            .{{.CompressionMethod}}()
            .build()
            .writePyramid(manifest.output)
} finally {
    server.close()
}
`

var scriptTemplate = template.Must(template.New("stitch").Funcs(template.FuncMap{
	"groovyString": groovyString,
}).Parse(stitchScript))

type scriptData struct {
	Manifest            string
	Downsamples         string
	TileSize            int
	ChannelsInterleaved bool
	Parallelize         bool
	CompressionMethod   string
}

// groovyString escapes s for use inside a single-quoted Groovy string
// literal.
func groovyString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

// renderScript generates the Groovy stitching script for the given
// manifest path and writer options.
func renderScript(manifestPath string, opts WriterOptions) ([]byte, error) {
	levels := make([]string, len(opts.Downsamples))
	for i, d := range opts.Downsamples {
		levels[i] = strconv.FormatFloat(d, 'f', -1, 64)
	}

	var buf bytes.Buffer
	err := scriptTemplate.Execute(&buf, scriptData{
		Manifest:            manifestPath,
		Downsamples:         strings.Join(levels, ", "),
		TileSize:            opts.TileSize,
		ChannelsInterleaved: opts.ChannelsInterleaved,
		Parallelize:         opts.Parallelize,
		CompressionMethod:   opts.Compression.builderMethod(),
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

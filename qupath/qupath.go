/*
Package qupath drives the QuPath toolkit to assemble placed TIFF tiles
into a pyramidal OME-TIFF.

QuPath is a Java application, so the bridge is an external java process:
the placed tiles are written to a JSON manifest, a Groovy script is
generated that feeds them through QuPath's SparseImageServer and
OMEPyramidWriter, and the script is run with the configured classpath and
heap. Only one Runtime may be live per process and its lifetime is
explicit, not tied to any particular consumer.
*/
package qupath

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"
)

// ErrRuntimeActive is returned by NewRuntime while another Runtime in the
// same process has not been closed.
var ErrRuntimeActive = errors.New("qupath: a runtime is already active in this process")

var active atomic.Bool

const defaultMaxHeap = "40g"

// Config carries the settings needed to launch the toolkit. All values
// are explicit; nothing is read from or written to the process
// environment.
type Config struct {
	// JavaPath is the java binary to run. Empty means whatever "java"
	// resolves to on PATH.
	JavaPath string
	// Classpath lists the QuPath jars.
	Classpath []string
	// MaxHeap is the JVM -Xmx value, for example "40g".
	MaxHeap string
}

// Runtime is a handle on the external toolkit. Obtain one with NewRuntime
// and release it with Close.
type Runtime struct {
	java      string
	classpath string
	maxHeap   string
	workDir   string
	logger    *log.Logger
	closed    bool
}

// NewRuntime validates cfg, claims the process-wide runtime slot and
// returns a handle ready to write pyramids. Diagnostics from the toolkit
// are copied to logger.
func NewRuntime(cfg Config, logger *log.Logger) (*Runtime, error) {
	if len(cfg.Classpath) == 0 {
		return nil, errors.New("qupath: empty classpath")
	}

	java := cfg.JavaPath
	if java == "" {
		java = "java"
	}
	java, err := exec.LookPath(java)
	if err != nil {
		return nil, fmt.Errorf("qupath: locating java: %w", err)
	}

	maxHeap := cfg.MaxHeap
	if maxHeap == "" {
		maxHeap = defaultMaxHeap
	}

	if !active.CompareAndSwap(false, true) {
		return nil, ErrRuntimeActive
	}

	workDir, err := os.MkdirTemp("", "qupath")
	if err != nil {
		active.Store(false)
		return nil, err
	}

	return &Runtime{
		java:      java,
		classpath: strings.Join(cfg.Classpath, string(os.PathListSeparator)),
		maxHeap:   maxHeap,
		workDir:   workDir,
		logger:    logger,
	}, nil
}

// Close releases the runtime slot and removes its scratch directory. It
// is safe to call more than once.
func (r *Runtime) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	var result *multierror.Error
	if err := os.RemoveAll(r.workDir); err != nil {
		result = multierror.Append(result, err)
	}
	active.Store(false)

	return result.ErrorOrNil()
}

package denoise

import (
	"runtime"
	"sync"

	"github.com/rawcore/denoise/internal/dctengine"
)

// DenoiseRuntime bundles the worker/nesting configuration and a DCT plan
// mutex owned by this runtime (not a package-level global), replacing the source's global
// mutable nesting level and global FFT mutex (spec.md §9): scheduling is
// a property of the runtime passed in, immutable during the call.
type DenoiseRuntime struct {
	NumWorkers int
	Nested     int

	planMu sync.Mutex
}

// NewRuntime builds a DenoiseRuntime with defaults derived from
// GOMAXPROCS, the same baseline the teacher's lossy encoder uses for its
// default worker count.
func NewRuntime() *DenoiseRuntime {
	procs := runtime.GOMAXPROCS(0)
	if procs < 1 {
		procs = 1
	}
	// denoiseNestedLevels = max(1, num_procs / numthreads); with the
	// default of one tile worker per available proc, that's always 1.
	return &DenoiseRuntime{NumWorkers: procs, Nested: 1}
}

// planDCT builds a dctengine.Engine under the runtime's plan mutex, per
// spec.md §5's "DCT plan creation acquires a process-wide mutex."
func (r *DenoiseRuntime) planDCT(p dctengine.DetailParams, scale float32) *dctengine.Engine {
	r.planMu.Lock()
	defer r.planMu.Unlock()
	return dctengine.NewEngine(p, scale)
}

package runner

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/stepviz-dev/stepviz/interp"
)

// Runner drives a root Block one step at a time, the way a render loop
// would: one instruction (or one guard check) per tick, optionally
// paced by a delay. It performs no threading of its own.
type Runner struct {
	Root        *interp.Block
	Target      interp.RenderTarget
	StepDelay   time.Duration
	MaxSteps    int  // 0 means unbounded
	DetectStall bool // stop when an execution state repeats
	DebugWriter io.Writer
}

// Result describes how a run ended.
type Result struct {
	Steps     int
	Completed bool
	Stalled   bool
}

// Run steps the program to completion. It returns early when the
// context is canceled, when MaxSteps is exceeded, or, with stall
// detection on, when the exact execution state has been seen before.
// The machine is deterministic, so a repeated state can never finish.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	debug := r.DebugWriter
	if debug == nil {
		debug = io.Discard
	}

	var seen map[uint64]int
	if r.DetectStall {
		seen = make(map[uint64]int)
		seen[r.Root.Snapshot().Fingerprint()] = 0
	}

	result := &Result{}
	for !r.Root.IsComplete() {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if r.MaxSteps > 0 && result.Steps >= r.MaxSteps {
			log.Debug().Int("steps", result.Steps).Msg("run: step bound reached")
			return result, nil
		}
		if r.StepDelay > 0 {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(r.StepDelay):
			}
		}

		r.Root.Step(r.Target, r.Root)
		result.Steps++

		if inst, ok := r.Root.PreviousInstruction(); ok {
			fmt.Fprintf(debug, "step %d: pc=%d last=%s\n", result.Steps, r.Root.ProgramCounter(), firstLine(inst.Render()))
		}

		if r.DetectStall {
			fp := r.Root.Snapshot().Fingerprint()
			if at, dup := seen[fp]; dup {
				log.Debug().Int("steps", result.Steps).Int("first_seen", at).Msg("run: state repeated, program is stalled")
				result.Stalled = true
				return result, nil
			}
			seen[fp] = result.Steps
		}
	}
	result.Completed = true
	return result, nil
}

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gookit/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/stepviz-dev/stepviz/runner"
)

var (
	debugFlag       bool
	renderFlag      bool
	detectStallFlag bool
	stepDelay       time.Duration
	maxSteps        int
)

var runCmd = &cobra.Command{
	Use:   "run PROGRAMFILE",
	Short: "Run a program, one instruction per tick",
	Args:  cobra.MinimumNArgs(1),
	Run:   runCommand,
}

func init() {
	runCmd.Flags().BoolVar(&debugFlag, "debug", false, "Enable debug output to see each execution step")
	runCmd.Flags().BoolVar(&renderFlag, "render", false, "Print the program's brace form before running")
	runCmd.Flags().BoolVar(&detectStallFlag, "detect-stall", false, "Stop when the execution state repeats instead of spinning forever")
	runCmd.Flags().DurationVar(&stepDelay, "delay", 0, "Pause between steps (e.g. 50ms) to watch execution")
	runCmd.Flags().IntVar(&maxSteps, "max-steps", 0, "Stop after this many steps (0 = unbounded)")
}

func runCommand(cmd *cobra.Command, args []string) {
	filename := args[0]
	spec, err := runner.LoadSpecFromFile(filename)
	if err != nil {
		log.Fatal().Err(err).Msg("Couldn't load program file")
	}
	root, err := spec.Build()
	if err != nil {
		log.Fatal().Err(err).Msg("Couldn't build program")
	}
	root.SetSink(&runner.ConsoleSink{Out: os.Stdout, Err: os.Stderr})

	if renderFlag {
		fmt.Fprint(os.Stderr, root.Render())
	}

	r := &runner.Runner{
		Root:        root,
		StepDelay:   stepDelay,
		MaxSteps:    maxSteps,
		DetectStall: detectStallFlag,
	}
	if debugFlag {
		r.DebugWriter = os.Stderr
	} else {
		r.DebugWriter = io.Discard
	}

	result, err := r.Run(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("Error during execution")
	}

	switch {
	case result.Completed:
		fmt.Fprintln(os.Stderr, color.Green.Sprintf("✓ Program completed in %d steps", result.Steps))
	case result.Stalled:
		fmt.Fprintln(os.Stderr, color.Yellow.Sprintf("⚠ Program stalled after %d steps (state repeated)", result.Steps))
	default:
		fmt.Fprintln(os.Stderr, color.Yellow.Sprintf("⚠ Stopped after %d steps", result.Steps))
	}
}

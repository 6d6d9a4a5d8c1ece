package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"openfront/engine/internal/logging"
	"openfront/engine/internal/replay"
	"openfront/engine/internal/simulation"
)

func runVerify(args []string, out io.Writer) int {
	flags := flag.NewFlagSet("verify", flag.ContinueOnError)
	bundle := flags.String("bundle", "", "Path to a replay bundle directory")
	if err := flags.Parse(args); err != nil {
		return 2
	}
	if *bundle == "" {
		fmt.Fprintln(os.Stderr, "bundle flag is required")
		return 2
	}

	divergence, turns, err := verifyBundle(*bundle, logging.L())
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	if divergence != nil {
		fmt.Fprintf(out, "diverged after %d turns at %s\n", turns, divergence)
		return 3
	}
	fmt.Fprintf(out, "verified %d turns\n", turns)
	return 0
}

// verifyBundle re-executes a recorded game and returns the first diverging tick, if any,
// and the number of recorded turns.
func verifyBundle(dir string, logger *logging.Logger) (*simulation.Divergence, int, error) {
	bundle, err := replay.Load(dir)
	if err != nil {
		return nil, 0, err
	}
	g, err := newGame(bundle.Header, logger)
	if err != nil {
		return nil, 0, err
	}

	//1.- Line the recorded frames up with their turns by tick.
	byTick := make(map[uint64][]byte, len(bundle.Frames))
	for _, frame := range bundle.Frames {
		byTick[frame.Tick] = frame.Payload
	}
	frames := make([][]byte, len(bundle.Turns))
	for i, turn := range bundle.Turns {
		frames[i] = byTick[uint64(turn.TurnNumber)]
	}

	divergence, err := simulation.NewRunner(g, simulation.WithRunnerLogger(logger)).Verify(bundle.Turns, frames)
	return divergence, len(bundle.Turns), err
}

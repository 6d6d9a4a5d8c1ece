package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"openfront/engine/internal/config"
	"openfront/engine/internal/replay"
)

func runCatalog(args []string, out io.Writer) int {
	flags := flag.NewFlagSet("catalog", flag.ContinueOnError)
	root := flags.String("root", "", "Replay directory to scan (defaults to the configured replay dir)")
	if err := flags.Parse(args); err != nil {
		return 2
	}
	if *root == "" {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintln(os.Stderr, "config:", err)
			return 1
		}
		*root = cfg.ReplayDir
	}

	entries, err := replay.List(*root)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	payload, err := replay.MarshalCatalog(entries)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	fmt.Fprintln(out, string(payload))
	return 0
}

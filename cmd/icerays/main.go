package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime/pprof"

	"github.com/lukaszgryglicki/icerays/internal/icerays"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run returns the process exit code so deferred cleanup (the CPU profile) always runs.
func run(args []string) int {
	debug := os.Getenv("DEBUG") != ""
	slog.SetDefault(icerays.NewLogger(os.Stderr, debug))
	profile := os.Getenv("PROFILE") != ""
	if profile {
		f, err := os.Create("cpu.out")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		defer func() {
			pprof.StopCPUProfile()
			_ = f.Close()
		}()
	}

	cfg := "scenes/slab.yaml"
	if len(args) > 0 {
		cfg = args[0]
	}
	if err := icerays.Run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

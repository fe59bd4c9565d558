package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/vvka-141/hiveseed/internal/cli"
	"github.com/vvka-141/hiveseed/pkg/hiveseed"
)

func main() {
	// Recover from panics to ensure graceful exits with stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "panic: %v\n%s\n", r, debug.Stack())
			os.Exit(hiveseed.ExitPanic)
		}
	}()

	if os.Getenv("HIVESEED_TEST_PANIC") == "1" {
		panic("intentional test panic")
	}

	if err := cli.Execute(); err != nil {
		os.Exit(hiveseed.ExitCodeForError(err))
	}
}

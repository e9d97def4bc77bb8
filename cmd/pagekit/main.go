package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/xkilldash9x/pagekit/cmd"
	"github.com/xkilldash9x/pagekit/internal/observability"
)

const panicLogFile = "panic.log"

func main() {
	defer handlePanic()

	// SIGINT and SIGTERM cancel running waits and close the browser.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := cmd.Execute(ctx, os.Args[1:])
	stop()
	observability.Sync()
	os.Exit(code)
}

// handlePanic records the panic and its stack in panic.log before exiting.
func handlePanic() {
	r := recover()
	if r == nil {
		return
	}
	report := fmt.Sprintf("panic: %v\n\n%s", r, debug.Stack())
	fmt.Fprint(os.Stderr, report)
	if err := os.WriteFile(panicLogFile, []byte(report), 0o600); err != nil {
		fmt.Fprintln(os.Stderr, "Error: failed to write panic log:", err)
	}
	observability.Sync()
	os.Exit(2)
}

package client

import (
	"os"
	"os/signal"
	"syscall"
)

// Functions to run if a signal interrupts a download.
var interruptHandlers []func()

func init() {
	go handleSignals()
}

// handleSignals waits for a terminating signal, tidies up any interrupted
// download and exits. Downloads take seconds at most, so one signal is
// enough; there is no long-running work here worth a second-chance abort.
func handleSignals() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGHUP, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)
	sig := <-ch
	log.Warning("Received signal %s, cleaning up", sig)
	runInterruptHandlers()
	if s, ok := sig.(syscall.Signal); ok {
		os.Exit(128 + int(s))
	}
	os.Exit(1)
}

// onInterrupt registers a function to run if the process is interrupted by a
// signal. Best-effort; there are ways of dying that bypass it.
func onInterrupt(f func()) {
	interruptHandlers = append(interruptHandlers, f)
}

// runInterruptHandlers runs the registered handlers once and forgets them.
func runInterruptHandlers() {
	for _, f := range interruptHandlers {
		f()
	}
	interruptHandlers = nil
}

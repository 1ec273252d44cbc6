package core

import (
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"sync"
)

var (
	crashMu   sync.RWMutex
	crashFini func()
)

// SetCrashTerminal registers the screen teardown run before a fatal crash report
func SetCrashTerminal(fini func()) {
	crashMu.Lock()
	crashFini = fini
	crashMu.Unlock()
}

// HandleCrash restores the terminal, prints the panic with its stack and exits
// Reserved for the process main loop; device code recovers locally instead
func HandleCrash(r any) {
	if r == nil {
		return
	}

	crashMu.RLock()
	fini := crashFini
	crashMu.RUnlock()
	if fini != nil {
		fini()
	}

	os.Stdout.Sync()
	fmt.Fprintf(os.Stderr, "\r\n\x1b[31mCRASH DETECTED: %v\x1b[0m\r\n", r)
	fmt.Fprintf(os.Stderr, "Stack Trace:\r\n%s\r\n", debug.Stack())
	os.Stderr.Sync()

	os.Exit(1)
}

// Go runs fn on a new goroutine; a panic there is fatal via HandleCrash
func Go(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				HandleCrash(r)
			}
		}()
		fn()
	}()
}

// GoContained runs fn on a new goroutine; a panic is logged and swallowed
// Used for per-device background work that must never take the host down
func GoContained(logger *slog.Logger, scope string, fn func()) {
	go func() {
		defer Contain(logger, scope, nil)
		fn()
	}()
}

// Contain recovers a panic in the calling frame, logs it with the stack and runs onPanic
// Must be invoked directly via defer
func Contain(logger *slog.Logger, scope string, onPanic func(r any)) {
	r := recover()
	if r == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Error("recovered panic", "scope", scope, "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
	if onPanic != nil {
		onPanic(r)
	}
}

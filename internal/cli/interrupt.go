package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// InterruptHandler cancels a context on SIGINT/SIGTERM and tells the user what
// was kept.
type InterruptHandler struct {
	writer      io.Writer
	notify      func(c chan<- os.Signal, sig ...os.Signal)
	stop        func(c chan<- os.Signal)
	operation   string
	resumable   bool
	interrupted bool
	mu          sync.Mutex
}

// NewInterruptHandler creates a new interrupt handler. operation names what is
// being interrupted, e.g. "Sync".
func NewInterruptHandler(writer io.Writer, operation string) *InterruptHandler {
	if writer == nil {
		writer = os.Stderr
	}
	return &InterruptHandler{
		writer:    writer,
		operation: operation,
		notify:    signal.Notify,
		stop:      signal.Stop,
	}
}

// HandleInterrupts returns a context canceled on the first interrupt signal. When
// resumable is set the message tells the user that finished work was kept. The
// returned cancel func releases the signal handler.
func (h *InterruptHandler) HandleInterrupts(ctx context.Context, resumable bool) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	h.resumable = resumable

	sigChan := make(chan os.Signal, 1)
	h.notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer h.stop(sigChan)
		select {
		case <-sigChan:
			h.mu.Lock()
			if !h.interrupted {
				h.interrupted = true
				h.showInterruptMessage()
			}
			h.mu.Unlock()
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

func (h *InterruptHandler) showInterruptMessage() {
	msg := "\n" + FormatWarning(h.operation+" interrupted!")
	if h.resumable {
		msg += "\n" + FormatInfo("Receipts imported so far are saved. Run the command again to continue.")
	}
	msg += "\n"

	if _, err := fmt.Fprint(h.writer, msg); err != nil {
		// Best effort - we're shutting down anyway
		fmt.Fprintf(os.Stderr, "Failed to write interrupt message: %v\n", err)
	}
}

// WasInterrupted returns true if the process was interrupted.
func (h *InterruptHandler) WasInterrupted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.interrupted
}

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
)

// InterruptHandler cancels a run on SIGINT or SIGTERM and prints how to resume.
type InterruptHandler struct {
	out    io.Writer
	cancel context.CancelFunc
	hint   string
	once   sync.Once
	fired  atomic.Bool
}

// NewInterruptHandler reports interrupts to w, or stderr when w is nil.
func NewInterruptHandler(w io.Writer) *InterruptHandler {
	if w == nil {
		w = os.Stderr
	}
	return &InterruptHandler{out: w}
}

// HandleInterrupts derives a context that the first signal cancels. Call the
// returned stop function when the run ends; it is idempotent.
func (h *InterruptHandler) HandleInterrupts(parent context.Context, resumeHint string) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	h.cancel = cancel
	h.hint = resumeHint

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	released := make(chan struct{})
	go func() {
		select {
		case <-signals:
			h.interrupt()
		case <-released:
		}
	}()

	var stopOnce sync.Once
	return ctx, func() {
		stopOnce.Do(func() {
			signal.Stop(signals)
			close(released)
			cancel()
		})
	}
}

func (h *InterruptHandler) interrupt() {
	h.once.Do(func() {
		h.fired.Store(true)
		fmt.Fprintln(h.out)
		fmt.Fprintln(h.out, FormatWarning("Interrupted!"))
		if h.hint != "" {
			fmt.Fprintln(h.out, FormatInfo(h.hint))
		}
		if h.cancel != nil {
			h.cancel()
		}
	})
}

// WasInterrupted reports whether a signal canceled the run.
func (h *InterruptHandler) WasInterrupted() bool {
	return h.fired.Load()
}

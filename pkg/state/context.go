package state

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// NewContext combines a cancelable context with graceful shutdown of
// registered closers.
func NewContext() Context {
	bg, cancel := context.WithCancel(context.Background())
	return &ctx{
		Context: bg,
		cancel:  cancel,
	}
}

type Context interface {
	context.Context
	// OnExit registers fn to run when the context shuts down. Closers run
	// in reverse registration order.
	OnExit(fn func())
	// Exit cancels the context and waits for registered closers, unless a
	// second interrupt forces quit.
	Exit()
	// AwaitExit blocks until an interrupt arrives or the context is
	// canceled, then runs Exit.
	AwaitExit()
}

type ctx struct {
	context.Context
	mu      sync.Mutex
	cancel  context.CancelFunc
	closers []func()
	once    sync.Once
}

func (c *ctx) OnExit(fn func()) {
	c.mu.Lock()
	c.closers = append(c.closers, fn)
	c.mu.Unlock()
}

func (c *ctx) Exit() {
	c.once.Do(func() {
		c.cancel()
		done := make(chan struct{})
		go func() {
			defer close(done)
			c.mu.Lock()
			closers := c.closers
			c.mu.Unlock()
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		}()
		// press Ctrl_C again to force quit
		force := make(chan os.Signal, 1)
		signal.Notify(force, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
		select {
		case <-force:
			fmt.Fprintln(os.Stderr, "force quitting")
		case <-done:
		}
	})
}

func (c *ctx) AwaitExit() {
	sig, stop := signal.NotifyContext(c, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()
	<-sig.Done()
	c.Exit()
}

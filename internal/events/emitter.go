// Package events implements the Event Emitter (C8): a single
// consumer-goroutine that runs work handed to it off the RPC receive
// path, so an inbound handler (e.g. ReceiveSync) can return promptly
// while the actual database work happens asynchronously.
package events

import (
	"context"

	"github.com/Mtdung290504/distributed-banking-system-simulation/pkg/logging"
)

// Emitter drains queued work items sequentially on its own goroutine. A
// panic inside a work item is recovered and logged; it never takes down
// the worker.
type Emitter struct {
	work chan func()
	log  *logging.Logger
}

// New returns an Emitter with the given backlog capacity. Run must be
// started before any Emit is guaranteed to make progress.
func New(bufferSize int) *Emitter {
	return &Emitter{
		work: make(chan func(), bufferSize),
		log:  logging.GetDefault().Component("events"),
	}
}

// Emit enqueues fn to run on the worker goroutine. Emit blocks if the
// backlog is full, which is intentional back-pressure rather than an
// unbounded queue.
func (e *Emitter) Emit(fn func()) {
	e.work <- fn
}

// Run drains work items until ctx is cancelled. It is meant to be started
// once, in its own goroutine, for the lifetime of the process.
func (e *Emitter) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-e.work:
			e.runOne(fn)
		}
	}
}

func (e *Emitter) runOne(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Errorf("recovered panic in emitted work: %v", r)
		}
	}()
	fn()
}

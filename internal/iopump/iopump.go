// Package iopump adapts host-side I/O events into protocol.Dispatch
// calls (spec.md §4.6). The real event source and guest-memory mapper
// are host hypervisor glue out of this module's scope (spec.md §1);
// EventSource and GuestMemory are the interfaces standing in for them,
// mirroring original_source/src/main.c's handler_loop, which polls a
// single fd and dispatches by matching the signaled port.
package iopump

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/varstored/govarstored/internal/auth"
	"github.com/varstored/govarstored/internal/protocol"
	"github.com/varstored/govarstored/internal/store"
)

// PagesPerRequest is the number of contiguous guest pages mapped per
// event (spec.md §4.6: "Maps 16 guest pages").
const PagesPerRequest = 16

// EventSource yields one guest frame number per host I/O event. Wait
// blocks until an event arrives or ctx is cancelled.
type EventSource interface {
	Wait(ctx context.Context) (gfn uint64, err error)
}

// GuestMemory maps a run of guest pages starting at gfn into a local
// byte slice, and unmaps it once the pump is done with it.
type GuestMemory interface {
	Map(gfn uint64, pages int) ([]byte, error)
	Unmap(mem []byte) error
}

// Pump is the single-threaded cooperative event loop of spec.md §5:
// every request runs to completion before the next event is taken,
// with suspension only at the Wait call.
type Pump struct {
	Events EventSource
	Memory GuestMemory
	Store  *store.Store
	Engine *auth.Engine
}

// New builds a Pump ready to Run.
func New(events EventSource, memory GuestMemory, s *store.Store, e *auth.Engine) *Pump {
	return &Pump{Events: events, Memory: memory, Store: s, Engine: e}
}

// Run blocks, servicing events until ctx is cancelled. Host-side
// mapping errors are logged and the event dropped; the loop continues
// (spec.md §7 "host-side errors ... logged and dropped").
func (p *Pump) Run(ctx context.Context) error {
	for {
		gfn, err := p.Events.Wait(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			log.WithError(err).Warn("iopump: event source error, dropping event")
			continue
		}

		mem, err := p.Memory.Map(gfn, PagesPerRequest)
		if err != nil {
			log.WithError(err).WithField("gfn", gfn).Warn("iopump: failed to map guest pages, dropping event")
			continue
		}

		protocol.Dispatch(mem, p.Store, p.Engine)

		if err := p.Memory.Unmap(mem); err != nil {
			log.WithError(err).WithField("gfn", gfn).Warn("iopump: failed to unmap guest pages")
		}
	}
}

/*
 * This file is part of pabridge (https://github.com/soundwire/pabridge).
 * Copyright (C) 2026 Soundwire Audio
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

// Package operation converts native operation handles into values a
// caller can wait on.
//
// An Operation is the shared slot between the native callback (fired on
// the mainloop goroutine) and the goroutine awaiting the result. The
// slot resolves at most once: whichever of callback delivery and caller
// cancellation gets there first decides the terminal state, the loser
// becomes a no-op. Because the slot is an ordinary shared Go object,
// abandon-before-fire and fire-after-abandon are both safe; there is no
// raw pointer for a late callback to dangle on.
package operation

import (
	"context"
	"sync"

	"github.com/soundwire/pabridge/native"
	"github.com/soundwire/pabridge/paerr"
)

// State is the lifecycle state of a watched operation.
type State int

const (
	// Unregistered means no native handle is attached. Only seen on an
	// Operation constructed from a nil handle.
	Unregistered State = iota
	// Registered means the native callback is installed and may still
	// fire.
	Registered
	// Resolved means the native layer completed the operation. Terminal.
	Resolved
	// Cancelled means the operation was abandoned, cancelled, or killed
	// before completing. Terminal.
	Cancelled
)

func (s State) String() string {
	switch s {
	case Unregistered:
		return "unregistered"
	case Registered:
		return "registered"
	case Resolved:
		return "resolved"
	case Cancelled:
		return "cancelled"
	}
	return "unknown"
}

// Operation is a pending native operation that can be awaited. Create
// one with Watch.
type Operation struct {
	raw native.Operation

	mu    sync.Mutex
	state State
	err   error

	done chan struct{}
}

// Watch attaches to a native operation handle and starts tracking its
// state. The handle's state callback is taken over; terminal handles
// are observed immediately, so a handle that completed before Watch is
// not missed.
func Watch(raw native.Operation) *Operation {
	o := &Operation{
		raw:  raw,
		done: make(chan struct{}),
	}
	if raw == nil {
		o.state = Unregistered
		o.err = paerr.ErrBridgeInternal
		close(o.done)
		return o
	}
	o.state = Registered
	raw.SetStateCallback(o.onStateChange)
	return o
}

// onStateChange runs on the mainloop goroutine.
func (o *Operation) onStateChange() {
	switch o.raw.State() {
	case native.OpDone:
		o.finish(Resolved, nil)
	case native.OpCancelled:
		// The server killed the operation out from under us.
		o.finish(Cancelled, paerr.FromCode(paerr.CodeKilled))
	}
}

// finish moves the slot to a terminal state. Exactly one caller wins;
// every later attempt is a no-op.
func (o *Operation) finish(s State, err error) bool {
	o.mu.Lock()
	if o.state == Resolved || o.state == Cancelled {
		o.mu.Unlock()
		return false
	}
	o.state = s
	o.err = err
	o.mu.Unlock()

	close(o.done)
	return true
}

// Wait blocks until the operation reaches a terminal state or ctx
// expires. On ctx expiry the native registration is cancelled and the
// ctx error is returned; a callback firing afterwards finds a terminal
// slot and has no observable effect.
func (o *Operation) Wait(ctx context.Context) error {
	select {
	case <-o.done:
		return o.Err()
	case <-ctx.Done():
		o.abandon()
		return ctx.Err()
	}
}

// Done returns a channel closed when the operation reaches a terminal
// state.
func (o *Operation) Done() <-chan struct{} {
	return o.done
}

// Cancel abandons the operation: the native callback is deregistered
// and the slot moves to Cancelled with paerr.ErrCancelled, unless it
// already resolved. Safe from any goroutine, safe to repeat.
func (o *Operation) Cancel() {
	o.abandon()
}

func (o *Operation) abandon() {
	if o.finish(Cancelled, paerr.ErrCancelled) && o.raw != nil {
		// Deregister outside the slot lock; the native side may deliver
		// its own cancellation state change synchronously.
		o.raw.Cancel()
	}
}

// State returns the current slot state.
func (o *Operation) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Err returns the terminal error: nil after Resolved, the cancellation
// or kill reason after Cancelled. Before a terminal state it returns
// nil; use Done or Wait to synchronize.
func (o *Operation) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}

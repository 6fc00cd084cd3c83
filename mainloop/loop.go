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

// Package mainloop implements the dispatch loop that drives native
// binding callbacks.
//
// The loop is an explicit driver: the embedding application steps it
// with Iterate or runs it with Run. Nothing here starts a goroutine
// behind the caller's back; Threaded exists for applications that want
// the loop on a dedicated goroutine and says so in its name.
//
// All callbacks posted to one Loop run on whichever goroutine is
// iterating it, one at a time, in posting order.
package mainloop

import (
	"errors"
	"sync"
	"time"

	"github.com/eapache/queue"
)

// ErrLoopQuit is returned by Iterate and Run once Quit has been called
// and all previously posted callbacks have been dispatched.
var ErrLoopQuit = errors.New("mainloop has quit")

// Loop is a FIFO dispatch loop. The zero value is not usable; call New.
type Loop struct {
	mu      sync.Mutex
	pending *queue.Queue // of func(); guarded by mu
	quitted bool
	quitErr error

	wake chan struct{}
	quit chan struct{}
}

// New creates an idle loop.
func New() *Loop {
	return &Loop{
		pending: queue.New(),
		wake:    make(chan struct{}, 1),
		quit:    make(chan struct{}),
	}
}

// Post enqueues fn for dispatch by the iterating goroutine. Safe to call
// from any goroutine, including from a callback already running on the
// loop. Posts after Quit are dropped.
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}

	l.mu.Lock()
	if l.quitted {
		l.mu.Unlock()
		return
	}
	l.pending.Add(fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// PostAfter arranges for fn to be posted to the loop after d elapses.
// The returned timer can stop the posting as long as it has not
// happened yet.
func (l *Loop) PostAfter(d time.Duration, fn func()) *Timer {
	t := &Timer{loop: l, fn: fn}
	t.timer = time.AfterFunc(d, t.fire)
	return t
}

// Iterate dispatches the currently queued callbacks and returns how many
// ran. With block set and nothing queued, it sleeps until a callback is
// posted or the loop quits. Once the loop has quit and the queue is
// drained it returns ErrLoopQuit.
func (l *Loop) Iterate(block bool) (int, error) {
	for {
		l.mu.Lock()
		n := l.pending.Length()
		if n > 0 {
			batch := make([]func(), 0, n)
			for l.pending.Length() > 0 {
				batch = append(batch, l.pending.Remove().(func()))
			}
			l.mu.Unlock()

			for _, fn := range batch {
				fn()
			}
			return len(batch), nil
		}
		quitted := l.quitted
		l.mu.Unlock()

		if quitted {
			return 0, ErrLoopQuit
		}
		if !block {
			return 0, nil
		}

		select {
		case <-l.wake:
		case <-l.quit:
		}
	}
}

// Run iterates until Quit is called, then returns the error passed to
// Quit. Callbacks posted before Quit are dispatched before Run returns.
func (l *Loop) Run() error {
	for {
		if _, err := l.Iterate(true); err != nil {
			if errors.Is(err, ErrLoopQuit) {
				l.mu.Lock()
				quitErr := l.quitErr
				l.mu.Unlock()
				return quitErr
			}
			return err
		}
	}
}

// Quit makes the loop wind down. The first call wins; later calls are
// no-ops. err becomes the return value of Run and may be nil.
func (l *Loop) Quit(err error) {
	l.mu.Lock()
	if l.quitted {
		l.mu.Unlock()
		return
	}
	l.quitted = true
	l.quitErr = err
	l.mu.Unlock()

	close(l.quit)
}

// Quitted reports whether Quit has been called.
func (l *Loop) Quitted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.quitted
}

// Timer is a pending deferred post created by PostAfter.
type Timer struct {
	loop *Loop
	fn   func()

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
	fired   bool
}

func (t *Timer) fire() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.fired = true
	t.mu.Unlock()

	t.loop.Post(t.fn)
}

// Stop prevents the deferred post. It reports false when the callback
// was already handed to the loop.
func (t *Timer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.fired {
		return false
	}
	t.stopped = true
	t.timer.Stop()
	return true
}

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

package operation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundwire/pabridge/native"
	"github.com/soundwire/pabridge/paerr"
)

// stubOp is a hand-driven native.Operation for exercising the slot
// without a mainloop.
type stubOp struct {
	mu      sync.Mutex
	state   native.OpState
	cb      func()
	cancels int
}

func (s *stubOp) State() native.OpState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *stubOp) SetStateCallback(cb func()) {
	s.mu.Lock()
	s.cb = cb
	terminal := s.state != native.OpRunning
	s.mu.Unlock()

	if terminal && cb != nil {
		cb()
	}
}

func (s *stubOp) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancels++
}

// fire moves the stub to a terminal state and invokes the installed
// callback, the way a binding does from its mainloop.
func (s *stubOp) fire(st native.OpState) {
	s.mu.Lock()
	s.state = st
	cb := s.cb
	s.mu.Unlock()

	if cb != nil {
		cb()
	}
}

func (s *stubOp) cancelCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancels
}

// TestWatchResolve tests the callback-first path.
func TestWatchResolve(t *testing.T) {
	t.Run("done_resolves_slot", func(t *testing.T) {
		raw := &stubOp{}
		op := Watch(raw)
		assert.Equal(t, Registered, op.State())

		raw.fire(native.OpDone)

		assert.Equal(t, Resolved, op.State())
		assert.NoError(t, op.Err())
		require.NoError(t, op.Wait(context.Background()), "waiting on a resolved slot should return immediately")
	})

	t.Run("terminal_before_watch_not_missed", func(t *testing.T) {
		raw := &stubOp{state: native.OpDone}
		op := Watch(raw)

		assert.Equal(t, Resolved, op.State(), "a handle that completed before Watch should be observed")
		assert.NoError(t, op.Wait(context.Background()))
	})

	t.Run("server_kill_maps_to_killed", func(t *testing.T) {
		raw := &stubOp{}
		op := Watch(raw)

		raw.fire(native.OpCancelled)

		assert.Equal(t, Cancelled, op.State())
		err := op.Wait(context.Background())
		code, ok := paerr.AsCode(err)
		require.True(t, ok, "a server-side kill should carry a native code")
		assert.Equal(t, paerr.CodeKilled, code)
	})

	t.Run("nil_handle_is_terminal", func(t *testing.T) {
		op := Watch(nil)
		assert.Equal(t, Unregistered, op.State())
		assert.ErrorIs(t, op.Wait(context.Background()), paerr.ErrBridgeInternal)
	})
}

// TestCancel tests the caller-abandons-first path.
func TestCancel(t *testing.T) {
	t.Run("cancel_before_fire", func(t *testing.T) {
		raw := &stubOp{}
		op := Watch(raw)

		op.Cancel()

		assert.Equal(t, Cancelled, op.State())
		assert.ErrorIs(t, op.Err(), paerr.ErrCancelled)
		assert.Equal(t, 1, raw.cancelCount(), "cancel should deregister the native handle")
	})

	t.Run("late_fire_is_noop", func(t *testing.T) {
		raw := &stubOp{}
		op := Watch(raw)

		op.Cancel()
		raw.fire(native.OpDone)

		assert.Equal(t, Cancelled, op.State(), "a callback after cancellation should not change the outcome")
		assert.ErrorIs(t, op.Err(), paerr.ErrCancelled)
	})

	t.Run("cancel_after_resolve_is_noop", func(t *testing.T) {
		raw := &stubOp{}
		op := Watch(raw)

		raw.fire(native.OpDone)
		op.Cancel()

		assert.Equal(t, Resolved, op.State(), "cancelling a resolved slot should not change the outcome")
		assert.NoError(t, op.Err())
		assert.Zero(t, raw.cancelCount(), "a resolved slot should not deregister anything")
	})

	t.Run("repeated_cancel_is_safe", func(t *testing.T) {
		raw := &stubOp{}
		op := Watch(raw)

		op.Cancel()
		op.Cancel()
		op.Cancel()

		assert.Equal(t, 1, raw.cancelCount(), "only the winning cancel should reach the native handle")
	})
}

// TestWait tests context-bounded waiting.
func TestWait(t *testing.T) {
	t.Run("ctx_expiry_abandons", func(t *testing.T) {
		raw := &stubOp{}
		op := Watch(raw)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		err := op.Wait(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Equal(t, Cancelled, op.State(), "ctx expiry should abandon the pending operation")
		assert.Equal(t, 1, raw.cancelCount())
	})

	t.Run("done_channel_closes_on_resolution", func(t *testing.T) {
		raw := &stubOp{}
		op := Watch(raw)

		select {
		case <-op.Done():
			t.Fatal("done channel closed before resolution")
		default:
		}

		raw.fire(native.OpDone)

		select {
		case <-op.Done():
		default:
			t.Fatal("done channel still open after resolution")
		}
	})

	t.Run("wait_unblocks_on_fire", func(t *testing.T) {
		raw := &stubOp{}
		op := Watch(raw)

		errCh := make(chan error, 1)
		go func() { errCh <- op.Wait(context.Background()) }()

		time.Sleep(5 * time.Millisecond)
		raw.fire(native.OpDone)

		select {
		case err := <-errCh:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("Wait never returned after the callback fired")
		}
	})
}

// TestResolutionRace tests that racing cancellation and callback
// delivery always produces exactly one terminal outcome.
func TestResolutionRace(t *testing.T) {
	for i := 0; i < 200; i++ {
		raw := &stubOp{}
		op := Watch(raw)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			op.Cancel()
		}()
		go func() {
			defer wg.Done()
			raw.fire(native.OpDone)
		}()
		wg.Wait()

		st := op.State()
		require.Contains(t, []State{Resolved, Cancelled}, st, "slot must land in a terminal state")
		if st == Resolved {
			require.NoError(t, op.Err())
		} else {
			require.ErrorIs(t, op.Err(), paerr.ErrCancelled)
		}

		// The winner already closed done; Wait must not block.
		require.NotPanics(t, func() { _ = op.Wait(context.Background()) })
	}
}

// TestStateString covers the state names used in logs.
func TestStateString(t *testing.T) {
	assert.Equal(t, "unregistered", Unregistered.String())
	assert.Equal(t, "registered", Registered.String())
	assert.Equal(t, "resolved", Resolved.String())
	assert.Equal(t, "cancelled", Cancelled.String())
	assert.Equal(t, "unknown", State(42).String())
}

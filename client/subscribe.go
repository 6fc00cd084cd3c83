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

package client

import (
	"context"
	"sync"

	"github.com/soundwire/pabridge/native"
)

// Event is one server-side entity change delivered to a subscription.
type Event struct {
	Facility native.EventFacility
	Type     native.EventType
	Index    uint32
}

// defaultEventBuffer is the subscription channel capacity. Events
// arriving while the channel is full are dropped and counted; the
// mainloop is never blocked on a slow consumer.
const defaultEventBuffer = 64

// Subscription is an active server event subscription. The native
// layer fires its event callback once per change; each firing becomes
// one item on the Events channel, never a one-shot resolution.
type Subscription struct {
	c  *Client
	ch chan Event

	mu      sync.Mutex
	closed  bool
	dropped uint64
}

// Subscribe asks the server for change events on the facilities in
// mask. It returns once the server acknowledged the subscription.
func (c *Client) Subscribe(ctx context.Context, mask native.SubscriptionMask) (*Subscription, error) {
	sub := &Subscription{
		c:  c,
		ch: make(chan Event, defaultEventBuffer),
	}
	c.nc.SetEventCallback(sub.deliver)

	err := c.await(ctx, func(cb native.SuccessCallback) (native.Operation, error) {
		return c.nc.Subscribe(mask, cb)
	})
	if err != nil {
		c.nc.SetEventCallback(nil)
		return nil, err
	}
	return sub, nil
}

// deliver runs on the mainloop goroutine.
func (s *Subscription) deliver(facility native.EventFacility, typ native.EventType, index uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	select {
	case s.ch <- Event{Facility: facility, Type: typ, Index: index}:
	default:
		s.dropped++
	}
}

// Events returns the channel the subscription's events arrive on. The
// channel is closed by Close.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Dropped returns how many events were discarded because the channel
// was full.
func (s *Subscription) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Close stops event delivery and closes the Events channel. The
// server-side mask reset is fire-and-forget: a late acknowledgement
// lands in an abandoned slot with no observable effect.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.c.nc.SetEventCallback(nil)
	// Best-effort mask reset; the acknowledgement is intentionally
	// unobserved.
	_, _ = s.c.nc.Subscribe(native.SubscriptionMaskNull, nil)
	close(s.ch)
}

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

// Package client exposes the sound-server operations as plain calls
// that block until the server answers or the context gives up.
//
// Every method mirrors one callback-registering operation of the native
// binding one-to-one; the callback plumbing, completion slots and
// cancellation are handled here so callers never see a callback.
package client

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/soundwire/pabridge/mainloop"
	"github.com/soundwire/pabridge/native"
	"github.com/soundwire/pabridge/operation"
	"github.com/soundwire/pabridge/paerr"
)

// Client wraps a native binding client with an awaitable surface.
// Methods are safe to call from any goroutine except the mainloop
// goroutine itself: awaiting from inside a callback would deadlock the
// loop that has to deliver the completion.
type Client struct {
	nc   native.Client
	loop *mainloop.Loop
}

// New wraps an already-constructed binding client.
func New(loop *mainloop.Loop, nc native.Client) *Client {
	return &Client{nc: nc, loop: loop}
}

// Open constructs a client from a registered binding by name.
func Open(binding string, loop *mainloop.Loop) (*Client, error) {
	nc, err := native.Open(binding, loop)
	if err != nil {
		return nil, err
	}
	return New(loop, nc), nil
}

// Native returns the wrapped binding client for operations the bridge
// does not cover.
func (c *Client) Native() native.Client {
	return c.nc
}

// Connect connects to the named server, or the default server when
// server is empty. It returns once the connection is ready. A
// synchronous rejection surfaces as paerr.ErrRegistration; an
// asynchronous failure surfaces as the server's errno; ctx expiry tears
// the attempt down and returns the ctx error.
func (c *Client) Connect(ctx context.Context, server string, flags native.ConnectFlags) error {
	if c.nc.ContextState() == native.ContextReady {
		return nil
	}

	// Buffered deep enough for the full state ladder; the callback must
	// never block the loop.
	states := make(chan native.ContextState, 8)
	c.nc.SetStateCallback(func() {
		select {
		case states <- c.nc.ContextState():
		default:
		}
	})

	if err := c.nc.Connect(server, flags); err != nil {
		c.nc.SetStateCallback(nil)
		return paerr.Registration(err)
	}

	for {
		select {
		case <-ctx.Done():
			c.nc.SetStateCallback(nil)
			c.nc.Disconnect()
			return ctx.Err()
		case s := <-states:
			switch s {
			case native.ContextReady:
				c.nc.SetStateCallback(nil)
				return nil
			case native.ContextFailed, native.ContextTerminated:
				c.nc.SetStateCallback(nil)
				if err := c.nc.Errno(); err != nil {
					return fmt.Errorf("connect: %w", err)
				}
				return fmt.Errorf("connect: %w", paerr.FromCode(paerr.CodeConnectionTerminated))
			}
		}
	}
}

// Disconnect terminates the connection immediately.
func (c *Client) Disconnect() {
	c.nc.Disconnect()
}

// await runs one success-callback operation to completion: register,
// wait for the slot to resolve, then translate an unsuccessful outcome
// into the server's errno. This is the single shape every such
// operation shares.
func (c *Client) await(ctx context.Context, register func(cb native.SuccessCallback) (native.Operation, error)) error {
	var success atomic.Bool
	raw, err := register(func(ok bool) {
		success.Store(ok)
	})
	if err != nil {
		return paerr.Registration(err)
	}

	op := operation.Watch(raw)
	if err := op.Wait(ctx); err != nil {
		return err
	}
	if !success.Load() {
		if err := c.nc.Errno(); err != nil {
			return err
		}
		return paerr.FromCode(paerr.CodeInternal)
	}
	return nil
}

// State returns the current connection state.
func (c *Client) State() native.ContextState {
	return c.nc.ContextState()
}

// IsPending reports whether data is still queued to be written to the
// connection.
func (c *Client) IsPending() bool {
	return c.nc.IsPending()
}

// IsLocal reports whether the connection is to a local daemon; ok is
// false before a connection exists.
func (c *Client) IsLocal() (local, ok bool) {
	return c.nc.IsLocal()
}

// Server returns the name of the connected server.
func (c *Client) Server() string {
	return c.nc.Server()
}

// ProtocolVersion returns the binding's protocol version.
func (c *Client) ProtocolVersion() uint32 {
	return c.nc.ProtocolVersion()
}

// ServerProtocolVersion returns the server's protocol version; ok is
// false when not connected.
func (c *Client) ServerProtocolVersion() (uint32, bool) {
	return c.nc.ServerProtocolVersion()
}

// Index returns the client index the server assigned to this
// connection; ok is false when not connected.
func (c *Client) Index() (uint32, bool) {
	return c.nc.Index()
}

// TileSize returns the optimal audio buffer size in bytes for the given
// sample spec.
func (c *Client) TileSize(spec native.SampleSpec) int {
	return c.nc.TileSize(spec)
}

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

// Package native declares the surface the bridge consumes from a
// callback-driven sound-server client binding.
//
// The bridge does not implement the server protocol; a binding does.
// Bindings register themselves with Register (typically from an init
// function) and are opened by name, the same way database/sql drivers
// plug in. The in-memory test binding lives in native/nativetest.
package native

// Callbacks are invoked from the mainloop goroutine that drives the
// binding, never concurrently with each other, and must not block.
// Slices and structs passed to a callback may be reused by the binding
// after the callback returns; copy anything retained.
type (
	// SuccessCallback reports whether a server-side operation succeeded.
	SuccessCallback func(success bool)

	// StateCallback signals that the connection state changed; the new
	// state is read back with Client.ContextState.
	StateCallback func()

	// EventCallback delivers one subscription event per invocation.
	EventCallback func(facility EventFacility, typ EventType, index uint32)

	// ServerInfoCallback delivers the server information record, or nil
	// when the query failed.
	ServerInfoCallback func(info *ServerInfo)
)

// Operation is a cancellable handle to work in flight on the server.
// State transitions are reported through the state callback, which fires
// on the mainloop goroutine.
type Operation interface {
	// State returns the current operation state.
	State() OpState

	// Cancel deregisters the operation's callback. The operation moves
	// to OpCancelled unless it already reached a terminal state. Safe to
	// call from any goroutine and safe to call more than once.
	Cancel()

	// SetStateCallback installs the callback invoked on every state
	// change. Passing nil clears it. If the operation is already
	// terminal the callback is still invoked once, so installers never
	// miss the transition.
	SetStateCallback(cb func())
}

// Client is the callback-registering operation surface of the wrapped
// sound-server binding. Every asynchronous method installs the given
// callback and returns an Operation handle; a non-nil error means the
// registration itself was rejected and no callback will ever fire.
type Client interface {
	// Connect starts connecting to the named server, or to the default
	// server when server is empty. Progress is reported through the
	// state callback.
	Connect(server string, flags ConnectFlags) error

	// Disconnect terminates the connection immediately.
	Disconnect()

	// SetStateCallback installs the connection state change callback.
	SetStateCallback(cb StateCallback)

	// SetEventCallback installs the subscription event callback.
	SetEventCallback(cb EventCallback)

	// ContextState returns the current connection state.
	ContextState() ContextState

	// Errno returns the last failure reported by the server, as a
	// paerr.*Error, or nil if none.
	Errno() error

	PlaySample(name, dev string, volume Volume, cb SuccessCallback) (Operation, error)
	PlaySampleWithProplist(name, dev string, volume Volume, pl *Proplist, cb SuccessCallback) (Operation, error)
	RemoveSample(name string, cb SuccessCallback) (Operation, error)
	UploadSample(name string, spec SampleSpec, data []int16, cb SuccessCallback) (Operation, error)
	ExitDaemon(cb SuccessCallback) (Operation, error)
	SetDefaultSink(name string, cb SuccessCallback) (Operation, error)
	SetDefaultSource(name string, cb SuccessCallback) (Operation, error)
	SetName(name string, cb SuccessCallback) (Operation, error)
	ProplistUpdate(mode UpdateMode, pl *Proplist, cb SuccessCallback) (Operation, error)
	ProplistRemove(keys []string, cb SuccessCallback) (Operation, error)
	Subscribe(mask SubscriptionMask, cb SuccessCallback) (Operation, error)
	GetServerInfo(cb ServerInfoCallback) (Operation, error)

	// IsPending reports whether data is still queued to be written to
	// the connection.
	IsPending() bool

	// IsLocal reports whether the connection is to a local daemon.
	// ok is false when no connection has been made yet.
	IsLocal() (local, ok bool)

	// Server returns the name of the connected server, or "" when not
	// connected.
	Server() string

	// ProtocolVersion returns the protocol version of the binding.
	ProtocolVersion() uint32

	// ServerProtocolVersion returns the protocol version of the server,
	// ok is false when not connected.
	ServerProtocolVersion() (version uint32, ok bool)

	// Index returns the client index the server assigned to this
	// connection, ok is false when not connected.
	Index() (index uint32, ok bool)

	// TileSize returns the optimal buffer size in bytes for the given
	// sample spec, rounded down to a multiple of the frame size. A zero
	// spec yields the byte-exact tile size.
	TileSize(spec SampleSpec) int
}

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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundwire/pabridge/mainloop"
	"github.com/soundwire/pabridge/native"
	"github.com/soundwire/pabridge/native/nativetest"
	"github.com/soundwire/pabridge/paerr"
)

// newTestClient wires a fake binding onto a running threaded loop.
func newTestClient(t *testing.T) (*Client, *nativetest.Fake) {
	t.Helper()

	loop := mainloop.NewThreaded()
	require.NoError(t, loop.Start(), "the test loop should start")
	t.Cleanup(func() { _ = loop.Stop() })

	fake := nativetest.New(loop.Loop)
	return New(loop.Loop, fake), fake
}

// connectReady connects a test client and requires success.
func connectReady(t *testing.T, c *Client) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx, "", native.ConnectNoFlags))
}

// opCtx returns a context generous enough for fake operations.
func opCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// TestConnect tests connection establishment.
func TestConnect(t *testing.T) {
	t.Run("reaches_ready", func(t *testing.T) {
		c, _ := newTestClient(t)
		connectReady(t, c)

		assert.Equal(t, native.ContextReady, c.State())
		assert.Equal(t, "fake.local", c.Server())
		assert.NotZero(t, c.ProtocolVersion())

		_, ok := c.ServerProtocolVersion()
		assert.True(t, ok)
		_, ok = c.Index()
		assert.True(t, ok)

		local, ok := c.IsLocal()
		assert.True(t, ok)
		assert.True(t, local)
		assert.False(t, c.IsPending())
	})

	t.Run("already_connected_is_noop", func(t *testing.T) {
		c, _ := newTestClient(t)
		connectReady(t, c)
		assert.NoError(t, c.Connect(opCtx(t), "", native.ConnectNoFlags))
	})

	t.Run("synchronous_rejection", func(t *testing.T) {
		c, fake := newTestClient(t)
		rejection := errors.New("binding refused")
		fake.SetConnectRejection(rejection)

		err := c.Connect(opCtx(t), "", native.ConnectNoFlags)
		assert.ErrorIs(t, err, paerr.ErrRegistration, "a synchronous rejection should surface as a registration error")
		assert.ErrorIs(t, err, rejection)
	})

	t.Run("asynchronous_failure_surfaces_errno", func(t *testing.T) {
		c, fake := newTestClient(t)
		fake.SetConnectFailure(paerr.CodeConnectionRefused)

		err := c.Connect(opCtx(t), "", native.ConnectNoFlags)
		require.Error(t, err)
		code, ok := paerr.AsCode(err)
		require.True(t, ok, "the failure should carry the server errno")
		assert.Equal(t, paerr.CodeConnectionRefused, code)
	})

	t.Run("ctx_expiry_tears_down", func(t *testing.T) {
		// A loop nobody drives: the state ladder never delivers, so only
		// the context can end the wait.
		loop := mainloop.New()
		fake := nativetest.New(loop)
		c := New(loop, fake)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := c.Connect(ctx, "", native.ConnectNoFlags)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("disconnect_after_ready", func(t *testing.T) {
		c, _ := newTestClient(t)
		connectReady(t, c)

		c.Disconnect()
		require.Eventually(t, func() bool {
			return c.State() == native.ContextTerminated
		}, 2*time.Second, 5*time.Millisecond, "disconnect should reach the terminated state")
	})
}

// TestOperations tests the awaitable operation surface.
func TestOperations(t *testing.T) {
	t.Run("requires_connection", func(t *testing.T) {
		c, _ := newTestClient(t)

		err := c.PlaySample(opCtx(t), "bell", "", native.VolumeInvalid)
		assert.ErrorIs(t, err, paerr.ErrRegistration)
		assert.ErrorIs(t, err, paerr.ErrNotConnected)
	})

	t.Run("upload_play_remove_roundtrip", func(t *testing.T) {
		c, fake := newTestClient(t)
		connectReady(t, c)

		spec := native.SampleSpec{Format: native.FormatS16LE, Rate: 8000, Channels: 1}
		require.NoError(t, c.UploadSample(opCtx(t), "clip", spec, []int16{1, 2, 3, 4}))
		assert.True(t, fake.HasSample("clip"))

		require.NoError(t, c.PlaySample(opCtx(t), "clip", "speakers", native.VolumeNorm))
		played := fake.Played()
		require.Len(t, played, 1)
		assert.Equal(t, "clip", played[0].Name)
		assert.Equal(t, "speakers", played[0].Dev)

		require.NoError(t, c.RemoveSample(opCtx(t), "clip"))
		assert.False(t, fake.HasSample("clip"))
	})

	t.Run("play_with_proplist", func(t *testing.T) {
		c, fake := newTestClient(t)
		connectReady(t, c)
		fake.AddSample("bell", native.SampleSpec{Format: native.FormatS16LE, Rate: 44100, Channels: 1}, []int16{0})

		pl := native.NewProplist()
		pl.Set(native.PropMediaRole, "event")
		require.NoError(t, c.PlaySampleWithProplist(opCtx(t), "bell", "", native.VolumeInvalid, pl))

		played := fake.Played()
		require.Len(t, played, 1)
		require.NotNil(t, played[0].Proplist)
		role, _ := played[0].Proplist.Get(native.PropMediaRole)
		assert.Equal(t, "event", role)
	})

	t.Run("server_failure_surfaces_errno", func(t *testing.T) {
		c, _ := newTestClient(t)
		connectReady(t, c)

		err := c.PlaySample(opCtx(t), "no-such-sample", "", native.VolumeInvalid)
		require.Error(t, err)
		code, ok := paerr.AsCode(err)
		require.True(t, ok)
		assert.Equal(t, paerr.CodeNoEntity, code)
	})

	t.Run("injected_failure_surfaces_errno", func(t *testing.T) {
		c, fake := newTestClient(t)
		connectReady(t, c)
		fake.FailNext(nativetest.OpDefaultSink, paerr.CodeAccess)

		err := c.SetDefaultSink(opCtx(t), "usb")
		code, ok := paerr.AsCode(err)
		require.True(t, ok)
		assert.Equal(t, paerr.CodeAccess, code)

		// The injection is one-shot; the retry lands.
		require.NoError(t, c.SetDefaultSink(opCtx(t), "usb"))
		assert.Equal(t, "usb", fake.DefaultSink())
	})

	t.Run("registration_error_surfaces", func(t *testing.T) {
		c, fake := newTestClient(t)
		connectReady(t, c)

		regErr := errors.New("registration refused")
		fake.SetRegistrationError(nativetest.OpSetName, regErr)

		err := c.SetName(opCtx(t), "app")
		assert.ErrorIs(t, err, paerr.ErrRegistration)
		assert.ErrorIs(t, err, regErr)
	})

	t.Run("ctx_timeout_abandons_pending_op", func(t *testing.T) {
		c, fake := newTestClient(t)
		connectReady(t, c)
		fake.SetHold(true)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()

		err := c.SetDefaultSource(ctx, "mic")
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		// The late delivery must not blow up or resolve the abandoned
		// slot; the server-side effect itself stands, only the
		// notification is gone.
		fake.SetHold(false)
		fake.ReleaseHeld()
		require.NoError(t, c.SetName(opCtx(t), "sync-point"))
		assert.Equal(t, "mic", fake.DefaultSource())
	})

	t.Run("set_name_and_defaults", func(t *testing.T) {
		c, fake := newTestClient(t)
		connectReady(t, c)

		require.NoError(t, c.SetName(opCtx(t), "my-app"))
		assert.Equal(t, "my-app", fake.ClientName())

		require.NoError(t, c.SetDefaultSource(opCtx(t), "array-mic"))
		assert.Equal(t, "array-mic", fake.DefaultSource())
	})

	t.Run("proplist_update_and_remove", func(t *testing.T) {
		c, fake := newTestClient(t)
		connectReady(t, c)

		pl := native.NewProplist()
		pl.Set(native.PropApplicationName, "pabridge-test")
		pl.Set(native.PropMediaRole, "music")
		require.NoError(t, c.ProplistUpdate(opCtx(t), native.UpdateReplace, pl))
		assert.Equal(t, 2, fake.ClientProplist().Len())

		require.NoError(t, c.ProplistRemove(opCtx(t), native.PropMediaRole))
		_, ok := fake.ClientProplist().Get(native.PropMediaRole)
		assert.False(t, ok)

		// Removing an absent key is a server-side failure.
		err := c.ProplistRemove(opCtx(t), "never-set")
		code, ok := paerr.AsCode(err)
		require.True(t, ok)
		assert.Equal(t, paerr.CodeNoEntity, code)
	})

	t.Run("exit_daemon", func(t *testing.T) {
		c, _ := newTestClient(t)
		connectReady(t, c)

		assert.True(t, c.ExitDaemon(opCtx(t)), "the fake daemon should acknowledge the exit")
		require.Eventually(t, func() bool {
			return c.State() == native.ContextTerminated
		}, 2*time.Second, 5*time.Millisecond)
	})

	t.Run("exit_daemon_not_connected", func(t *testing.T) {
		c, _ := newTestClient(t)
		assert.False(t, c.ExitDaemon(opCtx(t)))
	})
}

// TestServerInfo tests the info query.
func TestServerInfo(t *testing.T) {
	t.Run("returns_record", func(t *testing.T) {
		c, fake := newTestClient(t)
		connectReady(t, c)

		info, err := c.ServerInfo(opCtx(t))
		require.NoError(t, err)
		assert.Equal(t, "fake.local", info.ServerName)
		assert.Equal(t, fake.DefaultSink(), info.DefaultSinkName)
		assert.True(t, info.SampleSpec.Valid())
	})

	t.Run("not_connected", func(t *testing.T) {
		c, _ := newTestClient(t)

		_, err := c.ServerInfo(opCtx(t))
		assert.ErrorIs(t, err, paerr.ErrRegistration)
	})

	t.Run("ctx_timeout", func(t *testing.T) {
		c, fake := newTestClient(t)
		connectReady(t, c)
		fake.SetHold(true)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()

		_, err := c.ServerInfo(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

// TestOpenBinding tests constructing a client through the registry.
func TestOpenBinding(t *testing.T) {
	loop := mainloop.New()

	c, err := Open(nativetest.BindingName, loop)
	require.NoError(t, err)
	assert.NotNil(t, c.Native(), "the wrapped binding client should be reachable")

	_, err = Open("no-such-binding", loop)
	assert.Error(t, err)
}

// TestTileSize tests the buffer hint delegation.
func TestTileSize(t *testing.T) {
	c, _ := newTestClient(t)
	spec := native.SampleSpec{Format: native.FormatS16LE, Rate: 44100, Channels: 2}
	assert.Zero(t, c.TileSize(spec)%spec.FrameSize())
}

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

	"github.com/soundwire/pabridge/native"
	"github.com/soundwire/pabridge/operation"
	"github.com/soundwire/pabridge/paerr"
)

// PlaySample plays a sample from the sample cache on the named sink,
// or the default sink when dev is empty. native.VolumeInvalid leaves
// the volume decision to the server, which is usually what you want.
func (c *Client) PlaySample(ctx context.Context, name, dev string, volume native.Volume) error {
	return c.await(ctx, func(cb native.SuccessCallback) (native.Operation, error) {
		return c.nc.PlaySample(name, dev, volume, cb)
	})
}

// PlaySampleWithProplist plays a cached sample with extra stream
// properties merged into the cached entry's property list.
func (c *Client) PlaySampleWithProplist(ctx context.Context, name, dev string, volume native.Volume, pl *native.Proplist) error {
	return c.await(ctx, func(cb native.SuccessCallback) (native.Operation, error) {
		return c.nc.PlaySampleWithProplist(name, dev, volume, pl, cb)
	})
}

// RemoveSample removes a sample from the sample cache.
func (c *Client) RemoveSample(ctx context.Context, name string) error {
	return c.await(ctx, func(cb native.SuccessCallback) (native.Operation, error) {
		return c.nc.RemoveSample(name, cb)
	})
}

// UploadSample stores PCM data in the server's sample cache under the
// given name, to be played later with PlaySample.
func (c *Client) UploadSample(ctx context.Context, name string, spec native.SampleSpec, data []int16) error {
	return c.await(ctx, func(cb native.SuccessCallback) (native.Operation, error) {
		return c.nc.UploadSample(name, spec, data, cb)
	})
}

// SetDefaultSink makes the named sink the server default.
func (c *Client) SetDefaultSink(ctx context.Context, name string) error {
	return c.await(ctx, func(cb native.SuccessCallback) (native.Operation, error) {
		return c.nc.SetDefaultSink(name, cb)
	})
}

// SetDefaultSource makes the named source the server default.
func (c *Client) SetDefaultSource(ctx context.Context, name string) error {
	return c.await(ctx, func(cb native.SuccessCallback) (native.Operation, error) {
		return c.nc.SetDefaultSource(name, cb)
	})
}

// SetName sets a different application name for this client on the
// server.
func (c *Client) SetName(ctx context.Context, name string) error {
	return c.await(ctx, func(cb native.SuccessCallback) (native.Operation, error) {
		return c.nc.SetName(name, cb)
	})
}

// ProplistUpdate updates the client's property list on the server.
func (c *Client) ProplistUpdate(ctx context.Context, mode native.UpdateMode, pl *native.Proplist) error {
	return c.await(ctx, func(cb native.SuccessCallback) (native.Operation, error) {
		return c.nc.ProplistUpdate(mode, pl, cb)
	})
}

// ProplistRemove removes the entries with the given keys from the
// client's property list.
func (c *Client) ProplistRemove(ctx context.Context, keys ...string) error {
	return c.await(ctx, func(cb native.SuccessCallback) (native.Operation, error) {
		return c.nc.ProplistRemove(keys, cb)
	})
}

// ExitDaemon tells the daemon to exit. The daemon usually dies before
// the success notification makes it back, so a missing or failed
// notification is reported as false rather than an error; bound the
// wait with the context.
func (c *Client) ExitDaemon(ctx context.Context) bool {
	var success bool
	err := c.await(ctx, func(cb native.SuccessCallback) (native.Operation, error) {
		return c.nc.ExitDaemon(func(ok bool) {
			success = ok
			cb(ok)
		})
	})
	return err == nil && success
}

// ServerInfo queries the server information record.
func (c *Client) ServerInfo(ctx context.Context) (*native.ServerInfo, error) {
	var info *native.ServerInfo
	raw, err := c.nc.GetServerInfo(func(si *native.ServerInfo) {
		info = si
	})
	if err != nil {
		return nil, paerr.Registration(err)
	}

	op := operation.Watch(raw)
	if err := op.Wait(ctx); err != nil {
		return nil, err
	}
	// info was written on the loop goroutine before the operation
	// resolved; the done channel ordering makes the read safe.
	if info == nil {
		if err := c.nc.Errno(); err != nil {
			return nil, err
		}
		return nil, paerr.FromCode(paerr.CodeNoData)
	}
	return info, nil
}

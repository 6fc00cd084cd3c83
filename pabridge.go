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

package pabridge

import (
	"context"

	"github.com/soundwire/pabridge/client"
	"github.com/soundwire/pabridge/mainloop"
	"github.com/soundwire/pabridge/native"
)

// Dial starts a threaded mainloop, opens the named binding on it and
// connects to the server. On success the caller owns the loop and must
// Stop it after disconnecting; on failure the loop is already stopped.
func Dial(ctx context.Context, binding, server string) (*client.Client, *mainloop.Threaded, error) {
	loop := mainloop.NewThreaded()
	if err := loop.Start(); err != nil {
		return nil, nil, err
	}

	c, err := client.Open(binding, loop.Loop)
	if err != nil {
		_ = loop.Stop()
		return nil, nil, err
	}

	if err := c.Connect(ctx, server, native.ConnectNoFlags); err != nil {
		_ = loop.Stop()
		return nil, nil, err
	}
	return c, loop, nil
}

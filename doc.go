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

// Package pabridge bridges a callback-driven sound-server client
// binding to a call-and-wait Go interface.
//
// The underlying binding exposes every server operation as "register a
// callback, get an operation handle"; its callbacks fire on a mainloop
// the application must drive. This module keeps that model intact and
// layers three things on top:
//
//   - mainloop: the explicit dispatch loop that delivers binding
//     callbacks, stepped or run by the embedding application.
//   - operation: the one-shot completion slot turning a callback firing
//     into something a goroutine can wait on, with safe cancellation in
//     both directions.
//   - client: the server operations as plain context-aware calls.
//
// # Quick start
//
//	loop := mainloop.NewThreaded()
//	_ = loop.Start()
//	defer loop.Stop()
//
//	c, err := client.Open("fake", loop.Loop)
//	if err != nil {
//		// no such binding registered
//	}
//	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
//	defer cancel()
//	if err := c.Connect(ctx, "", native.ConnectNoFlags); err != nil {
//		// server unreachable, or ctx expired
//	}
//	err = c.PlaySample(ctx, "bell", "", native.VolumeInvalid)
//
// Or use Dial, which wires the loop, binding and connection in one
// call.
//
// # Bindings
//
// Bindings implement native.Client and register themselves by name with
// native.Register, the way database/sql drivers do. The in-memory
// binding in native/nativetest ships registered as "fake" and backs the
// tests and demos.
//
// # Sample cache
//
// sndfile decodes WAV, MP3 and Ogg Vorbis files into the 16-bit PCM
// that client.UploadSample sends to the server's sample cache.
package pabridge

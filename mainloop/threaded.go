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

package mainloop

import "fmt"

// Threaded runs a Loop on a dedicated goroutine that it owns. Use it
// when the embedding application has no natural place to call Run; the
// goroutine is explicit in the type, not hidden behind a constructor.
type Threaded struct {
	*Loop

	started bool
	done    chan error
}

// NewThreaded creates a threaded loop. The goroutine starts with Start,
// not here.
func NewThreaded() *Threaded {
	return &Threaded{
		Loop: New(),
		done: make(chan error, 1),
	}
}

// Start launches the run goroutine. Starting twice is an error.
func (t *Threaded) Start() error {
	if t.started {
		return fmt.Errorf("threaded mainloop already started")
	}
	t.started = true

	go func() {
		t.done <- t.Run()
	}()
	return nil
}

// Stop quits the loop and waits for the run goroutine to drain and
// exit, returning whatever Run returned. Stopping a never-started loop
// quits it without waiting.
func (t *Threaded) Stop() error {
	t.Quit(nil)
	if !t.started {
		return nil
	}
	t.started = false
	return <-t.done
}

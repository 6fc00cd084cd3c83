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

package native

import (
	"fmt"
	"sort"
	"sync"

	"github.com/soundwire/pabridge/mainloop"
)

// OpenFunc constructs a binding client that dispatches its callbacks
// through the given mainloop.
type OpenFunc func(loop *mainloop.Loop) (Client, error)

var (
	bindingsMu sync.Mutex
	bindings   = make(map[string]OpenFunc)
)

// Register makes a binding available under the given name, typically
// from the binding package's init function. Registering twice under the
// same name panics, same as registering a nil opener.
func Register(name string, open OpenFunc) {
	bindingsMu.Lock()
	defer bindingsMu.Unlock()

	if open == nil {
		panic("native: Register with nil OpenFunc")
	}
	if _, dup := bindings[name]; dup {
		panic("native: Register called twice for binding " + name)
	}
	bindings[name] = open
}

// Open constructs a client from the named registered binding.
func Open(name string, loop *mainloop.Loop) (Client, error) {
	bindingsMu.Lock()
	open, ok := bindings[name]
	bindingsMu.Unlock()

	if !ok {
		return nil, fmt.Errorf("native: unknown binding %q (registered: %v)", name, Bindings())
	}
	return open(loop)
}

// Bindings returns the names of all registered bindings, sorted.
func Bindings() []string {
	bindingsMu.Lock()
	defer bindingsMu.Unlock()

	names := make([]string, 0, len(bindings))
	for name := range bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

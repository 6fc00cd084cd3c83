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

import "sort"

// Well-known property list keys.
const (
	PropApplicationName = "application.name"
	PropMediaName       = "media.name"
	PropMediaRole       = "media.role"
	PropEventID         = "event.id"
)

// UpdateMode controls how a proplist update merges into the existing
// list.
type UpdateMode int

const (
	// UpdateSet replaces the entire list.
	UpdateSet UpdateMode = iota
	// UpdateMerge adds entries that are not yet set.
	UpdateMerge
	// UpdateReplace adds new entries and overwrites existing ones.
	UpdateReplace
)

// Proplist is a string-keyed property list attached to clients, streams
// and cached samples. The zero value is not usable; call NewProplist.
type Proplist struct {
	entries map[string]string
}

// NewProplist returns an empty property list.
func NewProplist() *Proplist {
	return &Proplist{entries: make(map[string]string)}
}

// Set stores a key/value pair, overwriting any previous value.
func (p *Proplist) Set(key, value string) {
	p.entries[key] = value
}

// Get returns the value stored under key.
func (p *Proplist) Get(key string) (string, bool) {
	v, ok := p.entries[key]
	return v, ok
}

// Remove deletes the entry under key, reporting whether it existed.
func (p *Proplist) Remove(key string) bool {
	_, ok := p.entries[key]
	delete(p.entries, key)
	return ok
}

// Len returns the number of entries.
func (p *Proplist) Len() int {
	return len(p.entries)
}

// Keys returns the keys in sorted order.
func (p *Proplist) Keys() []string {
	keys := make([]string, 0, len(p.entries))
	for k := range p.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns an independent copy of the list.
func (p *Proplist) Clone() *Proplist {
	c := NewProplist()
	for k, v := range p.entries {
		c.entries[k] = v
	}
	return c
}

// Update merges other into p according to mode.
func (p *Proplist) Update(mode UpdateMode, other *Proplist) {
	if other == nil {
		return
	}
	switch mode {
	case UpdateSet:
		p.entries = make(map[string]string, other.Len())
		for k, v := range other.entries {
			p.entries[k] = v
		}
	case UpdateMerge:
		for k, v := range other.entries {
			if _, exists := p.entries[k]; !exists {
				p.entries[k] = v
			}
		}
	case UpdateReplace:
		for k, v := range other.entries {
			p.entries[k] = v
		}
	}
}

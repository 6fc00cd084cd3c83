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

// Package paerr defines the error taxonomy shared by the bridge and the
// wrapped native sound-server binding.
//
// Errors fall into two families: native failure codes reported by the
// server (Code wrapped in *Error) and bridge-side conditions (the Err*
// sentinels). Callers distinguish them with errors.Is / errors.As.
package paerr

import (
	"errors"
	"fmt"
)

// Code is a native sound-server failure code. The numbering follows the
// error code list of the wrapped binding.
type Code int

const (
	CodeOK Code = iota
	CodeAccess
	CodeCommand
	CodeInvalid
	CodeExist
	CodeNoEntity
	CodeConnectionRefused
	CodeProtocol
	CodeTimeout
	CodeInternal
	CodeConnectionTerminated
	CodeKilled
	CodeInvalidServer
	CodeBadState
	CodeNoData
)

var codeNames = map[Code]string{
	CodeOK:                   "ok",
	CodeAccess:               "access denied",
	CodeCommand:              "unknown command",
	CodeInvalid:              "invalid argument",
	CodeExist:                "entity exists",
	CodeNoEntity:             "no such entity",
	CodeConnectionRefused:    "connection refused",
	CodeProtocol:             "protocol error",
	CodeTimeout:              "timeout",
	CodeInternal:             "internal error",
	CodeConnectionTerminated: "connection terminated",
	CodeKilled:               "entity killed",
	CodeInvalidServer:        "invalid server",
	CodeBadState:             "bad state",
	CodeNoData:               "no data",
}

// String returns the human-readable description of the code.
func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("unknown error code %d", int(c))
}

// Error is a native operation failure carrying the server's error code.
type Error struct {
	Code Code
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("native error: %s", e.Code)
}

// FromCode wraps a native failure code as an error. CodeOK yields nil.
func FromCode(c Code) error {
	if c == CodeOK {
		return nil
	}
	return &Error{Code: c}
}

// AsCode extracts the native failure code from an error chain.
// Returns CodeOK and false when the chain carries no native code.
func AsCode(err error) (Code, bool) {
	var ne *Error
	if errors.As(err, &ne) {
		return ne.Code, true
	}
	return CodeOK, false
}

// Bridge-side conditions, distinguished from native failure codes.
var (
	// ErrCancelled is returned when the awaiting side abandoned a pending
	// operation before the native callback fired.
	ErrCancelled = errors.New("operation cancelled")

	// ErrRegistration is returned when the native layer rejected the
	// callback registration; no pending operation was ever created.
	ErrRegistration = errors.New("callback registration failed")

	// ErrNotConnected is returned for operations that require an
	// established server connection.
	ErrNotConnected = errors.New("not connected to server")

	// ErrBridgeInternal marks invariant violations inside the bridge
	// itself, as opposed to failures reported by the native layer.
	ErrBridgeInternal = errors.New("bridge internal error")
)

// Registration wraps a native registration rejection so that callers can
// match it with errors.Is(err, ErrRegistration) while keeping the cause.
func Registration(cause error) error {
	return fmt.Errorf("%w: %w", ErrRegistration, cause)
}

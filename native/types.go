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

// ContextState is the connection state of a client context.
type ContextState int

const (
	ContextUnconnected ContextState = iota
	ContextConnecting
	ContextAuthorizing
	ContextSettingName
	ContextReady
	ContextFailed
	ContextTerminated
)

// IsGood reports whether the context is connecting or connected.
func (s ContextState) IsGood() bool {
	switch s {
	case ContextConnecting, ContextAuthorizing, ContextSettingName, ContextReady:
		return true
	}
	return false
}

func (s ContextState) String() string {
	switch s {
	case ContextUnconnected:
		return "unconnected"
	case ContextConnecting:
		return "connecting"
	case ContextAuthorizing:
		return "authorizing"
	case ContextSettingName:
		return "setting name"
	case ContextReady:
		return "ready"
	case ContextFailed:
		return "failed"
	case ContextTerminated:
		return "terminated"
	}
	return "unknown"
}

// OpState is the state of a native operation handle.
type OpState int

const (
	// OpRunning means the operation is in flight.
	OpRunning OpState = iota
	// OpDone means the operation completed and its callback was invoked.
	OpDone
	// OpCancelled means the operation was cancelled before completion;
	// its callback will not be invoked.
	OpCancelled
)

func (s OpState) String() string {
	switch s {
	case OpRunning:
		return "running"
	case OpDone:
		return "done"
	case OpCancelled:
		return "cancelled"
	}
	return "unknown"
}

// ConnectFlags modify connection establishment.
type ConnectFlags int

const (
	// ConnectNoFlags is the default behavior.
	ConnectNoFlags ConnectFlags = 0
	// ConnectNoAutoSpawn forbids starting a daemon on demand.
	ConnectNoAutoSpawn ConnectFlags = 1 << iota
	// ConnectNoFail makes the binding keep trying instead of failing
	// when the daemon is not available.
	ConnectNoFail
)

// Volume is a playback volume. The scale is linear between VolumeMuted
// and VolumeNorm.
type Volume uint32

const (
	VolumeMuted Volume = 0
	VolumeNorm  Volume = 0x10000
	// VolumeInvalid leaves the volume decision to the server.
	VolumeInvalid Volume = ^Volume(0)
)

// SampleFormat identifies a PCM sample encoding.
type SampleFormat int

const (
	FormatS16LE SampleFormat = iota
	FormatS16BE
	FormatFloat32LE
	FormatU8
)

// frameBytes returns the per-channel sample width in bytes.
func (f SampleFormat) frameBytes() int {
	switch f {
	case FormatU8:
		return 1
	case FormatFloat32LE:
		return 4
	}
	return 2
}

// SampleSpec describes the PCM layout of sample data.
type SampleSpec struct {
	Format   SampleFormat
	Rate     uint32
	Channels uint8
}

// Valid reports whether the spec describes a usable PCM layout.
func (s SampleSpec) Valid() bool {
	return s.Rate > 0 && s.Channels > 0
}

// FrameSize returns the size of one frame (one sample per channel) in
// bytes.
func (s SampleSpec) FrameSize() int {
	return s.Format.frameBytes() * int(s.Channels)
}

// ServerInfo is the server information record.
type ServerInfo struct {
	UserName          string
	HostName          string
	ServerVersion     string
	ServerName        string
	SampleSpec        SampleSpec
	DefaultSinkName   string
	DefaultSourceName string
	Cookie            uint32
}

// SubscriptionMask selects the entity facilities to receive events for.
type SubscriptionMask uint32

const (
	SubscriptionMaskSink SubscriptionMask = 1 << iota
	SubscriptionMaskSource
	SubscriptionMaskSinkInput
	SubscriptionMaskSourceOutput
	SubscriptionMaskModule
	SubscriptionMaskClient
	SubscriptionMaskSampleCache
	SubscriptionMaskServer
	SubscriptionMaskCard

	SubscriptionMaskNull SubscriptionMask = 0
	SubscriptionMaskAll  SubscriptionMask = 0x01ff
)

// EventFacility identifies the entity kind an event refers to.
type EventFacility int

const (
	EventSink EventFacility = iota
	EventSource
	EventSinkInput
	EventSourceOutput
	EventModule
	EventClient
	EventSampleCache
	EventServer
	EventCard
)

func (f EventFacility) String() string {
	switch f {
	case EventSink:
		return "sink"
	case EventSource:
		return "source"
	case EventSinkInput:
		return "sink-input"
	case EventSourceOutput:
		return "source-output"
	case EventModule:
		return "module"
	case EventClient:
		return "client"
	case EventSampleCache:
		return "sample-cache"
	case EventServer:
		return "server"
	case EventCard:
		return "card"
	}
	return "unknown"
}

// Mask returns the subscription mask bit selecting this facility.
func (f EventFacility) Mask() SubscriptionMask {
	return SubscriptionMask(1) << uint(f)
}

// EventType is the kind of change an event reports.
type EventType int

const (
	EventNew EventType = iota
	EventChange
	EventRemove
)

func (t EventType) String() string {
	switch t {
	case EventNew:
		return "new"
	case EventChange:
		return "change"
	case EventRemove:
		return "remove"
	}
	return "unknown"
}

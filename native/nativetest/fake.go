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

// Package nativetest provides an in-memory implementation of
// native.Client for tests and demos without a sound server.
//
// The fake keeps a tiny server model (sample cache, defaults, client
// proplist) and delivers every callback through the mainloop it was
// opened with, so timing and goroutine discipline match a real binding.
// Error injection knobs follow the Set*Error style of hardware mocks.
package nativetest

import (
	"fmt"
	"sync"
	"time"

	"github.com/soundwire/pabridge/mainloop"
	"github.com/soundwire/pabridge/native"
	"github.com/soundwire/pabridge/paerr"
)

// BindingName is the name the fake registers itself under.
const BindingName = "fake"

func init() {
	native.Register(BindingName, func(loop *mainloop.Loop) (native.Client, error) {
		return New(loop), nil
	})
}

// Operation kind names used by the error injection knobs.
const (
	OpPlaySample     = "play-sample"
	OpRemoveSample   = "remove-sample"
	OpUploadSample   = "upload-sample"
	OpExitDaemon     = "exit-daemon"
	OpDefaultSink    = "default-sink"
	OpDefaultSource  = "default-source"
	OpSetName        = "set-name"
	OpProplistUpdate = "proplist-update"
	OpProplistRemove = "proplist-remove"
	OpSubscribe      = "subscribe"
	OpServerInfo     = "server-info"
)

// PlayRequest records one sample playback request.
type PlayRequest struct {
	Name     string
	Dev      string
	Volume   native.Volume
	Proplist *native.Proplist
}

type sample struct {
	spec native.SampleSpec
	data []int16
}

// Fake is an in-memory native.Client.
type Fake struct {
	loop *mainloop.Loop

	mu      sync.Mutex
	state   native.ContextState
	errno   paerr.Code
	stateCB native.StateCallback
	eventCB native.EventCallback

	server        string
	clientName    string
	clientIndex   uint32
	clientProps   *native.Proplist
	samples       map[string]sample
	played        []PlayRequest
	defaultSink   string
	defaultSource string
	subscribed    native.SubscriptionMask

	// Injection knobs.
	connectRejection error
	connectFailure   paerr.Code
	registrationErrs map[string]error
	failures         map[string]paerr.Code
	opDelay          time.Duration
	hold             bool
	held             []func()
}

// New creates a fake client that delivers callbacks through loop.
func New(loop *mainloop.Loop) *Fake {
	return &Fake{
		loop:             loop,
		state:            native.ContextUnconnected,
		clientProps:      native.NewProplist(),
		samples:          make(map[string]sample),
		defaultSink:      "fake-sink",
		defaultSource:    "fake-source",
		registrationErrs: make(map[string]error),
		failures:         make(map[string]paerr.Code),
	}
}

// --- injection knobs -------------------------------------------------

// SetConnectRejection makes Connect fail synchronously with err, before
// any state transition happens.
func (f *Fake) SetConnectRejection(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connectRejection = err
}

// SetConnectFailure makes the next connection attempt transition to
// ContextFailed with the given errno instead of reaching ready.
func (f *Fake) SetConnectFailure(code paerr.Code) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connectFailure = code
}

// SetRegistrationError makes the named operation kind fail at
// registration time: the method returns err and no callback fires.
func (f *Fake) SetRegistrationError(kind string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registrationErrs[kind] = err
}

// FailNext makes the next operation of the named kind resolve
// unsuccessfully with the given errno.
func (f *Fake) FailNext(kind string, code paerr.Code) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[kind] = code
}

// SetOpDelay delays every operation's completion by d of wall time.
func (f *Fake) SetOpDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opDelay = d
}

// SetHold parks new operations instead of completing them; release
// them with ReleaseHeld. Used to stage cancellation races.
func (f *Fake) SetHold(hold bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hold = hold
}

// Held returns the number of parked operations.
func (f *Fake) Held() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.held)
}

// ReleaseHeld posts completion of all parked operations to the loop.
func (f *Fake) ReleaseHeld() {
	f.mu.Lock()
	held := f.held
	f.held = nil
	f.mu.Unlock()

	for _, deliver := range held {
		f.loop.Post(deliver)
	}
}

// --- server model accessors ------------------------------------------

// AddSample preloads a sample into the cache.
func (f *Fake) AddSample(name string, spec native.SampleSpec, data []int16) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.samples[name] = sample{spec: spec, data: data}
}

// HasSample reports whether the cache holds name.
func (f *Fake) HasSample(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.samples[name]
	return ok
}

// SampleData returns a copy of the cached sample's PCM data.
func (f *Fake) SampleData(name string) ([]int16, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.samples[name]
	if !ok {
		return nil, false
	}
	data := make([]int16, len(s.data))
	copy(data, s.data)
	return data, true
}

// Played returns a copy of all recorded playback requests.
func (f *Fake) Played() []PlayRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]PlayRequest, len(f.played))
	copy(out, f.played)
	return out
}

// DefaultSink returns the current default sink name.
func (f *Fake) DefaultSink() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.defaultSink
}

// DefaultSource returns the current default source name.
func (f *Fake) DefaultSource() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.defaultSource
}

// ClientName returns the name last set with SetName.
func (f *Fake) ClientName() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clientName
}

// ClientProplist returns a copy of the client's property list.
func (f *Fake) ClientProplist() *native.Proplist {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clientProps.Clone()
}

// SubscribedMask returns the mask last set with Subscribe.
func (f *Fake) SubscribedMask() native.SubscriptionMask {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subscribed
}

// FireEvent posts a subscription event. Events outside the subscribed
// mask are filtered the way a real server never sends them.
func (f *Fake) FireEvent(facility native.EventFacility, typ native.EventType, index uint32) {
	f.loop.Post(func() {
		f.mu.Lock()
		cb := f.eventCB
		masked := f.subscribed&facility.Mask() != 0
		f.mu.Unlock()

		if masked && cb != nil {
			cb(facility, typ, index)
		}
	})
}

// --- native.Client ---------------------------------------------------

// Connect starts the staged connection state machine.
func (f *Fake) Connect(server string, flags native.ConnectFlags) error {
	f.mu.Lock()
	if f.connectRejection != nil {
		err := f.connectRejection
		f.mu.Unlock()
		return err
	}
	if f.state.IsGood() {
		f.mu.Unlock()
		return fmt.Errorf("connect while %s: %w", f.state, paerr.FromCode(paerr.CodeBadState))
	}
	if server == "" {
		server = "fake.local"
	}
	f.server = server
	f.clientIndex++
	failure := f.connectFailure
	f.connectFailure = paerr.CodeOK
	f.mu.Unlock()

	if failure != paerr.CodeOK {
		f.transition(native.ContextConnecting, paerr.CodeOK)
		f.transition(native.ContextFailed, failure)
		return nil
	}
	f.transition(native.ContextConnecting, paerr.CodeOK)
	f.transition(native.ContextAuthorizing, paerr.CodeOK)
	f.transition(native.ContextSettingName, paerr.CodeOK)
	f.transition(native.ContextReady, paerr.CodeOK)
	return nil
}

// transition posts one state change to the loop.
func (f *Fake) transition(s native.ContextState, errno paerr.Code) {
	f.loop.Post(func() {
		f.mu.Lock()
		f.state = s
		if errno != paerr.CodeOK {
			f.errno = errno
		}
		cb := f.stateCB
		f.mu.Unlock()

		if cb != nil {
			cb()
		}
	})
}

// Disconnect terminates the connection immediately.
func (f *Fake) Disconnect() {
	f.mu.Lock()
	alreadyDown := !f.state.IsGood()
	f.mu.Unlock()
	if alreadyDown {
		return
	}
	f.transition(native.ContextTerminated, paerr.CodeOK)
}

// SetStateCallback installs the connection state callback.
func (f *Fake) SetStateCallback(cb native.StateCallback) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stateCB = cb
}

// SetEventCallback installs the subscription event callback.
func (f *Fake) SetEventCallback(cb native.EventCallback) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.eventCB = cb
}

// ContextState returns the current connection state.
func (f *Fake) ContextState() native.ContextState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Errno returns the last recorded failure.
func (f *Fake) Errno() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return paerr.FromCode(f.errno)
}

func (f *Fake) setErrno(code paerr.Code) {
	f.mu.Lock()
	f.errno = code
	f.mu.Unlock()
}

// startOp implements the shared registration/delivery path. apply runs
// on the loop goroutine at delivery time and reports server-side
// success; it must record its own errno on failure.
func (f *Fake) startOp(kind string, cb native.SuccessCallback, apply func() bool) (native.Operation, error) {
	f.mu.Lock()
	if err, ok := f.registrationErrs[kind]; ok {
		delete(f.registrationErrs, kind)
		f.mu.Unlock()
		return nil, err
	}
	if f.state != native.ContextReady {
		f.errno = paerr.CodeBadState
		f.mu.Unlock()
		return nil, fmt.Errorf("%s while %s: %w", kind, f.state, paerr.ErrNotConnected)
	}
	op := &fakeOp{loop: f.loop, state: native.OpRunning}
	deliver := func() {
		success := true
		if code, injected := f.takeFailure(kind); injected {
			f.setErrno(code)
			success = false
		} else if apply != nil && !apply() {
			success = false
		}
		op.complete(success, cb)
	}
	hold := f.hold
	delay := f.opDelay
	if hold {
		f.held = append(f.held, deliver)
		f.mu.Unlock()
		return op, nil
	}
	f.mu.Unlock()

	if delay > 0 {
		f.loop.PostAfter(delay, deliver)
	} else {
		f.loop.Post(deliver)
	}
	return op, nil
}

func (f *Fake) takeFailure(kind string) (paerr.Code, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	code, ok := f.failures[kind]
	if ok {
		delete(f.failures, kind)
	}
	return code, ok
}

// PlaySample plays a cached sample on the given device.
func (f *Fake) PlaySample(name, dev string, volume native.Volume, cb native.SuccessCallback) (native.Operation, error) {
	return f.PlaySampleWithProplist(name, dev, volume, nil, cb)
}

// PlaySampleWithProplist plays a cached sample with stream properties.
func (f *Fake) PlaySampleWithProplist(name, dev string, volume native.Volume, pl *native.Proplist, cb native.SuccessCallback) (native.Operation, error) {
	return f.startOp(OpPlaySample, cb, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		if _, ok := f.samples[name]; !ok {
			f.errno = paerr.CodeNoEntity
			return false
		}
		req := PlayRequest{Name: name, Dev: dev, Volume: volume}
		if pl != nil {
			req.Proplist = pl.Clone()
		}
		f.played = append(f.played, req)
		return true
	})
}

// RemoveSample removes a sample from the cache.
func (f *Fake) RemoveSample(name string, cb native.SuccessCallback) (native.Operation, error) {
	return f.startOp(OpRemoveSample, cb, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		if _, ok := f.samples[name]; !ok {
			f.errno = paerr.CodeNoEntity
			return false
		}
		delete(f.samples, name)
		return true
	})
}

// UploadSample stores PCM data in the sample cache.
func (f *Fake) UploadSample(name string, spec native.SampleSpec, data []int16, cb native.SuccessCallback) (native.Operation, error) {
	return f.startOp(OpUploadSample, cb, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		if !spec.Valid() || len(data) == 0 {
			f.errno = paerr.CodeInvalid
			return false
		}
		stored := make([]int16, len(data))
		copy(stored, data)
		f.samples[name] = sample{spec: spec, data: stored}
		return true
	})
}

// ExitDaemon asks the fake daemon to exit; the connection terminates.
func (f *Fake) ExitDaemon(cb native.SuccessCallback) (native.Operation, error) {
	op, err := f.startOp(OpExitDaemon, cb, func() bool { return true })
	if err == nil {
		f.transition(native.ContextTerminated, paerr.CodeOK)
	}
	return op, err
}

// SetDefaultSink changes the default sink.
func (f *Fake) SetDefaultSink(name string, cb native.SuccessCallback) (native.Operation, error) {
	return f.startOp(OpDefaultSink, cb, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.defaultSink = name
		return true
	})
}

// SetDefaultSource changes the default source.
func (f *Fake) SetDefaultSource(name string, cb native.SuccessCallback) (native.Operation, error) {
	return f.startOp(OpDefaultSource, cb, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.defaultSource = name
		return true
	})
}

// SetName renames the client on the server.
func (f *Fake) SetName(name string, cb native.SuccessCallback) (native.Operation, error) {
	return f.startOp(OpSetName, cb, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.clientName = name
		return true
	})
}

// ProplistUpdate merges properties into the client proplist.
func (f *Fake) ProplistUpdate(mode native.UpdateMode, pl *native.Proplist, cb native.SuccessCallback) (native.Operation, error) {
	return f.startOp(OpProplistUpdate, cb, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.clientProps.Update(mode, pl)
		return true
	})
}

// ProplistRemove removes the named keys from the client proplist.
func (f *Fake) ProplistRemove(keys []string, cb native.SuccessCallback) (native.Operation, error) {
	return f.startOp(OpProplistRemove, cb, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		for _, key := range keys {
			if !f.clientProps.Remove(key) {
				f.errno = paerr.CodeNoEntity
				return false
			}
		}
		return true
	})
}

// Subscribe sets the event facility mask.
func (f *Fake) Subscribe(mask native.SubscriptionMask, cb native.SuccessCallback) (native.Operation, error) {
	return f.startOp(OpSubscribe, cb, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.subscribed = mask
		return true
	})
}

// GetServerInfo queries the server information record.
func (f *Fake) GetServerInfo(cb native.ServerInfoCallback) (native.Operation, error) {
	return f.startOp(OpServerInfo, nil, func() bool {
		f.mu.Lock()
		info := &native.ServerInfo{
			UserName:          "fake",
			HostName:          "localhost",
			ServerVersion:     "fake-1.0",
			ServerName:        f.server,
			SampleSpec:        native.SampleSpec{Format: native.FormatS16LE, Rate: 44100, Channels: 2},
			DefaultSinkName:   f.defaultSink,
			DefaultSourceName: f.defaultSource,
			Cookie:            0x5eed,
		}
		f.mu.Unlock()

		if cb != nil {
			cb(info)
		}
		return true
	})
}

// IsPending reports queued outbound data; the fake never buffers.
func (f *Fake) IsPending() bool { return false }

// IsLocal reports a local daemon once connected.
func (f *Fake) IsLocal() (local, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return true, f.state == native.ContextReady
}

// Server returns the connected server name.
func (f *Fake) Server() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != native.ContextReady {
		return ""
	}
	return f.server
}

// ProtocolVersion returns the binding protocol version.
func (f *Fake) ProtocolVersion() uint32 { return 35 }

// ServerProtocolVersion returns the server protocol version.
func (f *Fake) ServerProtocolVersion() (uint32, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return 35, f.state == native.ContextReady
}

// Index returns the server-assigned client index.
func (f *Fake) Index() (uint32, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clientIndex, f.state == native.ContextReady
}

// TileSize returns the optimal buffer size for the spec.
func (f *Fake) TileSize(spec native.SampleSpec) int {
	const tile = 65536
	if !spec.Valid() {
		return tile
	}
	frame := spec.FrameSize()
	return tile - tile%frame
}

// fakeOp is the fake's operation handle. Completion and cancellation
// race the same way they do against a real binding: delivery re-checks
// the state on the loop goroutine and a cancelled operation never
// invokes its success callback.
type fakeOp struct {
	loop *mainloop.Loop

	mu      sync.Mutex
	state   native.OpState
	stateCB func()
}

// State returns the operation state.
func (o *fakeOp) State() native.OpState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// SetStateCallback installs cb, delivering one notification right away
// when the operation is already terminal.
func (o *fakeOp) SetStateCallback(cb func()) {
	o.mu.Lock()
	o.stateCB = cb
	terminal := o.state != native.OpRunning
	o.mu.Unlock()

	if terminal && cb != nil {
		o.loop.Post(cb)
	}
}

// Cancel deregisters the operation.
func (o *fakeOp) Cancel() {
	o.mu.Lock()
	if o.state != native.OpRunning {
		o.mu.Unlock()
		return
	}
	o.state = native.OpCancelled
	cb := o.stateCB
	o.mu.Unlock()

	if cb != nil {
		o.loop.Post(cb)
	}
}

// complete runs on the loop goroutine.
func (o *fakeOp) complete(success bool, cb native.SuccessCallback) {
	o.mu.Lock()
	if o.state != native.OpRunning {
		o.mu.Unlock()
		return
	}
	o.mu.Unlock()

	if cb != nil {
		cb(success)
	}

	o.mu.Lock()
	if o.state != native.OpRunning {
		o.mu.Unlock()
		return
	}
	o.state = native.OpDone
	scb := o.stateCB
	o.mu.Unlock()

	if scb != nil {
		scb()
	}
}

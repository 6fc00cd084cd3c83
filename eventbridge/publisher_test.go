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

package eventbridge

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundwire/pabridge/client"
	"github.com/soundwire/pabridge/native"
)

// mockNATSConnection records published messages instead of sending them.
type mockNATSConnection struct {
	mu         sync.Mutex
	subjects   []string
	payloads   [][]byte
	publishErr error
	closed     bool
}

func (m *mockNATSConnection) Publish(subject string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}
	m.subjects = append(m.subjects, subject)
	m.payloads = append(m.payloads, data)
	return nil
}

func (m *mockNATSConnection) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
}

func (m *mockNATSConnection) SetPublishError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishErr = err
}

// TestPublisherRun tests event forwarding.
func TestPublisherRun(t *testing.T) {
	t.Run("forwards_until_channel_closes", func(t *testing.T) {
		mock := &mockNATSConnection{}
		pub := NewPublisherWithConnection(mock, "audio.events", "myserver")

		events := make(chan client.Event, 4)
		events <- client.Event{Facility: native.EventSink, Type: native.EventChange, Index: 3}
		events <- client.Event{Facility: native.EventSampleCache, Type: native.EventNew, Index: 7}
		close(events)

		err := pub.Run(context.Background(), events)
		require.NoError(t, err, "a closed channel should end the run cleanly")

		assert.Equal(t, uint64(2), pub.Published())
		assert.Zero(t, pub.Dropped())
		require.Equal(t, []string{
			"audio.events.sink.change",
			"audio.events.sample-cache.new",
		}, mock.subjects, "subjects should encode facility and type")

		var msg EventMessage
		require.NoError(t, json.Unmarshal(mock.payloads[0], &msg))
		assert.Equal(t, "sink", msg.Facility)
		assert.Equal(t, "change", msg.Type)
		assert.Equal(t, uint32(3), msg.Index)
		assert.Equal(t, "myserver", msg.Server)
		assert.False(t, msg.Timestamp.IsZero())
	})

	t.Run("ctx_cancel_stops_run", func(t *testing.T) {
		mock := &mockNATSConnection{}
		pub := NewPublisherWithConnection(mock, "", "srv")

		ctx, cancel := context.WithCancel(context.Background())
		events := make(chan client.Event)

		done := make(chan error, 1)
		go func() { done <- pub.Run(ctx, events) }()

		cancel()
		select {
		case err := <-done:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(2 * time.Second):
			t.Fatal("Run never returned after ctx cancellation")
		}
	})

	t.Run("publish_failure_counts_dropped", func(t *testing.T) {
		mock := &mockNATSConnection{}
		mock.SetPublishError(errors.New("nats is down"))
		pub := NewPublisherWithConnection(mock, "p", "srv")

		events := make(chan client.Event, 1)
		events <- client.Event{Facility: native.EventSink, Type: native.EventNew, Index: 1}
		close(events)

		require.NoError(t, pub.Run(context.Background(), events))
		assert.Zero(t, pub.Published())
		assert.Equal(t, uint64(1), pub.Dropped(), "failed publishes should be dropped, not retried")
	})

	t.Run("empty_prefix_gets_default", func(t *testing.T) {
		mock := &mockNATSConnection{}
		pub := NewPublisherWithConnection(mock, "", "srv")

		events := make(chan client.Event, 1)
		events <- client.Event{Facility: native.EventServer, Type: native.EventChange, Index: 0}
		close(events)

		require.NoError(t, pub.Run(context.Background(), events))
		require.Len(t, mock.subjects, 1)
		assert.Equal(t, "pabridge.events.server.change", mock.subjects[0])
	})
}

// TestPublisherClose tests connection teardown.
func TestPublisherClose(t *testing.T) {
	mock := &mockNATSConnection{}
	pub := NewPublisherWithConnection(mock, "p", "srv")

	pub.Close()
	assert.True(t, mock.closed, "Close should close the underlying connection")
}

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

// Package eventbridge republishes sound-server subscription events to
// NATS so other services can react to sink/source/sample changes
// without their own server connection.
package eventbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/soundwire/pabridge/client"
)

// EventMessage is the JSON payload published for each server event.
type EventMessage struct {
	Facility  string    `json:"facility"`   // entity kind, e.g. "sink"
	Type      string    `json:"type"`       // "new", "change", "remove"
	Index     uint32    `json:"index"`      // server-side entity index
	Server    string    `json:"server"`     // server the event came from
	Timestamp time.Time `json:"timestamp"`  // publish time
}

// NATSConnection is the slice of *nats.Conn the publisher needs, split
// out for dependency injection in tests.
type NATSConnection interface {
	Publish(subject string, data []byte) error
	Close()
}

// natsConnAdapter adapts *nats.Conn to NATSConnection.
type natsConnAdapter struct {
	conn *nats.Conn
}

func (a *natsConnAdapter) Publish(subject string, data []byte) error {
	return a.conn.Publish(subject, data)
}

func (a *natsConnAdapter) Close() {
	a.conn.Close()
}

// Publisher forwards subscription events to NATS subjects of the form
// <prefix>.<facility>.<type>.
type Publisher struct {
	nc        NATSConnection
	prefix    string
	server    string
	published uint64
	dropped   uint64
}

// NewPublisher connects to NATS with retry and returns a publisher
// using the given subject prefix. server names the sound server in the
// published payloads.
func NewPublisher(natsURL, prefix, server string) (*Publisher, error) {
	var nc *nats.Conn
	var err error

	for i := 0; i < 5; i++ {
		nc, err = nats.Connect(natsURL)
		if err == nil {
			break
		}
		log.Printf("⚠️  Failed to connect to NATS (attempt %d/5): %v", i+1, err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS after 5 attempts: %w", err)
	}

	log.Printf("✅ Connected to NATS at %s", natsURL)
	return NewPublisherWithConnection(&natsConnAdapter{conn: nc}, prefix, server), nil
}

// NewPublisherWithConnection builds a publisher over an existing
// connection (used by tests).
func NewPublisherWithConnection(nc NATSConnection, prefix, server string) *Publisher {
	if prefix == "" {
		prefix = "pabridge.events"
	}
	return &Publisher{nc: nc, prefix: prefix, server: server}
}

// Run consumes events until the channel closes or ctx is cancelled.
func (p *Publisher) Run(ctx context.Context, events <-chan client.Event) error {
	log.Printf("📡 Publishing server events to %s.*", p.prefix)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				log.Printf("📡 Event channel closed after %d published, %d dropped", p.published, p.dropped)
				return nil
			}
			p.publish(ev)
		}
	}
}

func (p *Publisher) publish(ev client.Event) {
	msg := EventMessage{
		Facility:  ev.Facility.String(),
		Type:      ev.Type.String(),
		Index:     ev.Index,
		Server:    p.server,
		Timestamp: time.Now().UTC(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("❌ Failed to marshal event message: %v", err)
		p.dropped++
		return
	}

	subject := fmt.Sprintf("%s.%s.%s", p.prefix, msg.Facility, msg.Type)
	if err := p.nc.Publish(subject, data); err != nil {
		log.Printf("⚠️  Failed to publish to %s, dropping event: %v", subject, err)
		p.dropped++
		return
	}
	p.published++
}

// Published returns how many events were forwarded.
func (p *Publisher) Published() uint64 { return p.published }

// Dropped returns how many events could not be forwarded.
func (p *Publisher) Dropped() uint64 { return p.dropped }

// Close closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
		log.Println("🔌 NATS connection closed")
	}
}

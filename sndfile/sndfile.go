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

// Package sndfile decodes audio files into the PCM form the sample
// cache upload expects.
//
// Supported formats: WAV (PCM 16-bit), MP3 and Ogg Vorbis. Decoders
// return a pull-style Source of interleaved float32 samples in [-1,1];
// DecodeAll drains a source into 16-bit PCM plus the matching sample
// spec in one call.
package sndfile

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/soundwire/pabridge/native"
)

var (
	// ErrUnknownFormat is returned for a format key no decoder is
	// registered under.
	ErrUnknownFormat = errors.New("unknown audio format")
)

// Spec describes the PCM layout a Source produces.
type Spec struct {
	Rate     int
	Channels int
}

// Source is a pull-style stream of interleaved float32 samples in
// [-1,1]. ReadSamples reports 0, io.EOF when the stream is finished.
type Source interface {
	Spec() Spec
	ReadSamples(dst []float32) (n int, err error)
	Close() error
}

// Decoder constructs a Source from an input reader.
type Decoder interface {
	Decode(r io.Reader) (Source, error)
}

// Registry maps format keys ("wav", "mp3", "ogg") to decoders.
type Registry struct {
	mu     sync.Mutex
	codecs map[string]Decoder
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{codecs: make(map[string]Decoder)}
}

// Register stores d under format, replacing any previous decoder.
func (r *Registry) Register(format string, d Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codecs[format] = d
}

// Get returns the decoder registered under format.
func (r *Registry) Get(format string) (Decoder, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.codecs[format]
	return d, ok
}

// defaultRegistry holds the built-in decoders.
var defaultRegistry = func() *Registry {
	r := NewRegistry()
	r.Register("wav", WAVDecoder{})
	r.Register("mp3", MP3Decoder{})
	r.Register("ogg", VorbisDecoder{})
	return r
}()

// Default returns the registry with the built-in decoders.
func Default() *Registry {
	return defaultRegistry
}

// PCM is fully decoded 16-bit audio ready for upload.
type PCM struct {
	Spec native.SampleSpec
	Data []int16
}

// DecodeAll decodes the whole stream in the given format into 16-bit
// PCM using the default registry.
func DecodeAll(format string, r io.Reader) (*PCM, error) {
	dec, ok := defaultRegistry.Get(format)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	src, err := dec.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", format, err)
	}
	defer func() { _ = src.Close() }()

	spec := src.Spec()
	pcm := &PCM{
		Spec: native.SampleSpec{
			Format:   native.FormatS16LE,
			Rate:     uint32(spec.Rate),
			Channels: uint8(spec.Channels),
		},
	}

	buf := make([]float32, 4096)
	for {
		n, err := src.ReadSamples(buf)
		for _, v := range buf[:n] {
			pcm.Data = append(pcm.Data, Float32ToInt16(v))
		}
		if err == io.EOF {
			return pcm, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read %s samples: %w", format, err)
		}
		if n == 0 {
			return pcm, nil
		}
	}
}

// Float32ToInt16 clamps and scales one float32 sample to int16 PCM.
func Float32ToInt16(x float32) int16 {
	if x > 1 {
		x = 1
	} else if x < -1 {
		x = -1
	}
	// 32767 on the positive side to avoid overflow.
	return int16(x * 32767.0)
}

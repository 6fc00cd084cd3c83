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

package sndfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

var (
	// ErrNotWAV is returned when the input is not a RIFF/WAVE file.
	ErrNotWAV = errors.New("not a WAV file")
)

type wavSource struct {
	dec   *wav.Decoder
	spec  Spec
	scale float32
	buf   *audio.IntBuffer
}

func (s *wavSource) Spec() Spec   { return s.spec }
func (s *wavSource) Close() error { return nil }

func (s *wavSource) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	if cap(s.buf.Data) < len(dst) {
		s.buf.Data = make([]int, len(dst))
	}
	s.buf.Data = s.buf.Data[:len(dst)]

	n, err := s.dec.PCMBuffer(s.buf)
	if err != nil {
		return 0, fmt.Errorf("read wav: %w", err)
	}
	if n == 0 {
		return 0, io.EOF
	}
	for i := 0; i < n; i++ {
		dst[i] = float32(s.buf.Data[i]) / s.scale
	}
	return n, nil
}

// WAVDecoder decodes RIFF/WAVE PCM files.
type WAVDecoder struct{}

// Decode buffers the stream (the WAV container needs seeking) and
// validates the header before handing back a streaming source.
func (WAVDecoder) Decode(r io.Reader) (Source, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read wav input: %w", err)
	}

	dec := wav.NewDecoder(bytes.NewReader(raw))
	if !dec.IsValidFile() {
		return nil, ErrNotWAV
	}
	if dec.SampleRate == 0 || dec.NumChans == 0 {
		return nil, ErrNotWAV
	}

	return &wavSource{
		dec: dec,
		spec: Spec{
			Rate:     int(dec.SampleRate),
			Channels: int(dec.NumChans),
		},
		scale: float32(int(1) << (dec.BitDepth - 1)),
		buf: &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: int(dec.NumChans),
				SampleRate:  int(dec.SampleRate),
			},
			SourceBitDepth: int(dec.BitDepth),
			Data:           make([]int, 4096),
		},
	}, nil
}

// WriteWAV16 writes interleaved 16-bit PCM as a WAV file.
func WriteWAV16(ws io.WriteSeeker, rate, channels int, samples []int16) error {
	enc := wav.NewEncoder(ws, rate, 16, channels, 1)

	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: channels,
			SampleRate:  rate,
		},
		SourceBitDepth: 16,
		Data:           data,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("write wav data: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize wav: %w", err)
	}
	return nil
}

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
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"
)

// mp3Reader narrows gomp3.Decoder for testing.
type mp3Reader interface {
	Read([]byte) (int, error)
	SampleRate() int
}

type mp3Source struct {
	dec  mp3Reader
	spec Spec
	buf  []byte
}

func (s *mp3Source) Spec() Spec   { return s.spec }
func (s *mp3Source) Close() error { return nil }

func (s *mp3Source) ReadSamples(dst []float32) (int, error) {
	// go-mp3 produces 16-bit little-endian stereo PCM bytes.
	need := len(dst) * 2
	if cap(s.buf) < need {
		s.buf = make([]byte, need)
	}
	s.buf = s.buf[:need]

	n, err := s.dec.Read(s.buf)
	if n == 0 {
		if err != nil {
			return 0, err
		}
		return 0, nil
	}

	samples := n / 2
	for i := 0; i < samples; i++ {
		v := int16(uint16(s.buf[2*i]) | uint16(s.buf[2*i+1])<<8)
		dst[i] = float32(v) / 32768.0
	}
	return samples, err
}

// MP3Decoder decodes MPEG-1 layer 3 streams.
type MP3Decoder struct{}

// Decode wraps the stream in a go-mp3 decoder.
func (MP3Decoder) Decode(r io.Reader) (Source, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("open mp3: %w", err)
	}
	return &mp3Source{
		dec: dec,
		// go-mp3 always outputs two channels.
		spec: Spec{Rate: dec.SampleRate(), Channels: 2},
		buf:  make([]byte, 8192),
	}, nil
}

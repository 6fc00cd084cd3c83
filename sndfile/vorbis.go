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

	"github.com/jfreymuth/oggvorbis"
)

// oggReader narrows oggvorbis.Reader for testing.
type oggReader interface {
	SampleRate() int
	Channels() int
	Read([]float32) (int, error)
}

type vorbisSource struct {
	dec  oggReader
	spec Spec
}

func (s *vorbisSource) Spec() Spec   { return s.spec }
func (s *vorbisSource) Close() error { return nil }

func (s *vorbisSource) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	// oggvorbis reads whole frames; trim dst to a frame boundary.
	usable := len(dst) - len(dst)%s.spec.Channels
	if usable == 0 {
		return 0, nil
	}
	n, err := s.dec.Read(dst[:usable])
	if n == 0 && err != nil {
		return 0, err
	}
	return n, err
}

// VorbisDecoder decodes Ogg Vorbis streams.
type VorbisDecoder struct{}

// Decode wraps the stream in an oggvorbis reader.
func (VorbisDecoder) Decode(r io.Reader) (Source, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open ogg vorbis: %w", err)
	}
	return &vorbisSource{
		dec:  dec,
		spec: Spec{Rate: dec.SampleRate(), Channels: dec.Channels()},
	}, nil
}

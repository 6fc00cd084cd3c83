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

// pabridge-record captures audio from the default microphone with
// PortAudio, uploads it to the server's sample cache and plays it back.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/gordonklaus/portaudio"
	"github.com/spf13/cobra"

	"github.com/soundwire/pabridge"
	"github.com/soundwire/pabridge/config"
	"github.com/soundwire/pabridge/native"
	_ "github.com/soundwire/pabridge/native/nativetest" // register the "fake" binding
	"github.com/soundwire/pabridge/sndfile"
)

func main() {
	if err := newRecordCmd().Execute(); err != nil {
		log.Fatalf("❌ %v", err)
	}
}

func newRecordCmd() *cobra.Command {
	var (
		cfgPath string
		name    string
		outPath string
		play    bool
	)
	cmd := &cobra.Command{
		Use:           "pabridge-record",
		Short:         "Record from the microphone into the server's sample cache",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			samples, err := record(cfg.Record)
			if err != nil {
				return err
			}
			if outPath != "" {
				if err := writeWAV(outPath, cfg.Record, samples); err != nil {
					return err
				}
				log.Printf("💾 Wrote %s", outPath)
			}
			return uploadAndPlay(cfg, name, samples, play)
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", "", "config file path")
	cmd.Flags().StringVar(&name, "name", "recording", "sample cache entry name")
	cmd.Flags().StringVar(&outPath, "out", "", "also write the recording to a WAV file")
	cmd.Flags().BoolVar(&play, "play", true, "play the sample back after uploading")
	return cmd
}

// record captures the configured number of seconds of PCM.
func record(rc config.RecordConfig) ([]int16, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	defer func() { _ = portaudio.Terminate() }()

	frameBuf := make([]float32, rc.FrameSize*rc.Channels)
	stream, err := portaudio.OpenDefaultStream(
		rc.Channels, // input channels
		0,           // output channels
		float64(rc.SampleRate),
		rc.FrameSize,
		frameBuf,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open input stream: %w", err)
	}
	defer func() { _ = stream.Close() }()

	if err := stream.Start(); err != nil {
		return nil, fmt.Errorf("failed to start input stream: %w", err)
	}
	defer func() { _ = stream.Stop() }()

	total := rc.Seconds * rc.SampleRate * rc.Channels
	samples := make([]int16, 0, total)
	log.Printf("🎙️ Recording %d second(s) at %d Hz...", rc.Seconds, rc.SampleRate)

	for len(samples) < total {
		if err := stream.Read(); err != nil {
			return nil, fmt.Errorf("failed to read audio: %w", err)
		}
		for _, v := range frameBuf {
			samples = append(samples, sndfile.Float32ToInt16(v))
		}
	}
	return samples[:total], nil
}

func writeWAV(path string, rc config.RecordConfig, samples []int16) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	if err := sndfile.WriteWAV16(f, rc.SampleRate, rc.Channels, samples); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func uploadAndPlay(cfg *config.Config, name string, samples []int16, play bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	c, loop, err := pabridge.Dial(ctx, cfg.Binding, cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer func() {
		c.Disconnect()
		_ = loop.Stop()
	}()

	spec := native.SampleSpec{
		Format:   native.FormatS16LE,
		Rate:     uint32(cfg.Record.SampleRate),
		Channels: uint8(cfg.Record.Channels),
	}

	opCtx, opCancel := context.WithTimeout(context.Background(), cfg.OpTimeout)
	defer opCancel()
	if err := c.UploadSample(opCtx, name, spec, samples); err != nil {
		return fmt.Errorf("failed to upload sample %q: %w", name, err)
	}
	log.Printf("📤 Uploaded %d samples as %q", len(samples), name)

	if !play {
		return nil
	}
	playCtx, playCancel := context.WithTimeout(context.Background(), cfg.OpTimeout)
	defer playCancel()
	if err := c.PlaySample(playCtx, name, "", native.VolumeInvalid); err != nil {
		return fmt.Errorf("failed to play sample %q: %w", name, err)
	}
	log.Printf("🔊 Played sample %q", name)
	return nil
}

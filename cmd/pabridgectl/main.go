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

// pabridgectl drives a sound server through the awaitable client:
// sample cache management, server defaults, server info and event
// watching.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/soundwire/pabridge"
	"github.com/soundwire/pabridge/client"
	"github.com/soundwire/pabridge/config"
	"github.com/soundwire/pabridge/eventbridge"
	"github.com/soundwire/pabridge/native"
	_ "github.com/soundwire/pabridge/native/nativetest" // register the "fake" binding
	"github.com/soundwire/pabridge/sndfile"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatalf("❌ %v", err)
	}
}

type app struct {
	cfgPath string
	server  string
	binding string

	cfg *config.Config
}

// load resolves configuration, letting flags win over file and env.
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("server") || cmd.InheritedFlags().Changed("server") {
		cfg.Server = a.server
	}
	if cmd.Flags().Changed("binding") || cmd.InheritedFlags().Changed("binding") {
		cfg.Binding = a.binding
	}
	a.cfg = cfg
	return nil
}

// withClient dials, names the client, runs fn and tears everything
// down again.
func (a *app) withClient(fn func(ctx context.Context, c *client.Client) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ConnectTimeout)
	defer cancel()

	c, loop, err := pabridge.Dial(ctx, a.cfg.Binding, a.cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer func() {
		c.Disconnect()
		_ = loop.Stop()
	}()
	log.Printf("✅ Connected to %s (protocol %d)", c.Server(), c.ProtocolVersion())

	opCtx, opCancel := context.WithTimeout(context.Background(), a.cfg.OpTimeout)
	defer opCancel()
	if err := c.SetName(opCtx, a.cfg.ClientName); err != nil {
		return fmt.Errorf("failed to set client name: %w", err)
	}

	return fn(context.Background(), c)
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "pabridgectl",
		Short:         "Control a sound server through the pabridge client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.cfgPath, "config", "", "config file path")
	root.PersistentFlags().StringVar(&a.server, "server", "", "sound server address (empty for default)")
	root.PersistentFlags().StringVar(&a.binding, "binding", "", "native binding to use")

	root.AddCommand(
		newPlayCmd(a),
		newRemoveCmd(a),
		newUploadCmd(a),
		newDefaultSinkCmd(a),
		newDefaultSourceCmd(a),
		newStatCmd(a),
		newSubscribeCmd(a),
	)
	return root
}

func newPlayCmd(a *app) *cobra.Command {
	var dev string
	cmd := &cobra.Command{
		Use:   "play <sample>",
		Short: "Play a sample from the server's sample cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(func(ctx context.Context, c *client.Client) error {
				opCtx, cancel := context.WithTimeout(ctx, a.cfg.OpTimeout)
				defer cancel()
				if err := c.PlaySample(opCtx, args[0], dev, native.VolumeInvalid); err != nil {
					return fmt.Errorf("failed to play sample %q: %w", args[0], err)
				}
				log.Printf("🔊 Played sample %q", args[0])
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&dev, "sink", "", "sink to play on (empty for default)")
	return cmd
}

func newRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <sample>",
		Short: "Remove a sample from the server's sample cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(func(ctx context.Context, c *client.Client) error {
				opCtx, cancel := context.WithTimeout(ctx, a.cfg.OpTimeout)
				defer cancel()
				if err := c.RemoveSample(opCtx, args[0]); err != nil {
					return fmt.Errorf("failed to remove sample %q: %w", args[0], err)
				}
				log.Printf("🗑️  Removed sample %q", args[0])
				return nil
			})
		},
	}
}

func newUploadCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "upload <sample> <file>",
		Short: "Decode an audio file and upload it to the sample cache",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, path := args[0], args[1]
			if format == "" {
				format = strings.TrimPrefix(filepath.Ext(path), ".")
			}

			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", path, err)
			}
			defer func() { _ = f.Close() }()

			pcm, err := sndfile.DecodeAll(format, f)
			if err != nil {
				return fmt.Errorf("failed to decode %s: %w", path, err)
			}
			log.Printf("🎵 Decoded %s: %d samples, %d Hz, %d channel(s)",
				path, len(pcm.Data), pcm.Spec.Rate, pcm.Spec.Channels)

			return a.withClient(func(ctx context.Context, c *client.Client) error {
				opCtx, cancel := context.WithTimeout(ctx, a.cfg.OpTimeout)
				defer cancel()
				if err := c.UploadSample(opCtx, name, pcm.Spec, pcm.Data); err != nil {
					return fmt.Errorf("failed to upload sample %q: %w", name, err)
				}
				log.Printf("📤 Uploaded sample %q", name)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "audio format (wav, mp3, ogg); default from file extension")
	return cmd
}

func newDefaultSinkCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "default-sink <name>",
		Short: "Set the server's default sink",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(func(ctx context.Context, c *client.Client) error {
				opCtx, cancel := context.WithTimeout(ctx, a.cfg.OpTimeout)
				defer cancel()
				if err := c.SetDefaultSink(opCtx, args[0]); err != nil {
					return fmt.Errorf("failed to set default sink: %w", err)
				}
				log.Printf("🔈 Default sink set to %q", args[0])
				return nil
			})
		},
	}
}

func newDefaultSourceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "default-source <name>",
		Short: "Set the server's default source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(func(ctx context.Context, c *client.Client) error {
				opCtx, cancel := context.WithTimeout(ctx, a.cfg.OpTimeout)
				defer cancel()
				if err := c.SetDefaultSource(opCtx, args[0]); err != nil {
					return fmt.Errorf("failed to set default source: %w", err)
				}
				log.Printf("🎙️ Default source set to %q", args[0])
				return nil
			})
		},
	}
}

func newStatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stat",
		Short: "Print server information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(func(ctx context.Context, c *client.Client) error {
				opCtx, cancel := context.WithTimeout(ctx, a.cfg.OpTimeout)
				defer cancel()
				info, err := c.ServerInfo(opCtx)
				if err != nil {
					return fmt.Errorf("failed to query server info: %w", err)
				}

				fmt.Printf("Server:          %s (%s)\n", info.ServerName, info.ServerVersion)
				fmt.Printf("Host:            %s (user %s)\n", info.HostName, info.UserName)
				fmt.Printf("Default sink:    %s\n", info.DefaultSinkName)
				fmt.Printf("Default source:  %s\n", info.DefaultSourceName)
				fmt.Printf("Sample spec:     %d Hz, %d channel(s)\n", info.SampleSpec.Rate, info.SampleSpec.Channels)
				if v, ok := c.ServerProtocolVersion(); ok {
					fmt.Printf("Server protocol: %d\n", v)
				}
				if idx, ok := c.Index(); ok {
					fmt.Printf("Client index:    %d\n", idx)
				}
				fmt.Printf("Tile size:       %d bytes\n", c.TileSize(info.SampleSpec))
				return nil
			})
		},
	}
}

func newSubscribeCmd(a *app) *cobra.Command {
	var toNATS bool
	cmd := &cobra.Command{
		Use:   "subscribe",
		Short: "Watch server events, optionally republishing them to NATS",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(func(ctx context.Context, c *client.Client) error {
				ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()

				subCtx, cancel := context.WithTimeout(ctx, a.cfg.OpTimeout)
				defer cancel()
				sub, err := c.Subscribe(subCtx, native.SubscriptionMaskAll)
				if err != nil {
					return fmt.Errorf("failed to subscribe: %w", err)
				}
				defer sub.Close()

				if toNATS {
					pub, err := eventbridge.NewPublisher(a.cfg.NATS.URL, a.cfg.NATS.SubjectPrefix, c.Server())
					if err != nil {
						return err
					}
					defer pub.Close()
					err = pub.Run(ctx, sub.Events())
					if err == context.Canceled {
						return nil
					}
					return err
				}

				log.Printf("🎧 Watching server events (Ctrl-C to stop)")
				for {
					select {
					case <-ctx.Done():
						return nil
					case ev, ok := <-sub.Events():
						if !ok {
							return nil
						}
						log.Printf("📥 %s %s #%d", ev.Facility, ev.Type, ev.Index)
					}
				}
			})
		},
	}
	cmd.Flags().BoolVar(&toNATS, "nats", false, "republish events to NATS")
	return cmd
}

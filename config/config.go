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

// Package config loads the configuration shared by the command-line
// tools. Values come from defaults, an optional config file, and
// PABRIDGE_* environment variables, in ascending priority.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete tool configuration.
type Config struct {
	// Server is the sound server address; empty means the default
	// server.
	Server string `mapstructure:"server"`
	// Binding selects the registered native binding to open.
	Binding string `mapstructure:"binding"`
	// ClientName is the application name reported to the server.
	ClientName string `mapstructure:"client_name"`
	// ConnectTimeout bounds connection establishment.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	// OpTimeout bounds each individual server operation.
	OpTimeout time.Duration `mapstructure:"op_timeout"`

	NATS   NATSConfig   `mapstructure:"nats"`
	Record RecordConfig `mapstructure:"record"`
}

// NATSConfig controls event republishing.
type NATSConfig struct {
	// URL of the NATS server.
	URL string `mapstructure:"url"`
	// SubjectPrefix for published event subjects.
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

// RecordConfig controls microphone capture.
type RecordConfig struct {
	// Seconds of audio to capture.
	Seconds int `mapstructure:"seconds"`
	// SampleRate in Hz.
	SampleRate int `mapstructure:"sample_rate"`
	// Channels to capture (1=mono, 2=stereo).
	Channels int `mapstructure:"channels"`
	// FrameSize is the capture buffer size in frames.
	FrameSize int `mapstructure:"frame_size"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server", "")
	v.SetDefault("binding", "fake")
	v.SetDefault("client_name", "pabridge")
	v.SetDefault("connect_timeout", 10*time.Second)
	v.SetDefault("op_timeout", 5*time.Second)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.subject_prefix", "pabridge.events")
	v.SetDefault("record.seconds", 3)
	v.SetDefault("record.sample_rate", 44100)
	v.SetDefault("record.channels", 1)
	v.SetDefault("record.frame_size", 512)
}

// Load reads the configuration. path may name a config file; when empty
// only defaults and environment variables apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("PABRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the tools cannot run with.
func (c *Config) Validate() error {
	if c.Binding == "" {
		return fmt.Errorf("binding must not be empty")
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connect_timeout must be positive, got %s", c.ConnectTimeout)
	}
	if c.OpTimeout <= 0 {
		return fmt.Errorf("op_timeout must be positive, got %s", c.OpTimeout)
	}
	if c.Record.Seconds <= 0 {
		return fmt.Errorf("record.seconds must be positive, got %d", c.Record.Seconds)
	}
	if c.Record.SampleRate <= 0 {
		return fmt.Errorf("record.sample_rate must be positive, got %d", c.Record.SampleRate)
	}
	if c.Record.Channels < 1 || c.Record.Channels > 2 {
		return fmt.Errorf("record.channels must be 1 or 2, got %d", c.Record.Channels)
	}
	if c.Record.FrameSize <= 0 {
		return fmt.Errorf("record.frame_size must be positive, got %d", c.Record.FrameSize)
	}
	return nil
}

// SPDX-FileCopyrightText: (C) 2025 DragonSync contributors
// SPDX-License-Identifier: MIT

// Package config carries the fixed addressing of the appliance hardware and
// the knobs of the flashing run. Everything has a WarDragon default; an
// optional YAML file overrides individual fields.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const (
	// EsptoolRepo is where the flashing tool is cloned from when it is
	// not installed system-wide.
	EsptoolRepo = "https://github.com/espressif/esptool.git"

	// EsptoolEntry is the entry-point script expected inside a clone. Its
	// absence after a clone means the clone is corrupt.
	EsptoolEntry = "esptool.py"
)

// Device is the fixed addressing of the radio peripheral. It is static
// appliance configuration, never auto-detected.
type Device struct {
	Chip   string `mapstructure:"chip"`
	Port   string `mapstructure:"port"`
	Baud   int    `mapstructure:"baud"`
	Before string `mapstructure:"before"`
	After  string `mapstructure:"after"`

	FlashMode string `mapstructure:"flashMode"`
	FlashFreq string `mapstructure:"flashFreq"`
	FlashSize string `mapstructure:"flashSize"`
	Offset    string `mapstructure:"offset"`
}

// Config is the explicit configuration value handed to the orchestrator.
type Config struct {
	Device Device `mapstructure:"device"`

	// Service is the systemd unit that owns the serial port while the
	// appliance is running. It is quiesced around the flash.
	Service string `mapstructure:"service"`

	// WorkDir holds downloaded firmware files and the esptool clone. It
	// is an append-only cache shared across runs.
	WorkDir string `mapstructure:"workDir"`

	EsptoolRepo string `mapstructure:"esptoolRepo"`

	// DownloadTimeout bounds a single firmware download attempt,
	// RetryWindow bounds all attempts together, FlashTimeout bounds the
	// esptool subprocess. The original shell tooling had none of these
	// and a stalled serial write hung the run forever.
	DownloadTimeout time.Duration `mapstructure:"downloadTimeout"`
	RetryWindow     time.Duration `mapstructure:"retryWindow"`
	FlashTimeout    time.Duration `mapstructure:"flashTimeout"`
}

// Default returns the WarDragon appliance configuration.
func Default() Config {
	return Config{
		Device: Device{
			Chip:      "esp32",
			Port:      "/dev/ttyUSB0",
			Baud:      115200,
			Before:    "default_reset",
			After:     "hard_reset",
			FlashMode: "dio",
			FlashFreq: "40m",
			FlashSize: "detect",
			Offset:    "0x10000",
		},
		Service:         "dragonsync.service",
		WorkDir:         ".",
		EsptoolRepo:     EsptoolRepo,
		DownloadTimeout: 5 * time.Minute,
		RetryWindow:     10 * time.Minute,
		FlashTimeout:    10 * time.Minute,
	}
}

// Load merges an optional YAML config file over the defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the fields the orchestrator cannot run without.
func (c Config) Validate() error {
	switch {
	case c.Device.Port == "":
		return fmt.Errorf("device port must not be empty")
	case c.Device.Chip == "":
		return fmt.Errorf("device chip must not be empty")
	case c.Device.Baud <= 0:
		return fmt.Errorf("device baud must be positive, got %d", c.Device.Baud)
	case c.Service == "":
		return fmt.Errorf("service name must not be empty")
	case c.WorkDir == "":
		return fmt.Errorf("work dir must not be empty")
	case c.EsptoolRepo == "":
		return fmt.Errorf("esptool repo must not be empty")
	}
	return nil
}

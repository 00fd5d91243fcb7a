// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Ryan Bahl

package cmd

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds receiver configuration.
type Config struct {
	CAN     CANConfig     `yaml:"can"`
	Staging StagingConfig `yaml:"staging"`
	Timing  TimingConfig  `yaml:"timing"`
}

// CANConfig selects which frames belong to the transfer service. The
// 11-bit identifier carries the device id in the low byte and the
// message id above it.
type CANConfig struct {
	DeviceID      uint8 `yaml:"device_id"`
	ResponseID    uint8 `yaml:"response_device_id"`
	ResponseMsgID uint8 `yaml:"response_msg_id"`
}

// StagingConfig describes the address layout of the target device.
type StagingConfig struct {
	FlashBase   uint32 `yaml:"flash_base"`
	StagingBase uint32 `yaml:"staging_base"`
	StagingSize uint32 `yaml:"staging_size"`
}

// TimingConfig holds the protocol timers in milliseconds.
type TimingConfig struct {
	LineTimeoutMs       int `yaml:"line_timeout_ms"`
	InactivityTimeoutMs int `yaml:"inactivity_timeout_ms"`
	TickMs              int `yaml:"tick_ms"`
}

// DefaultConfig returns the Teensy 3.5 layout used by the stock FlasherX
// bootloader: 512K of flash with the staging region in the upper half.
func DefaultConfig() Config {
	return Config{
		CAN: CANConfig{
			DeviceID:      0x00,
			ResponseID:    0x00,
			ResponseMsgID: 0x01,
		},
		Staging: StagingConfig{
			FlashBase:   0x00000000,
			StagingBase: 0x00040000,
			StagingSize: 0x00040000,
		},
		Timing: TimingConfig{
			LineTimeoutMs:       5000,
			InactivityTimeoutMs: 15000,
			TickMs:              100,
		},
	}
}

// LoadConfig reads a YAML config file over the defaults. An empty path
// returns the defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	if cfg.Staging.StagingSize == 0 {
		return cfg, fmt.Errorf("config %s: staging_size must be non-zero", path)
	}
	if cfg.Timing.TickMs <= 0 {
		cfg.Timing.TickMs = 100
	}
	return cfg, nil
}

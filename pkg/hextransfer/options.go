// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Ryan Bahl

package hextransfer

import "time"

// Clock supplies the session's notion of now. Swappable for tests.
type Clock func() time.Time

// Logger receives per-frame diagnostics from the session (optional).
// *log.Logger satisfies it.
type Logger interface {
	Printf(format string, v ...interface{})
}

// Config holds the session configuration.
type Config struct {
	clock  Clock
	logger Logger

	flash       Flash
	flashBase   uint32 // first physical flash address
	stagingBase uint32 // first address of the staging region
	stagingLen  uint32 // staging region size in bytes

	dryRun        bool
	verifyRecords bool

	lineTimeout       time.Duration
	inactivityTimeout time.Duration
}

// defaultConfig returns the default session configuration: host-side RAM
// staging with record checksum verification on.
func defaultConfig() Config {
	return Config{
		clock:             time.Now,
		flashBase:         0,
		stagingBase:       0,
		stagingLen:        256 * 1024,
		verifyRecords:     true,
		lineTimeout:       DefaultLineTimeout,
		inactivityTimeout: DefaultInactivityTimeout,
	}
}

// Option is a functional option for configuring a Session.
type Option func(*Config)

// WithClock sets the time source. Tests inject a fake clock to drive the
// line and inactivity timers deterministically.
func WithClock(clock Clock) Option {
	return func(c *Config) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithLogger sets a diagnostic logger for dropped frames and line
// failures.
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithFlash sets the flash driver. Writes whose target address the
// driver claims go to flash; everything else lands in the session's RAM
// staging buffer.
func WithFlash(flash Flash) Option {
	return func(c *Config) {
		c.flash = flash
	}
}

// WithFlashBase sets the first physical flash address used to translate
// image addresses into staging offsets.
func WithFlashBase(addr uint32) Option {
	return func(c *Config) {
		c.flashBase = addr
	}
}

// WithStagingRegion sets the staging region's base address and size.
func WithStagingRegion(base, size uint32) Option {
	return func(c *Config) {
		c.stagingBase = base
		if size > 0 {
			c.stagingLen = size
		}
	}
}

// WithDryRun elides all flash and RAM writes while keeping full protocol
// behavior, including address bounds checking.
func WithDryRun(dryRun bool) Option {
	return func(c *Config) {
		c.dryRun = dryRun
	}
}

// WithRecordChecksumVerification enables or disables verification of
// each record's own Intel-HEX checksum byte. Default is true; a failed
// check is recovered by a line retransmit like any parse failure.
func WithRecordChecksumVerification(verify bool) Option {
	return func(c *Config) {
		c.verifyRecords = verify
	}
}

// WithLineTimeout sets how long the session waits for a line's segments
// before asking the host to resend the line.
func WithLineTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.lineTimeout = d
		}
	}
}

// WithInactivityTimeout sets how long the session tolerates silence
// before aborting the transfer.
func WithInactivityTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.inactivityTimeout = d
		}
	}
}

// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Ryan Bahl

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/Ryanbahl9/FlasherX-can/pkg/hextransfer"
	"github.com/fxamacker/cbor/v2"
)

// TransferReport summarizes a completed transfer for downstream
// tooling (activation scripts, CI artifacts).
type TransferReport struct {
	ReceivedAt   time.Time `cbor:"received_at"`
	Lines        uint16    `cbor:"lines"`
	FileChecksum uint32    `cbor:"file_crc"`
	MinAddr      uint32    `cbor:"min_addr"`
	MaxAddr      uint32    `cbor:"max_addr"`
	StartAddr    uint32    `cbor:"start_addr"`
	ImageSize    uint32    `cbor:"image_size"`
}

// WriteTransferReport encodes a CBOR report of the session's completed
// transfer to the given path.
func WriteTransferReport(path string, session *hextransfer.Session) error {
	lines, _ := session.Progress()
	min, max := session.Bounds()

	report := TransferReport{
		ReceivedAt:   time.Now(),
		Lines:        lines,
		FileChecksum: session.FileChecksum(),
		MinAddr:      min,
		MaxAddr:      max,
		StartAddr:    session.StartAddress(),
	}
	if max > min {
		report.ImageSize = max - min
	}

	data, err := cbor.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}

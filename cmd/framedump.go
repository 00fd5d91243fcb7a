// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Ryan Bahl

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Ryanbahl9/FlasherX-can/pkg/hextransfer"
	"github.com/spf13/cobra"
)

var (
	framedumpAllIDs bool
)

var framedumpCmd = &cobra.Command{
	Use:   "framedump",
	Short: "Decode and print transfer frames from the CAN stream",
	Long: `Dump decoded transfer frames in human-readable form.

Reads the SLCAN stream, decodes every 8-byte transfer frame addressed to
the configured device id, and prints its fields along with any anomalies
found by frame validation (bad init checksum, out-of-range segment
fields, non-ASCII payload bytes).

Useful for debugging host senders without running a full receiver
session.`,
	RunE: runFramedump,
}

func init() {
	rootCmd.AddCommand(framedumpCmd)
	framedumpCmd.Flags().BoolVar(&framedumpAllIDs, "all-ids", false, "Dump frames for every CAN id, not just the configured device")
}

func runFramedump(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}

	fc, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer fc.Close()

	fmt.Printf("FlasherX - Frame Dump\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	for {
		frame, err := fc.ReadFrame()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
			os.Exit(2)
		}
		if frame.Remote || frame.DLC != hextransfer.FrameSize {
			continue
		}
		if !framedumpAllIDs && uint8(frame.ID&0xFF) != cfg.CAN.DeviceID {
			continue
		}

		fmt.Printf("id=%03X %s\n", frame.ID, hextransfer.FormatFrame(frame.Data))
		for _, anomaly := range hextransfer.ValidateFrame(frame.Data) {
			fmt.Printf("        ANOMALY: %s\n", anomaly.Message)
		}
	}
}

// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Ryan Bahl

package cmd

import (
	"github.com/spf13/cobra"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Config file
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "flasherx",
	Short: "FlasherX CAN firmware transfer receiver",
	Long: `FlasherX - receiver side of the over-CAN firmware update protocol.

A host streams an Intel HEX image as 8-byte CAN frames; this tool
reassembles the image into a staging buffer exactly the way the on-device
receiver does, acknowledging each line and verifying the file CRC.

Connection modes:
  Serial SLCAN adapter: --port /dev/ttyACM0 [--baud 115200]
  WebSocket bridge:     --url ws://host/path [--username user]

For WebSocket authentication, the password is read from the
FLASHERX_PASSWORD environment variable, or prompted interactively if not
set. The --password flag is intentionally not provided to avoid leaking
credentials in shell history.`,
	Version: "1.2.0",
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Baud rate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

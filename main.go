// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Ryan Bahl
//
// FlasherX-can - CAN firmware transfer receiver
//
// Receiver side of the over-CAN Intel HEX firmware update protocol,
// with CLI tools for receiving, monitoring and debugging transfers.

package main

import (
	"os"

	"github.com/Ryanbahl9/FlasherX-can/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

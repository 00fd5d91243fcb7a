// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Ryan Bahl

package cmd

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Ryanbahl9/FlasherX-can/pkg/hextransfer"
	"github.com/Ryanbahl9/FlasherX-can/pkg/slcan"
	"github.com/spf13/cobra"
)

var (
	receiveOut     string
	receiveReport  string
	receiveDryRun  bool
	receiveVerbose bool
)

var receiveCmd = &cobra.Command{
	Use:   "receive",
	Short: "Run the firmware transfer receiver",
	Long: `Receive a firmware image over the CAN transfer protocol.

Connects to an SLCAN adapter (serial) or a WebSocket CAN bridge, feeds
transfer frames addressed to this device into the receiver session, and
acknowledges each HEX line back to the host. On a completed transfer the
staged image is written to --out and an optional CBOR report to --report.

The receiver keeps running after errors; the host restarts a failed
transfer with a fresh init message.`,
	RunE: runReceive,
}

func init() {
	rootCmd.AddCommand(receiveCmd)
	receiveCmd.Flags().StringVarP(&receiveOut, "out", "o", "firmware.bin", "Output file for the staged image")
	receiveCmd.Flags().StringVar(&receiveReport, "report", "", "Write a CBOR transfer report to this file")
	receiveCmd.Flags().BoolVar(&receiveDryRun, "dry-run", false, "Track addresses but stage no bytes")
	receiveCmd.Flags().BoolVarP(&receiveVerbose, "verbose", "v", false, "Log per-frame session diagnostics")
}

// responseFrame wraps a packed response in a CAN frame with the
// configured response identifier.
func responseFrame(cfg Config, resp hextransfer.Response) slcan.Frame {
	return slcan.Frame{
		ID:   uint32(cfg.CAN.ResponseID) | uint32(cfg.CAN.ResponseMsgID)<<8,
		DLC:  hextransfer.FrameSize,
		Data: resp.Pack(),
	}
}

// newSession builds a receiver session from the loaded config and flags.
func newSession(cfg Config, dryRun, verbose bool) *hextransfer.Session {
	opts := []hextransfer.Option{
		hextransfer.WithFlashBase(cfg.Staging.FlashBase),
		hextransfer.WithStagingRegion(cfg.Staging.StagingBase, cfg.Staging.StagingSize),
		hextransfer.WithLineTimeout(time.Duration(cfg.Timing.LineTimeoutMs) * time.Millisecond),
		hextransfer.WithInactivityTimeout(time.Duration(cfg.Timing.InactivityTimeoutMs) * time.Millisecond),
		hextransfer.WithDryRun(dryRun),
	}
	if verbose {
		opts = append(opts, hextransfer.WithLogger(log.New(os.Stderr, "[session] ", log.LstdFlags)))
	}
	return hextransfer.NewSession(opts...)
}

// transferFrame reports whether a CAN frame belongs to this device's
// transfer service: a data frame with a full payload whose identifier
// carries the device id in the low byte.
func transferFrame(frame slcan.Frame, deviceID uint8) bool {
	return !frame.Remote &&
		frame.DLC == hextransfer.FrameSize &&
		uint8(frame.ID&0xFF) == deviceID
}

// readFrames forwards transfer frames for this device in delivery order.
func readFrames(fc *FrameConn, deviceID uint8, frames chan<- [8]byte, errs chan<- error) {
	for {
		frame, err := fc.ReadFrame()
		if err != nil {
			errs <- err
			return
		}
		if transferFrame(frame, deviceID) {
			frames <- frame.Data
		}
	}
}

func runReceive(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}

	fc, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer fc.Close()

	log.Printf("[receive] connection: %s", connInfo)
	log.Printf("[receive] device id 0x%02X, staging 0x%08X+0x%X",
		cfg.CAN.DeviceID, cfg.Staging.StagingBase, cfg.Staging.StagingSize)

	session := newSession(cfg, receiveDryRun, receiveVerbose)

	frames := make(chan [8]byte, 64)
	errs := make(chan error, 1)
	go readFrames(fc, cfg.CAN.DeviceID, frames, errs)

	ticker := time.NewTicker(time.Duration(cfg.Timing.TickMs) * time.Millisecond)
	defer ticker.Stop()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case buf := <-frames:
			session.HandleFrame(buf)

		case <-ticker.C:
			resp := session.Update()
			if resp == nil {
				continue
			}
			if err := fc.WriteFrame(responseFrame(cfg, *resp)); err != nil {
				return fmt.Errorf("write response: %w", err)
			}
			if receiveVerbose {
				log.Printf("[receive] -> %s", hextransfer.FormatResponse(*resp))
			}

			switch resp.Code {
			case hextransfer.ResponseTransferComplete:
				return finishReceive(cfg, session)
			case hextransfer.ResponseError:
				log.Printf("[receive] transfer error: %s",
					hextransfer.FormatErrorCode(resp.Err))
			}

		case err := <-errs:
			return fmt.Errorf("read frames: %w", err)

		case <-sigs:
			log.Printf("[receive] interrupted")
			fmt.Print(statsString(session))
			return nil
		}
	}
}

// finishReceive writes the staged image and optional report after a
// completed transfer.
func finishReceive(cfg Config, session *hextransfer.Session) error {
	lines, _ := session.Progress()
	min, max := session.Bounds()
	log.Printf("[receive] transfer complete: %d lines, crc 0x%08X, image [0x%08X,0x%08X)",
		lines, session.FileChecksum(), min, max)

	if !receiveDryRun {
		if err := saveImage(receiveOut, cfg, session); err != nil {
			return err
		}
		log.Printf("[receive] image written to %s", receiveOut)
	}
	if receiveReport != "" {
		if err := WriteTransferReport(receiveReport, session); err != nil {
			return err
		}
		log.Printf("[receive] report written to %s", receiveReport)
	}

	fmt.Print(statsString(session))
	return nil
}

// saveImage extracts the written address range from the staging buffer.
func saveImage(path string, cfg Config, session *hextransfer.Session) error {
	min, max := session.Bounds()
	if max <= min {
		return fmt.Errorf("no data records were staged")
	}
	image := session.Image()[min-cfg.Staging.FlashBase : max-cfg.Staging.FlashBase]
	if err := os.WriteFile(path, image, 0644); err != nil {
		return fmt.Errorf("write image %s: %w", path, err)
	}
	return nil
}

func statsString(session *hextransfer.Session) string {
	stats := session.Stats()
	return stats.String()
}

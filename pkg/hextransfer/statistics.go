// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Ryan Bahl

package hextransfer

import "fmt"

// Statistics tracks frame and line counters for one session.
type Statistics struct {
	TotalFrames   uint64
	InitFrames    uint64
	SegmentFrames uint64

	DroppedFrames  uint64 // segments with no active transfer
	LineMismatches uint64 // segments for a line other than the current one
	SegmentErrors  uint64 // totals mismatch, bad segment index

	LinesCompleted     uint64
	LineFailures       uint64 // parse or record processing failures
	LineRetries        uint64 // SEND_LINE emitted by the line timer
	InitChecksumErrors uint64
	FileChecksumErrors uint64
	InactivityTimeouts uint64
}

// Errors returns the total number of error events.
func (s *Statistics) Errors() uint64 {
	return s.DroppedFrames + s.LineMismatches + s.SegmentErrors +
		s.LineFailures + s.InitChecksumErrors + s.FileChecksumErrors +
		s.InactivityTimeouts
}

// String returns a formatted statistics summary.
func (s *Statistics) String() string {
	result := "=== Transfer Statistics ===\n"
	result += fmt.Sprintf("Total Frames:    %8d\n", s.TotalFrames)
	result += fmt.Sprintf("  Init Frames:     %6d\n", s.InitFrames)
	result += fmt.Sprintf("  Segment Frames:  %6d\n", s.SegmentFrames)
	result += fmt.Sprintf("Lines Completed: %8d\n", s.LinesCompleted)

	if s.LineFailures > 0 {
		result += fmt.Sprintf("Line Failures:   %8d\n", s.LineFailures)
	}
	if s.LineRetries > 0 {
		result += fmt.Sprintf("Line Retries:    %8d\n", s.LineRetries)
	}
	if s.DroppedFrames > 0 {
		result += fmt.Sprintf("Dropped Frames:  %8d\n", s.DroppedFrames)
	}
	if s.LineMismatches > 0 {
		result += fmt.Sprintf("Line Mismatches: %8d\n", s.LineMismatches)
	}
	if s.SegmentErrors > 0 {
		result += fmt.Sprintf("Segment Errors:  %8d\n", s.SegmentErrors)
	}
	if s.InitChecksumErrors > 0 {
		result += fmt.Sprintf("Init CRC Errors: %8d\n", s.InitChecksumErrors)
	}
	if s.FileChecksumErrors > 0 {
		result += fmt.Sprintf("File CRC Errors: %8d\n", s.FileChecksumErrors)
	}
	if s.InactivityTimeouts > 0 {
		result += fmt.Sprintf("Timeouts:        %8d\n", s.InactivityTimeouts)
	}
	result += "===========================\n"
	return result
}

// Reset clears all counters.
func (s *Statistics) Reset() {
	*s = Statistics{}
}

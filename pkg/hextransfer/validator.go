// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Ryan Bahl

package hextransfer

import "fmt"

// AnomalyType classifies frame-level anomalies found by ValidateFrame.
type AnomalyType int

const (
	AnomalyInitChecksum AnomalyType = iota
	AnomalyLineCount
	AnomalySegmentTotal
	AnomalySegmentIndex
	AnomalySegmentText
)

// ValidationError describes one frame anomaly.
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]interface{}
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	return v.Message
}

// ValidateFrame scans a decoded frame for out-of-range fields and
// suspicious payload bytes. It is a diagnostic surface for frame dumps
// and monitoring; the session applies its own hard validation.
func ValidateFrame(buf [FrameSize]byte) []ValidationError {
	if IsInitFrame(buf) {
		return validateInitMsg(UnpackInitMsg(buf), buf)
	}
	return validateSegmentMsg(UnpackSegmentMsg(buf))
}

func validateInitMsg(m InitMsg, buf [FrameSize]byte) []ValidationError {
	errors := []ValidationError{}

	if m.LineCount == 0 {
		errors = append(errors, ValidationError{
			Type:    AnomalyLineCount,
			Message: fmt.Sprintf("init line count is zero (valid 1-%d)", MaxLineCount),
			Details: map[string]interface{}{"line_count": m.LineCount, "max": MaxLineCount},
		})
	}

	if calculated := InitChecksum(buf); calculated != m.Checksum {
		errors = append(errors, ValidationError{
			Type:    AnomalyInitChecksum,
			Message: fmt.Sprintf("init checksum mismatch: carried 0x%04X, calculated 0x%04X", m.Checksum, calculated),
			Details: map[string]interface{}{"carried": m.Checksum, "calculated": calculated},
		})
	}

	return errors
}

func validateSegmentMsg(m SegmentMsg) []ValidationError {
	errors := []ValidationError{}

	if m.TotalSegments == 0 || m.TotalSegments > MaxChunksPerLine {
		errors = append(errors, ValidationError{
			Type:    AnomalySegmentTotal,
			Message: fmt.Sprintf("total segments %d out of range (valid 1-%d)", m.TotalSegments, MaxChunksPerLine),
			Details: map[string]interface{}{"total": m.TotalSegments, "max": MaxChunksPerLine},
		})
	}

	if m.TotalSegments != 0 && m.SegmentNum >= m.TotalSegments {
		errors = append(errors, ValidationError{
			Type:    AnomalySegmentIndex,
			Message: fmt.Sprintf("segment %d at or past total %d", m.SegmentNum, m.TotalSegments),
			Details: map[string]interface{}{"segment": m.SegmentNum, "total": m.TotalSegments},
		})
	}

	// Segment text bytes must be printable ASCII or PAD. Where PAD
	// appears, and in which segment of the line, is not checked.
	for i, c := range m.Data {
		if c == Pad || (c >= 0x20 && c < 0x7F) {
			continue
		}
		errors = append(errors, ValidationError{
			Type:    AnomalySegmentText,
			Message: fmt.Sprintf("non-ASCII byte 0x%02X at segment offset %d", c, i),
			Details: map[string]interface{}{"byte": c, "offset": i},
		})
		break
	}

	return errors
}

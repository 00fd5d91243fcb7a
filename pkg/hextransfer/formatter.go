// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Ryan Bahl

package hextransfer

import (
	"fmt"
	"strings"
)

// FormatFrame renders an inbound 8-byte frame in human-readable form.
// Segment text is shown as ASCII with PAD bytes rendered as dots.
func FormatFrame(buf [FrameSize]byte) string {
	if IsInitFrame(buf) {
		msg := UnpackInitMsg(buf)
		status := "ok"
		if !msg.ChecksumOK() {
			status = "BAD CRC"
		}
		return fmt.Sprintf("INIT  lines=%d file_crc=0x%08X init_crc=0x%04X (%s)",
			msg.LineCount, msg.FileChecksum, msg.Checksum, status)
	}

	msg := UnpackSegmentMsg(buf)
	return fmt.Sprintf("SEG   line=%d seg=%d/%d text=%q",
		msg.LineNum, msg.SegmentNum+1, msg.TotalSegments, FormatSegmentText(msg.Data[:]))
}

// FormatSegmentText renders segment payload bytes as printable ASCII,
// with PAD shown as '.' and anything unprintable as '?'.
func FormatSegmentText(data []byte) string {
	var b strings.Builder
	for _, c := range data {
		switch {
		case c == Pad:
			b.WriteByte('.')
		case c >= 0x20 && c < 0x7F:
			b.WriteByte(c)
		default:
			b.WriteByte('?')
		}
	}
	return b.String()
}

// FormatResponse renders an outbound response.
func FormatResponse(r Response) string {
	switch r.Code {
	case ResponseNone:
		return "NONE"
	case ResponseSendLine:
		return fmt.Sprintf("SEND_LINE %d", r.Line)
	case ResponseTransferComplete:
		return "TRANSFER_COMPLETE"
	case ResponseError:
		return fmt.Sprintf("ERROR %s", FormatErrorCode(r.Err))
	}
	return fmt.Sprintf("UNKNOWN (0x%02X)", uint8(r.Code))
}

// FormatErrorCode returns the human-readable name for an error code.
func FormatErrorCode(code ErrorCode) string {
	switch code {
	case ErrorCodeNone:
		return "NONE"
	case ErrorCodeInitChecksum:
		return "INIT_CHECKSUM"
	case ErrorCodeTransferNotInProgress:
		return "TRANSFER_NOT_IN_PROGRESS"
	case ErrorCodeFileChecksum:
		return "FILE_CHECKSUM"
	case ErrorCodeInactivityTimeout:
		return "INACTIVITY_TIMEOUT"
	}
	return fmt.Sprintf("UNKNOWN (0x%02X)", uint8(code))
}

// FormatRecordType returns the human-readable name for a record type.
func FormatRecordType(recType uint8) string {
	switch recType {
	case RecordData:
		return "DATA"
	case RecordEOF:
		return "EOF"
	case RecordExtSegmentAddr:
		return "EXT_SEGMENT_ADDR"
	case RecordStartSegmentAddr:
		return "START_SEGMENT_ADDR"
	case RecordExtLinearAddr:
		return "EXT_LINEAR_ADDR"
	case RecordStartLinearAddr:
		return "START_LINEAR_ADDR"
	}
	return fmt.Sprintf("UNKNOWN (0x%02X)", recType)
}

// FormatRecord renders a parsed record for debug output.
func FormatRecord(rec ParsedHexLine) string {
	if !rec.Valid {
		return "INVALID RECORD"
	}
	result := fmt.Sprintf("%s addr=0x%04X count=%d",
		FormatRecordType(rec.RecordType), rec.Address, rec.ByteCount)
	if rec.ByteCount > 0 {
		result += " data="
		for i := 0; i < int(rec.ByteCount); i++ {
			result += fmt.Sprintf("%02X", rec.Data[i])
		}
	}
	return result
}

// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Ryan Bahl

package hextransfer

import (
	"hash/crc32"
	"testing"
)

// ============================================================
// Frame Codec Tests
// ============================================================

func TestIsInitFrame(t *testing.T) {
	init := InitMsg{LineCount: 1}.Pack()
	if !IsInitFrame(init) {
		t.Error("InitMsg frame should have bit 0 clear")
	}

	seg := SegmentMsg{LineNum: 0, TotalSegments: 1}.Pack()
	if IsInitFrame(seg) {
		t.Error("SegmentMsg frame should have bit 0 set")
	}
}

func TestInitMsg_PackUnpackInvolution(t *testing.T) {
	tests := []struct {
		name string
		msg  InitMsg
	}{
		{"minimal", InitMsg{LineCount: 1}},
		{"typical", InitMsg{LineCount: 1234, FileChecksum: 0xDEADBEEF, Checksum: 0x55AA}},
		{"max line count", InitMsg{LineCount: 32767, FileChecksum: 0xFFFFFFFF, Checksum: 0xFFFF}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UnpackInitMsg(tt.msg.Pack())
			if got != tt.msg {
				t.Errorf("round trip mismatch: sent %+v, got %+v", tt.msg, got)
			}
		})
	}
}

func TestSegmentMsg_PackUnpackInvolution(t *testing.T) {
	tests := []struct {
		name string
		msg  SegmentMsg
	}{
		{"first segment", SegmentMsg{LineNum: 0, SegmentNum: 0, TotalSegments: 1,
			Data: [5]byte{':', '0', '0', '0', '0'}}},
		{"mid segment", SegmentMsg{LineNum: 512, SegmentNum: 4, TotalSegments: 9,
			Data: [5]byte{'1', '2', '3', '4', '5'}}},
		{"padded tail", SegmentMsg{LineNum: 32767, SegmentNum: 8, TotalSegments: 9,
			Data: [5]byte{'F', 'F', Pad, Pad, Pad}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UnpackSegmentMsg(tt.msg.Pack())
			if got != tt.msg {
				t.Errorf("round trip mismatch: sent %+v, got %+v", tt.msg, got)
			}
		})
	}
}

func TestSegmentMsg_BitLayout(t *testing.T) {
	// line 5, segment 2 of 3: bit 0 = 1, bits 1-15 = 5, bits 16-19 = 2,
	// bits 20-23 = 3, text from bit 24
	msg := SegmentMsg{LineNum: 5, SegmentNum: 2, TotalSegments: 3,
		Data: [5]byte{'A', 'B', 'C', 'D', 'E'}}
	buf := msg.Pack()

	if buf[0] != (5<<1 | 1) {
		t.Errorf("byte 0: expected 0x%02X, got 0x%02X", 5<<1|1, buf[0])
	}
	if buf[1] != 0 {
		t.Errorf("byte 1: expected 0x00, got 0x%02X", buf[1])
	}
	if buf[2] != (3<<4 | 2) {
		t.Errorf("byte 2: expected 0x%02X, got 0x%02X", 3<<4|2, buf[2])
	}
	for i := 0; i < 5; i++ {
		if buf[3+i] != msg.Data[i] {
			t.Errorf("byte %d: expected %q, got %q", 3+i, msg.Data[i], buf[3+i])
		}
	}
}

func TestInitMsg_BitLayout(t *testing.T) {
	msg := InitMsg{LineCount: 3, FileChecksum: 0x44332211, Checksum: 0xBBAA}
	buf := msg.Pack()

	expected := [8]byte{3 << 1, 0x00, 0x11, 0x22, 0x33, 0x44, 0xAA, 0xBB}
	if buf != expected {
		t.Errorf("layout mismatch: expected % X, got % X", expected, buf)
	}
}

// ============================================================
// Init Checksum Tests
// ============================================================

func TestInitChecksum_MatchesCRC32OfFirstSixBytes(t *testing.T) {
	msg := InitMsg{LineCount: 42, FileChecksum: 0xCAFEF00D}
	buf := msg.Pack()

	expected := uint16(crc32.ChecksumIEEE(buf[0:6]))
	if got := InitChecksum(buf); got != expected {
		t.Errorf("expected 0x%04X, got 0x%04X", expected, got)
	}
}

func TestInitMsg_PackWithChecksum(t *testing.T) {
	buf := InitMsg{LineCount: 7, FileChecksum: 0x12345678}.PackWithChecksum()
	msg := UnpackInitMsg(buf)

	if !msg.ChecksumOK() {
		t.Error("PackWithChecksum should produce a self-consistent frame")
	}

	// Any bit flip in the covered bytes must break the checksum
	buf[2] ^= 0x01
	if UnpackInitMsg(buf).ChecksumOK() {
		t.Error("checksum should fail after a bit flip")
	}
}

// ============================================================
// Response Codec Tests
// ============================================================

func TestResponse_PackUnpackInvolution(t *testing.T) {
	tests := []struct {
		name string
		resp Response
	}{
		{"none", Response{Code: ResponseNone}},
		{"send line 0", Response{Code: ResponseSendLine, Line: 0}},
		{"send line 32766", Response{Code: ResponseSendLine, Line: 32766}},
		{"complete", Response{Code: ResponseTransferComplete}},
		{"error init checksum", Response{Code: ResponseError, Err: ErrorCodeInitChecksum}},
		{"error timeout", Response{Code: ResponseError, Err: ErrorCodeInactivityTimeout}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UnpackResponse(tt.resp.Pack())
			if got != tt.resp {
				t.Errorf("round trip mismatch: sent %+v, got %+v", tt.resp, got)
			}
		})
	}
}

func TestResponse_UnusedPayloadBytesAreZero(t *testing.T) {
	buf := Response{Code: ResponseSendLine, Line: 9}.Pack()
	for i := 3; i < FrameSize; i++ {
		if buf[i] != 0 {
			t.Errorf("byte %d should be zero, got 0x%02X", i, buf[i])
		}
	}
}

// ============================================================
// File Checksum Tests
// ============================================================

func TestFileChecksum_IncrementalEqualsWhole(t *testing.T) {
	lines := [][]byte{
		[]byte(":10010000214601360121470136007EFE09D2190140"),
		[]byte(":00000001FF"),
	}

	var incremental uint32
	var concatenated []byte
	for _, line := range lines {
		incremental = UpdateFileChecksum(incremental, line)
		concatenated = append(concatenated, line...)
	}

	if whole := crc32.ChecksumIEEE(concatenated); incremental != whole {
		t.Errorf("incremental 0x%08X != whole-file 0x%08X", incremental, whole)
	}
	if batch := FileChecksum(lines); batch != incremental {
		t.Errorf("FileChecksum 0x%08X != incremental 0x%08X", batch, incremental)
	}
}

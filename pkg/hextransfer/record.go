// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Ryan Bahl

package hextransfer

import "encoding/binary"

// processRecord applies one parsed record to the transfer state.
func (s *Session) processRecord(rec *ParsedHexLine) error {
	switch rec.RecordType {
	case RecordData:
		return s.writeData(rec)

	case RecordEOF:
		if s.currentLine != s.expectedLines-1 {
			return &EOFPositionError{Line: s.currentLine, Expected: s.expectedLines - 1}
		}
		s.eofSeen = true
		return nil

	case RecordExtSegmentAddr:
		s.baseAddr = (uint32(rec.Data[0])<<8 | uint32(rec.Data[1])) << 4
		return nil

	case RecordExtLinearAddr:
		s.baseAddr = (uint32(rec.Data[0])<<8 | uint32(rec.Data[1])) << 16
		return nil

	case RecordStartSegmentAddr, RecordStartLinearAddr:
		// Inert for the transfer itself; the entry point is kept for
		// the completion report.
		if rec.ByteCount >= 4 {
			s.startAddr = binary.BigEndian.Uint32(rec.Data[0:4])
		}
		return nil
	}
	return &RecordTypeError{Type: rec.RecordType}
}

// writeData stages one data record. The address bounds are extended
// first; a record that would run past the staging region fails before
// any byte is written.
func (s *Session) writeData(rec *ParsedHexLine) error {
	abs := s.baseAddr + uint32(rec.Address)
	end := abs + uint32(rec.ByteCount)

	if abs < s.minAddr {
		s.minAddr = abs
	}
	if end > s.maxAddr {
		s.maxAddr = end
	}
	limit := s.cfg.flashBase + s.cfg.stagingLen
	if s.maxAddr > limit {
		return &StagingOverflowError{End: s.maxAddr, Limit: limit}
	}

	if rec.ByteCount == 0 || s.cfg.dryRun {
		return nil
	}

	data := rec.Data[:rec.ByteCount]
	dst := s.cfg.stagingBase + abs - s.cfg.flashBase
	if s.cfg.flash != nil && s.cfg.flash.Contains(dst) {
		return s.cfg.flash.Write(dst, data)
	}

	copy(s.ram[abs-s.cfg.flashBase:], data)
	return nil
}

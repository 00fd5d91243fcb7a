// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Ryan Bahl

package hextransfer

import "hash/crc32"

// Both transfer checksums use the standard reflected CRC-32
// (polynomial 0xEDB88320, init 0xFFFFFFFF, xorout 0xFFFFFFFF),
// which is exactly crc32.ChecksumIEEE.

// InitChecksum computes the 16-bit init-message checksum: CRC-32 over the
// first six bytes of the packed frame, truncated to the low 16 bits.
func InitChecksum(buf [FrameSize]byte) uint16 {
	return uint16(crc32.ChecksumIEEE(buf[0:6]))
}

// UpdateFileChecksum folds the ASCII bytes of one accepted HEX line into
// the running file checksum. A zero crc starts a new file.
func UpdateFileChecksum(crc uint32, line []byte) uint32 {
	return crc32.Update(crc, crc32.IEEETable, line)
}

// FileChecksum computes the file checksum over a whole image in one call.
// Equivalent to folding each line through UpdateFileChecksum in order.
func FileChecksum(lines [][]byte) uint32 {
	var crc uint32
	for _, line := range lines {
		crc = UpdateFileChecksum(crc, line)
	}
	return crc
}

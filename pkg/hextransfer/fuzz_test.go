// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Ryan Bahl

package hextransfer

import (
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 500
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 500
}

// getFuzzSeed returns the seed from FUZZ_SEED env var, or generates one from current time
func getFuzzSeed() int64 {
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

// randomHexLine builds a random well-formed data record.
func randomHexLine(rng *rand.Rand) string {
	data := make([]byte, rng.Intn(MaxRecordDataBytes+1))
	for i := range data {
		data[i] = byte(rng.Intn(256))
	}
	return buildHexLine(uint16(rng.Intn(0x8000)), RecordData, data)
}

// ============================================================
// Randomized Reassembly Tests
// ============================================================

func TestFuzz_SegmentPermutationsAndDuplicates(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for round := 0; round < rounds; round++ {
		line := randomHexLine(rng)
		segs := segmentsOf(line)
		total := uint8(len(segs))

		// Shuffled delivery order with random duplicates mixed in
		order := rng.Perm(len(segs))
		a := NewLineAssembler()
		for _, i := range order {
			if err := a.Accept(uint8(i), total, segs[i]); err != nil {
				t.Fatalf("round %d: segment %d rejected: %v", round, i, err)
			}
			if rng.Intn(3) == 0 {
				dup := order[rng.Intn(len(order))]
				if err := a.Accept(uint8(dup), total, segs[dup]); err != nil {
					t.Fatalf("round %d: duplicate %d rejected: %v", round, dup, err)
				}
			}
		}

		if !a.Complete() {
			t.Fatalf("round %d: line incomplete after full delivery", round)
		}
		if got := string(a.Line()); got != line {
			t.Fatalf("round %d: reassembled %q, expected %q", round, got, line)
		}

		rec := ParseHexLine(a.Text())
		if !rec.Valid || !rec.ChecksumOK() {
			t.Fatalf("round %d: generated line failed to parse: %q", round, line)
		}
	}
}

func TestFuzz_RandomImagesTransferCleanly(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds() / 10

	for round := 0; round < rounds; round++ {
		lineCount := 1 + rng.Intn(8)
		lines := make([]string, 0, lineCount+1)
		for i := 0; i < lineCount; i++ {
			// Keep addresses inside the default staging region
			data := make([]byte, 1+rng.Intn(MaxRecordDataBytes))
			for j := range data {
				data[j] = byte(rng.Intn(256))
			}
			lines = append(lines, buildHexLine(uint16(rng.Intn(0x1000)), RecordData, data))
		}
		lines = append(lines, ":00000001FF")

		s, _ := newTestSession(t)
		s.HandleFrame(initFrame(lines))
		resp := s.Update()
		if resp == nil || resp.Code != ResponseSendLine || resp.Line != 0 {
			t.Fatalf("round %d: expected SEND_LINE 0 after init", round)
		}

		for i, line := range lines {
			sendLine(s, uint16(i), line)
			resp = s.Update()
			if resp == nil {
				t.Fatalf("round %d: no response after line %d", round, i)
			}
		}

		if resp.Code != ResponseTransferComplete {
			t.Fatalf("round %d: expected TRANSFER_COMPLETE, got %s", round, FormatResponse(*resp))
		}
		if !s.Complete() {
			t.Fatalf("round %d: session not complete", round)
		}
	}
}

// ============================================================
// Native Fuzz Targets
// ============================================================

func FuzzParseHexLine(f *testing.F) {
	f.Add([]byte(":10010000214601360121470136007EFE09D2190140"))
	f.Add([]byte(":00000001FF"))
	f.Add([]byte(":020000021000EC"))
	f.Add([]byte{})

	f.Fuzz(func(t *testing.T, input []byte) {
		var buf [MaxHexLineSize]byte
		for i := range buf {
			buf[i] = Pad
		}
		copy(buf[:], input)

		// Must not panic, and must be deterministic
		first := ParseHexLine(buf)
		second := ParseHexLine(buf)
		if first != second {
			t.Fatal("parser is not pure")
		}
		if first.Valid && first.ByteCount > MaxRecordDataBytes {
			t.Fatalf("valid record with byte count %d", first.ByteCount)
		}
	})
}

func FuzzSessionHandleFrame(f *testing.F) {
	f.Add([]byte{0x02, 0x00, 0x11, 0x22, 0x33, 0x44, 0xAA, 0xBB})
	f.Add([]byte{0x01, 0x00, 0x31, ':', '0', '0', '0', '0'})

	f.Fuzz(func(t *testing.T, input []byte) {
		var buf [FrameSize]byte
		copy(buf[:], input)

		// Arbitrary frames must never panic the session, with or
		// without an active transfer.
		s := NewSession()
		s.HandleFrame(buf)
		s.Update()

		s.HandleFrame(initFrame([]string{":00000001FF"}))
		s.Update()
		s.HandleFrame(buf)
		s.Update()
	})
}

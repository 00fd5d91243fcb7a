// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Ryan Bahl

package hextransfer

// Session is the single-transfer receiver state machine. It consumes raw
// 8-byte frames through HandleFrame and emits at most one response per
// Update call.
//
// The session is not safe for concurrent use: HandleFrame and Update
// must run on the same goroutine, matching the single-threaded
// cooperative model of the on-device implementation. Adapters that
// receive frames on another goroutine must queue them in delivery order.
type Session struct {
	cfg Config

	inProgress bool
	complete   bool

	expectedLines   uint16
	expectedFileCRC uint32
	currentLine     uint16
	fileCRC         uint32

	baseAddr  uint32
	startAddr uint32
	eofSeen   bool
	minAddr   uint32
	maxAddr   uint32

	lastActivity   int64 // clock milliseconds
	newInitPending bool
	initMsgError   bool

	asm   LineAssembler
	ram   []byte
	stats Statistics
}

// NewSession creates a session in the idle state.
func NewSession(opts ...Option) *Session {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	s := &Session{
		cfg: cfg,
		ram: make([]byte, cfg.stagingLen),
	}
	s.Init()
	return s
}

// Init drops the session back to idle: all transfer state is cleared and
// statistics are reset.
func (s *Session) Init() {
	s.reset()
	s.complete = false
	s.stats.Reset()
}

// reset clears per-transfer state without touching statistics.
func (s *Session) reset() {
	s.inProgress = false
	s.expectedLines = 0
	s.expectedFileCRC = 0
	s.currentLine = 0
	s.fileCRC = 0
	s.baseAddr = 0
	s.startAddr = 0
	s.eofSeen = false
	s.minAddr = 0xFFFFFFFF
	s.maxAddr = 0
	s.newInitPending = false
	s.initMsgError = false
	s.asm.Reset()
}

// abortTransfer cancels the in-flight transfer and returns to idle.
func (s *Session) abortTransfer() {
	s.reset()
	s.complete = false
}

// HandleFrame classifies and consumes one 8-byte CAN frame. Responses
// are never emitted from here; they come from Update.
func (s *Session) HandleFrame(buf [FrameSize]byte) {
	s.stats.TotalFrames++

	if IsInitFrame(buf) {
		s.handleInit(buf)
		return
	}
	s.handleSegment(buf)
}

func (s *Session) handleInit(buf [FrameSize]byte) {
	s.stats.InitFrames++
	msg := UnpackInitMsg(buf)
	now := s.now()

	if InitChecksum(buf) != msg.Checksum || msg.LineCount == 0 {
		// Leave any in-flight transfer untouched; the next Update
		// reports the bad init to the host.
		s.stats.InitChecksumErrors++
		s.initMsgError = true
		s.newInitPending = true
		s.lastActivity = now
		s.logf("init rejected: checksum mismatch or zero line count (lines=%d)", msg.LineCount)
		return
	}

	// A valid init always wins: discard whatever was in flight.
	s.abortTransfer()
	s.inProgress = true
	s.expectedLines = msg.LineCount
	s.expectedFileCRC = msg.FileChecksum
	s.newInitPending = true
	s.lastActivity = now
	s.logf("transfer init: %d lines, file crc 0x%08X", msg.LineCount, msg.FileChecksum)
}

func (s *Session) handleSegment(buf [FrameSize]byte) {
	s.stats.SegmentFrames++

	if !s.inProgress {
		// Dropped on the wire; ErrNoTransfer is a log-only condition.
		s.stats.DroppedFrames++
		s.logf("segment dropped: %v", ErrNoTransfer)
		return
	}

	msg := UnpackSegmentMsg(buf)
	if msg.LineNum != s.currentLine {
		s.stats.LineMismatches++
		s.logf("segment dropped: %v",
			&LineMismatchError{Want: s.currentLine, Got: msg.LineNum})
		return
	}
	if err := s.asm.Accept(msg.SegmentNum, msg.TotalSegments, msg.Data); err != nil {
		s.stats.SegmentErrors++
		s.logf("segment dropped: %v", err)
		return
	}

	// Only a structurally valid segment counts as activity.
	s.lastActivity = s.now()
}

// Update runs the periodic work: timers, pending init acknowledgement,
// and completed-line processing. It returns at most one response to put
// on the wire, or nil.
func (s *Session) Update() *Response {
	if !s.inProgress {
		// A rejected init must still be reported even though no
		// transfer ever started.
		if s.newInitPending {
			s.newInitPending = false
			if s.initMsgError {
				s.initMsgError = false
				return &Response{Code: ResponseError, Err: ErrorCodeInitChecksum}
			}
		}
		return nil
	}

	elapsed := s.now() - s.lastActivity
	if elapsed > s.cfg.inactivityTimeout.Milliseconds() {
		s.stats.InactivityTimeouts++
		s.abortTransfer()
		s.logf("transfer aborted: inactivity timeout")
		return &Response{Code: ResponseError, Err: ErrorCodeInactivityTimeout}
	}
	if elapsed > s.cfg.lineTimeout.Milliseconds() {
		s.stats.LineRetries++
		return &Response{Code: ResponseSendLine, Line: s.currentLine}
	}

	if s.newInitPending {
		s.newInitPending = false
		if s.initMsgError {
			s.initMsgError = false
			return &Response{Code: ResponseError, Err: ErrorCodeInitChecksum}
		}
		return &Response{Code: ResponseSendLine, Line: 0}
	}

	if s.asm.Complete() {
		return s.finishLine()
	}
	if s.eofSeen {
		return s.finishTransfer()
	}
	return nil
}

// finishLine parses and applies the fully reassembled line. On success
// the file checksum and line index advance; on any failure both are left
// untouched and the same line is requested again.
func (s *Session) finishLine() *Response {
	rec := ParseHexLine(s.asm.Text())

	var err error
	switch {
	case !rec.Valid:
		err = &ParseError{Line: s.currentLine}
	case s.cfg.verifyRecords && !rec.ChecksumOK():
		err = &RecordChecksumError{Line: s.currentLine}
	default:
		err = s.processRecord(&rec)
	}
	if err != nil {
		s.stats.LineFailures++
		s.asm.Reset()
		s.logf("line %d failed: %v", s.currentLine, err)
		return &Response{Code: ResponseSendLine, Line: s.currentLine}
	}

	s.fileCRC = UpdateFileChecksum(s.fileCRC, s.asm.Line())
	s.currentLine++
	s.asm.Reset()
	s.stats.LinesCompleted++

	if s.eofSeen {
		// Asking for a line past EOF would be meaningless; settle the
		// transfer in the same tick.
		return s.finishTransfer()
	}
	return &Response{Code: ResponseSendLine, Line: s.currentLine}
}

// finishTransfer compares the accumulated file checksum against the
// value declared at init and settles the session.
func (s *Session) finishTransfer() *Response {
	if s.fileCRC != s.expectedFileCRC {
		s.stats.FileChecksumErrors++
		s.logf("transfer aborted: file crc 0x%08X, expected 0x%08X",
			s.fileCRC, s.expectedFileCRC)
		s.abortTransfer()
		return &Response{Code: ResponseError, Err: ErrorCodeFileChecksum}
	}

	s.inProgress = false
	s.complete = true
	s.logf("transfer complete: %d lines, crc 0x%08X", s.currentLine, s.fileCRC)
	return &Response{Code: ResponseTransferComplete}
}

// InProgress reports whether a transfer is active.
func (s *Session) InProgress() bool {
	return s.inProgress
}

// Complete reports whether the last transfer finished with a matching
// file checksum.
func (s *Session) Complete() bool {
	return s.complete
}

// Progress returns the next line to receive and the total expected.
func (s *Session) Progress() (current, expected uint16) {
	return s.currentLine, s.expectedLines
}

// Bounds returns the lowest and highest image addresses written so far.
// Before any data record, min is 0xFFFFFFFF and max is 0.
func (s *Session) Bounds() (min, max uint32) {
	return s.minAddr, s.maxAddr
}

// StartAddress returns the entry point carried by a start-address
// record, or 0 if none was received.
func (s *Session) StartAddress() uint32 {
	return s.startAddr
}

// FileChecksum returns the running CRC-32 over the accepted lines.
func (s *Session) FileChecksum() uint32 {
	return s.fileCRC
}

// Image returns the RAM staging buffer. Offset 0 corresponds to the
// flash base address. The slice aliases session state.
func (s *Session) Image() []byte {
	return s.ram
}

// Stats returns a snapshot of the session's counters.
func (s *Session) Stats() Statistics {
	return s.stats
}

// now returns the clock reading in milliseconds.
func (s *Session) now() int64 {
	return s.cfg.clock().UnixMilli()
}

func (s *Session) logf(format string, v ...interface{}) {
	if s.cfg.logger != nil {
		s.cfg.logger.Printf(format, v...)
	}
}

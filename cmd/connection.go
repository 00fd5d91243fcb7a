// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Ryan Bahl

package cmd

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/Ryanbahl9/FlasherX-can/pkg/slcan"
	"github.com/gorilla/websocket"
	"go.bug.st/serial"
	"golang.org/x/term"
)

// Connection is the raw byte stream beneath the SLCAN framing: a serial
// adapter or a WebSocket CAN bridge.
type Connection interface {
	io.ReadWriteCloser
}

// FrameConn reads and writes SLCAN-framed CAN traffic over a
// Connection. All commands consume frames through it rather than raw
// bytes, so the line splitting and SLCAN decoding live in one place.
type FrameConn struct {
	conn    Connection
	scanner *bufio.Scanner
}

// NewFrameConn wraps a raw connection with SLCAN framing.
func NewFrameConn(conn Connection) *FrameConn {
	scanner := bufio.NewScanner(conn)
	scanner.Split(scanFrameLines)
	return &FrameConn{conn: conn, scanner: scanner}
}

// scanFrameLines splits the SLCAN byte stream on carriage returns and
// tolerates stray newlines from bridges that log in-band.
func scanFrameLines(data []byte, atEOF bool) (int, []byte, error) {
	for i, b := range data {
		if b == '\r' || b == '\n' {
			return i + 1, data[:i], nil
		}
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// ReadFrame returns the next CAN frame from the stream, skipping blank
// lines and non-frame SLCAN chatter (O, C, version queries). Returns
// io.EOF when the stream ends cleanly.
func (f *FrameConn) ReadFrame() (slcan.Frame, error) {
	for f.scanner.Scan() {
		line := f.scanner.Text()
		if line == "" {
			continue
		}
		frame, err := slcan.Decode(line)
		if err != nil {
			continue
		}
		return frame, nil
	}
	if err := f.scanner.Err(); err != nil {
		return slcan.Frame{}, err
	}
	return slcan.Frame{}, io.EOF
}

// WriteFrame puts one CAN frame on the wire.
func (f *FrameConn) WriteFrame(frame slcan.Frame) error {
	_, err := f.conn.Write([]byte(slcan.Encode(frame)))
	return err
}

// Close closes the underlying connection.
func (f *FrameConn) Close() error {
	return f.conn.Close()
}

// serialConn adapts a serial port to Connection.
type serialConn struct {
	port serial.Port
}

func (c *serialConn) Read(p []byte) (int, error)  { return c.port.Read(p) }
func (c *serialConn) Write(p []byte) (int, error) { return c.port.Write(p) }
func (c *serialConn) Close() error                { return c.port.Close() }

// ErrConnectionClosed is returned when reading from a failed WebSocket connection
var ErrConnectionClosed = fmt.Errorf("websocket connection closed")

// wsConn adapts a WebSocket message stream to Connection. Bridge
// messages arrive whole; leftover bytes are buffered between reads.
type wsConn struct {
	conn    *websocket.Conn
	pending []byte
	closed  bool
}

func (c *wsConn) Read(p []byte) (int, error) {
	for len(c.pending) == 0 {
		if c.closed {
			return 0, ErrConnectionClosed
		}
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			c.closed = true
			return 0, err
		}
		// Bridges differ on whether the SLCAN stream is sent as text
		// or binary; accept both, skip pings and the like.
		if messageType != websocket.BinaryMessage && messageType != websocket.TextMessage {
			continue
		}
		c.pending = data
	}

	n := copy(p, c.pending)
	c.pending = c.pending[n:]
	return n, nil
}

func (c *wsConn) Write(p []byte) (int, error) {
	if err := c.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}

// dialSerial opens the SLCAN serial adapter.
func dialSerial(device string, baud int) (Connection, error) {
	port, err := serial.Open(device, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", device, err)
	}
	return &serialConn{port: port}, nil
}

// dialWebSocket connects to a WebSocket CAN bridge with optional HTTP
// Basic auth. The password comes from FLASHERX_PASSWORD or an
// interactive prompt; there is deliberately no --password flag, which
// would leak credentials into shell history.
func dialWebSocket(rawURL, username string, insecure bool) (Connection, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: insecure}
	}

	headers := http.Header{}
	if username != "" {
		password, err := lookupPassword()
		if err != nil {
			return nil, err
		}
		credentials := username + ":" + password
		headers.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(credentials)))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, rawURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return &wsConn{conn: conn}, nil
}

// lookupPassword reads FLASHERX_PASSWORD, falling back to an
// interactive no-echo prompt.
func lookupPassword() (string, error) {
	if pw := os.Getenv("FLASHERX_PASSWORD"); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err == nil {
		return string(passwordBytes), nil
	}

	// Not a terminal (piped stdin); read one echoed line instead
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// OpenConnection opens the SLCAN frame stream selected by the
// persistent connection flags.
func OpenConnection() (*FrameConn, string, error) {
	switch {
	case wsURL != "":
		conn, err := dialWebSocket(wsURL, wsUsername, wsNoSSLVerify)
		if err != nil {
			return nil, "", err
		}
		return NewFrameConn(conn), fmt.Sprintf("WebSocket: %s", wsURL), nil

	case portName != "":
		conn, err := dialSerial(portName, baudRate)
		if err != nil {
			return nil, "", err
		}
		return NewFrameConn(conn), fmt.Sprintf("Serial: %s @ %d baud", portName, baudRate), nil
	}

	return nil, "", fmt.Errorf("either --port or --url must be specified")
}

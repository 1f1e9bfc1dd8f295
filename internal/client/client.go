package client

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Ludovic-Lesur/LVRM/internal/line"
)

// Sentinel errors returned by the client.
var (
	ErrTimeout     = errors.New("timeout waiting for reply")
	ErrDeviceError = errors.New("device returned an error code")
	ErrWriteFailed = errors.New("failed to write command")
)

const pollInterval = 10 * time.Millisecond

// Client drives the AT console of a board over any byte link: a serial
// port, a network stream or an in-memory loopback in tests.
type Client struct {
	rw      io.ReadWriter
	timeout time.Duration
}

// New creates a client with a default reply timeout.
func New(rw io.ReadWriter, timeout time.Duration) *Client {
	return &Client{rw: rw, timeout: timeout}
}

// Send writes one command line and collects the reply payload lines until
// the terminating OK. An ERROR:<code> reply yields ErrDeviceError carrying
// the code; no terminator before the timeout yields ErrTimeout.
func (c *Client) Send(command string) ([]string, error) {
	return c.SendWithTimeout(command, c.timeout)
}

// SendWithTimeout is Send with a custom reply timeout.
func (c *Client) SendWithTimeout(command string, timeout time.Duration) ([]string, error) {
	if _, err := c.rw.Write([]byte(command + "\r")); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	deadline := time.Now().Add(timeout)
	var buffer []byte
	var payload []string
	chunk := make([]byte, 256)

	for time.Now().Before(deadline) {
		n, err := c.rw.Read(chunk)
		if n > 0 {
			buffer = append(buffer, chunk[:n]...)
		}
		// EOF only means no data is buffered yet; the board may still be
		// composing its reply.
		if err != nil && !errors.Is(err, io.EOF) {
			return payload, fmt.Errorf("read failed: %w", err)
		}

		for {
			reply, remaining := line.Next(buffer)
			if reply == nil {
				buffer = remaining
				break
			}
			buffer = remaining

			text := string(reply)
			switch {
			case text == "OK":
				return payload, nil
			case strings.HasPrefix(text, "ERROR:"):
				return payload, fmt.Errorf("%w: %s", ErrDeviceError, text)
			case text == command:
				// Echoed command, skip.
			default:
				payload = append(payload, text)
			}
		}

		if n == 0 {
			// No data available yet; poll again until the deadline.
			time.Sleep(pollInterval)
		}
	}

	return payload, ErrTimeout
}

// Ping checks that a board is answering on the link.
func (c *Client) Ping() error {
	_, err := c.SendWithTimeout("AT", c.timeout)
	return err
}

// Version asks the board for its firmware version string.
func (c *Client) Version() (string, error) {
	lines, err := c.Send("AT$V?")
	if err != nil {
		return "", err
	}
	for _, l := range lines {
		if v, ok := strings.CutPrefix(l, "SW="); ok {
			return v, nil
		}
	}
	return "", fmt.Errorf("no version in reply %v", lines)
}

// IsTimeout reports whether an error is a reply timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsDeviceError reports whether an error is an ERROR reply from the board.
func IsDeviceError(err error) bool {
	return errors.Is(err, ErrDeviceError)
}

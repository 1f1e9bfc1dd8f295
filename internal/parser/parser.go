package parser

import (
	"bytes"
	"math"
)

// Mode selects how Compare matches a literal.
type Mode uint8

const (
	// ModeCommand matches a command literal.
	ModeCommand Mode = iota
	// ModeHeader matches a header literal and requires that a command
	// marker follows it.
	ModeHeader
)

// ParameterKind selects the decoder used by GetParameter.
type ParameterKind uint8

const (
	Boolean ParameterKind = iota
	Hexadecimal
	Decimal
)

// Context scans one received command line. The buffer is borrowed from the
// caller, never copied, and the cursor only moves forward on success, so a
// failed match or extraction can be retried with different arguments.
//
// A Context is built once per line and must not be reused for another line
// or shared between goroutines.
type Context struct {
	buf    []byte
	cursor int
	sepIdx int
}

// NewContext wraps a received command line. A trailing CR or CRLF terminator
// is excluded from the scanned range; the caller keeps ownership of the
// buffer.
func NewContext(line []byte) *Context {
	n := len(line)
	if n > 0 && line[n-1] == '\n' {
		n--
	}
	if n > 0 && line[n-1] == '\r' {
		n--
	}
	return &Context{buf: line[:n]}
}

// Cursor returns the offset of the next byte to be examined.
func (c *Context) Cursor() int {
	return c.cursor
}

// Done reports whether the whole line has been consumed.
func (c *Context) Done() bool {
	return c.cursor >= len(c.buf)
}

// isCommandMarker reports whether b may introduce a command after a header.
func isCommandMarker(b byte) bool {
	switch b {
	case '+', '$', '&', '?', '=':
		return true
	}
	return false
}

// Compare matches literal against the buffer at the cursor. On success the
// cursor advances past the literal; on failure it is left unchanged so the
// caller can try another literal.
//
// In ModeHeader a command marker must follow the literal. The marker is only
// checked, not consumed: it belongs to the command token matched next.
func (c *Context) Compare(mode Mode, literal string) error {
	switch mode {
	case ModeCommand, ModeHeader:
	default:
		return ErrMode
	}

	end := c.cursor + len(literal)
	if end > len(c.buf) || string(c.buf[c.cursor:end]) != literal {
		if mode == ModeHeader {
			return ErrHeaderNotFound
		}
		return ErrUnknownCommand
	}

	if mode == ModeHeader {
		if end >= len(c.buf) || !isCommandMarker(c.buf[end]) {
			return ErrHeaderNotFound
		}
	}

	c.cursor = end
	return nil
}

// findSeparator locates the end of the current parameter extent and records
// it in sepIdx. For the last parameter the extent runs to the end of the
// line; otherwise it ends at the next occurrence of separator.
func (c *Context) findSeparator(separator byte, last bool) error {
	if last {
		if c.cursor >= len(c.buf) {
			return ErrParameterNotFound
		}
		c.sepIdx = len(c.buf)
		return nil
	}

	idx := bytes.IndexByte(c.buf[c.cursor:], separator)
	if idx < 0 {
		return ErrSeparatorNotFound
	}
	if idx == 0 {
		return ErrParameterNotFound
	}
	c.sepIdx = c.cursor + idx
	return nil
}

// advance moves the cursor past the extracted parameter, skipping the
// separator unless the parameter was the last one.
func (c *Context) advance(last bool) {
	if last {
		c.cursor = c.sepIdx
	} else {
		c.cursor = c.sepIdx + 1
	}
}

// GetParameter extracts and decodes the next parameter. The returned value
// fits a 32-bit destination: hexadecimal parameters decode to [0, 0xFFFFFFFF]
// and decimal parameters to the int32 range. The cursor advances past the
// parameter (and its separator) only when decoding succeeds.
func (c *Context) GetParameter(kind ParameterKind, separator byte, last bool) (int64, error) {
	if err := c.findSeparator(separator, last); err != nil {
		return 0, err
	}
	extent := c.buf[c.cursor:c.sepIdx]

	var value int64
	var err error
	switch kind {
	case Boolean:
		value, err = decodeBit(extent)
	case Hexadecimal:
		value, err = decodeHex(extent)
	case Decimal:
		value, err = decodeDec(extent)
	default:
		return 0, ErrMode
	}
	if err != nil {
		return 0, err
	}

	c.advance(last)
	return value, nil
}

// GetByteArray extracts the next parameter as a hexadecimal byte string and
// writes the decoded bytes into dst. The extent is fully validated before
// anything is written, so dst is untouched on failure. Returns the number of
// bytes written.
func (c *Context) GetByteArray(separator byte, last bool, dst []byte) (int, error) {
	if err := c.findSeparator(separator, last); err != nil {
		return 0, err
	}
	extent := c.buf[c.cursor:c.sepIdx]

	for _, b := range extent {
		if hexNibble(b) < 0 {
			return 0, ErrHexInvalid
		}
	}
	if len(extent)%2 != 0 {
		return 0, ErrHexOddSize
	}
	n := len(extent) / 2
	if n > len(dst) {
		return 0, ErrByteArrayLength
	}

	for i := 0; i < n; i++ {
		hi := hexNibble(extent[2*i])
		lo := hexNibble(extent[2*i+1])
		dst[i] = byte(hi<<4 | lo)
	}

	c.advance(last)
	return n, nil
}

// decodeBit decodes a single-character boolean parameter.
func decodeBit(extent []byte) (int64, error) {
	if len(extent) > 1 {
		return 0, ErrBitOverflow
	}
	switch extent[0] {
	case '0':
		return 0, nil
	case '1':
		return 1, nil
	}
	return 0, ErrBitInvalid
}

// decodeHex decodes a hexadecimal parameter of up to 8 digits (32 bits).
// Digits must come in pairs.
func decodeHex(extent []byte) (int64, error) {
	for _, b := range extent {
		if hexNibble(b) < 0 {
			return 0, ErrHexInvalid
		}
	}
	if len(extent)%2 != 0 {
		return 0, ErrHexOddSize
	}
	if len(extent) > 8 {
		return 0, ErrHexOverflow
	}

	var value int64
	for _, b := range extent {
		value = value<<4 | int64(hexNibble(b))
	}
	return value, nil
}

// decodeDec decodes an optionally signed decimal parameter into the int32
// range.
func decodeDec(extent []byte) (int64, error) {
	start := 0
	negative := false
	if extent[0] == '-' {
		negative = true
		start = 1
		if len(extent) == 1 {
			return 0, ErrDecInvalid
		}
	}

	var value int64
	for _, b := range extent[start:] {
		if b < '0' || b > '9' {
			return 0, ErrDecInvalid
		}
		value = value*10 + int64(b-'0')
		// Bail out before value can exceed int64 on long inputs. The
		// magnitude of MinInt32 is one above MaxInt32.
		if value > math.MaxInt32+1 {
			return 0, ErrDecOverflow
		}
	}

	if negative {
		value = -value
		if value < math.MinInt32 {
			return 0, ErrDecOverflow
		}
	} else if value > math.MaxInt32 {
		return 0, ErrDecOverflow
	}
	return value, nil
}

// hexNibble returns the value of a hexadecimal digit, or -1.
func hexNibble(b byte) int {
	switch {
	case b >= '0' && b <= '9':
		return int(b - '0')
	case b >= 'A' && b <= 'F':
		return int(b-'A') + 10
	case b >= 'a' && b <= 'f':
		return int(b-'a') + 10
	}
	return -1
}

package line

// MaxLineLength bounds a single command line, matching the fixed receive
// buffer of the board firmware. Longer lines are treated as garbage.
const MaxLineLength = 128

func isTerminator(b byte) bool {
	return b == '\r' || b == '\n'
}

// Next extracts the first complete command line from a byte stream.
// Returns the line without its terminator and the remaining unconsumed
// bytes. Leading terminator bytes are skipped, so blank lines and the LF of
// a CRLF pair never surface. If no terminator has arrived yet the line is
// nil and remaining holds the partial input to retry with more data.
func Next(data []byte) (line []byte, remaining []byte) {
	// Skip terminators left over from the previous line.
	start := 0
	for start < len(data) && isTerminator(data[start]) {
		start++
	}

	end := start
	for end < len(data) && !isTerminator(data[end]) {
		end++
	}

	if end == len(data) {
		if end-start > MaxLineLength {
			// Oversized partial line; drop it entirely.
			return nil, nil
		}
		return nil, data[start:]
	}

	if end-start > MaxLineLength {
		// Oversized line; resynchronize after its terminator.
		return Next(data[end:])
	}

	return data[start:end], data[end+1:]
}

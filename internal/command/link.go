package command

import (
	"bytes"

	"github.com/Ludovic-Lesur/LVRM/internal/line"
)

// Link runs a Processor behind the io.ReadWriter contract of a serial port:
// written bytes are framed into command lines and dispatched, replies are
// buffered for subsequent reads. It stands in for a real board in tests and
// the demo replay.
type Link struct {
	processor *Processor
	pending   []byte
	reply     bytes.Buffer
}

// NewLink creates a link around a processor.
func NewLink(p *Processor) *Link {
	return &Link{processor: p}
}

// Write feeds bytes into the console. Complete lines are processed
// immediately; a partial line waits for more data.
func (l *Link) Write(p []byte) (int, error) {
	l.pending = append(l.pending, p...)
	for {
		received, remaining := line.Next(l.pending)
		if received == nil {
			l.pending = remaining
			break
		}
		l.pending = remaining
		for _, reply := range l.processor.Process(received) {
			l.reply.WriteString(reply + "\r\n")
		}
	}
	return len(p), nil
}

// Read drains buffered reply bytes. An empty buffer reports io.EOF, like a
// reader with nothing pending.
func (l *Link) Read(p []byte) (int, error) {
	return l.reply.Read(p)
}

package client

import (
	"io"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Ludovic-Lesur/LVRM/internal/board"
	"github.com/Ludovic-Lesur/LVRM/internal/command"
)

// newLoopback wires a client directly to an in-process command processor.
func newLoopback() *command.Link {
	b := board.New(board.StaticSampler{
		board.ChannelVrefint: 1671,
		board.ChannelVin:     1638,
		board.ChannelVout:    1625,
		board.ChannelIout:    140,
	})
	return command.NewLink(command.New(b, nil, "1.2.0"))
}

func TestSend_Ping(t *testing.T) {
	c := New(newLoopback(), time.Second)

	require.NoError(t, c.Ping())
}

func TestSend_Payload(t *testing.T) {
	c := New(newLoopback(), time.Second)

	lines, err := c.Send("AT$ADC?")
	require.NoError(t, err)
	require.Equal(t, []string{
		"Vin=11998mV",
		"Vout=11903mV",
		"Iout=148812uA",
		"Vmcu=2999mV",
	}, lines)
}

func TestSend_Version(t *testing.T) {
	c := New(newLoopback(), time.Second)

	version, err := c.Version()
	require.NoError(t, err)
	require.Equal(t, "1.2.0", version)
}

func TestSend_DeviceError(t *testing.T) {
	c := New(newLoopback(), time.Second)

	_, err := c.Send("AT$OUT=2")
	require.ErrorIs(t, err, ErrDeviceError)
	require.ErrorContains(t, err, "ERROR:06")
	require.True(t, IsDeviceError(err))
	require.False(t, IsTimeout(err))
}

// echoRW replays a canned reply that starts with the command echo.
type echoRW struct {
	reader io.Reader
}

func (e *echoRW) Write(p []byte) (int, error) { return len(p), nil }
func (e *echoRW) Read(p []byte) (int, error)  { return e.reader.Read(p) }

func TestSend_SkipsEcho(t *testing.T) {
	rw := &echoRW{reader: strings.NewReader("AT$V?\r\nSW=0.9\r\nOK\r\n")}
	c := New(rw, time.Second)

	lines, err := c.Send("AT$V?")
	require.NoError(t, err)
	require.Equal(t, []string{"SW=0.9"}, lines)
}

func TestSend_Timeout(t *testing.T) {
	rw := &echoRW{reader: strings.NewReader("")}
	c := New(rw, 50*time.Millisecond)

	_, err := c.Send("AT")
	require.ErrorIs(t, err, ErrTimeout)
	require.True(t, IsTimeout(err))
}

func TestSend_ReplySplitAcrossReads(t *testing.T) {
	// One byte per read exercises line reassembly.
	rw := &echoRW{reader: iotest.OneByteReader(strings.NewReader("Vin=11998mV\r\nOK\r\n"))}
	c := New(rw, time.Second)

	lines, err := c.Send("AT$ADC?")
	require.NoError(t, err)
	require.Equal(t, []string{"Vin=11998mV"}, lines)
}

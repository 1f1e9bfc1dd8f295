package command

import (
	"log/slog"
	"strings"
	"testing"

	"github.com/lmittmann/tint"
	"github.com/stretchr/testify/require"

	"github.com/Ludovic-Lesur/LVRM/internal/board"
)

// testWriter forwards handler output to the test log, standing in for
// t.Output which needs Go 1.25.
type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}

func testLogger(t *testing.T) *slog.Logger {
	return slog.New(tint.NewHandler(testWriter{t}, &tint.Options{
		Level: slog.LevelDebug,
	}))
}

func testProcessor(t *testing.T) (*Processor, *board.Board) {
	b := board.New(board.StaticSampler{
		board.ChannelVrefint: 1671,
		board.ChannelVin:     1638,
		board.ChannelVout:    1625,
		board.ChannelIout:    140,
	})
	return New(b, testLogger(t), "1.2.0"), b
}

func TestProcess_Ping(t *testing.T) {
	p, _ := testProcessor(t)

	reply := p.Process([]byte("AT\r"))
	require.Equal(t, []string{"OK"}, reply)
}

func TestProcess_Help(t *testing.T) {
	p, _ := testProcessor(t)

	reply := p.Process([]byte("AT?\r"))
	require.Equal(t, "OK", reply[len(reply)-1])
	require.Contains(t, reply, "AT : ping")
	require.Contains(t, reply, "AT$SF= : <payload>[,<bit>] queue uplink")
}

func TestProcess_Version(t *testing.T) {
	p, _ := testProcessor(t)

	reply := p.Process([]byte("AT$V?\r"))
	require.Equal(t, []string{"SW=1.2.0", "OK"}, reply)
}

func TestProcess_Measure(t *testing.T) {
	p, _ := testProcessor(t)

	reply := p.Process([]byte("AT$ADC?\r"))
	require.Equal(t, []string{
		"Vin=11998mV",
		"Vout=11903mV",
		"Iout=148812uA",
		"Vmcu=2999mV",
		"OK",
	}, reply)
}

func TestProcess_RelayWriteAndRead(t *testing.T) {
	p, b := testProcessor(t)

	reply := p.Process([]byte("AT$OUT=1\r"))
	require.Equal(t, []string{"OK"}, reply)
	require.True(t, b.Relay())

	reply = p.Process([]byte("AT$OUT?\r"))
	require.Equal(t, []string{"OUT=1", "ACT=1", "OK"}, reply)

	reply = p.Process([]byte("AT$OUT=0\r"))
	require.Equal(t, []string{"OK"}, reply)
	require.False(t, b.Relay())
}

func TestProcess_RelayBadParameter(t *testing.T) {
	p, _ := testProcessor(t)

	// 2 is not a bit: parser code 6.
	reply := p.Process([]byte("AT$OUT=2\r"))
	require.Equal(t, []string{"ERROR:06"}, reply)

	// 10 is too long for a bit: parser code 7.
	reply = p.Process([]byte("AT$OUT=10\r"))
	require.Equal(t, []string{"ERROR:07"}, reply)
}

func TestProcess_Calibration(t *testing.T) {
	p, b := testProcessor(t)

	reply := p.Process([]byte("AT$CAL=-100\r"))
	require.Equal(t, []string{"OK"}, reply)
	require.Equal(t, int32(-100), b.IoutOffsetMA())

	reply = p.Process([]byte("AT$ADC?\r"))
	require.Contains(t, reply, "Iout=48812uA")
}

func TestProcess_NVMWriteAndRead(t *testing.T) {
	p, _ := testProcessor(t)

	reply := p.Process([]byte("AT$NVMW=10,DEAD\r"))
	require.Equal(t, []string{"OK"}, reply)

	reply = p.Process([]byte("AT$NVM=10\r"))
	require.Equal(t, []string{"NVM=DE", "OK"}, reply)

	reply = p.Process([]byte("AT$NVM=11\r"))
	require.Equal(t, []string{"NVM=AD", "OK"}, reply)
}

func TestProcess_NVMOutOfRange(t *testing.T) {
	p, _ := testProcessor(t)

	reply := p.Process([]byte("AT$NVM=FF\r"))
	require.Equal(t, []string{"ERROR:80"}, reply)
}

func TestProcess_NVMOddPayload(t *testing.T) {
	p, _ := testProcessor(t)

	// Odd hex length: parser code 10.
	reply := p.Process([]byte("AT$NVMW=10,ABC\r"))
	require.Equal(t, []string{"ERROR:0A"}, reply)
}

func TestProcess_Uplink(t *testing.T) {
	p, b := testProcessor(t)

	reply := p.Process([]byte("AT$SF=2A3B4C\r"))
	require.Equal(t, []string{"OK"}, reply)

	payload, bidir := b.LastUplink()
	require.Equal(t, []byte{0x2A, 0x3B, 0x4C}, payload)
	require.False(t, bidir)
}

func TestProcess_UplinkWithFlag(t *testing.T) {
	p, b := testProcessor(t)

	reply := p.Process([]byte("AT$SF=DEADBEEF,1\r"))
	require.Equal(t, []string{"OK"}, reply)

	payload, bidir := b.LastUplink()
	require.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, payload)
	require.True(t, bidir)
}

func TestProcess_UplinkTooLong(t *testing.T) {
	p, _ := testProcessor(t)

	// 13 bytes exceeds the payload buffer: parser code 13.
	reply := p.Process([]byte("AT$SF=000102030405060708090A0B0C\r"))
	require.Equal(t, []string{"ERROR:0D"}, reply)
}

func TestProcess_UnknownCommand(t *testing.T) {
	p, _ := testProcessor(t)

	for _, line := range []string{
		"AT$WHAT?\r",
		"HELLO\r",
		"ATX\r",
		"AT$ADC?x\r",
		"\r",
	} {
		reply := p.Process([]byte(line))
		require.Equal(t, []string{"ERROR:01"}, reply, "line %q", line)
	}
}

func TestProcess_MissingParameter(t *testing.T) {
	p, _ := testProcessor(t)

	// Parameter list is empty: parser code 5.
	reply := p.Process([]byte("AT$OUT=\r"))
	require.Equal(t, []string{"ERROR:05"}, reply)
}

func TestProcess_NilLogger(t *testing.T) {
	b := board.New(board.StaticSampler{})
	p := New(b, nil, "dev")

	require.Equal(t, []string{"OK"}, p.Process([]byte("AT\r")))
}

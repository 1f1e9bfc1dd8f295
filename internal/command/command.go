package command

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/Ludovic-Lesur/LVRM/internal/board"
	"github.com/Ludovic-Lesur/LVRM/internal/parser"
)

// Application error codes reported after the parser code space.
const (
	codeNVMRange      = 0x80
	codeUplinkLength  = 0x81
	codeAnalogFailure = 0x82
	codeInternal      = 0xFF
)

// Reply terminators sent for every processed line.
const (
	ReplyOK          = "OK"
	replyErrorFormat = "ERROR:%02X"
)

// Processor dispatches received command lines against the board. Commands
// follow the LVRM console grammar: an AT header, a marker character, then an
// optional parameter list separated by commas.
type Processor struct {
	board   *board.Board
	log     *slog.Logger
	version string
}

// New creates a processor for the given board. A nil logger disables
// logging.
func New(b *board.Board, logger *slog.Logger, version string) *Processor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Processor{board: b, log: logger, version: version}
}

type handler func(p *Processor, ctx *parser.Context) ([]string, error)

type entry struct {
	// Literal matched after the AT header, marker included.
	literal string
	// Whether parameters follow the literal.
	params bool
	help   string
	run    handler
}

// Commands in firmware dispatch order. None of the literals is a prefix of
// another, so a successful match is unambiguous.
var table []entry

// Assigned in init to break the initialization cycle between table and
// runHelp, which iterates it.
func init() {
	table = []entry{
		{"?", false, "list supported commands", (*Processor).runHelp},
		{"$V?", false, "firmware version", (*Processor).runVersion},
		{"$ADC?", false, "read analog measurements", (*Processor).runMeasure},
		{"$OUT?", false, "read relay state", (*Processor).runRelayRead},
		{"$OUT=", true, "<bit> drive relay", (*Processor).runRelayWrite},
		{"$CAL=", true, "<mA> output current offset", (*Processor).runCalibrate},
		{"$NVM=", true, "<addr> read NVM byte", (*Processor).runNVMRead},
		{"$NVMW=", true, "<addr>,<bytes> write NVM", (*Processor).runNVMWrite},
		{"$SF=", true, "<payload>[,<bit>] queue uplink", (*Processor).runUplink},
	}
}

// Process parses one received line and returns the reply lines, the last of
// which is always OK or an ERROR code.
func (p *Processor) Process(received []byte) []string {
	ctx := parser.NewContext(received)

	if err := ctx.Compare(parser.ModeHeader, "AT"); err != nil {
		// No marker after the header: only the bare ping is legal.
		ctx = parser.NewContext(received)
		if err := ctx.Compare(parser.ModeCommand, "AT"); err != nil || !ctx.Done() {
			p.log.Debug("line rejected", "line", string(received))
			return []string{errorReply(parser.ErrUnknownCommand)}
		}
		return []string{ReplyOK}
	}

	for _, e := range table {
		// A failed match leaves the cursor on the marker, so the next
		// candidate is tried against the same context.
		if err := ctx.Compare(parser.ModeCommand, e.literal); err != nil {
			continue
		}
		if !e.params && !ctx.Done() {
			break
		}

		lines, err := e.run(p, ctx)
		if err != nil {
			p.log.Debug("command failed", "command", "AT"+e.literal, "error", err)
			return []string{errorReply(err)}
		}
		p.log.Debug("command done", "command", "AT"+e.literal)
		return append(lines, ReplyOK)
	}

	p.log.Debug("unknown command", "line", string(received))
	return []string{errorReply(parser.ErrUnknownCommand)}
}

// errorReply maps an error to its wire representation. Parser statuses keep
// their own code space; board failures use codes above 0x80.
func errorReply(err error) string {
	var status parser.Status
	if errors.As(err, &status) {
		return fmt.Sprintf(replyErrorFormat, status.Code())
	}

	code := codeInternal
	switch {
	case errors.Is(err, board.ErrNVMOutOfRange):
		code = codeNVMRange
	case errors.Is(err, board.ErrUplinkTooLong):
		code = codeUplinkLength
	case errors.Is(err, board.ErrNoVrefint), errors.Is(err, board.ErrChannelNotWired):
		code = codeAnalogFailure
	}
	return fmt.Sprintf(replyErrorFormat, code)
}

func (p *Processor) runHelp(ctx *parser.Context) ([]string, error) {
	lines := []string{"AT : ping"}
	for _, e := range table {
		lines = append(lines, fmt.Sprintf("AT%s : %s", e.literal, e.help))
	}
	return lines, nil
}

func (p *Processor) runVersion(ctx *parser.Context) ([]string, error) {
	return []string{"SW=" + p.version}, nil
}

func (p *Processor) runMeasure(ctx *parser.Context) ([]string, error) {
	m, err := p.board.Measure()
	if err != nil {
		return nil, err
	}
	return []string{
		fmt.Sprintf("Vin=%dmV", m.VinMV),
		fmt.Sprintf("Vout=%dmV", m.VoutMV),
		fmt.Sprintf("Iout=%duA", m.IoutUA),
		fmt.Sprintf("Vmcu=%dmV", m.VmcuMV),
	}, nil
}

func (p *Processor) runRelayRead(ctx *parser.Context) ([]string, error) {
	state := 0
	if p.board.Relay() {
		state = 1
	}
	return []string{
		fmt.Sprintf("OUT=%d", state),
		fmt.Sprintf("ACT=%d", p.board.Activations()),
	}, nil
}

func (p *Processor) runRelayWrite(ctx *parser.Context) ([]string, error) {
	state, err := ctx.GetParameter(parser.Boolean, ',', true)
	if err != nil {
		return nil, err
	}
	p.board.SetRelay(state == 1)
	return nil, nil
}

func (p *Processor) runCalibrate(ctx *parser.Context) ([]string, error) {
	offset, err := ctx.GetParameter(parser.Decimal, ',', true)
	if err != nil {
		return nil, err
	}
	p.board.CalibrateIoutOffset(int32(offset))
	return nil, nil
}

func (p *Processor) runNVMRead(ctx *parser.Context) ([]string, error) {
	address, err := ctx.GetParameter(parser.Hexadecimal, ',', true)
	if err != nil {
		return nil, err
	}
	value, err := p.board.NVMRead(uint32(address))
	if err != nil {
		return nil, err
	}
	return []string{fmt.Sprintf("NVM=%02X", value)}, nil
}

func (p *Processor) runNVMWrite(ctx *parser.Context) ([]string, error) {
	address, err := ctx.GetParameter(parser.Hexadecimal, ',', false)
	if err != nil {
		return nil, err
	}
	var data [board.NVMSize]byte
	n, err := ctx.GetByteArray(',', true, data[:])
	if err != nil {
		return nil, err
	}
	if err := p.board.NVMWrite(uint32(address), data[:n]); err != nil {
		return nil, err
	}
	return nil, nil
}

func (p *Processor) runUplink(ctx *parser.Context) ([]string, error) {
	var payload [board.MaxUplinkLength]byte

	// The bidirectional flag is optional: extract the payload as a middle
	// parameter first and fall back to last-parameter mode when no
	// separator follows. The failed attempt does not move the cursor.
	bidirectional := false
	n, err := ctx.GetByteArray(',', false, payload[:])
	switch {
	case err == nil:
		flag, err := ctx.GetParameter(parser.Boolean, ',', true)
		if err != nil {
			return nil, err
		}
		bidirectional = flag == 1
	case errors.Is(err, parser.ErrSeparatorNotFound):
		n, err = ctx.GetByteArray(',', true, payload[:])
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if err := p.board.QueueUplink(payload[:n], bidirectional); err != nil {
		return nil, err
	}
	return nil, nil
}

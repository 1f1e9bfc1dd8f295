package board

import (
	"errors"
	"fmt"
)

// Analog channel assignment of the LVRM front-end.
type Channel uint8

const (
	ChannelIout    Channel = 0
	ChannelVout    Channel = 4
	ChannelVin     Channel = 6
	ChannelVrefint Channel = 17
)

// Analog front-end constants.
const (
	adcFullScale = 4095

	// Bandgap reference voltage.
	vrefintMV = 1224

	// Input and output voltages are measured behind 1/10 dividers.
	vinDividerRatio  = 10
	voutDividerRatio = 10

	// Output current flows through a 10 mOhm shunt read by an LT6106
	// amplifier with a gain of 59. 250 uV maximum input offset across
	// 10 mOhm gives a 25 mA offset current.
	lt6106Gain            = 59
	lt6106ShuntMilliOhms  = 10
	lt6106OffsetCurrentUA = 25000
)

// NVMSize is the number of bytes exposed through the NVM commands.
const NVMSize = 128

// MaxUplinkLength is the radio payload limit in bytes.
const MaxUplinkLength = 12

var (
	ErrNVMOutOfRange   = errors.New("nvm address out of range")
	ErrUplinkTooLong   = errors.New("uplink payload exceeds maximum length")
	ErrNoVrefint       = errors.New("bandgap sample is zero")
	ErrChannelNotWired = errors.New("analog channel not wired")
)

// Sampler provides raw 12-bit conversions for an analog channel. Production
// code wires real hardware behind this; tests and the emulator use a
// StaticSampler.
type Sampler interface {
	Sample(channel Channel) (uint16, error)
}

// StaticSampler returns fixed raw samples per channel.
type StaticSampler map[Channel]uint16

// Sample implements Sampler.
func (s StaticSampler) Sample(channel Channel) (uint16, error) {
	raw, ok := s[channel]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrChannelNotWired, channel)
	}
	return raw, nil
}

// Measurements holds one converted analog acquisition.
type Measurements struct {
	VinMV  uint32 // Input voltage in mV.
	VoutMV uint32 // Output voltage in mV.
	IoutUA uint32 // Output current in uA.
	VmcuMV uint32 // MCU supply voltage in mV.
}

// Board models the LVRM peripherals at behavior level: relay output, analog
// measurements, calibration, non-volatile memory and the radio uplink slot.
// Like the firmware main loop it is driven from a single goroutine.
type Board struct {
	sampler Sampler

	relay       bool
	activations uint32

	ioutOffsetMA int32

	nvm [NVMSize]byte

	uplink      []byte
	uplinkBidir bool
}

// New creates a board over the given sample source.
func New(sampler Sampler) *Board {
	return &Board{sampler: sampler}
}

// SetRelay drives the relay output. Closing an open relay increments the
// activation counter.
func (b *Board) SetRelay(closed bool) {
	if closed && !b.relay {
		b.activations++
	}
	b.relay = closed
}

// Relay returns the relay state.
func (b *Board) Relay() bool {
	return b.relay
}

// Activations returns how many times the relay has been closed.
func (b *Board) Activations() uint32 {
	return b.activations
}

// CalibrateIoutOffset sets a signed user offset in mA applied on top of the
// amplifier offset compensation.
func (b *Board) CalibrateIoutOffset(offsetMA int32) {
	b.ioutOffsetMA = offsetMA
}

// IoutOffsetMA returns the user calibration offset.
func (b *Board) IoutOffsetMA() int32 {
	return b.ioutOffsetMA
}

// Measure performs one full analog acquisition and converts the raw samples
// to physical units using the front-end constants.
func (b *Board) Measure() (Measurements, error) {
	vrefint, err := b.sampler.Sample(ChannelVrefint)
	if err != nil {
		return Measurements{}, fmt.Errorf("vrefint sample failed: %w", err)
	}
	if vrefint == 0 {
		return Measurements{}, ErrNoVrefint
	}

	vin, err := b.sampler.Sample(ChannelVin)
	if err != nil {
		return Measurements{}, fmt.Errorf("vin sample failed: %w", err)
	}
	vout, err := b.sampler.Sample(ChannelVout)
	if err != nil {
		return Measurements{}, fmt.Errorf("vout sample failed: %w", err)
	}
	iout, err := b.sampler.Sample(ChannelIout)
	if err != nil {
		return Measurements{}, fmt.Errorf("iout sample failed: %w", err)
	}

	m := Measurements{
		VinMV:  uint32(vrefintMV) * uint32(vin) * vinDividerRatio / uint32(vrefint),
		VoutMV: uint32(vrefintMV) * uint32(vout) * voutDividerRatio / uint32(vrefint),
		VmcuMV: uint32(vrefintMV) * adcFullScale / uint32(vrefint),
	}

	// Current conversion needs 64-bit intermediates.
	num := uint64(iout) * vrefintMV * 1000000
	den := uint64(vrefint) * lt6106Gain * lt6106ShuntMilliOhms
	ua := int64(num / den)

	// Amplifier offset, then user calibration, clamped at zero.
	ua -= lt6106OffsetCurrentUA
	ua += int64(b.ioutOffsetMA) * 1000
	if ua < 0 {
		ua = 0
	}
	m.IoutUA = uint32(ua)

	return m, nil
}

// NVMRead returns one byte of non-volatile memory.
func (b *Board) NVMRead(address uint32) (byte, error) {
	if address >= NVMSize {
		return 0, fmt.Errorf("%w: 0x%02X", ErrNVMOutOfRange, address)
	}
	return b.nvm[address], nil
}

// NVMWrite stores data starting at address.
func (b *Board) NVMWrite(address uint32, data []byte) error {
	if address >= NVMSize || int(address)+len(data) > NVMSize {
		return fmt.Errorf("%w: 0x%02X+%d", ErrNVMOutOfRange, address, len(data))
	}
	copy(b.nvm[address:], data)
	return nil
}

// QueueUplink stores a radio payload for transmission.
func (b *Board) QueueUplink(payload []byte, bidirectional bool) error {
	if len(payload) > MaxUplinkLength {
		return fmt.Errorf("%w: %d bytes", ErrUplinkTooLong, len(payload))
	}
	b.uplink = append(b.uplink[:0], payload...)
	b.uplinkBidir = bidirectional
	return nil
}

// LastUplink returns the most recently queued payload and its bidirectional
// flag. The returned slice is owned by the board.
func (b *Board) LastUplink() ([]byte, bool) {
	return b.uplink, b.uplinkBidir
}

package parser

import "fmt"

// Status identifies a specific parse failure. Parser operations return nil on
// success, so the zero value is never returned as an error.
type Status uint8

const (
	ErrUnknownCommand Status = iota + 1
	ErrMode
	ErrHeaderNotFound
	ErrSeparatorNotFound
	ErrParameterNotFound
	ErrBitInvalid
	ErrBitOverflow
	ErrHexInvalid
	ErrHexOverflow
	ErrHexOddSize
	ErrDecInvalid
	ErrDecOverflow
	ErrByteArrayLength
)

// Error implements the error interface.
func (s Status) Error() string {
	switch s {
	case ErrUnknownCommand:
		return "unknown command"
	case ErrMode:
		return "invalid compare mode"
	case ErrHeaderNotFound:
		return "header not found"
	case ErrSeparatorNotFound:
		return "separator not found"
	case ErrParameterNotFound:
		return "parameter not found"
	case ErrBitInvalid:
		return "boolean parameter is not 0 or 1"
	case ErrBitOverflow:
		return "boolean parameter longer than one character"
	case ErrHexInvalid:
		return "invalid hexadecimal character"
	case ErrHexOverflow:
		return "hexadecimal parameter overflow"
	case ErrHexOddSize:
		return "odd number of hexadecimal digits"
	case ErrDecInvalid:
		return "invalid decimal character"
	case ErrDecOverflow:
		return "decimal parameter overflow"
	case ErrByteArrayLength:
		return "byte array exceeds maximum length"
	default:
		return fmt.Sprintf("unknown parser status 0x%02X", uint8(s))
	}
}

// Code returns the numeric status code reported in console error replies.
func (s Status) Code() uint8 {
	return uint8(s)
}

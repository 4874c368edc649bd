package mbfront

import (
	"encoding/binary"
	"errors"
)

// MBAPHeaderLen is the fixed 7-byte Modbus Application Protocol header:
// transaction id, protocol id, length, unit id.
const MBAPHeaderLen = 7

// MinADULen is the minimum valid ADU: MBAP header plus a function code.
const MinADULen = MBAPHeaderLen + 1

// ErrShortFrame is returned for any ADU shorter than MinADULen bytes.
var ErrShortFrame = errors.New("mbfront: short frame")

// MEIFunctionCode / MEIReadDeviceID are the function and sub-function
// codes for Encapsulated Interface Transport / device identification.
const (
	MEIFunctionCode  uint8 = 0x2B
	MEIReadDeviceID  uint8 = 0x0E
)

// ADU is a parsed Modbus/TCP Application Data Unit, as described in the
// data model: transaction_id, protocol_id, length, unit_id, function_code,
// followed by the payload.
type ADU struct {
	TransactionID uint16
	ProtocolID    uint16
	Length        uint16
	UnitID        uint8
	FunctionCode  uint8
	Payload       []byte
	Raw           []byte // the full frame, for logging and forwarding
}

// ParseADU decodes the big-endian MBAP header and function code from buf.
// Returns ErrShortFrame if buf is below MinADULen bytes.
func ParseADU(buf []byte) (*ADU, error) {
	if len(buf) < MinADULen {
		return nil, ErrShortFrame
	}

	return &ADU{
		TransactionID: binary.BigEndian.Uint16(buf[0:2]),
		ProtocolID:    binary.BigEndian.Uint16(buf[2:4]),
		Length:        binary.BigEndian.Uint16(buf[4:6]),
		UnitID:        buf[6],
		FunctionCode:  buf[7],
		Payload:       buf[8:],
		Raw:           buf,
	}, nil
}

// IsMEIDeviceID reports whether this ADU is a function 0x2B / sub-function
// 0x0E Read Device Identification request.
func (a *ADU) IsMEIDeviceID() bool {
	return a.FunctionCode == MEIFunctionCode && len(a.Payload) > 0 && a.Payload[0] == MEIReadDeviceID
}

// Package mbserverinternal implements the internal Modbus/TCP server bound
// to 127.0.0.1:1502. PDU encoding is delegated to
// github.com/simonvetter/modbus; this package only supplies the register
// store and the MEI-14 device-identification answer the library itself
// does not implement.
package mbserverinternal

import (
	"github.com/simonvetter/modbus"

	"github.com/JeanBonBeurre34/scadadinosaur-honey/internal/regimage"
)

// ListenAddr is the internal, loopback-only endpoint (spec.md §6).
const ListenAddr = "127.0.0.1:1502"

// registerHandler backs modbus.RequestHandler with the shared Register
// Image. It runs in single-slave mode: UnitID is ignored here because the
// front-end has already enforced the Siemens acceptance rule before any
// byte reaches this server.
type registerHandler struct {
	img *regimage.Image
}

func newRegisterHandler(img *regimage.Image) *registerHandler {
	return &registerHandler{img: img}
}

func (h *registerHandler) HandleHoldingRegisters(req *modbus.HoldingRegistersRequest) ([]uint16, error) {
	if req.IsWrite {
		// Non-goal: semantic correctness of writes is never validated.
		// Accept silently without storing anything: the register image is
		// never changed by a Modbus write.
		return nil, nil
	}

	if int(req.Addr)+int(req.Quantity) > regimage.RegisterCount {
		return nil, modbus.ErrIllegalDataAddress
	}

	return h.img.ReadRange(req.Addr, req.Quantity)
}

func (h *registerHandler) HandleCoils(req *modbus.CoilsRequest) ([]bool, error) {
	return nil, modbus.ErrIllegalFunction
}

func (h *registerHandler) HandleDiscreteInputs(req *modbus.DiscreteInputsRequest) ([]bool, error) {
	return nil, modbus.ErrIllegalFunction
}

func (h *registerHandler) HandleInputRegisters(req *modbus.InputRegistersRequest) ([]uint16, error) {
	return nil, modbus.ErrIllegalFunction
}

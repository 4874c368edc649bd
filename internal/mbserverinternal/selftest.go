package mbserverinternal

import (
	"fmt"
	"time"

	"github.com/simonvetter/modbus"
	"github.com/sirupsen/logrus"
)

// SelfTest dials the internal server as a Modbus client (exercising the
// library's client half the way server_tcp_test.go's tcpTestHandler peers
// do) and reads back the first 8 holding registers. It is a startup health
// check, not part of the attacker-facing contract: any failure is logged
// and swallowed rather than propagated, since a still-settling register
// image is not itself a fault.
func SelfTest(log *logrus.Entry) {
	client, err := modbus.NewClient(&modbus.ClientConfiguration{
		URL:     fmt.Sprintf("tcp://%s", ListenAddr),
		Timeout: 3 * time.Second,
	})
	if err != nil {
		log.WithError(err).Warn("self-test: failed to build Modbus client")
		return
	}

	client.SetUnitId(1)

	if err := client.Open(); err != nil {
		log.WithError(err).Warn("self-test: failed to connect to internal server")
		return
	}
	defer client.Close()

	regs, err := client.ReadRegisters(0, 8, modbus.HOLDING_REGISTER)
	if err != nil {
		log.WithError(err).Warn("self-test: failed to read holding registers")
		return
	}

	log.WithField("registers", regs).Info("self-test: internal Modbus server reachable")
}

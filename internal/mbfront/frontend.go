// Package mbfront implements the Modbus/TCP inline proxy: it terminates
// attacker connections on 0.0.0.0:502, parses and logs every ADU, enforces
// the Siemens UnitID filter, and relays surviving frames to the internal
// Modbus server.
package mbfront

import (
	"encoding/hex"
	"io"
	"net"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ListenAddr is the attacker-facing bind address (spec.md §6).
const ListenAddr = "0.0.0.0:502"

// recvBufSize caps a single receive the same way the original source treats
// each recv() as carrying exactly one ADU. Real TCP segmentation can split
// or coalesce frames; spec.md's design notes call this out as a likely
// source bug to preserve rather than silently fix, since well-formed
// single-ADU test traffic passes either way.
const recvBufSize = 4096

// Frontend is the Modbus front-end proxy.
type Frontend struct {
	InternalAddr string
	Log          *logrus.Entry
}

// New returns a Frontend relaying to internalAddr (normally
// 127.0.0.1:1502).
func New(internalAddr string, log *logrus.Entry) *Frontend {
	return &Frontend{InternalAddr: internalAddr, Log: log}
}

// ListenAndServe binds ListenAddr and accepts connections until the process
// exits; an accept failure is logged and accepting continues. A bind
// failure is returned to the caller, which treats it as fatal.
func (f *Frontend) ListenAndServe() error {
	l, err := net.Listen("tcp", ListenAddr)
	if err != nil {
		return err
	}
	f.Log.WithField("addr", ListenAddr).Info("Modbus front-end listening")

	for {
		conn, err := l.Accept()
		if err != nil {
			f.Log.WithError(err).Error("accept failed")
			continue
		}
		go f.handleConn(conn)
	}
}

func (f *Frontend) handleConn(attacker net.Conn) {
	sessionID := uuid.New().String()
	log := f.Log.WithFields(logrus.Fields{
		"remote_addr": attacker.RemoteAddr().String(),
		"session_id":  sessionID,
	})
	log.Info("Modbus connection accepted")

	internal, err := net.Dial("tcp", f.InternalAddr)
	if err != nil {
		log.WithError(err).Error("failed to connect to internal Modbus server")
		attacker.Close()
		return
	}

	done := make(chan struct{}, 2)
	go f.relayInbound(attacker, internal, log, done)
	go f.relayOutbound(internal, attacker, log, done)

	<-done
	attacker.Close()
	internal.Close()
	<-done
}

// relayInbound reads attacker frames, applies the UnitID filter, and
// forwards surviving bytes to the internal server in arrival order.
func (f *Frontend) relayInbound(attacker, internal net.Conn, log *logrus.Entry, done chan<- struct{}) {
	defer func() { done <- struct{}{} }()

	buf := make([]byte, recvBufSize)
	for {
		n, err := attacker.Read(buf)
		if err != nil {
			if err != io.EOF {
				log.WithError(err).Error("inbound read error")
			}
			return
		}
		frame := buf[:n]

		adu, perr := ParseADU(frame)
		if perr != nil {
			log.WithField("len", n).Warn("short frame dropped")
			continue
		}

		log.WithFields(logrus.Fields{
			"transaction_id": adu.TransactionID,
			"protocol_id":    adu.ProtocolID,
			"length":         adu.Length,
			"unit_id":        adu.UnitID,
			"function_code":  adu.FunctionCode,
			"hex":            hex.EncodeToString(frame),
		}).Info("Modbus ADU received")

		if !Allow(adu.UnitID, adu.FunctionCode) {
			log.Warnf("UnitID %d ignored (Siemens behavior)", adu.UnitID)
			continue
		}

		if _, err := internal.Write(frame); err != nil {
			log.WithError(err).Error("failed to forward frame to internal server")
			return
		}
	}
}

// relayOutbound straight-copies internal server responses back to the
// attacker, logging each response header along the way.
func (f *Frontend) relayOutbound(internal, attacker net.Conn, log *logrus.Entry, done chan<- struct{}) {
	defer func() { done <- struct{}{} }()

	buf := make([]byte, recvBufSize)
	for {
		n, err := internal.Read(buf)
		if err != nil {
			if err != io.EOF {
				log.WithError(err).Error("outbound read error")
			}
			return
		}
		frame := buf[:n]

		if adu, perr := ParseADU(frame); perr == nil {
			log.WithFields(logrus.Fields{
				"transaction_id": adu.TransactionID,
				"protocol_id":    adu.ProtocolID,
				"length":         adu.Length,
				"unit_id":        adu.UnitID,
				"function_code":  adu.FunctionCode,
				"hex":            hex.EncodeToString(frame),
			}).Info("Modbus ADU returned")
		}

		if _, err := attacker.Write(frame); err != nil {
			log.WithError(err).Error("failed to relay response to attacker")
			return
		}
	}
}

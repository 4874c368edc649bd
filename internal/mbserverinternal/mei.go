package mbserverinternal

import (
	"encoding/binary"
	"io"
	"net"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/JeanBonBeurre34/scadadinosaur-honey/internal/identity"
	"github.com/JeanBonBeurre34/scadadinosaur-honey/internal/mbfront"
)

// recvBufSize mirrors mbfront.recvBufSize: one read is treated as one ADU.
const recvBufSize = 4096

// meiProxy terminates connections on ListenAddr, answers MEI-14 (function
// 0x2B / sub-function 0x0E, Read Device Identification) requests directly
// with the Device Identity tuple, and relays every other frame unchanged
// to the real Modbus server listening on backendAddr — which has no
// notion of function 0x2B at all. The relay shape is the same as
// mbfront.Frontend's attacker-to-internal-server relay, one level further
// in.
type meiProxy struct {
	backendAddr string
	identity    identity.Device
	log         *logrus.Entry
}

func newMEIProxy(backendAddr string, id identity.Device, log *logrus.Entry) *meiProxy {
	return &meiProxy{backendAddr: backendAddr, identity: id, log: log}
}

// ListenAndServe binds ListenAddr itself and serves it, doing in one call
// what Start does as a separate bind followed by Serve.
func (p *meiProxy) ListenAndServe() error {
	l, err := net.Listen("tcp", ListenAddr)
	if err != nil {
		return err
	}
	p.Serve(l)
	return nil
}

// Serve accepts connections off an already-bound listener until Accept
// fails.
func (p *meiProxy) Serve(l net.Listener) {
	for {
		conn, err := l.Accept()
		if err != nil {
			p.log.WithError(err).Error("MEI-14 proxy accept failed")
			return
		}
		go p.handleConn(conn)
	}
}

func (p *meiProxy) handleConn(attacker net.Conn) {
	sessionID := uuid.New().String()
	log := p.log.WithFields(logrus.Fields{
		"remote_addr": attacker.RemoteAddr().String(),
		"session_id":  sessionID,
	})

	backend, err := net.Dial("tcp", p.backendAddr)
	if err != nil {
		log.WithError(err).Error("failed to connect to internal Modbus backend")
		attacker.Close()
		return
	}

	done := make(chan struct{}, 2)
	go p.relayInbound(attacker, backend, log, done)
	go p.relayOutbound(backend, attacker, log, done)

	<-done
	attacker.Close()
	backend.Close()
	<-done
}

// relayInbound reads attacker frames; a MEI-14 request is answered in
// place and never reaches the backend, everything else is forwarded
// unchanged.
func (p *meiProxy) relayInbound(attacker, backend net.Conn, log *logrus.Entry, done chan<- struct{}) {
	defer func() { done <- struct{}{} }()

	buf := make([]byte, recvBufSize)
	for {
		n, err := attacker.Read(buf)
		if err != nil {
			if err != io.EOF {
				log.WithError(err).Error("MEI proxy inbound read error")
			}
			return
		}
		frame := buf[:n]

		if adu, perr := mbfront.ParseADU(frame); perr == nil && adu.IsMEIDeviceID() {
			readDevIDCode := byte(0x01)
			if len(adu.Payload) > 1 {
				readDevIDCode = adu.Payload[1]
			}
			resp := encodeMEIResponse(adu.TransactionID, adu.UnitID, readDevIDCode, p.identity)
			if _, werr := attacker.Write(resp); werr != nil {
				log.WithError(werr).Error("failed to answer MEI-14 request")
				return
			}
			log.WithFields(logrus.Fields{
				"transaction_id": adu.TransactionID,
				"unit_id":        adu.UnitID,
			}).Info("MEI-14 device identification request answered")
			continue
		}

		if _, err := backend.Write(frame); err != nil {
			log.WithError(err).Error("failed to forward frame to internal Modbus backend")
			return
		}
	}
}

// relayOutbound straight-copies backend responses back to the attacker.
func (p *meiProxy) relayOutbound(backend, attacker net.Conn, log *logrus.Entry, done chan<- struct{}) {
	defer func() { done <- struct{}{} }()

	buf := make([]byte, recvBufSize)
	for {
		n, err := backend.Read(buf)
		if err != nil {
			if err != io.EOF {
				log.WithError(err).Error("MEI proxy outbound read error")
			}
			return
		}
		if _, err := attacker.Write(buf[:n]); err != nil {
			log.WithError(err).Error("failed to relay response to attacker")
			return
		}
	}
}

// encodeMEIResponse builds a full MBAP+PDU Read Device Identification
// (regular category, stream access) response carrying the Device Identity
// tuple as objects 0x00, 0x01, 0x02, 0x04, 0x05.
func encodeMEIResponse(txnID uint16, unitID, readDevIDCode byte, id identity.Device) []byte {
	type object struct {
		id    byte
		value string
	}
	objects := []object{
		{0x00, id.VendorName},
		{0x01, id.ProductCode},
		{0x02, id.MajorMinorRevision},
		{0x04, id.ProductName},
		{0x05, id.ModelName},
	}

	pdu := []byte{mbfront.MEIFunctionCode, mbfront.MEIReadDeviceID, readDevIDCode, 0x02, 0x00, 0x00, byte(len(objects))}
	for _, o := range objects {
		pdu = append(pdu, o.id, byte(len(o.value)))
		pdu = append(pdu, []byte(o.value)...)
	}

	frame := make([]byte, mbfront.MBAPHeaderLen)
	binary.BigEndian.PutUint16(frame[0:2], txnID)
	binary.BigEndian.PutUint16(frame[2:4], 0)
	binary.BigEndian.PutUint16(frame[4:6], uint16(1+len(pdu)))
	frame[6] = unitID
	frame = append(frame, pdu...)

	return frame
}

// Package s7comm implements a minimal TPKT/COTP/S7 responder: enough of
// the wire protocol to answer connection setup, SZL module identification,
// read-var, and write-var jobs the way a typical scanner probes for them.
// It is not a real S7 stack — coverage is limited to spec.md §4.E.
package s7comm

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"io"
	"net"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ListenAddr is the S7comm bind address (spec.md §6).
const ListenAddr = "0.0.0.0:102"

const (
	tpktVersion = 0x03
	cotpCR      = 0xE0
	rosctrJob   = 0x01
)

// ErrNonTPKT is returned by serveOne whenever the first byte of a frame
// isn't the TPKT version byte; handleConn logs it and closes the
// connection.
var ErrNonTPKT = errors.New("s7comm: non-TPKT traffic")

// cannedSZLSystemID is the fake SZL module-identification reply: ROSCTR
// Ack-Data, SZL-ID 0x00B4, one record with a plausible serial/firmware id.
var cannedSZLSystemID = []byte{
	0x32, 0x03, 0x00, 0x02, 0x00, 0x00, 0x00, 0x01, 0x00, 0x0C,
	0x00, 0xB4, 0x00, 0x01, 0x00, 0x0A, 0x11, 0x22, 0x33, 0x44,
	0x12, 0x34, 0x12, 0x34,
}

// cannedReadVarOK is the canned success reply to a Read Variable job.
var cannedReadVarOK = []byte{
	0x32, 0x03, 0x00, 0x00, 0x00, 0x01, 0x00, 0xFF, 0x04, 0x01,
	0x00, 0x02, 0x00, 0x00,
}

// cannedWriteVarOK is the canned success reply to a Write Variable job.
var cannedWriteVarOK = []byte{0x32, 0x03, 0x00, 0x00, 0x00, 0x01, 0x00, 0xFF}

// cotpConnectionConfirm is the COTP Connection Confirm payload answering a
// Connection Request (TPDU 0xE0).
var cotpConnectionConfirm = []byte{0xD0, 0x00}

// buildEnvelope prepends the TPKT + COTP class-0 data headers to payload.
// length is computed from the actual wire size (TPKT(4) + COTP(3) +
// payload), fixing the source's off-by-three bug (spec.md §9) where
// build_s7_header used length = 4 + len(payload) even though the frame on
// the wire always carries 7 bytes of header before the payload.
func buildEnvelope(payload []byte) []byte {
	length := 7 + len(payload)
	out := make([]byte, 0, length)
	out = append(out,
		tpktVersion, 0x00,
		byte(length>>8), byte(length&0xFF),
		0x02, 0xF0, 0x80, // COTP class-0 data header
	)
	out = append(out, payload...)
	return out
}

// Responder runs the S7comm listener.
type Responder struct {
	Log *logrus.Entry
}

// New returns a Responder.
func New(log *logrus.Entry) *Responder {
	return &Responder{Log: log}
}

// ListenAndServe binds ListenAddr and serves connections until the process
// exits; an accept failure is logged and accepting continues. A bind
// failure is returned to the caller, who treats it as fatal (spec.md §7
// error kind 1).
func (r *Responder) ListenAndServe() error {
	l, err := net.Listen("tcp", ListenAddr)
	if err != nil {
		return err
	}
	r.Log.WithField("addr", ListenAddr).Info("S7comm server listening")

	for {
		conn, err := l.Accept()
		if err != nil {
			r.Log.WithError(err).Error("accept failed")
			continue
		}
		go r.handleConn(conn)
	}
}

func (r *Responder) handleConn(conn net.Conn) {
	defer conn.Close()

	sessionID := uuid.New().String()
	log := r.Log.WithFields(logrus.Fields{
		"remote_addr": conn.RemoteAddr().String(),
		"session_id":  sessionID,
	})
	log.Info("S7 connection accepted")

	// Loop on further TPKT reads instead of closing after one
	// request/response — spec.md's redesign flag: a compliant S7comm
	// peer keeps the connection open.
	for {
		if err := r.serveOne(conn, log); err != nil {
			if err != io.EOF {
				log.WithError(err).Error("S7 handler error")
			}
			return
		}
	}
}

// serveOne reads one TPKT frame and dispatches it. Returns io.EOF when the
// peer closed the connection cleanly.
func (r *Responder) serveOne(conn net.Conn, log *logrus.Entry) error {
	header := make([]byte, 4)
	if _, err := io.ReadFull(conn, header); err != nil {
		return err
	}

	if header[0] != tpktVersion {
		log.Warn("Non-TPKT traffic")
		return ErrNonTPKT
	}

	size := binary.BigEndian.Uint16(header[2:4])
	if size < 4 {
		return errors.New("s7comm: implausible TPKT length")
	}

	remaining := make([]byte, size-4)
	if _, err := io.ReadFull(conn, remaining); err != nil {
		return err
	}

	log.WithField("hex", hex.EncodeToString(append(header, remaining...))).Info("S7 frame received")

	return r.dispatch(conn, remaining, log)
}

func (r *Responder) dispatch(conn net.Conn, tpdu []byte, log *logrus.Entry) error {
	if len(tpdu) == 0 {
		log.Info("unknown S7Comm payload received")
		return nil
	}

	if tpdu[0] == cotpCR {
		log.Info("COTP Connection Request")
		_, err := conn.Write(buildEnvelope(cotpConnectionConfirm))
		return err
	}

	if len(tpdu) < 4 || tpdu[3] != rosctrJob {
		log.Info("unknown S7Comm payload received")
		return nil
	}

	log.Info("S7 JOB received")

	switch {
	case len(tpdu) >= 12 && tpdu[10] == 0x00 && tpdu[11] == 0x01:
		_, err := conn.Write(buildEnvelope(cannedSZLSystemID))
		return err

	case len(tpdu) >= 12 && tpdu[11] == 0x04:
		_, err := conn.Write(buildEnvelope(cannedReadVarOK))
		return err

	case len(tpdu) >= 12 && tpdu[11] == 0x05:
		log.Info("[WRITE] S7 Write detected")
		_, err := conn.Write(buildEnvelope(cannedWriteVarOK))
		return err

	default:
		log.Info("unknown S7Comm payload received")
		return nil
	}
}

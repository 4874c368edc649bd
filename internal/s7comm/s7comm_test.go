package s7comm

import (
	"net"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResponder() (*Responder, *test.Hook) {
	logger, hook := test.NewNullLogger()
	return New(logrus.NewEntry(logger)), hook
}

func dialPipe(t *testing.T, r *Responder) net.Conn {
	t.Helper()
	server, client := net.Pipe()
	go r.handleConn(server)
	return client
}

func TestBuildEnvelopeFixesLengthOffByThree(t *testing.T) {
	payload := []byte{0xAA, 0xBB, 0xCC}
	env := buildEnvelope(payload)

	// 4 bytes TPKT + 3 bytes COTP + len(payload), not 4+len(payload).
	require.Len(t, env, 7+len(payload))
	assert.Equal(t, byte(0x03), env[0])
	assert.Equal(t, uint16(7+len(payload)), uint16(env[2])<<8|uint16(env[3]))
	assert.Equal(t, []byte{0x02, 0xF0, 0x80}, env[4:7])
	assert.Equal(t, payload, env[7:])
}

func writeTPKT(t *testing.T, conn net.Conn, payload []byte) {
	t.Helper()
	length := 4 + len(payload)
	frame := append([]byte{0x03, 0x00, byte(length >> 8), byte(length & 0xFF)}, payload...)
	_, err := conn.Write(frame)
	require.NoError(t, err)
}

func readTPKT(t *testing.T, conn net.Conn) []byte {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	header := make([]byte, 4)
	_, err := readFull(conn, header)
	require.NoError(t, err)
	size := int(header[2])<<8 | int(header[3])
	rest := make([]byte, size-4)
	_, err = readFull(conn, rest)
	require.NoError(t, err)
	return append(header, rest...)
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func TestCOTPConnectionRequestGetsConfirmed(t *testing.T) {
	r, _ := newTestResponder()
	client := dialPipe(t, r)
	defer client.Close()

	writeTPKT(t, client, []byte{0xE0, 0x00, 0x00, 0x00, 0x01, 0x00, 0xC0})

	resp := readTPKT(t, client)
	require.Len(t, resp, 9) // 7-byte envelope + 2-byte CC
	assert.Equal(t, []byte{0xD0, 0x00}, resp[7:])
}

func TestSZLSystemIdentificationRequestReturnsCannedReply(t *testing.T) {
	r, _ := newTestResponder()
	client := dialPipe(t, r)
	defer client.Close()

	// JOB header with SZL sub-function markers at offsets 10/11.
	job := make([]byte, 12)
	job[3] = rosctrJob
	job[10] = 0x00
	job[11] = 0x01
	writeTPKT(t, client, job)

	resp := readTPKT(t, client)
	assert.Equal(t, cannedSZLSystemID, resp[7:])
}

func TestReadVarJobReturnsCannedSuccess(t *testing.T) {
	r, _ := newTestResponder()
	client := dialPipe(t, r)
	defer client.Close()

	job := make([]byte, 12)
	job[3] = rosctrJob
	job[11] = 0x04
	writeTPKT(t, client, job)

	resp := readTPKT(t, client)
	assert.Equal(t, cannedReadVarOK, resp[7:])
}

func TestWriteVarJobReturnsCannedSuccessAndLogsWrite(t *testing.T) {
	r, hook := newTestResponder()
	client := dialPipe(t, r)
	defer client.Close()

	job := make([]byte, 12)
	job[3] = rosctrJob
	job[11] = 0x05
	writeTPKT(t, client, job)

	resp := readTPKT(t, client)
	assert.Equal(t, cannedWriteVarOK, resp[7:])

	found := false
	for _, entry := range hook.AllEntries() {
		if entry.Message == "[WRITE] S7 Write detected" {
			found = true
		}
	}
	assert.True(t, found, "expected a [WRITE] S7 Write detected log entry")
}

func TestNonTPKTTrafficIsLoggedAndConnectionClosed(t *testing.T) {
	r, hook := newTestResponder()
	client := dialPipe(t, r)
	defer client.Close()

	_, err := client.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF})
	require.NoError(t, err)

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 16)
	_, err = client.Read(buf)
	assert.Error(t, err) // server closed without responding

	found := false
	for _, entry := range hook.AllEntries() {
		if entry.Message == "Non-TPKT traffic" {
			found = true
		}
	}
	assert.True(t, found, "expected a Non-TPKT traffic warning")
}

func TestConnectionLoopsAcrossMultipleRequests(t *testing.T) {
	r, _ := newTestResponder()
	client := dialPipe(t, r)
	defer client.Close()

	writeTPKT(t, client, []byte{0xE0, 0x00, 0x00, 0x00, 0x01, 0x00, 0xC0})
	_ = readTPKT(t, client)

	job := make([]byte, 12)
	job[3] = rosctrJob
	job[11] = 0x04
	writeTPKT(t, client, job)
	resp := readTPKT(t, client)
	assert.Equal(t, cannedReadVarOK, resp[7:])
}

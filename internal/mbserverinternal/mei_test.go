package mbserverinternal

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/JeanBonBeurre34/scadadinosaur-honey/internal/identity"
)

func TestMEIProxyAnswersDeviceIDAndRelaysEverythingElse(t *testing.T) {
	backend, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer backend.Close()

	passthrough := make(chan []byte, 1)
	go func() {
		conn, err := backend.Accept()
		if err != nil {
			return
		}
		buf := make([]byte, 4096)
		n, err := conn.Read(buf)
		if err != nil {
			return
		}
		passthrough <- append([]byte{}, buf[:n]...)
	}()

	front, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer front.Close()

	logger := logrus.New()
	logger.SetOutput(bytesDiscard{})
	proxy := newMEIProxy(backend.Addr().String(), identity.Device7200, logrus.NewEntry(logger))
	go proxy.Serve(front)

	client, err := net.Dial("tcp", front.Addr().String())
	require.NoError(t, err)
	defer client.Close()

	meiReq := []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x05, 0xFF, 0x2B, 0x0E, 0x01, 0x00}
	_, err = client.Write(meiReq)
	require.NoError(t, err)

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	resp := make([]byte, 256)
	n, err := client.Read(resp)
	require.NoError(t, err)
	resp = resp[:n]

	require.True(t, bytes.Contains(resp, []byte("SIEMENS AG")))
	require.True(t, bytes.Contains(resp, []byte("S7-1200")))

	// a non-MEI frame must be relayed untouched to the backend.
	fc3Req := []byte{0x00, 0x02, 0x00, 0x00, 0x00, 0x06, 0x01, 0x03, 0x00, 0x00, 0x00, 0x06}
	_, err = client.Write(fc3Req)
	require.NoError(t, err)

	select {
	case got := <-passthrough:
		require.Equal(t, fc3Req, got)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for relayed frame")
	}
}

type bytesDiscard struct{}

func (bytesDiscard) Write(p []byte) (int, error) { return len(p), nil }

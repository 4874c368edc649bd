package mbserverinternal

import (
	"net"
	"time"

	"github.com/simonvetter/modbus"
	"github.com/sirupsen/logrus"

	"github.com/JeanBonBeurre34/scadadinosaur-honey/internal/identity"
	"github.com/JeanBonBeurre34/scadadinosaur-honey/internal/regimage"
)

// backendAddr is where the real github.com/simonvetter/modbus server
// binds. Nothing outside this package ever dials it: mbfront and every
// other caller only ever see ListenAddr, fronted by meiProxy below.
const backendAddr = "127.0.0.1:15020"

// maxClients bounds concurrent backend sessions; the proxy is the only
// expected caller but a generous ceiling avoids pointless churn under a
// burst of attacker connections.
const maxClients = 64

// sessionTimeout closes idle backend sessions, mirroring the library's own
// default idle-session reaping.
const sessionTimeout = 30 * time.Second

// Start brings up the real Modbus/TCP server on backendAddr and the
// MEI-14-aware proxy in front of it on ListenAddr. github.com/simonvetter/modbus
// owns its listen socket outright (ServerConfiguration.URL, no net.Listener
// injection point), so MEI-14 interception cannot be done by wrapping the
// library's own accept loop. Instead meiProxy is a second, independent
// listener that answers MEI-14 requests directly and relays every other
// frame to the backend over a plain loopback connection — the same
// relay shape mbfront uses to reach this package.
func Start(img *regimage.Image, log *logrus.Entry) (*modbus.ModbusServer, error) {
	server, err := modbus.NewServer(&modbus.ServerConfiguration{
		URL:        "tcp://" + backendAddr,
		Timeout:    sessionTimeout,
		MaxClients: maxClients,
	}, newRegisterHandler(img))
	if err != nil {
		return nil, err
	}

	if err := server.Start(); err != nil {
		return nil, err
	}
	log.WithField("addr", backendAddr).Info("internal Modbus backend listening")

	l, err := net.Listen("tcp", ListenAddr)
	if err != nil {
		server.Stop()
		return nil, err
	}

	proxy := newMEIProxy(backendAddr, identity.Device7200, log)
	go proxy.Serve(l)
	log.WithField("addr", ListenAddr).Info("MEI-14 proxy listening")

	return server, nil
}

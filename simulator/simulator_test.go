package simulator

import (
	"io"
	"log"
	"net"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"
	"gotest.tools/v3/assert"

	"github.com/openfms/pendant-core/atcmd"
	"github.com/openfms/pendant-core/modem"
)

func startSim(t *testing.T) *ModemSim {
	t.Helper()
	sim := NewModemSim("127.0.0.1:0", log.New(io.Discard, "", 0))
	assert.NilError(t, sim.Start())
	t.Cleanup(sim.Stop)
	return sim
}

func newProxyDriver(t *testing.T, sim *ModemSim) modem.Driver {
	t.Helper()
	conn, err := net.Dial("tcp", sim.Addr())
	assert.NilError(t, err)
	t.Cleanup(func() { conn.Close() })
	engine := atcmd.NewEngine(atcmd.NewConnPort(conn), zaptest.NewLogger(t))
	return modem.NewProxy(engine, modem.Config{
		APN:       "entel.pcs",
		RelayHost: "relay.example.com",
	}, zaptest.NewLogger(t))
}

func TestProxyDriverAgainstSimulator(t *testing.T) {
	sim := startSim(t)
	driver := newProxyDriver(t, sim)

	assert.Assert(t, driver.Init())
	assert.Assert(t, driver.Connect())
	assert.Assert(t, driver.IsConnected())

	loc, ok := driver.Location()
	assert.Assert(t, ok)
	assert.Assert(t, loc.Latitude > 40.7 && loc.Latitude < 40.8)
	assert.Assert(t, loc.Longitude < -73.9 && loc.Longitude > -74.1)

	response := driver.PostJSON("/heartbeat", []byte(`{"deviceId":"A4CF12F401AB"}`))
	assert.Assert(t, strings.Contains(response, "success"))
	assert.Equal(t, driver.LastStatus(), 200)
}

func TestSimulatorRegistrationDelay(t *testing.T) {
	sim := startSim(t)
	scenario := DefaultScenario()
	scenario.RegistrationPolls = 2
	sim.SetScenario(scenario)

	driver := newProxyDriver(t, sim)
	assert.Assert(t, driver.Init())
	assert.Assert(t, driver.Connect())
}

func TestSimulatorTLSFallback(t *testing.T) {
	sim := startSim(t)
	scenario := DefaultScenario()
	scenario.RejectPlainHTTP = true
	scenario.ResponseBody = `{"success":true,"path":"tls"}`
	sim.SetScenario(scenario)

	driver := newProxyDriver(t, sim)
	assert.Assert(t, driver.Init())

	response := driver.PostJSON("/heartbeat", []byte(`{"deviceId":"A4CF12F401AB"}`))
	assert.Assert(t, strings.Contains(response, "tls"))
	assert.Equal(t, driver.LastStatus(), 200)
}

func TestSimulatorDeprovisionStatus(t *testing.T) {
	sim := startSim(t)
	scenario := DefaultScenario()
	scenario.HTTPStatus = 404
	scenario.ResponseBody = `{"success":false}`
	sim.SetScenario(scenario)

	driver := newProxyDriver(t, sim)
	assert.Assert(t, driver.Init())

	response := driver.PostJSON("/heartbeat", []byte(`{"deviceId":"A4CF12F401AB"}`))
	assert.Equal(t, response, "")
	assert.Equal(t, driver.LastStatus(), 404)
	assert.Assert(t, driver.ResetRequested())
}

func TestSimulatorNoFix(t *testing.T) {
	sim := startSim(t)
	scenario := DefaultScenario()
	scenario.Fix = ""
	sim.SetScenario(scenario)

	driver := newProxyDriver(t, sim)
	_, ok := driver.Location()
	assert.Assert(t, !ok)
}

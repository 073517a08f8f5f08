package simulator

import (
	"fmt"
	"log"
	"net"
	"sync"
)

// ModemSim is a scripted A7670SA-class modem behind a TCP endpoint. It
// answers the command vocabulary the proxy driver speaks, with the HTTP
// outcome, positioning fix and registration latency configurable per
// scenario. Useful for exercising the full agent stack without hardware.
type ModemSim struct {
	listenAddr string
	ln         net.Listener
	quit       chan struct{}
	wg         sync.WaitGroup
	log        *log.Logger

	mu       sync.Mutex
	scenario Scenario
}

// Scenario scripts the modem's observable behavior.
type Scenario struct {
	// HTTPStatus is reported in the +HTTPACTION completion; ResponseBody
	// is what +HTTPREAD hands back.
	HTTPStatus   int
	ResponseBody string
	// Fix is the raw +CGPSINFO payload; empty means no fix yet.
	Fix string
	// RegistrationPolls is how many AT+CGREG? queries report "searching"
	// before the modem registers.
	RegistrationPolls int
	// RejectPlainHTTP makes every action over an http:// URL fail with a
	// transport error so only the TLS retry can succeed.
	RejectPlainHTTP bool
}

func DefaultScenario() Scenario {
	return Scenario{
		HTTPStatus:   200,
		ResponseBody: `{"success":true}`,
		Fix:          "4043.000000,N,07400.000000,W,310825,120000.0,15.0,0.0,0",
	}
}

type ModemSimInterface interface {
	Start() error
	Stop()
	Addr() string
	SetScenario(scenario Scenario)
}

var (
	_ ModemSimInterface = &ModemSim{}
)

func NewModemSim(listenAddr string, logger *log.Logger) *ModemSim {
	return &ModemSim{
		listenAddr: listenAddr,
		quit:       make(chan struct{}),
		log:        logger,
		scenario:   DefaultScenario(),
	}
}

func (ms *ModemSim) SetScenario(scenario Scenario) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.scenario = scenario
}

func (ms *ModemSim) currentScenario() Scenario {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.scenario
}

func (ms *ModemSim) Start() error {
	ln, err := net.Listen("tcp", ms.listenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen: %v", err)
	}
	ms.ln = ln
	ms.log.Println("modem simulator listening on", ln.Addr().String())
	go ms.acceptConnections()
	return nil
}

func (ms *ModemSim) Addr() string {
	if ms.ln == nil {
		return ms.listenAddr
	}
	return ms.ln.Addr().String()
}

func (ms *ModemSim) acceptConnections() {
	for {
		conn, err := ms.ln.Accept()
		if err != nil {
			select {
			case <-ms.quit:
				return
			default:
				ms.log.Println("accept connection error:", err)
				continue
			}
		}
		ms.log.Println("new connection from", conn.RemoteAddr().String())
		ms.wg.Add(1)
		go ms.handleConnection(conn)
	}
}

func (ms *ModemSim) Stop() {
	close(ms.quit)
	if ms.ln != nil {
		ms.ln.Close()
	}
	ms.wg.Wait()
	ms.log.Println("stop modem simulator")
}

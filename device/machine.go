package device

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/openfms/pendant-core/gnss"
	"github.com/openfms/pendant-core/modem"
)

const (
	// provisionHold is the button hold entering provisioning while unlinked.
	provisionHold = 5 * time.Second
	// alertHold is the button hold triggering an SOS while provisioned.
	alertHold = 3 * time.Second
	// provisioningTimeout bounds the wait for a credential.
	provisioningTimeout = 5 * time.Minute

	credentialMinLen = 6
	credentialMaxLen = 64

	// loopStep paces the cooperative control loop.
	loopStep = 100 * time.Millisecond
)

// ErrRestartRequired reports that the control loop must be restarted from a
// clean process state, after a factory reset or a provisioning timeout.
var ErrRestartRequired = errors.New("device restart required")

// ButtonKind identifies which physical alert button was held. Debouncing and
// pin handling happen outside this core; events arrive with their measured
// hold duration.
type ButtonKind int

const (
	ButtonGeneral ButtonKind = iota
	ButtonMedical
	ButtonSecurity
)

func (bk ButtonKind) alertKind() AlertKind {
	switch bk {
	case ButtonMedical:
		return AlertMedical
	case ButtonSecurity:
		return AlertSecurity
	default:
		return AlertGeneral
	}
}

// ButtonEvent is one completed button hold.
type ButtonEvent struct {
	Kind ButtonKind
	Hold time.Duration
}

// Provisioner is the short-range credential-exchange collaborator. The core
// only toggles advertising; credential strings arrive through the control
// loop's channel.
type Provisioner interface {
	StartAdvertising(deviceID string) error
	StopAdvertising() error
}

// Machine is the top-level orchestrator: it owns identity and lifecycle
// state, reacts to buttons, credentials, timers and backend signals, and
// drives the modem driver. Single-threaded by design; all mutation happens
// on the control loop.
type Machine struct {
	driver      modem.Driver
	store       Store
	provisioner Provisioner
	sched       *Scheduler
	log         *zap.Logger

	deviceID     string
	ownerUID     string
	provisioned  bool
	state        State
	lastLocation gnss.Location

	provisioningStarted time.Time
	restartRequested    bool

	now func() time.Time
}

func NewMachine(driver modem.Driver, store Store, provisioner Provisioner, deviceID string, logger *zap.Logger) *Machine {
	m := &Machine{
		driver:       driver,
		store:        store,
		provisioner:  provisioner,
		sched:        NewScheduler(driver, logger),
		log:          logger,
		deviceID:     deviceID,
		state:        StateIdle,
		lastLocation: gnss.None(),
		now:          time.Now,
	}
	m.loadIdentity()
	return m
}

func (m *Machine) loadIdentity() {
	m.provisioned = m.store.GetBool(KeyProvisioned)
	m.ownerUID = m.store.GetString(KeyOwnerUID)
	if m.provisioned {
		m.state = StateOnline
		m.log.Info("previously provisioned", zap.String("deviceID", m.deviceID))
	}
}

func (m *Machine) State() State        { return m.state }
func (m *Machine) DeviceID() string    { return m.deviceID }
func (m *Machine) OwnerUID() string    { return m.ownerUID }
func (m *Machine) Provisioned() bool   { return m.provisioned }
func (m *Machine) Healthy() bool       { return m.sched.Healthy() }
func (m *Machine) RestartNeeded() bool { return m.restartRequested }

// LastLocation returns the most recent usable fix, or an invalid record.
func (m *Machine) LastLocation() gnss.Location { return m.lastLocation }

// HandleButton reacts to a completed button hold. A long hold while
// unprovisioned opens provisioning; a shorter hold while provisioned raises
// an alert from any non-terminal state.
func (m *Machine) HandleButton(event ButtonEvent) {
	switch {
	case !m.provisioned && event.Hold >= provisionHold && m.state == StateIdle:
		m.beginProvisioning()
	case m.provisioned && event.Hold >= alertHold && !m.state.IsAlert() && m.state != StateOTAUpdate:
		m.triggerAlert(event.Kind.alertKind())
	}
}

func (m *Machine) beginProvisioning() {
	m.setState(StateProvisioning)
	m.provisioningStarted = m.now()
	if m.provisioner != nil {
		if err := m.provisioner.StartAdvertising(m.deviceID); err != nil {
			m.log.Error("start advertising failed", zap.Error(err))
		}
	}
}

// HandleCredential validates and persists an owner credential received over
// the short-range channel. Out-of-bounds lengths are rejected with no state
// change.
func (m *Machine) HandleCredential(credential string) bool {
	if len(credential) < credentialMinLen || len(credential) > credentialMaxLen {
		m.log.Warn("credential rejected", zap.Int("length", len(credential)))
		return false
	}
	if err := m.store.PutString(KeyOwnerUID, credential); err != nil {
		m.log.Error("persist credential failed", zap.Error(err))
		return false
	}
	if err := m.store.PutBool(KeyProvisioned, true); err != nil {
		m.log.Error("persist provisioned flag failed", zap.Error(err))
		return false
	}
	m.ownerUID = credential
	m.provisioned = true
	if m.provisioner != nil {
		if err := m.provisioner.StopAdvertising(); err != nil {
			m.log.Warn("stop advertising failed", zap.Error(err))
		}
	}
	m.setState(StateOnline)
	m.log.Info("device provisioned")
	return true
}

// AutoRecover restores the owner credential from the backend when local
// provisioning state is missing but the device record still exists.
func (m *Machine) AutoRecover() bool {
	if m.provisioned || !m.driver.IsConnected() {
		return false
	}
	owner := m.driver.CheckProvisioningStatus(m.deviceID)
	if owner == "" {
		return false
	}
	m.log.Info("provisioning recovered from backend")
	return m.HandleCredential(owner)
}

func (m *Machine) triggerAlert(kind AlertKind) {
	m.setState(kind.state())
	delivered := m.sched.DeliverAlert(m.deviceID, m.ownerUID, kind)
	if delivered {
		m.log.Info("alert delivered", zap.String("kind", string(kind)))
	} else {
		m.log.Error("alert delivery failed", zap.String("kind", string(kind)))
	}
	// Alerts always return to Online, delivered or not.
	m.setState(StateOnline)
}

// Tick advances timer-driven work: provisioning timeout, remote reset
// detection, periodic location refresh and heartbeat cadence.
func (m *Machine) Tick() {
	if m.driver.ResetRequested() {
		m.FactoryReset()
		return
	}

	switch m.state {
	case StateProvisioning:
		if m.now().Sub(m.provisioningStarted) >= provisioningTimeout {
			m.log.Warn("provisioning timed out")
			if m.provisioner != nil {
				_ = m.provisioner.StopAdvertising()
			}
			m.setState(StateIdle)
		}
	case StateOnline:
		if loc, ok := m.sched.RefreshLocation(); ok {
			m.lastLocation = loc
		}
		m.sched.RunHeartbeat(m.deviceID, m.ownerUID, m.provisioned, m.lastLocation)
		// The heartbeat itself may have surfaced a reset signal.
		if m.driver.ResetRequested() {
			m.FactoryReset()
		}
	}
}

// FactoryReset clears durable provisioning state and requests a process
// restart. Fires from any state and preempts normal flow.
func (m *Machine) FactoryReset() {
	m.log.Warn("factory reset", zap.String("state", m.state.String()))
	if err := m.store.Clear(); err != nil {
		m.log.Error("clear store failed", zap.Error(err))
	}
	m.ownerUID = ""
	m.provisioned = false
	m.lastLocation = gnss.None()
	m.setState(StateIdle)
	m.restartRequested = true
}

func (m *Machine) setState(next State) {
	if next == m.state {
		return
	}
	m.log.Info("state transition",
		zap.String("from", m.state.String()),
		zap.String("to", next.String()),
	)
	m.state = next
}

// Run is the cooperative control loop: it polls inputs, advances the state
// machine and performs blocking driver calls, one conversation at a time.
// It returns ErrRestartRequired after a factory reset.
func (m *Machine) Run(ctx context.Context, buttons <-chan ButtonEvent, credentials <-chan string) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-buttons:
			m.HandleButton(event)
		case credential := <-credentials:
			m.HandleCredential(credential)
		case <-time.After(loopStep):
			m.Tick()
		}
		if m.restartRequested {
			return ErrRestartRequired
		}
	}
}

package modem

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/openfms/pendant-core/atcmd"
	"github.com/openfms/pendant-core/gnss"
)

// caps is the per-profile command vocabulary and tuning. The two hardware
// profiles differ only here, never in control flow.
type caps struct {
	name string

	checkSIM bool

	registrationAttempts int
	registrationInterval time.Duration

	gnssEnable  []string
	gnssQuery   string
	gnssDisable string

	heartbeatInterval time.Duration
}

// base carries the state and algorithms shared by both driver profiles. The
// profile-specific HTTP cycle is plugged in through the post func.
type base struct {
	eng   atcmd.CommandEngine
	log   *zap.Logger
	caps  caps
	cfg   Config
	state ConnState

	session  *gnss.Session
	sleeping bool

	resetRequested bool
	last           HTTPResult
	recorder       StatusRecorder

	post  func(target string, body []byte) string
	sleep func(time.Duration)
}

func newBase(engine atcmd.CommandEngine, cfg Config, profile caps, logger *zap.Logger) base {
	return base{
		eng:     engine,
		log:     logger.Named(profile.name),
		caps:    profile,
		cfg:     cfg.withDefaults(),
		session: gnss.NewSession(),
		sleep:   time.Sleep,
	}
}

// SetStatusRecorder attaches the durable store that keeps the last HTTP
// status across power cycles.
func (b *base) SetStatusRecorder(recorder StatusRecorder) {
	b.recorder = recorder
}

// Init configures serial framing, probes modem liveness, disables command
// echo, selects text message mode and negotiates an APN. Failure is reported
// to the caller, who retries with a different serial speed.
func (b *base) Init() bool {
	if !atcmd.IsOK(b.eng.Execute("AT", time.Second)) {
		b.log.Warn("modem not responding to liveness probe")
		return false
	}
	b.eng.Execute("ATE0", time.Second)
	b.eng.Execute("AT+CMGF=1", time.Second)

	if b.caps.checkSIM {
		if !strings.Contains(b.eng.Execute("AT+CPIN?", time.Second), "READY") {
			b.log.Error("SIM not ready")
			return false
		}
		if strings.Contains(b.eng.Execute("AT+CSQ", time.Second), ": 99") {
			b.log.Error("no cellular signal")
			return false
		}
	}

	if !b.negotiateAPN() {
		return false
	}
	b.eng.Execute("AT+CGACT=1,1", 10*time.Second)
	b.log.Info("modem initialized", zap.String("apn", b.last.APN))
	return true
}

// negotiateAPN tries the configured APN first, then the known-good public
// list, until one is accepted.
func (b *base) negotiateAPN() bool {
	candidates := make([]string, 0, len(fallbackAPNs)+1)
	if b.cfg.APN != "" {
		candidates = append(candidates, b.cfg.APN)
	}
	for _, apn := range fallbackAPNs {
		if apn != b.cfg.APN {
			candidates = append(candidates, apn)
		}
	}
	for _, apn := range candidates {
		command := fmt.Sprintf("AT+CGDCONT=1,%q,%q", "IP", apn)
		if atcmd.IsOK(b.eng.Execute(command, 2*time.Second)) {
			b.last.APN = apn
			return true
		}
		b.log.Warn("apn rejected", zap.String("apn", apn))
	}
	b.log.Error("apn negotiation exhausted")
	return false
}

// Connect polls network registration until a registered code appears or the
// attempt budget runs out. Home network and roaming both count.
func (b *base) Connect() bool {
	b.state = StateRegistering
	for attempt := 0; attempt < b.caps.registrationAttempts; attempt++ {
		response := b.eng.Execute("AT+CGREG?", time.Second)
		for _, code := range registeredCodes {
			if strings.Contains(response, code) {
				b.state = StateConnected
				b.log.Info("network registered", zap.Int("attempts", attempt+1))
				return true
			}
		}
		b.sleep(b.caps.registrationInterval)
	}
	b.state = StateDisconnected
	b.log.Warn("network registration timed out")
	return false
}

// Disconnect deactivates the data context, best effort.
func (b *base) Disconnect() bool {
	b.eng.Execute("AT+CGACT=0,1", 2*time.Second)
	b.state = StateDisconnected
	return true
}

func (b *base) IsConnected() bool {
	return b.state == StateConnected
}

// InitGNSS walks the profile's enable command ladder, stopping at the first
// acceptance. Repeated failures arm an escalating backoff so a flapping
// radio cannot starve alert traffic.
func (b *base) InitGNSS() bool {
	if b.session.Enabled() {
		return true
	}
	if !b.session.CanAttempt() {
		return false
	}
	for _, command := range b.caps.gnssEnable {
		if atcmd.IsOK(b.eng.Execute(command, 5*time.Second)) {
			b.session.RecordSuccess()
			b.log.Info("gnss enabled", zap.String("command", command))
			return true
		}
	}
	b.session.RecordFailure()
	b.log.Warn("gnss enable failed")
	return false
}

// Location polls the positioning subsystem and parses the reply into a
// normalized record. The second return is false when there is no usable fix.
func (b *base) Location() (gnss.Location, bool) {
	if !b.session.Enabled() && !b.InitGNSS() {
		return gnss.None(), false
	}
	response := b.eng.Execute(b.caps.gnssQuery, 2*time.Second)
	loc, ok := gnss.ParseFix(response)
	if !ok {
		return gnss.None(), false
	}
	return loc, true
}

// DisableGNSS powers the radio down; a no-op when already disabled.
func (b *base) DisableGNSS() {
	if !b.session.Enabled() {
		return
	}
	b.eng.Execute(b.caps.gnssDisable, 2*time.Second)
	b.session.Disable()
}

// EnableDeepSleep quiesces networking and positioning. Actual low-power
// hardware entry is the caller's responsibility.
func (b *base) EnableDeepSleep(seconds int) {
	if b.IsConnected() {
		b.Disconnect()
	}
	b.DisableGNSS()
	b.sleeping = true
	b.log.Info("deep sleep requested", zap.Int("seconds", seconds))
}

func (b *base) IsDeepSleeping() bool {
	return b.sleeping
}

// SendSOSAlert posts an alert record. An invalid location is serialized as
// an explicit null so the backend substitutes the last known position.
func (b *base) SendSOSAlert(deviceID, ownerUID, kind string, loc gnss.Location) bool {
	response := b.post(b.cfg.AlertPath, alertBody(deviceID, ownerUID, kind, loc))
	return response != ""
}

// SendHeartbeat posts a liveness report and inspects the outcome for a
// remote reset signal, either a reserved deprovisioning status or an
// explicit command field in the body.
func (b *base) SendHeartbeat(ownerUID, deviceID string, loc gnss.Location) bool {
	response := b.post(b.cfg.HeartbeatPath, heartbeatBody(deviceID, ownerUID, loc))
	if hasResetCommand(response) {
		b.log.Warn("remote reset command received")
		b.resetRequested = true
		return false
	}
	if IsDeprovisionStatus(b.last.Status) {
		return false
	}
	return response != ""
}

// CheckProvisioningStatus asks the backend whether it still recognizes this
// device; used only for auto-recovery when local provisioning state is
// missing. Returns the owner credential or empty.
func (b *base) CheckProvisioningStatus(deviceID string) string {
	response := b.post(b.cfg.StatusPath, lookupBody(deviceID))
	if response == "" {
		return ""
	}
	return extractOwnerUID(response)
}

func (b *base) PostJSON(target string, body []byte) string {
	return b.post(target, body)
}

func (b *base) ResetRequested() bool {
	return b.resetRequested
}

func (b *base) LastStatus() int {
	return b.last.Status
}

// LastResult exposes the most recent transaction for diagnostics.
func (b *base) LastResult() HTTPResult {
	return b.last
}

func (b *base) HeartbeatInterval() time.Duration {
	return b.caps.heartbeatInterval
}

// recordStatus notes the transaction status unconditionally, including
// failures, so downstream reset/diagnostic logic can inspect it. Reserved
// deprovisioning statuses arm the sticky reset flag here.
func (b *base) recordStatus(status int, url string) {
	b.last.Status = status
	b.last.URL = url
	if b.recorder != nil {
		b.recorder.RecordHTTPStatus(status)
	}
	if IsDeprovisionStatus(status) {
		b.log.Warn("deprovisioning status received", zap.Int("status", status))
		b.resetRequested = true
	}
}

// parseActionStatus extracts the numeric status from an asynchronous
// completion report such as "+HTTPACTION: 1,200,125" or
// "+SHREQ: \"POST\",200,125": second comma-delimited field after the marker.
func parseActionStatus(response, marker string) int {
	idx := strings.Index(response, marker)
	if idx == -1 {
		return StatusTransportFailure
	}
	fields := strings.Split(response[idx+len(marker):], ",")
	if len(fields) < 2 {
		return StatusTransportFailure
	}
	status, err := strconv.Atoi(strings.TrimSpace(fields[1]))
	if err != nil {
		return StatusTransportFailure
	}
	return status
}

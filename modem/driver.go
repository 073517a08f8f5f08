package modem

import (
	"time"

	"golang.org/x/exp/slices"

	"github.com/openfms/pendant-core/gnss"
)

// ConnState is the network registration state owned by the driver. Callers
// only observe it through IsConnected.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateRegistering
	StateConnected
)

func (cs ConnState) String() string {
	switch cs {
	case StateRegistering:
		return "registering"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// HTTPResult is the most recent HTTP transaction, retained for diagnostic
// inspection only. Status -1 means the transport failed before any status
// line was received.
type HTTPResult struct {
	Status int
	Body   string
	URL    string
	APN    string
}

const StatusTransportFailure = -1

// deprovisionStatuses are authoritative signals that the device record no
// longer exists or no longer belongs to this device. They must never trigger
// a transport fallback; retrying cannot change them.
var deprovisionStatuses = []int{404, 410, 401}

func IsDeprovisionStatus(status int) bool {
	return slices.Contains(deprovisionStatuses, status)
}

// fallbackAPNs are known-good public access point names tried in order when
// the configured one is rejected.
var fallbackAPNs = []string{"entel.pcs", "internet", "claro.pe", "movistar.pe", "web.gprsuniversal"}

// registeredCodes are the CGREG report suffixes meaning registered: home
// network and roaming respectively.
var registeredCodes = []string{"+CGREG: 0,1", "+CGREG: 0,5"}

//go:generate mockgen -source=$GOFILE -destination=mock_modem/driver.go -package=mock_modem

// Driver is the uniform capability surface over the two hardware profiles.
// Every network operation that cannot complete returns a falsy/empty result;
// nothing panics or errors across this boundary.
type Driver interface {
	Init() bool
	Connect() bool
	Disconnect() bool
	IsConnected() bool

	PostJSON(target string, body []byte) string
	SendSOSAlert(deviceID, ownerUID, kind string, loc gnss.Location) bool
	SendHeartbeat(ownerUID, deviceID string, loc gnss.Location) bool
	CheckProvisioningStatus(deviceID string) string

	InitGNSS() bool
	Location() (gnss.Location, bool)
	DisableGNSS()

	EnableDeepSleep(seconds int)

	// ResetRequested reports the sticky remote-reset flag, set by a
	// deprovisioning status or an explicit reset command in a response body.
	ResetRequested() bool
	// LastStatus returns the numeric status of the most recent HTTP cycle.
	LastStatus() int
	// HeartbeatInterval is the profile's normal heartbeat cadence.
	HeartbeatInterval() time.Duration
}

// StatusRecorder persists the last HTTP status for post-mortem diagnosis.
// Implemented by the durable device store; may be nil.
type StatusRecorder interface {
	RecordHTTPStatus(status int)
}

// Config carries profile-independent driver settings.
type Config struct {
	// APN is tried first during init before the public fallback list.
	APN string
	// RelayHost is the plain-HTTP relay for the proxy profile.
	RelayHost string
	// BaseURL prefixes endpoint paths for the direct profile.
	BaseURL string
	// Endpoint paths (or full URLs) for the backend operations.
	HeartbeatPath string
	AlertPath     string
	StatusPath    string
	UserAgent     string
}

// withDefaults fills unset endpoints with the conventional ones.
func (c Config) withDefaults() Config {
	if c.HeartbeatPath == "" {
		c.HeartbeatPath = "/heartbeat"
	}
	if c.AlertPath == "" {
		c.AlertPath = "/heartbeat"
	}
	if c.StatusPath == "" {
		c.StatusPath = "/checkDeviceStatus"
	}
	if c.UserAgent == "" {
		c.UserAgent = "pendant-core"
	}
	return c
}

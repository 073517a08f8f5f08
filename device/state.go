package device

import "strings"

// State is the device lifecycle state. Exactly one is active at a time.
type State int

const (
	StateIdle State = iota
	StateProvisioning
	StateOnline
	StateAlertGeneral
	StateAlertMedical
	StateAlertSecurity
	StateOTAUpdate
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateProvisioning:
		return "provisioning"
	case StateOnline:
		return "online"
	case StateAlertGeneral:
		return "alert_general"
	case StateAlertMedical:
		return "alert_medical"
	case StateAlertSecurity:
		return "alert_security"
	case StateOTAUpdate:
		return "ota_update"
	default:
		return "unknown"
	}
}

// IsAlert reports whether the state is one of the SOS delivery states.
func (s State) IsAlert() bool {
	return s == StateAlertGeneral || s == StateAlertMedical || s == StateAlertSecurity
}

// AlertKind names the SOS flavor carried on the wire as "sos_<kind>".
type AlertKind string

const (
	AlertGeneral  AlertKind = "general"
	AlertMedical  AlertKind = "medical"
	AlertSecurity AlertKind = "security"
)

func (ak AlertKind) state() State {
	switch ak {
	case AlertMedical:
		return StateAlertMedical
	case AlertSecurity:
		return StateAlertSecurity
	default:
		return StateAlertGeneral
	}
}

// DeviceIDFromMAC derives the immutable device identifier from a hardware
// MAC address: colon-free, upper-case hex.
func DeviceIDFromMAC(mac string) string {
	return strings.ToUpper(strings.NewReplacer(":", "", "-", "").Replace(mac))
}

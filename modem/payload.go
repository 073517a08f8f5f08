package modem

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/openfms/pendant-core/gnss"
)

// LocationPayload is the wire form of a valid fix. Field names are part of
// the backend contract.
type LocationPayload struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Accuracy float64 `json:"accuracy"`
}

// HeartbeatPayload is the periodic liveness report.
type HeartbeatPayload struct {
	DeviceID     string           `json:"deviceId"`
	OwnerUID     string           `json:"ownerUid"`
	Status       string           `json:"status"`
	Timestamp    int64            `json:"timestamp"`
	LastLocation *LocationPayload `json:"lastLocation,omitempty"`
}

// AlertPayload is the SOS report. LastLocation is serialized as an explicit
// null when no fix is available so the backend falls back to the last known
// location.
type AlertPayload struct {
	DeviceID     string           `json:"deviceId"`
	OwnerUID     string           `json:"ownerUid"`
	Status       string           `json:"status"`
	LastLocation *LocationPayload `json:"lastLocation"`
}

// LookupPayload asks the backend whether it still recognizes this device.
type LookupPayload struct {
	DeviceID string `json:"deviceId"`
}

func locationPayload(loc gnss.Location) *LocationPayload {
	if !loc.Valid {
		return nil
	}
	return &LocationPayload{
		Lat:      loc.Latitude,
		Lng:      loc.Longitude,
		Accuracy: loc.Accuracy,
	}
}

func heartbeatBody(deviceID, ownerUID string, loc gnss.Location) []byte {
	body, _ := json.Marshal(&HeartbeatPayload{
		DeviceID:     deviceID,
		OwnerUID:     ownerUID,
		Status:       "online",
		Timestamp:    time.Now().UnixMilli(),
		LastLocation: locationPayload(loc),
	})
	return body
}

func alertBody(deviceID, ownerUID, kind string, loc gnss.Location) []byte {
	body, _ := json.Marshal(&AlertPayload{
		DeviceID:     deviceID,
		OwnerUID:     ownerUID,
		Status:       "sos_" + kind,
		LastLocation: locationPayload(loc),
	})
	return body
}

func lookupBody(deviceID string) []byte {
	body, _ := json.Marshal(&LookupPayload{DeviceID: deviceID})
	return body
}

const ownerUIDKey = `"ownerUid":"`

// extractOwnerUID pulls the owner credential out of a raw response body by
// locating the key literal and reading the quoted string that follows. The
// body may carry other fields in any order; full JSON decoding is avoided
// because proxied responses are occasionally wrapped in transport noise.
func extractOwnerUID(body string) string {
	start := strings.Index(body, ownerUIDKey)
	if start == -1 {
		return ""
	}
	start += len(ownerUIDKey)
	end := strings.Index(body[start:], `"`)
	if end == -1 {
		return ""
	}
	return body[start : start+end]
}

// hasResetCommand reports whether a response body carries the explicit
// remote factory-reset instruction.
func hasResetCommand(body string) bool {
	return strings.Contains(body, `"cmd_reset":true`)
}

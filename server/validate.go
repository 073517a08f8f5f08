package server

import (
	"errors"
	"fmt"

	"golang.org/x/exp/slices"
)

var allowedStatuses = []string{
	"online",
	"offline",
	"sos_general",
	"sos_medical",
	"sos_security",
}

const (
	minIdentifierLen = 10
	maxPayloadSize   = 5120
)

// GeoPoint accepts both the compact field names the pendant sends and
// the long names older firmware revisions used.
type GeoPoint struct {
	Lat       *float64 `json:"lat,omitempty"`
	Lng       *float64 `json:"lng,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Accuracy  float64  `json:"accuracy,omitempty"`
}

// Coordinates resolves the spelling variants to a single pair.
func (gp *GeoPoint) Coordinates() (lat, lng float64, ok bool) {
	switch {
	case gp.Lat != nil && gp.Lng != nil:
		return *gp.Lat, *gp.Lng, true
	case gp.Latitude != nil && gp.Longitude != nil:
		return *gp.Latitude, *gp.Longitude, true
	default:
		return 0, 0, false
	}
}

type EventPayload struct {
	DeviceID     string    `json:"deviceId"`
	OwnerUID     string    `json:"ownerUid"`
	Status       string    `json:"status"`
	Timestamp    int64     `json:"timestamp,omitempty"`
	LastLocation *GeoPoint `json:"lastLocation,omitempty"`
}

var (
	ErrDeviceIDRequired = errors.New("deviceId must be a non-empty string")
	ErrOwnerUIDRequired = errors.New("ownerUid must be a non-empty string")
	ErrDeviceIDTooShort = errors.New("deviceId too short")
	ErrOwnerUIDTooShort = errors.New("ownerUid too short")
	ErrBadCoordinates   = errors.New("invalid location coordinates")
	ErrLatitudeRange    = errors.New("latitude out of range")
	ErrLongitudeRange   = errors.New("longitude out of range")
)

func ValidatePayload(payload *EventPayload) error {
	if payload.DeviceID == "" {
		return ErrDeviceIDRequired
	}
	if payload.OwnerUID == "" {
		return ErrOwnerUIDRequired
	}
	if len(payload.DeviceID) < minIdentifierLen {
		return ErrDeviceIDTooShort
	}
	if len(payload.OwnerUID) < minIdentifierLen {
		return ErrOwnerUIDTooShort
	}
	if payload.Status != "" && !slices.Contains(allowedStatuses, payload.Status) {
		return fmt.Errorf("invalid status: %s", payload.Status)
	}
	if payload.LastLocation != nil {
		lat, lng, ok := payload.LastLocation.Coordinates()
		if !ok {
			return ErrBadCoordinates
		}
		if lat < -90 || lat > 90 {
			return ErrLatitudeRange
		}
		if lng < -180 || lng > 180 {
			return ErrLongitudeRange
		}
	}
	return nil
}

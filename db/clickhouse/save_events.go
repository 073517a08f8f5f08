package clickhouse

import (
	"context"
	"time"
)

// DeviceEvent is one relayed heartbeat or alert as archived for fleet
// diagnostics.
type DeviceEvent struct {
	EventID    string
	DeviceID   string
	OwnerUID   string
	Status     string
	Latitude   float64
	Longitude  float64
	Accuracy   float64
	HasFix     bool
	ReceivedAt time.Time
}

type DeviceEventColumns struct {
	EventID    string
	DeviceID   string
	OwnerUID   string
	Status     string
	Latitude   float64
	Longitude  float64
	Accuracy   float64
	HasFix     uint8
	ReceivedAt time.Time
}

const insertEventQuery = `
	INSERT INTO
	    device_events(event_id, device_id, owner_uid, status, latitude, longitude, accuracy, has_fix, received_at)
	VALUES (?,?,?,?,?,?,?,?,?);
`

// SaveEvents archives relayed device events to clickhouse
func (edb *EventDataBase) SaveEvents(ctx context.Context, events []*DeviceEvent) error {
	batch, err := edb.ClickhouseConn.PrepareBatch(ctx, insertEventQuery)
	if err != nil {
		return err
	}
	for _, event := range events {
		hasFix := uint8(0)
		if event.HasFix {
			hasFix = 1
		}
		err := batch.AppendStruct(&DeviceEventColumns{
			EventID:    event.EventID,
			DeviceID:   event.DeviceID,
			OwnerUID:   event.OwnerUID,
			Status:     event.Status,
			Latitude:   event.Latitude,
			Longitude:  event.Longitude,
			Accuracy:   event.Accuracy,
			HasFix:     hasFix,
			ReceivedAt: event.ReceivedAt,
		})
		if err != nil {
			return err
		}
	}
	return batch.Send()
}

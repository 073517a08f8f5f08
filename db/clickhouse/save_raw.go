package clickhouse

import (
	"context"
)

const insertRawPayloadQuery = `
	INSERT INTO rawpayloads (timestamp, device_id, payload)
VALUES (now(), ?,?);

`

// SaveRawPayload saves the unmodified request body to clickhouse
func (edb *EventDataBase) SaveRawPayload(ctx context.Context, deviceID, payload string) error {
	batch, err := edb.GetConn().PrepareBatch(ctx, insertRawPayloadQuery)
	if err != nil {
		return err
	}
	if e := batch.Append(deviceID, payload); e != nil {
		return e
	}
	return batch.Send()
}

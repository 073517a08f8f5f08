package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/openfms/pendant-core/db/clickhouse"
	"go.uber.org/zap"
)

// HandleEvent validates a device payload, relays it upstream and hands
// the upstream reply back unchanged so reset commands reach the device.
func (rs *RelayServer) HandleEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadSize+1))
	if err != nil {
		rs.writeError(w, http.StatusBadRequest, "read body failed")
		return
	}
	if len(body) > maxPayloadSize {
		rs.writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("payload too large, max: %d bytes", maxPayloadSize))
		return
	}
	var payload EventPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		rs.writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := ValidatePayload(&payload); err != nil {
		rs.writeError(w, http.StatusBadRequest, "validation error: "+err.Error())
		return
	}
	rs.log.Info("event received",
		zap.String("path", r.URL.Path),
		zap.String("deviceID", payload.DeviceID),
		zap.String("status", payload.Status),
	)

	status, upstreamBody, err := rs.forward(r.Context(), r.URL.Path, body)
	if err != nil {
		rs.log.Error("forward upstream failed",
			zap.Error(err),
			zap.String("deviceID", payload.DeviceID),
		)
		rs.writeError(w, http.StatusBadGateway, "upstream unreachable")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, e := w.Write(upstreamBody); e != nil {
		rs.log.Error("write response failed", zap.Error(e))
	}

	go rs.archiveEvent(&payload, body)
}

func (rs *RelayServer) forward(ctx context.Context, path string, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rs.backendURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := rs.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, respBody, nil
}

func (rs *RelayServer) archiveEvent(payload *EventPayload, raw []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	status := payload.Status
	if status == "" {
		status = "online"
	}
	event := &clickhouse.DeviceEvent{
		EventID:    uuid.NewString(),
		DeviceID:   payload.DeviceID,
		OwnerUID:   payload.OwnerUID,
		Status:     status,
		ReceivedAt: time.Now(),
	}
	if payload.LastLocation != nil {
		if lat, lng, ok := payload.LastLocation.Coordinates(); ok {
			event.Latitude = lat
			event.Longitude = lng
			event.Accuracy = payload.LastLocation.Accuracy
			event.HasFix = true
		}
	}

	if rs.eventDB != nil {
		if e := rs.eventDB.SaveRawPayload(ctx, payload.DeviceID, string(raw)); e != nil {
			rs.log.Error("save raw payload failed", zap.Error(e))
		}
		if e := rs.eventDB.SaveEvents(ctx, []*clickhouse.DeviceEvent{event}); e != nil {
			rs.log.Error("failed to save device event", zap.Error(e))
		}
	}
	rs.PublishLastEvent(event)
}

func (rs *RelayServer) PublishLastEvent(event *clickhouse.DeviceEvent) {
	if rs.natsConn == nil {
		return
	}
	subject := fmt.Sprintf("pendant.lastpoint.%s", event.DeviceID)
	eventBytes, err := json.Marshal(event)
	if err != nil {
		rs.log.Error("marshal last event failed", zap.Error(err))
		return
	}
	if e := rs.natsConn.Publish(subject, eventBytes); e != nil {
		rs.log.Error("publish last event failed", zap.Error(e))
	}
}

func (rs *RelayServer) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := map[string]any{
		"success":   false,
		"error":     message,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		rs.log.Error("write error response failed", zap.Error(err))
	}
}

package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/openfms/pendant-core/db/clickhouse"
	"go.uber.org/zap/zaptest"
	"gotest.tools/v3/assert"
)

func startRelay(t *testing.T, backendURL string) (*RelayServer, string) {
	t.Helper()
	addr := generateRandomHostPort()
	rs := NewServer(addr, backendURL, zaptest.NewLogger(t), nil, nil)
	go func() {
		if err := rs.Start(); err != nil && err != http.ErrServerClosed {
			t.Logf("relay stopped: %v", err)
		}
	}()
	waitListening(t, addr)
	t.Cleanup(rs.Stop)
	return rs, "http://" + addr
}

func waitListening(t *testing.T, addr string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("relay never listened on %s", addr)
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	assert.NilError(t, err)
	return resp
}

func TestRelayForwardsHeartbeat(t *testing.T) {
	var received []byte
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"success":true,"cmd_reset":false}`))
	}))
	defer backend.Close()

	_, baseURL := startRelay(t, backend.URL)

	body := `{"deviceId":"A4CF12F401AB","ownerUid":"owner-1234-abcd","status":"online","timestamp":1756600000,"lastLocation":{"lat":-12.0464,"lng":-77.0428,"accuracy":8.5}}`
	resp := postJSON(t, baseURL+"/heartbeat", body)
	defer resp.Body.Close()

	assert.Equal(t, resp.StatusCode, http.StatusOK)
	got, err := io.ReadAll(resp.Body)
	assert.NilError(t, err)
	assert.Equal(t, string(got), `{"success":true,"cmd_reset":false}`)
	assert.Equal(t, string(received), body)
}

func TestRelayRelaysUpstreamStatus(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"success":false,"error":"device deprovisioned"}`))
	}))
	defer backend.Close()

	_, baseURL := startRelay(t, backend.URL)
	body := `{"deviceId":"A4CF12F401AB","ownerUid":"owner-1234-abcd","status":"sos_general","lastLocation":null}`
	resp := postJSON(t, baseURL+"/send", body)
	defer resp.Body.Close()
	assert.Equal(t, resp.StatusCode, http.StatusNotFound)
}

func TestRelayRejectsInvalidPayload(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("backend must not be reached")
	}))
	defer backend.Close()

	_, baseURL := startRelay(t, backend.URL)
	tests := map[string]string{
		"not json":         `not json at all`,
		"missing owner":    `{"deviceId":"A4CF12F401AB","status":"online"}`,
		"short device id":  `{"deviceId":"AB12","ownerUid":"owner-1234-abcd"}`,
		"unknown status":   `{"deviceId":"A4CF12F401AB","ownerUid":"owner-1234-abcd","status":"panic"}`,
		"latitude range":   `{"deviceId":"A4CF12F401AB","ownerUid":"owner-1234-abcd","lastLocation":{"lat":95.0,"lng":0.0}}`,
		"half coordinates": `{"deviceId":"A4CF12F401AB","ownerUid":"owner-1234-abcd","lastLocation":{"lat":10.0}}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			resp := postJSON(t, baseURL+"/send", body)
			defer resp.Body.Close()
			assert.Equal(t, resp.StatusCode, http.StatusBadRequest)
		})
	}
}

func TestRelayRejectsOversizedPayload(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("backend must not be reached")
	}))
	defer backend.Close()

	_, baseURL := startRelay(t, backend.URL)
	big := bytes.Repeat([]byte("x"), maxPayloadSize+10)
	resp := postJSON(t, baseURL+"/send", string(big))
	defer resp.Body.Close()
	assert.Equal(t, resp.StatusCode, http.StatusRequestEntityTooLarge)
}

func TestRelayMethodNotAllowed(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer backend.Close()

	_, baseURL := startRelay(t, backend.URL)
	resp, err := http.Get(baseURL + "/heartbeat")
	assert.NilError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, resp.StatusCode, http.StatusMethodNotAllowed)
}

func TestRelayPublishesLastEvent(t *testing.T) {
	natsServer := RunNatsServerOnPort(-1)
	defer natsServer.Shutdown()
	nc := NewNatsConnection(t, natsServer.ClientURL())
	defer nc.Close()

	sub, err := nc.SubscribeSync("pendant.lastpoint.>")
	assert.NilError(t, err)

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true}`))
	}))
	defer backend.Close()

	addr := generateRandomHostPort()
	rs := NewServer(addr, backend.URL, zaptest.NewLogger(t), nc, nil)
	go rs.Start()
	waitListening(t, addr)
	defer rs.Stop()

	body := `{"deviceId":"A4CF12F401AB","ownerUid":"owner-1234-abcd","status":"sos_medical","lastLocation":{"lat":-12.0464,"lng":-77.0428,"accuracy":12.0}}`
	resp := postJSON(t, "http://"+addr+"/send", body)
	resp.Body.Close()

	msg, err := sub.NextMsg(3 * time.Second)
	assert.NilError(t, err)
	assert.Equal(t, msg.Subject, "pendant.lastpoint.A4CF12F401AB")

	var event clickhouse.DeviceEvent
	assert.NilError(t, json.Unmarshal(msg.Data, &event))
	assert.Equal(t, event.Status, "sos_medical")
	assert.Equal(t, event.OwnerUID, "owner-1234-abcd")
	assert.Assert(t, event.HasFix)
	assert.Assert(t, event.EventID != "")
}

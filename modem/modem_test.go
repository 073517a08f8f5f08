package modem

import (
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"gotest.tools/v3/assert"

	"github.com/openfms/pendant-core/gnss"
)

const okReply = "\r\nOK\r\n"

// fakeEngine scripts command/response exchanges. Lookup is by longest
// matching prefix; queued replies pop in order for commands issued more than
// once (e.g. the action trigger across a fallback retry).
type fakeEngine struct {
	replies     map[string]string
	queues      map[string][]string
	uploadReply string
	calls       []string
	uploads     []string
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		replies:     map[string]string{},
		queues:      map[string][]string{},
		uploadReply: okReply,
	}
}

func (fe *fakeEngine) Execute(command string, timeout time.Duration) string {
	return fe.ExecuteWait(command, timeout)
}

func (fe *fakeEngine) ExecuteWait(command string, timeout time.Duration, markers ...string) string {
	fe.calls = append(fe.calls, command)
	var bestKey string
	for key := range fe.queues {
		if strings.HasPrefix(command, key) && len(key) > len(bestKey) {
			bestKey = key
		}
	}
	if queue := fe.queues[bestKey]; len(queue) > 0 {
		fe.queues[bestKey] = queue[1:]
		return queue[0]
	}
	bestKey = ""
	for key := range fe.replies {
		if strings.HasPrefix(command, key) && len(key) > len(bestKey) {
			bestKey = key
		}
	}
	if bestKey != "" {
		return fe.replies[bestKey]
	}
	return okReply
}

func (fe *fakeEngine) Upload(body []byte, timeout time.Duration) string {
	fe.uploads = append(fe.uploads, string(body))
	return fe.uploadReply
}

func (fe *fakeEngine) countCalls(prefix string) int {
	count := 0
	for _, call := range fe.calls {
		if strings.HasPrefix(call, prefix) {
			count++
		}
	}
	return count
}

func newTestProxy(fe *fakeEngine) *Proxy {
	p := NewProxy(fe, Config{RelayHost: "relay.example"}, zap.NewNop())
	p.sleep = func(time.Duration) {}
	return p
}

type statusLog struct {
	statuses []int
}

func (sl *statusLog) RecordHTTPStatus(status int) {
	sl.statuses = append(sl.statuses, status)
}

func TestProxyPostJSONSuccess(t *testing.T) {
	fe := newFakeEngine()
	fe.replies["AT+HTTPDATA"] = "\r\nDOWNLOAD\r\n"
	fe.replies["AT+HTTPACTION=1"] = "\r\nOK\r\n\r\n+HTTPACTION: 1,200,25\r\n"
	fe.replies["AT+HTTPREAD"] = "\r\nOK\r\n+HTTPREAD: 25\r\n{\"success\":true}\r\n+HTTPREAD: 0\r\n"
	proxy := newTestProxy(fe)

	response := proxy.PostJSON("/send", []byte(`{"deviceId":"A4CF12E09B11"}`))

	assert.Equal(t, response, `{"success":true}`)
	assert.Equal(t, proxy.LastStatus(), 200)
	assert.Equal(t, fe.uploads[0], `{"deviceId":"A4CF12E09B11"}`)
	assert.Equal(t, fe.countCalls(`AT+HTTPPARA="URL","http://relay.example/send"`), 1)
	assert.Equal(t, fe.countCalls("AT+HTTPSSL"), 0)
	assert.Assert(t, !proxy.ResetRequested())
}

func TestProxyDeprovisionStatusNoFallback(t *testing.T) {
	tests := map[string]int{
		"not found": 404,
		"gone":      410,
		"unauth":    401,
	}
	for name, status := range tests {
		t.Run(name, func(t *testing.T) {
			fe := newFakeEngine()
			fe.replies["AT+HTTPDATA"] = "\r\nDOWNLOAD\r\n"
			fe.replies["AT+HTTPACTION=1"] = "\r\n+HTTPACTION: 1," + itoa(status) + ",0\r\n"
			proxy := newTestProxy(fe)

			response := proxy.PostJSON("/send", []byte(`{}`))

			assert.Equal(t, response, "")
			assert.Equal(t, proxy.LastStatus(), status)
			assert.Assert(t, proxy.ResetRequested())
			// Authoritative status: exactly one attempt, no TLS retry.
			assert.Equal(t, fe.countCalls("AT+HTTPACTION"), 1)
			assert.Equal(t, fe.countCalls("AT+HTTPSSL"), 0)
		})
	}
}

func TestProxyTLSFallbackOnce(t *testing.T) {
	fe := newFakeEngine()
	fe.replies["AT+HTTPDATA"] = "\r\nDOWNLOAD\r\n"
	fe.queues["AT+HTTPACTION=1"] = []string{
		"\r\n+HTTPACTION: 1,500,0\r\n",
		"\r\n+HTTPACTION: 1,502,0\r\n",
	}
	proxy := newTestProxy(fe)
	recorder := &statusLog{}
	proxy.SetStatusRecorder(recorder)

	response := proxy.PostJSON("/send", []byte(`{}`))

	assert.Equal(t, response, "")
	assert.Equal(t, fe.countCalls("AT+HTTPACTION"), 2)
	assert.Equal(t, fe.countCalls("AT+HTTPSSL=1"), 1)
	assert.Equal(t, fe.countCalls(`AT+HTTPPARA="URL","https://relay.example/send"`), 1)
	assert.DeepEqual(t, recorder.statuses, []int{500, 502})
	assert.Assert(t, !proxy.ResetRequested())
}

func TestProxyTLSFallbackRecovers(t *testing.T) {
	fe := newFakeEngine()
	fe.replies["AT+HTTPDATA"] = "\r\nDOWNLOAD\r\n"
	fe.replies["AT+HTTPREAD"] = "\r\n+HTTPREAD: 16\r\n{\"success\":true}\r\n+HTTPREAD: 0\r\n"
	fe.queues["AT+HTTPACTION=1"] = []string{
		"\r\n+HTTPACTION: 1,503,0\r\n",
		"\r\n+HTTPACTION: 1,201,16\r\n",
	}
	proxy := newTestProxy(fe)

	response := proxy.PostJSON("/send", []byte(`{}`))

	assert.Equal(t, response, `{"success":true}`)
	assert.Equal(t, proxy.LastStatus(), 201)
}

func TestProxyFullURLTargetKeptOnFallback(t *testing.T) {
	fe := newFakeEngine()
	fe.replies["AT+HTTPDATA"] = "\r\nDOWNLOAD\r\n"
	fe.queues["AT+HTTPACTION=1"] = []string{
		"\r\n+HTTPACTION: 1,500,0\r\n",
		"\r\n+HTTPACTION: 1,500,0\r\n",
	}
	proxy := newTestProxy(fe)

	proxy.PostJSON("http://fixed.example/ingest", []byte(`{}`))

	assert.Equal(t, fe.countCalls(`AT+HTTPPARA="URL","http://fixed.example/ingest"`), 2)
}

func TestProxyUploadReadyMissing(t *testing.T) {
	fe := newFakeEngine()
	fe.replies["AT+HTTPDATA"] = "\r\nERROR\r\n"
	proxy := newTestProxy(fe)

	response := proxy.PostJSON("/send", []byte(`{}`))

	assert.Equal(t, response, "")
	assert.Equal(t, proxy.LastStatus(), StatusTransportFailure)
	assert.Equal(t, len(fe.uploads), 0)
}

func TestProxySessionInitHardFailure(t *testing.T) {
	fe := newFakeEngine()
	fe.replies["AT+HTTPINIT"] = "\r\nERROR\r\n"
	proxy := newTestProxy(fe)

	response := proxy.PostJSON("/send", []byte(`{}`))

	assert.Equal(t, response, "")
	assert.Equal(t, proxy.LastStatus(), StatusTransportFailure)
	assert.Equal(t, fe.countCalls("AT+HTTPDATA"), 0)
}

func TestConnectRegistrationPolling(t *testing.T) {
	fe := newFakeEngine()
	fe.queues["AT+CGREG?"] = []string{
		"\r\n+CGREG: 0,2\r\nOK\r\n",
		"\r\n+CGREG: 0,2\r\nOK\r\n",
		"\r\n+CGREG: 0,5\r\nOK\r\n",
	}
	proxy := newTestProxy(fe)

	assert.Assert(t, proxy.Connect())
	assert.Assert(t, proxy.IsConnected())
	assert.Equal(t, fe.countCalls("AT+CGREG?"), 3)
}

func TestConnectExhaustsAttempts(t *testing.T) {
	fe := newFakeEngine()
	fe.replies["AT+CGREG?"] = "\r\n+CGREG: 0,2\r\nOK\r\n"
	proxy := newTestProxy(fe)

	assert.Assert(t, !proxy.Connect())
	assert.Assert(t, !proxy.IsConnected())
	assert.Equal(t, fe.countCalls("AT+CGREG?"), 60)
}

func TestDisconnectIdempotent(t *testing.T) {
	fe := newFakeEngine()
	proxy := newTestProxy(fe)
	assert.Assert(t, proxy.Disconnect())
	assert.Assert(t, proxy.Disconnect())
	assert.Assert(t, !proxy.IsConnected())
}

func TestInitAPNFallback(t *testing.T) {
	fe := newFakeEngine()
	fe.queues[`AT+CGDCONT=1`] = []string{
		"\r\nERROR\r\n",
		"\r\nERROR\r\n",
		"\r\nOK\r\n",
	}
	proxy := NewProxy(fe, Config{APN: "iot.private"}, zap.NewNop())
	proxy.sleep = func(time.Duration) {}

	assert.Assert(t, proxy.Init())
	// Configured APN first, then the public list until accepted.
	assert.Equal(t, fe.countCalls(`AT+CGDCONT=1,"IP","iot.private"`), 1)
	assert.Equal(t, fe.countCalls(`AT+CGDCONT=1,"IP","entel.pcs"`), 1)
	assert.Equal(t, fe.countCalls(`AT+CGDCONT=1,"IP","internet"`), 1)
	assert.Equal(t, proxy.LastResult().APN, "internet")
}

func TestInitLivenessFailure(t *testing.T) {
	fe := newFakeEngine()
	fe.replies["AT"] = ""
	proxy := newTestProxy(fe)
	assert.Assert(t, !proxy.Init())
}

func TestGNSSDisableIdempotent(t *testing.T) {
	fe := newFakeEngine()
	proxy := newTestProxy(fe)

	assert.Assert(t, proxy.InitGNSS())
	proxy.DisableGNSS()
	calls := fe.countCalls("AT+CGPS=0")
	proxy.DisableGNSS()
	assert.Equal(t, fe.countCalls("AT+CGPS=0"), calls)
}

func TestLocationParsesFix(t *testing.T) {
	fe := newFakeEngine()
	fe.replies["AT+CGPSINFO"] = "\r\n+CGPSINFO: 4043.000000,N,07400.000000,W,310825,120000.0,18.0\r\nOK\r\n"
	proxy := newTestProxy(fe)

	loc, ok := proxy.Location()
	assert.Assert(t, ok)
	assert.Assert(t, loc.Valid)
	assertClose(t, loc.Latitude, 40.716667)
	assertClose(t, loc.Longitude, -74.0)
}

func TestLocationNoFix(t *testing.T) {
	fe := newFakeEngine()
	fe.replies["AT+CGPSINFO"] = "\r\n+CGPSINFO: ,,,,,,,,\r\nOK\r\n"
	proxy := newTestProxy(fe)

	loc, ok := proxy.Location()
	assert.Assert(t, !ok)
	assert.Assert(t, !loc.Valid)
	assert.Equal(t, loc.Accuracy, gnss.AccuracyUnknown)
}

func TestEnableDeepSleepQuiesces(t *testing.T) {
	fe := newFakeEngine()
	fe.replies["AT+CGREG?"] = "\r\n+CGREG: 0,1\r\nOK\r\n"
	proxy := newTestProxy(fe)
	assert.Assert(t, proxy.Connect())
	assert.Assert(t, proxy.InitGNSS())

	proxy.EnableDeepSleep(3600)

	assert.Assert(t, !proxy.IsConnected())
	assert.Assert(t, proxy.IsDeepSleeping())
	assert.Equal(t, fe.countCalls("AT+CGACT=0,1"), 1)
	assert.Equal(t, fe.countCalls("AT+CGPS=0"), 1)
}

func TestDirectPostJSONSuccess(t *testing.T) {
	fe := newFakeEngine()
	fe.replies["AT+SHBOD"] = "\r\nDOWNLOAD\r\n"
	fe.replies["AT+SHREQ"] = "\r\nOK\r\n\r\n+SHREQ: \"POST\",200,16\r\n"
	fe.replies["AT+SHREAD"] = "\r\n+SHREAD: 16\r\n{\"success\":true}\r\nOK\r\n"
	direct := NewDirect(fe, Config{BaseURL: "https://backend.example"}, zap.NewNop())
	direct.sleep = func(time.Duration) {}

	response := direct.PostJSON("/heartbeat", []byte(`{}`))

	assert.Equal(t, response, `{"success":true}`)
	assert.Equal(t, direct.LastStatus(), 200)
	assert.Equal(t, fe.countCalls(`AT+SHCONF="URL","https://backend.example/heartbeat"`), 1)
}

func TestDirectDeprovisionSetsReset(t *testing.T) {
	fe := newFakeEngine()
	fe.replies["AT+SHBOD"] = "\r\nDOWNLOAD\r\n"
	fe.replies["AT+SHREQ"] = "\r\n+SHREQ: \"POST\",410,0\r\n"
	direct := NewDirect(fe, Config{BaseURL: "https://backend.example"}, zap.NewNop())
	direct.sleep = func(time.Duration) {}

	response := direct.PostJSON("/heartbeat", []byte(`{}`))

	assert.Equal(t, response, "")
	assert.Assert(t, direct.ResetRequested())
}

func itoa(v int) string {
	digits := []byte{}
	for v > 0 {
		digits = append([]byte{byte('0' + v%10)}, digits...)
		v /= 10
	}
	return string(digits)
}

func assertClose(t *testing.T, got, want float64) {
	t.Helper()
	diff := got - want
	if diff < 0 {
		diff = -diff
	}
	assert.Assert(t, diff < 1e-5, "got %f want %f", got, want)
}

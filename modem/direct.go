package modem

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/openfms/pendant-core/atcmd"
)

const shreqMarker = "+SHREQ:"

// Direct drives SIM7080G-class hardware whose transport natively supports
// TLS: JSON payloads are POSTed straight to the HTTPS endpoint using the
// session-oriented SH command set. There is no transport fallback; the
// single path is already the secure one.
type Direct struct {
	base
}

var _ Driver = &Direct{}

func NewDirect(engine atcmd.CommandEngine, cfg Config, logger *zap.Logger) *Direct {
	d := &Direct{
		base: newBase(engine, cfg, caps{
			name:                 "direct",
			checkSIM:             true,
			registrationAttempts: 30,
			registrationInterval: 2 * time.Second,
			gnssEnable:           []string{"AT+CGNSPWR=1"},
			gnssQuery:            "AT+CGNSINF",
			gnssDisable:          "AT+CGNSPWR=0",
			heartbeatInterval:    15 * time.Minute,
		}, logger),
	}
	d.post = d.postJSON
	return d
}

// resolveURL prefixes endpoint paths with the configured HTTPS base; a
// fully-qualified target is used verbatim.
func (d *Direct) resolveURL(target string) string {
	if strings.HasPrefix(target, "https://") || strings.HasPrefix(target, "http://") {
		return target
	}
	return d.cfg.BaseURL + target
}

// postJSON runs the session-oriented HTTPS cycle: open, configure, connect,
// add headers, upload body, request, read, close. Empty return means
// failure; the numeric status from the asynchronous request report is
// recorded either way.
func (d *Direct) postJSON(target string, body []byte) string {
	url := d.resolveURL(target)

	// Stale sessions from aborted cycles are discarded first.
	d.eng.Execute("AT+SHDISC", time.Second)

	d.eng.Execute(fmt.Sprintf(`AT+SHCONF="URL",%q`, url), 2*time.Second)
	d.eng.Execute(`AT+SHCONF="BODYLEN",1024`, time.Second)
	d.eng.Execute(`AT+SHCONF="HEADERLEN",350`, time.Second)
	d.eng.Execute(`AT+SHSSL=1,""`, 2*time.Second)

	if !atcmd.IsOK(d.eng.Execute("AT+SHCONN", 10*time.Second)) {
		d.recordStatus(StatusTransportFailure, url)
		d.log.Error("https session connect failed")
		return ""
	}

	d.eng.Execute(`AT+SHAHEAD="Content-Type","application/json"`, time.Second)
	d.eng.Execute(fmt.Sprintf(`AT+SHAHEAD="Content-Length",%q`, fmt.Sprint(len(body))), time.Second)

	ready := d.eng.Execute(fmt.Sprintf("AT+SHBOD=%d,10000", len(body)), 2*time.Second)
	if !strings.Contains(ready, atcmd.MarkerUploadReady) && !atcmd.IsOK(ready) {
		d.recordStatus(StatusTransportFailure, url)
		d.eng.Execute("AT+SHDISC", time.Second)
		return ""
	}
	if !atcmd.IsOK(d.eng.Upload(body, uploadAckTimeout)) {
		d.recordStatus(StatusTransportFailure, url)
		d.eng.Execute("AT+SHDISC", time.Second)
		return ""
	}

	action := d.eng.ExecuteWait(`AT+SHREQ="/",3`, actionTimeout, shreqMarker)
	status := parseActionStatus(action, shreqMarker)
	d.recordStatus(status, url)

	response := d.readBody()
	d.last.Body = response
	d.eng.Execute("AT+SHDISC", time.Second)

	if status < 200 || status >= 300 {
		d.log.Warn("https request failed", zap.Int("status", status))
		return ""
	}
	return response
}

func (d *Direct) readBody() string {
	response := d.eng.Execute("AT+SHREAD=0,500", 3*time.Second)
	return extractReadPayload(response, "+SHREAD")
}

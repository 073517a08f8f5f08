package modem

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/openfms/pendant-core/atcmd"
)

const (
	httpActionMarker = "+HTTPACTION:"

	// uploadAckTimeout bounds the wait for the hardware's body-upload
	// acknowledgment; actionTimeout bounds the wait for the asynchronous
	// POST completion report.
	uploadAckTimeout = 12 * time.Second
	actionTimeout    = 20 * time.Second
)

// Proxy drives A7670SA-class hardware whose transport only reliably supports
// plain HTTP. Payloads go to a relay host that forwards them to the real
// backend over TLS; a device-side TLS fallback is attempted once when the
// plain path yields an unexpected status.
type Proxy struct {
	base
}

var _ Driver = &Proxy{}

func NewProxy(engine atcmd.CommandEngine, cfg Config, logger *zap.Logger) *Proxy {
	p := &Proxy{
		base: newBase(engine, cfg, caps{
			name:                 "proxy",
			registrationAttempts: 60,
			registrationInterval: time.Second,
			gnssEnable:           []string{"AT+CGPS=1,1", "AT+CGPS=1", "AT+CGNSSPWR=1"},
			gnssQuery:            "AT+CGPSINFO",
			gnssDisable:          "AT+CGPS=0",
			heartbeatInterval:    5 * time.Minute,
		}, logger),
	}
	p.post = p.postJSON
	return p
}

type attemptKind int

const (
	attemptPlain attemptKind = iota
	attemptTLS
)

// resolveTargets composes the plain and TLS request URLs. A fully-qualified
// target is used verbatim on both attempts.
func (p *Proxy) resolveTargets(target string) (plain, tls string) {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return target, target
	}
	return "http://" + p.cfg.RelayHost + target, "https://" + p.cfg.RelayHost + target
}

// postJSON runs the HTTP-over-AT request cycle: session setup, opportunistic
// parameters, URL announcement, body upload, asynchronous action completion,
// then status-directed branching with at most one TLS retry. Empty return
// means failure; the numeric status is recorded either way.
func (p *Proxy) postJSON(target string, body []byte) string {
	// A stale session from a previous aborted cycle would poison this one.
	p.eng.Execute("AT+HTTPTERM", time.Second)

	if !atcmd.IsOK(p.eng.Execute("AT+HTTPINIT", 2*time.Second)) {
		p.recordStatus(StatusTransportFailure, target)
		p.log.Error("http session init failed")
		return ""
	}
	p.configureSession()

	plainURL, tlsURL := p.resolveTargets(target)
	url := plainURL
	for attempt := attemptPlain; attempt <= attemptTLS; attempt++ {
		status, response := p.runAttempt(url, body)
		p.recordStatus(status, url)

		if status >= 200 && status < 300 {
			p.last.Body = response
			p.eng.Execute("AT+HTTPTERM", time.Second)
			return response
		}

		p.last.Body = response
		p.eng.Execute("AT+HTTPTERM", time.Second)

		if IsDeprovisionStatus(status) {
			// Authoritative: the record is gone or re-owned. Another
			// transport cannot change that.
			return ""
		}
		if attempt == attemptTLS {
			return ""
		}
		if !atcmd.IsOK(p.eng.Execute("AT+HTTPSSL=1", 2*time.Second)) {
			p.log.Warn("tls mode unavailable, no fallback")
			return ""
		}
		if !atcmd.IsOK(p.eng.Execute("AT+HTTPINIT", 2*time.Second)) {
			p.recordStatus(StatusTransportFailure, tlsURL)
			return ""
		}
		url = tlsURL
		p.log.Info("retrying over tls", zap.String("url", url))
	}
	return ""
}

// configureSession applies optional parameters opportunistically. Firmware
// revisions reject different subsets; only a content-type rejection matters
// because it can affect server-side parsing.
func (p *Proxy) configureSession() {
	if !atcmd.IsOK(p.eng.Execute(`AT+HTTPPARA="CID",1`, time.Second)) {
		p.eng.Execute(`AT+HTTPPARA="CID",0`, time.Second)
	}
	p.eng.Execute(`AT+HTTPPARA="REDIR",1`, time.Second)
	p.eng.Execute(fmt.Sprintf(`AT+HTTPPARA="UA",%q`, p.cfg.UserAgent), time.Second)
	if !atcmd.IsOK(p.eng.Execute(`AT+HTTPPARA="CONTENT","application/json"`, time.Second)) {
		p.log.Error("content-type rejected by firmware")
	}
}

// runAttempt performs one announce/upload/action pass and returns the
// resulting status plus any readable body.
func (p *Proxy) runAttempt(url string, body []byte) (int, string) {
	p.eng.Execute(fmt.Sprintf(`AT+HTTPPARA="URL",%q`, url), 2*time.Second)

	ready := p.eng.Execute(fmt.Sprintf("AT+HTTPDATA=%d,10000", len(body)), 2*time.Second)
	if !strings.Contains(ready, atcmd.MarkerUploadReady) {
		p.log.Error("upload-ready marker not observed")
		return StatusTransportFailure, ""
	}
	if !atcmd.IsOK(p.eng.Upload(body, uploadAckTimeout)) {
		p.log.Error("body upload not acknowledged")
		return StatusTransportFailure, ""
	}

	action := p.eng.ExecuteWait("AT+HTTPACTION=1", actionTimeout, httpActionMarker)
	status := parseActionStatus(action, httpActionMarker)
	return status, p.readBody()
}

// readBody fetches whatever response body is available; empty on failure is
// acceptable since it is also used for diagnostics of non-2xx replies.
func (p *Proxy) readBody() string {
	response := p.eng.ExecuteWait("AT+HTTPREAD=0,500", 3*time.Second, "+HTTPREAD: 0")
	return extractReadPayload(response, "+HTTPREAD")
}

// extractReadPayload strips result codes and read-marker framing, leaving
// only the transferred body text.
func extractReadPayload(response, marker string) string {
	var kept []string
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line == atcmd.MarkerOK || line == atcmd.MarkerError {
			continue
		}
		if strings.HasPrefix(line, marker) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

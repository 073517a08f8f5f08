package atcmd

import (
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// pollStep is the sleep between reads while waiting for response bytes.
	pollStep = 10 * time.Millisecond
	// settleWindow captures trailing bytes that arrive in the same burst as
	// the terminal marker.
	settleWindow = 40 * time.Millisecond
	// drainLimit bounds the pre-command flush of stale bytes.
	drainLimit = 64 * 1024
)

// Engine owns the serial channel to the modem. All modem interaction funnels
// through it: one command out, accumulated text back, no retries. The port is
// expected to return promptly from Read when no bytes are pending (serial
// read timeout or an equivalent deadline on the wrapper).
type Engine struct {
	port   io.ReadWriter
	log    *zap.Logger
	tracer Tracer
}

type CommandEngine interface {
	Execute(command string, timeout time.Duration) string
	ExecuteWait(command string, timeout time.Duration, markers ...string) string
	Upload(body []byte, timeout time.Duration) string
}

var _ CommandEngine = &Engine{}

func NewEngine(port io.ReadWriter, logger *zap.Logger) *Engine {
	return &Engine{
		port:   port,
		log:    logger,
		tracer: NewZapTracer(logger),
	}
}

// SetTracer replaces the default zap tracer, e.g. with a MultiTracer that
// also publishes to NATS.
func (e *Engine) SetTracer(tracer Tracer) {
	if tracer != nil {
		e.tracer = tracer
	}
}

// Execute sends one command line and accumulates response bytes until a
// default terminal marker appears or the timeout elapses. The accumulated
// text is returned as-is in both cases; callers decide what a failure is.
func (e *Engine) Execute(command string, timeout time.Duration) string {
	return e.ExecuteWait(command, timeout)
}

// ExecuteWait behaves like Execute but additionally stops on any of the
// given command-specific markers, e.g. the asynchronous "+HTTPACTION:"
// completion report which arrives well after the synchronous OK.
func (e *Engine) ExecuteWait(command string, timeout time.Duration, markers ...string) string {
	e.drain()
	if _, err := e.port.Write([]byte(command + CRLF)); err != nil {
		e.log.Error("write command failed", zap.String("command", command), zap.Error(err))
		return ""
	}
	response := e.collect(timeout, markers)
	e.tracer.Exchange(command, response)
	return response
}

// Upload streams raw bytes (no line framing) and waits for the modem's
// acknowledgment, used for HTTP body transfer after an upload-ready marker.
func (e *Engine) Upload(body []byte, timeout time.Duration) string {
	if _, err := e.port.Write(body); err != nil {
		e.log.Error("write body failed", zap.Int("size", len(body)), zap.Error(err))
		return ""
	}
	response := e.collect(timeout, nil)
	e.tracer.Exchange("<body upload>", response)
	return response
}

// collect accumulates inbound bytes until a terminal marker or the deadline.
// On marker detection it performs one short settle drain and returns early;
// the hardware's response latency spans tens of milliseconds to tens of
// seconds, so waiting out the full timeout on every exchange is not viable.
func (e *Engine) collect(timeout time.Duration, markers []string) string {
	var response strings.Builder
	buf := make([]byte, 256)
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		n, err := e.port.Read(buf)
		if n > 0 {
			response.Write(buf[:n])
			if HasTerminal(response.String(), markers...) {
				e.settle(&response)
				return response.String()
			}
			continue
		}
		if err != nil && err != io.EOF {
			e.log.Error("read response failed", zap.Error(err))
			return response.String()
		}
		time.Sleep(pollStep)
	}
	return response.String()
}

// settle picks up trailing bytes arriving in the same burst as the marker.
func (e *Engine) settle(response *strings.Builder) {
	buf := make([]byte, 256)
	deadline := time.Now().Add(settleWindow)
	for time.Now().Before(deadline) {
		n, err := e.port.Read(buf)
		if n > 0 {
			response.Write(buf[:n])
			continue
		}
		if err != nil && err != io.EOF {
			return
		}
		time.Sleep(pollStep)
	}
}

// drain discards stale unread bytes left over from a previous unterminated
// exchange so they cannot be mistaken for the next response.
func (e *Engine) drain() {
	buf := make([]byte, 256)
	discarded := 0
	for discarded < drainLimit {
		n, err := e.port.Read(buf)
		if n == 0 || (err != nil && err != io.EOF) {
			return
		}
		discarded += n
	}
}

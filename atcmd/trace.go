package atcmd

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Tracer receives a copy of every command/response exchange for field
// diagnostics. The response may be partial when the exchange timed out.
type Tracer interface {
	Exchange(command, response string)
}

type zapTracer struct {
	log *zap.Logger
}

// NewZapTracer emits exchanges on the debug level of the given logger.
func NewZapTracer(logger *zap.Logger) Tracer {
	return &zapTracer{log: logger}
}

func (zt *zapTracer) Exchange(command, response string) {
	zt.log.Debug("at exchange",
		zap.String("command", command),
		zap.String("response", response),
	)
}

type natsTracer struct {
	conn    *nats.Conn
	subject string
	log     *zap.Logger
}

type exchangeRecord struct {
	Command  string `json:"command"`
	Response string `json:"response"`
	At       int64  `json:"at"`
}

// NewNatsTracer publishes exchanges to a NATS subject so field units can be
// inspected without serial access. Publish failures are logged and dropped.
func NewNatsTracer(conn *nats.Conn, subject string, logger *zap.Logger) Tracer {
	return &natsTracer{conn: conn, subject: subject, log: logger}
}

func (nt *natsTracer) Exchange(command, response string) {
	record, err := json.Marshal(&exchangeRecord{
		Command:  command,
		Response: response,
		At:       time.Now().UnixMilli(),
	})
	if err != nil {
		return
	}
	if e := nt.conn.Publish(nt.subject, record); e != nil {
		nt.log.Warn("publish at exchange failed", zap.Error(e))
	}
}

// MultiTracer fans an exchange out to several tracers.
type MultiTracer []Tracer

func (mt MultiTracer) Exchange(command, response string) {
	for _, tracer := range mt {
		tracer.Exchange(command, response)
	}
}

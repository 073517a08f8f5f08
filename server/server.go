package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/nats-io/nats.go"
	"github.com/openfms/pendant-core/db/clickhouse"
	"go.uber.org/zap"
)

type RelayServer struct {
	listenAddr string
	backendURL string
	ln         net.Listener
	httpServer *http.Server
	client     *http.Client
	natsConn   *nats.Conn
	eventDB    clickhouse.EventDBConn
	log        *zap.Logger
}

const upstreamTimeout = 30 * time.Second

type RelayServerInterface interface {
	Start() error
	Stop()
}

var (
	_ RelayServerInterface = &RelayServer{}
)

func NewServer(listenAddr, backendURL string, logger *zap.Logger, natsConn *nats.Conn, eventDB clickhouse.EventDBConn) *RelayServer {
	rs := &RelayServer{
		listenAddr: listenAddr,
		backendURL: backendURL,
		client:     &http.Client{Timeout: upstreamTimeout},
		natsConn:   natsConn,
		eventDB:    eventDB,
		log:        logger,
	}
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Post("/send", rs.HandleEvent)
	router.Post("/heartbeat", rs.HandleEvent)
	rs.httpServer = &http.Server{Handler: router}
	return rs
}

func (rs *RelayServer) Start() error {
	ln, err := net.Listen("tcp", rs.listenAddr)
	if err != nil {
		rs.log.Error("failed to listen", zap.Error(err))
		return err
	}
	rs.ln = ln
	rs.log.Info("relay started",
		zap.String("ListenAddress", ln.Addr().String()),
		zap.String("BackendURL", rs.backendURL),
	)
	return rs.httpServer.Serve(ln)
}

// Addr reports the bound address once Start has listened.
func (rs *RelayServer) Addr() string {
	if rs.ln == nil {
		return rs.listenAddr
	}
	return rs.ln.Addr().String()
}

func (rs *RelayServer) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rs.httpServer.Shutdown(ctx); err != nil {
		rs.log.Error("shutdown failed", zap.Error(err))
	}
	rs.log.Info("stop relay")
}

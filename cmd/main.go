package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/tarm/serial"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/openfms/pendant-core/atcmd"
	eventdb "github.com/openfms/pendant-core/db/clickhouse"
	"github.com/openfms/pendant-core/device"
	"github.com/openfms/pendant-core/envconfig"
	"github.com/openfms/pendant-core/modem"
	"github.com/openfms/pendant-core/server"
	"github.com/openfms/pendant-core/simulator"
)

var (
	SimulatorListenAddr string
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("create new logger failed:%v\n", err)
	}
	app := &cli.App{
		Name:  "pendantcore",
		Usage: "personal safety pendant control core",
		Commands: []*cli.Command{
			{
				Name:  "agent",
				Usage: "starts the on-device agent",
				Action: func(ctx *cli.Context) error {
					return runAgent(logger)
				},
			},
			{
				Name:  "relay",
				Usage: "starts the HTTP relay",
				Action: func(ctx *cli.Context) error {
					return runRelay(logger)
				},
			},
			{
				Name:  "simulator",
				Usage: "starts a scripted modem simulator",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "listen",
						Usage:       "simulator listen address",
						Value:       "127.0.0.1:7600",
						DefaultText: "127.0.0.1:7600",
						Destination: &SimulatorListenAddr,
					},
				},
				Action: func(ctx *cli.Context) error {
					sim := simulator.NewModemSim(SimulatorListenAddr, log.Default())
					if e := sim.Start(); e != nil {
						return e
					}
					sigs := make(chan os.Signal, 1)
					signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
					<-sigs
					sim.Stop()
					return nil
				},
			},
		},
	}

	if e := app.Run(os.Args); e != nil {
		logger.Error("failed to run app", zap.Error(e))
	}
}

func runRelay(logger *zap.Logger) error {
	env, err := envconfig.ReadRelayEnv()
	if err != nil {
		return err
	}
	var natsConn *nats.Conn
	if env.NatsConn != "" {
		if natsConn, err = nats.Connect(env.NatsConn); err != nil {
			return err
		}
	}
	var eventDBConn eventdb.EventDBConn
	if env.ClickHouseDB != "" {
		if eventDBConn, err = eventdb.ConnectEventDB(env.ClickHouseDB); err != nil {
			return err
		}
	}

	s := server.NewServer(net.JoinHostPort(env.Host, env.Port), env.BackendURL, logger, natsConn, eventDBConn)
	go s.Start()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	s.Stop()
	return nil
}

func runAgent(logger *zap.Logger) error {
	env, err := envconfig.ReadAgentEnv()
	if err != nil {
		return err
	}
	deviceID := device.DeviceIDFromMAC(env.DeviceMAC)
	store, err := device.OpenFileStore(env.StorePath)
	if err != nil {
		return err
	}

	var natsConn *nats.Conn
	if env.NatsConn != "" {
		if natsConn, err = nats.Connect(env.NatsConn); err != nil {
			logger.Warn("nats unreachable, traces stay local", zap.Error(err))
		}
	}

	driver, err := openDriver(env, store, natsConn, deviceID, logger)
	if err != nil {
		return err
	}
	if !driver.Connect() {
		logger.Warn("network registration failed, continuing unregistered")
	}

	buttons := make(chan device.ButtonEvent, 4)
	credentials := make(chan string, 1)
	go readConsoleEvents(buttons, credentials, logger)

	machine := device.NewMachine(driver, store, &consoleProvisioner{log: logger}, deviceID, logger)
	machine.AutoRecover()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if err := machine.Run(ctx, buttons, credentials); err != nil {
		if errors.Is(err, device.ErrRestartRequired) {
			logger.Warn("restart required, exiting for supervisor respawn")
			return err
		}
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	return nil
}

// openDriver builds the profile driver over either a TCP transport, used
// against the simulator, or a serial port cycled through the candidate baud
// rates until the modem answers the liveness probe.
func openDriver(env *envconfig.AgentEnvConfig, store device.Store, natsConn *nats.Conn, deviceID string, logger *zap.Logger) (modem.Driver, error) {
	cfg := modem.Config{
		APN:       env.APN,
		RelayHost: env.RelayHost,
		BaseURL:   env.BaseURL,
	}
	if strings.HasPrefix(env.SerialPort, "tcp://") {
		conn, err := net.Dial("tcp", strings.TrimPrefix(env.SerialPort, "tcp://"))
		if err != nil {
			return nil, err
		}
		driver := buildDriver(env.ModemProfile, atcmd.NewConnPort(conn), cfg, store, natsConn, deviceID, logger)
		if !driver.Init() {
			return nil, fmt.Errorf("modem at %s not responding", env.SerialPort)
		}
		return driver, nil
	}

	for _, baud := range env.BaudRates {
		port, err := serial.OpenPort(&serial.Config{
			Name:        env.SerialPort,
			Baud:        baud,
			ReadTimeout: time.Millisecond * 100,
		})
		if err != nil {
			return nil, err
		}
		driver := buildDriver(env.ModemProfile, port, cfg, store, natsConn, deviceID, logger)
		if driver.Init() {
			logger.Info("modem initialized", zap.Int("baud", baud))
			return driver, nil
		}
		port.Close()
	}
	return nil, fmt.Errorf("modem on %s not responding at any baud rate", env.SerialPort)
}

func buildDriver(profile string, port io.ReadWriter, cfg modem.Config, store device.Store, natsConn *nats.Conn, deviceID string, logger *zap.Logger) modem.Driver {
	engine := atcmd.NewEngine(port, logger)
	if natsConn != nil {
		engine.SetTracer(atcmd.MultiTracer{
			atcmd.NewZapTracer(logger),
			atcmd.NewNatsTracer(natsConn, "pendant.trace."+deviceID, logger),
		})
	}
	recorder := device.NewStatusRecorder(store)
	if profile == "direct" {
		d := modem.NewDirect(engine, cfg, logger)
		d.SetStatusRecorder(recorder)
		return d
	}
	d := modem.NewProxy(engine, cfg, logger)
	d.SetStatusRecorder(recorder)
	return d
}

// consoleProvisioner stands in for the short-range credential transport;
// credentials are typed on the agent console during pairing.
type consoleProvisioner struct {
	log *zap.Logger
}

var _ device.Provisioner = &consoleProvisioner{}

func (cp *consoleProvisioner) StartAdvertising(deviceID string) error {
	cp.log.Info("pairing window open, enter `cred <ownerUid>`",
		zap.String("deviceID", deviceID),
	)
	return nil
}

func (cp *consoleProvisioner) StopAdvertising() error {
	cp.log.Info("pairing window closed")
	return nil
}

// readConsoleEvents turns console lines into control-loop events, standing
// in for the button GPIO and the pairing transport:
//
//	hold 6        general button held 6 seconds
//	medical 3     medical button held 3 seconds
//	security 4    security button held 4 seconds
//	cred <uid>    deliver the pairing credential
func readConsoleEvents(buttons chan<- device.ButtonEvent, credentials chan<- string, logger *zap.Logger) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) != 2 {
			continue
		}
		if fields[0] == "cred" {
			credentials <- fields[1]
			continue
		}
		seconds, err := strconv.Atoi(fields[1])
		if err != nil {
			logger.Warn("bad hold duration", zap.String("input", fields[1]))
			continue
		}
		kind := device.ButtonGeneral
		switch fields[0] {
		case "medical":
			kind = device.ButtonMedical
		case "security":
			kind = device.ButtonSecurity
		case "hold":
		default:
			continue
		}
		buttons <- device.ButtonEvent{Kind: kind, Hold: time.Duration(seconds) * time.Second}
	}
}

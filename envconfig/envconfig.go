package envconfig

import (
	"github.com/caarlos0/env/v6"
)

type AgentEnvConfig struct {
	SerialPort   string `env:"SERIAL_PORT" envDefault:"/dev/ttyUSB0"`
	BaudRates    []int  `env:"BAUD_RATES" envSeparator:"," envDefault:"115200,9600,57600"`
	ModemProfile string `env:"MODEM_PROFILE" envDefault:"proxy"`
	APN          string `env:"APN"`
	RelayHost    string `env:"RELAY_HOST,notEmpty"`
	BaseURL      string `env:"BASE_URL"`
	StorePath    string `env:"STORE_PATH" envDefault:"pendant-state.json"`
	NatsConn     string `env:"NATS"`
	DeviceMAC    string `env:"DEVICE_MAC,notEmpty"`
}

func ReadAgentEnv() (*AgentEnvConfig, error) {
	cfg := &AgentEnvConfig{}
	err := env.Parse(cfg)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

type RelayEnvConfig struct {
	Host         string `env:"HOST" envDefault:"0.0.0.0"`
	Port         string `env:"PORT" envDefault:"8787"`
	BackendURL   string `env:"BACKEND_URL,notEmpty"`
	ClickHouseDB string `env:"EVENTDB_CLICKHOUSE"`
	NatsConn     string `env:"NATS"`
}

func ReadRelayEnv() (*RelayEnvConfig, error) {
	cfg := &RelayEnvConfig{}
	err := env.Parse(cfg)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

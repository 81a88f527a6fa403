package main

import (
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	wsocket "github.com/yukibtc/async-wsocket"
	"github.com/yukibtc/async-wsocket/wserr"
)

// Config is the wscat configuration file schema. Every field has a flag
// counterpart; flags win over the file.
type Config struct {
	Proxy struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"proxy"`

	TLS struct {
		Trust string `yaml:"trust"` // platform (default) or bundled
	} `yaml:"tls"`

	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	Subprotocols   []string      `yaml:"subprotocols"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// loadConfig reads the YAML config file. A missing file is not an
// error; wscat works fully from flags.
func loadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, wserr.Wrapf(err, wserr.CodeInternal, "read config file %q", path)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, wserr.Wrapf(err, wserr.CodeInternal, "parse config file %q", path)
	}
	return cfg, nil
}

// parseProxy converts a host:port string into a proxy config.
func parseProxy(addr string) (*wsocket.ProxyConfig, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, wserr.Wrapf(err, wserr.CodeInvalidURL, "invalid proxy address %q", addr)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, wserr.Wrapf(err, wserr.CodeInvalidURL, "invalid proxy port %q", portStr)
	}
	return &wsocket.ProxyConfig{Host: host, Port: port}, nil
}

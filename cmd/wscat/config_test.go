package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wscat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
proxy:
  host: 127.0.0.1
  port: 9050
tls:
  trust: bundled
connect_timeout: 5s
subprotocols:
  - chat
log:
  level: debug
`), 0o644))

	cfg, err := loadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Proxy.Host)
	assert.Equal(t, 9050, cfg.Proxy.Port)
	assert.Equal(t, "bundled", cfg.TLS.Trust)
	assert.Equal(t, 5*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, []string{"chat"}, cfg.Subprotocols)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfigMissingFileIsNotAnError(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, &Config{}, cfg)
}

func TestLoadConfigEmptyPath(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.NotNil(t, cfg)
}

func TestParseProxy(t *testing.T) {
	p, err := parseProxy("10.0.0.1:1080")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", p.Host)
	assert.Equal(t, 1080, p.Port)

	_, err = parseProxy("no-port")
	assert.Error(t, err)

	_, err = parseProxy("host:abc")
	assert.Error(t, err)
}

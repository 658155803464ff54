package common

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv - Unset variables for the test, restoring them afterwards.
func clearEnv(t *testing.T, names ...string) {
	for _, name := range names {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func useGlobalConfig(t *testing.T, config Config) {
	previous := GlobalConfig
	GlobalConfig = config
	t.Cleanup(func() {
		GlobalConfig = previous
	})
}

func TestDefaultConfigIsValid(t *testing.T) {
	config := DefaultConfig()
	assert.True(t, validateConfig(config))
	assert.Equal(t, 20*time.Second, config.CheckInterval())
	assert.Equal(t, 2*time.Minute, config.CycleTimeout())
	assert.Equal(t, 5*time.Second, config.ProbeTimeout())
	assert.Equal(t, 30*time.Second, config.ConsoleTimeout())
}

func TestValidateConfig(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(config *Config)
	}{
		{"zero interval", func(config *Config) { config.CheckIntervalSeconds = 0 }},
		{"negative timeout", func(config *Config) { config.CycleTimeoutSeconds = -1 }},
		{"zero console timeout", func(config *Config) { config.ConsoleTimeoutSeconds = 0 }},
		{"missing address", func(config *Config) { config.Device.Address = "" }},
		{"missing label", func(config *Config) { config.Device.WANLabel = "" }},
		{"missing username", func(config *Config) { config.Device.Credential.Username = "" }},
		{"unknown connection type", func(config *Config) { config.Device.ConnectionType = "telnet" }},
		{"negative tab", func(config *Config) { config.Device.RebootTabIndex = -1 }},
		{"ssh without command", func(config *Config) {
			config.Device.ConnectionType = ConnectionTypeSSH
			config.Device.RebootCommand = ""
		}},
		{"unknown log format", func(config *Config) { config.LogFormat = "xml" }},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			config := DefaultConfig()
			testCase.mutate(&config)
			assert.False(t, validateConfig(config))
		})
	}
}

func TestApplyEnvironment(t *testing.T) {
	clearEnv(t, "ROUTER_IP", "ADMIN_USERNAME", "ADMIN_PASSWORD", "WAN_NAME", "CHECK_INTERVAL")
	t.Setenv("ROUTER_IP", "http://192.168.1.1")
	t.Setenv("ADMIN_PASSWORD", "hunter2")
	t.Setenv("CHECK_INTERVAL", "2.5")

	config := DefaultConfig()
	require.True(t, applyEnvironment(&config))
	assert.Equal(t, "http://192.168.1.1", config.Device.Address)
	assert.Equal(t, "hunter2", config.Device.Credential.Password)
	assert.Equal(t, "telecomadmin", config.Device.Credential.Username)
	assert.Equal(t, "2_INTERNET_R_VID_200", config.Device.WANLabel)
	assert.Equal(t, 2500*time.Millisecond, config.CheckInterval())
}

func TestApplyEnvironmentMalformedInterval(t *testing.T) {
	t.Setenv("CHECK_INTERVAL", "soon")
	config := DefaultConfig()
	assert.False(t, applyEnvironment(&config))
}

func TestLoadEnvironmentFromFile(t *testing.T) {
	clearEnv(t, "ROUTER_IP", "WAN_NAME", "CHECK_INTERVAL")
	useGlobalConfig(t, DefaultConfig())

	envPath := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, ioutil.WriteFile(envPath, []byte("ROUTER_IP=http://10.10.10.1\nWAN_NAME=1_TR069_VID_46\n"), 0600))
	require.True(t, LoadEnvironment(envPath))
	assert.Equal(t, "http://10.10.10.1", GlobalConfig.Device.Address)
	assert.Equal(t, "1_TR069_VID_46", GlobalConfig.Device.WANLabel)
}

func TestLoadEnvironmentMissingFile(t *testing.T) {
	clearEnv(t, "ROUTER_IP", "CHECK_INTERVAL")
	useGlobalConfig(t, DefaultConfig())

	assert.True(t, LoadEnvironment(filepath.Join(t.TempDir(), "missing.env")))
	assert.Equal(t, "http://192.168.100.1", GlobalConfig.Device.Address)
}

func TestLoadConfig(t *testing.T) {
	useGlobalConfig(t, DefaultConfig())

	configPath := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, ioutil.WriteFile(configPath, []byte(`{"check_interval": 60, "console_timeout": 45, "device": {"wan_label": "WAN1"}}`), 0600))
	require.True(t, LoadConfig(configPath))
	assert.Equal(t, time.Minute, GlobalConfig.CheckInterval())
	assert.Equal(t, "WAN1", GlobalConfig.Device.WANLabel)
	assert.Equal(t, 45*time.Second, GlobalConfig.ConsoleTimeout())
	// Untouched fields keep their defaults
	assert.Equal(t, "http://192.168.100.1", GlobalConfig.Device.Address)

	assert.False(t, LoadConfig(filepath.Join(t.TempDir(), "missing.json")))
	assert.True(t, LoadConfig(""))
}

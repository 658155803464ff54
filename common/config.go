package common

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"dev.hon.one/argon/util"
)

// PrometheusNamespace - Prometheus metrics namespace.
const PrometheusNamespace = "argon"

// Connection types (how the device console is reached).
const (
	ConnectionTypeWeb = "web"
	ConnectionTypeSSH = "ssh"
)

// Log formats.
const (
	LogFormatTag  = "tag"
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Credential - Credential for a device.
type Credential struct {
	Username       string `json:"username"`
	Password       string `json:"password"`
	PrivateKeyPath string `json:"private_key_path"` // SSH only
}

// Device - The device to watch.
type Device struct {
	Address        string     `json:"address"` // Base URL, e.g. "http://192.168.100.1" or "ssh://10.0.0.1:22"
	ConnectionType string     `json:"connection_type"`
	WANLabel       string     `json:"wan_label"`
	LandingPath    string     `json:"landing_path"`     // Web only
	RebootTabIndex int        `json:"reboot_tab_index"` // Web only, position in the header tab list
	RebootCommand  string     `json:"reboot_command"`   // SSH only
	Credential     Credential `json:"credential"`
}

// Config - The config.
type Config struct {
	HTTPEndpoint          string  `json:"http_endpoint"`
	InfluxDBURL           string  `json:"influxdb_url"` // Empty disables storage
	InfluxDBToken         string  `json:"influxdb_token"`
	InfluxDBOrg           string  `json:"influxdb_org"`
	CheckIntervalSeconds  float64 `json:"check_interval"`
	CycleTimeoutSeconds   float64 `json:"cycle_timeout"`
	ProbeTimeoutSeconds   float64 `json:"probe_timeout"`
	ConsoleTimeoutSeconds float64 `json:"console_timeout"` // Per console request, e.g. a page load or the reboot submit
	LogFormat             string  `json:"log_format"`
	ScreenshotDir         string  `json:"screenshot_dir"` // Empty disables screenshots
	Device                Device  `json:"device"`
}

// DefaultConfig - Config used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		HTTPEndpoint:          ":8080",
		InfluxDBOrg:           "argon",
		CheckIntervalSeconds:  20,
		CycleTimeoutSeconds:   120,
		ProbeTimeoutSeconds:   5,
		ConsoleTimeoutSeconds: 30,
		LogFormat:             LogFormatTag,
		Device: Device{
			Address:        "http://192.168.100.1",
			ConnectionType: ConnectionTypeWeb,
			WANLabel:       "2_INTERNET_R_VID_200",
			LandingPath:    "/index.asp",
			RebootTabIndex: 10,
			RebootCommand:  "reboot",
			Credential: Credential{
				Username: "telecomadmin",
				Password: "admintelecom",
			},
		},
	}
}

// CheckInterval - Wait between the end of a cycle and the start of the next.
func (config Config) CheckInterval() time.Duration {
	return secondsToDuration(config.CheckIntervalSeconds)
}

// CycleTimeout - Upper bound for a single cycle.
func (config Config) CycleTimeout() time.Duration {
	return secondsToDuration(config.CycleTimeoutSeconds)
}

// ProbeTimeout - Upper bound for the reachability probe.
func (config Config) ProbeTimeout() time.Duration {
	return secondsToDuration(config.ProbeTimeoutSeconds)
}

// ConsoleTimeout - Upper bound for a single request to the device console.
func (config Config) ConsoleTimeout() time.Duration {
	return secondsToDuration(config.ConsoleTimeoutSeconds)
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

// LoadConfig - Load configuration file on top of the defaults. An empty path keeps the defaults.
func LoadConfig(path string) bool {
	if path == "" {
		return true
	}

	log.WithFields(log.Fields{
		"config_path": path,
	}).Info("Loading config")

	return util.ParseJSONFile(&GlobalConfig, path)
}

// LoadEnvironment - Load the dotenv file (if present) and apply environment overrides.
func LoadEnvironment(dotenvPath string) bool {
	if dotenvPath != "" {
		if err := godotenv.Load(dotenvPath); err != nil {
			if !os.IsNotExist(err) {
				log.WithError(err).WithFields(log.Fields{
					"env_path": dotenvPath,
				}).Error("Failed to load environment file")
				return false
			}
			log.WithFields(log.Fields{
				"env_path": dotenvPath,
			}).Trace("No environment file")
		}
	}

	return applyEnvironment(&GlobalConfig)
}

func applyEnvironment(config *Config) bool {
	stringOverrides := map[string]*string{
		"ROUTER_IP":       &config.Device.Address,
		"ADMIN_USERNAME":  &config.Device.Credential.Username,
		"ADMIN_PASSWORD":  &config.Device.Credential.Password,
		"WAN_NAME":        &config.Device.WANLabel,
		"CONNECTION_TYPE": &config.Device.ConnectionType,
		"HTTP_ENDPOINT":   &config.HTTPEndpoint,
		"INFLUXDB_URL":    &config.InfluxDBURL,
		"INFLUXDB_TOKEN":  &config.InfluxDBToken,
		"INFLUXDB_ORG":    &config.InfluxDBOrg,
		"SCREENSHOT_DIR":  &config.ScreenshotDir,
	}
	for name, destination := range stringOverrides {
		if value := os.Getenv(name); value != "" {
			*destination = value
		}
	}

	if rawInterval := os.Getenv("CHECK_INTERVAL"); rawInterval != "" {
		interval, err := strconv.ParseFloat(rawInterval, 64)
		if err != nil {
			log.WithError(err).WithFields(log.Fields{
				"check_interval": rawInterval,
			}).Error("Malformed check interval")
			return false
		}
		config.CheckIntervalSeconds = interval
	}

	return true
}

// ValidateConfig - Check the loaded config, logging the first problem found.
func ValidateConfig() bool {
	return validateConfig(GlobalConfig)
}

func validateConfig(config Config) bool {
	if config.CheckIntervalSeconds <= 0 {
		log.Error("Non-positive check interval not allowed")
		return false
	}
	if config.CycleTimeoutSeconds <= 0 || config.ProbeTimeoutSeconds <= 0 || config.ConsoleTimeoutSeconds <= 0 {
		log.Error("Non-positive timeouts not allowed")
		return false
	}

	device := config.Device
	if device.Address == "" || device.WANLabel == "" || device.Credential.Username == "" {
		log.WithFields(log.Fields{
			"device_address": device.Address,
			"wan_label":      device.WANLabel,
		}).Error("Invalid device, missing fields")
		return false
	}
	switch device.ConnectionType {
	case ConnectionTypeWeb:
		if device.RebootTabIndex < 0 {
			log.Error("Negative reboot tab index not allowed")
			return false
		}
	case ConnectionTypeSSH:
		if device.RebootCommand == "" {
			log.Error("Reboot command missing")
			return false
		}
	default:
		log.WithFields(log.Fields{
			"device_address":  device.Address,
			"connection_type": device.ConnectionType,
		}).Error("Invalid device, connection type not found")
		return false
	}

	switch config.LogFormat {
	case LogFormatTag, LogFormatText, LogFormatJSON:
	default:
		log.WithFields(log.Fields{
			"log_format": config.LogFormat,
		}).Error("Unknown log format")
		return false
	}

	return true
}

package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Addr     string `env:"HTTP_ADDR, default=:8000"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	Security SecurityConfig
	Verifier VerifierConfig
	Door     DoorConfig
	Hardware HardwareConfig
	Scanner  ScannerConfig
	DB       DBConfig
}

type SecurityConfig struct {
	JWTSecret     string        `env:"JWT_SECRET"`
	TokenTTL      time.Duration `env:"TOKEN_TTL,      default=30m"`
	AdminUsername string        `env:"ADMIN_USERNAME, default=admin"`
	// AdminPassword seeds the first operator when the operator table is
	// empty. Change it before exposing the API.
	AdminPassword string `env:"ADMIN_PASSWORD, default=admin123"`
}

type VerifierConfig struct {
	BaseURL   string        `env:"VERIFY_BASE_URL"`
	Endpoint  string        `env:"VERIFY_ENDPOINT,  default=/api/access/verify"`
	AuthToken string        `env:"VERIFY_AUTH_TOKEN"`
	Timeout   time.Duration `env:"VERIFY_TIMEOUT,   default=5s"`
	DeviceID  string        `env:"DEVICE_ID,        default=iono-pi-access-control"`
}

type DoorConfig struct {
	UnlockDuration   time.Duration `env:"DOOR_UNLOCK_DURATION,   default=5s"`
	MaxDuration      time.Duration `env:"DOOR_MAX_DURATION,      default=60s"`
	OverrideDuration time.Duration `env:"DOOR_OVERRIDE_DURATION, default=30s"`
	HeldOpenGrace    time.Duration `env:"DOOR_HELD_OPEN_GRACE,   default=30s"`
	SensorPoll       time.Duration `env:"DOOR_SENSOR_POLL,       default=250ms"`
	// SensorNormallyClosed selects the door-sensor wiring: with a normally
	// closed contact the circuit breaks when the door opens.
	SensorNormallyClosed bool `env:"DOOR_SENSOR_NC, default=true"`
}

type HardwareConfig struct {
	// Driver selects the HAL implementation: "gpio" on the device,
	// "sim" on development hosts.
	Driver string `env:"HARDWARE_DRIVER, default=sim"`
	Chip   string `env:"GPIO_CHIP,       default=gpiochip0"`

	RelayDoorPin      int `env:"RELAY_DOOR_PIN,       default=4"`
	RelayAuxiliaryPin int `env:"RELAY_AUX_PIN,        default=17"`
	DoorSensorPin     int `env:"DOOR_SENSOR_PIN,      default=18"`
	OverridePin       int `env:"EMERGENCY_BUTTON_PIN, default=23"`
}

type ScannerConfig struct {
	Enabled  bool          `env:"SCANNER_ENABLED,  default=true"`
	Device   string        `env:"SCANNER_DEVICE,   default=/dev/ttyUSB0"`
	BaudRate int           `env:"SCANNER_BAUDRATE, default=9600"`
	Prefix   string        `env:"SCANNER_PREFIX"`
	Suffix   string        `env:"SCANNER_SUFFIX,   default=\r\n"`
	Backoff  time.Duration `env:"SCANNER_RECONNECT_BACKOFF, default=2s"`
}

type DBConfig struct {
	Path string `env:"DB_PATH, default=./data/access_control.db"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

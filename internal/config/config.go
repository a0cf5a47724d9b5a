package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type RoomsConfig struct {
	DefaultMaxUsers int     `mapstructure:"default_max_users"`
	MaxUsersCap     int     `mapstructure:"max_users_cap"`
	DefaultTempo    float64 `mapstructure:"default_tempo"`
}

type RateConfig struct {
	PerSecond float64 `mapstructure:"per_second"`
	Burst     int     `mapstructure:"burst"`
}

type Config struct {
	Mode          string        `mapstructure:"mode"`
	Port          int           `mapstructure:"port"`
	LogLevel      string        `mapstructure:"log_level"`
	ReadLimit     int64         `mapstructure:"read_limit"`
	PingPeriod    time.Duration `mapstructure:"ping_period"`
	SendBuffer    int           `mapstructure:"send_buffer"`
	ServerVersion string        `mapstructure:"server_version"`
	Features      []string      `mapstructure:"features"`
	Rooms         RoomsConfig   `mapstructure:"rooms"`
	Rate          RateConfig    `mapstructure:"rate"`
	// Backpressure is "drop" or "kick".
	Backpressure string `mapstructure:"backpressure"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("JAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func Load() (*Config, error) {
	v := newViper()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	setServerDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Str("backpressure", cfg.Backpressure).Msg("config ready")
	return &cfg, nil
}

func setServerDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("send_buffer", 64)
	v.SetDefault("server_version", "1.0.0")
	v.SetDefault("features", []string{"rooms", "patterns", "chat", "room-state"})
	v.SetDefault("rooms.default_max_users", 8)
	v.SetDefault("rooms.max_users_cap", 32)
	v.SetDefault("rooms.default_tempo", 120)
	v.SetDefault("rate.per_second", 20)
	v.SetDefault("rate.burst", 40)
	v.SetDefault("backpressure", "drop")
}

type ClientConfig struct {
	URL               string        `mapstructure:"url"`
	Name              string        `mapstructure:"name"`
	Room              string        `mapstructure:"room"`
	ReconnectDelay    time.Duration `mapstructure:"reconnect_delay"`
	ReconnectAttempts int           `mapstructure:"reconnect_attempts"`
	LogLevel          string        `mapstructure:"log_level"`
}

// LoadClient resolves client settings: flags override JAM_* env, env
// overrides defaults.
func LoadClient(flags *pflag.FlagSet) (*ClientConfig, error) {
	v := newViper()
	v.SetDefault("url", "ws://localhost:8080/api/ws")
	v.SetDefault("name", "Anonymous")
	v.SetDefault("room", "")
	v.SetDefault("reconnect_delay", "5s")
	v.SetDefault("reconnect_attempts", 5)
	v.SetDefault("log_level", "warn")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	var cfg ClientConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse client config: %w", err)
	}
	if cfg.ReconnectAttempts < 1 {
		return nil, fmt.Errorf("reconnect_attempts must be positive, got %d", cfg.ReconnectAttempts)
	}
	return &cfg, nil
}

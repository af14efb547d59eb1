package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type SMTP struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	BaseURL  string `mapstructure:"base_url"`
}

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
	CORSOrigin string        `mapstructure:"cors_origin"`
	DBPath     string        `mapstructure:"db_path"`

	// Stale-room cleanup: rooms older than RoomMaxAge are deleted whenever
	// CleanupSpec fires.
	RoomMaxAge  time.Duration `mapstructure:"room_max_age"`
	CleanupSpec string        `mapstructure:"cleanup_spec"`

	SMTP SMTP `mapstructure:"smtp"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 3001)
	v.SetDefault("static_path", "")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("token_ttl", "1h")
	v.SetDefault("cors_origin", "http://localhost:3000")
	v.SetDefault("db_path", "watchparty.db")
	v.SetDefault("room_max_age", "12h")
	v.SetDefault("cleanup_spec", "0 * * * *")
	v.SetDefault("smtp.port", 587)

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Secret == "" {
		return nil, fmt.Errorf("secret must be set; refusing to sign tokens without one")
	}
	fmt.Printf("🧩 Mode: %s | Port: %d | DB: %s\n", cfg.Mode, cfg.Port, cfg.DBPath)
	return &cfg, nil
}

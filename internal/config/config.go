package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Trading  Trading  `mapstructure:"trading"`
	Telegram Telegram `mapstructure:"telegram"`
	Logger   Logger   `mapstructure:"logger"`
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
}

// Trading holds the simulation and acceptance-rule settings.
// Balance and quantity options are decimal strings so they survive the
// trip into fixed-precision arithmetic unrounded.
type Trading struct {
	Pair                string  `mapstructure:"pair"`
	DefaultQuantity     string  `mapstructure:"default_quantity"`
	OversoldThreshold   float64 `mapstructure:"oversold_threshold"`
	OverboughtThreshold float64 `mapstructure:"overbought_threshold"`
	InitialBaseBalance  string  `mapstructure:"initial_base_balance"`
	InitialQuoteBalance string  `mapstructure:"initial_quote_balance"`
}

// Telegram holds the notification delivery settings.
type Telegram struct {
	Token          string  `mapstructure:"token"`
	ChatID         string  `mapstructure:"chat_id"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Server holds the configuration for the HTTP API.
type Server struct {
	Port int `mapstructure:"port"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or yaml, json

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("trading.pair", "BTCUSDT")
	viper.SetDefault("trading.default_quantity", "0.01")
	viper.SetDefault("trading.oversold_threshold", 20)
	viper.SetDefault("trading.overbought_threshold", 80)
	viper.SetDefault("trading.initial_base_balance", "1")
	viper.SetDefault("trading.initial_quote_balance", "50000")
	viper.SetDefault("telegram.rate_limit", 1) // messages per second
	viper.SetDefault("telegram.rate_limit_burst", 3)
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("database.dsn", "trades.db")
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "console")

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}

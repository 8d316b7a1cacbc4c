// Package config loads the daemon configuration from a TOML file.
package config

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // places resolve zones on hosts without zoneinfo

	"cloudeng.io/errors"
	"github.com/BurntSushi/toml"
	"github.com/sweeney/newyear-wave/internal/gpio"
	"github.com/sweeney/newyear-wave/internal/logic"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Server   ServerConfig   `toml:"server"`
	Sampler  SamplerConfig  `toml:"sampler"`
	MQTT     MQTTConfig     `toml:"mqtt"`
	Telegram TelegramConfig `toml:"telegram"`
	GPIO     GPIOConfig     `toml:"gpio"`
	Logging  LoggingConfig  `toml:"logging"`
	Locale   LocaleConfig   `toml:"locale"`
	Places   []PlaceConfig  `toml:"places"`
}

type ServerConfig struct {
	HTTPAddr string `toml:"http_addr"` // empty disables the web server
}

type SamplerConfig struct {
	Interval  time.Duration `toml:"interval"`
	Heartbeat time.Duration `toml:"heartbeat"` // 0 disables heartbeats
}

type MQTTConfig struct {
	Broker     string `toml:"broker"`
	ClientID   string `toml:"client_id"`
	BufferSize int    `toml:"buffer_size"`
}

type TelegramConfig struct {
	Token  string `toml:"token"` // empty disables notifications
	ChatID int64  `toml:"chat_id"`
}

type GPIOConfig struct {
	Enabled bool   `toml:"enabled"`
	Chip    string `toml:"chip"`
	Pin     int    `toml:"pin"`
	Home    string `toml:"home"` // place name that drives the LED
}

type LoggingConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // json or console
}

type LocaleConfig struct {
	Default string `toml:"default"`
}

type PlaceConfig struct {
	Name string  `toml:"name"`
	Lat  float64 `toml:"lat"`
	Lon  float64 `toml:"lon"`
	TZ   string  `toml:"tz"`
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	// A configured place list replaces the defaults rather than merging
	// into them element by element.
	builtin := cfg.Places
	cfg.Places = nil
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if !md.IsDefined("places") {
		cfg.Places = builtin
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("parse config %s: unknown keys %v", path, undecoded)
	}
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return defaults()
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr: ":8080",
		},
		Sampler: SamplerConfig{
			Interval:  time.Second,
			Heartbeat: 15 * time.Minute,
		},
		MQTT: MQTTConfig{
			Broker:     "tcp://localhost:1883",
			ClientID:   "newyear-wave",
			BufferSize: 1000,
		},
		GPIO: GPIOConfig{
			Chip: "gpiochip0",
			Pin:  gpio.DefaultPin,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Locale: LocaleConfig{
			Default: "en",
		},
		Places: []PlaceConfig{
			{Name: "Auckland", Lat: -36.85, Lon: 174.76, TZ: "Pacific/Auckland"},
			{Name: "Tokyo", Lat: 35.68, Lon: 139.69, TZ: "Asia/Tokyo"},
			{Name: "London", Lat: 51.51, Lon: -0.13, TZ: "Europe/London"},
			{Name: "New York", Lat: 40.71, Lon: -74.01, TZ: "America/New_York"},
			{Name: "Honolulu", Lat: 21.31, Lon: -157.86, TZ: "Pacific/Honolulu"},
		},
	}
}

// Validate reports every problem found in the configuration.
func (c *Config) Validate() error {
	errs := errors.M{}
	if c.Sampler.Interval <= 0 {
		errs.Append(fmt.Errorf("sampler.interval must be positive, got %v", c.Sampler.Interval))
	}
	if c.Sampler.Heartbeat < 0 {
		errs.Append(fmt.Errorf("sampler.heartbeat must not be negative, got %v", c.Sampler.Heartbeat))
	}
	if c.MQTT.BufferSize < 0 {
		errs.Append(fmt.Errorf("mqtt.buffer_size must not be negative, got %d", c.MQTT.BufferSize))
	}
	if c.Telegram.Token != "" && c.Telegram.ChatID == 0 {
		errs.Append(fmt.Errorf("telegram.chat_id is required when telegram.token is set"))
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		errs.Append(fmt.Errorf("logging.level: %w", err))
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		errs.Append(fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format))
	}

	seen := map[string]bool{}
	for i, p := range c.Places {
		if p.Name == "" {
			errs.Append(fmt.Errorf("places[%d]: name is required", i))
		} else if seen[p.Name] {
			errs.Append(fmt.Errorf("places[%d]: duplicate name %q", i, p.Name))
		}
		seen[p.Name] = true
		if !finiteIn(p.Lat, -90, 90) {
			errs.Append(fmt.Errorf("places[%d] %q: lat %v out of range", i, p.Name, p.Lat))
		}
		if !finiteIn(p.Lon, -180, 180) {
			errs.Append(fmt.Errorf("places[%d] %q: lon %v out of range", i, p.Name, p.Lon))
		}
		if _, err := time.LoadLocation(p.TZ); err != nil {
			errs.Append(fmt.Errorf("places[%d] %q: %w", i, p.Name, err))
		}
	}
	if c.GPIO.Enabled && !seen[c.GPIO.Home] {
		errs.Append(fmt.Errorf("gpio.home %q is not a configured place", c.GPIO.Home))
	}
	return errs.Err()
}

func finiteIn(v, lo, hi float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= lo && v <= hi
}

// ResolvePlaces converts the configured places, loading their time zones.
func (c *Config) ResolvePlaces() ([]logic.Place, error) {
	out := make([]logic.Place, 0, len(c.Places))
	for _, p := range c.Places {
		loc, err := time.LoadLocation(p.TZ)
		if err != nil {
			return nil, fmt.Errorf("place %q: %w", p.Name, err)
		}
		out = append(out, logic.Place{Name: p.Name, Lat: p.Lat, Lon: p.Lon, Location: loc})
	}
	return out, nil
}

// Build returns a logger for the configured level and format.
func (l LoggingConfig) Build() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return nil, fmt.Errorf("logging.level: %w", err)
	}
	var zc zap.Config
	if strings.EqualFold(l.Format, "console") {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

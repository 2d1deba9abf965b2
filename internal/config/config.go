package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

var ErrInvalidConfig = errors.New("invalid config")

// Peer is a remote box given in the environment rather than added through
// the box command.
type Peer struct {
	Name    string
	BaseURL string
}

type Config struct {
	DBType              string
	DSN                 string
	DataDir             string
	PollInterval        time.Duration
	WatchdogTimeout     time.Duration
	Compression         string
	UseExtendedContexts bool
	Peers               []Peer

	RedisAddr    string
	KafkaBrokers string
	EventQueue   string

	HTTPPort string
	LogLevel string

	OrphanGracePeriod   time.Duration
	OrphanSweepInterval time.Duration
}

func defaults(v *viper.Viper) {
	v.SetDefault("db_type", "sqlite")
	v.SetDefault("db_dsn", "")
	v.SetDefault("data_dir", "./.tmp/boxsync")
	v.SetDefault("poll_interval", "5s")
	v.SetDefault("watchdog_timeout", "60s")
	v.SetDefault("compression", "gzip")
	v.SetDefault("use_extended_contexts", false)
	v.SetDefault("peers", "")
	v.SetDefault("redis_addr", "")
	v.SetDefault("kafka_brokers", "")
	v.SetDefault("event_queue", "")
	v.SetDefault("http_port", "4030")
	v.SetDefault("log_level", "info")
	v.SetDefault("orphan_grace_period", "1h")
	v.SetDefault("orphan_sweep_interval", "10m")
}

// LoadConfig reads the config from the environment, a .env file and an
// optional boxsync.{yml,json,toml} in the working directory, in that order
// of precedence.
func LoadConfig() (*Config, error) {
	v := viper.New()
	defaults(v)
	v.AutomaticEnv()

	v.SetConfigName("boxsync")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	} else {
		logrus.Debugf("using config file: %s", v.ConfigFileUsed())
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		DBType:              strings.ToLower(v.GetString("db_type")),
		DSN:                 v.GetString("db_dsn"),
		DataDir:             v.GetString("data_dir"),
		PollInterval:        v.GetDuration("poll_interval"),
		WatchdogTimeout:     v.GetDuration("watchdog_timeout"),
		Compression:         v.GetString("compression"),
		UseExtendedContexts: v.GetBool("use_extended_contexts"),
		RedisAddr:           v.GetString("redis_addr"),
		KafkaBrokers:        v.GetString("kafka_brokers"),
		EventQueue:          v.GetString("event_queue"),
		HTTPPort:            v.GetString("http_port"),
		LogLevel:            v.GetString("log_level"),
		OrphanGracePeriod:   v.GetDuration("orphan_grace_period"),
		OrphanSweepInterval: v.GetDuration("orphan_sweep_interval"),
	}

	peers, err := ParsePeers(v.GetString("peers"))
	if err != nil {
		return nil, err
	}
	cfg.Peers = peers

	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("%w: poll interval must be positive", ErrInvalidConfig)
	}
	if cfg.WatchdogTimeout <= 0 {
		return nil, fmt.Errorf("%w: watchdog timeout must be positive", ErrInvalidConfig)
	}
	if cfg.DSN == "" && cfg.DBType == "sqlite" {
		cfg.DSN = filepath.Join(cfg.DataDir, "boxsync.db")
	}

	return cfg, nil
}

// ParsePeers reads a comma separated list of name=url pairs.
func ParsePeers(value string) ([]Peer, error) {
	var peers []Peer
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		name, url, ok := strings.Cut(item, "=")
		if !ok || strings.TrimSpace(name) == "" || strings.TrimSpace(url) == "" {
			return nil, fmt.Errorf("%w: peer %q is not name=url", ErrInvalidConfig, item)
		}
		peers = append(peers, Peer{Name: strings.TrimSpace(name), BaseURL: strings.TrimSpace(url)})
	}
	return peers, nil
}

// PayloadDir is where image payload files are kept.
func (c *Config) PayloadDir() string {
	return filepath.Join(c.DataDir, "payloads")
}

// SetupLogging configures the standard logrus logger.
func SetupLogging(level string) {
	logrus.SetFormatter(&prefixed.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	logrus.SetLevel(LogLevel(level))
}

func LogLevel(l string) logrus.Level {
	level, err := logrus.ParseLevel(l)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

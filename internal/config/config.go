package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"WaveSentinel/internal/store"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// MaxFetchTimeout bounds data_source.timeout.
const MaxFetchTimeout = 10 * time.Second

// DefaultSymbols is the analyzed universe when none is configured.
var DefaultSymbols = []string{
	"BTCUSDT", "ETHUSDT", "BNBUSDT", "ADAUSDT", "SOLUSDT",
	"DOTUSDT", "MATICUSDT", "AVAXUSDT", "DOGEUSDT", "LUNAUSDT",
	"LINKUSDT", "LTCUSDT", "XRPUSDT", "ATOMUSDT", "ALGOUSDT",
}

// Config holds all application configuration.
type Config struct {
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	DataSource struct {
		Provider  string        `yaml:"provider"` // binance or yahoo
		BaseURL   string        `yaml:"base_url"`
		Mock      bool          `yaml:"mock"`
		MockPrice float64       `yaml:"mock_price"`
		Interval  string        `yaml:"interval"`
		Limit     int           `yaml:"limit"`
		Timeout   time.Duration `yaml:"timeout"`
		RateLimit float64       `yaml:"rate_limit"` // requests per second
	} `yaml:"data_source"`
	Analysis struct {
		Symbols         []string `yaml:"symbols"`
		AutoStart       bool     `yaml:"auto_start"`
		Timezone        string   `yaml:"timezone"`
		Oversold        float64  `yaml:"oversold"`
		ProfitTarget    float64  `yaml:"profit_target"`
		Exit            float64  `yaml:"exit"`
		FastPeriod      int      `yaml:"fast_period"`
		SlowPeriod      int      `yaml:"slow_period"`
		ChannelConstant float64  `yaml:"channel_constant"`
		FeedSize        int      `yaml:"feed_size"`
	} `yaml:"analysis"`
	Timing struct {
		SymbolDelay   time.Duration `yaml:"symbol_delay"`
		OnceDelay     time.Duration `yaml:"once_delay"`
		ErrorDelay    time.Duration `yaml:"error_delay"`
		PassInterval  time.Duration `yaml:"pass_interval"`
		RecoveryDelay time.Duration `yaml:"recovery_delay"`
		StopGrace     time.Duration `yaml:"stop_grace"`
	} `yaml:"timing"`
	Schedule struct {
		ReportCron string `yaml:"report_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	HTTP struct {
		Addr        string `yaml:"addr"`
		MetricsAddr string `yaml:"metrics_addr"`
	} `yaml:"http"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, loads the optional .env file (ENV_FILE,
// default ".env"), applies environment variable overrides and fills defaults.
// A missing YAML file is not an error.
func Load(path string) (*Config, error) {
	cfg := newConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

// newConfig returns a Config with the signal thresholds preset. Zero is a
// valid threshold, so these are filled before decoding rather than in
// applyDefaults.
func newConfig() *Config {
	c := &Config{}
	c.Analysis.Oversold = -70
	c.Analysis.ProfitTarget = 10
	c.Analysis.Exit = 65
	return c
}

func (c *Config) applyEnv() {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("DATA_PROVIDER"); v != "" {
		c.DataSource.Provider = v
	}
	if v := os.Getenv("BINANCE_BASE_URL"); v != "" {
		c.DataSource.BaseURL = v
	}
	if v := os.Getenv("MOCK_DATA"); v != "" {
		c.DataSource.Mock = parseBool("MOCK_DATA", v, c.DataSource.Mock)
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Analysis.Symbols = splitList(v)
	}
	if v := os.Getenv("AUTO_START"); v != "" {
		c.Analysis.AutoStart = parseBool("AUTO_START", v, c.Analysis.AutoStart)
	}
	if v := os.Getenv("TIMEZONE"); v != "" {
		c.Analysis.Timezone = v
	}
	if v := os.Getenv("CRON_REPORT"); v != "" {
		c.Schedule.ReportCron = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		c.HTTP.Addr = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		c.HTTP.MetricsAddr = v
	}
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = "binance"
	}
	c.DataSource.Provider = strings.ToLower(c.DataSource.Provider)
	if c.DataSource.BaseURL == "" {
		c.DataSource.BaseURL = "https://api.binance.com"
	}
	if c.DataSource.MockPrice == 0 {
		c.DataSource.MockPrice = 100
	}
	if c.DataSource.Interval == "" {
		c.DataSource.Interval = "1h"
	}
	if c.DataSource.Limit == 0 {
		c.DataSource.Limit = 200
	}
	if c.DataSource.Timeout == 0 {
		c.DataSource.Timeout = MaxFetchTimeout
	}
	if c.DataSource.RateLimit == 0 {
		c.DataSource.RateLimit = 10
	}

	if len(c.Analysis.Symbols) == 0 {
		c.Analysis.Symbols = append([]string(nil), DefaultSymbols...)
	}
	for i, s := range c.Analysis.Symbols {
		c.Analysis.Symbols[i] = strings.ToUpper(strings.TrimSpace(s))
	}
	if c.Analysis.Timezone == "" {
		c.Analysis.Timezone = "Europe/Istanbul"
	}
	if c.Analysis.FastPeriod == 0 {
		c.Analysis.FastPeriod = 10
	}
	if c.Analysis.SlowPeriod == 0 {
		c.Analysis.SlowPeriod = 21
	}
	if c.Analysis.ChannelConstant == 0 {
		c.Analysis.ChannelConstant = 0.015
	}
	if c.Analysis.FeedSize == 0 {
		c.Analysis.FeedSize = 100
	}

	t := &c.Timing
	if t.SymbolDelay == 0 {
		t.SymbolDelay = time.Second
	}
	if t.OnceDelay == 0 {
		t.OnceDelay = 500 * time.Millisecond
	}
	if t.ErrorDelay == 0 {
		t.ErrorDelay = 5 * time.Second
	}
	if t.PassInterval == 0 {
		t.PassInterval = 600 * time.Second
	}
	if t.RecoveryDelay == 0 {
		t.RecoveryDelay = 60 * time.Second
	}
	if t.StopGrace == 0 {
		t.StopGrace = 5 * time.Second
	}

	if c.Schedule.ReportCron == "" {
		c.Schedule.ReportCron = "0 0 9 * * *"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/wave_sentinel.db"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
}

// TelegramEnabled reports whether push notifications and commands are on.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// Location resolves Analysis.Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Analysis.Timezone)
	if err != nil {
		return nil, fmt.Errorf("analysis.timezone: %w", err)
	}
	return loc, nil
}

// Validate checks that all fields are consistent.
func (c *Config) Validate() error {
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	switch c.DataSource.Provider {
	case "binance", "yahoo":
	default:
		return fmt.Errorf("data_source.provider %q is not supported", c.DataSource.Provider)
	}
	if !c.DataSource.Mock && c.DataSource.Provider == "binance" && c.DataSource.BaseURL == "" {
		return fmt.Errorf("data_source.base_url is required")
	}
	if c.DataSource.Limit <= 0 {
		return fmt.Errorf("data_source.limit must be positive")
	}
	if c.DataSource.Timeout <= 0 || c.DataSource.Timeout > MaxFetchTimeout {
		return fmt.Errorf("data_source.timeout must be in (0, %v]", MaxFetchTimeout)
	}
	if c.DataSource.RateLimit < 0 {
		return fmt.Errorf("data_source.rate_limit must not be negative")
	}

	if len(c.Analysis.Symbols) == 0 {
		return fmt.Errorf("analysis.symbols must not be empty")
	}
	seen := make(map[string]bool, len(c.Analysis.Symbols))
	for _, s := range c.Analysis.Symbols {
		if s == "" {
			return fmt.Errorf("analysis.symbols contains an empty symbol")
		}
		if seen[s] {
			return fmt.Errorf("analysis.symbols contains %s twice", s)
		}
		seen[s] = true
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Analysis.ProfitTarget <= 0 {
		return fmt.Errorf("analysis.profit_target must be positive")
	}
	if c.Analysis.Oversold >= c.Analysis.Exit {
		return fmt.Errorf("analysis.oversold must be below analysis.exit")
	}
	if c.Analysis.FastPeriod <= 0 || c.Analysis.SlowPeriod <= 0 {
		return fmt.Errorf("analysis periods must be positive")
	}
	if c.Analysis.ChannelConstant <= 0 {
		return fmt.Errorf("analysis.channel_constant must be positive")
	}
	if c.Analysis.FeedSize <= 0 || c.Analysis.FeedSize > store.MaxFeedSize {
		return fmt.Errorf("analysis.feed_size must be between 1 and %d", store.MaxFeedSize)
	}

	t := c.Timing
	for name, d := range map[string]time.Duration{
		"symbol_delay":   t.SymbolDelay,
		"once_delay":     t.OnceDelay,
		"error_delay":    t.ErrorDelay,
		"pass_interval":  t.PassInterval,
		"recovery_delay": t.RecoveryDelay,
		"stop_grace":     t.StopGrace,
	} {
		if d < 0 {
			return fmt.Errorf("timing.%s must not be negative", name)
		}
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func parseBool(name, v string, fallback bool) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Warnf("ignoring %s=%q: %v", name, v, err)
		return fallback
	}
	return b
}

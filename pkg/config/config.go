package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"FarePull/internal/domain/models"
	"FarePull/pkg/util"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string           `yaml:"environment" default:"development" validate:"required,oneof=development staging production"`
	Log         LogConfig        `yaml:"log"`
	Server      ServerConfig     `yaml:"server"`
	Search      SearchConfig     `yaml:"search"`
	Thresholds  ThresholdsConfig `yaml:"thresholds"`
	Alerts      AlertsConfig     `yaml:"alerts"`
	Poller      PollerConfig     `yaml:"poller"`
	History     HistoryConfig    `yaml:"history"`
	Hierarchy   HierarchyConfig  `yaml:"hierarchy"`
	Schedule    ScheduleConfig   `yaml:"schedule"`
	Source      SourceConfig     `yaml:"source"`
	Flags       FlagsConfig      `yaml:"flags"`
	Telegram    TelegramConfig   `yaml:"telegram"`
	Kafka       KafkaConfig      `yaml:"kafka"`
	ClickHouse  ClickHouseConfig `yaml:"clickhouse"`
	Redis       RedisConfig      `yaml:"redis"`
}

type LogConfig struct {
	Level     string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format    string `yaml:"format" default:"console" validate:"oneof=console json"`
	Output    string `yaml:"output" default:"stdout"`
	Collector struct {
		Enabled   bool          `yaml:"enabled"`
		Interval  time.Duration `yaml:"interval" default:"30s"`
		Threshold int           `yaml:"threshold" default:"100" validate:"gte=1"`
	} `yaml:"collector"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"10m"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
}

type SearchConfig struct {
	Origin         string   `yaml:"origin" default:"BUE" validate:"required,len=3"`
	Destination    string   `yaml:"destination" default:"FLN" validate:"required,len=3,nefield=Origin"`
	Passengers     int      `yaml:"passengers" default:"2" validate:"gte=1,lte=9"`
	Currency       string   `yaml:"currency" default:"ARS" validate:"len=3"`
	DepartureDates []string `yaml:"departure_dates" validate:"required,min=1,dive,datetime=2006-01-02"`
	ReturnDates    []string `yaml:"return_dates" validate:"required,min=1,dive,datetime=2006-01-02"`
}

// Pairs is the search grid; returns before departures are skipped.
func (s SearchConfig) Pairs() []models.DatePair {
	return models.CrossDates(s.DepartureDates, s.ReturnDates)
}

// Route labels the searched route, e.g. "BUE → FLN".
func (s SearchConfig) Route() string { return s.Origin + " → " + s.Destination }

// ThresholdsConfig holds inclusive totals for the whole party, in the search currency.
type ThresholdsConfig struct {
	GreenMax   float64 `yaml:"green_max" default:"600000" validate:"gt=0"`
	YellowMax  float64 `yaml:"yellow_max" default:"800000" validate:"gt=0"`
	CeilingMax float64 `yaml:"ceiling_max" default:"1000000" validate:"gt=0"`
}

func (t ThresholdsConfig) Model() models.Thresholds {
	return models.Thresholds{
		GreenMax:   decimal.NewFromFloat(t.GreenMax),
		YellowMax:  decimal.NewFromFloat(t.YellowMax),
		CeilingMax: decimal.NewFromFloat(t.CeilingMax),
	}
}

type AlertsConfig struct {
	Cooldown  time.Duration `yaml:"cooldown" default:"1h"`
	Scareware struct {
		LowSeats   int           `yaml:"low_seats" default:"5" validate:"gte=1"`
		MinSamples int           `yaml:"min_samples" default:"3" validate:"gte=2"`
		MinAge     time.Duration `yaml:"min_age" default:"72h"`
	} `yaml:"scareware"`
}

type PollerConfig struct {
	Delay       time.Duration `yaml:"delay" default:"1500ms"`
	Jitter      time.Duration `yaml:"jitter" default:"500ms"`
	CallTimeout time.Duration `yaml:"call_timeout" default:"30s"`
	MaxAttempts int           `yaml:"max_attempts" default:"3" validate:"gte=1,lte=10"`
	BackoffBase time.Duration `yaml:"backoff_base" default:"2s"`
	BackoffMax  time.Duration `yaml:"backoff_max" default:"30s"`
}

type HistoryConfig struct {
	Backend   string `yaml:"backend" default:"sqlite" validate:"oneof=sqlite redis"`
	Path      string `yaml:"path" default:"data/history.db"`
	Retention int    `yaml:"retention" default:"500" validate:"gte=10"`
}

// HierarchyConfig overrides or extends the built-in fare rank tables.
type HierarchyConfig struct {
	Types   map[string]int `yaml:"types" validate:"dive,gte=0"`
	Classes map[string]int `yaml:"classes" validate:"dive,gte=0"`
}

type ScheduleConfig struct {
	Prices     string        `yaml:"prices" default:"@every 60m" validate:"required"`
	Flags      string        `yaml:"flags" default:"@every 60m" validate:"required"`
	RunOnStart bool          `yaml:"run_on_start" default:"true"`
	LockTTL    time.Duration `yaml:"lock_ttl" default:"2h"`
}

type SourceConfig struct {
	URL     string            `yaml:"url" default:"https://flybondi.com/graphql" validate:"required,url"`
	APIKey  string            `yaml:"api_key"`
	Headers map[string]string `yaml:"headers"`
	Timeout time.Duration     `yaml:"timeout" default:"30s"`
}

type FlagsConfig struct {
	Enabled   bool          `yaml:"enabled" default:"true"`
	Endpoints []string      `yaml:"endpoints" default:"[\"https://experimentation-beta.sts.flybondi.com/flags\",\"https://experimentation-beta.sts.flybondi.com/api/flags\",\"https://experimentation-beta.sts.flybondi.com/v1/flags\"]" validate:"dive,url"`
	Keywords  []string      `yaml:"keywords"`
	Timeout   time.Duration `yaml:"timeout" default:"15s"`
}

type TelegramConfig struct {
	Token   string        `yaml:"token"`
	ChatID  string        `yaml:"chat_id"`
	APIBase string        `yaml:"api_base" default:"https://api.telegram.org" validate:"url"`
	Timeout time.Duration `yaml:"timeout" default:"10s"`
}

type KafkaConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Brokers      []string      `yaml:"brokers"`
	ClientID     string        `yaml:"client_id" default:"farepull"`
	Compression  string        `yaml:"compression" default:"snappy" validate:"oneof=none gzip snappy lz4 zstd"`
	RequiredAcks int           `yaml:"required_acks" default:"-1" validate:"oneof=-1 0 1"`
	MaxAttempts  int           `yaml:"max_attempts" default:"5"`
	BatchSize    int           `yaml:"batch_size" default:"100"`
	BatchTimeout time.Duration `yaml:"batch_timeout" default:"50ms"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	Topics       struct {
		Anomalies string `yaml:"anomalies" default:"farepull.anomalies"`
		Combos    string `yaml:"combos" default:"farepull.combos"`
		Summaries string `yaml:"summaries" default:"farepull.cycles"`
		Logs      string `yaml:"logs" default:"farepull.logs"`
	} `yaml:"topics"`
}

type ClickHouseConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Host        string        `yaml:"host"`
	Port        int           `yaml:"port" default:"9000"`
	Database    string        `yaml:"database" default:"farepull"`
	User        string        `yaml:"user" default:"default"`
	Password    string        `yaml:"password"`
	UseHTTP     bool          `yaml:"use_http"`
	AsyncInsert bool          `yaml:"async_insert"`
	DialTimeout time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout time.Duration `yaml:"read_timeout" default:"30s"`
}

// RedisConfig backs the run locks and, optionally, the history store.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host" default:"localhost"`
	Port     int    `yaml:"port" default:"6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix" default:"farepull"`
}

// Load reads a YAML file on top of the struct defaults and validates the result.
func Load(path string) (*Config, error) {
	c, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv is Load with a .env file and environment overrides applied
// before validation. A missing .env is not an error.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	c, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func read(path string) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &c, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("FAREPULL_API_KEY"); v != "" {
		c.Source.APIKey = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.Token = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitList(v)
		c.Kafka.Enabled = len(c.Kafka.Brokers) > 0
	}
	if v := os.Getenv("HISTORY_BACKEND"); v != "" {
		c.History.Backend = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("DEPARTURE_DATES"); v != "" {
		dates, err := util.ParseDateList(v)
		if err != nil {
			return fmt.Errorf("DEPARTURE_DATES: %w", err)
		}
		c.Search.DepartureDates = dates
	}
	if v := os.Getenv("RETURN_DATES"); v != "" {
		dates, err := util.ParseDateList(v)
		if err != nil {
			return fmt.Errorf("RETURN_DATES: %w", err)
		}
		c.Search.ReturnDates = dates
	}
	return nil
}

var validate = validator.New()

// Validate runs the struct tags, then the checks that span several fields.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	t := c.Thresholds
	if !(t.GreenMax < t.YellowMax && t.YellowMax < t.CeilingMax) {
		return fmt.Errorf("thresholds must be ascending: green=%v yellow=%v ceiling=%v", t.GreenMax, t.YellowMax, t.CeilingMax)
	}
	if len(c.Search.Pairs()) == 0 {
		return errors.New("search: no return date is on or after any departure date")
	}
	if c.Poller.BackoffMax < c.Poller.BackoffBase {
		return errors.New("poller.backoff_max must be >= poller.backoff_base")
	}
	if (c.Telegram.Token == "") != (c.Telegram.ChatID == "") {
		return errors.New("telegram: token and chat_id must be set together")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers is required when kafka is enabled")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return errors.New("clickhouse.host is required when clickhouse is enabled")
	}
	if c.History.Backend == "sqlite" && c.History.Path == "" {
		return errors.New("history.path is required for the sqlite backend")
	}
	if c.History.Backend == "redis" && c.Redis.Host == "" {
		return errors.New("redis.host is required for the redis history backend")
	}
	if c.Flags.Enabled && len(c.Flags.Endpoints) == 0 {
		return errors.New("flags.endpoints is required when flags are enabled")
	}
	return nil
}

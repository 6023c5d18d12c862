// Package config loads the harness configuration from YAML, fills defaults and applies
// PRICECAST_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aouyang1/go-pricecast/adapter"
	"github.com/aouyang1/go-pricecast/multistep"
	"github.com/aouyang1/go-pricecast/window"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "PRICECAST"

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	Data     DataConfig     `yaml:"data"`
	Window   WindowConfig   `yaml:"window"`
	Forecast ForecastConfig `yaml:"forecast"`
	Model    ModelConfig    `yaml:"model"`
	Output   OutputConfig   `yaml:"output"`
	Ticker   TickerConfig   `yaml:"ticker"`
	News     NewsConfig     `yaml:"news"`
	Redis    RedisConfig    `yaml:"redis"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

type ServerConfig struct {
	Port            int           `yaml:"port" default:"5000" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

type LoggingConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" default:"text" validate:"oneof=text json"`
}

// SlogLevel maps Level onto a slog level
func (l LoggingConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

type DataConfig struct {
	Dir string `yaml:"dir" default:"data" validate:"required"`
	// FilePattern names a coin's CSV, %s is replaced by the upper case coin
	FilePattern string   `yaml:"file_pattern" default:"Combined_%s_Data.csv" validate:"required,contains=%s"`
	Coins       []string `yaml:"coins" default:"[\"BTC\",\"ETH\",\"SOL\"]" validate:"min=1,dive,required,alphanum"`
	Sentiment   bool     `yaml:"sentiment"`
	Calendar    bool     `yaml:"calendar"`
	Indicators  bool     `yaml:"indicators"`
	RSIPeriod   int      `yaml:"rsi_period" default:"14" validate:"min=1"`
	EMAPeriod   int      `yaml:"ema_period" default:"20" validate:"min=1"`
}

// Path returns the CSV path of coin
func (d DataConfig) Path(coin string) string {
	return filepath.Join(d.Dir, fmt.Sprintf(d.FilePattern, strings.ToUpper(coin)))
}

type WindowConfig struct {
	LookBack int    `yaml:"look_back" default:"5" validate:"min=1"`
	Target   string `yaml:"target" default:"price" validate:"required"`
}

func (w WindowConfig) Options() *window.Options {
	return &window.Options{LookBack: w.LookBack, Target: w.Target}
}

type ForecastConfig struct {
	Horizons   []int   `yaml:"horizons" default:"[10,180,1440,10080,43200]" validate:"min=1,dive,min=1"`
	MaxHorizon int     `yaml:"max_horizon" default:"43200" validate:"min=1"`
	Carry      string  `yaml:"carry" default:"hold" validate:"oneof=hold zero"`
	TrainRatio float64 `yaml:"train_ratio" default:"0.8" validate:"gt=0,lt=1"`
}

func (f ForecastConfig) Options(interval time.Duration) (*multistep.Options, error) {
	carry, err := multistep.ParseCarry(f.Carry)
	if err != nil {
		return nil, err
	}
	return &multistep.Options{Carry: carry, MaxHorizon: f.MaxHorizon, Interval: interval}, nil
}

type ModelConfig struct {
	// Kinds are fit and evaluated by train
	Kinds []string `yaml:"kinds" default:"[\"linear\",\"lasso\",\"arima\",\"decomposition\",\"forest\",\"boost\"]" validate:"min=1,dive,oneof=linear lasso arima decomposition forest boost neural"`
	// Serve is the kind the server fits per coin
	Serve         string `yaml:"serve" default:"forest" validate:"oneof=linear lasso arima decomposition forest boost neural"`
	NeuralPath    string `yaml:"neural_path"`
	NeuralLibrary string `yaml:"neural_library"`
	NeuralWidth   int    `yaml:"neural_width" validate:"min=0"`
}

// AdapterOptions returns the adapter options with the neural network settings filled in
func (m ModelConfig) AdapterOptions() *adapter.Options {
	neural := adapter.NewDefaultNeuralOptions()
	neural.ModelPath = m.NeuralPath
	neural.LibraryPath = m.NeuralLibrary
	neural.InputWidth = m.NeuralWidth
	return &adapter.Options{Neural: neural}
}

type OutputConfig struct {
	Dir     string `yaml:"dir" default:"output" validate:"required"`
	Parquet bool   `yaml:"parquet"`
	Charts  bool   `yaml:"charts"`
}

type TickerConfig struct {
	BaseURL           string            `yaml:"base_url" default:"https://api.binance.com" validate:"url"`
	RequestsPerMinute int               `yaml:"requests_per_minute" default:"60" validate:"min=1"`
	Timeout           time.Duration     `yaml:"timeout" default:"10s"`
	Symbols           map[string]string `yaml:"symbols" default:"{\"BTC\":\"BTCUSDT\",\"ETH\":\"ETHUSDT\",\"SOL\":\"SOLUSDT\"}"`
}

type NewsConfig struct {
	Feeds   []string      `yaml:"feeds" validate:"dive,url"`
	Timeout time.Duration `yaml:"timeout" default:"10s"`
}

type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr" default:"localhost:6379" validate:"required_if=Enabled true"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db" validate:"min=0"`
	TTL      time.Duration `yaml:"ttl" default:"10m"`
}

type MetricsConfig struct {
	Disabled bool   `yaml:"disabled"`
	Path     string `yaml:"path" default:"/metrics" validate:"startswith=/"`
}

// env lists the supported environment overrides. Empty values leave the file config untouched.
type env struct {
	DataDir   string `envconfig:"DATA_DIR"`
	OutputDir string `envconfig:"OUTPUT_DIR"`
	Port      int    `envconfig:"PORT"`
	RedisAddr string `envconfig:"REDIS_ADDR"`
	Model     string `envconfig:"MODEL"`
	LogLevel  string `envconfig:"LOG_LEVEL"`
}

// Load reads the YAML file at path, when given, fills defaults, applies a .env file and the
// environment, then validates. An empty path uses defaults only.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("unable to read config, %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("unable to parse config, %w", err)
		}
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("unable to set config defaults, %w", err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("unable to load .env file", "error", err)
	}
	if err := c.applyEnv(); err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyEnv() error {
	var e env
	if err := envconfig.Process(EnvPrefix, &e); err != nil {
		return fmt.Errorf("unable to process environment, %w", err)
	}
	if e.DataDir != "" {
		c.Data.Dir = e.DataDir
	}
	if e.OutputDir != "" {
		c.Output.Dir = e.OutputDir
	}
	if e.Port != 0 {
		c.Server.Port = e.Port
	}
	if e.RedisAddr != "" {
		c.Redis.Addr = e.RedisAddr
		c.Redis.Enabled = true
	}
	if e.Model != "" {
		c.Model.Serve = e.Model
	}
	if e.LogLevel != "" {
		c.Logging.Level = strings.ToLower(e.LogLevel)
	}
	return nil
}

var validate = validator.New()

// Validate checks the struct tags and the cross field rules
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w, %w", ErrInvalidConfig, err)
	}
	for _, h := range c.Forecast.Horizons {
		if h > c.Forecast.MaxHorizon {
			return fmt.Errorf("horizon %d above max horizon %d, %w", h, c.Forecast.MaxHorizon, ErrInvalidConfig)
		}
	}
	if c.Model.Serve == string(adapter.KindNeural) && c.Model.NeuralPath == "" {
		return fmt.Errorf("neural model requires model.neural_path, %w", ErrInvalidConfig)
	}
	return nil
}

// Horizons returns the configured future horizons
func (c *Config) Horizons() multistep.Horizons {
	return multistep.Horizons(c.Forecast.Horizons)
}

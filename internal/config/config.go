package config

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/vango-dev/querysync/internal/errors"
	"github.com/vango-dev/querysync/pkg/querysync"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "querysync.json"

	// DefaultPort is the default server port.
	DefaultPort = 7070

	// DefaultHost is the default server host.
	DefaultHost = "localhost"

	// DefaultMetricsPath is where Prometheus metrics are served.
	DefaultMetricsPath = "/metrics"

	// DefaultTracerName is the default OpenTelemetry tracer name.
	DefaultTracerName = querysync.TracerName
)

// Param types.
const (
	TypeString = "string"
	TypeNumber = "number"
)

// Config represents the complete querysync.json configuration.
type Config struct {
	// Server contains HTTP and websocket settings.
	Server ServerConfig `json:"server,omitempty"`

	// Metrics contains Prometheus settings.
	Metrics MetricsConfig `json:"metrics,omitempty"`

	// Tracing contains OpenTelemetry settings.
	Tracing TracingConfig `json:"tracing,omitempty"`

	// Log contains logger settings.
	Log LogConfig `json:"log,omitempty"`

	// Params are the query parameters every session synchronizes.
	Params []ParamConfig `json:"params,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains server settings.
type ServerConfig struct {
	// Host is the host to bind to.
	Host string `json:"host,omitempty"`

	// Port is the port to listen on.
	Port int `json:"port,omitempty"`

	// ReadTimeout bounds reading one HTTP request (e.g., "10s").
	ReadTimeout string `json:"readTimeout,omitempty"`

	// WriteTimeout bounds writing one websocket message (e.g., "10s").
	WriteTimeout string `json:"writeTimeout,omitempty"`

	// IdleTimeout closes a websocket that sent nothing for this long (e.g., "5m").
	IdleTimeout string `json:"idleTimeout,omitempty"`

	// AllowedOrigins lists websocket origins; empty allows any.
	AllowedOrigins []string `json:"allowedOrigins,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	// Enabled serves metrics and records querysync collectors.
	Enabled bool `json:"enabled"`

	// Namespace prefixes every metric name.
	Namespace string `json:"namespace,omitempty"`

	// Path is the HTTP path of the metrics endpoint.
	Path string `json:"path,omitempty"`
}

// TracingConfig contains OpenTelemetry settings.
type TracingConfig struct {
	// Enabled creates spans for flushes and client messages.
	Enabled bool `json:"enabled"`

	// Tracer is the instrumentation name passed to otel.Tracer.
	Tracer string `json:"tracer,omitempty"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level,omitempty"`

	// Format is text or json.
	Format string `json:"format,omitempty"`
}

// ParamConfig describes one synchronized query parameter.
type ParamConfig struct {
	// Key is the parameter name.
	Key string `json:"key"`

	// Context prefixes Key in the URL ("users" + "page" is "users_page").
	Context string `json:"context,omitempty"`

	// Type is string or number. Numbers are clamped to Min and Max.
	Type string `json:"type,omitempty"`

	// Default is the store's initial value in URL form. Empty means absent.
	Default string `json:"default,omitempty"`

	// Min is the smallest number the store accepts.
	Min *float64 `json:"min,omitempty"`

	// Max is the largest number the store accepts.
	Max *float64 `json:"max,omitempty"`

	// Deps are query keys of other params. When set, the URL is applied to
	// this param only after one of them changes.
	Deps []string `json:"deps,omitempty"`
}

// QueryKey returns the effective query key of the param.
func (p ParamConfig) QueryKey() string {
	return querysync.QueryKey(p.Key, p.Context)
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         DefaultHost,
			Port:         DefaultPort,
			ReadTimeout:  "10s",
			WriteTimeout: "10s",
			IdleTimeout:  "5m",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "querysync",
			Path:      DefaultMetricsPath,
		},
		Tracing: TracingConfig{
			Tracer: DefaultTracerName,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Params: []ParamConfig{
			{Key: "page", Type: TypeNumber, Default: "1", Min: float(1)},
			{Key: "tab", Context: "users", Type: TypeString},
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for querysync.json in the directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("Q010").
				WithDetail("No " + ConfigFileName + " found at " + path).
				WithSuggestion("Run 'querysync init' to write a default configuration")
		}
		return nil, errors.New("Q010").Wrap(err)
	}

	cfg := New()
	cfg.Params = nil
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("Q010").
			WithDetail("Failed to parse " + path + ": " + err.Error()).
			WithSuggestion("Check that " + ConfigFileName + " is valid JSON")
	}

	if cfg.Params == nil {
		cfg.Params = New().Params
	}

	cfg.configPath = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("Q010").Wrap(err)
	}

	// Add newline at end of file
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("Q010").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.ReadTimeout == "" {
		c.Server.ReadTimeout = "10s"
	}
	if c.Server.WriteTimeout == "" {
		c.Server.WriteTimeout = "10s"
	}
	if c.Server.IdleTimeout == "" {
		c.Server.IdleTimeout = "5m"
	}

	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "querysync"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
	if c.Tracing.Tracer == "" {
		c.Tracing.Tracer = DefaultTracerName
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	for i := range c.Params {
		if c.Params[i].Type == "" {
			c.Params[i].Type = TypeString
		}
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return invalid("server.port must be between 0 and 65535")
	}
	for name, value := range map[string]string{
		"server.readTimeout":  c.Server.ReadTimeout,
		"server.writeTimeout": c.Server.WriteTimeout,
		"server.idleTimeout":  c.Server.IdleTimeout,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return invalid(name + " is not a duration: " + value)
		}
	}
	if !strings.HasPrefix(c.Metrics.Path, "/") {
		return invalid("metrics.path must start with /")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return invalid("log.format must be text or json, got " + c.Log.Format)
	}

	keys := make(map[string]bool, len(c.Params))
	for i, p := range c.Params {
		where := "params[" + strconv.Itoa(i) + "]"
		if p.Key == "" {
			return invalid(where + ".key is required")
		}
		if keys[p.QueryKey()] {
			return invalid(where + " duplicates query key " + p.QueryKey())
		}
		keys[p.QueryKey()] = true

		switch p.Type {
		case TypeString:
			if p.Min != nil || p.Max != nil {
				return invalid(where + ": min and max apply to number params only")
			}
		case TypeNumber:
			if p.Min != nil && p.Max != nil && *p.Min > *p.Max {
				return invalid(where + ": min is greater than max")
			}
			if p.Default != "" {
				if _, ok := querysync.ParseQueryValue(p.Default).Num(); !ok {
					return invalid(where + ".default is not a number: " + p.Default)
				}
			}
		default:
			return invalid(where + ".type must be string or number, got " + p.Type)
		}
	}

	for i, p := range c.Params {
		for _, dep := range p.Deps {
			if dep == p.QueryKey() {
				return invalid("params[" + strconv.Itoa(i) + "] depends on itself")
			}
			if !keys[dep] {
				return invalid("params[" + strconv.Itoa(i) + "] depends on unknown query key " + dep)
			}
		}
	}
	return nil
}

// Address returns the host:port the server listens on.
func (c *Config) Address() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

// ReadTimeout returns the parsed server read timeout.
func (c *Config) ReadTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Server.ReadTimeout)
	return d
}

// WriteTimeout returns the parsed websocket write timeout.
func (c *Config) WriteTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Server.WriteTimeout)
	return d
}

// IdleTimeout returns the parsed websocket idle timeout.
func (c *Config) IdleTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Server.IdleTimeout)
	return d
}

// NewLogger builds the logger described by the Log section.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, invalid("log.level must be debug, info, warn or error, got " + s)
	}
	return level, nil
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

func invalid(detail string) *errors.Error {
	return errors.New("Q011").WithDetail(detail)
}

func float(f float64) *float64 {
	return &f
}

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"bpmnvalidator/internal/domain/entity"
)

type Config struct {
	Server   HTTPServerConfig `json:"server"`
	Linter   LinterConfig     `json:"linter"`
	Ruleset  RulesetConfig    `json:"ruleset"`
	Upload   UploadConfig     `json:"upload"`
	Metrics  MetricsConfig    `json:"metrics"`
	LogLevel string           `json:"log_level" default:"info"`
}

type HTTPServerConfig struct {
	Host            string        `json:"host" default:"0.0.0.0"`
	Port            int           `json:"port" default:"8080"`
	ReadTimeout     time.Duration `json:"read_timeout" default:"30s"`
	WriteTimeout    time.Duration `json:"write_timeout" default:"60s"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" default:"30s"`
	CORSOrigins     []string      `json:"cors_origins" default:"*"`
}

type LinterConfig struct {
	Command      string        `json:"command" default:"npx"`
	Args         []string      `json:"args" default:"bpmnlint"`
	Timeout      time.Duration `json:"timeout" default:"30s"`
	Extension    string        `json:"extension" default:".bpmn"`
	ProbeArgs    []string      `json:"probe_args" default:"--version"`
	ProbeTimeout time.Duration `json:"probe_timeout" default:"60s"`
}

type RulesetConfig struct {
	Path    string            `json:"path" default:".bpmnlintrc"`
	Extends string            `json:"extends" default:"bpmnlint:recommended"`
	Rules   map[string]string `json:"rules"`
}

type UploadConfig struct {
	ScratchDir string `json:"scratch_dir"`
	MaxBytes   int64  `json:"max_bytes" default:"33554432"`
}

type MetricsConfig struct {
	Addr string `json:"addr" default:":2112"`
}

func Default() *Config {
	ruleset := entity.DefaultRuleset()
	return &Config{
		Server: HTTPServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			CORSOrigins:     []string{"*"},
		},
		Linter: LinterConfig{
			Command:      "npx",
			Args:         []string{"bpmnlint"},
			Timeout:      30 * time.Second,
			Extension:    ".bpmn",
			ProbeArgs:    []string{"--version"},
			ProbeTimeout: 60 * time.Second,
		},
		Ruleset: RulesetConfig{
			Path:    ".bpmnlintrc",
			Extends: ruleset.Extends,
			Rules:   ruleset.Rules,
		},
		Upload: UploadConfig{
			ScratchDir: os.TempDir(),
			MaxBytes:   32 << 20,
		},
		Metrics: MetricsConfig{
			Addr: ":2112",
		},
		LogLevel: "info",
	}
}

// Load builds the configuration from defaults, then the optional config file
// at path (.hcl or .json), then the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server port %d out of range", c.Server.Port))
	}
	if strings.TrimSpace(c.Linter.Command) == "" {
		errs = append(errs, errors.New("linter command is required"))
	}
	if c.Linter.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("linter timeout must be positive, got %s", c.Linter.Timeout))
	}
	if c.Linter.ProbeTimeout <= 0 {
		errs = append(errs, fmt.Errorf("linter probe timeout must be positive, got %s", c.Linter.ProbeTimeout))
	}
	if len(c.Linter.ProbeArgs) == 0 {
		errs = append(errs, errors.New("linter probe args are required"))
	}
	if c.Server.WriteTimeout > 0 && c.Server.WriteTimeout <= c.Linter.Timeout {
		errs = append(errs, fmt.Errorf("server write timeout %s must exceed linter timeout %s", c.Server.WriteTimeout, c.Linter.Timeout))
	}
	if !strings.HasPrefix(c.Linter.Extension, ".") || len(c.Linter.Extension) < 2 {
		errs = append(errs, fmt.Errorf("extension %q must start with a dot", c.Linter.Extension))
	}
	if strings.TrimSpace(c.Ruleset.Path) == "" {
		errs = append(errs, errors.New("ruleset path is required"))
	}
	if c.Upload.MaxBytes <= 0 {
		errs = append(errs, fmt.Errorf("max upload bytes must be positive, got %d", c.Upload.MaxBytes))
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) LintRuleset() entity.Ruleset {
	rules := make(map[string]string, len(c.Ruleset.Rules))
	for name, level := range c.Ruleset.Rules {
		rules[name] = level
	}
	return entity.Ruleset{Extends: c.Ruleset.Extends, Rules: rules}
}

// LinterWorkDir is where the linter runs so that it picks up the rc file.
func (c *Config) LinterWorkDir() string {
	return filepath.Dir(c.Ruleset.Path)
}

func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

func applyEnv(cfg *Config) error {
	cfg.Server.Host = getEnv("SERVER_HOST", cfg.Server.Host)
	cfg.Linter.Command = getEnv("BPMNLINT_COMMAND", cfg.Linter.Command)
	cfg.Linter.Extension = getEnv("BPMNLINT_EXTENSION", cfg.Linter.Extension)
	cfg.Ruleset.Path = getEnv("BPMNLINT_CONFIG_PATH", cfg.Ruleset.Path)
	cfg.Ruleset.Extends = getEnv("BPMNLINT_EXTENDS", cfg.Ruleset.Extends)
	cfg.Upload.ScratchDir = getEnv("SCRATCH_DIR", cfg.Upload.ScratchDir)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	if v, ok := os.LookupEnv("BPMNLINT_ARGS"); ok {
		cfg.Linter.Args = strings.Fields(v)
	}
	if v := strings.Fields(os.Getenv("BPMNLINT_PROBE_ARGS")); len(v) > 0 {
		cfg.Linter.ProbeArgs = v
	}
	if v, ok := os.LookupEnv("METRICS_ADDR"); ok {
		cfg.Metrics.Addr = strings.TrimSpace(v)
	}
	if v := getEnv("CORS_ORIGINS", ""); v != "" {
		cfg.Server.CORSOrigins = splitList(v)
	}

	var err error
	if cfg.Server.Port, err = getEnvInt("SERVER_PORT", cfg.Server.Port); err != nil {
		return err
	}
	if cfg.Upload.MaxBytes, err = getEnvInt64("MAX_UPLOAD_BYTES", cfg.Upload.MaxBytes); err != nil {
		return err
	}
	if cfg.Linter.Timeout, err = getEnvDuration("BPMNLINT_TIMEOUT", cfg.Linter.Timeout); err != nil {
		return err
	}
	if cfg.Linter.ProbeTimeout, err = getEnvDuration("BPMNLINT_PROBE_TIMEOUT", cfg.Linter.ProbeTimeout); err != nil {
		return err
	}
	if cfg.Server.ReadTimeout, err = getEnvDuration("SERVER_READ_TIMEOUT", cfg.Server.ReadTimeout); err != nil {
		return err
	}
	if cfg.Server.WriteTimeout, err = getEnvDuration("SERVER_WRITE_TIMEOUT", cfg.Server.WriteTimeout); err != nil {
		return err
	}
	if cfg.Server.ShutdownTimeout, err = getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout); err != nil {
		return err
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvInt64(key string, defaultValue int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

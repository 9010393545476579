// Package config loads lattice settings from a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the config file looked up in the working directory when
// no path is given.
const DefaultFile = ".lattice.yaml"

// Config holds the engine and CLI settings.
type Config struct {
	// DB is the SQLite index path. Relative paths are taken from the
	// repository root.
	DB string `yaml:"db" validate:"required"`

	// RootClass is the universal base class.
	RootClass string `yaml:"root_class" validate:"required,classname"`

	// MarkerInterfaces are the interfaces every array type implements.
	// An explicit empty list disables them.
	MarkerInterfaces []string `yaml:"marker_interfaces" validate:"dive,classname"`

	DeepArrayCovariance bool `yaml:"deep_array_covariance"`

	// Bootstrap enables the built-in java.lang/java.util declarations.
	Bootstrap bool `yaml:"bootstrap"`

	// Workers bounds parallel extraction; 0 means one per CPU.
	Workers int `yaml:"workers" validate:"gte=0,lte=256"`

	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("classname", validateClassName)
}

// validateClassName accepts dotted binary names such as java.util.Map$Entry.
func validateClassName(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return false
	}
	for _, part := range strings.Split(s, ".") {
		if part == "" || strings.ContainsAny(part, " \t[]<>/;") {
			return false
		}
	}
	return true
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DB:               filepath.Join(".lattice", "index.db"),
		RootClass:        "java.lang.Object",
		MarkerInterfaces: []string{"java.io.Serializable", "java.lang.Cloneable"},
		Bootstrap:        true,
		LogLevel:         "info",
	}
}

// Load builds a configuration with priority env > file > defaults. A
// missing file is not an error when path is the default file or empty.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if err := loadFile(path, &cfg); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := loadEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("load config env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func loadEnv(cfg *Config) error {
	if v := os.Getenv("LATTICE_DB"); v != "" {
		cfg.DB = v
	}
	if v := os.Getenv("LATTICE_ROOT_CLASS"); v != "" {
		cfg.RootClass = v
	}
	if v, ok := os.LookupEnv("LATTICE_MARKER_INTERFACES"); ok {
		cfg.MarkerInterfaces = nil
		for _, m := range strings.Split(v, ",") {
			if m = strings.TrimSpace(m); m != "" {
				cfg.MarkerInterfaces = append(cfg.MarkerInterfaces, m)
			}
		}
	}
	if v := os.Getenv("LATTICE_DEEP_ARRAY_COVARIANCE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("LATTICE_DEEP_ARRAY_COVARIANCE: %w", err)
		}
		cfg.DeepArrayCovariance = b
	}
	if v := os.Getenv("LATTICE_BOOTSTRAP"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("LATTICE_BOOTSTRAP: %w", err)
		}
		cfg.Bootstrap = b
	}
	if v := os.Getenv("LATTICE_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("LATTICE_WORKERS: %w", err)
		}
		cfg.Workers = n
	}
	if v := os.Getenv("LATTICE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	return nil
}

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// SlogLevel maps LogLevel to a slog level. Unknown names map to info.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

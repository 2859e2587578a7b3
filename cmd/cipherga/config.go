package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"cipherga/internal/cipher"
	"cipherga/pkg/cipherga"
)

// Config is the on-disk configuration of the cipherga CLI.
type Config struct {
	Algorithm cipherga.AlgorithmConfig `yaml:"algorithm"`
	Cipher    CipherConfig             `yaml:"cipher"`
	Workers   int                      `yaml:"workers" validate:"gte=0"`
	Store     StoreConfig              `yaml:"store"`
	Metrics   MetricsConfig            `yaml:"metrics"`
	Log       LogConfig                `yaml:"log"`
}

// CipherConfig names the cipher to solve, either as a file or inline.
type CipherConfig struct {
	File          string            `yaml:"file"`
	Name          string            `yaml:"name"`
	Ciphertext    string            `yaml:"ciphertext"`
	KnownSolution map[string]string `yaml:"knownSolution"`
}

type StoreConfig struct {
	Kind string `yaml:"kind" validate:"omitempty,oneof=memory sqlite"`
	Path string `yaml:"path"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

func DefaultConfig() Config {
	return Config{
		Algorithm: cipherga.DefaultAlgorithmConfig(),
		Store:     StoreConfig{Path: "cipherga.db"},
		Log:       LogConfig{Level: "info", Format: "text"},
	}
}

var cliValidate = validator.New()

func (c Config) Validate() error {
	if err := c.Algorithm.Validate(); err != nil {
		return err
	}
	if err := cliValidate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LoadConfig reads path over the defaults. A missing file leaves the
// defaults in place.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadCipher resolves the configured cipher. A file wins over inline text.
func (c CipherConfig) LoadCipher() (*cipher.Cipher, error) {
	if c.File != "" {
		return cipher.LoadFile(c.File)
	}
	if strings.TrimSpace(c.Ciphertext) == "" {
		return nil, errors.New("no cipher configured: set cipher.file or cipher.ciphertext")
	}
	name := c.Name
	if name == "" {
		name = "inline"
	}
	return cipher.New(name, c.Ciphertext, c.KnownSolution)
}

func newLogger(cfg LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

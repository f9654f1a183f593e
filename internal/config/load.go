package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Resolved is the effective configuration after every override layer,
// with paths expanded and durations parsed.
type Resolved struct {
	Config

	// ConfigPath is the file that was consulted, whether or not it existed.
	ConfigPath string
	// TokenPath is where the OAuth token is persisted.
	TokenPath string
	// Timeout is request_timeout parsed.
	Timeout time.Duration
}

// CLIOverrides holds values from command-line flags. Pointer fields are
// nil when the flag was not given.
type CLIOverrides struct {
	ConfigPath   string
	AuthFlow     *string
	FolderName   *string
	CipherScheme *string
	NoHistory    bool
}

// Load reads and parses a TOML config file, validates it, and returns the
// resulting Config. Unknown keys are errors with "did you mean" suggestions.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads the config file if it exists, otherwise returns the
// defaults so the first run needs no file.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// Resolve loads configuration and applies the override chain:
// defaults -> config file -> environment variables -> CLI flags.
func Resolve(env EnvOverrides, cli CLIOverrides) (*Resolved, error) {
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
	}

	cfg, err := LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	if env.ClientID != "" {
		cfg.ClientID = env.ClientID
	}

	if env.ClientSecret != "" {
		cfg.ClientSecret = env.ClientSecret
	}

	if env.FolderName != "" {
		cfg.FolderName = env.FolderName
	}

	if cli.AuthFlow != nil {
		cfg.AuthFlow = *cli.AuthFlow
	}

	if cli.FolderName != nil {
		cfg.FolderName = *cli.FolderName
	}

	if cli.CipherScheme != nil {
		cfg.CipherScheme = *cli.CipherScheme
	}

	if cli.NoHistory {
		cfg.History = false
	}

	if cfg.HistoryPath == "" {
		cfg.HistoryPath = DefaultHistoryPath()
	}

	cfg.HistoryPath = expandTilde(cfg.HistoryPath)

	// Env and CLI values bypass the file-level validation in Load.
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	timeout, err := time.ParseDuration(cfg.RequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("config validation: request_timeout: %w", err)
	}

	return &Resolved{
		Config:     *cfg,
		ConfigPath: cfgPath,
		TokenPath:  DefaultTokenPath(),
		Timeout:    timeout,
	}, nil
}

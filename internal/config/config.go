// Package config loads and saves the chainscribe CLI's on-disk defaults:
// network selection, fee rates, dust/change floors, and the paths the
// result store and progress hub use. Engine callers that embed the
// package directly never need this; it exists for cmd/chainscribe.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the default config file name.
const ConfigFileName = "config.yaml"

// Config holds the CLI's persisted defaults.
type Config struct {
	// Network is "mainnet" or "testnet".
	Network string `yaml:"network"`

	Fees FeeConfig `yaml:"fees"`

	Storage StorageConfig `yaml:"storage"`

	Progress ProgressConfig `yaml:"progress"`

	Logging LoggingConfig `yaml:"logging"`
}

// FeeConfig holds default fee rates and dust/change floors, all in
// satoshis (or sat/vB for the rates).
type FeeConfig struct {
	CommitFeeRate  float64 `yaml:"commit_fee_rate"`
	RevealFeeRate  float64 `yaml:"reveal_fee_rate"`
	RevealOutValue int64   `yaml:"reveal_out_value"`
	MinChangeValue int64   `yaml:"min_change_value"`
}

// StorageConfig holds result-store settings.
type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
}

// ProgressConfig holds the optional progress WebSocket hub's settings.
type ProgressConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Network: "mainnet",
		Fees: FeeConfig{
			CommitFeeRate:  10,
			RevealFeeRate:  10,
			RevealOutValue: 546,
			MinChangeValue: 546,
		},
		Storage: StorageConfig{
			DataDir: "~/.chainscribe",
		},
		Progress: ProgressConfig{
			ListenAddr: "127.0.0.1:9546",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from dataDir/config.yaml, creating a default
// file there if none exists yet.
func Load(dataDir string) (*Config, error) {
	expandedDir := expandPath(dataDir)
	configPath := filepath.Join(expandedDir, ConfigFileName)

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.Storage.DataDir = dataDir

		if err := cfg.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}

		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# chainscribe CLI configuration\n# Generated automatically on first run\n\n")
	data = append(header, data...)

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Path returns the full path to the config file for the given data directory.
func Path(dataDir string) string {
	return filepath.Join(expandPath(dataDir), ConfigFileName)
}

// expandPath expands ~ to home directory.
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[1:])
	}
	return path
}

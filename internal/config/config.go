// Package config handles objscene configuration loading and saving.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// DefaultFileName is looked up in the working directory when no path is given.
const DefaultFileName = "objscene.yaml"

// Config holds all settings. Command line flags override it.
type Config struct {
	Parse   ParseConfig   `yaml:"parse"`
	Convert ConvertConfig `yaml:"convert"`
	Logging LoggingConfig `yaml:"logging"`
}

// ParseConfig holds obj/mtl reading settings.
type ParseConfig struct {
	Charset         string `yaml:"charset"`
	EarClip         bool   `yaml:"ear_clip"`
	MaterialFile    string `yaml:"material_file"`
	DefaultMaterial string `yaml:"default_material"` // gray material with this name for meshes without one
}

// ConvertConfig holds glTF export settings.
type ConvertConfig struct {
	Scale           float32 `yaml:"scale"`
	ForceUnlit      bool    `yaml:"force_unlit"`
	GenerateNormals bool    `yaml:"generate_normals"`

	TextureReCompress      bool    `yaml:"texture_recompress"`
	TextureBytesThreshold  int64   `yaml:"texture_bytes_threshold"`
	TextureResolutionLimit int     `yaml:"texture_resolution_limit"`
	TextureScale           float32 `yaml:"texture_scale"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Parse: ParseConfig{
			Charset: "shift_jis",
		},
		Convert: ConvertConfig{
			Scale:        1.0,
			TextureScale: 1.0,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration with priority: defaults < file. An empty path
// reads DefaultFileName when it exists.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		if _, err := os.Stat(DefaultFileName); err != nil {
			return cfg, nil
		}
		path = DefaultFileName
	}
	if err := loadFromFile(cfg, path); err != nil {
		return nil, fmt.Errorf("loading config from %s: %w", path, err)
	}
	return cfg, nil
}

// loadFromFile loads config from a YAML file, merging with existing values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// SaveTo writes the config to a specific path.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the app.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Device         string `json:"device" yaml:"device" toml:"device"`
	OutputDir      string `json:"output_dir" yaml:"output_dir" toml:"output_dir"`
	PollIntervalMS int    `json:"poll_interval_ms" yaml:"poll_interval_ms" toml:"poll_interval_ms"`
	DebugAddr      string `json:"debug_addr" yaml:"debug_addr" toml:"debug_addr"`
	LogLevel       string `json:"log_level" yaml:"log_level" toml:"log_level"`

	Generator  Generator  `json:"generator" yaml:"generator" toml:"generator"`
	Classifier Classifier `json:"classifier" yaml:"classifier" toml:"classifier"`
}

// Generator configures the text-to-image engine client.
type Generator struct {
	EngineURL string `json:"engine_url" yaml:"engine_url" toml:"engine_url"`
	Model     string `json:"model" yaml:"model" toml:"model"`
	Steps     int    `json:"steps" yaml:"steps" toml:"steps"`
	Width     int    `json:"width" yaml:"width" toml:"width"`
	Height    int    `json:"height" yaml:"height" toml:"height"`
}

// Classifier configures the ONNX image classifier.
type Classifier struct {
	ModelPath    string `json:"model_path" yaml:"model_path" toml:"model_path"`
	MetadataPath string `json:"metadata_path" yaml:"metadata_path" toml:"metadata_path"`
	TopK         int    `json:"top_k" yaml:"top_k" toml:"top_k"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

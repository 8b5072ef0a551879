// Package config loads layered configuration: defaults, then
// .codegraph.yaml in the project root, then CODEGRAPH_* environment
// variables. CLI flags override on top at the command layer.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all tunables for the codegraph toolchain.
type Config struct {
	DBPath      string `mapstructure:"db"`
	OllamaURL   string `mapstructure:"ollama"`
	EmbedModel  string `mapstructure:"embedModel"`
	RerankModel string `mapstructure:"rerankModel"`
	Workers     int    `mapstructure:"workers"`
	VectorDim   int    `mapstructure:"vectorDim"`
	LogLevel    string `mapstructure:"logLevel"`
	LogFormat   string `mapstructure:"logFormat"`
}

// Load reads configuration for the project rooted at root. A missing
// config file is not an error; defaults and environment apply.
func Load(root string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(".codegraph")
	v.SetConfigType("yaml")
	if root != "" {
		v.AddConfigPath(root)
	}
	v.AddConfigPath(".")

	v.SetDefault("db", "")
	v.SetDefault("ollama", "http://localhost:11434")
	v.SetDefault("embedModel", "nomic-embed-text")
	v.SetDefault("rerankModel", "qwen3:8b")
	v.SetDefault("workers", 0)
	v.SetDefault("vectorDim", 768)
	v.SetDefault("logLevel", "warn")
	v.SetDefault("logFormat", "text")

	v.SetEnvPrefix("CODEGRAPH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

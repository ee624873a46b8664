package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LogFile          string `yaml:"log"`
	ServerAddr       string `yaml:"server_addr"`
	DataDir          string `yaml:"data_dir"`
	DropDir          string `yaml:"drop_dir"`
	MergeEventsMs    int    `yaml:"write_debounce_ms"`
	StoreTimeoutSecs int    `yaml:"store_timeout_secs"`
	Embedder         struct {
		BaseURL   string `yaml:"base_url"`
		APIKeyEnv string `yaml:"api_key_env"`
		Model     string `yaml:"model"`
		Dimension int    `yaml:"dimension"`
	} `yaml:"embedder"`
}

func readConfig(cfgPath string) (*Config, error) {
	cfgFile, err := os.Open(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("unable to open config file: %w", err)
	}
	defer cfgFile.Close()

	cfg := &Config{}
	dec := yaml.NewDecoder(cfgFile)
	err = dec.Decode(cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to parse config file: %w", err)
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.ServerAddr == "" {
		cfg.ServerAddr = "localhost:8000"
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	if cfg.MergeEventsMs == 0 {
		cfg.MergeEventsMs = 500
	}
	if cfg.StoreTimeoutSecs == 0 {
		cfg.StoreTimeoutSecs = 30
	}
	if cfg.Embedder.APIKeyEnv == "" {
		cfg.Embedder.APIKeyEnv = "OPENAI_API_KEY"
	}
}

package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ModelSettings struct {
		Model       string  `yaml:"model"`
		Temperature float64 `yaml:"temperature"`
		TopP        float64 `yaml:"top_p"`
		MaxTokens   int     `yaml:"max_tokens"`
	} `yaml:"model_settings"`
	History struct {
		FetchLimit int `yaml:"fetch_limit"`
	} `yaml:"history"`
	Persona struct {
		DefaultName string `yaml:"default_name"`
		SeedFile    string `yaml:"seed_file"`
	} `yaml:"persona"`
}

func LoadConfig(path string) (*Config, error) {
	config := &Config{}

	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		config.applyDefaults()
		return config, nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	err = yaml.Unmarshal(file, config)
	if err != nil {
		return nil, err
	}

	config.applyDefaults()
	return config, nil
}

func (c *Config) applyDefaults() {
	if c.ModelSettings.Model == "" {
		c.ModelSettings.Model = "gpt-4o-mini"
	}
	if c.ModelSettings.Temperature == 0 {
		c.ModelSettings.Temperature = 0.9
	}
	if c.ModelSettings.TopP == 0 {
		c.ModelSettings.TopP = 1
	}
	if c.ModelSettings.MaxTokens == 0 {
		c.ModelSettings.MaxTokens = 2048
	}
	if c.History.FetchLimit == 0 {
		c.History.FetchLimit = 10
	}
	if c.Persona.DefaultName == "" {
		c.Persona.DefaultName = "default"
	}
	if c.Persona.SeedFile == "" {
		c.Persona.SeedFile = "system_message.txt"
	}
}

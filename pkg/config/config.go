package config

import (
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

// AppConfig configures the avroforge CLI.
type AppConfig struct {
	// Definitions is the directory walked for record definition YAML files.
	Definitions string `yaml:"definitions"`

	Output struct {
		Dir string `yaml:"dir"`
	} `yaml:"output"`

	Registry struct {
		Enabled bool   `yaml:"enabled"`
		URL     string `yaml:"url"`
		// SubjectSuffix is appended to the record name to form the registry
		// subject, e.g. "-value" for topic value subjects.
		SubjectSuffix string `yaml:"subjectSuffix"`
	} `yaml:"registry"`
}

// Load reads and parses a YAML config file into an AppConfig struct.
// It will terminate the program if the file is not found or invalid.
func Load(path string) AppConfig {
	cfg := AppConfig{Definitions: "definitions"}
	cfg.Output.Dir = "schemas"
	cfg.Registry.SubjectSuffix = "-value"

	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Fatalf("Config file not found: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Error reading config file: %v", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		log.Fatalf("Error parsing config file: %v", err)
	}

	return cfg
}

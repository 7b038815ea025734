package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the server looks for its config file
const DefaultPath = "configs/config.yml"

// Config holds application configuration
type Config struct {
	Server struct {
		Port      string `yaml:"port"`
		APIPrefix string `yaml:"api_prefix"`
		StaticDir string `yaml:"static_dir"`
	} `yaml:"server"`

	CORS struct {
		AllowOrigins []string `yaml:"allow_origins"`
	} `yaml:"cors"`

	Database struct {
		Path string `yaml:"path"` // SQLite file
	} `yaml:"database"`

	Upload struct {
		MaxFileSize       int64    `yaml:"max_file_size"` // bytes
		AllowedExtensions []string `yaml:"allowed_extensions"`
	} `yaml:"upload"`

	Annotation struct {
		DefaultFingerprint       string   `yaml:"default_fingerprint"`
		DefaultDimensionLabel    string   `yaml:"default_dimension_label"`
		UnnamedAnnotatorLabel    string   `yaml:"unnamed_annotator_label"`
		AnnotatorNamePrefix      string   `yaml:"annotator_name_prefix"`
		ProgressPlaceholderTotal int      `yaml:"progress_placeholder_total"`
		JudgementKeys            []string `yaml:"judgement_keys"`
		ReasoningKeys            []string `yaml:"reasoning_keys"`
	} `yaml:"annotation"`

	Log struct {
		Mode  string `yaml:"mode"` // development or production
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// LoadConfig loads configuration from a YAML file. A missing file is not
// an error: defaults and environment overrides still apply.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), config); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	}

	config.applyEnv()
	config.setDefaults()

	return config, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

func (c *Config) setDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8000"
	}
	if c.Server.APIPrefix == "" {
		c.Server.APIPrefix = "/api"
	}
	c.Server.APIPrefix = "/" + strings.Trim(c.Server.APIPrefix, "/")

	if c.Server.StaticDir == "" {
		c.Server.StaticDir = "./static"
	}

	if len(c.CORS.AllowOrigins) == 0 {
		c.CORS.AllowOrigins = []string{"*"}
	}

	if c.Database.Path == "" {
		c.Database.Path = "./data/annotations.db"
	}

	if c.Upload.MaxFileSize == 0 {
		c.Upload.MaxFileSize = 50 * 1024 * 1024
	}
	if len(c.Upload.AllowedExtensions) == 0 {
		c.Upload.AllowedExtensions = []string{".xlsx", ".xls", ".csv"}
	}

	if c.Annotation.DefaultFingerprint == "" {
		c.Annotation.DefaultFingerprint = "unknown"
	}
	if c.Annotation.ProgressPlaceholderTotal == 0 {
		c.Annotation.ProgressPlaceholderTotal = 100
	}

	if c.Log.Mode == "" {
		c.Log.Mode = "development"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

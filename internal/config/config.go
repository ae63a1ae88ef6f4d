package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where a config file is searched, in order. The
// first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/cantor/config.yaml",
	"/etc/cantor/config.yml",
}

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "CONFIG_PATH"

// envPrefix namespaces the service's environment variables.
const envPrefix = "CANTOR_"

// Config is the service configuration. Immutable after Load and safe for
// concurrent reads.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Data     DataConfig     `koanf:"data"`
	Admin    AdminConfig    `koanf:"admin"`
	Storage  StorageConfig  `koanf:"storage"`
	Pipeline PipelineConfig `koanf:"pipeline"`
}

type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

type DataConfig struct {
	// Root is the processing volume holding staging, pdf, and song
	// directories plus the catalog file and upload registry.
	Root         string `koanf:"root"`
	RegistryPath string `koanf:"registry_path"`
}

type AdminConfig struct {
	// Secret is the shared secret gating mutating endpoints.
	Secret string `koanf:"secret"`
}

type StorageConfig struct {
	Endpoint  string `koanf:"endpoint"`
	Bucket    string `koanf:"bucket"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	PublicUrl string `koanf:"public_url"`
	UseTls    bool   `koanf:"use_tls"`
}

type PipelineConfig struct {
	// Concurrency bounds how many documents convert at once; the external
	// converters are heavyweight processes.
	Concurrency int `koanf:"concurrency"`

	// DiskThresholdPercent pauses new conversions when used space on the
	// data volume reaches it.
	DiskThresholdPercent float64 `koanf:"disk_threshold_percent"`

	SofficeBin  string `koanf:"soffice_bin"`
	PdftoppmBin string `koanf:"pdftoppm_bin"`

	// CompareImagePath enables boilerplate-slide trimming against the
	// reference image when set.
	CompareImagePath string `koanf:"compare_image_path"`
}

// defaultConfig returns the built-in defaults, applied before file and env
// layers.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8722,
		},
		Data: DataConfig{
			Root:         "data",
			RegistryPath: "data/uploads.db",
		},
		Admin: AdminConfig{
			Secret: "",
		},
		Storage: StorageConfig{
			Endpoint:  "",
			Bucket:    "",
			AccessKey: "",
			SecretKey: "",
			PublicUrl: "",
			UseTls:    true,
		},
		Pipeline: PipelineConfig{
			Concurrency:          3,
			DiskThresholdPercent: 95,
			SofficeBin:           "soffice",
			PdftoppmBin:          "pdftoppm",
			CompareImagePath:     "",
		},
	}
}

// Load builds the configuration from layered sources: struct defaults,
// then an optional yaml file, then environment variables (highest
// precedence, CANTOR_SERVER_PORT -> server.port), then validates it.
func Load() (*Config, error) {

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load config defaults: %v", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %v", path, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", ".", 1)
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %v", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %v", err)
	}

	return cfg, nil
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}

	if c.Data.Root == "" {
		return fmt.Errorf("data root is required")
	}

	if c.Admin.Secret == "" {
		return fmt.Errorf("admin secret is required")
	}

	if c.Storage.Endpoint == "" || c.Storage.Bucket == "" || c.Storage.PublicUrl == "" {
		return fmt.Errorf("storage endpoint, bucket, and public url are required")
	}

	if c.Pipeline.Concurrency < 1 {
		return fmt.Errorf("pipeline concurrency must be at least 1")
	}

	if c.Pipeline.DiskThresholdPercent <= 0 || c.Pipeline.DiskThresholdPercent > 100 {
		return fmt.Errorf("disk threshold percent must be in (0, 100]")
	}

	return nil
}

// findConfigFile returns the first config file found, or empty string.
func findConfigFile() string {

	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type BasicConfig interface {
	Load(map[string]string) error
	Validate() error
}

type AppConfig struct {
	Host     string
	Port     int
	LogLevel slog.Level
}

type MinIOConfig struct {
	UseSSL          bool
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Location        string
	// Root key prefixes of the two upload workflows.
	TestImageRoot    string
	HabitatImageRoot string
}

// KintoneApp is one record-store app together with the API token scoped to it.
type KintoneApp struct {
	ID    string
	Token string
}

type KintoneConfig struct {
	Domain            string
	Tracking          KintoneApp
	UserMaster        KintoneApp
	Attendance        KintoneApp
	UUIDFieldCode     string
	StatusFieldCode   string
	CategoryFieldCode string
	Category          string
	StatusProcessing  string
}

// Config is built once at startup and passed by value to every component.
type Config struct {
	App     AppConfig
	MinIO   MinIOConfig
	Kintone KintoneConfig
}

func readEnv() (map[string]string, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("failed to load .env file", "error", err)
		return nil, fmt.Errorf("load .env file: %w", err)
	}

	envMap := make(map[string]string)
	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if ok {
			envMap[key] = value
		}
	}
	return envMap, nil
}

func Get() (Config, error) {
	envMap, err := readEnv()
	if err != nil {
		return Config{}, err
	}
	return FromMap(envMap)
}

func FromMap(envMap map[string]string) (Config, error) {
	appCfg := &AppConfig{}
	minioCfg := &MinIOConfig{}
	kintoneCfg := &KintoneConfig{}

	configs := []BasicConfig{appCfg, minioCfg, kintoneCfg}
	for _, cfg := range configs {
		if err := cfg.Load(envMap); err != nil {
			slog.Error("failed to load configuration", "error", err)
			return Config{}, err
		}
		if err := cfg.Validate(); err != nil {
			slog.Error("configuration validation failed", "error", err)
			return Config{}, err
		}
	}

	slog.Info("configuration loaded",
		"port", appCfg.Port,
		"minio_endpoint", minioCfg.Endpoint,
		"bucket", minioCfg.BucketName,
		"kintone_domain", kintoneCfg.Domain,
	)
	return Config{
		App:     *appCfg,
		MinIO:   *minioCfg,
		Kintone: *kintoneCfg,
	}, nil
}

package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	JWT      JWTConfig      `yaml:"jwt"`
	Polar    PolarConfig    `yaml:"polar"`
	Storage  StorageConfig  `yaml:"storage"`
	App      AppConfig      `yaml:"app"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, mysql, postgres
	DSN    string `yaml:"dsn"`
}

type JWTConfig struct {
	Secret            string `yaml:"secret"`
	ExpireHour        int    `yaml:"expire_hour"`
	RefreshExpireHour int    `yaml:"refresh_expire_hour"`
}

// PolarConfig holds the billing provider settings.
type PolarConfig struct {
	AccessToken   string `yaml:"access_token"`
	WebhookSecret string `yaml:"webhook_secret"`
	Server        string `yaml:"server"`      // sandbox, production
	ProductIDs    string `yaml:"product_ids"` // comma-separated
	SuccessURL    string `yaml:"success_url"`
	ReturnURL     string `yaml:"return_url"`
	SyncInterval  int    `yaml:"sync_interval_minutes"` // 0 disables the polling sync
}

// Products returns the configured product ids as a slice.
func (p *PolarConfig) Products() []string {
	var out []string
	for _, entry := range strings.Split(p.ProductIDs, ",") {
		entry = strings.TrimSpace(entry)
		if entry != "" {
			out = append(out, entry)
		}
	}
	return out
}

// StorageConfig holds the S3-compatible object storage settings for media.
type StorageConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// AppConfig holds frontend-facing URLs used in redirects.
type AppConfig struct {
	BaseURL   string `yaml:"base_url"`
	SignInURL string `yaml:"sign_in_url"`
}

var GlobalConfig *Config

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	var cfg *Config

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg = DefaultConfig()
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}

		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, err
		}
		cfg = &fileCfg
	}

	cfg.overrideFromEnv()
	GlobalConfig = cfg
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: "8080",
			Mode: "debug",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "grove.db",
		},
		JWT: JWTConfig{
			Secret:            "grove-secret-key-change-in-production",
			ExpireHour:        24,
			RefreshExpireHour: 24 * 30,
		},
		Polar: PolarConfig{
			Server:       "sandbox",
			SuccessURL:   "/subscribe/success",
			ReturnURL:    "/subscribe",
			SyncInterval: 60,
		},
		Storage: StorageConfig{
			Endpoint: "localhost:9000",
			Bucket:   "grove-media",
		},
		App: AppConfig{
			BaseURL:   "http://localhost:4000",
			SignInURL: "/auth/signin",
		},
	}
}

func (c *Config) overrideFromEnv() {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		c.Server.Port = port
	}
	if mode := os.Getenv("SERVER_MODE"); mode != "" {
		c.Server.Mode = mode
	}
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		c.Database.Driver = driver
	}
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.JWT.Secret = secret
	}
	if token := os.Getenv("POLAR_ACCESS_TOKEN"); token != "" {
		c.Polar.AccessToken = token
	}
	if secret := os.Getenv("POLAR_WEBHOOK_SECRET"); secret != "" {
		c.Polar.WebhookSecret = secret
	}
	if server := os.Getenv("POLAR_SERVER"); server != "" {
		c.Polar.Server = server
	}
	if products := os.Getenv("POLAR_PRODUCT_ID"); products != "" {
		c.Polar.ProductIDs = products
	}
	if url := os.Getenv("POLAR_SUCCESS_URL"); url != "" {
		c.Polar.SuccessURL = url
	}
	if url := os.Getenv("POLAR_RETURN_URL"); url != "" {
		c.Polar.ReturnURL = url
	}
	if interval := os.Getenv("POLAR_SYNC_INTERVAL"); interval != "" {
		if n, err := strconv.Atoi(interval); err == nil {
			c.Polar.SyncInterval = n
		}
	}
	if endpoint := os.Getenv("STORAGE_ENDPOINT"); endpoint != "" {
		c.Storage.Endpoint = endpoint
	}
	if key := os.Getenv("STORAGE_ACCESS_KEY"); key != "" {
		c.Storage.AccessKey = key
	}
	if key := os.Getenv("STORAGE_SECRET_KEY"); key != "" {
		c.Storage.SecretKey = key
	}
	if bucket := os.Getenv("STORAGE_BUCKET"); bucket != "" {
		c.Storage.Bucket = bucket
	}
	if ssl := os.Getenv("STORAGE_USE_SSL"); ssl != "" {
		c.Storage.UseSSL = ssl == "true" || ssl == "1"
	}
	if url := os.Getenv("APP_URL"); url != "" {
		c.App.BaseURL = url
	}
}

func (c *Config) Save(configPath string) error {
	if configPath == "" {
		configPath = "config.yaml"
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}

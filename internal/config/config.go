package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	defaultHTTPAddress = "localhost:8765"
	defaultGitHubURL   = "https://api.github.com"
	defaultDataDir     = ".excalisave"
)

// Config конфигурация фонового сервиса
type Config struct {
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`
	HTTP     HTTP
	Store    Store
	GitHub   GitHub
	Secret   Secret
	Watch    Watch
}

// HTTP адрес и защита API фонового сервиса
type HTTP struct {
	Address        string   `mapstructure:"http_address"`
	APIToken       string   `mapstructure:"api_token"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Store выбор и параметры хранилища документов
type Store struct {
	Driver      string `mapstructure:"store_driver"`
	DataPath    string `mapstructure:"data_path"`
	DatabaseURI string `mapstructure:"database_uri"`
}

// GitHub параметры HTTP-клиента GitHub
type GitHub struct {
	APIURL        string        `mapstructure:"github_api_url"`
	Timeout       time.Duration `mapstructure:"github_timeout"`
	RatePerSecond float64       `mapstructure:"github_rate_per_second"`
	MaxRetries    int           `mapstructure:"github_max_retries"`
}

// Secret ключ шифрования токена в хранилище
type Secret struct {
	KeyPath    string `mapstructure:"secret_key_path"`
	Passphrase string `mapstructure:"secret_passphrase"`
}

// Watch наблюдение за экспортированными файлами редактора
type Watch struct {
	Dir          string        `mapstructure:"watch_dir"`
	StartupDelay time.Duration `mapstructure:"watch_startup_delay"`
	Interval     time.Duration `mapstructure:"watch_interval"`
	Sync         bool          `mapstructure:"watch_sync"`
}

// MustLoad загружает конфигурацию и паникует при ошибке
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("Ошибка конфигурации: %v", err))
	}
	return cfg
}

// Load читает .env (если есть) и переменные окружения
func Load() (*Config, error) {
	for _, envPath := range []string{".env", "../.env", "../../.env"} {
		if _, err := os.Stat(envPath); err == nil {
			if err := godotenv.Load(envPath); err != nil {
				fmt.Printf("Ошибка загрузки .env файла: %v\n", err)
			}
			break
		}
	}

	v := viper.New()
	v.AutomaticEnv()

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	dataDir := filepath.Join(homeDir, defaultDataDir)

	// Устанавливаем значения по умолчанию
	v.SetDefault("APP_ENV", EnvLocal)
	v.SetDefault("LOG_LEVEL", "")
	v.SetDefault("HTTP_ADDRESS", defaultHTTPAddress)
	v.SetDefault("STORE_DRIVER", DriverSQLite)
	v.SetDefault("DATA_PATH", filepath.Join(dataDir, "excalisave.db"))
	v.SetDefault("GITHUB_API_URL", defaultGitHubURL)
	v.SetDefault("GITHUB_TIMEOUT", 20*time.Second)
	v.SetDefault("GITHUB_RATE_PER_SECOND", 5.0)
	v.SetDefault("GITHUB_MAX_RETRIES", 3)
	v.SetDefault("SECRET_KEY_PATH", filepath.Join(dataDir, "secret.key"))
	v.SetDefault("WATCH_STARTUP_DELAY", 5*time.Second)
	v.SetDefault("WATCH_INTERVAL", 2*time.Second)
	v.SetDefault("WATCH_SYNC", false)

	cfg := &Config{
		Env:      strings.ToLower(v.GetString("APP_ENV")),
		LogLevel: strings.ToLower(v.GetString("LOG_LEVEL")),
		HTTP: HTTP{
			Address:        v.GetString("HTTP_ADDRESS"),
			APIToken:       v.GetString("API_TOKEN"),
			AllowedOrigins: splitList(v.GetString("ALLOWED_ORIGINS")),
		},
		Store: Store{
			Driver:      strings.ToLower(v.GetString("STORE_DRIVER")),
			DataPath:    v.GetString("DATA_PATH"),
			DatabaseURI: v.GetString("DATABASE_URI"),
		},
		GitHub: GitHub{
			APIURL:        v.GetString("GITHUB_API_URL"),
			Timeout:       v.GetDuration("GITHUB_TIMEOUT"),
			RatePerSecond: v.GetFloat64("GITHUB_RATE_PER_SECOND"),
			MaxRetries:    v.GetInt("GITHUB_MAX_RETRIES"),
		},
		Secret: Secret{
			KeyPath:    v.GetString("SECRET_KEY_PATH"),
			Passphrase: v.GetString("SECRET_PASSPHRASE"),
		},
		Watch: Watch{
			Dir:          v.GetString("WATCH_DIR"),
			StartupDelay: v.GetDuration("WATCH_STARTUP_DELAY"),
			Interval:     v.GetDuration("WATCH_INTERVAL"),
			Sync:         v.GetBool("WATCH_SYNC"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// splitList разбирает список через запятую, пустые элементы отбрасываются
func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (c *Config) validate() error {
	switch c.Env {
	case EnvLocal, EnvDev, EnvProd:
	default:
		return fmt.Errorf("app_env должен быть одним из %s, %s, %s", EnvLocal, EnvDev, EnvProd)
	}
	if c.HTTP.Address == "" {
		return fmt.Errorf("http_address не может быть пустым")
	}

	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.DataPath == "" {
			return fmt.Errorf("data_path не может быть пустым")
		}
	case DriverPostgres:
		if c.Store.DatabaseURI == "" {
			return fmt.Errorf("database_uri обязателен для store_driver=postgres")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("неизвестный store_driver: %s", c.Store.Driver)
	}

	if c.GitHub.MaxRetries < 0 {
		return fmt.Errorf("github_max_retries не может быть отрицательным")
	}
	if c.Watch.Dir != "" && c.Watch.Interval <= 0 {
		return fmt.Errorf("watch_interval должен быть положительным")
	}
	return nil
}

// IsProd проверяет, prod ли окружение
func (c *Config) IsProd() bool {
	return c.Env == EnvProd
}

// IsDev проверяет, dev ли окружение
func (c *Config) IsDev() bool {
	return c.Env == EnvDev
}

// IsLocal проверяет, local ли окружение
func (c *Config) IsLocal() bool {
	return c.Env == EnvLocal || c.Env == ""
}

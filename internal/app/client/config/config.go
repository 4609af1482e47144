package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultServerAddress = "localhost:8765"
	defaultLogLevel      = "info"
	defaultEnv           = "local"
	defaultConfigDir     = ".excalisave"
	defaultTimeout       = 60 * time.Second
)

type Config struct {
	Env            string        `mapstructure:"app_env"`
	ServerAddress  string        `mapstructure:"server_address"`
	APIToken       string        `mapstructure:"api_token"`
	LogLevel       string        `mapstructure:"log_level"`
	ConfigDir      string        `mapstructure:"config_dir"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	EnableTLS      bool          `mapstructure:"enable_tls"`
}

// MustLoad загружает конфигурацию клиента
func MustLoad() *Config {
	config, err := Load()
	if err != nil {
		panic(fmt.Sprintf("Ошибка конфигурации: %v", err))
	}
	return config
}

// Load читает .env, config.yaml и переменные окружения. Окружение имеет приоритет.
func Load() (*Config, error) {
	for _, envPath := range []string{".env", "../.env"} {
		if _, err := os.Stat(envPath); err == nil {
			if err := godotenv.Load(envPath); err != nil {
				fmt.Printf("Ошибка загрузки .env файла: %v\n", err)
			}
			break
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath(filepath.Join(homeDir, defaultConfigDir))
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", defaultEnv)
	v.SetDefault("SERVER_ADDRESS", defaultServerAddress)
	v.SetDefault("LOG_LEVEL", defaultLogLevel)
	v.SetDefault("CONFIG_DIR", filepath.Join(homeDir, defaultConfigDir))
	v.SetDefault("REQUEST_TIMEOUT", defaultTimeout)
	v.SetDefault("ENABLE_TLS", false)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("ошибка чтения config.yaml: %w", err)
		}
	}

	config := &Config{
		Env:            v.GetString("APP_ENV"),
		ServerAddress:  v.GetString("SERVER_ADDRESS"),
		APIToken:       v.GetString("API_TOKEN"),
		LogLevel:       v.GetString("LOG_LEVEL"),
		ConfigDir:      v.GetString("CONFIG_DIR"),
		RequestTimeout: v.GetDuration("REQUEST_TIMEOUT"),
		EnableTLS:      v.GetBool("ENABLE_TLS"),
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.ServerAddress == "" {
		return fmt.Errorf("server_address не может быть пустым")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout должен быть положительным")
	}
	return nil
}

// BaseURL адрес HTTP API фонового процесса
func (c *Config) BaseURL() string {
	if c.EnableTLS {
		return "https://" + c.ServerAddress
	}
	return "http://" + c.ServerAddress
}

// EventsURL адрес websocket-потока событий
func (c *Config) EventsURL() string {
	if c.EnableTLS {
		return "wss://" + c.ServerAddress + "/api/v1/events"
	}
	return "ws://" + c.ServerAddress + "/api/v1/events"
}

// IsProd проверяет, prod ли окружение
func (c *Config) IsProd() bool {
	return c.Env == "prod"
}

// IsDev проверяет, dev ли окружение
func (c *Config) IsDev() bool {
	return c.Env == "dev"
}

// IsLocal проверяет, local ли окружение
func (c *Config) IsLocal() bool {
	return c.Env == "local" || c.Env == ""
}

// Package config предоставляет структуры и функции для загрузки конфигурации клиента.
// Конфиг читается из YAML-файла (CONFIG_PATH или флаг --config), а при его отсутствии
// только из переменных окружения; незаданные поля получают значения по умолчанию.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	// Хранить токен и дневной кэш в файлах.
	StorageFile = "file"
	// Хранить токен и дневной кэш в redis.
	StorageRedis = "redis"
)

// Config общая структура для хранения настроек
type Config struct {
	Env             string `yaml:"env" env:"MIRZO_ENV" env-default:"local"`
	API             `yaml:"api"`
	Storage         `yaml:"storage"`
	RedisConnection `yaml:"redis_connection"`
	Pending         `yaml:"pending"`
	Metrics         `yaml:"metrics"`
}

// API структура для настройки REST-клиента
type API struct {
	BaseURL    string        `yaml:"base_url" env:"MIRZO_API_URL" env-default:"https://mirzoaiapi.cdcgroup.uz/api"`
	TimeoutAPI time.Duration `yaml:"timeout" env:"MIRZO_API_TIMEOUT" env-default:"120s"`
	RateLimit  float64       `yaml:"rate_limit" env-default:"5"`
	RateBurst  int           `yaml:"rate_burst" env-default:"10"`
}

// Storage структура для выбора хранилища сессии и дневного кэша
type Storage struct {
	Backend  string `yaml:"backend" env:"MIRZO_STORAGE" env-default:"file"`
	StateDir string `yaml:"state_dir" env:"MIRZO_STATE_DIR"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"MIRZO_REDIS_ADDR" env-default:"localhost:6379"`
	Password     string        `yaml:"password" env:"MIRZO_REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env-default:"3s"`
	KeyPrefix    string        `yaml:"key_prefix" env-default:"mirzo:"`
}

// Pending структура для настройки ожидания подтверждения оплаты
type Pending struct {
	PollInterval time.Duration `yaml:"poll_interval" env-default:"5s"`
	Countdown    time.Duration `yaml:"countdown" env-default:"600s"`
}

// Metrics структура для публикации метрик клиента
type Metrics struct {
	MetricsAddress string `yaml:"address" env:"MIRZO_METRICS_ADDR"`
}

// Load читает конфиг из файла path, из CONFIG_PATH или только из окружения.
func Load(path string) (*Config, error) {
	const op = "config.Load"

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}

	var cfg Config
	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	} else {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: file %s does not exist", op, path)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	if cfg.StateDir == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		cfg.StateDir = filepath.Join(dir, "mirzo")
	}

	switch cfg.Backend {
	case StorageFile, StorageRedis:
	default:
		return nil, fmt.Errorf("%s: unknown storage backend %q", op, cfg.Backend)
	}

	return &cfg, nil
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"API:\n"+
			"  BaseURL: %s\n"+
			"  Timeout: %s\n"+
			"  RateLimit: %g\n"+
			"  RateBurst: %d\n"+
			"Storage:\n"+
			"  Backend: %s\n"+
			"  StateDir: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  User: %s\n"+
			"  DB: %d\n"+
			"  KeyPrefix: %s\n"+
			"Pending:\n"+
			"  PollInterval: %s\n"+
			"  Countdown: %s\n"+
			"Metrics:\n"+
			"  Address: %s\n",
		c.Env,
		c.BaseURL,
		c.TimeoutAPI,
		c.RateLimit,
		c.RateBurst,
		c.Backend,
		c.StateDir,
		c.AddressRedis,
		c.User,
		c.DB,
		c.KeyPrefix,
		c.PollInterval,
		c.Countdown,
		c.MetricsAddress,
	)
}

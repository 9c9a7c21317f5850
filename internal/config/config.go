// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// MinJWTSecretLength минимальная длина секрета подписи токенов в байтах (256 бит).
const MinJWTSecretLength = 32

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	Redis                   RedisConnection `yaml:"redis_connection"`
	RateLimit               RateLimit       `yaml:"rate_limit"`
	BootstrapAdmin          BootstrapAdmin  `yaml:"bootstrap_admin"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env:"HTTP_ADDRESS" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
	// TrustProxy включает разбор X-Forwarded-For/X-Real-IP. Только за доверенным прокси.
	TrustProxy bool `yaml:"trust_proxy" env:"HTTP_TRUST_PROXY"`
}

// RedisConnection структура для настройки подключения к redis.
// Пустой адрес означает, что лимитер запросов работает в памяти процесса.
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env-default:"3s"`
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"1h"`
}

// RateLimit настройки ограничения частоты запросов.
//
// Requests запросов за Window на одного пользователя. LoginRPS и LoginBurst
// задают token bucket на один IP для эндпоинта аутентификации.
type RateLimit struct {
	Requests   int           `yaml:"requests" env-default:"10"`
	Window     time.Duration `yaml:"window" env-default:"1m"`
	LoginRPS   float64       `yaml:"login_rps" env-default:"1"`
	LoginBurst int           `yaml:"login_burst" env-default:"5"`
}

// BootstrapAdmin первый администратор, создаётся при старте, если его ещё нет.
// Пустой Username отключает создание.
type BootstrapAdmin struct {
	Username  string `yaml:"username" env:"BOOTSTRAP_ADMIN_USERNAME"`
	Password  string `yaml:"password" env:"BOOTSTRAP_ADMIN_PASSWORD"`
	CompanyID int64  `yaml:"company_id" env:"BOOTSTRAP_ADMIN_COMPANY_ID"`
}

// Enabled сообщает, задан ли администратор для создания при старте.
func (b BootstrapAdmin) Enabled() bool {
	return b.Username != ""
}

// MustLoad функция для загрузки конфига из файла CONFIG_PATH.
// Любая ошибка чтения или проверки конфига завершает процесс.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

// Load читает конфиг из файла, переменные окружения имеют приоритет, и проверяет его.
func Load(configPath string) (*Config, error) {
	const op = "config.Load"
	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, nil
}

// Validate проверяет обязательные параметры. Их отсутствие считается фатальной ошибкой старта.
func (c *Config) Validate() error {
	var errs []error
	if c.StorageConnectionString == "" {
		errs = append(errs, errors.New("storage_connection_string is required"))
	}
	if len(c.JWTSecretKey) < MinJWTSecretLength {
		errs = append(errs, fmt.Errorf("jwt_secret_key must be at least %d bytes", MinJWTSecretLength))
	}
	if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("rate_limit requests and window must be positive"))
	}
	if c.RateLimit.LoginRPS <= 0 || c.RateLimit.LoginBurst <= 0 {
		errs = append(errs, errors.New("rate_limit login_rps and login_burst must be positive"))
	}
	if c.BootstrapAdmin.Enabled() && (c.BootstrapAdmin.Password == "" || c.BootstrapAdmin.CompanyID <= 0) {
		errs = append(errs, errors.New("bootstrap_admin requires password and positive company_id"))
	}
	return errors.Join(errs...)
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"StorageConnectionString: %s\n"+
			"MigrationsPath: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  Password: %s\n"+
			"  User: %s\n"+
			"  DB: %d\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"  TrustProxy: %t\n"+
			"JWTToken:\n"+
			"  JWTSecretKey: %s\n"+
			"  TokenTTL: %s\n"+
			"RateLimit:\n"+
			"  Requests: %d per %s\n"+
			"  Login: %.2f rps, burst %d\n",
		c.Env,
		mask(c.StorageConnectionString),
		c.MigrationsPath,
		c.Redis.AddressRedis,
		mask(c.Redis.Password),
		c.Redis.User,
		c.Redis.DB,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.TrustProxy,
		mask(c.JWTSecretKey),
		c.TokenTTL,
		c.RateLimit.Requests,
		c.RateLimit.Window,
		c.RateLimit.LoginRPS,
		c.RateLimit.LoginBurst,
	)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}

package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type Config struct {
	Port                  string
	Env                   string
	LogLevel              string
	AllowedOrigin         string
	StoreBackend          string
	DataDir               string
	DatabaseURL           string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	AuthSecret            string
	AccessTokenTTLMinutes int
	CartTTLMinutes        int
	RecoveryTTLMinutes    int
	StoreTimezone         string
}

// Load reads configuration from the environment, optionally seeded from a
// .env file in the working directory. Real environment variables win.
func Load() Config {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	backend := strings.ToLower(getString(v, "STORE_BACKEND", BackendFile))
	switch backend {
	case BackendMemory, BackendFile, BackendRedis, BackendPostgres:
	default:
		backend = BackendFile
	}

	return Config{
		Port:                  getString(v, "PORT", "8080"),
		Env:                   getString(v, "APP_ENV", "development"),
		LogLevel:              getString(v, "LOG_LEVEL", "info"),
		AllowedOrigin:         getString(v, "ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		StoreBackend:          backend,
		DataDir:               getString(v, "DATA_DIR", "./data"),
		DatabaseURL:           getString(v, "DATABASE_URL", ""),
		RedisAddr:             getString(v, "REDIS_ADDR", ""),
		RedisPassword:         getString(v, "REDIS_PASSWORD", ""),
		RedisDB:               getInt(v, "REDIS_DB", 0, 0),
		AuthSecret:            getString(v, "AUTH_SECRET", ""),
		AccessTokenTTLMinutes: getInt(v, "ACCESS_TOKEN_TTL_MINUTES", 480, 1),
		CartTTLMinutes:        getInt(v, "CART_TTL_MINUTES", 720, 1),
		RecoveryTTLMinutes:    getInt(v, "RECOVERY_TTL_MINUTES", 15, 1),
		StoreTimezone:         getString(v, "STORE_TIMEZONE", ""),
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORE_BACKEND", BackendFile)
	v.SetDefault("DATA_DIR", "./data")
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

// Location is the store's wall-clock zone used for "today" and hourly
// reports. An empty or unknown name falls back to the process zone.
func (c Config) Location() *time.Location {
	if c.StoreTimezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.StoreTimezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func getString(v *viper.Viper, key, fallback string) string {
	val := strings.TrimSpace(v.GetString(key))
	if val == "" {
		return fallback
	}
	return val
}

// getInt returns fallback when the value is missing, malformed or below min.
func getInt(v *viper.Viper, key string, fallback, min int) int {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < min {
		return fallback
	}
	return n
}

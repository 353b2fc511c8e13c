package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Store    StoreConfig
	Sync     SyncConfig
	Geometry GeometryConfig
	Server   ServerConfig
	Redis    RedisConfig
	App      AppConfig
}

// StoreConfig points the engine at the remote placement store.
type StoreConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	UploadTimeout  time.Duration
}

// SyncConfig tunes the pose reconciler.
type SyncConfig struct {
	PositionThreshold float32 // distance units
	RotationThreshold float32 // degrees
	ScaleThreshold    float32
	SyncScale         bool
	PushDebounce      time.Duration
	TickInterval      time.Duration
	FullReconcileSpec string // cron spec (with seconds) for the periodic full reconcile
}

// GeometryConfig tunes the surface resizer.
type GeometryConfig struct {
	UseFixedSize bool
	FixedWidth   float32
	FixedHeight  float32
	MinAxisScale float32
	MaxAxisScale float32
}

type ServerConfig struct {
	Port string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AppConfig struct {
	Environment string
	Version     string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Store: StoreConfig{
			BaseURL:        getEnv("STORE_URL", "http://localhost:8080"),
			RequestTimeout: getEnvAsDuration("STORE_TIMEOUT", 10*time.Second),
			UploadTimeout:  getEnvAsDuration("STORE_UPLOAD_TIMEOUT", 60*time.Second),
		},
		Sync: SyncConfig{
			PositionThreshold: getEnvAsFloat("SYNC_POS_THRESHOLD", 0.01),
			RotationThreshold: getEnvAsFloat("SYNC_ROT_THRESHOLD", 0.1),
			ScaleThreshold:    getEnvAsFloat("SYNC_SCALE_THRESHOLD", 0.01),
			SyncScale:         getEnvAsBool("SYNC_SCALE", false),
			PushDebounce:      getEnvAsDuration("SYNC_PUSH_DEBOUNCE", 2*time.Second),
			TickInterval:      getEnvAsDuration("SYNC_TICK_INTERVAL", 200*time.Millisecond),
			FullReconcileSpec: getEnv("SYNC_FULL_RECONCILE_CRON", "0 * * * * *"),
		},
		Geometry: GeometryConfig{
			UseFixedSize: getEnvAsBool("GEOM_USE_FIXED_SIZE", false),
			FixedWidth:   getEnvAsFloat("GEOM_FIXED_WIDTH", 2.0),
			FixedHeight:  getEnvAsFloat("GEOM_FIXED_HEIGHT", 2.0),
			MinAxisScale: getEnvAsFloat("GEOM_MIN_AXIS_SCALE", 0.5),
			MaxAxisScale: getEnvAsFloat("GEOM_MAX_AXIS_SCALE", 10.0),
		},
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Store.BaseURL == "" {
		return fmt.Errorf("STORE_URL is required")
	}

	if c.Sync.PushDebounce <= 0 {
		return fmt.Errorf("SYNC_PUSH_DEBOUNCE must be positive")
	}

	if c.Sync.TickInterval <= 0 {
		return fmt.Errorf("SYNC_TICK_INTERVAL must be positive")
	}

	if c.Geometry.MinAxisScale <= 0 || c.Geometry.MaxAxisScale < c.Geometry.MinAxisScale {
		return fmt.Errorf("invalid axis scale range [%v, %v]", c.Geometry.MinAxisScale, c.Geometry.MaxAxisScale)
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float32) float32 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 32)
	if err != nil {
		log.Printf("Warning: Invalid float for %s, using default: %v", key, defaultValue)
		return defaultValue
	}

	return float32(value)
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid bool for %s, using default: %v", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid duration for %s, using default: %v", key, defaultValue)
		return defaultValue
	}

	return value
}

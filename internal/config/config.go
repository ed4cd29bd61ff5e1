// backend-go/internal/config/config.go
package config

import (
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	App      AppConfig
	Cache    CacheConfig
	Storage  StorageConfig
	Drive    DriveConfig
	Ingest   IngestConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	LogFormat      string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxOpen  int
	MaxIdle  int
	// MaxConcurrentTx bounds the number of open write transactions.
	MaxConcurrentTx int64
	AutoMigrate     bool
}

// DSN returns the connection string, preferring DATABASE_URL when set.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

type AppConfig struct {
	UploadDir        string
	DefaultWorkspace string
}

type CacheConfig struct {
	Enabled       bool
	RedisURL      string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	KPITTLSeconds int
}

// StorageConfig points at an S3-compatible bucket used to archive raw uploads.
type StorageConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

type DriveConfig struct {
	CredentialsFile string
}

type IngestConfig struct {
	BatchSize     int
	MaxUploadMB   int64
	ArchivePrefix string
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		viper.SetDefault("SERVER_PORT", "8080")
		viper.SetDefault("SERVER_MODE", "debug")
		viper.SetDefault("LOG_FORMAT", "console")
		viper.SetDefault("SERVER_READ_TIMEOUT", 60)
		viper.SetDefault("SERVER_WRITE_TIMEOUT", 120)
		viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
		viper.SetDefault("DATABASE_URL", "")
		viper.SetDefault("DB_HOST", "localhost")
		viper.SetDefault("DB_PORT", "5432")
		viper.SetDefault("DB_USER", "postgres")
		viper.SetDefault("DB_PASSWORD", "postgres")
		viper.SetDefault("DB_NAME", "marketlens")
		viper.SetDefault("DB_SSLMODE", "disable")
		viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
		viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
		viper.SetDefault("DB_MAX_CONCURRENT_TX", 10)
		viper.SetDefault("DB_AUTO_MIGRATE", true)
		viper.SetDefault("APP_UPLOAD_DIR", "./data/uploads")
		viper.SetDefault("APP_DEFAULT_WORKSPACE", "default")
		viper.SetDefault("CACHE_ENABLED", false)
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("REDIS_HOST", "127.0.0.1")
		viper.SetDefault("REDIS_PORT", "6379")
		viper.SetDefault("REDIS_PASSWORD", "")
		viper.SetDefault("REDIS_DB", 0)
		viper.SetDefault("CACHE_KPI_TTL_SECONDS", 60)
		viper.SetDefault("STORAGE_ENABLED", false)
		viper.SetDefault("STORAGE_ENDPOINT", "")
		viper.SetDefault("STORAGE_ACCESS_KEY", "")
		viper.SetDefault("STORAGE_SECRET_KEY", "")
		viper.SetDefault("STORAGE_BUCKET", "marketlens-uploads")
		viper.SetDefault("STORAGE_REGION", "us-east-1")
		viper.SetDefault("STORAGE_USE_SSL", true)
		viper.SetDefault("DRIVE_CREDENTIALS_FILE", "")
		viper.SetDefault("INGEST_BATCH_SIZE", 2000)
		viper.SetDefault("INGEST_MAX_UPLOAD_MB", 64)
		viper.SetDefault("INGEST_ARCHIVE_PREFIX", "uploads")

		// Read from environment variables
		viper.AutomaticEnv()

		ensureDir(viper.GetString("APP_UPLOAD_DIR"))

		instance = &Config{
			Server: ServerConfig{
				Port:           viper.GetString("SERVER_PORT"),
				Mode:           viper.GetString("SERVER_MODE"),
				LogFormat:      viper.GetString("LOG_FORMAT"),
				ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
				WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
				AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			},
			Database: DatabaseConfig{
				URL:             viper.GetString("DATABASE_URL"),
				Host:            viper.GetString("DB_HOST"),
				Port:            viper.GetString("DB_PORT"),
				User:            viper.GetString("DB_USER"),
				Password:        viper.GetString("DB_PASSWORD"),
				DBName:          viper.GetString("DB_NAME"),
				SSLMode:         viper.GetString("DB_SSLMODE"),
				MaxOpen:         viper.GetInt("DB_MAX_OPEN_CONNS"),
				MaxIdle:         viper.GetInt("DB_MAX_IDLE_CONNS"),
				MaxConcurrentTx: viper.GetInt64("DB_MAX_CONCURRENT_TX"),
				AutoMigrate:     viper.GetBool("DB_AUTO_MIGRATE"),
			},
			App: AppConfig{
				UploadDir:        viper.GetString("APP_UPLOAD_DIR"),
				DefaultWorkspace: viper.GetString("APP_DEFAULT_WORKSPACE"),
			},
			Cache: CacheConfig{
				Enabled:       viper.GetBool("CACHE_ENABLED"),
				RedisURL:      viper.GetString("REDIS_URL"),
				RedisHost:     viper.GetString("REDIS_HOST"),
				RedisPort:     viper.GetString("REDIS_PORT"),
				RedisPassword: viper.GetString("REDIS_PASSWORD"),
				RedisDB:       viper.GetInt("REDIS_DB"),
				KPITTLSeconds: viper.GetInt("CACHE_KPI_TTL_SECONDS"),
			},
			Storage: StorageConfig{
				Enabled:   viper.GetBool("STORAGE_ENABLED"),
				Endpoint:  viper.GetString("STORAGE_ENDPOINT"),
				AccessKey: viper.GetString("STORAGE_ACCESS_KEY"),
				SecretKey: viper.GetString("STORAGE_SECRET_KEY"),
				Bucket:    viper.GetString("STORAGE_BUCKET"),
				Region:    viper.GetString("STORAGE_REGION"),
				UseSSL:    viper.GetBool("STORAGE_USE_SSL"),
			},
			Drive: DriveConfig{
				CredentialsFile: viper.GetString("DRIVE_CREDENTIALS_FILE"),
			},
			Ingest: IngestConfig{
				BatchSize:     viper.GetInt("INGEST_BATCH_SIZE"),
				MaxUploadMB:   viper.GetInt64("INGEST_MAX_UPLOAD_MB"),
				ArchivePrefix: viper.GetString("INGEST_ARCHIVE_PREFIX"),
			},
		}
	})

	return instance
}

func ensureDir(dir string) {
	if dir == "" {
		return
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}
}

// backend-go/internal/config/config.go
package config

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/andresuchdata/ecoagent/backend-go/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig
	Admin       AdminConfig
	Log         LogConfig
	Storage     StorageConfig
	RecordStore RecordStoreConfig
	Database    DatabaseConfig
	Cache       CacheConfig
	Scoring     ScoringConfig
	Impact      ImpactConfig
}

type ServerConfig struct {
	Port           string `validate:"required"`
	Mode           string `validate:"oneof=debug release test"`
	ReadTimeout    int    `validate:"gte=0"`
	WriteTimeout   int    `validate:"gte=0"`
	AllowedOrigins []string
}

type AdminConfig struct {
	Port string
}

type LogConfig struct {
	Level  string
	Format string `validate:"oneof=console json"`
}

type StorageConfig struct {
	Backend               string `validate:"oneof=local sevalla minio gcs drive"`
	Prefix                string
	LocalDir              string `validate:"required_if=Backend local"`
	Endpoint              string `validate:"required_if=Backend sevalla,required_if=Backend minio"`
	AccessKey             string
	SecretKey             string
	Bucket                string `validate:"required_if=Backend sevalla,required_if=Backend minio,required_if=Backend gcs"`
	Region                string
	UseSSL                bool
	GoogleCredentialsJSON string `validate:"required_if=Backend gcs,required_if=Backend drive"`
	DriveFolder           string
}

type RecordStoreConfig struct {
	Source              string `validate:"oneof=object postgres"`
	FetchTimeoutSeconds int    `validate:"gt=0"`
	RetryAttempts       int    `validate:"gte=1"`
	RetryBackoffMillis  int    `validate:"gte=0"`
	// Files overrides the object name per dataset, keyed by dataset name.
	Files map[string]string
}

type DatabaseConfig struct {
	Driver         string `validate:"oneof=postgres pgx"`
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MaxConcurrency int64 `validate:"gt=0"`
	TablePrefix    string
}

type CacheConfig struct {
	Enabled           bool
	RedisURL          string
	RedisHost         string
	RedisPort         string
	RedisPassword     string
	RedisDB           int
	DatasetTTLSeconds int
}

type ScoringConfig struct {
	ExpiryWeight     float64 `validate:"gte=0,lte=1"`
	VolatilityWeight float64 `validate:"gte=0,lte=1"`
	WeatherWeight    float64 `validate:"gte=0,lte=1"`
	SurplusWeight    float64 `validate:"gte=0,lte=1"`

	TempEffectWeight   float64 `validate:"gte=0"`
	PrecipEffectWeight float64 `validate:"gte=0"`
	EventEffectWeight  float64 `validate:"gte=0"`

	BaseDisposalFee         float64 `validate:"gte=0"`
	DisposalRatePerUnit     float64 `validate:"gte=0"`
	ResalePriceFactor       float64 `validate:"gte=0"`
	SalvageProbability      float64 `validate:"gte=0,lte=1"`
	DefaultOptimalTemp      float64 `validate:"gt=0"`
	DefaultShelfLifeDays    float64 `validate:"gt=0"`
	MaxPrecipitationCeiling float64 `validate:"gte=0"`
	ClampVolatility         bool
	OrderRiskThreshold      float64 `validate:"gte=0,lte=1"`
	BatchWorkers            int     `validate:"gte=1"`
	KnowledgeFile           string

	ESGWeight           float64 `validate:"gte=0,lte=1"`
	EmissionsWeight     float64 `validate:"gte=0,lte=1"`
	CertificationWeight float64 `validate:"gte=0,lte=1"`
	AuditWeight         float64 `validate:"gte=0,lte=1"`
	StalenessYears      int     `validate:"gte=1"`
	SupplierWorkers     int     `validate:"gte=1"`
}

type ImpactConfig struct {
	Endpoint       string `validate:"omitempty,url"`
	APIKey         string
	Email          string
	Provider       string
	LLM            string
	Region         string
	TimeoutSeconds int `validate:"gt=0"`
}

var (
	once     sync.Once
	instance *Config
)

// Load reads configuration once from the environment (and .env when present).
func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		v := viper.GetViper()
		SetDefaults(v)
		v.AutomaticEnv()

		instance = FromViper(v)
	})

	return instance
}

// SetDefaults registers every default. Split out so tests can use a private viper.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_MODE", "debug")
	v.SetDefault("SERVER_READ_TIMEOUT", 15)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 60)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("ADMIN_PORT", "9090")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	v.SetDefault("STORAGE_BACKEND", "local")
	v.SetDefault("STORAGE_PREFIX", "input")
	v.SetDefault("STORAGE_LOCAL_DIR", "./data")
	v.SetDefault("STORAGE_ENDPOINT", "")
	v.SetDefault("STORAGE_ACCESS_KEY", "")
	v.SetDefault("STORAGE_SECRET_KEY", "")
	v.SetDefault("STORAGE_BUCKET", "")
	v.SetDefault("STORAGE_REGION", "us-east-1")
	v.SetDefault("STORAGE_USE_SSL", true)
	v.SetDefault("GOOGLE_CREDENTIALS_JSON", "")
	v.SetDefault("STORAGE_DRIVE_FOLDER", "")

	v.SetDefault("RECORDSTORE_SOURCE", "object")
	v.SetDefault("RECORDSTORE_FETCH_TIMEOUT_SECONDS", 20)
	v.SetDefault("RECORDSTORE_RETRY_ATTEMPTS", 3)
	v.SetDefault("RECORDSTORE_RETRY_BACKOFF_MS", 250)

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "ecoagent")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_CONCURRENCY", 10)
	v.SetDefault("DB_TABLE_PREFIX", "")

	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_DATASET_TTL_SECONDS", 300)

	v.SetDefault("SCORING_EXPIRY_WEIGHT", 0.30)
	v.SetDefault("SCORING_VOLATILITY_WEIGHT", 0.30)
	v.SetDefault("SCORING_WEATHER_WEIGHT", 0.20)
	v.SetDefault("SCORING_SURPLUS_WEIGHT", 0.20)
	v.SetDefault("SCORING_TEMP_EFFECT_WEIGHT", 0.5)
	v.SetDefault("SCORING_PRECIP_EFFECT_WEIGHT", 0.3)
	v.SetDefault("SCORING_EVENT_EFFECT_WEIGHT", 0.2)
	v.SetDefault("SCORING_BASE_DISPOSAL_FEE", 50.0)
	v.SetDefault("SCORING_DISPOSAL_RATE_PER_UNIT", 2.0)
	v.SetDefault("SCORING_RESALE_PRICE_FACTOR", 0.3)
	v.SetDefault("SCORING_SALVAGE_PROBABILITY", 0.3)
	v.SetDefault("SCORING_DEFAULT_OPTIMAL_TEMP", 20.0)
	v.SetDefault("SCORING_DEFAULT_SHELF_LIFE_DAYS", 30.0)
	v.SetDefault("SCORING_MAX_PRECIPITATION_CEILING", 0.0)
	v.SetDefault("SCORING_CLAMP_VOLATILITY", false)
	v.SetDefault("SCORING_ORDER_RISK_THRESHOLD", 0.5)
	v.SetDefault("SCORING_BATCH_WORKERS", 4)
	v.SetDefault("SCORING_KNOWLEDGE_FILE", "")
	v.SetDefault("SCORING_ESG_WEIGHT", 0.50)
	v.SetDefault("SCORING_EMISSIONS_WEIGHT", 0.15)
	v.SetDefault("SCORING_CERTIFICATION_WEIGHT", 0.15)
	v.SetDefault("SCORING_AUDIT_WEIGHT", 0.20)
	v.SetDefault("SCORING_STALENESS_YEARS", 2)
	v.SetDefault("SCORING_SUPPLIER_WORKERS", 4)

	v.SetDefault("IMPACT_ENDPOINT", "")
	v.SetDefault("IMPACT_API_KEY", "")
	v.SetDefault("IMPACT_EMAIL", "")
	v.SetDefault("IMPACT_PROVIDER", "Google")
	v.SetDefault("IMPACT_LLM", "gemini")
	v.SetDefault("IMPACT_REGION", "United States")
	v.SetDefault("IMPACT_TIMEOUT_SECONDS", 10)
}

// FromViper builds a Config from an already-populated viper instance.
func FromViper(v *viper.Viper) *Config {
	files := make(map[string]string)
	for _, d := range domain.Datasets() {
		key := "DATASET_" + strings.ToUpper(d.String()) + "_FILE"
		if f := v.GetString(key); f != "" {
			files[d.String()] = f
		}
	}

	return &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Mode:           v.GetString("SERVER_MODE"),
			ReadTimeout:    v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: v.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Admin: AdminConfig{
			Port: v.GetString("ADMIN_PORT"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Storage: StorageConfig{
			Backend:               strings.ToLower(v.GetString("STORAGE_BACKEND")),
			Prefix:                v.GetString("STORAGE_PREFIX"),
			LocalDir:              v.GetString("STORAGE_LOCAL_DIR"),
			Endpoint:              v.GetString("STORAGE_ENDPOINT"),
			AccessKey:             v.GetString("STORAGE_ACCESS_KEY"),
			SecretKey:             v.GetString("STORAGE_SECRET_KEY"),
			Bucket:                v.GetString("STORAGE_BUCKET"),
			Region:                v.GetString("STORAGE_REGION"),
			UseSSL:                v.GetBool("STORAGE_USE_SSL"),
			GoogleCredentialsJSON: v.GetString("GOOGLE_CREDENTIALS_JSON"),
			DriveFolder:           v.GetString("STORAGE_DRIVE_FOLDER"),
		},
		RecordStore: RecordStoreConfig{
			Source:              strings.ToLower(v.GetString("RECORDSTORE_SOURCE")),
			FetchTimeoutSeconds: v.GetInt("RECORDSTORE_FETCH_TIMEOUT_SECONDS"),
			RetryAttempts:       v.GetInt("RECORDSTORE_RETRY_ATTEMPTS"),
			RetryBackoffMillis:  v.GetInt("RECORDSTORE_RETRY_BACKOFF_MS"),
			Files:               files,
		},
		Database: DatabaseConfig{
			Driver:         v.GetString("DB_DRIVER"),
			Host:           v.GetString("DB_HOST"),
			Port:           v.GetString("DB_PORT"),
			User:           v.GetString("DB_USER"),
			Password:       v.GetString("DB_PASSWORD"),
			DBName:         v.GetString("DB_NAME"),
			SSLMode:        v.GetString("DB_SSLMODE"),
			MaxConcurrency: v.GetInt64("DB_MAX_CONCURRENCY"),
			TablePrefix:    v.GetString("DB_TABLE_PREFIX"),
		},
		Cache: CacheConfig{
			Enabled:           v.GetBool("CACHE_ENABLED"),
			RedisURL:          v.GetString("REDIS_URL"),
			RedisHost:         v.GetString("REDIS_HOST"),
			RedisPort:         v.GetString("REDIS_PORT"),
			RedisPassword:     v.GetString("REDIS_PASSWORD"),
			RedisDB:           v.GetInt("REDIS_DB"),
			DatasetTTLSeconds: v.GetInt("CACHE_DATASET_TTL_SECONDS"),
		},
		Scoring: ScoringConfig{
			ExpiryWeight:            v.GetFloat64("SCORING_EXPIRY_WEIGHT"),
			VolatilityWeight:        v.GetFloat64("SCORING_VOLATILITY_WEIGHT"),
			WeatherWeight:           v.GetFloat64("SCORING_WEATHER_WEIGHT"),
			SurplusWeight:           v.GetFloat64("SCORING_SURPLUS_WEIGHT"),
			TempEffectWeight:        v.GetFloat64("SCORING_TEMP_EFFECT_WEIGHT"),
			PrecipEffectWeight:      v.GetFloat64("SCORING_PRECIP_EFFECT_WEIGHT"),
			EventEffectWeight:       v.GetFloat64("SCORING_EVENT_EFFECT_WEIGHT"),
			BaseDisposalFee:         v.GetFloat64("SCORING_BASE_DISPOSAL_FEE"),
			DisposalRatePerUnit:     v.GetFloat64("SCORING_DISPOSAL_RATE_PER_UNIT"),
			ResalePriceFactor:       v.GetFloat64("SCORING_RESALE_PRICE_FACTOR"),
			SalvageProbability:      v.GetFloat64("SCORING_SALVAGE_PROBABILITY"),
			DefaultOptimalTemp:      v.GetFloat64("SCORING_DEFAULT_OPTIMAL_TEMP"),
			DefaultShelfLifeDays:    v.GetFloat64("SCORING_DEFAULT_SHELF_LIFE_DAYS"),
			MaxPrecipitationCeiling: v.GetFloat64("SCORING_MAX_PRECIPITATION_CEILING"),
			ClampVolatility:         v.GetBool("SCORING_CLAMP_VOLATILITY"),
			OrderRiskThreshold:      v.GetFloat64("SCORING_ORDER_RISK_THRESHOLD"),
			BatchWorkers:            v.GetInt("SCORING_BATCH_WORKERS"),
			KnowledgeFile:           v.GetString("SCORING_KNOWLEDGE_FILE"),
			ESGWeight:               v.GetFloat64("SCORING_ESG_WEIGHT"),
			EmissionsWeight:         v.GetFloat64("SCORING_EMISSIONS_WEIGHT"),
			CertificationWeight:     v.GetFloat64("SCORING_CERTIFICATION_WEIGHT"),
			AuditWeight:             v.GetFloat64("SCORING_AUDIT_WEIGHT"),
			StalenessYears:          v.GetInt("SCORING_STALENESS_YEARS"),
			SupplierWorkers:         v.GetInt("SCORING_SUPPLIER_WORKERS"),
		},
		Impact: ImpactConfig{
			Endpoint:       v.GetString("IMPACT_ENDPOINT"),
			APIKey:         v.GetString("IMPACT_API_KEY"),
			Email:          v.GetString("IMPACT_EMAIL"),
			Provider:       v.GetString("IMPACT_PROVIDER"),
			LLM:            v.GetString("IMPACT_LLM"),
			Region:         v.GetString("IMPACT_REGION"),
			TimeoutSeconds: v.GetInt("IMPACT_TIMEOUT_SECONDS"),
		},
	}
}

const weightTolerance = 1e-9

// Validate checks struct tags and the weight-sum invariants.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	s := c.Scoring
	if sum := s.ExpiryWeight + s.VolatilityWeight + s.WeatherWeight + s.SurplusWeight; math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("waste risk weights must sum to 1.0, got %v", sum)
	}
	if sum := s.ESGWeight + s.EmissionsWeight + s.CertificationWeight + s.AuditWeight; math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("supplier weights must sum to 1.0, got %v", sum)
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/viper"
)

type Config struct {
	Environment       string `mapstructure:"INV_ENVIRONMENT"`
	ServerName        string `mapstructure:"INV_SERVER_NAME"`
	ServerAddress     string `mapstructure:"INV_SERVER_BIND_ADDR"`
	ServerReadTimeout int16  `mapstructure:"INV_SERVER_READ_TIMEOUT"`
	LogFormat         string `mapstructure:"INV_LOG_FORMAT"` // text or json
	LogLevel          string `mapstructure:"INV_LOG_LEVEL"`  // debug, info, warn, error
	RateLimitMax      int    `mapstructure:"INV_RATE_LIMIT_MAX"`
	RateLimitWindow   int    `mapstructure:"INV_RATE_LIMIT_WINDOW"`

	DbHost           string `mapstructure:"INV_DB_HOST"`
	DbPort           int16  `mapstructure:"INV_DB_PORT"`
	DbSSLMode        string `mapstructure:"INV_DB_SSL"`
	DbUser           string `mapstructure:"INV_DB_USER"`
	DbPassword       string `mapstructure:"INV_DB_PASSWORD"`
	DbDatabaseName   string `mapstructure:"INV_DB_DATABASE"`
	DbMaxConnections int    `mapstructure:"INV_DB_MAX_CONNECTIONS"`

	// Redis (optional backend for the volatile cache tier)
	RedisHost string `mapstructure:"INV_REDIS_HOST"`
	RedisPort int16  `mapstructure:"INV_REDIS_PORT"`
	RedisDb   int    `mapstructure:"INV_REDIS_DB"`
	RedisUser string `mapstructure:"INV_REDIS_USER"`
	RedisPass string `mapstructure:"INV_REDIS_PASS"`

	OtlpEndpoint   string `mapstructure:"INV_OTLP_ENDPOINT"`
	JaegerEndpoint string `mapstructure:"INV_JAEGER_ENDPOINT"`

	// Receipt extraction cache
	CacheBackend   string        `mapstructure:"INV_CACHE_BACKEND"` // memory or redis
	CacheMemoryTTL time.Duration `mapstructure:"INV_CACHE_MEMORY_TTL"`
	CacheMaxSize   int           `mapstructure:"INV_CACHE_MAX_SIZE"`

	// OCR provider
	OCRAPIURL    string `mapstructure:"INV_OCR_API_URL"`
	OCRSecretKey string `mapstructure:"INV_OCR_SECRET_KEY"`
	OCRLineGapPx int    `mapstructure:"INV_OCR_LINE_GAP_PX"`

	// Item extraction
	ExtractionStrategy  string `mapstructure:"INV_EXTRACTION_STRATEGY"` // rules or ai
	ClassifierModelPath string `mapstructure:"INV_CLASSIFIER_MODEL_PATH"`

	// Barcode providers
	OpenFoodFactsBaseURL string        `mapstructure:"INV_OFF_BASE_URL"`
	FoodQRBaseURL        string        `mapstructure:"INV_FOODQR_BASE_URL"`
	FoodQRAPIKey         string        `mapstructure:"INV_FOODQR_API_KEY"`
	FoodSafetyBaseURL    string        `mapstructure:"INV_FOODSAFETY_BASE_URL"`
	FoodSafetyAPIKey     string        `mapstructure:"INV_FOODSAFETY_API_KEY"`
	ProviderTimeout      time.Duration `mapstructure:"INV_PROVIDER_TIMEOUT"`

	// OpenAI Configuration (generative extraction path)
	OpenAIAPIKey          string  `mapstructure:"INV_OPENAI_API_KEY"`
	OpenAIModel           string  `mapstructure:"INV_OPENAI_MODEL"`
	OpenAIBaseURL         string  `mapstructure:"INV_OPENAI_BASE_URL"`
	OpenAIMaxTokens       int     `mapstructure:"INV_OPENAI_MAX_TOKENS"`
	OpenAITemperature     float64 `mapstructure:"INV_OPENAI_TEMPERATURE"`
	OpenAIUseResponsesAPI bool    `mapstructure:"INV_OPENAI_USE_RESPONSES_API"`
	OpenAIStore           bool    `mapstructure:"INV_OPENAI_STORE"`
	OpenAIReasoningEffort string  `mapstructure:"INV_OPENAI_REASONING_EFFORT"`

	// Cloud storage (receipt image archive, optional)
	CloudProvider                string `mapstructure:"INV_CLOUD_PROVIDER"`
	AzureStorageConnectionString string `mapstructure:"INV_AZURE_STORAGE_CONNECTION_STRING"`
	AzureStorageAccountName      string `mapstructure:"INV_AZURE_STORAGE_ACCOUNT_NAME"`
	AzureStorageAccountKey       string `mapstructure:"INV_AZURE_STORAGE_ACCOUNT_KEY"`
	AzureStorageContainerName    string `mapstructure:"INV_AZURE_STORAGE_CONTAINER_NAME"`
	AzureStorageBaseURL          string `mapstructure:"INV_AZURE_STORAGE_BASE_URL"`
	AzureStorageUseHTTPS         bool   `mapstructure:"INV_AZURE_STORAGE_USE_HTTPS"`
}

// DefaultConfig generates a config with sane defaults.
// See: The example .env file in the package docs for default values.
func DefaultConfig() Config {
	return Config{
		Environment:       "local",
		ServerAddress:     "0.0.0.0:3001",
		ServerReadTimeout: 60,
		LogFormat:         "text",
		LogLevel:          "info",
		RateLimitMax:      100,
		RateLimitWindow:   30,

		DbHost:           "localhost",
		DbPort:           5432,
		DbSSLMode:        "disable",
		DbUser:           "postgres",
		DbPassword:       "postgres",
		DbDatabaseName:   "fresh-keep",
		DbMaxConnections: 100,

		RedisHost: "localhost",
		RedisPort: 6379,
		RedisDb:   0,
		RedisUser: "redis",
		RedisPass: "redis",

		OtlpEndpoint:   "localhost:4317",
		JaegerEndpoint: "http://localhost:14268/api/traces",

		CacheBackend:   "memory",
		CacheMemoryTTL: 15 * time.Minute,
		CacheMaxSize:   1024,

		OCRAPIURL:    "",
		OCRSecretKey: "",
		OCRLineGapPx: 15,

		ExtractionStrategy:  "rules",
		ClassifierModelPath: "models/item_classifier.json",

		OpenFoodFactsBaseURL: "https://world.openfoodfacts.org",
		FoodQRBaseURL:        "https://foodqr.kr",
		FoodQRAPIKey:         "",
		FoodSafetyBaseURL:    "http://openapi.foodsafetykorea.go.kr",
		FoodSafetyAPIKey:     "",
		ProviderTimeout:      30 * time.Second,

		// OpenAI defaults
		OpenAIAPIKey:          "",
		OpenAIModel:           "gpt-5-nano",
		OpenAIBaseURL:         "https://api.openai.com/v1",
		OpenAIMaxTokens:       600,
		OpenAITemperature:     0.1,
		OpenAIUseResponsesAPI: true,
		OpenAIStore:           true,
		OpenAIReasoningEffort: "medium",

		// Cloud storage defaults
		CloudProvider:                "",
		AzureStorageConnectionString: "",
		AzureStorageAccountName:      "",
		AzureStorageAccountKey:       "",
		AzureStorageContainerName:    "receipts",
		AzureStorageBaseURL:          "",
		AzureStorageUseHTTPS:         true,
	}
}

// LoadConfig will attempt to load a configuration from the default file location and fallback to environment variables.
func LoadConfig() (Config, error) {
	envFile := os.Getenv("INV_ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}

	var cfg Config
	var err error

	if _, err = os.Stat(envFile); errors.Is(err, os.ErrNotExist) {
		cfg, err = ConfigFromEnvironment()
	} else {
		// Load configuration
		cfg, err = ConfigFromFile(envFile)
	}

	return cfg, err
}

// ConfigFromEnvironment will look for the specified configuration from environment variables
// See package docs for a list of available environment variables.
func ConfigFromEnvironment() (config Config, err error) {
	// Set defaults
	config = DefaultConfig()
	viper.SetDefault("INV_ENVIRONMENT", config.Environment)
	viper.SetDefault("INV_SERVER_BIND_ADDR", config.ServerAddress)
	viper.SetDefault("INV_SERVER_READ_TIMEOUT", config.ServerReadTimeout)
	viper.SetDefault("INV_LOG_LEVEL", config.LogLevel)
	viper.SetDefault("INV_LOG_FORMAT", config.LogFormat)
	viper.SetDefault("INV_RATE_LIMIT_MAX", config.RateLimitMax)
	viper.SetDefault("INV_RATE_LIMIT_WINDOW", config.RateLimitWindow)
	viper.SetDefault("INV_DB_HOST", config.DbHost)
	viper.SetDefault("INV_DB_PORT", config.DbPort)
	viper.SetDefault("INV_DB_SSL", config.DbSSLMode)
	viper.SetDefault("INV_DB_USER", config.DbUser)
	viper.SetDefault("INV_DB_PASSWORD", config.DbPassword)
	viper.SetDefault("INV_DB_DATABASE", config.DbDatabaseName)
	viper.SetDefault("INV_DB_MAX_CONNECTIONS", config.DbMaxConnections)
	viper.SetDefault("INV_OTLP_ENDPOINT", config.OtlpEndpoint)
	viper.SetDefault("INV_JAEGER_ENDPOINT", config.JaegerEndpoint)
	viper.SetDefault("INV_REDIS_HOST", config.RedisHost)
	viper.SetDefault("INV_REDIS_PORT", config.RedisPort)
	viper.SetDefault("INV_REDIS_USER", config.RedisUser)
	viper.SetDefault("INV_REDIS_PASS", config.RedisPass)
	viper.SetDefault("INV_REDIS_DB", config.RedisDb)
	viper.SetDefault("INV_CACHE_BACKEND", config.CacheBackend)
	viper.SetDefault("INV_CACHE_MEMORY_TTL", config.CacheMemoryTTL)
	viper.SetDefault("INV_CACHE_MAX_SIZE", config.CacheMaxSize)
	viper.SetDefault("INV_OCR_API_URL", config.OCRAPIURL)
	viper.SetDefault("INV_OCR_SECRET_KEY", config.OCRSecretKey)
	viper.SetDefault("INV_OCR_LINE_GAP_PX", config.OCRLineGapPx)
	viper.SetDefault("INV_EXTRACTION_STRATEGY", config.ExtractionStrategy)
	viper.SetDefault("INV_CLASSIFIER_MODEL_PATH", config.ClassifierModelPath)
	viper.SetDefault("INV_OFF_BASE_URL", config.OpenFoodFactsBaseURL)
	viper.SetDefault("INV_FOODQR_BASE_URL", config.FoodQRBaseURL)
	viper.SetDefault("INV_FOODQR_API_KEY", config.FoodQRAPIKey)
	viper.SetDefault("INV_FOODSAFETY_BASE_URL", config.FoodSafetyBaseURL)
	viper.SetDefault("INV_FOODSAFETY_API_KEY", config.FoodSafetyAPIKey)
	viper.SetDefault("INV_PROVIDER_TIMEOUT", config.ProviderTimeout)
	viper.SetDefault("INV_OPENAI_API_KEY", config.OpenAIAPIKey)
	viper.SetDefault("INV_OPENAI_MODEL", config.OpenAIModel)
	viper.SetDefault("INV_OPENAI_BASE_URL", config.OpenAIBaseURL)
	viper.SetDefault("INV_OPENAI_MAX_TOKENS", config.OpenAIMaxTokens)
	viper.SetDefault("INV_OPENAI_TEMPERATURE", config.OpenAITemperature)
	viper.SetDefault("INV_OPENAI_USE_RESPONSES_API", config.OpenAIUseResponsesAPI)
	viper.SetDefault("INV_OPENAI_STORE", config.OpenAIStore)
	viper.SetDefault("INV_OPENAI_REASONING_EFFORT", config.OpenAIReasoningEffort)
	viper.SetDefault("INV_CLOUD_PROVIDER", config.CloudProvider)
	viper.SetDefault("INV_AZURE_STORAGE_CONNECTION_STRING", config.AzureStorageConnectionString)
	viper.SetDefault("INV_AZURE_STORAGE_ACCOUNT_NAME", config.AzureStorageAccountName)
	viper.SetDefault("INV_AZURE_STORAGE_ACCOUNT_KEY", config.AzureStorageAccountKey)
	viper.SetDefault("INV_AZURE_STORAGE_CONTAINER_NAME", config.AzureStorageContainerName)
	viper.SetDefault("INV_AZURE_STORAGE_BASE_URL", config.AzureStorageBaseURL)
	viper.SetDefault("INV_AZURE_STORAGE_USE_HTTPS", config.AzureStorageUseHTTPS)

	// Override config values with environment variables
	viper.AutomaticEnv()
	err = viper.Unmarshal(&config)
	return
}

// ConfigFromFile will look for the specified configuration file in the current directory and initialize
// a Config from it. Values provided by environment variables will override ones found in
// the file. See package docs for a list of available environment variables.
func ConfigFromFile(f string) (config Config, err error) {
	if config, err = ConfigFromEnvironment(); err != nil {
		return
	}

	viper.AddConfigPath(".")
	viper.SetConfigFile(f)
	viper.SetConfigType("env")

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)

	return
}

// Fiber initializes and returns a Fiber config based on server config values.
// See https://docs.gofiber.io/api/fiber#config
func (c Config) Fiber() fiber.Config {
	return fiber.Config{
		ReadTimeout: time.Second * time.Duration(c.ServerReadTimeout),
		BodyLimit:   10 * 1024 * 1024, // 10MB, enough for a resized receipt photo
	}
}

// DbConnectionString generates a connection string for the database based on config values.
func (c Config) DbConnectionString() string {
	return fmt.Sprintf("postgresql://%s:%s@%s:%d/%s?sslmode=%s", c.DbUser, url.QueryEscape(c.DbPassword), c.DbHost, c.DbPort, c.DbDatabaseName, c.DbSSLMode)
}

// RedisAddress generates the host:port address for the Redis cache backend.
func (c Config) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// GetSlogLevel converts the string log level to slog.Level.
func (c Config) GetSlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo // default fallback
	}
}

// GetOpenAIConfig converts config values to OpenAI configuration struct.
func (c Config) GetOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		APIKey:          c.OpenAIAPIKey,
		Model:           c.OpenAIModel,
		BaseURL:         c.OpenAIBaseURL,
		MaxTokens:       c.OpenAIMaxTokens,
		Temperature:     c.OpenAITemperature,
		UseResponsesAPI: c.OpenAIUseResponsesAPI,
		Store:           c.OpenAIStore,
		ReasoningEffort: c.OpenAIReasoningEffort,
	}
}

// OpenAIConfig holds OpenAI client configuration
type OpenAIConfig struct {
	APIKey          string
	Model           string // e.g., "gpt-5", "gpt-5-nano"
	BaseURL         string // for switching to local models later
	MaxTokens       int
	Temperature     float64
	UseResponsesAPI bool   // Use new Responses API instead of Chat Completions
	Store           bool   // Enable stateful context for better reasoning
	ReasoningEffort string // "low", "medium", "high" for GPT-5 reasoning
}

// GetOCRConfig converts config values to OCR provider configuration struct.
func (c Config) GetOCRConfig() OCRConfig {
	return OCRConfig{
		APIURL:    c.OCRAPIURL,
		SecretKey: c.OCRSecretKey,
		LineGapPx: c.OCRLineGapPx,
	}
}

// OCRConfig holds the receipt OCR provider configuration
type OCRConfig struct {
	APIURL    string
	SecretKey string
	LineGapPx int // y-gap threshold for line reconstruction, a tunable not a derived value
}

// GetProvidersConfig converts config values to barcode provider configuration struct.
func (c Config) GetProvidersConfig() ProvidersConfig {
	return ProvidersConfig{
		OpenFoodFactsBaseURL: c.OpenFoodFactsBaseURL,
		FoodQRBaseURL:        c.FoodQRBaseURL,
		FoodQRAPIKey:         c.FoodQRAPIKey,
		FoodSafetyBaseURL:    c.FoodSafetyBaseURL,
		FoodSafetyAPIKey:     c.FoodSafetyAPIKey,
		Timeout:              c.ProviderTimeout,
	}
}

// ProvidersConfig holds the external barcode provider configuration
type ProvidersConfig struct {
	OpenFoodFactsBaseURL string
	FoodQRBaseURL        string
	FoodQRAPIKey         string
	FoodSafetyBaseURL    string
	FoodSafetyAPIKey     string
	Timeout              time.Duration
}

// GetCacheConfig converts config values to receipt cache configuration struct.
func (c Config) GetCacheConfig() CacheConfig {
	return CacheConfig{
		Backend:   c.CacheBackend,
		MemoryTTL: c.CacheMemoryTTL,
		MaxSize:   c.CacheMaxSize,
	}
}

// CacheConfig holds the volatile cache tier configuration
type CacheConfig struct {
	Backend   string // memory or redis
	MemoryTTL time.Duration
	MaxSize   int
}

// GetCloudConfig converts config values to cloud storage configuration struct.
func (c Config) GetCloudConfig() CloudConfig {
	return CloudConfig{
		Provider: c.CloudProvider,
		Azure: AzureCloudConfig{
			StorageAccountName: c.AzureStorageAccountName,
			StorageAccountKey:  c.AzureStorageAccountKey,
			ConnectionString:   c.AzureStorageConnectionString,
			ContainerName:      c.AzureStorageContainerName,
			BaseURL:            c.AzureStorageBaseURL,
			UseHTTPS:           c.AzureStorageUseHTTPS,
		},
	}
}

// CloudConfig holds cloud storage configuration
type CloudConfig struct {
	Provider string
	Azure    AzureCloudConfig
	// AWS and GCP configs can be added later
}

// AzureCloudConfig holds Azure Blob Storage specific configuration
type AzureCloudConfig struct {
	StorageAccountName string
	StorageAccountKey  string
	ConnectionString   string
	ContainerName      string
	BaseURL            string
	UseHTTPS           bool
}

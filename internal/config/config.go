package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App     AppConfig
	Backend BackendConfig
	Journal JournalConfig
	Engine  EngineConfig
	Payment PaymentConfig
	CORS    CORSConfig
}

type AppConfig struct {
	Name  string
	Env   string
	Port  string
	Debug bool
}

// BackendConfig points at the upstream billing API this service fronts.
type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

// JournalConfig locates the local submission journal database.
type JournalConfig struct {
	Path string
}

// EngineConfig tunes the load and refresh machinery.
type EngineConfig struct {
	// Tolerance is the money comparison tolerance for reconciliation,
	// as a decimal string.
	Tolerance string
	// RefreshInterval is the minimum spacing between coarse refreshes of
	// the same scope.
	RefreshInterval time.Duration
	// FilterQuiet is the quiet period before a staged filter batch commits.
	FilterQuiet time.Duration
	// ConvergenceDelay is the settle window before the post-write trailing
	// reload.
	ConvergenceDelay time.Duration
}

// PaymentConfig tunes the payment submitter.
type PaymentConfig struct {
	// Ceiling caps a single payment amount, as a decimal string.
	Ceiling string
	// Timezone anchors the calendar day used by the duplicate probe.
	Timezone string
	Timeout  time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

func Load() *Config {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables: %v", err)
	}

	// Set defaults
	viper.SetDefault("APP_NAME", "ledgerflow-api")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("APP_DEBUG", true)
	viper.SetDefault("BACKEND_BASE_URL", "http://localhost:9000/api")
	viper.SetDefault("BACKEND_TIMEOUT_SECONDS", 15)
	viper.SetDefault("JOURNAL_PATH", "./storage/submissions.db")
	viper.SetDefault("RECONCILE_TOLERANCE", "0.01")
	viper.SetDefault("REFRESH_INTERVAL_MS", 2000)
	viper.SetDefault("FILTER_QUIET_MS", 800)
	viper.SetDefault("CONVERGENCE_DELAY_MS", 2000)
	viper.SetDefault("PAYMENT_CEILING", "1000000")
	viper.SetDefault("PAYMENT_TIMEZONE", "Africa/Nairobi")
	viper.SetDefault("PAYMENT_TIMEOUT_SECONDS", 30)
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("CORS_ALLOWED_HEADERS", []string{})

	return &Config{
		App: AppConfig{
			Name:  viper.GetString("APP_NAME"),
			Env:   viper.GetString("APP_ENV"),
			Port:  viper.GetString("APP_PORT"),
			Debug: viper.GetBool("APP_DEBUG"),
		},
		Backend: BackendConfig{
			BaseURL: viper.GetString("BACKEND_BASE_URL"),
			Timeout: time.Duration(viper.GetInt("BACKEND_TIMEOUT_SECONDS")) * time.Second,
		},
		Journal: JournalConfig{
			Path: viper.GetString("JOURNAL_PATH"),
		},
		Engine: EngineConfig{
			Tolerance:        viper.GetString("RECONCILE_TOLERANCE"),
			RefreshInterval:  time.Duration(viper.GetInt("REFRESH_INTERVAL_MS")) * time.Millisecond,
			FilterQuiet:      time.Duration(viper.GetInt("FILTER_QUIET_MS")) * time.Millisecond,
			ConvergenceDelay: time.Duration(viper.GetInt("CONVERGENCE_DELAY_MS")) * time.Millisecond,
		},
		Payment: PaymentConfig{
			Ceiling:  viper.GetString("PAYMENT_CEILING"),
			Timezone: viper.GetString("PAYMENT_TIMEZONE"),
			Timeout:  time.Duration(viper.GetInt("PAYMENT_TIMEOUT_SECONDS")) * time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigins: viper.GetStringSlice("CORS_ALLOWED_ORIGINS"),
			AllowedMethods: viper.GetStringSlice("CORS_ALLOWED_METHODS"),
			AllowedHeaders: viper.GetStringSlice("CORS_ALLOWED_HEADERS"),
		},
	}
}

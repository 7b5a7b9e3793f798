package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Mongo       MongoConfig
	Redis       RedisConfig
	Session     SessionConfig
	CORS        CORSConfig
	Log         LogConfig
	Quiz        QuizConfig
	Leaderboard LeaderboardConfig
	Exports     ExportsConfig
}

type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
	MaxPoolSize    uint64
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// SessionConfig governs signed session tokens issued after registration
// or auto-login.
type SessionConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// QuizConfig tunes question generation and competitive rating.
type QuizConfig struct {
	QuestionCount    int
	OptionCount      int
	BenchmarkSeconds float64
}

// LeaderboardConfig tunes read-path paging and the live snapshot feed.
type LeaderboardConfig struct {
	DefaultBatchSize int
	MaxBatchSize     int
	CursorSecret     string
	WatchEnabled     bool
}

// ExportsConfig controls standings export generation.
type ExportsConfig struct {
	Enabled bool
	MaxRows int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Mongo = MongoConfig{
		URI:            v.GetString("MONGO_URI"),
		Database:       v.GetString("MONGO_DATABASE"),
		ConnectTimeout: parseDuration(v.GetString("MONGO_CONNECT_TIMEOUT"), 10*time.Second),
		MaxPoolSize:    v.GetUint64("MONGO_MAX_POOL_SIZE"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Session = SessionConfig{
		Secret:     v.GetString("SESSION_SECRET"),
		Expiration: parseDuration(v.GetString("SESSION_EXPIRATION"), 30*24*time.Hour),
		Issuer:     v.GetString("SESSION_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Quiz = QuizConfig{
		QuestionCount:    v.GetInt("QUIZ_QUESTION_COUNT"),
		OptionCount:      v.GetInt("QUIZ_OPTION_COUNT"),
		BenchmarkSeconds: v.GetFloat64("QUIZ_BENCHMARK_SECONDS"),
	}

	cfg.Leaderboard = LeaderboardConfig{
		DefaultBatchSize: v.GetInt("LEADERBOARD_BATCH_SIZE"),
		MaxBatchSize:     v.GetInt("LEADERBOARD_MAX_BATCH_SIZE"),
		CursorSecret:     v.GetString("LEADERBOARD_CURSOR_SECRET"),
		WatchEnabled:     v.GetBool("LEADERBOARD_WATCH_ENABLED"),
	}

	cfg.Exports = ExportsConfig{
		Enabled: v.GetBool("ENABLE_EXPORTS"),
		MaxRows: v.GetInt("EXPORTS_MAX_ROWS"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "signalflags")
	v.SetDefault("MONGO_CONNECT_TIMEOUT", "10s")
	v.SetDefault("MONGO_MAX_POOL_SIZE", 20)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("SESSION_SECRET", "dev_secret")
	v.SetDefault("SESSION_EXPIRATION", "720h")
	v.SetDefault("SESSION_ISSUER", "signalflags-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("QUIZ_QUESTION_COUNT", 10)
	v.SetDefault("QUIZ_OPTION_COUNT", 4)
	v.SetDefault("QUIZ_BENCHMARK_SECONDS", 15)

	v.SetDefault("LEADERBOARD_BATCH_SIZE", 20)
	v.SetDefault("LEADERBOARD_MAX_BATCH_SIZE", 100)
	v.SetDefault("LEADERBOARD_CURSOR_SECRET", "dev_cursor_secret")
	v.SetDefault("LEADERBOARD_WATCH_ENABLED", false)

	v.SetDefault("ENABLE_EXPORTS", false)
	v.SetDefault("EXPORTS_MAX_ROWS", 500)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

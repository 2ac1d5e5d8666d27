package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server settings
	ServerPort   string        `json:"server_port"`
	ServerName   string        `json:"server_name"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
	Debug        bool          `json:"debug"`
	Env          string        `json:"env"`

	// Application paths
	LogDir  string `json:"log_dir"`
	DataDir string `json:"data_dir"`
	TempDir string `json:"temp_dir"`

	CORS      CORSConfig      `json:"cors"`
	RateLimit RateLimitConfig `json:"rate_limit"`
	Database  DatabaseConfig  `json:"database"`

	Ledger        LedgerConfig        `json:"ledger"`
	Cache         CacheConfig         `json:"cache"`
	YouTube       YouTubeConfig       `json:"youtube"`
	Transcription TranscriptionConfig `json:"transcription"`
	LLM           LLMConfig           `json:"llm"`
	Prompts       PromptsConfig       `json:"prompts"`
	Session       SessionConfig       `json:"session"`
	Backup        BackupConfig        `json:"backup"`

	Version string `json:"version"`

	RequestTimeout  time.Duration `json:"request_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

type CORSConfig struct {
	Enabled          bool     `json:"enabled"`
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	ExposedHeaders   []string `json:"exposed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
	MaxAge           int      `json:"max_age"`
}

type RateLimitConfig struct {
	Enabled           bool `json:"enabled"`
	RequestsPerMinute int  `json:"requests_per_minute"`
	BurstSize         int  `json:"burst_size"`
}

type DatabaseConfig struct {
	Path               string        `json:"path"`
	MaxConnections     int           `json:"max_connections"`
	MaxIdleConnections int           `json:"max_idle_connections"`
	ConnMaxLifetime    time.Duration `json:"conn_max_lifetime"`
}

type LedgerConfig struct {
	HistoryPath  string `json:"history_path"`
	CostsPath    string `json:"costs_path"`
	HistoryLimit int    `json:"history_limit"`
	CostsLimit   int    `json:"costs_limit"`
}

type CacheConfig struct {
	Dir                  string        `json:"dir"`
	MaxRequestsPerSecond float64       `json:"max_requests_per_second"`
	MaxJitter            time.Duration `json:"max_jitter"`
}

type YouTubeConfig struct {
	APIKey          string `json:"-"`
	DefaultLanguage string `json:"default_language"`
}

type TranscriptionConfig struct {
	YTDLPPath      string        `json:"ytdlp_path"`
	PDFToTextPath  string        `json:"pdftotext_path"`
	AudioDir       string        `json:"audio_dir"`
	WhisperURL     string        `json:"whisper_url"`
	WhisperAPIKey  string        `json:"-"`
	WhisperModel   string        `json:"whisper_model"`
	PricePerMinute float64       `json:"price_per_minute"`
	MaxUploadBytes int64         `json:"max_upload_bytes"`
	ProcessTimeout time.Duration `json:"process_timeout"`
}

type LLMConfig struct {
	APIKey             string  `json:"-"`
	Model              string  `json:"model"`
	InputPricePerMTok  float64 `json:"input_price_per_mtok"`
	OutputPricePerMTok float64 `json:"output_price_per_mtok"`
}

type PromptsConfig struct {
	Path string `json:"path"`
}

type SessionConfig struct {
	MaxSessions int    `json:"max_sessions"`
	CookieName  string `json:"cookie_name"`
}

type BackupConfig struct {
	Enabled   bool   `json:"enabled"`
	Endpoint  string `json:"endpoint"`
	Region    string `json:"region"`
	Bucket    string `json:"bucket"`
	Prefix    string `json:"prefix"`
	AccessKey string `json:"-"`
	SecretKey string `json:"-"`
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first; variables already set take precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	dataDir := getEnv("DATA_DIR", "./data")
	tempDir := getEnv("TEMP_DIR", filepath.Join(os.TempDir(), "yt-digest"))

	cfg := &Config{
		ServerPort:   getEnv("SERVER_PORT", "8080"),
		ServerName:   getEnv("SERVER_NAME", hostname()),
		ReadTimeout:  getEnvAsDuration("READ_TIMEOUT", 15*time.Second),
		WriteTimeout: getEnvAsDuration("WRITE_TIMEOUT", 30*time.Minute),
		IdleTimeout:  getEnvAsDuration("IDLE_TIMEOUT", 60*time.Second),
		Debug:        getEnvAsBool("DEBUG", false),
		Env:          getEnv("ENV", "development"),

		LogDir:  getEnv("LOG_DIR", "./logs"),
		DataDir: dataDir,
		TempDir: tempDir,

		Version: getEnv("VERSION", "1.0.0"),

		RequestTimeout:  getEnvAsDuration("REQUEST_TIMEOUT", 30*time.Minute),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		CORS: CORSConfig{
			Enabled:        getEnvAsBool("CORS_ENABLED", true),
			AllowedOrigins: getEnvAsStringSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsStringSlice(
				"CORS_ALLOWED_METHODS",
				[]string{"GET", "POST", "DELETE", "OPTIONS"},
			),
			AllowedHeaders: getEnvAsStringSlice(
				"CORS_ALLOWED_HEADERS",
				[]string{"Content-Type", "X-Session-ID", "X-Request-ID"},
			),
			ExposedHeaders:   getEnvAsStringSlice("CORS_EXPOSED_HEADERS", []string{"X-Session-ID"}),
			AllowCredentials: getEnvAsBool("CORS_ALLOW_CREDENTIALS", false),
			MaxAge:           getEnvAsInt("CORS_MAX_AGE", 86400),
		},

		RateLimit: RateLimitConfig{
			Enabled:           getEnvAsBool("RATE_LIMIT_ENABLED", true),
			RequestsPerMinute: getEnvAsInt("RATE_LIMIT_RPM", 120),
			BurstSize:         getEnvAsInt("RATE_LIMIT_BURST", 20),
		},

		Database: DatabaseConfig{
			Path:               getEnv("DB_PATH", filepath.Join(dataDir, "runs.db")),
			MaxConnections:     getEnvAsInt("DB_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DB_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    getEnvAsDuration("DB_CONN_MAX_LIFETIME", time.Hour),
		},

		Ledger: LedgerConfig{
			HistoryPath:  getEnv("HISTORY_FILE", filepath.Join(dataDir, "history.json")),
			CostsPath:    getEnv("COSTS_FILE", filepath.Join(dataDir, "costs.json")),
			HistoryLimit: getEnvAsInt("HISTORY_LIMIT", 100),
			CostsLimit:   getEnvAsInt("COSTS_LIMIT", 1000),
		},

		Cache: CacheConfig{
			Dir:                  getEnv("CACHE_DIR", filepath.Join(dataDir, "cache")),
			MaxRequestsPerSecond: getEnvAsFloat("YOUTUBE_MAX_RPS", 2),
			MaxJitter:            getEnvAsDuration("YOUTUBE_MAX_JITTER", 250*time.Millisecond),
		},

		YouTube: YouTubeConfig{
			APIKey:          getEnv("YOUTUBE_API_KEY", ""),
			DefaultLanguage: getEnv("DEFAULT_LANGUAGE", "en"),
		},

		Transcription: TranscriptionConfig{
			YTDLPPath:      getEnv("YTDLP_PATH", "yt-dlp"),
			PDFToTextPath:  getEnv("PDFTOTEXT_PATH", "pdftotext"),
			AudioDir:       getEnv("AUDIO_DIR", filepath.Join(tempDir, "audio")),
			WhisperURL:     getEnv("WHISPER_URL", "https://api.openai.com/v1/audio/transcriptions"),
			WhisperAPIKey:  getEnv("OPENAI_API_KEY", ""),
			WhisperModel:   getEnv("WHISPER_MODEL", "whisper-1"),
			PricePerMinute: getEnvAsFloat("WHISPER_PRICE_PER_MINUTE", 0.006),
			MaxUploadBytes: getEnvAsInt64("MAX_UPLOAD_BYTES", 25*1024*1024),
			ProcessTimeout: getEnvAsDuration("PROCESS_TIMEOUT", 20*time.Minute),
		},

		LLM: LLMConfig{
			APIKey:             getEnv("GEMINI_API_KEY", ""),
			Model:              getEnv("LLM_MODEL", "gemini-2.5-flash"),
			InputPricePerMTok:  getEnvAsFloat("LLM_INPUT_PRICE_PER_MTOK", 0.30),
			OutputPricePerMTok: getEnvAsFloat("LLM_OUTPUT_PRICE_PER_MTOK", 2.50),
		},

		Prompts: PromptsConfig{
			Path: getEnv("PROMPTS_FILE", filepath.Join(dataDir, "prompts.yaml")),
		},

		Session: SessionConfig{
			MaxSessions: getEnvAsInt("MAX_SESSIONS", 256),
			CookieName:  getEnv("SESSION_COOKIE", "session_id"),
		},

		Backup: BackupConfig{
			Enabled:   getEnvAsBool("BACKUP_ENABLED", false),
			Endpoint:  getEnv("BACKUP_ENDPOINT", ""),
			Region:    getEnv("BACKUP_REGION", "us-east-1"),
			Bucket:    getEnv("BACKUP_BUCKET", ""),
			Prefix:    getEnv("BACKUP_PREFIX", "yt-digest"),
			AccessKey: getEnv("BACKUP_ACCESS_KEY", ""),
			SecretKey: getEnv("BACKUP_SECRET_KEY", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) Validate() error {
	if err := validatePaths(c); err != nil {
		return err
	}

	if err := validateTimeouts(c); err != nil {
		return err
	}

	if err := validateLimits(c); err != nil {
		return err
	}

	return validateBackup(c)
}

func validatePaths(c *Config) error {
	paths := []struct {
		path string
		name string
	}{
		{c.LogDir, "log directory"},
		{c.DataDir, "data directory"},
		{c.TempDir, "temp directory"},
		{c.Cache.Dir, "cache directory"},
		{c.Transcription.AudioDir, "audio directory"},
		{filepath.Dir(c.Database.Path), "database directory"},
		{filepath.Dir(c.Ledger.HistoryPath), "history directory"},
		{filepath.Dir(c.Ledger.CostsPath), "costs directory"},
	}

	for _, p := range paths {
		if err := os.MkdirAll(p.path, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", p.name, err)
		}
	}

	return nil
}

func validateTimeouts(c *Config) error {
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive")
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}
	return nil
}

func validateLimits(c *Config) error {
	if c.Ledger.HistoryLimit <= 0 || c.Ledger.CostsLimit <= 0 {
		return fmt.Errorf("ledger limits must be positive")
	}
	if c.Cache.MaxRequestsPerSecond < 0 {
		return fmt.Errorf("max requests per second must not be negative")
	}
	if c.Cache.MaxJitter < 0 {
		return fmt.Errorf("max jitter must not be negative")
	}
	if c.Session.MaxSessions <= 0 {
		return fmt.Errorf("max sessions must be positive")
	}
	return nil
}

func validateBackup(c *Config) error {
	if !c.Backup.Enabled {
		return nil
	}
	if c.Backup.Bucket == "" || c.Backup.Endpoint == "" {
		return fmt.Errorf("backup bucket and endpoint are required when backups are enabled")
	}
	return nil
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return "yt-digest"
	}
	return name
}

// Helper functions for reading environment variables
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsStringSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists {
		if value = strings.TrimSpace(value); value != "" {
			return strings.Split(value, ",")
		}
	}
	return defaultValue
}

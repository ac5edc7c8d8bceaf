package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the configuration for the similarity service
type Config struct {
	Server     ServerConfig
	Storage    StorageConfig
	Matching   MatchingConfig
	Web        WebConfig
	Politeness PolitenessConfig
	Log        LogConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxUploadBytes int64
}

// StorageConfig selects the library backend: memory, file or sqlite
type StorageConfig struct {
	Backend string
	Dir     string
}

// MatchingConfig holds analysis profile configuration
type MatchingConfig struct {
	DefaultProfile  string
	ProfilesFile    string
	ReportCacheSize int
}

// WebConfig holds web scan configuration
type WebConfig struct {
	SerpAPIKey      string
	SearchURL       string
	Language        string
	Country         string
	SearchTimeout   time.Duration
	ResultsPerChunk int
	QuickChunks     int
	DeepChunks      int
	FetchPages      bool
	MaxPageBytes    int64
	MaxHits         int
	MinHitScore     float64
}

// PolitenessConfig holds politeness gate configuration
type PolitenessConfig struct {
	MinDelay            time.Duration
	DomainConcurrency   int
	RequestTimeout      time.Duration
	RobotsCacheDuration time.Duration
	EnableRobotsCheck   bool
	UserAgent           string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// Web scan modes
const (
	ModeQuick = "quick"
	ModeDeep  = "deep"
)

// ChunksFor returns how many search chunks a web scan mode submits.
func (w WebConfig) ChunksFor(mode string) (int, bool) {
	switch strings.ToLower(mode) {
	case ModeQuick, "":
		return w.QuickChunks, true
	case ModeDeep:
		return w.DeepChunks, true
	}
	return 0, false
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           GetStringEnv("SERVER_ADDR", ":8080"),
			ReadTimeout:    GetDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:   GetDurationEnv("SERVER_WRITE_TIMEOUT", 5*time.Minute),
			MaxUploadBytes: int64(GetIntEnv("SERVER_MAX_UPLOAD_BYTES", 32<<20)),
		},
		Storage: StorageConfig{
			Backend: GetStringEnv("STORAGE_BACKEND", "file"),
			Dir:     GetStringEnv("STORAGE_DIR", "./data/library"),
		},
		Matching: MatchingConfig{
			DefaultProfile:  GetStringEnv("VERITAS_DEFAULT_PROFILE", ProfileStandard),
			ProfilesFile:    GetStringEnv("VERITAS_PROFILES_FILE", ""),
			ReportCacheSize: GetIntEnv("VERITAS_REPORT_CACHE_SIZE", 100),
		},
		Web: WebConfig{
			SerpAPIKey:      GetStringEnv("SERPAPI_KEY", ""),
			SearchURL:       GetStringEnv("SERPAPI_URL", "https://serpapi.com/search.json"),
			Language:        GetStringEnv("WEB_LANGUAGE", "pt"),
			Country:         GetStringEnv("WEB_COUNTRY", "br"),
			SearchTimeout:   GetDurationEnv("WEB_SEARCH_TIMEOUT", 20*time.Second),
			ResultsPerChunk: GetIntEnv("WEB_RESULTS_PER_CHUNK", 5),
			QuickChunks:     GetIntEnv("WEB_QUICK_CHUNKS", 5),
			DeepChunks:      GetIntEnv("WEB_DEEP_CHUNKS", 15),
			FetchPages:      GetBoolEnv("WEB_FETCH_PAGES", true),
			MaxPageBytes:    int64(GetIntEnv("WEB_MAX_PAGE_BYTES", 2<<20)),
			MaxHits:         GetIntEnv("WEB_MAX_HITS", 20),
			MinHitScore:     GetFloatEnv("WEB_MIN_HIT_SCORE", 0.1),
		},
		Politeness: PolitenessConfig{
			MinDelay:            GetDurationEnv("POLITENESS_MIN_DELAY", 1*time.Second),
			DomainConcurrency:   GetIntEnv("POLITENESS_DOMAIN_CONCURRENCY", 2),
			RequestTimeout:      GetDurationEnv("POLITENESS_REQUEST_TIMEOUT", 15*time.Second),
			RobotsCacheDuration: GetDurationEnv("POLITENESS_ROBOTS_CACHE_DURATION", 24*time.Hour),
			EnableRobotsCheck:   GetBoolEnv("POLITENESS_ENABLE_ROBOTS_CHECK", true),
			UserAgent:           GetStringEnv("POLITENESS_USER_AGENT", "Veritas-Scanner/1.0"),
		},
		Log: LogConfig{
			Level: GetStringEnv("LOG_LEVEL", "info"),
		},
	}
}

func GetStringEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func GetIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func GetFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func GetBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func GetDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

package config

import (
    "os"
    "strconv"
    "strings"
    "time"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
    Level      string
    Pretty     bool
    File       string
    MaxSizeMB  int
    MaxBackups int
    MaxAgeDays int
    Compress   bool
}

// AxiomConfig holds Axiom logging configuration.
type AxiomConfig struct {
    Send          bool
    APIKey        string
    OrgID         string
    Dataset       string
    FlushInterval time.Duration
}

// CacheConfig defines the thumbnail cache tiers.
type CacheConfig struct {
    Dir            string
    MemoryCapacity int
    MaxAge         time.Duration
    CleanupEvery   time.Duration
}

// ThumbnailConfig defines thumbnail rendering parameters.
type ThumbnailConfig struct {
    MaxSize int
    Quality int
}

// EngineConfig defines arrangement and partition behavior.
type EngineConfig struct {
    UndoDepth       int
    SmartThreshold  int
    AllowEmpty      bool
    AssemblyWorkers int
}

// StoreConfig defines job status store connectivity.
type StoreConfig struct {
    RedisURL string
}

// OutputConfig defines where assembled documents land.
type OutputConfig struct {
    Dir      string
    S3Bucket string
}

// Config is the top-level configuration.
type Config struct {
    Logging   LoggingConfig
    Axiom     AxiomConfig
    Cache     CacheConfig
    Thumbnail ThumbnailConfig
    Engine    EngineConfig
    Store     StoreConfig
    Output    OutputConfig
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
    cfg := Config{}

    // Logging defaults
    cfg.Logging = LoggingConfig{
        Level:      getEnv("LOG_LEVEL", "info"),
        Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
        File:       getEnv("LOG_FILE", "logs/pageforge.log"),
        MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
        MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
        MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
        Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
    }

    // Axiom defaults
    baseDataset := getEnv("AXIOM_DATASET", "dev")
    cfg.Axiom = AxiomConfig{
        Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
        APIKey:        getEnv("AXIOM_API_KEY", ""),
        OrgID:         getEnv("AXIOM_ORG_ID", ""),
        Dataset:       baseDataset + "_pageforge",
        FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
    }

    // Cache defaults
    cfg.Cache = CacheConfig{
        Dir:            getEnv("CACHE_DIR", defaultCacheDir()),
        MemoryCapacity: parseInt(getEnv("CACHE_MEMORY_CAPACITY", "500"), 500),
        MaxAge:         parseDuration(getEnv("CACHE_MAX_AGE", "24h"), 24*time.Hour),
        CleanupEvery:   parseDuration(getEnv("CACHE_CLEANUP_INTERVAL", "1h"), time.Hour),
    }

    // Thumbnail defaults
    cfg.Thumbnail = ThumbnailConfig{
        MaxSize: parseInt(getEnv("THUMBNAIL_MAX_SIZE", "200"), 200),
        Quality: parseInt(getEnv("THUMBNAIL_QUALITY", "85"), 85),
    }

    // Engine defaults
    cfg.Engine = EngineConfig{
        UndoDepth:       parseInt(getEnv("UNDO_DEPTH", "100"), 100),
        SmartThreshold:  parseInt(getEnv("SMART_SPLIT_THRESHOLD", "50"), 50),
        AllowEmpty:      parseBool(getEnv("ALLOW_EMPTY_ARRANGEMENT", "0")),
        AssemblyWorkers: parseInt(getEnv("ASSEMBLY_WORKERS", "2"), 2),
    }

    // Store defaults; empty RedisURL falls back to the in-memory status store
    cfg.Store = StoreConfig{
        RedisURL: getEnv("REDIS_URL", ""),
    }

    // Output defaults
    cfg.Output = OutputConfig{
        Dir:      getEnv("OUTPUT_DIR", "output"),
        S3Bucket: getEnv("AWS_S3_BUCKET", ""),
    }

    return cfg
}

// Helpers
func getEnv(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

func parseInt(s string, def int) int {
    if s == "" { return def }
    if n, err := strconv.Atoi(s); err == nil { return n }
    return def
}

func parseBool(s string) bool {
    v := strings.ToLower(strings.TrimSpace(s))
    return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
    if s == "" { return def }
    if d, err := time.ParseDuration(s); err == nil { return d }
    return def
}

func defaultCacheDir() string {
    if d := os.TempDir(); d != "" {
        return d + "/pageforge"
    }
    return "/tmp/pageforge"
}

func devDefaultPretty() string {
    env := strings.ToLower(os.Getenv("ENVIRONMENT"))
    if env == "dev" || env == "development" || env == "local" { return "true" }
    return "false"
}

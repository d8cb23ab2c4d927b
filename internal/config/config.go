package config

import "time"

// Config is the root configuration shared by the pipeline and the dashboard.
type Config struct {
	Log       LogConfig       `yaml:"log"`
	API       APIConfig       `yaml:"api"`
	Storage   StorageConfig   `yaml:"storage"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Database  DBConfig        `yaml:"database"`
	Cache     CacheConfig     `yaml:"cache"`
	Dashboard DashboardConfig `yaml:"dashboard"`
}

// LogConfig controls the slog handler installed by the binaries.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// APIConfig holds CoinCap REST settings. Zero values take the defaults; a
// negative MaxRetries disables retries and a negative RateLimit removes the cap.
type APIConfig struct {
	RestURL    string        `yaml:"rest_url"`
	APIKey     string        `yaml:"api_key"` // optional, sent as Bearer token
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
	RateLimit  float64       `yaml:"rate_limit"` // requests per second
}

// Retries returns the client retry count.
func (a APIConfig) Retries() int {
	return max(a.MaxRetries, 0)
}

// RequestsPerSecond returns the client rate limit; 0 means unlimited.
func (a APIConfig) RequestsPerSecond() float64 {
	return max(a.RateLimit, 0)
}

// StorageConfig holds the S3-compatible object store settings.
type StorageConfig struct {
	Endpoint     string `yaml:"endpoint"` // URL, e.g. http://minio:9000
	AccessKey    string `yaml:"access_key"`
	SecretKey    string `yaml:"secret_key"`
	Bucket       string `yaml:"bucket"`
	Region       string `yaml:"region"`
	CreateBucket bool   `yaml:"create_bucket"`
}

// PipelineConfig holds the daily task graph settings.
type PipelineConfig struct {
	Currencies      []string      `yaml:"currencies"`
	HistoryInterval string        `yaml:"history_interval"`
	Retries         int           `yaml:"retries"`
	RetryDelay      time.Duration `yaml:"retry_delay"`
	RunTimeout      time.Duration `yaml:"run_timeout"`
	RunOnStart      *bool         `yaml:"run_on_start"`

	// DashboardCommand is started as the last step of a run. Empty disables the step.
	DashboardCommand []string `yaml:"dashboard_command"`
}

// ShouldRunOnStart reports whether the scheduler fires a run immediately.
func (p PipelineConfig) ShouldRunOnStart() bool {
	return p.RunOnStart == nil || *p.RunOnStart
}

// DBConfig holds the optional PostgreSQL run ledger connection.
// An empty Host disables the ledger.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// Enabled reports whether a ledger database is configured.
func (db DBConfig) Enabled() bool {
	return db.Host != ""
}

// CacheConfig holds the optional Redis cache used by the dashboard.
// An empty Addr disables caching.
type CacheConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// Enabled reports whether a cache is configured.
func (c CacheConfig) Enabled() bool {
	return c.Addr != ""
}

// DashboardConfig holds the dashboard HTTP server settings.
type DashboardConfig struct {
	ListenAddr      string `yaml:"listen_addr"`
	DefaultAsset    string `yaml:"default_asset"`
	DefaultExchange string `yaml:"default_exchange"`
	MarketsCurrency string `yaml:"markets_currency"` // currency whose markets table backs the assets page
	MarketsPageSize int    `yaml:"markets_page_size"`
}

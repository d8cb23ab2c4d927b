package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultLogLevel        = "info"
	DefaultRestURL         = "https://api.coincap.io/v2"
	DefaultAPITimeout      = 30 * time.Second
	DefaultMaxRetries      = 3
	DefaultRateLimit       = 2.0
	DefaultBucket          = "bucket1"
	DefaultRegion          = "us-east-1"
	DefaultHistoryInterval = "d1"
	DefaultRetries         = 2
	DefaultRetryDelay      = 10 * time.Second
	DefaultRunTimeout      = 10 * time.Minute
	DefaultDBPort          = 5432
	DefaultDBSSLMode       = "prefer"
	DefaultMaxConns        = 4
	DefaultMinConns        = 1
	DefaultCacheTTL        = 6 * time.Hour
	DefaultListenAddr      = ":8050"
	DefaultAsset           = "Bitcoin"
	DefaultExchange        = "Binance"
	DefaultMarketsCurrency = "bitcoin"
	DefaultMarketsPageSize = 10
)

// DefaultCurrencies are the assets whose markets and history are fetched.
var DefaultCurrencies = []string{"bitcoin", "ethereum", "ripple", "bitcoin-cash", "cardano", "tether"}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}

	// API defaults
	if c.API.RestURL == "" {
		c.API.RestURL = DefaultRestURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = DefaultMaxRetries
	}
	if c.API.RateLimit == 0 {
		c.API.RateLimit = DefaultRateLimit
	}

	// Storage defaults
	if c.Storage.Bucket == "" {
		c.Storage.Bucket = DefaultBucket
	}
	if c.Storage.Region == "" {
		c.Storage.Region = DefaultRegion
	}

	// Pipeline defaults
	if len(c.Pipeline.Currencies) == 0 {
		c.Pipeline.Currencies = append([]string(nil), DefaultCurrencies...)
	}
	if c.Pipeline.HistoryInterval == "" {
		c.Pipeline.HistoryInterval = DefaultHistoryInterval
	}
	if c.Pipeline.Retries == 0 {
		c.Pipeline.Retries = DefaultRetries
	}
	if c.Pipeline.RetryDelay == 0 {
		c.Pipeline.RetryDelay = DefaultRetryDelay
	}
	if c.Pipeline.RunTimeout == 0 {
		c.Pipeline.RunTimeout = DefaultRunTimeout
	}

	// Database defaults only matter when the ledger is enabled
	if c.Database.Enabled() {
		applyDBDefaults(&c.Database)
	}

	if c.Cache.Enabled() && c.Cache.TTL == 0 {
		c.Cache.TTL = DefaultCacheTTL
	}

	// Dashboard defaults
	if c.Dashboard.ListenAddr == "" {
		c.Dashboard.ListenAddr = DefaultListenAddr
	}
	if c.Dashboard.DefaultAsset == "" {
		c.Dashboard.DefaultAsset = DefaultAsset
	}
	if c.Dashboard.DefaultExchange == "" {
		c.Dashboard.DefaultExchange = DefaultExchange
	}
	if c.Dashboard.MarketsCurrency == "" {
		c.Dashboard.MarketsCurrency = DefaultMarketsCurrency
	}
	if c.Dashboard.MarketsPageSize == 0 {
		c.Dashboard.MarketsPageSize = DefaultMarketsPageSize
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}

package config

import "time"

// Config represents the full config for one Printful source run
type Config struct {
	Name        string      `yaml:"name"`             // Optional run label, used as log prefix
	Source      Source      `yaml:"source"`           // Required Printful API configuration
	Assets      Assets      `yaml:"assets"`           // Remote image handling
	Destination Destination `yaml:"destination"`      // Node store
	Output      string      `yaml:"output,omitempty"` // Optional JSON dump of the node graph
}

// Source represents the Printful API config
type Source struct {
	BaseURL     string        `yaml:"base_url" validate:"required,url"`
	APIKey      string        `yaml:"api_key" validate:"required"`
	Auth        AuthType      `yaml:"auth" validate:"oneof=bearer basic"`
	StoreID     string        `yaml:"store_id,omitempty"` // Selects the store for account-level tokens
	PageSize    int           `yaml:"page_size" validate:"min=10,max=100"`
	Concurrency int           `yaml:"concurrency" validate:"min=1,max=64"`
	RateLimit   int           `yaml:"rate_limit"`               // Requests per minute, negative disables pacing
	Timeout     time.Duration `yaml:"timeout" validate:"min=0"` // Per attempt
	Retry       RetryConfig   `yaml:"retry"`
}

// AuthType defines how the API key is presented to Printful
type AuthType string

const (
	AuthTypeBearer AuthType = "bearer"
	AuthTypeBasic  AuthType = "basic"
)

// RetryConfig controls retries of transient API failures
type RetryConfig struct {
	MaxAttempts       int     `yaml:"max_attempts" validate:"min=1,max=10"`
	InitialBackoff    float64 `yaml:"initial_backoff" validate:"gte=0"`    // seconds
	BackoffMultiplier float64 `yaml:"backoff_multiplier" validate:"gte=1"` // growth per attempt
	RetryableStatuses []int   `yaml:"retryable_statuses" validate:"dive,min=400,max=599"`
}

// Assets configures remote image downloads
type Assets struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Dir     string `yaml:"dir"`
}

// DownloadsEnabled reports whether images should be fetched. Defaults to true.
func (a Assets) DownloadsEnabled() bool {
	return a.Enabled == nil || *a.Enabled
}

// Destination defines where nodes are stored
type Destination struct {
	Type  DestinationType `yaml:"type" validate:"oneof=memory postgres"`
	DSN   string          `yaml:"dsn,omitempty"`
	Table string          `yaml:"table,omitempty"`
}

// DestinationType defines supported node stores
type DestinationType string

const (
	DestinationMemory   DestinationType = "memory"
	DestinationPostgres DestinationType = "postgres"
)

// Defaults applied by Defaults.SetDefaults
const (
	DefaultBaseURL     = "https://api.printful.com"
	DefaultPageSize    = 20
	DefaultConcurrency = 8
	DefaultRateLimit   = 120
	DefaultTimeout     = 30 * time.Second
	DefaultAssetDir    = ".cache/printful"
	DefaultTable       = "printful_nodes"
)

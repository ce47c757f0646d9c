package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for LinkScout.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"    yaml:"server"`
	Extractor ExtractorConfig `mapstructure:"extractor" yaml:"extractor"`
	Fetcher   FetcherConfig   `mapstructure:"fetcher"   yaml:"fetcher"`
	Proxy     ProxyConfig     `mapstructure:"proxy"     yaml:"proxy"`
	Limits    LimitsConfig    `mapstructure:"limits"    yaml:"limits"`
	Backend   BackendConfig   `mapstructure:"backend"   yaml:"backend"`
	Storage   StorageConfig   `mapstructure:"storage"   yaml:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging"   yaml:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"   yaml:"metrics"`
}

// ServerConfig controls the HTTP front-end.
type ServerConfig struct {
	Port         int           `mapstructure:"port"          yaml:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"  yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	AllowOrigin  string        `mapstructure:"allow_origin"  yaml:"allow_origin"`
}

// ExtractorConfig controls the same-process content extractor.
type ExtractorConfig struct {
	Timeout           time.Duration `mapstructure:"timeout"             yaml:"timeout"`
	MinBlockLength    int           `mapstructure:"min_block_length"    yaml:"min_block_length"`
	MinFallbackLength int           `mapstructure:"min_fallback_length" yaml:"min_fallback_length"`
	TitlePlaceholder  string        `mapstructure:"title_placeholder"   yaml:"title_placeholder"`
	Candidates        []Candidate   `mapstructure:"candidates"          yaml:"candidates"`
}

// Candidate is one structural content-container candidate.
type Candidate struct {
	Selector string `mapstructure:"selector" yaml:"selector"`
	Type     string `mapstructure:"type"     yaml:"type"` // css, xpath
}

// FetcherConfig controls the page fetcher.
type FetcherConfig struct {
	Type            string        `mapstructure:"type"              yaml:"type"`
	UserAgents      []string      `mapstructure:"user_agents"       yaml:"user_agents"`
	MaxRedirects    int           `mapstructure:"max_redirects"     yaml:"max_redirects"`
	MaxBodySize     int64         `mapstructure:"max_body_size"     yaml:"max_body_size"`
	TLSInsecure     bool          `mapstructure:"tls_insecure"      yaml:"tls_insecure"`
	IdleConnTimeout time.Duration `mapstructure:"idle_conn_timeout" yaml:"idle_conn_timeout"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    yaml:"max_idle_conns"`
	Stealth         bool          `mapstructure:"stealth"           yaml:"stealth"`
	MaxPages        int           `mapstructure:"max_pages"         yaml:"max_pages"`
}

// ProxyConfig controls proxy rotation.
type ProxyConfig struct {
	Enabled  bool     `mapstructure:"enabled"  yaml:"enabled"`
	Rotation string   `mapstructure:"rotation" yaml:"rotation"`
	URLs     []string `mapstructure:"urls"     yaml:"urls"`
	// RetryAfter is how long a failed proxy stays out of rotation.
	// Zero benches it for the life of the process.
	RetryAfter time.Duration `mapstructure:"retry_after" yaml:"retry_after"`
}

// LimitsConfig bounds outbound fetches. Zero disables a limit.
type LimitsConfig struct {
	PerHostRPS    float64 `mapstructure:"per_host_rps"   yaml:"per_host_rps"`
	MaxConcurrent int64   `mapstructure:"max_concurrent" yaml:"max_concurrent"`
}

// BackendConfig points at the remote analysis service.
type BackendConfig struct {
	URL            string        `mapstructure:"url"             yaml:"url"`
	ScrapeEnabled  bool          `mapstructure:"scrape_enabled"  yaml:"scrape_enabled"`
	ScrapeTimeout  time.Duration `mapstructure:"scrape_timeout"  yaml:"scrape_timeout"`
	AnalyzeTimeout time.Duration `mapstructure:"analyze_timeout" yaml:"analyze_timeout"`
	HealthTimeout  time.Duration `mapstructure:"health_timeout"  yaml:"health_timeout"`
}

// StorageConfig controls the scrape history store.
type StorageConfig struct {
	Type            string `mapstructure:"type"             yaml:"type"` // none, memory, jsonl, mongodb
	Path            string `mapstructure:"path"             yaml:"path"`
	MemoryCapacity  int    `mapstructure:"memory_capacity"  yaml:"memory_capacity"`
	MongoURI        string `mapstructure:"mongo_uri"        yaml:"mongo_uri"`
	MongoDatabase   string `mapstructure:"mongo_database"   yaml:"mongo_database"`
	MongoCollection string `mapstructure:"mongo_collection" yaml:"mongo_collection"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig controls the metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultCandidates is the ordered list of main-content containers.
func DefaultCandidates() []Candidate {
	return []Candidate{
		{Selector: "article", Type: "css"},
		{Selector: `[role="main"]`, Type: "css"},
		{Selector: "main", Type: "css"},
		{Selector: ".article-content", Type: "css"},
		{Selector: ".post-content", Type: "css"},
		{Selector: ".entry-content", Type: "css"},
		{Selector: ".content", Type: "css"},
	}
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         3000,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second,
			AllowOrigin:  "*",
		},
		Extractor: ExtractorConfig{
			Timeout:           15 * time.Second,
			MinBlockLength:    20,
			MinFallbackLength: 50,
			TitlePlaceholder:  "Untitled",
			Candidates:        DefaultCandidates(),
		},
		Fetcher: FetcherConfig{
			Type: "http",
			UserAgents: []string{
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
				"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			},
			MaxRedirects:    10,
			MaxBodySize:     10 * 1024 * 1024, // 10MB
			IdleConnTimeout: 90 * time.Second,
			MaxIdleConns:    100,
			Stealth:         true,
			MaxPages:        4,
		},
		Proxy: ProxyConfig{
			Enabled:    false,
			Rotation:   "round_robin",
			RetryAfter: time.Minute,
		},
		Backend: BackendConfig{
			URL:            "http://localhost:5000",
			ScrapeEnabled:  true,
			ScrapeTimeout:  40 * time.Second,
			AnalyzeTimeout: 90 * time.Second,
			HealthTimeout:  10 * time.Second,
		},
		Storage: StorageConfig{
			Type:            "memory",
			Path:            "./data/history.jsonl",
			MemoryCapacity:  200,
			MongoDatabase:   "linkscout",
			MongoCollection: "history",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Server        ServerConfig        `mapstructure:"server"`
	Pipeline      PipelineConfig      `mapstructure:"pipeline"`
	APIs          APIsConfig          `mapstructure:"apis"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Services      ServicesConfig      `mapstructure:"services"`
	Camunda       CamundaConfig       `mapstructure:"camunda"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Port            int `mapstructure:"port"`
	ReadTimeout     int `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int `mapstructure:"shutdown_timeout"` // milliseconds
}

// Addr returns the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

// PipelineConfig drives the room recommendation pipeline.
type PipelineConfig struct {
	RequestTimeout int          `mapstructure:"request_timeout"` // milliseconds
	TopK           int          `mapstructure:"top_k"`
	MaxRetries     int          `mapstructure:"max_retries"`
	InitialBackoff int          `mapstructure:"initial_backoff"`  // milliseconds
	MaxBackoff     int          `mapstructure:"max_backoff"`      // milliseconds
	MinStageBudget int          `mapstructure:"min_stage_budget"` // milliseconds
	StageWeights   StageWeights `mapstructure:"stage_weights"`
}

// StageWeights splits the request deadline across the external stages.
type StageWeights struct {
	Describe   int `mapstructure:"describe"`
	Retrieve   int `mapstructure:"retrieve"`
	Synthesize int `mapstructure:"synthesize"`
}

// APIsConfig holds settings for external AI APIs.
type APIsConfig struct {
	GenAI GenAIConfig `mapstructure:"genai"`
}

type GenAIConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	VisionModel    string        `mapstructure:"vision_model"`
	TextModel      string        `mapstructure:"text_model"`
	EmbeddingModel string        `mapstructure:"embedding_model"`
	Timeout        int           `mapstructure:"timeout"` // milliseconds
	MaxIdleConns   int           `mapstructure:"max_idle_conns"`
	Breaker        BreakerConfig `mapstructure:"breaker"`
}

// BreakerConfig configures the circuit breakers in front of the model APIs.
type BreakerConfig struct {
	MaxFailures uint32 `mapstructure:"max_failures"`
	OpenTimeout int    `mapstructure:"open_timeout"` // milliseconds
	Interval    int    `mapstructure:"interval"`     // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
	CatalogTable   string `mapstructure:"catalog_table"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses     []string `mapstructure:"addresses"`
	Username      string   `mapstructure:"username"`
	Password      string   `mapstructure:"password"`
	URL           string   `mapstructure:"url"` // Single URL for backwards compatibility
	ProductsIndex string   `mapstructure:"products_index"`
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ServicesConfig holds the addresses of the peripheral shop services.
type ServicesConfig struct {
	Recommendation struct {
		BaseURL string `mapstructure:"base_url"`
		Timeout int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"recommendation"`
}

type CamundaConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	BrokerAddress string `mapstructure:"broker_address"`
	MaxJobsActive int    `mapstructure:"max_jobs_active"`
	Timeout       int    `mapstructure:"timeout"` // milliseconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ObservabilityConfig struct {
	ServiceName   string  `mapstructure:"service_name"`
	TraceSampling float64 `mapstructure:"trace_sampling"`
	TraceExporter string  `mapstructure:"trace_exporter"` // stdout | none
}

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App     App     `mapstructure:"app"`
	AI      AI      `mapstructure:"ai"`
	Scoring Scoring `mapstructure:"scoring"`
	Dedup   Dedup   `mapstructure:"dedup"`
	Eval    Eval    `mapstructure:"eval"`
	Ingest  Ingest  `mapstructure:"ingest"`
	Store   Store   `mapstructure:"store"`
	Server  Server  `mapstructure:"server"`
}

// App holds general application configuration
type App struct {
	Debug      bool   `mapstructure:"debug"`
	LogLevel   string `mapstructure:"log_level"`
	DataDir    string `mapstructure:"data_dir"`
	ConfigFile string `mapstructure:"config_file"`
}

// AI holds LLM collaborator configuration
type AI struct {
	// Mode selects the collaborator backend: "live" (Gemini) or "demo"
	// (deterministic local stub). Injected at pipeline construction so
	// both modes run in tests.
	Mode   string       `mapstructure:"mode"`
	Gemini GeminiConfig `mapstructure:"gemini"`
}

// GeminiConfig holds Google Gemini configuration
type GeminiConfig struct {
	APIKey         string  `mapstructure:"api_key"`
	Model          string  `mapstructure:"model"`
	EmbeddingModel string  `mapstructure:"embedding_model"`
	MaxTokens      int32   `mapstructure:"max_tokens"`
	Temperature    float32 `mapstructure:"temperature"`
	Timeout        string  `mapstructure:"timeout"`
}

// Scoring holds confidence and severity scoring weights.
// The three confidence weights must sum to 1.
type Scoring struct {
	RecencyWeight      float64 `mapstructure:"recency_weight"`
	SentimentWeight    float64 `mapstructure:"sentiment_weight"`
	FrequencyWeight    float64 `mapstructure:"frequency_weight"`
	LowConfidenceFloor float64 `mapstructure:"low_confidence_floor"`
	WeaknessSeverityBar float64 `mapstructure:"weakness_severity_bar"`
}

// Dedup holds near-duplicate similarity cutoffs.
type Dedup struct {
	InsightCutoff float64 `mapstructure:"insight_cutoff"`
	ChunkCutoff   float64 `mapstructure:"chunk_cutoff"`
}

// Eval holds the per-rubric flag thresholds.
type Eval struct {
	Relevance         float64 `mapstructure:"relevance"`
	EvidenceCoverage  float64 `mapstructure:"evidence_coverage"`
	HallucinationRisk float64 `mapstructure:"hallucination_risk"`
	Actionability     float64 `mapstructure:"actionability"`
	Freshness         float64 `mapstructure:"freshness"`
}

// Ingest holds chunking and collection configuration.
type Ingest struct {
	ChunkSize     int    `mapstructure:"chunk_size"`    // words per chunk
	ChunkOverlap  int    `mapstructure:"chunk_overlap"` // words of overlap
	MaxStoredText int    `mapstructure:"max_stored_text"`
	FetchTimeout  string `mapstructure:"fetch_timeout"`
	UserAgent     string `mapstructure:"user_agent"`
}

// Store holds persistence configuration.
type Store struct {
	Directory string `mapstructure:"directory"`
}

// Server holds HTTP server configuration.
type Server struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	CORS         CORS          `mapstructure:"cors"`
}

// CORS holds CORS configuration.
type CORS struct {
	Enabled        bool     `mapstructure:"enabled"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

var globalConfig *Config

// Load loads the configuration from various sources
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Printf("Warning: Error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".rivalscope")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.App.ConfigFile = viper.ConfigFileUsed()

	if err := validate(cfg); err != nil {
		return nil, err
	}

	globalConfig = cfg
	return globalConfig, nil
}

// Get returns the loaded configuration, loading defaults if necessary.
func Get() *Config {
	if globalConfig == nil {
		cfg, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("failed to load configuration: %v", err))
		}
		return cfg
	}
	return globalConfig
}

// Reset clears the cached configuration (used by tests).
func Reset() {
	globalConfig = nil
	viper.Reset()
}

func setDefaults() {
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.log_level", "info")
	viper.SetDefault("app.data_dir", ".rivalscope")

	viper.SetDefault("ai.mode", "live")
	viper.SetDefault("ai.gemini.model", "gemini-1.5-flash")
	viper.SetDefault("ai.gemini.embedding_model", "text-embedding-004")
	viper.SetDefault("ai.gemini.max_tokens", 4096)
	viper.SetDefault("ai.gemini.temperature", 0.3)
	viper.SetDefault("ai.gemini.timeout", "2m")

	viper.SetDefault("scoring.recency_weight", 0.3)
	viper.SetDefault("scoring.sentiment_weight", 0.3)
	viper.SetDefault("scoring.frequency_weight", 0.4)
	viper.SetDefault("scoring.low_confidence_floor", 0.2)
	viper.SetDefault("scoring.weakness_severity_bar", 0.3)

	viper.SetDefault("dedup.insight_cutoff", 0.90)
	viper.SetDefault("dedup.chunk_cutoff", 0.97)

	viper.SetDefault("eval.relevance", 0.60)
	viper.SetDefault("eval.evidence_coverage", 0.50)
	viper.SetDefault("eval.hallucination_risk", 0.40)
	viper.SetDefault("eval.actionability", 0.50)
	viper.SetDefault("eval.freshness", 0.40)

	viper.SetDefault("ingest.chunk_size", 800)
	viper.SetDefault("ingest.chunk_overlap", 100)
	viper.SetDefault("ingest.max_stored_text", 10000)
	viper.SetDefault("ingest.fetch_timeout", "30s")
	viper.SetDefault("ingest.user_agent", "rivalscope/1.0 (competitive research)")

	viper.SetDefault("store.directory", ".rivalscope")

	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "150s")
	viper.SetDefault("server.cors.enabled", true)
	viper.SetDefault("server.cors.allowed_origins", []string{"*"})
}

func bindEnvironmentVariables() {
	_ = viper.BindEnv("ai.gemini.api_key", "GEMINI_API_KEY", "GOOGLE_GEMINI_API_KEY", "GOOGLE_AI_API_KEY")
	_ = viper.BindEnv("ai.mode", "RIVALSCOPE_AI_MODE")
	_ = viper.BindEnv("app.data_dir", "RIVALSCOPE_DATA_DIR")
	_ = viper.BindEnv("server.port", "PORT")
}

func validate(cfg *Config) error {
	sum := cfg.Scoring.RecencyWeight + cfg.Scoring.SentimentWeight + cfg.Scoring.FrequencyWeight
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("scoring weights must sum to 1, got %.3f", sum)
	}
	if cfg.AI.Mode != "live" && cfg.AI.Mode != "demo" {
		return fmt.Errorf("ai.mode must be \"live\" or \"demo\", got %q", cfg.AI.Mode)
	}
	return nil
}

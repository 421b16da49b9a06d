// Package config holds the configuration structures for the felix-index
// indexing engine.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/madeindigio/felix-index/pkg/version"
)

// Config holds the configuration for the felix-index engine: store
// connection, indexing tunables, ignore overrides, embedding provider
// selection, and logging.
type Config struct {
	DbPath             string `mapstructure:"db-path"`
	SurrealDBURL       string `mapstructure:"surrealdb-url"`
	SurrealDBUser      string `mapstructure:"surrealdb-user"`
	SurrealDBPass      string `mapstructure:"surrealdb-pass"`
	SurrealDBNamespace string `mapstructure:"surrealdb-namespace"`
	SurrealDBDatabase  string `mapstructure:"surrealdb-database"`

	// ProjectPath is the workspace root to register and index (spec.md §4.10
	// set_project/index_project).
	ProjectPath string `mapstructure:"project"`
	// ForceReindex requests a full reindex rather than the incremental pass
	// (spec.md §4.7 "force").
	ForceReindex bool `mapstructure:"force-reindex"`
	// IndexConcurrency overrides the INDEX_CONCURRENCY env var and the
	// cpu_count-1 default (spec.md §4.7 "Concurrency control").
	IndexConcurrency int `mapstructure:"index-concurrency"`
	// IgnorePatterns are additional doublestar globs read from --ignore or
	// the config file. Nothing passes them on to discovery or the watcher,
	// so only the built-in and parser-provided patterns are applied.
	IgnorePatterns []string `mapstructure:"ignore"`
	// DisableFileWatcher disables the filesystem watcher (spec.md §4.8),
	// overriding the DISABLE_FILE_WATCHER env var when set via flag/config.
	DisableFileWatcher bool `mapstructure:"disable-file-watcher"`

	// Ollama configuration
	OllamaURL   string `mapstructure:"ollama-url"`
	OllamaModel string `mapstructure:"ollama-model"`
	// OpenAI configuration
	OpenAIKey   string `mapstructure:"openai-key"`
	OpenAIURL   string `mapstructure:"openai-url"`
	OpenAIModel string `mapstructure:"openai-model"`
	// Code-specific embedding model configuration. These let a dedicated
	// code embedding model (e.g. CodeRankEmbed, Jina-code-embeddings) index
	// source while a different model handles documentation prose.
	CodeOllamaModel string `mapstructure:"code-ollama-model"`
	CodeOpenAIModel string `mapstructure:"code-openai-model"`
	// Chunking configuration for embeddings
	ChunkSize    int    `mapstructure:"chunk-size"`
	ChunkOverlap int    `mapstructure:"chunk-overlap"`
	LogFile      string `mapstructure:"log"`
	// When true, disables all logging output to stdout/stderr. Logs will
	// only be written to the configured log file (if any).
	DisableOutputLog bool `mapstructure:"disable-output-log"`
}

// Load loads the configuration from CLI flags, environment variables, and an
// optional YAML file, viper-style: an explicitly set flag wins over the
// environment, which wins over the YAML file, which wins over flag defaults.
func Load() (*Config, error) {
	pflag.String("config", "", "Path to YAML configuration file")
	pflag.String("project", "", "Path to the project root to index")
	pflag.Bool("force-reindex", false, "Force a full reindex instead of an incremental pass")
	pflag.Int("index-concurrency", 0, "Override indexing worker concurrency (0 = auto, see INDEX_CONCURRENCY)")
	pflag.StringSlice("ignore", nil, "Additional glob ignore patterns (stored in the config; discovery does not apply them)")
	pflag.Bool("disable-file-watcher", false, "Disable the filesystem watcher for this project")

	pflag.String("db-path", "./felix-index.db", "Path to the embedded SurrealDB database")
	pflag.String("surrealdb-url", "", "URL for a remote SurrealDB instance")
	pflag.String("surrealdb-user", "root", "Username for SurrealDB")
	pflag.String("surrealdb-pass", "root", "Password for SurrealDB")
	pflag.String("surrealdb-namespace", "felix", "Namespace for SurrealDB")
	pflag.String("surrealdb-database", "index", "Database for SurrealDB")

	pflag.String("ollama-url", "http://localhost:11434", "URL for the Ollama server")
	pflag.String("ollama-model", "", "Ollama model to use for embeddings")
	pflag.String("openai-key", "", "OpenAI API key")
	pflag.String("openai-url", "https://api.openai.com/v1", "OpenAI base URL")
	pflag.String("openai-model", "text-embedding-3-large", "OpenAI model to use for embeddings")
	pflag.String("code-ollama-model", "", "Ollama model to use for code embeddings (e.g. jina/jina-embeddings-v2-base-code)")
	pflag.String("code-openai-model", "", "OpenAI model to use for code embeddings")

	pflag.Int("chunk-size", 800, "Maximum chunk size in characters for text splitting")
	pflag.Int("chunk-overlap", 100, "Overlap between chunks in characters")
	pflag.String("log", "", "Path to the log file (logs are also written to stderr unless disabled)")
	pflag.Bool("disable-output-log", false, "Disable logging to stdout/stderr; only write to log file if configured")

	// Register a stdlib version flag too, so a single unified pflag parse
	// handles binaries and libraries that call flag.Parse internally.
	flag.Bool("version", false, "Print version and exit")
	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)
	pflag.Parse()

	if ver := pflag.Lookup("version"); ver != nil && ver.Value.String() == "true" {
		fmt.Println(version.Describe())
		os.Exit(0)
	}

	v := viper.New()

	configPath := pflag.Lookup("config").Value.String()
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if homeDir, err := os.UserHomeDir(); err == nil {
		standardConfigPath := filepath.Join(homeDir, ".config", "felix-index", "config.yaml")
		if runtime.GOOS == "darwin" {
			standardConfigPath = filepath.Join(homeDir, "Library", "Application Support", "felix-index", "config.yaml")
		}
		if _, err := os.Stat(standardConfigPath); err == nil {
			v.SetConfigFile(standardConfigPath)
			if err := v.ReadInConfig(); err == nil {
				slog.Info("using configuration file from standard location", "path", standardConfigPath)
			}
		}
	}

	if err := v.BindPFlags(pflag.CommandLine); err != nil {
		return nil, fmt.Errorf("failed to bind pflags: %w", err)
	}

	v.SetEnvPrefix("FELIX")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.OllamaModel == "" && c.OpenAIKey == "" {
		return errors.New("at least one embedder (Ollama or OpenAI) must be configured")
	}
	if c.DbPath == "" && c.SurrealDBURL == "" {
		return errors.New("either a database path or a SurrealDB URL must be provided")
	}
	return nil
}

// GetOllamaURL returns the Ollama server URL.
func (c *Config) GetOllamaURL() string {
	return c.OllamaURL
}

// GetOllamaModel returns the Ollama model name.
func (c *Config) GetOllamaModel() string {
	return c.OllamaModel
}

// GetOpenAIKey returns the OpenAI API key.
func (c *Config) GetOpenAIKey() string {
	return c.OpenAIKey
}

// GetOpenAIURL returns the OpenAI base URL.
func (c *Config) GetOpenAIURL() string {
	return c.OpenAIURL
}

// GetOpenAIModel returns the OpenAI model name.
func (c *Config) GetOpenAIModel() string {
	return c.OpenAIModel
}

// GetCodeOllamaModel returns the Ollama model for code embeddings, falling
// back to the default text model if no code-specific one is set.
func (c *Config) GetCodeOllamaModel() string {
	if c.CodeOllamaModel != "" {
		return c.CodeOllamaModel
	}
	return c.OllamaModel
}

// GetCodeOpenAIModel returns the OpenAI model for code embeddings, falling
// back to the default text model if no code-specific one is set.
func (c *Config) GetCodeOpenAIModel() string {
	if c.CodeOpenAIModel != "" {
		return c.CodeOpenAIModel
	}
	return c.OpenAIModel
}

// HasCodeSpecificEmbedder returns true if a code-specific embedding model is configured.
func (c *Config) HasCodeSpecificEmbedder() bool {
	return c.CodeOllamaModel != "" || c.CodeOpenAIModel != ""
}

// GetChunkSize returns the chunk size for text splitting.
func (c *Config) GetChunkSize() int {
	if c.ChunkSize <= 0 {
		return 800
	}
	return c.ChunkSize
}

// GetChunkOverlap returns the overlap between chunks.
func (c *Config) GetChunkOverlap() int {
	if c.ChunkOverlap < 0 {
		return 100
	}
	return c.ChunkOverlap
}

// GetSurrealDBNamespace returns the SurrealDB namespace.
func (c *Config) GetSurrealDBNamespace() string {
	if c.SurrealDBNamespace == "" {
		return "felix"
	}
	return c.SurrealDBNamespace
}

// GetSurrealDBDatabase returns the SurrealDB database.
func (c *Config) GetSurrealDBDatabase() string {
	if c.SurrealDBDatabase == "" {
		return "index"
	}
	return c.SurrealDBDatabase
}

// Getenv reads an environment variable or returns a default value.
func Getenv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// SetupLogging configures slog output: console (stderr, to keep stdout free
// for any host process piping this engine's output) plus an optional file.
func (c *Config) SetupLogging() error {
	var writers []io.Writer

	if !c.DisableOutputLog {
		writers = append(writers, os.Stderr)
	}

	if c.LogFile != "" {
		logFile, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file %s: %w", c.LogFile, err)
		}
		writers = append(writers, logFile)
	}

	if len(writers) == 0 {
		writers = append(writers, io.Discard)
	}

	handler := slog.NewTextHandler(io.MultiWriter(writers...), &slog.HandlerOptions{
		Level:     slog.LevelInfo,
		AddSource: false,
	})
	slog.SetDefault(slog.New(handler))
	return nil
}

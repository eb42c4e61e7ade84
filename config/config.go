// Package config loads moviequery.yaml, a .env file and environment overrides
// into a single Config.
//
// Precedence, lowest first: built-in defaults, the YAML file, variables from
// .env (which never override variables already set in the process), and the
// process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/zero-day-ai/moviequery"
	"github.com/zero-day-ai/moviequery/cypher"
	"github.com/zero-day-ai/moviequery/graphstore"
	"github.com/zero-day-ai/moviequery/llm"
	"github.com/zero-day-ai/moviequery/pipeline"
)

// Built-in defaults.
const (
	DefaultAddr       = ":8000"
	DefaultBaseURL    = llm.DefaultBaseURL
	DefaultImageModel = "gemini-2.0-flash-preview-image-generation"
	DefaultQueueName  = "moviequery:questions"
	DefaultRedisURL   = "redis://localhost:6379"
)

// Environment variables read by ApplyEnv.
const (
	EnvNeo4jURI             = "NEO4J_URI"
	EnvNeo4jUsername        = "NEO4J_USERNAME"
	EnvNeo4jPassword        = "NEO4J_PASSWORD"
	EnvNeo4jDatabase        = "NEO4J_DATABASE"
	EnvLLMBaseURL           = "LLM_BASE_URL"
	EnvSambaNovaAPIKey      = "SAMBANOVA_API_KEY"
	EnvLLMAPIKey            = "LLM_API_KEY"
	EnvSynthesisModel       = "MODEL_FAST"
	EnvReplyModel           = "MODEL"
	EnvSynthesisTemperature = "SYNTHESIS_TEMPERATURE"
	EnvReplyTemperature     = "REPLY_TEMPERATURE"
	EnvImageModel           = "IMAGE_MODEL"
	EnvRedisURL             = "REDIS_URL"
	EnvAddr                 = "MOVIEQUERY_ADDR"
	EnvGuardPolicy          = "QUERY_GUARD_POLICY"
)

// imageKeyVars are checked in order; the first non-empty one wins.
var imageKeyVars = []string{"GOOGLE_API_KEY", "GOOGLE_GENAI_API_KEY", "GENAI_API_KEY"}

// Config is the full service configuration.
type Config struct {
	Server ServerConfig           `yaml:"server"`
	Neo4j  graphstore.Neo4jConfig `yaml:"neo4j"`
	LLM    LLMConfig              `yaml:"llm"`
	Image  ImageConfig            `yaml:"image"`
	Queue  QueueConfig            `yaml:"queue"`
	Worker *WorkerConfig          `yaml:"worker,omitempty"`
	Guard  GuardConfig            `yaml:"guard"`
}

// ServerConfig configures the HTTP layer.
type ServerConfig struct {
	// Addr is the listen address. Default: ":8000"
	Addr string `yaml:"addr,omitempty"`

	// ShutdownTimeout bounds graceful shutdown.
	// Format: Go duration string (e.g., "10s")
	// Default: 10s
	ShutdownTimeout string `yaml:"shutdown_timeout,omitempty"`
}

// LLMConfig configures the OpenAI-compatible chat endpoint and the two stage slots.
type LLMConfig struct {
	BaseURL string `yaml:"base_url,omitempty"`
	APIKey  string `yaml:"api_key,omitempty"`

	// Timeout bounds a single completion call.
	// Format: Go duration string (e.g., "60s")
	// Default: 60s
	Timeout string `yaml:"timeout,omitempty"`

	Synthesis llm.SlotDefinition `yaml:"synthesis"`
	Reply     llm.SlotDefinition `yaml:"reply"`
}

// ImageConfig configures the image generation collaborator.
type ImageConfig struct {
	APIKey string `yaml:"api_key,omitempty"`
	Model  string `yaml:"model,omitempty"`
}

// QueueConfig configures the Redis question queue.
type QueueConfig struct {
	RedisURL string `yaml:"redis_url,omitempty"`
	Name     string `yaml:"name,omitempty"`
}

// GuardConfig selects the policy checked before a synthesized query runs.
// Policy is "", "schema", "read-only" or a raw CEL expression.
type GuardConfig struct {
	Policy string `yaml:"policy,omitempty"`
}

// WorkerConfig defines configuration for queue-based worker execution.
type WorkerConfig struct {
	// Concurrency is the number of concurrent worker goroutines.
	// Default: 4
	Concurrency int `yaml:"concurrency,omitempty"`

	// ShutdownTimeout is the time to wait for in-flight jobs on shutdown.
	// Default: 30s
	ShutdownTimeout string `yaml:"shutdown_timeout,omitempty"`

	// HeartbeatInterval is the interval between health heartbeats.
	// Default: 10s
	HeartbeatInterval string `yaml:"heartbeat_interval,omitempty"`

	// ResultTimeout is how long "ask --async" waits for a result.
	// Default: 2m
	ResultTimeout string `yaml:"result_timeout,omitempty"`
}

// GetConcurrency returns the configured concurrency or the default value.
func (w *WorkerConfig) GetConcurrency() int {
	if w == nil || w.Concurrency <= 0 {
		return 4
	}
	return w.Concurrency
}

// GetShutdownTimeout parses the shutdown timeout string and returns a duration.
// Returns the default value if not set or invalid.
func (w *WorkerConfig) GetShutdownTimeout() time.Duration {
	if w == nil {
		return 30 * time.Second
	}
	return parseDuration(w.ShutdownTimeout, 30*time.Second)
}

// GetHeartbeatInterval parses the heartbeat interval string and returns a duration.
// Returns the default value if not set or invalid.
func (w *WorkerConfig) GetHeartbeatInterval() time.Duration {
	if w == nil {
		return 10 * time.Second
	}
	return parseDuration(w.HeartbeatInterval, 10*time.Second)
}

// GetResultTimeout returns how long a client waits for an async answer.
func (w *WorkerConfig) GetResultTimeout() time.Duration {
	if w == nil {
		return 2 * time.Minute
	}
	return parseDuration(w.ResultTimeout, 2*time.Minute)
}

// GetShutdownTimeout returns the HTTP shutdown timeout or the default value.
func (s ServerConfig) GetShutdownTimeout() time.Duration {
	return parseDuration(s.ShutdownTimeout, 10*time.Second)
}

// GetTimeout returns the completion timeout or the default value.
func (l LLMConfig) GetTimeout() time.Duration {
	return parseDuration(l.Timeout, 60*time.Second)
}

// GuardExpression resolves the configured policy into a CEL expression.
// The empty string means the guard is disabled.
func (g GuardConfig) GuardExpression() string {
	return cypher.PolicyExpression(g.Policy)
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// Default returns a Config with every default applied and no credentials.
func Default() *Config {
	synthesis, reply := pipeline.DefaultSlots()
	c := &Config{
		LLM: LLMConfig{Synthesis: synthesis, Reply: reply},
	}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Neo4j.AccessMode == "" {
		c.Neo4j.AccessMode = graphstore.AccessRead
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = DefaultBaseURL
	}
	if c.LLM.Synthesis.Name == "" {
		c.LLM.Synthesis.Name = llm.SlotSynthesis
	}
	if c.LLM.Synthesis.Model == "" {
		c.LLM.Synthesis.Model = pipeline.DefaultSynthesisModel
	}
	if c.LLM.Reply.Name == "" {
		c.LLM.Reply.Name = llm.SlotReply
	}
	if c.LLM.Reply.Model == "" {
		c.LLM.Reply.Model = pipeline.DefaultReplyModel
	}
	if c.Image.Model == "" {
		c.Image.Model = DefaultImageModel
	}
	if c.Queue.RedisURL == "" {
		c.Queue.RedisURL = DefaultRedisURL
	}
	if c.Queue.Name == "" {
		c.Queue.Name = DefaultQueueName
	}
}

// Load builds a Config from the YAML file at path, a .env file in the working
// directory and the process environment. path may be empty, a file, or a
// directory containing moviequery.yaml or moviequery.yml.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		if err := c.readFile(path); err != nil {
			return nil, err
		}
	}

	if err := LoadDotEnv(); err != nil {
		return nil, err
	}
	if err := c.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	c.applyDefaults()
	return c, nil
}

func (c *Config) readFile(path string) error {
	configPath, err := resolvePath(path)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func resolvePath(path string) (string, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", moviequery.NewNotFoundError("config.Load", err)
	}
	if err != nil {
		return "", fmt.Errorf("failed to stat path: %w", err)
	}
	if !info.IsDir() {
		return path, nil
	}

	for _, name := range []string{"moviequery.yaml", "moviequery.yml"} {
		candidate := filepath.Join(path, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", moviequery.NewNotFoundError("config.Load",
		fmt.Errorf("no moviequery.yaml or moviequery.yml found in %s", path))
}

// LoadDotEnv loads variables from the given .env files (default ".env") into
// the process environment without overriding variables that are already set.
// Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides fields from environment variables found through lookup.
// Empty values are ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return "", false
		}
		return v, true
	}
	set := func(key string, dst *string) {
		if v, ok := get(key); ok {
			*dst = v
		}
	}

	set(EnvNeo4jURI, &c.Neo4j.URI)
	set(EnvNeo4jUsername, &c.Neo4j.Username)
	set(EnvNeo4jPassword, &c.Neo4j.Password)
	set(EnvNeo4jDatabase, &c.Neo4j.Database)
	set(EnvLLMBaseURL, &c.LLM.BaseURL)
	set(EnvLLMAPIKey, &c.LLM.APIKey)
	set(EnvSambaNovaAPIKey, &c.LLM.APIKey)
	set(EnvSynthesisModel, &c.LLM.Synthesis.Model)
	set(EnvReplyModel, &c.LLM.Reply.Model)
	set(EnvImageModel, &c.Image.Model)
	set(EnvRedisURL, &c.Queue.RedisURL)
	set(EnvAddr, &c.Server.Addr)
	set(EnvGuardPolicy, &c.Guard.Policy)

	for _, key := range imageKeyVars {
		if v, ok := get(key); ok {
			c.Image.APIKey = v
			break
		}
	}

	temps := []struct {
		key string
		dst *float64
	}{
		{EnvSynthesisTemperature, &c.LLM.Synthesis.Temperature},
		{EnvReplyTemperature, &c.LLM.Reply.Temperature},
	}
	for _, t := range temps {
		v, ok := get(t.key)
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return moviequery.NewConfigurationError("config.ApplyEnv",
				fmt.Errorf("%w: %s=%q is not a number", moviequery.ErrInvalidConfig, t.key, v))
		}
		*t.dst = f
	}

	return nil
}

// Validate checks everything needed to answer questions: graph store
// credentials, the model API key and both stage slots. Image settings are
// not required.
func (c *Config) Validate() error {
	if err := c.Neo4j.Validate(); err != nil {
		return moviequery.NewConfigurationError("config.Validate", err)
	}
	if c.LLM.APIKey == "" {
		return moviequery.NewConfigurationError("config.Validate",
			fmt.Errorf("%w: set %s or %s", moviequery.ErrMissingCredentials, EnvSambaNovaAPIKey, EnvLLMAPIKey))
	}
	for _, slot := range []llm.SlotDefinition{c.LLM.Synthesis, c.LLM.Reply} {
		if err := slot.Validate(); err != nil {
			return moviequery.NewConfigurationError("config.Validate",
				fmt.Errorf("%w: %v", moviequery.ErrInvalidConfig, err))
		}
	}
	if expr := c.Guard.GuardExpression(); expr != "" {
		if _, err := cypher.NewGuard(expr); err != nil {
			return moviequery.NewConfigurationError("config.Validate",
				fmt.Errorf("%w: guard policy: %v", moviequery.ErrInvalidConfig, err))
		}
	}
	return nil
}

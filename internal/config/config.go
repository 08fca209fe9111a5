package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all runtime settings. Values come from defaults, an optional
// config file, then the environment (REPOEXPLORER_* plus the conventional
// provider variables such as OPENAI_API_KEY).
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Data    DataConfig    `mapstructure:"data"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Elastic ElasticConfig `mapstructure:"elastic"`
	GitHub  GitHubConfig  `mapstructure:"github"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DataConfig struct {
	Dir                  string   `mapstructure:"dir"`
	ConfigDir            string   `mapstructure:"config_dir"`
	Universities         []string `mapstructure:"universities"`
	Workers              int      `mapstructure:"workers"`
	AffiliationThreshold float64  `mapstructure:"affiliation_threshold"`
	// DropUnscored makes the default threshold reject rows without a score.
	DropUnscored         bool     `mapstructure:"drop_unscored"`
}

type LLMConfig struct {
	// Provider is "openai", "gemini", "rules" or "auto" (first provider with
	// a key, else rules).
	Provider     string        `mapstructure:"provider"`
	OpenAIAPIKey string        `mapstructure:"openai_api_key"`
	OpenAIModel  string        `mapstructure:"openai_model"`
	GoogleAPIKey string        `mapstructure:"google_api_key"`
	GeminiModel  string        `mapstructure:"gemini_model"`
	Timeout      time.Duration `mapstructure:"timeout"`
	CacheEntries int64         `mapstructure:"cache_entries"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
}

type ElasticConfig struct {
	Addresses []string `mapstructure:"addresses"`
	CloudID   string   `mapstructure:"cloud_id"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

// Enabled reports whether an Elasticsearch endpoint is configured.
func (e ElasticConfig) Enabled() bool {
	return e.CloudID != "" || len(e.Addresses) > 0
}

type GitHubConfig struct {
	Token string `mapstructure:"token"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// env variables read without the REPOEXPLORER_ prefix
var envBindings = map[string][]string{
	"server.port":        {"PORT"},
	"data.dir":           {"DATA_DIR"},
	"llm.openai_api_key": {"OPENAI_API_KEY"},
	"llm.openai_model":   {"OPENAI_MODEL"},
	"llm.google_api_key": {"GOOGLE_API_KEY", "GEMINI_API_KEY"},
	"llm.gemini_model":   {"GEMINI_MODEL"},
	"elastic.cloud_id":   {"ES_CLOUD_ID"},
	"elastic.username":   {"ES_USER"},
	"elastic.password":   {"ES_PASSWORD"},
	"elastic.addresses":  {"ES_URL"},
	"github.token":       {"GITHUB_TOKEN"},
	"log.level":          {"LOG_LEVEL"},
	"log.format":         {"LOG_FORMAT"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("data.dir", "Data/parquet")
	v.SetDefault("data.config_dir", "config")
	v.SetDefault("data.universities", []string{})
	v.SetDefault("data.workers", 8)
	v.SetDefault("data.affiliation_threshold", 0.8)
	v.SetDefault("data.drop_unscored", false)
	v.SetDefault("llm.provider", "auto")
	v.SetDefault("llm.openai_api_key", "")
	v.SetDefault("llm.openai_model", "gpt-5-mini")
	v.SetDefault("llm.google_api_key", "")
	v.SetDefault("llm.gemini_model", "gemini-2.0-flash")
	v.SetDefault("llm.timeout", 30*time.Second)
	v.SetDefault("llm.cache_entries", 10_000)
	v.SetDefault("llm.cache_ttl", 30*time.Minute)
	v.SetDefault("elastic.addresses", []string{})
	v.SetDefault("elastic.cloud_id", "")
	v.SetDefault("elastic.username", "")
	v.SetDefault("elastic.password", "")
	v.SetDefault("elastic.index", "repositories")
	v.SetDefault("github.token", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Load reads .env (if present), then the config file at path (optional,
// any format viper understands), then the environment.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("REPOEXPLORER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envBindings {
		args := append([]string{key, "REPOEXPLORER_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, names...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Elastic.Addresses = splitList(cfg.Elastic.Addresses)
	cfg.Data.Universities = splitList(cfg.Data.Universities)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	switch c.LLM.Provider {
	case "auto", "openai", "gemini", "rules":
	default:
		errs = append(errs, fmt.Errorf("llm.provider must be auto, openai, gemini or rules, got %q", c.LLM.Provider))
	}
	if c.Data.AffiliationThreshold < 0 || c.Data.AffiliationThreshold > 1 {
		errs = append(errs, fmt.Errorf("data.affiliation_threshold must be within [0, 1], got %v", c.Data.AffiliationThreshold))
	}
	if c.Data.Workers < 1 {
		errs = append(errs, fmt.Errorf("data.workers must be at least 1"))
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be console or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// splitList accepts both real lists and a single comma separated value, as
// environment variables arrive.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	configPathEnv     = "CONTRACT_AUDITOR_CONFIG"
	logLevelEnv       = "LOG_LEVEL"
	httpAddrEnv       = "HTTP_ADDR"
	databaseDSNEnv    = "DATABASE_DSN"
	databaseDriverEnv = "DATABASE_DRIVER"
	llmAPIKeyEnv      = "LLM_API_KEY"
	llmModelEnv       = "LLM_MODEL"
	llmEndpointEnv    = "LLM_ENDPOINT"
)

// DefaultStatute is the statute analysed when the caller does not name one.
const DefaultStatute = "44-ФЗ"

// Config holds high-level settings required across the application.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging"`
	HTTP     HTTPConfig     `yaml:"http"`
	Statutes StatuteConfig  `yaml:"statutes"`
	Database DatabaseConfig `yaml:"database"`
	LLM      LLMConfig      `yaml:"llm"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Ranking  RankingConfig  `yaml:"ranking"`
}

// LoggingConfig sets the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// HTTPConfig describes the upload API.
type HTTPConfig struct {
	Addr           string `yaml:"addr"`
	UploadDir      string `yaml:"uploadDir"`
	MaxUploadBytes int64  `yaml:"maxUploadBytes"`
}

// StatuteConfig maps statute identifiers to their PDF sources.
type StatuteConfig struct {
	Default string            `yaml:"default"`
	Sources map[string]string `yaml:"sources"`
}

// DatabaseConfig describes the optional shared article store.
// An empty DSN keeps the statute cache in memory.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// LLMConfig defines how to contact the OpenAI-compatible analysis API.
type LLMConfig struct {
	Endpoint     string        `yaml:"endpoint"`
	Model        string        `yaml:"model"`
	APIKey       string        `yaml:"apiKey"`
	SystemPrompt string        `yaml:"systemPrompt"`
	Timeout      time.Duration `yaml:"timeout"`
}

// AnalysisConfig carries the domain constants of the pipeline.
type AnalysisConfig struct {
	FoundationThreshold float64 `yaml:"foundationThreshold"`
	ContractBudget      int     `yaml:"contractBudget"`
	NoticeBudget        int     `yaml:"noticeBudget"`
	ContextArticles     int     `yaml:"contextArticles"`
	ContextContentRunes int     `yaml:"contextContentRunes"`
}

// RankingConfig tunes the relevance ranker. Empty Topics keeps the built-in table.
type RankingConfig struct {
	MinScore float64       `yaml:"minScore"`
	Limit    int           `yaml:"limit"`
	Topics   []TopicConfig `yaml:"topics"`
}

// TopicConfig is one row of the ranking topic table.
type TopicConfig struct {
	Name             string   `yaml:"name"`
	Weight           float64  `yaml:"weight"`
	Keywords         []string `yaml:"keywords"`
	PriorityArticles []string `yaml:"priorityArticles"`
}

// Load reads .env, the YAML configuration (if present) and applies environment overrides.
func Load() Config {
	_ = godotenv.Load()

	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		fileCfg, err := readFile(path)
		if err != nil {
			log.Printf("config: %v (falling back to defaults)", err)
		} else {
			cfg = mergeConfig(cfg, fileCfg)
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

// LoadFile is Load with an explicit YAML path that must be readable.
func LoadFile(path string) (Config, error) {
	_ = godotenv.Load()

	fileCfg, err := readFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := mergeConfig(defaultConfig(), fileCfg)
	cfg.applyEnvOverrides()
	return cfg, nil
}

func readFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("cannot read %s: %w", path, err)
	}
	var fileCfg Config
	if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
		return Config{}, fmt.Errorf("cannot parse %s: %w", path, err)
	}
	return fileCfg, nil
}

// Validate rejects settings the pipeline cannot work with.
func (c Config) Validate() error {
	if c.Statutes.Default == "" {
		return errors.New("statutes.default cannot be empty")
	}
	if _, ok := c.Statutes.Sources[c.Statutes.Default]; !ok {
		return fmt.Errorf("statutes.sources has no entry for default statute %s", c.Statutes.Default)
	}
	switch c.Database.Driver {
	case "postgres", "sqlite3":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Analysis.FoundationThreshold <= 0 {
		return errors.New("analysis.foundationThreshold must be positive")
	}
	if c.Analysis.ContractBudget <= 0 || c.Analysis.NoticeBudget <= 0 {
		return errors.New("analysis text budgets must be positive")
	}
	if c.Analysis.ContextArticles <= 0 {
		return errors.New("analysis.contextArticles must be positive")
	}
	if c.Ranking.Limit <= 0 {
		return errors.New("ranking.limit must be positive")
	}
	if c.LLM.Timeout <= 0 {
		return errors.New("llm.timeout must be positive")
	}
	for _, topic := range c.Ranking.Topics {
		if topic.Name == "" || len(topic.Keywords) == 0 {
			return fmt.Errorf("ranking topic %q needs a name and keywords", topic.Name)
		}
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(httpAddrEnv); v != "" {
		c.HTTP.Addr = v
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(databaseDriverEnv); v != "" {
		c.Database.Driver = v
	}

	if v := os.Getenv(llmAPIKeyEnv); v != "" {
		c.LLM.APIKey = v
	}

	if v := os.Getenv(llmModelEnv); v != "" {
		c.LLM.Model = v
	}

	if v := os.Getenv(llmEndpointEnv); v != "" {
		c.LLM.Endpoint = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	if override.HTTP.Addr != "" {
		base.HTTP.Addr = override.HTTP.Addr
	}
	if override.HTTP.UploadDir != "" {
		base.HTTP.UploadDir = override.HTTP.UploadDir
	}
	if override.HTTP.MaxUploadBytes > 0 {
		base.HTTP.MaxUploadBytes = override.HTTP.MaxUploadBytes
	}

	if override.Statutes.Default != "" {
		base.Statutes.Default = override.Statutes.Default
	}
	if len(override.Statutes.Sources) > 0 {
		base.Statutes.Sources = override.Statutes.Sources
	}

	if override.Database.Driver != "" {
		base.Database.Driver = override.Database.Driver
	}
	if override.Database.DSN != "" {
		base.Database.DSN = override.Database.DSN
	}

	if override.LLM.Endpoint != "" {
		base.LLM.Endpoint = override.LLM.Endpoint
	}
	if override.LLM.Model != "" {
		base.LLM.Model = override.LLM.Model
	}
	if override.LLM.APIKey != "" {
		base.LLM.APIKey = override.LLM.APIKey
	}
	if override.LLM.SystemPrompt != "" {
		base.LLM.SystemPrompt = override.LLM.SystemPrompt
	}
	if override.LLM.Timeout > 0 {
		base.LLM.Timeout = override.LLM.Timeout
	}

	if override.Analysis.FoundationThreshold > 0 {
		base.Analysis.FoundationThreshold = override.Analysis.FoundationThreshold
	}
	if override.Analysis.ContractBudget > 0 {
		base.Analysis.ContractBudget = override.Analysis.ContractBudget
	}
	if override.Analysis.NoticeBudget > 0 {
		base.Analysis.NoticeBudget = override.Analysis.NoticeBudget
	}
	if override.Analysis.ContextArticles > 0 {
		base.Analysis.ContextArticles = override.Analysis.ContextArticles
	}
	if override.Analysis.ContextContentRunes > 0 {
		base.Analysis.ContextContentRunes = override.Analysis.ContextContentRunes
	}

	if override.Ranking.MinScore > 0 {
		base.Ranking.MinScore = override.Ranking.MinScore
	}
	if override.Ranking.Limit > 0 {
		base.Ranking.Limit = override.Ranking.Limit
	}
	if len(override.Ranking.Topics) > 0 {
		base.Ranking.Topics = override.Ranking.Topics
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		HTTP: HTTPConfig{
			Addr:           ":5000",
			UploadDir:      "static/uploads",
			MaxUploadBytes: 16 << 20,
		},
		Statutes: StatuteConfig{
			Default: DefaultStatute,
			Sources: map[string]string{
				"44-ФЗ":  "laws/44fz_.pdf",
				"223-ФЗ": "laws/223fz_.pdf",
			},
		},
		Database: DatabaseConfig{Driver: "postgres", DSN: ""},
		LLM: LLMConfig{
			Endpoint:     "https://gigachat.devices.sberbank.ru/api/v1/chat/completions",
			Model:        "GigaChat-2-Max",
			APIKey:       "",
			SystemPrompt: "",
			Timeout:      60 * time.Second,
		},
		Analysis: AnalysisConfig{
			FoundationThreshold: 100000,
			ContractBudget:      12000,
			NoticeBudget:        8000,
			ContextArticles:     5,
			ContextContentRunes: 500,
		},
		Ranking: RankingConfig{
			MinScore: 0.3,
			Limit:    10,
		},
	}
}

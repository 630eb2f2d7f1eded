// Package config provides configuration loading and structs for the Kotae service.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Redis     RedisConfig     `yaml:"redis"`
	Broker    BrokerConfig    `yaml:"broker"`
	Encoder   EncoderConfig   `yaml:"encoder"`
	Knowledge KnowledgeConfig `yaml:"knowledge"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Ask       AskConfig       `yaml:"ask"`
}

// ServerConfig holds admin HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// RedisConfig holds cache store connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// BrokerConfig holds message broker connection and queue settings.
type BrokerConfig struct {
	URL           string `yaml:"url"`
	QuestionQueue string `yaml:"question_queue"`
	AnswerQueue   string `yaml:"answer_queue"`
}

// EncoderConfig holds encoder model and instruction settings. The document
// instruction is used at ingestion, the query instruction at retrieval; the
// asymmetry is deliberate and must not be collapsed.
type EncoderConfig struct {
	ModelPath           string `yaml:"model_path"`
	Dimensions          int    `yaml:"dimensions"`
	MaxTokens           int    `yaml:"max_tokens"`
	CacheSize           int    `yaml:"cache_size"`
	DocumentInstruction string `yaml:"document_instruction"`
	QueryInstruction    string `yaml:"query_instruction"`
}

// KnowledgeConfig holds knowledge base source and chunking settings.
type KnowledgeConfig struct {
	BasePath    string `yaml:"base_path"`
	Delimiter   string `yaml:"delimiter"`
	MinChunkLen int    `yaml:"min_chunk_len"`
	MaxChunkLen int    `yaml:"max_chunk_len"`
	Watch       bool   `yaml:"watch"`
}

// RetrievalConfig holds matching settings. SimilarityThreshold is parsed and
// carried but not applied during matching; see retrieval.WithMinScore.
type RetrievalConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
}

// AskConfig holds client-side request settings.
type AskConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// Load reads and parses the config file at path, expands paths, and applies
// defaults. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Encoder.ModelPath = expandPath(cfg.Encoder.ModelPath, configDir)
	cfg.Knowledge.BasePath = expandPath(cfg.Knowledge.BasePath, configDir)

	return &cfg, nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}

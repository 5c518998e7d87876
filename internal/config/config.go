package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LLMConfig points at one model behind an Ollama or OpenAI-compatible server.
type LLMConfig struct {
	Provider string `yaml:"provider"`
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`
	Key      string `yaml:"key"`
}

// RAGConfig holds the retrieval pipeline knobs. ChunkOverlap is a pointer
// so an explicit zero is distinguishable from an absent key: zero disables
// overlap, absent means ChunkSize/5.
type RAGConfig struct {
	ChunkSize       int    `yaml:"chunk_size"`
	ChunkOverlap    *int   `yaml:"chunk_overlap"`
	TopK            int    `yaml:"top_k"`
	MaxContextChars int    `yaml:"max_context_chars"`
	Store           string `yaml:"store"`
	DBPath          string `yaml:"db_path"`
	Collection      string `yaml:"collection"`
}

// Overlap returns the effective chunk overlap in characters.
func (r *RAGConfig) Overlap() int {
	if r.ChunkOverlap == nil {
		return r.ChunkSize / 5
	}
	return *r.ChunkOverlap
}

// DBConfig is the Postgres connection for the pgvector store backend.
type DBConfig struct {
	URL   string `yaml:"url"`
	Key   string `yaml:"key"`
	Debug bool   `yaml:"debug"`
}

// VoiceConfig points at an OpenAI-compatible audio endpoint and a local
// player command for spoken answers.
type VoiceConfig struct {
	BaseURL  string `yaml:"base_url"`
	Key      string `yaml:"key"`
	STTModel string `yaml:"stt_model"`
	TTSModel string `yaml:"tts_model"`
	Player   string `yaml:"player"`
	Speak    bool   `yaml:"speak"`
}

type Config struct {
	EmbedLLM LLMConfig   `yaml:"embed_llm"`
	ChatLLM  LLMConfig   `yaml:"chat_llm"`
	RAG      RAGConfig   `yaml:"rag"`
	Database DBConfig    `yaml:"database"`
	Voice    VoiceConfig `yaml:"voice"`

	FetchTimeoutSeconds int `yaml:"fetch_timeout_seconds"`
	FetchWorkers        int `yaml:"fetch_workers"`
}

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"

	StoreChromem  = "chromem"
	StorePostgres = "postgres"
)

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// Default returns a config usable without a config file: local Ollama for
// embeddings and chat, persistent chromem store in the working directory.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

func (c *Config) ApplyDefaults() {
	if c.EmbedLLM.Provider == "" {
		c.EmbedLLM.Provider = ProviderOllama
	}
	if c.EmbedLLM.BaseURL == "" {
		c.EmbedLLM.BaseURL = "http://localhost:11434"
	}
	if c.EmbedLLM.Model == "" {
		c.EmbedLLM.Model = "nomic-embed-text"
	}
	if c.ChatLLM.Provider == "" {
		c.ChatLLM.Provider = ProviderOllama
	}
	if c.ChatLLM.BaseURL == "" {
		c.ChatLLM.BaseURL = "http://localhost:11434"
	}
	if c.ChatLLM.Model == "" {
		c.ChatLLM.Model = "mistral"
	}
	if c.RAG.ChunkSize <= 0 {
		c.RAG.ChunkSize = 1000
	}
	if c.RAG.ChunkOverlap == nil || *c.RAG.ChunkOverlap < 0 || *c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		overlap := c.RAG.ChunkSize / 5
		c.RAG.ChunkOverlap = &overlap
	}
	if c.RAG.TopK <= 0 {
		c.RAG.TopK = 3
	}
	if c.RAG.MaxContextChars <= 0 {
		c.RAG.MaxContextChars = 8000
	}
	if c.RAG.Store == "" {
		c.RAG.Store = StoreChromem
	}
	if c.RAG.DBPath == "" {
		c.RAG.DBPath = "./chromem_db"
	}
	if c.RAG.Collection == "" {
		c.RAG.Collection = "web_content"
	}
	if c.Voice.STTModel == "" {
		c.Voice.STTModel = "whisper-1"
	}
	if c.Voice.TTSModel == "" {
		c.Voice.TTSModel = "tts-1"
	}
	if c.Voice.Player == "" {
		c.Voice.Player = "mpv"
	}
	if c.FetchTimeoutSeconds <= 0 {
		c.FetchTimeoutSeconds = 30
	}
	if c.FetchWorkers <= 0 {
		c.FetchWorkers = 4
	}
}

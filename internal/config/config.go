package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Keys     APIKeys
	Ai       AIConfig
	Ingest   IngestConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
}

type DatabaseConfig struct {
	Connection string
}

type APIKeys struct {
	OpenAI    string
	Anthropic string
}

type AIConfig struct {
	EmbedModel      string // OpenAI embedding model id
	EmbedDimension  int    // must match the vector column in the store schema
	MaxTokens       int    // chunk budget
	OverlapTokens   int    // retained context between consecutive chunks
	RetrievalK      int    // candidate count
	HybridSearch    bool   // lexical + vector union, off by default
	RerankTopN      int    // final context size
	RerankModel     string
	LLMProvider     string // "openai" or "anthropic"
	LLMModel        string
	AnswerMaxTokens int
}

type IngestConfig struct {
	DataDir       string
	AutoIngest    bool
	TopicName     string
	Concurrency   int
	MaxFileSizeMB int
	ConverterURL  string // empty means markdown/plain-text only
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			OpenAI:    getEnv("OPENAI_API_KEY", ""),
			Anthropic: getEnv("ANTHROPIC_API_KEY", ""),
		},
		Ai: AIConfig{
			EmbedModel:      getEnv("OPENAI_EMBED_MODEL", "text-embedding-3-large"),
			EmbedDimension:  getEnvAsInt("EMBEDDING_DIM", 3072),
			MaxTokens:       getEnvAsInt("MAX_TOKENS", 220),
			OverlapTokens:   getEnvAsInt("OVERLAP_TOKENS", 40),
			RetrievalK:      getEnvAsInt("RETRIEVAL_K", 8),
			HybridSearch:    getEnvAsBool("HYBRID_SEARCH", false),
			RerankTopN:      getEnvAsInt("RERANK_TOP_N", 5),
			RerankModel:     getEnv("RERANK_MODEL", "gpt-4o-mini"),
			LLMProvider:     getEnv("LLM_PROVIDER", "anthropic"),
			LLMModel:        getEnv("LLM_MODEL", "claude-3-7-sonnet-20250219"),
			AnswerMaxTokens: getEnvAsInt("ANSWER_MAX_TOKENS", 600),
		},
		Ingest: IngestConfig{
			DataDir:       getEnv("DATA_DIR", "./data"),
			AutoIngest:    getEnvAsBool("AUTO_INGEST", true),
			TopicName:     getEnv("INGEST_TOPIC_NAME", "INGEST_DOCUMENT"),
			Concurrency:   getEnvAsInt("INGEST_CONCURRENCY", 4),
			MaxFileSizeMB: getEnvAsInt("MAX_FILE_SIZE_MB", 50),
			ConverterURL:  getEnv("CONVERTER_URL", ""),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

package bootstrap

import (
	"log"

	"github.com/Hunter5Thompson/Alpha-01/internal/config"
	"github.com/Hunter5Thompson/Alpha-01/internal/controller"
	"github.com/Hunter5Thompson/Alpha-01/internal/pkg/logger"
	"github.com/Hunter5Thompson/Alpha-01/internal/repository/implementation"
	"github.com/Hunter5Thompson/Alpha-01/internal/service"
	"github.com/Hunter5Thompson/Alpha-01/pkg/chunker"
	"github.com/Hunter5Thompson/Alpha-01/pkg/converter"
	"github.com/Hunter5Thompson/Alpha-01/pkg/embedding"
	"github.com/Hunter5Thompson/Alpha-01/pkg/llm/factory"
	"github.com/Hunter5Thompson/Alpha-01/pkg/rag/answer"
	"github.com/Hunter5Thompson/Alpha-01/pkg/rag/longform"
	"github.com/Hunter5Thompson/Alpha-01/pkg/rag/rerank"
	"github.com/Hunter5Thompson/Alpha-01/pkg/rag/retriever"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	RagController controller.IRagController

	// Background services (exposed for main.go to run)
	ConsumerService service.IConsumerService
	IngestService   service.IIngestService

	// Pipeline entry points (exposed for the CLI)
	QueryService service.IQueryService
	Writer       *longform.Writer

	Logger logger.ILogger
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// Event bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// Repositories
	chunkRepo := implementation.NewChunkRepository(db)

	// Document conversion
	var conv converter.Converter
	if cfg.Ingest.ConverterURL != "" {
		conv = converter.NewHTTPConverter(cfg.Ingest.ConverterURL)
		log.Printf("[INFO] Using document converter at %s", cfg.Ingest.ConverterURL)
	} else {
		conv = converter.NewPassthrough()
		log.Printf("[INFO] No converter configured, accepting markdown and plain text only")
	}

	// Embedding provider
	embeddingProvider := embedding.NewOpenAIProvider(
		cfg.Keys.OpenAI,
		cfg.Ai.EmbedModel,
		cfg.Ai.EmbedDimension,
	)
	log.Printf("[INFO] Using Embedding Provider: OPENAI (%s, dim %d)", cfg.Ai.EmbedModel, cfg.Ai.EmbedDimension)

	// Generation providers. Reranking always runs on OpenAI, the answer
	// backend is selected by config.
	rerankProvider, err := factory.NewLLMProvider("openai", cfg.Ai.RerankModel, cfg.Keys.OpenAI)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize rerank provider: %v", err)
	}

	answerKey := cfg.Keys.OpenAI
	if cfg.Ai.LLMProvider == "anthropic" {
		answerKey = cfg.Keys.Anthropic
	}
	llmProvider, err := factory.NewLLMProvider(cfg.Ai.LLMProvider, cfg.Ai.LLMModel, answerKey)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// Pipeline components
	splitter := chunker.New(cfg.Ai.MaxTokens, cfg.Ai.OverlapTokens)
	ret := retriever.New(chunkRepo, cfg.Ai.HybridSearch, sysLogger)
	reranker := rerank.New(rerankProvider, cfg.Ai.RerankModel, sysLogger)
	generator := answer.NewGenerator(llmProvider, cfg.Ai.LLMProvider, cfg.Ai.AnswerMaxTokens, sysLogger)

	// Services
	ingestService := service.NewIngestService(
		chunkRepo,
		conv,
		splitter,
		embeddingProvider,
		pubSub,
		cfg.Ingest.TopicName,
		cfg.Ingest.Concurrency,
		cfg.Ingest.MaxFileSizeMB,
		sysLogger,
	)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Ingest.TopicName,
		ingestService,
		cfg.Ingest.Concurrency,
		sysLogger,
	)
	queryService := service.NewQueryService(
		embeddingProvider,
		ret,
		reranker,
		generator,
		cfg.Ai.RetrievalK,
		cfg.Ai.RerankTopN,
		sysLogger,
	)
	writer := longform.NewWriter(queryService, sysLogger)

	return &Container{
		RagController:   controller.NewRagController(ingestService, queryService, writer),
		ConsumerService: consumerService,
		IngestService:   ingestService,
		QueryService:    queryService,
		Writer:          writer,
		Logger:          sysLogger,
	}
}

package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ikrigel/polo-rag-lev-boots-project/internal/ai"
	appsvc "github.com/ikrigel/polo-rag-lev-boots-project/internal/app"
	"github.com/ikrigel/polo-rag-lev-boots-project/internal/bootstrap"
	"github.com/ikrigel/polo-rag-lev-boots-project/internal/cache"
	rabbitmqClient "github.com/ikrigel/polo-rag-lev-boots-project/internal/platform/rabbitmq"
	"github.com/ikrigel/polo-rag-lev-boots-project/internal/rag"
	"github.com/ikrigel/polo-rag-lev-boots-project/internal/repository"
	"github.com/ikrigel/polo-rag-lev-boots-project/internal/session"
	"github.com/ikrigel/polo-rag-lev-boots-project/internal/transport/http/handler"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	cfg := app.Config
	chunkRepo := repository.NewChunkRepository(app.MySQL)
	pairRepo := repository.NewGroundTruthRepository(app.MySQL)

	embedder := ai.NewEmbeddingClient(ai.EmbeddingOptions{
		BaseURL:    cfg.Embedding.BaseURL,
		APIKey:     cfg.Embedding.APIKey,
		Model:      cfg.Embedding.Model,
		Dimension:  cfg.Embedding.Dimension,
		Timeout:    time.Duration(cfg.Embedding.TimeoutSeconds) * time.Second,
		MaxRetries: cfg.Embedding.MaxRetries,
	}, app.Log)
	completer := ai.NewCompletionClient(ai.CompletionOptions{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
	})
	answerCache := cache.NewAnswerCache(app.Redis, time.Duration(cfg.Redis.AnswerTTLSeconds)*time.Second)

	retriever := rag.NewRetriever(cfg.RAG.SimilarityThreshold, cfg.RAG.TopK)
	chunker := rag.NewChunker(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap, cfg.RAG.MinChunkChars)

	askService := appsvc.NewAskService(chunkRepo, embedder, completer, retriever, answerCache, app.Log)
	knowledgeService := appsvc.NewKnowledgeService(chunkRepo, chunker, embedder, answerCache, cfg.EmbeddingRequestDelay(), app.Log)
	publisher := rabbitmqClient.NewTranscriptPublisher(app.MQConn, cfg.RabbitMQ.TranscriptQueue)
	transcriptRepo := repository.NewTranscriptRepository(app.MySQL)
	conversationService := appsvc.NewConversationService(
		session.NewMemoryStore(),
		askService,
		publisher,
		transcriptRepo,
		cfg.Conversation,
		cfg.SessionTimeout(),
		app.Log,
	)
	evalService := appsvc.NewEvalService(pairRepo, askService, app.Log)

	healthHandler := handler.NewHealthHandler(app)
	askHandler := handler.NewAskHandler(askService)
	knowledgeHandler := handler.NewKnowledgeHandler(knowledgeService)
	conversationalHandler := handler.NewConversationalHandler(conversationService)
	ragasHandler := handler.NewRagasHandler(evalService)

	router.GET("/healthz", healthHandler.Check)

	api := router.Group("/api")
	api.POST("/ask", askHandler.Ask)
	api.GET("/question-stats", askHandler.QuestionStats)

	knowledge := api.Group("/knowledge")
	knowledge.POST("/documents", knowledgeHandler.CreateDocument)
	knowledge.POST("/upload", knowledgeHandler.UploadPDF)
	knowledge.GET("/stats", knowledgeHandler.Stats)
	api.DELETE("/knowledge", knowledgeHandler.Clear)

	conversational := api.Group("/conversational")
	conversational.POST("/session/create", conversationalHandler.CreateSession)
	conversational.GET("/sessions", conversationalHandler.ListSessions)
	conversational.POST("/session/import", conversationalHandler.Import)
	conversational.GET("/session/:sessionId", conversationalHandler.GetSession)
	conversational.DELETE("/session/:sessionId", conversationalHandler.DeleteSession)
	conversational.POST("/session/:sessionId/message", conversationalHandler.SendMessage)
	conversational.GET("/session/:sessionId/messages", conversationalHandler.GetMessages)
	conversational.POST("/session/:sessionId/clear", conversationalHandler.ClearMessages)
	conversational.POST("/session/:sessionId/compress", conversationalHandler.Compress)
	conversational.GET("/session/:sessionId/stats", conversationalHandler.Stats)
	conversational.GET("/session/:sessionId/export", conversationalHandler.Export)
	conversational.GET("/session/:sessionId/transcript", conversationalHandler.Transcript)

	ragas := api.Group("/ragas")
	ragas.POST("/ground-truth/add", ragasHandler.AddPair)
	ragas.GET("/ground-truth/list", ragasHandler.ListPairs)
	ragas.GET("/ground-truth/:pairId", ragasHandler.GetPair)
	ragas.DELETE("/ground-truth/:pairId", ragasHandler.DeletePair)
	ragas.POST("/evaluate", ragasHandler.Evaluate)
	ragas.POST("/batch-evaluate", ragasHandler.BatchEvaluate)
	ragas.POST("/run", ragasHandler.Run)
	ragas.GET("/results/:pairId", ragasHandler.ResultsForPair)
	ragas.GET("/metrics", ragasHandler.Metrics)
	ragas.GET("/trends", ragasHandler.Trends)
	ragas.GET("/distribution", ragasHandler.Distribution)
	ragas.GET("/report", ragasHandler.Report)
	ragas.GET("/export", ragasHandler.Export)

	return router
}

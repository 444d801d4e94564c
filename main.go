package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/taskloop/backend/internal/client"
	"github.com/taskloop/backend/internal/config"
	"github.com/taskloop/backend/internal/db"
	"github.com/taskloop/backend/internal/handler"
	"github.com/taskloop/backend/internal/service"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx := context.Background()

	pool, err := db.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	database := &db.Postgres{Pool: pool}
	if err := database.EnsureSchema(ctx); err != nil {
		log.Fatalf("failed to ensure schema: %v", err)
	}

	codec := service.NewTokenCodec(cfg.Auth.Secret, cfg.Auth.TokenTTL)
	authService := service.NewAuthService(database, codec)
	taskService := service.NewTaskService(database)

	// The assistant and message search need a Gemini key. Conversation
	// storage does not: without a key those routes stay up and the chat
	// endpoint answers 503.
	var agent service.AgentRunner
	var indexer service.MessageIndexer
	var searchService *service.SearchService
	if cfg.AI.APIKey != "" {
		chatClient, err := client.NewChatClient(cfg.AI)
		if err != nil {
			log.Fatalf("failed to create chat client: %v", err)
		}
		embeddingClient, err := client.NewEmbeddingClient(cfg.AI)
		if err != nil {
			log.Fatalf("failed to create embedding client: %v", err)
		}

		if err := database.EnsureSearchSchema(ctx); err != nil {
			log.Printf("message search disabled: failed to ensure search schema: %v", err)
		} else {
			searchService = service.NewSearchService(database, embeddingClient)
			indexer = searchService
		}

		agent = service.NewAgentService(chatClient, taskService, cfg.AI.AgentTimeout)
	} else {
		log.Printf("AI_API_KEY not set; assistant and message search are disabled")
	}
	chatService := service.NewChatService(database, agent, indexer)

	authHandler := handler.NewAuthHandler(authService)
	taskHandler := handler.NewTaskHandler(taskService)

	router := gin.Default()
	router.Use(handler.CORSMiddleware(cfg.Server.AllowedOrigins))

	router.GET("/", handler.Root)
	router.GET("/ping", handler.Ping)
	router.GET("/openapi.json", handler.OpenAPIDoc)

	auth := router.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/logout", authHandler.Logout)
	}

	gated := router.Group("/", handler.AuthMiddleware(codec))
	{
		gated.GET("/users/me", authHandler.Me)

		gated.GET("/tasks", taskHandler.List)
		gated.POST("/tasks", taskHandler.Create)
		gated.GET("/tasks/:task_id", taskHandler.Get)
		gated.PUT("/tasks/:task_id", taskHandler.Update)
		gated.DELETE("/tasks/:task_id", taskHandler.Delete)
		gated.PATCH("/tasks/:task_id/status", taskHandler.Toggle)

		chatHandler := handler.NewChatHandler(chatService, searchService)
		api := gated.Group("/api/:user_id", handler.RequireSelf("user_id"))
		{
			api.POST("/chat", chatHandler.Chat)
			api.GET("/conversations", chatHandler.ListConversations)
			api.GET("/conversations/:conversation_id", chatHandler.GetConversation)
			api.DELETE("/conversations/:conversation_id", chatHandler.DeleteConversation)
			api.GET("/search", chatHandler.Search)
		}
	}

	log.Printf("listening on %s", cfg.Server.Address)
	if err := router.Run(cfg.Server.Address); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"brainstorm-coach/internal/ai"
	"brainstorm-coach/internal/bootstrap"
	"brainstorm-coach/internal/cache"
	"brainstorm-coach/internal/coach"
	"brainstorm-coach/internal/platform/rabbitmq"
	"brainstorm-coach/internal/repository"
	"brainstorm-coach/internal/service"
	"brainstorm-coach/internal/transport/http/handler"
	"brainstorm-coach/internal/transport/http/middleware"
	"brainstorm-coach/internal/vectorstore"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	userRepo := repository.NewUserRepository(app.DB)
	brainstormRepo := repository.NewBrainstormRepository(app.DB)
	messageRepo := repository.NewMessageRepository(app.DB)
	noteRepo := repository.NewNoteRepository(app.DB)

	llmClient := ai.NewClient()
	completer := ai.ChatCompleter{
		Client: llmClient,
		Config: ai.ChatConfig{
			BaseURL: app.Config.LLM.BaseURL,
			APIKey:  app.Config.LLM.APIKey,
			Model:   app.Config.LLM.Model,
		},
	}
	embedder := ai.TextEmbedder{
		Client: llmClient,
		Config: ai.EmbeddingConfig{
			BaseURL: app.Config.LLM.BaseURL,
			APIKey:  app.Config.LLM.APIKey,
			Model:   app.Config.LLM.EmbeddingModel,
		},
	}

	vectors := vectorstore.New(app.DB, embedder)
	mirror := service.NewMirror(vectors)
	historyCache := cache.NewHistoryCache(
		app.Redis,
		time.Duration(app.Config.Redis.HistoryTTLSeconds)*time.Second,
		time.Duration(app.Config.Redis.HistoryDirtyTTLSeconds)*time.Second,
	)

	authService := service.NewAuthService(
		userRepo,
		app.Config.Auth.JWTSecret,
		time.Duration(app.Config.Auth.JWTExpireMinute)*time.Minute,
	)
	brainstormService := service.NewBrainstormService(brainstormRepo, messageRepo, mirror, historyCache)
	taskPublisher := rabbitmq.NewTaskPublisher(app.MQConn, app.Config.RabbitMQ.TaskQueue)
	noteService := service.NewNoteService(noteRepo, taskPublisher)
	brainstormCoach := coach.New(brainstormRepo, messageRepo, vectors, completer, mirror, coach.Options{
		RequireContext: app.Config.Coach.RequireContext,
		ContextTopK:    app.Config.Coach.ContextTopK,
		MaxDistance:    app.Config.Coach.MaxDistance,
	})

	authHandler := handler.NewAuthHandler(authService)
	brainstormHandler := handler.NewBrainstormHandler(brainstormService)
	coachHandler := handler.NewCoachHandler(brainstormService, brainstormCoach)
	noteHandler := handler.NewNoteHandler(noteService)

	v1 := router.Group("/api/v1")
	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", middleware.AuthJWT(app.Config.Auth.JWTSecret), authHandler.Me)

	brainstormGroup := v1.Group("/brainstorms")
	brainstormGroup.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret))
	brainstormGroup.POST("", brainstormHandler.Create)
	brainstormGroup.GET("", brainstormHandler.List)
	brainstormGroup.GET("/:id", brainstormHandler.Get)
	brainstormGroup.DELETE("/:id", brainstormHandler.Delete)
	brainstormGroup.GET("/:id/messages", brainstormHandler.ListMessages)
	brainstormGroup.POST("/:id/messages", brainstormHandler.AppendMessage)
	brainstormGroup.DELETE("/:id/messages/:messageId", brainstormHandler.Rewind)
	brainstormGroup.POST("/:id/summary", coachHandler.GenerateSummary)
	brainstormGroup.POST("/:id/coach", coachHandler.CoachMessage)
	brainstormGroup.GET("/:id/connections", coachHandler.FindConnections)
	brainstormGroup.GET("/:id/similar", coachHandler.SimilarBrainstorms)

	noteGroup := v1.Group("/notes")
	noteGroup.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret))
	noteGroup.POST("", noteHandler.Create)
	noteGroup.GET("/:id", noteHandler.Get)

	return router
}

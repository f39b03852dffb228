package handler

import (
	"github.com/gin-gonic/gin"
	"studyai-go/internal/middleware"
	"studyai-go/internal/service"
)

// Services 汇总路由需要的全部业务服务。
type Services struct {
	Documents   service.DocumentService
	Generation  service.GenerationService
	Chat        service.ChatService
	MaxUploadMB int64
}

// RegisterRoutes 在 /api 下注册全部接口。
func RegisterRoutes(r *gin.Engine, svc Services) {
	r.GET("/api/health", Health)

	api := r.Group("/api")
	api.Use(middleware.UserIdentity())

	uploadHandler := NewUploadHandler(svc.Documents, svc.MaxUploadMB)
	upload := api.Group("/upload")
	{
		upload.POST("/document", uploadHandler.UploadDocument)
		upload.POST("/pdf", uploadHandler.UploadDocument)
		upload.POST("/youtube", uploadHandler.IngestYouTube)
	}

	docHandler := NewDocumentHandler(svc.Documents)
	genHandler := NewGenerationHandler(svc.Generation)
	chatHandler := NewChatHandler(svc.Chat)
	documents := api.Group("/documents")
	{
		documents.GET("", docHandler.ListDocuments)
		documents.GET("/:id", docHandler.GetDocument)
		documents.DELETE("/:id", docHandler.DeleteDocument)
		documents.GET("/:id/quiz", docHandler.ListQuiz)
		documents.GET("/:id/flashcards", docHandler.ListFlashcards)

		documents.POST("/:id/generate-notes", genHandler.GenerateNotes)
		documents.POST("/:id/generate-quiz", genHandler.GenerateQuiz)
		documents.POST("/:id/generate-flashcards", genHandler.GenerateFlashcards)
		documents.POST("/:id/generate-podcast", genHandler.GeneratePodcast)

		documents.POST("/:id/chat", chatHandler.PostMessage)
		documents.GET("/:id/chat", chatHandler.History)
		documents.DELETE("/:id/chat", chatHandler.Clear)
	}
}

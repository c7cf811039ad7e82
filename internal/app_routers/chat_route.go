package approuters

import (
	"LingoChat/internal/configuration"

	"github.com/gin-gonic/gin"
)

func ChatRouters(router *gin.Engine, container *configuration.Container) {
	chatRoute := router.Group("/chat")
	{
		chatRoute.POST("", container.ChatHandler.CreateChat)
		chatRoute.GET("", container.ChatHandler.GetChats)
		chatRoute.POST("/message", container.ChatHandler.SendMessage)
		chatRoute.POST("/:conversationId/end", container.ChatHandler.EndConversation)
		chatRoute.POST("/:conversationId/read", container.ChatHandler.MarkRead)
		chatRoute.GET("/:conversationId/export", container.ChatHandler.ExportConversation)
	}
}

func TranslationRouters(router *gin.Engine, container *configuration.Container) {
	router.POST("/detect", container.TranslationHandler.Detect)

	translateRoute := router.Group("/translate")
	{
		translateRoute.POST("", container.TranslationHandler.Translate)
		translateRoute.GET("/languages", container.TranslationHandler.Languages)
	}
}

package router

import (
	"github.com/gin-gonic/gin"

	"sudooom.chat/internal/handler"
	"sudooom.chat/internal/health"
)

// Setup 设置历史查询与健康检查路由
func Setup(historyHandler *handler.HistoryHandler, checker *health.Checker) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", checker.Handler)

	chat := r.Group("/chat")
	{
		chat.GET("/user-projects/:id", historyHandler.GetUserProjects)
		chat.GET("/user-contacts/:id", historyHandler.GetUserContacts)
		chat.GET("/conversations/:id", historyHandler.GetConversations)
		chat.GET("/messages/private", historyHandler.GetPrivateMessages)
		chat.GET("/messages/group", historyHandler.GetGroupMessages)
	}

	return r
}

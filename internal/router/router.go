package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/maqsadm/internal/config"
	"github.com/maqsadm/internal/handler"
)

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(cfg config.AppConfig, api *handler.API) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	r := gin.Default()

	// 配置会话中间件
	store := cookie.NewStore([]byte(cfg.SessionSecret))
	r.Use(sessions.Sessions("maqsadm_session", store))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// 静态文件服务（头像等上传内容）
	r.Static(cfg.UploadURLPath, cfg.UploadDir)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	v1 := r.Group("/api/v1")
	{
		v1.POST("/register", api.Register)
		v1.POST("/login", api.Login)
		v1.POST("/logout", api.Logout)

		// 需要认证的路由
		auth := v1.Group("")
		auth.Use(handler.AuthRequired())
		{
			auth.GET("/me", api.Me)
			auth.PUT("/me", api.UpdateProfile)
			auth.POST("/me/avatar", api.UploadAvatar)

			auth.GET("/tasks", api.ListMyTasks)
			auth.GET("/tasks/today", api.Today)
			auth.GET("/tasks/week", api.Week)
			auth.POST("/tasks/complete", api.CompleteTask)
			auth.GET("/completions", api.ListCompletions)

			auth.GET("/personal-tasks", api.ListPersonalTasks)
			auth.POST("/personal-tasks", api.CreatePersonalTask)
			auth.PUT("/personal-tasks/:id", api.UpdatePersonalTask)
			auth.DELETE("/personal-tasks/:id", api.DeletePersonalTask)

			auth.GET("/groups", api.ListGroups)
			auth.POST("/groups", api.CreateGroup)
			auth.POST("/groups/join", api.JoinGroup)
			auth.GET("/groups/:id", api.GetGroup)
			auth.POST("/groups/:id/leave", api.LeaveGroup)
			auth.GET("/groups/:id/members", api.ListGroupMembers)
			auth.PUT("/groups/:id/meeting", api.UpdateGroupMeeting)
			auth.GET("/groups/:id/leaderboard", api.GroupLeaderboard)

			auth.GET("/groups/:id/tasks", api.ListGroupTasks)
			auth.POST("/groups/:id/tasks", api.CreateGroupTask)
			auth.PUT("/group-tasks/:taskId", api.UpdateGroupTask)
			auth.DELETE("/group-tasks/:taskId", api.DeleteGroupTask)
			auth.PUT("/group-tasks/:taskId/subscription", api.SubscribeGroupTask)

			auth.GET("/groups/:id/messages", api.ListChatMessages)
			auth.POST("/groups/:id/messages", api.PostChatMessage)
			auth.DELETE("/messages/:messageId", api.DeleteChatMessage)

			auth.GET("/leaderboard", api.GlobalLeaderboard)

			auth.GET("/journal", api.GetJournal)
			auth.PUT("/journal", api.UpsertJournal)
			auth.GET("/journal/entries", api.ListJournal)

			auth.POST("/assistant/ask", api.AskAssistant)
			auth.GET("/assistant/messages", api.AssistantHistory)
			auth.DELETE("/assistant/messages/:messageId", api.DeleteAssistantMessage)

			auth.GET("/settings", api.GetSystemSettings)
			auth.PUT("/settings", api.UpdateSystemSettings)
		}
	}

	return r
}

package server

import (
	"fmt"
	"os"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func (s *Server) setupRouter() *gin.Engine {
	ginMode := os.Getenv("GIN_MODE")
	if ginMode == "test" {
		r := gin.New()
		s.defineRoutes(r)
		return r
	}

	r := gin.New()
	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
			param.ClientIP,
			param.TimeStamp.Format(time.RFC1123),
			param.Method,
			param.Path,
			param.Request.Proto,
			param.StatusCode,
			param.Latency,
			param.Request.UserAgent(),
			param.ErrorMessage,
		)
	}))
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	s.defineRoutes(r)

	return r
}

func (s *Server) defineRoutes(router *gin.Engine) {
	store := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{Rate: time.Minute, Limit: 10})
	limitStartConversation := limitRateForStartConversation(store)

	apirouter := router.Group("/api/v1")
	apirouter.GET("/push/public-key", s.handlePushPublicKey())

	authorized := apirouter.Group("/")
	authorized.Use(s.Authorize())
	authorized.GET("/conversations", s.handleListConversations())
	authorized.GET("/conversations/:conversationID/messages", s.handleConversationMessages())
	authorized.POST("/conversations/:conversationID/read", s.handleMarkConversationRead())
	authorized.POST("/products/:productID/conversations", limitStartConversation, s.handleStartConversation())

	authorized.GET("/notifications", s.handleListNotifications())
	authorized.GET("/count/unread/notifications", s.handleUnreadNotificationCount())
	authorized.POST("/read/all/notifications", s.handleMarkAllNotificationsRead())
	authorized.POST("/notifications/:notificationID/read", s.handleMarkNotificationRead())
	authorized.GET("/notifications/:notificationID/source", s.handleNotificationSource())
	authorized.DELETE("/notifications/:notificationID", s.handleDeleteNotification())
	authorized.DELETE("/notifications", s.handleClearNotifications())

	authorized.GET("/notification-preferences", s.handleGetPreferences())
	authorized.PUT("/notification-preferences", s.handleUpdatePreferences())

	authorized.POST("/push/devices", s.handleRegisterDevice())
	authorized.DELETE("/push/devices", s.handleUnregisterDevice())

	ws := router.Group("/ws")
	ws.Use(s.Authorize())
	ws.GET("/chat/:conversationID", s.handleChatWebSocket())
}

package server

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/studiswap/studiswap/chat"
	errs "github.com/studiswap/studiswap/errors"
	"github.com/studiswap/studiswap/models"
	"github.com/studiswap/studiswap/server/response"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleChatWebSocket admits the caller to the conversation's topic and
// hands the connection to a session. Admission failures close the attempt
// before the upgrade, so nothing is ever sent to a rejected client.
func (s *Server) handleChatWebSocket() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			respondAndAbort(c, "", http.StatusUnauthorized, nil, errs.New("Unauthorized", http.StatusUnauthorized))
			return
		}
		conversationID, err := uintParam(c, "conversationID")
		if err != nil {
			respondError(c, err)
			return
		}

		if _, err := s.ChatService.Admit(conversationID, userID); err != nil {
			respondError(c, err)
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("chat: upgrade failed: %v", err)
			return
		}

		identity := chat.Identity{
			UserID:   userID,
			Username: c.GetString("username"),
			FullName: c.GetString("fullName"),
		}
		session := chat.NewSession(conversationID, identity, conn, s.Broker, s.ChatRepository, s.Fanout)
		session.Run()
	}
}

func (s *Server) handleListConversations() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := currentUserID(c)
		page, perPage := pageParams(c)
		summaries, err := s.ChatService.ListConversations(userID, page, perPage)
		if err != nil {
			respondError(c, err)
			return
		}
		response.JSON(c, "conversations retrieved successfully", http.StatusOK, summaries, nil)
	}
}

// handleConversationMessages pages through a conversation newest-first and,
// like the conversation screen it backs, marks the counterpart's messages
// read as a side effect.
func (s *Server) handleConversationMessages() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := currentUserID(c)
		conversationID, err := uintParam(c, "conversationID")
		if err != nil {
			respondError(c, err)
			return
		}
		page, perPage := pageParams(c)

		messages, err := s.ChatService.ConversationMessages(conversationID, userID, page, perPage)
		if err != nil {
			respondError(c, err)
			return
		}
		if _, err := s.ChatService.MarkConversationRead(conversationID, userID); err != nil {
			log.Printf("chat: failed to mark conversation %d read: %v", conversationID, err)
		}
		response.JSON(c, "messages retrieved successfully", http.StatusOK, messages, nil)
	}
}

func (s *Server) handleMarkConversationRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := currentUserID(c)
		conversationID, err := uintParam(c, "conversationID")
		if err != nil {
			respondError(c, err)
			return
		}
		count, err := s.ChatService.MarkConversationRead(conversationID, userID)
		if err != nil {
			respondError(c, err)
			return
		}
		response.JSON(c, "messages marked read", http.StatusOK, gin.H{
			"success":      true,
			"marked_count": count,
		}, nil)
	}
}

func (s *Server) handleStartConversation() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := currentUserID(c)
		productID, err := uintParam(c, "productID")
		if err != nil {
			respondError(c, err)
			return
		}

		var req models.StartConversationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, errs.New("invalid request body", http.StatusBadRequest))
			return
		}
		if errList := models.ValidateStruct(&req); len(errList) > 0 {
			response.JSON(c, "", http.StatusBadRequest, nil, errList[0])
			return
		}

		conversation, started, err := s.ChatService.StartConversation(userID, productID, req.Message)
		if err != nil {
			respondError(c, err)
			return
		}

		message := "you already have an active conversation about this product"
		status := http.StatusOK
		if started {
			message = "conversation started"
			status = http.StatusCreated
		}
		response.JSON(c, message, status, gin.H{
			"conversation": conversation,
			"started":      started,
		}, nil)
	}
}

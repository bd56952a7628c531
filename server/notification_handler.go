package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/studiswap/studiswap/db"
	errs "github.com/studiswap/studiswap/errors"
	"github.com/studiswap/studiswap/models"
	"github.com/studiswap/studiswap/server/response"
)

func (s *Server) handleListNotifications() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := currentUserID(c)
		filter := c.DefaultQuery("type", db.NotificationFilterAll)
		page, perPage := pageParams(c)

		notifications, err := s.NotificationService.List(userID, filter, page, perPage)
		if err != nil {
			respondError(c, err)
			return
		}
		unread, err := s.NotificationService.UnreadCount(userID)
		if err != nil {
			respondError(c, err)
			return
		}
		response.JSON(c, "notifications retrieved successfully", http.StatusOK, gin.H{
			"notifications": notifications,
			"unread_count":  unread,
		}, nil)
	}
}

func (s *Server) handleUnreadNotificationCount() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := currentUserID(c)
		count, err := s.NotificationService.UnreadCount(userID)
		if err != nil {
			respondError(c, err)
			return
		}
		response.JSON(c, "", http.StatusOK, gin.H{"unread_count": count}, nil)
	}
}

// handleMarkNotificationRead flips one notification and hands back its
// action reference so the client can navigate to it.
func (s *Server) handleMarkNotificationRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := currentUserID(c)
		notificationID, err := uintParam(c, "notificationID")
		if err != nil {
			respondError(c, err)
			return
		}
		notification, err := s.NotificationService.MarkRead(notificationID, userID)
		if err != nil {
			respondError(c, err)
			return
		}
		response.JSON(c, "notification marked read", http.StatusOK, gin.H{
			"notification": notification,
			"action_url":   notification.ActionURL,
		}, nil)
	}
}

func (s *Server) handleMarkAllNotificationsRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := currentUserID(c)
		count, err := s.NotificationService.MarkAllRead(userID)
		if err != nil {
			respondError(c, err)
			return
		}
		response.JSON(c, "notifications marked read", http.StatusOK, gin.H{
			"success":      true,
			"marked_count": count,
		}, nil)
	}
}

func (s *Server) handleDeleteNotification() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := currentUserID(c)
		notificationID, err := uintParam(c, "notificationID")
		if err != nil {
			respondError(c, err)
			return
		}
		if err := s.NotificationService.Delete(notificationID, userID); err != nil {
			respondError(c, err)
			return
		}
		response.JSON(c, "notification deleted", http.StatusOK, gin.H{"success": true}, nil)
	}
}

func (s *Server) handleClearNotifications() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := currentUserID(c)
		count, err := s.NotificationService.ClearAll(userID)
		if err != nil {
			respondError(c, err)
			return
		}
		response.JSON(c, "notifications cleared", http.StatusOK, gin.H{
			"success":       true,
			"deleted_count": count,
		}, nil)
	}
}

func (s *Server) handleNotificationSource() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := currentUserID(c)
		notificationID, err := uintParam(c, "notificationID")
		if err != nil {
			respondError(c, err)
			return
		}
		notification, err := s.NotificationService.MarkRead(notificationID, userID)
		if err != nil {
			respondError(c, err)
			return
		}
		if notification.SourceKind == "" {
			response.JSON(c, "", http.StatusNotFound, nil, errs.New("notification has no source", http.StatusNotFound))
			return
		}
		source, err := s.NotificationService.ResolveSource(models.SourceRef{
			Kind: notification.SourceKind,
			ID:   notification.SourceID,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		response.JSON(c, "", http.StatusOK, gin.H{
			"kind":   notification.SourceKind,
			"source": source,
		}, nil)
	}
}

func (s *Server) handleGetPreferences() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := currentUserID(c)
		pref, err := s.NotificationService.GetPreferences(userID)
		if err != nil {
			respondError(c, err)
			return
		}
		response.JSON(c, "", http.StatusOK, pref, nil)
	}
}

func (s *Server) handleUpdatePreferences() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := currentUserID(c)
		var req models.UpdatePreferenceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, errs.New("invalid request body", http.StatusBadRequest))
			return
		}
		pref, err := s.NotificationService.UpdatePreferences(userID, &req)
		if err != nil {
			respondError(c, err)
			return
		}
		response.JSON(c, "notification preferences updated successfully", http.StatusOK, pref, nil)
	}
}

func (s *Server) handleRegisterDevice() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := currentUserID(c)
		var req models.RegisterDeviceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, errs.New("invalid request body", http.StatusBadRequest))
			return
		}
		if errList := models.ValidateStruct(&req); len(errList) > 0 {
			response.JSON(c, "", http.StatusBadRequest, nil, errList[0])
			return
		}
		device, err := s.NotificationService.RegisterDevice(userID, &req)
		if err != nil {
			respondError(c, err)
			return
		}
		response.JSON(c, "push device registered", http.StatusCreated, device, nil)
	}
}

func (s *Server) handleUnregisterDevice() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := currentUserID(c)
		var req models.UnregisterDeviceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, errs.New("invalid request body", http.StatusBadRequest))
			return
		}
		if err := s.NotificationService.UnregisterDevice(userID, req.Endpoint); err != nil {
			respondError(c, err)
			return
		}
		response.JSON(c, "push device unregistered", http.StatusOK, gin.H{"success": true}, nil)
	}
}

func (s *Server) handlePushPublicKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := s.PushService.PublicKey()
		if key == "" {
			response.JSON(c, "", http.StatusNotFound, nil, errs.New("push notifications not configured", http.StatusNotFound))
			return
		}
		response.JSON(c, "", http.StatusOK, gin.H{"public_key": key}, nil)
	}
}

package errors

import (
	"fmt"
	"net/http"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
)

// Error carries the HTTP status a handler should answer with.
type Error struct {
	Message string
	Status  int
}

func New(message string, status int) *Error {
	return &Error{Message: message, Status: status}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

var (
	ErrNotParticipant       = New("not a participant in this conversation", http.StatusForbidden)
	ErrConversationNotFound = New("conversation not found", http.StatusNotFound)
	ErrProductNotFound      = New("product not found or no longer active", http.StatusNotFound)
	ErrSelfConversation     = New("you can't start a conversation about your own product", http.StatusBadRequest)
	ErrNotificationNotFound = New("notification not found", http.StatusNotFound)
	ErrDeviceNotFound       = New("push device not found", http.StatusNotFound)
	InternalServerError     = New("internal server error", http.StatusInternalServerError)
)

// ErrorHandler is handed to the rate limiter middleware.
func ErrorHandler(c *gin.Context, info ratelimit.Info) {
	c.JSON(http.StatusTooManyRequests, gin.H{
		"errors": fmt.Sprintf("too many requests, try again at %s", info.ResetTime.Format("15:04:05")),
	})
}

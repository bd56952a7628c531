package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/studiswap/studiswap/chat"
	"github.com/studiswap/studiswap/config"
	"github.com/studiswap/studiswap/db"
	"github.com/studiswap/studiswap/mailingservices"
	"github.com/studiswap/studiswap/services"
)

type Server struct {
	Config *config.Config
	Mail   *mailingservices.Mailgun
	DB     db.GormDB

	Broker *chat.Broker

	ChatRepository         db.ChatRepository
	NotificationRepository db.NotificationRepository
	UserRepository         db.UserRepository
	ProductCatalog         db.ProductCatalog

	ChatService         services.ChatService
	NotificationService services.NotificationService
	PushService         services.PushService
	Fanout              services.FanoutService
}

// Start runs the HTTP server until SIGINT/SIGTERM, then drains: in-flight
// requests get a grace period, the broker detaches remaining sessions and
// the fanout queue finishes its backlog.
func (s *Server) Start() {
	s.Fanout.Start()

	port := s.Config.Port
	if port == 0 {
		port = 8080
	}
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.setupRouter(),
	}

	go func() {
		log.Printf("listening on :%d", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("forced shutdown: %v", err)
	}

	s.Broker.Close()
	s.Fanout.Stop()
	log.Println("server exited")
}

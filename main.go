package main

import (
	"context"
	"log"

	firebase "firebase.google.com/go"
	"firebase.google.com/go/messaging"
	"github.com/studiswap/studiswap/chat"
	"github.com/studiswap/studiswap/config"
	"github.com/studiswap/studiswap/db"
	"github.com/studiswap/studiswap/mailingservices"
	"github.com/studiswap/studiswap/models"
	"github.com/studiswap/studiswap/server"
	"github.com/studiswap/studiswap/services"
	"google.golang.org/api/option"
)

// initMessaging builds the FCM client for token devices. Web push only
// needs the VAPID keys from config, so a missing credentials file just
// means no mobile channel.
func initMessaging(conf *config.Config) services.CloudMessenger {
	if conf.FirebaseCredentialsFile == "" {
		log.Println("firebase credentials not configured, FCM disabled")
		return nil
	}
	opt := option.WithCredentialsFile(conf.FirebaseCredentialsFile)
	app, err := firebase.NewApp(context.Background(), nil, opt)
	if err != nil {
		log.Printf("error initializing Firebase app: %v", err)
		return nil
	}
	var client *messaging.Client
	client, err = app.Messaging(context.Background())
	if err != nil {
		log.Printf("error getting Messaging client: %v", err)
		return nil
	}
	log.Println("Firebase Messaging client initialized")
	return client
}

func main() {
	conf, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	mailgunClient := &mailingservices.Mailgun{}
	mailgunClient.Init(conf)

	gormDB := db.GetDB(conf)
	chatRepo := db.NewChatRepo(gormDB)
	notificationRepo := db.NewNotificationRepo(gormDB)
	userRepo := db.NewUserRepo(gormDB)
	catalog := db.NewProductCatalog(gormDB)

	sources := services.NewSourceRegistry()
	sources.Register(models.SourceMessage, func(id uint) (interface{}, error) {
		return chatRepo.FindMessageByID(id)
	})
	sources.Register(models.SourceConversation, func(id uint) (interface{}, error) {
		return chatRepo.FindConversationByID(id)
	})
	sources.Register(models.SourceProduct, func(id uint) (interface{}, error) {
		return catalog.GetProduct(id)
	})

	pushService := services.NewPushService(notificationRepo, initMessaging(conf), conf)
	notificationService := services.NewNotificationService(notificationRepo, sources, conf)
	fanout := services.NewFanoutService(chatRepo, notificationRepo, userRepo, pushService, mailgunClient, conf)
	chatService := services.NewChatService(chatRepo, userRepo, catalog, notificationRepo, notificationService, pushService, conf)

	s := &server.Server{
		Config:                 conf,
		Mail:                   mailgunClient,
		DB:                     *gormDB,
		Broker:                 chat.NewBroker(),
		ChatRepository:         chatRepo,
		NotificationRepository: notificationRepo,
		UserRepository:         userRepo,
		ProductCatalog:         catalog,
		ChatService:            chatService,
		NotificationService:    notificationService,
		PushService:            pushService,
		Fanout:                 fanout,
	}

	s.Start()
}

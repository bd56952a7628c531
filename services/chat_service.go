package services

import (
	"fmt"
	"log"

	"github.com/studiswap/studiswap/config"
	"github.com/studiswap/studiswap/db"
	errs "github.com/studiswap/studiswap/errors"
	"github.com/studiswap/studiswap/models"
)

// ChatService owns the conversation flows outside the live socket: starting
// a conversation about a product, admission checks for joining its topic,
// and the read-receipt contract the AJAX layer calls.
type ChatService interface {
	StartConversation(buyerID, productID uint, message string) (conversation *models.Conversation, started bool, err error)
	Admit(conversationID, userID uint) (*models.Conversation, error)
	MarkConversationRead(conversationID, readerID uint) (int64, error)
	ListConversations(userID uint, page, perPage int) ([]models.ConversationSummary, error)
	ConversationMessages(conversationID, userID uint, page, perPage int) ([]models.Message, error)
}

type chatService struct {
	Config           *config.Config
	chatRepo         db.ChatRepository
	userRepo         db.UserRepository
	catalog          db.ProductCatalog
	notificationRepo db.NotificationRepository
	notifications    NotificationService
	push             PushService
}

func NewChatService(chatRepo db.ChatRepository, userRepo db.UserRepository, catalog db.ProductCatalog, notificationRepo db.NotificationRepository, notifications NotificationService, push PushService, conf *config.Config) ChatService {
	return &chatService{
		Config:           conf,
		chatRepo:         chatRepo,
		userRepo:         userRepo,
		catalog:          catalog,
		notificationRepo: notificationRepo,
		notifications:    notifications,
		push:             push,
	}
}

// StartConversation is idempotent per (product, buyer, seller): repeated
// attempts land on the existing conversation. The posted first message is
// appended only when the conversation has no messages yet; an already
// started conversation is returned untouched.
func (s *chatService) StartConversation(buyerID, productID uint, message string) (*models.Conversation, bool, error) {
	product, err := s.catalog.GetActiveProduct(productID)
	if err != nil {
		return nil, false, err
	}
	if product.SellerID == buyerID {
		return nil, false, errs.ErrSelfConversation
	}

	conversation, created, err := s.chatRepo.GetOrCreateConversation(productID, buyerID, product.SellerID)
	if err != nil {
		return nil, false, err
	}

	started := created
	if !created {
		hasMessages, err := s.chatRepo.HasMessages(conversation.ID)
		if err != nil {
			return nil, false, err
		}
		started = !hasMessages
	}
	if !started {
		return conversation, false, nil
	}

	if _, err := s.chatRepo.AppendMessage(conversation.ID, buyerID, message); err != nil {
		return nil, false, err
	}
	s.notifySellerOfInquiry(conversation, product, buyerID)
	return conversation, true, nil
}

// notifySellerOfInquiry is best-effort: the conversation and its first
// message are already durable, an unreachable notification channel must not
// undo that.
func (s *chatService) notifySellerOfInquiry(conversation *models.Conversation, product *models.Product, buyerID uint) {
	pref, err := s.notificationRepo.GetOrCreatePreference(product.SellerID)
	if err != nil {
		log.Printf("chat: failed to load seller preferences: %v", err)
		pref = models.DefaultNotificationPreference(product.SellerID)
	}
	if !pref.ProductInquiryNotifications {
		return
	}

	buyerName := "Someone"
	if buyer, err := s.userRepo.FindUserByID(buyerID); err == nil {
		buyerName = buyer.DisplayName()
	}
	title := fmt.Sprintf("Someone is interested in your %s", product.Title)
	body := fmt.Sprintf("%s started a conversation about your product", buyerName)
	actionURL := fmt.Sprintf("/chat/conversation/%d/", conversation.ID)

	senderID := buyerID
	if _, err := s.notifications.Create(product.SellerID, &senderID, models.NotificationProductInquiry, title, body,
		&models.SourceRef{Kind: models.SourceConversation, ID: conversation.ID}, actionURL); err != nil {
		log.Printf("chat: failed to create inquiry notification: %v", err)
	}

	if pref.PushNotifications {
		tag := fmt.Sprintf("chat-%d", conversation.ID)
		if _, err := s.push.DispatchToUser(product.SellerID, title, TruncateBody(body), actionURL, tag); err != nil {
			log.Printf("chat: inquiry push dispatch failed: %v", err)
		}
	}
}

// Admit is the topic authorization check: only the conversation's buyer or
// seller may join.
func (s *chatService) Admit(conversationID, userID uint) (*models.Conversation, error) {
	conversation, err := s.chatRepo.FindConversationByID(conversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.HasParticipant(userID) {
		return nil, errs.ErrNotParticipant
	}
	return conversation, nil
}

func (s *chatService) MarkConversationRead(conversationID, readerID uint) (int64, error) {
	if _, err := s.Admit(conversationID, readerID); err != nil {
		return 0, err
	}
	return s.chatRepo.MarkMessagesRead(conversationID, readerID)
}

func (s *chatService) ListConversations(userID uint, page, perPage int) ([]models.ConversationSummary, error) {
	return s.chatRepo.ListConversations(userID, page, perPage)
}

func (s *chatService) ConversationMessages(conversationID, userID uint, page, perPage int) ([]models.Message, error) {
	if _, err := s.Admit(conversationID, userID); err != nil {
		return nil, err
	}
	return s.chatRepo.ListMessages(conversationID, page, perPage)
}

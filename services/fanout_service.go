package services

import (
	"fmt"
	"log"
	"sync"

	"github.com/studiswap/studiswap/config"
	"github.com/studiswap/studiswap/db"
	"github.com/studiswap/studiswap/models"
)

// Mailer is the email channel consumed by the fanout. mailingservices
// provides the Mailgun-backed implementation.
type Mailer interface {
	Send(recipient, subject, body string) error
}

// FanoutService turns one persisted message into its secondary
// notifications: in-app record, push, email. Everything here is
// best-effort and decoupled from the live broadcast; a full queue drops
// the event rather than backing up the chat path.
type FanoutService interface {
	Start()
	Stop()
	EnqueueNewMessage(msg *models.Message)
}

type fanoutService struct {
	Config           *config.Config
	chatRepo         db.ChatRepository
	notificationRepo db.NotificationRepository
	userRepo         db.UserRepository
	push             PushService
	mailer           Mailer

	jobs   chan *models.Message
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

func NewFanoutService(chatRepo db.ChatRepository, notificationRepo db.NotificationRepository, userRepo db.UserRepository, push PushService, mailer Mailer, conf *config.Config) FanoutService {
	return &fanoutService{
		Config:           conf,
		chatRepo:         chatRepo,
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
		push:             push,
		mailer:           mailer,
		jobs:             make(chan *models.Message, conf.FanoutQueueSize),
	}
}

func (s *fanoutService) Start() {
	workers := s.Config.FanoutWorkers
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
}

func (s *fanoutService) Stop() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.jobs)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// EnqueueNewMessage never blocks the caller. Overflow is dropped: the live
// message already reached its subscribers.
func (s *fanoutService) EnqueueNewMessage(msg *models.Message) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.jobs <- msg:
	default:
		log.Printf("fanout: queue full, dropping notification for message %d", msg.ID)
	}
}

func (s *fanoutService) worker() {
	defer s.wg.Done()
	for msg := range s.jobs {
		s.process(msg)
	}
}

// process runs the fanout steps for one message. The steps are independent:
// a failed push never unwinds the in-app record, and nothing here reaches
// back into the chat path.
func (s *fanoutService) process(msg *models.Message) {
	conversation, err := s.chatRepo.FindConversationByID(msg.ConversationID)
	if err != nil {
		log.Printf("fanout: failed to resolve conversation %d: %v", msg.ConversationID, err)
		return
	}
	recipientID := conversation.OtherParticipant(msg.SenderID)

	pref, err := s.notificationRepo.GetOrCreatePreference(recipientID)
	if err != nil {
		// Preferences must never block the fanout; fall back to defaults.
		log.Printf("fanout: failed to load preferences for user %d: %v", recipientID, err)
		pref = models.DefaultNotificationPreference(recipientID)
	}
	if !pref.NewMessageNotifications {
		return
	}

	senderName := s.senderDisplayName(conversation, msg.SenderID)
	title := fmt.Sprintf("New message about %s", conversation.Product.Title)
	body := fmt.Sprintf("%s sent you a message", senderName)
	actionURL := fmt.Sprintf("/chat/conversation/%d/", conversation.ID)

	senderID := msg.SenderID
	notification := &models.Notification{
		RecipientID: recipientID,
		SenderID:    &senderID,
		Category:    models.NotificationNewMessage,
		Title:       title,
		Message:     body,
		SourceKind:  models.SourceMessage,
		SourceID:    msg.ID,
		ActionURL:   actionURL,
	}
	if err := s.notificationRepo.CreateNotification(notification); err != nil {
		log.Printf("fanout: failed to create notification for message %d: %v", msg.ID, err)
	}

	if pref.PushNotifications {
		pushTitle := fmt.Sprintf("New message from %s", senderName)
		tag := fmt.Sprintf("chat-%d", conversation.ID)
		if _, err := s.push.DispatchToUser(recipientID, pushTitle, TruncateBody(msg.Content), actionURL, tag); err != nil {
			log.Printf("fanout: push dispatch for message %d failed: %v", msg.ID, err)
		}
	}

	if pref.EmailNotifications && s.mailer != nil {
		s.sendEmail(recipientID, title, senderName, msg)
	}
}

func (s *fanoutService) sendEmail(recipientID uint, subject, senderName string, msg *models.Message) {
	recipient, err := s.userRepo.FindUserByID(recipientID)
	if err != nil {
		log.Printf("fanout: failed to resolve recipient %d for email: %v", recipientID, err)
		return
	}
	body := fmt.Sprintf("%s sent you a message:\n\n%s\n", senderName, TruncateBody(msg.Content))
	if err := s.mailer.Send(recipient.Email, subject, body); err != nil {
		log.Printf("fanout: email to user %d failed: %v", recipientID, err)
	}
}

func (s *fanoutService) senderDisplayName(conversation *models.Conversation, senderID uint) string {
	if conversation.Buyer.ID == senderID {
		return conversation.Buyer.DisplayName()
	}
	if conversation.Seller.ID == senderID {
		return conversation.Seller.DisplayName()
	}
	sender, err := s.userRepo.FindUserByID(senderID)
	if err != nil {
		return "Someone"
	}
	return sender.DisplayName()
}

// TruncateBody caps a push body at 100 characters, ellipsis included.
func TruncateBody(s string) string {
	r := []rune(s)
	if len(r) <= 100 {
		return s
	}
	return string(r[:97]) + "..."
}

package db

import (
	"time"

	"github.com/pkg/errors"
	errs "github.com/studiswap/studiswap/errors"
	"github.com/studiswap/studiswap/models"
	"gorm.io/gorm"
)

// ChatRepository is the durable record of conversations and messages.
type ChatRepository interface {
	GetOrCreateConversation(productID, buyerID, sellerID uint) (*models.Conversation, bool, error)
	FindConversationByID(id uint) (*models.Conversation, error)
	ListConversations(userID uint, page, perPage int) ([]models.ConversationSummary, error)
	HasMessages(conversationID uint) (bool, error)
	AppendMessage(conversationID, senderID uint, content string) (*models.Message, error)
	FindMessageByID(id uint) (*models.Message, error)
	MarkMessagesRead(conversationID, readerID uint) (int64, error)
	ListMessages(conversationID uint, page, perPage int) ([]models.Message, error)
	UnreadCount(conversationID, userID uint) (int64, error)
}

type chatRepo struct {
	DB *gorm.DB
}

func NewChatRepo(db *GormDB) ChatRepository {
	return &chatRepo{db.DB}
}

func (r *chatRepo) GetOrCreateConversation(productID, buyerID, sellerID uint) (*models.Conversation, bool, error) {
	var conversation models.Conversation
	result := r.DB.Where(models.Conversation{
		ProductID: productID,
		BuyerID:   buyerID,
		SellerID:  sellerID,
	}).Attrs(models.Conversation{IsActive: true}).FirstOrCreate(&conversation)
	if result.Error != nil {
		return nil, false, errors.Wrap(result.Error, "failed to get or create conversation")
	}
	created := result.RowsAffected > 0
	return &conversation, created, nil
}

func (r *chatRepo) FindConversationByID(id uint) (*models.Conversation, error) {
	var conversation models.Conversation
	err := r.DB.Preload("Product").Preload("Buyer").Preload("Seller").First(&conversation, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrConversationNotFound
		}
		return nil, errors.Wrap(err, "failed to find conversation")
	}
	return &conversation, nil
}

func (r *chatRepo) ListConversations(userID uint, page, perPage int) ([]models.ConversationSummary, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	var conversations []models.Conversation
	err := r.DB.Preload("Product").Preload("Buyer").Preload("Seller").
		Where("is_active = ?", true).
		Where("buyer_id = ? OR seller_id = ?", userID, userID).
		Order("updated_at DESC").
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&conversations).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list conversations")
	}

	summaries := make([]models.ConversationSummary, 0, len(conversations))
	for i := range conversations {
		conv := conversations[i]
		summary := models.ConversationSummary{Conversation: conv}
		if userID == conv.BuyerID {
			summary.OtherUser = conv.Seller
		} else {
			summary.OtherUser = conv.Buyer
		}

		var last models.Message
		err := r.DB.Where("conversation_id = ?", conv.ID).Order("created_at DESC").First(&last).Error
		if err == nil {
			summary.LastMessage = &last
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrap(err, "failed to load last message")
		}

		unread, err := r.UnreadCount(conv.ID, userID)
		if err != nil {
			return nil, err
		}
		summary.UnreadCount = unread
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (r *chatRepo) HasMessages(conversationID uint) (bool, error) {
	var count int64
	err := r.DB.Model(&models.Message{}).Where("conversation_id = ?", conversationID).Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "failed to count messages")
	}
	return count > 0, nil
}

// AppendMessage persists the message and bumps the conversation's activity
// timestamp in one transaction. A sender outside the conversation's pair is
// rejected before anything is written.
func (r *chatRepo) AppendMessage(conversationID, senderID uint, content string) (*models.Message, error) {
	var message *models.Message
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		var conversation models.Conversation
		if err := tx.First(&conversation, conversationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.ErrConversationNotFound
			}
			return errors.Wrap(err, "failed to load conversation")
		}
		if !conversation.HasParticipant(senderID) {
			return errs.ErrNotParticipant
		}

		message = &models.Message{
			ConversationID: conversationID,
			SenderID:       senderID,
			Content:        content,
		}
		if err := tx.Create(message).Error; err != nil {
			return errors.Wrap(err, "failed to save message")
		}
		if err := tx.Model(&models.Conversation{}).Where("id = ?", conversationID).
			Update("updated_at", time.Now()).Error; err != nil {
			return errors.Wrap(err, "failed to bump conversation activity")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return message, nil
}

func (r *chatRepo) FindMessageByID(id uint) (*models.Message, error) {
	var message models.Message
	if err := r.DB.Preload("Sender").First(&message, id).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find message")
	}
	return &message, nil
}

// MarkMessagesRead flips every unread message authored by the other
// participant. Idempotent: a second call reports zero rows flipped.
func (r *chatRepo) MarkMessagesRead(conversationID, readerID uint) (int64, error) {
	result := r.DB.Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND is_read = ?", conversationID, readerID, false).
		Update("is_read", true)
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to mark messages read")
	}
	return result.RowsAffected, nil
}

func (r *chatRepo) ListMessages(conversationID uint, page, perPage int) ([]models.Message, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	var messages []models.Message
	err := r.DB.Preload("Sender").
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&messages).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list messages")
	}
	return messages, nil
}

func (r *chatRepo) UnreadCount(conversationID, userID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND is_read = ?", conversationID, userID, false).
		Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, "failed to count unread messages")
	}
	return count, nil
}

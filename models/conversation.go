package models

import "time"

// Conversation ties a buyer and a seller to one product. The triple is
// unique; repeated contact attempts land on the same row.
type Conversation struct {
	Model
	ProductID uint      `json:"product_id" gorm:"uniqueIndex:idx_conversation_triple;not null"`
	Product   Product   `gorm:"foreignKey:ProductID" json:"product"`
	BuyerID   uint      `json:"buyer_id" gorm:"uniqueIndex:idx_conversation_triple;not null"`
	Buyer     User      `gorm:"foreignKey:BuyerID" json:"buyer"`
	SellerID  uint      `json:"seller_id" gorm:"uniqueIndex:idx_conversation_triple;not null"`
	Seller    User      `gorm:"foreignKey:SellerID" json:"seller"`
	IsActive  bool      `json:"is_active" gorm:"default:true"`
	Messages  []Message `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"-"`
}

// OtherParticipant returns the participant that is not the given user.
func (c *Conversation) OtherParticipant(userID uint) uint {
	if userID == c.BuyerID {
		return c.SellerID
	}
	return c.BuyerID
}

// HasParticipant reports whether the user is the conversation's buyer or seller.
func (c *Conversation) HasParticipant(userID uint) bool {
	return userID == c.BuyerID || userID == c.SellerID
}

// Message is immutable once created except for the read flag.
type Message struct {
	Model
	ConversationID uint         `json:"conversation_id" gorm:"index;not null"`
	Conversation   Conversation `gorm:"foreignKey:ConversationID" json:"-"`
	SenderID       uint         `json:"sender_id" gorm:"index;not null"`
	Sender         User         `gorm:"foreignKey:SenderID" json:"sender"`
	Content        string       `json:"content" gorm:"not null"`
	IsRead         bool         `json:"is_read" gorm:"default:false"`
}

// ConversationSummary is the list-view projection: the conversation plus
// the counterpart and unread state from the requesting user's perspective.
type ConversationSummary struct {
	Conversation Conversation `json:"conversation"`
	OtherUser    User         `json:"other_user"`
	LastMessage  *Message     `json:"last_message,omitempty"`
	UnreadCount  int64        `json:"unread_count"`
}

// ChatTimestampLayout is the human-facing timestamp on outbound chat events.
const ChatTimestampLayout = "Jan 02, 2006 03:04 PM"

func FormatChatTimestamp(t time.Time) string {
	return t.Format(ChatTimestampLayout)
}

package models

import "time"

// Notification categories.
const (
	NotificationNewMessage           = "new_message"
	NotificationProductInquiry       = "product_inquiry"
	NotificationPriceUpdate          = "price_update"
	NotificationProductSold          = "product_sold"
	NotificationWishlistPriceDrop    = "wishlist_price_drop"
	NotificationNewProductInCategory = "new_product_in_category"
	NotificationProductExpired       = "product_expired"
)

// NotificationCategories enumerates the valid category tags.
var NotificationCategories = []string{
	NotificationNewMessage,
	NotificationProductInquiry,
	NotificationPriceUpdate,
	NotificationProductSold,
	NotificationWishlistPriceDrop,
	NotificationNewProductInCategory,
	NotificationProductExpired,
}

func IsNotificationCategory(category string) bool {
	for _, c := range NotificationCategories {
		if c == category {
			return true
		}
	}
	return false
}

// SourceKind tags the entity a notification points back at. A tagged
// kind/id pair replaces a reflective generic association; resolution goes
// through a per-kind lookup registry.
type SourceKind string

const (
	SourceMessage      SourceKind = "message"
	SourceConversation SourceKind = "conversation"
	SourceProduct      SourceKind = "product"
)

// SourceRef identifies the entity a notification was produced for.
type SourceRef struct {
	Kind SourceKind `json:"kind"`
	ID   uint       `json:"id"`
}

// Notification is immutable except for the read flag.
type Notification struct {
	Model
	RecipientID uint       `json:"recipient_id" gorm:"index;not null"`
	Recipient   User       `gorm:"foreignKey:RecipientID" json:"-"`
	SenderID    *uint      `json:"sender_id,omitempty"`
	Sender      *User      `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Category    string     `json:"category" gorm:"index;not null"`
	Title       string     `json:"title" gorm:"size:200;not null"`
	Message     string     `json:"message"`
	IsRead      bool       `json:"is_read" gorm:"default:false"`
	SourceKind  SourceKind `json:"source_kind,omitempty" gorm:"size:32"`
	SourceID    uint       `json:"source_id,omitempty"`
	ActionURL   string     `json:"action_url,omitempty" gorm:"size:500"`
}

// NotificationPreference exists for every user; functional categories
// default on, marketing defaults off. EmailNotifications and
// PushNotifications are the per-channel master switches.
type NotificationPreference struct {
	Model
	UserID                      uint `json:"user_id" gorm:"uniqueIndex;not null"`
	EmailNotifications          bool `json:"email_notifications" gorm:"default:true"`
	PushNotifications           bool `json:"push_notifications" gorm:"default:true"`
	NewMessageNotifications     bool `json:"new_message_notifications" gorm:"default:true"`
	ProductInquiryNotifications bool `json:"product_inquiry_notifications" gorm:"default:true"`
	PriceUpdateNotifications    bool `json:"price_update_notifications" gorm:"default:true"`
	WishlistNotifications       bool `json:"wishlist_notifications" gorm:"default:true"`
	MarketingNotifications      bool `json:"marketing_notifications" gorm:"default:false"`
}

// DefaultNotificationPreference returns the row created alongside a user.
func DefaultNotificationPreference(userID uint) *NotificationPreference {
	return &NotificationPreference{
		UserID:                      userID,
		EmailNotifications:          true,
		PushNotifications:           true,
		NewMessageNotifications:     true,
		ProductInquiryNotifications: true,
		PriceUpdateNotifications:    true,
		WishlistNotifications:       true,
		MarketingNotifications:      false,
	}
}

// Push device platforms.
const (
	PushPlatformWeb     = "web"
	PushPlatformAndroid = "android"
	PushPlatformIOS     = "ios"
)

// PushDevice is one registered push-capable endpoint. Web devices carry a
// VAPID subscription (endpoint + encryption keys); mobile platforms carry
// an FCM registration token in Endpoint. Dead endpoints are deactivated,
// never deleted.
type PushDevice struct {
	Model
	UserID     uint      `json:"user_id" gorm:"uniqueIndex:idx_push_device_user_endpoint;not null"`
	User       User      `gorm:"foreignKey:UserID" json:"-"`
	Platform   string    `json:"platform" gorm:"size:16;default:web"`
	Endpoint   string    `json:"endpoint" gorm:"size:500;uniqueIndex:idx_push_device_user_endpoint;not null"`
	P256dh     string    `json:"-" gorm:"size:255"`
	Auth       string    `json:"-" gorm:"size:255"`
	UserAgent  string    `json:"user_agent,omitempty" gorm:"size:255"`
	IsActive   bool      `json:"is_active" gorm:"default:true"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

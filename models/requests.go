package models

// StartConversationRequest opens (or re-opens) a conversation about a
// product with its first message.
type StartConversationRequest struct {
	Message string `json:"message" binding:"required" conform:"trim"`
}

// SubscriptionKeys are the browser-supplied encryption keys of a web push
// subscription. Treated as opaque; the dispatch protocol consumes them.
type SubscriptionKeys struct {
	P256dh string `json:"p256dh" binding:"required"`
	Auth   string `json:"auth" binding:"required"`
}

// RegisterDeviceRequest registers one push-capable endpoint for the
// authenticated user.
type RegisterDeviceRequest struct {
	Platform  string            `json:"platform" validate:"omitempty,oneof=web android ios" conform:"trim,lower"`
	Endpoint  string            `json:"endpoint" binding:"required" conform:"trim"`
	Keys      *SubscriptionKeys `json:"keys,omitempty"`
	UserAgent string            `json:"user_agent,omitempty" conform:"trim"`
}

// UnregisterDeviceRequest deactivates the endpoint for the user.
type UnregisterDeviceRequest struct {
	Endpoint string `json:"endpoint" binding:"required" conform:"trim"`
}

// UpdatePreferenceRequest carries partial toggle updates; nil fields keep
// their current value.
type UpdatePreferenceRequest struct {
	EmailNotifications          *bool `json:"email_notifications"`
	PushNotifications           *bool `json:"push_notifications"`
	NewMessageNotifications     *bool `json:"new_message_notifications"`
	ProductInquiryNotifications *bool `json:"product_inquiry_notifications"`
	PriceUpdateNotifications    *bool `json:"price_update_notifications"`
	WishlistNotifications       *bool `json:"wishlist_notifications"`
	MarketingNotifications      *bool `json:"marketing_notifications"`
}

// Apply folds the non-nil fields into the stored preference row.
func (r *UpdatePreferenceRequest) Apply(p *NotificationPreference) {
	if r.EmailNotifications != nil {
		p.EmailNotifications = *r.EmailNotifications
	}
	if r.PushNotifications != nil {
		p.PushNotifications = *r.PushNotifications
	}
	if r.NewMessageNotifications != nil {
		p.NewMessageNotifications = *r.NewMessageNotifications
	}
	if r.ProductInquiryNotifications != nil {
		p.ProductInquiryNotifications = *r.ProductInquiryNotifications
	}
	if r.PriceUpdateNotifications != nil {
		p.PriceUpdateNotifications = *r.PriceUpdateNotifications
	}
	if r.WishlistNotifications != nil {
		p.WishlistNotifications = *r.WishlistNotifications
	}
	if r.MarketingNotifications != nil {
		p.MarketingNotifications = *r.MarketingNotifications
	}
}

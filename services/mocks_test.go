package services

import (
	"fmt"
	"sync"
	"time"

	errs "github.com/studiswap/studiswap/errors"
	"github.com/studiswap/studiswap/models"
)

// In-memory stand-ins for the repository interfaces. They keep just enough
// state to observe what the services wrote.

type fakeChatRepo struct {
	mu            sync.Mutex
	conversations map[uint]*models.Conversation
	messages      map[uint][]models.Message
	nextConvID    uint
	nextMsgID     uint
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{
		conversations: make(map[uint]*models.Conversation),
		messages:      make(map[uint][]models.Message),
	}
}

func (r *fakeChatRepo) addConversation(productID, buyerID, sellerID uint, buyer, seller models.User, product models.Product) *models.Conversation {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextConvID++
	conv := &models.Conversation{
		ProductID: productID,
		Product:   product,
		BuyerID:   buyerID,
		Buyer:     buyer,
		SellerID:  sellerID,
		Seller:    seller,
		IsActive:  true,
	}
	conv.ID = r.nextConvID
	r.conversations[conv.ID] = conv
	return conv
}

func (r *fakeChatRepo) GetOrCreateConversation(productID, buyerID, sellerID uint) (*models.Conversation, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, conv := range r.conversations {
		if conv.ProductID == productID && conv.BuyerID == buyerID && conv.SellerID == sellerID {
			return conv, false, nil
		}
	}
	r.nextConvID++
	conv := &models.Conversation{
		ProductID: productID,
		BuyerID:   buyerID,
		SellerID:  sellerID,
		IsActive:  true,
	}
	conv.ID = r.nextConvID
	r.conversations[conv.ID] = conv
	return conv, true, nil
}

func (r *fakeChatRepo) FindConversationByID(id uint) (*models.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.conversations[id]
	if !ok {
		return nil, errs.ErrConversationNotFound
	}
	return conv, nil
}

func (r *fakeChatRepo) ListConversations(userID uint, page, perPage int) ([]models.ConversationSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var summaries []models.ConversationSummary
	for _, conv := range r.conversations {
		if conv.HasParticipant(userID) {
			summaries = append(summaries, models.ConversationSummary{Conversation: *conv})
		}
	}
	return summaries, nil
}

func (r *fakeChatRepo) HasMessages(conversationID uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages[conversationID]) > 0, nil
}

func (r *fakeChatRepo) AppendMessage(conversationID, senderID uint, content string) (*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.conversations[conversationID]
	if !ok {
		return nil, errs.ErrConversationNotFound
	}
	if !conv.HasParticipant(senderID) {
		return nil, errs.ErrNotParticipant
	}
	r.nextMsgID++
	msg := models.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
	}
	msg.ID = r.nextMsgID
	msg.CreatedAt = time.Now()
	r.messages[conversationID] = append(r.messages[conversationID], msg)
	return &msg, nil
}

func (r *fakeChatRepo) FindMessageByID(id uint) (*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, msgs := range r.messages {
		for i := range msgs {
			if msgs[i].ID == id {
				return &msgs[i], nil
			}
		}
	}
	return nil, fmt.Errorf("message %d not found", id)
}

func (r *fakeChatRepo) MarkMessagesRead(conversationID, readerID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var flipped int64
	msgs := r.messages[conversationID]
	for i := range msgs {
		if msgs[i].SenderID != readerID && !msgs[i].IsRead {
			msgs[i].IsRead = true
			flipped++
		}
	}
	return flipped, nil
}

func (r *fakeChatRepo) ListMessages(conversationID uint, page, perPage int) ([]models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Message(nil), r.messages[conversationID]...), nil
}

func (r *fakeChatRepo) UnreadCount(conversationID, userID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, msg := range r.messages[conversationID] {
		if msg.SenderID != userID && !msg.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *fakeChatRepo) messageCount(conversationID uint) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages[conversationID])
}

type fakeNotificationRepo struct {
	mu            sync.Mutex
	prefs         map[uint]*models.NotificationPreference
	prefErr       error
	notifications []*models.Notification
	devices       []*models.PushDevice
	deactivated   []uint
	nextID        uint
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{prefs: make(map[uint]*models.NotificationPreference)}
}

func (r *fakeNotificationRepo) CreateNotification(n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	n.ID = r.nextID
	n.CreatedAt = time.Now()
	r.notifications = append(r.notifications, n)
	return nil
}

func (r *fakeNotificationRepo) ListNotifications(recipientID uint, filter string, page, perPage int) ([]models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Notification
	for _, n := range r.notifications {
		if n.RecipientID != recipientID {
			continue
		}
		switch {
		case filter == "unread" && n.IsRead:
			continue
		case filter == "read" && !n.IsRead:
			continue
		case models.IsNotificationCategory(filter) && n.Category != filter:
			continue
		}
		out = append(out, *n)
	}
	return out, nil
}

func (r *fakeNotificationRepo) MarkNotificationRead(id, recipientID uint) (*models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.notifications {
		if n.ID == id && n.RecipientID == recipientID {
			n.IsRead = true
			return n, nil
		}
	}
	return nil, errs.ErrNotificationNotFound
}

func (r *fakeNotificationRepo) MarkAllNotificationsRead(recipientID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var flipped int64
	for _, n := range r.notifications {
		if n.RecipientID == recipientID && !n.IsRead {
			n.IsRead = true
			flipped++
		}
	}
	return flipped, nil
}

func (r *fakeNotificationRepo) DeleteNotification(id, recipientID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, n := range r.notifications {
		if n.ID == id && n.RecipientID == recipientID {
			r.notifications = append(r.notifications[:i], r.notifications[i+1:]...)
			return nil
		}
	}
	return errs.ErrNotificationNotFound
}

func (r *fakeNotificationRepo) ClearNotifications(recipientID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []*models.Notification
	var removed int64
	for _, n := range r.notifications {
		if n.RecipientID == recipientID {
			removed++
			continue
		}
		kept = append(kept, n)
	}
	r.notifications = kept
	return removed, nil
}

func (r *fakeNotificationRepo) UnreadNotificationCount(recipientID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, n := range r.notifications {
		if n.RecipientID == recipientID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *fakeNotificationRepo) GetOrCreatePreference(userID uint) (*models.NotificationPreference, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.prefErr != nil {
		return nil, r.prefErr
	}
	if pref, ok := r.prefs[userID]; ok {
		return pref, nil
	}
	pref := models.DefaultNotificationPreference(userID)
	r.prefs[userID] = pref
	return pref, nil
}

func (r *fakeNotificationRepo) UpdatePreference(pref *models.NotificationPreference) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefs[pref.UserID] = pref
	return nil
}

func (r *fakeNotificationRepo) setPreference(pref *models.NotificationPreference) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefs[pref.UserID] = pref
}

func (r *fakeNotificationRepo) RegisterDevice(device *models.PushDevice) (*models.PushDevice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.devices {
		if d.UserID == device.UserID && d.Endpoint == device.Endpoint {
			d.Platform = device.Platform
			d.P256dh = device.P256dh
			d.Auth = device.Auth
			d.IsActive = true
			d.LastSeenAt = time.Now()
			return d, nil
		}
	}
	r.nextID++
	device.ID = r.nextID
	device.IsActive = true
	device.LastSeenAt = time.Now()
	r.devices = append(r.devices, device)
	return device, nil
}

func (r *fakeNotificationRepo) DeactivateDevice(id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.devices {
		if d.ID == id {
			d.IsActive = false
			r.deactivated = append(r.deactivated, id)
			return nil
		}
	}
	return errs.ErrDeviceNotFound
}

func (r *fakeNotificationRepo) DeactivateDeviceByEndpoint(userID uint, endpoint string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.devices {
		if d.UserID == userID && d.Endpoint == endpoint {
			d.IsActive = false
			r.deactivated = append(r.deactivated, d.ID)
			return nil
		}
	}
	return errs.ErrDeviceNotFound
}

func (r *fakeNotificationRepo) ActiveDevices(userID uint) ([]models.PushDevice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.PushDevice
	for _, d := range r.devices {
		if d.UserID == userID && d.IsActive {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (r *fakeNotificationRepo) allNotifications() []*models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*models.Notification(nil), r.notifications...)
}

type fakeUserRepo struct {
	users map[uint]*models.User
}

func (r *fakeUserRepo) FindUserByID(id uint) (*models.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d not found", id)
	}
	return user, nil
}

type fakeCatalog struct {
	products map[uint]*models.Product
}

func (r *fakeCatalog) GetActiveProduct(id uint) (*models.Product, error) {
	product, ok := r.products[id]
	if !ok || product.Status != models.ProductStatusActive {
		return nil, errs.ErrProductNotFound
	}
	return product, nil
}

func (r *fakeCatalog) GetProduct(id uint) (*models.Product, error) {
	product, ok := r.products[id]
	if !ok {
		return nil, errs.ErrProductNotFound
	}
	return product, nil
}

type pushCall struct {
	UserID uint
	Title  string
	Body   string
	URL    string
	Tag    string
}

type fakePush struct {
	mu    sync.Mutex
	calls []pushCall
}

func (p *fakePush) DispatchToUser(userID uint, title, body, url, tag string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, pushCall{UserID: userID, Title: title, Body: body, URL: url, Tag: tag})
	return 1, nil
}

func (p *fakePush) PublicKey() string { return "test-public-key" }

func (p *fakePush) dispatches() []pushCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]pushCall(nil), p.calls...)
}

type emailCall struct {
	Recipient string
	Subject   string
	Body      string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []emailCall
	fail error
}

func (m *fakeMailer) Send(recipient, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.sent = append(m.sent, emailCall{Recipient: recipient, Subject: subject, Body: body})
	return nil
}

func (m *fakeMailer) emails() []emailCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]emailCall(nil), m.sent...)
}

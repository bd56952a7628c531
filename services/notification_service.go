package services

import (
	"net/http"
	"sync"

	"github.com/studiswap/studiswap/config"
	"github.com/studiswap/studiswap/db"
	errs "github.com/studiswap/studiswap/errors"
	"github.com/studiswap/studiswap/models"
)

// SourceResolver loads the entity behind one SourceKind.
type SourceResolver func(id uint) (interface{}, error)

// SourceRegistry resolves a notification's tagged source reference through
// per-kind lookup functions registered at wiring time.
type SourceRegistry struct {
	mu        sync.RWMutex
	resolvers map[models.SourceKind]SourceResolver
}

func NewSourceRegistry() *SourceRegistry {
	return &SourceRegistry{resolvers: make(map[models.SourceKind]SourceResolver)}
}

func (r *SourceRegistry) Register(kind models.SourceKind, resolver SourceResolver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolvers[kind] = resolver
}

func (r *SourceRegistry) Resolve(ref models.SourceRef) (interface{}, error) {
	r.mu.RLock()
	resolver, ok := r.resolvers[ref.Kind]
	r.mu.RUnlock()
	if !ok {
		return nil, errs.New("no resolver for source kind "+string(ref.Kind), http.StatusNotFound)
	}
	return resolver(ref.ID)
}

// NotificationService is the producer contract any flow can call to create
// in-app notifications, plus the read/preference/device surface the REST
// layer exposes.
type NotificationService interface {
	Create(recipientID uint, senderID *uint, category, title, body string, source *models.SourceRef, actionURL string) (*models.Notification, error)
	List(recipientID uint, filter string, page, perPage int) ([]models.Notification, error)
	MarkRead(id, recipientID uint) (*models.Notification, error)
	MarkAllRead(recipientID uint) (int64, error)
	Delete(id, recipientID uint) error
	ClearAll(recipientID uint) (int64, error)
	UnreadCount(recipientID uint) (int64, error)

	GetPreferences(userID uint) (*models.NotificationPreference, error)
	UpdatePreferences(userID uint, req *models.UpdatePreferenceRequest) (*models.NotificationPreference, error)

	RegisterDevice(userID uint, req *models.RegisterDeviceRequest) (*models.PushDevice, error)
	UnregisterDevice(userID uint, endpoint string) error

	ResolveSource(ref models.SourceRef) (interface{}, error)
}

type notificationService struct {
	Config           *config.Config
	notificationRepo db.NotificationRepository
	sources          *SourceRegistry
}

func NewNotificationService(notificationRepo db.NotificationRepository, sources *SourceRegistry, conf *config.Config) NotificationService {
	return &notificationService{
		Config:           conf,
		notificationRepo: notificationRepo,
		sources:          sources,
	}
}

func (s *notificationService) Create(recipientID uint, senderID *uint, category, title, body string, source *models.SourceRef, actionURL string) (*models.Notification, error) {
	if !models.IsNotificationCategory(category) {
		return nil, errs.New("unknown notification category: "+category, http.StatusBadRequest)
	}
	notification := &models.Notification{
		RecipientID: recipientID,
		SenderID:    senderID,
		Category:    category,
		Title:       title,
		Message:     body,
		ActionURL:   actionURL,
	}
	if source != nil {
		notification.SourceKind = source.Kind
		notification.SourceID = source.ID
	}
	if err := s.notificationRepo.CreateNotification(notification); err != nil {
		return nil, err
	}
	return notification, nil
}

func (s *notificationService) List(recipientID uint, filter string, page, perPage int) ([]models.Notification, error) {
	return s.notificationRepo.ListNotifications(recipientID, filter, page, perPage)
}

func (s *notificationService) MarkRead(id, recipientID uint) (*models.Notification, error) {
	return s.notificationRepo.MarkNotificationRead(id, recipientID)
}

func (s *notificationService) MarkAllRead(recipientID uint) (int64, error) {
	return s.notificationRepo.MarkAllNotificationsRead(recipientID)
}

func (s *notificationService) Delete(id, recipientID uint) error {
	return s.notificationRepo.DeleteNotification(id, recipientID)
}

func (s *notificationService) ClearAll(recipientID uint) (int64, error) {
	return s.notificationRepo.ClearNotifications(recipientID)
}

func (s *notificationService) UnreadCount(recipientID uint) (int64, error) {
	return s.notificationRepo.UnreadNotificationCount(recipientID)
}

func (s *notificationService) GetPreferences(userID uint) (*models.NotificationPreference, error) {
	return s.notificationRepo.GetOrCreatePreference(userID)
}

func (s *notificationService) UpdatePreferences(userID uint, req *models.UpdatePreferenceRequest) (*models.NotificationPreference, error) {
	pref, err := s.notificationRepo.GetOrCreatePreference(userID)
	if err != nil {
		return nil, err
	}
	req.Apply(pref)
	if err := s.notificationRepo.UpdatePreference(pref); err != nil {
		return nil, err
	}
	return pref, nil
}

func (s *notificationService) RegisterDevice(userID uint, req *models.RegisterDeviceRequest) (*models.PushDevice, error) {
	platform := req.Platform
	if platform == "" {
		platform = models.PushPlatformWeb
	}
	device := &models.PushDevice{
		UserID:    userID,
		Platform:  platform,
		Endpoint:  req.Endpoint,
		UserAgent: req.UserAgent,
	}
	if platform == models.PushPlatformWeb {
		if req.Keys == nil {
			return nil, errs.New("web push registration requires subscription keys", http.StatusBadRequest)
		}
		device.P256dh = req.Keys.P256dh
		device.Auth = req.Keys.Auth
	}
	return s.notificationRepo.RegisterDevice(device)
}

func (s *notificationService) UnregisterDevice(userID uint, endpoint string) error {
	return s.notificationRepo.DeactivateDeviceByEndpoint(userID, endpoint)
}

func (s *notificationService) ResolveSource(ref models.SourceRef) (interface{}, error) {
	return s.sources.Resolve(ref)
}

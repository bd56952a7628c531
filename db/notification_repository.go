package db

import (
	"time"

	"github.com/pkg/errors"
	errs "github.com/studiswap/studiswap/errors"
	"github.com/studiswap/studiswap/models"
	"gorm.io/gorm"
)

// Notification list filters.
const (
	NotificationFilterAll    = "all"
	NotificationFilterUnread = "unread"
	NotificationFilterRead   = "read"
)

// NotificationRepository owns in-app notifications, per-user channel
// preferences and the push device registry.
type NotificationRepository interface {
	CreateNotification(n *models.Notification) error
	ListNotifications(recipientID uint, filter string, page, perPage int) ([]models.Notification, error)
	MarkNotificationRead(id, recipientID uint) (*models.Notification, error)
	MarkAllNotificationsRead(recipientID uint) (int64, error)
	DeleteNotification(id, recipientID uint) error
	ClearNotifications(recipientID uint) (int64, error)
	UnreadNotificationCount(recipientID uint) (int64, error)

	GetOrCreatePreference(userID uint) (*models.NotificationPreference, error)
	UpdatePreference(pref *models.NotificationPreference) error

	RegisterDevice(device *models.PushDevice) (*models.PushDevice, error)
	DeactivateDevice(id uint) error
	DeactivateDeviceByEndpoint(userID uint, endpoint string) error
	ActiveDevices(userID uint) ([]models.PushDevice, error)
}

type notificationRepo struct {
	DB *gorm.DB
}

func NewNotificationRepo(db *GormDB) NotificationRepository {
	return &notificationRepo{db.DB}
}

func (r *notificationRepo) CreateNotification(n *models.Notification) error {
	if err := r.DB.Create(n).Error; err != nil {
		return errors.Wrap(err, "failed to create notification")
	}
	return nil
}

func (r *notificationRepo) ListNotifications(recipientID uint, filter string, page, perPage int) ([]models.Notification, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	query := r.DB.Preload("Sender").Where("recipient_id = ?", recipientID)
	switch {
	case filter == NotificationFilterUnread:
		query = query.Where("is_read = ?", false)
	case filter == NotificationFilterRead:
		query = query.Where("is_read = ?", true)
	case models.IsNotificationCategory(filter):
		query = query.Where("category = ?", filter)
	}

	var notifications []models.Notification
	err := query.Order("created_at DESC").
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&notifications).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list notifications")
	}
	return notifications, nil
}

func (r *notificationRepo) MarkNotificationRead(id, recipientID uint) (*models.Notification, error) {
	var notification models.Notification
	err := r.DB.Where("id = ? AND recipient_id = ?", id, recipientID).First(&notification).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNotificationNotFound
		}
		return nil, errors.Wrap(err, "failed to find notification")
	}
	if !notification.IsRead {
		notification.IsRead = true
		if err := r.DB.Model(&notification).Update("is_read", true).Error; err != nil {
			return nil, errors.Wrap(err, "failed to mark notification read")
		}
	}
	return &notification, nil
}

func (r *notificationRepo) MarkAllNotificationsRead(recipientID uint) (int64, error) {
	result := r.DB.Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Update("is_read", true)
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to mark notifications read")
	}
	return result.RowsAffected, nil
}

func (r *notificationRepo) DeleteNotification(id, recipientID uint) error {
	result := r.DB.Where("id = ? AND recipient_id = ?", id, recipientID).Delete(&models.Notification{})
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to delete notification")
	}
	if result.RowsAffected == 0 {
		return errs.ErrNotificationNotFound
	}
	return nil
}

func (r *notificationRepo) ClearNotifications(recipientID uint) (int64, error) {
	result := r.DB.Where("recipient_id = ?", recipientID).Delete(&models.Notification{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to clear notifications")
	}
	return result.RowsAffected, nil
}

func (r *notificationRepo) UnreadNotificationCount(recipientID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, "failed to count unread notifications")
	}
	return count, nil
}

// GetOrCreatePreference never fails on a missing row; every user gets the
// defaults the first time anything asks.
func (r *notificationRepo) GetOrCreatePreference(userID uint) (*models.NotificationPreference, error) {
	var pref models.NotificationPreference
	err := r.DB.Where("user_id = ?", userID).First(&pref).Error
	if err == nil {
		return &pref, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrap(err, "failed to load notification preference")
	}
	created := models.DefaultNotificationPreference(userID)
	if err := r.DB.Create(created).Error; err != nil {
		return nil, errors.Wrap(err, "failed to create notification preference")
	}
	return created, nil
}

func (r *notificationRepo) UpdatePreference(pref *models.NotificationPreference) error {
	if err := r.DB.Save(pref).Error; err != nil {
		return errors.Wrap(err, "failed to update notification preference")
	}
	return nil
}

// RegisterDevice upserts on the (user, endpoint) pair: a re-registered
// endpoint is reactivated and its keys refreshed.
func (r *notificationRepo) RegisterDevice(device *models.PushDevice) (*models.PushDevice, error) {
	var existing models.PushDevice
	err := r.DB.Where("user_id = ? AND endpoint = ?", device.UserID, device.Endpoint).First(&existing).Error
	if err == nil {
		existing.Platform = device.Platform
		existing.P256dh = device.P256dh
		existing.Auth = device.Auth
		existing.UserAgent = device.UserAgent
		existing.IsActive = true
		existing.LastSeenAt = time.Now()
		if err := r.DB.Save(&existing).Error; err != nil {
			return nil, errors.Wrap(err, "failed to refresh push device")
		}
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrap(err, "failed to look up push device")
	}

	device.IsActive = true
	device.LastSeenAt = time.Now()
	if err := r.DB.Create(device).Error; err != nil {
		return nil, errors.Wrap(err, "failed to register push device")
	}
	return device, nil
}

func (r *notificationRepo) DeactivateDevice(id uint) error {
	result := r.DB.Model(&models.PushDevice{}).Where("id = ?", id).Update("is_active", false)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to deactivate push device")
	}
	return nil
}

func (r *notificationRepo) DeactivateDeviceByEndpoint(userID uint, endpoint string) error {
	result := r.DB.Model(&models.PushDevice{}).
		Where("user_id = ? AND endpoint = ?", userID, endpoint).
		Update("is_active", false)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to deactivate push device")
	}
	if result.RowsAffected == 0 {
		return errs.ErrDeviceNotFound
	}
	return nil
}

func (r *notificationRepo) ActiveDevices(userID uint) ([]models.PushDevice, error) {
	var devices []models.PushDevice
	err := r.DB.Where("user_id = ? AND is_active = ?", userID, true).Find(&devices).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list active push devices")
	}
	return devices, nil
}

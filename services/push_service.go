package services

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"firebase.google.com/go/messaging"
	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/pkg/errors"
	"github.com/studiswap/studiswap/config"
	"github.com/studiswap/studiswap/db"
	"github.com/studiswap/studiswap/models"
)

const (
	pushIcon  = "/static/icons/favicon.png"
	pushBadge = "/static/icons/favicon.png"
	pushTTL   = 30
)

// PushPayload is the fixed JSON shape every device receives.
type PushPayload struct {
	Title              string `json:"title"`
	Body               string `json:"body"`
	Message            string `json:"message"`
	Icon               string `json:"icon"`
	Badge              string `json:"badge"`
	URL                string `json:"url"`
	ActionURL          string `json:"action_url"`
	Tag                string `json:"tag"`
	RequireInteraction bool   `json:"requireInteraction"`
}

// PushService delivers one payload to every active, preference-permitting
// device of a user.
type PushService interface {
	DispatchToUser(userID uint, title, body, url, tag string) (int, error)
	PublicKey() string
}

// CloudMessenger is the FCM client surface used for token devices.
// *messaging.Client satisfies it.
type CloudMessenger interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

type webPushSender func(message []byte, s *webpush.Subscription, options *webpush.Options) (*http.Response, error)

type pushService struct {
	Config           *config.Config
	notificationRepo db.NotificationRepository
	messenger        CloudMessenger
	sendWebPush      webPushSender
}

func NewPushService(notificationRepo db.NotificationRepository, messenger CloudMessenger, conf *config.Config) PushService {
	return &pushService{
		Config:           conf,
		notificationRepo: notificationRepo,
		messenger:        messenger,
		sendWebPush:      webpush.SendNotification,
	}
}

func (p *pushService) PublicKey() string {
	return p.Config.VapidPublicKey
}

func (p *pushService) webConfigured() bool {
	return p.Config.VapidPublicKey != "" && p.Config.VapidPrivateKey != ""
}

// DispatchToUser sends to each active device and returns the number of
// successful deliveries. An endpoint reported gone is deactivated; any
// other per-device failure is logged and the loop moves on.
func (p *pushService) DispatchToUser(userID uint, title, body, url, tag string) (int, error) {
	if !p.webConfigured() && p.messenger == nil {
		log.Println("push: no signing keys or messaging client configured, dispatch disabled")
		return 0, nil
	}

	pref, err := p.notificationRepo.GetOrCreatePreference(userID)
	if err != nil {
		return 0, err
	}
	if !pref.PushNotifications {
		return 0, nil
	}

	devices, err := p.notificationRepo.ActiveDevices(userID)
	if err != nil {
		return 0, err
	}
	if len(devices) == 0 {
		return 0, nil
	}

	if url == "" {
		url = "/"
	}
	payload, err := json.Marshal(PushPayload{
		Title:              title,
		Body:               body,
		Message:            body,
		Icon:               pushIcon,
		Badge:              pushBadge,
		URL:                url,
		ActionURL:          url,
		Tag:                tag,
		RequireInteraction: false,
	})
	if err != nil {
		return 0, errors.Wrap(err, "failed to encode push payload")
	}

	success := 0
	for i := range devices {
		device := &devices[i]

		var gone bool
		var sendErr error
		switch device.Platform {
		case models.PushPlatformWeb, "":
			if !p.webConfigured() {
				continue
			}
			gone, sendErr = p.sendToWebDevice(device, payload)
		default:
			if p.messenger == nil {
				continue
			}
			gone, sendErr = p.sendToTokenDevice(device, title, body, url, tag)
		}

		if gone {
			// Self-healing: the endpoint no longer exists, stop trying it.
			if err := p.notificationRepo.DeactivateDevice(device.ID); err != nil {
				log.Printf("push: failed to deactivate device %d: %v", device.ID, err)
			}
			continue
		}
		if sendErr != nil {
			log.Printf("push: delivery to device %d failed: %v", device.ID, sendErr)
			continue
		}
		success++
	}
	return success, nil
}

func (p *pushService) sendToWebDevice(device *models.PushDevice, payload []byte) (gone bool, err error) {
	sub := &webpush.Subscription{
		Endpoint: device.Endpoint,
		Keys: webpush.Keys{
			P256dh: device.P256dh,
			Auth:   device.Auth,
		},
	}
	resp, err := p.sendWebPush(payload, sub, &webpush.Options{
		Subscriber:      p.Config.VapidAdminEmail,
		VAPIDPublicKey:  p.Config.VapidPublicKey,
		VAPIDPrivateKey: p.Config.VapidPrivateKey,
		TTL:             pushTTL,
	})
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		return true, nil
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return false, errors.Errorf("push endpoint answered %d", resp.StatusCode)
	}
	return false, nil
}

func (p *pushService) sendToTokenDevice(device *models.PushDevice, title, body, url, tag string) (gone bool, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err = p.messenger.Send(ctx, &messaging.Message{
		Token: device.Endpoint,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: map[string]string{
			"url": url,
			"tag": tag,
		},
	})
	if err != nil {
		if messaging.IsRegistrationTokenNotRegistered(err) {
			return true, nil
		}
		return false, err
	}
	return false, nil
}

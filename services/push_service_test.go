package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"firebase.google.com/go/messaging"
	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/studiswap/studiswap/config"
	"github.com/studiswap/studiswap/models"
)

func pushResponse(status int) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(""))}
}

type webSend struct {
	Endpoint string
	Payload  []byte
	Options  webpush.Options
}

// recordingWebSender maps endpoint -> status code and records every send.
type recordingWebSender struct {
	mu       sync.Mutex
	statuses map[string]int
	err      error
	sends    []webSend
}

func (s *recordingWebSender) send(message []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sends = append(s.sends, webSend{Endpoint: sub.Endpoint, Payload: message, Options: *options})
	if s.err != nil {
		return nil, s.err
	}
	status, ok := s.statuses[sub.Endpoint]
	if !ok {
		status = http.StatusCreated
	}
	return pushResponse(status), nil
}

type fakeMessenger struct {
	mu   sync.Mutex
	err  error
	sent []*messaging.Message
}

func (m *fakeMessenger) Send(ctx context.Context, message *messaging.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.sent = append(m.sent, message)
	return "projects/test/messages/1", nil
}

func newPushFixture(t *testing.T, conf *config.Config, messenger CloudMessenger) (*pushService, *fakeNotificationRepo, *recordingWebSender) {
	t.Helper()
	repo := newFakeNotificationRepo()
	sender := &recordingWebSender{statuses: map[string]int{}}
	p := NewPushService(repo, messenger, conf).(*pushService)
	p.sendWebPush = sender.send
	return p, repo, sender
}

func vapidConfig() *config.Config {
	return &config.Config{
		VapidPublicKey:  "test-public",
		VapidPrivateKey: "test-private",
		VapidAdminEmail: "mailto:admin@example.com",
	}
}

func registerWebDevice(t *testing.T, repo *fakeNotificationRepo, userID uint, endpoint string) *models.PushDevice {
	t.Helper()
	device, err := repo.RegisterDevice(&models.PushDevice{
		UserID:   userID,
		Platform: models.PushPlatformWeb,
		Endpoint: endpoint,
		P256dh:   "p256dh-key",
		Auth:     "auth-secret",
	})
	require.NoError(t, err)
	return device
}

func TestDispatchDisabledWithoutKeysOrMessenger(t *testing.T) {
	p, repo, sender := newPushFixture(t, &config.Config{}, nil)
	registerWebDevice(t, repo, 1, "https://push.example/a")

	count, err := p.DispatchToUser(1, "t", "b", "/x", "tag")
	require.NoError(t, err)
	require.Zero(t, count)
	require.Empty(t, sender.sends)
}

func TestDispatchRespectsMasterToggle(t *testing.T) {
	p, repo, sender := newPushFixture(t, vapidConfig(), nil)
	registerWebDevice(t, repo, 1, "https://push.example/a")
	pref := models.DefaultNotificationPreference(1)
	pref.PushNotifications = false
	repo.setPreference(pref)

	count, err := p.DispatchToUser(1, "t", "b", "/x", "tag")
	require.NoError(t, err)
	require.Zero(t, count)
	require.Empty(t, sender.sends)
}

func TestDispatchSendsPayloadToEveryActiveDevice(t *testing.T) {
	p, repo, sender := newPushFixture(t, vapidConfig(), nil)
	registerWebDevice(t, repo, 1, "https://push.example/a")
	registerWebDevice(t, repo, 1, "https://push.example/b")
	registerWebDevice(t, repo, 2, "https://push.example/other-user")

	count, err := p.DispatchToUser(1, "New message from Ben", "hello there", "/chat/conversation/1/", "chat-1")
	require.NoError(t, err)
	require.Equal(t, 2, count)
	require.Len(t, sender.sends, 2)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(sender.sends[0].Payload, &payload))
	require.Equal(t, "New message from Ben", payload["title"])
	require.Equal(t, "hello there", payload["body"])
	require.Equal(t, "hello there", payload["message"])
	require.Equal(t, "/chat/conversation/1/", payload["url"])
	require.Equal(t, "/chat/conversation/1/", payload["action_url"])
	require.Equal(t, "chat-1", payload["tag"])
	require.Equal(t, false, payload["requireInteraction"])

	opts := sender.sends[0].Options
	require.Equal(t, "mailto:admin@example.com", opts.Subscriber)
	require.Equal(t, "test-public", opts.VAPIDPublicKey)
	require.Equal(t, pushTTL, opts.TTL)
}

func TestDispatchDefaultsEmptyURL(t *testing.T) {
	p, repo, sender := newPushFixture(t, vapidConfig(), nil)
	registerWebDevice(t, repo, 1, "https://push.example/a")

	_, err := p.DispatchToUser(1, "t", "b", "", "tag")
	require.NoError(t, err)
	require.Len(t, sender.sends, 1)
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(sender.sends[0].Payload, &payload))
	require.Equal(t, "/", payload["url"])
}

func TestDispatchDeactivatesGoneEndpoint(t *testing.T) {
	p, repo, sender := newPushFixture(t, vapidConfig(), nil)
	gone := registerWebDevice(t, repo, 1, "https://push.example/gone")
	registerWebDevice(t, repo, 1, "https://push.example/alive")
	sender.statuses["https://push.example/gone"] = http.StatusGone

	count, err := p.DispatchToUser(1, "t", "b", "/x", "tag")
	require.NoError(t, err)
	require.Equal(t, 1, count)
	require.Contains(t, repo.deactivated, gone.ID)

	devices, err := repo.ActiveDevices(1)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	require.Equal(t, "https://push.example/alive", devices[0].Endpoint)
}

func TestDispatchKeepsDeviceOnServerError(t *testing.T) {
	p, repo, sender := newPushFixture(t, vapidConfig(), nil)
	registerWebDevice(t, repo, 1, "https://push.example/flaky")
	sender.statuses["https://push.example/flaky"] = http.StatusInternalServerError

	count, err := p.DispatchToUser(1, "t", "b", "/x", "tag")
	require.NoError(t, err)
	require.Zero(t, count)
	require.Empty(t, repo.deactivated)

	devices, err := repo.ActiveDevices(1)
	require.NoError(t, err)
	require.Len(t, devices, 1)
}

func TestDispatchTransportErrorKeepsDevice(t *testing.T) {
	p, repo, sender := newPushFixture(t, vapidConfig(), nil)
	registerWebDevice(t, repo, 1, "https://push.example/a")
	sender.err = errors.New("connection refused")

	count, err := p.DispatchToUser(1, "t", "b", "/x", "tag")
	require.NoError(t, err)
	require.Zero(t, count)
	require.Empty(t, repo.deactivated)
}

func TestDispatchTokenDeviceViaMessenger(t *testing.T) {
	messenger := &fakeMessenger{}
	p, repo, _ := newPushFixture(t, &config.Config{}, messenger)
	_, err := repo.RegisterDevice(&models.PushDevice{
		UserID:   1,
		Platform: models.PushPlatformAndroid,
		Endpoint: "fcm-registration-token",
	})
	require.NoError(t, err)

	count, err := p.DispatchToUser(1, "New message from Ben", "hello", "/chat/conversation/1/", "chat-1")
	require.NoError(t, err)
	require.Equal(t, 1, count)
	require.Len(t, messenger.sent, 1)
	sent := messenger.sent[0]
	require.Equal(t, "fcm-registration-token", sent.Token)
	require.Equal(t, "New message from Ben", sent.Notification.Title)
	require.Equal(t, "chat-1", sent.Data["tag"])
}

func TestDispatchTokenDeviceSkippedWithoutMessenger(t *testing.T) {
	p, repo, sender := newPushFixture(t, vapidConfig(), nil)
	_, err := repo.RegisterDevice(&models.PushDevice{
		UserID:   1,
		Platform: models.PushPlatformIOS,
		Endpoint: "fcm-registration-token",
	})
	require.NoError(t, err)
	registerWebDevice(t, repo, 1, "https://push.example/a")

	count, err := p.DispatchToUser(1, "t", "b", "/x", "tag")
	require.NoError(t, err)
	require.Equal(t, 1, count)
	require.Len(t, sender.sends, 1)
}

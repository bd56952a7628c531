package chat

import (
	"encoding/json"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/studiswap/studiswap/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 32
)

// State is the session lifecycle. Connecting covers the handshake,
// Rejected is terminal when admission fails; an admitted session moves to
// Active once subscribed and to Closed on any disconnect.
type State int32

const (
	StateConnecting State = iota
	StateRejected
	StateAdmitted
	StateActive
	StateClosed
)

// Identity is what the auth collaborator established for this connection.
type Identity struct {
	UserID   uint
	Username string
	FullName string
}

func (i Identity) DisplayName() string {
	if i.FullName != "" {
		return i.FullName
	}
	return i.Username
}

// MessageStore is the slice of the conversation store a session writes to.
type MessageStore interface {
	AppendMessage(conversationID, senderID uint, content string) (*models.Message, error)
}

// Fanout receives persisted messages for best-effort secondary delivery.
// Whatever happens in there never reaches the live channel.
type Fanout interface {
	EnqueueNewMessage(msg *models.Message)
}

// Session is the per-connection actor: it owns one websocket, decodes
// inbound frames, and relays topic events back out. Created only after
// admission has passed.
type Session struct {
	id             string
	conversationID uint
	identity       Identity
	conn           *websocket.Conn
	broker         *Broker
	store          MessageStore
	fanout         Fanout

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	state     atomic.Int32
}

func NewSession(conversationID uint, identity Identity, conn *websocket.Conn, broker *Broker, store MessageStore, fanout Fanout) *Session {
	s := &Session{
		id:             uuid.NewString(),
		conversationID: conversationID,
		identity:       identity,
		conn:           conn,
		broker:         broker,
		store:          store,
		fanout:         fanout,
		send:           make(chan []byte, sendBufferSize),
		done:           make(chan struct{}),
	}
	s.state.Store(int32(StateAdmitted))
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() State { return State(s.state.Load()) }

// Deliver hands a topic payload to this session's outbound channel. It
// never blocks: a dead session reports false, a slow one drops the payload
// and stays subscribed.
func (s *Session) Deliver(payload []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- payload:
		return true
	case <-s.done:
		return false
	default:
		return true
	}
}

// Run subscribes the session to its conversation topic and pumps the
// connection until it drops. The unsubscribe is unconditional, whatever
// path the pumps exit on.
func (s *Session) Run() {
	s.broker.Subscribe(s.conversationID, s)
	s.state.Store(int32(StateActive))
	defer func() {
		s.broker.Unsubscribe(s.conversationID, s.id)
		s.close()
	}()

	go s.writePump()
	s.readPump()
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		s.state.Store(int32(StateClosed))
		close(s.done)
		s.conn.Close()
	})
}

func (s *Session) readPump() {
	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("chat: session %s read error: %v", s.id, err)
			}
			return
		}
		s.handleInbound(data)
	}
}

// handleInbound decodes one client frame. Malformed or empty payloads are
// dropped without an error frame back to the sender.
func (s *Session) handleInbound(data []byte) {
	var frame InboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return
	}

	if frame.Typing != nil {
		s.relayTyping(*frame.Typing)
		return
	}
	if frame.Message != nil {
		s.handleMessage(*frame.Message)
	}
}

// relayTyping broadcasts the ephemeral indicator. Nothing is persisted and
// nothing is acknowledged.
func (s *Session) relayTyping(isTyping bool) {
	payload, err := encodeEvent(TypingEvent{
		Type:     EventTypeTyping,
		IsTyping: isTyping,
		User:     s.identity.DisplayName(),
	})
	if err != nil {
		return
	}
	s.broker.Publish(s.conversationID, payload)
}

// handleMessage persists then broadcasts. A failed persist aborts the
// broadcast and leaves the session open for a manual retry; fanout runs
// after the broadcast and cannot take it back.
func (s *Session) handleMessage(body string) {
	body = strings.TrimSpace(body)
	if body == "" {
		return
	}

	msg, err := s.store.AppendMessage(s.conversationID, s.identity.UserID, body)
	if err != nil {
		log.Printf("chat: session %s failed to persist message: %v", s.id, err)
		return
	}

	payload, err := encodeEvent(NewMessageEvent(msg, s.identity))
	if err != nil {
		log.Printf("chat: session %s failed to encode message event: %v", s.id, err)
		return
	}
	s.broker.Publish(s.conversationID, payload)

	if s.fanout != nil {
		s.fanout.EnqueueNewMessage(msg)
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.close()
	}()

	for {
		select {
		case payload := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

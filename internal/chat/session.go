package chat

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/01Freebird10/Smart-trip/internal/auth"
	"github.com/01Freebird10/Smart-trip/internal/metrics"
)

const (
	writeWait      = 10 * time.Second    // Time allowed to write a message to the peer.
	pongWait       = 60 * time.Second    // Time allowed to read the next pong message from the peer.
	pingPeriod     = (pongWait * 9) / 10 // Send pings to peer with this period. Must be less than pongWait.
	maxMessageSize = 4096                // Maximum message size allowed from peer.

	storeTimeout = 5 * time.Second
)

type sessionState int

const (
	stateConnecting sessionState = iota
	stateOpen
	stateClosed
)

type eventKind int

const (
	eventJoin eventKind = iota
	eventInbound
	eventDeliver
)

// sessionEvent is the tagged union flowing through a session's queue. One
// goroutine per connection consumes it strictly in order, so state never
// needs a lock and inbound frames are never reordered within one sender.
type sessionEvent struct {
	kind  eventKind
	frame []byte   // eventInbound: the raw websocket payload
	msg   *Message // eventDeliver: a message published to this room
}

// Session owns one websocket connection for its lifetime: it joins exactly
// one room, replays history, turns inbound frames into appends+publishes, and
// forwards broker deliveries to the socket. The broker only ever holds it as
// a member reference.
type Session struct {
	sid      string
	roomKey  string
	identity string // empty means anonymous: may observe, never post

	conn   *websocket.Conn
	broker *Broker
	store  Store
	gate   auth.Gate
	pub    Publisher

	events chan sessionEvent
	send   chan []byte

	closeOnce   sync.Once
	closed      chan struct{}
	closeReason string

	state        sessionState
	historyLimit int
	log          zerolog.Logger
}

func NewSession(conn *websocket.Conn, roomKey, identity string, broker *Broker, store Store, gate auth.Gate, pub Publisher, historyLimit, sendBuffer int, log zerolog.Logger) *Session {
	sid := uuid.NewString()
	return &Session{
		sid:          sid,
		roomKey:      roomKey,
		identity:     identity,
		conn:         conn,
		broker:       broker,
		store:        store,
		gate:         gate,
		pub:          pub,
		events:       make(chan sessionEvent, sendBuffer),
		send:         make(chan []byte, sendBuffer),
		closed:       make(chan struct{}),
		state:        stateConnecting,
		historyLimit: historyLimit,
		log: log.With().
			Str("component", "session").
			Str("session", sid).
			Str("room", roomKey).
			Logger(),
	}
}

// Start queues the join and launches the three pumps. Returns immediately.
func (s *Session) Start() {
	s.events <- sessionEvent{kind: eventJoin}
	go s.run()
	go s.writePump()
	go s.readPump()
}

// Close requests teardown. Idempotent and safe to call concurrently with an
// in-flight receive; only the first reason is kept.
func (s *Session) Close(reason string) {
	s.closeOnce.Do(func() {
		s.closeReason = reason
		close(s.closed)
	})
}

// member interface ------------------------------------------------------

func (s *Session) id() string { return s.sid }

func (s *Session) kick(reason string) { s.Close(reason) }

// deliver enqueues a broker delivery without ever blocking the fan-out loop.
// A closing session reports success so the broker doesn't bother evicting it;
// a full queue reports failure and the broker closes us as a slow consumer.
func (s *Session) deliver(msg *Message) bool {
	select {
	case s.events <- sessionEvent{kind: eventDeliver, msg: msg}:
		return true
	case <-s.closed:
		return true
	default:
		return false
	}
}

// event loop ------------------------------------------------------------

func (s *Session) run() {
	for {
		select {
		case <-s.closed:
			s.shutdown()
			return
		case ev := <-s.events:
			switch ev.kind {
			case eventJoin:
				s.handleJoin()
			case eventInbound:
				s.handleInbound(ev.frame)
			case eventDeliver:
				s.handleDeliver(ev.msg)
			}
		}
	}
}

func (s *Session) shutdown() {
	if s.state == stateOpen {
		s.broker.Leave(s.roomKey, s)
		metrics.ConnectionsOpen.Dec()
	}
	s.state = stateClosed
	close(s.send) // stops the writePump, which closes the socket
	s.log.Debug().Str("reason", s.closeReason).Msg("session closed")
}

// handleJoin registers membership first, then replays recent history to this
// connection only. Deliveries published after the Join queue up behind the
// replay, so the socket sees history strictly before live traffic.
func (s *Session) handleJoin() {
	if !s.broker.Join(s.roomKey, s) {
		s.Close("broker shut down")
		return
	}
	s.state = stateOpen
	metrics.ConnectionsOpen.Inc()

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	msgs, err := s.store.RecentHistory(ctx, s.roomKey, s.historyLimit)
	if err != nil {
		// The connection is still useful live; history just has a gap.
		s.log.Error().Err(err).Msg("history replay failed")
		return
	}
	for _, m := range msgs {
		payload, err := json.Marshal(FrameFromMessage(m))
		if err != nil {
			continue
		}
		s.enqueueOutbound(payload)
	}
	metrics.HistoryReplays.Inc()
}

func (s *Session) handleInbound(frame []byte) {
	// The pointer distinguishes {"message": ""} from a frame with no
	// message field at all; only the latter is malformed.
	var in struct {
		Message *string `json:"message"`
	}
	if err := json.Unmarshal(frame, &in); err != nil || in.Message == nil {
		metrics.SendsRejected.WithLabelValues("malformed").Inc()
		s.enqueueOutbound(encodeErrorFrame(codeMalformedFrame, "expected {\"message\": <string>}"))
		return
	}

	if s.identity == "" {
		// Inherited contract: anonymous sends vanish without a reply.
		metrics.SendsRejected.WithLabelValues("unauthenticated").Inc()
		s.log.Debug().Msg("dropping send from unauthenticated connection")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	if !s.gate.MayPost(ctx, s.identity, s.roomKey) {
		metrics.SendsRejected.WithLabelValues("forbidden").Inc()
		s.log.Debug().Msg("gate refused post")
		return
	}

	// Persist before broadcast: nothing goes live unless it is recoverable
	// from history.
	msg, err := s.store.Append(ctx, s.roomKey, s.identity, *in.Message)
	if err != nil {
		s.log.Error().Err(err).Msg("append failed")
		s.enqueueOutbound(encodeErrorFrame(codePersistenceFailed, "message was not saved"))
		return
	}
	metrics.MessagesPersisted.Inc()

	if err := s.pub.Publish(ctx, msg); err != nil {
		// Already durable; live listeners miss it but history replay has it.
		s.log.Error().Err(err).Msg("publish failed")
	}
}

func (s *Session) handleDeliver(msg *Message) {
	if s.state != stateOpen {
		return
	}
	payload, err := json.Marshal(FrameFromMessage(msg))
	if err != nil {
		return
	}
	s.enqueueOutbound(payload)
}

// enqueueOutbound hands a payload to the writePump. The send queue is
// bounded; overflowing it means the peer stopped reading, and we close
// rather than block the event loop.
func (s *Session) enqueueOutbound(payload []byte) {
	select {
	case s.send <- payload:
	case <-s.closed:
	default:
		metrics.DeliveriesDropped.Inc()
		s.Close("outbound queue overflow")
	}
}

// socket pumps ----------------------------------------------------------

// readPump pumps frames from the websocket into the event queue.
func (s *Session) readPump() {
	defer s.Close("connection closed")

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.log.Warn().Err(err).Msg("read error")
			}
			return
		}
		select {
		case s.events <- sessionEvent{kind: eventInbound, frame: frame}:
		case <-s.closed:
			return
		}
	}
}

// writePump pumps queued payloads to the websocket and keeps the connection
// alive with pings.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				s.Close("write error")
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.Close("ping failed")
				return
			}
		}
	}
}

var _ member = (*Session)(nil)

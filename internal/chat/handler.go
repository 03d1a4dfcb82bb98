package chat

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/01Freebird10/Smart-trip/internal/auth"
	"github.com/01Freebird10/Smart-trip/internal/trip"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all for now (Dev mode)
	},
}

type Handler struct {
	broker *Broker
	store  Store
	gate   auth.Gate
	pub    Publisher

	historyLimit int
	sendBuffer   int
	log          zerolog.Logger
}

func NewHandler(broker *Broker, store Store, gate auth.Gate, pub Publisher, historyLimit, sendBuffer int, log zerolog.Logger) *Handler {
	return &Handler{
		broker:       broker,
		store:        store,
		gate:         gate,
		pub:          pub,
		historyLimit: historyLimit,
		sendBuffer:   sendBuffer,
		log:          log,
	}
}

// ServeWs upgrades GET /ws/chat/{roomKey}. The upgrade succeeds regardless
// of authentication — a tokenless (or bad-token) socket joins anonymously
// and can observe the room but not post.
func (h *Handler) ServeWs(w http.ResponseWriter, r *http.Request) {
	roomKey := chi.URLParam(r, "roomKey")
	if roomKey == "" {
		http.NotFound(w, r)
		return
	}

	identity, err := h.gate.Identify(r)
	if err != nil {
		h.log.Debug().Err(err).Str("room", roomKey).Msg("bad token on upgrade, continuing anonymous")
		identity = ""
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	session := NewSession(conn, roomKey, identity, h.broker, h.store, h.gate, h.pub, h.historyLimit, h.sendBuffer, h.log)
	session.Start()
}

// History serves GET /api/messages?trip_id=N for authenticated callers: the
// full ordered log for the trip's room, in exactly the order live replay
// uses, so the two views never disagree.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	tripID, err := strconv.Atoi(r.URL.Query().Get("trip_id"))
	if err != nil || tripID <= 0 {
		http.Error(w, "trip_id is required", http.StatusBadRequest)
		return
	}

	msgs, err := h.store.AllHistory(r.Context(), trip.RoomKey(tripID))
	if err != nil {
		h.log.Error().Err(err).Int("trip", tripID).Msg("history query failed")
		http.Error(w, "could not load history", http.StatusInternalServerError)
		return
	}

	frames := make([]ChatFrame, 0, len(msgs))
	for _, m := range msgs {
		frames = append(frames, FrameFromMessage(m))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(frames)
}

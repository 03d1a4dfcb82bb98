package chat

import "time"

// Message is one persisted chat entry. Immutable once appended; Seq breaks
// ties between messages sharing a timestamp within a room.
type Message struct {
	ID        int64     `json:"id"`
	RoomKey   string    `json:"room_key"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	Seq       int64     `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
}

// inboundFrame is the JSON a client sends over the socket.
type inboundFrame struct {
	Message string `json:"message"`
}

// ChatFrame is the JSON delivered to clients, both for history replay and
// live broadcast. Live frames carry the real persisted timestamp (the
// inherited design sent a placeholder on the live path; we send the truth).
type ChatFrame struct {
	Message   string `json:"message"`
	User      string `json:"user"`
	Timestamp string `json:"timestamp"`
}

// FrameFromMessage converts a stored message to its wire shape.
func FrameFromMessage(m *Message) ChatFrame {
	return ChatFrame{
		Message:   m.Content,
		User:      m.Author,
		Timestamp: m.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}

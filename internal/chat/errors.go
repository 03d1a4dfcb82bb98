package chat

import (
	"encoding/json"
	"fmt"
)

// Error codes sent back to a client in an error frame. Unauthenticated sends
// are deliberately NOT surfaced — the socket stays silent, matching the
// behaviour collaborators already depend on.
const (
	codeMalformedFrame    = "malformed_frame"
	codePersistenceFailed = "persistence_failed"
)

// PersistenceError wraps a message store failure. The message is never
// broadcast when one occurs.
type PersistenceError struct {
	RoomKey string
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persisting message in room %s: %v", e.RoomKey, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

type errorFrame struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code   string `json:"code"`
	Detail string `json:"detail,omitempty"`
}

func encodeErrorFrame(code, detail string) []byte {
	// Marshalling a flat struct of strings cannot fail.
	b, _ := json.Marshal(errorFrame{Error: errorBody{Code: code, Detail: detail}})
	return b
}

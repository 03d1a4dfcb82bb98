package trip

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrBadRoomKey = errors.New("not a trip room key")

// RoomKey derives the opaque chat room key for a trip. One trip, one room.
func RoomKey(tripID int) string {
	return fmt.Sprintf("trip-%d", tripID)
}

// ParseRoomKey recovers the trip id from a room key.
func ParseRoomKey(roomKey string) (int, error) {
	rest, ok := strings.CutPrefix(roomKey, "trip-")
	if !ok {
		return 0, ErrBadRoomKey
	}
	id, err := strconv.Atoi(rest)
	if err != nil || id <= 0 {
		return 0, ErrBadRoomKey
	}
	return id, nil
}

package trip

import "testing"

func TestRoomKeyRoundTrip(t *testing.T) {
	for _, id := range []int{1, 42, 99999} {
		key := RoomKey(id)
		got, err := ParseRoomKey(key)
		if err != nil {
			t.Fatalf("ParseRoomKey(%q): %v", key, err)
		}
		if got != id {
			t.Errorf("round trip %d -> %q -> %d", id, key, got)
		}
	}
}

func TestParseRoomKeyRejectsGarbage(t *testing.T) {
	for _, key := range []string{"", "trip-", "trip-abc", "trip--1", "trip-0", "room-5", "5"} {
		if _, err := ParseRoomKey(key); err == nil {
			t.Errorf("ParseRoomKey(%q) accepted", key)
		}
	}
}

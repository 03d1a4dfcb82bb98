package trip

import (
	"context"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
)

type fakeMembers map[string][]int // identity -> trip ids

func (f fakeMembers) IsMember(ctx context.Context, identity string, tripID int) (bool, error) {
	for _, id := range f[identity] {
		if id == tripID {
			return true, nil
		}
	}
	return false, nil
}

type allowAllGate struct{}

func (allowAllGate) Identify(r *http.Request) (string, error) { return "", nil }

func (allowAllGate) MayPost(ctx context.Context, identity, roomKey string) bool {
	return identity != ""
}

func TestMembershipGateChecksTripMembership(t *testing.T) {
	members := fakeMembers{"a@example.com": {42}}
	gate := NewMembershipGate(allowAllGate{}, members, zerolog.Nop())
	ctx := context.Background()

	if !gate.MayPost(ctx, "a@example.com", RoomKey(42)) {
		t.Error("collaborator was refused")
	}
	if gate.MayPost(ctx, "a@example.com", RoomKey(43)) {
		t.Error("non-member was allowed into a guessed room")
	}
	if gate.MayPost(ctx, "", RoomKey(42)) {
		t.Error("anonymous identity was allowed")
	}
	if gate.MayPost(ctx, "a@example.com", "not-a-trip-key") {
		t.Error("unparseable room key was allowed")
	}
}

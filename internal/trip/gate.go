package trip

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/01Freebird10/Smart-trip/internal/auth"
)

// memberSource is what the gate needs from persistence; satisfied by *Repository.
type memberSource interface {
	IsMember(ctx context.Context, identity string, tripID int) (bool, error)
}

// MembershipGate tightens a base gate so only collaborators on the trip a
// room key names may post there. The default deployment keeps the looser
// identity-only gate; wiring this one in is an operator choice.
type MembershipGate struct {
	base auth.Gate
	repo memberSource
	log  zerolog.Logger
}

func NewMembershipGate(base auth.Gate, repo memberSource, log zerolog.Logger) *MembershipGate {
	return &MembershipGate{
		base: base,
		repo: repo,
		log:  log.With().Str("component", "membership-gate").Logger(),
	}
}

func (g *MembershipGate) Identify(r *http.Request) (string, error) {
	return g.base.Identify(r)
}

func (g *MembershipGate) MayPost(ctx context.Context, identity, roomKey string) bool {
	if !g.base.MayPost(ctx, identity, roomKey) {
		return false
	}
	tripID, err := ParseRoomKey(roomKey)
	if err != nil {
		return false
	}
	member, err := g.repo.IsMember(ctx, identity, tripID)
	if err != nil {
		g.log.Error().Err(err).Str("room", roomKey).Msg("membership lookup failed")
		return false
	}
	return member
}

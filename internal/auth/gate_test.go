package auth

import (
	"context"
	"net/http/httptest"
	"testing"
)

func TestIssueAndValidateToken(t *testing.T) {
	gate := NewJWTGate("test-secret")

	token, err := gate.IssueToken(7, "a@example.com")
	if err != nil {
		t.Fatal(err)
	}

	claims, err := gate.ValidateToken(token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.UserID != 7 || claims.Email != "a@example.com" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	token, err := NewJWTGate("secret-one").IssueToken(1, "a@example.com")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := NewJWTGate("secret-two").ValidateToken(token); err == nil {
		t.Error("token signed with another secret validated")
	}
	if _, err := NewJWTGate("secret-one").ValidateToken("garbage"); err == nil {
		t.Error("garbage token validated")
	}
}

func TestIdentifyFromHeaderAndQuery(t *testing.T) {
	gate := NewJWTGate("test-secret")
	token, err := gate.IssueToken(1, "a@example.com")
	if err != nil {
		t.Fatal(err)
	}

	r := httptest.NewRequest("GET", "/ws/chat/trip-1", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	identity, err := gate.Identify(r)
	if err != nil || identity != "a@example.com" {
		t.Errorf("header identify = %q, %v", identity, err)
	}

	r = httptest.NewRequest("GET", "/ws/chat/trip-1?token="+token, nil)
	identity, err = gate.Identify(r)
	if err != nil || identity != "a@example.com" {
		t.Errorf("query identify = %q, %v", identity, err)
	}
}

func TestIdentifyWithoutTokenIsAnonymous(t *testing.T) {
	gate := NewJWTGate("test-secret")

	r := httptest.NewRequest("GET", "/ws/chat/trip-1", nil)
	identity, err := gate.Identify(r)
	if err != nil {
		t.Fatalf("missing token should not error: %v", err)
	}
	if identity != "" {
		t.Errorf("identity = %q, want anonymous", identity)
	}

	// A present-but-invalid token is an error, not silent anonymity.
	r = httptest.NewRequest("GET", "/ws/chat/trip-1?token=bogus", nil)
	if _, err := gate.Identify(r); err == nil {
		t.Error("bogus token identified without error")
	}
}

func TestMayPostRequiresIdentity(t *testing.T) {
	gate := NewJWTGate("test-secret")
	ctx := context.Background()

	if gate.MayPost(ctx, "", "trip-1") {
		t.Error("anonymous identity may not post")
	}
	if !gate.MayPost(ctx, "a@example.com", "trip-1") {
		t.Error("authenticated identity should post")
	}
}

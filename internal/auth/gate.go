package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the JWT payload carried by every access token. The email doubles
// as the chat identity shown on broadcast frames.
type Claims struct {
	UserID int    `json:"id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

var ErrInvalidToken = errors.New("invalid token")

// Gate is the authorization collaborator the chat core consults. Identify
// extracts the caller's identity from the request ("" means anonymous — the
// socket may observe but not post). MayPost decides whether an identity may
// publish into a room.
type Gate interface {
	Identify(r *http.Request) (identity string, err error)
	MayPost(ctx context.Context, identity, roomKey string) bool
}

// JWTGate validates HS256 tokens. MayPost only confirms identity presence:
// any authenticated identity may post to any room it can name. Wrap it in a
// membership-aware gate to tighten that.
type JWTGate struct {
	secret string
	issuer string
	ttl    time.Duration
}

func NewJWTGate(secret string) *JWTGate {
	return &JWTGate{
		secret: secret,
		issuer: "smart-trip",
		ttl:    24 * time.Hour,
	}
}

// IssueToken mints an access token for the given user.
func (g *JWTGate) IssueToken(userID int, email string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    g.issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(g.ttl)),
		},
	})
	return token.SignedString([]byte(g.secret))
}

// ValidateToken parses and verifies a token string.
func (g *JWTGate) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(g.secret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Identify pulls a token from the Authorization header or the token query
// param (browsers cannot set headers on websocket upgrades). A missing token
// yields an anonymous identity, not an error; a present-but-bad token errs.
func (g *JWTGate) Identify(r *http.Request) (string, error) {
	tokenString := TokenFromRequest(r)
	if tokenString == "" {
		return "", nil
	}
	claims, err := g.ValidateToken(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Email, nil
}

func (g *JWTGate) MayPost(ctx context.Context, identity, roomKey string) bool {
	return identity != ""
}

// TokenFromRequest checks the Authorization header first, then the query
// param fallback.
func TokenFromRequest(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 {
			return parts[1]
		}
	}
	return r.URL.Query().Get("token")
}

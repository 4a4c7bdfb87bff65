// Package identity extracts a participant handshake from an incoming
// WebSocket upgrade request. Identity is trusted as given at connect time;
// an optional HS256 token can vouch for it.
package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vovakirdan/duelhub/internal/multiplayer"
)

// Config controls token handling.
type Config struct {
	JWTSecret    string
	RequireToken bool
}

// Claims is the token payload. userId and username override query identity.
type Claims struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Provider turns requests into handshakes.
type Provider struct {
	secret       []byte
	requireToken bool
	now          func() time.Time
}

// NewProvider creates a provider.
func NewProvider(cfg Config) *Provider {
	return &Provider{
		secret:       []byte(cfg.JWTSecret),
		requireToken: cfg.RequireToken,
		now:          time.Now,
	}
}

// legacyUser is the JSON object some clients send in the "user" parameter.
type legacyUser struct {
	UserID   any    `json:"userId"` // number or string
	Username string `json:"username"`
}

// Handshake reads participantId, displayName and lastSessionId from the
// query, falling back to the "user" JSON parameter and "lastGameId".
// A valid token overrides both.
func (p *Provider) Handshake(r *http.Request) (multiplayer.Handshake, error) {
	q := r.URL.Query()
	hs := multiplayer.Handshake{
		ParticipantID: multiplayer.ParticipantID(q.Get("participantId")),
		DisplayName:   q.Get("displayName"),
		LastSessionID: multiplayer.SessionID(q.Get("lastSessionId")),
	}
	if hs.LastSessionID == "" {
		hs.LastSessionID = multiplayer.SessionID(q.Get("lastGameId"))
	}

	if raw := q.Get("user"); raw != "" && hs.ParticipantID == "" {
		u, err := parseLegacyUser(raw)
		if err != nil {
			return multiplayer.Handshake{}, err
		}
		hs.ParticipantID = multiplayer.ParticipantID(fmt.Sprint(u.UserID))
		if hs.DisplayName == "" {
			hs.DisplayName = u.Username
		}
	}

	token := tokenFrom(r)
	switch {
	case token != "":
		c, err := p.Verify(token)
		if err != nil {
			return multiplayer.Handshake{}, err
		}
		hs.ParticipantID = multiplayer.ParticipantID(c.UserID)
		if c.Username != "" {
			hs.DisplayName = c.Username
		}
	case p.requireToken:
		return multiplayer.Handshake{}, fmt.Errorf("%w: token required", multiplayer.ErrInvalidHandshake)
	}

	if _, err := hs.Participant(); err != nil {
		return multiplayer.Handshake{}, err
	}
	return hs, nil
}

func parseLegacyUser(raw string) (legacyUser, error) {
	var u legacyUser
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&u); err != nil {
		return legacyUser{}, fmt.Errorf("%w: user parameter: %v", multiplayer.ErrInvalidHandshake, err)
	}
	if u.UserID == nil || fmt.Sprint(u.UserID) == "" {
		return legacyUser{}, fmt.Errorf("%w: user parameter has no userId", multiplayer.ErrInvalidHandshake)
	}
	return u, nil
}

func tokenFrom(r *http.Request) string {
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

// Verify checks an HS256 token and returns its claims.
func (p *Provider) Verify(token string) (Claims, error) {
	if len(p.secret) == 0 {
		return Claims{}, fmt.Errorf("%w: tokens are not accepted", multiplayer.ErrInvalidHandshake)
	}

	var c Claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		return Claims{}, mapJWTError(err)
	}
	if strings.TrimSpace(c.UserID) == "" {
		return Claims{}, fmt.Errorf("%w: token has no userId", multiplayer.ErrInvalidHandshake)
	}
	return c, nil
}

// Sign issues a token for p valid for ttl.
func (p *Provider) Sign(who multiplayer.Participant, ttl time.Duration) (string, error) {
	if len(p.secret) == 0 {
		return "", errors.New("identity: no signing secret configured")
	}
	now := p.now()
	c := Claims{
		UserID:   string(who.ID),
		Username: who.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("identity: cannot sign token: %w", err)
	}
	return signed, nil
}

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: token expired", multiplayer.ErrInvalidHandshake)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: token signature is invalid", multiplayer.ErrInvalidHandshake)
	default:
		return fmt.Errorf("%w: %v", multiplayer.ErrInvalidHandshake, err)
	}
}

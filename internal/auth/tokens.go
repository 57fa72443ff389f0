package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ParticipantTTL is how long a participant token re-identifies its holder.
const ParticipantTTL = 60 * 24 * time.Hour

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrWrongEvent   = errors.New("token issued for another event")
)

// ParticipantClaims bind a participant to the event it entered.
type ParticipantClaims struct {
	EventID       int64 `json:"event_id"`
	ParticipantID int64 `json:"participant_id"`
	jwt.RegisteredClaims
}

// ParticipantTokens issues and verifies HS256 participant tokens.
type ParticipantTokens struct {
	secret []byte
	ttl    time.Duration
	clock  func() time.Time
}

func NewParticipantTokens(secret string, ttl time.Duration) *ParticipantTokens {
	if ttl <= 0 {
		ttl = ParticipantTTL
	}
	return &ParticipantTokens{secret: []byte(secret), ttl: ttl, clock: time.Now}
}

func (p *ParticipantTokens) Issue(eventID, participantID int64) (string, time.Time, error) {
	now := p.clock()
	expiresAt := now.Add(p.ttl)
	claims := ParticipantClaims{
		EventID:       eventID,
		ParticipantID: participantID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(participantID, 10),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(p.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (p *ParticipantTokens) Parse(tokenString string, eventID int64) (int64, error) {
	claims := &ParticipantClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, p.key,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(p.clock),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.ParticipantID == 0 {
		return 0, ErrInvalidToken
	}
	if claims.EventID != eventID {
		return 0, ErrWrongEvent
	}
	return claims.ParticipantID, nil
}

func (p *ParticipantTokens) key(*jwt.Token) (interface{}, error) {
	return p.secret, nil
}

// OrganizerTokens verifies bearer tokens whose subject is the organizer id.
type OrganizerTokens struct {
	secret []byte
	clock  func() time.Time
}

func NewOrganizerTokens(secret string) *OrganizerTokens {
	return &OrganizerTokens{secret: []byte(secret), clock: time.Now}
}

// Issue signs an organizer token; used by tooling and tests.
func (o *OrganizerTokens) Issue(ownerID string, ttl time.Duration) (string, error) {
	now := o.clock()
	claims := jwt.RegisteredClaims{
		Subject:   ownerID,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(o.secret)
}

// Verify returns the organizer id carried by the token.
func (o *OrganizerTokens) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return o.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(o.clock),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

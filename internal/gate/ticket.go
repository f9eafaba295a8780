package gate

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const DefaultTTL = 30 * time.Minute

var (
	ErrNoSecret      = errors.New("ticket secret not set")
	ErrInvalidTicket = errors.New("invalid or expired confirmation ticket")
)

// Issued identifies a verified ticket.
type Issued struct {
	ID        string
	ExpiresAt time.Time
}

type claims struct {
	Draft json.RawMessage `json:"draft"`
	jwt.RegisteredClaims
}

// Tickets signs the payload awaiting confirmation so the confirm/cancel
// request can bring it back without the server keeping order state.
type Tickets struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func New(secret string, ttl time.Duration) (*Tickets, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tickets{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

func (t *Tickets) WithClock(now func() time.Time) *Tickets {
	t.now = now
	return t
}

func (t *Tickets) Issue(v any) (string, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode ticket payload: %w", err)
	}

	now := t.now()
	c := claims{
		Draft: payload,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   "order-confirmation",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return token.SignedString(t.secret)
}

// Verify checks signature and expiry, then decodes the payload into v.
func (t *Tickets) Verify(tokenString string, v any) (Issued, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid || c.ID == "" {
		return Issued{}, ErrInvalidTicket
	}

	if err := json.Unmarshal(c.Draft, v); err != nil {
		return Issued{}, fmt.Errorf("%w: %v", ErrInvalidTicket, err)
	}
	return Issued{ID: c.ID, ExpiresAt: c.ExpiresAt.Time}, nil
}

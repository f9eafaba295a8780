package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"donodopedaco/internal/config"
	"donodopedaco/internal/gate"
	"donodopedaco/internal/ratelimit"
	"donodopedaco/internal/whatsapp"

	"go.uber.org/zap"
)

// RateAction names the limiter key used for order hand-offs.
const RateAction = "order"

var ErrRateLimited = errors.New("too many order attempts")

// RateLimitedError carries the limiter status so callers can show the wait.
type RateLimitedError struct {
	Status ratelimit.Status
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("Muitas tentativas de envio. Tente novamente em %d minuto(s)", e.Status.MinutesRemaining())
}

func (e *RateLimitedError) Is(target error) bool { return target == ErrRateLimited }

// Request is the wire shape of an order form, shared by the HTML form and
// the JSON API.
type Request struct {
	Kind          string         `json:"kind" form:"kind"`
	Name          string         `json:"name" form:"name"`
	PickupDate    string         `json:"pickup_date" form:"pickup_date"`
	PickupTime    string         `json:"pickup_time" form:"pickup_time"`
	Weight        string         `json:"weight" form:"weight"`
	Dough         string         `json:"dough" form:"dough"`
	FlavorMode    string         `json:"flavor_mode" form:"flavor_mode"`
	Flavors       []string       `json:"flavors" form:"flavors"`
	CustomFlavors string         `json:"custom_flavors" form:"custom_flavors"`
	Decoration    string         `json:"decoration" form:"decoration"`
	Quantity      string         `json:"quantity" form:"quantity"`
	Allocation    map[string]int `json:"allocation" form:"-"`
	Notes         string         `json:"notes" form:"notes"`
	Frying        string         `json:"frying" form:"frying"`
}

func (r Request) Draft(kind Kind) Draft {
	return Draft{
		Kind:          kind,
		Name:          r.Name,
		PickupDate:    r.PickupDate,
		PickupTime:    r.PickupTime,
		Weight:        r.Weight,
		Dough:         r.Dough,
		FlavorMode:    r.FlavorMode,
		Flavors:       r.Flavors,
		CustomFlavors: r.CustomFlavors,
		Decoration:    r.Decoration,
		Quantity:      r.Quantity,
		Allocation:    r.Allocation,
		Notes:         r.Notes,
		Frying:        r.Frying,
	}
}

// Pending is a validated order waiting for the customer's confirmation.
type Pending struct {
	Ticket   string      `json:"ticket"`
	Prompt   gate.Prompt `json:"prompt"`
	Draft    Draft       `json:"draft"`
	Message  string      `json:"message"`
	Estimate *Estimate   `json:"estimate,omitempty"`
}

// Submitted is the result of a confirmed hand-off.
type Submitted struct {
	Link   string           `json:"whatsapp_url"`
	Status ratelimit.Status `json:"rate_limit"`
}

type Service struct {
	store   config.Store
	limiter *ratelimit.Limiter
	tickets *gate.Tickets
	spent   *gate.Spent
	logger  *zap.Logger
	now     func() time.Time
}

func NewService(
	store config.Store,
	limiter *ratelimit.Limiter,
	tickets *gate.Tickets,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:   store,
		limiter: limiter,
		tickets: tickets,
		spent:   gate.NewSpent(ratelimit.NewInMemoryStore(), logger),
		logger:  logger,
		now:     time.Now,
	}
}

// WithSpent shares the used-ticket ledger, e.g. over the rate limit backend
// when several instances serve the site.
func (s *Service) WithSpent(spent *gate.Spent) *Service {
	s.spent = spent
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Store() config.Store { return s.store }

// NewForm returns a blank draft of kind.
func (s *Service) NewForm(kind Kind) *Form {
	return NewForm(kind, s.store, s.now)
}

// Build replays d onto a new form.
func (s *Service) Build(d Draft) (*Form, error) {
	if d.Kind != KindCake && d.Kind != KindSnack {
		return nil, ErrUnknownKind
	}
	f := s.NewForm(d.Kind)
	if err := f.Load(d); err != nil {
		return nil, err
	}
	return f, nil
}

// --------------------------------------------------
// Submit: validate and issue a confirmation ticket
// --------------------------------------------------

// Submit returns the form in every case so the caller can re-render it.
// Validation failures come back as Errors.
func (s *Service) Submit(ctx context.Context, clientID string, d Draft) (*Form, *Pending, error) {
	f, err := s.Build(d)
	if err != nil {
		return nil, nil, err
	}

	if st := s.RateLimitStatus(ctx, clientID); st.Blocked {
		return f, nil, &RateLimitedError{Status: st}
	}

	if err := f.Submit(); err != nil {
		return f, nil, err
	}

	draft := f.Draft()
	ticket, err := s.tickets.Issue(draft)
	if err != nil {
		return f, nil, fmt.Errorf("issue confirmation ticket: %w", err)
	}

	p := &Pending{
		Ticket:  ticket,
		Prompt:  gate.PromptFor(string(draft.Kind)),
		Draft:   draft,
		Message: f.Message(),
	}
	if est, ok := f.Estimate(); ok {
		p.Estimate = &est
	}
	return f, p, nil
}

// --------------------------------------------------
// Confirm: re-validate, count the attempt, hand off
// --------------------------------------------------

func (s *Service) Confirm(ctx context.Context, clientID, ticket string, ch whatsapp.Channel) (*Submitted, error) {
	f, issued, err := s.restore(ticket)
	if err != nil {
		return nil, err
	}

	// The ticket may have been issued yesterday; rules are checked again.
	if err := f.Submit(); err != nil {
		return nil, err
	}

	claimed := true
	if err := s.spent.Claim(ctx, issued.ID, issued.ExpiresAt); err != nil {
		if errors.Is(err, gate.ErrTicketSpent) {
			s.logger.Info("order ticket reused", zap.String("client", clientID))
			return nil, ErrAlreadySubmitted
		}
		claimed = false
		s.logger.Warn("used-ticket ledger unavailable", zap.Error(err))
	}
	release := func() {
		if !claimed {
			return
		}
		if err := s.spent.Release(ctx, issued.ID); err != nil {
			s.logger.Warn("ticket claim not released", zap.Error(err))
		}
	}

	var st ratelimit.Status
	if s.limiter != nil {
		st = s.limiter.RegisterAttempt(ctx, s.limiter.Key(RateAction, clientID))
		if !st.Allowed {
			release()
			s.logger.Info("order hand-off refused by rate limit",
				zap.String("client", clientID),
				zap.Int("attempts", st.Attempts),
			)
			return nil, &RateLimitedError{Status: st}
		}
	}

	link, err := f.Confirm(ctx, ch)
	if err != nil {
		release()
		s.logger.Error("order hand-off failed", zap.String("client", clientID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("order handed off",
		zap.String("client", clientID),
		zap.String("kind", string(f.Kind())),
		zap.Int("attempts", st.Attempts),
	)
	return &Submitted{Link: link, Status: st}, nil
}

// Cancel closes the prompt and returns the form with its values intact.
func (s *Service) Cancel(ticket string) (*Form, error) {
	f, _, err := s.restore(ticket)
	if err != nil {
		return nil, err
	}
	if err := f.Submit(); err != nil {
		// Still a draft with the customer's values; that is all Cancel needs.
		return f, nil
	}
	if err := f.Cancel(); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *Service) restore(ticket string) (*Form, gate.Issued, error) {
	if strings.TrimSpace(ticket) == "" {
		return nil, gate.Issued{}, gate.ErrInvalidTicket
	}
	var d Draft
	issued, err := s.tickets.Verify(ticket, &d)
	if err != nil {
		return nil, gate.Issued{}, err
	}
	f, err := s.Build(d)
	if err != nil {
		return nil, gate.Issued{}, err
	}
	return f, issued, nil
}

// --------------------------------------------------
// Live checks
// --------------------------------------------------

// CheckField runs the live validation of one field of a fresh draft and
// returns its message, or "" when the value is fine.
func (s *Service) CheckField(kind Kind, field Field, value string) (string, error) {
	f := s.NewForm(kind)
	if err := f.Set(field, value); err != nil {
		return "", err
	}
	return f.Errors().Get(field), nil
}

func (s *Service) RateLimitStatus(ctx context.Context, clientID string) ratelimit.Status {
	if s.limiter == nil {
		return ratelimit.Status{Allowed: true, Remaining: s.store.Orders.RateLimit.MaxAttempts}
	}
	return s.limiter.Status(ctx, s.limiter.Key(RateAction, clientID))
}

package order

import (
	"errors"
	"sort"
	"strings"
)

type Kind string

const (
	KindCake  Kind = "cake"
	KindSnack Kind = "snack"
)

// ParseKind accepts the API names and the Portuguese URL slugs.
func ParseKind(raw string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "cake", "bolo":
		return KindCake, nil
	case "snack", "salgados":
		return KindSnack, nil
	}
	return "", ErrUnknownKind
}

// Label is the word used in the outbound message.
func (k Kind) Label() string {
	if k == KindCake {
		return "bolo"
	}
	return "salgados"
}

// Slug is the Portuguese path segment of the order page.
func (k Kind) Slug() string {
	return k.Label()
}

type State string

const (
	StateDraft                State = "draft"
	StateValidating           State = "validating"
	StateAwaitingConfirmation State = "awaiting_confirmation"
	StateSubmitted            State = "submitted"
)

type Field string

const (
	FieldName       Field = "name"
	FieldPickupDate Field = "pickup_date"
	FieldPickupTime Field = "pickup_time"
	FieldWeight     Field = "weight"
	FieldDough      Field = "dough"
	FieldFlavors    Field = "flavors"
	FieldDecoration Field = "decoration"
	FieldQuantity   Field = "quantity"
	FieldNotes      Field = "notes"
	FieldFrying     Field = "frying"
)

var (
	ErrUnknownKind      = errors.New("unknown order kind")
	ErrUnknownField     = errors.New("unknown form field")
	ErrNotEditable      = errors.New("order is not a draft")
	ErrNotAwaiting      = errors.New("order is not awaiting confirmation")
	ErrHandOff          = errors.New("could not hand the order to whatsapp")
	ErrInvalidDraft     = errors.New("order has validation errors")
	ErrAlreadySubmitted = errors.New("order was already submitted")
)

// Draft holds every field of the order being written. Only the fields of
// Kind are validated and sent; the rest are ignored.
type Draft struct {
	Kind       Kind   `json:"kind"`
	Name       string `json:"name"`
	PickupDate string `json:"pickup_date"`
	PickupTime string `json:"pickup_time"`

	// cake
	Weight        string   `json:"weight,omitempty"`
	Dough         string   `json:"dough,omitempty"`
	FlavorMode    string   `json:"flavor_mode,omitempty"`
	Flavors       []string `json:"flavors,omitempty"`
	CustomFlavors string   `json:"custom_flavors,omitempty"`
	Decoration    string   `json:"decoration,omitempty"`

	// snack
	Quantity   string         `json:"quantity,omitempty"`
	Allocation map[string]int `json:"allocation,omitempty"`
	Notes      string         `json:"notes,omitempty"`
	Frying     string         `json:"frying,omitempty"`
}

// Errors maps a field to the message shown next to it. Empty means submittable.
type Errors map[Field]string

func (e Errors) Empty() bool { return len(e) == 0 }

func (e Errors) Has(f Field) bool {
	_, ok := e[f]
	return ok
}

func (e Errors) Get(f Field) string { return e[f] }

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, string(f))
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e[Field(f)])
	}
	return strings.Join(parts, "; ")
}

// Is makes a returned Errors match ErrInvalidDraft.
func (e Errors) Is(target error) bool { return target == ErrInvalidDraft }

func (e Errors) clone() Errors {
	out := make(Errors, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

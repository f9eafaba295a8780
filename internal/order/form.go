package order

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"donodopedaco/internal/config"
	"donodopedaco/internal/flavor"
	"donodopedaco/internal/validate"
	"donodopedaco/internal/whatsapp"
)

// Form is one order request moving through
// draft -> validating -> awaiting confirmation -> submitted.
//
// Pickup date and time are checked as soon as they change; every other field
// is only checked by Submit. Submit always re-runs every rule.
type Form struct {
	store config.Store
	now   func() time.Time

	state  State
	draft  Draft
	errors Errors

	picker    *flavor.CakePicker
	alloc     *flavor.SnackAllocator
	flavorErr string // selection refused while loading, reported at submit

	onTransition func(from, to State)
}

func NewForm(kind Kind, store config.Store, now func() time.Time) *Form {
	if now == nil {
		now = time.Now
	}
	f := &Form{store: store, now: now}
	f.start(kind)
	return f
}

func (f *Form) start(kind Kind) {
	f.state = StateDraft
	f.errors = Errors{}
	f.flavorErr = ""
	f.draft = Draft{Kind: kind}

	cake := f.store.Orders.Cake
	snack := f.store.Orders.Snack

	switch kind {
	case KindCake:
		f.draft.Weight = strconv.FormatFloat(cake.MinWeight, 'f', -1, 64)
	case KindSnack:
		if len(snack.FryingOptions) > 0 {
			f.draft.Frying = snack.FryingOptions[0]
		}
	}

	f.picker = flavor.NewCakePicker(cake.Flavors, cake.MaxFlavors)
	f.picker.OnChange(func(list []string) { f.draft.Flavors = list })

	f.alloc = flavor.NewSnackAllocator(snack.Flavors, 0)
	f.alloc.OnChange(func(m map[string]int) { f.draft.Allocation = m })
}

// OnTransition registers a listener for state changes.
func (f *Form) OnTransition(fn func(from, to State)) {
	f.onTransition = fn
}

func (f *Form) Kind() Kind { return f.draft.Kind }
func (f *Form) State() State { return f.state }
func (f *Form) Errors() Errors { return f.errors.clone() }
func (f *Form) Store() config.Store { return f.store }

// Picker and Allocator are exposed for rendering; edit through the Form.
func (f *Form) Picker() *flavor.CakePicker { return f.picker }
func (f *Form) Allocator() *flavor.SnackAllocator { return f.alloc }

// Draft returns a snapshot of every field, selector state included.
func (f *Form) Draft() Draft {
	d := f.draft
	d.Flavors = slices.Clone(f.draft.Flavors)
	d.FlavorMode = string(f.picker.Mode())
	d.CustomFlavors = f.picker.CustomText()
	if f.draft.Allocation != nil {
		d.Allocation = make(map[string]int, len(f.draft.Allocation))
		for k, v := range f.draft.Allocation {
			d.Allocation[k] = v
		}
	}
	return d
}

// --------------------------------------------------
// Editing (draft only)
// --------------------------------------------------

func (f *Form) Set(field Field, value string) error {
	if err := f.editable(); err != nil {
		return err
	}

	switch field {
	case FieldName:
		f.draft.Name = value
	case FieldPickupDate:
		f.draft.PickupDate = value
		f.checkLive(field)
	case FieldPickupTime:
		f.draft.PickupTime = value
		f.checkLive(field)
	case FieldWeight:
		f.draft.Weight = value
	case FieldDough:
		f.draft.Dough = value
	case FieldDecoration:
		f.draft.Decoration = value
	case FieldQuantity:
		f.draft.Quantity = value
		f.alloc.SetTotal(flavor.NormalizeQuantity(value))
	case FieldNotes:
		f.draft.Notes = value
	case FieldFrying:
		f.draft.Frying = value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	return nil
}

func (f *Form) SetFlavorMode(mode flavor.Mode) error {
	if err := f.editable(); err != nil {
		return err
	}
	f.picker.SetMode(mode)
	return nil
}

func (f *Form) ToggleFlavor(name string, checked bool) error {
	if err := f.editable(); err != nil {
		return err
	}
	return f.picker.Toggle(name, checked)
}

func (f *Form) SetCustomFlavors(text string) error {
	if err := f.editable(); err != nil {
		return err
	}
	return f.picker.SetCustom(text)
}

// SetFlavorQuantity edits one snack flavor; an edit past the total is refused.
func (f *Form) SetFlavorQuantity(name, raw string) error {
	if err := f.editable(); err != nil {
		return err
	}
	return f.alloc.Set(name, raw)
}

// Load replays d onto a fresh draft of d.Kind, selectors included.
func (f *Form) Load(d Draft) error {
	if f.state == StateSubmitted {
		return ErrAlreadySubmitted
	}
	kind := d.Kind
	if kind == "" {
		kind = f.draft.Kind
	}
	f.start(kind)

	for field, value := range map[Field]string{
		FieldName:       d.Name,
		FieldPickupDate: d.PickupDate,
		FieldPickupTime: d.PickupTime,
		FieldWeight:     d.Weight,
		FieldDough:      d.Dough,
		FieldDecoration: d.Decoration,
		FieldQuantity:   d.Quantity,
		FieldNotes:      d.Notes,
		FieldFrying:     d.Frying,
	} {
		if field == FieldWeight && value == "" && kind == KindCake {
			continue
		}
		if field == FieldFrying && value == "" && kind == KindSnack {
			continue
		}
		if field == FieldPickupDate || field == FieldPickupTime {
			if value == "" {
				continue
			}
		}
		if err := f.Set(field, value); err != nil {
			return err
		}
	}

	switch kind {
	case KindCake:
		// A posted selection the picker refuses must not be silently trimmed.
		mode := flavor.ParseMode(d.FlavorMode)
		_ = f.SetFlavorMode(mode)
		if mode == flavor.ModeCustom {
			f.flavorRejected(f.SetCustomFlavors(d.CustomFlavors))
			break
		}
		for _, name := range d.Flavors {
			if err := f.ToggleFlavor(name, true); err != nil {
				f.flavorRejected(err)
				break
			}
		}
	case KindSnack:
		vocab := f.store.Orders.Snack.Flavors
		for _, name := range vocab {
			if q, ok := d.Allocation[name]; ok {
				if err := f.SetFlavorQuantity(name, strconv.Itoa(q)); err != nil && f.flavorErr == "" {
					f.flavorRejected(err)
				}
			}
		}
		for name := range d.Allocation {
			if !slices.Contains(vocab, name) {
				f.flavorErr = "Sabor não disponível: " + whatsapp.Sanitize(name)
			}
		}
	}
	return nil
}

// --------------------------------------------------
// State machine
// --------------------------------------------------

// Submit validates everything. On failure the form goes back to draft and the
// returned error is the Errors set; on success it awaits confirmation.
func (f *Form) Submit() error {
	switch f.state {
	case StateSubmitted:
		return ErrAlreadySubmitted
	case StateDraft:
	default:
		return ErrNotEditable
	}

	f.transition(StateValidating)
	f.errors = f.validate()
	if !f.errors.Empty() {
		f.transition(StateDraft)
		return f.errors.clone()
	}
	f.transition(StateAwaitingConfirmation)
	return nil
}

// Cancel closes the confirmation prompt; the fields stay as they were.
func (f *Form) Cancel() error {
	if f.state != StateAwaitingConfirmation {
		return ErrNotAwaiting
	}
	f.transition(StateDraft)
	return nil
}

// Confirm composes the message and opens the channel exactly once.
// If the channel fails the form keeps awaiting confirmation.
func (f *Form) Confirm(ctx context.Context, ch whatsapp.Channel) (string, error) {
	switch f.state {
	case StateAwaitingConfirmation:
	case StateSubmitted:
		return "", ErrAlreadySubmitted
	default:
		return "", ErrNotAwaiting
	}

	wa := f.store.WhatsApp
	link, err := whatsapp.Link(wa.Host, wa.Number, f.Message())
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrHandOff, err)
	}
	if err := ch.Open(ctx, link); err != nil {
		return "", fmt.Errorf("%w: %w", ErrHandOff, err)
	}

	f.transition(StateSubmitted)
	return link, nil
}

// Reset starts a new draft of the same kind.
func (f *Form) Reset() {
	from := f.state
	f.start(f.draft.Kind)
	if f.onTransition != nil && from != StateDraft {
		f.onTransition(from, StateDraft)
	}
}

func (f *Form) transition(to State) {
	from := f.state
	f.state = to
	if f.onTransition != nil {
		f.onTransition(from, to)
	}
}

func (f *Form) editable() error {
	switch f.state {
	case StateDraft:
		return nil
	case StateSubmitted:
		return ErrAlreadySubmitted
	}
	return ErrNotEditable
}

// --------------------------------------------------
// Validation
// --------------------------------------------------

func (f *Form) checkLive(field Field) {
	var msg string
	switch field {
	case FieldPickupDate:
		msg = f.dateError(false)
	case FieldPickupTime:
		msg = f.timeError(false)
	}
	if msg == "" {
		delete(f.errors, field)
		return
	}
	f.errors[field] = msg
}

func (f *Form) validate() Errors {
	errs := Errors{}
	d := f.draft

	if whatsapp.Sanitize(d.Name) == "" {
		errs[FieldName] = "Informe o nome de quem vai retirar"
	}
	if msg := f.dateError(true); msg != "" {
		errs[FieldPickupDate] = msg
	}
	if msg := f.timeError(true); msg != "" {
		errs[FieldPickupTime] = msg
	}

	switch d.Kind {
	case KindCake:
		f.validateCake(errs)
	case KindSnack:
		f.validateSnack(errs)
	}
	return errs
}

func (f *Form) validateCake(errs Errors) {
	d := f.draft
	cake := f.store.Orders.Cake

	w, err := ParseWeight(d.Weight)
	switch {
	case err != nil:
		errs[FieldWeight] = "Informe o peso do bolo em kg"
	case w < cake.MinWeight:
		errs[FieldWeight] = fmt.Sprintf("O peso mínimo é de %s kg", FormatWeight(cake.MinWeight))
	case cake.WeightStep > 0 && !onStep(w, cake.WeightStep):
		errs[FieldWeight] = fmt.Sprintf("O peso deve variar de %s em %s kg", FormatWeight(cake.WeightStep), FormatWeight(cake.WeightStep))
	}

	if !slices.Contains(cake.Doughs, d.Dough) {
		errs[FieldDough] = "Escolha o tipo de massa"
	}

	switch {
	case f.flavorErr != "":
		errs[FieldFlavors] = f.flavorErr
	case f.picker.Mode() == flavor.ModeCustom && len(flavor.SplitCustom(f.picker.CustomText())) > cake.MaxFlavors:
		errs[FieldFlavors] = tooManyFlavors(cake.MaxFlavors)
	case len(d.Flavors) == 0:
		errs[FieldFlavors] = "Escolha pelo menos um sabor"
	}

	if whatsapp.Sanitize(d.Decoration) == "" {
		errs[FieldDecoration] = "Descreva a decoração desejada"
	}
}

func (f *Form) validateSnack(errs Errors) {
	d := f.draft
	snack := f.store.Orders.Snack

	q, err := strconv.Atoi(strings.TrimSpace(d.Quantity))
	switch {
	case err != nil:
		errs[FieldQuantity] = "Informe a quantidade total de salgados"
	case q < snack.MinQuantity:
		errs[FieldQuantity] = fmt.Sprintf("A quantidade mínima é de %d unidades", snack.MinQuantity)
	}

	switch {
	case f.flavorErr != "":
		errs[FieldFlavors] = f.flavorErr
	case f.alloc.Err() != nil:
		errs[FieldFlavors] = f.alloc.Err().Error()
	case f.alloc.Allocated() == 0:
		errs[FieldFlavors] = "Distribua a quantidade entre os sabores"
	}

	if whatsapp.Sanitize(d.Notes) == "" {
		errs[FieldNotes] = "Conte como os sabores devem ser divididos"
	}
	if !slices.Contains(snack.FryingOptions, d.Frying) {
		errs[FieldFrying] = "Escolha entre " + strings.Join(snack.FryingOptions, " ou ")
	}
}

func (f *Form) dateError(required bool) string {
	value := strings.TrimSpace(f.draft.PickupDate)
	if value == "" {
		if required {
			return "Informe a data de retirada"
		}
		return ""
	}

	loc := f.store.Location()
	d, err := validate.ParseDate(value, loc)
	if err != nil {
		return err.Error()
	}
	if err := validate.Date(d, f.now().In(loc), f.store.ClosedWeekday); err != nil {
		return err.Error()
	}
	return ""
}

func (f *Form) timeError(required bool) string {
	value := strings.TrimSpace(f.draft.PickupTime)
	if value == "" {
		if required {
			return "Informe o horário de retirada"
		}
		return ""
	}

	hours := validate.Hours{Open: f.store.Hours.Open, Close: f.store.Hours.Close}
	err := validate.Time(value, hours)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, validate.ErrOutsideHours):
		return fmt.Sprintf("Retiradas das %s às %s", hours.Open, hours.Close)
	}
	return validate.ErrInvalidTime.Error()
}

func (f *Form) flavorRejected(err error) {
	var over *flavor.OverTotalError
	switch {
	case err == nil:
	case errors.As(err, &over):
		f.flavorErr = over.Error()
	case errors.Is(err, flavor.ErrTooManyFlavors):
		f.flavorErr = tooManyFlavors(f.picker.Max())
	case errors.Is(err, flavor.ErrUnknownFlavor):
		f.flavorErr = "Sabor não disponível"
	default:
		f.flavorErr = "Não foi possível aplicar a escolha de sabores"
	}
}

func tooManyFlavors(n int) string {
	return fmt.Sprintf("Escolha no máximo %d sabores", n)
}

// ParseWeight accepts both "1.5" and "1,5".
func ParseWeight(raw string) (float64, error) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	w, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(w) || math.IsInf(w, 0) {
		return 0, fmt.Errorf("invalid weight %q", raw)
	}
	return w, nil
}

// FormatWeight prints a weight the Brazilian way: 1,5 and 2.
func FormatWeight(w float64) string {
	return strings.ReplaceAll(strconv.FormatFloat(w, 'f', -1, 64), ".", ",")
}

func onStep(w, step float64) bool {
	r := w / step
	return math.Abs(r-math.Round(r)) < 1e-9
}

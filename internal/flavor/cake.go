package flavor

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	ErrUnknownFlavor  = errors.New("sabor desconhecido")
	ErrTooManyFlavors = errors.New("limite de sabores atingido")
	ErrWrongMode      = errors.New("modo de sabores incorreto")
)

type Mode string

const (
	ModeFixed  Mode = "fixed"
	ModeCustom Mode = "custom"
)

func ParseMode(raw string) Mode {
	if Mode(raw) == ModeCustom {
		return ModeCustom
	}
	return ModeFixed
}

// CakePicker holds the flavor choice of a cake order. Fixed and custom
// modes are exclusive; only accepted changes reach the listener.
type CakePicker struct {
	vocabulary []string
	max        int
	mode       Mode
	fixed      []string
	customText string
	custom     []string
	onChange   func([]string)
}

func NewCakePicker(vocabulary []string, maxFlavors int) *CakePicker {
	return &CakePicker{
		vocabulary: vocabulary,
		max:        maxFlavors,
		mode:       ModeFixed,
	}
}

// OnChange registers the listener that receives every accepted flavor list.
func (p *CakePicker) OnChange(fn func([]string)) {
	p.onChange = fn
}

func (p *CakePicker) Mode() Mode { return p.mode }
func (p *CakePicker) Max() int { return p.max }
func (p *CakePicker) CustomText() string { return p.customText }
func (p *CakePicker) Vocabulary() []string { return slices.Clone(p.vocabulary) }
func (p *CakePicker) Selected(f string) bool { return slices.Contains(p.fixed, f) }

// Flavors returns the list currently propagated for the active mode.
func (p *CakePicker) Flavors() []string {
	if p.mode == ModeCustom {
		return slices.Clone(p.custom)
	}
	return slices.Clone(p.fixed)
}

// SetMode switches mode and discards the other mode's selection.
func (p *CakePicker) SetMode(mode Mode) {
	if mode == p.mode {
		return
	}
	p.mode = mode
	p.fixed = nil
	p.customText = ""
	p.custom = nil
	p.emit()
}

// Toggle selects or deselects a fixed flavor. Selecting past the cap is
// rejected and leaves the selection untouched.
func (p *CakePicker) Toggle(flavor string, checked bool) error {
	if p.mode != ModeFixed {
		return ErrWrongMode
	}
	if !slices.Contains(p.vocabulary, flavor) {
		return fmt.Errorf("%w: %s", ErrUnknownFlavor, flavor)
	}

	if !checked {
		idx := slices.Index(p.fixed, flavor)
		if idx < 0 {
			return nil
		}
		p.fixed = slices.Delete(slices.Clone(p.fixed), idx, idx+1)
		p.emit()
		return nil
	}

	if slices.Contains(p.fixed, flavor) {
		return nil
	}
	if len(p.fixed) >= p.max {
		return ErrTooManyFlavors
	}
	p.fixed = append(slices.Clone(p.fixed), flavor)
	p.emit()
	return nil
}

// SetCustom stores the free text. The parsed list is propagated only when it
// fits the cap; an over-limit text stays editable but is not propagated.
func (p *CakePicker) SetCustom(text string) error {
	if p.mode != ModeCustom {
		return ErrWrongMode
	}
	p.customText = text

	flavors := SplitCustom(text)
	if len(flavors) > p.max {
		return ErrTooManyFlavors
	}
	p.custom = flavors
	p.emit()
	return nil
}

// SplitCustom splits on commas, trims and drops empty entries.
func SplitCustom(text string) []string {
	var out []string
	for _, part := range strings.Split(text, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (p *CakePicker) emit() {
	if p.onChange != nil {
		p.onChange(p.Flavors())
	}
}

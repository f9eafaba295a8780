package flavor

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// OverTotalError reports an allocation edit that was refused.
type OverTotalError struct {
	Sum   int
	Total int
}

func (e *OverTotalError) Error() string {
	return fmt.Sprintf("O total de salgados (%d) excede a quantidade máxima de %d unidades", e.Sum, e.Total)
}

// SnackAllocator splits a snack order total across flavors.
// The allocated sum never exceeds the total: offending edits are dropped.
type SnackAllocator struct {
	vocabulary []string
	total      int
	quantities map[string]int
	err        error
	onChange   func(map[string]int)
}

func NewSnackAllocator(vocabulary []string, total int) *SnackAllocator {
	return &SnackAllocator{
		vocabulary: vocabulary,
		total:      max(total, 0),
		quantities: map[string]int{},
	}
}

func (a *SnackAllocator) OnChange(fn func(map[string]int)) {
	a.onChange = fn
}

func (a *SnackAllocator) Total() int { return a.total }
func (a *SnackAllocator) Err() error { return a.err }
func (a *SnackAllocator) Vocabulary() []string { return slices.Clone(a.vocabulary) }
func (a *SnackAllocator) Quantity(f string) int { return a.quantities[f] }

// SetTotal resets every allocation when the total actually changes.
func (a *SnackAllocator) SetTotal(total int) {
	total = max(total, 0)
	if total == a.total {
		return
	}
	a.total = total
	a.quantities = map[string]int{}
	a.err = nil
	a.emit()
}

// Set applies one edit. raw is the user's text; anything that is not a
// non-negative integer counts as 0.
func (a *SnackAllocator) Set(flavor, raw string) error {
	if !slices.Contains(a.vocabulary, flavor) {
		return fmt.Errorf("%w: %s", ErrUnknownFlavor, flavor)
	}

	qty := NormalizeQuantity(raw)
	sum := a.Allocated() - a.quantities[flavor] + qty
	if sum > a.total {
		a.err = &OverTotalError{Sum: sum, Total: a.total}
		return a.err
	}

	a.err = nil
	if qty == 0 {
		delete(a.quantities, flavor)
	} else {
		a.quantities[flavor] = qty
	}
	a.emit()
	return nil
}

// Allocation returns only the flavors with a positive quantity.
func (a *SnackAllocator) Allocation() map[string]int {
	out := make(map[string]int, len(a.quantities))
	for f, q := range a.quantities {
		if q > 0 {
			out[f] = q
		}
	}
	return out
}

func (a *SnackAllocator) Allocated() int {
	sum := 0
	for _, q := range a.quantities {
		sum += q
	}
	return sum
}

func (a *SnackAllocator) Remaining() int {
	return a.total - a.Allocated()
}

// Summary lists allocations in vocabulary order, e.g. "Frango: 10, Queijo: 10".
func (a *SnackAllocator) Summary() string {
	return FormatAllocation(a.vocabulary, a.quantities)
}

func FormatAllocation(vocabulary []string, quantities map[string]int) string {
	var parts []string
	for _, f := range vocabulary {
		if q := quantities[f]; q > 0 {
			parts = append(parts, fmt.Sprintf("%s: %d", f, q))
		}
	}
	return strings.Join(parts, ", ")
}

func NormalizeQuantity(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func (a *SnackAllocator) emit() {
	if a.onChange != nil {
		a.onChange(a.Allocation())
	}
}

package order

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"donodopedaco/internal/flavor"
	"donodopedaco/internal/whatsapp"
)

// Message is the plain text sent to the shop for the current draft.
func (f *Form) Message() string {
	return Compose(f.Draft(), f.store.Orders.Snack.Flavors)
}

// EncodedMessage is Message percent-encoded for a click-to-chat link.
func (f *Form) EncodedMessage() string {
	return whatsapp.Encode(f.Message())
}

// Compose renders an order. Free text is sanitized; field order is fixed:
// the order details first, then pickup date, time and name.
func Compose(d Draft, snackFlavors []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Olá! Gostaria de fazer uma encomenda de %s:\n\n", d.Kind.Label())

	switch d.Kind {
	case KindCake:
		fmt.Fprintf(&b, "Peso: %skg\n", weightText(d.Weight))
		fmt.Fprintf(&b, "Tipo de massa: %s\n", whatsapp.Sanitize(d.Dough))
		fmt.Fprintf(&b, "Sabores: %s\n", flavorsText(d.Flavors))
		fmt.Fprintf(&b, "Decoração: %s\n", whatsapp.Sanitize(d.Decoration))
	case KindSnack:
		fmt.Fprintf(&b, "Quantidade total: %s\n", whatsapp.Sanitize(d.Quantity))
		fmt.Fprintf(&b, "Sabores e quantidades: %s\n", flavor.FormatAllocation(snackFlavors, d.Allocation))
		fmt.Fprintf(&b, "Divisão dos sabores: %s\n", whatsapp.Sanitize(d.Notes))
		fmt.Fprintf(&b, "Tipo: %s\n", whatsapp.Sanitize(d.Frying))
	}

	b.WriteString("\nRetirada:\n")
	fmt.Fprintf(&b, "Data: %s\n", dateText(d.PickupDate))
	fmt.Fprintf(&b, "Horário: %s\n", whatsapp.Sanitize(d.PickupTime))
	fmt.Fprintf(&b, "Nome: %s", whatsapp.Sanitize(d.Name))
	return b.String()
}

func weightText(raw string) string {
	w, err := ParseWeight(raw)
	if err != nil {
		return whatsapp.Sanitize(raw)
	}
	return FormatWeight(w)
}

func flavorsText(list []string) string {
	clean := make([]string, 0, len(list))
	for _, f := range list {
		if f = whatsapp.Sanitize(f); f != "" {
			clean = append(clean, f)
		}
	}
	return strings.Join(clean, ", ")
}

// dateText shows 2026-10-20 as 20/10/2026.
func dateText(raw string) string {
	d, err := time.Parse("2006-01-02", strings.TrimSpace(raw))
	if err != nil {
		return whatsapp.Sanitize(raw)
	}
	return fmt.Sprintf("%02d/%02d/%s", d.Day(), int(d.Month()), strconv.Itoa(d.Year()))
}

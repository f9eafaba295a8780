package order

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var depositShare = decimal.NewFromFloat(0.5)

// Estimate is the indicative price of a draft. The shop confirms the final
// value over WhatsApp.
type Estimate struct {
	Total         decimal.Decimal `json:"total"`
	DepositNeeded bool            `json:"deposit_needed"`
	Deposit       decimal.Decimal `json:"deposit"`
	TotalText     string          `json:"total_text"`
	DepositText   string          `json:"deposit_text,omitempty"`
}

// Estimate prices the current draft. ok is false while the fields it needs
// are not valid numbers yet.
func (f *Form) Estimate() (Estimate, bool) {
	var (
		total   decimal.Decimal
		deposit bool
	)

	switch f.draft.Kind {
	case KindCake:
		cake := f.store.Orders.Cake
		w, err := ParseWeight(f.draft.Weight)
		if err != nil || w <= 0 {
			return Estimate{}, false
		}
		total = cake.PricePerKg.Mul(decimal.NewFromFloat(w))
		deposit = w > cake.DepositAboveKg
	case KindSnack:
		snack := f.store.Orders.Snack
		q, err := strconv.Atoi(strings.TrimSpace(f.draft.Quantity))
		if err != nil || q <= 0 {
			return Estimate{}, false
		}
		total = snack.PricePerUnit.Mul(decimal.NewFromInt(int64(q)))
		deposit = total.GreaterThan(snack.DepositAboveTotal)
	default:
		return Estimate{}, false
	}

	est := Estimate{
		Total:         total.Round(2),
		DepositNeeded: deposit,
		TotalText:     FormatBRL(total),
	}
	if deposit {
		est.Deposit = total.Mul(depositShare).Round(2)
		est.DepositText = FormatBRL(est.Deposit)
	}
	return est, true
}

var brl = message.NewPrinter(language.BrazilianPortuguese)

// FormatBRL prints an amount as Brazilian reais, e.g. R$ 1.234,50.
func FormatBRL(v decimal.Decimal) string {
	f, _ := v.Round(2).Float64()
	return brl.Sprintf("R$ %.2f", f)
}

// Package validate holds the pure pickup date and time rules of the order form.
package validate

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

var (
	ErrInvalidDate  = errors.New("Data de retirada inválida")
	ErrPastDate     = errors.New("A data de retirada não pode ser anterior a hoje")
	ErrClosedDay    = errors.New("Não abrimos nesse dia da semana. Escolha outra data")
	ErrInvalidTime  = errors.New("Horário de retirada inválido")
	ErrOutsideHours = errors.New("Horário fora do expediente")
)

// Hours are the inclusive opening bounds, both in HH:MM.
type Hours struct {
	Open  string
	Close string
}

// ParseDate reads the YYYY-MM-DD form value as a calendar day in loc.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, strings.TrimSpace(value), loc)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return d, nil
}

// Date fails when date is before today (calendar day in now's location)
// or falls on the closed weekday.
func Date(date, now time.Time, closed time.Weekday) error {
	loc := now.Location()
	day := truncateDay(date.In(loc))
	today := truncateDay(now)

	if day.Before(today) {
		return ErrPastDate
	}
	if day.Weekday() == closed {
		return ErrClosedDay
	}
	return nil
}

// Time accepts an empty value as "not specified yet".
func Time(value string, hours Hours) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	t, err := Minutes(value)
	if err != nil {
		return err
	}
	open, err := Minutes(hours.Open)
	if err != nil {
		return fmt.Errorf("opening time %q: %w", hours.Open, err)
	}
	closing, err := Minutes(hours.Close)
	if err != nil {
		return fmt.Errorf("closing time %q: %w", hours.Close, err)
	}

	if t < open || t > closing {
		return ErrOutsideHours
	}
	return nil
}

// Minutes converts HH:MM into minutes since midnight.
func Minutes(value string) (int, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(value), ":")
	if !ok {
		return 0, ErrInvalidTime
	}
	hours, err := strconv.Atoi(h)
	if err != nil || hours < 0 || hours > 23 {
		return 0, ErrInvalidTime
	}
	minutes, err := strconv.Atoi(m)
	if err != nil || len(m) != 2 || minutes < 0 || minutes > 59 {
		return 0, ErrInvalidTime
	}
	return hours*60 + minutes, nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

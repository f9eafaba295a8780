package config

import (
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Store is the static configuration of the bakery.
// Everything the order core needs is injected from here, nothing is hard-coded.
type Store struct {
	Name          string       `yaml:"name"`
	Timezone      string       `yaml:"timezone"`
	ClosedWeekday time.Weekday `yaml:"closed_weekday"`
	Hours         Hours        `yaml:"hours"`
	WhatsApp      WhatsApp     `yaml:"whatsapp"`
	Orders        Orders       `yaml:"orders"`
}

type Hours struct {
	Open  string `yaml:"open"`
	Close string `yaml:"close"`
}

type WhatsApp struct {
	Host           string `yaml:"host"`
	Number         string `yaml:"number"`
	DefaultMessage string `yaml:"default_message"`
}

type Orders struct {
	Cake      CakeRules      `yaml:"cake"`
	Snack     SnackRules     `yaml:"snack"`
	RateLimit RateLimitRules `yaml:"rate_limit"`
}

type CakeRules struct {
	MinWeight      float64         `yaml:"min_weight"`
	WeightStep     float64         `yaml:"weight_step"`
	PricePerKg     decimal.Decimal `yaml:"price_per_kg"`
	MaxFlavors     int             `yaml:"max_flavors"`
	DepositAboveKg float64         `yaml:"deposit_above_kg"`
	Doughs         []string        `yaml:"doughs"`
	Flavors        []string        `yaml:"flavors"`
}

type SnackRules struct {
	MinQuantity       int             `yaml:"min_quantity"`
	PricePerUnit      decimal.Decimal `yaml:"price_per_unit"`
	DepositAboveTotal decimal.Decimal `yaml:"deposit_above_total"`
	FryingOptions     []string        `yaml:"frying_options"`
	Flavors           []string        `yaml:"flavors"`
}

type RateLimitRules struct {
	MaxAttempts   int `yaml:"max_attempts"`
	WindowMinutes int `yaml:"window_minutes"`
}

func (r RateLimitRules) Window() time.Duration {
	return time.Duration(r.WindowMinutes) * time.Minute
}

// DefaultStore mirrors the configuration the shop runs with today.
func DefaultStore() Store {
	return Store{
		Name:          "Panificadora Dono do Pedaço",
		Timezone:      "America/Sao_Paulo",
		ClosedWeekday: time.Sunday,
		Hours: Hours{
			Open:  "06:00",
			Close: "18:30",
		},
		WhatsApp: WhatsApp{
			Host:           "wa.me",
			Number:         "5516997783037",
			DefaultMessage: "Olá! Gostaria de fazer um pedido na Panificadora Dono do Pedaço.",
		},
		Orders: Orders{
			Cake: CakeRules{
				MinWeight:      1.5,
				WeightStep:     0.5,
				PricePerKg:     decimal.NewFromInt(58),
				MaxFlavors:     2,
				DepositAboveKg: 2,
				Doughs:         []string{"branca", "chocolate"},
				Flavors: []string{
					"Brigadeiro",
					"Leite Ninho",
					"Beijinho",
					"Abacaxi",
					"Ninho com Morango",
					"Brigadeiro de Morango",
				},
			},
			Snack: SnackRules{
				MinQuantity:       20,
				PricePerUnit:      decimal.NewFromInt(1),
				DepositAboveTotal: decimal.NewFromInt(50),
				FryingOptions:     []string{"frito", "cru"},
				Flavors: []string{
					"Frango",
					"Carne",
					"Presunto",
					"Mortadela",
					"Queijo",
					"Kibe",
					"Brócolis",
					"Calabresa",
					"Milho",
				},
			},
			RateLimit: RateLimitRules{
				MaxAttempts:   3,
				WindowMinutes: 5,
			},
		},
	}
}

// LoadStore overlays the YAML file at path on top of DefaultStore.
// An empty path returns the defaults.
func LoadStore(path string) (Store, error) {
	store := DefaultStore()
	if path == "" {
		return store, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Store{}, fmt.Errorf("read store config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &store); err != nil {
		return Store{}, fmt.Errorf("parse store config %s: %w", path, err)
	}
	if err := store.Validate(); err != nil {
		return Store{}, err
	}
	return store, nil
}

// Validate rejects configurations the order core cannot work with.
func (s Store) Validate() error {
	switch {
	case s.WhatsApp.Number == "":
		return fmt.Errorf("store config: whatsapp number is required")
	case s.Hours.Open == "" || s.Hours.Close == "":
		return fmt.Errorf("store config: opening hours are required")
	case s.Orders.Cake.MaxFlavors <= 0:
		return fmt.Errorf("store config: cake max_flavors must be positive")
	case s.Orders.Snack.MinQuantity <= 0:
		return fmt.Errorf("store config: snack min_quantity must be positive")
	case s.Orders.RateLimit.MaxAttempts <= 0 || s.Orders.RateLimit.WindowMinutes <= 0:
		return fmt.Errorf("store config: rate limit needs positive attempts and window")
	}
	if _, err := time.LoadLocation(s.Timezone); err != nil {
		return fmt.Errorf("store config: timezone %q: %w", s.Timezone, err)
	}
	return nil
}

// Location resolves the configured time zone, falling back to UTC.
func (s Store) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

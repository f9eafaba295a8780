package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Env holds the process settings read from the environment (and .env outside production).
type Env struct {
	AppEnv            string
	Port              string
	TicketSecret      string
	StoreConfigPath   string
	RateLimitBackend  string
	RedisAddr         string
	RedisPassword     string
	DatabaseURL       string
	CatalogSource     string
	CatalogPath       string
	CORSOrigins       []string
	TrustedProxies    []string
	RequestsPerSecond float64

	R2 R2
}

type R2 struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	Bucket     string
	CatalogKey string
}

func (e Env) Production() bool {
	return e.AppEnv == "production"
}

// LoadEnv reads the environment. The .env file is optional and ignored in production.
func LoadEnv() (Env, error) {
	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load()
	}

	env := Env{
		AppEnv:           getenv("APP_ENV", "development"),
		Port:             getenv("PORT", "8080"),
		TicketSecret:     os.Getenv("TICKET_SECRET"),
		StoreConfigPath:  os.Getenv("STORE_CONFIG"),
		RateLimitBackend: getenv("RATE_LIMIT_BACKEND", "memory"),
		RedisAddr:        getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		CatalogSource:    getenv("CATALOG_SOURCE", "embedded"),
		CatalogPath:      os.Getenv("CATALOG_PATH"),
		CORSOrigins:      splitList(getenv("CORS_ORIGINS", "http://localhost:3000")),
		TrustedProxies:   splitList(os.Getenv("TRUSTED_PROXIES")),
		R2: R2{
			Endpoint:   os.Getenv("R2_ENDPOINT"),
			AccessKey:  os.Getenv("R2_ACCESS_KEY"),
			SecretKey:  os.Getenv("R2_SECRET_KEY"),
			Bucket:     os.Getenv("R2_BUCKET_NAME"),
			CatalogKey: getenv("R2_CATALOG_KEY", "catalog.yaml"),
		},
	}

	rps, err := strconv.ParseFloat(getenv("REQUESTS_PER_SECOND", "5"), 64)
	if err != nil {
		return Env{}, fmt.Errorf("REQUESTS_PER_SECOND: %w", err)
	}
	env.RequestsPerSecond = rps

	if err := env.validate(); err != nil {
		return Env{}, err
	}
	return env, nil
}

func (e *Env) validate() error {
	var missing []string

	if e.TicketSecret == "" {
		if e.Production() {
			missing = append(missing, "TICKET_SECRET")
		} else {
			e.TicketSecret = "dev-ticket-secret"
		}
	}

	switch e.RateLimitBackend {
	case "memory", "redis":
	case "postgres":
		if e.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	default:
		return fmt.Errorf("RATE_LIMIT_BACKEND: unknown backend %q", e.RateLimitBackend)
	}

	switch e.CatalogSource {
	case "embedded":
	case "file":
		if e.CatalogPath == "" {
			missing = append(missing, "CATALOG_PATH")
		}
	case "r2":
		for k, v := range map[string]string{
			"R2_ENDPOINT":    e.R2.Endpoint,
			"R2_ACCESS_KEY":  e.R2.AccessKey,
			"R2_SECRET_KEY":  e.R2.SecretKey,
			"R2_BUCKET_NAME": e.R2.Bucket,
		} {
			if v == "" {
				missing = append(missing, k)
			}
		}
	default:
		return fmt.Errorf("CATALOG_SOURCE: unknown source %q", e.CatalogSource)
	}

	if len(missing) > 0 {
		return errors.New("missing env vars: " + strings.Join(missing, ", "))
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Package web holds the server-rendered pages and their assets.
package web

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"donodopedaco/internal/config"
	"donodopedaco/internal/whatsapp"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var weekdays = map[time.Weekday]string{
	time.Sunday:    "Domingo",
	time.Monday:    "Segunda-feira",
	time.Tuesday:   "Terça-feira",
	time.Wednesday: "Quarta-feira",
	time.Thursday:  "Quinta-feira",
	time.Friday:    "Sexta-feira",
	time.Saturday:  "Sábado",
}

// Funcs are the helpers available to every template.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"waLink": func(store config.Store) string {
			link, err := whatsapp.Link(store.WhatsApp.Host, store.WhatsApp.Number, store.WhatsApp.DefaultMessage)
			if err != nil {
				return "#"
			}
			return link
		},
		"weekday": func(d time.Weekday) string { return weekdays[d] },
		"phone": formatPhone,
	}
}

// Templates parses every page.
func Templates() (*template.Template, error) {
	return template.New("").Funcs(Funcs()).ParseFS(templateFS, "templates/*.html")
}

func Static() http.FileSystem {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}

// formatPhone shows 5516997783037 as (16) 99778-3037.
func formatPhone(number string) string {
	d := whatsapp.Digits(number)
	if len(d) == 13 && d[:2] == "55" {
		d = d[2:]
	}
	if len(d) != 11 {
		return number
	}
	return "(" + d[:2] + ") " + d[2:7] + "-" + d[7:]
}

// Package whatsapp builds the click-to-chat links the shop uses to receive orders.
package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/url"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

const DefaultHost = "wa.me"

var ErrInvalidNumber = errors.New("invalid whatsapp number")

var (
	strictOnce   sync.Once
	strictPolicy *bluemonday.Policy
)

// breaking are stripped from free text: they break the chat message or the URL.
const breaking = "<>{}[]\\"

// Sanitize drops markup and the characters that break the message encoding.
func Sanitize(text string) string {
	strictOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()
	})

	cleaned := html.UnescapeString(strictPolicy.Sanitize(text))
	cleaned = strings.Map(func(r rune) rune {
		if strings.ContainsRune(breaking, r) {
			return -1
		}
		return r
	}, cleaned)
	return strings.TrimSpace(cleaned)
}

// Encode percent-encodes text like encodeURIComponent: letters, digits and
// -_.!~*'() stay as they are, every other UTF-8 byte becomes %XX.
func Encode(text string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); i++ {
		c := text[i]
		if unreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}

// Link returns https://<host>/<number>?text=<encoded text>.
func Link(host, number, text string) (string, error) {
	digits := Digits(number)
	if digits == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidNumber, number)
	}
	if host == "" {
		host = DefaultHost
	}
	return "https://" + host + "/" + digits + "?text=" + Encode(text), nil
}

// Digits keeps only 0-9, so "+55 (16) 99778-3037" works as a number.
func Digits(number string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, number)
}

// Channel hands the composed link to the messaging application.
// No response comes back; a nil error means the hand-off was issued.
type Channel interface {
	Open(ctx context.Context, link string) error
}

// Func adapts a function to Channel.
type Func func(ctx context.Context, link string) error

func (f Func) Open(ctx context.Context, link string) error {
	return f(ctx, link)
}

// Redirect is the HTTP channel: it keeps the link so the handler can send the
// browser there once the order is confirmed.
type Redirect struct {
	Link  string
	Calls int
}

func (r *Redirect) Open(ctx context.Context, link string) error {
	u, err := url.Parse(link)
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("refusing to redirect to %q", link)
	}
	r.Link = link
	r.Calls++
	return nil
}

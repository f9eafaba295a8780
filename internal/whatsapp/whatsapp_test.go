package whatsapp

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"flores", "flores"},
		{"  bolo da Maria  ", "bolo da Maria"},
		{"rosas [vermelhas] {e} brancas", "rosas vermelhas e brancas"},
		{`barra \ invertida`, "barra  invertida"},
		{"<b>negrito</b>", "negrito"},
		{"<script>alert(1)</script>tema", "tema"},
		{"Maria & João's", "Maria & João's"},
		{"3 > 2", "3  2"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Sanitize(tt.in), tt.in)
	}
}

func TestEncode(t *testing.T) {
	assert.Equal(t, "Ol%C3%A1!%20Tudo%20bem%3F%0A", Encode("Olá! Tudo bem?\n"))
	assert.Equal(t, "a%2Bb%26c%3Dd", Encode("a+b&c=d"))
	assert.Equal(t, "-_.!~*'()", Encode("-_.!~*'()"), "left alone like encodeURIComponent")
	assert.Equal(t, "%2F%3A%40%23%24%2C%3B", Encode("/:@#$,;"))

	for _, in := range []string{"Decoração: flores & laço (rosa)", "Sabores: 10*2 ~ 50%"} {
		back, err := url.QueryUnescape(Encode(in))
		require.NoError(t, err)
		assert.Equal(t, in, back)
	}
}

func TestLink(t *testing.T) {
	link, err := Link("", "+55 (16) 99778-3037", "Olá! Quero um bolo")
	require.NoError(t, err)
	assert.Equal(t, "https://wa.me/5516997783037?text=Ol%C3%A1!%20Quero%20um%20bolo", link)

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "Olá! Quero um bolo", u.Query().Get("text"))
}

func TestLink_InvalidNumber(t *testing.T) {
	_, err := Link(DefaultHost, "whatsapp", "oi")
	assert.ErrorIs(t, err, ErrInvalidNumber)
}

func TestRedirect(t *testing.T) {
	r := &Redirect{}
	require.NoError(t, r.Open(context.Background(), "https://wa.me/55?text=oi"))
	assert.Equal(t, "https://wa.me/55?text=oi", r.Link)
	assert.Equal(t, 1, r.Calls)

	assert.Error(t, r.Open(context.Background(), "javascript:alert(1)"))
	assert.Equal(t, 1, r.Calls)
}

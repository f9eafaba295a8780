package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"donodopedaco/internal/catalog"
	"donodopedaco/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPagesRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tmpl, err := Templates()
	require.NoError(t, err)

	holder, err := catalog.NewHolder(context.Background(), catalog.EmbeddedSource{}, nil)
	require.NoError(t, err)

	pages := NewPages(config.DefaultStore(), holder)
	r := gin.New()
	r.SetHTMLTemplate(tmpl)
	r.StaticFS("/static", Static())
	r.GET("/", pages.Home)
	r.GET("/cardapio", pages.Menu)
	r.NoRoute(pages.NotFound)
	return r
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHome(t *testing.T) {
	w := get(newPagesRouter(t), "/")

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Panificadora Dono do Pedaço")
	assert.Contains(t, body, "Destaques do dia")
	assert.Contains(t, body, `href="/cardapio?categoria=paes"`)
	assert.Contains(t, body, "https://wa.me/5516997783037?text=Ol%C3%A1!%20Gostaria")
	assert.Contains(t, body, "Domingo: fechado")
}

func TestMenu(t *testing.T) {
	r := newPagesRouter(t)

	w := get(r, "/cardapio")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Torta de Limão")

	w = get(r, "/cardapio?categoria=bebidas")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Suco DaFruta")
	assert.NotContains(t, w.Body.String(), "Torta de Limão")

	w = get(r, "/cardapio?categoria=pizzas")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatic(t *testing.T) {
	r := newPagesRouter(t)

	assert.Equal(t, http.StatusOK, get(r, "/static/site.css").Code)
	assert.Equal(t, http.StatusOK, get(r, "/static/order.js").Code)
	assert.Equal(t, http.StatusNotFound, get(r, "/nada").Code)
}

func TestFormatPhone(t *testing.T) {
	assert.Equal(t, "(16) 99778-3037", formatPhone("5516997783037"))
	assert.Equal(t, "(16) 99778-3037", formatPhone("16997783037"))
	assert.Equal(t, "123", formatPhone("123"))
}

package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"donodopedaco/internal/config"
	"donodopedaco/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_CategoriesInOrder(t *testing.T) {
	c := Default()

	var slugs []string
	for _, cat := range c.Categories {
		slugs = append(slugs, cat.Slug)
	}
	assert.Equal(t, []string{"doces", "salgados", "paes", "frios", "bebidas", "outros"}, slugs)
	assert.Equal(t, 41, c.Count())
	assert.Len(t, c.Highlights, 2)

	paes, err := c.Category("paes")
	require.NoError(t, err)
	assert.Equal(t, "Pães", paes.Name)
	assert.Equal(t, "Pão Francês", paes.Products[0].Title)

	_, err = c.Category("pizzas")
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestParse_Rejects(t *testing.T) {
	_, err := Parse([]byte("categories: []"))
	assert.ErrorIs(t, err, ErrEmptyCatalog)

	_, err = Parse([]byte("categories:\n  - slug: a\n    name: A\n  - slug: a\n    name: B\n"))
	assert.ErrorContains(t, err, "duplicate")

	_, err = Parse([]byte("categories: [[["))
	assert.Error(t, err)
}

func TestParse_JSON(t *testing.T) {
	c, err := Parse([]byte(`{"categories":[{"slug":"doces","name":"Doces","products":[{"title":"Pudim","price":"R$ 8,00"}]}]}`))
	require.NoError(t, err)
	assert.Equal(t, "Pudim", c.Categories[0].Products[0].Title)
}

func TestValidateFileExtension(t *testing.T) {
	assert.NoError(t, ValidateFileExtension("menu.YAML"))
	assert.NoError(t, ValidateFileExtension("menu.json"))
	assert.Error(t, ValidateFileExtension("menu"))
	assert.Error(t, ValidateFileExtension("menu.pdf"))
}

type fakeBucket map[string][]byte

func (b fakeBucket) Get(_ context.Context, key string) ([]byte, error) {
	data, ok := b[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return data, nil
}

func TestObjectSource(t *testing.T) {
	bucket := fakeBucket{"menu.yaml": embedded}

	c, err := ObjectSource{Client: bucket, Key: "menu.yaml"}.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 41, c.Count())

	_, err = ObjectSource{Client: bucket, Key: "missing.yaml"}.Load(context.Background())
	assert.Error(t, err)
}

const smallCatalog = "categories:\n  - slug: doces\n    name: Doces\n    products:\n      - title: Pudim\n"

func TestHolder_WatchReloadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(smallCatalog), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h, err := NewHolder(ctx, FileSource{Path: path}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, h.Current().Count())
	require.NoError(t, h.Watch(ctx, path))

	updated := smallCatalog + "      - title: Bombocado\n"
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	assert.Eventually(t, func() bool {
		return h.Current().Count() == 2
	}, 2*time.Second, 20*time.Millisecond)

	// A broken file keeps the last good catalog.
	require.NoError(t, os.WriteFile(path, []byte("categories: []"), 0o644))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 2, h.Current().Count())
}

func TestHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, err := NewHolder(context.Background(), EmbeddedSource{}, nil)
	require.NoError(t, err)

	r := gin.New()
	handler := NewHandler(h)
	r.GET("/api/catalog", handler.List)
	r.GET("/api/catalog/:category", handler.Category)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/catalog/bebidas", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Coca-Cola 2L")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/catalog/pizzas", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/catalog", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"slug":"doces"`)
}

func TestOpenSource(t *testing.T) {
	ctx := context.Background()

	src, err := OpenSource(ctx, config.Env{CatalogSource: "embedded"})
	require.NoError(t, err)
	assert.Equal(t, "embedded", src.Name())

	src, err = OpenSource(ctx, config.Env{CatalogSource: "file", CatalogPath: "catalog.yaml"})
	require.NoError(t, err)
	assert.Equal(t, "file:catalog.yaml", src.Name())

	_, err = OpenSource(ctx, config.Env{CatalogSource: "r2"})
	assert.ErrorIs(t, err, storage.ErrMissingConfig)

	_, err = OpenSource(ctx, config.Env{CatalogSource: "ftp"})
	assert.Error(t, err)
}

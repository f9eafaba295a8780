package web

import (
	"net/http"

	"donodopedaco/internal/catalog"
	"donodopedaco/internal/config"

	"github.com/gin-gonic/gin"
)

type Pages struct {
	store  config.Store
	holder *catalog.Holder
}

func NewPages(store config.Store, holder *catalog.Holder) *Pages {
	return &Pages{store: store, holder: holder}
}

type homeView struct {
	Store   config.Store
	Catalog *catalog.Catalog
}

type menuView struct {
	Store    config.Store
	Catalog  *catalog.Catalog
	Selected catalog.Category
}

func (p *Pages) Home(c *gin.Context) {
	c.HTML(http.StatusOK, "home.html", homeView{
		Store:   p.store,
		Catalog: p.holder.Current(),
	})
}

// Menu shows one category at a time, the first by default.
func (p *Pages) Menu(c *gin.Context) {
	cat := p.holder.Current()
	v := menuView{Store: p.store, Catalog: cat, Selected: cat.Categories[0]}

	if slug := c.Query("categoria"); slug != "" {
		selected, err := cat.Category(slug)
		if err != nil {
			p.NotFound(c)
			return
		}
		v.Selected = selected
	}
	c.HTML(http.StatusOK, "menu.html", v)
}

func (p *Pages) NotFound(c *gin.Context) {
	c.HTML(http.StatusNotFound, "notfound.html", gin.H{"Store": p.store})
}

package router

import (
	"html/template"
	"net/http"
	"time"

	"donodopedaco/internal/catalog"
	"donodopedaco/internal/middleware"
	"donodopedaco/internal/order"
	"donodopedaco/internal/web"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Deps struct {
	Logger       *zap.Logger
	Templates    *template.Template
	Pages        *web.Pages
	Orders       *order.Handler
	Catalog      *catalog.Handler
	CORSOrigins  []string
	SecureCookie bool
	// TrustedProxies may set X-Forwarded-For; empty trusts no one.
	TrustedProxies []string
	// Throttle is optional; nil disables the per-IP cap.
	Throttle *middleware.Throttle
}

func NewRouter(d Deps) *gin.Engine {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	if err := r.SetTrustedProxies(d.TrustedProxies); err != nil {
		logger.Warn("invalid trusted proxies, trusting none", zap.Error(err))
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(
		gin.Recovery(),
		middleware.Logger(logger),
		middleware.ClientID(d.SecureCookie),
	)

	if len(d.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     d.CORSOrigins,
			AllowMethods:     []string{"GET", "POST"},
			AllowHeaders:     []string{"Origin", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.SetHTMLTemplate(d.Templates)
	r.StaticFS("/static", web.Static())

	// Health check route
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ───────────────────────── PAGES ─────────────────────────
	r.GET("/", d.Pages.Home)
	r.GET("/cardapio", d.Pages.Menu)

	encomendas := r.Group("/encomendas")
	throttle(encomendas, d.Throttle)
	{
		encomendas.GET("/:kind", d.Orders.FormPage)
		encomendas.POST("/:kind", d.Orders.SubmitPage)
		encomendas.POST("/confirmar", d.Orders.ConfirmPage)
	}

	// ───────────────────────── API ─────────────────────────
	api := r.Group("/api")
	throttle(api, d.Throttle)
	{
		api.GET("/store", d.Orders.Store)
		api.GET("/catalog", d.Catalog.List)
		api.GET("/catalog/:category", d.Catalog.Category)
		api.POST("/validate", d.Orders.Validate)
		api.GET("/rate-limit", d.Orders.RateLimit)

		orders := api.Group("/orders")
		{
			orders.POST("", d.Orders.Submit)
			orders.POST("/confirm", d.Orders.Confirm)
			orders.POST("/cancel", d.Orders.Cancel)
		}
	}

	r.NoRoute(d.Pages.NotFound)
	return r
}

func throttle(g *gin.RouterGroup, t *middleware.Throttle) {
	if t != nil {
		g.Use(t.Middleware())
	}
}

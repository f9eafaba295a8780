package order

import (
	"errors"
	"net/http"
	"time"

	"donodopedaco/internal/config"
	"donodopedaco/internal/flavor"
	"donodopedaco/internal/gate"
	"donodopedaco/internal/middleware"
	"donodopedaco/internal/ratelimit"
	"donodopedaco/internal/whatsapp"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}
}

// formView is what order.html renders.
type formView struct {
	Store     config.Store
	Kind      Kind
	Draft     Draft
	Errors    Errors
	Picker    *flavor.CakePicker
	Allocator *flavor.SnackAllocator
	Estimate  *Estimate
	RateLimit ratelimit.Status
	Notice    string
	MinDate   string
}

type confirmView struct {
	Store   config.Store
	Pending *Pending
}

func (h *Handler) view(c *gin.Context, f *Form) formView {
	store := h.service.Store()
	v := formView{
		Store:     store,
		Kind:      f.Kind(),
		Draft:     f.Draft(),
		Errors:    f.Errors(),
		Picker:    f.Picker(),
		Allocator: f.Allocator(),
		RateLimit: h.service.RateLimitStatus(c.Request.Context(), c.GetString(middleware.ClientIDKey)),
		MinDate:   h.service.now().In(store.Location()).Format(time.DateOnly),
	}
	if est, ok := f.Estimate(); ok {
		v.Estimate = &est
	}
	return v
}

func defaultLink(store config.Store) string {
	link, err := whatsapp.Link(store.WhatsApp.Host, store.WhatsApp.Number, store.WhatsApp.DefaultMessage)
	if err != nil {
		return ""
	}
	return link
}

// --------------------------------------------------
// Pages
// --------------------------------------------------

// FormPage renders a blank order form.
func (h *Handler) FormPage(c *gin.Context) {
	kind, err := ParseKind(c.Param("kind"))
	if err != nil {
		c.HTML(http.StatusNotFound, "notfound.html", gin.H{"Store": h.service.Store()})
		return
	}
	c.HTML(http.StatusOK, "order.html", h.view(c, h.service.NewForm(kind)))
}

// SubmitPage validates a posted form and shows the confirmation prompt.
func (h *Handler) SubmitPage(c *gin.Context) {
	kind, err := ParseKind(c.Param("kind"))
	if err != nil {
		c.HTML(http.StatusNotFound, "notfound.html", gin.H{"Store": h.service.Store()})
		return
	}

	req, err := bindForm(c)
	if err != nil {
		h.logger.Debug("order form not bound", zap.Error(err))
		v := h.view(c, h.service.NewForm(kind))
		v.Notice = "Não foi possível ler o formulário. Tente novamente"
		c.HTML(http.StatusBadRequest, "order.html", v)
		return
	}
	f, pending, err := h.service.Submit(c.Request.Context(), c.GetString(middleware.ClientIDKey), req.Draft(kind))
	if err != nil {
		h.formError(c, f, err)
		return
	}

	c.HTML(http.StatusOK, "confirm.html", confirmView{
		Store:   h.service.Store(),
		Pending: pending,
	})
}

// ConfirmPage handles the prompt buttons: confirm redirects to WhatsApp,
// cancel goes back to the filled form.
func (h *Handler) ConfirmPage(c *gin.Context) {
	ticket := c.PostForm("ticket")

	if c.PostForm("action") != "confirm" {
		f, err := h.service.Cancel(ticket)
		if err != nil {
			c.Redirect(http.StatusSeeOther, "/")
			return
		}
		c.HTML(http.StatusOK, "order.html", h.view(c, f))
		return
	}

	ch := &whatsapp.Redirect{}
	if _, err := h.service.Confirm(c.Request.Context(), c.GetString(middleware.ClientIDKey), ticket, ch); err != nil {
		f, _, rerr := h.service.restore(ticket)
		if rerr != nil {
			c.Redirect(http.StatusSeeOther, "/")
			return
		}
		_ = f.Submit()
		h.formError(c, f, err)
		return
	}

	c.Redirect(http.StatusSeeOther, ch.Link)
}

func (h *Handler) formError(c *gin.Context, f *Form, err error) {
	if f == nil {
		c.HTML(http.StatusNotFound, "notfound.html", gin.H{"Store": h.service.Store()})
		return
	}
	if f.State() == StateAwaitingConfirmation {
		_ = f.Cancel()
	}

	v := h.view(c, f)
	status := http.StatusUnprocessableEntity

	var limited *RateLimitedError
	switch {
	case errors.As(err, &limited):
		status = http.StatusTooManyRequests
		v.Notice = limited.Error()
		v.RateLimit = limited.Status
	case errors.Is(err, ErrInvalidDraft):
		v.Notice = "Confira os campos destacados"
	case errors.Is(err, ErrAlreadySubmitted):
		status = http.StatusConflict
		v.Notice = "Este pedido já foi enviado pelo WhatsApp"
	case errors.Is(err, ErrHandOff):
		status = http.StatusBadGateway
		v.Notice = "Não foi possível abrir o WhatsApp. Tente novamente"
	default:
		h.logger.Error("order form failed", zap.Error(err))
		status = http.StatusInternalServerError
		v.Notice = "Erro ao processar o pedido. Tente novamente"
	}
	c.HTML(status, "order.html", v)
}

func bindForm(c *gin.Context) (Request, error) {
	var req Request
	if err := c.ShouldBind(&req); err != nil {
		return Request{}, err
	}

	if raw := c.PostFormMap("allocation"); len(raw) > 0 {
		req.Allocation = make(map[string]int, len(raw))
		for name, q := range raw {
			req.Allocation[name] = flavor.NormalizeQuantity(q)
		}
	}
	return req, nil
}

// --------------------------------------------------
// JSON API
// --------------------------------------------------

func (h *Handler) Store(c *gin.Context) {
	store := h.service.Store()
	c.JSON(http.StatusOK, gin.H{
		"name":           store.Name,
		"timezone":       store.Timezone,
		"closed_weekday": store.ClosedWeekday.String(),
		"hours":          gin.H{"open": store.Hours.Open, "close": store.Hours.Close},
		"whatsapp_url":   defaultLink(store),
		"cake": gin.H{
			"min_weight":   store.Orders.Cake.MinWeight,
			"weight_step":  store.Orders.Cake.WeightStep,
			"max_flavors":  store.Orders.Cake.MaxFlavors,
			"doughs":       store.Orders.Cake.Doughs,
			"flavors":      store.Orders.Cake.Flavors,
			"price_per_kg": store.Orders.Cake.PricePerKg,
		},
		"snack": gin.H{
			"min_quantity":   store.Orders.Snack.MinQuantity,
			"frying_options": store.Orders.Snack.FryingOptions,
			"flavors":        store.Orders.Snack.Flavors,
			"price_per_unit": store.Orders.Snack.PricePerUnit,
		},
	})
}

// Validate runs the live check of one field.
func (h *Handler) Validate(c *gin.Context) {
	var req struct {
		Kind  string `json:"kind"`
		Field string `json:"field" binding:"required"`
		Value string `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	kind, err := ParseKind(req.Kind)
	if err != nil {
		kind = KindCake
	}
	msg, err := h.service.CheckField(kind, Field(req.Field), req.Value)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"field": req.Field,
		"valid": msg == "",
		"error": msg,
	})
}

func (h *Handler) Submit(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	kind, err := ParseKind(req.Kind)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	f, pending, err := h.service.Submit(c.Request.Context(), c.GetString(middleware.ClientIDKey), req.Draft(kind))
	if err != nil {
		h.apiError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"state":    f.State(),
		"ticket":   pending.Ticket,
		"prompt":   pending.Prompt,
		"message":  pending.Message,
		"estimate": pending.Estimate,
	})
}

func (h *Handler) Confirm(c *gin.Context) {
	var req struct {
		Ticket string `json:"ticket" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ticket is required"})
		return
	}

	res, err := h.service.Confirm(c.Request.Context(), c.GetString(middleware.ClientIDKey), req.Ticket, &whatsapp.Redirect{})
	if err != nil {
		h.apiError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"state":        StateSubmitted,
		"whatsapp_url": res.Link,
		"rate_limit":   res.Status,
	})
}

func (h *Handler) Cancel(c *gin.Context) {
	var req struct {
		Ticket string `json:"ticket" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ticket is required"})
		return
	}

	f, err := h.service.Cancel(req.Ticket)
	if err != nil {
		h.apiError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"state": f.State(),
		"draft": f.Draft(),
	})
}

func (h *Handler) RateLimit(c *gin.Context) {
	st := h.service.RateLimitStatus(c.Request.Context(), c.GetString(middleware.ClientIDKey))
	c.JSON(http.StatusOK, gin.H{
		"blocked":            st.Blocked,
		"remaining_attempts": st.Remaining,
		"minutes_remaining":  st.MinutesRemaining(),
	})
}

func (h *Handler) apiError(c *gin.Context, err error) {
	var (
		fields  Errors
		limited *RateLimitedError
	)
	switch {
	case errors.As(err, &fields):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "fields": fields})
	case errors.As(err, &limited):
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":             limited.Error(),
			"minutes_remaining": limited.Status.MinutesRemaining(),
		})
	case errors.Is(err, gate.ErrInvalidTicket):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrUnknownKind):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrAlreadySubmitted):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, ErrHandOff):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		h.logger.Error("order request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

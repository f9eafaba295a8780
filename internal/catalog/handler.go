package catalog

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	holder *Holder
}

func NewHandler(holder *Holder) *Handler {
	return &Handler{holder: holder}
}

// --------------------------------------------------
// Full catalog
// --------------------------------------------------
func (h *Handler) List(c *gin.Context) {
	c.JSON(http.StatusOK, h.holder.Current())
}

// --------------------------------------------------
// One category
// --------------------------------------------------
func (h *Handler) Category(c *gin.Context) {
	cat, err := h.holder.Current().Category(c.Param("category"))
	if errors.Is(err, ErrUnknownCategory) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, cat)
}

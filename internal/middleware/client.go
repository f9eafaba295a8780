package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	ClientCookie = "dp_client"
	ClientIDKey  = "clientID"

	clientCookieMaxAge = 365 * 24 * 60 * 60
)

// ClientID identifies the browser with a long-lived cookie, creating one on
// the first visit. Rate limits are kept per client id.
func ClientID(secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(ClientCookie)
		if err != nil || uuid.Validate(id) != nil {
			id = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(ClientCookie, id, clientCookieMaxAge, "/", "", secure, true)
		}

		c.Set(ClientIDKey, id)
		c.Next()
	}
}

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	sessionKey    = "session_id"
	sessionMaxAge = 365 * 24 * 60 * 60
)

// sessionMiddleware makes sure every API caller carries an anonymous
// session id, issuing a new one when the cookie is absent or malformed.
func sessionMiddleware(cookie string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(cookie)
		if err != nil || uuid.Validate(id) != nil {
			id = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(cookie, id, sessionMaxAge, "/", "", c.Request.TLS != nil, true)
		}
		c.Set(sessionKey, id)
		c.Next()
	}
}

func sessionID(c *gin.Context) string {
	return c.GetString(sessionKey)
}

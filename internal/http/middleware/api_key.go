package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v4"
)

const ctxKeyID = "api_key_id"

// KeyIDFromCtx returns the identifier of the authenticated key, set by APIKeyMiddleware.
func KeyIDFromCtx(c echo.Context) (string, bool) {
	id, ok := c.Get(ctxKeyID).(string)
	return id, ok && id != ""
}

// KeyID is a short, non-reversible identifier for a key, safe to log and to
// use in Redis keys.
func KeyID(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:6])
}

// APIKeyMiddleware authenticates requests using the X-API-Key header against a
// static key list. An empty list disables the check (development).
func APIKeyMiddleware(keys []string) echo.MiddlewareFunc {
	allowed := make([][]byte, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			allowed = append(allowed, []byte(k))
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if len(allowed) == 0 {
				c.Set(ctxKeyID, "anonymous")
				return next(c)
			}

			key := strings.TrimSpace(c.Request().Header.Get("X-API-Key"))
			if key == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing api key"})
			}

			match := 0
			for _, a := range allowed {
				match |= subtle.ConstantTimeCompare(a, []byte(key))
			}
			if match != 1 {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid api key"})
			}

			c.Set(ctxKeyID, KeyID(key))
			return next(c)
		}
	}
}

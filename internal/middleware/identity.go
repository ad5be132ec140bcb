package middleware

import "github.com/labstack/echo/v4"

// SessionKey is the echo context key holding the authenticated session ID.
const SessionKey = "session_id"

// SessionID returns the authenticated session, or "" outside JWTAuth.
func SessionID(c echo.Context) string {
	if s, ok := c.Get(SessionKey).(string); ok {
		return s
	}
	return ""
}

func sessionOrAnon(c echo.Context) string {
	if s := SessionID(c); s != "" {
		return s
	}
	return "anon"
}

package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type contextKey string

// UserIDKey carries the authenticated user's id on the request context.
const UserIDKey contextKey = "user_id"

// SessionIDKey carries the current session id on the request context so
// logout can revoke the exact session that authenticated the request.
const SessionIDKey contextKey = "session_id"

// SessionCookieName is the cookie that carries the signed session token.
const SessionCookieName = "medvault_session"

// Middleware resolves the session cookie on every request: it verifies the
// token signature, loads the session row, and rejects expired or revoked
// sessions. On success the user id is placed on the request context.
type Middleware struct {
	secret   []byte
	sessions SessionStore
	secure   bool
}

// NewMiddleware creates the session-cookie middleware. secure controls the
// Secure flag on issued cookies and should be true outside development.
func NewMiddleware(secret []byte, sessions SessionStore, secure bool) *Middleware {
	return &Middleware{secret: secret, sessions: sessions, secure: secure}
}

// Require returns an echo middleware that rejects requests without a valid
// session with 401.
func (m *Middleware) Require() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}

			sessionID, err := ParseSessionToken(m.secret, cookie.Value)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid session")
			}

			sess, err := m.sessions.Get(c.Request().Context(), sessionID)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid session")
			}
			if sess.Expired() {
				return echo.NewHTTPError(http.StatusUnauthorized, "session expired")
			}

			ctx := c.Request().Context()
			ctx = context.WithValue(ctx, UserIDKey, sess.UserID)
			ctx = context.WithValue(ctx, SessionIDKey, sess.ID)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// SetSessionCookie issues the signed session cookie on the response.
func (m *Middleware) SetSessionCookie(c echo.Context, sess *Session) error {
	token, err := SignSessionToken(m.secret, sess.ID, sess.ExpiresAt)
	if err != nil {
		return err
	}
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// ClearSessionCookie expires the session cookie on the response.
func (m *Middleware) ClearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// UserIDFromContext returns the authenticated user's id, or uuid.Nil when
// the request was not authenticated.
func UserIDFromContext(ctx context.Context) uuid.UUID {
	uid, _ := ctx.Value(UserIDKey).(uuid.UUID)
	return uid
}

// SessionIDFromContext returns the current session id, or uuid.Nil.
func SessionIDFromContext(ctx context.Context) uuid.UUID {
	sid, _ := ctx.Value(SessionIDKey).(uuid.UUID)
	return sid
}

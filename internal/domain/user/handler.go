package user

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medvault/medvault/internal/platform/auth"
)

// Handler provides HTTP handlers for registration, login, and profile.
type Handler struct {
	svc      *Service
	sessions *auth.Middleware
}

// NewHandler creates a new user handler.
func NewHandler(svc *Service, sessions *auth.Middleware) *Handler {
	return &Handler{svc: svc, sessions: sessions}
}

// RegisterRoutes registers public auth routes and authenticated profile routes.
func (h *Handler) RegisterRoutes(public, me *echo.Group) {
	public.POST("/register", h.Register)
	public.POST("/login", h.Login)

	me.POST("/logout", h.Logout)
	me.GET("/me", h.GetProfile)
	me.PATCH("/me", h.UpdateProfile)
	me.POST("/me/password", h.ChangePassword)
	me.DELETE("/me", h.DeleteAccount)
}

func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	u, err := h.svc.Register(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return echo.NewHTTPError(http.StatusConflict, "email already registered")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, u.ToProfile())
}

func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	u, sess, err := h.svc.Login(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid email or password")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "login failed")
	}
	if err := h.sessions.SetSessionCookie(c, sess); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "login failed")
	}
	return c.JSON(http.StatusOK, u.ToProfile())
}

func (h *Handler) Logout(c echo.Context) error {
	sessionID := auth.SessionIDFromContext(c.Request().Context())
	if err := h.svc.Logout(c.Request().Context(), sessionID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "logout failed")
	}
	h.sessions.ClearSessionCookie(c)
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) GetProfile(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	u, err := h.svc.Get(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	}
	return c.JSON(http.StatusOK, u.ToProfile())
}

func (h *Handler) UpdateProfile(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	u, err := h.svc.UpdateProfile(c.Request().Context(), userID, req)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return echo.NewHTTPError(http.StatusConflict, "email already registered")
		}
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, u.ToProfile())
}

func (h *Handler) ChangePassword(c echo.Context) error {
	ctx := c.Request().Context()
	userID := auth.UserIDFromContext(ctx)
	var req PasswordChangeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.ChangePassword(ctx, userID, req); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusForbidden, "current password is incorrect")
		}
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	// Changing the password revoked every session, including this one.
	h.sessions.ClearSessionCookie(c)
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) DeleteAccount(c echo.Context) error {
	ctx := c.Request().Context()
	userID := auth.UserIDFromContext(ctx)
	if err := h.svc.DeleteAccount(ctx, userID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "account deletion failed")
	}
	h.sessions.ClearSessionCookie(c)
	return c.NoContent(http.StatusNoContent)
}

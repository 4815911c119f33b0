package share

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medvault/medvault/internal/domain/upload"
	"github.com/medvault/medvault/internal/platform/auth"
	"github.com/medvault/medvault/internal/platform/filestore"
)

// Handler provides HTTP handlers for share links. Owner routes sit behind
// the session; viewer routes authenticate with the code and PIN alone.
type Handler struct {
	svc *Service
}

// NewHandler creates a new share handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers owner routes on the authenticated group and
// viewer routes on the public, rate-limited group.
func (h *Handler) RegisterRoutes(me, shared *echo.Group) {
	me.POST("/shares", h.Create)
	me.GET("/shares", h.List)
	me.DELETE("/shares/:id", h.Revoke)

	shared.GET("/:code", h.Check)
	shared.POST("/:code", h.Verify)
	shared.GET("/:code/files/:recordID/metadata", h.FileMetadata)
	shared.GET("/:code/files/:recordID", h.FileDownload)
}

func (h *Handler) Create(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	resp, err := h.svc.Create(c.Request().Context(), userID, req)
	if err != nil {
		if errors.Is(err, ErrInvalidRequest) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "could not create share link")
	}
	return c.JSON(http.StatusCreated, resp)
}

func (h *Handler) List(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	items, err := h.svc.ListMine(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not list share links")
	}
	if items == nil {
		items = []Summary{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Revoke(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	userID := auth.UserIDFromContext(c.Request().Context())
	if err := h.svc.Revoke(c.Request().Context(), id, userID); err != nil {
		return mapError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Check answers whether a code is worth prompting a PIN for, without
// touching the payload.
func (h *Handler) Check(c echo.Context) error {
	if err := h.svc.Check(c.Request().Context(), c.Param("code")); err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"valid": true})
}

func (h *Handler) Verify(c echo.Context) error {
	var req VerifyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	payload, err := h.svc.Verify(c.Request().Context(), c.Param("code"), req.PIN)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, payload)
}

// viewerPIN extracts the PIN from the Authorization header on shared file
// requests, where a request body is not an option.
func viewerPIN(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	return strings.TrimPrefix(header, "Bearer ")
}

func (h *Handler) FileMetadata(c echo.Context) error {
	recordID, err := uuid.Parse(c.Param("recordID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid record id")
	}
	meta, err := h.svc.SharedFileMetadata(c.Request().Context(), c.Param("code"), viewerPIN(c), recordID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, meta)
}

func (h *Handler) FileDownload(c echo.Context) error {
	recordID, err := uuid.Parse(c.Param("recordID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid record id")
	}
	rc, f, err := h.svc.OpenSharedFile(c.Request().Context(), c.Param("code"), viewerPIN(c), recordID)
	if err != nil {
		return mapError(err)
	}
	defer rc.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", f.Name))
	return c.Stream(http.StatusOK, f.FileType, rc)
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, upload.ErrNotFound), errors.Is(err, filestore.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "share link not found")
	case errors.Is(err, ErrExpired):
		return echo.NewHTTPError(http.StatusGone, "share link has expired")
	case errors.Is(err, ErrInvalidPIN), errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "access denied")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "operation failed")
	}
}

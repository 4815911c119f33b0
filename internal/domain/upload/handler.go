package upload

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medvault/medvault/internal/platform/auth"
	"github.com/medvault/medvault/internal/platform/filestore"
)

// Handler provides HTTP handlers for record attachments.
type Handler struct {
	svc *Service
}

// NewHandler creates a new attachment handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers attachment routes on the authenticated group.
func (h *Handler) RegisterRoutes(me *echo.Group) {
	me.POST("/files/:category/:recordID", h.Upload)
	me.GET("/files/:category/:recordID", h.Download)
	me.GET("/files/:category/:recordID/metadata", h.Metadata)
	me.DELETE("/files/:category/:recordID", h.Delete)
}

func params(c echo.Context) (Category, uuid.UUID, error) {
	recordID, err := uuid.Parse(c.Param("recordID"))
	if err != nil {
		return "", uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid record id")
	}
	return Category(c.Param("category")), recordID, nil
}

func (h *Handler) Upload(c echo.Context) error {
	category, recordID, err := params(c)
	if err != nil {
		return err
	}
	userID := auth.UserIDFromContext(c.Request().Context())

	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file field is required")
	}
	src, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "could not read upload")
	}
	defer src.Close()

	f, err := h.svc.Upload(c.Request().Context(), category, recordID, userID,
		fh.Filename, fh.Header.Get("Content-Type"), src)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, f.ToMetadata())
}

func (h *Handler) Download(c echo.Context) error {
	category, recordID, err := params(c)
	if err != nil {
		return err
	}
	userID := auth.UserIDFromContext(c.Request().Context())

	rc, f, err := h.svc.Open(c.Request().Context(), category, recordID, userID)
	if err != nil {
		return mapError(err)
	}
	defer rc.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", f.Name))
	return c.Stream(http.StatusOK, f.FileType, rc)
}

func (h *Handler) Metadata(c echo.Context) error {
	category, recordID, err := params(c)
	if err != nil {
		return err
	}
	userID := auth.UserIDFromContext(c.Request().Context())

	meta, err := h.svc.Metadata(c.Request().Context(), category, recordID, userID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, meta)
}

func (h *Handler) Delete(c echo.Context) error {
	category, recordID, err := params(c)
	if err != nil {
		return err
	}
	userID := auth.UserIDFromContext(c.Request().Context())

	if err := h.svc.Delete(c.Request().Context(), category, recordID, userID); err != nil {
		return mapError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrUnknownCategory):
		return echo.NewHTTPError(http.StatusBadRequest, "unknown attachment category")
	case errors.Is(err, ErrNotFound), errors.Is(err, filestore.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "attachment not found")
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "access denied")
	case errors.Is(err, filestore.ErrUnsupportedType):
		return echo.NewHTTPError(http.StatusUnsupportedMediaType, "file type is not allowed")
	case errors.Is(err, filestore.ErrTooLarge):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file exceeds maximum allowed size")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "operation failed")
	}
}

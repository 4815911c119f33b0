package labs

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medvault/medvault/internal/domain/upload"
	"github.com/medvault/medvault/internal/platform/auth"
	"github.com/medvault/medvault/internal/platform/filestore"
	"github.com/medvault/medvault/pkg/pagination"
)

// Handler provides HTTP handlers for the labs domain.
type Handler struct {
	svc *Service
}

// NewHandler creates a new labs handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers lab routes on the authenticated group.
func (h *Handler) RegisterRoutes(me *echo.Group) {
	me.GET("/labresults", h.List)
	me.POST("/labresults", h.Create)
	me.GET("/labresults/:id", h.Get)
	me.PATCH("/labresults/:id", h.Update)
	me.DELETE("/labresults/:id", h.Delete)

	me.GET("/labtests", h.Grouped)
	me.POST("/labtests/extract/:medhistoryID", h.Extract)
}

func (h *Handler) Create(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	lr, err := h.svc.Create(c.Request().Context(), userID, req)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, lr.ToResponse())
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	userID := auth.UserIDFromContext(c.Request().Context())
	lr, err := h.svc.Owned(c.Request().Context(), id, userID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, lr.ToResponse())
}

func (h *Handler) List(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), userID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not list results")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	userID := auth.UserIDFromContext(c.Request().Context())
	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	lr, err := h.svc.Update(c.Request().Context(), id, userID, req)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrForbidden) {
			return mapError(err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, lr.ToResponse())
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	userID := auth.UserIDFromContext(c.Request().Context())
	if err := h.svc.Delete(c.Request().Context(), id, userID); err != nil {
		return mapError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Grouped(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	groups, err := h.svc.Grouped(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not list tests")
	}
	return c.JSON(http.StatusOK, groups)
}

func (h *Handler) Extract(c echo.Context) error {
	id, err := uuid.Parse(c.Param("medhistoryID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	userID := auth.UserIDFromContext(c.Request().Context())
	results, err := h.svc.ExtractFromConsultation(c.Request().Context(), id, userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrExtractorDisabled):
			return echo.NewHTTPError(http.StatusServiceUnavailable, "result extraction is not available")
		case errors.Is(err, upload.ErrNotFound), errors.Is(err, filestore.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "no report attached to this consultation")
		case errors.Is(err, upload.ErrForbidden):
			return echo.NewHTTPError(http.StatusForbidden, "access denied")
		default:
			return mapError(err)
		}
	}
	if results == nil {
		results = []ExtractedResult{}
	}
	return c.JSON(http.StatusOK, results)
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "lab result not found")
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "access denied")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "operation failed")
	}
}

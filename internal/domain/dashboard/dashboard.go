// Package dashboard aggregates the newest records of every domain into a
// single landing-page payload.
package dashboard

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medvault/medvault/internal/domain/allergy"
	"github.com/medvault/medvault/internal/domain/labs"
	"github.com/medvault/medvault/internal/domain/medhistory"
	"github.com/medvault/medvault/internal/domain/medication"
	"github.com/medvault/medvault/internal/domain/user"
	"github.com/medvault/medvault/internal/domain/vaccine"
	"github.com/medvault/medvault/internal/domain/vitals"
	"github.com/medvault/medvault/internal/platform/auth"
)

// newestPerCategory is how many of each record kind the landing page shows.
const newestPerCategory = 5

type UserSource interface {
	Get(ctx context.Context, id uuid.UUID) (*user.User, error)
}

type VaccineSource interface {
	Newest(ctx context.Context, userID uuid.UUID, n int) ([]vaccine.Response, error)
}

type AllergySource interface {
	Newest(ctx context.Context, userID uuid.UUID, n int) ([]allergy.Response, error)
}

type MedicationSource interface {
	Newest(ctx context.Context, userID uuid.UUID, n int) ([]medication.Response, error)
}

type VitalsSource interface {
	Newest(ctx context.Context, userID uuid.UUID, n int) ([]vitals.Response, error)
}

type HistorySource interface {
	Newest(ctx context.Context, userID uuid.UUID, n int) ([]medhistory.Response, error)
}

type LabSource interface {
	Newest(ctx context.Context, userID uuid.UUID, n int) ([]labs.Response, error)
}

// Sources are the per-domain readers the dashboard pulls from.
type Sources struct {
	Users          UserSource
	Vaccines       VaccineSource
	Allergies      AllergySource
	Medications    MedicationSource
	Vitals         VitalsSource
	MedicalHistory HistorySource
	Labs           LabSource
}

// Response is the landing-page payload.
type Response struct {
	Name           string                `json:"name"`
	Vaccines       []vaccine.Response    `json:"vaccines"`
	Allergies      []allergy.Response    `json:"allergies"`
	Medications    []medication.Response `json:"medications"`
	Vitals         []vitals.Response     `json:"vitals"`
	MedicalHistory []medhistory.Response `json:"medicalhistory"`
	LabResults     []labs.Response       `json:"labresults"`
}

// Service collects the dashboard payload.
type Service struct {
	src Sources
}

// NewService creates a new dashboard service.
func NewService(src Sources) *Service {
	return &Service{src: src}
}

// Get assembles the newest records of every category for the user.
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*Response, error) {
	owner, err := s.src.Users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := &Response{Name: owner.Name}

	if resp.Vaccines, err = s.src.Vaccines.Newest(ctx, userID, newestPerCategory); err != nil {
		return nil, err
	}
	if resp.Allergies, err = s.src.Allergies.Newest(ctx, userID, newestPerCategory); err != nil {
		return nil, err
	}
	if resp.Medications, err = s.src.Medications.Newest(ctx, userID, newestPerCategory); err != nil {
		return nil, err
	}
	if resp.Vitals, err = s.src.Vitals.Newest(ctx, userID, newestPerCategory); err != nil {
		return nil, err
	}
	if resp.MedicalHistory, err = s.src.MedicalHistory.Newest(ctx, userID, newestPerCategory); err != nil {
		return nil, err
	}
	if resp.LabResults, err = s.src.Labs.Newest(ctx, userID, newestPerCategory); err != nil {
		return nil, err
	}
	return resp, nil
}

// Handler serves the dashboard endpoint.
type Handler struct {
	svc *Service
}

// NewHandler creates a new dashboard handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers the dashboard route on the authenticated group.
func (h *Handler) RegisterRoutes(me *echo.Group) {
	me.GET("/dashboard", h.Get)
}

func (h *Handler) Get(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	resp, err := h.svc.Get(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not load dashboard")
	}
	return c.JSON(http.StatusOK, resp)
}

package handler

import (
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"

	"github.com/civicworks/facility-reservation/internal/booking"
	"github.com/civicworks/facility-reservation/internal/model"
	"github.com/civicworks/facility-reservation/internal/repository"
	"github.com/civicworks/facility-reservation/internal/timeslot"
)

// FacilityHandler serves the public facility catalogue and the
// availability preview built on the conflict detector.
type FacilityHandler struct {
	Facilities *repository.FacilityRepo
	Detector   *booking.Detector
}

func NewFacilityHandler(f *repository.FacilityRepo, d *booking.Detector) *FacilityHandler {
	return &FacilityHandler{Facilities: f, Detector: d}
}

type facilityResp struct {
	ID                  uint64  `json:"id"`
	Name                string  `json:"name"`
	Description         *string `json:"description,omitempty"`
	Location            *string `json:"location,omitempty"`
	Capacity            *uint32 `json:"capacity,omitempty"`
	Status              string  `json:"status"`
	AutoApprovalEnabled bool    `json:"auto_approval_enabled"`
	OpenTime            string  `json:"open_time"`
	CloseTime           string  `json:"close_time"`
}

func toFacilityResp(f model.Facility) facilityResp {
	return facilityResp{
		ID:                  f.ID,
		Name:                f.Name,
		Description:         f.Description,
		Location:            f.Location,
		Capacity:            f.Capacity,
		Status:              f.Status,
		AutoApprovalEnabled: f.AutoApprovalEnabled,
		OpenTime:            timeslot.FormatMinute(f.OpenMinute),
		CloseTime:           timeslot.FormatMinute(f.CloseMinute),
	}
}

// List returns every facility in the catalogue.
func (h *FacilityHandler) List(c echo.Context) error {
	facs, err := h.Facilities.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]facilityResp, 0, len(facs))
	for _, f := range facs {
		out = append(out, toFacilityResp(f))
	}
	return c.JSON(http.StatusOK, echo.Map{"facilities": out})
}

// Get returns one facility.
func (h *FacilityHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid facility id"})
	}
	f, err := h.Facilities.GetByID(c.Request().Context(), id)
	if err != nil {
		if err == booking.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "facility not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toFacilityResp(f))
}

type slotResp struct {
	Slot      string `json:"slot"`
	Available bool   `json:"available"`
}

// Availability returns the facility's operating-day slots for one date
// with their availability. The response sits behind the short-TTL
// Redis cache; it is a preview, and submission re-checks conflicts
// authoritatively.
func (h *FacilityHandler) Availability(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid facility id"})
	}
	date, err := parseDate(c.QueryParam("date"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
	}

	slots, err := h.Detector.DaySlots(c.Request().Context(), id, date)
	if err != nil {
		return writeBookingError(c, err)
	}

	out := make([]slotResp, 0, len(slots))
	for slot, free := range slots {
		out = append(out, slotResp{Slot: slot, Available: free})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot < out[j].Slot })

	return c.JSON(http.StatusOK, echo.Map{
		"facility_id": id,
		"date":        date.Format("2006-01-02"),
		"slots":       out,
	})
}

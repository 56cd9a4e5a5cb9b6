package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/civicworks/facility-reservation/internal/booking"
	"github.com/civicworks/facility-reservation/internal/middleware"
	"github.com/civicworks/facility-reservation/internal/repository"
)

// ReservationHandler serves the resident-facing reservation endpoints.
type ReservationHandler struct {
	Svc   *booking.Service
	Store *repository.ReservationStore
	Notes *repository.NotificationRepo
}

func NewReservationHandler(svc *booking.Service, store *repository.ReservationStore, notes *repository.NotificationRepo) *ReservationHandler {
	return &ReservationHandler{Svc: svc, Store: store, Notes: notes}
}

func actorFrom(c echo.Context) (booking.Actor, bool) {
	uid, ok := middleware.CurrentUserID(c)
	if !ok {
		return booking.Actor{}, false
	}
	return booking.Actor{UserID: uid, Role: middleware.CurrentRole(c)}, true
}

type submitReq struct {
	FacilityID        uint64 `json:"facility_id"`
	Date              string `json:"date"`
	TimeSlot          string `json:"time_slot"`
	Purpose           string `json:"purpose"`
	ExpectedAttendees uint32 `json:"expected_attendees"`
}

// Submit creates a reservation request. The response carries the
// resulting status: PENDING for manual review, APPROVED when
// auto-approval applied.
func (h *ReservationHandler) Submit(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req submitReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.FacilityID == 0 || req.Purpose == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "facility_id and purpose required"})
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
	}

	res, err := h.Svc.Submit(c.Request().Context(), actor, booking.SubmitInput{
		FacilityID:        req.FacilityID,
		Date:              date,
		Slot:              req.TimeSlot,
		Purpose:           req.Purpose,
		ExpectedAttendees: req.ExpectedAttendees,
	})
	if err != nil {
		return writeBookingError(c, err)
	}
	return c.JSON(http.StatusCreated, toReservationResp(res))
}

// ListMine returns the caller's reservations, newest first.
func (h *ReservationHandler) ListMine(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	rs, err := h.Store.ListByUser(c.Request().Context(), actor.UserID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": toReservationResps(rs)})
}

// Get returns one reservation. Residents may only read their own;
// staff and admins may read any.
func (h *ReservationHandler) Get(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	r, err := h.Store.ReservationByID(c.Request().Context(), id)
	if err != nil {
		return writeBookingError(c, err)
	}
	if r.UserID != actor.UserID && !actor.Staff() {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	return c.JSON(http.StatusOK, toReservationResp(r))
}

// Cancel cancels the caller's reservation.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	res, err := h.Svc.Cancel(c.Request().Context(), actor, id)
	if err != nil {
		return writeBookingError(c, err)
	}
	return c.JSON(http.StatusOK, toReservationResp(res))
}

type rescheduleReq struct {
	Date     string `json:"date"`
	TimeSlot string `json:"time_slot"`
}

// Reschedule moves the caller's reservation to a new date and slot.
// An approved reservation reverts to pending for re-approval.
func (h *ReservationHandler) Reschedule(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	var req rescheduleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
	}

	res, err := h.Svc.Reschedule(c.Request().Context(), actor, id, booking.RescheduleInput{
		Date: date,
		Slot: req.TimeSlot,
	})
	if err != nil {
		return writeBookingError(c, err)
	}
	return c.JSON(http.StatusOK, toReservationResp(res))
}

type notificationResp struct {
	ID        uint64  `json:"id"`
	Type      string  `json:"type"`
	Title     string  `json:"title"`
	Message   string  `json:"message"`
	Link      *string `json:"link,omitempty"`
	Read      bool    `json:"read"`
	CreatedAt string  `json:"created_at"`
}

// Notifications returns the caller's latest notifications.
func (h *ReservationHandler) Notifications(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ns, err := h.Notes.ListByUser(c.Request().Context(), actor.UserID, 50)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]notificationResp, 0, len(ns))
	for _, n := range ns {
		out = append(out, notificationResp{
			ID:        n.ID,
			Type:      n.Type,
			Title:     n.Title,
			Message:   n.Message,
			Link:      n.Link,
			Read:      n.ReadAt != nil,
			CreatedAt: n.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"notifications": out})
}

// MarkNotificationRead marks one of the caller's notifications read.
func (h *ReservationHandler) MarkNotificationRead(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid notification id"})
	}
	if err := h.Notes.MarkRead(c.Request().Context(), id, actor.UserID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/civicworks/facility-reservation/internal/booking"
	"github.com/civicworks/facility-reservation/internal/model"
	"github.com/civicworks/facility-reservation/internal/repository"
)

// StaffReservationHandler serves the staff review queue: list by
// status, approve, deny, cancel, complete and the per-reservation
// history trail.
type StaffReservationHandler struct {
	Svc   *booking.Service
	Store *repository.ReservationStore
}

func NewStaffReservationHandler(svc *booking.Service, store *repository.ReservationStore) *StaffReservationHandler {
	return &StaffReservationHandler{Svc: svc, Store: store}
}

var listableStatuses = map[model.ReservationStatus]bool{
	model.StatusPending:   true,
	model.StatusApproved:  true,
	model.StatusDenied:    true,
	model.StatusCancelled: true,
	model.StatusCompleted: true,
}

// List returns reservations in the given status, oldest first, so the
// queue surfaces the longest-waiting requests on top.
func (h *StaffReservationHandler) List(c echo.Context) error {
	status := model.ReservationStatus(strings.ToUpper(c.QueryParam("status")))
	if status == "" {
		status = model.StatusPending
	}
	if !listableStatuses[status] {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status"})
	}
	rs, err := h.Store.ListByStatus(c.Request().Context(), status, 200)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":       string(status),
		"reservations": toReservationResps(rs),
	})
}

// Approve moves a pending reservation to approved.
func (h *StaffReservationHandler) Approve(c echo.Context) error {
	return h.decide(c, func(actor booking.Actor, id uint64) (model.Reservation, error) {
		return h.Svc.Approve(c.Request().Context(), actor, id)
	})
}

type denyReq struct {
	Reason string `json:"reason"`
}

// Deny moves a pending reservation to denied with a reason.
func (h *StaffReservationHandler) Deny(c echo.Context) error {
	var req denyReq
	_ = c.Bind(&req)
	if strings.TrimSpace(req.Reason) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reason required"})
	}
	return h.decide(c, func(actor booking.Actor, id uint64) (model.Reservation, error) {
		return h.Svc.Deny(c.Request().Context(), actor, id, req.Reason)
	})
}

// Cancel cancels a reservation on the resident's behalf.
func (h *StaffReservationHandler) Cancel(c echo.Context) error {
	return h.decide(c, func(actor booking.Actor, id uint64) (model.Reservation, error) {
		return h.Svc.Cancel(c.Request().Context(), actor, id)
	})
}

// Complete marks an approved reservation completed after its slot has
// elapsed.
func (h *StaffReservationHandler) Complete(c echo.Context) error {
	return h.decide(c, func(actor booking.Actor, id uint64) (model.Reservation, error) {
		return h.Svc.Complete(c.Request().Context(), actor, id)
	})
}

type historyResp struct {
	Status    string  `json:"status"`
	Note      string  `json:"note"`
	ActorID   *uint64 `json:"actor_id,omitempty"`
	CreatedAt string  `json:"created_at"`
}

// History returns the reservation's append-only status trail.
func (h *StaffReservationHandler) History(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	if _, err := h.Store.ReservationByID(c.Request().Context(), id); err != nil {
		return writeBookingError(c, err)
	}
	hs, err := h.Store.HistoryFor(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]historyResp, 0, len(hs))
	for _, e := range hs {
		out = append(out, historyResp{
			Status:    string(e.Status),
			Note:      e.Note,
			ActorID:   e.ActorID,
			CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"reservation_id": id, "history": out})
}

func (h *StaffReservationHandler) decide(c echo.Context, op func(booking.Actor, uint64) (model.Reservation, error)) error {
	actor, ok := actorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	res, err := op(actor, id)
	if err != nil {
		return writeBookingError(c, err)
	}
	return c.JSON(http.StatusOK, toReservationResp(res))
}

// Package handler contains the HTTP handlers for the reservation
// portal. Handlers translate between the JSON API and the booking
// engine; business rules live in internal/booking.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/civicworks/facility-reservation/internal/booking"
	"github.com/civicworks/facility-reservation/internal/model"
	"github.com/civicworks/facility-reservation/internal/timeslot"
)

// reservationResp is the wire form of a reservation.
type reservationResp struct {
	ID                uint64 `json:"id"`
	Reference         string `json:"reference"`
	FacilityID        uint64 `json:"facility_id"`
	UserID            uint64 `json:"user_id"`
	Date              string `json:"date"`
	TimeSlot          string `json:"time_slot"`
	Purpose           string `json:"purpose"`
	ExpectedAttendees uint32 `json:"expected_attendees"`
	Status            string `json:"status"`
	RescheduleCount   uint8  `json:"reschedule_count"`
	CreatedAt         string `json:"created_at"`
	UpdatedAt         string `json:"updated_at"`
}

func toReservationResp(r model.Reservation) reservationResp {
	return reservationResp{
		ID:                r.ID,
		Reference:         r.Reference,
		FacilityID:        r.FacilityID,
		UserID:            r.UserID,
		Date:              r.ReservationDate.Format("2006-01-02"),
		TimeSlot:          r.TimeSlot,
		Purpose:           r.Purpose,
		ExpectedAttendees: r.ExpectedAttendees,
		Status:            string(r.Status),
		RescheduleCount:   r.RescheduleCount,
		CreatedAt:         r.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:         r.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toReservationResps(rs []model.Reservation) []reservationResp {
	out := make([]reservationResp, 0, len(rs))
	for _, r := range rs {
		out = append(out, toReservationResp(r))
	}
	return out
}

// rejectionStatus maps a rejection code to its HTTP status. Conflicts
// and transition refusals are 409, policy refusals 422, ownership 403.
func rejectionStatus(code booking.RejectionCode) int {
	switch code {
	case booking.CodeInvalidTimeSlot:
		return http.StatusBadRequest
	case booking.CodeFacilityUnavailable, booking.CodeOverlap, booking.CodeInvalidTransition:
		return http.StatusConflict
	case booking.CodeUnauthorized:
		return http.StatusForbidden
	default:
		return http.StatusUnprocessableEntity
	}
}

// writeBookingError renders engine errors: structured rejections keep
// their code, message and any alternative slots; ErrNotFound becomes a
// 404; everything else is a 500 with no internals leaked.
func writeBookingError(c echo.Context, err error) error {
	if rej, ok := booking.AsRejection(err); ok {
		body := echo.Map{
			"error":   string(rej.Code),
			"message": rej.Message,
		}
		if rej.ConflictingReservationID != 0 {
			body["conflicting_reservation_id"] = rej.ConflictingReservationID
		}
		if len(rej.Alternatives) > 0 {
			alts := make([]string, 0, len(rej.Alternatives))
			for _, a := range rej.Alternatives {
				alts = append(alts, a.String())
			}
			body["alternatives"] = alts
		}
		return c.JSON(rejectionStatus(rej.Code), body)
	}
	if errors.Is(err, booking.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}
	c.Logger().Errorf("booking: %v", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// pathID parses the :id route parameter.
func pathID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}

// parseDate parses a YYYY-MM-DD parameter into a midnight-UTC date.
func parseDate(s string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, err
	}
	return timeslot.DateOf(d), nil
}

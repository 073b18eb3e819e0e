package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-reservation/internal/booking"
	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/repository"
)

// BookingHandler exposes the booking lifecycle over HTTP.  All
// decisions live in the settlement core; this layer parses, authorizes
// and maps sentinel errors to status codes.
type BookingHandler struct {
	Svc      *booking.Service
	Bookings *repository.BookingRepo
	Rooms    *repository.RoomRepo
}

func NewBookingHandler(svc *booking.Service, bookings *repository.BookingRepo, rooms *repository.RoomRepo) *BookingHandler {
	return &BookingHandler{Svc: svc, Bookings: bookings, Rooms: rooms}
}

type createBookingReq struct {
	RoomID   uint64 `json:"room_id"`
	CheckIn  string `json:"check_in"`  // YYYY-MM-DD, inclusive
	CheckOut string `json:"check_out"` // YYYY-MM-DD, exclusive
}

type bookingResp struct {
	ID               uint64  `json:"id"`
	RoomID           uint64  `json:"room_id"`
	CheckIn          string  `json:"check_in"`
	CheckOut         string  `json:"check_out"`
	Status           string  `json:"status"`
	PaymentRef       string  `json:"payment_ref"`
	SettlementRef    *string `json:"settlement_ref,omitempty"`
	RefundPercent    *uint8  `json:"refund_percent,omitempty"`
	TotalAmountCents uint32  `json:"total_amount_cents"`
}

func toBookingResp(b *model.Booking) bookingResp {
	return bookingResp{
		ID:               b.ID,
		RoomID:           b.RoomID,
		CheckIn:          b.CheckIn.Format("2006-01-02"),
		CheckOut:         b.CheckOut.Format("2006-01-02"),
		Status:           b.Status,
		PaymentRef:       b.PaymentRef,
		SettlementRef:    b.SettlementRef,
		RefundPercent:    b.RefundPercent,
		TotalAmountCents: b.TotalAmountCents,
	}
}

// Create books a room for the authenticated guest.  The booking comes
// back PENDING with a fresh gateway order reference; the guest pays at
// the gateway out of band.
func (h *BookingHandler) Create(c echo.Context) error {
	guestID, ok := c.Get("user_id").(uint64)
	if !ok || guestID == 0 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createBookingReq
	if err := c.Bind(&req); err != nil || req.RoomID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "room_id/check_in/check_out required"})
	}
	r, err := parseRange(req.CheckIn, req.CheckOut)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	rm, err := h.Rooms.GetByID(ctx, req.RoomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !rm.IsActive {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
	}

	amount := rm.NightlyRateCents * uint32(r.Nights())
	orderRef := uuid.NewString()

	b, err := h.Svc.Create(ctx, rm.ID, guestID, r, orderRef, amount)
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrInvalidRange), errors.Is(err, booking.ErrStayTooLong):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		case errors.Is(err, repository.ErrRoomUnavailable):
			return c.JSON(http.StatusConflict, echo.Map{"error": "room unavailable for the requested dates"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create booking failed"})
		}
	}
	return c.JSON(http.StatusCreated, toBookingResp(b))
}

// List returns the authenticated guest's own bookings, newest first.
func (h *BookingHandler) List(c echo.Context) error {
	guestID, ok := c.Get("user_id").(uint64)
	if !ok || guestID == 0 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	bookings, err := h.Bookings.ListByGuest(ctx, guestID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]bookingResp, 0, len(bookings))
	for i := range bookings {
		out = append(out, toBookingResp(&bookings[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": out})
}

// Get returns a single booking.  Guests see only their own bookings;
// managers see any.
func (h *BookingHandler) Get(c echo.Context) error {
	guestID, _ := c.Get("user_id").(uint64)
	role, _ := c.Get("role").(string)
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	b, err := h.Bookings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if b.GuestID != guestID && role != "MANAGER" {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	return c.JSON(http.StatusOK, toBookingResp(b))
}

// RefundQuote previews the refund the guest would receive by
// cancelling now, without committing to anything.
func (h *BookingHandler) RefundQuote(c echo.Context) error {
	guestID, _ := c.Get("user_id").(uint64)
	role, _ := c.Get("role").(string)
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	b, err := h.Bookings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if b.GuestID != guestID && role != "MANAGER" {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	q := h.Svc.Policy().Evaluate(b.CheckIn, time.Now().UTC())
	allowed := q.Allowed && booking.Cancellable(b.Status)
	return c.JSON(http.StatusOK, echo.Map{
		"booking_id":          b.ID,
		"status":              b.Status,
		"refund_percent":      q.Percent,
		"allowed":             allowed,
		"refund_amount_cents": uint32(q.Percent) * b.TotalAmountCents / 100,
	})
}

// Cancel cancels the booking under the refund policy.  Managers may
// cancel any booking; guests only their own.
func (h *BookingHandler) Cancel(c echo.Context) error {
	guestID, _ := c.Get("user_id").(uint64)
	role, _ := c.Get("role").(string)
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	requestedBy := guestID
	if role == "MANAGER" {
		requestedBy = 0 // administrative caller, skip ownership check
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	pct, err := h.Svc.Cancel(ctx, id, requestedBy, time.Now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrBookingNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		case errors.Is(err, booking.ErrCancellationNotAllowed):
			return c.JSON(http.StatusConflict, echo.Map{"error": "cancellation not allowed"})
		case errors.Is(err, booking.ErrContention):
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "booking busy, retry"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel failed"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"booking_id":     id,
		"status":         model.StatusCancelled,
		"refund_percent": pct,
	})
}

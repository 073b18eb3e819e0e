package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-reservation/internal/booking"
	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/repository"
)

// RoomHandler serves the room catalogue: manager CRUD plus the public
// browse and availability endpoints.
type RoomHandler struct {
	Rooms    *repository.RoomRepo
	Bookings *repository.BookingRepo
}

func NewRoomHandler(rooms *repository.RoomRepo, bookings *repository.BookingRepo) *RoomHandler {
	return &RoomHandler{Rooms: rooms, Bookings: bookings}
}

type roomReq struct {
	RoomNumber       string  `json:"room_number"`
	RoomType         string  `json:"room_type"`
	Description      *string `json:"description"`
	NightlyRateCents uint32  `json:"nightly_rate_cents"`
	IsActive         *bool   `json:"is_active"`
}

type roomResp struct {
	ID               uint64  `json:"id"`
	RoomNumber       string  `json:"room_number"`
	RoomType         string  `json:"room_type"`
	Description      *string `json:"description,omitempty"`
	NightlyRateCents uint32  `json:"nightly_rate_cents"`
	IsActive         bool    `json:"is_active"`
}

func toRoomResp(rm *model.Room) roomResp {
	return roomResp{
		ID:               rm.ID,
		RoomNumber:       rm.RoomNumber,
		RoomType:         rm.RoomType,
		Description:      rm.Description,
		NightlyRateCents: rm.NightlyRateCents,
		IsActive:         rm.IsActive,
	}
}

// CreateRoom adds a room to the catalogue (MANAGER only).
func (h *RoomHandler) CreateRoom(c echo.Context) error {
	var req roomReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.RoomNumber = strings.TrimSpace(req.RoomNumber)
	req.RoomType = strings.TrimSpace(req.RoomType)
	if req.RoomNumber == "" || req.RoomType == "" || req.NightlyRateCents == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "room_number/room_type/nightly_rate_cents required"})
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rm := &model.Room{
		RoomNumber:       req.RoomNumber,
		RoomType:         req.RoomType,
		Description:      req.Description,
		NightlyRateCents: req.NightlyRateCents,
		IsActive:         active,
	}
	if err := h.Rooms.Create(ctx, rm); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create room failed"})
	}
	return c.JSON(http.StatusCreated, toRoomResp(rm))
}

// UpdateRoom overwrites a room's attributes (MANAGER only).
func (h *RoomHandler) UpdateRoom(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}
	var req roomReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rm, err := h.Rooms.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	if v := strings.TrimSpace(req.RoomNumber); v != "" {
		rm.RoomNumber = v
	}
	if v := strings.TrimSpace(req.RoomType); v != "" {
		rm.RoomType = v
	}
	if req.Description != nil {
		rm.Description = req.Description
	}
	if req.NightlyRateCents != 0 {
		rm.NightlyRateCents = req.NightlyRateCents
	}
	if req.IsActive != nil {
		rm.IsActive = *req.IsActive
	}

	if err := h.Rooms.Update(ctx, rm); err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update room failed"})
	}
	return c.JSON(http.StatusOK, toRoomResp(rm))
}

// ListRooms returns all active rooms (public, cached).
func (h *RoomHandler) ListRooms(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rooms, err := h.Rooms.ListActive(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]roomResp, 0, len(rooms))
	for i := range rooms {
		out = append(out, toRoomResp(&rooms[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"rooms": out})
}

// GetRoom returns one room (public, cached).
func (h *RoomHandler) GetRoom(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rm, err := h.Rooms.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toRoomResp(rm))
}

// Availability answers whether the room is free over ?from&to (dates,
// half-open: to is the checkout day and does not need to be free).
// The answer is advisory; the booking insert re-checks overlap inside
// its own transaction.
func (h *RoomHandler) Availability(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}
	r, err := parseRange(c.QueryParam("from"), c.QueryParam("to"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rm, err := h.Rooms.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	active, err := h.Bookings.ActiveRanges(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	ranges := make([]booking.DateRange, 0, len(active))
	for _, b := range active {
		ranges = append(ranges, booking.DateRange{CheckIn: b.CheckIn, CheckOut: b.CheckOut})
	}

	nights := r.Nights()
	return c.JSON(http.StatusOK, echo.Map{
		"room_id":            rm.ID,
		"from":               r.CheckIn.Format("2006-01-02"),
		"to":                 r.CheckOut.Format("2006-01-02"),
		"nights":             nights,
		"available":          rm.IsActive && booking.IsAvailable(r, ranges),
		"total_amount_cents": rm.NightlyRateCents * uint32(nights),
	})
}

// parseRange parses two YYYY-MM-DD query parameters into a validated
// half-open date range.
func parseRange(from, to string) (booking.DateRange, error) {
	ci, err := time.Parse("2006-01-02", strings.TrimSpace(from))
	if err != nil {
		return booking.DateRange{}, errors.New("invalid from date, want YYYY-MM-DD")
	}
	co, err := time.Parse("2006-01-02", strings.TrimSpace(to))
	if err != nil {
		return booking.DateRange{}, errors.New("invalid to date, want YYYY-MM-DD")
	}
	r := booking.DateRange{CheckIn: booking.Date(ci), CheckOut: booking.Date(co)}
	if !r.Valid() {
		return booking.DateRange{}, errors.New("from must be before to")
	}
	if r.Nights() > booking.MaxStayNights {
		return booking.DateRange{}, fmt.Errorf("stay may not exceed %d nights", booking.MaxStayNights)
	}
	return r, nil
}

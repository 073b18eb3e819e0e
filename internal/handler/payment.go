package handler

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-reservation/internal/booking"
	"github.com/iliyamo/hotel-reservation/internal/config"
	"github.com/iliyamo/hotel-reservation/internal/gateway"
	"github.com/iliyamo/hotel-reservation/internal/repository"
)

// WebhookSecretHeader carries the shared secret on gateway webhook
// deliveries.
const WebhookSecretHeader = "X-Webhook-Secret"

// PaymentHandler ties the two settlement entry points to the
// reconciler: the gateway's webhook push and the client's poll.  Both
// paths feed the same Reconcile call, which is what makes duplicate
// and out-of-order signals harmless.
type PaymentHandler struct {
	Svc      *booking.Service
	Bookings *repository.BookingRepo
	Gateway  *gateway.Client
	Cfg      config.SettlementConfig
}

func NewPaymentHandler(svc *booking.Service, bookings *repository.BookingRepo, gw *gateway.Client, cfg config.SettlementConfig) *PaymentHandler {
	return &PaymentHandler{Svc: svc, Bookings: bookings, Gateway: gw, Cfg: cfg}
}

// webhookReq mirrors the gateway's delivery payload.
type webhookReq struct {
	OrderRef      string `json:"order_ref"`
	Status        string `json:"status"` // PAID | FAILED | PENDING
	PaidCents     uint32 `json:"paid_amount_cents"`
	DueCents      uint32 `json:"due_amount_cents"`
	SettlementRef string `json:"settlement_ref"`
}

type settlementResp struct {
	BookingID uint64 `json:"booking_id"`
	Status    string `json:"status"`
	Changed   bool   `json:"changed"`
}

// Webhook ingests a settlement signal pushed by the gateway.  The
// delivery is authenticated with a shared secret header; signals for
// unknown orders get a 404 so the gateway stops retrying them.
func (h *PaymentHandler) Webhook(c echo.Context) error {
	secret := c.Request().Header.Get(WebhookSecretHeader)
	if subtle.ConstantTimeCompare([]byte(secret), []byte(h.Cfg.WebhookSecret)) != 1 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid webhook secret"})
	}

	var req webhookReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.OrderRef) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "order_ref required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	b, err := h.Bookings.GetByPaymentRef(ctx, strings.TrimSpace(req.OrderRef))
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown order reference"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	oc := booking.Outcome{
		Source:        booking.SourceWebhook,
		OrderRef:      req.OrderRef,
		SettlementRef: req.SettlementRef,
		PaidCents:     req.PaidCents,
		DueCents:      req.DueCents,
		State:         booking.OutcomeState(strings.ToUpper(strings.TrimSpace(req.Status))),
	}
	return h.reconcile(c, b.ID, oc)
}

// Verify is the client poll: it fetches the authoritative order status
// from the gateway and reconciles it into the booking.  When the
// gateway is unreachable nothing transitions; the guest gets a 202 and
// tries again later.
func (h *PaymentHandler) Verify(c echo.Context) error {
	guestID, _ := c.Get("user_id").(uint64)
	role, _ := c.Get("role").(string)
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
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

	st, err := h.Gateway.FetchOrderStatus(ctx, b.PaymentRef)
	if err != nil {
		switch {
		case errors.Is(err, gateway.ErrGatewayUnavailable):
			// Transient: the money may be captured already, only the
			// confirmation is delayed.  Never fail the booking here.
			return c.JSON(http.StatusAccepted, echo.Map{
				"booking_id": b.ID,
				"status":     b.Status,
				"message":    "payment not yet confirmed, try again later",
			})
		case errors.Is(err, gateway.ErrOrderNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found at gateway"})
		default:
			return c.JSON(http.StatusBadGateway, echo.Map{"error": "gateway error"})
		}
	}

	oc := booking.Outcome{
		Source:        booking.SourcePoll,
		OrderRef:      st.OrderRef,
		SettlementRef: st.SettlementRef,
		PaidCents:     st.PaidCents,
		DueCents:      st.DueCents,
		State:         booking.OutcomeState(st.State),
	}
	return h.reconcile(c, b.ID, oc)
}

// reconcile runs the settlement core and maps its sentinels to HTTP.
func (h *PaymentHandler) reconcile(c echo.Context, bookingID uint64, oc booking.Outcome) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	res, err := h.Svc.Reconcile(ctx, bookingID, oc)
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrConflictingSettlement),
			errors.Is(err, booking.ErrIllegalTransition),
			errors.Is(err, booking.ErrOrderMismatch):
			return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
		case errors.Is(err, booking.ErrMissingSettlementRef):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		case errors.Is(err, booking.ErrContention):
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "booking busy, retry"})
		case errors.Is(err, repository.ErrBookingNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "settlement failed"})
		}
	}
	return c.JSON(http.StatusOK, settlementResp{
		BookingID: res.BookingID,
		Status:    res.Status,
		Changed:   res.Changed,
	})
}

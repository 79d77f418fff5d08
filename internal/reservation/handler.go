package reservation

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Ridham19/GYM-flow/internal/api"
	"github.com/Ridham19/GYM-flow/internal/auth"
	"github.com/Ridham19/GYM-flow/internal/logger"

	"github.com/gin-gonic/gin"
)

// Notifier tells members about admission outcomes. Delivery failures never
// affect the reservation itself.
type Notifier interface {
	SendReservationConfirmed(ctx context.Context, to, name, reservationID string, resourceIDs []string, start, end time.Time) error
	SendReservationCancelled(ctx context.Context, to, name, reservationID string) error
}

type Handler struct {
	service  Service
	notifier Notifier
}

// NewHandler wires the HTTP surface; notifier may be nil.
func NewHandler(service Service, notifier Notifier) *Handler {
	return &Handler{service: service, notifier: notifier}
}

// CreateReservation
// @Summary      Reserve resources
// @Description  Admits a reservation on one or more resources for [start, end).
// @Tags         reservations
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        input  body      CreateReservationRequest  true  "Reservation request"
// @Success      201    {object}  Reservation
// @Failure      400    {object}  api.ErrorResponse
// @Failure      404    {object}  api.ErrorResponse
// @Failure      409    {object}  api.ErrorResponse
// @Failure      422    {object}  api.ErrorResponse
// @Failure      503    {object}  api.ErrorResponse
// @Router       /reservations [post]
func (h *Handler) CreateReservation(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	var req CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if details := api.FormatValidationErrors(err); details != nil {
			api.RespondWithValidationErrors(c, details)
			return
		}
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid request body"})
		return
	}

	r, err := h.service.Admit(c.Request.Context(), Request{
		RequesterID: userID,
		ResourceIDs: req.ResourceIDs,
		Start:       req.Start,
		End:         req.End,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	if h.notifier != nil {
		if to, name := auth.GetContact(c); to != "" {
			if err := h.notifier.SendReservationConfirmed(c.Request.Context(), to, name, r.ID, r.ResourceIDs, r.Start, r.End); err != nil {
				logger.Warn("failed to queue confirmation email", "reservation_id", r.ID, "error", err)
			}
		}
	}

	c.JSON(http.StatusCreated, r)
}

// CancelReservation
// @Summary      Cancel reservation
// @Description  Cancels a reservation. Cancelling twice succeeds both times.
// @Tags         reservations
// @Security     BearerAuth
// @Produce      json
// @Param        reservationID  path      string  true  "Reservation ID"
// @Success      200            {object}  CancelReservationResponse
// @Failure      403            {object}  api.ErrorResponse
// @Failure      404            {object}  api.ErrorResponse
// @Failure      503            {object}  api.ErrorResponse
// @Router       /reservations/{reservationID}/cancel [post]
func (h *Handler) CancelReservation(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	reservationID := c.Param("reservationID")
	if err := h.service.Cancel(c.Request.Context(), reservationID, userID); err != nil {
		respondError(c, err)
		return
	}

	if h.notifier != nil {
		if to, name := auth.GetContact(c); to != "" {
			if err := h.notifier.SendReservationCancelled(c.Request.Context(), to, name, reservationID); err != nil {
				logger.Warn("failed to queue cancellation email", "reservation_id", reservationID, "error", err)
			}
		}
	}

	c.JSON(http.StatusOK, CancelReservationResponse{Message: "Reservation cancelled"})
}

// ListMyReservations returns the caller's reservations, newest first.
func (h *Handler) ListMyReservations(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	reservations, err := h.service.ListByRequester(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, nonNil(reservations))
}

// ListResourceReservations returns confirmed reservations of one resource
// overlapping [from, to). The range defaults to the current UTC day.
func (h *Handler) ListResourceReservations(c *gin.Context) {
	from, to, ok := parseRange(c, today(), 24*time.Hour)
	if !ok {
		return
	}

	reservations, err := h.service.ListActiveByResource(c.Request.Context(), c.Param("resourceID"), from, to)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, nonNil(reservations))
}

// Usage reports per-resource load over [from, to), defaulting to the last 30 days.
func (h *Handler) Usage(c *gin.Context) {
	from, to, ok := parseRange(c, today().AddDate(0, 0, -29), 30*24*time.Hour)
	if !ok {
		return
	}

	usage, err := h.service.Usage(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	if usage == nil {
		usage = []Usage{}
	}

	c.JSON(http.StatusOK, usage)
}

func today() time.Time {
	return time.Now().UTC().Truncate(24 * time.Hour)
}

// parseRange reads RFC3339 from/to query parameters. A missing from falls
// back to defaultFrom and a missing to lies span after from.
func parseRange(c *gin.Context, defaultFrom time.Time, span time.Duration) (from, to time.Time, ok bool) {
	from = defaultFrom
	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "from must be an RFC3339 timestamp"})
			return from, to, false
		}
		from = t
	}

	to = from.Add(span)
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "to must be an RFC3339 timestamp"})
			return from, to, false
		}
		to = t
	}

	return from, to, true
}

// StatusFor maps an admission kind onto an HTTP status.
func StatusFor(kind Kind) int {
	switch kind {
	case KindInvalidRequest, KindInvalidTimeRange, KindDurationOutOfBounds,
		KindOutsideFacilityHours, KindOutsideResourceHours:
		return http.StatusUnprocessableEntity
	case KindResourceConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusForbidden
	case KindStorageUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	kind := KindOf(err)
	resp := api.ErrorResponse{Error: err.Error(), Kind: string(kind)}

	var e *Error
	if errors.As(err, &e) {
		resp.ResourceID = e.ResourceID
		resp.ReservationID = e.ReservationID
	}
	if kind == KindStorageUnavailable || kind == "" {
		logger.Error("reservation request failed", "path", c.FullPath(), "error", err)
		resp.Error = "Reservation service temporarily unavailable"
	}

	c.JSON(StatusFor(kind), resp)
}

func nonNil(rs []*Reservation) []*Reservation {
	if rs == nil {
		return []*Reservation{}
	}
	return rs
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clinicore/booking-api/internal/models"
	"github.com/clinicore/booking-api/internal/service"
	appErrors "github.com/clinicore/booking-api/pkg/errors"
	"github.com/clinicore/booking-api/pkg/response"
)

// SlotHandler exposes the slot calendar and the booking actions on it.
type SlotHandler struct {
	slots    *service.SlotService
	bookings *service.BookingService
}

// NewSlotHandler constructs SlotHandler.
func NewSlotHandler(slots *service.SlotService, bookings *service.BookingService) *SlotHandler {
	return &SlotHandler{slots: slots, bookings: bookings}
}

// List godoc
// @Summary List slots for a day
// @Tags Slots
// @Produce json
// @Param date query string true "Day (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /slots [get]
func (h *SlotHandler) List(c *gin.Context) {
	slots, err := h.slots.ListByDate(c.Request.Context(), c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// Get godoc
// @Summary Get one slot
// @Tags Slots
// @Produce json
// @Param id path string true "Slot ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /slots/{id} [get]
func (h *SlotHandler) Get(c *gin.Context) {
	slot, err := h.slots.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

// Create godoc
// @Summary Create an ad-hoc slot
// @Tags Slots
// @Accept json
// @Produce json
// @Param payload body models.CreateSlotRequest true "Slot payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /slots [post]
func (h *SlotHandler) Create(c *gin.Context) {
	var req models.CreateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	slot, err := h.slots.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, slot)
}

// Delete godoc
// @Summary Delete a slot and its appointments
// @Tags Slots
// @Produce json
// @Param id path string true "Slot ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /slots/{id} [delete]
func (h *SlotHandler) Delete(c *gin.Context) {
	removed, err := h.slots.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"appointments_removed": removed}, nil)
}

// Book godoc
// @Summary Book a slot
// @Tags Slots
// @Produce json
// @Param id path string true "Slot ID"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /slots/{id}/book [post]
func (h *SlotHandler) Book(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	appt, err := h.bookings.Book(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, appt)
}

// Cancel godoc
// @Summary Cancel the caller's booking on a slot
// @Tags Slots
// @Produce json
// @Param id path string true "Slot ID"
// @Success 204
// @Security BearerAuth
// @Router /slots/{id}/book [delete]
func (h *SlotHandler) Cancel(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.bookings.Cancel(c.Request.Context(), c.Param("id"), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

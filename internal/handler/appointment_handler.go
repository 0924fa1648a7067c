package handler

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/clinicore/booking-api/internal/models"
	"github.com/clinicore/booking-api/internal/service"
	appErrors "github.com/clinicore/booking-api/pkg/errors"
	"github.com/clinicore/booking-api/pkg/response"
)

// AppointmentHandler exposes appointment listings, status updates and
// the admin day-sheet export.
type AppointmentHandler struct {
	bookings  *service.BookingService
	daySheets *service.DaySheetService
}

// NewAppointmentHandler constructs AppointmentHandler.
func NewAppointmentHandler(bookings *service.BookingService, daySheets *service.DaySheetService) *AppointmentHandler {
	return &AppointmentHandler{bookings: bookings, daySheets: daySheets}
}

// ListMine godoc
// @Summary List the caller's appointments
// @Tags Appointments
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /appointments [get]
func (h *AppointmentHandler) ListMine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	details, err := h.bookings.ListMine(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, details, nil)
}

// Get godoc
// @Summary Get one of the caller's appointments
// @Tags Appointments
// @Produce json
// @Param id path string true "Appointment ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /appointments/{id} [get]
func (h *AppointmentHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	detail, err := h.bookings.GetForUser(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// ListAll godoc
// @Summary List every appointment
// @Tags Appointments
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /appointments/all [get]
func (h *AppointmentHandler) ListAll(c *gin.Context) {
	details, err := h.bookings.ListAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, details, nil)
}

// ListByDate godoc
// @Summary List a day's appointments
// @Tags Appointments
// @Produce json
// @Param date path string true "Day (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /appointments/date/{date} [get]
func (h *AppointmentHandler) ListByDate(c *gin.Context) {
	details, err := h.bookings.ListByDate(c.Request.Context(), c.Param("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, details, nil)
}

// UpdateStatus godoc
// @Summary Update an appointment's status
// @Tags Appointments
// @Accept json
// @Produce json
// @Param id path string true "Appointment ID"
// @Param payload body models.UpdateAppointmentStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /appointments/{id}/status [patch]
func (h *AppointmentHandler) UpdateStatus(c *gin.Context) {
	var req models.UpdateAppointmentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	appt, err := h.bookings.UpdateStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appt, nil)
}

// Export godoc
// @Summary Generate a day-sheet export
// @Tags Appointments
// @Produce json
// @Param date query string true "Day (YYYY-MM-DD)"
// @Param format query string false "csv or pdf" default(csv)
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /appointments/export [post]
func (h *AppointmentHandler) Export(c *gin.Context) {
	format := models.DaySheetFormat(c.DefaultQuery("format", string(models.DaySheetCSV)))
	result, err := h.daySheets.Generate(c.Request.Context(), c.Query("date"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{
		"url":        result.URL,
		"token":      result.Token,
		"format":     result.Format,
		"expires_at": result.ExpiresAt,
	})
}

// Download godoc
// @Summary Download a generated day sheet
// @Tags Appointments
// @Produce application/octet-stream
// @Param token path string true "Signed download token"
// @Success 200
// @Router /appointments/export/{token} [get]
func (h *AppointmentHandler) Download(c *gin.Context) {
	file, relPath, err := h.daySheets.Open(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	name := filepath.Base(relPath)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	contentType := "text/csv"
	if filepath.Ext(name) == ".pdf" {
		contentType = "application/pdf"
	}
	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat export file"))
		return
	}
	c.DataFromReader(http.StatusOK, info.Size(), contentType, file, nil)
}

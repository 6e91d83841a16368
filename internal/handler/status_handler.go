package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ihu-online/admissions-api/internal/dto"
	"github.com/ihu-online/admissions-api/internal/service"
	appErrors "github.com/ihu-online/admissions-api/pkg/errors"
	"github.com/ihu-online/admissions-api/pkg/response"
)

// StatusHandler exposes the administrative status reconciliation endpoints.
type StatusHandler struct {
	statuses *service.StatusService
}

// NewStatusHandler constructs StatusHandler.
func NewStatusHandler(statuses *service.StatusService) *StatusHandler {
	return &StatusHandler{statuses: statuses}
}

// UpdateStatus godoc
// @Summary Update review status
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Registration ID"
// @Param payload body dto.UpdateStatusRequest true "New status"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/registrations/{id}/status [patch]
func (h *StatusHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	reg, err := h.statuses.SetStatus(c.Request.Context(), c.Param("id"), req.Status, actorFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reg, nil)
}

// UpdatePaymentStatus godoc
// @Summary Update payment status
// @Description Administrative correction path for refunds and failed charges
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Registration ID"
// @Param payload body dto.UpdatePaymentStatusRequest true "New payment status"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/registrations/{id}/payment-status [patch]
func (h *StatusHandler) UpdatePaymentStatus(c *gin.Context) {
	var req dto.UpdatePaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	reg, err := h.statuses.SetPaymentStatus(c.Request.Context(), c.Param("id"), req.PaymentStatus, actorFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reg, nil)
}

package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ihu-online/admissions-api/internal/dto"
	"github.com/ihu-online/admissions-api/internal/gateway"
	"github.com/ihu-online/admissions-api/internal/service"
	appErrors "github.com/ihu-online/admissions-api/pkg/errors"
	"github.com/ihu-online/admissions-api/pkg/response"
)

// PaymentHandler exposes the payment attempt and confirmation endpoints.
type PaymentHandler struct {
	payments *service.PaymentService
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(payments *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// OpenAttempt godoc
// @Summary Open a payment attempt
// @Description Opens a checkout session for a pending registration
// @Tags Payments
// @Produce json
// @Param id path string true "Registration ID"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /registrations/{id}/payment/attempt [post]
func (h *PaymentHandler) OpenAttempt(c *gin.Context) {
	res, err := h.payments.OpenAttempt(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// GetAttempt godoc
// @Summary Get the open payment attempt
// @Tags Payments
// @Produce json
// @Param id path string true "Registration ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /registrations/{id}/payment/attempt [get]
func (h *PaymentHandler) GetAttempt(c *gin.Context) {
	attempt, err := h.payments.Attempt(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, attempt, nil)
}

// Confirm godoc
// @Summary Confirm a payment
// @Description Confirms a payment with an external order id, or synthesizes a
// test completion when the test flag is set and test mode is enabled
// @Tags Payments
// @Accept json
// @Produce json
// @Param payload body dto.ConfirmPaymentRequest true "Confirmation payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /payments/confirm [post]
func (h *PaymentHandler) Confirm(c *gin.Context) {
	var req dto.ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	orderID := req.OrderID
	var err error
	if req.Test {
		orderID, err = h.payments.CompleteTest(c.Request.Context(), req.RegistrationID)
	} else {
		err = h.payments.Complete(c.Request.Context(), req.RegistrationID, req.OrderID)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"registrationId": req.RegistrationID, "orderId": orderID}, nil)
}

// Webhook godoc
// @Summary Payment provider webhook
// @Description Applies signed completion events from the payment provider
// @Tags Payments
// @Accept json
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /payments/webhook [post]
func (h *PaymentHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable body"))
		return
	}
	if err := h.payments.HandleWebhook(c.Request.Context(), body, c.GetHeader(gateway.SignatureHeader)); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"received": true}, nil)
}

package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ihu-online/admissions-api/internal/dto"
	"github.com/ihu-online/admissions-api/internal/models"
	"github.com/ihu-online/admissions-api/internal/service"
	appErrors "github.com/ihu-online/admissions-api/pkg/errors"
	"github.com/ihu-online/admissions-api/pkg/response"
)

// RegistrationHandler exposes the public submission endpoint and the admin
// read surface.
type RegistrationHandler struct {
	registrations *service.RegistrationService
}

// NewRegistrationHandler constructs RegistrationHandler.
func NewRegistrationHandler(registrations *service.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registrations: registrations}
}

// CheckUniqueness godoc
// @Summary Check email or phone availability
// @Description Side-effect-free availability lookup for the application form
// @Tags Registrations
// @Produce json
// @Param field query string true "Field to check (email or phone)"
// @Param value query string true "Value to check"
// @Param countryCode query string false "Country calling code, required for phone"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /check-uniqueness [get]
func (h *RegistrationHandler) CheckUniqueness(c *gin.Context) {
	field := models.UniquenessField(c.Query("field"))
	exists, err := h.registrations.CheckAvailability(c.Request.Context(), field, c.Query("value"), c.Query("countryCode"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.UniquenessResponse{Exists: exists}, nil)
}

// Submit godoc
// @Summary Submit an admission application
// @Tags Registrations
// @Accept json
// @Produce json
// @Param payload body dto.SubmitRegistrationRequest true "Application payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /registrations [post]
func (h *RegistrationHandler) Submit(c *gin.Context) {
	var req dto.SubmitRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	reg, err := h.registrations.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.SubmitRegistrationResponse{Success: true, InsertedID: reg.ID})
}

// List godoc
// @Summary List registrations
// @Tags Registrations
// @Produce json
// @Param search query string false "Search by name or email"
// @Param status query string false "Filter by review status"
// @Param paymentStatus query string false "Filter by payment status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/registrations [get]
func (h *RegistrationHandler) List(c *gin.Context) {
	var filter models.RegistrationFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.Status = c.Query("status")
	filter.PaymentStatus = c.Query("paymentStatus")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	registrations, pagination, err := h.registrations.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, registrations, pagination)
}

// Get godoc
// @Summary Get registration detail
// @Tags Registrations
// @Produce json
// @Param id path string true "Registration ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/registrations/{id} [get]
func (h *RegistrationHandler) Get(c *gin.Context) {
	reg, err := h.registrations.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reg, nil)
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ihu-online/admissions-api/internal/service"
	appErrors "github.com/ihu-online/admissions-api/pkg/errors"
	"github.com/ihu-online/admissions-api/pkg/response"
)

// ReceiptHandler serves signed receipt links and downloads.
type ReceiptHandler struct {
	receipts *service.ReceiptService
}

// NewReceiptHandler constructs ReceiptHandler.
func NewReceiptHandler(receipts *service.ReceiptService) *ReceiptHandler {
	return &ReceiptHandler{receipts: receipts}
}

// Link godoc
// @Summary Get a signed receipt download link
// @Tags Receipts
// @Produce json
// @Param id path string true "Registration ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/registrations/{id}/receipt [get]
func (h *ReceiptHandler) Link(c *gin.Context) {
	token, expiresAt, err := h.receipts.SignedLink(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"token": token, "expiresAt": expiresAt}, nil)
}

// Download godoc
// @Summary Download a receipt
// @Description Streams the receipt PDF referenced by a signed token
// @Tags Receipts
// @Produce application/pdf
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Router /receipts/download [get]
func (h *ReceiptHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token required"))
		return
	}
	file, err := h.receipts.OpenSigned(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read receipt"))
		return
	}
	c.Header("Content-Disposition", `attachment; filename="receipt.pdf"`)
	c.DataFromReader(http.StatusOK, info.Size(), "application/pdf", file, nil)
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ihu-online/admissions-api/internal/gateway"
	"github.com/ihu-online/admissions-api/internal/models"
	"github.com/ihu-online/admissions-api/internal/service"
	"github.com/ihu-online/admissions-api/pkg/config"
)

type paymentRepoMock struct {
	completeFirst bool
	completeErr   error
	completions   [][2]string
}

func (m *paymentRepoMock) FindByID(ctx context.Context, id string) (*models.Registration, error) {
	return &models.Registration{ID: id, CourseType: "undergraduate", PaymentStatus: models.PaymentStatusPending}, nil
}

func (m *paymentRepoMock) CompletePayment(ctx context.Context, id, orderID string) (bool, error) {
	m.completions = append(m.completions, [2]string{id, orderID})
	if m.completeErr != nil {
		return false, m.completeErr
	}
	return m.completeFirst, nil
}

func newPaymentHandler(repo *paymentRepoMock, cfg config.PaymentConfig) *PaymentHandler {
	svc := service.NewPaymentService(repo, nil, nil, nil, nil, cfg, zap.NewNop())
	return NewPaymentHandler(svc)
}

func TestPaymentHandlerConfirmTestMode(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &paymentRepoMock{completeFirst: true}
	handler := newPaymentHandler(repo, config.PaymentConfig{TestMode: true})

	body, _ := json.Marshal(map[string]interface{}{"registrationId": "reg-1", "test": true})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/payments/confirm", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Confirm(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, repo.completions, 1)
	assert.Contains(t, repo.completions[0][1], "TEST-")
}

func TestPaymentHandlerConfirmTestModeDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newPaymentHandler(&paymentRepoMock{}, config.PaymentConfig{TestMode: false})

	body, _ := json.Marshal(map[string]interface{}{"registrationId": "reg-1", "test": true})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/payments/confirm", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Confirm(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestPaymentHandlerWebhook(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &paymentRepoMock{completeFirst: true}
	cfg := config.PaymentConfig{WebhookSecret: "hook-secret"}
	handler := newPaymentHandler(repo, cfg)

	body, _ := json.Marshal(map[string]string{
		"type":        "payment.completed",
		"referenceId": "reg-1",
		"orderId":     "order-7",
	})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewReader(body))
	req.Header.Set(gateway.SignatureHeader, gateway.Sign(cfg.WebhookSecret, body))
	c.Request = req

	handler.Webhook(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, repo.completions, 1)
}

func TestPaymentHandlerWebhookBadSignature(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &paymentRepoMock{}
	handler := newPaymentHandler(repo, config.PaymentConfig{WebhookSecret: "hook-secret"})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewReader([]byte(`{}`)))
	req.Header.Set(gateway.SignatureHeader, "bad")
	c.Request = req

	handler.Webhook(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, repo.completions)
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ihu-online/admissions-api/internal/dto"
	"github.com/ihu-online/admissions-api/internal/models"
	"github.com/ihu-online/admissions-api/internal/service"
	appErrors "github.com/ihu-online/admissions-api/pkg/errors"
)

type registrationRepoMock struct {
	emails    map[string]bool
	createErr error
}

func (m *registrationRepoMock) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return m.emails[email], nil
}

func (m *registrationRepoMock) ExistsByPhone(ctx context.Context, countryCode, phone string) (bool, error) {
	return false, nil
}

func (m *registrationRepoMock) Create(ctx context.Context, reg *models.Registration) error {
	if m.createErr != nil {
		return m.createErr
	}
	reg.ID = "reg-1"
	return nil
}

func (m *registrationRepoMock) FindByID(ctx context.Context, id string) (*models.Registration, error) {
	return &models.Registration{ID: id}, nil
}

func (m *registrationRepoMock) List(ctx context.Context, filter models.RegistrationFilter) ([]models.Registration, int, error) {
	return []models.Registration{{ID: "reg-1"}}, 1, nil
}

func newRegistrationHandler(repo *registrationRepoMock) *RegistrationHandler {
	svc := service.NewRegistrationService(repo, nil, validator.New(), zap.NewNop(), time.Minute)
	return NewRegistrationHandler(svc)
}

func submitBody(t *testing.T) []byte {
	body, err := json.Marshal(map[string]string{
		"firstName":             "Grace",
		"lastName":              "Hopper",
		"dateOfBirth":           "1906-12-09",
		"emailAddress":          "grace@example.com",
		"countryCode":           "+1",
		"phone":                 "5551234567",
		"address":               "1 Navy Way",
		"city":                  "Arlington",
		"state":                 "VA",
		"countryOrRegion":       "USA",
		"zipOrPostalCode":       "22202",
		"resident":              "yes",
		"enrollmentType":        "online",
		"courseType":            "undergraduate",
		"graduationYear":        "2027",
		"howDidYouHearAboutIHU": "friend",
		"objectives":            "learn",
		"signature":             "Grace Hopper",
	})
	require.NoError(t, err)
	return body
}

func TestRegistrationHandlerSubmit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newRegistrationHandler(&registrationRepoMock{})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/registrations", bytes.NewReader(submitBody(t)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Submit(c)
	require.Equal(t, http.StatusCreated, w.Code)

	var envelope struct {
		Data dto.SubmitRegistrationResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.True(t, envelope.Data.Success)
	assert.Equal(t, "reg-1", envelope.Data.InsertedID)
}

func TestRegistrationHandlerSubmitDuplicate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newRegistrationHandler(&registrationRepoMock{createErr: appErrors.ErrDuplicateEmail})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/registrations", bytes.NewReader(submitBody(t)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Submit(c)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "DUPLICATE_EMAIL")
}

func TestRegistrationHandlerSubmitInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newRegistrationHandler(&registrationRepoMock{})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/registrations", bytes.NewReader([]byte(`not-json`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Submit(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegistrationHandlerCheckUniqueness(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newRegistrationHandler(&registrationRepoMock{emails: map[string]bool{"taken@example.com": true}})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/check-uniqueness?field=email&value=Taken@Example.com", nil)
	c.Request = req

	handler.CheckUniqueness(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data dto.UniquenessResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.True(t, envelope.Data.Exists)
}

func TestRegistrationHandlerCheckUniquenessInvalidInput(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newRegistrationHandler(&registrationRepoMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/check-uniqueness?field=email&value=garbage", nil)
	c.Request = req

	handler.CheckUniqueness(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

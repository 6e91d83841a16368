package export

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReceiptRendererRender(t *testing.T) {
	renderer := NewReceiptRenderer("IHU Office of Admissions")

	data, err := renderer.Render(Receipt{
		RegistrationID: "reg-1",
		OrderID:        "order-7",
		ApplicantName:  "Grace Hopper",
		Email:          "grace@example.com",
		CourseType:     "undergraduate",
		AmountCents:    7500,
		Currency:       "USD",
		PaidAt:         time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.True(t, len(data) > 0)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestReceiptRendererRequiresIDs(t *testing.T) {
	renderer := NewReceiptRenderer("")

	_, err := renderer.Render(Receipt{OrderID: "order-7"})
	assert.Error(t, err)

	_, err = renderer.Render(Receipt{RegistrationID: "reg-1"})
	assert.Error(t, err)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "75.00 USD", formatAmount(7500, "USD"))
	assert.Equal(t, "0.05 EUR", formatAmount(5, "EUR"))
}

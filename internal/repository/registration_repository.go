package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ihu-online/admissions-api/internal/models"
	appErrors "github.com/ihu-online/admissions-api/pkg/errors"
)

// Unique index names enforced on the registrations table. The insert path
// maps constraint violations back to the offending field through these.
const (
	emailUniqueConstraint = "registrations_email_key"
	phoneUniqueConstraint = "registrations_phone_key"
)

const uniqueViolationCode = "23505"

// RegistrationRepository is the persistence directory for admission records.
// Its insert is the sole authoritative uniqueness guard; the debounced checks
// in the service layer are advisory.
type RegistrationRepository struct {
	db *sqlx.DB
}

// NewRegistrationRepository constructs a RegistrationRepository.
func NewRegistrationRepository(db *sqlx.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// ExistsByEmail reports whether a registration holds the normalized email.
func (r *RegistrationRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists int
	err := r.db.GetContext(ctx, &exists, "SELECT 1 FROM registrations WHERE email = $1 LIMIT 1", email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check email: %w", err)
	}
	return true, nil
}

// ExistsByPhone reports whether a registration holds the (countryCode, phone) pair.
func (r *RegistrationRepository) ExistsByPhone(ctx context.Context, countryCode, phone string) (bool, error) {
	var exists int
	err := r.db.GetContext(ctx, &exists, "SELECT 1 FROM registrations WHERE country_code = $1 AND phone = $2 LIMIT 1", countryCode, phone)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check phone: %w", err)
	}
	return true, nil
}

// Create inserts a new registration as a single insert-if-absent write. A
// concurrent duplicate surfaces as a unique violation, never a silent success.
func (r *RegistrationRepository) Create(ctx context.Context, reg *models.Registration) error {
	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if reg.CreatedAt.IsZero() {
		reg.CreatedAt = now
	}
	reg.UpdatedAt = now
	const query = `INSERT INTO registrations (
        id, email, country_code, phone,
        first_name, last_name, date_of_birth, address, city, state,
        country_or_region, zip_or_postal_code, resident, enrollment_type,
        course_type, selected_course, graduation_year, how_did_you_hear,
        objectives, signature, status, payment_status, created_at, updated_at)
        VALUES (
        :id, :email, :country_code, :phone,
        :first_name, :last_name, :date_of_birth, :address, :city, :state,
        :country_or_region, :zip_or_postal_code, :resident, :enrollment_type,
        :course_type, :selected_course, :graduation_year, :how_did_you_hear,
        :objectives, :signature, :status, :payment_status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, reg); err != nil {
		if dupErr := mapUniqueViolation(err); dupErr != nil {
			return dupErr
		}
		return fmt.Errorf("create registration: %w", err)
	}
	return nil
}

// FindByID fetches a registration by ID.
func (r *RegistrationRepository) FindByID(ctx context.Context, id string) (*models.Registration, error) {
	var reg models.Registration
	if err := r.db.GetContext(ctx, &reg, "SELECT * FROM registrations WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &reg, nil
}

// CompletePayment attaches the external order id and marks the payment
// completed in one atomic conditional update. Re-applying the same order id
// matches the condition and is a no-op; a different order id on an already
// completed row matches nothing and is classified below. Returns whether this
// call performed the first completion.
func (r *RegistrationRepository) CompletePayment(ctx context.Context, id, orderID string) (bool, error) {
	// Truncated to Postgres timestamp precision so the RETURNING comparison
	// below round-trips exactly.
	now := time.Now().UTC().Truncate(time.Microsecond)
	const query = `UPDATE registrations
        SET payment_status = $2, order_id = $3, paid_at = COALESCE(paid_at, $4), updated_at = $4
        WHERE id = $1 AND (order_id IS NULL OR order_id = $3)
        RETURNING paid_at`
	var paidAt time.Time
	err := r.db.QueryRowxContext(ctx, query, id, models.PaymentStatusCompleted, orderID, now).Scan(&paidAt)
	if err == nil {
		return paidAt.Equal(now), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("complete payment: %w", err)
	}

	// The update matched nothing: either the id is unknown or the row is
	// already completed under a different order id.
	var existing string
	err = r.db.GetContext(ctx, &existing, "SELECT COALESCE(order_id, '') FROM registrations WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, sql.ErrNoRows
		}
		return false, fmt.Errorf("classify completion: %w", err)
	}
	return false, appErrors.Clone(appErrors.ErrConflictingCompletion,
		fmt.Sprintf("payment already completed with order %s", existing))
}

// UpdateStatus sets the review status without touching payment fields.
func (r *RegistrationRepository) UpdateStatus(ctx context.Context, id, status string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE registrations SET status = $2, updated_at = $3 WHERE id = $1",
		id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdatePaymentStatus sets the payment status without touching the review
// status or the order id. Administrative path only.
func (r *RegistrationRepository) UpdatePaymentStatus(ctx context.Context, id, paymentStatus string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE registrations SET payment_status = $2, updated_at = $3 WHERE id = $1",
		id, paymentStatus, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns registrations matching the provided filters.
func (r *RegistrationRepository) List(ctx context.Context, filter models.RegistrationFilter) ([]models.Registration, int, error) {
	base := "FROM registrations"
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.PaymentStatus != "" {
		conditions = append(conditions, fmt.Sprintf("payment_status = $%d", len(args)+1))
		args = append(args, filter.PaymentStatus)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(first_name) LIKE $%d OR LOWER(last_name) LIKE $%d OR email LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"created_at": "created_at",
		"last_name":  "last_name",
		"email":      "email",
	}
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT * %s%s ORDER BY %s %s LIMIT %d OFFSET %d", base, clause, column, order, size, offset)

	var registrations []models.Registration
	if err := r.db.SelectContext(ctx, &registrations, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list registrations: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s%s", base, clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count registrations: %w", err)
	}
	return registrations, total, nil
}

// mapUniqueViolation converts a unique-index violation into the typed
// duplicate error naming the conflicting field, or nil for other errors.
func mapUniqueViolation(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolationCode {
		return nil
	}
	switch pqErr.Constraint {
	case emailUniqueConstraint:
		return appErrors.ErrDuplicateEmail
	case phoneUniqueConstraint:
		return appErrors.ErrDuplicatePhone
	}
	if strings.Contains(pqErr.Constraint, "phone") {
		return appErrors.ErrDuplicatePhone
	}
	return appErrors.ErrDuplicateEmail
}

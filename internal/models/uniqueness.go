package models

// UniquenessField identifies which identity field a check targets.
type UniquenessField string

const (
	FieldEmail UniquenessField = "email"
	FieldPhone UniquenessField = "phone"
)

// UniquenessState is the observable outcome of a check.
type UniquenessState string

const (
	// UniquenessInvalid means the value failed shape validation; no lookup ran.
	UniquenessInvalid UniquenessState = "invalid"
	// UniquenessChecking means a lookup is in flight.
	UniquenessChecking UniquenessState = "checking"
	// UniquenessTaken means an existing registration holds the value.
	UniquenessTaken UniquenessState = "taken"
	// UniquenessAvailable means no registration holds the value.
	UniquenessAvailable UniquenessState = "available"
	// UniquenessError means the lookup failed. Not taken, but not sufficient
	// to pass submission either.
	UniquenessError UniquenessState = "error"
)

// UniquenessCheckResult is ephemeral per-session state, superseded by each
// newly issued check for the same field.
type UniquenessCheckResult struct {
	Field   UniquenessField `json:"field"`
	Value   string          `json:"value"`
	State   UniquenessState `json:"state"`
	Message string          `json:"message,omitempty"`
	// Seq is the issuance sequence of the check that produced this result.
	Seq uint64 `json:"-"`
}

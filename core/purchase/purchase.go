package purchase

import "time"

type Status string

// Persisted status tokens. The reconciler's filters depend on these exact
// strings; do not rename.
const (
	Pending Status = "pending"
	Paid    Status = "paid"
	Failed  Status = "failed"
)

// Purchase is one row of the access ledger. There is at most one row per
// (user, course) pair and a paid row is never mutated again. Amount is in
// minor currency units.
type Purchase struct {
	ID                string     `json:"id" db:"purchase_id"`
	UserID            string     `json:"userId" db:"user_id"`
	CourseID          string     `json:"courseId" db:"course_id"`
	Amount            int        `json:"amount" db:"amount"`
	Currency          string     `json:"currency" db:"currency"`
	Status            Status     `json:"status" db:"status"`
	Provider          string     `json:"provider" db:"provider"`
	ProviderSessionID string     `json:"providerSessionId" db:"provider_session_id"`
	PaidAt            *time.Time `json:"paidAt,omitempty" db:"paid_at"`
	CreatedAt         time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time  `json:"updatedAt" db:"updated_at"`
}

type CheckoutNew struct {
	CourseID string `json:"courseId" validate:"required,uuid"`
	Email    string `json:"email" validate:"omitempty,email"`
}

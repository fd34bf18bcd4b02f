package course

import "time"

// Course prices are integer minor currency units (cents).
type Course struct {
	ID           string    `json:"id" db:"course_id"`
	Title        string    `json:"title" db:"title"`
	Description  string    `json:"description" db:"description"`
	Price        int       `json:"price" db:"price"`
	Currency     string    `json:"currency" db:"currency"`
	InstructorID string    `json:"instructorId" db:"instructor_id"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
	Version      int       `json:"-" db:"version"`
}

type CourseNew struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Price       int    `json:"price" validate:"gte=0"`
	Currency    string `json:"currency"`
}

type CourseUp struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Price       *int    `json:"price" validate:"omitempty,gte=0"`
}

// Sales is the per-course revenue report shown to the instructor. Revenue is
// in minor units, like everything else.
type Sales struct {
	CourseID     string       `json:"courseId"`
	Title        string       `json:"courseTitle"`
	TotalSales   int          `json:"totalSales"`
	TotalRevenue int          `json:"totalRevenue"`
	Recent       []RecentSale `json:"recentPurchases"`
}

type RecentSale struct {
	PurchaseID   string    `json:"id" db:"purchase_id"`
	StudentName  string    `json:"studentName" db:"name"`
	StudentEmail string    `json:"studentEmail" db:"email"`
	Amount       int       `json:"amount" db:"amount"`
	PaidAt       time.Time `json:"date" db:"paid_at"`
}

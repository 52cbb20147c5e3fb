package models

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// Order represents a single wash order. NegotiatedPrice defaults from the
// service class price at save time, Fund is derived from the class display
// name; neither is user-settable after creation.
type Order struct {
	ID              int                `json:"id"`               // Unique identifier for the order
	PhotoPath       string             `json:"photo_path"`       // Normalized car photo location
	ServiceClassID  int                `json:"service_class_id"` // Priced tier reference
	ClassName       string             `json:"class_name"`       // Class display name at read time
	ServiceName     string             `json:"service_name"`     // Parent service display name
	EmployeeID      int                `json:"employee_id"`      // Assigned washer reference
	EmployeeName    string             `json:"employee_name"`    // Washer full name at read time
	NegotiatedPrice pgtype.Float8      `json:"negotiated_price"` // Price actually charged; invalid means "negotiated"
	Fund            pgtype.Float8      `json:"fund"`             // Derived payout bucket, unset for non-bucket classes
	OrderDate       time.Time          `json:"order_date"`       // Business date of the order
	IsCompleted     bool               `json:"is_completed"`     // Completion flag
	CompletionDate  pgtype.Timestamptz `json:"completion_date"`  // Set when the order is marked complete
	CreatedAt       time.Time          `json:"created_at"`       // Immutable creation timestamp
}

// DailyReport is a per-day revenue aggregate over persisted orders.
// EmployeeShare and CompanyShare are a fixed 40/60 split of the total.
type DailyReport struct {
	Date          time.Time `json:"date"`
	TotalWashes   int       `json:"total_washes"`
	TotalAmount   float64   `json:"total_amount"`
	EmployeeShare float64   `json:"employees_amount"`
	CompanyShare  float64   `json:"cashier_amount"`
}

// EmployeeStats is the per-employee revenue split for one date.
type EmployeeStats struct {
	EmployeeID      int                `json:"id"`
	FullName        string             `json:"full_name"`
	WashedCars      int                `json:"washed_cars_count"`
	TotalAmount     float64            `json:"total_wash_amount"`
	EmployeeShare   float64            `json:"employee_share"`
	CompanyShare    float64            `json:"company_share"`
	FundShare       float64            `json:"fund_share"`
	NegotiatedCount int                `json:"negotiated_washes_count"`
	AllCompleted    bool               `json:"is_completed"`
	CompletionDate  pgtype.Timestamptz `json:"completion_date"`
}

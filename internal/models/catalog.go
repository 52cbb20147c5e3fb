package models

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// Service represents a category of wash (e.g. "Car wash", "Truck wash").
type Service struct {
	ID        int       `json:"id"`         // Unique identifier for the service
	Name      string    `json:"name"`       // Unique display name of the service
	CreatedAt time.Time `json:"created_at"` // Timestamp of when the service was created
	UpdatedAt time.Time `json:"updated_at"` // Timestamp of the last change
}

// ServiceClass represents a priced tier within a service.
// Both name and price are optional; an absent price means the class
// is billed by negotiation.
type ServiceClass struct {
	ID          int           `json:"id"`           // Unique identifier for the class
	ServiceID   int           `json:"service_id"`   // Parent service reference
	ServiceName string        `json:"service_name"` // Display name of the parent service
	Name        pgtype.Text   `json:"name"`         // Optional display name of the class
	Price       pgtype.Float8 `json:"price"`        // Optional price; invalid means "negotiated"
	CreatedAt   time.Time     `json:"created_at"`   // Timestamp of when the class was created
}

// Position represents an employee job position.
type Position struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Employee represents a worker who can be assigned wash orders.
// A fired employee is excluded from "currently available" listings,
// but historical orders keep the reference.
type Employee struct {
	ID        int         `json:"id"`         // Unique identifier for the employee
	FullName  string      `json:"full_name"`  // Unique full name of the employee
	Position  string      `json:"position"`   // Position display name
	Phone     string      `json:"phone"`      // Phone number of the employee
	Address   string      `json:"address"`    // Home address of the employee
	HireDate  pgtype.Date `json:"hire_date"`  // Date the employee was hired
	Fired     bool        `json:"fired"`      // True when the employee no longer works here
	FiredDate pgtype.Date `json:"fired_date"` // Date of termination, set when fired
	PhotoPath string      `json:"photo_path"` // Stored photo location
	CreatedAt time.Time   `json:"created_at"` // Timestamp of when the record was created
	UpdatedAt time.Time   `json:"updated_at"` // Timestamp of the last change
}

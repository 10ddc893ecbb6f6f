package main

import (
	"context"
	"errors"
	"time"
)

type customer struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Address     string    `json:"address,omitempty"`
	MeterNumber string    `json:"meterNumber,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type reading struct {
	ID          string    `json:"id"`
	CustomerID  string    `json:"customerId"`
	Gallons     float64   `json:"gallons"`
	ReadingDate string    `json:"readingDate,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type leak struct {
	ID           string    `json:"id"`
	Location     string    `json:"location"`
	Severity     string    `json:"severity"`
	Status       string    `json:"status"`
	Description  string    `json:"description,omitempty"`
	ReportedAt   time.Time `json:"reportedAt"`
	LastModified time.Time `json:"lastModified"`
}

type alert struct {
	ID        string    `json:"id"`
	LeakID    string    `json:"leakId"`
	Severity  string    `json:"severity"`
	Message   string    `json:"message"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

type workOrder struct {
	ID           string    `json:"id"`
	LeakID       string    `json:"leakId,omitempty"`
	Description  string    `json:"description"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
	LastModified time.Time `json:"lastModified"`
}

type user struct {
	Username     string
	PasswordHash []byte
	CreatedAt    time.Time
}

var errUsernameTaken = errors.New("username already registered")

// storage is the persistence boundary. The memory backend serves demos
// and tests, the Postgres backend survives restarts; both assign the
// sequential PREFIX-NNN ids themselves.
type storage interface {
	InsertCustomer(ctx context.Context, c customer) (customer, error)
	GetCustomer(ctx context.Context, id string) (customer, bool, error)
	ListCustomers(ctx context.Context) ([]customer, error)
	UpdateCustomer(ctx context.Context, id string, apply func(customer) customer) (customer, bool, error)

	InsertReading(ctx context.Context, rd reading) (reading, error)
	ListReadings(ctx context.Context) ([]reading, error)

	// InsertLeakWithAlert writes the leak and its companion alert as one
	// atomic pair.
	InsertLeakWithAlert(ctx context.Context, lk leak, buildAlert func(leakID string) alert) (leak, alert, error)
	GetLeak(ctx context.Context, id string) (leak, bool, error)
	ListLeaks(ctx context.Context) ([]leak, error)
	UpdateLeak(ctx context.Context, id string, apply func(leak) leak) (leak, bool, error)

	ListAlerts(ctx context.Context) ([]alert, error)
	UpdateAlert(ctx context.Context, id string, apply func(alert) alert) (alert, bool, error)

	InsertWorkOrder(ctx context.Context, wo workOrder) (workOrder, error)
	ListWorkOrders(ctx context.Context) ([]workOrder, error)
	UpdateWorkOrder(ctx context.Context, id string, apply func(workOrder) workOrder) (workOrder, bool, error)

	CreateUser(ctx context.Context, u user) error
	GetUser(ctx context.Context, username string) (user, bool, error)
}

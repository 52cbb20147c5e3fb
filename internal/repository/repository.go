package repository

import (
	"context"
	"errors"
	"time"

	"github.com/oltinwash/backend/internal/models"
)

// ErrNotFound is returned when a referenced row does not exist. Callers
// must treat it as a recoverable, user-facing condition: a selection made
// earlier in a session may have been deleted since.
var ErrNotFound = errors.New("requested record not found")

// Repository implements all query managers over a pgx Database.
type Repository struct {
	db Database
}

// CatalogManager exposes the read side of the service/class/employee
// reference data consumed by both the REST surface and the bot flow.
type CatalogManager interface {
	ListServices(ctx context.Context) ([]models.Service, error)
	ListServiceClasses(ctx context.Context, serviceID int) ([]models.ServiceClass, error)
	ListAllServiceClasses(ctx context.Context) ([]models.ServiceClass, error)
	GetServiceClass(ctx context.Context, id int) (models.ServiceClass, error)
	GetEmployee(ctx context.Context, id int) (models.Employee, error)
	ListActiveEmployees(ctx context.Context) ([]models.Employee, error)
}

// OrderManager persists and queries wash orders.
type OrderManager interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id int) (models.Order, error)
	ListOrders(ctx context.Context, start, end time.Time) ([]models.Order, error)
	SetOrderCompletion(ctx context.Context, id int, completed bool) (models.Order, error)
	DeleteOrder(ctx context.Context, id int) error
	ListEmployeesAtWork(ctx context.Context, day time.Time) ([]models.Employee, error)
	CompleteEmployeeOrders(ctx context.Context, employeeID int, day time.Time) (int64, error)
	DailyTotals(ctx context.Context, start, end time.Time) ([]models.DailyReport, error)
	EmployeeTotals(ctx context.Context, day time.Time) ([]models.EmployeeStats, error)
	CountOrders(ctx context.Context) (int, error)
}

// BotManager manages the telegram allow-list.
type BotManager interface {
	IsAuthorized(ctx context.Context, telegramID int64) (bool, error)
	IsAdmin(ctx context.Context, telegramID int64) (bool, error)
	GetTelegramUser(ctx context.Context, telegramID int64) (models.TelegramUser, error)
	ListTelegramUsers(ctx context.Context) ([]models.TelegramUser, error)
	CreateTelegramUser(ctx context.Context, user models.TelegramUser) error
	DeleteTelegramUser(ctx context.Context, telegramID int64) error
	TouchTelegramUser(ctx context.Context, telegramID int64, firstName, username string) error
}

// NewRepository creates a new instance of Repository with the provided Database.
func NewRepository(db Database) *Repository {
	return &Repository{db: db}
}

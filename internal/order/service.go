// Package order implements the save-time rules for wash orders: date and
// price defaulting, the fund bucket lookup, photo normalization and the
// atomic persist of file plus row.
package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/oltinwash/backend/internal/models"
	"github.com/oltinwash/backend/internal/photo"
)

// ErrValidation is returned when the input is structurally incomplete,
// before any side effect has happened.
var ErrValidation = errors.New("invalid order input")

// Storage is the slice of the repository the order service needs.
type Storage interface {
	GetServiceClass(ctx context.Context, id int) (models.ServiceClass, error)
	GetEmployee(ctx context.Context, id int) (models.Employee, error)
	CreateOrder(ctx context.Context, order *models.Order) error
}

// CreateInput carries one order submission. Nil pointer fields mean "not
// provided" and trigger the defaulting rules.
type CreateInput struct {
	ServiceClassID  int
	EmployeeID      int
	NegotiatedPrice *float64
	OrderDate       *time.Time
	Photo           []byte
	PhotoFilename   string
}

// Service applies the business rules around order creation.
type Service struct {
	log       *slog.Logger
	repo      Storage
	fundTable map[string]float64
	photoDir  string
	photoOpts photo.Options
	now       func() time.Time
}

// NewService creates an order service. fundTable maps lowercased class
// display names to fund amounts.
func NewService(
	log *slog.Logger,
	repo Storage,
	fundTable map[string]float64,
	photoDir string,
	photoOpts photo.Options,
) *Service {
	return &Service{
		log:       log,
		repo:      repo,
		fundTable: fundTable,
		photoDir:  photoDir,
		photoOpts: photoOpts,
		now:       time.Now,
	}
}

// Create validates the input, applies the defaulting rules and persists
// the order. The photo file is written first and removed again when the
// database insert fails, so a stored file without a row never survives.
func (s *Service) Create(ctx context.Context, in CreateInput) (models.Order, error) {
	if len(in.Photo) == 0 {
		return models.Order{}, fmt.Errorf("%w: photo is required", ErrValidation)
	}
	if in.ServiceClassID == 0 {
		return models.Order{}, fmt.Errorf("%w: service_class_id is required", ErrValidation)
	}
	if in.EmployeeID == 0 {
		return models.Order{}, fmt.Errorf("%w: employee_id is required", ErrValidation)
	}

	class, err := s.repo.GetServiceClass(ctx, in.ServiceClassID)
	if err != nil {
		return models.Order{}, fmt.Errorf("failed to resolve service class: %w", err)
	}

	employee, err := s.repo.GetEmployee(ctx, in.EmployeeID)
	if err != nil {
		return models.Order{}, fmt.Errorf("failed to resolve employee: %w", err)
	}

	order := models.Order{
		ServiceClassID: class.ID,
		ClassName:      class.Name.String,
		ServiceName:    class.ServiceName,
		EmployeeID:     employee.ID,
		EmployeeName:   employee.FullName,
		OrderDate:      s.now(),
	}
	if in.OrderDate != nil {
		order.OrderDate = *in.OrderDate
	}

	// An explicit price always wins; the class price only fills a gap.
	switch {
	case in.NegotiatedPrice != nil:
		order.NegotiatedPrice = pgtype.Float8{Float64: *in.NegotiatedPrice, Valid: true}
	case class.Price.Valid:
		order.NegotiatedPrice = class.Price
	}

	if amount, ok := s.fundTable[strings.ToLower(class.Name.String)]; ok {
		order.Fund = pgtype.Float8{Float64: amount, Valid: true}
	}

	encoded, filename, err := photo.Normalize(in.Photo, in.PhotoFilename, s.photoOpts)
	if err != nil {
		return models.Order{}, fmt.Errorf("failed to normalize photo: %w", err)
	}

	path, err := s.storePhoto(encoded, filename)
	if err != nil {
		return models.Order{}, err
	}
	order.PhotoPath = path

	if err = s.repo.CreateOrder(ctx, &order); err != nil {
		if rmErr := os.Remove(filepath.Join(s.photoDir, path)); rmErr != nil {
			s.log.Error("failed to remove orphaned photo", "path", path, "error", rmErr)
		}

		return models.Order{}, fmt.Errorf("failed to persist order: %w", err)
	}

	return order, nil
}

// storePhoto writes the normalized photo under the configured directory
// and returns the stored filename. A nanosecond prefix keeps concurrent
// submissions of identically named files apart.
func (s *Service) storePhoto(data []byte, filename string) (string, error) {
	if err := os.MkdirAll(s.photoDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create photo directory: %w", err)
	}

	name := fmt.Sprintf("%d_%s", s.now().UnixNano(), filepath.Base(filename))
	if err := os.WriteFile(filepath.Join(s.photoDir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write photo file: %w", err)
	}

	return name, nil
}

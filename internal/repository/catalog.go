package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/oltinwash/backend/internal/models"
)

// ListServices retrieves all wash services ordered by creation time,
// newest first.
func (r *Repository) ListServices(ctx context.Context) ([]models.Service, error) {
	query := `
		SELECT id, name, created_at, updated_at
		FROM services
		ORDER BY created_at DESC, name;
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query services: %w", err)
	}
	defer rows.Close()

	var services []models.Service
	for rows.Next() {
		var svc models.Service
		if errScan := rows.Scan(&svc.ID, &svc.Name, &svc.CreatedAt, &svc.UpdatedAt); errScan != nil {
			return nil, fmt.Errorf("failed to scan service row: %w", errScan)
		}
		services = append(services, svc)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	return services, nil
}

// ListServiceClasses retrieves the priced tiers belonging to one service.
func (r *Repository) ListServiceClasses(ctx context.Context, serviceID int) ([]models.ServiceClass, error) {
	query := `
		SELECT sc.id, sc.service_id, s.name, sc.name, sc.price, sc.created_at
		FROM service_classes sc
		JOIN services s ON sc.service_id = s.id
		WHERE sc.service_id = $1
		ORDER BY sc.created_at DESC, sc.name;
	`
	return r.queryServiceClasses(ctx, query, serviceID)
}

// ListAllServiceClasses retrieves every priced tier with its parent
// service name, for the REST catalog listing.
func (r *Repository) ListAllServiceClasses(ctx context.Context) ([]models.ServiceClass, error) {
	query := `
		SELECT sc.id, sc.service_id, s.name, sc.name, sc.price, sc.created_at
		FROM service_classes sc
		JOIN services s ON sc.service_id = s.id
		ORDER BY sc.created_at DESC, sc.name;
	`
	return r.queryServiceClasses(ctx, query)
}

func (r *Repository) queryServiceClasses(
	ctx context.Context,
	query string,
	args ...any,
) ([]models.ServiceClass, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query service classes: %w", err)
	}
	defer rows.Close()

	var classes []models.ServiceClass
	for rows.Next() {
		var class models.ServiceClass
		if errScan := rows.Scan(
			&class.ID, &class.ServiceID, &class.ServiceName, &class.Name, &class.Price, &class.CreatedAt,
		); errScan != nil {
			return nil, fmt.Errorf("failed to scan service class row: %w", errScan)
		}
		classes = append(classes, class)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	return classes, nil
}

// GetServiceClass retrieves one priced tier by id.
func (r *Repository) GetServiceClass(ctx context.Context, id int) (models.ServiceClass, error) {
	var class models.ServiceClass
	query := `
		SELECT sc.id, sc.service_id, s.name, sc.name, sc.price, sc.created_at
		FROM service_classes sc
		JOIN services s ON sc.service_id = s.id
		WHERE sc.id = $1;
	`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&class.ID, &class.ServiceID, &class.ServiceName, &class.Name, &class.Price, &class.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ServiceClass{}, ErrNotFound
		}
		return models.ServiceClass{}, fmt.Errorf("failed to get service class: %w", err)
	}

	return class, nil
}

// GetEmployee retrieves one employee by id, fired or not: historical
// orders keep referencing terminated employees.
func (r *Repository) GetEmployee(ctx context.Context, id int) (models.Employee, error) {
	var employee models.Employee
	query := `
		SELECT e.id, e.full_name, p.name, e.phone, e.address, e.hire_date,
		       e.fired, e.fired_date, e.photo_path, e.created_at, e.updated_at
		FROM employees e
		JOIN positions p ON e.position_id = p.id
		WHERE e.id = $1;
	`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&employee.ID, &employee.FullName, &employee.Position, &employee.Phone, &employee.Address,
		&employee.HireDate, &employee.Fired, &employee.FiredDate, &employee.PhotoPath,
		&employee.CreatedAt, &employee.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Employee{}, ErrNotFound
		}
		return models.Employee{}, fmt.Errorf("failed to get employee: %w", err)
	}

	return employee, nil
}

// ListActiveEmployees retrieves employees available for assignment,
// excluding fired ones.
func (r *Repository) ListActiveEmployees(ctx context.Context) ([]models.Employee, error) {
	query := `
		SELECT e.id, e.full_name, p.name, e.phone, e.address, e.hire_date,
		       e.fired, e.fired_date, e.photo_path, e.created_at, e.updated_at
		FROM employees e
		JOIN positions p ON e.position_id = p.id
		WHERE e.fired = FALSE
		ORDER BY e.full_name;
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query active employees: %w", err)
	}
	defer rows.Close()

	var employees []models.Employee
	for rows.Next() {
		var employee models.Employee
		if errScan := rows.Scan(
			&employee.ID, &employee.FullName, &employee.Position, &employee.Phone, &employee.Address,
			&employee.HireDate, &employee.Fired, &employee.FiredDate, &employee.PhotoPath,
			&employee.CreatedAt, &employee.UpdatedAt,
		); errScan != nil {
			return nil, fmt.Errorf("failed to scan employee row: %w", errScan)
		}
		employees = append(employees, employee)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	return employees, nil
}

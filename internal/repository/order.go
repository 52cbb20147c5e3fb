package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oltinwash/backend/internal/models"
)

const selectOrderSQL = `
	SELECT o.id, o.photo_path, o.service_class_id, COALESCE(sc.name, ''), s.name,
	       o.employee_id, e.full_name, o.negotiated_price, o.fund,
	       o.order_date, o.is_completed, o.completion_date, o.created_at
	FROM wash_orders o
	JOIN service_classes sc ON o.service_class_id = sc.id
	JOIN services s ON sc.service_id = s.id
	JOIN employees e ON o.employee_id = e.id
`

// CreateOrder inserts a new wash order inside a transaction and fills in
// the generated id and creation timestamp. The pricing rule has already
// run by the time an order reaches the repository.
func (r *Repository) CreateOrder(ctx context.Context, order *models.Order) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // omitted because checking for errors will not affect the function

	query := `
		INSERT INTO wash_orders
			(photo_path, service_class_id, employee_id, negotiated_price, fund, order_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at;
	`
	err = tx.QueryRow(ctx, query,
		order.PhotoPath, order.ServiceClassID, order.EmployeeID,
		order.NegotiatedPrice, order.Fund, order.OrderDate,
	).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert wash order: %w", err)
	}

	return tx.Commit(ctx)
}

// GetOrder retrieves one wash order by id.
func (r *Repository) GetOrder(ctx context.Context, id int) (models.Order, error) {
	var order models.Order

	err := r.db.QueryRow(ctx, selectOrderSQL+"WHERE o.id = $1;", id).Scan(
		&order.ID, &order.PhotoPath, &order.ServiceClassID, &order.ClassName, &order.ServiceName,
		&order.EmployeeID, &order.EmployeeName, &order.NegotiatedPrice, &order.Fund,
		&order.OrderDate, &order.IsCompleted, &order.CompletionDate, &order.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Order{}, ErrNotFound
		}
		return models.Order{}, fmt.Errorf("failed to get wash order: %w", err)
	}

	return order, nil
}

// ListOrders retrieves orders whose order date falls inside [start, end].
func (r *Repository) ListOrders(ctx context.Context, start, end time.Time) ([]models.Order, error) {
	query := selectOrderSQL + `
	WHERE o.order_date >= $1 AND o.order_date < $2
	ORDER BY o.created_at DESC;
	`
	rows, err := r.db.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query wash orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var order models.Order
		if errScan := rows.Scan(
			&order.ID, &order.PhotoPath, &order.ServiceClassID, &order.ClassName, &order.ServiceName,
			&order.EmployeeID, &order.EmployeeName, &order.NegotiatedPrice, &order.Fund,
			&order.OrderDate, &order.IsCompleted, &order.CompletionDate, &order.CreatedAt,
		); errScan != nil {
			return nil, fmt.Errorf("failed to scan wash order row: %w", errScan)
		}
		orders = append(orders, order)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	return orders, nil
}

// SetOrderCompletion flips the completion flag. Completing sets the
// completion date to now; reopening clears it, so a completion date never
// survives on an incomplete order.
func (r *Repository) SetOrderCompletion(ctx context.Context, id int, completed bool) (models.Order, error) {
	query := `
		UPDATE wash_orders
		SET is_completed = $2,
		    completion_date = CASE WHEN $2 THEN NOW() ELSE NULL END
		WHERE id = $1;
	`
	cmdTag, err := r.db.Exec(ctx, query, id, completed)
	if err != nil {
		return models.Order{}, fmt.Errorf("failed to update wash order completion: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return models.Order{}, ErrNotFound
	}

	return r.GetOrder(ctx, id)
}

// DeleteOrder removes a wash order permanently.
func (r *Repository) DeleteOrder(ctx context.Context, id int) error {
	cmdTag, err := r.db.Exec(ctx, "DELETE FROM wash_orders WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete wash order %d: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// ListEmployeesAtWork retrieves employees with at least one incomplete
// order on the given day.
func (r *Repository) ListEmployeesAtWork(ctx context.Context, day time.Time) ([]models.Employee, error) {
	query := `
		SELECT DISTINCT e.id, e.full_name, p.name, e.phone, e.address, e.hire_date,
		       e.fired, e.fired_date, e.photo_path, e.created_at, e.updated_at
		FROM employees e
		JOIN positions p ON e.position_id = p.id
		JOIN wash_orders o ON o.employee_id = e.id
		WHERE o.order_date::date = $1::date AND o.is_completed = FALSE
		ORDER BY e.full_name;
	`
	rows, err := r.db.Query(ctx, query, day)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees at work: %w", err)
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

// CompleteEmployeeOrders marks every order of one employee on the given
// day as completed and returns the number of rows affected. Zero rows is
// reported as ErrNotFound by the caller.
func (r *Repository) CompleteEmployeeOrders(ctx context.Context, employeeID int, day time.Time) (int64, error) {
	query := `
		UPDATE wash_orders
		SET is_completed = TRUE, completion_date = NOW()
		WHERE employee_id = $1 AND order_date::date = $2::date;
	`
	cmdTag, err := r.db.Exec(ctx, query, employeeID, day)
	if err != nil {
		return 0, fmt.Errorf("failed to complete orders for employee %d: %w", employeeID, err)
	}

	return cmdTag.RowsAffected(), nil
}

// DailyTotals groups orders by day and sums the negotiated prices. The
// 40/60 share split is applied by the report package, not in SQL.
func (r *Repository) DailyTotals(ctx context.Context, start, end time.Time) ([]models.DailyReport, error) {
	query := `
		SELECT order_date::date AS day, COUNT(*), COALESCE(SUM(negotiated_price), 0)
		FROM wash_orders
		WHERE order_date >= $1 AND order_date < $2
		GROUP BY day
		ORDER BY day;
	`
	rows, err := r.db.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily totals: %w", err)
	}
	defer rows.Close()

	var reports []models.DailyReport
	for rows.Next() {
		var report models.DailyReport
		if errScan := rows.Scan(&report.Date, &report.TotalWashes, &report.TotalAmount); errScan != nil {
			return nil, fmt.Errorf("failed to scan daily total row: %w", errScan)
		}
		reports = append(reports, report)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	return reports, nil
}

// EmployeeTotals computes per-employee aggregates for one date: washed
// car count, negotiated-price total, fund total, negotiated wash count,
// completion state and the latest completion date.
func (r *Repository) EmployeeTotals(ctx context.Context, day time.Time) ([]models.EmployeeStats, error) {
	query := `
		SELECT e.id, e.full_name, COUNT(o.id),
		       COALESCE(SUM(o.negotiated_price), 0),
		       COALESCE(SUM(o.fund), 0),
		       COUNT(o.negotiated_price),
		       BOOL_AND(o.is_completed),
		       MAX(o.completion_date)
		FROM employees e
		JOIN wash_orders o ON o.employee_id = e.id
		WHERE o.order_date::date = $1::date
		GROUP BY e.id, e.full_name
		ORDER BY e.full_name;
	`
	rows, err := r.db.Query(ctx, query, day)
	if err != nil {
		return nil, fmt.Errorf("failed to query employee totals: %w", err)
	}
	defer rows.Close()

	var stats []models.EmployeeStats
	for rows.Next() {
		var stat models.EmployeeStats
		if errScan := rows.Scan(
			&stat.EmployeeID, &stat.FullName, &stat.WashedCars, &stat.TotalAmount,
			&stat.FundShare, &stat.NegotiatedCount, &stat.AllCompleted, &stat.CompletionDate,
		); errScan != nil {
			return nil, fmt.Errorf("failed to scan employee total row: %w", errScan)
		}
		stats = append(stats, stat)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	return stats, nil
}

// CountOrders returns the total number of persisted orders, shown in the
// bot welcome message.
func (r *Repository) CountOrders(ctx context.Context) (int, error) {
	var count int

	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM wash_orders").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count wash orders: %w", err)
	}

	return count, nil
}

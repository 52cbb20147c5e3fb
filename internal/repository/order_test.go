package repository_test

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/oltinwash/backend/internal/models"
	"github.com/oltinwash/backend/internal/repository"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orderColumns() []string {
	return []string{
		"id", "photo_path", "service_class_id", "class_name", "service_name",
		"employee_id", "employee_name", "negotiated_price", "fund",
		"order_date", "is_completed", "completion_date", "created_at",
	}
}

func TestCreateOrder(t *testing.T) {
	t.Parallel()
	mockPool, repo := newMockRepo(t)
	now := time.Now()

	order := models.Order{
		PhotoPath:       "1718000000_car.jpg",
		ServiceClassID:  7,
		EmployeeID:      3,
		NegotiatedPrice: pgtype.Float8{Float64: 120000, Valid: true},
		Fund:            pgtype.Float8{Float64: 15000, Valid: true},
		OrderDate:       now,
	}

	t.Run("error - begin failed", func(t *testing.T) {
		mockPool.ExpectBegin().WillReturnError(assert.AnError)

		err := repo.CreateOrder(t.Context(), &order)

		require.Error(t, err)
		require.ErrorContains(t, err, "failed to begin transaction")
	})

	t.Run("error - insert failed", func(t *testing.T) {
		mockPool.ExpectBegin()
		mockPool.ExpectQuery("INSERT INTO wash_orders").
			WithArgs(order.PhotoPath, order.ServiceClassID, order.EmployeeID,
				order.NegotiatedPrice, order.Fund, order.OrderDate).
			WillReturnError(assert.AnError)
		mockPool.ExpectRollback()

		err := repo.CreateOrder(t.Context(), &order)

		require.Error(t, err)
		require.ErrorContains(t, err, "failed to insert wash order")
	})

	t.Run("success - id and created_at filled in", func(t *testing.T) {
		mockPool.ExpectBegin()
		mockPool.ExpectQuery("INSERT INTO wash_orders").
			WithArgs(order.PhotoPath, order.ServiceClassID, order.EmployeeID,
				order.NegotiatedPrice, order.Fund, order.OrderDate).
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(42, now))
		mockPool.ExpectCommit()

		err := repo.CreateOrder(t.Context(), &order)

		require.NoError(t, err)
		assert.Equal(t, 42, order.ID)
		assert.Equal(t, now, order.CreatedAt)
	})

	require.NoError(t, mockPool.ExpectationsWereMet())
}

func TestGetOrder(t *testing.T) {
	t.Parallel()
	mockPool, repo := newMockRepo(t)
	now := time.Now()

	t.Run("error - not found", func(t *testing.T) {
		mockPool.ExpectQuery("SELECT o.id, o.photo_path").
			WithArgs(99).
			WillReturnRows(pgxmock.NewRows(orderColumns()))

		_, err := repo.GetOrder(t.Context(), 99)

		require.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("success - order returned", func(t *testing.T) {
		rows := pgxmock.NewRows(orderColumns()).AddRow(
			42, "1718000000_car.jpg", 7, "Мойка грузовых", "Мойка",
			3, "Test Washer",
			pgtype.Float8{Float64: 120000, Valid: true},
			pgtype.Float8{Float64: 15000, Valid: true},
			now, false, pgtype.Timestamptz{}, now,
		)
		mockPool.ExpectQuery("SELECT o.id, o.photo_path").WithArgs(42).WillReturnRows(rows)

		order, err := repo.GetOrder(t.Context(), 42)

		require.NoError(t, err)
		assert.Equal(t, 42, order.ID)
		assert.Equal(t, "Test Washer", order.EmployeeName)
		assert.False(t, order.IsCompleted)
		assert.False(t, order.CompletionDate.Valid)
	})

	require.NoError(t, mockPool.ExpectationsWereMet())
}

func TestListOrders(t *testing.T) {
	t.Parallel()
	mockPool, repo := newMockRepo(t)
	now := time.Now()
	start := now.AddDate(0, 0, -1)
	end := now.AddDate(0, 0, 1)

	t.Run("error - query failed", func(t *testing.T) {
		mockPool.ExpectQuery("SELECT o.id, o.photo_path").
			WithArgs(start, end).
			WillReturnError(assert.AnError)

		_, err := repo.ListOrders(t.Context(), start, end)

		require.Error(t, err)
		require.ErrorContains(t, err, "failed to query wash orders")
	})

	t.Run("success - orders in range returned", func(t *testing.T) {
		rows := pgxmock.NewRows(orderColumns()).
			AddRow(42, "a.jpg", 7, "Мойка грузовых", "Мойка", 3, "Test Washer",
				pgtype.Float8{Float64: 120000, Valid: true}, pgtype.Float8{Float64: 15000, Valid: true},
				now, false, pgtype.Timestamptz{}, now).
			AddRow(43, "b.jpg", 8, "Легковые", "Мойка", 3, "Test Washer",
				pgtype.Float8{Float64: 50000, Valid: true}, pgtype.Float8{},
				now, true, pgtype.Timestamptz{Time: now, Valid: true}, now)
		mockPool.ExpectQuery("SELECT o.id, o.photo_path").WithArgs(start, end).WillReturnRows(rows)

		orders, err := repo.ListOrders(t.Context(), start, end)

		require.NoError(t, err)
		require.Len(t, orders, 2)
		assert.False(t, orders[1].Fund.Valid)
		assert.True(t, orders[1].IsCompleted)
	})

	require.NoError(t, mockPool.ExpectationsWereMet())
}

func TestSetOrderCompletion(t *testing.T) {
	t.Parallel()
	mockPool, repo := newMockRepo(t)
	now := time.Now()

	t.Run("error - order missing", func(t *testing.T) {
		mockPool.ExpectExec("UPDATE wash_orders").
			WithArgs(99, true).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		_, err := repo.SetOrderCompletion(t.Context(), 99, true)

		require.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("success - completed order re-read", func(t *testing.T) {
		mockPool.ExpectExec("UPDATE wash_orders").
			WithArgs(42, true).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		rows := pgxmock.NewRows(orderColumns()).AddRow(
			42, "a.jpg", 7, "Мойка грузовых", "Мойка", 3, "Test Washer",
			pgtype.Float8{Float64: 120000, Valid: true}, pgtype.Float8{},
			now, true, pgtype.Timestamptz{Time: now, Valid: true}, now,
		)
		mockPool.ExpectQuery("SELECT o.id, o.photo_path").WithArgs(42).WillReturnRows(rows)

		order, err := repo.SetOrderCompletion(t.Context(), 42, true)

		require.NoError(t, err)
		assert.True(t, order.IsCompleted)
		assert.True(t, order.CompletionDate.Valid)
	})

	require.NoError(t, mockPool.ExpectationsWereMet())
}

func TestDeleteOrder(t *testing.T) {
	t.Parallel()
	mockPool, repo := newMockRepo(t)

	t.Run("error - order missing", func(t *testing.T) {
		mockPool.ExpectExec("DELETE FROM wash_orders").
			WithArgs(99).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		err := repo.DeleteOrder(t.Context(), 99)

		require.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("success - order removed", func(t *testing.T) {
		mockPool.ExpectExec("DELETE FROM wash_orders").
			WithArgs(42).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		require.NoError(t, repo.DeleteOrder(t.Context(), 42))
	})

	require.NoError(t, mockPool.ExpectationsWereMet())
}

func TestCompleteEmployeeOrders(t *testing.T) {
	t.Parallel()
	mockPool, repo := newMockRepo(t)
	day := time.Now()

	t.Run("error - update failed", func(t *testing.T) {
		mockPool.ExpectExec("UPDATE wash_orders").
			WithArgs(3, day).
			WillReturnError(assert.AnError)

		_, err := repo.CompleteEmployeeOrders(t.Context(), 3, day)

		require.Error(t, err)
	})

	t.Run("success - affected rows reported", func(t *testing.T) {
		mockPool.ExpectExec("UPDATE wash_orders").
			WithArgs(3, day).
			WillReturnResult(pgxmock.NewResult("UPDATE", 4))

		affected, err := repo.CompleteEmployeeOrders(t.Context(), 3, day)

		require.NoError(t, err)
		assert.Equal(t, int64(4), affected)
	})

	require.NoError(t, mockPool.ExpectationsWereMet())
}

func TestDailyTotals(t *testing.T) {
	t.Parallel()
	mockPool, repo := newMockRepo(t)
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	t.Run("success - per-day rows returned", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"day", "count", "sum"}).
			AddRow(start, 4, 400000.0).
			AddRow(start.AddDate(0, 0, 1), 1, 95000.0)
		mockPool.ExpectQuery("SELECT order_date::date").WithArgs(start, end).WillReturnRows(rows)

		totals, err := repo.DailyTotals(t.Context(), start, end)

		require.NoError(t, err)
		require.Len(t, totals, 2)
		assert.Equal(t, 4, totals[0].TotalWashes)
		assert.InEpsilon(t, 95000.0, totals[1].TotalAmount, 1e-9)
	})

	require.NoError(t, mockPool.ExpectationsWereMet())
}

func TestEmployeeTotals(t *testing.T) {
	t.Parallel()
	mockPool, repo := newMockRepo(t)
	day := time.Now()

	t.Run("success - per-employee aggregates returned", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{
			"id", "full_name", "count", "sum_price", "sum_fund", "count_negotiated", "all_completed", "max_completion",
		}).AddRow(3, "Test Washer", 5, 250000.0, 30000.0, 2, false, pgtype.Timestamptz{})
		mockPool.ExpectQuery("SELECT e.id, e.full_name").WithArgs(day).WillReturnRows(rows)

		stats, err := repo.EmployeeTotals(t.Context(), day)

		require.NoError(t, err)
		require.Len(t, stats, 1)
		assert.Equal(t, 5, stats[0].WashedCars)
		assert.InEpsilon(t, 30000.0, stats[0].FundShare, 1e-9)
		assert.Equal(t, 2, stats[0].NegotiatedCount)
		assert.False(t, stats[0].AllCompleted)
	})

	require.NoError(t, mockPool.ExpectationsWereMet())
}

func TestCountOrders(t *testing.T) {
	t.Parallel()
	mockPool, repo := newMockRepo(t)

	t.Run("error - query failed", func(t *testing.T) {
		mockPool.ExpectQuery("SELECT COUNT").WillReturnError(assert.AnError)

		_, err := repo.CountOrders(t.Context())

		require.Error(t, err)
	})

	t.Run("success - count returned", func(t *testing.T) {
		mockPool.ExpectQuery("SELECT COUNT").
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(17))

		count, err := repo.CountOrders(t.Context())

		require.NoError(t, err)
		assert.Equal(t, 17, count)
	})

	require.NoError(t, mockPool.ExpectationsWereMet())
}

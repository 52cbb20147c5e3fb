package repository_test

import (
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/oltinwash/backend/internal/repository"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, *repository.Repository) {
	t.Helper()

	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)

	return mockPool, repository.NewRepository(mockPool)
}

func TestListServices(t *testing.T) {
	t.Parallel()
	mockPool, repo := newMockRepo(t)
	now := time.Now()

	t.Run("error - query failed", func(t *testing.T) {
		mockPool.ExpectQuery("SELECT id, name, created_at, updated_at").WillReturnError(assert.AnError)

		_, err := repo.ListServices(t.Context())

		require.Error(t, err)
		require.ErrorContains(t, err, "failed to query services")
	})

	t.Run("success - services returned", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"id", "name", "created_at", "updated_at"}).
			AddRow(1, "Мойка", now, now).
			AddRow(2, "Химчистка", now, now)
		mockPool.ExpectQuery("SELECT id, name, created_at, updated_at").WillReturnRows(rows)

		services, err := repo.ListServices(t.Context())

		require.NoError(t, err)
		require.Len(t, services, 2)
		assert.Equal(t, "Мойка", services[0].Name)
		assert.Equal(t, 2, services[1].ID)
	})

	require.NoError(t, mockPool.ExpectationsWereMet())
}

func TestGetServiceClass(t *testing.T) {
	t.Parallel()
	mockPool, repo := newMockRepo(t)

	t.Run("error - not found", func(t *testing.T) {
		mockPool.ExpectQuery("SELECT sc.id, sc.service_id").
			WithArgs(99).
			WillReturnRows(pgxmock.NewRows([]string{"id", "service_id", "name", "name", "price", "created_at"}))

		_, err := repo.GetServiceClass(t.Context(), 99)

		require.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("success - class returned", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"id", "service_id", "s.name", "name", "price", "created_at"}).
			AddRow(7, 1, "Мойка",
				pgtype.Text{String: "Мойка грузовых", Valid: true},
				pgtype.Float8{Float64: 120000, Valid: true},
				time.Now())
		mockPool.ExpectQuery("SELECT sc.id, sc.service_id").WithArgs(7).WillReturnRows(rows)

		class, err := repo.GetServiceClass(t.Context(), 7)

		require.NoError(t, err)
		assert.Equal(t, "Мойка грузовых", class.Name.String)
		assert.InEpsilon(t, 120000.0, class.Price.Float64, 1e-9)
		assert.Equal(t, "Мойка", class.ServiceName)
	})

	require.NoError(t, mockPool.ExpectationsWereMet())
}

func TestListServiceClasses(t *testing.T) {
	t.Parallel()
	mockPool, repo := newMockRepo(t)

	t.Run("error - scan failed", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"id"}).AddRow("not-an-int")
		mockPool.ExpectQuery("SELECT sc.id, sc.service_id").WithArgs(1).WillReturnRows(rows)

		_, err := repo.ListServiceClasses(t.Context(), 1)

		require.Error(t, err)
	})

	t.Run("success - classes for one service", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"id", "service_id", "s.name", "name", "price", "created_at"}).
			AddRow(7, 1, "Мойка",
				pgtype.Text{String: "Мойка грузовых", Valid: true},
				pgtype.Float8{Float64: 120000, Valid: true},
				time.Now()).
			AddRow(8, 1, "Мойка",
				pgtype.Text{String: "Легковые", Valid: true},
				pgtype.Float8{Float64: 50000, Valid: true},
				time.Now())
		mockPool.ExpectQuery("SELECT sc.id, sc.service_id").WithArgs(1).WillReturnRows(rows)

		classes, err := repo.ListServiceClasses(t.Context(), 1)

		require.NoError(t, err)
		require.Len(t, classes, 2)
		assert.Equal(t, "Легковые", classes[1].Name.String)
	})

	require.NoError(t, mockPool.ExpectationsWereMet())
}

func TestListActiveEmployees(t *testing.T) {
	t.Parallel()
	mockPool, repo := newMockRepo(t)

	query := regexp.QuoteMeta("WHERE e.fired = FALSE")

	t.Run("error - query failed", func(t *testing.T) {
		mockPool.ExpectQuery(query).WillReturnError(assert.AnError)

		_, err := repo.ListActiveEmployees(t.Context())

		require.Error(t, err)
		require.ErrorContains(t, err, "failed to query active employees")
	})

	t.Run("success - active employees returned", func(t *testing.T) {
		now := time.Now()
		rows := pgxmock.NewRows([]string{
			"id", "full_name", "position", "phone", "address", "hire_date",
			"fired", "fired_date", "photo_path", "created_at", "updated_at",
		}).AddRow(
			3, "Test Washer", "washer", "998901234567", "Tashkent",
			pgtype.Date{Time: now, Valid: true}, false, pgtype.Date{}, "", now, now,
		)
		mockPool.ExpectQuery(query).WillReturnRows(rows)

		employees, err := repo.ListActiveEmployees(t.Context())

		require.NoError(t, err)
		require.Len(t, employees, 1)
		assert.Equal(t, "Test Washer", employees[0].FullName)
		assert.False(t, employees[0].Fired)
	})

	require.NoError(t, mockPool.ExpectationsWereMet())
}

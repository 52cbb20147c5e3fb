package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/oltinwash/backend/internal/models"
)

// IsAuthorized checks if a telegram id is on the allow-list. Bootstrap
// admin ids are handled above the repository and never consult it.
func (r *Repository) IsAuthorized(ctx context.Context, telegramID int64) (bool, error) {
	var exists bool

	err := r.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM telegram_users WHERE telegram_id = $1)", telegramID).
		Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check user authorization: %w", err)
	}

	return exists, nil
}

// IsAdmin reports whether an allow-listed user carries the admin flag.
// Unknown ids are simply not admins.
func (r *Repository) IsAdmin(ctx context.Context, telegramID int64) (bool, error) {
	var isAdmin bool

	err := r.db.QueryRow(ctx, "SELECT is_admin FROM telegram_users WHERE telegram_id = $1", telegramID).
		Scan(&isAdmin)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check admin flag: %w", err)
	}

	return isAdmin, nil
}

// GetTelegramUser retrieves one allow-list entry by telegram id.
func (r *Repository) GetTelegramUser(ctx context.Context, telegramID int64) (models.TelegramUser, error) {
	var user models.TelegramUser
	query := `
		SELECT telegram_id, first_name, COALESCE(username, ''), is_admin, created_at, updated_at
		FROM telegram_users
		WHERE telegram_id = $1;
	`

	err := r.db.QueryRow(ctx, query, telegramID).Scan(
		&user.TelegramID, &user.FirstName, &user.Username, &user.IsAdmin, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.TelegramUser{}, ErrNotFound
		}
		return models.TelegramUser{}, fmt.Errorf("failed to get telegram user: %w", err)
	}

	return user, nil
}

// ListTelegramUsers retrieves the full allow-list, newest first.
func (r *Repository) ListTelegramUsers(ctx context.Context) ([]models.TelegramUser, error) {
	query := `
		SELECT telegram_id, first_name, COALESCE(username, ''), is_admin, created_at, updated_at
		FROM telegram_users
		ORDER BY created_at DESC;
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query telegram users: %w", err)
	}
	defer rows.Close()

	var users []models.TelegramUser
	for rows.Next() {
		var user models.TelegramUser
		if errScan := rows.Scan(
			&user.TelegramID, &user.FirstName, &user.Username, &user.IsAdmin, &user.CreatedAt, &user.UpdatedAt,
		); errScan != nil {
			return nil, fmt.Errorf("failed to scan telegram user row: %w", errScan)
		}
		users = append(users, user)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	return users, nil
}

// CreateTelegramUser adds an id to the allow-list. Inserting an id that
// already exists is a no-op, so a bootstrap admin's first contact and an
// explicit admin action cannot conflict.
func (r *Repository) CreateTelegramUser(ctx context.Context, user models.TelegramUser) error {
	query := `
		INSERT INTO telegram_users (telegram_id, first_name, username, is_admin)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (telegram_id) DO NOTHING;
	`
	_, err := r.db.Exec(ctx, query, user.TelegramID, user.FirstName, user.Username, user.IsAdmin)
	if err != nil {
		return fmt.Errorf("failed to insert telegram user: %w", err)
	}

	return nil
}

// DeleteTelegramUser removes an id from the allow-list. The self-deletion
// guard lives in the bot layer; the repository deletes whatever it is told.
func (r *Repository) DeleteTelegramUser(ctx context.Context, telegramID int64) error {
	cmdTag, err := r.db.Exec(ctx, "DELETE FROM telegram_users WHERE telegram_id = $1", telegramID)
	if err != nil {
		return fmt.Errorf("failed to delete telegram user %d: %w", telegramID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// TouchTelegramUser refreshes the display name and username of an
// allow-listed user on contact. Unknown ids are ignored.
func (r *Repository) TouchTelegramUser(ctx context.Context, telegramID int64, firstName, username string) error {
	query := `
		UPDATE telegram_users
		SET first_name = $2, username = $3, updated_at = NOW()
		WHERE telegram_id = $1;
	`
	_, err := r.db.Exec(ctx, query, telegramID, firstName, username)
	if err != nil {
		return fmt.Errorf("failed to update telegram user %d: %w", telegramID, err)
	}

	return nil
}

package models

import "time"

// TelegramUser is an allow-list entry granting bot access.
// A small fixed set of bootstrap ids configured at deploy time always has
// admin rights regardless of the allow-list contents.
type TelegramUser struct {
	TelegramID int64     `json:"telegram_id"` // External chat identifier, unique
	FirstName  string    `json:"first_name"`  // Display name of the user
	Username   string    `json:"username"`    // Telegram @username, may be empty
	IsAdmin    bool      `json:"is_admin"`    // Grants allow-list management
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

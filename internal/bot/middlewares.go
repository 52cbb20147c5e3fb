package bot

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/telebot.v4"
)

const accessCheckTimeout = 3 * time.Second

// AccessMiddleware checks if the sender's Telegram ID is on the allow-list.
// Bootstrap admins pass unconditionally. A denied principal gets a fixed
// message echoing their id so an admin can add them, and nothing else runs.
func (b *Bot) AccessMiddleware(next telebot.HandlerFunc) telebot.HandlerFunc {
	return func(ctx telebot.Context) error {
		if ctx.Sender() == nil {
			return nil
		}
		userID := ctx.Sender().ID

		if b.bootstrapAdmins[userID] {
			return next(ctx)
		}

		timeoutCtx, cancel := context.WithTimeout(context.Background(), accessCheckTimeout)
		defer cancel()

		isAllowed, err := b.usrepo.IsAuthorized(timeoutCtx, userID)
		if err != nil {
			b.log.Error("Failed to authenticate telegram user from DB", "id", userID, "error", err)
			return ctx.Send("Access verification error.")
		}

		if !isAllowed {
			b.log.Info("Access denied", "username", ctx.Sender().Username, "id", userID)
			b.metrics.SentMessages.WithLabelValues("error").Inc()
			denied := fmt.Sprintf("⛔ Access denied. Your id is %d, ask an administrator to add you.", userID)
			if ctx.Callback() != nil {
				return ctx.Respond(&telebot.CallbackResponse{Text: denied, ShowAlert: true})
			}
			return ctx.Send(denied)
		}

		return next(ctx)
	}
}

// adminOnly wraps a handler so only admins reach it. Bootstrap ids are
// always admin; everyone else is checked against the allow-list flag.
func (b *Bot) adminOnly(next telebot.HandlerFunc) telebot.HandlerFunc {
	return func(ctx telebot.Context) error {
		userID := ctx.Sender().ID

		isAdmin, err := b.isAdmin(userID)
		if err != nil {
			b.log.Error("Failed to check admin flag", "id", userID, "error", err)
			return ctx.Send("Access verification error.")
		}
		if !isAdmin {
			b.log.Info("Admin access denied", "username", ctx.Sender().Username, "id", userID)
			if ctx.Callback() != nil {
				return ctx.Respond(&telebot.CallbackResponse{Text: "Admins only.", ShowAlert: true})
			}
			return ctx.Send("⛔ This command is for administrators only.")
		}

		return next(ctx)
	}
}

func (b *Bot) isAdmin(userID int64) (bool, error) {
	if b.bootstrapAdmins[userID] {
		return true, nil
	}

	timeoutCtx, cancel := context.WithTimeout(context.Background(), accessCheckTimeout)
	defer cancel()

	return b.usrepo.IsAdmin(timeoutCtx, userID)
}

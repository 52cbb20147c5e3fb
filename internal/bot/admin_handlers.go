package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/oltinwash/backend/internal/models"
	"github.com/oltinwash/backend/internal/report"
	"github.com/oltinwash/backend/internal/repository"
	"gopkg.in/telebot.v4"
)

const (
	stateAwaitingAddUser    = "awaiting_add_user"
	stateAwaitingDeleteUser = "awaiting_delete_user"

	reportCacheTTL = 1 * time.Hour
)

func (b *Bot) setAdminState(userID int64, state string) {
	b.adminMu.Lock()
	defer b.adminMu.Unlock()
	b.adminStates[userID] = state
}

// takeAdminState gets and immediately deletes the pending admin action.
func (b *Bot) takeAdminState(userID int64) (string, bool) {
	b.adminMu.Lock()
	defer b.adminMu.Unlock()

	state, ok := b.adminStates[userID]
	if ok {
		delete(b.adminStates, userID)
	}
	return state, ok
}

// addUserHandler asks the admin for the telegram id to allow.
func (b *Bot) addUserHandler(ctx telebot.Context) error {
	b.metrics.CommandReceived.WithLabelValues("/adduser").Inc()
	b.log.Info("Admin initiated user addition", "user", ctx.Sender().ID)

	b.setAdminState(ctx.Sender().ID, stateAwaitingAddUser)
	return ctx.Send("➕ Send the telegram id to add, digits only:")
}

// deleteUserHandler asks the admin for the telegram id to remove.
func (b *Bot) deleteUserHandler(ctx telebot.Context) error {
	b.metrics.CommandReceived.WithLabelValues("/deluser").Inc()
	b.log.Info("Admin initiated user deletion", "user", ctx.Sender().ID)

	b.setAdminState(ctx.Sender().ID, stateAwaitingDeleteUser)
	return ctx.Send("➖ Send the telegram id to remove, digits only:")
}

// adminTextHandler completes a pending add or delete with the typed id.
// Only unsigned digit strings are accepted.
func (b *Bot) adminTextHandler(ctx telebot.Context, state string) error {
	adminID := ctx.Sender().ID
	text := strings.TrimSpace(ctx.Text())

	targetID, err := strconv.ParseInt(text, 10, 64)
	if err != nil || targetID <= 0 || strings.ContainsAny(text, "+- .") {
		return ctx.Send("❌ That is not a valid id. Digits only, try the command again.")
	}

	timeoutCtx, cancel := context.WithTimeout(context.Background(), repoTimeout)
	defer cancel()

	switch state {
	case stateAwaitingAddUser:
		user := models.TelegramUser{TelegramID: targetID, FirstName: "", IsAdmin: false}
		if err = b.usrepo.CreateTelegramUser(timeoutCtx, user); err != nil {
			b.log.Error("Failed to add telegram user", "admin", adminID, "target", targetID, "error", err)
			return ctx.Send(ErrInternal)
		}
		b.log.Info("User added to allow-list", "admin", adminID, "target", targetID)
		return ctx.Send(fmt.Sprintf("✅ User %d now has access.", targetID))
	case stateAwaitingDeleteUser:
		if targetID == adminID {
			b.log.Info("Admin tried to delete themselves", "admin", adminID)
			return ctx.Send("🙅 You cannot remove yourself.")
		}
		target, err := b.usrepo.GetTelegramUser(timeoutCtx, targetID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ctx.Send(fmt.Sprintf("🤷 User %d is not on the list.", targetID))
			}
			b.log.Error("Failed to look up telegram user", "admin", adminID, "target", targetID, "error", err)
			return ctx.Send(ErrInternal)
		}
		if err = b.usrepo.DeleteTelegramUser(timeoutCtx, targetID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ctx.Send(fmt.Sprintf("🤷 User %d is not on the list.", targetID))
			}
			b.log.Error("Failed to delete telegram user", "admin", adminID, "target", targetID, "error", err)
			return ctx.Send(ErrInternal)
		}
		b.log.Info("User removed from allow-list", "admin", adminID, "target", targetID)
		name := target.FirstName
		if name == "" {
			name = "User"
		}
		return ctx.Send(fmt.Sprintf("✅ %s (%d) no longer has access.", name, targetID))
	default:
		return ctx.Send("🤖 Please use the buttons, or send /new to register an order.")
	}
}

// listUsersHandler prints the allow-list.
func (b *Bot) listUsersHandler(ctx telebot.Context) error {
	b.metrics.CommandReceived.WithLabelValues("/users").Inc()

	timeoutCtx, cancel := context.WithTimeout(context.Background(), repoTimeout)
	defer cancel()

	users, err := b.usrepo.ListTelegramUsers(timeoutCtx)
	if err != nil {
		b.log.Error("Failed to list telegram users", "error", err)
		return ctx.Send(ErrInternal)
	}
	if len(users) == 0 {
		return ctx.Send("🤷 The allow-list is empty.")
	}

	var builder strings.Builder
	builder.WriteString("👥 *Allowed users:*\n\n")
	for _, user := range users {
		role := ""
		if user.IsAdmin {
			role = " 👑"
		}
		name := user.FirstName
		if user.Username != "" {
			name = fmt.Sprintf("%s (@%s)", name, user.Username)
		}
		builder.WriteString(fmt.Sprintf(" • `%d` %s%s\n", user.TelegramID, name, role))
	}

	b.metrics.SentMessages.WithLabelValues("text").Inc()
	return ctx.Send(builder.String(), telebot.ModeMarkdown)
}

// reportMenuHandler shows the export period keyboard.
func (b *Bot) reportMenuHandler(ctx telebot.Context) error {
	b.metrics.CommandReceived.WithLabelValues("/report").Inc()

	return ctx.Send("📊 Pick a report period:", buildReportPeriodMenu())
}

// generateReportHandler builds an Excel report for the chosen period and
// sends it as a document. Finished workbooks are cached for an hour.
func (b *Bot) generateReportHandler(ctx telebot.Context) error {
	timeoutCtx, cancel := context.WithTimeout(context.Background(), photoDownloadTimeout)
	defer cancel()

	if err := ctx.Respond(); err != nil {
		b.log.Error("Failed to send respond to callback", "error", err)
	}

	from, to, periodMetric, err := b.parseReportPeriod(ctx)
	if err != nil {
		b.metrics.SentMessages.WithLabelValues("error").Inc()
		return ctx.Edit("💩 Unsupported time period", ctx.Message().ReplyMarkup)
	}

	cacheKey := fmt.Sprintf("oltinwash:report:period:%s", periodMetric)
	if sent, _ := b.sendCachedReportIfExists(timeoutCtx, ctx, cacheKey, from, to); sent {
		return nil
	}

	return b.generateAndSendReport(timeoutCtx, ctx, from, to, periodMetric, cacheKey)
}

func (b *Bot) parseReportPeriod(ctx telebot.Context) (time.Time, time.Time, string, error) {
	now := time.Now()
	switch ctx.Callback().Unique {
	case "report_period_current_month":
		from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return from, from.AddDate(0, 1, 0).Add(-time.Nanosecond), "current_1m", nil
	case "report_period_last_month":
		from := time.Date(now.Year(), now.Month()-1, 1, 0, 0, 0, 0, now.Location())
		return from, from.AddDate(0, 1, 0).Add(-time.Nanosecond), "last_1m", nil
	case "report_period_last_7_days":
		return now.AddDate(0, 0, -7), now, "last_7d", nil
	default:
		return time.Time{}, time.Time{}, "", errors.New("unsupported period")
	}
}

func (b *Bot) sendCachedReportIfExists(
	ctx context.Context,
	tbCtx telebot.Context,
	cacheKey string,
	from, to time.Time,
) (bool, error) {
	cachedReport, err := b.redisClient.Get(ctx, cacheKey).Bytes()
	if err != nil {
		b.metrics.CacheOps.WithLabelValues("get", "miss").Inc()
		return false, fmt.Errorf("failed to get report from cache: %w", err)
	}

	b.metrics.CacheOps.WithLabelValues("get", "hit").Inc()
	b.log.InfoContext(ctx, "Report found in cache", "key", cacheKey)

	b.metrics.SentMessages.WithLabelValues("edit").Inc()
	_ = tbCtx.Edit(reportReadyText(from, to), tbCtx.Message().ReplyMarkup)
	b.metrics.SentMessages.WithLabelValues("file").Inc()
	return true, tbCtx.Send(reportDocument(bytes.NewReader(cachedReport), from, to))
}

func (b *Bot) generateAndSendReport(
	ctx context.Context,
	tbCtx telebot.Context,
	from, to time.Time,
	periodMetric, cacheKey string,
) error {
	b.log.InfoContext(ctx, "Report not found in cache, generating a new one", "key", cacheKey)

	startTime := time.Now()
	totals, err := b.orrepo.DailyTotals(ctx, from, to)
	b.metrics.DBQueryDuration.WithLabelValues("daily_totals").Observe(time.Since(startTime).Seconds())
	if err != nil {
		b.log.ErrorContext(ctx, "Failed to load daily totals", "error", err)
		b.metrics.SentMessages.WithLabelValues("error").Inc()
		return tbCtx.Edit(ErrInternal, tbCtx.Message().ReplyMarkup)
	}

	reportBuffer, err := report.GenerateExcelReport(report.Aggregate(totals), from, to)
	b.metrics.ReportGeneration.WithLabelValues(periodMetric).Observe(time.Since(startTime).Seconds())
	if err != nil {
		if errors.Is(err, report.ErrNoOrders) {
			b.metrics.SentMessages.WithLabelValues("edit").Inc()
			return tbCtx.Edit("💩 There are no orders for the selected period.", tbCtx.Message().ReplyMarkup)
		}
		b.metrics.SentMessages.WithLabelValues("error").Inc()
		b.log.ErrorContext(ctx, "Failed to generate report", "error", err)
		return tbCtx.Edit(ErrInternal, tbCtx.Message().ReplyMarkup)
	}

	if err = b.redisClient.Set(ctx, cacheKey, reportBuffer.Bytes(), reportCacheTTL).Err(); err != nil {
		b.metrics.CacheOps.WithLabelValues("set", "error").Inc()
		b.log.ErrorContext(ctx, "Failed to save report to cache", "error", err, "key", cacheKey)
	} else {
		b.metrics.CacheOps.WithLabelValues("set", "success").Inc()
	}

	b.log.InfoContext(ctx, "Successfully generated report", "period", periodMetric)
	b.metrics.SentMessages.WithLabelValues("edit").Inc()
	_ = tbCtx.Edit(reportReadyText(from, to), tbCtx.Message().ReplyMarkup)
	b.metrics.SentMessages.WithLabelValues("file").Inc()
	return tbCtx.Send(reportDocument(reportBuffer, from, to))
}

func reportReadyText(from, to time.Time) string {
	return fmt.Sprintf(
		"📊 Your report for the period %s to %s is ready.",
		from.Format("02.01.2006"),
		to.Format("02.01.2006"),
	)
}

func reportDocument(reader io.Reader, from, to time.Time) *telebot.Document {
	return &telebot.Document{
		File:     telebot.FromReader(reader),
		FileName: fmt.Sprintf("report_%s_%s.xlsx", from.Format("2006-01-02"), to.Format("2006-01-02")),
		MIME:     "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	}
}

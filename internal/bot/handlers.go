package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"time"

	"github.com/oltinwash/backend/internal/bot/flow"
	"github.com/oltinwash/backend/internal/order"
	"github.com/oltinwash/backend/internal/repository"
	"gopkg.in/telebot.v4"
)

const (
	// ErrInternal is the generic user-facing failure message.
	ErrInternal = "🚫 Internal server error, please try again later"

	msgRestart = "⚠️ That selection is no longer valid. Send /new to start over."

	repoTimeout          = 5 * time.Second
	photoDownloadTimeout = 30 * time.Second
)

// startHandler process command /start.
func (b *Bot) startHandler(ctx telebot.Context) error {
	b.metrics.CommandReceived.WithLabelValues("/start").Inc()
	userID := ctx.Sender().ID
	b.log.Info("User started the bot", "id", userID, "username", ctx.Sender().Username)

	timeoutCtx, cancel := context.WithTimeout(context.Background(), repoTimeout)
	defer cancel()

	if err := b.usrepo.TouchTelegramUser(timeoutCtx, userID, ctx.Sender().FirstName, ctx.Sender().Username); err != nil {
		b.log.Warn("Failed to refresh telegram user", "id", userID, "error", err)
	}

	total, err := b.orrepo.CountOrders(timeoutCtx)
	if err != nil {
		b.log.Error("Failed to count orders", "error", err)
		return ctx.Send(ErrInternal)
	}

	greeting := fmt.Sprintf("🚿 Welcome to the wash desk!\nOrders registered so far: %d.", total)
	if isAdmin, _ := b.isAdmin(userID); isAdmin {
		greeting += "\n\nAdmin commands: /users, /adduser, /deluser, /report."
	}
	if err = ctx.Send(greeting); err != nil {
		return err
	}

	return b.newOrderHandler(ctx)
}

// newOrderHandler starts a fresh order conversation, discarding any
// draft the user had in flight.
func (b *Bot) newOrderHandler(ctx telebot.Context) error {
	b.metrics.CommandReceived.WithLabelValues("/new").Inc()

	return b.dispatch(ctx, flow.Event{Kind: flow.EventStart})
}

// dispatch advances the sender's draft with one event and renders the
// resulting prompt.
func (b *Bot) dispatch(ctx telebot.Context, event flow.Event) error {
	userID := ctx.Sender().ID

	draft := b.sessions.Get(userID)
	draft, effect := flow.Advance(draft, event)

	if effect == flow.EffectCancelled {
		b.sessions.Clear(userID)
	} else {
		b.sessions.Set(userID, draft)
	}

	return b.renderEffect(ctx, draft, effect)
}

func (b *Bot) renderEffect(ctx telebot.Context, draft flow.Draft, effect flow.Effect) error {
	timeoutCtx, cancel := context.WithTimeout(context.Background(), repoTimeout)
	defer cancel()

	switch effect {
	case flow.EffectPromptService:
		services, err := b.carepo.ListServices(timeoutCtx)
		if err != nil {
			b.log.Error("Failed to list services", "error", err)
			return ctx.Send(ErrInternal)
		}
		if len(services) == 0 {
			return ctx.Send("😕 No services are configured yet.")
		}
		b.metrics.SentMessages.WithLabelValues("text").Inc()
		return ctx.Send("🧽 Choose a service:", buildServiceMenu(services))
	case flow.EffectPromptClass:
		classes, err := b.carepo.ListServiceClasses(timeoutCtx, draft.ServiceID)
		if err != nil {
			b.log.Error("Failed to list service classes", "error", err, "service", draft.ServiceID)
			return ctx.Send(ErrInternal)
		}
		if len(classes) == 0 {
			return ctx.Send("😕 This service has no price classes yet. Send /new to start over.")
		}
		b.metrics.SentMessages.WithLabelValues("text").Inc()
		return ctx.Send("🚗 Choose a vehicle class:", buildClassMenu(classes))
	case flow.EffectPromptEmployee:
		employees, err := b.carepo.ListActiveEmployees(timeoutCtx)
		if err != nil {
			b.log.Error("Failed to list employees", "error", err)
			return ctx.Send(ErrInternal)
		}
		if len(employees) == 0 {
			return ctx.Send("😕 No active washers available.")
		}
		b.metrics.SentMessages.WithLabelValues("text").Inc()
		return ctx.Send("🧑‍🔧 Who washes the car?", buildEmployeeMenu(employees))
	case flow.EffectPromptPrice:
		b.metrics.SentMessages.WithLabelValues("text").Inc()
		return ctx.Send("💰 Confirm the price:", buildPriceMenu(draft.DefaultPrice, draft.HasDefaultPrice))
	case flow.EffectPromptCustomPrice:
		b.metrics.SentMessages.WithLabelValues("text").Inc()
		return ctx.Send("✏️ Enter the amount, digits only:")
	case flow.EffectPromptPhoto:
		b.metrics.SentMessages.WithLabelValues("text").Inc()
		return ctx.Send("📸 Send a photo of the car to finish the order.")
	case flow.EffectCancelled:
		b.metrics.SentMessages.WithLabelValues("text").Inc()
		return ctx.Send("🗑 Order cancelled. Send /new to start again.")
	default:
		return nil
	}
}

// serviceChosenHandler handles a tap on a service button.
func (b *Bot) serviceChosenHandler(ctx telebot.Context) error {
	defer func() { _ = ctx.Respond() }()

	serviceID, err := strconv.Atoi(ctx.Data())
	if err != nil {
		b.log.Error("Invalid service ID in callback", "error", err, "data", ctx.Data())
		return ctx.Send(msgRestart)
	}

	timeoutCtx, cancel := context.WithTimeout(context.Background(), repoTimeout)
	defer cancel()

	services, err := b.carepo.ListServices(timeoutCtx)
	if err != nil {
		b.log.Error("Failed to list services", "error", err)
		return ctx.Send(ErrInternal)
	}

	name := ""
	for _, svc := range services {
		if svc.ID == serviceID {
			name = svc.Name
			break
		}
	}
	if name == "" {
		return ctx.Send(msgRestart)
	}

	return b.dispatch(ctx, flow.Event{Kind: flow.EventChooseService, ID: serviceID, Name: name})
}

// classChosenHandler handles a tap on a class button. The class is
// re-read so a tier deleted mid-conversation is caught here.
func (b *Bot) classChosenHandler(ctx telebot.Context) error {
	defer func() { _ = ctx.Respond() }()

	classID, err := strconv.Atoi(ctx.Data())
	if err != nil {
		b.log.Error("Invalid class ID in callback", "error", err, "data", ctx.Data())
		return ctx.Send(msgRestart)
	}

	timeoutCtx, cancel := context.WithTimeout(context.Background(), repoTimeout)
	defer cancel()

	class, err := b.carepo.GetServiceClass(timeoutCtx, classID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ctx.Send(msgRestart)
		}
		b.log.Error("Failed to get service class", "error", err, "class", classID)
		return ctx.Send(ErrInternal)
	}

	return b.dispatch(ctx, flow.Event{
		Kind:     flow.EventChooseClass,
		ID:       class.ID,
		Name:     class.Name.String,
		Price:    class.Price.Float64,
		HasPrice: class.Price.Valid,
	})
}

// employeeChosenHandler handles a tap on a washer button.
func (b *Bot) employeeChosenHandler(ctx telebot.Context) error {
	defer func() { _ = ctx.Respond() }()

	employeeID, err := strconv.Atoi(ctx.Data())
	if err != nil {
		b.log.Error("Invalid employee ID in callback", "error", err, "data", ctx.Data())
		return ctx.Send(msgRestart)
	}

	timeoutCtx, cancel := context.WithTimeout(context.Background(), repoTimeout)
	defer cancel()

	employee, err := b.carepo.GetEmployee(timeoutCtx, employeeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ctx.Send(msgRestart)
		}
		b.log.Error("Failed to get employee", "error", err, "employee", employeeID)
		return ctx.Send(ErrInternal)
	}

	return b.dispatch(ctx, flow.Event{Kind: flow.EventChooseEmployee, ID: employee.ID, Name: employee.FullName})
}

func (b *Bot) priceDefaultHandler(ctx telebot.Context) error {
	defer func() { _ = ctx.Respond() }()
	return b.dispatch(ctx, flow.Event{Kind: flow.EventAcceptDefaultPrice})
}

func (b *Bot) priceCustomHandler(ctx telebot.Context) error {
	defer func() { _ = ctx.Respond() }()
	return b.dispatch(ctx, flow.Event{Kind: flow.EventRequestCustomPrice})
}

func (b *Bot) backHandler(ctx telebot.Context) error {
	defer func() { _ = ctx.Respond() }()
	return b.dispatch(ctx, flow.Event{Kind: flow.EventBack})
}

func (b *Bot) cancelHandler(ctx telebot.Context) error {
	defer func() { _ = ctx.Respond() }()
	return b.dispatch(ctx, flow.Event{Kind: flow.EventCancel})
}

// textHandler routes typed input: admin id entry when an admin action is
// pending, custom price entry inside the flow, otherwise a button hint.
func (b *Bot) textHandler(ctx telebot.Context) error {
	userID := ctx.Sender().ID

	if state, ok := b.takeAdminState(userID); ok {
		return b.adminTextHandler(ctx, state)
	}

	draft := b.sessions.Get(userID)
	if draft.Step == flow.StepChoosingCustomPrice {
		return b.dispatch(ctx, flow.Event{Kind: flow.EventCustomPriceText, Text: ctx.Text()})
	}

	return ctx.Reply("🤖 Please use the buttons, or send /new to register an order.")
}

// photoHandler finishes the order once the conversation reached the
// photo step. Download failures re-prompt instead of dropping the draft.
func (b *Bot) photoHandler(ctx telebot.Context) error {
	userID := ctx.Sender().ID

	draft := b.sessions.Get(userID)
	if draft.Step != flow.StepAwaitingPhoto {
		return ctx.Reply("🤖 Please use the buttons, or send /new to register an order.")
	}

	photoMsg := ctx.Message().Photo
	if photoMsg == nil {
		return ctx.Send("📸 Please send the photo as a picture.")
	}

	data, err := b.downloadPhoto(&photoMsg.File)
	if err != nil {
		b.log.Warn("Failed to download photo", "user", userID, "error", err)
		b.metrics.SentMessages.WithLabelValues("error").Inc()
		return ctx.Send("⌛ Could not download the photo in time, please resend it.")
	}

	filename := path.Base(photoMsg.FilePath)
	if filename == "." || filename == "/" || filename == "" {
		filename = "photo.jpg"
	}

	return b.finalizeOrder(ctx, draft, data, filename)
}

// downloadPhoto fetches the file from the Bot API with a bounded wait, so
// a stuck download cannot hold the handler forever.
func (b *Bot) downloadPhoto(file *telebot.File) ([]byte, error) {
	type result struct {
		data []byte
		err  error
	}

	resultCh := make(chan result, 1)
	go func() {
		reader, err := b.bot.File(file)
		if err != nil {
			resultCh <- result{err: fmt.Errorf("failed to open photo file: %w", err)}
			return
		}
		defer reader.Close()

		data, err := io.ReadAll(reader)
		if err != nil {
			resultCh <- result{err: fmt.Errorf("failed to read photo file: %w", err)}
			return
		}
		resultCh <- result{data: data}
	}()

	select {
	case res := <-resultCh:
		return res.data, res.err
	case <-time.After(photoDownloadTimeout):
		return nil, errors.New("photo download timed out")
	}
}

// finalizeOrder persists the draft. The session is cleared on every
// outcome except a download re-prompt: a failed persist means the user
// starts over rather than retrying half-saved state.
func (b *Bot) finalizeOrder(ctx telebot.Context, draft flow.Draft, photoData []byte, filename string) error {
	userID := ctx.Sender().ID

	timeoutCtx, cancel := context.WithTimeout(context.Background(), photoDownloadTimeout)
	defer cancel()

	created, err := b.orderSvc.Create(timeoutCtx, order.CreateInput{
		ServiceClassID:  draft.ClassID,
		EmployeeID:      draft.EmployeeID,
		NegotiatedPrice: draft.Price,
		Photo:           photoData,
		PhotoFilename:   filename,
	})
	b.sessions.Clear(userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ctx.Send(msgRestart)
		}
		b.log.Error("Failed to persist order", "user", userID, "error", err)
		b.metrics.SentMessages.WithLabelValues("error").Inc()
		return ctx.Send("💥 Could not save the order. Send /new to start over.")
	}

	b.metrics.OrdersCreated.Inc()
	b.log.Info("Order registered", "user", userID, "order", created.ID)

	price := "negotiated"
	if created.NegotiatedPrice.Valid {
		price = fmt.Sprintf("%.0f", created.NegotiatedPrice.Float64)
	}
	summary := fmt.Sprintf(
		"✅ Order #%d registered!\n\n🧽 %s / %s\n🧑‍🔧 %s\n💰 %s\n📅 %s",
		created.ID,
		created.ServiceName,
		created.ClassName,
		created.EmployeeName,
		price,
		created.OrderDate.Format("02.01.2006 15:04"),
	)
	if created.Fund.Valid {
		summary += fmt.Sprintf("\n🏦 Fund: %.0f", created.Fund.Float64)
	}

	b.metrics.SentMessages.WithLabelValues("text").Inc()
	return ctx.Send(summary)
}

// Package flow holds the order-intake state machine. Transitions are a
// pure function over a Draft, so the conversation logic is testable
// without a live Telegram connection.
package flow

import (
	"errors"
	"strconv"
)

// ErrInvalidPrice is returned when a custom price is not an unsigned
// digit string.
var ErrInvalidPrice = errors.New("price must contain digits only")

// Step identifies where the user is inside the order conversation.
type Step int

const (
	StepIdle Step = iota
	StepChoosingService
	StepChoosingClass
	StepChoosingEmployee
	StepChoosingPrice
	StepChoosingCustomPrice
	StepAwaitingPhoto
)

// Draft accumulates the user's selections. Price stays nil when the user
// accepts the class default, so the save-time defaulting rule decides.
type Draft struct {
	Step            Step
	ServiceID       int
	ServiceName     string
	ClassID         int
	ClassName       string
	DefaultPrice    float64
	HasDefaultPrice bool
	EmployeeID      int
	EmployeeName    string
	Price           *float64
}

// EventKind names one user action inside the conversation.
type EventKind int

const (
	EventStart EventKind = iota
	EventChooseService
	EventChooseClass
	EventChooseEmployee
	EventAcceptDefaultPrice
	EventRequestCustomPrice
	EventCustomPriceText
	EventBack
	EventCancel
)

// Event is one input to the state machine. ID and Name carry the chosen
// catalog entry; Price carries the class default; Text carries typed input.
type Event struct {
	Kind     EventKind
	ID       int
	Name     string
	Price    float64
	HasPrice bool
	Text     string
}

// Effect tells the transport what to show after a transition.
type Effect int

const (
	EffectNone Effect = iota
	EffectPromptService
	EffectPromptClass
	EffectPromptEmployee
	EffectPromptPrice
	EffectPromptCustomPrice
	EffectPromptPhoto
	EffectCancelled
)

// Advance applies one event to the draft. Events that do not fit the
// current step leave the draft unchanged and re-prompt for it, so stray
// taps on stale keyboards cannot corrupt a session.
func Advance(d Draft, ev Event) (Draft, Effect) {
	switch ev.Kind {
	case EventCancel:
		return Draft{}, EffectCancelled
	case EventStart:
		return Draft{Step: StepChoosingService}, EffectPromptService
	case EventBack:
		return back(d)
	case EventChooseService:
		if d.Step != StepChoosingService {
			return d, promptFor(d.Step)
		}
		d.ServiceID, d.ServiceName = ev.ID, ev.Name
		d.Step = StepChoosingClass

		return d, EffectPromptClass
	case EventChooseClass:
		if d.Step != StepChoosingClass {
			return d, promptFor(d.Step)
		}
		d.ClassID, d.ClassName = ev.ID, ev.Name
		d.DefaultPrice, d.HasDefaultPrice = ev.Price, ev.HasPrice
		d.Step = StepChoosingEmployee

		return d, EffectPromptEmployee
	case EventChooseEmployee:
		if d.Step != StepChoosingEmployee {
			return d, promptFor(d.Step)
		}
		d.EmployeeID, d.EmployeeName = ev.ID, ev.Name
		d.Step = StepChoosingPrice

		return d, EffectPromptPrice
	case EventAcceptDefaultPrice:
		if d.Step != StepChoosingPrice {
			return d, promptFor(d.Step)
		}
		d.Price = nil
		d.Step = StepAwaitingPhoto

		return d, EffectPromptPhoto
	case EventRequestCustomPrice:
		if d.Step != StepChoosingPrice {
			return d, promptFor(d.Step)
		}
		d.Step = StepChoosingCustomPrice

		return d, EffectPromptCustomPrice
	case EventCustomPriceText:
		if d.Step != StepChoosingCustomPrice {
			return d, promptFor(d.Step)
		}
		price, err := ParsePrice(ev.Text)
		if err != nil {
			return d, EffectPromptCustomPrice
		}
		d.Price = &price
		d.Step = StepAwaitingPhoto

		return d, EffectPromptPhoto
	default:
		return d, promptFor(d.Step)
	}
}

// back steps one screen towards the service list, dropping the choice
// made on the screen being left.
func back(d Draft) (Draft, Effect) {
	switch d.Step {
	case StepChoosingClass:
		d.ServiceID, d.ServiceName = 0, ""
		d.Step = StepChoosingService

		return d, EffectPromptService
	case StepChoosingEmployee:
		d.ClassID, d.ClassName = 0, ""
		d.DefaultPrice, d.HasDefaultPrice = 0, false
		d.Step = StepChoosingClass

		return d, EffectPromptClass
	case StepChoosingPrice:
		d.EmployeeID, d.EmployeeName = 0, ""
		d.Step = StepChoosingEmployee

		return d, EffectPromptEmployee
	case StepChoosingCustomPrice, StepAwaitingPhoto:
		d.Price = nil
		d.Step = StepChoosingPrice

		return d, EffectPromptPrice
	default:
		return d, promptFor(d.Step)
	}
}

func promptFor(step Step) Effect {
	switch step {
	case StepChoosingService:
		return EffectPromptService
	case StepChoosingClass:
		return EffectPromptClass
	case StepChoosingEmployee:
		return EffectPromptEmployee
	case StepChoosingPrice:
		return EffectPromptPrice
	case StepChoosingCustomPrice:
		return EffectPromptCustomPrice
	case StepAwaitingPhoto:
		return EffectPromptPhoto
	default:
		return EffectNone
	}
}

// ParsePrice parses user-typed amounts. Only unsigned digit strings are
// accepted; anything else, including signs and decimal points, fails.
func ParsePrice(text string) (float64, error) {
	if text == "" {
		return 0, ErrInvalidPrice
	}
	for _, r := range text {
		if r < '0' || r > '9' {
			return 0, ErrInvalidPrice
		}
	}

	value, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return 0, ErrInvalidPrice
	}

	return float64(value), nil
}

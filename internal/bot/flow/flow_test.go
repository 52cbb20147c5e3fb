package flow_test

import (
	"testing"

	"github.com/oltinwash/backend/internal/bot/flow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func draftAtPhoto(t *testing.T) flow.Draft {
	t.Helper()

	d, _ := flow.Advance(flow.Draft{}, flow.Event{Kind: flow.EventStart})
	d, _ = flow.Advance(d, flow.Event{Kind: flow.EventChooseService, ID: 1, Name: "Мойка"})
	d, _ = flow.Advance(d, flow.Event{
		Kind: flow.EventChooseClass, ID: 7, Name: "Мойка грузовых", Price: 120000, HasPrice: true,
	})
	d, _ = flow.Advance(d, flow.Event{Kind: flow.EventChooseEmployee, ID: 3, Name: "Test Washer"})
	d, _ = flow.Advance(d, flow.Event{Kind: flow.EventAcceptDefaultPrice})
	require.Equal(t, flow.StepAwaitingPhoto, d.Step)

	return d
}

func TestAdvance_HappyPath(t *testing.T) {
	t.Parallel()

	d, effect := flow.Advance(flow.Draft{}, flow.Event{Kind: flow.EventStart})
	assert.Equal(t, flow.StepChoosingService, d.Step)
	assert.Equal(t, flow.EffectPromptService, effect)

	d, effect = flow.Advance(d, flow.Event{Kind: flow.EventChooseService, ID: 1, Name: "Мойка"})
	assert.Equal(t, flow.StepChoosingClass, d.Step)
	assert.Equal(t, flow.EffectPromptClass, effect)
	assert.Equal(t, "Мойка", d.ServiceName)

	d, effect = flow.Advance(d, flow.Event{
		Kind: flow.EventChooseClass, ID: 7, Name: "Мойка грузовых", Price: 120000, HasPrice: true,
	})
	assert.Equal(t, flow.StepChoosingEmployee, d.Step)
	assert.Equal(t, flow.EffectPromptEmployee, effect)
	assert.True(t, d.HasDefaultPrice)

	d, effect = flow.Advance(d, flow.Event{Kind: flow.EventChooseEmployee, ID: 3, Name: "Test Washer"})
	assert.Equal(t, flow.StepChoosingPrice, d.Step)
	assert.Equal(t, flow.EffectPromptPrice, effect)

	d, effect = flow.Advance(d, flow.Event{Kind: flow.EventAcceptDefaultPrice})
	assert.Equal(t, flow.StepAwaitingPhoto, d.Step)
	assert.Equal(t, flow.EffectPromptPhoto, effect)
	assert.Nil(t, d.Price, "accepting the default must leave the price unset")
}

func TestAdvance_CustomPrice(t *testing.T) {
	t.Parallel()

	d, _ := flow.Advance(flow.Draft{}, flow.Event{Kind: flow.EventStart})
	d, _ = flow.Advance(d, flow.Event{Kind: flow.EventChooseService, ID: 1})
	d, _ = flow.Advance(d, flow.Event{Kind: flow.EventChooseClass, ID: 7})
	d, _ = flow.Advance(d, flow.Event{Kind: flow.EventChooseEmployee, ID: 3})

	d, effect := flow.Advance(d, flow.Event{Kind: flow.EventRequestCustomPrice})
	assert.Equal(t, flow.StepChoosingCustomPrice, d.Step)
	assert.Equal(t, flow.EffectPromptCustomPrice, effect)

	t.Run("rejects non-digit input and keeps the draft", func(t *testing.T) {
		t.Parallel()
		got, gotEffect := flow.Advance(d, flow.Event{Kind: flow.EventCustomPriceText, Text: "95 000"})

		assert.Equal(t, d, got)
		assert.Equal(t, flow.EffectPromptCustomPrice, gotEffect)
	})

	t.Run("accepts a digit string", func(t *testing.T) {
		t.Parallel()
		got, gotEffect := flow.Advance(d, flow.Event{Kind: flow.EventCustomPriceText, Text: "95000"})

		assert.Equal(t, flow.StepAwaitingPhoto, got.Step)
		assert.Equal(t, flow.EffectPromptPhoto, gotEffect)
		require.NotNil(t, got.Price)
		assert.InEpsilon(t, 95000.0, *got.Price, 1e-9)
	})
}

func TestAdvance_StaleCallbackIsIgnored(t *testing.T) {
	t.Parallel()

	d := draftAtPhoto(t)

	got, effect := flow.Advance(d, flow.Event{Kind: flow.EventChooseService, ID: 2, Name: "Химчистка"})

	assert.Equal(t, d, got, "a stale selection must not modify the draft")
	assert.Equal(t, flow.EffectPromptPhoto, effect)
}

func TestAdvance_BackNavigation(t *testing.T) {
	t.Parallel()

	d := draftAtPhoto(t)

	d, effect := flow.Advance(d, flow.Event{Kind: flow.EventBack})
	assert.Equal(t, flow.StepChoosingPrice, d.Step)
	assert.Equal(t, flow.EffectPromptPrice, effect)
	assert.Nil(t, d.Price)

	d, effect = flow.Advance(d, flow.Event{Kind: flow.EventBack})
	assert.Equal(t, flow.StepChoosingEmployee, d.Step)
	assert.Equal(t, flow.EffectPromptEmployee, effect)
	assert.Zero(t, d.EmployeeID)

	d, effect = flow.Advance(d, flow.Event{Kind: flow.EventBack})
	assert.Equal(t, flow.StepChoosingClass, d.Step)
	assert.Equal(t, flow.EffectPromptClass, effect)
	assert.Zero(t, d.ClassID)
	assert.False(t, d.HasDefaultPrice)

	d, effect = flow.Advance(d, flow.Event{Kind: flow.EventBack})
	assert.Equal(t, flow.StepChoosingService, d.Step)
	assert.Equal(t, flow.EffectPromptService, effect)
	assert.Zero(t, d.ServiceID)
}

func TestAdvance_CancelAndRestart(t *testing.T) {
	t.Parallel()

	d := draftAtPhoto(t)

	got, effect := flow.Advance(d, flow.Event{Kind: flow.EventCancel})
	assert.Equal(t, flow.Draft{}, got)
	assert.Equal(t, flow.EffectCancelled, effect)

	got, effect = flow.Advance(d, flow.Event{Kind: flow.EventStart})
	assert.Equal(t, flow.Draft{Step: flow.StepChoosingService}, got, "restart discards the draft unconditionally")
	assert.Equal(t, flow.EffectPromptService, effect)
}

func TestParsePrice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    float64
		wantErr bool
	}{
		{name: "plain digits", input: "120000", want: 120000},
		{name: "zero", input: "0", want: 0},
		{name: "empty", input: "", wantErr: true},
		{name: "negative", input: "-500", wantErr: true},
		{name: "decimal point", input: "120.50", wantErr: true},
		{name: "spaces", input: "120 000", wantErr: true},
		{name: "letters", input: "12k", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := flow.ParsePrice(tt.input)

			if tt.wantErr {
				require.ErrorIs(t, err, flow.ErrInvalidPrice)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

package bot

import (
	"testing"
	"time"

	"github.com/oltinwash/backend/internal/bot/flow"
	"github.com/stretchr/testify/assert"
)

func TestSessionStore(t *testing.T) {
	t.Parallel()

	store := NewSessionStore()
	t.Cleanup(store.Stop)

	t.Run("missing session yields an idle draft", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, flow.Draft{}, store.Get(101))
	})

	t.Run("set then get round-trips the draft", func(t *testing.T) {
		t.Parallel()
		draft := flow.Draft{Step: flow.StepChoosingClass, ServiceID: 1, ServiceName: "Мойка"}
		store.Set(102, draft)

		assert.Equal(t, draft, store.Get(102))
	})

	t.Run("clear drops the session", func(t *testing.T) {
		t.Parallel()
		store.Set(103, flow.Draft{Step: flow.StepAwaitingPhoto})
		store.Clear(103)

		assert.Equal(t, flow.Draft{}, store.Get(103))
	})

	t.Run("sessions are isolated per user", func(t *testing.T) {
		t.Parallel()
		store.Set(104, flow.Draft{Step: flow.StepChoosingEmployee, ClassID: 7})
		store.Set(105, flow.Draft{Step: flow.StepChoosingService})

		assert.Equal(t, 7, store.Get(104).ClassID)
		assert.Zero(t, store.Get(105).ClassID)
	})

	t.Run("expired session is dropped lazily", func(t *testing.T) {
		t.Parallel()
		store.mu.Lock()
		store.sessions[106] = session{
			draft:    flow.Draft{Step: flow.StepAwaitingPhoto},
			deadline: time.Now().Add(-time.Minute),
		}
		store.mu.Unlock()

		assert.Equal(t, flow.Draft{}, store.Get(106))
	})
}

package notify_test

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/oltinwash/backend/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func TestBroadcast(t *testing.T) {
	t.Parallel()

	t.Run("success - all recipients reached", func(t *testing.T) {
		t.Parallel()

		var received []int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/sendMessage", r.URL.Path)

			var body struct {
				ChatID int64  `json:"chat_id"`
				Text   string `json:"text"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "daily summary", body.Text)
			received = append(received, body.ChatID)

			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		notifier := notify.NewNotifierWithBaseURL(newLogger(), srv.URL, []int64{11, 22})
		failures := notifier.Broadcast(t.Context(), "daily summary")

		assert.Empty(t, failures)
		assert.Equal(t, []int64{11, 22}, received)
	})

	t.Run("partial failure - errors are collected per recipient", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				ChatID int64 `json:"chat_id"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

			if body.ChatID == 22 {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		notifier := notify.NewNotifierWithBaseURL(newLogger(), srv.URL, []int64{11, 22, 33})
		failures := notifier.Broadcast(t.Context(), "daily summary")

		require.Len(t, failures, 1)
		assert.Equal(t, int64(22), failures[0].ChatID)
		assert.Contains(t, failures[0].Reason, "403")
	})
}

package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWebhookNotifier(t *testing.T) {
	var payload map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &payload))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := NewWebhookNotifier(server.URL)
	err := n.Send(context.Background(), "Zusammenfassung", "2 Rechnungen heruntergeladen")
	require.NoError(t, err)
	require.Contains(t, payload["text"], "Zusammenfassung")
	require.Contains(t, payload["text"], "2 Rechnungen heruntergeladen")
}

func TestWebhookNotifierErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	n := NewWebhookNotifier(server.URL)
	err := n.Send(context.Background(), "s", "b")
	require.Error(t, err)
}

type recordingNotifier struct {
	sent int
	err  error
}

func (n *recordingNotifier) Send(ctx context.Context, subject, body string) error {
	n.sent++
	return n.err
}

func TestMultiNotifierAttemptsAll(t *testing.T) {
	failing := &recordingNotifier{err: fmt.Errorf("smtp down")}
	working := &recordingNotifier{}

	m := NewMultiNotifier(failing, working)
	err := m.Send(context.Background(), "s", "b")
	require.Error(t, err)
	require.Equal(t, 1, failing.sent)
	require.Equal(t, 1, working.sent)
}

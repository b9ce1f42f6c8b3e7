package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFromConfig(t *testing.T) {
	assert.IsType(t, Noop{}, FromConfig("", discardLogger()))
	assert.IsType(t, &Webhook{}, FromConfig("http://example.com/hook", discardLogger()))
}

func TestWebhook_PostsJSON(t *testing.T) {
	var (
		gotBody        map[string]string
		gotContentType string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
	}))
	defer srv.Close()

	NewWebhook(srv.URL, discardLogger()).Notify(context.Background(), "New video downloaded: test.mp4")

	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "New video downloaded: test.mp4", gotBody["message"])
}

func TestWebhook_DeliveryFailuresAreSwallowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	// Neither a rejecting endpoint nor an unreachable one may panic or
	// propagate.
	NewWebhook(srv.URL, discardLogger()).Notify(context.Background(), "msg")
	NewWebhook("http://127.0.0.1:1/hook", discardLogger()).Notify(context.Background(), "msg")
}

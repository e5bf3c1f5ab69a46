package polish

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/collabpad/collabpad/internal/config"
)

func newTestClient(url string) *Client {
	return NewClient(config.PolishConfig{BaseURL: url, APIKey: "test-key", Model: "o3-mini"})
}

func TestPolishSuccess(t *testing.T) {
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "refined text"}},
			},
		})
	}))
	defer srv.Close()

	out, err := newTestClient(srv.URL).Polish(context.Background(), "rough text")
	require.NoError(t, err)
	require.Equal(t, "refined text", out)
	require.Equal(t, "o3-mini", gotReq.Model)
	require.Len(t, gotReq.Messages, 2)
	require.Equal(t, "system", gotReq.Messages[0].Role)
	require.Contains(t, gotReq.Messages[1].Content, "rough text")
}

func TestPolishUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Polish(context.Background(), "text")
	require.Error(t, err)
	require.Contains(t, err.Error(), "429")
}

func TestPolishEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Polish(context.Background(), "text")
	require.Error(t, err)
}

func TestPolishRetriesTransportFailure(t *testing.T) {
	// no listener on this port, both attempts fail at the transport level
	c := newTestClient("http://127.0.0.1:1")
	_, err := c.Polish(context.Background(), "text")
	require.Error(t, err)
}

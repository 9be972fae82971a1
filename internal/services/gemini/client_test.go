package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/amaumene/watchduo/internal/config"
	"github.com/amaumene/watchduo/internal/utils"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(
		&config.Config{GeminiAPIKey: "key", GeminiModel: "test-model"},
		utils.NewDiscardLogger(),
		WithBaseURL(server.URL),
		WithRetry(2, time.Millisecond),
		WithRateLimit(rate.Inf, 1),
	)
	require.NoError(t, err)
	return client
}

func textResponse(text string) string {
	payload, _ := json.Marshal(map[string]interface{}{
		"candidates": []interface{}{
			map[string]interface{}{"content": map[string]interface{}{
				"role":  "model",
				"parts": []interface{}{map[string]interface{}{"text": text}},
			}},
		},
	})
	return string(payload)
}

func TestGenerateSendsToolsAndReturnsText(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/test-model:generateContent", r.URL.Path)
		assert.Equal(t, "key", r.URL.Query().Get("key"))

		var request Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&request))
		require.Len(t, request.Tools, 1)
		assert.NotNil(t, request.Tools[0].GoogleSearch)

		w.Write([]byte(textResponse("https://www.youtube.com/watch?v=n9xhJrPXop4")))
	})

	text, err := client.SearchGrounded(context.Background(), "Dune trailer")
	require.NoError(t, err)
	assert.Contains(t, text, "n9xhJrPXop4")
}

func TestGenerateRetriesServerErrors(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(textResponse("ok")))
	})

	text, err := client.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGenerateDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	})

	_, err := client.Generate(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFunctionCalls(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[
			{"functionCall":{"name":"markAsWatched","args":{"title":"Dune","who":"ambos"}}}
		]}}]}`))
	})

	response, err := client.GenerateContent(context.Background(), Request{Contents: []Content{UserText("hemos visto Dune")}})
	require.NoError(t, err)

	calls := response.FunctionCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "markAsWatched", calls[0].Name)
	assert.Equal(t, "ambos", calls[0].Args["who"])
	assert.Empty(t, response.Text())
}

func TestGenerateJSONStripsCodeFences(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(textResponse("```json\n{\"title\":\"Duna\",\"description\":\"Un joven noble.\"}\n```")))
	})

	var payload struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	require.NoError(t, client.GenerateJSON(context.Background(), "translate", &payload))
	assert.Equal(t, "Duna", payload.Title)
}

func TestDecodeJSON(t *testing.T) {
	var payload map[string]string
	require.NoError(t, DecodeJSON(`Sure! {"title":"Duna"} hope it helps`, &payload))
	assert.Equal(t, "Duna", payload["title"])

	assert.Error(t, DecodeJSON("no json here", &payload))
}

package youtube

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amaumene/watchduo/internal/config"
	"github.com/amaumene/watchduo/internal/utils"
)

func TestSearchVideo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Dune 2021 trailer", r.URL.Query().Get("q"))
		w.Write([]byte(`{"items":[{"id":{"kind":"youtube#video","videoId":"n9xhJrPXop4"}}]}`))
	}))
	defer server.Close()

	client := NewClient(&config.Config{YouTubeAPIKey: "key"}, utils.NewDiscardLogger(), WithEndpoints(server.URL, ""))
	videoURL, err := client.SearchVideo(context.Background(), "Dune 2021 trailer")
	require.NoError(t, err)
	assert.Equal(t, "https://www.youtube.com/watch?v=n9xhJrPXop4", videoURL)
}

func TestSearchVideoWithoutKeyIsEmpty(t *testing.T) {
	client := NewClient(&config.Config{}, utils.NewDiscardLogger())
	videoURL, err := client.SearchVideo(context.Background(), "Dune")
	require.NoError(t, err)
	assert.Empty(t, videoURL)
}

func TestValidate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("url") {
		case "https://www.youtube.com/watch?v=n9xhJrPXop4":
			w.Write([]byte(`{"title":"Dune | Official Main Trailer"}`))
		case "https://www.youtube.com/watch?v=errorfield0":
			w.Write([]byte(`{"title":"x","error":"removed"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewClient(&config.Config{}, utils.NewDiscardLogger(), WithEndpoints("", server.URL))
	ctx := context.Background()
	assert.True(t, client.Validate(ctx, "https://www.youtube.com/watch?v=n9xhJrPXop4"))
	assert.False(t, client.Validate(ctx, "https://www.youtube.com/watch?v=errorfield0"))
	assert.False(t, client.Validate(ctx, "https://www.youtube.com/watch?v=deleted0000"))
}

func TestExtractVideoURLs(t *testing.T) {
	text := `Here: https://youtu.be/n9xhJrPXop4 and the Spanish one
	https://www.youtube.com/watch?v=U2Qp5pL3ovA&t=5s, again https://www.youtube.com/embed/n9xhJrPXop4.
	Not a video: https://www.youtube.com/channel/UCabc`

	assert.Equal(t, []string{
		"https://www.youtube.com/watch?v=n9xhJrPXop4",
		"https://www.youtube.com/watch?v=U2Qp5pL3ovA",
	}, ExtractVideoURLs(text))

	assert.Empty(t, ExtractVideoURLs("no links"))
}

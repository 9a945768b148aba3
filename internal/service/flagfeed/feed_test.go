package flagfeed

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	applogger "FarePull/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_FlattensEndpoints(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/flags", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"showPromo":true,"limits":{"max":9}}`)
	})
	mux.HandleFunc("/text", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `not json`)
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL + "/flags"
	dead.Close()

	feed := New(Config{Endpoints: []string{
		srv.URL + "/flags", srv.URL + "/text", srv.URL + "/missing", deadURL,
	}}, applogger.Nop())

	snap, err := feed.Snapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, true, snap["endpoint:showPromo"])
	assert.Equal(t, map[string]any{"max": float64(9)}, snap["endpoint:limits"])
	assert.Equal(t, 200, snap["status:"+srv.URL+"/flags"])
	assert.Equal(t, 200, snap["status:"+srv.URL+"/text"])
	assert.Equal(t, 404, snap["status:"+srv.URL+"/missing"])

	v, ok := snap["status:"+deadURL]
	assert.True(t, ok)
	assert.Nil(t, v)
	assert.Len(t, snap, 6)
}

func TestSnapshot_Canceled(t *testing.T) {
	feed := New(Config{Endpoints: []string{"http://127.0.0.1:1/x"}}, applogger.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := feed.Snapshot(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

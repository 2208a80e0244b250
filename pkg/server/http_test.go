package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/framekit/pkg/draw"
	"github.com/matzehuels/framekit/pkg/layout"
	"github.com/matzehuels/framekit/pkg/scene"
)

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestGetLayout(t *testing.T) {
	h := NewHandler(startHost(t), Options{})

	w := do(t, h, http.MethodGet, "/layout", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var snap Snapshot
	require.NoError(t, json.NewDecoder(w.Body).Decode(&snap))
	assert.Len(t, snap.Nodes, 3)
	assert.Equal(t, scene.RootName, snap.Nodes[0].Name)
}

func TestGetNode(t *testing.T) {
	h := NewHandler(startHost(t), Options{})

	w := do(t, h, http.MethodGet, "/layout/header", "")
	require.Equal(t, http.StatusOK, w.Code)
	var n scene.Node
	require.NoError(t, json.NewDecoder(w.Body).Decode(&n))
	assert.Equal(t, layout.Rect{Width: 800, Height: 50}, n.Rect)
	assert.Equal(t, draw.Visible, n.State)

	w = do(t, h, http.MethodGet, "/layout/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"UNKNOWN_ENTITY"`)
}

func TestPostResize(t *testing.T) {
	h := NewHandler(startHost(t), Options{})

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"ok", `{"width": 400, "height": 600}`, http.StatusOK},
		{"zero width", `{"width": 0, "height": 600}`, http.StatusBadRequest},
		{"too large", `{"width": 400, "height": 200000}`, http.StatusBadRequest},
		{"unknown field", `{"width": 400, "height": 600, "depth": 1}`, http.StatusBadRequest},
		{"not json", `width=400`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/resize", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}

	var snap Snapshot
	w := do(t, h, http.MethodGet, "/layout", "")
	require.NoError(t, json.NewDecoder(w.Body).Decode(&snap))
	header, _ := snap.Node("header")
	assert.Equal(t, layout.Rect{Width: 400, Height: 50}, header.Rect)
}

func TestPutVisibility(t *testing.T) {
	h := NewHandler(startHost(t), Options{})

	w := do(t, h, http.MethodPut, "/entities/body/visibility", `{"state": "collapsed"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var snap Snapshot
	require.NoError(t, json.NewDecoder(w.Body).Decode(&snap))
	body, _ := snap.Node("body")
	assert.Equal(t, draw.Collapsed, body.State)
	assert.True(t, body.Rect.IsEmpty())

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"bad state", "/entities/body/visibility", `{"state": "gone"}`, http.StatusBadRequest},
		{"unknown entity", "/entities/nope/visibility", `{"state": "hidden"}`, http.StatusNotFound},
		{"root", "/entities/root/visibility", `{"state": "hidden"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodPut, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestGetLayoutSVG(t *testing.T) {
	h := NewHandler(startHost(t), Options{})

	w := do(t, h, http.MethodGet, "/layout.svg", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/svg+xml", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), `id="box-header"`)
}

func TestMetricsRoute(t *testing.T) {
	host := startHost(t)

	w := do(t, NewHandler(host, Options{}), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "framekit_test_total", Help: "test"}))
	w = do(t, NewHandler(host, Options{Gatherer: reg}), http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "framekit_test_total 0")
}

func TestHealthz(t *testing.T) {
	w := do(t, NewHandler(startHost(t), Options{}), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

package services

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClassifierPicksBestScore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/models/yangy50/garbage-classification", r.URL.Path)
		assert.Equal(t, "Bearer hf_token", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "jpeg-bytes", string(body))
		_, _ = w.Write([]byte(`[{"label":"glass","score":0.12},{"label":"plastic","score":0.81},{"label":"metal","score":0.07}]`))
	}))
	defer srv.Close()

	c := NewHTTPClassifier(srv.URL+"/", "yangy50/garbage-classification", "hf_token", 10)
	label, err := c.Classify(context.Background(), []byte("jpeg-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "plastic", label)
}

func TestHTTPClassifierSidecarShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"predicted_class":"cardboard"}`))
	}))
	defer srv.Close()

	c := NewHTTPClassifier(srv.URL, "local", "", 0.5)
	label, err := c.Classify(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, "cardboard", label)
}

func TestHTTPClassifierErrors(t *testing.T) {
	cases := map[string]struct {
		status int
		body   string
	}{
		"non-200":       {http.StatusServiceUnavailable, `{"error":"Model is currently loading"}`},
		"error object":  {http.StatusOK, `{"error":"cannot identify image file"}`},
		"empty list":    {http.StatusOK, `[]`},
		"empty body":    {http.StatusOK, ``},
		"garbage":       {http.StatusOK, `<html>`},
		"missing label": {http.StatusOK, `{}`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c := NewHTTPClassifier(srv.URL, "m", "", 100)
			_, err := c.Classify(context.Background(), []byte("img"))
			assert.Error(t, err)
		})
	}
}

func TestHTTPClassifierHonoursCancelledContext(t *testing.T) {
	c := NewHTTPClassifier("http://127.0.0.1:0", "m", "", 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Classify(ctx, []byte("img"))
	assert.Error(t, err)
}

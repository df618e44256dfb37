package netx

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSend_PostsBytes(t *testing.T) {
	var gotBody []byte
	var gotCT, gotAuth, gotMethod string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotCT = r.Header.Get("Content-Type")
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"ok":5}`))
	}))
	defer ts.Close()

	h := http.Header{}
	h.Set("Authorization", "Bearer t")
	out, err := Send(context.Background(), ts.Client(), http.MethodPost, ts.URL, h, []byte("hello"))
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "application/octet-stream", gotCT)
	assert.Equal(t, "Bearer t", gotAuth)
	assert.Equal(t, []byte("hello"), gotBody)
	assert.JSONEq(t, `{"ok":5}`, string(out))
}

func TestSend_StatusError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"missing region parameter"}`))
	}))
	defer ts.Close()

	_, err := Send(context.Background(), ts.Client(), http.MethodGet, ts.URL, nil, nil)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
	assert.Equal(t, "missing region parameter", se.Message)
}

func TestSend_PlainTextError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusTeapot)
	}))
	defer ts.Close()

	_, err := Send(context.Background(), ts.Client(), http.MethodGet, ts.URL, nil, nil)
	assert.EqualError(t, err, "http 418: nope")
}

func TestSend_TransportError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	_, err := Send(context.Background(), http.DefaultClient, http.MethodGet, url, nil, nil)
	require.Error(t, err)
	var se *StatusError
	assert.False(t, errors.As(err, &se))
}

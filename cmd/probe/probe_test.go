package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerator_StaysInRange(t *testing.T) {
	g := newGenerator(42)
	for i := 0; i < 500; i++ {
		r := g.next()
		assert.GreaterOrEqual(t, r.PH, 5.5)
		assert.LessOrEqual(t, r.PH, 9.5)
		assert.GreaterOrEqual(t, r.NTU, 0.1)
		assert.GreaterOrEqual(t, r.TDS, 50.0)
		assert.LessOrEqual(t, r.TDS, 900.0)
	}
}

func TestGenerator_Deterministic(t *testing.T) {
	a, b := newGenerator(7), newGenerator(7)
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.next(), b.next())
	}
}

func TestHTTPSender_PostsForm(t *testing.T) {
	type captured struct {
		contentType string
		path        string
		ph, ntu     string
		tds         string
	}
	gotCh := make(chan captured, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		gotCh <- captured{
			contentType: r.Header.Get("Content-Type"),
			path:        r.URL.Path,
			ph:          r.PostForm.Get("ph"),
			ntu:         r.PostForm.Get("ntu"),
			tds:         r.PostForm.Get("tds"),
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	s := newHTTPSender(srv.URL + "/")
	require.NoError(t, s.send(context.Background(), newGenerator(1).next()))

	got := <-gotCh
	assert.Equal(t, "application/x-www-form-urlencoded", got.contentType)
	assert.Equal(t, "/insert", got.path)
	assert.NotEmpty(t, got.ph)
	assert.NotEmpty(t, got.ntu)
	assert.NotEmpty(t, got.tds)
}

func TestHTTPSender_RejectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "missing fields", http.StatusBadRequest)
	}))
	defer srv.Close()

	err := newHTTPSender(srv.URL).send(context.Background(), newGenerator(1).next())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}

func TestRun_HTTPCount(t *testing.T) {
	var n atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n.Add(1)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	err := run(context.Background(), options{
		mode:     "http",
		url:      srv.URL,
		probeID:  "test",
		interval: time.Millisecond,
		count:    3,
		seed:     1,
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), n.Load())
}

func TestRun_InvalidMode(t *testing.T) {
	err := run(context.Background(), options{mode: "ble", interval: time.Second})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid mode")
}

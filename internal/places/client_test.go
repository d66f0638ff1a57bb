package places_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bstardust/memorable/internal/places"
	"github.com/bstardust/memorable/internal/retry"
	"github.com/bstardust/memorable/pkg/common"
)

func fastRetry(n int) places.Option {
	return places.WithRetry(retry.Config{
		MaxRetries:     n,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
		BackoffFactor:  1,
	})
}

const overpassBody = `{"elements":[
  {"type":"node","id":1,"lat":48.8584,"lon":2.2945,"tags":{"name":"Tour Eiffel","tourism":"attraction"}},
  {"type":"way","id":7,"center":{"lat":48.8590,"lon":2.2950},"tags":{"name":"Champ de Mars","leisure":"park"}},
  {"type":"node","id":2,"lat":48.8585,"lon":2.2946,"tags":{"highway":"crossing"}}
]}`

func TestOverpassSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-agent/1", r.UserAgent())
		assert.NoError(t, r.ParseForm())
		assert.Contains(t, r.PostForm.Get("data"), `node["name"](around:150,48.8584,2.2945)`)
		assert.Contains(t, r.PostForm.Get("data"), "out center;")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, overpassBody)
	}))
	defer srv.Close()

	c := places.NewOverpassClient(srv.URL, places.WithUserAgent("test-agent/1"))
	pois, err := c.Search(context.Background(), 48.8584, 2.2945, 150)
	require.NoError(t, err)
	require.Len(t, pois, 2)

	assert.Equal(t, "node/1", pois[0].ID)
	assert.Equal(t, "Tour Eiffel", pois[0].Name)
	assert.Equal(t, 48.8584, *pois[0].Latitude)

	assert.Equal(t, "way/7", pois[1].ID)
	assert.Equal(t, 48.8590, *pois[1].Latitude)
	assert.Equal(t, 2.2950, *pois[1].Longitude)
	assert.Equal(t, "park", pois[1].Tags["leisure"])
}

func TestOverpassRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, overpassBody)
	}))
	defer srv.Close()

	c := places.NewOverpassClient(srv.URL, fastRetry(3))
	pois, err := c.Search(context.Background(), 48.8584, 2.2945, 100)
	require.NoError(t, err)
	assert.Len(t, pois, 2)
	assert.Equal(t, int32(3), calls.Load())
}

func TestOverpassDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad query", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := places.NewOverpassClient(srv.URL, fastRetry(3)).Search(context.Background(), 0, 0, 100)
	assert.ErrorIs(t, err, common.ErrNetworkFailure)
	assert.Contains(t, err.Error(), "http 400")
	assert.Equal(t, int32(1), calls.Load())
}

func TestOverpassDeadlineIsTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := places.NewOverpassClient(srv.URL, fastRetry(2)).Search(ctx, 0, 0, 100)
	assert.ErrorIs(t, err, common.ErrTimeout)
	assert.NotErrorIs(t, err, common.ErrNetworkFailure)
}

func TestOverpassUnreachableIsNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := places.NewOverpassClient(url, fastRetry(0)).Search(context.Background(), 0, 0, 100)
	assert.ErrorIs(t, err, common.ErrNetworkFailure)
}

func TestOverpassValidatesInput(t *testing.T) {
	c := places.NewOverpassClient("http://127.0.0.1:1")
	_, err := c.Search(context.Background(), 0, 181, 100)
	assert.ErrorIs(t, err, common.ErrValidation)
	_, err = c.Search(context.Background(), 0, 0, 0)
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestNominatimReverse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "jsonv2", q.Get("format"))
		assert.Equal(t, "40.6892", q.Get("lat"))
		assert.Equal(t, "-74.0445", q.Get("lon"))
		assert.NotEmpty(t, r.UserAgent())
		fmt.Fprint(w, `{"display_name":"Statue of Liberty, New York, United States","address":{"tourism":"Statue of Liberty","country_code":"us"}}`)
	}))
	defer srv.Close()

	addr, err := places.NewNominatimClient(srv.URL+"/").Reverse(context.Background(), 40.6892, -74.0445)
	require.NoError(t, err)
	assert.Equal(t, "Statue of Liberty, New York, United States", addr.Address)
	assert.Equal(t, "us", addr.Details["country_code"])
}

func TestNominatimReverseNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":"Unable to geocode"}`)
	}))
	defer srv.Close()

	c := places.NewNominatimClient(srv.URL)
	_, err := c.Reverse(context.Background(), 0, -30)
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = c.Reverse(context.Background(), -91, 0)
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestNominatimMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html>`)
	}))
	defer srv.Close()

	_, err := places.NewNominatimClient(srv.URL, fastRetry(2)).Reverse(context.Background(), 1, 1)
	assert.ErrorIs(t, err, common.ErrNetworkFailure)
}

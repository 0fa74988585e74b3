package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"reservation-service/internal/redisclient"
	"reservation-service/internal/store"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalogServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		switch r.URL.Path {
		case "/cars/7":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"id":7,"company":"Lada","car_name":"Niva","price_per_day":100,"is_available":true}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestQuoteInclusiveDayCount(t *testing.T) {
	var hits int32
	srv := newCatalogServer(t, &hits)
	defer srv.Close()

	cc := NewCatalogClient(srv.URL, nil, time.Minute)

	quote, err := cc.Quote(context.Background(), 7, "2024-01-10", "2024-01-12")
	require.NoError(t, err)
	assert.Equal(t, int64(3), quote.DayCount)
	assert.Equal(t, int64(300), quote.TotalPrice)

	// A single-day rental costs one day.
	quote, err = cc.Quote(context.Background(), 7, "2024-01-10", "2024-01-10")
	require.NoError(t, err)
	assert.Equal(t, int64(1), quote.DayCount)
	assert.Equal(t, int64(100), quote.TotalPrice)
}

func TestQuoteInvalidRange(t *testing.T) {
	var hits int32
	srv := newCatalogServer(t, &hits)
	defer srv.Close()

	cc := NewCatalogClient(srv.URL, nil, time.Minute)

	_, err := cc.Quote(context.Background(), 7, "2024-01-12", "2024-01-10")
	assert.ErrorIs(t, err, ErrInvalidRange)
	// Validation happens before the catalog is consulted.
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
}

func TestQuoteUnknownCar(t *testing.T) {
	var hits int32
	srv := newCatalogServer(t, &hits)
	defer srv.Close()

	cc := NewCatalogClient(srv.URL, nil, time.Minute)

	_, err := cc.Quote(context.Background(), 99, "2024-01-10", "2024-01-12")
	assert.ErrorIs(t, err, store.ErrCarNotFound)
}

func TestGetCarUsesCache(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	cache, err := redisclient.NewClient(mr.Addr(), "", 0)
	require.NoError(t, err)
	defer cache.Close()

	var hits int32
	srv := newCatalogServer(t, &hits)
	defer srv.Close()

	cc := NewCatalogClient(srv.URL, cache, time.Minute)

	car, err := cc.GetCar(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(100), car.PricePerDay)
	require.Equal(t, int32(1), atomic.LoadInt32(&hits))

	// Second lookup is served from Redis.
	car, err = cc.GetCar(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(100), car.PricePerDay)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

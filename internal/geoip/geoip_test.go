package geoip

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsLocal(t *testing.T) {
	tests := []struct {
		ip       string
		local    bool
		routable bool
	}{
		{"127.0.0.1", true, false},
		{"::1", true, false},
		{"10.1.2.3", true, false},
		{"172.16.0.9", true, false},
		{"172.32.0.1", false, true},
		{"192.168.1.1", true, false},
		{"::ffff:192.168.1.1", true, false},
		{"169.254.10.10", true, false},
		{"0.0.0.0", true, false},
		{"fd00::1", true, false},
		{"93.84.112.1", false, true},
		{"2a00:1450:4025::64", false, true},
		{"not-an-ip", false, false},
		{"", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			assert.Equal(t, tt.local, IsLocal(tt.ip), "IsLocal")
			assert.Equal(t, tt.routable, Routable(tt.ip), "Routable")
		})
	}
}

func TestLookup_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/93.84.112.1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"country":"Belarus","city":"Minsk","latitude":53.9,"longitude":27.5}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", time.Second, 0, 1)
	geo, err := c.Lookup(context.Background(), "93.84.112.1")
	require.NoError(t, err)
	assert.Equal(t, "Belarus", geo.Country)
	assert.Equal(t, "Minsk", geo.City)
	assert.InDelta(t, 53.9, geo.Latitude, 1e-9)
	assert.InDelta(t, 27.5, geo.Longitude, 1e-9)
}

func TestLookup_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"unsuccessful", http.StatusOK, `{"success":false,"message":"Reserved range"}`},
		{"server error", http.StatusInternalServerError, `oops`},
		{"malformed", http.StatusOK, `{"success":tru`},
		{"missing coordinates", http.StatusOK, `{"success":true,"country":"Belarus","city":"Minsk"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			geo, err := NewClient(srv.URL, time.Second, 0, 1).Lookup(context.Background(), "93.84.112.1")
			assert.Nil(t, geo)
			assert.True(t, errors.Is(err, ErrLookupFailed), "got %v", err)
		})
	}
}

func TestLookup_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, 20*time.Millisecond, 0, 1).Lookup(context.Background(), "8.8.8.8")
	assert.ErrorIs(t, err, ErrLookupFailed)
}

func TestLookup_RateLimited(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"success":false}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, 0.001, 1)
	_, _ = c.Lookup(context.Background(), "8.8.8.8")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Lookup(ctx, "8.8.4.4")
	assert.ErrorIs(t, err, ErrLookupFailed)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

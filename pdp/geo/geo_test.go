package geo

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dev-mohitbeniwal/echo/authorizer/model"
	"github.com/dev-mohitbeniwal/echo/authorizer/pdp/cache"
)

func TestClassifyIP(t *testing.T) {
	tests := []struct {
		ip   string
		want IPClass
	}{
		{"10.1.2.3", IPPrivate},
		{"192.168.0.10", IPPrivate},
		{"172.16.5.4", IPPrivate},
		{"127.0.0.1", IPPrivate},
		{"::1", IPPrivate},
		{"fd00::1", IPPrivate},
		{"::ffff:10.0.0.1", IPPrivate},
		{"8.8.8.8", IPPublic},
		{" 201.10.0.1 ", IPPublic},
		{"2001:4860:4860::8888", IPPublic},
		{"999.1.1.1", IPMalformed},
		{"not-an-ip", IPMalformed},
		{"", IPUnknown},
		{"0.0.0.0", IPUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyIP(tt.ip))
		})
	}
}

func TestTableResolver(t *testing.T) {
	r := NewTableResolver(DefaultTable(), "us")
	ctx := context.Background()

	assert.Equal(t, "US", r.ResolveCountry(ctx, "8.8.8.8"))
	assert.Equal(t, "MX", r.ResolveCountry(ctx, "201.1.1.1"))
	assert.Equal(t, "CA", r.ResolveCountry(ctx, "200.1.1.1"))
	assert.Equal(t, "US", r.ResolveCountry(ctx, "192.168.1.1"))
	assert.Equal(t, model.UnknownCountry, r.ResolveCountry(ctx, "1.1.1.1"))
	assert.Equal(t, model.UnknownCountry, r.ResolveCountry(ctx, "garbage"))

	t.Run("longest prefix wins", func(t *testing.T) {
		r := NewTableResolver(map[string]string{"201.0.0.0/8": "MX", "201.5.0.0/16": "BR", "bad": "XX"}, "")
		assert.Equal(t, "BR", r.ResolveCountry(ctx, "201.5.1.1"))
		assert.Equal(t, "MX", r.ResolveCountry(ctx, "201.6.1.1"))
		assert.Equal(t, model.UnknownCountry, r.ResolveCountry(ctx, "10.0.0.1"))
	})
}

func TestIPAPIClient(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves country", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/json/8.8.8.8", r.URL.Path)
			fmt.Fprint(w, `{"status":"success","countryCode":"us"}`)
		}))
		defer srv.Close()

		c := NewIPAPIClient(srv.URL+"/json", time.Second)
		assert.Equal(t, "US", c.ResolveCountry(ctx, "8.8.8.8"))
	})

	t.Run("provider failure is unknown", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"status":"fail","message":"reserved range"}`)
		}))
		defer srv.Close()

		c := NewIPAPIClient(srv.URL+"/json/", time.Second)
		assert.Equal(t, model.UnknownCountry, c.ResolveCountry(ctx, "8.8.8.8"))
	})

	t.Run("http error is unknown", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		assert.Equal(t, model.UnknownCountry, NewIPAPIClient(srv.URL, time.Second).ResolveCountry(ctx, "8.8.8.8"))
	})

	t.Run("timeout is unknown", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
			fmt.Fprint(w, `{"status":"success","countryCode":"US"}`)
		}))
		defer srv.Close()

		c := NewIPAPIClient(srv.URL, 20*time.Millisecond)
		assert.Equal(t, model.UnknownCountry, c.ResolveCountry(ctx, "8.8.8.8"))
	})

	t.Run("private and invalid addresses skip the network", func(t *testing.T) {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
		}))
		defer srv.Close()

		c := NewIPAPIClient(srv.URL, time.Second, WithHomeCountry("co"))
		assert.Equal(t, "CO", c.ResolveCountry(ctx, "10.0.0.1"))
		assert.Equal(t, model.UnknownCountry, c.ResolveCountry(ctx, "1.2.3.4 5"))
		assert.Equal(t, model.UnknownCountry, c.ResolveCountry(ctx, ""))
		assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
	})

	t.Run("rate limited lookups are unknown", func(t *testing.T) {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			fmt.Fprint(w, `{"status":"success","countryCode":"US"}`)
		}))
		defer srv.Close()

		c := NewIPAPIClient(srv.URL, time.Second, WithRequestsPerMinute(1))
		assert.Equal(t, "US", c.ResolveCountry(ctx, "8.8.8.8"))
		assert.Equal(t, model.UnknownCountry, c.ResolveCountry(ctx, "8.8.4.4"))
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})
}

type countingResolver struct {
	calls   int
	answers map[string]string
}

func (r *countingResolver) ResolveCountry(_ context.Context, ip string) string {
	r.calls++
	if c, ok := r.answers[strings.TrimSpace(ip)]; ok {
		return c
	}
	return model.UnknownCountry
}

func TestCached(t *testing.T) {
	ctx := context.Background()
	next := &countingResolver{answers: map[string]string{"8.8.8.8": "US"}}
	r := Cached(next, cache.NewMemoryStore[string](time.Hour))

	assert.Equal(t, "US", r.ResolveCountry(ctx, "8.8.8.8"))
	assert.Equal(t, "US", r.ResolveCountry(ctx, "8.8.8.8"))
	assert.Equal(t, 1, next.calls)

	assert.Equal(t, model.UnknownCountry, r.ResolveCountry(ctx, "1.1.1.1"))
	assert.Equal(t, model.UnknownCountry, r.ResolveCountry(ctx, "1.1.1.1"))
	assert.Equal(t, 3, next.calls)
}

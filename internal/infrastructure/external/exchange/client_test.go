package exchange

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func rateServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		if r.URL.Path != "/latest/USD" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"base":"USD","rates":{"EUR":0.5,"GBP":0.25,"JPY":150}}`))
	}))
}

func TestRate(t *testing.T) {
	var hits int32
	srv := rateServer(t, &hits)
	defer srv.Close()

	client := NewClient(srv.URL, zap.NewNop())
	ctx := context.Background()

	tests := []struct {
		name string
		from string
		to   string
		want float64
	}{
		{"same currency", "USD", "USD", 1},
		{"from pivot", "USD", "EUR", 0.5},
		{"to pivot", "EUR", "USD", 2},
		{"cross rate", "EUR", "GBP", 0.5},
		{"lowercase input", "eur", "usd", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := client.Rate(ctx, tt.from, tt.to)
			if err != nil {
				t.Fatalf("Rate() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Rate(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestRateUsesCache(t *testing.T) {
	var hits int32
	srv := rateServer(t, &hits)
	defer srv.Close()

	client := NewClient(srv.URL, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := client.Rate(ctx, "EUR", "JPY"); err != nil {
			t.Fatalf("Rate() error = %v", err)
		}
	}

	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Errorf("upstream fetched %d times, want 1", got)
	}
}

func TestRateCacheExpiry(t *testing.T) {
	var hits int32
	srv := rateServer(t, &hits)
	defer srv.Close()

	client := NewClient(srv.URL, zap.NewNop(), WithTTL(-time.Second))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := client.Rate(ctx, "USD", "EUR"); err != nil {
			t.Fatalf("Rate() error = %v", err)
		}
	}

	if got := atomic.LoadInt32(&hits); got != 3 {
		t.Errorf("upstream fetched %d times, want 3 with expired cache", got)
	}
}

func TestConvert(t *testing.T) {
	var hits int32
	srv := rateServer(t, &hits)
	defer srv.Close()

	client := NewClient(srv.URL, zap.NewNop())

	converted, rate, err := client.Convert(context.Background(), 100, "EUR", "USD")
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if rate != 2 {
		t.Errorf("rate = %v, want 2", rate)
	}
	if converted != 200 {
		t.Errorf("converted = %v, want 200", converted)
	}
}

func TestUnsupportedCurrency(t *testing.T) {
	var hits int32
	srv := rateServer(t, &hits)
	defer srv.Close()

	client := NewClient(srv.URL, zap.NewNop())

	if _, err := client.Rate(context.Background(), "XXX", "USD"); err == nil {
		t.Error("expected error for unsupported currency")
	}
}

func TestUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, zap.NewNop())

	if _, _, err := client.Convert(context.Background(), 100, "EUR", "USD"); err == nil {
		t.Error("expected error when upstream fails")
	}
}

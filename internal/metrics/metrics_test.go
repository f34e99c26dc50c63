package metrics

import (
	"context"
	"testing"

	"github.com/mroshb/lid_lottery/internal/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector_Emit(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector() error = %v", err)
	}

	ctx := context.Background()
	events := []services.Event{
		{Kind: services.EventPlay, Result: "win"},
		{Kind: services.EventPlay, Result: "lose"},
		{Kind: services.EventPlay, Result: "lose"},
		{Kind: services.EventRedeem, Result: "ok"},
		{Kind: services.EventRedeem, Result: "already_redeemed"},
	}
	for _, e := range events {
		if err := c.Emit(ctx, e); err != nil {
			t.Fatalf("Emit() error = %v", err)
		}
	}

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{name: "plays win", got: testutil.ToFloat64(c.plays.WithLabelValues("win")), want: 1},
		{name: "plays lose", got: testutil.ToFloat64(c.plays.WithLabelValues("lose")), want: 2},
		{name: "redemptions ok", got: testutil.ToFloat64(c.redemptions.WithLabelValues("ok")), want: 1},
		{name: "redemptions expired", got: testutil.ToFloat64(c.redemptions.WithLabelValues("expired")), want: 0},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestNewCollector_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewCollector(reg); err != nil {
		t.Fatalf("NewCollector() error = %v", err)
	}
	if _, err := NewCollector(reg); err == nil {
		t.Error("NewCollector() expected error on duplicate registration")
	}
}

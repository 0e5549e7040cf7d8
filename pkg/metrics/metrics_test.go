package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/attribute"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(WithRegistry(reg), WithNamespace("test"))

	p.Notification(KindValue)
	p.Notification(KindValue)
	p.Notification(KindList)
	p.Binding("v-text")
	p.BindingError("v-show")
	p.ListChange(ListGrow, 2)
	p.ListChange(ListGrow, 3)
	p.LiveEvent("click", nil)
	p.LiveEvent("click", errors.New("boom"))
	p.LiveClients(2)
	p.LiveClients(-1)

	checks := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{"value notifications", p.notifications.WithLabelValues(KindValue), 2},
		{"list notifications", p.notifications.WithLabelValues(KindList), 1},
		{"bindings", p.bindings.WithLabelValues("v-text"), 1},
		{"binding errors", p.bindingErrors.WithLabelValues("v-show"), 1},
		{"list changes", p.listChanges.WithLabelValues(ListGrow), 2},
		{"list nodes", p.listNodes.WithLabelValues(ListGrow), 5},
		{"live ok", p.liveEvents.WithLabelValues("click", "success"), 1},
		{"live error", p.liveEvents.WithLabelValues("click", "error"), 1},
		{"clients", p.liveClients, 1},
	}
	for _, tt := range checks {
		t.Run(tt.name, func(t *testing.T) {
			if got := testutil.ToFloat64(tt.c); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	if n, err := testutil.GatherAndCount(reg, "test_notifications_total"); err != nil || n != 2 {
		t.Errorf("GatherAndCount = %d, %v", n, err)
	}
}

func TestOr(t *testing.T) {
	if _, ok := Or(nil).(Nop); !ok {
		t.Error("Or(nil) should be Nop")
	}
	p := NewPrometheus(WithRegistry(prometheus.NewRegistry()))
	if Or(p) != Recorder(p) {
		t.Error("Or should keep a non-nil recorder")
	}
}

func TestSpanHelpers(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "compile", attribute.Int("bindings", 3))
	if ctx == nil || span == nil {
		t.Fatal("StartSpan returned nil")
	}
	EndSpan(span, nil)

	_, span = StartSpan(context.TODO(), "failing")
	EndSpan(span, errors.New("boom"))
}

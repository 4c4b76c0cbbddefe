package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestSettlementMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewSettlementMetrics(reg)
	metrics.ObserveGatewayCall("create_charge", 250*time.Millisecond)
	metrics.IncCharge("card", "succeeded")
	metrics.IncWebhook("charge.succeeded", "applied")
	metrics.IncTransition("payment_confirmed")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "payment_charges_total", "status", "succeeded"); err != nil {
		t.Fatalf("fetch charges: %v", err)
	} else if got != 1 {
		t.Fatalf("expected charges=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "payment_webhook_events_total", "action", "charge.succeeded"); err != nil {
		t.Fatalf("fetch webhooks: %v", err)
	} else if got != 1 {
		t.Fatalf("expected webhooks=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "order_transitions_total", "event", "payment_confirmed"); err != nil {
		t.Fatalf("fetch transitions: %v", err)
	} else if got != 1 {
		t.Fatalf("expected transitions=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "payment_gateway_duration_seconds", "operation", "create_charge"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestSettlementMetricsNilRegisterer(t *testing.T) {
	metrics := NewSettlementMetrics(nil)
	metrics.ObserveGatewayCall("create_token", time.Second)
	metrics.IncCharge("", "")
	metrics.IncWebhook("", "")
	metrics.IncTransition("")
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}

package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, m := range family.GetMetric() {
			if labelsMatch(m, labels) {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func labelsMatch(m *dto.Metric, labels map[string]string) bool {
	matched := 0
	for _, pair := range m.GetLabel() {
		if want, ok := labels[pair.GetName()]; ok && want == pair.GetValue() {
			matched++
		}
	}
	return matched == len(labels)
}

func TestSchedulerMetrics_ClassifiesErrors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSchedulerMetrics(reg)

	ledgerErr := errors.New("ledger down")
	classify := func(err error) string {
		if errors.Is(err, ledgerErr) {
			return SchedulerErrorTypeLedger
		}
		return SchedulerErrorTypeUnknown
	}

	m.IncJobRun("reset_ai_usage")
	m.IncJobError("reset_ai_usage", fmt.Errorf("wrap: %w", context.DeadlineExceeded), classify)
	m.IncJobError("reset_ai_usage", fmt.Errorf("wrap: %w", ledgerErr), classify)
	m.IncJobError("reset_ai_usage", errors.New("boom"), classify)

	assert.Equal(t, 1.0, counterValue(t, reg, "staydesk_scheduler_job_runs_total", map[string]string{"job": "reset_ai_usage"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "staydesk_scheduler_job_errors_total", map[string]string{"error_type": SchedulerErrorTypeDeadlineExceeded}))
	assert.Equal(t, 1.0, counterValue(t, reg, "staydesk_scheduler_job_errors_total", map[string]string{"error_type": SchedulerErrorTypeLedger}))
	assert.Equal(t, 1.0, counterValue(t, reg, "staydesk_scheduler_job_errors_total", map[string]string{"error_type": SchedulerErrorTypeUnknown}))
}

func TestSchedulerMetrics_RegisterTwiceReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := NewSchedulerMetrics(reg)
	second := NewSchedulerMetrics(reg)

	first.AddProcessed("reset_ai_usage", 2)
	second.AddProcessed("reset_ai_usage", 3)

	assert.Equal(t, 5.0, counterValue(t, reg, "staydesk_scheduler_items_processed_total", map[string]string{"job": "reset_ai_usage"}))
}

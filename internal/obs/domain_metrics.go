package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// GPACalculationsTotal counts engine calculations by operation and outcome.
	GPACalculationsTotal *prometheus.CounterVec
	// GPAValues records the distribution of computed GPA and CGPA values.
	GPAValues *prometheus.HistogramVec
	// ManualGPARejectedTotal counts manually entered GPAs rejected as outside [0, 4].
	ManualGPARejectedTotal prometheus.Counter
	// WorkbookOperationsTotal counts workbook mutations by operation and outcome.
	WorkbookOperationsTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		GPACalculationsTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gpa_calculations_total",
			Help:      "Count of GPA engine calculations by operation and result.",
		}, []string{"operation", "result"}))
		GPAValues = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gpa_value",
			Help:      "Distribution of computed GPA values on the 4.0 scale.",
			Buckets:   []float64{0.5, 1, 1.5, 2, 2.5, 3, 3.5, 4},
		}, []string{"operation"}))
		ManualGPARejectedTotal = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gpa_manual_rejected_total",
			Help:      "Number of manually entered GPAs rejected as out of range.",
		}))
		WorkbookOperationsTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workbook_operations_total",
			Help:      "Count of workbook operations by outcome.",
		}, []string{"operation", "result"}))
	})
}

// ObserveCalculation records one engine calculation. A nil value marks an undefined result.
func ObserveCalculation(operation string, value *float64) {
	if GPACalculationsTotal == nil {
		return
	}
	if value == nil {
		GPACalculationsTotal.WithLabelValues(operation, "undefined").Inc()
		return
	}
	GPACalculationsTotal.WithLabelValues(operation, "ok").Inc()
	if GPAValues != nil {
		GPAValues.WithLabelValues(operation).Observe(*value)
	}
}

// ObserveManualRejected records n rejected manual GPA entries.
func ObserveManualRejected(n int) {
	if ManualGPARejectedTotal == nil || n <= 0 {
		return
	}
	ManualGPARejectedTotal.Add(float64(n))
}

// ObserveWorkbookOperation records a workbook operation outcome.
func ObserveWorkbookOperation(operation string, err error) {
	if WorkbookOperationsTotal == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	WorkbookOperationsTotal.WithLabelValues(operation, result).Inc()
}

package obs

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestDomainMetrics(t *testing.T) {
	MustRegisterDomainMetrics("gpa_test", prometheus.NewRegistry())

	before := testutil.ToFloat64(GPACalculationsTotal.WithLabelValues("semester", "ok"))
	v := 3.34
	ObserveCalculation("semester", &v)
	ObserveCalculation("semester", nil)
	require.Equal(t, before+1, testutil.ToFloat64(GPACalculationsTotal.WithLabelValues("semester", "ok")))
	require.GreaterOrEqual(t, testutil.ToFloat64(GPACalculationsTotal.WithLabelValues("semester", "undefined")), 1.0)

	rejected := testutil.ToFloat64(ManualGPARejectedTotal)
	ObserveManualRejected(2)
	ObserveManualRejected(0)
	require.Equal(t, rejected+2, testutil.ToFloat64(ManualGPARejectedTotal))

	ObserveWorkbookOperation("close_semester", errors.New("no valid subjects"))
	require.GreaterOrEqual(t, testutil.ToFloat64(WorkbookOperationsTotal.WithLabelValues("close_semester", "error")), 1.0)
}

func TestInitTracerWithoutExporter(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), TracingConfig{ServiceName: "gpa-api", Exporter: "none", Environment: "test"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	_, err = InitTracer(context.Background(), TracingConfig{Exporter: "zipkin"})
	require.Error(t, err)
}

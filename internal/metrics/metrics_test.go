package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	Register()
	Register()

	before := testutil.ToFloat64(statusTransitions.WithLabelValues("pending", "confirmed"))
	IncTransition("pending", "confirmed")
	assert.Equal(t, before+1, testutil.ToFloat64(statusTransitions.WithLabelValues("pending", "confirmed")))

	IncReconciliation(true)
	IncReconciliation(false)
	assert.GreaterOrEqual(t, testutil.ToFloat64(reconciliations.WithLabelValues("true")), 1.0)

	ObserveRequest("grpc", "GetReservation", "OK", time.Now())
	assert.Equal(t, 1, testutil.CollectAndCount(rpcDuration))
}

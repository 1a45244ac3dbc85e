package monitoring

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

// TestRecordError_CountsByCategory verifies increments land on the right
// category label and leave other categories untouched
func TestRecordError_CountsByCategory(t *testing.T) {
	dataBefore := testutil.ToFloat64(errorsTotal.WithLabelValues("DATA"))
	configBefore := testutil.ToFloat64(errorsTotal.WithLabelValues("CONFIG"))

	RecordError("DATA")
	RecordError("DATA")
	RecordError("CONFIG")

	assert.Equal(t, dataBefore+2, testutil.ToFloat64(errorsTotal.WithLabelValues("DATA")))
	assert.Equal(t, configBefore+1, testutil.ToFloat64(errorsTotal.WithLabelValues("CONFIG")))
}

// TestRecordDay_SplitsByOutcome verifies simulated and skipped days are
// counted separately
func TestRecordDay_SplitsByOutcome(t *testing.T) {
	simBefore := testutil.ToFloat64(daysSimulated.WithLabelValues("simulated"))
	skipBefore := testutil.ToFloat64(daysSimulated.WithLabelValues("skipped"))

	RecordDay("simulated", 0.01)
	RecordDay("skipped", 0)

	assert.Equal(t, simBefore+1, testutil.ToFloat64(daysSimulated.WithLabelValues("simulated")))
	assert.Equal(t, skipBefore+1, testutil.ToFloat64(daysSimulated.WithLabelValues("skipped")))
}

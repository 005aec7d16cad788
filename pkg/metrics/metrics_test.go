package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.UploadAccepted()
	m.UploadAccepted()
	m.UploadRejected()
	m.ResultPersisted()
	m.ResultFailed()
	m.ResultFailed()

	assert.InDelta(t, 2, testutil.ToFloat64(m.Uploads().WithLabelValues(OutcomeAccepted)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Uploads().WithLabelValues(OutcomeRejected)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ValidationResults().WithLabelValues(OutcomePersisted)), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.ValidationResults().WithLabelValues(OutcomeFailed)), 0)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 2)
}

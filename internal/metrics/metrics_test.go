package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Step(true)
	m.Step(false)
	m.Step(true)
	m.Sample()
	m.BeginCondition(2)
	m.EndCondition("converged", 1.5)
	m.SetArchiveSize(7)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.StepsTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AcceptedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SamplesTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ConditionIndex))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConditionsTotal.WithLabelValues("converged")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.ArchiveSize))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ConditionDuration))
}

func TestMetrics_Nil(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Step(true)
		m.Sample()
		m.BeginCondition(0)
		m.EndCondition("complete", 0)
		m.SetArchiveSize(1)
	})
}

func TestMetrics_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.Step(true)

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "casm_monte_steps_total 1"))
}

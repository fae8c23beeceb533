package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	m := New(nil)

	m.BillsGenerated.WithLabelValues("proration", "single").Inc()
	m.BillsGenerated.WithLabelValues("proration", "single").Inc()
	m.BillFailures.WithLabelValues("empty_input").Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.BillsGenerated.WithLabelValues("proration", "single")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BillFailures.WithLabelValues("empty_input")))
}

func TestNew_IndependentRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(nil)
		New(nil)
	})
}

func TestHandler(t *testing.T) {
	m := New(nil)
	m.PlansTerminated.Add(3)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "powerplan_plans_terminated_total 3")
}

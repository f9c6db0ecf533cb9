package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Counters(t *testing.T) {
	r := NewRecorder()

	r.ObserveEvent("dependency")
	r.ObserveEvent("dependency")
	r.ObserveEvent("script")
	r.ObservePropagation(3)
	r.ObservePropagation(0)
	r.ObserveModified(2)
	r.ObserveFileError("modify")
	r.ObserveGraph(10, 4, false)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.events.WithLabelValues("dependency")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.events.WithLabelValues("script")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.propagations))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.dependents))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.modifiedFiles))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.fileErrors.WithLabelValues("modify")))
	assert.Equal(t, 10.0, testutil.ToFloat64(r.graphFiles))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.graphEdges))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.graphBuilds.WithLabelValues("scan")))
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *Recorder

	assert.NotPanics(t, func() {
		r.ObserveEvent("dependency")
		r.ObservePropagation(1)
		r.ObserveModified(1)
		r.ObserveFileError("search")
		r.ObserveGraph(1, 1, true)
	})
	assert.Nil(t, r.Registry())
}

func TestRecorder_Handler(t *testing.T) {
	r := NewRecorder()
	r.ObserveModified(1)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "codewatch_files_modified_total 1")
}

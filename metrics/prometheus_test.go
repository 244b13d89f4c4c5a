package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sartorproj/stockcast/errs"
)

func TestRecorderCounts(t *testing.T) {
	r := New()

	r.RecordFit(nil, 20*time.Millisecond)
	r.RecordFit(errs.New(errs.NonConvergence, "iteration limit"), time.Second)
	r.RecordCache(CacheMiss)
	r.RecordCache(CacheHit)
	r.RecordCache(CacheHit)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.Fits().WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Fits().WithLabelValues("non-convergence")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.CacheRequests().WithLabelValues(CacheHit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.CacheRequests().WithLabelValues(CacheMiss)))
}

func TestRecorderRuns(t *testing.T) {
	r := New()

	r.RecordRun(nil, 1.25, 1)
	r.RecordRun(errs.New(errs.InsufficientData, "short"), 0, 0)
	r.RecordRun(errors.New("plain"), 0, 0)
	r.RecordStage("smoothed", time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.Runs().WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Runs().WithLabelValues("insufficient_data")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Runs().WithLabelValues("unclassified")))
	assert.Equal(t, 1.25, testutil.ToFloat64(r.lastRMSE))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.lastOrder))

	count, err := testutil.GatherAndCount(r.Registry(), "stockcast_stage_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder

	assert.NotPanics(t, func() {
		r.RecordFit(nil, time.Second)
		r.RecordCache(CacheHit)
		r.RecordStage("done", time.Second)
		r.RecordRun(nil, 1, 1)
	})
	assert.Nil(t, r.Registry())
	assert.NoError(t, r.WriteFile("unused"))
}

func TestWriteFile(t *testing.T) {
	r := New()
	r.RecordFit(nil, time.Millisecond)

	path := filepath.Join(t.TempDir(), "stockcast.prom")
	require.NoError(t, r.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `stockcast_model_fits_total{outcome="ok"} 1`)
}

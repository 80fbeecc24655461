package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordSearch(t *testing.T) {
	okBefore := testutil.ToFloat64(SearchRequests.WithLabelValues("narrow", "ok"))
	errBefore := testutil.ToFloat64(SearchRequests.WithLabelValues("narrow", "error"))
	resultsBefore := testutil.ToFloat64(SearchResults.WithLabelValues("narrow"))

	RecordSearch("narrow", 7, nil)
	RecordSearch("narrow", 3, errors.New("boom"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(SearchRequests.WithLabelValues("narrow", "ok")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(SearchRequests.WithLabelValues("narrow", "error")))
	assert.Equal(t, resultsBefore+7, testutil.ToFloat64(SearchResults.WithLabelValues("narrow")))
}

func TestRecordBuild(t *testing.T) {
	before := testutil.ToFloat64(BuildsCompleted.WithLabelValues("fast", "ok"))
	RecordBuild("fast", time.Now().Add(-time.Second), nil)
	assert.Equal(t, before+1, testutil.ToFloat64(BuildsCompleted.WithLabelValues("fast", "ok")))
}

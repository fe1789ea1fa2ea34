package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/fruitsalade/memfs/pkg/namespace"
)

func TestObserverRecordsOperations(t *testing.T) {
	obs := Observer()

	okBefore := testutil.ToFloat64(operationsTotal.WithLabelValues("write", "ok"))
	failBefore := testutil.ToFloat64(operationsTotal.WithLabelValues("delete", "not_found"))
	bytesBefore := testutil.ToFloat64(contentBytesWritten)

	obs.Observe(namespace.Event{Op: namespace.OpWrite, Size: 12, Entities: 4, Duration: time.Millisecond})
	obs.Observe(namespace.Event{
		Op:       namespace.OpDelete,
		Entities: 99,
		Err:      &namespace.OpError{Op: namespace.OpDelete, Path: "X", Err: namespace.ErrNotFound},
	})

	assert.Equal(t, okBefore+1, testutil.ToFloat64(operationsTotal.WithLabelValues("write", "ok")))
	assert.Equal(t, failBefore+1, testutil.ToFloat64(operationsTotal.WithLabelValues("delete", "not_found")))
	assert.Equal(t, bytesBefore+12, testutil.ToFloat64(contentBytesWritten))
	assert.Equal(t, float64(4), testutil.ToFloat64(entitiesTotal), "failed operations leave the gauge alone")
}

func TestRecordStorageOperation(t *testing.T) {
	before := testutil.ToFloat64(storageOperationsTotal.WithLabelValues("local", "put", "error"))
	RecordStorageOperation("local", "put", time.Millisecond, false)
	assert.Equal(t, before+1, testutil.ToFloat64(storageOperationsTotal.WithLabelValues("local", "put", "error")))

	RecordSnapshot("save", 100, 7)
	assert.Equal(t, float64(7), testutil.ToFloat64(snapshotEntities.WithLabelValues("save")))
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	h := Middleware(mux)

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "GET /items/{id}", "202"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/42", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/43", nil))
	assert.Equal(t, before+2, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "GET /items/{id}", "202")))
}

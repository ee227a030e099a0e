package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mcoot/racegame-go/internal/testutil"
)

func TestLoggingRecordsStatus(t *testing.T) {
	logger, logs := testutil.CaptureLogger()
	h := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/rooms", nil))

	assert.Equal(t, http.StatusTeapot, rr.Code)
	out := logs.String()
	assert.True(t, strings.Contains(out, `"status":418`), out)
	assert.True(t, strings.Contains(out, `"path":"/api/v1/rooms"`), out)
}

func TestLoggingLevels(t *testing.T) {
	logger, logs := testutil.CaptureLogger()
	status := http.StatusOK
	h := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Contains(t, logs.String(), `"level":"DEBUG"`)

	status = http.StatusNotFound
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/rooms/NONE", nil))
	assert.Contains(t, logs.String(), `"level":"WARN"`)

	status = http.StatusServiceUnavailable
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/rooms", nil))
	assert.Contains(t, logs.String(), `"level":"ERROR"`)
}

func TestLoggingWriterHijackUnsupported(t *testing.T) {
	rw := &ResponseWriter{ResponseWriter: httptest.NewRecorder()}
	_, _, err := rw.Hijack()
	assert.Error(t, err)
}

func TestLoggingWriterFlushes(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &ResponseWriter{ResponseWriter: rec}
	rw.Flush()
	assert.True(t, rec.Flushed)
	assert.Same(t, rec, rw.Unwrap())
}

func TestRecoveryInvokesHandler(t *testing.T) {
	var recovered any
	h := Recovery(testutil.NopLogger(), func(w http.ResponseWriter, _ *http.Request, err any) {
		recovered = err
		DefaultPanicHandler(w, nil, err)
	})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "kaboom", recovered)
}

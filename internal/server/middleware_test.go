package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPanicRecovery(t *testing.T) {
	s := New(nil, WithRegistry(prometheus.NewRegistry()))
	h := s.withMiddleware(func(http.ResponseWriter, *http.Request) {
		panic("kstat went away")
	})

	w := httptest.NewRecorder()
	require.NotPanics(t, func() {
		h(w, httptest.NewRequest(http.MethodGet, "/kstat/read", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), ErrCodeInternalError)
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
}

func TestResponseWriterKeepsFirstStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := newResponseWriter(rec)
	rw.WriteHeader(http.StatusTeapot)
	rw.WriteHeader(http.StatusOK)
	assert.Equal(t, http.StatusTeapot, rw.Status())
	assert.Same(t, rw, newResponseWriter(rw))

	rw = newResponseWriter(httptest.NewRecorder())
	_, err := rw.Write([]byte("x"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rw.Status())
}

func TestParseInstance(t *testing.T) {
	for in, want := range map[string]int{"*": -1, "-1": -1, "0": 0, "17": 17} {
		got, err := parseInstance(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "x", "-2", "1e3"} {
		_, err := parseInstance(in)
		assert.Error(t, err, in)
	}
}

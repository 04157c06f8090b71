package server_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kstat "github.com/illumos/go-kstat"
	"github.com/illumos/go-kstat/internal/config"
	"github.com/illumos/go-kstat/internal/server"
	"github.com/illumos/go-kstat/kstattest"
)

func testChain() *kstattest.Chain {
	c := kstattest.New().
		Add(kstat.KStat{Module: "cpu", Instance: 0, Name: "sys", Class: "misc"},
			kstattest.Named(kstattest.Uint64("syscall", 77))).
		Add(kstat.KStat{Module: "cpu", Instance: 1, Name: "sys", Class: "misc"},
			kstattest.Named(kstattest.Uint64("syscall", 88))).
		Add(kstat.KStat{Module: "sd", Instance: 0, Name: "sd0", Class: "disk"},
			kstattest.IO(kstat.IO{Reads: 9})).
		Add(kstat.KStat{Module: "acpi", Instance: 0, Name: "acpi", Class: "misc"},
			kstattest.RawBytes([]byte{1, 2, 3, 4}))
	_ = c.FailRead("acpi", 0, "acpi", errors.New("Device busy"))
	return c
}

// opener hands out Readers on fresh test chains and remembers them.
type opener struct {
	mu     sync.Mutex
	chains []*kstattest.Chain
}

func (o *opener) open(f kstat.Filter) (*kstat.Reader, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	c := testChain()
	o.chains = append(o.chains, c)
	return kstat.NewReader(f, kstat.WithControl(c))
}

type fixture struct {
	srv    *server.Server
	chain  *kstattest.Chain
	opener *opener
	reg    *prometheus.Registry
}

func newFixture(t *testing.T, c *kstattest.Chain, cfg *config.ServerConfig) *fixture {
	t.Helper()
	r, err := kstat.NewReader(kstat.NewFilter(), kstat.WithControl(c))
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	f := &fixture{chain: c, opener: &opener{}, reg: prometheus.NewRegistry()}
	opts := []server.Option{server.WithOpener(f.opener.open), server.WithRegistry(f.reg)}
	if cfg != nil {
		opts = append(opts, server.WithConfig(*cfg))
	}
	f.srv = server.New(r, opts...)
	return f
}

func (f *fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, jsoniter.Unmarshal(w.Body.Bytes(), v), "body: %s", w.Body.String())
}

func TestGet(t *testing.T) {
	f := newFixture(t, testChain(), nil)
	w := f.get(t, "/kstat/get/cpu/1/sys")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	_, err := uuid.Parse(w.Header().Get("X-Request-Id"))
	assert.NoError(t, err)

	var rec kstat.Record
	decodeBody(t, w, &rec)
	assert.Equal(t, "cpu", rec.Module)
	assert.Equal(t, 1, rec.Instance)
	assert.Equal(t, "misc", rec.Class)
	assert.Equal(t, 88.0, rec.Data["syscall"].Float())
}

func TestGetWildcards(t *testing.T) {
	f := newFixture(t, testChain(), nil)
	for _, path := range []string{"/kstat/get/*/*/sd0", "/kstat/get/sd/-1/*"} {
		w := f.get(t, path)
		require.Equal(t, http.StatusOK, w.Code, path)
		var rec kstat.Record
		decodeBody(t, w, &rec)
		assert.Equal(t, "sd0", rec.Name, path)
		assert.Equal(t, 9.0, rec.Data["reads"].Float(), path)
	}
}

func TestGetNotFound(t *testing.T) {
	f := newFixture(t, testChain(), nil)
	w := f.get(t, "/kstat/get/nosuch/3/nosuch")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	decodeBody(t, w, &body)
	assert.Equal(t, "invalid kstat", body["error"])
	assert.Equal(t, "nosuch", body["module"])
	assert.Equal(t, 3.0, body["instance"])
	assert.Equal(t, "nosuch", body["name"])
	for _, k := range []string{"data", "type", "class", "snaptime", "crtime"} {
		assert.NotContains(t, body, k)
	}
}

func TestGetBadInstance(t *testing.T) {
	f := newFixture(t, testChain(), nil)
	for _, inst := range []string{"x", "-2", "1.5"} {
		w := f.get(t, "/kstat/get/cpu/"+inst+"/sys")
		require.Equal(t, http.StatusBadRequest, w.Code, inst)

		var er server.ErrorResponse
		decodeBody(t, w, &er)
		assert.Equal(t, server.ErrCodeInvalidRequest, er.Code)
		assert.False(t, er.Retryable)
		assert.Equal(t, w.Header().Get("X-Request-Id"), er.RequestID)
		assert.Equal(t, inst, er.Details["instance"])
	}
}

func TestRequestIDPassthrough(t *testing.T) {
	f := newFixture(t, testChain(), nil)
	id := uuid.New().String()

	req := httptest.NewRequest(http.MethodGet, "/kstat/getkcid", nil)
	req.Header.Set("X-Request-Id", id)
	w := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, id, w.Header().Get("X-Request-Id"))

	req = httptest.NewRequest(http.MethodGet, "/kstat/getkcid", nil)
	req.Header.Set("X-Request-Id", "not-a-uuid")
	w = httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(w, req)
	assert.NotEqual(t, "not-a-uuid", w.Header().Get("X-Request-Id"))
}

func TestMultiGet(t *testing.T) {
	f := newFixture(t, testChain(), nil)
	w := f.get(t, "/kstat/mget/cpu/*/sys;sd0")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	var got map[string][]kstat.Record
	decodeBody(t, w, &got)
	require.Len(t, got, 2)
	require.Len(t, got["sys"], 2)
	assert.Equal(t, 77.0, got["sys"][0].Data["syscall"].Float())
	assert.Equal(t, 88.0, got["sys"][1].Data["syscall"].Float())
	// there is no cpu:*:sd0
	assert.Empty(t, got["sd0"])
	assert.Contains(t, w.Body.String(), `"sd0":[]`)

	// one Reader per name, each closed when done.
	require.Len(t, f.opener.chains, 2)
	for _, c := range f.opener.chains {
		assert.True(t, c.Closed())
	}
	assert.Zero(t, f.chain.Reads(), "mget must not use the server's own reader")
}

func TestMultiGetInstance(t *testing.T) {
	f := newFixture(t, testChain(), nil)
	w := f.get(t, "/kstat/mget/cpu/0/sys")
	require.Equal(t, http.StatusOK, w.Code)

	var got map[string][]kstat.Record
	decodeBody(t, w, &got)
	require.Len(t, got["sys"], 1)
	assert.Equal(t, 0, got["sys"][0].Instance)
}

func TestMultiGetOpenFailure(t *testing.T) {
	r, err := kstat.NewReader(kstat.NewFilter(), kstat.WithControl(testChain()))
	require.NoError(t, err)
	defer r.Close()
	srv := server.New(r,
		server.WithRegistry(prometheus.NewRegistry()),
		server.WithOpener(func(kstat.Filter) (*kstat.Reader, error) {
			return nil, &kstat.OpenError{Err: kstat.ErrUnsupported}
		}))

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/kstat/mget/cpu/*/sys", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var er server.ErrorResponse
	decodeBody(t, w, &er)
	assert.Equal(t, server.ErrCodeServiceUnavailable, er.Code)
	assert.True(t, er.Retryable)
}

func TestList(t *testing.T) {
	f := newFixture(t, testChain(), nil)
	w := f.get(t, "/kstat/list")
	require.Equal(t, http.StatusOK, w.Code)

	var ks []kstat.KStat
	decodeBody(t, w, &ks)
	require.Len(t, ks, 4)
	assert.Equal(t, "sd", ks[2].Module)
	assert.Equal(t, kstat.IoStat, ks[2].Type)
	assert.Zero(t, f.chain.Reads())
}

func TestRead(t *testing.T) {
	c := testChain().
		Add(kstat.KStat{Module: "unix", Instance: 0, Name: "kstat_headers", Class: "kstat"}, kstattest.RawBytes(make([]byte, 64))).
		Add(kstat.KStat{Module: "unix", Instance: 0, Name: "timer", Class: "misc", Type: kstat.TimerStat}, nil)
	f := newFixture(t, c, nil)
	w := f.get(t, "/kstat/read")
	require.Equal(t, http.StatusOK, w.Code)

	var recs []kstat.Record
	decodeBody(t, w, &recs)
	require.Len(t, recs, 6)
	assert.Equal(t, 77.0, recs[0].Data["syscall"].Float())
	assert.Equal(t, "acpi", recs[3].Module)
	assert.Equal(t, "Device busy", recs[3].Error)
	assert.Nil(t, recs[3].Data)

	// A raw kstat with no known layout has empty data, which is not
	// the same as no data at all.
	var raw []map[string]any
	decodeBody(t, w, &raw)
	require.Len(t, raw, 6)
	assert.Equal(t, "kstat_headers", raw[4]["name"])
	assert.Equal(t, map[string]any{}, raw[4]["data"])
	assert.Contains(t, w.Body.String(), `"data":{}`)
	assert.Equal(t, "timer", raw[5]["name"])
	assert.NotContains(t, raw[5], "data")
	assert.NotContains(t, raw[3], "data")
}

func TestUpdateFailure(t *testing.T) {
	c := testChain()
	f := newFixture(t, c, nil)
	c.FailUpdate(errors.New("EAGAIN"))

	w := f.get(t, "/kstat/read")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var er server.ErrorResponse
	decodeBody(t, w, &er)
	assert.Equal(t, server.ErrCodeServiceUnavailable, er.Code)
	assert.Contains(t, er.Message, "EAGAIN")
	assert.True(t, er.Retryable)

	w = f.get(t, "/kstat/chainupdate")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "-1", strings.TrimSpace(w.Body.String()))

	c.FailUpdate(nil)
	w = f.get(t, "/kstat/chainupdate")
	assert.Equal(t, "0", strings.TrimSpace(w.Body.String()))
}

func TestDecodeFailure(t *testing.T) {
	c := kstattest.New().Add(kstat.KStat{Module: "zfs", Instance: 0, Name: "arcstats", Class: "misc"},
		kstattest.Named(kstattest.Typed("ratio", 6, 0)))
	f := newFixture(t, c, nil)

	w := f.get(t, "/kstat/read")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	var er server.ErrorResponse
	decodeBody(t, w, &er)
	assert.Equal(t, server.ErrCodeDecodeFailed, er.Code)
	assert.False(t, er.Retryable)
	assert.Equal(t, "ratio", er.Details["field"])
	assert.Equal(t, "arcstats", er.Details["name"])
}

func TestChainUpdateAndID(t *testing.T) {
	c := testChain()
	f := newFixture(t, c, nil)

	w := f.get(t, "/kstat/getkcid")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", strings.TrimSpace(w.Body.String()))

	require.Equal(t, http.StatusOK, f.get(t, "/kstat/list").Code)
	c.Add(kstat.KStat{Module: "sd", Instance: 1, Name: "sd1", Class: "disk"}, kstattest.IO(kstat.IO{}))

	w = f.get(t, "/kstat/chainupdate")
	assert.Equal(t, "0", strings.TrimSpace(w.Body.String()))
	w = f.get(t, "/kstat/getkcid")
	assert.Equal(t, "2", strings.TrimSpace(w.Body.String()))

	var ks []kstat.KStat
	decodeBody(t, f.get(t, "/kstat/list"), &ks)
	assert.Len(t, ks, 5)
}

func TestRateLimit(t *testing.T) {
	cfg := config.Default().Server
	cfg.RateLimit = 0.001
	cfg.RateLimitBurst = 1
	f := newFixture(t, testChain(), &cfg)

	w := f.get(t, "/kstat/getkcid")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = f.get(t, "/kstat/getkcid")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	var er server.ErrorResponse
	decodeBody(t, w, &er)
	assert.Equal(t, server.ErrCodeRateLimitExceeded, er.Code)
	assert.True(t, er.Retryable)

	// health checks are not rate limited
	assert.Equal(t, http.StatusOK, f.get(t, "/health").Code)
}

func TestMethodNotAllowed(t *testing.T) {
	f := newFixture(t, testChain(), nil)
	req := httptest.NewRequest(http.MethodPost, "/kstat/list", nil)
	w := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestHealthAndReady(t *testing.T) {
	f := newFixture(t, testChain(), nil)

	w := f.get(t, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	var h server.HealthResponse
	decodeBody(t, w, &h)
	assert.Equal(t, "healthy", h.Status)

	w = f.get(t, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	f.srv.SetReady(true)
	w = f.get(t, "/ready")
	assert.Equal(t, http.StatusOK, w.Code)
	decodeBody(t, w, &h)
	assert.Equal(t, "ready", h.Status)
}

func TestMetrics(t *testing.T) {
	f := newFixture(t, testChain(), nil)
	require.Equal(t, http.StatusOK, f.get(t, "/kstat/list").Code)
	require.Equal(t, http.StatusBadRequest, f.get(t, "/kstat/get/cpu/x/sys").Code)

	w := f.get(t, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `kstat_http_requests_total{method="GET",path="GET /kstat/list",status="200"} 1`)
	assert.Contains(t, body, `path="GET /kstat/get/{module}/{instance}/{name}",status="400"} 1`)
	assert.Contains(t, body, "kstat_http_request_duration_seconds")
}

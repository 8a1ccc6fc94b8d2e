package probe

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()

	res := TCP(context.Background(), addr, time.Second)
	assert.True(t, res.Reachable)
	assert.Equal(t, "open", res.Status)

	require.NoError(t, ln.Close())
	res = TCP(context.Background(), addr, time.Second)
	assert.False(t, res.Reachable)
	assert.Error(t, res.Err)
}

func TestHTTPAndHTTPS(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	plain := httptest.NewServer(handler)
	defer plain.Close()
	tlsSrv := httptest.NewTLSServer(handler)
	defer tlsSrv.Close()

	res := HTTP(context.Background(), NewClient(time.Second, false), plain.URL)
	assert.True(t, res.Reachable, "a 404 still proves the server is up")
	assert.Equal(t, "http", res.Name)

	res = HTTP(context.Background(), NewClient(time.Second, false), plain.URL+"/broken")
	assert.False(t, res.Reachable)

	res = HTTP(context.Background(), NewClient(time.Second, false), tlsSrv.URL)
	assert.False(t, res.Reachable, "self-signed certificate is rejected by default")

	res = HTTP(context.Background(), NewClient(time.Second, true), tlsSrv.URL)
	assert.True(t, res.Reachable)
	assert.Equal(t, "https", res.Name)
}

func TestOnceCaches(t *testing.T) {
	var o Once
	var calls int32
	fn := func() Result {
		atomic.AddInt32(&calls, 1)
		return Result{Reachable: true}
	}

	assert.True(t, o.Do(fn).Reachable)
	assert.True(t, o.Do(fn).Reachable)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestHealthReady(t *testing.T) {
	cases := []struct {
		h    Health
		want bool
	}{
		{Health{Status: "ok"}, true},
		{Health{Status: "healthy", Phase: "ready"}, true},
		{Health{Status: "ok", Phase: "loading-model"}, false},
		{Health{Status: "starting"}, false},
		{Health{}, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.h.Ready(), "%+v", tc.h)
	}
}

func TestWaitHealthy(t *testing.T) {
	var hits int32
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		if atomic.AddInt32(&hits, 1) < 3 {
			_, _ = w.Write([]byte(`{"status":"loading","phase":"downloading-model"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	var polls int
	h, err := WaitHealthy(context.Background(), NewClient(time.Second, true), srv.URL, 30*time.Second, func(Health, error) { polls++ })
	require.NoError(t, err)
	assert.True(t, h.Ready())
	assert.Equal(t, 3, polls)
}

func TestWaitHealthyGivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"loading"}`))
	}))
	defer srv.Close()

	_, err := WaitHealthy(context.Background(), NewClient(time.Second, false), srv.URL, time.Second, nil)
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	checks := []Check{
		{Name: "first", Fn: func(context.Context) Result { return Result{Reachable: true} }},
		{Name: "second", Fn: func(context.Context) Result { return Result{Err: errors.New("down")} }},
	}

	results := Run(context.Background(), checks)
	require.Len(t, results, 2)
	assert.Equal(t, "first", results[0].Name)
	assert.True(t, results[0].Reachable)
	assert.Equal(t, "second", results[1].Name)
	assert.False(t, results[1].Reachable)
}

func TestRecommendProfile(t *testing.T) {
	assert.Equal(t, ProfileGPU, RecommendProfile(Hardware{GPU: true, AVX2: true}))
	assert.Equal(t, ProfileCPUAVX2, RecommendProfile(Hardware{AVX2: true}))
	assert.Equal(t, ProfileCPU, RecommendProfile(Hardware{}))
}

func TestDetectHardwareGPU(t *testing.T) {
	oldLook, oldQuery := lookPath, gpuQuery
	t.Cleanup(func() { lookPath, gpuQuery = oldLook, oldQuery })

	lookPath = func(string) (string, error) { return "/usr/bin/nvidia-smi", nil }
	gpuQuery = func(context.Context, string) ([]byte, error) {
		return []byte("NVIDIA GeForce RTX 4070\n\n"), nil
	}
	hw := DetectHardware(context.Background())
	assert.True(t, hw.GPU)
	assert.Equal(t, []string{"NVIDIA GeForce RTX 4070"}, hw.GPUNames)

	lookPath = func(string) (string, error) { return "", errors.New("not found") }
	hw = DetectHardware(context.Background())
	assert.False(t, hw.GPU)
}

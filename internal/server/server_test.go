package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/gif"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ratz-innovator/fusionsim/internal/pde"
	"github.com/Ratz-innovator/fusionsim/internal/render"
	"github.com/Ratz-innovator/fusionsim/internal/testutil"
)

func newTestServer(t *testing.T, mutate func(*Settings)) *Server {
	t.Helper()
	settings := DefaultSettings()
	if mutate != nil {
		mutate(&settings)
	}
	require.NoError(t, settings.Validate())

	s := New(settings, testutil.NewTestLogger(t))
	opts := render.DefaultOptions()
	opts.Width, opts.Height = 160, 120
	s.render = opts
	return s
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/diffusion", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func detail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp.Detail
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "FusionSim backend is running", resp.Message)
	assert.Equal(t, "healthy", resp.Status)
}

func TestSimulateReturnsGIF(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		frames int
	}{
		{"diffusion", `{"nx": 10, "steps": 4, "store_frames": 2}`, 3},
		{"heat", `{"simulation_type": "heat", "nx": 10, "steps": 6, "store_frames": 3, "k": 0.5}`, 4},
		{"advection", `{"simulation_type": "advection_diffusion", "nx": 12, "steps": 5, "store_frames": 10, "D": "0.2", "velocity": -1}`, 6},
		{"nulls take defaults", `{"nx": 10, "steps": 2, "store_frames": 2, "D": null}`, 3},
	}

	s := newTestServer(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, s.Handler(), tt.body)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, "image/gif", rec.Header().Get("Content-Type"))

			g, err := gif.DecodeAll(bytes.NewReader(rec.Body.Bytes()))
			require.NoError(t, err)
			assert.Len(t, g.Image, tt.frames)
		})
	}
}

func TestSimulateUsesDefaultStoreFrames(t *testing.T) {
	s := newTestServer(t, func(st *Settings) { st.StoreFrames = 2 })

	var got pde.Config
	s.run = func(ctx context.Context, cfg pde.Config) (pde.Snapshots, error) {
		got = cfg
		return pde.RunContext(ctx, cfg)
	}

	rec := post(t, s.Handler(), `{"nx": 8, "steps": 4}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 2, got.StoreFrames)
	assert.Equal(t, pde.Diffusion{Coeff: 1}, got.Model)
	assert.Equal(t, pde.DefaultTimeStep, got.TimeStep)
}

func TestSimulateRejectsBadRequests(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		detail string
	}{
		{"malformed json", `{"nx": `, "invalid JSON body"},
		{"array body", `[1, 2]`, "invalid JSON body"},
		{"float nx", `{"nx": 2.5}`, "nx must be int, got 2.5"},
		{"string steps", `{"steps": "10"}`, "steps must be int"},
		{"too many frames", `{"store_frames": 51}`, "store_frames must be less than or equal to 50"},
		{"too many cells", `{"nx": 100001}`, "nx must be less than or equal to 100000"},
		{"zero frames", `{"store_frames": 0}`, "store_frames"},
		{"negative D", `{"D": -1}`, "D"},
		{"boolean dt", `{"dt": true}`, "dt must be a number"},
		{"numeric type", `{"simulation_type": 3}`, "simulation_type must be a string"},
		{"unknown type", `{"simulation_type": "wave"}`, "simulation_type"},
		{"zero velocity", `{"simulation_type": "advection_diffusion", "velocity": 0}`, "velocity"},
		{"unparseable k", `{"simulation_type": "heat", "k": "hot"}`, "k"},
	}

	s := newTestServer(t, nil)
	s.run = func(context.Context, pde.Config) (pde.Snapshots, error) {
		t.Error("simulation must not run for a rejected request")
		return nil, nil
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, s.Handler(), tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Contains(t, detail(t, rec), tt.detail)
		})
	}
}

func TestSimulateReportsSimulationError(t *testing.T) {
	s := newTestServer(t, nil)

	rec := post(t, s.Handler(), `{"nx": 10, "steps": 3, "dt": 1e308, "D": 1e308}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, strings.HasPrefix(detail(t, rec), "Simulation error: "), detail(t, rec))
}

func TestSimulateReportsRenderError(t *testing.T) {
	s := newTestServer(t, nil)
	s.run = func(context.Context, pde.Config) (pde.Snapshots, error) {
		return pde.Snapshots{}, nil
	}

	rec := post(t, s.Handler(), `{}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, strings.HasPrefix(detail(t, rec), "Animation generation error: "), detail(t, rec))
}

func TestSimulateRecoversPanics(t *testing.T) {
	s := newTestServer(t, nil)
	s.run = func(context.Context, pde.Config) (pde.Snapshots, error) {
		panic("boom")
	}

	rec := post(t, s.Handler(), `{}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Simulation error: panic: boom", detail(t, rec))
}

func TestSimulateTimesOut(t *testing.T) {
	s := newTestServer(t, func(st *Settings) { st.Timeout = 50 * time.Millisecond })

	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	s.run = func(ctx context.Context, cfg pde.Config) (pde.Snapshots, error) {
		<-release
		return pde.RunContext(ctx, cfg)
	}

	rec := post(t, s.Handler(), `{"nx": 8, "steps": 2}`)
	require.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Contains(t, detail(t, rec), "50ms")
}

func TestSimulateWaitsForSlot(t *testing.T) {
	s := newTestServer(t, func(st *Settings) {
		st.MaxConcurrent = 1
		st.Timeout = 100 * time.Millisecond
	})

	started := make(chan struct{}, 1)
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	s.run = func(ctx context.Context, cfg pde.Config) (pde.Snapshots, error) {
		started <- struct{}{}
		<-release
		return pde.RunContext(ctx, cfg)
	}

	h := s.Handler()
	first := make(chan int, 1)
	go func() {
		first <- post(t, h, `{"nx": 8, "steps": 2}`).Code
	}()
	<-started

	// The first run still holds the only slot when this one gives up.
	rec := post(t, h, `{"nx": 8, "steps": 2}`)
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Equal(t, http.StatusGatewayTimeout, <-first)
}

func TestSimulateTimeoutFreesSlot(t *testing.T) {
	s := newTestServer(t, func(st *Settings) {
		st.MaxConcurrent = 1
		st.Timeout = 200 * time.Millisecond
	})
	h := s.Handler()

	rec := post(t, h, `{"nx": 10, "steps": 2000000000}`)
	require.Equal(t, http.StatusGatewayTimeout, rec.Code, rec.Body.String())

	// The abandoned run stops at its next step, so the slot comes back.
	require.Eventually(t, func() bool {
		if !s.sem.TryAcquire(1) {
			return false
		}
		s.sem.Release(1)
		return true
	}, 5*time.Second, 10*time.Millisecond)

	rec = post(t, h, `{"nx": 8, "steps": 5, "store_frames": 5}`)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestCORS(t *testing.T) {
	s := newTestServer(t, nil)
	h := s.Handler()

	req := httptest.NewRequest(http.MethodOptions, "/diffusion", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "content-type")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
	assert.Equal(t, "content-type", rec.Header().Get("Access-Control-Allow-Headers"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServeShutsDownOnCancel(t *testing.T) {
	s := newTestServer(t, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.serve(ctx, ln) }()

	url := fmt.Sprintf("http://%s/", ln.Addr())
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}

	_, err = http.Get(url)
	assert.Error(t, err)
}

func TestServeReportsListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	s := newTestServer(t, func(st *Settings) { st.Addr = ln.Addr().String() })
	err = s.Serve(context.Background())
	require.Error(t, err)

	var opErr *net.OpError
	assert.True(t, errors.As(err, &opErr), "got %v", err)
}

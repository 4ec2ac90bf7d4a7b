package server

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ratz-innovator/fusionsim/internal/logging"
	"github.com/Ratz-innovator/fusionsim/internal/pde"
)

// envelope holds any server message; unused fields stay zero.
type envelope struct {
	Type    string             `json:"type"`
	Kind    string             `json:"kind"`
	Steps   []int              `json:"steps"`
	Centers []float64          `json:"centers"`
	Index   int                `json:"index"`
	Step    int                `json:"step"`
	Time    float64            `json:"time"`
	Values  []float64          `json:"values"`
	Frames  int                `json:"frames"`
	Metrics map[string]float64 `json:"metrics"`
	Detail  string             `json:"detail"`
}

func dialStream(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(10*time.Second)))
	return conn
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(v))
}

func receive(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	var msg envelope
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestStreamSendsRetainedFrames(t *testing.T) {
	conn := dialStream(t, newTestServer(t, nil))

	send(t, conn, map[string]any{
		"type":   "start",
		"params": map[string]any{"simulation_type": "heat", "nx": 12, "steps": 7, "store_frames": 3, "k": 0.5},
	})

	started := receive(t, conn)
	require.Equal(t, msgStarted, started.Type, started.Detail)
	assert.Equal(t, "heat", started.Kind)
	assert.Equal(t, []int{0, 2, 4, 6, 7}, started.Steps)
	assert.Len(t, started.Centers, 12)

	cfg, err := pde.Parse("heat", pde.Params{"nx": 12, "steps": 7, "store_frames": 3, "k": 0.5})
	require.NoError(t, err)
	want, err := pde.Run(cfg)
	require.NoError(t, err)

	for i, step := range started.Steps {
		frame := receive(t, conn)
		require.Equal(t, msgFrame, frame.Type, frame.Detail)
		assert.Equal(t, i, frame.Index)
		assert.Equal(t, step, frame.Step)
		assert.InDelta(t, float64(step)*cfg.TimeStep, frame.Time, 1e-12)
		assert.InDeltaSlice(t, want[i], frame.Values, 1e-12)
	}

	done := receive(t, conn)
	require.Equal(t, msgDone, done.Type)
	assert.Equal(t, len(want), done.Frames)
	assert.Contains(t, done.Metrics, "peak_ratio")
}

func TestStreamRejectsBadRequests(t *testing.T) {
	conn := dialStream(t, newTestServer(t, nil))

	send(t, conn, map[string]any{"type": "start", "params": map[string]any{"nx": 2.5}})
	msg := receive(t, conn)
	assert.Equal(t, msgError, msg.Type)
	assert.Contains(t, msg.Detail, "nx must be int")

	send(t, conn, map[string]any{"type": "launch"})
	msg = receive(t, conn)
	assert.Equal(t, msgError, msg.Type)
	assert.Contains(t, msg.Detail, "unknown message type")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	msg = receive(t, conn)
	assert.Equal(t, msgError, msg.Type)
	assert.Contains(t, msg.Detail, "invalid message")

	// The connection survives bad messages.
	send(t, conn, map[string]any{"type": "start", "params": map[string]any{"nx": 6, "steps": 1, "store_frames": 1}})
	assert.Equal(t, msgStarted, receive(t, conn).Type)
}

func TestStreamStop(t *testing.T) {
	conn := dialStream(t, newTestServer(t, nil))

	send(t, conn, map[string]any{"type": "stop"})
	msg := receive(t, conn)
	assert.Equal(t, msgStopped, msg.Type)
	assert.Equal(t, 0, msg.Step)

	send(t, conn, map[string]any{
		"type":   "start",
		"params": map[string]any{"nx": 50, "steps": 1000000, "store_frames": 50},
	})
	require.Equal(t, msgStarted, receive(t, conn).Type)
	require.Equal(t, msgFrame, receive(t, conn).Type)
	send(t, conn, map[string]any{"type": "stop"})

	for {
		msg := receive(t, conn)
		if msg.Type == msgFrame {
			continue
		}
		require.Equal(t, msgStopped, msg.Type, msg.Detail)
		assert.Greater(t, msg.Step, 0)
		assert.Less(t, msg.Step, 1000000)
		break
	}
}

func TestStreamReportsSimulationError(t *testing.T) {
	conn := dialStream(t, newTestServer(t, nil))

	send(t, conn, map[string]any{
		"type":   "start",
		"params": json.RawMessage(`{"nx": 10, "steps": 3, "dt": 1e308, "D": 1e308}`),
	})
	require.Equal(t, msgStarted, receive(t, conn).Type)
	require.Equal(t, msgFrame, receive(t, conn).Type)

	msg := receive(t, conn)
	assert.Equal(t, msgError, msg.Type)
	assert.True(t, strings.HasPrefix(msg.Detail, "Simulation error: "), msg.Detail)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestStreamLogsFramesAtTrace(t *testing.T) {
	var out syncBuffer
	s := newTestServer(t, nil)
	s.logger = logging.NewLogger("trace", &out)
	conn := dialStream(t, s)

	send(t, conn, map[string]any{"type": "start", "params": map[string]any{"nx": 6, "steps": 2, "store_frames": 2}})
	for {
		msg := receive(t, conn)
		require.NotEqual(t, msgError, msg.Type, msg.Detail)
		if msg.Type == msgDone {
			break
		}
	}

	assert.Equal(t, 3, strings.Count(out.String(), "frame sent"))
	assert.Contains(t, out.String(), "level=TRACE")
}

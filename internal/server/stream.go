package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/Ratz-innovator/fusionsim/internal/logging"
	"github.com/Ratz-innovator/fusionsim/internal/metrics"
	"github.com/Ratz-innovator/fusionsim/internal/pde"
)

// Message types exchanged on /ws. Clients send start and stop; the server
// answers with the rest.
const (
	msgStart   = "start"
	msgStop    = "stop"
	msgStarted = "started"
	msgFrame   = "frame"
	msgDone    = "done"
	msgStopped = "stopped"
	msgError   = "error"
)

var errClientGone = errors.New("server: stream client disconnected")

type streamRequest struct {
	Type   string         `json:"type"`
	Params map[string]any `json:"params"`
}

type startedMessage struct {
	Type    string    `json:"type"`
	Kind    string    `json:"kind"`
	Steps   []int     `json:"steps"`
	Centers []float64 `json:"centers"`
}

type frameMessage struct {
	Type   string    `json:"type"`
	Index  int       `json:"index"`
	Step   int       `json:"step"`
	Time   float64   `json:"time"`
	Values []float64 `json:"values"`
}

type doneMessage struct {
	Type    string             `json:"type"`
	Frames  int                `json:"frames"`
	Elapsed float64            `json:"elapsed_ms"`
	Metrics map[string]float64 `json:"metrics"`
}

type stoppedMessage struct {
	Type string `json:"type"`
	Step int    `json:"step"`
}

type errorMessage struct {
	Type   string `json:"type"`
	Detail string `json:"detail"`
}

func newUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		// Same policy as the CORS middleware.
		CheckOrigin: func(*http.Request) bool { return true },
	}
}

// handleStream runs simulations requested over a websocket and sends every
// retained snapshot as soon as it is computed. One run is active per
// connection; a stop message abandons it.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	logger := s.logger.With("request_id", middleware.GetReqID(r.Context()))

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxBodyBytes)

	msgs := make(chan streamRequest)
	go func() {
		defer close(msgs)
		for {
			req, err := readRequest(conn)
			if err != nil {
				logger.Debug("stream read ended", "err", err)
				return
			}
			select {
			case msgs <- req:
			case <-r.Context().Done():
				return
			}
		}
	}()

	for {
		select {
		case <-r.Context().Done():
			return
		case req, ok := <-msgs:
			if !ok {
				return
			}
			if err := s.dispatch(r.Context(), conn, req, msgs, logger); err != nil {
				logger.Debug("stream closed", "err", err)
				return
			}
		}
	}
}

func readRequest(conn *websocket.Conn) (streamRequest, error) {
	var req streamRequest
	_, rd, err := conn.NextReader()
	if err != nil {
		return req, err
	}
	dec := json.NewDecoder(rd)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		// A bad message gets an error reply rather than a closed socket.
		return streamRequest{Type: msgError, Params: map[string]any{"detail": err.Error()}}, nil
	}
	return req, nil
}

func (s *Server) dispatch(ctx context.Context, conn *websocket.Conn, req streamRequest, msgs <-chan streamRequest, logger *slog.Logger) error {
	switch req.Type {
	case msgStart:
		cfg, err := s.parseParams(req.Params)
		if err != nil {
			return conn.WriteJSON(errorMessage{Type: msgError, Detail: err.Error()})
		}
		return s.streamRun(ctx, conn, cfg, msgs, logger.With("kind", cfg.Kind()))
	case msgStop:
		return conn.WriteJSON(stoppedMessage{Type: msgStopped})
	case msgError:
		return conn.WriteJSON(errorMessage{Type: msgError, Detail: fmt.Sprintf("invalid message: %v", req.Params["detail"])})
	default:
		return conn.WriteJSON(errorMessage{Type: msgError, Detail: fmt.Sprintf("unknown message type %q", req.Type)})
	}
}

func (s *Server) streamRun(ctx context.Context, conn *websocket.Conn, cfg pde.Config, msgs <-chan streamRequest, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, s.settings.Timeout)
	defer cancel()

	if err := s.sem.Acquire(ctx, 1); err != nil {
		logger.Warn("stream run timed out waiting for a slot")
		return conn.WriteJSON(errorMessage{Type: msgError, Detail: fmt.Sprintf("simulation did not start within %s", s.settings.Timeout)})
	}
	defer s.sem.Release(1)

	st, err := pde.NewStepper(cfg)
	if err != nil {
		return conn.WriteJSON(errorMessage{Type: msgError, Detail: err.Error()})
	}

	mesh := st.Mesh()
	steps := pde.Retain(cfg.StepCount, cfg.StoreFrames)
	if err := conn.WriteJSON(startedMessage{
		Type:    msgStarted,
		Kind:    string(cfg.Kind()),
		Steps:   steps,
		Centers: mesh.Centers(),
	}); err != nil {
		return err
	}
	logger.Info("stream run started", "nx", cfg.CellCount, "steps", cfg.StepCount, "frames", len(steps))

	ms := metrics.Default(mesh)
	for _, m := range ms {
		m.Reset()
	}
	frames := 0
	emit := func(f []float64) error {
		step := st.StepIndex()
		for _, m := range ms {
			m.Observe(f, step)
		}
		frames++
		logger.Log(ctx, logging.LevelTrace, "frame sent", "index", frames-1, "step", step)
		return conn.WriteJSON(frameMessage{
			Type:   msgFrame,
			Index:  frames - 1,
			Step:   step,
			Time:   float64(step) * cfg.TimeStep,
			Values: f,
		})
	}

	start := time.Now()
	if err := emit(st.Field()); err != nil {
		return err
	}

	for st.Phase() != pde.PhaseDone {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				logger.Warn("stream run timed out", "step", st.StepIndex())
				return conn.WriteJSON(errorMessage{Type: msgError, Detail: fmt.Sprintf("simulation did not finish within %s", s.settings.Timeout)})
			}
			return ctx.Err()
		case req, ok := <-msgs:
			if !ok {
				return errClientGone
			}
			if req.Type == msgStop {
				logger.Info("stream run stopped", "step", st.StepIndex())
				return conn.WriteJSON(stoppedMessage{Type: msgStopped, Step: st.StepIndex()})
			}
			if err := conn.WriteJSON(errorMessage{Type: msgError, Detail: "a simulation is already running"}); err != nil {
				return err
			}
		default:
		}

		keep, err := st.Step()
		if err != nil {
			logger.Error(stageSimulation, "err", err)
			return conn.WriteJSON(errorMessage{Type: msgError, Detail: fmt.Sprintf("%s: %v", stageSimulation, err)})
		}
		if keep {
			if err := emit(st.Field()); err != nil {
				return err
			}
		}
	}

	summary := metrics.Collect(ms...)
	elapsed := time.Since(start)
	logger.Info("stream run finished", "frames", frames, "elapsed", elapsed)
	return conn.WriteJSON(doneMessage{
		Type:    msgDone,
		Frames:  frames,
		Elapsed: float64(elapsed.Microseconds()) / 1000,
		Metrics: summary,
	})
}

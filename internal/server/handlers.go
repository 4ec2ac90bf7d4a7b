package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/Ratz-innovator/fusionsim/internal/pde"
	"github.com/Ratz-innovator/fusionsim/internal/render"
)

const maxBodyBytes = 1 << 20

// Prefixes of the detail message for failures after validation.
const (
	stageSimulation = "Simulation error"
	stageAnimation  = "Animation generation error"
)

type errorResponse struct {
	Detail string `json:"detail"`
}

type healthResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Message: "FusionSim backend is running",
		Status:  "healthy",
	})
}

type outcome struct {
	gif    []byte
	frames int
	stage  string
	err    error
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.parseRequest(w, r)
	if err != nil {
		s.logger.Warn("rejected simulation request", "request_id", middleware.GetReqID(r.Context()), "err", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	logger := s.logger.With("request_id", middleware.GetReqID(r.Context()), "kind", cfg.Kind())
	logger.Info("received simulation request",
		"nx", cfg.CellCount, "steps", cfg.StepCount, "store_frames", cfg.StoreFrames)

	ctx, cancel := context.WithTimeout(r.Context(), s.settings.Timeout)
	defer cancel()

	if err := s.sem.Acquire(ctx, 1); err != nil {
		s.abandon(ctx, w, logger, "waiting for a slot")
		return
	}

	start := time.Now()
	done := make(chan outcome, 1)
	go func() {
		defer s.sem.Release(1)
		done <- s.simulate(ctx, cfg)
	}()

	select {
	case <-ctx.Done():
		// The run stops at its next step and then frees the slot.
		s.abandon(ctx, w, logger, "running")
	case res := <-done:
		if res.err != nil {
			logger.Error(res.stage, "err", res.err)
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("%s: %v", res.stage, res.err))
			return
		}
		logger.Info("simulation finished", "frames", res.frames, "bytes", len(res.gif), "elapsed", time.Since(start))

		w.Header().Set("Content-Type", "image/gif")
		w.Header().Set("Content-Length", strconv.Itoa(len(res.gif)))
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(res.gif); err != nil {
			logger.Debug("write response", "err", err)
		}
	}
}

func (s *Server) abandon(ctx context.Context, w http.ResponseWriter, logger *slog.Logger, while string) {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		logger.Warn("simulation timed out", "while", while, "budget", s.settings.Timeout)
		writeError(w, http.StatusGatewayTimeout, fmt.Sprintf("simulation did not finish within %s", s.settings.Timeout))
		return
	}
	logger.Info("client went away", "while", while, "err", ctx.Err())
}

func (s *Server) simulate(ctx context.Context, cfg pde.Config) (res outcome) {
	defer func() {
		if p := recover(); p != nil {
			res = outcome{stage: stageSimulation, err: fmt.Errorf("panic: %v", p)}
		}
	}()

	snaps, err := s.run(ctx, cfg)
	if err != nil {
		return outcome{stage: stageSimulation, err: err}
	}

	var buf bytes.Buffer
	if err := render.WriteGIF(&buf, cfg, snaps, s.render); err != nil {
		return outcome{stage: stageAnimation, err: err}
	}
	return outcome{gif: buf.Bytes(), frames: len(snaps)}
}

// parseRequest reads the JSON body over the service defaults.
func (s *Server) parseRequest(w http.ResponseWriter, r *http.Request) (pde.Config, error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return pde.Config{}, fmt.Errorf("invalid JSON body: %w", err)
	}
	return s.parseParams(raw)
}

// parseParams resolves request fields decoded with UseNumber. Count fields
// must be JSON integers; coefficient fields may be numbers or numeric
// strings. Unknown fields are ignored and null means "use the default".
func (s *Server) parseParams(raw map[string]any) (pde.Config, error) {
	kind := string(pde.KindDiffusion)
	params := pde.Params{
		pde.ParamCellCount:    pde.DefaultCellCount,
		pde.ParamCellSize:     pde.DefaultCellSize,
		pde.ParamStepCount:    pde.DefaultStepCount,
		pde.ParamTimeStep:     pde.DefaultTimeStep,
		pde.ParamStoreFrames:  s.settings.StoreFrames,
		pde.ParamDiffusion:    1.0,
		pde.ParamConductivity: 1.0,
		pde.ParamVelocity:     1.0,
	}

	for key, v := range raw {
		if v == nil {
			continue
		}
		switch key {
		case pde.ParamKind:
			str, ok := v.(string)
			if !ok {
				return pde.Config{}, fmt.Errorf("%s must be a string, got %v", key, v)
			}
			kind = str
		case pde.ParamCellCount, pde.ParamStepCount, pde.ParamStoreFrames:
			n, ok := v.(json.Number)
			if !ok {
				return pde.Config{}, fmt.Errorf("%s must be int, got %v", key, v)
			}
			i, err := strconv.Atoi(n.String())
			if err != nil {
				return pde.Config{}, fmt.Errorf("%s must be int, got %v", key, v)
			}
			params[key] = i
		case pde.ParamCellSize, pde.ParamTimeStep, pde.ParamDiffusion, pde.ParamConductivity, pde.ParamVelocity:
			switch v.(type) {
			case json.Number, string:
				params[key] = v
			default:
				return pde.Config{}, fmt.Errorf("%s must be a number, got %v", key, v)
			}
		}
	}

	if frames, ok := params[pde.ParamStoreFrames].(int); ok && frames > s.settings.MaxFrames {
		return pde.Config{}, fmt.Errorf("store_frames must be less than or equal to %d, got %d", s.settings.MaxFrames, frames)
	}
	if cells, ok := params[pde.ParamCellCount].(int); ok && cells > s.settings.MaxCells {
		return pde.Config{}, fmt.Errorf("nx must be less than or equal to %d, got %d", s.settings.MaxCells, cells)
	}

	return pde.Parse(kind, params)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

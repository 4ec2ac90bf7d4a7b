package pde

import "context"

// Phase is the lifecycle position of a Stepper.
type Phase int

const (
	PhaseInitialized Phase = iota
	PhaseStepping
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseInitialized:
		return "initialized"
	case PhaseStepping:
		return "stepping"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// Frequency is the retention interval max(1, steps/frames).
func Frequency(stepCount, storeFrames int) int {
	if storeFrames <= 0 {
		return 1
	}
	if f := stepCount / storeFrames; f > 1 {
		return f
	}
	return 1
}

// Retained reports whether the state after step s is kept. Step 0, every
// multiple of the frequency and the final step are kept.
func Retained(s, stepCount, storeFrames int) bool {
	return s == 0 || s%Frequency(stepCount, storeFrames) == 0 || s == stepCount
}

// Retain lists the step indices Run keeps, in order.
func Retain(stepCount, storeFrames int) []int {
	freq := Frequency(stepCount, storeFrames)
	steps := make([]int, 0, stepCount/freq+2)
	steps = append(steps, 0)
	for s := 1; s <= stepCount; s++ {
		if s%freq == 0 || s == stepCount {
			steps = append(steps, s)
		}
	}
	return steps
}

// Stepper owns the live field of one run and advances it one timestep at a
// time. A failed step leaves the Stepper unusable.
type Stepper struct {
	cfg   Config
	mesh  *Mesh
	op    *Operator
	field Field
	step  int
	phase Phase
	err   error
}

func NewStepper(cfg Config) (*Stepper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mesh, err := NewMesh(cfg.CellCount, cfg.CellSize)
	if err != nil {
		return nil, err
	}
	op, err := Assemble(cfg, mesh)
	if err != nil {
		return nil, err
	}
	return &Stepper{
		cfg:   cfg,
		mesh:  mesh,
		op:    op,
		field: InitialField(cfg, mesh),
		phase: PhaseInitialized,
	}, nil
}

func (s *Stepper) Mesh() *Mesh  { return s.mesh }
func (s *Stepper) Phase() Phase { return s.phase }

// StepIndex is the number of completed steps.
func (s *Stepper) StepIndex() int { return s.step }

// Field returns a copy of the current field.
func (s *Stepper) Field() Field { return s.field.Clone() }

// Step advances one timestep and reports whether the new state falls on the
// retention schedule. Stepping a finished Stepper is a no-op.
func (s *Stepper) Step() (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	if s.phase == PhaseDone {
		return false, nil
	}

	s.phase = PhaseStepping
	next := s.step + 1
	if err := s.op.Step(s.field); err != nil {
		s.err = &SimulationError{Kind: s.cfg.Kind(), Step: next, Err: err}
		return false, s.err
	}
	s.step = next
	if s.step == s.cfg.StepCount {
		s.phase = PhaseDone
	}
	return Retained(s.step, s.cfg.StepCount, s.cfg.StoreFrames), nil
}

// Run executes cfg to completion and returns the retained snapshots. On
// failure no snapshots are returned.
func Run(cfg Config) (Snapshots, error) {
	return RunContext(context.Background(), cfg)
}

// RunContext is Run that gives up between steps once ctx is done, returning
// ctx.Err().
func RunContext(ctx context.Context, cfg Config) (Snapshots, error) {
	st, err := NewStepper(cfg)
	if err != nil {
		return nil, err
	}

	freq := Frequency(cfg.StepCount, cfg.StoreFrames)
	snaps := make(Snapshots, 0, cfg.StepCount/freq+2)
	snaps = append(snaps, st.Field())

	for st.Phase() != PhaseDone {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		keep, err := st.Step()
		if err != nil {
			return nil, err
		}
		if keep {
			snaps = append(snaps, st.Field())
		}
	}
	return snaps, nil
}

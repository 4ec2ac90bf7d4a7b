package pde

import (
	"errors"
	"math"
	"testing"
)

func assembleFor(t *testing.T, model Model, n int) *Operator {
	t.Helper()
	cfg := Config{Model: model, CellCount: n, CellSize: 1, StepCount: 1, TimeStep: 0.1, StoreFrames: 1}
	m, err := NewMesh(n, 1)
	if err != nil {
		t.Fatalf("mesh: %v", err)
	}
	op, err := Assemble(cfg, m)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	return op
}

func checkMatrix(t *testing.T, op *Operator, want [][]float64) {
	t.Helper()
	for i := range want {
		for j := range want[i] {
			if got := op.At(i, j); math.Abs(got-want[i][j]) > 1e-12 {
				t.Errorf("A[%d][%d] = %v, want %v", i, j, got, want[i][j])
			}
		}
	}
}

func TestAssembleDiffusion(t *testing.T) {
	op := assembleFor(t, Diffusion{Coeff: 1}, 3)
	checkMatrix(t, op, [][]float64{
		{1.1, -0.1, 0},
		{-0.1, 1.2, -0.1},
		{0, -0.1, 1.1},
	})
	if op.Kind() != KindDiffusion || op.Size() != 3 {
		t.Errorf("unexpected operator metadata: %s/%d", op.Kind(), op.Size())
	}
}

func TestAssembleHeatPinsEnds(t *testing.T) {
	op := assembleFor(t, Heat{Conductivity: 1}, 3)
	checkMatrix(t, op, [][]float64{
		{1, 0, 0},
		{-0.1, 1.2, -0.1},
		{0, 0, 1},
	})
}

func TestAssembleAdvectionUpwind(t *testing.T) {
	right := assembleFor(t, AdvectionDiffusion{Coeff: 1, Velocity: 1}, 3)
	checkMatrix(t, right, [][]float64{
		{1.2, -0.1, 0},
		{-0.2, 1.3, -0.1},
		{0, -0.2, 1.2},
	})

	left := assembleFor(t, AdvectionDiffusion{Coeff: 1, Velocity: -1}, 3)
	checkMatrix(t, left, [][]float64{
		{1.2, -0.2, 0},
		{-0.1, 1.3, -0.2},
		{0, -0.1, 1.2},
	})
}

func TestAssembleSingleCell(t *testing.T) {
	for _, model := range []Model{Diffusion{Coeff: 1}, Heat{Conductivity: 1}, AdvectionDiffusion{Coeff: 1, Velocity: 2}} {
		op := assembleFor(t, model, 1)
		f := Field{0.5}
		if err := op.Step(f); err != nil {
			t.Fatalf("%s: step failed: %v", model.Kind(), err)
		}
		if f[0] < 0 || f[0] > 0.5 {
			t.Errorf("%s: single cell went to %v", model.Kind(), f[0])
		}
	}
}

func TestAssembleMeshMismatch(t *testing.T) {
	cfg := Config{Model: Diffusion{Coeff: 1}, CellCount: 5, CellSize: 1, StepCount: 1, TimeStep: 0.1, StoreFrames: 1}
	m, _ := NewMesh(4, 1)
	if _, err := Assemble(cfg, m); err == nil {
		t.Error("expected mismatch error")
	}
}

func TestOperatorStepConservesMass(t *testing.T) {
	op := assembleFor(t, Diffusion{Coeff: 1}, 20)
	f := make(Field, 20)
	f[10] = 1
	for i := 0; i < 50; i++ {
		if err := op.Step(f); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	sum := 0.0
	for _, v := range f {
		sum += v
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("mass drifted to %v", sum)
	}
}

func TestOperatorStepWrongLength(t *testing.T) {
	op := assembleFor(t, Diffusion{Coeff: 1}, 4)
	err := op.Step(make(Field, 3))
	if !errors.Is(err, ErrSolve) {
		t.Errorf("expected ErrSolve, got %v", err)
	}
}

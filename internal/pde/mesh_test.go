package pde

import (
	"math"
	"testing"
)

func TestNewMesh(t *testing.T) {
	m, err := NewMesh(4, 0.5)
	if err != nil {
		t.Fatalf("NewMesh failed: %v", err)
	}

	want := []float64{0.25, 0.75, 1.25, 1.75}
	got := m.Centers()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("center[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if m.Length() != 2.0 {
		t.Errorf("Length() = %v, want 2", m.Length())
	}

	got[0] = 99
	if m.Center(0) == 99 {
		t.Error("Centers() exposed internal storage")
	}
}

func TestNewMeshInvalid(t *testing.T) {
	tests := []struct {
		name string
		n    int
		dx   float64
	}{
		{"zero cells", 0, 1},
		{"negative cells", -3, 1},
		{"zero dx", 10, 0},
		{"NaN dx", 10, math.NaN()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewMesh(tt.n, tt.dx); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestInitialField(t *testing.T) {
	m, _ := NewMesh(50, 1.0)

	diff := InitialField(Config{Model: Diffusion{Coeff: 1}}, m)
	heat := InitialField(Config{Model: Heat{Conductivity: 1}}, m)
	right := InitialField(Config{Model: AdvectionDiffusion{Coeff: 1, Velocity: 1}}, m)
	left := InitialField(Config{Model: AdvectionDiffusion{Coeff: 1, Velocity: -1}}, m)

	for i := range diff {
		if heat[i] != 100*diff[i] {
			t.Fatalf("heat[%d] = %v, want 100 * %v", i, heat[i], diff[i])
		}
	}

	// peaks sit at the cells nearest 25, 12.5 and 37.5
	if argmax(diff) != 24 && argmax(diff) != 25 {
		t.Errorf("diffusion peak at %d", argmax(diff))
	}
	if argmax(right) != 12 {
		t.Errorf("positive-velocity pulse peak at %d, want 12", argmax(right))
	}
	if argmax(left) != 37 {
		t.Errorf("negative-velocity pulse peak at %d, want 37", argmax(left))
	}
}

func TestGaussian(t *testing.T) {
	if Gaussian(3, 3, 1) != 1 {
		t.Error("Gaussian at centre should be 1")
	}
	want := math.Exp(-0.4)
	if got := Gaussian(2, 0, 1); math.Abs(got-want) > 1e-15 {
		t.Errorf("Gaussian(2,0,1) = %v, want %v", got, want)
	}
}

func argmax(f []float64) int {
	best := 0
	for i, v := range f {
		if v > f[best] {
			best = i
		}
	}
	return best
}

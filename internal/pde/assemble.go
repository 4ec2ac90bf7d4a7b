package pde

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Operator is the backward-Euler system A·φⁿ⁺¹ = φⁿ for one model on one
// mesh. A is tridiagonal with a positive diagonal that dominates its
// non-positive off-diagonals, so every step is stable and monotone.
type Operator struct {
	kind   Kind
	n      int
	a      *mat.Tridiag
	pinned bool

	rhsData []float64
	rhs     *mat.VecDense
	next    *mat.VecDense
}

// Assemble builds the step operator for cfg on m.
//
// Diffusive flux crosses each interior face with r = coeff·dt/dx². The outer
// faces carry no diffusive flux; Heat instead replaces its first and last
// rows with identity rows whose right-hand side is 0. AdvectionDiffusion adds
// first-order upwind flux with c = v·dt/dx: nothing enters through the
// inflow face and v·φ leaves through the outflow face.
func Assemble(cfg Config, m *Mesh) (*Operator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if m.Len() != cfg.CellCount {
		return nil, invalid(ParamCellCount, "mesh has %d cells, config wants %d", m.Len(), cfg.CellCount)
	}

	n := m.Len()
	dl := make([]float64, n-1)
	d := make([]float64, n)
	du := make([]float64, n-1)
	for i := range d {
		d[i] = 1
	}

	dx := m.CellSize()
	r := cfg.Model.Diffusivity() * cfg.TimeStep / (dx * dx)
	for i := 0; i < n-1; i++ {
		d[i] += r
		d[i+1] += r
		du[i] -= r
		dl[i] -= r
	}

	if ad, ok := cfg.Model.(AdvectionDiffusion); ok {
		c := math.Abs(ad.Velocity) * cfg.TimeStep / dx
		if ad.Velocity > 0 {
			for i := 0; i < n-1; i++ {
				d[i] += c
				dl[i] -= c
			}
			d[n-1] += c
		} else {
			for i := 0; i < n-1; i++ {
				d[i+1] += c
				du[i] -= c
			}
			d[0] += c
		}
	}

	_, pinned := cfg.Model.(Heat)
	if pinned {
		d[0] = 1
		d[n-1] = 1
		if n > 1 {
			du[0] = 0
			dl[n-2] = 0
		}
	}

	rhsData := make([]float64, n)
	return &Operator{
		kind:    cfg.Model.Kind(),
		n:       n,
		a:       mat.NewTridiag(n, dl, d, du),
		pinned:  pinned,
		rhsData: rhsData,
		rhs:     mat.NewVecDense(n, rhsData),
		next:    mat.NewVecDense(n, nil),
	}, nil
}

// Kind returns the kind the operator was assembled for.
func (o *Operator) Kind() Kind { return o.kind }

// Size returns the number of unknowns.
func (o *Operator) Size() int { return o.n }

// At returns the system matrix entry A[i][j].
func (o *Operator) At(i, j int) float64 { return o.a.At(i, j) }

// Step advances f by one timestep in place.
func (o *Operator) Step(f Field) error {
	if len(f) != o.n {
		return fmt.Errorf("%w: field has %d cells, operator has %d", ErrSolve, len(f), o.n)
	}

	copy(o.rhsData, f)
	if o.pinned {
		o.rhsData[0] = 0
		o.rhsData[o.n-1] = 0
	}

	if err := o.a.SolveVecTo(o.next, false, o.rhs); err != nil {
		return fmt.Errorf("%w: %v", ErrSolve, err)
	}

	for i := range f {
		f[i] = o.next.AtVec(i)
	}
	if !f.IsFinite() {
		return ErrNonFinite
	}
	return nil
}

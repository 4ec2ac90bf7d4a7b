// Package pde implements the fixed-grid 1D transport solvers behind fusionsim.
//
// Three simulation kinds are supported, each a variant of the sealed [Model]
// sum type:
//
//   - [Diffusion]: ∂φ/∂t = D ∂²φ/∂x² with zero-flux ends
//   - [Heat]: ∂T/∂t = k ∂²T/∂x² with both ends pinned to 0
//   - [AdvectionDiffusion]: ∂φ/∂t + v ∂φ/∂x = D ∂²φ/∂x²
//
// A run goes through four stages: [Parse] coerces and validates raw
// parameters into a [Config], [NewMesh] and [InitialField] build the
// cell-centred domain and its analytic starting profile, [Assemble] builds
// the backward-Euler tridiagonal operator, and [Run] advances the field
// step by step while retaining snapshots on a fixed frame budget.
//
// # Example
//
//	cfg, err := pde.Parse("heat", pde.Params{"k": 0.5, "steps": 200})
//	if err != nil {
//	    return err
//	}
//	snaps, err := pde.Run(cfg)
//
// # Errors
//
// Bad input yields a [*ValidationError] naming the offending field. A failed
// solve yields a [*SimulationError] carrying the kind and step; no partial
// snapshots are returned in that case.
//
// # Thread Safety
//
// The package holds no global mutable state. Each run owns its mesh and
// field, so independent runs may execute concurrently; see [RunAll].
package pde

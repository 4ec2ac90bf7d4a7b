package pde_test

import (
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Ratz-innovator/fusionsim/internal/pde"
)

func centroid(f []float64, m *pde.Mesh) float64 {
	var num, den float64
	for i, v := range f {
		num += v * m.Center(i)
		den += v
	}
	return num / den
}

func maxOf(f []float64) float64 {
	return pde.Field(f).Max()
}

var _ = Describe("Run", func() {
	var mesh *pde.Mesh

	BeforeEach(func() {
		var err error
		mesh, err = pde.NewMesh(pde.DefaultCellCount, pde.DefaultCellSize)
		Expect(err).NotTo(HaveOccurred())
	})

	DescribeTable("starts from the analytic initial condition",
		func(kind string, p pde.Params) {
			cfg, err := pde.Parse(kind, p)
			Expect(err).NotTo(HaveOccurred())

			snaps, err := pde.Run(cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(len(snaps)).To(BeNumerically(">=", 2))
			Expect(snaps[0]).To(Equal([]float64(pde.InitialField(cfg, mesh))))
		},
		Entry("diffusion", "diffusion", pde.Params{"D": 1.0}),
		Entry("heat", "heat", pde.Params{"k": 1.0}),
		Entry("advection to the right", "advection_diffusion", pde.Params{"D": 0.1, "velocity": 1.0}),
		Entry("advection to the left", "advection_diffusion", pde.Params{"D": 0.1, "velocity": -1.0}),
	)

	DescribeTable("never lets the peak grow",
		func(kind string, p pde.Params) {
			cfg, err := pde.Parse(kind, p)
			Expect(err).NotTo(HaveOccurred())

			snaps, err := pde.Run(cfg)
			Expect(err).NotTo(HaveOccurred())
			for i := 1; i < len(snaps); i++ {
				Expect(maxOf(snaps[i])).To(BeNumerically("<=", maxOf(snaps[i-1])+1e-12), "snapshot %d", i)
			}
		},
		Entry("diffusion", "diffusion", pde.Params{"D": 1.0}),
		Entry("fast diffusion", "diffusion", pde.Params{"D": 5.0, "dt": 1.0}),
		Entry("heat", "heat", pde.Params{"k": 1.0}),
		Entry("advection-diffusion", "advection_diffusion", pde.Params{"D": 0.5, "velocity": 2.0}),
	)

	It("holds heat boundaries at zero", func() {
		cfg, err := pde.Parse("heat", pde.Params{"k": 1.0})
		Expect(err).NotTo(HaveOccurred())

		snaps, err := pde.Run(cfg)
		Expect(err).NotTo(HaveOccurred())
		for i, s := range snaps {
			Expect(s[0]).To(BeNumerically("~", 0, 1e-9), "snapshot %d", i)
			Expect(s[len(s)-1]).To(BeNumerically("~", 0, 1e-9), "snapshot %d", i)
		}
	})

	It("spreads diffusion symmetrically around the middle", func() {
		cfg, err := pde.Parse("diffusion", pde.Params{"D": 1.0})
		Expect(err).NotTo(HaveOccurred())

		snaps, err := pde.Run(cfg)
		Expect(err).NotTo(HaveOccurred())
		final := snaps.Final()
		for i := 0; i < len(final)/2; i++ {
			Expect(final[i]).To(BeNumerically("~", final[len(final)-1-i], 1e-9))
		}
	})

	DescribeTable("moves the pulse with the velocity",
		func(velocity float64) {
			cfg, err := pde.Parse("advection_diffusion", pde.Params{"D": 0.1, "velocity": velocity})
			Expect(err).NotTo(HaveOccurred())

			snaps, err := pde.Run(cfg)
			Expect(err).NotTo(HaveOccurred())

			shift := centroid(snaps.Final(), mesh) - centroid(snaps[0], mesh)
			Expect(math.Signbit(shift)).To(Equal(math.Signbit(velocity)))
			Expect(math.Abs(shift)).To(BeNumerically(">", 1))
		},
		Entry("positive velocity", 1.0),
		Entry("negative velocity", -1.0),
	)

	Context("with out-of-range parameters", func() {
		DescribeTable("rejects the request before stepping",
			func(kind string, p pde.Params, field string) {
				_, err := pde.Parse(kind, p)
				var verr *pde.ValidationError
				Expect(errors.As(err, &verr)).To(BeTrue())
				Expect(verr.Field).To(Equal(field))
			},
			Entry("zero D", "diffusion", pde.Params{"D": 0.0}, pde.ParamDiffusion),
			Entry("zero nx", "heat", pde.Params{"k": 1.0, "nx": 0}, pde.ParamCellCount),
			Entry("zero velocity", "advection_diffusion", pde.Params{"D": 1.0, "velocity": 0.0}, pde.ParamVelocity),
			Entry("unknown kind", "wave", pde.Params{}, pde.ParamKind),
		)
	})
})

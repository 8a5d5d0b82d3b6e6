package experiment_test

import (
	"bytes"
	"context"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/popsim/internal/analysis"
	"github.com/san-kum/popsim/internal/dynamo"
	"github.com/san-kum/popsim/internal/experiment"
	"github.com/san-kum/popsim/internal/models"
)

var _ = Describe("Session", func() {
	var (
		session *experiment.Session
		logs    *bytes.Buffer
		ctx     context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		logs = &bytes.Buffer{}
		opts := experiment.DefaultOptions()
		opts.Logger = slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
		session = experiment.NewSession(models.DefaultCoefficients(), opts)
	})

	Describe("editing coefficients", func() {
		It("starts from the defaults", func() {
			Expect(session.Coefficients()).To(Equal(models.DefaultCoefficients()))
			Expect(session.Last()).To(BeNil())
		})

		It("applies a positive value", func() {
			Expect(session.SetCoefficient("a12", 0.75)).To(Succeed())
			Expect(session.Coefficients().A12).To(Equal(0.75))
		})

		DescribeTable("leaves the set unchanged on bad input",
			func(name string, value float64, expected error) {
				before := session.Coefficients()
				Expect(session.SetCoefficient(name, value)).To(MatchError(expected))
				Expect(session.Coefficients()).To(Equal(before))
			},
			Entry("zero", "bd1", 0.0, models.ErrNonPositive),
			Entry("negative", "d3", -2.0, models.ErrNonPositive),
			Entry("unknown name", "a13", 1.0, models.ErrUnknownCoefficient),
		)

		DescribeTable("parses text input",
			func(text string, applied bool, want float64) {
				Expect(session.SetCoefficientText("ix2", text)).To(Equal(applied))
				Expect(session.Coefficients().IX2).To(Equal(want))
			},
			Entry("plain number", "4.25", true, 4.25),
			Entry("surrounding space", "  6 ", true, 6.0),
			Entry("empty", "", false, 3.5),
			Entry("garbage", "abc", false, 3.5),
			Entry("negative", "-1", false, 3.5),
			Entry("zero", "0", false, 3.5),
		)

		It("logs rejected values at debug level", func() {
			session.SetCoefficient("bd1", -1)
			Expect(logs.String()).To(ContainSubstring("coefficient rejected"))
		})
	})

	Describe("running", func() {
		It("produces the fixed grid and the steady state", func() {
			res, err := session.Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(res.Trajectory.Len()).To(Equal(500))
			Expect(res.Trajectory.Times[0]).To(Equal(0.0))
			Expect(res.Trajectory.Times[499]).To(Equal(50.0))
			Expect(res.Integrator).To(Equal("rk45"))

			Expect(res.HasEquilibrium()).To(BeTrue())
			Expect(res.Equilibrium.X1).To(BeNumerically("~", 14.0/3.0, 1e-12))
			Expect(res.Equilibrium.X2).To(BeNumerically("~", 7.0/3.0, 1e-12))
			Expect(res.Equilibrium.X3).To(BeNumerically("~", 4.0/3.0, 1e-12))
			Expect(res.Stability).NotTo(BeNil())
			Expect(res.Stability.Class).To(Equal(analysis.StableFocus))

			Expect(session.Last()).To(BeIdenticalTo(res))
			Expect(logs.String()).To(ContainSubstring("simulation complete"))
		})

		It("is deterministic", func() {
			a, err := session.Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			b, err := session.Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(b.Trajectory.States).To(Equal(a.Trajectory.States))
		})

		It("uses the edited initial conditions", func() {
			Expect(session.SetCoefficient("ix1", 1.5)).To(Succeed())
			res, err := session.Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Trajectory.States[0][0]).To(Equal(1.5))
			Expect(res.Coefficients.IX1).To(Equal(1.5))
		})

		It("switches integrators", func() {
			Expect(session.SetIntegrator("rk4")).To(Succeed())
			res, err := session.Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Integrator).To(Equal("rk4"))
			Expect(session.SetIntegrator("leapfrog")).NotTo(Succeed())
			Expect(session.Options().Integrator).To(Equal("rk4"))
		})

		It("keeps the previous result when a run fails", func() {
			first, err := session.Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			_, err = session.Run(cancelled)
			Expect(err).To(MatchError(context.Canceled))
			Expect(session.Last()).To(BeIdenticalTo(first))
		})
	})
})

var _ = Describe("Run", func() {
	It("returns the trajectory without an equilibrium when the denominator vanishes", func() {
		c := models.DefaultCoefficients()
		c.A21, c.A32, c.A33 = 0, 0, 0

		res, err := experiment.Run(context.Background(), c, experiment.DefaultOptions())
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Trajectory.Len()).To(Equal(500))
		Expect(res.HasEquilibrium()).To(BeFalse())
		Expect(res.EquilibriumErr).To(MatchError(models.ErrNoInteriorEquilibrium))
		Expect(res.EquilibriumPtr()).To(BeNil())
		Expect(res.Stability).To(BeNil())
		Expect(res.Trajectory.Final()[0]).To(BeNumerically("~", 7.0, 0.01))
	})

	It("accepts zero interaction terms", func() {
		c := models.DefaultCoefficients()
		c.A12, c.A21, c.A23, c.A32 = 0, 0, 0, 0

		res, err := experiment.Run(context.Background(), c, experiment.DefaultOptions())
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Equilibrium.Feasible).To(BeFalse())
		Expect(res.Trajectory.Final()[0]).To(BeNumerically("~", 7.0, 0.01))
	})

	It("rejects unknown integrators", func() {
		opts := experiment.DefaultOptions()
		opts.Integrator = "leapfrog"
		_, err := experiment.Run(context.Background(), models.DefaultCoefficients(), opts)
		Expect(err).To(MatchError(ContainSubstring("unknown integrator")))
	})

	It("starts from the initial populations of the coefficient set", func() {
		c := models.DefaultCoefficients()
		c.IX1, c.IX2, c.IX3 = 2, 1.25, 0.75
		res, err := experiment.Run(context.Background(), c, experiment.DefaultOptions())
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Trajectory.States[0]).To(Equal(dynamo.State{2, 1.25, 0.75}))
	})

	It("summarizes through the result", func() {
		res, err := experiment.Run(context.Background(), models.DefaultCoefficients(), experiment.DefaultOptions())
		Expect(err).NotTo(HaveOccurred())
		summary := res.Summary()
		Expect(summary.Distance).To(BeNumerically("<", 0.01))
	})
})

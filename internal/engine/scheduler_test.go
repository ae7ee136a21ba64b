package engine_test

import (
	"context"
	"image"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/vecfield/internal/engine"
)

var _ = Describe("Scheduler", func() {
	var eng *engine.Engine

	BeforeEach(func() {
		var err error
		eng, err = engine.New(smallConfig())
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		eng.Close()
	})

	It("steps a fixed number of frames", func() {
		var seen int
		s := engine.NewScheduler(eng, 30, engine.WithFrameHook(func(*image.RGBA) { seen++ }))
		n, err := s.Step(context.Background(), 5, 0.1)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(5))
		Expect(seen).To(Equal(5))
		Expect(eng.Time()).To(BeNumerically("~", 0.5, 1e-9))
	})

	It("stops at the next frame boundary after Cancel", func() {
		var s *engine.Scheduler
		s = engine.NewScheduler(eng, 30, engine.WithFrameHook(func(*image.RGBA) {
			if eng.FrameCount() == 2 {
				s.Cancel()
			}
		}))
		n, err := s.Step(context.Background(), 10, 0.1)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(2))
		Expect(s.Cancelled()).To(BeTrue())
	})

	It("runs on its ticker until cancelled", func() {
		var s *engine.Scheduler
		s = engine.NewScheduler(eng, 200, engine.WithFrameHook(func(*image.RGBA) {
			if eng.FrameCount() >= 3 {
				s.Cancel()
			}
		}))
		Expect(s.Run(context.Background())).To(Succeed())
		Expect(eng.FrameCount()).To(BeNumerically(">=", 3))
		Expect(s.Running()).To(BeFalse())
	})

	It("returns the context error on cancellation", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()
		s := engine.NewScheduler(eng, 100)
		Expect(s.Run(ctx)).To(MatchError(context.DeadlineExceeded))
	})
})

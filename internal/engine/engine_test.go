package engine_test

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/vecfield/internal/anim"
	"github.com/san-kum/vecfield/internal/engine"
	"github.com/san-kum/vecfield/internal/gpu"
	"github.com/san-kum/vecfield/internal/record"
)

func smallConfig() engine.Config {
	cfg := engine.DefaultConfig()
	cfg.Rows, cfg.Cols = 3, 4
	cfg.Width, cfg.Height = 64, 36
	cfg.Post.Enabled = false
	cfg.Seed = 1234
	return cfg
}

type brokenEncoder struct{}

func (brokenEncoder) Kind() record.BackendKind   { return record.BackendFrames }
func (brokenEncoder) AddFrame(*image.RGBA) error { return errors.New("encoder rejected frame") }
func (brokenEncoder) Stop() ([]byte, error)      { return nil, nil }
func (brokenEncoder) Flush() error               { return nil }
func (brokenEncoder) Render() ([]byte, error)    { return nil, nil }
func (brokenEncoder) Buffer() ([]byte, error)    { return nil, nil }
func (brokenEncoder) Finalize() ([]byte, error)  { return []byte("done"), nil }
func (brokenEncoder) Close() error               { return nil }

type frameCounter struct{ infos []engine.FrameInfo }

func (f *frameCounter) OnFrame(info engine.FrameInfo) { f.infos = append(f.infos, info) }

var _ = Describe("Engine", func() {
	var (
		ctx context.Context
		eng *engine.Engine
		cfg engine.Config
	)

	BeforeEach(func() {
		ctx = context.Background()
		cfg = smallConfig()
	})

	JustBeforeEach(func() {
		var err error
		eng, err = engine.New(cfg)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		eng.Close()
	})

	Describe("construction", func() {
		Context("with the default 15x20 grid", func() {
			BeforeEach(func() {
				cfg.Rows, cfg.Cols = 15, 20
			})

			It("allocates 300 glyphs and 1200 floats", func() {
				Expect(eng.Config().VectorCount()).To(Equal(300))
				v, err := eng.Vectors(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(v).To(HaveLen(1200))
				Expect(eng.BufferStats().Live).To(Equal(2))
			})
		})

		It("reports device failure as a fatal initialization error", func() {
			_, err := engine.New(smallConfig(), engine.WithDeviceFactory(func() (gpu.Device, error) {
				return nil, errors.New("no adapter")
			}))
			var re *record.Error
			Expect(errors.As(err, &re)).To(BeTrue())
			Expect(re.Code).To(Equal(record.CodeInitialization))
			Expect(re.Recoverable).To(BeFalse())
		})

		It("rejects an empty grid", func() {
			bad := smallConfig()
			bad.Rows = 0
			_, err := engine.New(bad)
			Expect(err).To(MatchError(engine.ErrInvalidGrid))
		})
	})

	Describe("frames", func() {
		It("writes the closed-form angle of every glyph", func() {
			_, err := eng.Frame(ctx, 0.5)
			Expect(err).NotTo(HaveOccurred())

			v, err := eng.Vectors(ctx)
			Expect(err).NotTo(HaveOccurred())
			c := eng.Config()
			for i := 0; i < c.VectorCount(); i++ {
				in := anim.Input{
					Index:  i,
					X:      v[i*4],
					Y:      v[i*4+1],
					Time:   0.5,
					Speed:  c.Speed,
					Params: c.Params,
					Aspect: c.Aspect(),
					Seed:   eng.Seed(),
					Cols:   c.Cols,
					Count:  c.VectorCount(),
				}
				Expect(v[i*4+2]).To(BeNumerically("~", anim.Angle(c.Kind, &in), 1e-6))
				Expect(v[i*4+3]).To(Equal(c.VectorLength))
			}
		})

		It("freezes angles while paused but keeps rendering", func() {
			_, err := eng.Frame(ctx, 0.2)
			Expect(err).NotTo(HaveOccurred())
			before, err := eng.Angles(ctx)
			Expect(err).NotTo(HaveOccurred())

			eng.SetPaused(true)
			eng.SetZoom(2)
			for i := 0; i < 3; i++ {
				img, err := eng.Frame(ctx, 0.1)
				Expect(err).NotTo(HaveOccurred())
				Expect(img).NotTo(BeNil())
			}
			after, err := eng.Angles(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(after).To(Equal(before))
			Expect(eng.Time()).To(Equal(0.2))
			Expect(eng.FrameCount()).To(Equal(uint64(4)))
		})

		It("draws the previous heading with a trail of length one", func() {
			render := func(trails bool) *image.RGBA {
				c := smallConfig()
				c.Rows, c.Cols = 1, 1
				c.Width, c.Height = 100, 100
				c.VectorLength = 0.8
				c.VectorWidth = 4
				c.Kind = anim.Spin
				c.Params = anim.Spin.Defaults()
				c.Trails.Enabled = trails
				c.Trails.Length = 1
				e, err := engine.New(c)
				Expect(err).NotTo(HaveOccurred())
				defer e.Close()

				_, err = e.Frame(ctx, 0)
				Expect(err).NotTo(HaveOccurred())
				img, err := e.Frame(ctx, 1.0)
				Expect(err).NotTo(HaveOccurred())
				return img
			}

			with, without := render(true), render(false)
			Expect(with.Bounds()).To(Equal(without.Bounds()))
			extra := 0
			for i := 0; i < len(with.Pix); i += 4 {
				if !bytes.Equal(with.Pix[i:i+4], without.Pix[i:i+4]) {
					extra++
				}
			}
			Expect(extra).To(BeNumerically(">", 0))
		})

		It("notifies observers", func() {
			obs := &frameCounter{}
			eng.AddObserver(obs)
			for i := 0; i < 2; i++ {
				_, err := eng.Frame(ctx, 0.1)
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(obs.infos).To(HaveLen(2))
			Expect(obs.infos[1].Index).To(Equal(uint64(2)))
			Expect(obs.infos[1].Time).To(BeNumerically("~", 0.2, 1e-9))
		})
	})

	Describe("restoring a saved layout", func() {
		It("reproduces the captured angles", func() {
			for i := 0; i < 10; i++ {
				_, err := eng.Frame(ctx, 1.0/30)
				Expect(err).NotTo(HaveOccurred())
			}
			captured, err := eng.Vectors(ctx)
			Expect(err).NotTo(HaveOccurred())
			angles, err := eng.Angles(ctx)
			Expect(err).NotTo(HaveOccurred())
			at := eng.Time()

			other := smallConfig()
			other.Spacing = 0.01
			restored, err := engine.New(other)
			Expect(err).NotTo(HaveOccurred())
			defer restored.Close()

			Expect(restored.UpdateVectorBuffer(captured)).To(Succeed())
			restored.Seek(at)
			_, err = restored.Frame(ctx, 0)
			Expect(err).NotTo(HaveOccurred())

			got, err := restored.Angles(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(angles))
		})

		It("rejects data of the wrong length", func() {
			err := eng.UpdateVectorBuffer(make([]float32, 7))
			Expect(err).To(MatchError(engine.ErrVectorLength))
		})
	})

	Describe("uniforms", func() {
		It("adopts the time and seed of a written record", func() {
			u := gpu.Uniforms{Time: 3, Zoom: 1.5, Speed: 2, Params: [4]float32{1, 0.5, 0, 1}, Seed: 77}
			Expect(eng.UpdateUniforms(u)).To(Succeed())
			Expect(eng.Time()).To(Equal(3.0))
			Expect(eng.Seed()).To(Equal(uint32(77)))
			Expect(eng.Config().Zoom).To(Equal(float32(1.5)))
		})
	})

	Describe("pointer input", func() {
		It("is ignored by kinds that do not read it", func() {
			Expect(eng.SetPointer(10, 10)).To(BeFalse())
		})

		It("is honored by mouse-follow", func() {
			Expect(eng.SetKind(anim.MouseFollow)).To(Succeed())
			Expect(eng.SetPointer(32, 18)).To(BeTrue())
			Expect(eng.Config().Params).To(Equal(anim.MouseFollow.Defaults()))
		})
	})

	Describe("queued config", func() {
		It("applies at the next frame boundary", func() {
			next := eng.Config()
			next.Rows, next.Cols = 5, 5
			next.Kind = anim.Spiral
			Expect(eng.ApplyConfig(next)).To(Succeed())

			Expect(eng.Config().VectorCount()).To(Equal(12))

			_, err := eng.Frame(ctx, 0.1)
			Expect(err).NotTo(HaveOccurred())
			Expect(eng.Config().VectorCount()).To(Equal(25))
			Expect(eng.Config().Kind).To(Equal(anim.Spiral))
			v, err := eng.Vectors(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(HaveLen(100))
		})

		It("refuses an invalid config up front", func() {
			bad := eng.Config()
			bad.Width = 0
			Expect(eng.ApplyConfig(bad)).To(MatchError(engine.ErrInvalidSurface))
		})
	})

	Describe("snapshots", func() {
		It("returns opaque and transparent PNGs of the surface size", func() {
			_, err := eng.Frame(ctx, 0.1)
			Expect(err).NotTo(HaveOccurred())

			for _, transparent := range []bool{false, true} {
				data, err := eng.Snapshot(ctx, transparent)
				Expect(err).NotTo(HaveOccurred())
				img, err := png.Decode(bytes.NewReader(data))
				Expect(err).NotTo(HaveOccurred())
				Expect(img.Bounds().Dx()).To(Equal(64))
				Expect(img.Bounds().Dy()).To(Equal(36))

				_, _, _, a := img.At(0, 0).RGBA()
				if transparent {
					Expect(a).To(BeZero())
				} else {
					Expect(a).To(Equal(uint32(0xffff)))
				}
			}
		})
	})

	Describe("recording", func() {
		It("captures every frame while recording", func() {
			rec := eng.Recorder()
			rc := record.DefaultConfig()
			rc.Backend = record.BackendFrames
			Expect(rec.Start(rc)).To(Succeed())
			for i := 0; i < 3; i++ {
				_, err := eng.Frame(ctx, 0.1)
				Expect(err).NotTo(HaveOccurred())
			}
			out, err := rec.Stop(ctx)
			Expect(err).NotTo(HaveOccurred())
			zr, err := zip.NewReader(bytes.NewReader(out), int64(len(out)))
			Expect(err).NotTo(HaveOccurred())
			Expect(zr.File).To(HaveLen(3))
		})

		It("keeps rendering when capture fails", func() {
			rec := record.NewRecorder(record.WithEncoderFactory(
				func(record.BackendKind, record.EncoderSettings) (record.Encoder, error) {
					return brokenEncoder{}, nil
				}))
			e, err := engine.New(smallConfig(), engine.WithRecorder(rec))
			Expect(err).NotTo(HaveOccurred())
			defer e.Close()

			Expect(rec.Start(record.DefaultConfig())).To(Succeed())
			for i := 0; i < 3; i++ {
				_, err := e.Frame(ctx, 0.1)
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(e.FrameCount()).To(Equal(uint64(3)))
			Expect(rec.State()).To(Equal(record.StateRecording))
		})
	})

	Describe("teardown", func() {
		It("destroys every buffer once", func() {
			eng.Close()
			eng.Close()
			Expect(eng.BufferStats()).To(Equal(gpu.ManagerStats{}))
			_, err := eng.Frame(ctx, 0.1)
			Expect(err).To(MatchError(engine.ErrClosed))
		})
	})
})

package record_test

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"log/slog"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/vecfield/internal/record"
)

// fakeEncoder records which finalize methods were called.
type fakeEncoder struct {
	mu     sync.Mutex
	calls  []string
	frames int
	closes int
	fail   error

	stop, render, buffer, finalize func() ([]byte, error)
}

func (f *fakeEncoder) call(name string, fn func() ([]byte, error)) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn()
}

func (f *fakeEncoder) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeEncoder) Kind() record.BackendKind { return record.BackendFrames }

func (f *fakeEncoder) AddFrame(*image.RGBA) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.frames++
	return nil
}

func (f *fakeEncoder) Stop() ([]byte, error) { return f.call("stop", f.stop) }
func (f *fakeEncoder) Flush() error {
	_, err := f.call("flush", nil)
	return err
}
func (f *fakeEncoder) Render() ([]byte, error)   { return f.call("render", f.render) }
func (f *fakeEncoder) Buffer() ([]byte, error)   { return f.call("buffer", f.buffer) }
func (f *fakeEncoder) Finalize() ([]byte, error) { return f.call("finalize", f.finalize) }
func (f *fakeEncoder) Close() error {
	f.mu.Lock()
	f.closes++
	f.mu.Unlock()
	return nil
}

func (f *fakeEncoder) Closes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes
}

func factoryFor(enc record.Encoder) record.EncoderFactory {
	return func(record.BackendKind, record.EncoderSettings) (record.Encoder, error) {
		return enc, nil
	}
}

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

// fakeClock is advanced by hand.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

var _ = Describe("Recorder", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("state transitions", func() {
		var rec *record.Recorder

		BeforeEach(func() {
			rec = record.NewRecorder(record.WithEncoderFactory(factoryFor(&fakeEncoder{
				stop: func() ([]byte, error) { return []byte("ok"), nil },
			})))
		})

		AfterEach(func() {
			rec.Dispose()
		})

		It("starts idle", func() {
			Expect(rec.State()).To(Equal(record.StateIdle))
		})

		It("rejects pause, resume and stop from idle", func() {
			Expect(rec.Pause()).To(MatchError(record.ErrInvalidTransition))
			Expect(rec.Resume()).To(MatchError(record.ErrInvalidTransition))
			_, err := rec.Stop(ctx)
			Expect(err).To(MatchError(record.ErrInvalidTransition))
			Expect(rec.State()).To(Equal(record.StateIdle))
		})

		It("only starts from idle", func() {
			Expect(rec.Start(record.DefaultConfig())).To(Succeed())
			Expect(rec.Start(record.DefaultConfig())).To(MatchError(record.ErrInvalidTransition))
			Expect(rec.Pause()).To(Succeed())
			Expect(rec.Start(record.DefaultConfig())).To(MatchError(record.ErrInvalidTransition))
		})

		It("walks recording, paused and back", func() {
			Expect(rec.Start(record.DefaultConfig())).To(Succeed())
			Expect(rec.State()).To(Equal(record.StateRecording))
			Expect(rec.Pause()).To(Succeed())
			Expect(rec.State()).To(Equal(record.StatePaused))
			Expect(rec.Pause()).To(MatchError(record.ErrInvalidTransition))
			Expect(rec.Resume()).To(Succeed())
			Expect(rec.State()).To(Equal(record.StateRecording))
			_, err := rec.Stop(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.State()).To(Equal(record.StateIdle))
		})

		It("assigns a fresh session per start", func() {
			Expect(rec.Start(record.DefaultConfig())).To(Succeed())
			first := rec.Session()
			_, err := rec.Stop(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.Start(record.DefaultConfig())).To(Succeed())
			Expect(rec.Session()).NotTo(Equal(first))
		})

		It("rejects unknown quality as an initialization error", func() {
			cfg := record.DefaultConfig()
			cfg.Quality = "ultra"
			err := rec.Start(cfg)
			Expect(record.IsCode(err, record.CodeInitialization)).To(BeTrue())
			Expect(rec.State()).To(Equal(record.StateIdle))
		})
	})

	Describe("frame capture", func() {
		It("ignores frames unless recording", func() {
			enc := &fakeEncoder{stop: func() ([]byte, error) { return []byte("x"), nil }}
			rec := record.NewRecorder(record.WithEncoderFactory(factoryFor(enc)))
			defer rec.Dispose()

			Expect(rec.CaptureFrame(solid(8, 8, color.RGBA{A: 255}))).To(Succeed())
			Expect(rec.Start(record.DefaultConfig())).To(Succeed())
			Expect(rec.CaptureFrame(solid(8, 8, color.RGBA{A: 255}))).To(Succeed())
			Expect(rec.Pause()).To(Succeed())
			Expect(rec.CaptureFrame(solid(8, 8, color.RGBA{A: 255}))).To(Succeed())
			Expect(enc.frames).To(Equal(1))
		})

		It("surfaces encoder failures as recoverable capture errors", func() {
			enc := &fakeEncoder{fail: errors.New("disk full")}
			rec := record.NewRecorder(record.WithEncoderFactory(factoryFor(enc)))
			defer rec.Dispose()

			Expect(rec.Start(record.DefaultConfig())).To(Succeed())
			err := rec.CaptureFrame(solid(8, 8, color.RGBA{A: 255}))
			var re *record.Error
			Expect(errors.As(err, &re)).To(BeTrue())
			Expect(re.Code).To(Equal(record.CodeCapture))
			Expect(re.Recoverable).To(BeTrue())
			Expect(rec.State()).To(Equal(record.StateRecording))
		})
	})

	Describe("stats", func() {
		It("reports the high preset estimate and excludes paused time", func() {
			clock := &fakeClock{t: time.Unix(1_000, 0)}
			rec := record.NewRecorder(
				record.WithEncoderFactory(factoryFor(&fakeEncoder{})),
				record.WithClock(clock.Now),
				record.WithPollInterval(5*time.Millisecond),
			)
			defer rec.Dispose()

			cfg := record.Config{Format: record.FormatMP4, Quality: record.QualityHigh, FileName: "clip"}
			preset, err := cfg.Resolve()
			Expect(err).NotTo(HaveOccurred())
			Expect(preset).To(Equal(record.Preset{Width: 1920, Height: 1080, Bitrate: 18_000_000, FPS: 60}))
			Expect(cfg.OutputName()).To(Equal("clip.mp4"))

			Expect(rec.Start(cfg)).To(Succeed())
			clock.Advance(2 * time.Second)
			Expect(rec.Pause()).To(Succeed())
			clock.Advance(10 * time.Second)
			Expect(rec.Resume()).To(Succeed())
			clock.Advance(2 * time.Second)

			Eventually(func() time.Duration { return rec.Stats().Duration }).
				Should(Equal(4 * time.Second))
			Expect(rec.Stats().EstimatedSize).To(Equal(int64(9_000_000)))
		})
	})

	Describe("stop", func() {
		It("returns the same buffer when called twice", func() {
			enc := &fakeEncoder{}
			n := 0
			enc.stop = func() ([]byte, error) {
				n++
				return []byte("encoded"), nil
			}
			rec := record.NewRecorder(record.WithEncoderFactory(factoryFor(enc)))
			defer rec.Dispose()

			Expect(rec.Start(record.DefaultConfig())).To(Succeed())
			first, err := rec.Stop(ctx)
			Expect(err).NotTo(HaveOccurred())
			second, err := rec.Stop(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(second).To(Equal(first))
			Expect(n).To(Equal(1))
		})

		It("falls through the chain until a strategy yields bytes", func() {
			enc := &fakeEncoder{
				stop:   func() ([]byte, error) { panic("encoder exploded") },
				render: func() ([]byte, error) { return []byte("rendered"), nil },
				buffer: func() ([]byte, error) { return []byte("unused"), nil },
			}
			rec := record.NewRecorder(record.WithEncoderFactory(factoryFor(enc)))
			defer rec.Dispose()

			Expect(rec.Start(record.DefaultConfig())).To(Succeed())
			out, err := rec.Stop(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(out)).To(Equal("rendered"))
			Expect(enc.Calls()).To(Equal([]string{"stop", "flush", "stop", "render"}))
			Expect(enc.Calls()).NotTo(ContainElement("buffer"))
			Expect(enc.Calls()).NotTo(ContainElement("finalize"))
		})

		It("moves to error with a recoverable encoding error when the chain is exhausted", func() {
			enc := &fakeEncoder{}
			rec := record.NewRecorder(record.WithEncoderFactory(factoryFor(enc)))
			defer rec.Dispose()

			Expect(rec.Start(record.DefaultConfig())).To(Succeed())
			_, err := rec.Stop(ctx)
			Expect(err).To(MatchError(record.ErrChainExhausted))

			var re *record.Error
			Expect(errors.As(err, &re)).To(BeTrue())
			Expect(re.Code).To(Equal(record.CodeEncoding))
			Expect(re.Recoverable).To(BeTrue())
			Expect(rec.State()).To(Equal(record.StateError))
			Expect(rec.LastError()).To(Equal(re))
			Expect(enc.Calls()).To(Equal([]string{"stop", "flush", "stop", "render", "buffer", "finalize"}))

			Expect(rec.Start(record.DefaultConfig())).To(MatchError(record.ErrInvalidTransition))
			Expect(rec.Reset()).To(Succeed())
			Expect(rec.State()).To(Equal(record.StateIdle))
		})

		It("stops from paused", func() {
			rec := record.NewRecorder(record.WithEncoderFactory(factoryFor(&fakeEncoder{
				stop: func() ([]byte, error) { return []byte("p"), nil },
			})))
			defer rec.Dispose()

			Expect(rec.Start(record.DefaultConfig())).To(Succeed())
			Expect(rec.Pause()).To(Succeed())
			out, err := rec.Stop(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal([]byte("p")))
		})
	})

	Describe("disposal", func() {
		It("waits for an in-flight finalize before releasing the encoder", func() {
			entered := make(chan struct{})
			release := make(chan struct{})
			enc := &fakeEncoder{}
			enc.stop = func() ([]byte, error) {
				close(entered)
				<-release
				if enc.Closes() > 0 {
					return nil, errors.New("encoder closed during finalize")
				}
				return []byte("ok"), nil
			}
			rec := record.NewRecorder(record.WithEncoderFactory(factoryFor(enc)))
			Expect(rec.Start(record.DefaultConfig())).To(Succeed())
			Expect(rec.CaptureFrame(solid(8, 8, color.RGBA{A: 255}))).To(Succeed())

			stopped := make(chan error, 1)
			go func() {
				_, err := rec.Stop(ctx)
				stopped <- err
			}()
			Eventually(entered).Should(BeClosed())
			Expect(rec.State()).To(Equal(record.StateProcessing))

			disposed := make(chan struct{})
			go func() {
				rec.Dispose()
				close(disposed)
			}()
			Consistently(disposed, 50*time.Millisecond).ShouldNot(BeClosed())
			Expect(enc.Closes()).To(BeZero())

			close(release)
			Eventually(stopped).Should(Receive(BeNil()))
			Eventually(disposed).Should(BeClosed())
			Expect(enc.Closes()).To(Equal(1))
			Expect(rec.State()).To(Equal(record.StateIdle))
		})
	})

	Describe("download", func() {
		It("fails before anything was recorded", func() {
			rec := record.NewRecorder()
			defer rec.Dispose()
			_, err := rec.WriteTo(&bytes.Buffer{})
			Expect(record.IsCode(err, record.CodeDownload)).To(BeTrue())
			Expect(err).To(MatchError(record.ErrNoOutput))
		})
	})

	Describe("built-in backends", func() {
		It("encodes an animated gif end to end", func() {
			rec := record.NewRecorder()
			defer rec.Dispose()

			cfg := record.DefaultConfig()
			cfg.FileName = "field"
			Expect(rec.Start(cfg)).To(Succeed())
			for i := 0; i < 3; i++ {
				Expect(rec.CaptureFrame(solid(48, 27, color.RGBA{R: uint8(80 * i), G: 40, B: 200, A: 255}))).To(Succeed())
			}
			out, err := rec.Stop(ctx)
			Expect(err).NotTo(HaveOccurred())

			g, err := gif.DecodeAll(bytes.NewReader(out))
			Expect(err).NotTo(HaveOccurred())
			Expect(g.Image).To(HaveLen(3))
			Expect(g.Image[0].Bounds().Dy()).To(Equal(480))
			Expect(rec.OutputName()).To(Equal("field.gif"))

			var buf bytes.Buffer
			n, err := rec.WriteTo(&buf)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(len(out))))
		})

		It("produces a frame archive through render and buffer", func() {
			rec := record.NewRecorder()
			defer rec.Dispose()

			cfg := record.DefaultConfig()
			cfg.Backend = record.BackendFrames
			Expect(rec.Start(cfg)).To(Succeed())
			Expect(rec.CaptureFrame(solid(16, 9, color.RGBA{G: 255, A: 255}))).To(Succeed())
			Expect(rec.CaptureFrame(solid(16, 9, color.RGBA{B: 255, A: 255}))).To(Succeed())
			out, err := rec.Stop(ctx)
			Expect(err).NotTo(HaveOccurred())

			zr, err := zip.NewReader(bytes.NewReader(out), int64(len(out)))
			Expect(err).NotTo(HaveOccurred())
			Expect(zr.File).To(HaveLen(2))
			Expect(zr.File[0].Name).To(Equal("frame_000000.png"))
			Expect(rec.OutputName()).To(Equal("vecfield.zip"))
		})
	})
})

var _ = Describe("Finalize", func() {
	It("honours a custom chain", func() {
		enc := &fakeEncoder{}
		strategies := []record.Strategy{
			{Name: "first", Run: func(record.Encoder) ([]byte, error) { return nil, errors.New("no") }},
			{Name: "second", Run: func(record.Encoder) ([]byte, error) { return []byte{1}, nil }},
		}
		out, name, err := record.Finalize(context.Background(), enc, strategies, slog.New(slog.NewTextHandler(GinkgoWriter, nil)))
		Expect(err).NotTo(HaveOccurred())
		Expect(name).To(Equal("second"))
		Expect(out).To(Equal([]byte{1}))
	})
})

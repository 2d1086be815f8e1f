package session_test

import (
	"os"
	"path/filepath"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/rs/zerolog"

	"github.com/san-kum/fraclab/internal/config"
	"github.com/san-kum/fraclab/internal/errs"
	"github.com/san-kum/fraclab/internal/session"
)

const mono = "palette:\n  - {position: 0.0, label: dark, color: [0, 0, 0]}\n  - {position: 1.0, label: light, color: [250, 250, 250]}\n"

func testConfig(root string) config.Config {
	cfg := config.DefaultConfig()
	cfg.Paths.FractalDir = filepath.Join(root, "fractals")
	cfg.Paths.PaletteDir = filepath.Join(root, "palettes")
	cfg.Defaults.Rows = 20
	cfg.Defaults.Cols = 20
	cfg.Defaults.CenterRe = 0
	cfg.Defaults.CenterIm = 0
	cfg.Defaults.Pitch = 0.2
	cfg.Defaults.MaxIterations = 50
	cfg.Workers = 2
	return *cfg
}

var _ = Describe("Session", func() {
	var (
		root string
		cfg  config.Config
		s    *session.Session
	)

	BeforeEach(func() {
		root = GinkgoT().TempDir()
		cfg = testConfig(root)
		var err error
		s, err = session.New(cfg, zerolog.Nop())
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("a new session", func() {
		It("starts uninitialized with the default palette", func() {
			snap := s.Snapshot()
			Expect(snap.State).To(Equal(session.Uninitialized))
			Expect(snap.Grid).To(BeNil())
			Expect(snap.PaletteFile).To(Equal("default.palette"))
			Expect(snap.Params.Rows).To(Equal(uint32(20)))
			Expect(filepath.Join(cfg.Paths.PaletteDir, "default.palette")).To(BeARegularFile())
		})

		It("rejects render, recenter and histogram before a grid exists", func() {
			_, err := s.Render()
			Expect(err).To(MatchError(errs.ErrNotGenerated))

			_, err = s.Recenter(session.RecenterParams{Re: session.Float64(0), Im: session.Float64(0)})
			Expect(err).To(MatchError(errs.ErrNotGenerated))

			_, err = s.Histogram()
			Expect(err).To(MatchError(errs.ErrNotGenerated))
		})

		It("refuses an invalid configuration", func() {
			bad := testConfig(root)
			bad.Defaults.Pitch = 0
			_, err := session.New(bad, zerolog.Nop())
			Expect(err).To(MatchError(errs.ErrInvalidInput))
		})
	})

	Describe("Generate", func() {
		It("computes the grid and writes a numbered image", func() {
			res, err := s.Generate(session.GenerateParams{})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Image).To(Equal("fractal-001.png"))
			Expect(res.Duration).To(BeNumerically(">", 0))
			Expect(filepath.Join(cfg.Paths.FractalDir, res.Image)).To(BeARegularFile())

			snap := s.Snapshot()
			Expect(snap.State).To(Equal(session.Ready))
			Expect(snap.Image).To(Equal("fractal-001.png"))
			Expect(snap.Timings.Generate).To(BeNumerically(">", 0))
		})

		It("never overwrites an earlier image", func() {
			first, err := s.Generate(session.GenerateParams{})
			Expect(err).NotTo(HaveOccurred())
			second, err := s.Generate(session.GenerateParams{})
			Expect(err).NotTo(HaveOccurred())
			Expect(second.Image).To(Equal("fractal-002.png"))
			Expect(second.Image).NotTo(Equal(first.Image))
		})

		It("keeps unset parameters from the previous generation", func() {
			_, err := s.Generate(session.GenerateParams{Rows: session.Uint32(10), MaxIterations: session.Uint32(30)})
			Expect(err).NotTo(HaveOccurred())

			res, err := s.Generate(session.GenerateParams{CenterRe: session.Float64(-0.5)})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Params.Rows).To(Equal(uint32(10)))
			Expect(res.Params.Cols).To(Equal(uint32(20)))
			Expect(res.Params.MaxIterations).To(Equal(uint32(30)))
			Expect(res.Params.CenterRe).To(Equal(-0.5))

			snap := s.Snapshot()
			Expect(snap.Grid.Rows).To(Equal(10))
			Expect(snap.Grid.Cols).To(Equal(20))
		})

		It("rejects invalid parameters without touching the viewport", func() {
			_, err := s.Generate(session.GenerateParams{PixelPitch: session.Float64(-1)})
			Expect(err).To(MatchError(errs.ErrInvalidInput))

			_, err = s.Generate(session.GenerateParams{Cols: session.Uint32(0)})
			Expect(err).To(MatchError(errs.ErrInvalidInput))

			Expect(s.Snapshot().Params.PixelPitch).To(Equal(0.2))
			Expect(s.Snapshot().State).To(Equal(session.Uninitialized))
		})

		It("leaves the session intact when the named palette is missing", func() {
			_, err := s.Generate(session.GenerateParams{
				Rows:        session.Uint32(5),
				PaletteFile: session.String("absent.palette"),
			})
			Expect(err).To(MatchError(errs.ErrIO))

			snap := s.Snapshot()
			Expect(snap.PaletteFile).To(Equal("default.palette"))
			Expect(snap.Params.Rows).To(Equal(uint32(20)))
		})

		It("keeps the grid when the image cannot be written", func() {
			blocker := filepath.Join(root, "blocked")
			Expect(os.WriteFile(blocker, []byte("x"), 0o644)).To(Succeed())
			bad := testConfig(root)
			bad.Paths.FractalDir = filepath.Join(blocker, "out")
			broken, err := session.New(bad, zerolog.Nop())
			Expect(err).NotTo(HaveOccurred())

			res, err := broken.Generate(session.GenerateParams{})
			Expect(err).To(MatchError(errs.ErrIO))
			Expect(res.Duration).To(BeNumerically(">", 0))
			Expect(res.Image).To(BeEmpty())

			snap := broken.Snapshot()
			Expect(snap.Grid).NotTo(BeNil())
			Expect(snap.State).To(Equal(session.Ready))

			h, err := broken.Histogram()
			Expect(err).NotTo(HaveOccurred())
			Expect(h.Total()).To(Equal(uint64(400)))
		})
	})

	Describe("Recenter", func() {
		BeforeEach(func() {
			_, err := s.Generate(session.GenerateParams{
				Rows:       session.Uint32(100),
				Cols:       session.Uint32(100),
				PixelPitch: session.Float64(0.04),
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("moves the known bounded point off center", func() {
			Expect(s.Snapshot().Grid.At(50, 50)).To(Equal(uint32(50)))

			res, err := s.Recenter(session.RecenterParams{
				Row: session.Uint32(50), Col: session.Uint32(75),
				Re: session.Float64(1), Im: session.Float64(0),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Image).To(Equal("fractal-002.png"))
			Expect(res.Params.CenterRe).To(Equal(1.0))

			snap := s.Snapshot()
			// c = 1 escapes on the second step: 2 + 1 with no log correction
			Expect(snap.Grid.At(50, 50)).To(Equal(uint32(3)))
			Expect(snap.Params.Rows).To(Equal(uint32(100)))
			Expect(snap.Params.PixelPitch).To(Equal(0.04))
		})

		It("requires both coordinates", func() {
			_, err := s.Recenter(session.RecenterParams{Re: session.Float64(1)})
			Expect(err).To(MatchError(errs.ErrInvalidInput))
		})
	})

	Describe("palettes and rendering", func() {
		BeforeEach(func() {
			_, err := s.Generate(session.GenerateParams{})
			Expect(err).NotTo(HaveOccurred())
		})

		It("activates an uploaded palette and renders with it", func() {
			before := s.Snapshot().Grid

			res, err := s.LoadPalette([]byte(mono), "uploads/mono.yaml")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Active).To(Equal("mono.yaml"))
			Expect(res.Entries).To(Equal(2))
			Expect(filepath.Join(cfg.Paths.PaletteDir, "mono.yaml")).To(BeARegularFile())

			out, err := s.Render()
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Image).To(Equal("fractal-002.png"))
			Expect(out.Params.PaletteFile).To(Equal("mono.yaml"))

			snap := s.Snapshot()
			Expect(snap.Grid.Equal(before)).To(BeTrue())
			Expect(snap.Palette).To(HaveLen(2))
			Expect(snap.Palette[1].Boundary).To(Equal(uint32(50)))
		})

		It("rejects malformed or empty uploads and keeps the active palette", func() {
			_, err := s.LoadPalette([]byte("palette: [{position: 2}]"), "bad.yaml")
			Expect(err).To(MatchError(errs.ErrPaletteFormat))

			_, err = s.LoadPalette(nil, "empty.yaml")
			Expect(err).To(MatchError(errs.ErrInvalidInput))

			_, err = s.LoadPalette([]byte(mono), "")
			Expect(err).To(MatchError(errs.ErrInvalidInput))

			Expect(s.Snapshot().PaletteFile).To(Equal("default.palette"))
			Expect(filepath.Join(cfg.Paths.PaletteDir, "bad.yaml")).NotTo(BeAnExistingFile())
		})

		It("reports a histogram covering every cell", func() {
			h, err := s.Histogram()
			Expect(err).NotTo(HaveOccurred())
			Expect(h.Bins).To(HaveLen(51))
			Expect(h.Total()).To(Equal(uint64(400)))
		})
	})

	It("serializes concurrent operations", func() {
		_, err := s.Generate(session.GenerateParams{})
		Expect(err).NotTo(HaveOccurred())

		var (
			wg    sync.WaitGroup
			mu    sync.Mutex
			names = map[string]bool{}
		)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer GinkgoRecover()
				defer wg.Done()

				var (
					res session.Result
					err error
				)
				if i%2 == 0 {
					res, err = s.Generate(session.GenerateParams{MaxIterations: session.Uint32(uint32(20 + i))})
				} else {
					res, err = s.Render()
				}
				Expect(err).NotTo(HaveOccurred())

				mu.Lock()
				names[res.Image] = true
				mu.Unlock()
			}(i)
		}
		wg.Wait()

		Expect(names).To(HaveLen(8))
		h, err := s.Histogram()
		Expect(err).NotTo(HaveOccurred())
		Expect(h.Total()).To(Equal(uint64(400)))
	})
})

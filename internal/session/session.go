// Package session owns one explorable fractal: its viewport, the active
// palette, the last computed grid and the image rendered from it.
//
// Every public operation holds the session lock for its whole duration, so
// operations never interleave. Row-level work inside a generation still runs
// on the engine's worker pool.
package session

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/san-kum/fraclab/internal/analysis"
	"github.com/san-kum/fraclab/internal/config"
	"github.com/san-kum/fraclab/internal/errs"
	"github.com/san-kum/fraclab/internal/escape"
	"github.com/san-kum/fraclab/internal/palette"
	"github.com/san-kum/fraclab/internal/render"
	"github.com/san-kum/fraclab/internal/storage"
)

type State int

const (
	Uninitialized State = iota // no grid yet
	Ready                      // grid matches the viewport
	Stale                      // viewport changed since the grid was computed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Ready:
		return "ready"
	case Stale:
		return "stale"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Timings holds the wall-clock duration of the last call of each operation.
type Timings struct {
	Generate  time.Duration
	Recenter  time.Duration
	Render    time.Duration
	Histogram time.Duration
	Palette   time.Duration
}

// Result is returned by generate, recenter and render. Duration is set even
// when the operation fails.
type Result struct {
	Op       string
	Duration time.Duration
	Image    string // base name of the written image
	Params   Params
}

type HistogramResult struct {
	analysis.Histogram
	Duration time.Duration
}

type PaletteResult struct {
	Active   string
	Entries  int
	Duration time.Duration
}

type Session struct {
	mu sync.Mutex

	cfg      config.Config
	engine   *escape.Engine
	renderer *render.Renderer
	store    *storage.Store
	log      zerolog.Logger

	viewport    escape.Viewport
	grid        *escape.Grid
	state       State
	paletteFile string
	palette     *palette.Palette
	imagePath   string
	timings     Timings
}

// New creates a session from cfg. The palette directory is created and seeded
// with the built-in palette, and the configured default palette is loaded.
func New(cfg config.Config, log zerolog.Logger) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidInput, err)
	}

	store := storage.New(cfg.Paths.PaletteDir)
	if err := store.Init(); err != nil {
		return nil, err
	}
	pal, err := store.Load(cfg.Defaults.PaletteFile)
	if err != nil {
		return nil, err
	}

	d := cfg.Defaults
	return &Session{
		cfg:         cfg,
		engine:      escape.NewEngine(cfg.Workers),
		renderer:    render.New(cfg.Paths.FractalDir, cfg.Workers),
		store:       store,
		log:         log.With().Str("component", "session").Logger(),
		viewport:    escape.NewViewport(d.Rows, d.Cols, d.Center(), d.Pitch, d.MaxIterations),
		paletteFile: filepath.Base(cfg.Defaults.PaletteFile),
		palette:     pal,
	}, nil
}

func (s *Session) Config() config.Config { return s.cfg }

func (s *Session) Store() *storage.Store { return s.store }

// Generate applies p to the viewport, recomputes the grid and renders it with
// the active palette. A palette named in p becomes active only if it loads.
func (s *Session) Generate(p GenerateParams) (res Result, err error) {
	start := time.Now()
	res.Op = "generate"
	if err := p.Validate(); err != nil {
		res.Duration = time.Since(start)
		return res, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	defer func() {
		res.Duration = time.Since(start)
		s.timings.Generate = res.Duration
	}()

	file := s.paletteFile
	if p.PaletteFile != nil {
		file = *p.PaletteFile
	}
	pal, err := s.loadPalette(file)
	if err != nil {
		res.Params = s.params()
		s.log.Error().Err(err).Str("op", res.Op).Str("palette", file).Msg("palette load failed")
		return res, err
	}
	s.palette, s.paletteFile = pal, filepath.Base(file)

	s.apply(p)
	err = s.pipeline(&res)
	return res, err
}

// Recenter moves the center and regenerates. The anchor pixel in p is only
// logged; the full grid is recomputed.
func (s *Session) Recenter(p RecenterParams) (res Result, err error) {
	start := time.Now()
	res.Op = "recenter"
	if err := p.Validate(); err != nil {
		res.Duration = time.Since(start)
		return res, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	defer func() {
		res.Duration = time.Since(start)
		s.timings.Recenter = res.Duration
	}()

	if s.grid == nil {
		res.Params = s.params()
		return res, fmt.Errorf("recenter: %w", errs.ErrNotGenerated)
	}
	pal, err := s.loadPalette(s.paletteFile)
	if err != nil {
		res.Params = s.params()
		return res, err
	}
	s.palette = pal

	ev := s.log.Debug()
	if p.Row != nil && p.Col != nil {
		ev = ev.Uint32("anchor_row", *p.Row).Uint32("anchor_col", *p.Col)
	}
	ev.Float64("re", *p.Re).Float64("im", *p.Im).Msg("recentering")

	s.viewport.Recenter(complex(*p.Re, *p.Im))
	s.state = Stale
	err = s.pipeline(&res)
	return res, err
}

// Render re-renders the last grid against the active palette without
// recomputing it.
func (s *Session) Render() (res Result, err error) {
	start := time.Now()
	res.Op = "render"

	s.mu.Lock()
	defer s.mu.Unlock()

	defer func() {
		res.Duration = time.Since(start)
		s.timings.Render = res.Duration
	}()

	res.Params = s.params()
	if s.grid == nil {
		return res, fmt.Errorf("render: %w", errs.ErrNotGenerated)
	}
	pal, err := s.loadPalette(s.paletteFile)
	if err != nil {
		return res, err
	}
	s.palette = pal

	if err := s.renderLocked(&res); err != nil {
		return res, err
	}
	s.log.Info().Str("op", res.Op).Dur("duration", time.Since(start)).Str("image", res.Image).Msg("rendered")
	return res, nil
}

// Histogram summarises the last grid.
func (s *Session) Histogram() (HistogramResult, error) {
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.grid == nil {
		d := time.Since(start)
		s.timings.Histogram = d
		return HistogramResult{Duration: d}, fmt.Errorf("histogram: %w", errs.ErrNotGenerated)
	}
	h := analysis.Compute(s.grid)
	d := time.Since(start)
	s.timings.Histogram = d
	s.log.Debug().Str("op", "histogram").Dur("duration", d).Int("bins", len(h.Bins)).Msg("histogram computed")
	return HistogramResult{Histogram: h, Duration: d}, nil
}

// LoadPalette validates raw as a palette definition, stores it under the base
// of filename and makes it active. The grid is left untouched.
func (s *Session) LoadPalette(raw []byte, filename string) (res PaletteResult, err error) {
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	defer func() {
		res.Duration = time.Since(start)
		s.timings.Palette = res.Duration
	}()

	name, err := s.store.Path(filename)
	if err != nil {
		return res, err
	}
	name = filepath.Base(name)
	if len(raw) == 0 {
		return res, errs.NewValidationError("palette", name, "no content provided")
	}

	pal, err := palette.Parse(name, raw)
	if err != nil {
		return res, err
	}
	if _, err := s.store.Save(name, raw); err != nil {
		return res, err
	}

	s.palette, s.paletteFile = pal, name
	res.Active, res.Entries = name, pal.Len()
	s.log.Info().Str("op", "palette").Str("palette", name).Int("entries", pal.Len()).Msg("palette activated")
	return res, nil
}

// Snapshot is a consistent copy of the session state.
type Snapshot struct {
	Viewport    escape.Viewport
	Grid        *escape.Grid // nil before the first generation
	State       State
	Image       string
	PaletteFile string
	Palette     []palette.Entry
	Params      Params
	Timings     Timings
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Viewport:    s.viewport,
		State:       s.state,
		Image:       baseName(s.imagePath),
		PaletteFile: s.paletteFile,
		Palette:     s.palette.Entries(),
		Params:      s.params(),
		Timings:     s.timings,
	}
	if s.grid != nil {
		snap.Grid = s.grid.Clone()
	}
	return snap
}

// pipeline computes the grid for the current viewport and renders it. The
// grid is kept when the image write fails.
func (s *Session) pipeline(res *Result) error {
	start := time.Now()
	s.viewport.RecomputeLimits()
	s.state = Stale
	s.grid = s.engine.Compute(s.viewport)
	s.state = Ready
	computed := time.Since(start)

	if err := s.renderLocked(res); err != nil {
		return err
	}

	v := s.viewport
	s.log.Info().
		Str("op", res.Op).
		Dur("compute", computed).
		Dur("duration", time.Since(start)).
		Uint32("rows", v.Rows).
		Uint32("cols", v.Cols).
		Float64("center_re", real(v.Center)).
		Float64("center_im", imag(v.Center)).
		Float64("pitch", v.Pitch).
		Uint32("max_iterations", v.MaxIterations).
		Str("image", res.Image).
		Msg("fractal generated")
	return nil
}

func (s *Session) renderLocked(res *Result) error {
	res.Params = s.params()
	s.palette.Rescale(s.grid.MaxIterations)
	path, err := s.renderer.Render(s.grid, s.palette, s.cfg.Defaults.ImageFilename)
	if err != nil {
		s.log.Error().Err(err).Str("op", res.Op).Msg("image write failed")
		return err
	}
	s.imagePath = path
	res.Image = baseName(path)
	return nil
}

func (s *Session) loadPalette(name string) (*palette.Palette, error) {
	pal, err := s.store.Load(name)
	if err != nil {
		// The in-memory palette still serves when its file vanished.
		if errors.Is(err, errs.ErrIO) && s.palette != nil && filepath.Base(name) == s.paletteFile {
			s.log.Warn().Err(err).Str("palette", name).Msg("using cached palette")
			return s.palette, nil
		}
		return nil, err
	}
	return pal, nil
}

func (s *Session) apply(p GenerateParams) {
	v := &s.viewport
	if p.Rows != nil {
		v.Rows = *p.Rows
	}
	if p.Cols != nil {
		v.Cols = *p.Cols
	}
	re, im := real(v.Center), imag(v.Center)
	if p.CenterRe != nil {
		re = *p.CenterRe
	}
	if p.CenterIm != nil {
		im = *p.CenterIm
	}
	v.Center = complex(re, im)
	if p.PixelPitch != nil {
		v.Pitch = *p.PixelPitch
	}
	if p.MaxIterations != nil {
		v.MaxIterations = *p.MaxIterations
	}
	if s.grid != nil {
		s.state = Stale
	}
}

func (s *Session) params() Params {
	v := s.viewport
	return Params{
		Rows:          v.Rows,
		Cols:          v.Cols,
		CenterRe:      real(v.Center),
		CenterIm:      imag(v.Center),
		PixelPitch:    v.Pitch,
		MaxIterations: v.MaxIterations,
		PaletteFile:   s.paletteFile,
	}
}

func baseName(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Base(path)
}

package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/san-kum/fraclab/internal/analysis"
	"github.com/san-kum/fraclab/internal/config"
	"github.com/san-kum/fraclab/internal/errs"
	"github.com/san-kum/fraclab/internal/render"
	"github.com/san-kum/fraclab/internal/session"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.sess.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"program":  s.cfg.Program,
		"defaults": s.cfg.Defaults,
		"state":    snap.State.String(),
		"params":   snap.Params,
		"image":    snap.Image,
		"formats":  render.Formats(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"clients": s.hub.ClientCount(),
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var p session.GenerateParams
	if err := decodeBody(r, &p); err != nil {
		writeJSON(w, statusFor(err), newOpResponse("generate", time.Since(start), err))
		return
	}

	res, err := s.sess.Generate(p)
	s.respondResult(w, "generated", res, err)
}

func (s *Server) handleRecenter(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var p session.RecenterParams
	if err := decodeBody(r, &p); err != nil {
		writeJSON(w, statusFor(err), newOpResponse("recenter", time.Since(start), err))
		return
	}

	res, err := s.sess.Recenter(p)
	s.respondResult(w, "recentered", res, err)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	res, err := s.sess.Render()
	s.respondResult(w, "rendered", res, err)
}

func (s *Server) respondResult(w http.ResponseWriter, event string, res session.Result, err error) {
	resp := newOpResponse(res.Op, res.Duration, err)
	resp.Image = res.Image
	if res.Params.Rows != 0 {
		params := res.Params
		resp.Params = &params
	}
	writeJSON(w, statusFor(err), resp)
	if err != nil {
		return
	}
	s.hub.Broadcast(Event{Type: event, Data: resp})
}

// handleHistogram returns the iteration distribution. ?suggest=n adds n
// palette positions splitting the escaped mass evenly.
func (s *Server) handleHistogram(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	suggest := 0
	if q := r.URL.Query().Get("suggest"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 2 || n > 256 {
			err := errs.NewValidationError("suggest", q, "must be an integer between 2 and 256")
			writeJSON(w, statusFor(err), newOpResponse("histogram", time.Since(start), err))
			return
		}
		suggest = n
	}

	res, err := s.sess.Histogram()
	resp := newOpResponse("histogram", res.Duration, err)
	if err == nil {
		h := res.Histogram
		resp.Chart = &h
		if suggest > 0 {
			resp.Suggested = analysis.SuggestPositions(h, suggest)
		}
	}
	writeJSON(w, statusFor(err), resp)
}

// handlePalette accepts a multipart upload. The first part carrying a file
// name, whatever its field name, becomes the active palette.
func (s *Server) handlePalette(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	fail := func(err error) {
		writeJSON(w, statusFor(err), newOpResponse("palette", time.Since(start), err))
	}

	mr, err := r.MultipartReader()
	if err != nil {
		fail(errs.NewValidationError("", nil, "expected a multipart/form-data upload"))
		return
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			fail(errs.NewValidationError("", nil, "malformed multipart body: "+err.Error()))
			return
		}
		if part.FileName() == "" {
			continue
		}

		data, err := io.ReadAll(io.LimitReader(part, maxPaletteBytes+1))
		if err != nil {
			fail(errs.NewIOError("read upload", part.FileName(), err))
			return
		}
		if len(data) > maxPaletteBytes {
			fail(errs.NewValidationError("palette", part.FileName(), "larger than 1 MiB"))
			return
		}

		res, err := s.sess.LoadPalette(data, part.FileName())
		resp := newOpResponse("palette", res.Duration, err)
		resp.PaletteFile = res.Active
		resp.Entries = res.Entries
		writeJSON(w, statusFor(err), resp)
		if err == nil {
			s.hub.Broadcast(Event{Type: "palette", Data: resp})
		}
		return
	}
	fail(errs.NewValidationError("", nil, "no palette file provided"))
}

func (s *Server) handlePalettes(w http.ResponseWriter, r *http.Request) {
	list, err := s.sess.Store().List()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"active":   s.sess.Snapshot().PaletteFile,
		"palettes": list,
	})
}

type presetInfo struct {
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	CenterRe      float64 `json:"center_re"`
	CenterIm      float64 `json:"center_im"`
	PixelPitch    float64 `json:"pixel_pitch"`
	MaxIterations uint32  `json:"max_iterations"`
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	names := config.ListPresets()
	out := make([]presetInfo, 0, len(names))
	for _, name := range names {
		p, _ := config.GetPreset(name)
		d := p.Apply(s.cfg.Defaults)
		out = append(out, presetInfo{
			Name:          p.Name,
			Description:   p.Description,
			CenterRe:      d.CenterRe,
			CenterIm:      d.CenterIm,
			PixelPitch:    d.Pitch,
			MaxIterations: d.MaxIterations,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"presets": out})
}

// handleImage serves a rendered image by its bare file name.
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		http.NotFound(w, r)
		return
	}
	path := filepath.Join(s.cfg.Paths.FractalDir, name)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, path)
}

// decodeBody reads an optional JSON body into v. An empty body leaves v as is.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<16))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return errs.NewValidationError("", nil, "malformed JSON body: "+err.Error())
	}
	return nil
}

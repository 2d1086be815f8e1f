package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/san-kum/fraclab/internal/analysis"
	"github.com/san-kum/fraclab/internal/errs"
	"github.com/san-kum/fraclab/internal/session"
)

// opResponse is the body of every operation endpoint. Time and DurationMS are
// filled on failure too.
type opResponse struct {
	Op          string              `json:"op"`
	OK          bool                `json:"ok"`
	Time        string              `json:"time"`
	DurationMS  float64             `json:"duration_ms"`
	Error       string              `json:"error"`
	Code        string              `json:"code,omitempty"`
	Image       string              `json:"image,omitempty"`
	Params      *session.Params     `json:"params,omitempty"`
	Chart       *analysis.Histogram `json:"chart,omitempty"`
	Suggested   []float64           `json:"suggested,omitempty"`
	PaletteFile string              `json:"palette_file,omitempty"`
	Entries     int                 `json:"entries,omitempty"`
}

func newOpResponse(op string, d time.Duration, err error) opResponse {
	resp := opResponse{
		Op:         op,
		OK:         err == nil,
		Time:       formatDuration(d),
		DurationMS: float64(d.Microseconds()) / 1000,
		Error:      "Success",
	}
	if err != nil {
		resp.Error = err.Error()
		resp.Code = codeFor(err)
	}
	return resp
}

// formatDuration renders d as seconds with millisecond precision, e.g. "1.204 sec".
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.3f sec", d.Seconds())
}

func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, errs.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrNotGenerated):
		return http.StatusConflict
	case errors.Is(err, errs.ErrPaletteFormat):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func codeFor(err error) string {
	switch {
	case errors.Is(err, errs.ErrInvalidInput):
		return "INVALID_INPUT"
	case errors.Is(err, errs.ErrNotGenerated):
		return "NOT_GENERATED"
	case errors.Is(err, errs.ErrPaletteFormat):
		return "PALETTE_FORMAT"
	case errors.Is(err, errs.ErrIO):
		return "IO_ERROR"
	default:
		return "INTERNAL_ERROR"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// headers are already sent, nothing useful to do with an encode error
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{
		"error": err.Error(),
		"code":  codeFor(err),
	})
}

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/fraclab/internal/config"
	"github.com/san-kum/fraclab/internal/errs"
	"github.com/san-kum/fraclab/internal/session"
)

const mono = "palette:\n  - {position: 0.0, label: dark, color: [0, 0, 0]}\n  - {position: 1.0, label: light, color: [250, 250, 250]}\n"

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	root := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Paths.FractalDir = filepath.Join(root, "fractals")
	cfg.Paths.PaletteDir = filepath.Join(root, "palettes")
	cfg.Defaults.Rows = 16
	cfg.Defaults.Cols = 16
	cfg.Defaults.CenterRe = 0
	cfg.Defaults.Pitch = 0.25
	cfg.Defaults.MaxIterations = 40

	sess, err := session.New(*cfg, zerolog.Nop())
	require.NoError(t, err)
	srv := New(sess, zerolog.Nop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func postJSON(t *testing.T, url, body string) (*http.Response, opResponse) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp, decodeOp(t, resp)
}

func get(t *testing.T, url string) (*http.Response, opResponse) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	return resp, decodeOp(t, resp)
}

func decodeOp(t *testing.T, resp *http.Response) opResponse {
	t.Helper()
	defer resp.Body.Close()
	var out opResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func uploadPalette(t *testing.T, url, field, filename, content string) (*http.Response, opResponse) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if filename != "" {
		fw, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	} else {
		require.NoError(t, mw.WriteField(field, content))
	}
	require.NoError(t, mw.Close())

	resp, err := http.Post(url+"/api/palette", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	return resp, decodeOp(t, resp)
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestIndex(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "uninitialized", body["state"])
	assert.Contains(t, body, "program")
	assert.Contains(t, body, "defaults")
}

func TestOperationsBeforeGenerate(t *testing.T) {
	_, ts := newTestServer(t)

	resp, body := get(t, ts.URL+"/api/histogram")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.False(t, body.OK)
	assert.Equal(t, "NOT_GENERATED", body.Code)
	assert.True(t, strings.HasSuffix(body.Time, " sec"), body.Time)

	resp, body = postJSON(t, ts.URL+"/api/render", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "render", body.Op)

	resp, _ = postJSON(t, ts.URL+"/api/recenter", `{"new_center_re": 0, "new_center_im": 0}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestGenerateAndServeImage(t *testing.T) {
	_, ts := newTestServer(t)

	resp, body := postJSON(t, ts.URL+"/api/generate", `{"rows": 8}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body.Error)
	assert.True(t, body.OK)
	assert.Equal(t, "Success", body.Error)
	assert.Equal(t, "fractal-001.png", body.Image)
	require.NotNil(t, body.Params)
	assert.Equal(t, uint32(8), body.Params.Rows)
	assert.Equal(t, uint32(16), body.Params.Cols)
	assert.GreaterOrEqual(t, body.DurationMS, 0.0)

	img, err := http.Get(ts.URL + "/fractals/" + body.Image)
	require.NoError(t, err)
	defer img.Body.Close()
	assert.Equal(t, http.StatusOK, img.StatusCode)
	assert.Equal(t, "image/png", img.Header.Get("Content-Type"))

	resp, body = postJSON(t, ts.URL+"/api/generate", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "fractal-002.png", body.Image)
	assert.Equal(t, uint32(8), body.Params.Rows)
}

func TestGenerateRejectsBadInput(t *testing.T) {
	_, ts := newTestServer(t)

	resp, body := postJSON(t, ts.URL+"/api/generate", `{"pixel_pitch": -1}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_INPUT", body.Code)
	assert.NotEmpty(t, body.Time)

	resp, body = postJSON(t, ts.URL+"/api/generate", `{"rows": `)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body.Error, "malformed JSON")
}

func TestRecenterAndHistogram(t *testing.T) {
	_, ts := newTestServer(t)

	resp, _ := postJSON(t, ts.URL+"/api/generate", `{"rows": 8}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := postJSON(t, ts.URL+"/api/recenter",
		`{"center_row": 4, "center_col": 12, "new_center_re": -0.75, "new_center_im": 0.1}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body.Error)
	assert.Equal(t, -0.75, body.Params.CenterRe)
	assert.Equal(t, 0.1, body.Params.CenterIm)
	assert.Equal(t, "fractal-002.png", body.Image)

	resp, body = get(t, ts.URL+"/api/histogram?suggest=4")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, body.Chart)
	assert.Len(t, body.Chart.Bins, 41)
	assert.Equal(t, uint64(8*16), body.Chart.Total())
	assert.Len(t, body.Suggested, 4)

	resp, body = get(t, ts.URL+"/api/histogram?suggest=x")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_INPUT", body.Code)
}

func TestPaletteUpload(t *testing.T) {
	_, ts := newTestServer(t)

	resp, body := uploadPalette(t, ts.URL, "anything", "mono.yaml", mono)
	require.Equal(t, http.StatusOK, resp.StatusCode, body.Error)
	assert.Equal(t, "mono.yaml", body.PaletteFile)
	assert.Equal(t, 2, body.Entries)

	resp, body = uploadPalette(t, ts.URL, "file", "broken.palette", "[[palette]]\nposition = 5\n")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "PALETTE_FORMAT", body.Code)

	resp, body = uploadPalette(t, ts.URL, "note", "", "just a field")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body.Error, "no palette file")

	list, err := http.Get(ts.URL + "/api/palettes")
	require.NoError(t, err)
	defer list.Body.Close()
	var palettes struct {
		Active   string `json:"active"`
		Palettes []struct {
			Name string `json:"name"`
		} `json:"palettes"`
	}
	require.NoError(t, json.NewDecoder(list.Body).Decode(&palettes))
	assert.Equal(t, "mono.yaml", palettes.Active)
	names := make([]string, 0, len(palettes.Palettes))
	for _, p := range palettes.Palettes {
		names = append(names, p.Name)
	}
	assert.ElementsMatch(t, []string{"default.palette", "mono.yaml"}, names)
}

func TestPresets(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/presets")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Presets []presetInfo `json:"presets"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Len(t, body.Presets, len(config.Presets))
	for _, p := range body.Presets {
		assert.Greater(t, p.PixelPitch, 0.0, p.Name)
	}
}

func TestImageNotFound(t *testing.T) {
	_, ts := newTestServer(t)

	for _, path := range []string{"/fractals/missing.png", "/fractals/.hidden"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
}

func TestWebsocketEvents(t *testing.T) {
	srv, ts := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	require.Eventually(t, func() bool { return srv.Hub().ClientCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	resp, _ := postJSON(t, ts.URL+"/api/generate", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var ev struct {
		Type string     `json:"type"`
		Data opResponse `json:"data"`
	}
	require.NoError(t, wsjson.Read(ctx, conn, &ev))
	assert.Equal(t, "generated", ev.Type)
	assert.Equal(t, "fractal-001.png", ev.Data.Image)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))
	require.Eventually(t, func() bool { return srv.Hub().ClientCount() == 0 },
		2*time.Second, 10*time.Millisecond)
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{errs.NewValidationError("rows", 0, "must be positive"), http.StatusBadRequest},
		{fmt.Errorf("render: %w", errs.ErrNotGenerated), http.StatusConflict},
		{errs.NewPaletteFormatError("x", 0, "color", "bad"), http.StatusUnprocessableEntity},
		{errs.NewIOError("write image", "/tmp/x", fmt.Errorf("disk full")), http.StatusInternalServerError},
		{fmt.Errorf("other"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), "%v", tt.err)
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "1.204 sec", formatDuration(1204*time.Millisecond))
	assert.Equal(t, "0.000 sec", formatDuration(0))
}

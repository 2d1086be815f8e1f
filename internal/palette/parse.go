package palette

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/fraclab/internal/errs"
)

// Format identifies the syntax of a palette definition.
type Format int

const (
	FormatTOML Format = iota
	FormatYAML
	FormatJSON
)

func (f Format) String() string {
	switch f {
	case FormatYAML:
		return "yaml"
	case FormatJSON:
		return "json"
	default:
		return "toml"
	}
}

// FormatFor picks the syntax from a file name. Anything that is not YAML or
// JSON is read as TOML, which covers the historical .palette files.
func FormatFor(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".json":
		return FormatJSON
	default:
		return FormatTOML
	}
}

type rawEntry struct {
	Position *float64 `yaml:"position" toml:"position" json:"position"`
	Index    *int     `yaml:"index" toml:"index" json:"index"`
	Label    *string  `yaml:"label" toml:"label" json:"label"`
	Color    []int    `yaml:"color" toml:"color" json:"color"`
}

type rawPalette struct {
	Palette []rawEntry `yaml:"palette" toml:"palette" json:"palette"`
}

// Load reads and parses a palette file.
func Load(path string) (*Palette, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.NewIOError("read palette", path, err)
	}
	return Parse(filepath.Base(path), data)
}

// Parse decodes a definition whose syntax is chosen by name.
func Parse(name string, data []byte) (*Palette, error) {
	return ParseFormat(name, data, FormatFor(name))
}

// ParseFormat decodes and validates a palette definition.
func ParseFormat(name string, data []byte, format Format) (*Palette, error) {
	var raw rawPalette
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &raw)
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		err = dec.Decode(&raw)
	default:
		err = toml.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, &errs.PaletteFormatError{Source: name, Entry: -1, Err: fmt.Errorf("decode %s: %w", format, err)}
	}
	if len(raw.Palette) == 0 {
		return nil, errs.NewPaletteFormatError(name, -1, "palette", "no entries")
	}

	entries := make([]Entry, 0, len(raw.Palette))
	for i, re := range raw.Palette {
		e, err := re.entry(name, i)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return New(strings.TrimSuffix(name, filepath.Ext(name)), entries), nil
}

func (re rawEntry) entry(source string, i int) (Entry, error) {
	if re.Position == nil {
		return Entry{}, errs.NewPaletteFormatError(source, i, "position", "missing")
	}
	pos := *re.Position
	if math.IsNaN(pos) || pos < 0 || pos > 1 {
		return Entry{}, errs.NewPaletteFormatError(source, i, "position", "%v outside [0,1]", pos)
	}
	if re.Label == nil {
		return Entry{}, errs.NewPaletteFormatError(source, i, "label", "missing")
	}

	idx := i
	if re.Index != nil {
		if *re.Index < 0 {
			return Entry{}, errs.NewPaletteFormatError(source, i, "index", "%d is negative", *re.Index)
		}
		idx = *re.Index
	}

	if re.Color == nil {
		return Entry{}, errs.NewPaletteFormatError(source, i, "color", "missing")
	}
	if len(re.Color) != 3 {
		return Entry{}, errs.NewPaletteFormatError(source, i, "color", "want 3 channels, got %d", len(re.Color))
	}
	var ch [3]uint8
	for k, c := range re.Color {
		if c < 0 || c > 255 {
			return Entry{}, errs.NewPaletteFormatError(source, i, "color", "channel %d value %d outside [0,255]", k, c)
		}
		ch[k] = uint8(c)
	}

	return Entry{
		Position: pos,
		Index:    idx,
		Label:    *re.Label,
		Color:    color.RGBA{R: ch[0], G: ch[1], B: ch[2], A: 255},
	}, nil
}

package config

import "sort"

// Region is a rectangle of the complex plane.
type Region struct {
	Xmin, Xmax float64
	Ymin, Ymax float64
}

// Preset is a named landmark of the Mandelbrot set.
type Preset struct {
	Name          string
	Description   string
	Region        Region
	MaxIterations uint32
}

var Presets = map[string]Preset{
	"full": {
		Name: "full", Description: "the whole set",
		Region:        Region{Xmin: -2.5, Xmax: 1.0, Ymin: -1.25, Ymax: 1.25},
		MaxIterations: 200,
	},
	"seahorse": {
		Name: "seahorse", Description: "dense filaments and repeating seahorse curls",
		Region:        Region{Xmin: -0.8, Xmax: -0.7, Ymin: 0.05, Ymax: 0.15},
		MaxIterations: 1000,
	},
	"elephant": {
		Name: "elephant", Description: "large bulb with trunk-like tendrils",
		Region:        Region{Xmin: -1.85, Xmax: -1.75, Ymin: -0.10, Ymax: -0.02},
		MaxIterations: 800,
	},
	"spiral": {
		Name: "spiral", Description: "small copy of the set with tight spiral arms",
		Region:        Region{Xmin: -0.7435, Xmax: -0.7420, Ymin: 0.1310, Ymax: 0.1325},
		MaxIterations: 2000,
	},
	"triple": {
		Name: "triple", Description: "threefold symmetric spiral structure",
		Region:        Region{Xmin: -0.7480, Xmax: -0.7450, Ymin: 0.0950, Ymax: 0.0980},
		MaxIterations: 1500,
	},
	"dragon": {
		Name: "dragon", Description: "deep, highly detailed spiral filaments",
		Region:        Region{Xmin: -0.7400, Xmax: -0.7350, Ymin: 0.1800, Ymax: 0.1850},
		MaxIterations: 1500,
	},
	"minispiral": {
		Name: "minispiral", Description: "self-similar copy inside a spiral arm",
		Region:        Region{Xmin: -1.7390, Xmax: -1.7375, Ymin: -0.0235, Ymax: -0.0220},
		MaxIterations: 2000,
	},
}

func GetPreset(name string) (Preset, bool) {
	p, ok := Presets[name]
	return p, ok
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply centers d on the region and picks the pitch that fits the whole
// region into d's rows × cols.
func (p Preset) Apply(d ViewDefaults) ViewDefaults {
	r := p.Region
	d.CenterRe = (r.Xmin + r.Xmax) / 2
	d.CenterIm = (r.Ymin + r.Ymax) / 2

	pitchX := (r.Xmax - r.Xmin) / float64(d.Cols)
	pitchY := (r.Ymax - r.Ymin) / float64(d.Rows)
	d.Pitch = pitchX
	if pitchY > pitchX {
		d.Pitch = pitchY
	}
	if p.MaxIterations > 0 {
		d.MaxIterations = p.MaxIterations
	}
	return d
}

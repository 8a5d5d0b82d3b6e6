package config

import "sort"

type Preset struct {
	Description  string
	Coefficients map[string]float64
	X, Y         string
}

var Presets = map[string]Preset{
	"classroom": {
		Description: "default coefficients; damped spiral into a coexistence state",
		X:           "x1",
		Y:           "x2",
	},
	"decoupled": {
		Description: "interactions switched off; prey grows logistically, predators die out",
		Coefficients: map[string]float64{
			"a12": 0, "a21": 0, "a23": 0, "a32": 0,
		},
		X: "t",
		Y: "x1",
	},
	"top-predator-collapse": {
		Description:  "top predator death rate too high to persist; x3* is negative",
		Coefficients: map[string]float64{"d3": 3},
		X:            "t",
		Y:            "x3",
	},
	"oscillating": {
		Description: "weak self-limitation; oscillations with a period near 3.3 that damp out",
		Coefficients: map[string]float64{
			"bd1": 1, "d2": 0.1, "d3": 0.1,
			"a11": 0.05, "a12": 0.5, "a21": 0.5,
			"a22": 0.01, "a23": 0.5, "a32": 0.5, "a33": 0.01,
		},
		X: "x2",
		Y: "x3",
	},
}

// GetPreset returns the default configuration with the preset applied, or
// nil when the name is unknown.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	cfg.Apply(p)
	return cfg
}

// Apply overlays a preset's coefficients and plot axes.
func (c *Config) Apply(p Preset) {
	if len(p.Coefficients) > 0 {
		if c.Coefficients == nil {
			c.Coefficients = make(map[string]float64, len(p.Coefficients))
		}
		for k, v := range p.Coefficients {
			c.Coefficients[k] = v
		}
	}
	if x, err := parseAxisOr(p.X, c.Plot.X); err == nil {
		c.Plot.X = x
	}
	if y, err := parseAxisOr(p.Y, c.Plot.Y); err == nil {
		c.Plot.Y = y
	}
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

package config

import "sort"

var Presets = map[string]map[string]*Config{
	"diffusion": {
		"slow": {
			Kind: "diffusion", CellCount: 50, CellSize: 1.0, Steps: 100, Dt: 0.1, StoreFrames: 10,
			Diffusion: Float(0.5),
		},
		"fast": {
			Kind: "diffusion", CellCount: 50, CellSize: 1.0, Steps: 100, Dt: 0.5, StoreFrames: 20,
			Diffusion: Float(5.0),
		},
		"fine": {
			Kind: "diffusion", CellCount: 200, CellSize: 0.25, Steps: 400, Dt: 0.01, StoreFrames: 20,
			Diffusion: Float(1.0),
		},
	},
	"heat": {
		"rod": {
			Kind: "heat", CellCount: 50, CellSize: 1.0, Steps: 100, Dt: 0.1, StoreFrames: 10,
			Conductivity: Float(1.0),
		},
		"copper": {
			Kind: "heat", CellCount: 100, CellSize: 0.5, Steps: 200, Dt: 0.05, StoreFrames: 20,
			Conductivity: Float(4.0),
		},
		"insulator": {
			Kind: "heat", CellCount: 50, CellSize: 1.0, Steps: 300, Dt: 0.5, StoreFrames: 15,
			Conductivity: Float(0.05),
		},
	},
	"advection_diffusion": {
		"drift": {
			Kind: "advection_diffusion", CellCount: 50, CellSize: 1.0, Steps: 100, Dt: 0.1, StoreFrames: 10,
			Diffusion: Float(0.1), Velocity: Float(1.0),
		},
		"backflow": {
			Kind: "advection_diffusion", CellCount: 50, CellSize: 1.0, Steps: 100, Dt: 0.1, StoreFrames: 10,
			Diffusion: Float(0.1), Velocity: Float(-1.0),
		},
		"plume": {
			Kind: "advection_diffusion", CellCount: 100, CellSize: 0.5, Steps: 200, Dt: 0.05, StoreFrames: 20,
			Diffusion: Float(1.0), Velocity: Float(2.0),
		},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(kind, preset string) *Config {
	kindPresets, ok := Presets[kind]
	if !ok {
		return nil
	}
	cfg, ok := kindPresets[preset]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets(kind string) []string {
	kindPresets, ok := Presets[kind]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(kindPresets))
	for name := range kindPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Terrain generation using layered simplex noise.
// Elevation, moisture and heat fields are sampled per tile, then thresholded into tile types.
package world

import (
	"fmt"
	"math"
	"sort"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// Generator produces the terrain for a freshly sized grid.
type Generator interface {
	Generate(width, height int, seed int64) []TileType
}

// GeneratorFunc adapts a plain function to the Generator interface.
type GeneratorFunc func(width, height int, seed int64) []TileType

// Generate calls f.
func (f GeneratorFunc) Generate(width, height int, seed int64) []TileType {
	return f(width, height, seed)
}

// NoiseConfig holds noise generation thresholds.
type NoiseConfig struct {
	SeaLevel    float64 // Elevation below this is water
	RockLevel   float64 // Elevation above this is rock
	DryLevel    float64 // Moisture below this is sand
	FireLevel   float64 // Heat above this is fire
	Frequency   float64 // Base noise frequency
	EdgeFalloff bool    // Sink the map edges below sea level
}

// DefaultNoiseConfig returns a balanced continental map.
func DefaultNoiseConfig() NoiseConfig {
	return NoiseConfig{
		SeaLevel:  0.30,
		RockLevel: 0.75,
		DryLevel:  0.35,
		FireLevel: 0.82,
		Frequency: 0.09,
	}
}

// IslandNoiseConfig returns a map whose edges drown into water.
func IslandNoiseConfig() NoiseConfig {
	cfg := DefaultNoiseConfig()
	cfg.SeaLevel = 0.35
	cfg.EdgeFalloff = true
	return cfg
}

// NoiseGenerator derives terrain from three independent simplex fields.
type NoiseGenerator struct {
	Config NoiseConfig
}

// Generate implements Generator.
func (n NoiseGenerator) Generate(width, height int, seed int64) []TileType {
	cfg := n.Config

	elevNoise := opensimplex.NewNormalized(seed)
	moistNoise := opensimplex.NewNormalized(seed + 1)
	heatNoise := opensimplex.NewNormalized(seed + 2)

	out := make([]TileType, width*height)
	cx, cy := float64(width-1)/2, float64(height-1)/2
	maxDist := math.Hypot(cx, cy)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			fx, fy := float64(x), float64(y)

			elev := octaveNoise(elevNoise, fx, fy, 4, cfg.Frequency, 0.5)
			moist := octaveNoise(moistNoise, fx, fy, 3, cfg.Frequency*0.8, 0.5)
			heat := octaveNoise(heatNoise, fx, fy, 2, cfg.Frequency*1.3, 0.5)

			if cfg.EdgeFalloff && maxDist > 0 {
				d := math.Hypot(fx-cx, fy-cy) / maxDist
				falloff := 1.0 - math.Pow(d, 3)
				if falloff < 0 {
					falloff = 0
				}
				elev *= falloff
			}

			out[y*width+x] = deriveTile(elev, moist, heat, cfg)
		}
	}
	return out
}

func deriveTile(elev, moist, heat float64, cfg NoiseConfig) TileType {
	if elev < cfg.SeaLevel {
		return TileWater
	}
	if elev > cfg.RockLevel {
		return TileRock
	}
	if heat > cfg.FireLevel {
		return TileFire
	}
	if moist < cfg.DryLevel {
		return TileSand
	}
	return TileGrass
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}

// Fill returns a generator that paints every tile with t.
func Fill(t TileType) Generator {
	return GeneratorFunc(func(width, height int, _ int64) []TileType {
		out := make([]TileType, width*height)
		for i := range out {
			out[i] = t
		}
		return out
	})
}

var generators = map[string]Generator{
	"flat":    Fill(TileGrass),
	"void":    Fill(TileVoid),
	"noise":   NoiseGenerator{Config: DefaultNoiseConfig()},
	"islands": NoiseGenerator{Config: IslandNoiseConfig()},
}

// LookupGenerator returns a built-in generator by map name.
func LookupGenerator(name string) (Generator, error) {
	g, ok := generators[name]
	if !ok {
		return nil, fmt.Errorf("unknown map %q", name)
	}
	return g, nil
}

// GeneratorNames lists the built-in map names in sorted order.
func GeneratorNames() []string {
	names := make([]string, 0, len(generators))
	for name := range generators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

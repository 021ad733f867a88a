package world

import (
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/hextile/internal/entropy"
)

// ColorPicker chooses the first colour index tried for a new cell.
// Pick must return a value in [0, n).
type ColorPicker interface {
	Pick(at Point, n int) int
}

// NewPicker returns the picker selected by cfg. A zero seed is replaced by
// a random one.
func NewPicker(cfg GenConfig) ColorPicker {
	seed := entropy.Seed(cfg.Seed)
	if cfg.Noise {
		return NewNoisePicker(seed, 0)
	}
	return NewUniformPicker(entropy.NewRand(seed))
}

// UniformPicker picks uniformly at random.
type UniformPicker struct {
	rng *rand.Rand
}

// NewUniformPicker wraps a random source.
func NewUniformPicker(rng *rand.Rand) *UniformPicker {
	return &UniformPicker{rng: rng}
}

func (p *UniformPicker) Pick(_ Point, n int) int {
	return p.rng.Intn(n)
}

// NoisePicker derives the starting colour from layered simplex noise sampled
// at the cell center, so nearby cells tend to try the same colour first.
// The cluster limit still applies on top of it.
type NoisePicker struct {
	noise     opensimplex.Noise
	frequency float64
}

// NewNoisePicker creates a noise picker. frequency is in cycles per unit of
// plane distance; 0 uses a default suited to tile radii around 10.
func NewNoisePicker(seed int64, frequency float64) *NoisePicker {
	if frequency <= 0 {
		frequency = 0.02
	}
	return &NoisePicker{
		noise:     opensimplex.NewNormalized(seed),
		frequency: frequency,
	}
}

func (p *NoisePicker) Pick(at Point, n int) int {
	v := octaveNoise(p.noise, at.X, at.Y, 3, p.frequency, 0.5)
	i := int(v * float64(n))
	if i < 0 {
		i = 0
	}
	if i >= n {
		i = n - 1
	}
	return i
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

// Package rarity draws rarity tiers from a weighted distribution.
package rarity

import (
	"math/rand/v2"
	"sync"

	"github.com/and161185/taskdex/internal/model"
)

// Source yields uniform values in [0,1).
type Source interface {
	Float64() float64
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }

// lockedSource makes a seeded generator safe for concurrent use.
type lockedSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64()
}

// NewSource returns a deterministic, goroutine-safe source for the given seed.
func NewSource(seed uint64) Source {
	return &lockedSource{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// DefaultSource returns the runtime-seeded global generator.
func DefaultSource() Source { return globalSource{} }

// Pick returns a uniform index in [0,n). n must be positive.
func Pick(src Source, n int) int {
	i := int(src.Float64() * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}

// Sampler draws one rarity per call.
type Sampler struct {
	src Source
}

// NewSampler constructs a sampler; nil src uses DefaultSource.
func NewSampler(src Source) *Sampler {
	if src == nil {
		src = DefaultSource()
	}
	return &Sampler{src: src}
}

// Sample draws a single value r and maps it onto the bands
// [0,L) legendary, [L,L+R) rare, remainder common.
func (s *Sampler) Sample(w model.RarityWeights) model.Rarity {
	return Band(s.src.Float64(), w)
}

// Band maps r onto the rarity bands of w.
func Band(r float64, w model.RarityWeights) model.Rarity {
	switch {
	case r < w.Legendary:
		return model.RarityLegendary
	case r < w.Legendary+w.Rare:
		return model.RarityRare
	default:
		return model.RarityCommon
	}
}

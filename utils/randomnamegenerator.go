package utils

import (
	"math/rand"
	"strings"
	"sync"

	"github.com/Pallinder/go-randomdata"
)

// RandomNameGenerator produces unique silly names for unnamed resources.
type RandomNameGenerator struct {
	lock  sync.Mutex
	used  map[string]struct{}
	taken func(name string) bool
}

// NewRandomNameGenerator uses taken (may be nil) to skip names already present elsewhere.
func NewRandomNameGenerator(seed int64, taken func(name string) bool) *RandomNameGenerator {
	randomdata.CustomRand(rand.New(rand.NewSource(seed)))
	return &RandomNameGenerator{
		used:  make(map[string]struct{}),
		taken: taken,
	}
}

func (rng *RandomNameGenerator) RandomName() string {
	rng.lock.Lock()
	defer rng.lock.Unlock()
	for {
		name := strings.ToLower(randomdata.SillyName())
		if _, exists := rng.used[name]; exists {
			continue
		}
		if rng.taken != nil && rng.taken(name) {
			continue
		}
		rng.used[name] = struct{}{}
		return name
	}
}

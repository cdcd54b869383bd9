package util

import (
	"math/rand"
	"sync"
	"time"
)

var (
	seedMu sync.Mutex
	seeder = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// NewRand returns a generator owned by one goroutine. Successive calls are seeded differently,
// so workers started together do not pick the same rows.
func NewRand() *rand.Rand {
	seedMu.Lock()
	seed := seeder.Int63()
	seedMu.Unlock()
	return rand.New(rand.NewSource(seed))
}

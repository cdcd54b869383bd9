package util

import (
	"io"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid"
)

var (
	runIDMu      sync.Mutex
	runIDEntropy io.Reader = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

// NewRunID returns a lower-case ULID stamped with t. Ids created for the same millisecond
// still sort in creation order.
func NewRunID(t time.Time) string {
	runIDMu.Lock()
	defer runIDMu.Unlock()
	return strings.ToLower(ulid.MustNew(ulid.Timestamp(t), runIDEntropy).String())
}

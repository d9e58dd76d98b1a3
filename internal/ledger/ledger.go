// Package ledger provides the sequence and timestamp sources the registry
// stamps records with and seeds generated keys from.
package ledger

import (
	"sync"
	"time"

	"github.com/serroba/link-registry/internal/shortener"
)

// DefaultInterval is the span of one ledger.
const DefaultInterval = 5 * time.Second

// Clock derives a ledger from wall-clock time: the sequence counts whole
// intervals elapsed since genesis and the timestamp is unix seconds.
type Clock struct {
	genesis  time.Time
	interval time.Duration
	now      func() time.Time
}

// NewClock creates a clock-backed ledger. A non-positive interval falls back
// to DefaultInterval.
func NewClock(genesis time.Time, interval time.Duration) *Clock {
	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Clock{genesis: genesis, interval: interval, now: time.Now}
}

// Sequence saturates at zero before genesis and at the uint32 limit.
func (c *Clock) Sequence() shortener.Sequence {
	elapsed := c.now().Sub(c.genesis)
	if elapsed <= 0 {
		return 0
	}

	n := uint64(elapsed / c.interval)
	if n > uint64(^uint32(0)) {
		return shortener.Sequence(^uint32(0))
	}

	return shortener.Sequence(n)
}

func (c *Clock) Timestamp() uint64 {
	ts := c.now().Unix()
	if ts < 0 {
		return 0
	}

	return uint64(ts)
}

// Manual is a ledger whose values are set explicitly, for tests and replay.
type Manual struct {
	mu        sync.Mutex
	sequence  shortener.Sequence
	timestamp uint64
}

// NewManual creates a manual ledger at the given position.
func NewManual(sequence shortener.Sequence, timestamp uint64) *Manual {
	return &Manual{sequence: sequence, timestamp: timestamp}
}

func (m *Manual) Sequence() shortener.Sequence {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.sequence
}

func (m *Manual) Timestamp() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.timestamp
}

// Set moves the ledger to a new position.
func (m *Manual) Set(sequence shortener.Sequence, timestamp uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sequence = sequence
	m.timestamp = timestamp
}

// Advance closes n ledgers, moving the timestamp forward by n*interval seconds.
func (m *Manual) Advance(n uint32, interval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sequence += shortener.Sequence(n)
	m.timestamp += uint64(n) * uint64(interval/time.Second)
}

package shortener

import (
	"fmt"

	"github.com/jaevor/go-nanoid"
)

// Alphabet is the 62-symbol alphabet generated keys are drawn from.
const Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GeneratedKeyLength is the length of every generated key.
const GeneratedKeyLength = 7

// retrySalt spreads retry attempts across the seed space.
const retrySalt uint64 = 0x9E3779B97F4A7C15

// KeyGenerator derives a short key when the caller supplies none.
// attempt is zero on the first try and increases on each collision retry.
type KeyGenerator interface {
	Generate(seq Sequence, timestamp uint64, attempt int) ShortKey
}

// LedgerKeys encodes wrapping_add(sequence, timestamp) in base 62, least
// significant digit first. It is deterministic: two calls with the same
// sequence, timestamp and attempt return the same key.
type LedgerKeys struct{}

func (LedgerKeys) Generate(seq Sequence, timestamp uint64, attempt int) ShortKey {
	num := uint64(seq) + timestamp
	num += uint64(attempt) * retrySalt

	var key [GeneratedKeyLength]byte

	for i := range key {
		key[i] = Alphabet[num%62]
		num /= 62
	}

	return ShortKey(key[:])
}

// RandomKeys draws keys from the same alphabet with nanoid, ignoring the ledger.
type RandomKeys struct {
	next func() string
}

// NewRandomKeys creates a nanoid-backed generator.
func NewRandomKeys() (*RandomKeys, error) {
	next, err := nanoid.CustomASCII(Alphabet, GeneratedKeyLength)
	if err != nil {
		return nil, fmt.Errorf("nanoid generator: %w", err)
	}

	return &RandomKeys{next: next}, nil
}

func (r *RandomKeys) Generate(Sequence, uint64, int) ShortKey {
	return ShortKey(r.next())
}

package shortener

import "unicode/utf8"

// MaxKeyLength is the longest short key the registry accepts, in characters.
const MaxKeyLength = 64

// ShortKey is the unique identifier a destination URL is filed under.
type ShortKey string

// Valid reports whether the key has between 1 and MaxKeyLength characters.
func (k ShortKey) Valid() bool {
	n := utf8.RuneCountInString(string(k))

	return n >= 1 && n <= MaxKeyLength
}

// Identity is the opaque principal that owns a link.
type Identity string

// Sequence is a ledger sequence number.
type Sequence uint32

// LinkRecord is the value stored per short key.
type LinkRecord struct {
	DestinationURL string
	CreatedAt      Sequence // ledger sequence at creation, never changes
	Owner          Identity
}

// Table names one of the two logical tables held by the store.
type Table string

const (
	TableLinks  Table = "links"
	TableOwners Table = "owners"
)

// Retention is a storage hint: when an entry's remaining lifetime drops below
// Threshold ledgers, extend it to ExtendTo ledgers.
type Retention struct {
	Threshold uint32
	ExtendTo  uint32
}

// DefaultRetention keeps entries for roughly a year of ledgers.
var DefaultRetention = Retention{Threshold: 31_536_000, ExtendTo: 31_536_000}

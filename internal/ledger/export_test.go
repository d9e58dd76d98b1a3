package ledger

import "time"

// SetNow replaces the clock's time source.
func (c *Clock) SetNow(now func() time.Time) {
	c.now = now
}

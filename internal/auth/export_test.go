package auth

import "time"

// SetNow replaces the verifier's time source.
func (v *Verifier) SetNow(now func() time.Time) {
	v.now = now
}

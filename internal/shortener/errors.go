package shortener

import "errors"

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrKeyConflict          = errors.New("link key already exists")
	ErrNotFound             = errors.New("link not found")
	ErrUnauthorized         = errors.New("not the owner of this link")
	ErrAuthenticationFailed = errors.New("authentication failed")
)

// ErrorKind tags a registry failure so callers can branch on it.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindInvalidInput
	KindKeyConflict
	KindNotFound
	KindUnauthorized
	KindAuthenticationFailed
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidInput:
		return "InvalidInput"
	case KindKeyConflict:
		return "KeyConflict"
	case KindNotFound:
		return "NotFound"
	case KindUnauthorized:
		return "Unauthorized"
	case KindAuthenticationFailed:
		return "AuthenticationFailed"
	default:
		return "Unknown"
	}
}

// Kind classifies err. Errors that do not wrap one of the registry
// sentinels are KindUnknown.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrKeyConflict):
		return KindKeyConflict
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrAuthenticationFailed):
		return KindAuthenticationFailed
	default:
		return KindUnknown
	}
}
